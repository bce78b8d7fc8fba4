// Package bvh builds the bounding volume hierarchies consumed by the
// renderer: a median-split tree over tagged element boxes, a binned SAH
// tree per mesh (BLAS) and a top-level tree over mesh instances (TLAS).
package bvh

import (
	"errors"
	"math/rand"
	"time"
)

type Axis uint8

const (
	XAxis Axis = iota
	YAxis
	ZAxis
)

var (
	// Returned when a builder is invoked without any primitives.
	ErrEmptyInput = errors.New("bvh: no primitives to partition")

	// Returned when a flattened tree does not fit in its node array.
	ErrCapacityExceeded = errors.New("bvh: node array capacity exceeded")

	// Returned when a TLAS node index does not fit in a packed 16-bit field.
	ErrTLASCapacity = errors.New("bvh: too many instances for 16-bit TLAS child indices")

	// Returned when an instance transformation cannot be inverted.
	ErrSingularTransform = errors.New("bvh: instance transformation is not invertible")
)

// An AxisSelector picks the split axis for a median-split node.
type AxisSelector func() Axis

// Select a random axis using the supplied random source. The source is
// not safe for concurrent use so each build should get its own.
func RandomAxis(rng *rand.Rand) AxisSelector {
	return func() Axis {
		return Axis(rng.Intn(3))
	}
}

// Always select the same axis.
func FixedAxis(axis Axis) AxisSelector {
	return func() Axis {
		return axis
	}
}

// Cycle through the X, Y and Z axes starting from X.
func RoundRobinAxis() AxisSelector {
	next := XAxis
	return func() Axis {
		axis := next
		next = (next + 1) % 3
		return axis
	}
}

// Statistics collected while building a tree.
type BuildStats struct {
	Nodes    int
	Leafs    int
	MaxDepth int

	BuildTime time.Duration
}

func (s *BuildStats) visit(depth int) {
	if depth > s.MaxDepth {
		s.MaxDepth = depth
	}
}
