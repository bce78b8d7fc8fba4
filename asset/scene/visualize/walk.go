// Package visualize provides debug helpers for inspecting the acceleration
// structures generated by the scene compiler.
package visualize

import (
	"github.com/achilleasa/accel/asset/scene"
	"github.com/achilleasa/accel/types"
)

// A VisitFunc is invoked for each visited node. Returning false skips the
// children of the visited node.
type VisitFunc func(index, depth int, bbox [2]types.Vec3, leaf bool) bool

// A Walker performs a pre-order traversal of a tree invoking fn for each
// visited node.
type Walker func(fn VisitFunc)

// Walk an implicitly indexed bounding box array. The children of slot i
// live at 2i+1 and 2i+2; traversal stops at leaves and absent slots.
func WalkBoundingBoxes(nodes []scene.BoundingBox, fn VisitFunc) {
	walkBoundingBoxes(nodes, 0, 0, fn)
}

func walkBoundingBoxes(nodes []scene.BoundingBox, index, depth int, fn VisitFunc) {
	if index >= len(nodes) || nodes[index].Type == scene.ElementAbsent {
		return
	}

	box := nodes[index]
	if !fn(index, depth, box.BBox(), box.Leaf) || box.Leaf {
		return
	}
	walkBoundingBoxes(nodes, 2*index+1, depth+1, fn)
	walkBoundingBoxes(nodes, 2*index+2, depth+1, fn)
}

// Walk the bottom-level BVH rooted at root.
func WalkBvh(nodes []scene.BvhNode, root uint32, fn VisitFunc) {
	walkBvh(nodes, root, 0, fn)
}

func walkBvh(nodes []scene.BvhNode, index uint32, depth int, fn VisitFunc) {
	if int(index) >= len(nodes) {
		return
	}

	node := &nodes[index]
	if !fn(int(index), depth, node.BBox().BBox(), node.IsLeaf()) || node.IsLeaf() {
		return
	}
	left, right := node.Children()
	walkBvh(nodes, left, depth+1, fn)
	walkBvh(nodes, right, depth+1, fn)
}

// Walk a top-level BVH starting at its root in slot 0.
func WalkTlas(nodes []scene.TlasNode, fn VisitFunc) {
	if len(nodes) == 0 {
		return
	}
	walkTlas(nodes, 0, 0, fn)
}

func walkTlas(nodes []scene.TlasNode, index uint32, depth int, fn VisitFunc) {
	if int(index) >= len(nodes) {
		return
	}

	node := &nodes[index]
	if !fn(int(index), depth, node.BBox().BBox(), node.IsLeaf()) || node.IsLeaf() {
		return
	}
	left, right := node.Children()
	walkTlas(nodes, left, depth+1, fn)
	walkTlas(nodes, right, depth+1, fn)
}

// Get a Walker for an implicitly indexed bounding box array.
func BoundingBoxWalker(nodes []scene.BoundingBox) Walker {
	return func(fn VisitFunc) { WalkBoundingBoxes(nodes, fn) }
}

// Get a Walker for the bottom-level BVH rooted at root.
func BvhWalker(nodes []scene.BvhNode, root uint32) Walker {
	return func(fn VisitFunc) { WalkBvh(nodes, root, fn) }
}

// Get a Walker for a top-level BVH.
func TlasWalker(nodes []scene.TlasNode) Walker {
	return func(fn VisitFunc) { WalkTlas(nodes, fn) }
}

// Wrap a walker so that nodes deeper than maxDepth are not visited. A
// negative maxDepth disables the limit.
func LimitDepth(walk Walker, maxDepth int) Walker {
	if maxDepth < 0 {
		return walk
	}
	return func(fn VisitFunc) {
		walk(func(index, depth int, bbox [2]types.Vec3, leaf bool) bool {
			if !fn(index, depth, bbox, leaf) {
				return false
			}
			return depth < maxDepth
		})
	}
}

// The subtree of the root a node belongs to.
type Branch uint8

const (
	BranchRoot Branch = iota
	BranchLeft
	BranchRight
)

func (b Branch) String() string {
	switch b {
	case BranchLeft:
		return "left"
	case BranchRight:
		return "right"
	}
	return "root"
}

// A visited node.
type Box struct {
	Index  int
	Depth  int
	Min    types.Vec3
	Max    types.Vec3
	Leaf   bool
	Branch Branch
}

// Collect all nodes visited by walk in pre-order.
func CollectBoxes(walk Walker) []Box {
	boxes := make([]Box, 0)
	rootChildren := 0
	walk(func(index, depth int, bbox [2]types.Vec3, leaf bool) bool {
		// In pre-order every node between the first and the second child
		// of the root belongs to the left subtree.
		if depth == 1 {
			rootChildren++
		}

		branch := BranchRoot
		if depth > 0 {
			branch = BranchLeft
			if rootChildren > 1 {
				branch = BranchRight
			}
		}

		boxes = append(boxes, Box{
			Index:  index,
			Depth:  depth,
			Min:    bbox[0],
			Max:    bbox[1],
			Leaf:   leaf,
			Branch: branch,
		})
		return true
	})
	return boxes
}
