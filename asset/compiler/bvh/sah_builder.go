package bvh

import (
	"time"

	"github.com/chewxy/math32"

	"github.com/achilleasa/accel/asset/scene"
	"github.com/achilleasa/accel/log"
	"github.com/achilleasa/accel/types"
)

// The number of bins used for approximating SAH split candidates.
const sahBins = 8

type bin struct {
	bounds   scene.BoundingBox
	triCount int
}

// A bottom-level acceleration structure: a binned SAH BVH over the
// triangles of a single mesh.
//
// The builder never copies or reorders triangles. Instead it partitions
// a triangle index list in place; leaf nodes reference a contiguous range
// of that list. A BLAS is not safe for concurrent use but independent
// instances can be built in parallel.
type BLAS struct {
	logger log.Logger

	triangles []scene.Triangle
	triIndex  []int32
	material  scene.Material

	// Preallocated to 2N-1 nodes; trimmed to nodesUsed once built.
	nodes     []scene.BvhNode
	nodesUsed int

	transform    types.Mat4
	invTransform types.Mat4

	// World-space bounds of the root node.
	bounds scene.BoundingBox

	built bool
	stats BuildStats
}

// Create a BLAS for a triangle list. All nodes of the tree will carry the
// supplied material.
func NewBLAS(triangles []scene.Triangle, material scene.Material) *BLAS {
	return &BLAS{
		logger:       log.New("sah bvh"),
		triangles:    triangles,
		material:     material,
		transform:    types.Ident4(),
		invTransform: types.Ident4(),
		bounds:       scene.EmptyBoundingBox(),
	}
}

// Build the tree. Building a BLAS without triangles yields ErrEmptyInput.
func (b *BLAS) Build() error {
	if len(b.triangles) == 0 {
		return ErrEmptyInput
	}

	start := time.Now()
	b.stats = BuildStats{}
	b.triIndex = make([]int32, len(b.triangles))
	for i := range b.triIndex {
		b.triIndex[i] = int32(i)
	}

	b.nodes = make([]scene.BvhNode, 2*len(b.triangles)-1)
	b.nodesUsed = 1

	b.nodes[0].SetPrimitives(0, uint32(len(b.triangles)))
	b.updateNodeBounds(0)
	if err := b.subdivide(0, 0); err != nil {
		return err
	}

	b.nodes = b.nodes[:b.nodesUsed]
	b.built = true
	b.applyTransform()

	b.stats.Nodes = b.nodesUsed
	b.stats.BuildTime = time.Since(start)
	b.logger.Debugf(
		"BVH tree build time: %d ms, maxDepth: %d, nodes: %d, leafs: %d\n",
		b.stats.BuildTime.Nanoseconds()/1e6,
		b.stats.MaxDepth, b.stats.Nodes, b.stats.Leafs,
	)
	return nil
}

// Set the instance world transformation. The root node stores its inverse
// so rays can be moved into object space during traversal, while the
// world bounds become the box enclosing the 8 transformed corners of the
// local root box. May be called before or after Build.
func (b *BLAS) SetTransform(m types.Mat4) error {
	inv, ok := m.Inv()
	if !ok {
		return ErrSingularTransform
	}

	b.transform = m
	b.invTransform = inv
	b.applyTransform()
	return nil
}

func (b *BLAS) applyTransform() {
	if !b.built {
		return
	}
	b.nodes[0].InvTransform = b.invTransform
	b.bounds = b.nodes[0].BBox().Transform(b.transform)
	b.bounds.Leaf = false
}

// Get the flat node list; the root is at index 0.
func (b *BLAS) Nodes() []scene.BvhNode {
	return b.nodes
}

// Get the permuted triangle index list referenced by leaf nodes.
func (b *BLAS) TriIndex() []int32 {
	return b.triIndex
}

// Get the (unmodified) triangle list.
func (b *BLAS) Triangles() []scene.Triangle {
	return b.triangles
}

// Get the material assigned to all nodes.
func (b *BLAS) Material() scene.Material {
	return b.material
}

// Get world-space bounds of the root node.
func (b *BLAS) Bounds() scene.BoundingBox {
	return b.bounds
}

// Get the inverse of the instance world transformation.
func (b *BLAS) InverseTransform() types.Mat4 {
	return b.invTransform
}

// Get build statistics.
func (b *BLAS) Stats() BuildStats {
	return b.stats
}

// Recalculate node bounds from the vertices of all triangles in its range.
func (b *BLAS) updateNodeBounds(nodeIndex int) {
	node := &b.nodes[nodeIndex]
	node.Material = b.material

	box := scene.EmptyBoundingBox()
	first, count := node.Primitives()
	for _, triIndex := range b.triIndex[first : first+count] {
		tri := &b.triangles[triIndex]
		box.Grow(tri.PosA)
		box.Grow(tri.PosB)
		box.Grow(tri.PosC)
	}
	node.SetBBox(box)
}

// Evaluate sahBins-1 split planes per axis and return the one with the
// lowest SAH cost: leftCount * leftArea + rightCount * rightArea. Axes
// where all triangle centroids coincide are skipped; if no axis can be
// split the returned cost is MaxFloat32.
func (b *BLAS) findBestSplitPlane(node *scene.BvhNode) (axis Axis, splitPos, bestCost float32) {
	bestCost = math32.MaxFloat32
	first, count := node.Primitives()
	triIndices := b.triIndex[first : first+count]

	for a := XAxis; a <= ZAxis; a++ {
		boundsMin, boundsMax := math32.Inf(1), math32.Inf(-1)
		for _, triIndex := range triIndices {
			c := b.triangles[triIndex].Centroid[a]
			boundsMin = math32.Min(boundsMin, c)
			boundsMax = math32.Max(boundsMax, c)
		}

		if boundsMin == boundsMax {
			continue
		}

		// Centroid ranges too small to bin overflow the scale; treat them
		// like a zero range.
		scale := float32(sahBins) / (boundsMax - boundsMin)
		if math32.IsInf(scale, 0) || math32.IsNaN(scale) {
			continue
		}

		var bins [sahBins]bin
		for i := range bins {
			bins[i].bounds = scene.EmptyBoundingBox()
		}

		for _, triIndex := range triIndices {
			tri := &b.triangles[triIndex]
			binIndex := int((tri.Centroid[a] - boundsMin) * scale)
			if binIndex < 0 {
				binIndex = 0
			} else if binIndex > sahBins-1 {
				binIndex = sahBins - 1
			}
			bins[binIndex].triCount++
			bins[binIndex].bounds.Grow(tri.PosA)
			bins[binIndex].bounds.Grow(tri.PosB)
			bins[binIndex].bounds.Grow(tri.PosC)
		}

		// Sweep from both ends collecting the counts and areas on each
		// side of the sahBins-1 planes between bins.
		var leftArea, rightArea [sahBins - 1]float32
		var leftCount, rightCount [sahBins - 1]int
		leftBox, rightBox := scene.EmptyBoundingBox(), scene.EmptyBoundingBox()
		leftSum, rightSum := 0, 0
		for i := 0; i < sahBins-1; i++ {
			leftSum += bins[i].triCount
			leftCount[i] = leftSum
			leftBox.GrowBox(bins[i].bounds)
			leftArea[i] = leftBox.Area()

			rightSum += bins[sahBins-1-i].triCount
			rightCount[sahBins-2-i] = rightSum
			rightBox.GrowBox(bins[sahBins-1-i].bounds)
			rightArea[sahBins-2-i] = rightBox.Area()
		}

		step := (boundsMax - boundsMin) / float32(sahBins)
		for i := 0; i < sahBins-1; i++ {
			if leftCount[i] == 0 || rightCount[i] == 0 {
				continue
			}

			planeCost := float32(leftCount[i])*leftArea[i] + float32(rightCount[i])*rightArea[i]
			if planeCost < bestCost {
				axis = a
				splitPos = boundsMin + step*float32(i+1)
				bestCost = planeCost
			}
		}
	}

	return axis, splitPos, bestCost
}

// Split node if that lowers its SAH cost and recurse into the children.
func (b *BLAS) subdivide(nodeIndex, depth int) error {
	b.stats.visit(depth)
	node := &b.nodes[nodeIndex]

	axis, splitPos, splitCost := b.findBestSplitPlane(node)
	noSplitCost := float32(node.TriCount) * node.BBox().Area()
	if splitCost >= noSplitCost {
		b.stats.Leafs++
		return nil
	}

	// Partition the index range in place: triangles whose centroid lies
	// below the split plane end up in front.
	first, count := node.Primitives()
	i, j := int(first), int(first+count)-1
	for i <= j {
		if b.triangles[b.triIndex[i]].Centroid[axis] < splitPos {
			i++
			continue
		}
		b.triIndex[i], b.triIndex[j] = b.triIndex[j], b.triIndex[i]
		j--
	}

	// Keep node as a leaf if all triangles ended up on the same side.
	leftCount := uint32(i) - first
	if leftCount == 0 || leftCount == count {
		b.stats.Leafs++
		return nil
	}

	if b.nodesUsed+2 > len(b.nodes) {
		return ErrCapacityExceeded
	}
	leftChild := b.nodesUsed
	b.nodesUsed += 2

	b.nodes[leftChild].SetPrimitives(first, leftCount)
	b.nodes[leftChild+1].SetPrimitives(uint32(i), count-leftCount)
	node.SetChildNodes(uint32(leftChild))

	b.updateNodeBounds(leftChild)
	b.updateNodeBounds(leftChild + 1)

	if err := b.subdivide(leftChild, depth+1); err != nil {
		return err
	}
	return b.subdivide(leftChild+1, depth+1)
}
