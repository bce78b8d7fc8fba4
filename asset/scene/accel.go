package scene

import (
	"fmt"

	"github.com/achilleasa/accel/types"
)

// A triangle primitive. Triangles are never copied or mutated by the BVH
// builders; leaves reference them through a permuted index list.
type Triangle struct {
	PosA, PosB, PosC          types.Vec3
	NormalA, NormalB, NormalC types.Vec3

	// Average of the three vertex positions.
	Centroid types.Vec3
}

// Create a triangle and calculate its centroid. If all normals are zero the
// face normal is used for every vertex.
func NewTriangle(a, b, c, na, nb, nc types.Vec3) Triangle {
	var zero types.Vec3
	if na == zero && nb == zero && nc == zero {
		n := b.Sub(a).Cross(c.Sub(a)).Normalize()
		na, nb, nc = n, n, n
	}

	return Triangle{
		PosA: a, PosB: b, PosC: c,
		NormalA: na, NormalB: nb, NormalC: nc,
		Centroid: a.Add(b).Add(c).Mul(1.0 / 3.0),
	}
}

// Get the triangle AABB.
func (t *Triangle) BBox() BoundingBox {
	box := EmptyBoundingBox()
	box.Grow(t.PosA)
	box.Grow(t.PosB)
	box.Grow(t.PosC)
	return box
}

// Surface scattering models.
type MaterialType uint32

const (
	MaterialLambertian MaterialType = iota
	MaterialMetal
	MaterialDielectric
)

var materialTypeNames = []string{"lambertian", "metal", "dielectric"}

func (t MaterialType) String() string {
	if int(t) < len(materialTypeNames) {
		return materialTypeNames[t]
	}
	return fmt.Sprintf("material(%d)", uint32(t))
}

// Parse a material type name as returned by String.
func ParseMaterialType(name string) (MaterialType, error) {
	for index, n := range materialTypeNames {
		if n == name {
			return MaterialType(index), nil
		}
	}
	return MaterialLambertian, fmt.Errorf("unknown material type %q", name)
}

// Surface properties attached to all nodes of a mesh BVH. The builders
// treat it as an opaque payload.
type Material struct {
	Type             MaterialType
	Color            types.Vec4
	Fuzz             float32
	RefIdx           float32
	EmissionColor    types.Vec4
	EmissionStrength float32
}

// A bottom-level BVH node. The LeftFirst and TriCount fields are
// multipurpose:
//
//   - For internal nodes TriCount is 0 and LeftFirst points to the left
//     child; the right child is always stored at LeftFirst+1.
//   - For leaves TriCount is > 0 and LeftFirst is the offset of the first
//     leaf triangle in the permuted triangle index list.
//
// Only the root node carries the inverse instance transformation.
type BvhNode struct {
	AabbMin   types.Vec3
	LeftFirst int32

	AabbMax  types.Vec3
	TriCount int32

	InvTransform types.Mat4
	Material     Material
}

// Returns true if this is a leaf node.
func (n *BvhNode) IsLeaf() bool {
	return n.TriCount > 0
}

// Set bounding box.
func (n *BvhNode) SetBBox(box BoundingBox) {
	n.AabbMin = box.Min
	n.AabbMax = box.Max
}

// Get bounding box.
func (n *BvhNode) BBox() BoundingBox {
	return BoundingBox{Min: n.AabbMin, Max: n.AabbMax, Leaf: n.IsLeaf()}
}

// Make this an internal node whose children are stored at left and left+1.
func (n *BvhNode) SetChildNodes(left uint32) {
	n.LeftFirst = int32(left)
	n.TriCount = 0
}

// Get left and right child node indices.
func (n *BvhNode) Children() (left, right uint32) {
	return uint32(n.LeftFirst), uint32(n.LeftFirst) + 1
}

// Set primitive index and count.
func (n *BvhNode) SetPrimitives(first, count uint32) {
	n.LeftFirst = int32(first)
	n.TriCount = int32(count)
}

// Get primitive index and count.
func (n *BvhNode) Primitives() (first, count uint32) {
	return uint32(n.LeftFirst), uint32(n.TriCount)
}

// Add offset to the child indices of internal nodes.
func (n *BvhNode) OffsetChildNodes(offset int32) {
	if n.IsLeaf() {
		return
	}
	n.LeftFirst += offset
}

// Add offset to the first primitive index of leaves.
func (n *BvhNode) OffsetPrimitives(offset int32) {
	if !n.IsLeaf() {
		return
	}
	n.LeftFirst += offset
}

const (
	// The largest node index that fits in one half of TlasNode.LeftRight.
	MaxTlasNodeIndex = 0xffff
)

// A top-level BVH node. Leaves have LeftRight == 0 and reference a BLAS
// instance via Blas. Internal nodes pack the left child index in the low
// 16 bits of LeftRight and the right child index in the high 16 bits.
type TlasNode struct {
	AabbMin   types.Vec3
	LeftRight uint32

	AabbMax types.Vec3
	Blas    uint32
}

// Returns true if this is a leaf node.
func (n *TlasNode) IsLeaf() bool {
	return n.LeftRight == 0
}

// Set bounding box.
func (n *TlasNode) SetBBox(box BoundingBox) {
	n.AabbMin = box.Min
	n.AabbMax = box.Max
}

// Get bounding box.
func (n *TlasNode) BBox() BoundingBox {
	return BoundingBox{Min: n.AabbMin, Max: n.AabbMax, Leaf: n.IsLeaf()}
}

// Set left and right child node indices. Both must be <= MaxTlasNodeIndex.
func (n *TlasNode) SetChildNodes(left, right uint32) {
	n.LeftRight = (left & MaxTlasNodeIndex) | (right&MaxTlasNodeIndex)<<16
}

// Get left and right child node indices.
func (n *TlasNode) Children() (left, right uint32) {
	return n.LeftRight & MaxTlasNodeIndex, n.LeftRight >> 16
}

// The Instance interface is implemented by bottom-level structures that
// can be placed in a TLAS.
type Instance interface {
	// World-space bounding box of the instance.
	Bounds() BoundingBox

	// Inverse of the instance world transformation.
	InverseTransform() types.Mat4
}
