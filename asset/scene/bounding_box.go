package scene

import (
	"fmt"

	"github.com/achilleasa/accel/types"
)

// The type of scene element referenced by a BoundingBox.
type ElementType int32

const (
	// Marks an unused slot in an implicitly indexed bounding box array.
	ElementAbsent ElementType = -1

	// An internal BVH node; Index points to the left child slot.
	ElementAABB ElementType = iota - 1
	ElementSphere
	ElementBox
	ElementFogBox
	ElementRect
	ElementMesh
)

var elementTypeNames = map[ElementType]string{
	ElementAbsent: "absent",
	ElementAABB:   "aabb",
	ElementSphere: "sphere",
	ElementBox:    "box",
	ElementFogBox: "fogbox",
	ElementRect:   "rect",
	ElementMesh:   "mesh",
}

func (t ElementType) String() string {
	if name, ok := elementTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("element(%d)", int32(t))
}

// Parse an element type name as returned by String.
func ParseElementType(name string) (ElementType, error) {
	for t, n := range elementTypeNames {
		if n == name && t != ElementAbsent {
			return t, nil
		}
	}
	return ElementAbsent, fmt.Errorf("unknown element type %q", name)
}

// An axis-aligned bounding box tagged with the scene element it encloses.
//
// A box that has never been grown has Min at +Inf and Max at -Inf which
// makes it the identity element for Grow/GrowBox. Use EmptyBoundingBox to
// obtain one; the zero value is a degenerate box at the origin.
type BoundingBox struct {
	Min types.Vec3
	Max types.Vec3

	// The element type and its index in the owning element list. For
	// internal nodes of a flattened tree Index holds the left child slot.
	Type  ElementType
	Index int32

	Leaf bool
}

// Create a bounding box that contains nothing.
func EmptyBoundingBox() BoundingBox {
	return BoundingBox{
		Min: types.InfVec3(1),
		Max: types.InfVec3(-1),
	}
}

// Create a bounding box for an element.
func NewBoundingBox(min, max types.Vec3, elemType ElementType, index int32) BoundingBox {
	return BoundingBox{
		Min:   min,
		Max:   max,
		Type:  elemType,
		Index: index,
	}
}

// Returns a box (tagged as an internal node) that encloses both a and b.
func Union(a, b BoundingBox) BoundingBox {
	return BoundingBox{
		Min: types.MinVec3(a.Min, b.Min),
		Max: types.MaxVec3(a.Max, b.Max),
	}
}

// Grow box to include point p.
func (b *BoundingBox) Grow(p types.Vec3) {
	b.Min = types.MinVec3(b.Min, p)
	b.Max = types.MaxVec3(b.Max, p)
}

// Grow box to include another box. Growing by an empty box is a no-op.
func (b *BoundingBox) GrowBox(o BoundingBox) {
	if o.IsEmpty() {
		return
	}
	b.Min = types.MinVec3(b.Min, o.Min)
	b.Max = types.MaxVec3(b.Max, o.Max)
}

// Returns true if the box has not been grown to contain anything.
func (b BoundingBox) IsEmpty() bool {
	return b.Min[0] > b.Max[0] || b.Min[1] > b.Max[1] || b.Min[2] > b.Max[2]
}

// Returns the half surface area (e.x*e.y + e.y*e.z + e.z*e.x) of the box.
// The value is only meaningful for relative cost comparisons. Empty boxes
// have a zero area.
func (b BoundingBox) Area() float32 {
	if b.IsEmpty() {
		return 0
	}
	e := b.Max.Sub(b.Min)
	return e[0]*e[1] + e[1]*e[2] + e[2]*e[0]
}

// Get box center.
func (b BoundingBox) Center() types.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Returns true if o lies entirely inside b.
func (b BoundingBox) Contains(o BoundingBox) bool {
	if o.IsEmpty() {
		return true
	}
	for i := 0; i < 3; i++ {
		if o.Min[i] < b.Min[i] || o.Max[i] > b.Max[i] {
			return false
		}
	}
	return true
}

// Returns true if point p lies inside b.
func (b BoundingBox) ContainsPoint(p types.Vec3) bool {
	for i := 0; i < 3; i++ {
		if p[i] < b.Min[i] || p[i] > b.Max[i] {
			return false
		}
	}
	return true
}

// Get min/max extents as a pair.
func (b BoundingBox) BBox() [2]types.Vec3 {
	return [2]types.Vec3{b.Min, b.Max}
}

// Transform box by m and return the axis-aligned box enclosing all 8
// transformed corners. Rotations and scales can enlarge the result.
func (b BoundingBox) Transform(m types.Mat4) BoundingBox {
	out := EmptyBoundingBox()
	out.Type, out.Index, out.Leaf = b.Type, b.Index, b.Leaf
	if b.IsEmpty() {
		return out
	}

	for corner := 0; corner < 8; corner++ {
		p := b.Min
		for axis := 0; axis < 3; axis++ {
			if corner&(1<<uint(axis)) != 0 {
				p[axis] = b.Max[axis]
			}
		}
		out.Grow(m.MulPoint(p))
	}
	return out
}

func (b BoundingBox) String() string {
	return fmt.Sprintf("[%v - %v %s#%d leaf=%t]", b.Min, b.Max, b.Type, b.Index, b.Leaf)
}
