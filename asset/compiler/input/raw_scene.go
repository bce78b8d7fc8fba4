package input

import (
	"github.com/achilleasa/accel/asset/scene"
	"github.com/achilleasa/accel/types"
)

// A non-mesh scene element (sphere, box, fog box or rect) represented by
// its local bounds and a world transformation.
type Object struct {
	Name string
	Type scene.ElementType

	// Object-space bounds.
	Min types.Vec3
	Max types.Vec3

	Transform types.Mat4
}

// Create a sphere object.
func NewSphere(name string, center types.Vec3, radius float32) *Object {
	r := types.Vec3{radius, radius, radius}
	return &Object{
		Name:      name,
		Type:      scene.ElementSphere,
		Min:       center.Sub(r),
		Max:       center.Add(r),
		Transform: types.Ident4(),
	}
}

// Create an axis-aligned object (box, fog box or rect) from its extents.
func NewBoxObject(name string, elemType scene.ElementType, min, max types.Vec3) *Object {
	return &Object{
		Name:      name,
		Type:      elemType,
		Min:       types.MinVec3(min, max),
		Max:       types.MaxVec3(min, max),
		Transform: types.Ident4(),
	}
}

// Get the world-space AABB of the object. The element index is left for
// the caller to fill in.
func (o *Object) BBox() scene.BoundingBox {
	local := scene.NewBoundingBox(o.Min, o.Max, o.Type, 0)
	return local.Transform(o.Transform)
}

// A mesh is constructed by a list of triangles sharing a material.
type Mesh struct {
	Name      string
	Triangles []scene.Triangle
	Material  scene.Material

	bbox            scene.BoundingBox
	bboxNeedsUpdate bool
}

// Create a new mesh.
func NewMesh(name string) *Mesh {
	return &Mesh{
		Name:            name,
		Triangles:       make([]scene.Triangle, 0),
		bboxNeedsUpdate: true,
	}
}

// Append triangles to the mesh.
func (m *Mesh) AddTriangles(tris ...scene.Triangle) {
	m.Triangles = append(m.Triangles, tris...)
	m.bboxNeedsUpdate = true
}

// Get mesh bounding box in object space.
func (m *Mesh) BBox() scene.BoundingBox {
	if m.bboxNeedsUpdate {
		m.bbox = scene.EmptyBoundingBox()
		for index := range m.Triangles {
			m.bbox.GrowBox(m.Triangles[index].BBox())
		}
		m.bbox.Type = scene.ElementMesh
		m.bboxNeedsUpdate = false
	}

	return m.bbox
}

// A mesh instance applies a transformation to a particular Mesh.
type MeshInstance struct {
	MeshIndex uint32
	Transform types.Mat4
}

// The scene contains all elements that are processed by the scene compiler.
type Scene struct {
	Objects       []*Object
	Meshes        []*Mesh
	MeshInstances []*MeshInstance
}

// Create a new scene.
func NewScene() *Scene {
	return &Scene{
		Objects:       make([]*Object, 0),
		Meshes:        make([]*Mesh, 0),
		MeshInstances: make([]*MeshInstance, 0),
	}
}

// Collect the world-space bounding boxes of all scene elements. Object
// boxes are indexed by the position of the object among the objects of the
// same type; mesh instance boxes are tagged as meshes and indexed by the
// instance position.
func (sc *Scene) ElementBoxes() []scene.BoundingBox {
	boxes := make([]scene.BoundingBox, 0, len(sc.Objects)+len(sc.MeshInstances))

	typeCounters := make(map[scene.ElementType]int32)
	for _, obj := range sc.Objects {
		box := obj.BBox()
		box.Index = typeCounters[obj.Type]
		typeCounters[obj.Type]++
		boxes = append(boxes, box)
	}

	for index, mi := range sc.MeshInstances {
		box := sc.Meshes[mi.MeshIndex].BBox().Transform(mi.Transform)
		box.Type = scene.ElementMesh
		box.Index = int32(index)
		boxes = append(boxes, box)
	}

	return boxes
}
