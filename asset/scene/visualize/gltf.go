package visualize

import (
	"fmt"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

// A named list of boxes exported as a single line-list mesh.
type BoxSet struct {
	Name  string
	Boxes []Box
}

var (
	rootColor  = [4]float32{1, 1, 1, 1}
	leftColor  = [4]float32{0.2, 0.8, 0.2, 1}
	rightColor = [4]float32{0.2, 0.4, 1, 1}
	leafColor  = [4]float32{1, 0.6, 0.1, 1}
)

// The 12 edges of a box as pairs of corner indices. Corner i has its x, y
// and z coordinates selected from max when bits 0, 1 and 2 of i are set.
var boxEdges = [12][2]uint32{
	{0, 1}, {2, 3}, {4, 5}, {6, 7},
	{0, 2}, {1, 3}, {4, 6}, {5, 7},
	{0, 4}, {1, 5}, {2, 6}, {3, 7},
}

// Get the color for a box. Leaves are highlighted; internal nodes take the
// color of the root subtree they belong to and fade with depth.
func boxColor(box Box) [4]float32 {
	if box.Leaf {
		return leafColor
	}

	var c [4]float32
	switch box.Branch {
	case BranchLeft:
		c = leftColor
	case BranchRight:
		c = rightColor
	default:
		return rootColor
	}

	fade := 1.0 / (1.0 + 0.15*float32(box.Depth-1))
	return [4]float32{c[0] * fade, c[1] * fade, c[2] * fade, 1}
}

// Build a glTF document with one node and one line-list mesh per box set.
func BuildDocument(sets ...BoxSet) *gltf.Document {
	doc := gltf.NewDocument()
	doc.Asset.Generator = "accel BVH visualizer"

	pbr := &gltf.PBRMetallicRoughness{BaseColorFactor: &[4]float64{1, 1, 1, 1}, MetallicFactor: gltf.Float(0), RoughnessFactor: gltf.Float(1)}
	doc.Materials = []*gltf.Material{{Name: "bvh", PBRMetallicRoughness: pbr, AlphaMode: gltf.AlphaOpaque}}

	for _, set := range sets {
		if len(set.Boxes) == 0 {
			continue
		}

		positions := make([][3]float32, 0, 8*len(set.Boxes))
		colors := make([][4]float32, 0, 8*len(set.Boxes))
		indices := make([]uint32, 0, 24*len(set.Boxes))
		for _, box := range set.Boxes {
			base := uint32(len(positions))
			color := boxColor(box)
			for corner := 0; corner < 8; corner++ {
				var p [3]float32
				for axis := 0; axis < 3; axis++ {
					p[axis] = box.Min[axis]
					if corner&(1<<uint(axis)) != 0 {
						p[axis] = box.Max[axis]
					}
				}
				positions = append(positions, p)
				colors = append(colors, color)
			}
			for _, edge := range boxEdges {
				indices = append(indices, base+edge[0], base+edge[1])
			}
		}

		prim := &gltf.Primitive{
			Attributes: gltf.PrimitiveAttributes{
				gltf.POSITION: modeler.WritePosition(doc, positions),
				gltf.COLOR_0:  modeler.WriteColor(doc, colors),
			},
			Indices:  gltf.Index(modeler.WriteIndices(doc, indices)),
			Material: gltf.Index(0),
			Mode:     gltf.PrimitiveLines,
		}

		doc.Meshes = append(doc.Meshes, &gltf.Mesh{Name: set.Name, Primitives: []*gltf.Primitive{prim}})
		doc.Nodes = append(doc.Nodes, &gltf.Node{Name: set.Name, Mesh: gltf.Index(len(doc.Meshes) - 1)})
		doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, len(doc.Nodes)-1)
	}

	return doc
}

// Export box sets as a binary glTF file.
func ExportGLTF(path string, sets ...BoxSet) error {
	doc := BuildDocument(sets...)
	if len(doc.Meshes) == 0 {
		return fmt.Errorf("visualize: no boxes to export")
	}
	if err := gltf.SaveBinary(doc, path); err != nil {
		return fmt.Errorf("visualize: %w", err)
	}
	return nil
}
