package scene

import (
	"bytes"
	"fmt"
	"reflect"
	"strings"

	"github.com/olekukonko/tablewriter"
)

// The BVH layout produced by the scene compiler.
type BvhMode uint8

const (
	// No acceleration structure; the renderer tests every element.
	BvhDisabled BvhMode = iota

	// A single median-split BVH over the bounding boxes of all scene elements.
	BvhAllInOne

	// A SAH BVH per mesh (BLAS) combined by a top-level BVH (TLAS).
	BvhTwoLevel
)

var bvhModeNames = []string{"disabled", "all-in-one", "two-level"}

func (m BvhMode) String() string {
	if int(m) < len(bvhModeNames) {
		return bvhModeNames[m]
	}
	return fmt.Sprintf("mode(%d)", uint8(m))
}

// Parse a BVH mode name.
func ParseBvhMode(name string) (BvhMode, error) {
	for index, n := range bvhModeNames {
		if n == name {
			return BvhMode(index), nil
		}
	}
	return BvhDisabled, fmt.Errorf("unknown bvh mode %q; supported modes: %s", name, strings.Join(bvhModeNames, ", "))
}

// A compiled scene holding flat, GPU-friendly acceleration structures.
type Scene struct {
	Mode BvhMode

	// Implicitly indexed median-split BVH over all scene elements. Slot i
	// has its children at 2i+1 and 2i+2.
	BoundingBoxes []BoundingBox

	// Concatenated bottom-level BVH nodes for all mesh instances.
	BvhNodeList []BvhNode

	// The index of the root BVH node for each mesh instance.
	BlasRoots []uint32

	// All mesh triangles and the permuted triangle indices referenced by
	// BVH leaves.
	TriangleList    []Triangle
	TriangleIndices []int32

	// Top-level BVH; node 0 is the root. Leaves index BlasRoots.
	TlasNodeList []TlasNode
}

// Build a tabular representation of scene statistics.
func (sc *Scene) Stats() string {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Structure", "Entries", "Size"})
	table.Append([]string{"Bounding boxes", fmt.Sprint(len(sc.BoundingBoxes)), fmtSize(sc.BoundingBoxes)})
	table.Append([]string{"BLAS nodes", fmt.Sprint(len(sc.BvhNodeList)), fmtSize(sc.BvhNodeList)})
	table.Append([]string{"BLAS roots", fmt.Sprint(len(sc.BlasRoots)), fmtSize(sc.BlasRoots)})
	table.Append([]string{"Triangles", fmt.Sprint(len(sc.TriangleList)), fmtSize(sc.TriangleList)})
	table.Append([]string{"Triangle indices", fmt.Sprint(len(sc.TriangleIndices)), fmtSize(sc.TriangleIndices)})
	table.Append([]string{"TLAS nodes", fmt.Sprint(len(sc.TlasNodeList)), fmtSize(sc.TlasNodeList)})
	table.SetFooter([]string{"Total", sc.Mode.String(), strings.TrimLeft(fmtSize(sc.BoundingBoxes, sc.BvhNodeList, sc.BlasRoots, sc.TriangleList, sc.TriangleIndices, sc.TlasNodeList), " ")})

	table.Render()
	return buf.String()
}

// Sum the total space used by a set of slices and return back a formatted
// value with the appropriate byte/kb/mb unit.
func fmtSize(items ...interface{}) string {
	var totalBytes float32 = 0.0
	for _, item := range items {
		t := reflect.TypeOf(item)
		v := reflect.ValueOf(item)
		if v.Len() == 0 {
			continue
		}

		totalBytes += float32(int(t.Elem().Size()) * v.Len())
	}

	if totalBytes < 1e3 {
		return fmt.Sprintf("%3d bytes", int(totalBytes))
	} else if totalBytes < 1e6 {
		return fmt.Sprintf("%3.1f kb", totalBytes/1e3)
	}
	return fmt.Sprintf("%5.1f mb", totalBytes/1e6)
}
