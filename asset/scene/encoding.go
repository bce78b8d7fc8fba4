package scene

import (
	"encoding/binary"
	"fmt"
)

// Compiled scene files start with FormatMagic followed by a version byte
// and the BvhMode byte. The rest of the file is a zstd stream of sections;
// each section is a header followed by Count fixed-size little-endian
// records.
const (
	FormatMagic   = "ACCL"
	FormatVersion = uint8(1)
)

// Section identifiers.
type SectionID uint8

const (
	SectionBoundingBoxes SectionID = iota + 1
	SectionBvhNodes
	SectionBlasRoots
	SectionTriangles
	SectionTriangleIndices
	SectionTlasNodes
)

var sectionNames = map[SectionID]string{
	SectionBoundingBoxes:   "bounding boxes",
	SectionBvhNodes:        "bvh nodes",
	SectionBlasRoots:       "blas roots",
	SectionTriangles:       "triangles",
	SectionTriangleIndices: "triangle indices",
	SectionTlasNodes:       "tlas nodes",
}

func (id SectionID) String() string {
	if name, ok := sectionNames[id]; ok {
		return name
	}
	return fmt.Sprintf("section(%d)", uint8(id))
}

// The header preceding each section payload. Checksum is the xxhash64 of
// the payload bytes.
type SectionHeader struct {
	ID       SectionID
	Count    uint32
	Checksum uint64
}

// The on-disk representation of a BoundingBox.
type BoundingBoxRecord struct {
	Min   [3]float32
	Type  int32
	Max   [3]float32
	Index int32
	Leaf  uint32
	_     [3]uint32
}

// Convert a bounding box to its on-disk representation.
func NewBoundingBoxRecord(box BoundingBox) BoundingBoxRecord {
	rec := BoundingBoxRecord{
		Min:   box.Min,
		Type:  int32(box.Type),
		Max:   box.Max,
		Index: box.Index,
	}
	if box.Leaf {
		rec.Leaf = 1
	}
	return rec
}

// Convert the record back to a bounding box.
func (r BoundingBoxRecord) BoundingBox() BoundingBox {
	return BoundingBox{
		Min:   r.Min,
		Max:   r.Max,
		Type:  ElementType(r.Type),
		Index: r.Index,
		Leaf:  r.Leaf != 0,
	}
}

// Get the size in bytes of a single record stored in a section.
func (id SectionID) RecordSize() (int, error) {
	var size int
	switch id {
	case SectionBoundingBoxes:
		size = binary.Size(BoundingBoxRecord{})
	case SectionBvhNodes:
		size = binary.Size(BvhNode{})
	case SectionBlasRoots:
		size = binary.Size(uint32(0))
	case SectionTriangles:
		size = binary.Size(Triangle{})
	case SectionTriangleIndices:
		size = binary.Size(int32(0))
	case SectionTlasNodes:
		size = binary.Size(TlasNode{})
	default:
		return 0, fmt.Errorf("unknown section id %d", uint8(id))
	}
	return size, nil
}
