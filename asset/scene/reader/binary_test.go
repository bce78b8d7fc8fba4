package reader

import (
	"bytes"
	"encoding/binary"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/achilleasa/accel/asset/scene"
	"github.com/achilleasa/accel/asset/scene/writer"
	"github.com/achilleasa/accel/types"
	"github.com/klauspost/compress/zstd"
)

func testCompiledScene() *scene.Scene {
	var node scene.BvhNode
	node.SetBBox(scene.NewBoundingBox(types.Vec3{-1, -1, -1}, types.Vec3{1, 1, 1}, scene.ElementAABB, 0))
	node.SetPrimitives(0, 2)
	node.InvTransform = types.Translate4(types.Vec3{-3, 0, 0})
	node.Material = scene.Material{
		Type:             scene.MaterialDielectric,
		Color:            types.Vec4{1, 0.5, 0.25, 1},
		RefIdx:           1.5,
		EmissionColor:    types.Vec4{0, 0, 0, 1},
		EmissionStrength: 2,
	}

	var zero types.Vec3
	return &scene.Scene{
		Mode: scene.BvhTwoLevel,
		BoundingBoxes: []scene.BoundingBox{
			{Min: types.Vec3{0, 0, 0}, Max: types.Vec3{3, 1, 1}, Type: scene.ElementAABB, Index: 1},
			{Min: types.Vec3{0, 0, 0}, Max: types.Vec3{1, 1, 1}, Type: scene.ElementSphere, Index: 0, Leaf: true},
			{Min: types.Vec3{2, 0, 0}, Max: types.Vec3{3, 1, 1}, Type: scene.ElementRect, Index: 4, Leaf: true},
		},
		BvhNodeList: []scene.BvhNode{node},
		BlasRoots:   []uint32{0},
		TriangleList: []scene.Triangle{
			scene.NewTriangle(types.Vec3{0, 0, 0}, types.Vec3{1, 0, 0}, types.Vec3{0, 1, 0}, zero, zero, zero),
			scene.NewTriangle(types.Vec3{0, 0, 1}, types.Vec3{1, 0, 1}, types.Vec3{0, 1, 1}, zero, zero, zero),
		},
		TriangleIndices: []int32{1, 0},
		TlasNodeList: []scene.TlasNode{
			{AabbMin: types.Vec3{2, -1, -1}, AabbMax: types.Vec3{4, 1, 1}, Blas: 0},
		},
	}
}

func TestBinaryRoundTrip(t *testing.T) {
	sc := testCompiledScene()
	path := filepath.Join(t.TempDir(), "scene.accl")
	if err := writer.WriteScene(sc, path); err != nil {
		t.Fatal(err)
	}

	got, err := ReadScene(path)
	if err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(sc, got) {
		t.Fatalf("round-tripped scene does not match the original:\nexp %+v\ngot %+v", sc, got)
	}
}

func TestBinaryDecodeErrors(t *testing.T) {
	var valid bytes.Buffer
	if err := writer.Encode(&valid, testCompiledScene()); err != nil {
		t.Fatal(err)
	}

	badVersion := append([]byte{}, valid.Bytes()...)
	badVersion[4] = 99

	type spec struct {
		descr  string
		data   []byte
		expErr error
	}
	specs := []spec{
		{"truncated header", []byte("AC"), ErrInvalidFormat},
		{"bad magic", []byte("NOPE\x01\x00"), ErrInvalidFormat},
		{"bad version", badVersion, ErrInvalidFormat},
		{
			"bad checksum",
			sectionStream(t, scene.SectionHeader{ID: scene.SectionBlasRoots, Count: 1, Checksum: 0xbadc0de}, uint32(42)),
			ErrChecksumMismatch,
		},
		{
			"forged section count",
			sectionStream(t, scene.SectionHeader{ID: scene.SectionBvhNodes, Count: 0xffffffff}, nil),
			ErrInvalidFormat,
		},
		{
			"count larger than payload",
			sectionStream(t, scene.SectionHeader{ID: scene.SectionBlasRoots, Count: 1 << 20}, []uint32{1, 2, 3}),
			ErrInvalidFormat,
		},
	}

	for index, s := range specs {
		_, err := Decode(bytes.NewReader(s.data))
		if !errors.Is(err, s.expErr) {
			t.Fatalf("[spec %d: %s] expected error %v; got %v", index, s.descr, s.expErr, err)
		}
	}
}

// Build a stream holding a single section with the given header and
// payload.
func sectionStream(t *testing.T, header scene.SectionHeader, payload interface{}) []byte {
	var buf bytes.Buffer
	buf.WriteString(scene.FormatMagic)
	buf.Write([]byte{scene.FormatVersion, byte(scene.BvhAllInOne)})

	zw, err := zstd.NewWriter(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if err = binary.Write(zw, binary.LittleEndian, header); err != nil {
		t.Fatal(err)
	}
	if payload != nil {
		if err = binary.Write(zw, binary.LittleEndian, payload); err != nil {
			t.Fatal(err)
		}
	}
	if err = zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestReadSceneUnsupportedFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.yaml")
	if _, err := ReadScene(path); err == nil {
		t.Fatal("expected an error")
	}
}
