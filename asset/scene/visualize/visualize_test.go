package visualize

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/achilleasa/accel/asset/compiler/bvh"
	"github.com/achilleasa/accel/asset/scene"
	"github.com/achilleasa/accel/types"
	"github.com/qmuntal/gltf"
)

func medianTree(t *testing.T, count int) []scene.BoundingBox {
	boxes := make([]scene.BoundingBox, count)
	for i := range boxes {
		boxes[i] = scene.NewBoundingBox(
			types.Vec3{float32(i), 0, 0},
			types.Vec3{float32(i) + 1, 1, 1},
			scene.ElementSphere,
			int32(i),
		)
	}
	tree, err := bvh.BuildMedianSplit(boxes, bvh.MedianSplitOptions{SelectAxis: bvh.FixedAxis(bvh.XAxis)})
	if err != nil {
		t.Fatal(err)
	}
	return tree.Nodes
}

func TestWalkBoundingBoxes(t *testing.T) {
	nodes := medianTree(t, 3)

	used := 0
	for _, node := range nodes {
		if node.Type != scene.ElementAbsent {
			used++
		}
	}

	visited := 0
	leafs := make(map[int32]int)
	WalkBoundingBoxes(nodes, func(index, depth int, bbox [2]types.Vec3, leaf bool) bool {
		visited++
		if leaf {
			leafs[nodes[index].Index]++
		}
		return true
	})

	if visited != used {
		t.Fatalf("expected to visit %d nodes; visited %d", used, visited)
	}
	if len(leafs) != 3 {
		t.Fatalf("expected leafs for 3 distinct elements; got %v", leafs)
	}

	// Pruning at the root visits a single node
	visited = 0
	WalkBoundingBoxes(nodes, func(index, depth int, bbox [2]types.Vec3, leaf bool) bool {
		visited++
		return false
	})
	if visited != 1 {
		t.Fatalf("expected pruned walk to visit 1 node; visited %d", visited)
	}
}

func TestWalkBvhAndTlas(t *testing.T) {
	tris := make([]scene.Triangle, 0)
	var zero types.Vec3
	for i := 0; i < 64; i++ {
		o := types.Vec3{float32(i % 8), float32(i / 8), 0}
		tris = append(tris, scene.NewTriangle(o, o.Add(types.Vec3{0.5, 0, 0}), o.Add(types.Vec3{0, 0.5, 0}), zero, zero, zero))
	}

	instances := make([]scene.Instance, 3)
	for i := range instances {
		blas := bvh.NewBLAS(tris, scene.Material{})
		if err := blas.Build(); err != nil {
			t.Fatal(err)
		}
		if err := blas.SetTransform(types.Translate4(types.Vec3{float32(20 * i), 0, 0})); err != nil {
			t.Fatal(err)
		}
		instances[i] = blas
	}

	blas := instances[0].(*bvh.BLAS)
	visited := 0
	WalkBvh(blas.Nodes(), 0, func(index, depth int, bbox [2]types.Vec3, leaf bool) bool {
		visited++
		return true
	})
	if visited != len(blas.Nodes()) {
		t.Fatalf("expected to visit %d BLAS nodes; visited %d", len(blas.Nodes()), visited)
	}

	tlas, err := bvh.BuildTLAS(instances)
	if err != nil {
		t.Fatal(err)
	}
	boxes := CollectBoxes(TlasWalker(tlas.Nodes))
	if len(boxes) != 5 {
		t.Fatalf("expected to visit 5 TLAS nodes; visited %d", len(boxes))
	}

	limited := CollectBoxes(LimitDepth(TlasWalker(tlas.Nodes), 1))
	for _, box := range limited {
		if box.Depth > 1 {
			t.Fatalf("expected depth-limited walk to stop at depth 1; got node at depth %d", box.Depth)
		}
	}
	if len(limited) != 3 {
		t.Fatalf("expected depth-limited walk to visit 3 nodes; got %d", len(limited))
	}
}

func TestCollectBoxesBranches(t *testing.T) {
	boxes := CollectBoxes(BoundingBoxWalker(medianTree(t, 4)))

	if boxes[0].Branch != BranchRoot || boxes[0].Depth != 0 {
		t.Fatalf("expected first box to be the root; got %+v", boxes[0])
	}

	// Boxes 0-1 go left, 2-3 go right
	for _, box := range boxes[1:] {
		expBranch := BranchLeft
		if box.Min[0] >= 2 {
			expBranch = BranchRight
		}
		if box.Branch != expBranch {
			t.Fatalf("expected box %v to belong to the %s branch; got %s", box.Min, expBranch, box.Branch)
		}
	}
}

func TestBuildDocument(t *testing.T) {
	boxes := CollectBoxes(BoundingBoxWalker(medianTree(t, 4)))
	doc := BuildDocument(
		BoxSet{Name: "median", Boxes: boxes},
		BoxSet{Name: "empty"},
	)

	if len(doc.Meshes) != 1 || len(doc.Nodes) != 1 || len(doc.Scenes[0].Nodes) != 1 {
		t.Fatalf("expected a single mesh/node; got %d meshes, %d nodes", len(doc.Meshes), len(doc.Nodes))
	}

	if pbr := doc.Materials[0].PBRMetallicRoughness; pbr.BaseColorFactor == nil || *pbr.BaseColorFactor != [4]float64{1, 1, 1, 1} {
		t.Fatalf("expected a white base color; got %v", pbr.BaseColorFactor)
	}

	prim := doc.Meshes[0].Primitives[0]
	if prim.Mode != gltf.PrimitiveLines {
		t.Fatalf("expected a line primitive; got mode %v", prim.Mode)
	}
	if count := doc.Accessors[*prim.Indices].Count; count != 24*len(boxes) {
		t.Fatalf("expected %d indices; got %d", 24*len(boxes), count)
	}
	if count := doc.Accessors[prim.Attributes[gltf.POSITION]].Count; count != 8*len(boxes) {
		t.Fatalf("expected %d positions; got %d", 8*len(boxes), count)
	}

	path := filepath.Join(t.TempDir(), "bvh.glb")
	if err := ExportGLTF(path, BoxSet{Name: "median", Boxes: boxes}); err != nil {
		t.Fatal(err)
	}
	if info, err := os.Stat(path); err != nil || info.Size() == 0 {
		t.Fatalf("expected a non-empty glb file; got %v", err)
	}

	if err := ExportGLTF(path); err == nil {
		t.Fatal("expected an error exporting an empty document")
	}
}

func TestDumpTable(t *testing.T) {
	var buf bytes.Buffer
	DumpTable(&buf, BoundingBoxWalker(medianTree(t, 2)))

	out := buf.String()
	for _, exp := range []string{"Branch", "leaf", "2 leafs", "(0.000, 0.000, 0.000)"} {
		if !strings.Contains(out, exp) {
			t.Fatalf("expected table output to contain %q:\n%s", exp, out)
		}
	}
}
