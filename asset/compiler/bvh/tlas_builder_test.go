package bvh

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/achilleasa/accel/asset/scene"
	"github.com/achilleasa/accel/types"
)

type boxInstance struct {
	box scene.BoundingBox
}

func (b boxInstance) Bounds() scene.BoundingBox    { return b.box }
func (b boxInstance) InverseTransform() types.Mat4 { return types.Ident4() }
func boxAt(min, max types.Vec3) scene.Instance {
	return boxInstance{scene.NewBoundingBox(min, max, scene.ElementMesh, 0)}
}

// Verify that the TLAS is a proper tree rooted at 0 that references every
// instance exactly once.
func checkTLAS(t *testing.T, tlas *TLAS) {
	nodes := tlas.Nodes
	visited := make([]bool, len(nodes))
	blasRefs := make([]int, len(tlas.Instances))

	var walk func(index uint32)
	walk = func(index uint32) {
		if visited[index] {
			t.Fatalf("node %d visited twice", index)
		}
		visited[index] = true

		node := &nodes[index]
		if node.IsLeaf() {
			blasRefs[node.Blas]++
			if !node.BBox().Contains(tlas.Instances[node.Blas].Bounds()) {
				t.Fatalf("leaf %d does not enclose instance %d", index, node.Blas)
			}
			return
		}

		left, right := node.Children()
		for _, child := range []uint32{left, right} {
			if int(child) >= len(nodes) || child == 0 {
				t.Fatalf("node %d has invalid child %d", index, child)
			}
			if !node.BBox().Contains(nodes[child].BBox()) {
				t.Fatalf("node %d does not contain child %d", index, child)
			}
			walk(child)
		}
	}
	walk(0)

	for index, seen := range visited {
		if !seen {
			t.Fatalf("node %d is not reachable from the root", index)
		}
	}
	for index, refs := range blasRefs {
		if refs != 1 {
			t.Fatalf("expected instance %d to be referenced once; got %d", index, refs)
		}
	}
}

func TestTLASTwoDisjointInstances(t *testing.T) {
	tlas, err := BuildTLAS([]scene.Instance{
		boxAt(types.Vec3{0, 0, 0}, types.Vec3{1, 1, 1}),
		boxAt(types.Vec3{10, 0, 0}, types.Vec3{11, 1, 1}),
	})
	if err != nil {
		t.Fatal(err)
	}

	if len(tlas.Nodes) != 3 {
		t.Fatalf("expected 3 nodes; got %d", len(tlas.Nodes))
	}

	root := tlas.Nodes[0]
	if root.AabbMin != (types.Vec3{0, 0, 0}) || root.AabbMax != (types.Vec3{11, 1, 1}) {
		t.Fatalf("expected root bounds [0,0,0]-[11,1,1]; got %v - %v", root.AabbMin, root.AabbMax)
	}

	left, right := root.Children()
	if !((left == 1 && right == 2) || (left == 2 && right == 1)) {
		t.Fatalf("expected root to reference leaves 1 and 2; got %d and %d", left, right)
	}
	for _, leaf := range []uint32{1, 2} {
		if !tlas.Nodes[leaf].IsLeaf() {
			t.Fatalf("expected node %d to be a leaf", leaf)
		}
	}
	checkTLAS(t, tlas)
}

func TestTLASSingleInstance(t *testing.T) {
	tlas, err := BuildTLAS([]scene.Instance{boxAt(types.Vec3{-1, -1, -1}, types.Vec3{1, 1, 1})})
	if err != nil {
		t.Fatal(err)
	}
	if len(tlas.Nodes) != 1 || !tlas.Nodes[0].IsLeaf() || tlas.Nodes[0].Blas != 0 {
		t.Fatalf("expected a single leaf root; got %+v", tlas.Nodes)
	}
}

func TestTLASMergesNearestNeighboursFirst(t *testing.T) {
	// Two tight pairs far apart from each other.
	tlas, err := BuildTLAS([]scene.Instance{
		boxAt(types.Vec3{0, 0, 0}, types.Vec3{1, 1, 1}),
		boxAt(types.Vec3{100, 0, 0}, types.Vec3{101, 1, 1}),
		boxAt(types.Vec3{1, 0, 0}, types.Vec3{2, 1, 1}),
		boxAt(types.Vec3{101, 0, 0}, types.Vec3{102, 1, 1}),
	})
	if err != nil {
		t.Fatal(err)
	}
	checkTLAS(t, tlas)

	left, right := tlas.Nodes[0].Children()
	for _, child := range []uint32{left, right} {
		node := tlas.Nodes[child]
		if node.IsLeaf() {
			t.Fatalf("expected root children to be internal nodes")
		}
		width := node.AabbMax[0] - node.AabbMin[0]
		if width != 2 {
			t.Fatalf("expected each root child to enclose one tight pair (width 2); got %f", width)
		}
	}
}

func TestTLASRandomInstances(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for _, k := range []int{2, 3, 5, 16, 100} {
		instances := make([]scene.Instance, k)
		all := scene.EmptyBoundingBox()
		for index := range instances {
			min := types.Vec3{rng.Float32() * 100, rng.Float32() * 100, rng.Float32() * 100}
			max := min.Add(types.Vec3{1 + rng.Float32(), 1 + rng.Float32(), 1 + rng.Float32()})
			instances[index] = boxAt(min, max)
			all.GrowBox(instances[index].Bounds())
		}

		tlas, err := BuildTLAS(instances)
		if err != nil {
			t.Fatalf("[k %d] %v", k, err)
		}
		if len(tlas.Nodes) != 2*k-1 {
			t.Fatalf("[k %d] expected %d nodes; got %d", k, 2*k-1, len(tlas.Nodes))
		}
		root := tlas.Nodes[0].BBox()
		if root.Min != all.Min || root.Max != all.Max {
			t.Fatalf("[k %d] expected root %v; got %v", k, all, root)
		}
		checkTLAS(t, tlas)
	}
}

func TestTLASWithBLASInstances(t *testing.T) {
	blasList := make([]scene.Instance, 3)
	for index := range blasList {
		blas := NewBLAS([]scene.Triangle{
			tri(types.Vec3{0, 0, 0}, types.Vec3{1, 0, 0}, types.Vec3{0, 1, 0}),
		}, scene.Material{})
		if err := blas.Build(); err != nil {
			t.Fatal(err)
		}
		if err := blas.SetTransform(types.Translate4(types.Vec3{float32(index) * 5, 0, 0})); err != nil {
			t.Fatal(err)
		}
		blasList[index] = blas
	}

	tlas, err := BuildTLAS(blasList)
	if err != nil {
		t.Fatal(err)
	}
	checkTLAS(t, tlas)
	if root := tlas.Nodes[0]; root.AabbMin[0] != 0 || root.AabbMax[0] != 11 {
		t.Fatalf("expected root to span x in [0,11]; got %v - %v", root.AabbMin, root.AabbMax)
	}
}

func TestTLASCapacity(t *testing.T) {
	if err := checkTLASCapacity(MaxTLASInstances); err != nil {
		t.Fatalf("expected %d instances to fit; got %v", MaxTLASInstances, err)
	}
	if err := checkTLASCapacity(MaxTLASInstances + 1); !errors.Is(err, ErrTLASCapacity) {
		t.Fatalf("expected ErrTLASCapacity for %d instances; got %v", MaxTLASInstances+1, err)
	}

	// The highest node index of the largest supported build must fit in
	// 16 bits while one more instance must not.
	if 2*MaxTLASInstances-2 > scene.MaxTlasNodeIndex || 2*(MaxTLASInstances+1)-2 <= scene.MaxTlasNodeIndex {
		t.Fatalf("unexpected instance limit %d for max node index %d", MaxTLASInstances, scene.MaxTlasNodeIndex)
	}

	instances := make([]scene.Instance, MaxTLASInstances+1)
	if _, err := BuildTLAS(instances); !errors.Is(err, ErrTLASCapacity) {
		t.Fatalf("expected BuildTLAS to reject %d instances; got %v", len(instances), err)
	}
}

func TestTLASEmptyInput(t *testing.T) {
	if _, err := BuildTLAS(nil); !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("expected ErrEmptyInput; got %v", err)
	}
}
