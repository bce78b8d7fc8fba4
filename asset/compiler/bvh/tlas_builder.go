package bvh

import (
	"time"

	"github.com/achilleasa/accel/asset/scene"
	"github.com/achilleasa/accel/log"
)

// The largest number of instances whose 2k-1 TLAS nodes can all be
// addressed by the 16-bit packed child indices.
const MaxTLASInstances = (scene.MaxTlasNodeIndex + 2) / 2

// A top-level acceleration structure over a set of BLAS instances.
type TLAS struct {
	// Flat node list; node 0 is always the root. For k instances exactly
	// 2k-1 nodes are used: the root at 0, the k leaves at 1..k and the
	// remaining internal nodes after them.
	Nodes []scene.TlasNode

	// The instances referenced by leaf nodes (TlasNode.Blas indexes this list).
	Instances []scene.Instance

	Stats BuildStats
}

type tlasBuilder struct {
	logger    log.Logger
	nodes     []scene.TlasNode
	nodesUsed int
}

// Build a TLAS by agglomerative clustering of the instance world bounds.
//
// The builder keeps a list of active nodes and walks nearest-neighbour
// chains: for node A it finds the node B whose union with A has the
// smallest area, then the best match C for B. If C is A the two nodes are
// mutual best matches and get merged into a new parent that replaces A
// in the active list; otherwise the walk continues from B. The process
// repeats until a single active node (the root) remains. Each step scans
// the whole active list so the build is O(k^2) which is fine for
// scene-level instance counts.
func BuildTLAS(instances []scene.Instance) (*TLAS, error) {
	k := len(instances)
	if k == 0 {
		return nil, ErrEmptyInput
	}
	if err := checkTLASCapacity(k); err != nil {
		return nil, err
	}

	start := time.Now()
	b := &tlasBuilder{
		logger: log.New("tlas"),
		nodes:  make([]scene.TlasNode, 2*k-1),
	}

	if k == 1 {
		b.nodes[0].SetBBox(instances[0].Bounds())
		b.nodes[0].Blas = 0
		b.nodesUsed = 1
	} else {
		b.cluster(instances)
	}

	tlas := &TLAS{
		Nodes:     b.nodes[:b.nodesUsed],
		Instances: instances,
		Stats: BuildStats{
			Nodes:     b.nodesUsed,
			Leafs:     k,
			MaxDepth:  treeDepth(b.nodes, 0),
			BuildTime: time.Since(start),
		},
	}

	b.logger.Debugf(
		"TLAS build time: %d ms, maxDepth: %d, nodes: %d, leafs: %d\n",
		tlas.Stats.BuildTime.Nanoseconds()/1e6,
		tlas.Stats.MaxDepth, tlas.Stats.Nodes, tlas.Stats.Leafs,
	)
	return tlas, nil
}

// Ensure that every node index of a TLAS over count instances fits in the
// 16-bit halves of TlasNode.LeftRight.
func checkTLASCapacity(count int) error {
	if 2*count-2 > scene.MaxTlasNodeIndex {
		return ErrTLASCapacity
	}
	return nil
}

func (b *tlasBuilder) cluster(instances []scene.Instance) {
	k := len(instances)

	// Slot 0 is reserved for the root; leaves go to 1..k.
	active := make([]int, k)
	b.nodesUsed = 1
	for i, inst := range instances {
		active[i] = b.nodesUsed
		b.nodes[b.nodesUsed].SetBBox(inst.Bounds())
		b.nodes[b.nodesUsed].Blas = uint32(i)
		b.nodes[b.nodesUsed].LeftRight = 0
		b.nodesUsed++
	}

	activeCount := k
	nodeA := 0
	nodeB := b.findBestMatch(active, activeCount, nodeA)
	for activeCount > 1 {
		nodeC := b.findBestMatch(active, activeCount, nodeB)
		if nodeA != nodeC {
			nodeA, nodeB = nodeB, nodeC
			continue
		}

		indexA, indexB := active[nodeA], active[nodeB]

		// The last merge produces the root which goes to the reserved slot.
		newIndex := b.nodesUsed
		if activeCount == 2 {
			newIndex = 0
		} else {
			b.nodesUsed++
		}

		parent := &b.nodes[newIndex]
		parent.SetChildNodes(uint32(indexA), uint32(indexB))
		parent.SetBBox(scene.Union(b.nodes[indexA].BBox(), b.nodes[indexB].BBox()))
		parent.Blas = 0

		active[nodeA] = newIndex
		active[nodeB] = active[activeCount-1]
		activeCount--

		// The moved entry may have been A.
		if nodeA == activeCount {
			nodeA = nodeB
		}
		if activeCount > 1 {
			nodeB = b.findBestMatch(active, activeCount, nodeA)
		}
	}
}

// Find the active node whose union with active[a] has the smallest area.
func (b *tlasBuilder) findBestMatch(active []int, activeCount, a int) int {
	boxA := b.nodes[active[a]].BBox()
	smallest := float32(0)
	bestB := -1
	for candidate := 0; candidate < activeCount; candidate++ {
		if candidate == a {
			continue
		}
		area := scene.Union(boxA, b.nodes[active[candidate]].BBox()).Area()
		if bestB == -1 || area < smallest {
			smallest = area
			bestB = candidate
		}
	}
	return bestB
}

func treeDepth(nodes []scene.TlasNode, index uint32) int {
	node := &nodes[index]
	if node.IsLeaf() {
		return 0
	}
	left, right := node.Children()
	ld, rd := treeDepth(nodes, left), treeDepth(nodes, right)
	if ld > rd {
		return ld + 1
	}
	return rd + 1
}
