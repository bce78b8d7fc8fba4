package bvh

import (
	"math/rand"
	"sort"
	"time"

	"github.com/achilleasa/accel/asset/scene"
	"github.com/achilleasa/accel/log"
)

// The deepest tree that can be flattened into an implicitly indexed array.
const maxMedianSplitDepth = 30

type MedianSplitOptions struct {
	// Split axis strategy. If nil, a random axis is selected using a
	// time-seeded source.
	SelectAxis AxisSelector

	// By default a node spanning a single box gets two identical leaf
	// children. When set, such a node becomes a single leaf instead which
	// halves the storage needed for singleton subtrees.
	CollapseSingletons bool
}

// A median-split BVH flattened into an implicitly indexed array.
type MedianSplitBVH struct {
	// Node at index i has its children at 2i+1 (left) and 2i+2 (right).
	// Unused slots have their Type set to scene.ElementAbsent. Internal
	// nodes are tagged with scene.ElementAABB and store their left child
	// slot in Index; leaves keep the tag of the input box.
	Nodes []scene.BoundingBox

	// Node, leaf and depth counts of the tree before flattening. The root
	// is at depth 0.
	Stats BuildStats
}

// Get the root node.
func (t *MedianSplitBVH) Root() scene.BoundingBox {
	return t.Nodes[0]
}

type medianNode struct {
	box         scene.BoundingBox
	left, right *medianNode
}

type medianSplitBuilder struct {
	logger     log.Logger
	selectAxis AxisSelector
	collapse   bool

	// A private copy of the input which gets sorted in place.
	workList []scene.BoundingBox

	// Flattened node storage.
	nodes        []scene.BoundingBox
	highestIndex int

	stats BuildStats
}

// Construct a BVH over a list of element bounding boxes by recursively
// sorting each sublist along a selected axis and splitting it at the
// median. The resulting tree minimizes depth rather than traversal cost.
//
// The input list is not modified. An empty list yields ErrEmptyInput.
func BuildMedianSplit(boxes []scene.BoundingBox, opts MedianSplitOptions) (*MedianSplitBVH, error) {
	if len(boxes) == 0 {
		return nil, ErrEmptyInput
	}

	b := &medianSplitBuilder{
		logger:     log.New("median split bvh"),
		selectAxis: opts.SelectAxis,
		collapse:   opts.CollapseSingletons,
		workList:   make([]scene.BoundingBox, len(boxes)),
	}
	if b.selectAxis == nil {
		b.selectAxis = RandomAxis(rand.New(rand.NewSource(time.Now().UnixNano())))
	}
	copy(b.workList, boxes)

	start := time.Now()
	root := b.partition(0, len(b.workList), 0)
	if err := b.flatten(root); err != nil {
		return nil, err
	}

	b.stats.BuildTime = time.Since(start)
	b.logger.Debugf(
		"BVH tree build time: %d ms, maxDepth: %d, nodes: %d, leafs: %d, slots: %d",
		b.stats.BuildTime.Nanoseconds()/1e6,
		b.stats.MaxDepth, b.stats.Nodes, b.stats.Leafs, len(b.nodes),
	)

	return &MedianSplitBVH{
		Nodes: b.nodes,
		Stats: b.stats,
	}, nil
}

// Partition workList[start:end] and return the subtree root.
func (b *medianSplitBuilder) partition(start, end, depth int) *medianNode {
	span := end - start
	if span == 1 && b.collapse {
		return b.createLeaf(b.workList[start], depth)
	}

	axis := b.selectAxis()
	node := &medianNode{}
	b.stats.Nodes++

	switch span {
	case 1:
		node.left = b.createLeaf(b.workList[start], depth+1)
		node.right = b.createLeaf(b.workList[start], depth+1)
	case 2:
		first, second := b.workList[start], b.workList[start+1]
		node.left = b.createLeaf(first, depth+1)
		node.right = b.createLeaf(second, depth+1)
		if first.Min[axis] > second.Min[axis] {
			node.left, node.right = node.right, node.left
		}
	default:
		sub := b.workList[start:end]
		sort.SliceStable(sub, func(i, j int) bool {
			return sub[i].Min[axis] < sub[j].Min[axis]
		})

		mid := start + span/2
		node.left = b.partition(start, mid, depth+1)
		node.right = b.partition(mid, end, depth+1)
	}

	node.box = scene.Union(node.left.box, node.right.box)
	return node
}

func (b *medianSplitBuilder) createLeaf(box scene.BoundingBox, depth int) *medianNode {
	b.stats.visit(depth)
	b.stats.Nodes++
	b.stats.Leafs++

	box.Leaf = true
	return &medianNode{box: box}
}

// Flatten the tree depth-first into a heap-indexed array sized for the
// deepest leaf and trim it to the highest slot written.
func (b *medianSplitBuilder) flatten(root *medianNode) error {
	if b.stats.MaxDepth > maxMedianSplitDepth {
		return ErrCapacityExceeded
	}

	absent := scene.EmptyBoundingBox()
	absent.Type = scene.ElementAbsent
	b.nodes = make([]scene.BoundingBox, 1<<uint(b.stats.MaxDepth+1)-1)
	for index := range b.nodes {
		b.nodes[index] = absent
	}

	if err := b.treeToList(root, 0); err != nil {
		return err
	}
	b.nodes = b.nodes[:b.highestIndex+1]
	return nil
}

func (b *medianSplitBuilder) treeToList(node *medianNode, index int) error {
	if index >= len(b.nodes) {
		return ErrCapacityExceeded
	}

	box := node.box
	leftIndex := 2*index + 1
	if !box.Leaf {
		box.Type = scene.ElementAABB
		box.Index = int32(leftIndex)
	}
	b.nodes[index] = box
	if index > b.highestIndex {
		b.highestIndex = index
	}

	if node.left != nil {
		if err := b.treeToList(node.left, leftIndex); err != nil {
			return err
		}
	}
	if node.right != nil {
		if err := b.treeToList(node.right, leftIndex+1); err != nil {
			return err
		}
	}
	return nil
}
