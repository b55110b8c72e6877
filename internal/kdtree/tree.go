package kdtree

import (
	"cmp"
	"slices"
	"unsafe"

	"github.com/hupe1980/starprobe/internal/queue"
	"github.com/hupe1980/starprobe/model"
)

const nilNode int32 = -1

type node struct {
	point uint32
	coord model.Vec3
	left  int32
	right int32
}

// Tree is a balanced k-d tree.
type Tree struct {
	nodes  []node
	root   int32
	height int
}

// Build constructs a tree over the given member indices of points.
//
// members is reordered in place.
func Build(points model.PointSet, members []uint32) *Tree {
	t := &Tree{
		nodes: make([]node, 0, len(members)),
		root:  nilNode,
	}
	t.root = t.build(points, members, 0)
	return t
}

func (t *Tree) build(points model.PointSet, members []uint32, depth int) int32 {
	if len(members) == 0 {
		return nilNode
	}
	if depth+1 > t.height {
		t.height = depth + 1
	}

	axis := depth % 3
	coords := points.Axis(axis)
	slices.SortStableFunc(members, func(a, b uint32) int {
		if c := cmp.Compare(coords[a], coords[b]); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})

	mid := len(members) / 2
	p := members[mid]

	idx := int32(len(t.nodes))
	t.nodes = append(t.nodes, node{
		point: p,
		coord: points.At(int(p)),
		left:  nilNode,
		right: nilNode,
	})

	left := t.build(points, members[:mid], depth+1)
	right := t.build(points, members[mid+1:], depth+1)
	t.nodes[idx].left = left
	t.nodes[idx].right = right
	return idx
}

// Len returns the number of points in the tree.
func (t *Tree) Len() int { return len(t.nodes) }

// Height returns the number of levels (0 for an empty tree).
func (t *Tree) Height() int { return t.height }

// MemoryBytes returns the size of the node arena.
func (t *Tree) MemoryBytes() int64 {
	return int64(cap(t.nodes)) * int64(unsafe.Sizeof(node{}))
}

// FindNearest returns the closest point to target. Among equidistant points
// the lowest point index wins. An empty tree yields model.NoResult().
func (t *Tree) FindNearest(target model.Vec3) model.SearchResult {
	best := model.NoResult()
	t.nearest(t.root, target, 0, &best)
	return best
}

func (t *Tree) nearest(ni int32, target model.Vec3, depth int, best *model.SearchResult) {
	if ni == nilNode {
		return
	}
	n := &t.nodes[ni]

	cand := model.SearchResult{PointIndex: int64(n.point), DistanceSquared: target.DistanceSquared(n.coord)}
	if !best.Found() || CompareResults(cand, *best) < 0 {
		*best = cand
	}

	axis := depth % 3
	diff := target.Axis(axis) - n.coord.Axis(axis)
	near, far := n.right, n.left
	if diff < 0 {
		near, far = n.left, n.right
	}

	// A far point at exactly the best distance may still win on index.
	t.nearest(near, target, depth+1, best)
	if diff*diff <= best.DistanceSquared {
		t.nearest(far, target, depth+1, best)
	}
}

// FindKNearest returns up to k points closest to target, nearest first.
// Ties are ordered by point index. It panics if k <= 0.
func (t *Tree) FindKNearest(target model.Vec3, k int) []model.SearchResult {
	if k <= 0 {
		panic("kdtree: k must be positive")
	}
	h := queue.NewMax[uint32](k + 1)
	t.kNearest(t.root, target, 0, k, h)
	return SortedResults(h)
}

func (t *Tree) kNearest(ni int32, target model.Vec3, depth, k int, h *queue.MaxHeap[uint32]) {
	if ni == nilNode {
		return
	}
	n := &t.nodes[ni]

	h.Offer(n.point, target.DistanceSquared(n.coord), k)

	axis := depth % 3
	diff := target.Axis(axis) - n.coord.Axis(axis)
	near, far := n.right, n.left
	if diff < 0 {
		near, far = n.left, n.right
	}

	t.kNearest(near, target, depth+1, k, h)
	if h.Len() < k || diff*diff <= h.PeekPriority() {
		t.kNearest(far, target, depth+1, k, h)
	}
}

// SortedResults drains h into results ordered by distance, then point index.
func SortedResults(h *queue.MaxHeap[uint32]) []model.SearchResult {
	items := h.Drain()
	out := make([]model.SearchResult, len(items))
	for i, it := range items {
		out[i] = model.SearchResult{PointIndex: int64(it.Value), DistanceSquared: it.Priority}
	}
	slices.SortStableFunc(out, CompareResults)
	return out
}

// CompareResults orders results by distance, then point index.
func CompareResults(a, b model.SearchResult) int {
	if c := cmp.Compare(a.DistanceSquared, b.DistanceSquared); c != 0 {
		return c
	}
	return cmp.Compare(a.PointIndex, b.PointIndex)
}
