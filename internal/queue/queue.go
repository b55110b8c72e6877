package queue

import "cmp"

// Item is an entry in the heap.
type Item[T any] struct {
	Value    T       // Value is the payload, typically a point index.
	Priority float32 // Priority is the key; lower is better (a squared distance).
}

// MaxHeap is a binary max-heap keyed by Priority, then Value. Equal
// priorities are ordered by Value, so the retained set does not depend on
// insertion order.
//
// Used as a bounded K-best collector: the worst retained item sits at the
// root so a better candidate can evict it in O(log k). Storage is a dense
// value slice, no pointers.
//
// MaxHeap is NOT thread-safe. Each query owns its own heap.
type MaxHeap[T cmp.Ordered] struct {
	items []Item[T]
}

// NewMax initializes a new max-heap with the given capacity hint.
func NewMax[T cmp.Ordered](capacity int) *MaxHeap[T] {
	return &MaxHeap[T]{
		items: make([]Item[T], 0, max(capacity, 0)),
	}
}

// Len returns the number of items held.
func (h *MaxHeap[T]) Len() int { return len(h.items) }

// Enqueue inserts an item unconditionally.
func (h *MaxHeap[T]) Enqueue(value T, priority float32) {
	h.items = append(h.items, Item[T]{Value: value, Priority: priority})
	h.siftUp(len(h.items) - 1)
}

// PeekPriority returns the priority of the current maximum.
// It panics if the heap is empty.
func (h *MaxHeap[T]) PeekPriority() float32 {
	if len(h.items) == 0 {
		panic("queue: PeekPriority on empty heap")
	}
	return h.items[0].Priority
}

// Dequeue removes and returns the maximum-priority item.
func (h *MaxHeap[T]) Dequeue() (Item[T], bool) {
	n := len(h.items)
	if n == 0 {
		return Item[T]{}, false
	}
	root := h.items[0]
	last := h.items[n-1]
	h.items[n-1] = Item[T]{}
	h.items = h.items[:n-1]
	if n-1 > 0 {
		h.items[0] = last
		h.siftDown(0)
	}
	return root, true
}

// Offer applies the bounded K-best discipline: while fewer than k items are
// held the candidate is always admitted; once full it is admitted only if
// strictly better than the current maximum, which is evicted first. A tie
// on priority is won by the smaller value.
// Reports whether the candidate was admitted.
func (h *MaxHeap[T]) Offer(value T, priority float32, k int) bool {
	if len(h.items) < k {
		h.Enqueue(value, priority)
		return true
	}
	if len(h.items) == 0 || !above(h.items[0], Item[T]{Value: value, Priority: priority}) {
		return false
	}
	// Replace the root in place; same effect as Dequeue+Enqueue with one sift.
	h.items[0] = Item[T]{Value: value, Priority: priority}
	h.siftDown(0)
	return true
}

// Drain empties the heap and returns its items in ascending priority order.
func (h *MaxHeap[T]) Drain() []Item[T] {
	out := make([]Item[T], len(h.items))
	for i := len(out) - 1; i >= 0; i-- {
		out[i], _ = h.Dequeue()
	}
	return out
}

// Reset clears the heap for reuse.
func (h *MaxHeap[T]) Reset() {
	clear(h.items)
	h.items = h.items[:0]
}

func (h *MaxHeap[T]) less(i, j int) bool {
	return above(h.items[i], h.items[j])
}

// above reports whether a sorts after b by (Priority, Value).
func above[T cmp.Ordered](a, b Item[T]) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	return a.Value > b.Value
}

func (h *MaxHeap[T]) siftUp(i int) {
	for i > 0 {
		p := (i - 1) / 2
		if !h.less(i, p) {
			return
		}
		h.items[i], h.items[p] = h.items[p], h.items[i]
		i = p
	}
}

func (h *MaxHeap[T]) siftDown(i int) {
	n := len(h.items)
	for {
		l := 2*i + 1
		if l >= n {
			return
		}
		best := l
		r := l + 1
		if r < n && h.less(r, l) {
			best = r
		}
		if !h.less(best, i) {
			return
		}
		h.items[i], h.items[best] = h.items[best], h.items[i]
		i = best
	}
}
