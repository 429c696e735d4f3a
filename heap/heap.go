// Package heap implements the indexed min-heap by virtual time that
// fairqueue.Queue uses to pick the next flow to service (spec §3, §9).
//
// Per spec §9, decrease-key is not required — vt only increases on
// enqueue — so this is a plain container/heap.Interface implementation
// keyed by (vt, seq), with seq as an insertion tiebreaker giving FIFO
// ordering among flows sharing the same vt (spec §4.3's tie-breaking
// rule). Each element also stores its own heap index so a flow can find
// its position for O(log n) removal (used when a queue enters freeing
// state and a still-queued flow is freed out of heap order).
package heap

import "container/heap"

// Item is anything the heap can order: a virtual time and an insertion
// sequence number for tie-breaking.
type Item interface {
	VT() uint64
	Seq() uint64
	setIndex(i int)
	index() int
}

// Base is embedded by heap elements to satisfy the index bookkeeping half
// of Item without repeating it at every call site.
type Base struct {
	idx int
}

func (b *Base) setIndex(i int) { b.idx = i }
func (b *Base) index() int     { return b.idx }

// notInHeap marks an element as absent from any heap.
const notInHeap = -1

// Reset should be called when constructing a Base so index() reports
// notInHeap before the element is ever pushed.
func (b *Base) Reset() { b.idx = notInHeap }

// InHeap reports whether the element is currently tracked by some heap.
func (b *Base) InHeap() bool { return b.idx != notInHeap }

// impl adapts a slice of Item to container/heap.Interface.
type impl struct {
	items []Item
}

func (h *impl) Len() int { return len(h.items) }
func (h *impl) Less(i, j int) bool {
	a, b := h.items[i], h.items[j]
	if a.VT() != b.VT() {
		return a.VT() < b.VT()
	}
	return a.Seq() < b.Seq()
}
func (h *impl) Swap(i, j int) {
	h.items[i], h.items[j] = h.items[j], h.items[i]
	h.items[i].setIndex(i)
	h.items[j].setIndex(j)
}
func (h *impl) Push(x any) {
	it := x.(Item)
	it.setIndex(len(h.items))
	h.items = append(h.items, it)
}
func (h *impl) Pop() any {
	n := len(h.items)
	it := h.items[n-1]
	h.items[n-1] = nil
	h.items = h.items[:n-1]
	it.setIndex(notInHeap)
	return it
}

// Heap is a min-heap of Item ordered by (VT, Seq).
type Heap struct {
	h impl
}

// Len returns the number of queued items.
func (q *Heap) Len() int { return q.h.Len() }

// Push inserts it into the heap. O(log n).
func (q *Heap) Push(it Item) {
	heap.Push(&q.h, it)
}

// Pop removes and returns the minimum item. O(log n). Panics if empty.
func (q *Heap) Pop() Item {
	return heap.Pop(&q.h).(Item)
}

// Peek returns the minimum item without removing it, or nil if empty.
func (q *Heap) Peek() Item {
	if q.h.Len() == 0 {
		return nil
	}
	return q.h.items[0]
}

// Remove removes it from the heap given its current index, e.g. when a
// still-queued flow is freed during teardown. O(log n). it must currently
// be in this heap.
func (q *Heap) Remove(it Item) {
	heap.Remove(&q.h, it.index())
}
