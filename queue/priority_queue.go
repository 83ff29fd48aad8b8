// Package queue provides a generic min-priority queue built on container/heap.
// The k-way merge keeps one entry per input here, keyed by that input's head.
package queue

import (
	"container/heap"
)

// inner implements heap.Interface over a plain slice
type inner[E any] struct {
	items []E
	less  func(a, b E) bool
}

// PriorityQueue pops the smallest item according to its less function.
// Ties are broken arbitrarily.
type PriorityQueue[E any] struct {
	h inner[E]
}

// NewPriorityQueue creates an empty queue ordered by less
func NewPriorityQueue[E any](less func(a, b E) bool) *PriorityQueue[E] {
	return NewPriorityQueueSize(less, 0)
}

// NewPriorityQueueSize creates an empty queue with room for n items
func NewPriorityQueueSize[E any](less func(a, b E) bool, n int) *PriorityQueue[E] {
	pq := &PriorityQueue[E]{h: inner[E]{items: make([]E, 0, n), less: less}}
	heap.Init(&pq.h)
	return pq
}

// Len returns the number of items in the queue
func (pq *PriorityQueue[E]) Len() int {
	return len(pq.h.items)
}

// Push adds x to the queue
func (pq *PriorityQueue[E]) Push(x E) {
	heap.Push(&pq.h, x)
}

// Pop removes and returns the smallest item
func (pq *PriorityQueue[E]) Pop() E {
	return heap.Pop(&pq.h).(E)
}

// Peek returns the smallest item without removing it
func (pq *PriorityQueue[E]) Peek() E {
	return pq.h.items[0]
}

// PeekUpdate restores heap order after the item returned by Peek changed its key.
func (pq *PriorityQueue[E]) PeekUpdate() {
	heap.Fix(&pq.h, 0)
}

func (h *inner[E]) Len() int {
	return len(h.items)
}

func (h *inner[E]) Less(i, j int) bool {
	return h.less(h.items[i], h.items[j])
}

func (h *inner[E]) Swap(i, j int) {
	h.items[i], h.items[j] = h.items[j], h.items[i]
}

func (h *inner[E]) Push(x any) {
	h.items = append(h.items, x.(E))
}

func (h *inner[E]) Pop() any {
	old := h.items
	n := len(old)
	x := old[n-1]
	var zero E
	old[n-1] = zero
	h.items = old[:n-1]
	return x
}
