/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package backlog

import (
	"strings"

	"github.com/emirpasic/gods/trees/binaryheap"
)

// Item is a single element of the Heap.
type Item struct {
	Name   string
	Length int
}

// Weight returns the item's contribution to the total weight of the heap.
// Every item weighs at least 1 regardless of its length.
func (it Item) Weight() int {
	if it.Length < 1 {
		return 1
	}
	return it.Length
}

// Heap is a max-heap of items ordered by length (duplicates allowed).
// It is not safe for concurrent use.
type Heap struct {
	tree         *binaryheap.Heap
	weightSum    int
	nonZeroCount int
}

// NewHeap creates a new empty Heap.
func NewHeap() *Heap {
	return &Heap{tree: binaryheap.NewWith(compareItems)}
}

// compareItems orders items so that the binary heap (which is a min-heap by its comparator) yields the longest first.
func compareItems(a, b interface{}) int {
	itemA, itemB := a.(Item), b.(Item)
	switch {
	case itemA.Length > itemB.Length:
		return -1
	case itemA.Length < itemB.Length:
		return 1
	}
	return strings.Compare(itemA.Name, itemB.Name)
}

// Push adds an item to the heap.
func (h *Heap) Push(item Item) {
	h.tree.Push(item)
	h.weightSum += item.Weight()
	if item.Length != 0 {
		h.nonZeroCount++
	}
}

// Pop removes and returns the item with the maximum length.
func (h *Heap) Pop() (Item, bool) {
	v, ok := h.tree.Pop()
	if !ok {
		return Item{}, false
	}
	item := v.(Item)
	h.weightSum -= item.Weight()
	if item.Length != 0 {
		h.nonZeroCount--
	}
	return item, true
}

// Len returns the number of items in the heap.
func (h *Heap) Len() int {
	return h.tree.Size()
}

// WeightSum returns the sum of weights of all items that are still in the heap.
func (h *Heap) WeightSum() int {
	return h.weightSum
}

// NonZeroCount returns the number of items with non-zero length that are still in the heap.
func (h *Heap) NonZeroCount() int {
	return h.nonZeroCount
}
