// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bbreorder

import "container/heap"

// blockHeap is a min-heap of (key, block) pairs, keyed by a float64
// (lower key = higher priority, spec §3 "Priority heap"). It
// wraps container/heap the way a priority work-queue normally does in
// Go: a slice plus the four heap.Interface methods, with Swap also
// keeping each resident block's scratch heapIndex current so that
// decrease-key (update) can find its element in O(log n) instead of a
// linear scan.
type blockHeap struct {
	items   []heapItem
	scratch *scratch
}

type heapItem struct {
	key   float64
	block *Block
}

func newBlockHeap(s *scratch) *blockHeap {
	return &blockHeap{scratch: s}
}

func (h *blockHeap) Len() int            { return len(h.items) }
func (h *blockHeap) Less(i, j int) bool  { return h.items[i].key < h.items[j].key }
func (h *blockHeap) Swap(i, j int) {
	h.items[i], h.items[j] = h.items[j], h.items[i]
	h.scratch.of(h.items[i].block).heapIndex = i
	h.scratch.of(h.items[j].block).heapIndex = j
}

func (h *blockHeap) Push(x any) {
	it := x.(heapItem)
	bd := h.scratch.of(it.block)
	if bd.inHeap != nil {
		fatalf("block %d pushed into a heap while already resident in another (heap exclusivity violated)", it.block.ID)
	}
	bd.inHeap = h
	bd.heapIndex = len(h.items)
	h.items = append(h.items, it)
}

func (h *blockHeap) Pop() any {
	old := h.items
	n := len(old)
	it := old[n-1]
	h.items = old[:n-1]
	bd := h.scratch.of(it.block)
	bd.inHeap = nil
	bd.heapIndex = -1
	return it
}

// insert adds block to the heap with the given key.
func (h *blockHeap) insert(block *Block, key float64) {
	heap.Push(h, heapItem{key: key, block: block})
}

// update changes block's key in place (decrease or increase), restoring
// heap order. block must already be resident in h.
func (h *blockHeap) update(block *Block, key float64) {
	bd := h.scratch.of(block)
	if bd.inHeap != h {
		fatalf("block %d updated in a heap it is not resident in", block.ID)
	}
	h.items[bd.heapIndex].key = key
	heap.Fix(h, bd.heapIndex)
}

// resident reports whether block currently lives in h.
func (h *blockHeap) resident(block *Block) bool {
	return h.scratch.of(block).inHeap == h
}

// extractMin removes and returns the block with the lowest key, or
// (nil, false) if h is empty.
func (h *blockHeap) extractMin() (*Block, bool) {
	if h.Len() == 0 {
		return nil, false
	}
	it := heap.Pop(h).(heapItem)
	return it.block, true
}
