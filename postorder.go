// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bbreorder

import "github.com/bits-and-blooms/bitset"

// This file computes a DFS postorder over f's CFG and, with a separate
// recursive DFS, marks back edges (EdgeFlags.DFSBack). The postorder is
// adapted from the iterative stack-based postorder used to build
// dominator trees in compiler SSA back-ends: an explicit stack of (block,
// next-successor-index) pairs avoids recursion depth problems on deep or
// wide CFGs.

// blockAndIndex pairs a block with the number of its successor edges
// already explored, so the DFS can resume where it left off without
// recursing.
type blockAndIndex struct {
	b     *Block
	index int
}

// postorder returns a DFS postorder of f's reachable blocks starting at
// f.Entry. Unreachable blocks do not appear.
func postorder(f *Func) []*Block {
	maxID := f.MaxBlockID()
	seen := bitset.New(uint(maxID + 2))
	order := make([]*Block, 0, len(f.Blocks))

	s := make([]blockAndIndex, 0, 32)
	s = append(s, blockAndIndex{b: f.Entry})
	seen.Set(uint(idIndex(f.Entry.ID)))
	for len(s) > 0 {
		top := len(s) - 1
		x := &s[top]
		if x.index < len(x.b.Succs) {
			e := x.b.Succs[x.index]
			x.index++
			succ := e.Dst
			if succ != f.Exit && !seen.Test(uint(idIndex(succ.ID))) {
				seen.Set(uint(idIndex(succ.ID)))
				s = append(s, blockAndIndex{b: succ})
			}
			continue
		}
		s = s[:top]
		if x.b != f.Entry {
			order = append(order, x.b)
		}
	}
	return order
}

// idIndex maps a block ID (which may be negative for synthetic
// entry/exit blocks) into a dense non-negative index for bitset use.
func idIndex(id int) int {
	if id < 0 {
		return 0
	}
	return id + 1
}

// markBackEdges performs the DFS described by postorder again, this
// time classifying every tree/forward/cross edge versus the back edges
// that close a cycle (an edge to a block still on the current DFS
// stack). Back edges get EdgeFlags.DFSBack set; it is cleared from every
// other edge first so repeated calls are idempotent.
func markBackEdges(f *Func) {
	maxID := f.MaxBlockID()
	onStack := bitset.New(uint(maxID + 2))
	done := bitset.New(uint(maxID + 2))

	for _, b := range f.Blocks {
		for _, e := range b.Succs {
			e.Flags &^= DFSBack
		}
	}

	var walk func(b *Block)
	walk = func(b *Block) {
		onStack.Set(uint(idIndex(b.ID)))
		for _, e := range b.Succs {
			succ := e.Dst
			if succ == f.Exit {
				continue
			}
			si := uint(idIndex(succ.ID))
			switch {
			case onStack.Test(si):
				e.Flags |= DFSBack
			case !done.Test(si):
				done.Set(si)
				walk(succ)
			}
		}
		onStack.Clear(uint(idIndex(b.ID)))
	}
	done.Set(uint(idIndex(f.Entry.ID)))
	walk(f.Entry)
}
