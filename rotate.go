// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bbreorder

// handleLoopEdge implements spec §4.2 step 5: bb's chosen successor
// edge closes a loop within the trace currently being built. It always
// terminates the trace; the returned block is the trace's new Last.
func (p *Pass) handleLoopEdge(t *Trace, bb *Block, best *Edge, round, maxRound int) *Block {
	d := best.Dst

	if d == bb {
		// Self-loop: nothing special, the trace simply ends here.
		return bb
	}

	if EdgeFrequency(best) > loopRotationCutoff*d.Frequency && !isEntrySuccessor(p.f, d) {
		bb.layout.next = d
		return p.rotateLoop(t, d, best)
	}

	// Few iterations: try to break the back-edge by duplicating d.
	if len(bb.Succs) == 1 && p.copyBlockP(d, !p.optimizeSize) {
		newBlock := p.target.DuplicateBlock(d, best)
		if newBlock != best.Dst {
			fatalf("duplicate of block %d did not become edge destination", d.ID)
		}
		if newBlock.layout.visited != 0 {
			fatalf("duplicate of block %d was already visited", d.ID)
		}
		newBlock.layout.visited = t.ID
		bb.layout.next = newBlock
		t.Length++
		return newBlock
	}

	return bb
}

// isEntrySuccessor reports whether b is a direct successor of f's
// synthetic entry block.
func isEntrySuccessor(f *Func, b *Block) bool {
	for _, e := range f.Entry.Succs {
		if e.Dst == b {
			return true
		}
	}
	return false
}

// rotateLoop implements spec §4.4. head is the loop header (the back
// edge's destination); the back edge's source, bb, has already been
// linked to head (bb.layout.next == head) by the caller, closing the
// cycle so that walking .next from head reaches bb (== back).
func (p *Pass) rotateLoop(t *Trace, head *Block, backEdge *Edge) *Block {
	back := backEdge.Src

	loop := []*Block{head}
	for b := head; b != back; b = b.layout.next {
		if b.layout.next == nil {
			fatalf("loop rotation: chain from %d never reaches back-edge source %d", head.ID, back.ID)
		}
		loop = append(loop, b.layout.next)
	}

	var bestPreferred, bestFallback *Edge
	inLoop := make(map[*Block]bool, len(loop))
	for _, b := range loop {
		inLoop[b] = true
	}

	for _, b := range loop {
		for _, e := range b.Succs {
			if inLoop[e.Dst] {
				continue
			}
			if !e.Flags.Has(CanFallthru) || e.Flags.Has(Complex) {
				continue
			}
			preferred := e.Dst.layout.visited == 0 || p.scratch.of(e.Dst).startOfTrace != 0
			if preferred {
				if bestPreferred == nil || rotateCandidateBetter(e, bestPreferred) {
					bestPreferred = e
				}
			} else if bestFallback == nil || rotateCandidateBetter(e, bestFallback) {
				bestFallback = e
			}
		}
	}

	best := bestPreferred
	if best == nil {
		best = bestFallback
	}
	if best == nil {
		back.layout.next = nil
		return back
	}

	bestBB := best.Src
	if head == t.First {
		afterBest := bestBB.layout.next // head when bestBB == back (the caller linked back to head)
		t.First = afterBest
		if afterBest == nil {
			t.First = head
		}
	} else {
		headPred := findLoopPredecessorOutsideLoop(t, head, inLoop)
		afterBest := bestBB.layout.next
		if headPred != nil {
			headPred.layout.next = afterBest
			p.maybeDuplicateHeaderInline(headPred, head)
		}
	}

	bestBB.layout.next = nil
	return bestBB
}

// findLoopPredecessorOutsideLoop walks the trace from its first block to
// find the block whose .next pointer currently targets head, i.e. the
// block physically before head in the still-unrotated trace.
func findLoopPredecessorOutsideLoop(t *Trace, head *Block, inLoop map[*Block]bool) *Block {
	for b := t.First; b != nil && b != head; b = b.layout.next {
		if b.layout.next == head {
			return b
		}
	}
	return nil
}

// rotateCandidateBetter ranks loop-exit candidates by frequency, then
// count (spec §4.4).
func rotateCandidateBetter(e, best *Edge) bool {
	fe, fb := EdgeFrequency(e), EdgeFrequency(best)
	if fe != fb {
		return fe > fb
	}
	return e.Count > best.Count
}

// maybeDuplicateHeaderInline implements the secondary heuristic from
// spec §4.4: when splicing leaves headPred falling into an explicit
// jump to head and head ends in a short conditional jump, duplicate
// head inline rather than chain an unconditional jump into a
// conditional one.
func (p *Pass) maybeDuplicateHeaderInline(headPred, head *Block) {
	if len(headPred.Succs) != 1 {
		return
	}
	if head.Tail == nil || !p.target.AnyCondJump(head.Tail) {
		return
	}
	if !p.copyBlockP(head, false) {
		return
	}
	e := headPred.Succs[0]
	if e.Dst != head {
		return
	}
	dup := p.target.DuplicateBlock(head, e)
	if dup != e.Dst {
		fatalf("duplicate of header %d did not become edge destination", head.ID)
	}
	headPred.layout.next = dup
}
