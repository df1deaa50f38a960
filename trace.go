// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bbreorder

// Trace is a linear sequence of blocks intended to be placed
// contiguously so control flows by fall-through. The chain of blocks
// belonging to the trace is recovered by walking First.Next() until
// Last.
type Trace struct {
	ID         TraceID
	First, Last *Block
	Round      int
	Length     int
}

// roundIsNotLast reports whether round r still has a successor round to
// defer work into.
func roundIsNotLast(round, maxRound int) bool { return round < maxRound }

// shouldDefer reports whether b should be pushed into the next round's
// heap rather than processed now (spec §4.2 step 1, reused for losing
// successors in step 4).
func (p *Pass) shouldDefer(b *Block, round, maxRound int, execThAbs, countThAbs float64) bool {
	if !roundIsNotLast(round, maxRound) {
		return false
	}
	return b.Partition == PartitionCold ||
		b.Frequency < execThAbs ||
		float64(b.Count) < countThAbs ||
		b.ProbablyNeverExecuted
}

// edgeFailsThresholds reports whether e is too cold to extend a trace
// in this round (spec §4.2 step 3's rejection rule).
func edgeFailsThresholds(e *Edge, branchTh int32, execThAbs, countThAbs float64) bool {
	return e.Probability < branchTh ||
		EdgeFrequency(e) < execThAbs ||
		float64(e.Count) < countThAbs
}

// findTraces1Round runs one round of the greedy trace builder (spec
// §4.2) over the seeds in heapIn, returning the heap of blocks deferred
// to the next round.
func (p *Pass) findTraces1Round(branchTh int32, execThAbs, countThAbs float64, round, maxRound int, heapIn *blockHeap) *blockHeap {
	heapNext := newBlockHeap(p.scratch)

	for {
		bb, ok := heapIn.extractMin()
		if !ok {
			break
		}

		if bb.layout.visited != 0 {
			// bb was folded into another trace as an ordinary extension
			// (not popped as a seed) after it was seeded into this heap;
			// its stale entry is simply dropped.
			continue
		}

		if p.shouldDefer(bb, round, maxRound, execThAbs, countThAbs) {
			heapNext.insert(bb, bbToKey(p.scratch, p.f.Entry, bb))
			continue
		}

		p.buildOneTrace(bb, round, maxRound, branchTh, execThAbs, countThAbs, heapIn, heapNext)
	}

	return heapNext
}

// buildOneTrace opens a new trace at seed, grows it greedily, and
// records its start/end-of-trace scratch state (spec §4.2 steps 2-9).
func (p *Pass) buildOneTrace(seed *Block, round, maxRound int, branchTh int32, execThAbs, countThAbs float64, heapCurrent, heapNext *blockHeap) {
	p.nTraces++
	t := &Trace{ID: p.nTraces, First: seed, Round: round, Length: 1}
	p.traces = append(p.traces, t)
	seed.layout.visited = t.ID

	tail := seed
	for {
		best := p.bestSuccessorEdge(t, tail, round, maxRound, branchTh, execThAbs, countThAbs)

		p.deferLosingSuccessors(t, tail, best, round, maxRound, branchTh, execThAbs, countThAbs, heapCurrent, heapNext)

		if best == nil {
			break
		}
		if best.Flags.Has(Fake) {
			fatalf("block %d: best successor edge to %d is flagged FAKE", tail.ID, best.Dst.ID)
		}

		if best.Dst.layout.visited == t.ID {
			tail = p.handleLoopEdge(t, tail, best, round, maxRound)
			break
		}

		if rewired := p.tryTriangleRewrite(t, tail, best); rewired != nil {
			best = rewired
		}

		tail.layout.next = best.Dst
		best.Dst.layout.visited = t.ID
		tail = best.Dst
		t.Length++
	}

	t.Last = tail
	p.scratch.of(t.First).startOfTrace = t.ID
	p.scratch.of(t.Last).endOfTrace = t.ID

	p.rekeySuccessorsOf(tail)
}

// bestSuccessorEdge finds the best outgoing edge to grow the trace along
// (spec §4.2 step 3), or nil if no candidate survives.
func (p *Pass) bestSuccessorEdge(t *Trace, bb *Block, round, maxRound int, branchTh int32, execThAbs, countThAbs float64) *Edge {
	var best *Edge
	for _, e := range bb.Succs {
		if e.Dst == p.f.Exit {
			continue
		}
		if e.Dst.layout.visited != 0 && e.Dst.layout.visited != t.ID {
			continue
		}
		if e.Flags.Has(Fake) {
			continue
		}
		if !e.Flags.Has(CanFallthru) || e.Flags.Has(Complex) {
			continue
		}
		if e.Dst.Partition == PartitionCold && round < maxRound-1 {
			continue
		}
		if edgeFailsThresholds(e, branchTh, execThAbs, countThAbs) {
			continue
		}
		if best == nil || p.betterEdgeP(e, best, bb) {
			best = e
		}
	}
	if best == nil {
		return nil
	}
	if len(best.Dst.Preds) > 1 && p.copyBlockP(best.Dst, false) {
		// Cheap to duplicate: leave the connection for connectTraces.
		return nil
	}
	return best
}

// deferLosingSuccessors implements spec §4.2 step 4: every non-best,
// non-EXIT, unvisited successor of bb is either re-keyed in place or
// inserted into the current- or next-round heap.
func (p *Pass) deferLosingSuccessors(t *Trace, bb *Block, best *Edge, round, maxRound int, branchTh int32, execThAbs, countThAbs float64, heapCurrent, heapNext *blockHeap) {
	for _, e := range bb.Succs {
		if e == best || e.Dst == p.f.Exit || e.Dst.layout.visited != 0 {
			continue
		}
		d := e.Dst
		key := bbToKey(p.scratch, p.f.Entry, d)
		bd := p.scratch.of(d)
		switch {
		case bd.inHeap != nil:
			bd.inHeap.update(d, key)
		case edgeFailsThresholds(e, branchTh, execThAbs, countThAbs) && p.shouldDefer(d, round, maxRound, execThAbs, countThAbs):
			heapNext.insert(d, key)
		default:
			heapCurrent.insert(d, key)
		}
	}
}

// rekeySuccessorsOf re-derives the heap key of every unvisited successor
// of tail that is currently resident in some heap, since tail becoming
// an end-of-trace can raise their priority (spec §4.2, final paragraph).
func (p *Pass) rekeySuccessorsOf(tail *Block) {
	for _, e := range tail.Succs {
		d := e.Dst
		if d == p.f.Exit || d.layout.visited != 0 {
			continue
		}
		bd := p.scratch.of(d)
		if bd.inHeap == nil {
			continue
		}
		bd.inHeap.update(d, bbToKey(p.scratch, p.f.Entry, d))
	}
}

// tryTriangleRewrite implements spec §4.2 step 6: prefer bb -> m -> c
// over bb -> c directly when m is a cheap, single-predecessor detour
// that nets at least as much frequency.
func (p *Pass) tryTriangleRewrite(t *Trace, bb *Block, best *Edge) *Edge {
	if best.Dst.layout.visited != 0 {
		// Only unvisited destinations are eligible (loop edges are
		// handled separately).
		return nil
	}
	c := best.Dst
	bestFreq := EdgeFrequency(best)
	for _, e := range bb.Succs {
		if e == best {
			continue
		}
		m := e.Dst
		if m.layout.visited != 0 || len(m.Preds) != 1 || e.Crossing {
			continue
		}
		if len(m.Succs) != 1 {
			continue
		}
		only := m.Succs[0]
		if only.Dst != c || !only.Flags.Has(CanFallthru) || only.Flags.Has(Complex) {
			continue
		}
		if 2*m.Frequency >= bestFreq {
			return e
		}
	}
	return nil
}

// betterEdgeP reports whether candidate e should replace best as bb's
// chosen successor edge (spec §4.3).
func (p *Pass) betterEdgeP(e, best *Edge, bb *Block) bool {
	if p.partitioning && e.Crossing != best.Crossing {
		return !e.Crossing
	}

	if !probabilityEquivalent(e.Probability, best.Probability) {
		return e.Probability > best.Probability
	}

	if e.Dst.Frequency != best.Dst.Frequency {
		return e.Dst.Frequency < best.Dst.Frequency
	}

	if neighbor := p.origNext[bb]; neighbor != nil {
		if e.Dst == neighbor {
			return true
		}
		if best.Dst == neighbor {
			return false
		}
	}
	return false
}

// probabilityEquivalent reports whether a is within edgeEquivalencePercent
// of b, the reference (current best) probability.
func probabilityEquivalent(a, b int32) bool {
	if b == 0 {
		return a == 0
	}
	diff := int64(a) - int64(b)
	if diff < 0 {
		diff = -diff
	}
	return diff*100 <= int64(b)*edgeEquivalencePercent
}
