// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bbreorder

// connectTraces implements spec §4.5: it stitches every trace produced
// by the builder into a single chain, linked by Block.layout.next,
// maximising the use of natural fall-throughs and, where that fails,
// duplicating a single cheap block to bridge the gap.
func (p *Pass) connectTraces() {
	n := len(p.traces)
	connected := make([]bool, n+1) // indexed by TraceID, 1-based

	unconnectedHot := 0
	if p.partitioning {
		for _, t := range p.traces {
			if t.First.Partition == PartitionCold {
				connected[t.ID] = true
			} else {
				unconnectedHot++
			}
		}
	}

	markConnected := func(t *Trace) {
		connected[t.ID] = true
		if p.partitioning && t.First.Partition != PartitionCold {
			unconnectedHot--
		}
	}

	var lastTail *Block
	coldPhase := false

	for {
		progressed := false

		for _, t := range p.traces {
			if connected[t.ID] {
				continue
			}
			if p.partitioning && !coldPhase && t.First.Partition == PartitionCold {
				continue
			}
			progressed = true
			markConnected(t)

			// Step 1: walk backward, chaining qualifying unconnected
			// predecessor traces onto the front of this one.
			head := t
			for {
				pred := p.bestUnconnectedPredecessorTrace(head, connected)
				if pred == nil {
					break
				}
				markConnected(pred)
				pred.Last.layout.next = head.First
				head = pred
			}
			if lastTail != nil {
				lastTail.layout.next = head.First
			}

			// Steps 2-4: walk forward from t.Last, splicing directly or
			// via duplication, until neither applies.
			tail := t.Last
			for {
				next := p.extendForwardOneHop(tail, connected, markConnected)
				if next == nil {
					break
				}
				tail = next
			}
			// A block duplicated in front of EXIT is linked after tail
			// without being returned as the new tail; include it.
			for tail.layout.next != nil {
				tail = tail.layout.next
			}
			lastTail = tail
		}

		if p.partitioning && !coldPhase && unconnectedHot == 0 {
			coldPhase = true
			for _, t := range p.traces {
				if t.First.Partition == PartitionCold {
					connected[t.ID] = false
				}
			}
			continue
		}
		if !progressed {
			break
		}
	}
}

// bestUnconnectedPredecessorTrace implements spec §4.5 step 1's search:
// among head.First's incoming edges, find the highest-probability
// CAN_FALLTHRU non-COMPLEX edge whose source ends an unconnected trace,
// tie-broken by that trace's length.
func (p *Pass) bestUnconnectedPredecessorTrace(head *Trace, connected []bool) *Trace {
	var best *Edge
	var bestTrace *Trace
	for _, e := range head.First.Preds {
		if !e.Flags.Has(CanFallthru) || e.Flags.Has(Complex) {
			continue
		}
		id := p.scratch.of(e.Src).endOfTrace
		if id == 0 || connected[id] {
			continue
		}
		tr := p.traces[id-1]
		if best == nil || connectCandidateBetter(e.Probability, tr.Length, best.Probability, bestTrace.Length) {
			best, bestTrace = e, tr
		}
	}
	return bestTrace
}

// bestUnconnectedSuccessorTrace mirrors bestUnconnectedPredecessorTrace
// for spec §4.5 step 2: the best forward splice out of tail.
func (p *Pass) bestUnconnectedSuccessorTrace(tail *Block, connected []bool) (*Edge, *Trace) {
	var best *Edge
	var bestTrace *Trace
	for _, e := range tail.Succs {
		if !e.Flags.Has(CanFallthru) || e.Flags.Has(Complex) {
			continue
		}
		id := p.scratch.of(e.Dst).startOfTrace
		if id == 0 || connected[id] {
			continue
		}
		tr := p.traces[id-1]
		if best == nil || connectCandidateBetter(e.Probability, tr.Length, best.Probability, bestTrace.Length) {
			best, bestTrace = e, tr
		}
	}
	return best, bestTrace
}

func connectCandidateBetter(prob int32, length int, bestProb int32, bestLength int) bool {
	if prob != bestProb {
		return prob > bestProb
	}
	return length > bestLength
}

// extendForwardOneHop performs one iteration of spec §4.5 steps 2-4: a
// direct forward splice if one qualifies, otherwise a one-block
// duplication bridge, otherwise nothing. Returns the new running tail,
// or nil if the walk cannot continue.
func (p *Pass) extendForwardOneHop(tail *Block, connected []bool, markConnected func(*Trace)) *Block {
	if e, destTrace := p.bestUnconnectedSuccessorTrace(tail, connected); destTrace != nil {
		markConnected(destTrace)
		tail.layout.next = e.Dst
		return destTrace.Last
	}

	if p.partitioning {
		return nil
	}
	return p.tryConnectByDuplication(tail, connected, markConnected)
}

// tryConnectByDuplication implements spec §4.5 step 3: search (e, e2)
// pairs with e: tail -> m, e2: m -> n, n either EXIT or the start of an
// unconnected trace. If found and m is cheap enough to duplicate,
// splice a duplicate of m between tail and n.
func (p *Pass) tryConnectByDuplication(tail *Block, connected []bool, markConnected func(*Trace)) *Block {
	freqTh := p.freqThreshold()
	countTh := p.countThresholdAbs()

	var bestE, bestE2 *Edge
	var bestTargetLen int
	const infiniteLen = 1 << 30

	for _, e := range tail.Succs {
		m := e.Dst
		for _, e2 := range m.Succs {
			n := e2.Dst
			if !e2.Flags.Has(CanFallthru) || e2.Flags.Has(Complex) {
				continue
			}
			if EdgeFrequency(e2) < freqTh || float64(e2.Count) < countTh {
				continue
			}
			targetLen := infiniteLen
			if n != p.f.Exit {
				id := p.scratch.of(n).startOfTrace
				if id == 0 || connected[id] {
					continue
				}
				targetLen = p.traces[id-1].Length
			}
			if bestE == nil || connectPairBetter(e.Probability, e2.Probability, targetLen, bestE.Probability, bestE2.Probability, bestTargetLen) {
				bestE, bestE2, bestTargetLen = e, e2, targetLen
			}
		}
	}

	if bestE == nil {
		return nil
	}

	m := bestE.Dst
	if !p.copyBlockP(m, p.codeMayGrow(bestE)) {
		return nil
	}

	dup := p.target.DuplicateBlock(m, bestE)
	if dup != bestE.Dst {
		fatalf("duplicate of block %d did not become edge destination", m.ID)
	}

	tail.layout.next = dup
	n := bestE2.Dst
	if n == p.f.Exit {
		return nil
	}
	id := p.scratch.of(n).startOfTrace
	destTrace := p.traces[id-1]
	markConnected(destTrace)
	dup.layout.next = n
	return destTrace.Last
}

func connectPairBetter(eProb, e2Prob int32, targetLen int, bestEProb, bestE2Prob int32, bestTargetLen int) bool {
	if eProb != bestEProb {
		return eProb > bestEProb
	}
	if e2Prob != bestE2Prob {
		return e2Prob > bestE2Prob
	}
	return targetLen > bestTargetLen
}
