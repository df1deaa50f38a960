// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bbreorder

// copyBlockP reports whether b may be duplicated (spec §4.6): it must
// have non-zero frequency, at least two predecessors, be allowed to be
// duplicated by the target, have at most maxDuplicableSuccessors
// successors, and its instruction length must fit within the
// unconditional-jump-length budget (relaxed by
// hotDuplicationSizeMultiplier when codeMayGrow holds and the block is
// maybe hot).
func (p *Pass) copyBlockP(b *Block, codeMayGrow bool) bool {
	if b.Frequency <= 0 {
		return false
	}
	if len(b.Preds) < 2 {
		return false
	}
	if !p.target.CanDuplicateBlock(b) {
		return false
	}
	if len(b.Succs) > maxDuplicableSuccessors {
		return false
	}

	bound := p.uncondJumpLength
	if codeMayGrow && p.target.MaybeHot(b) {
		bound *= hotDuplicationSizeMultiplier
	}
	return blockInsnLength(p.target, b) <= bound
}

// blockInsnLength sums the host's reported length of every instruction
// in b, from Head to Tail.
func blockInsnLength(t Target, b *Block) int {
	total := 0
	for i := b.Head; i != nil; {
		total += t.GetAttrLength(i)
		if i == b.Tail {
			break
		}
		i = nextInsn(i)
	}
	return total
}

// insnIterator optionally implements forward traversal of an opaque
// Insn chain. Hosts whose Insn representation supports it implement
// this so blockInsnLength can walk a block's instructions without this
// package knowing anything about instruction representation.
type insnIterator interface {
	Next() Insn
}

func nextInsn(i Insn) Insn {
	if it, ok := i.(insnIterator); ok {
		return it.Next()
	}
	return nil
}

// codeMayGrow reports whether the connector/duplicator in this pass may
// increase code size, mirroring !optimize_size in the host together
// with the edge-level frequency/count gates from spec §4.5 step 3.
func (p *Pass) codeMayGrow(e *Edge) bool {
	if p.optimizeSize {
		return false
	}
	return EdgeFrequency(e) >= p.freqThreshold() && float64(e.Count) >= p.countThresholdAbs()
}
