// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bbreorder

// Pass holds the per-invocation state shared by trace formation,
// connection, and partitioning. A Pass is single-use: construct one with
// [NewPass] per function, per entry point invocation.
type Pass struct {
	f      *Func
	target Target

	partitioning bool
	optimizeSize bool

	scratch *scratch
	traces  []*Trace
	nTraces TraceID

	maxEntryFrequency float64
	maxEntryCount     int64
	uncondJumpLength  int

	// origNext records each block's successor in the host's original
	// block order, used as the stability tie-break in betterEdgeP.
	origNext map[*Block]*Block
}

// NewPass builds a Pass over f, computing the global frequency/count
// ceilings and the target's unconditional-jump length once up front
// (spec §3, "Global state").
func NewPass(f *Func, target Target, partitioning, optimizeSize bool) *Pass {
	p := &Pass{
		f:                f,
		target:           target,
		partitioning:     partitioning,
		optimizeSize:     optimizeSize,
		scratch:          newScratch(f.MaxBlockID() + 2),
		uncondJumpLength: target.UncondJumpLength(),
		origNext:         make(map[*Block]*Block, len(f.Blocks)),
	}

	for _, e := range f.Entry.Succs {
		if e.Dst.Frequency > p.maxEntryFrequency {
			p.maxEntryFrequency = e.Dst.Frequency
		}
		if e.Dst.Count > p.maxEntryCount {
			p.maxEntryCount = e.Dst.Count
		}
	}

	for i, b := range f.Blocks {
		if i+1 < len(f.Blocks) {
			p.origNext[b] = f.Blocks[i+1]
		}
	}

	return p
}

// freqThreshold is the absolute duplication-gating frequency floor of
// spec §4.5: max_entry_frequency · 100/1000.
func (p *Pass) freqThreshold() float64 {
	return p.maxEntryFrequency * float64(duplicationThresholdPerMille) / 1000
}

// countThresholdAbs is the absolute duplication-gating count floor of
// spec §4.5: max_entry_count · 100/1000.
func (p *Pass) countThresholdAbs() float64 {
	return float64(p.maxEntryCount) * float64(duplicationThresholdPerMille) / 1000
}

// findTraces implements spec §4.2's outer driver: it runs numRounds
// rounds of findTraces1Round with decaying thresholds, seeding the
// first round's heap with every real block keyed by bbToKey.
func (p *Pass) findTraces() {
	heapCur := newBlockHeap(p.scratch)
	for _, b := range p.f.Blocks {
		heapCur.insert(b, bbToKey(p.scratch, p.f.Entry, b))
	}

	markBackEdges(p.f)

	for round := 0; round < numRounds; round++ {
		branchTh := int32(int64(branchThreshold[round]) * ProbBase / 1000)
		execThAbs := execThreshold[round] * p.maxEntryFrequency
		countThAbs := countThreshold[round] * float64(p.maxEntryCount)

		heapCur = p.findTraces1Round(branchTh, execThAbs, countThAbs, round, numRounds-1, heapCur)
	}
}

// ReorderBasicBlocks implements the reorder_basic_blocks entry point of
// spec §6: it forms traces and connects them into a single chain,
// early-returning when the function has at most one block or the
// target forbids jump modification.
func (p *Pass) ReorderBasicBlocks() {
	if p.f.NumBlocks() <= 1 || p.target.CannotModifyJumps() {
		return
	}

	p.findTraces()
	p.dumpTraces("after trace formation")
	p.connectTraces()
	p.dumpTraces("after connection")
}

// PartitionHotCold implements the partition_hot_cold_basic_blocks entry
// point of spec §6: it classifies blocks into hot/cold partitions,
// marks cold blocks with the unlikely-executed note, and runs the CFG
// surgery pipeline so the partition is physically realizable.
func (p *Pass) PartitionHotCold() {
	if p.f.NumBlocks() <= 1 {
		return
	}

	crossing := p.classifyPartitions()
	p.markUnlikelyExecuted()
	p.runPartitionSurgery(crossing)
}
