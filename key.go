// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bbreorder

// bbToKey derives the heap key for candidate seed b (spec §4.1). Lower
// keys are extracted first; the two-tier ordering guarantees trace
// continuations (blocks reachable from an already-finished trace) are
// picked before fresh seeds, and the 100x multiplier on the priority
// term ensures it dominates the raw-frequency tie-break.
func bbToKey(s *scratch, entry *Block, b *Block) float64 {
	if b.Partition == PartitionCold || b.ProbablyNeverExecuted {
		return BBFreqMax
	}

	var priority float64
	for _, e := range b.Preds {
		p := e.Src
		if p == entry {
			continue
		}
		bd := s.of(p)
		if bd.endOfTrace != 0 || e.Flags.Has(DFSBack) {
			if f := EdgeFrequency(e); f > priority {
				priority = f
			}
		}
	}

	if priority > 0 {
		return -(100*BBFreqMax + 100*priority + b.Frequency)
	}
	return -b.Frequency
}
