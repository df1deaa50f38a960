// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bbreorder

// Tuning constants for the trace builder and connector (spec §6). These
// are package vars, not consts, so they can be retuned for
// experimentation the way the teacher exposes ForwardDistance,
// BackwardDistance, etc. in layout.go; being unexported, they can only be
// changed from inside this package.
var (
	// branchThreshold is the per-round probability floor, in
	// per-mille of ProbBase.
	branchThreshold = [...]int32{400, 200, 100, 0, 0}
	// execThreshold is the per-round successor-frequency floor, as a
	// fraction of the entry frequency (500, 200, 50 per-mille).
	execThreshold = [...]float64{0.500, 0.200, 0.050, 0, 0}
	// countThreshold mirrors execThreshold but for absolute counts, as a
	// fraction of the entry count.
	countThreshold = [...]float64{0.500, 0.200, 0.050, 0, 0}
)

// numRounds is the number of entries in the threshold tables, i.e. the
// number of rounds; round numRounds-1 is "the last round".
const numRounds = len(branchThreshold)

// duplicationThresholdPerMille gates the connector's duplication
// fallback (§4.5 step 3): an edge must carry at least this fraction of
// maxEntryFrequency/maxEntryCount to justify duplicating the
// intermediate block.
const duplicationThresholdPerMille = 100

// loopRotationCutoff is the fraction of the loop header's frequency a
// back-edge must exceed to be treated as "at least 4 iterations" and
// trigger rotation (§4.2 step 5, §4.4).
const loopRotationCutoff = 4.0 / 5.0

// maxDuplicableSuccessors bounds the number of successors a duplicable
// block may have (§4.6).
const maxDuplicableSuccessors = 8

// hotDuplicationSizeMultiplier scales the size bound for duplicating a
// maybe-hot block when code growth is allowed (§4.6).
const hotDuplicationSizeMultiplier = 8

// edgeEquivalencePercent is the tolerance band within which two edge
// probabilities are treated as equivalent by betterEdgeP (§4.3).
const edgeEquivalencePercent = 10

// scratchGrowthNumerator/scratchGrowthDenominator implement the bbd
// growth factor ceil(n*5/4) (§6).
const (
	scratchGrowthNumerator   = 5
	scratchGrowthDenominator = 4
)
