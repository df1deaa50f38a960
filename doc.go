// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package bbreorder implements the basic-block reordering core of a
// compiler back-end.
//
// Two related passes operate on an already-built control-flow graph whose
// edges carry branch probabilities and profile counts:
//
//   - [Pass.ReorderBasicBlocks] groups blocks into linear traces along the
//     most probable fall-through paths (a software trace cache) and links
//     the traces into a single chain, duplicating small blocks where that
//     removes a jump.
//   - [Pass.PartitionHotCold] classifies blocks as hot or cold, and rewrites
//     the CFG so that no fall-through edge crosses the hot/cold boundary and
//     every cross-partition branch can reach arbitrarily far.
//
// The package does not build the CFG, does not represent instructions, and
// does not estimate branch probabilities: those are supplied by the host
// compiler through the [Target] interface and the [Block] / [Edge] graph.
package bbreorder
