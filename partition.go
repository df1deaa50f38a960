// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bbreorder

// classifyPartitions implements spec §4.7: every block is tagged Cold
// iff the target predicts it never executes, Hot otherwise; every edge
// whose endpoints land in different partitions is marked Crossing. The
// crossing edges are returned in discovery order for the surgery
// pipeline to consume.
func (p *Pass) classifyPartitions() []*Edge {
	for _, b := range p.f.Blocks {
		if p.target.ProbablyNeverExecuted(b) {
			b.Partition = PartitionCold
		} else {
			b.Partition = PartitionHot
		}
	}

	var crossing []*Edge
	for _, b := range p.f.Blocks {
		for _, e := range b.Succs {
			e.Crossing = e.Src != p.f.Entry && e.Dst != p.f.Exit &&
				e.Src.Partition != PartitionUnset && e.Dst.Partition != PartitionUnset &&
				e.Src.Partition != e.Dst.Partition
			if e.Crossing {
				crossing = append(crossing, e)
			}
		}
	}
	return crossing
}
