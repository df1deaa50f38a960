// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bbreorder

import "testing"

func TestClassifyPartitionsTagsBlocks(t *testing.T) {
	f := NewFunc("f")
	hot := f.AddBlock(100, 100)
	cold := f.AddBlock(0, 0)
	target := newFakeTarget(f)
	target.f = f
	cold.ProbablyNeverExecuted = true

	p := NewPass(f, target, true, false)
	p.classifyPartitions()

	if hot.Partition != PartitionHot {
		t.Errorf("hot.Partition = %v, want hot", hot.Partition)
	}
	if cold.Partition != PartitionCold {
		t.Errorf("cold.Partition = %v, want cold", cold.Partition)
	}
}

func TestClassifyPartitionsMarksCrossingEdges(t *testing.T) {
	f := NewFunc("f")
	a := f.AddBlock(100, 100)
	hot := f.AddBlock(100, 100)
	cold := f.AddBlock(0, 0)
	cold.ProbablyNeverExecuted = true

	eHot := f.AddEdge(a, hot, ProbBase, 100, CanFallthru)
	eCold := f.AddEdge(a, cold, ProbBase, 100, CanFallthru)
	f.AddEdge(f.Entry, a, ProbBase, 100, CanFallthru)
	f.AddEdge(cold, f.Exit, ProbBase, 0, CanFallthru)

	target := newFakeTarget(f)
	p := NewPass(f, target, true, false)
	crossing := p.classifyPartitions()

	if eHot.Crossing {
		t.Errorf("a->hot marked crossing, both blocks are hot")
	}
	if !eCold.Crossing {
		t.Errorf("a->cold not marked crossing despite partition mismatch")
	}
	if len(crossing) != 1 || crossing[0] != eCold {
		t.Errorf("crossing = %v, want [a->cold]", crossing)
	}
}

// TestClassifyPartitionsExcludesEntryExit covers the synthetic Entry and
// Exit blocks: they are never tagged Hot/Cold, so edges touching them can
// never be marked Crossing even when an adjacent real block is cold.
func TestClassifyPartitionsExcludesEntryExit(t *testing.T) {
	f := NewFunc("f")
	cold := f.AddBlock(0, 0)
	cold.ProbablyNeverExecuted = true
	entryEdge := f.AddEdge(f.Entry, cold, ProbBase, 0, CanFallthru)
	exitEdge := f.AddEdge(cold, f.Exit, ProbBase, 0, CanFallthru)

	target := newFakeTarget(f)
	p := NewPass(f, target, true, false)
	p.classifyPartitions()

	if f.Entry.Partition != PartitionUnset || f.Exit.Partition != PartitionUnset {
		t.Errorf("Entry/Exit partition = %v/%v, want unset/unset", f.Entry.Partition, f.Exit.Partition)
	}
	if entryEdge.Crossing || exitEdge.Crossing {
		t.Errorf("edge touching Entry/Exit marked crossing")
	}
}

// TestColdIslandSurgery covers part of spec §8 boundary scenario 5: after
// the full PartitionHotCold pipeline runs on an isolated cold block
// reached and left by hot blocks, the two original edges bordering it are
// no longer marked Fallthru and are still marked Crossing.
func TestColdIslandSurgery(t *testing.T) {
	f := NewFunc("f")
	pre := f.AddBlock(100, 100)
	cold := f.AddBlock(1, 0)
	post := f.AddBlock(100, 100)
	cold.ProbablyNeverExecuted = true

	f.AddEdge(f.Entry, pre, ProbBase, 100, CanFallthru)
	eIn := f.AddEdge(pre, cold, 100, 1, CanFallthru|Fallthru)
	eOut := f.AddEdge(cold, post, ProbBase, 1, CanFallthru|Fallthru)
	f.AddEdge(post, f.Exit, ProbBase, 100, CanFallthru)

	linearInsn(pre, 1)
	linearInsn(cold, 1)
	linearInsn(post, 1)
	pre.layout.next = cold
	cold.layout.next = post

	target := newFakeTarget(f)
	p := NewPass(f, target, true, false)
	p.PartitionHotCold()

	if cold.Partition != PartitionCold || pre.Partition != PartitionHot || post.Partition != PartitionHot {
		t.Fatalf("partitions = pre:%v cold:%v post:%v", pre.Partition, cold.Partition, post.Partition)
	}
	if eIn.Flags.Has(Fallthru) {
		t.Errorf("pre->cold still marked Fallthru after surgery")
	}
	if eOut.Flags.Has(Fallthru) {
		t.Errorf("cold->post still marked Fallthru after surgery")
	}
	if !eIn.Crossing || !eOut.Crossing {
		t.Errorf("crossing edges bordering the cold island lost their Crossing flag")
	}
}
