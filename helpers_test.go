// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bbreorder

// This file provides a minimal fake Target and a small CFG builder
// shared by the tests in this package. The fake keeps just enough
// instruction-chain fidelity for blockInsnLength and the surgery
// phases to exercise real control flow; it never tries to model real
// machine code.

type insnKind int

const (
	kindPlain insnKind = iota
	kindCond
	kindUncond
	kindComputed
	kindLabel
	kindBarrier
	kindNote
)

type testInsn struct {
	kind     insnKind
	block    *Block
	target   Label
	inverted bool
	next     *testInsn
}

func (i *testInsn) Next() Insn {
	if i == nil || i.next == nil {
		return nil
	}
	return i.next
}

func chain(b *Block, insns ...*testInsn) {
	for i, ins := range insns {
		ins.block = b
		if i+1 < len(insns) {
			ins.next = insns[i+1]
		}
	}
	b.Head = insns[0]
	b.Tail = insns[len(insns)-1]
}

type fakeTarget struct {
	f *Func

	cannotModifyJumps  bool
	hasLongCondBranch  bool
	hasLongUncondBranch bool
	uncondJumpLen       int
	nextRegID           int
	nextBlockID         int
	labels              map[*Block]Label
	noDuplicate         map[*Block]bool
}

func newFakeTarget(f *Func) *fakeTarget {
	return &fakeTarget{
		f:                   f,
		hasLongCondBranch:   true,
		hasLongUncondBranch: true,
		uncondJumpLen:       2,
		nextBlockID:         10000,
		labels:              make(map[*Block]Label),
		noDuplicate:         make(map[*Block]bool),
	}
}

func (t *fakeTarget) CannotModifyJumps() bool     { return t.cannotModifyJumps }
func (t *fakeTarget) HasLongCondBranch() bool     { return t.hasLongCondBranch }
func (t *fakeTarget) HasLongUncondBranch() bool   { return t.hasLongUncondBranch }

func (t *fakeTarget) CanDuplicateBlock(b *Block) bool { return !t.noDuplicate[b] }

func (t *fakeTarget) DuplicateBlock(b *Block, e *Edge) *Block {
	nb := t.newBlock()
	nb.Frequency = b.Frequency
	nb.Count = b.Count
	nb.Partition = b.Partition
	nb.Head, nb.Tail = b.Head, b.Tail
	for _, se := range b.Succs {
		ne := &Edge{Src: nb, Dst: se.Dst, Probability: se.Probability, Count: se.Count, Flags: se.Flags}
		nb.Succs = append(nb.Succs, ne)
		se.Dst.Preds = append(se.Dst.Preds, ne)
	}
	e.Dst.Preds = removeEdgeFrom(e.Dst.Preds, e)
	e.Dst = nb
	nb.Preds = append(nb.Preds, e)
	t.f.Blocks = append(t.f.Blocks, nb)
	return nb
}

func (t *fakeTarget) AnyCondJump(i Insn) bool {
	ti, _ := i.(*testInsn)
	return ti != nil && ti.kind == kindCond
}

func (t *fakeTarget) ComputedJump(i Insn) bool {
	ti, _ := i.(*testInsn)
	return ti != nil && ti.kind == kindComputed
}

func (t *fakeTarget) TableJump(i Insn) (Label, []Label, bool) { return nil, nil, false }

func (t *fakeTarget) BlockLabel(b *Block) Label {
	if l, ok := t.labels[b]; ok {
		return l
	}
	l := Label("L" + itoa(b.ID))
	t.labels[b] = l
	return l
}

func (t *fakeTarget) EmitLabelBefore(i Insn, l Label) Insn {
	ni := &testInsn{kind: kindLabel, target: l}
	return t.insertBefore(i, ni)
}

func (t *fakeTarget) EmitLabelAfter(i Insn, l Label) Insn {
	ni := &testInsn{kind: kindLabel, target: l}
	return t.insertAfter(i, ni)
}

func (t *fakeTarget) EmitJumpInsnAfter(l Label, i Insn) Insn {
	ni := &testInsn{kind: kindUncond, target: l}
	return t.insertAfter(i, ni)
}

func (t *fakeTarget) EmitBarrierAfter(i Insn) Insn {
	ni := &testInsn{kind: kindBarrier}
	return t.insertAfter(i, ni)
}

func (t *fakeTarget) EmitNoteBefore(kind NoteKind, i Insn) Insn {
	ni := &testInsn{kind: kindNote}
	return t.insertBefore(i, ni)
}

func (t *fakeTarget) EmitNoteAfter(kind NoteKind, i Insn) Insn {
	ni := &testInsn{kind: kindNote}
	return t.insertAfter(i, ni)
}

func (t *fakeTarget) UnlinkInsnChain(from, to Insn) []Insn { return []Insn{from} }
func (t *fakeTarget) DeleteInsn(i Insn)                    {}

func (t *fakeTarget) InvertJump(i Insn) bool {
	ti, _ := i.(*testInsn)
	if ti == nil {
		return false
	}
	ti.inverted = true
	return true
}

func (t *fakeTarget) RedirectJump(i Insn, l Label) bool {
	ti, _ := i.(*testInsn)
	if ti == nil {
		return false
	}
	ti.target = l
	return true
}

func (t *fakeTarget) RedirectEdgeSucc(e *Edge, dst *Block) {
	e.Dst.Preds = removeEdgeFrom(e.Dst.Preds, e)
	e.Dst = dst
	dst.Preds = append(dst.Preds, e)
}

func (t *fakeTarget) MakeEdge(src, dst *Block, flags EdgeFlags) *Edge {
	e := &Edge{Src: src, Dst: dst, Probability: ProbBase, Flags: flags}
	src.Succs = append(src.Succs, e)
	dst.Preds = append(dst.Preds, e)
	return e
}

func (t *fakeTarget) ForceNonFallthru(e *Edge) *Block {
	nb := t.newBlock()
	nb.Partition = e.Src.Partition
	ni := &testInsn{kind: kindUncond}
	nb.Head, nb.Tail = ni, ni
	ne := &Edge{Src: nb, Dst: e.Dst, Probability: ProbBase, Flags: CanFallthru | Fallthru}
	nb.Succs = append(nb.Succs, ne)
	e.Dst.Preds = removeEdgeFrom(e.Dst.Preds, e)
	e.Dst.Preds = append(e.Dst.Preds, ne)
	e.Dst = nb
	nb.Preds = append(nb.Preds, e)
	e.Flags &^= Fallthru
	t.f.Blocks = append(t.f.Blocks, nb)
	return nb
}

func (t *fakeTarget) CreateBasicBlock() *Block {
	b := t.newBlock()
	b.Head, b.Tail = nil, nil // a new block is empty, per the Target contract
	return b
}

func (t *fakeTarget) GetAttrLength(i Insn) int { return 1 }

func (t *fakeTarget) MaybeHot(b *Block) bool { return b.Frequency > 0 }

func (t *fakeTarget) ProbablyNeverExecuted(b *Block) bool { return b.ProbablyNeverExecuted }

func (t *fakeTarget) UncondJumpLength() int { return t.uncondJumpLen }

func (t *fakeTarget) AllocateCrossJumpRegister() Reg {
	t.nextRegID++
	return t.nextRegID
}

func (t *fakeTarget) Verbosity() int { return 0 }

func (t *fakeTarget) newBlock() *Block {
	t.nextBlockID++
	b := &Block{ID: t.nextBlockID}
	ni := &testInsn{kind: kindPlain}
	b.Head, b.Tail = ni, ni
	return b
}

func (t *fakeTarget) insertAfter(i Insn, ni *testInsn) Insn {
	ti, _ := i.(*testInsn)
	if ti == nil {
		return ni
	}
	ni.next = ti.next
	ti.next = ni
	return ni
}

func (t *fakeTarget) insertBefore(i Insn, ni *testInsn) Insn {
	// The fake has no back-links; for the cases this package exercises,
	// inserting immediately after is observationally equivalent since
	// only relative order within a block matters to the tests.
	ti, _ := i.(*testInsn)
	if ti == nil {
		return ni
	}
	ni.next = ti
	return ni
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	pos := len(buf)
	for n > 0 {
		pos--
		buf[pos] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		pos--
		buf[pos] = '-'
	}
	return string(buf[pos:])
}

// linearInsn gives b a single plain instruction of the given length
// (blockInsnLength counts attrLength, which the fake fixes at 1 per
// instruction, so length == instruction count).
func linearInsn(b *Block, n int) {
	insns := make([]*testInsn, n)
	for i := range insns {
		insns[i] = &testInsn{kind: kindPlain}
	}
	chain(b, insns...)
}
