// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bbreorder

import "fmt"

// Insn, Label and Reg are opaque handles into the host's instruction
// representation. The core never interprets them; it only threads them
// through Target calls. Instruction-level representation is explicitly
// out of scope for this package (spec §1).
type (
	Insn  any
	Label any
	Reg   any
)

// NoteKind identifies the kind of annotation note CFG surgery attaches
// to the instruction stream.
type NoteKind uint8

const (
	// NoteUnlikelyExecuted marks the start of a cold block
	// (NOTE_INSN_UNLIKELY_EXECUTED_CODE).
	NoteUnlikelyExecuted NoteKind = iota
	// NoteCrossingJump marks a jump whose outgoing edge crosses the
	// hot/cold partition (REG_CROSSING_JUMP).
	NoteCrossingJump
)

// Target is the set of target/host capabilities the reordering core
// consumes. The host compiler implements it; the core never constructs
// a Block, Edge, or Insn representation of its own beyond what is
// described here. All mutation of the instruction stream — labels,
// jumps, barriers, notes — goes through Target so this package stays
// free of instruction-level representation.
type Target interface {
	// CannotModifyJumps reports whether the current function forbids
	// jump modification (e.g. mid-inlining, or targets with no stable
	// jump encoding yet). ReorderBasicBlocks early-returns when true;
	// PartitionHotCold does not consult it.
	CannotModifyJumps() bool

	// HasLongCondBranch reports whether the target has a conditional
	// branch form that can reach arbitrary distance.
	HasLongCondBranch() bool
	// HasLongUncondBranch reports whether the target has an
	// unconditional branch form that can reach arbitrary distance.
	HasLongUncondBranch() bool

	// CanDuplicateBlock reports whether b may be duplicated at all
	// (independent of the size/frequency gates in copyBlockP).
	CanDuplicateBlock(b *Block) bool
	// DuplicateBlock clones b, redirecting the duplicate to replace e's
	// destination, and returns the new block. The returned block must
	// be e's new destination; the core treats any other result as an
	// internal error.
	DuplicateBlock(b *Block, e *Edge) *Block

	// AnyCondJump reports whether i is a conditional jump.
	AnyCondJump(i Insn) bool
	// ComputedJump reports whether i is a computed (indirect) jump.
	ComputedJump(i Insn) bool
	// TableJump reports whether i is a jump-table dispatch, returning
	// the table's base label and entries when ok.
	TableJump(i Insn) (label Label, table []Label, ok bool)

	// BlockLabel returns (creating if necessary) the label at the head
	// of b.
	BlockLabel(b *Block) Label
	EmitLabelBefore(i Insn, l Label) Insn
	EmitLabelAfter(i Insn, l Label) Insn
	// EmitJumpInsnAfter synthesizes an unconditional jump to l,
	// inserted after i.
	EmitJumpInsnAfter(l Label, i Insn) Insn
	EmitBarrierAfter(i Insn) Insn
	EmitNoteBefore(kind NoteKind, i Insn) Insn
	EmitNoteAfter(kind NoteKind, i Insn) Insn
	// UnlinkInsnChain detaches the instructions from `from` to `to`
	// inclusive from their block and returns them, for reattachment as
	// a block's footer.
	UnlinkInsnChain(from, to Insn) []Insn
	DeleteInsn(i Insn)

	// InvertJump inverts the condition of conditional jump i in place,
	// reporting whether inversion was possible.
	InvertJump(i Insn) bool
	// RedirectJump retargets jump i to label l, reporting success.
	RedirectJump(i Insn, l Label) bool
	// RedirectEdgeSucc repoints e's destination to dst in the CFG.
	RedirectEdgeSucc(e *Edge, dst *Block)
	// MakeEdge creates a new CFG edge.
	MakeEdge(src, dst *Block, flags EdgeFlags) *Edge
	// ForceNonFallthru materializes a new block on e's fall-through
	// edge so that e is no longer a physical fall-through, returning
	// the new block.
	ForceNonFallthru(e *Edge) *Block
	// CreateBasicBlock allocates a new, empty block not yet linked into
	// any trace.
	CreateBasicBlock() *Block

	// GetAttrLength returns the host's estimate of i's encoded length.
	GetAttrLength(i Insn) int
	// MaybeHot reports whether b might be hot (the negation is a
	// stronger claim than ProbablyNeverExecuted).
	MaybeHot(b *Block) bool
	// ProbablyNeverExecuted reports whether static or profile evidence
	// marks b as dead weight.
	ProbablyNeverExecuted(b *Block) bool
	// UncondJumpLength returns the measured encoded length of an
	// unconditional jump on this target, computed once per pass.
	UncondJumpLength() int

	// AllocateCrossJumpRegister allocates a fresh pseudo-register used
	// to hold a cross-partition jump target (§4.8 step 4).
	AllocateCrossJumpRegister() Reg

	// Verbosity controls optional debug dumping; 0 disables it. This
	// mirrors the teacher's f.pass.debug-gated dumps: opt-in only.
	Verbosity() int
}

// icError reports an internal-error precondition violation: a contract
// the host CFG must uphold but failed to (§7). It is never returned; it
// is panicked via fatalf and is expected to propagate to the pass
// boundary, where the host compiler treats it as an internal compiler
// error and aborts the compilation.
type icError struct {
	msg string
}

func (e *icError) Error() string { return "bbreorder: internal error: " + e.msg }

// fatalf raises an icError. Callers at component boundaries only invoke
// this for contract violations enumerated in spec §7 — never for
// ordinary "no candidate found" outcomes, which are modelled as zero
// values, not errors.
func fatalf(format string, args ...any) {
	panic(&icError{msg: fmt.Sprintf(format, args...)})
}
