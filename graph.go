// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bbreorder

import "github.com/bits-and-blooms/bitset"

// ProbBase is the fixed-point denominator against which edge
// probabilities are expressed.
const ProbBase = 10000

// BBFreqMax is a sentinel frequency/key used to de-prioritise a block or
// seed so it is never chosen while anything better is available.
const BBFreqMax = 1 << 30

// Partition classifies a block as belonging to the hot or cold region of
// the function, or as not yet classified.
type Partition uint8

const (
	PartitionUnset Partition = iota
	PartitionHot
	PartitionCold
)

func (p Partition) String() string {
	switch p {
	case PartitionHot:
		return "hot"
	case PartitionCold:
		return "cold"
	default:
		return "unset"
	}
}

// EdgeFlags is a bit set of edge properties, carried over from the CFG
// builder the core consumes.
type EdgeFlags uint32

const (
	// CanFallthru marks an edge whose destination may be placed
	// immediately after its source with no explicit jump.
	CanFallthru EdgeFlags = 1 << iota
	// Complex marks an edge that cannot be redirected by simply
	// retargeting a single jump instruction (e.g. a computed jump or a
	// table entry).
	Complex
	// Fallthru marks an edge that is currently realized as a physical
	// fall-through in the layout.
	Fallthru
	// Fake marks an edge inserted only to keep the graph connected for
	// analysis purposes; it never corresponds to real control flow.
	Fake
	// DFSBack marks an edge identified by depth-first traversal as
	// closing a loop with its destination.
	DFSBack
)

func (f EdgeFlags) Has(bit EdgeFlags) bool { return f&bit != 0 }

// Edge is a directed control-flow edge consumed by the core. The core
// mutates Flags and Crossing but never Src/Dst/Probability/Count, which
// belong to the host's CFG builder.
type Edge struct {
	Src, Dst *Block

	// Probability is the branch probability of taking this edge,
	// expressed as a fraction of ProbBase.
	Probability int32
	// Count is the absolute profile count for this edge, possibly
	// saturating.
	Count int64

	Flags EdgeFlags

	// Crossing is set by the partition classifier and is true iff Src
	// and Dst are both real blocks in different partitions.
	Crossing bool
}

// TraceID identifies a trace. Zero means "no trace" / "unvisited".
type TraceID int32

// blockLayout is the rbi side-band: mutable layout state attached to a
// block by the reordering core. It is conceptually a separate mapping
// from block index to layout state, kept inline on Block for locality.
type blockLayout struct {
	next    *Block
	visited TraceID
	footer  []Insn
}

// Block is a basic block as consumed by the reordering core. The host
// owns everything except the layout-related fields the pass mutates
// (Partition, the layout side-band, and Edge.Crossing).
type Block struct {
	// ID is a stable integer index into per-function side tables. IDs
	// need not be contiguous once blocks are duplicated or created by
	// CFG surgery; NumBlocks/MaxBlockID below distinguish the two.
	ID int

	// Frequency is the relative execution weight of the block.
	Frequency float64
	// Count is the absolute profile count, possibly saturating.
	Count int64

	Partition Partition
	// ProbablyNeverExecuted mirrors the host's static/profile judgement
	// that this block is effectively dead weight (e.g. a panic path).
	ProbablyNeverExecuted bool

	Preds, Succs []*Edge

	// Head and Tail bound the block's instruction stream. The core
	// never interprets them; it passes them to Target methods.
	Head, Tail Insn

	// LiveAtStart and LiveAtEnd are optional liveness sets, copied
	// wholesale when CFG surgery clones a block's tail (§4.8 step 3).
	LiveAtStart, LiveAtEnd *bitset.BitSet

	layout blockLayout
}

// Next returns the block linked after b in the current layout, or nil at
// the end of the chain.
func (b *Block) Next() *Block { return b.layout.next }

// Footer returns the detached instruction chain to be emitted
// immediately after b in the final layout (e.g. a synthesized barrier).
func (b *Block) Footer() []Insn { return b.layout.footer }

func (b *Block) appendFooter(insns ...Insn) {
	b.layout.footer = append(b.layout.footer, insns...)
}

// EdgeFrequency returns the estimated execution frequency of e, derived
// from its source block's frequency and probability.
func EdgeFrequency(e *Edge) float64 {
	if e == nil {
		return 0
	}
	return e.Src.Frequency * float64(e.Probability) / ProbBase
}

// Func is the per-function CFG the core mutates. Entry and Exit are
// synthetic blocks with no real instructions; Entry.Succs are the real
// entry edges used to compute maxEntryFrequency/maxEntryCount.
type Func struct {
	Name string

	Entry, Exit *Block

	// Blocks holds every real block reachable at pass entry, in the
	// host's original order. The pass never removes entries from this
	// slice; duplicated and surgery-created blocks are appended.
	Blocks []*Block

	nextID int
}

// NewFunc creates an empty function with synthetic Entry/Exit blocks.
func NewFunc(name string) *Func {
	f := &Func{Name: name}
	f.Entry = &Block{ID: -1}
	f.Exit = &Block{ID: -2}
	return f
}

// AddBlock appends a new real block to f and assigns it a fresh ID.
func (f *Func) AddBlock(frequency float64, count int64) *Block {
	b := &Block{ID: f.nextID, Frequency: frequency, Count: count}
	f.nextID++
	f.Blocks = append(f.Blocks, b)
	return b
}

// AddEdge creates a directed edge from src to dst and appends it to both
// endpoints' adjacency lists.
func (f *Func) AddEdge(src, dst *Block, probability int32, count int64, flags EdgeFlags) *Edge {
	e := &Edge{Src: src, Dst: dst, Probability: probability, Count: count, Flags: flags}
	src.Succs = append(src.Succs, e)
	dst.Preds = append(dst.Preds, e)
	return e
}

// NumBlocks returns the number of real blocks currently in f.
func (f *Func) NumBlocks() int { return len(f.Blocks) }

// MaxBlockID returns the largest block ID in use, or -1 if f has no
// blocks. It is an upper bound for side tables indexed by ID, since IDs
// are not necessarily contiguous after duplication.
func (f *Func) MaxBlockID() int {
	max := -1
	for _, b := range f.Blocks {
		if b.ID > max {
			max = b.ID
		}
	}
	return max
}

// removeEdge deletes e from both endpoints' adjacency lists.
func removeEdge(e *Edge) {
	e.Src.Succs = removeEdgeFrom(e.Src.Succs, e)
	e.Dst.Preds = removeEdgeFrom(e.Dst.Preds, e)
}

func removeEdgeFrom(edges []*Edge, target *Edge) []*Edge {
	out := edges[:0]
	for _, e := range edges {
		if e != target {
			out = append(out, e)
		}
	}
	return out
}
