// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bbreorder

import (
	"fmt"
	"os"
)

// dumpTraces prints one line per trace when the target's Verbosity is
// set, the same opt-in, stderr-only debug output the teacher's own
// layout pass prints under its debug flag. Never called unconditionally.
func (p *Pass) dumpTraces(stage string) {
	if p.target.Verbosity() <= 0 {
		return
	}
	fmt.Fprintf(os.Stderr, "bbreorder: %s: %s: %d traces\n", p.f.Name, stage, len(p.traces))
	for _, t := range p.traces {
		fmt.Fprintf(os.Stderr, "  trace %d (round %d, len %d):", t.ID, t.Round, t.Length)
		for b := t.First; b != nil; b = b.Next() {
			fmt.Fprintf(os.Stderr, " %d", b.ID)
		}
		fmt.Fprintln(os.Stderr)
	}
}
