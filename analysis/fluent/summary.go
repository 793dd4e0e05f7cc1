// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package fluent

import (
	"fmt"
	"strings"

	"golang.org/x/tools/go/ssa"
)

// A FormalMap is the bijection between a procedure's formal parameters and their positional
// indices. It translates local paths anchored at a formal into symbolic formal-rooted paths
// when a summary is exported, and callers use the indices to rebind summaries to actuals.
type FormalMap struct {
	params []*ssa.Parameter
}

// NewFormalMap returns the formal map of function.
func NewFormalMap(function *ssa.Function) FormalMap {
	return FormalMap{params: function.Params}
}

// IndexOf returns the position of v among the formals, or false when v is not a formal.
func (m FormalMap) IndexOf(v ssa.Value) (int, bool) {
	for i, p := range m.params {
		if p == v {
			return i, true
		}
	}
	return 0, false
}

// Param returns the formal parameter at position i, or nil when out of range.
func (m FormalMap) Param(i int) *ssa.Parameter {
	if i < 0 || i >= len(m.params) {
		return nil
	}
	return m.params[i]
}

// Len returns the number of formals.
func (m FormalMap) Len() int {
	return len(m.params)
}

// A Summary is the exported, procedure-scoped projection of an abstract state: only paths
// rooted at a formal parameter or at a return value survive, local temporaries are dropped.
// Summaries are read-only once published to the store.
type Summary struct {
	// Proc is the full name of the summarized procedure
	Proc string

	// Formals is the formal parameter map of the procedure
	Formals FormalMap

	// IsVoid is true when the procedure has no results; no return-rooted path is exported then
	IsVoid bool

	// NumResults is the number of results of the procedure
	NumResults int

	// State is the projected abstract state
	State *AbstractState
}

// BuildSummary projects the post-fixpoint state of function into an exportable summary.
// Every path anchored at a formal parameter is renamed to its symbolic formal root; return
// bindings are already return-rooted in the state; everything anchored at a pure local is
// dropped. Finalized records are kept wholesale, they carry the violations found in this
// procedure and are position-keyed.
func BuildSummary(function *ssa.Function, post *AbstractState) *Summary {
	proc := function.String()
	formals := NewFormalMap(function)
	numResults := function.Signature.Results().Len()

	sub := func(p AccessPath) (AccessPath, bool) {
		return exportPath(proc, formals, p)
	}

	projected := NewAbstractState(proc)
	for p, set := range post.Calls {
		np, ok := sub(p)
		if !ok {
			continue
		}
		nset := set.Substitute(keepReceivers(sub))
		if existing, found := projected.Calls[np]; found {
			nset.MergeInto(existing)
		} else {
			projected.Calls[np] = nset
		}
	}
	for p, prog := range post.Progress {
		np, ok := sub(p)
		if !ok {
			continue
		}
		if existing, found := projected.Progress[np]; found {
			prog.MergeInto(existing)
		} else {
			projected.Progress[np] = prog.Copy()
		}
	}
	for k, prog := range post.Finalized {
		nk := k
		if np, ok := sub(k.Receiver); ok {
			nk.Receiver = np
		}
		if existing, found := projected.Finalized[nk]; found {
			prog.MergeInto(existing)
		} else {
			projected.Finalized[nk] = prog.Copy()
		}
	}

	return &Summary{
		Proc:       proc,
		Formals:    formals,
		IsVoid:     numResults == 0,
		NumResults: numResults,
		State:      projected,
	}
}

// exportPath renames a local path anchored at a formal into its symbolic formal root and keeps
// symbolic paths as they are. Pure locals yield false: they are invisible to callers.
func exportPath(proc string, formals FormalMap, p AccessPath) (AccessPath, bool) {
	switch p.Root {
	case RootFormal, RootReturn:
		return p, true
	default:
		if p.Base == nil {
			return p, false
		}
		if i, ok := formals.IndexOf(p.Base); ok {
			return FormalPath(proc, i).WithSuffix(p.Suffix), true
		}
		return p, false
	}
}

// keepReceivers wraps an export substitution for use inside call sets: a record whose receiver
// is a pure local is kept as-is rather than dropped, so the chain on a returned value still
// names the receiver it was built on.
func keepReceivers(sub func(AccessPath) (AccessPath, bool)) func(AccessPath) (AccessPath, bool) {
	return func(p AccessPath) (AccessPath, bool) {
		if np, ok := sub(p); ok {
			return np, true
		}
		return p, true
	}
}

// String renders the summary for the summaries report.
func (s *Summary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "summary of %s (formals=%d", s.Proc, s.Formals.Len())
	if s.IsVoid {
		b.WriteString(", void")
	}
	b.WriteString(")\n")
	for p, set := range s.State.Calls {
		fmt.Fprintf(&b, "  calls at %s:\n", p.String())
		for r := range set {
			fmt.Fprintf(&b, "    %s\n", r.String())
		}
	}
	for p, prog := range s.State.Progress {
		fmt.Fprintf(&b, "  chain at %s: created %s, steps %v, done %v\n",
			p.String(), prog.Created, prog.StepNames(), prog.Done)
	}
	for k, prog := range s.State.Finalized {
		fmt.Fprintf(&b, "  finalized at %s: created %s, steps %v\n",
			k.Pos, prog.Created, prog.StepNames())
	}
	return b.String()
}
