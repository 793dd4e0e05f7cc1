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
	"go/token"

	"golang.org/x/tools/go/ssa"
)

// A CalleeShape is the role a callee plays in a builder chain.
type CalleeShape int

const (
	// ShapeOther - the callee plays no specific role in a chain
	ShapeOther CalleeShape = iota

	// ShapeFactory - the callee creates a fresh chain
	ShapeFactory

	// ShapeTerminal - the callee consumes a chain
	ShapeTerminal

	// ShapeStep - the callee is a configuration step of a chain
	ShapeStep
)

// A Diagnostic is one user-visible violation: a chain that reached a terminal call in a bad
// state, located at the terminal call position.
type Diagnostic struct {
	// Pos is the position of the terminal call
	Pos token.Position

	// Proc is the procedure the terminal call was found in
	Proc string

	// Created is the builder type of the offending chain
	Created string

	// Description explains the violation
	Description string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s (chain of %s in %s)", d.Pos, d.Description, d.Created, d.Proc)
}

// A DiagnosticSink receives the diagnostics emitted by the reporting pass.
type DiagnosticSink func(Diagnostic)

// A Classifier is the capability bundle that parameterizes the engine over one misuse rule.
// Different rule families share the same transfer function and driver; only the classifier
// changes. CheckCallee and SatisfiesHeuristic are separate gates on purpose: identity ("this
// callee belongs to a tracked family") and safety ("tracking this call is meaningful") vary
// independently across rule families, and both must pass before a call is added to tracking.
type Classifier interface {
	// CheckCallee returns true when the callee's identity alone makes the chain worth tracking
	CheckCallee(callee *ssa.Function, summary *Summary) bool

	// SatisfiesHeuristic is the independent second gate, e.g. ruling out pointer receivers for
	// value-receiver-only rules
	SatisfiesHeuristic(callee *ssa.Function, summary *Summary) bool

	// ShapeOf returns the role the callee plays in a chain of this rule family
	ShapeOf(callee *ssa.Function) CalleeShape

	// ShouldReport decides per analyzed procedure whether the reporting pass runs at all
	ShouldReport(proc *ssa.Function) bool

	// Report inspects the finished summary for violations, emits diagnostics to the sink and
	// returns the summary, possibly mutated to mark chains already reported
	Report(summary *Summary, sink DiagnosticSink) *Summary
}
