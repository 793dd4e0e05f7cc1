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
	"go/types"
	"sort"
	"strings"

	"github.com/awslabs/fluentcheck/analysis/config"
	"golang.org/x/tools/go/ssa"
)

// A BuilderRule is the classifier of one builder-problems entry of the config: it decides
// family membership from the configured identifiers and checks the required-steps and
// exclusive-steps rules on finalized chains.
type BuilderRule struct {
	cfg  *config.Config
	spec *config.BuilderSpec

	// inFamily decides whether a type belongs to the builder family. It is injected so a
	// caller with a richer type hierarchy query can override the name-based default.
	inFamily func(t types.Type) bool
}

// NewBuilderRule returns the classifier for spec, deciding family membership by matching the
// spec's builder identifiers against named types.
func NewBuilderRule(cfg *config.Config, spec *config.BuilderSpec) *BuilderRule {
	r := &BuilderRule{cfg: cfg, spec: spec}
	r.inFamily = func(t types.Type) bool {
		name := namedTypeName(t)
		if name == "" {
			return false
		}
		return config.ExistsCid(spec.Builders, func(cid config.CodeIdentifier) bool {
			return cid.MatchesType(name)
		})
	}
	return r
}

// NewBuilderRuleWithFamily returns the classifier for spec with a caller-supplied family
// predicate replacing the name-based default.
func NewBuilderRuleWithFamily(cfg *config.Config, spec *config.BuilderSpec,
	inFamily func(t types.Type) bool) *BuilderRule {
	r := NewBuilderRule(cfg, spec)
	r.inFamily = inFamily
	return r
}

// CheckCallee returns true when the callee belongs to the rule's family: it is a configured
// factory, its receiver is a family type, or it returns a family type.
func (r *BuilderRule) CheckCallee(callee *ssa.Function, _ *Summary) bool {
	if r.matchesAny(r.spec.Factories, callee) {
		return true
	}
	if recv := receiverType(callee); recv != nil && r.inFamily(recv) {
		return true
	}
	results := callee.Signature.Results()
	for i := 0; i < results.Len(); i++ {
		if r.inFamily(results.At(i).Type()) {
			return true
		}
	}
	return false
}

// SatisfiesHeuristic is the second gate. With value-receivers-only set, methods mutating their
// receiver through a pointer do not need to rebind their result, so their chains are not
// subject to the rebinding rules and are skipped.
func (r *BuilderRule) SatisfiesHeuristic(callee *ssa.Function, _ *Summary) bool {
	if !r.spec.ValueReceiversOnly {
		return true
	}
	recv := callee.Signature.Recv()
	if recv == nil {
		return true
	}
	_, isPtr := recv.Type().(*types.Pointer)
	return !isPtr
}

// ShapeOf returns the role callee plays in a chain of this family.
func (r *BuilderRule) ShapeOf(callee *ssa.Function) CalleeShape {
	if r.matchesAny(r.spec.Terminals, callee) {
		return ShapeTerminal
	}
	if r.matchesAny(r.spec.Factories, callee) {
		return ShapeFactory
	}
	if recv := receiverType(callee); recv != nil && r.inFamily(recv) {
		return ShapeStep
	}
	return ShapeOther
}

// ShouldReport gates the reporting pass on the entry points filter of the config.
func (r *BuilderRule) ShouldReport(proc *ssa.Function) bool {
	return r.cfg.IsReportingEntryPoint(proc.String())
}

// Report scans the finalized chains of the summary for missing required steps and for
// exclusive steps invoked together, and emits one diagnostic per violation. Chains are marked
// reported in the summary so a re-exported summary does not flag them again.
func (r *BuilderRule) Report(summary *Summary, sink DiagnosticSink) *Summary {
	keys := make([]FinalKey, 0, len(summary.State.Finalized))
	for k := range summary.State.Finalized {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Pos.Filename != keys[j].Pos.Filename {
			return keys[i].Pos.Filename < keys[j].Pos.Filename
		}
		if keys[i].Pos.Line != keys[j].Pos.Line {
			return keys[i].Pos.Line < keys[j].Pos.Line
		}
		return keys[i].Receiver.String() < keys[j].Receiver.String()
	})

	for _, k := range keys {
		prog := summary.State.Finalized[k]
		if !prog.Done || prog.Reported {
			continue
		}
		var missing []string
		for _, step := range r.spec.RequiredSteps {
			if !prog.HasStep(step) {
				missing = append(missing, step)
			}
		}
		if len(missing) > 0 {
			prog.Reported = true
			sink(Diagnostic{
				Pos:     k.Pos,
				Proc:    summary.Proc,
				Created: prog.Created,
				Description: fmt.Sprintf("chain finalized without required step(s) %s",
					strings.Join(missing, ", ")),
			})
		}
		// every pair of the group is exclusive, not just the first two names
		for _, group := range r.spec.ExclusiveSteps {
			for i := 0; i < len(group); i++ {
				for j := i + 1; j < len(group); j++ {
					if prog.HasStep(group[i]) && prog.HasStep(group[j]) {
						prog.Reported = true
						sink(Diagnostic{
							Pos:     k.Pos,
							Proc:    summary.Proc,
							Created: prog.Created,
							Description: fmt.Sprintf("exclusive steps %s and %s invoked on the same chain",
								group[i], group[j]),
						})
					}
				}
			}
		}
	}
	return summary
}

// matchesAny returns true when callee matches one of the identifiers on package, receiver and
// method name.
func (r *BuilderRule) matchesAny(cids []config.CodeIdentifier, callee *ssa.Function) bool {
	pkg, recv, name := funcIdentity(callee)
	return config.ExistsCid(cids, func(cid config.CodeIdentifier) bool {
		return cid.MatchesFunc(pkg, recv, name)
	})
}

// funcIdentity returns the package path, receiver type name and method name of f. The receiver
// name is empty for ordinary functions.
func funcIdentity(f *ssa.Function) (string, string, string) {
	pkg := ""
	if f.Pkg != nil {
		pkg = f.Pkg.Pkg.Path()
	} else if obj := f.Object(); obj != nil && obj.Pkg() != nil {
		pkg = obj.Pkg().Path()
	}
	recv := ""
	if rt := receiverType(f); rt != nil {
		recv = namedTypeName(rt)
	}
	return pkg, recv, f.Name()
}

// receiverType returns the receiver type of f, or nil when f is not a method.
func receiverType(f *ssa.Function) types.Type {
	if recv := f.Signature.Recv(); recv != nil {
		return recv.Type()
	}
	return nil
}

// namedTypeName returns the name of the named type under t, looking through one pointer.
// Returns "" for unnamed types.
func namedTypeName(t types.Type) string {
	if ptr, ok := t.(*types.Pointer); ok {
		t = ptr.Elem()
	}
	if named, ok := t.(*types.Named); ok {
		return named.Obj().Name()
	}
	return ""
}
