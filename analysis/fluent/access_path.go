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

// Package fluent implements a flow-sensitive, summary-based interprocedural analysis that
// detects misuse of fluent builder APIs: chains that are created by a factory, configured by
// steps and must reach a terminal method with all the required steps completed.
package fluent

import (
	"fmt"
	"strings"

	"golang.org/x/tools/go/ssa"
)

// A Root tags the anchor of an access path. Local paths are anchored at an ssa value of the
// procedure being analyzed and never appear in exported summaries. Formal and Return paths are
// symbolic: they survive the summary projection and are rebound at call sites.
type Root int

const (
	// RootLocal - the path is anchored at a local ssa value
	RootLocal Root = iota

	// RootFormal - the path is anchored at the formal parameter Index of the procedure
	RootFormal

	// RootReturn - the path is anchored at the result Index of the procedure
	RootReturn
)

// An AccessPath identifies one tracked memory location inside one procedure: an anchor plus an
// optional field/index suffix. Access paths are comparable and key the maps of the abstract
// state. Two access paths are equal iff their procedure, anchor and suffix all match; paths are
// never compared across procedures without substitution.
type AccessPath struct {
	// Proc is the full name of the owning procedure
	Proc string

	// Base is the anchoring ssa value of a local path, nil for symbolic paths
	Base ssa.Value

	// Root tags the kind of anchor
	Root Root

	// Index is the formal position (RootFormal) or the result position (RootReturn)
	Index int

	// Suffix is the field/index selector chain, e.g. ".field[*]" or "#1"
	Suffix string
}

// LocalPath returns the access path anchored at value v in procedure proc.
func LocalPath(proc string, v ssa.Value) AccessPath {
	return AccessPath{Proc: proc, Base: v, Root: RootLocal}
}

// FormalPath returns the symbolic access path anchored at formal parameter i of proc.
func FormalPath(proc string, i int) AccessPath {
	return AccessPath{Proc: proc, Root: RootFormal, Index: i}
}

// ReturnPath returns the symbolic access path anchored at result i of proc.
func ReturnPath(proc string, i int) AccessPath {
	return AccessPath{Proc: proc, Root: RootReturn, Index: i}
}

// Extend returns the path with selector sel appended to the suffix. When the suffix already has
// maxLen selectors the path is returned unchanged: the location is collapsed into its parent,
// which over-approximates but keeps the domain finite.
func (p AccessPath) Extend(sel string, maxLen int) AccessPath {
	if suffixLen(p.Suffix) >= maxLen {
		return p
	}
	p.Suffix += sel
	return p
}

// WithSuffix returns the path with its suffix replaced by s.
func (p AccessPath) WithSuffix(s string) AccessPath {
	p.Suffix = s
	return p
}

// suffixLen counts the selectors in a suffix. Every selector starts with '.', '[' or '#'.
func suffixLen(suffix string) int {
	n := 0
	for _, c := range suffix {
		if c == '.' || c == '[' || c == '#' {
			n++
		}
	}
	return n
}

// String returns a human-readable form of the path, used in logs and reports.
func (p AccessPath) String() string {
	var b strings.Builder
	switch p.Root {
	case RootLocal:
		if p.Base != nil {
			b.WriteString(p.Base.Name())
		} else {
			b.WriteString("?")
		}
	case RootFormal:
		fmt.Fprintf(&b, "arg%d", p.Index)
	case RootReturn:
		fmt.Fprintf(&b, "ret%d", p.Index)
	}
	b.WriteString(p.Suffix)
	return b.String()
}
