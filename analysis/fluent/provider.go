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
	"sync"

	fn "github.com/awslabs/fluentcheck/internal/funcutil"
	"golang.org/x/tools/go/ssa"
)

// A SummaryProvider supplies the summary of a callee at a call site, potentially triggering
// nested analysis. A None result means no summary is available: the caller's transfer function
// skips substitution for that call and continues with reduced precision.
type SummaryProvider interface {
	Lookup(callee *ssa.Function) fn.Optional[*Summary]
}

// A SummaryStore is the shared summary cache of one whole-program analysis. Summaries are
// published once and read many times; readers never observe a partially built summary. When
// on-demand analysis is enabled, a Lookup miss runs the analyze callback synchronously. A
// callee whose analysis is already in progress resolves to None instead of waiting: this is
// the recursion guard, a cycle in the call graph degrades precision but can never deadlock.
type SummaryStore struct {
	mu         sync.Mutex
	published  map[*ssa.Function]*Summary
	inProgress map[*ssa.Function]bool

	// analyze computes the summary of a function; nil disables on-demand analysis
	analyze func(*ssa.Function) (*Summary, error)
}

// NewSummaryStore returns an empty store. analyze may be nil, in which case Lookup only serves
// published summaries.
func NewSummaryStore(analyze func(*ssa.Function) (*Summary, error)) *SummaryStore {
	return &SummaryStore{
		published:  map[*ssa.Function]*Summary{},
		inProgress: map[*ssa.Function]bool{},
		analyze:    analyze,
	}
}

// Update publishes the summary of function. The first publication wins; a summary is never
// overwritten once readable.
func (s *SummaryStore) Update(function *ssa.Function, summary *Summary) {
	if summary == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.published[function]; !ok {
		s.published[function] = summary
	}
}

// Of returns the published summary of function without triggering analysis.
func (s *SummaryStore) Of(function *ssa.Function) fn.Optional[*Summary] {
	s.mu.Lock()
	defer s.mu.Unlock()
	if summary, ok := s.published[function]; ok {
		return fn.Some(summary)
	}
	return fn.None[*Summary]()
}

// Lookup returns the summary of function, running the on-demand analysis when the summary has
// not been published yet. Returns None for functions whose analysis is in progress (recursive
// cycle or concurrent worker) and for functions the analyze callback cannot summarize.
func (s *SummaryStore) Lookup(function *ssa.Function) fn.Optional[*Summary] {
	s.mu.Lock()
	if summary, ok := s.published[function]; ok {
		s.mu.Unlock()
		return fn.Some(summary)
	}
	if s.analyze == nil || s.inProgress[function] {
		s.mu.Unlock()
		return fn.None[*Summary]()
	}
	s.inProgress[function] = true
	s.mu.Unlock()

	summary, err := s.analyze(function)

	s.mu.Lock()
	delete(s.inProgress, function)
	if err == nil && summary != nil {
		if _, ok := s.published[function]; !ok {
			s.published[function] = summary
		}
		summary = s.published[function]
	}
	s.mu.Unlock()

	if summary == nil {
		return fn.None[*Summary]()
	}
	return fn.Some(summary)
}

// Summaries returns a snapshot of the published summaries keyed by procedure name.
func (s *SummaryStore) Summaries() map[string]*Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]*Summary, len(s.published))
	for f, summary := range s.published {
		out[f.String()] = summary
	}
	return out
}
