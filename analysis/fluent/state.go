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
	"go/token"
)

// A FinalKey identifies one finalized chain: the position of the terminal call plus the
// receiver path it consumed. Keying by position makes finalized records independent of the
// namespace they were recorded in, so they survive substitution into callers.
type FinalKey struct {
	Pos      token.Position
	Receiver AccessPath
}

// An AbstractState is the per-procedure abstract domain. Calls and Progress advance together on
// every instruction: they are bound to the same live access paths and must never diverge on
// which paths are tracked. Finalized accumulates the chains already consumed by a terminal
// call; it grows monotonically and participates in the join.
type AbstractState struct {
	// Proc is the full name of the procedure this state belongs to
	Proc string

	// Calls maps each tracked access path to the set of calls whose result aliases it
	Calls map[AccessPath]CallSet

	// Progress maps each tracked access path to the builder-chain progress bound to it
	Progress map[AccessPath]*Progress

	// Finalized holds the progress of every chain a terminal call consumed
	Finalized map[FinalKey]*Progress
}

// NewAbstractState returns an empty state for procedure proc.
func NewAbstractState(proc string) *AbstractState {
	return &AbstractState{
		Proc:      proc,
		Calls:     map[AccessPath]CallSet{},
		Progress:  map[AccessPath]*Progress{},
		Finalized: map[FinalKey]*Progress{},
	}
}

// Copy returns a deep copy of the state.
func (s *AbstractState) Copy() *AbstractState {
	c := NewAbstractState(s.Proc)
	for p, set := range s.Calls {
		c.Calls[p] = set.Copy()
	}
	for p, prog := range s.Progress {
		c.Progress[p] = prog.Copy()
	}
	for k, prog := range s.Finalized {
		c.Finalized[k] = prog.Copy()
	}
	return c
}

// CallsAt returns the call set bound to path. An unbound path is valid domain state and yields
// an empty set, never an error.
func (s *AbstractState) CallsAt(path AccessPath) CallSet {
	if set, ok := s.Calls[path]; ok {
		return set
	}
	return NewCallSet()
}

// ProgressAt returns the progress bound to path, or nil when the path carries no chain.
func (s *AbstractState) ProgressAt(path AccessPath) *Progress {
	return s.Progress[path]
}

// IsTracked returns true when path carries recorded calls or chain progress.
func (s *AbstractState) IsTracked(path AccessPath) bool {
	if set, ok := s.Calls[path]; ok && len(set) > 0 {
		return true
	}
	_, ok := s.Progress[path]
	return ok
}

// AddCall records r into the call set bound to path, creating the set if needed. Returns true
// if the state changed.
func (s *AbstractState) AddCall(path AccessPath, r CallRecord) bool {
	set, ok := s.Calls[path]
	if !ok {
		set = NewCallSet()
		s.Calls[path] = set
	}
	return set.Add(r)
}

// MergeInto joins s into dst. Per access path the call sets are unioned and the progress
// records are joined; finalized records are unioned. Returns true if dst changed. The join is
// commutative, associative and idempotent, which the fixpoint solver relies on.
func (s *AbstractState) MergeInto(dst *AbstractState) bool {
	changed := false
	for p, set := range s.Calls {
		dset, ok := dst.Calls[p]
		if !ok {
			dst.Calls[p] = set.Copy()
			changed = true
			continue
		}
		if set.MergeInto(dset) {
			changed = true
		}
	}
	for p, prog := range s.Progress {
		dprog, ok := dst.Progress[p]
		if !ok {
			dst.Progress[p] = prog.Copy()
			changed = true
			continue
		}
		if prog.MergeInto(dprog) {
			changed = true
		}
	}
	for k, prog := range s.Finalized {
		dprog, ok := dst.Finalized[k]
		if !ok {
			dst.Finalized[k] = prog.Copy()
			changed = true
			continue
		}
		if prog.MergeInto(dprog) {
			changed = true
		}
	}
	return changed
}

// CopyTracking binds to dst whatever Calls and Progress are bound to src, joining with what is
// already there. Assignments establish aliases: after the copy both paths see the same recorded
// chain until one is rebound by a strong update.
func (s *AbstractState) CopyTracking(src AccessPath, dst AccessPath) {
	if set, ok := s.Calls[src]; ok {
		dset, ok := s.Calls[dst]
		if !ok {
			dset = NewCallSet()
			s.Calls[dst] = dset
		}
		set.MergeInto(dset)
	}
	if prog, ok := s.Progress[src]; ok {
		dprog, ok := s.Progress[dst]
		if !ok {
			s.Progress[dst] = prog.Copy()
			return
		}
		prog.MergeInto(dprog)
	}
}

// SetTracking strongly updates dst with a copy of the tracking bound to src, discarding
// whatever dst held before. Used for stores through a location that is overwritten.
func (s *AbstractState) SetTracking(src AccessPath, dst AccessPath) {
	if set, ok := s.Calls[src]; ok {
		s.Calls[dst] = set.Copy()
	} else {
		delete(s.Calls, dst)
	}
	if prog, ok := s.Progress[src]; ok {
		s.Progress[dst] = prog.Copy()
	} else {
		delete(s.Progress, dst)
	}
}

// Equal returns true when both states track the same paths with equal call sets, progress and
// finalized records.
func (s *AbstractState) Equal(other *AbstractState) bool {
	if len(s.Calls) != len(other.Calls) || len(s.Progress) != len(other.Progress) ||
		len(s.Finalized) != len(other.Finalized) {
		return false
	}
	for p, set := range s.Calls {
		oset, ok := other.Calls[p]
		if !ok || !set.Equal(oset) {
			return false
		}
	}
	for p, prog := range s.Progress {
		oprog, ok := other.Progress[p]
		if !ok || !prog.Equal(oprog) {
			return false
		}
	}
	for k, prog := range s.Finalized {
		oprog, ok := other.Finalized[k]
		if !ok || !prog.Equal(oprog) {
			return false
		}
	}
	return true
}
