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
)

// A CallRecord represents "callee was invoked with this receiver at this program point".
// Records are immutable once created.
type CallRecord struct {
	// Receiver is the access path the call was invoked on
	Receiver AccessPath

	// Callee is the full name of the called procedure
	Callee string

	// Pos is the position of the call instruction
	Pos token.Position
}

func (r CallRecord) String() string {
	return fmt.Sprintf("%s.%s@%s", r.Receiver.String(), r.Callee, r.Pos)
}

// A CallSet is the set of call records bound to one access path. The set bound to path P only
// contains calls whose return value aliases P. The zero value is not usable, use NewCallSet.
type CallSet map[CallRecord]bool

// NewCallSet returns an empty call set.
func NewCallSet() CallSet {
	return map[CallRecord]bool{}
}

// Add records r in the set. Returns true if the set changed.
func (s CallSet) Add(r CallRecord) bool {
	if s[r] {
		return false
	}
	s[r] = true
	return true
}

// Copy returns a fresh set with the same records.
func (s CallSet) Copy() CallSet {
	c := make(CallSet, len(s))
	for r := range s {
		c[r] = true
	}
	return c
}

// MergeInto adds every record of s into dst (set union). Returns true if dst changed.
// Union is the join of the domain: an under-approximation here would silently drop recorded
// calls and turn missed violations into false negatives.
func (s CallSet) MergeInto(dst CallSet) bool {
	changed := false
	for r := range s {
		if dst.Add(r) {
			changed = true
		}
	}
	return changed
}

// Substitute rewrites the receiver of every record with sub and returns the new set. A record
// whose receiver has no replacement is dropped: callee-local temporaries that are not reachable
// from the caller are correctly forgotten.
func (s CallSet) Substitute(sub func(AccessPath) (AccessPath, bool)) CallSet {
	out := NewCallSet()
	for r := range s {
		if np, ok := sub(r.Receiver); ok {
			out.Add(CallRecord{Receiver: np, Callee: r.Callee, Pos: r.Pos})
		}
	}
	return out
}

// Equal returns true when both sets hold exactly the same records.
func (s CallSet) Equal(other CallSet) bool {
	if len(s) != len(other) {
		return false
	}
	for r := range s {
		if !other[r] {
			return false
		}
	}
	return true
}
