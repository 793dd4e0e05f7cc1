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

	"github.com/awslabs/fluentcheck/internal/funcutil"
)

// A Progress records how far a builder chain has advanced: the type the factory created, the
// configuration steps completed so far, and whether a terminal method consumed the chain.
type Progress struct {
	// Created is the name of the builder type the factory produced
	Created string

	// CreatedPos is the position of the factory call
	CreatedPos token.Position

	// Steps is the set of configuration method names invoked on the chain
	Steps map[string]bool

	// Done is true once a terminal method consumed the chain
	Done bool

	// DonePos is the position of the terminal call, valid when Done
	DonePos token.Position

	// Reported is set by the reporting pass so re-exported summaries do not flag the same
	// chain twice
	Reported bool
}

// NewProgress returns the progress record of a chain freshly created at pos.
func NewProgress(created string, pos token.Position) *Progress {
	return &Progress{
		Created:    created,
		CreatedPos: pos,
		Steps:      map[string]bool{},
	}
}

// Copy returns a deep copy of the record.
func (p *Progress) Copy() *Progress {
	c := &Progress{
		Created:    p.Created,
		CreatedPos: p.CreatedPos,
		Steps:      make(map[string]bool, len(p.Steps)),
		Done:       p.Done,
		DonePos:    p.DonePos,
		Reported:   p.Reported,
	}
	for s := range p.Steps {
		c.Steps[s] = true
	}
	return c
}

// MarkStep records that the configuration method name was invoked on the chain. Returns true
// if the record changed.
func (p *Progress) MarkStep(name string) bool {
	if p.Steps[name] {
		return false
	}
	p.Steps[name] = true
	return true
}

// HasStep returns true when the configuration method name was invoked on the chain.
func (p *Progress) HasStep(name string) bool {
	return p.Steps[name]
}

// StepNames returns the completed steps as a sorted slice.
func (p *Progress) StepNames() []string {
	return funcutil.SetToOrderedSlice(p.Steps)
}

// MergeInto joins p into dst: the steps are unioned and Done is or-ed. Joining records of two
// control-flow branches keeps every step either branch completed, which over-approximates in
// the direction that avoids false negatives. Returns true if dst changed.
func (p *Progress) MergeInto(dst *Progress) bool {
	changed := false
	if dst.Created == "" && p.Created != "" {
		dst.Created = p.Created
		dst.CreatedPos = p.CreatedPos
		changed = true
	}
	for s := range p.Steps {
		if !dst.Steps[s] {
			dst.Steps[s] = true
			changed = true
		}
	}
	if p.Done && !dst.Done {
		dst.Done = true
		dst.DonePos = p.DonePos
		changed = true
	}
	if p.Reported && !dst.Reported {
		dst.Reported = true
		changed = true
	}
	return changed
}

// Equal returns true when both records hold the same creation, steps and terminal state.
// Reported is deliberately ignored, it is bookkeeping for the reporting pass.
func (p *Progress) Equal(other *Progress) bool {
	if p.Created != other.Created || p.Done != other.Done || len(p.Steps) != len(other.Steps) {
		return false
	}
	for s := range p.Steps {
		if !other.Steps[s] {
			return false
		}
	}
	return true
}
