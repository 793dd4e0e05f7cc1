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
	"testing"

	"github.com/stretchr/testify/require"
)

func testPath(proc string, id int) AccessPath {
	return AccessPath{Proc: proc, Root: RootLocal, Index: id}
}

func testRecord(recv AccessPath, callee string, line int) CallRecord {
	return CallRecord{Receiver: recv, Callee: callee, Pos: token.Position{Filename: "t.go", Line: line}}
}

func TestCallSetAdd(t *testing.T) {
	s := NewCallSet()
	r := testRecord(testPath("f", 1), "f.step", 10)
	require.True(t, s.Add(r))
	require.False(t, s.Add(r))
	require.Len(t, s, 1)
}

func TestCallSetJoinLaws(t *testing.T) {
	p := testPath("f", 1)
	q := testPath("f", 2)
	a := NewCallSet()
	a.Add(testRecord(p, "f.step1", 1))
	a.Add(testRecord(q, "f.step2", 2))
	b := NewCallSet()
	b.Add(testRecord(q, "f.step2", 2))
	b.Add(testRecord(p, "f.build", 3))

	// commutative
	ab := a.Copy()
	b.MergeInto(ab)
	ba := b.Copy()
	a.MergeInto(ba)
	require.True(t, ab.Equal(ba))

	// the join is a superset of both operands
	for r := range a {
		require.True(t, ab[r])
	}
	for r := range b {
		require.True(t, ab[r])
	}

	// idempotent
	before := ab.Copy()
	require.False(t, ab.MergeInto(ab))
	require.True(t, before.Equal(ab))

	// associative
	c := NewCallSet()
	c.Add(testRecord(p, "f.other", 4))
	left := a.Copy()
	b.MergeInto(left)
	c.MergeInto(left)
	right := b.Copy()
	c.MergeInto(right)
	tmp := a.Copy()
	right.MergeInto(tmp)
	require.True(t, left.Equal(tmp))
}

func TestCallSetSubstituteIdentity(t *testing.T) {
	p := testPath("callee", 1)
	s := NewCallSet()
	s.Add(testRecord(p, "callee.step1", 1))
	s.Add(testRecord(p, "callee.step2", 2))

	out := s.Substitute(func(q AccessPath) (AccessPath, bool) { return q, true })
	require.True(t, s.Equal(out))
}

func TestCallSetSubstituteDrops(t *testing.T) {
	kept := testPath("callee", 1)
	dropped := testPath("callee", 2)
	caller := testPath("caller", 7)
	s := NewCallSet()
	s.Add(testRecord(kept, "callee.step1", 1))
	s.Add(testRecord(dropped, "callee.step2", 2))

	out := s.Substitute(func(q AccessPath) (AccessPath, bool) {
		if q == kept {
			return caller, true
		}
		return q, false
	})
	require.Len(t, out, 1)
	require.True(t, out[testRecord(caller, "callee.step1", 1)])
}
