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

func TestAliasTransparency(t *testing.T) {
	s := NewAbstractState("f")
	x := testPath("f", 1)
	y := testPath("f", 2)
	r := testRecord(y, "f.step1", 3)
	s.AddCall(y, r)
	prog := NewProgress("Builder", token.Position{Line: 1})
	prog.MarkStep("WithTimeout")
	s.Progress[y] = prog

	// after x = y both paths see equivalent call sets and progress
	s.CopyTracking(y, x)
	require.True(t, s.CallsAt(x).Equal(s.CallsAt(y)))
	require.True(t, s.ProgressAt(x).Equal(s.ProgressAt(y)))

	// reassigning x breaks the alias without touching y
	z := testPath("f", 3)
	s.SetTracking(z, x)
	require.Empty(t, s.CallsAt(x))
	require.True(t, s.CallsAt(y)[r])
	require.NotNil(t, s.ProgressAt(y))
}

func TestMergeIntoIsMonotoneAndIdempotent(t *testing.T) {
	a := NewAbstractState("f")
	b := NewAbstractState("f")
	p := testPath("f", 1)
	q := testPath("f", 2)
	a.AddCall(p, testRecord(p, "f.step1", 1))
	b.AddCall(p, testRecord(p, "f.step2", 2))
	b.AddCall(q, testRecord(q, "f.step3", 3))
	b.Progress[q] = NewProgress("Builder", token.Position{Line: 2})

	require.True(t, a.MergeInto(b))
	// b is a superset of both operands
	require.True(t, b.CallsAt(p)[testRecord(p, "f.step1", 1)])
	require.True(t, b.CallsAt(p)[testRecord(p, "f.step2", 2)])
	require.True(t, b.CallsAt(q)[testRecord(q, "f.step3", 3)])

	// merging again changes nothing
	require.False(t, a.MergeInto(b))
}

func TestMergeJoinsFinalized(t *testing.T) {
	a := NewAbstractState("f")
	b := NewAbstractState("f")
	key := FinalKey{Pos: token.Position{Filename: "t.go", Line: 9}, Receiver: testPath("f", 1)}
	done := NewProgress("Builder", token.Position{Line: 1})
	done.MarkStep("WithTimeout")
	done.Done = true
	a.Finalized[key] = done

	require.True(t, a.MergeInto(b))
	require.True(t, b.Finalized[key].Done)
	require.True(t, b.Finalized[key].HasStep("WithTimeout"))

	// the copy is deep, mutating the source does not leak
	done.MarkStep("WithRetries")
	require.False(t, b.Finalized[key].HasStep("WithRetries"))
}

func TestUnboundPathIsEmptyNotError(t *testing.T) {
	s := NewAbstractState("f")
	p := testPath("f", 42)
	require.Empty(t, s.CallsAt(p))
	require.Nil(t, s.ProgressAt(p))
	require.False(t, s.IsTracked(p))
}
