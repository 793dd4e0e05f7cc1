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

func TestProgressMarkStep(t *testing.T) {
	p := NewProgress("Builder", token.Position{Filename: "t.go", Line: 1})
	require.True(t, p.MarkStep("WithTimeout"))
	require.False(t, p.MarkStep("WithTimeout"))
	require.True(t, p.HasStep("WithTimeout"))
	require.False(t, p.HasStep("WithRetries"))
}

func TestProgressMergeUnionsSteps(t *testing.T) {
	a := NewProgress("Builder", token.Position{Line: 1})
	a.MarkStep("WithTimeout")
	b := NewProgress("Builder", token.Position{Line: 1})
	b.MarkStep("WithRetries")
	b.Done = true
	b.DonePos = token.Position{Line: 9}

	require.True(t, b.MergeInto(a))
	require.True(t, a.HasStep("WithTimeout"))
	require.True(t, a.HasStep("WithRetries"))
	require.True(t, a.Done)

	// merging again changes nothing
	require.False(t, b.MergeInto(a))
}

func TestProgressCopyIsIndependent(t *testing.T) {
	a := NewProgress("Builder", token.Position{Line: 1})
	a.MarkStep("WithTimeout")
	c := a.Copy()
	c.MarkStep("WithRetries")
	require.False(t, a.HasStep("WithRetries"))
	require.True(t, c.HasStep("WithTimeout"))
}

func TestProgressStepNamesSorted(t *testing.T) {
	a := NewProgress("Builder", token.Position{Line: 1})
	a.MarkStep("b")
	a.MarkStep("a")
	a.MarkStep("c")
	require.Equal(t, []string{"a", "b", "c"}, a.StepNames())
}
