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

	"github.com/awslabs/fluentcheck/analysis/config"
	"github.com/stretchr/testify/require"
)

func reportChain(t *testing.T, spec *config.BuilderSpec, steps ...string) []Diagnostic {
	t.Helper()
	rule := NewBuilderRule(config.NewDefault(), spec)
	prog := NewProgress("Builder", token.Position{Filename: "t.go", Line: 1})
	for _, step := range steps {
		prog.MarkStep(step)
	}
	prog.Done = true
	st := NewAbstractState("p")
	st.Finalized[FinalKey{Pos: token.Position{Filename: "t.go", Line: 9}}] = prog
	summary := &Summary{Proc: "p", State: st}

	var got []Diagnostic
	rule.Report(summary, func(d Diagnostic) { got = append(got, d) })
	return got
}

func TestReportMissingRequiredSteps(t *testing.T) {
	spec := &config.BuilderSpec{RequiredSteps: []string{"WithA", "WithB"}}
	got := reportChain(t, spec, "WithA")
	require.Len(t, got, 1)
	require.Contains(t, got[0].Description, "WithB")
	require.NotContains(t, got[0].Description, "WithA")
}

func TestReportExclusiveStepsChecksAllPairs(t *testing.T) {
	// the violating pair is not the first two names of the group
	spec := &config.BuilderSpec{ExclusiveSteps: [][]string{{"WithA", "WithB", "WithC"}}}
	got := reportChain(t, spec, "WithA", "WithC")
	require.Len(t, got, 1)
	require.Contains(t, got[0].Description, "WithA")
	require.Contains(t, got[0].Description, "WithC")
}

func TestReportSkipsReportedChains(t *testing.T) {
	spec := &config.BuilderSpec{RequiredSteps: []string{"WithA"}}
	rule := NewBuilderRule(config.NewDefault(), spec)
	prog := NewProgress("Builder", token.Position{Line: 1})
	prog.Done = true
	prog.Reported = true
	st := NewAbstractState("p")
	st.Finalized[FinalKey{Pos: token.Position{Filename: "t.go", Line: 9}}] = prog
	summary := &Summary{Proc: "p", State: st}

	rule.Report(summary, func(d Diagnostic) { t.Errorf("unexpected diagnostic: %s", d) })
}
