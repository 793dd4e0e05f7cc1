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

package fluent_test

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/awslabs/fluentcheck/analysis/config"
	"github.com/awslabs/fluentcheck/analysis/fluent"
	"github.com/awslabs/fluentcheck/internal/analysistest"
)

func runBuilderChain(t *testing.T) (*fluent.AnalysisResult, string) {
	dir, err := filepath.Abs(filepath.Join("testdata", "builder-chain"))
	if err != nil {
		t.Fatalf("could not resolve testdata directory: %v", err)
	}
	program, cfg := analysistest.LoadTest(t, dir, nil)
	logger := config.NewLogGroup(cfg)
	result, err := fluent.Analyze(cfg, logger, program.Program)
	if err != nil {
		t.Fatalf("analysis failed: %v", err)
	}
	return result, dir
}

// TestBuilderChain checks the reported violations against the @Violation annotations of the
// test program: every annotated terminal call must be flagged, and nothing else.
func TestBuilderChain(t *testing.T) {
	result, dir := runBuilderChain(t)
	expected, err := analysistest.GetExpectedViolations(dir)
	if err != nil {
		t.Fatalf("could not read expected violations: %v", err)
	}
	if len(expected) == 0 {
		t.Fatalf("no @Violation annotations found in %s", dir)
	}

	seen := map[analysistest.LPos]bool{}
	for _, d := range result.Diagnostics {
		pos := analysistest.RemoveColumn(d.Pos)
		if !expected[pos] {
			t.Errorf("unexpected violation at %s: %s", pos, d.Description)
			continue
		}
		seen[pos] = true
	}
	for pos := range expected {
		if !seen[pos] {
			t.Errorf("expected a violation at %s, none reported", pos)
		}
	}
}

// TestSummaryProjection checks the exported summary of the makeBuilder helper: the chain it
// returns must be rooted at the return path, and no purely local path may leak out.
func TestSummaryProjection(t *testing.T) {
	result, _ := runBuilderChain(t)

	var summary *fluent.Summary
	for name, s := range result.Summaries {
		if strings.HasSuffix(name, "makeBuilder") {
			summary = s
		}
	}
	if summary == nil {
		t.Fatalf("no summary exported for makeBuilder")
	}
	if summary.IsVoid {
		t.Errorf("makeBuilder returns a value, summary should not be void")
	}

	foundReturn := false
	for path, prog := range summary.State.Progress {
		if path.Root == fluent.RootLocal {
			t.Errorf("summary leaks local path %s", path.String())
		}
		if path.Root == fluent.RootReturn {
			foundReturn = true
			if !prog.HasStep("WithTimeout") {
				t.Errorf("return chain of makeBuilder should have completed WithTimeout")
			}
			if prog.HasStep("WithRetries") {
				t.Errorf("return chain of makeBuilder should not have completed WithRetries")
			}
		}
	}
	if !foundReturn {
		t.Errorf("summary of makeBuilder has no return-rooted chain")
	}
	for path := range summary.State.Calls {
		if path.Root == fluent.RootLocal {
			t.Errorf("summary leaks local path %s", path.String())
		}
	}
}

// TestVoidProcedureSummary checks that a procedure without results exports a void summary.
func TestVoidProcedureSummary(t *testing.T) {
	result, _ := runBuilderChain(t)
	found := false
	for name, s := range result.Summaries {
		if strings.HasSuffix(name, ".main") {
			found = true
			if !s.IsVoid {
				t.Errorf("main has no results, summary of %s should be void", name)
			}
		}
	}
	if !found {
		t.Errorf("no summary exported for main")
	}
}
