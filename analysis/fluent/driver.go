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
	"github.com/awslabs/fluentcheck/analysis/config"
	"github.com/awslabs/fluentcheck/analysis/lang"
	"golang.org/x/tools/go/ssa"
)

// AnalyzeFunction runs the forward fixpoint on function and converts the stabilized state into
// an exportable summary. The solver owns the worklist; this driver only seeds the initial
// state, collects the post-state at the exits and runs the reporting pass when the classifier
// asks for it. External functions have no body and produce no summary.
func AnalyzeFunction(function *ssa.Function, classifier Classifier, provider SummaryProvider,
	logger *config.LogGroup, maxSuffix int, sink DiagnosticSink) (*Summary, error) {
	if lang.IsExternal(function) {
		return nil, nil
	}
	logger.Debugf("analyzing %s", function.String())

	tr := NewIntraAnalysisState(function, classifier, provider, logger, maxSuffix)
	lang.RunForwardIterative(tr, function)

	// The post state joins the stabilized state of every exiting block with the accumulated
	// return bindings. A function that never returns (infinite loop, panic only) still
	// exports its formal-rooted effects.
	post := NewAbstractState(tr.proc)
	tr.returnState.MergeInto(post)
	exits := 0
	for block, out := range tr.blockOut {
		if lang.LastInstrIsReturn(block) {
			out.MergeInto(post)
			exits++
		}
	}
	if exits == 0 {
		for _, out := range tr.blockOut {
			out.MergeInto(post)
		}
	}

	summary := BuildSummary(function, post)
	if sink != nil && classifier.ShouldReport(function) {
		summary = classifier.Report(summary, sink)
	}
	return summary, nil
}
