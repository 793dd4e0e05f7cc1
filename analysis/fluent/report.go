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
	"os"
	"sort"

	"github.com/awslabs/fluentcheck/analysis/config"
	"github.com/awslabs/fluentcheck/internal/formatutil"
)

// ReportDiagnostics writes every violation of the result to the logger, sorted by position so
// runs are comparable.
func ReportDiagnostics(logger *config.LogGroup, result *AnalysisResult) {
	diags := make([]Diagnostic, len(result.Diagnostics))
	copy(diags, result.Diagnostics)
	sort.Slice(diags, func(i, j int) bool {
		if diags[i].Pos.Filename != diags[j].Pos.Filename {
			return diags[i].Pos.Filename < diags[j].Pos.Filename
		}
		return diags[i].Pos.Line < diags[j].Pos.Line
	})
	for _, d := range diags {
		logger.Errorf("%s: %s (chain of %s in %s)",
			formatutil.Red(d.Pos.String()), formatutil.Sanitize(d.Description),
			formatutil.Bold(formatutil.Sanitize(d.Created)), d.Proc)
	}
	if len(diags) == 0 {
		logger.Infof("%s", formatutil.Green("no violations found"))
	}
}

// ReportSummaries writes the published summaries to a summaries-*.out file in the reports
// directory when the config asks for it.
func ReportSummaries(cfg *config.Config, logger *config.LogGroup, result *AnalysisResult) error {
	if !cfg.ReportSummaries {
		return nil
	}
	tmp, err := os.CreateTemp(cfg.ReportsDir, "summaries-*.out")
	if err != nil {
		return fmt.Errorf("could not create summaries report: %w", err)
	}
	defer tmp.Close()
	logger.Infof("summaries report in %s", tmp.Name())

	names := make([]string, 0, len(result.Summaries))
	for name := range result.Summaries {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, err := tmp.WriteString(result.Summaries[name].String() + "\n"); err != nil {
			return fmt.Errorf("could not write summaries report: %w", err)
		}
	}
	return nil
}
