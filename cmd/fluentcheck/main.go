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

// fluentcheck: a tool that checks fluent builder chains against the usage rules of a config
// file: every chain created by a configured factory must complete its required configuration
// steps before a terminal method consumes it.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/awslabs/fluentcheck/analysis"
	"github.com/awslabs/fluentcheck/analysis/config"
	"github.com/awslabs/fluentcheck/analysis/fluent"
	"github.com/awslabs/fluentcheck/internal/formatutil"
	"golang.org/x/tools/go/ssa"
)

var (
	configPath = flag.String("config", "", "config file path for the builder-chain analysis")
)

var buildmode = ssa.BuilderMode(0)

func init() {
	flag.Var(&buildmode, "build", ssa.BuilderModeDoc)
}

const usage = ` Check fluent builder chains in your packages.
Usage:
    fluentcheck [options] <package path(s)>
Examples:
% fluentcheck -config config.yaml package...
`

func main() {
	flag.Parse()

	if flag.NArg() == 0 || *configPath == "" {
		_, _ = fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
		os.Exit(2)
	}

	config.SetGlobalConfig(*configPath)
	cfg, err := config.LoadGlobal()
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not load config %s: %v\n", *configPath, err)
		os.Exit(1)
	}
	logger := config.NewLogGroup(cfg)

	logger.Infof("%s", formatutil.Faint("Reading sources"))
	program, err := analysis.LoadProgram(nil, "", buildmode, flag.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not load program: %v\n", err)
		os.Exit(1)
	}

	start := time.Now()
	result, err := fluent.Analyze(cfg, logger, program.Program)
	duration := time.Since(start)
	if err != nil {
		fmt.Fprintf(os.Stderr, "analysis failed: %v\n", err)
		os.Exit(1)
	}
	logger.Infof("analysis took %3.4f s", duration.Seconds())

	fluent.ReportDiagnostics(logger, result)
	if err := fluent.ReportSummaries(cfg, logger, result); err != nil {
		logger.Warnf("could not report summaries: %v", err)
	}

	if len(result.Diagnostics) > 0 {
		os.Exit(1)
	}
}
