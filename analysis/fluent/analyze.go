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
	"runtime"
	"sort"
	"sync"

	"github.com/awslabs/fluentcheck/analysis/config"
	"github.com/awslabs/fluentcheck/analysis/lang"
	"github.com/awslabs/fluentcheck/internal/funcutil"
	"github.com/awslabs/fluentcheck/internal/graphutil"
	"golang.org/x/tools/go/callgraph/cha"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
)

// An AnalyzerState is the state of one whole-program analysis run. It accumulates diagnostics
// and keyed errors from all the workers; errors are not fatal to the run, a procedure whose
// analysis fails simply produces no summary.
type AnalyzerState struct {
	// Program is the analyzed program
	Program *ssa.Program

	// Logger is the log group of the run
	Logger *config.LogGroup

	// Config is the loaded configuration
	Config *config.Config

	// Diagnostics are the violations reported so far
	Diagnostics []Diagnostic

	diagMutex sync.Mutex
	seenDiags map[string]bool

	errors     map[string][]error
	errorMutex sync.Mutex
}

// NewAnalyzerState returns an empty analyzer state for program.
func NewAnalyzerState(program *ssa.Program, cfg *config.Config, logger *config.LogGroup) *AnalyzerState {
	return &AnalyzerState{
		Program:   program,
		Logger:    logger,
		Config:    cfg,
		seenDiags: map[string]bool{},
		errors:    map[string][]error{},
	}
}

// AddError adds an error with key to the state of the analyzer.
func (s *AnalyzerState) AddError(key string, err error) {
	s.errorMutex.Lock()
	defer s.errorMutex.Unlock()
	if err != nil {
		s.errors[key] = append(s.errors[key], err)
	}
}

// CheckError checks whether there is an error in the state, and returns the first error that
// was added if there is one, popping it from the map.
func (s *AnalyzerState) CheckError() error {
	s.errorMutex.Lock()
	defer s.errorMutex.Unlock()
	for key, errs := range s.errors {
		delete(s.errors, key)
		return fmt.Errorf("%s: %w", key, errs[0])
	}
	return nil
}

// AddDiagnostic records a violation. Duplicates are dropped: the same finalized chain can
// surface in several reporting entry points when a helper's summary is substituted into more
// than one caller. The max-alarms option bounds the number of recorded diagnostics.
func (s *AnalyzerState) AddDiagnostic(d Diagnostic) {
	s.diagMutex.Lock()
	defer s.diagMutex.Unlock()
	key := d.Pos.String() + "|" + d.Description
	if s.seenDiags[key] {
		return
	}
	if s.Config.MaxAlarms > 0 && len(s.Diagnostics) >= s.Config.MaxAlarms {
		return
	}
	s.seenDiags[key] = true
	s.Diagnostics = append(s.Diagnostics, d)
}

// An AnalysisResult is what a whole-program run produces: the diagnostics of every builder
// problem in the config, plus the published summaries for inspection and reporting.
type AnalysisResult struct {
	// Diagnostics are the reported violations, in reporting order
	Diagnostics []Diagnostic

	// Summaries maps procedure names to their exported summaries
	Summaries map[string]*Summary
}

// Analyze runs every builder problem of the config against the program. Procedures are
// summarized bottom-up over the call graph so callee summaries are usually published before
// their callers need them; with on-demand summaries enabled the workers run in parallel and a
// missing callee summary is computed synchronously at the call site.
func Analyze(cfg *config.Config, logger *config.LogGroup, program *ssa.Program) (*AnalysisResult, error) {
	if len(cfg.BuilderProblems) == 0 {
		return nil, fmt.Errorf("no builder-problems in config")
	}
	state := NewAnalyzerState(program, cfg, logger)

	cg := cha.CallGraph(program)
	cgraph := graphutil.NewCallgraphIterator(cg)
	recursive := graphutil.RecursiveFunctions(cgraph)
	if len(recursive) > 0 {
		logger.Debugf("%d functions participate in call cycles; in-cycle callees resolve to missing summaries", len(recursive))
	}

	targets := map[*ssa.Function]bool{}
	for f := range ssautil.AllFunctions(program) {
		if lang.IsExternal(f) {
			continue
		}
		if f.Pkg == nil || !cfg.MatchPkgFilter(f.Pkg.Pkg.Path()) {
			continue
		}
		targets[f] = true
	}
	logger.Infof("analyzing %d functions", len(targets))

	order := scheduleOrder(cgraph, targets)

	summaries := map[string]*Summary{}
	for i := range cfg.BuilderProblems {
		spec := &cfg.BuilderProblems[i]
		rule := NewBuilderRule(cfg, spec)

		var store *SummaryStore
		// Recording the error here keeps the on-demand and sequential paths symmetric: the
		// store discards errors, the state accumulates them.
		analyzeOne := func(f *ssa.Function) (*Summary, error) {
			if !targets[f] {
				return nil, nil
			}
			summary, err := AnalyzeFunction(f, rule, store, logger, cfg.MaxPathSuffixLength, state.AddDiagnostic)
			if err != nil {
				state.AddError(f.String(), err)
			}
			return summary, err
		}
		if cfg.OnDemandSummaries {
			store = NewSummaryStore(analyzeOne)
			runParallel(store, order)
		} else {
			store = NewSummaryStore(nil)
			for _, f := range order {
				summary, err := analyzeOne(f)
				if err != nil {
					continue
				}
				store.Update(f, summary)
			}
		}
		funcutil.Merge(summaries, store.Summaries(), func(x *Summary, _ *Summary) *Summary { return x })
	}

	if err := state.CheckError(); err != nil {
		logger.Warnf("analysis completed with errors: %v", err)
	}
	logger.Infof("found %d violation(s)", len(state.Diagnostics))
	return &AnalysisResult{Diagnostics: state.Diagnostics, Summaries: summaries}, nil
}

// scheduleOrder returns the target functions in bottom-up summarization order: the strongly
// connected components of the call graph, callees before callers, sorted by name within a
// component. Targets the call graph does not reach are appended at the end.
func scheduleOrder(cgraph graphutil.CGraph, targets map[*ssa.Function]bool) []*ssa.Function {
	order := make([]*ssa.Function, 0, len(targets))
	seen := map[*ssa.Function]bool{}
	for _, scc := range graphutil.BottomUpOrder(cgraph) {
		var component []*ssa.Function
		for _, node := range scc {
			cn, ok := node.(graphutil.CNode)
			if !ok || cn.Node.Func == nil {
				continue
			}
			f := cn.Node.Func
			if targets[f] && !seen[f] {
				seen[f] = true
				component = append(component, f)
			}
		}
		sortFunctions(component)
		order = append(order, component...)
	}

	var missing []*ssa.Function
	for f := range targets {
		if !seen[f] {
			missing = append(missing, f)
		}
	}
	sortFunctions(missing)
	return append(order, missing...)
}

// runParallel drains the scheduled functions with one worker per CPU. The store's Lookup both
// analyzes and publishes; a function grabbed by two workers is analyzed once, the loser
// observes the in-progress marker and moves on.
func runParallel(store *SummaryStore, order []*ssa.Function) {
	numRoutines := runtime.NumCPU() - 1
	if numRoutines < 1 {
		numRoutines = 1
	}
	jobs := make(chan *ssa.Function, len(order))
	for _, f := range order {
		jobs <- f
	}
	close(jobs)
	var wg sync.WaitGroup
	for i := 0; i < numRoutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for f := range jobs {
				store.Lookup(f)
			}
		}()
	}
	wg.Wait()
}

// sortFunctions orders functions by name for deterministic scheduling.
func sortFunctions(funcs []*ssa.Function) {
	sort.Slice(funcs, func(i, j int) bool { return funcs[i].String() < funcs[j].String() })
}
