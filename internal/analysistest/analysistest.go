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

// Package analysistest provides utilities for loading the test programs under the testdata
// directories together with their config, and for reading the expected-result annotations in
// their comments.
package analysistest

import (
	"fmt"
	"go/parser"
	"go/token"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/awslabs/fluentcheck/analysis"
	"github.com/awslabs/fluentcheck/analysis/config"
	"golang.org/x/tools/go/ssa"
)

// LoadTest loads the program in the directory dir, looking for a main.go and a config.yaml. If
// additional files are specified as extraFiles, the program will be loaded using those files
// too.
func LoadTest(t *testing.T, dir string, extraFiles []string) (analysis.LoadedProgram, *config.Config) {
	configFile := filepath.Join(dir, "config.yaml")
	config.SetGlobalConfig(configFile)
	files := []string{filepath.Join(dir, "./main.go")}
	for _, extraFile := range extraFiles {
		files = append(files, filepath.Join(dir, extraFile))
	}

	program, err := analysis.LoadProgram(nil, "", ssa.BuilderMode(0), files)
	if err != nil {
		t.Fatalf("error loading packages: %v", err)
	}
	cfg, err := config.LoadGlobal()
	if err != nil {
		t.Fatalf("error loading global config: %v", err)
	}
	return program, cfg
}

// ViolationRegex matches annotations of the form "@Violation" in comments. The annotation
// marks the line of the terminal call where a diagnostic is expected.
var ViolationRegex = regexp.MustCompile(`//.*@Violation`)

// OkRegex matches annotations of the form "@Ok" in comments, marking a terminal call where no
// diagnostic must be reported.
var OkRegex = regexp.MustCompile(`//.*@Ok`)

// LPos is a filename and line number, the position grain the expected annotations work at.
type LPos struct {
	Filename string
	Line     int
}

func (p LPos) String() string {
	return fmt.Sprintf("%s:%d", p.Filename, p.Line)
}

// RemoveColumn drops the column of pos.
func RemoveColumn(pos token.Position) LPos {
	return LPos{Line: pos.Line, Filename: pos.Filename}
}

// GetExpectedViolations scans the Go files in dir for @Violation annotations and returns the
// positions where a diagnostic is expected.
func GetExpectedViolations(dir string) (map[LPos]bool, error) {
	expected := map[LPos]bool{}
	fset := token.NewFileSet()
	pkgs, err := parser.ParseDir(fset, dir, nil, parser.ParseComments)
	if err != nil {
		return nil, fmt.Errorf("could not parse %s: %w", dir, err)
	}
	for _, pkg := range pkgs {
		for _, file := range pkg.Files {
			for _, group := range file.Comments {
				for _, comment := range group.List {
					if ViolationRegex.MatchString(comment.Text) {
						pos := fset.Position(comment.Pos())
						if pos.IsValid() {
							expected[RemoveColumn(pos)] = true
						}
					}
				}
			}
		}
	}
	return expected, nil
}
