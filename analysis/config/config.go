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

package config

import (
	"fmt"
	"os"
	"path"
	"regexp"

	"github.com/awslabs/fluentcheck/internal/funcutil"
	"gopkg.in/yaml.v3"
)

var (
	// The global config file
	configFile string
)

// SetGlobalConfig sets the global config filename
func SetGlobalConfig(filename string) {
	configFile = filename
}

// LoadGlobal loads the config file that has been set by SetGlobalConfig
func LoadGlobal() (*Config, error) {
	return Load(configFile)
}

// Config describes the builder-misuse problems the analysis should check and the options
// controlling the analysis.
// To add elements to a config file, add fields to this struct.
// If some field is not defined in the config file, it will be empty/zero in the struct.
// private fields are not populated from a yaml file, but computed after initialization
type Config struct {
	Options `yaml:",inline"`

	sourceFile string

	// if the PkgFilter is specified
	pkgFilterRegex *regexp.Regexp

	// if the EntryPointsFilter is specified
	entryPointsRegex *regexp.Regexp

	// BuilderProblems lists the builder-misuse specifications
	BuilderProblems []BuilderSpec `yaml:"builder-problems"`
}

// A BuilderSpec identifies one family of fluent builder APIs together with the usage rules the
// analysis enforces on call chains of that family.
type BuilderSpec struct {
	// Factories is the list of identifiers whose calls create a fresh builder chain
	Factories []CodeIdentifier

	// Builders identifies the builder types of the family; a method whose receiver or single
	// return value belongs to this family is worth tracking
	Builders []CodeIdentifier

	// Terminals is the list of "build" methods that finalize a chain
	Terminals []CodeIdentifier

	// RequiredSteps lists the configuration method names that must have been invoked on a chain
	// before any terminal method consumes it
	RequiredSteps []string `yaml:"required-steps"`

	// ExclusiveSteps lists pairs of configuration method names that must not both be invoked on
	// the same chain
	ExclusiveSteps [][]string `yaml:"exclusive-steps"`

	// ValueReceiversOnly restricts tracking to methods with non-pointer receivers. Methods that
	// mutate the receiver in place do not need to rebind their result, so the chain rules do not
	// apply to them.
	ValueReceiversOnly bool `yaml:"value-receivers-only"`
}

// IsRequiredStep returns true when name is one of the required steps of the spec
func (s *BuilderSpec) IsRequiredStep(name string) bool {
	return funcutil.Contains(s.RequiredSteps, name)
}

// Options holds the global options of the analysis.
type Options struct {
	// ReportsDir is the directory where reports will be stored. If the yaml config file this
	// config struct has been loaded from does not specify a ReportsDir but sets ReportSummaries
	// to true, then ReportsDir will be created in the folder the binary is called.
	ReportsDir string `yaml:"reports-dir"`

	// PkgFilter restricts summary building to the functions whose package matches the filter
	PkgFilter string `yaml:"pkg-filter"`

	// EntryPointsFilter restricts reporting to the procedures whose full name matches the
	// filter. If empty, every analyzed procedure is a reporting entry point.
	EntryPointsFilter string `yaml:"entry-points-filter"`

	// ReportSummaries can be set to true, in which case the exported summaries will be written
	// to a file named summaries-*.out in the reports directory
	ReportSummaries bool `yaml:"report-summaries"`

	// OnDemandSummaries specifies whether a missing callee summary triggers the analysis of the
	// callee at the call site, instead of relying only on the bottom-up schedule
	OnDemandSummaries bool `yaml:"on-demand-summaries"`

	// MaxPathSuffixLength bounds the length of the field/index suffix of tracked access paths.
	// Default is DefaultMaxPathSuffixLength. The bound does not affect soundness of the union
	// join, only precision.
	MaxPathSuffixLength int `yaml:"max-path-suffix-length"`

	// MaxAlarms sets a limit for the number of diagnostics reported by an analysis. If
	// MaxAlarms <= 0, it is ignored.
	MaxAlarms int `yaml:"max-alarms"`

	// LogLevel controls the verbosity of the tool
	LogLevel int `yaml:"log-level"`

	// SilenceWarn suppresses warnings
	SilenceWarn bool `yaml:"silence-warn"`
}

// NewDefault returns an empty default config.
func NewDefault() *Config {
	return &Config{
		sourceFile:      "",
		BuilderProblems: nil,
		Options: Options{
			ReportsDir:          "",
			PkgFilter:           "",
			EntryPointsFilter:   "",
			ReportSummaries:     false,
			OnDemandSummaries:   true,
			MaxPathSuffixLength: DefaultMaxPathSuffixLength,
			MaxAlarms:           0,
			LogLevel:            int(InfoLevel),
			SilenceWarn:         false,
		},
	}
}

// Load reads a configuration from a file
func Load(filename string) (*Config, error) {
	cfg := NewDefault()
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("could not read config file: %w", err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("could not unmarshal config file %s: %w", filename, err)
	}

	cfg.sourceFile = filename

	if cfg.ReportSummaries {
		if err := setReportsDir(cfg, filename); err != nil {
			return nil, err
		}
	}

	// If logLevel has not been specified (i.e. it is 0) set the default to Info
	if cfg.LogLevel == 0 {
		cfg.LogLevel = int(InfoLevel)
	}

	if cfg.MaxPathSuffixLength <= 0 {
		cfg.MaxPathSuffixLength = DefaultMaxPathSuffixLength
	}

	if cfg.PkgFilter != "" {
		r, err := regexp.Compile(cfg.PkgFilter)
		if err != nil {
			return nil, fmt.Errorf("could not compile pkg-filter: %w", err)
		}
		cfg.pkgFilterRegex = r
	}

	if cfg.EntryPointsFilter != "" {
		r, err := regexp.Compile(cfg.EntryPointsFilter)
		if err != nil {
			return nil, fmt.Errorf("could not compile entry-points-filter: %w", err)
		}
		cfg.entryPointsRegex = r
	}

	for i := range cfg.BuilderProblems {
		spec := &cfg.BuilderProblems[i]
		for _, group := range spec.ExclusiveSteps {
			if len(group) < 2 {
				return nil, fmt.Errorf("exclusive-steps entries need at least two step names, got %v", group)
			}
		}
		funcutil.MapInPlace(spec.Factories, CompileRegexes)
		funcutil.MapInPlace(spec.Builders, CompileRegexes)
		funcutil.MapInPlace(spec.Terminals, CompileRegexes)
	}

	return cfg, nil
}

func setReportsDir(cfg *Config, filename string) error {
	if cfg.ReportsDir == "" {
		dir, err := os.MkdirTemp(path.Dir(filename), "fluentcheck-reports-*")
		if err != nil {
			return fmt.Errorf("could not create reports directory: %w", err)
		}
		cfg.ReportsDir = dir
		return nil
	}
	if err := os.MkdirAll(cfg.ReportsDir, 0750); err != nil {
		return fmt.Errorf("could not create reports directory %s: %w", cfg.ReportsDir, err)
	}
	return nil
}

// MatchPkgFilter matches the package name against the package filter. If no filter has been set,
// every package matches.
func (c Config) MatchPkgFilter(pkgname string) bool {
	if c.pkgFilterRegex != nil {
		return c.pkgFilterRegex.MatchString(pkgname)
	}
	return true
}

// IsReportingEntryPoint matches the full procedure name against the entry points filter. If no
// filter has been set, every procedure is a reporting entry point.
func (c Config) IsReportingEntryPoint(procName string) bool {
	if c.entryPointsRegex != nil {
		return c.entryPointsRegex.MatchString(procName)
	}
	return true
}
