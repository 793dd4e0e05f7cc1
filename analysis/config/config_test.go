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

package config_test

import (
	"path/filepath"
	"testing"

	"github.com/awslabs/fluentcheck/analysis/config"
	"github.com/stretchr/testify/require"
)

func loadTestConfig(t *testing.T) *config.Config {
	cfg, err := config.Load(filepath.Join("testdata", "config.yaml"))
	require.NoError(t, err)
	return cfg
}

func TestLoadConfig(t *testing.T) {
	cfg := loadTestConfig(t)
	require.Equal(t, 4, cfg.LogLevel)
	require.Equal(t, 2, cfg.MaxPathSuffixLength)
	require.True(t, cfg.OnDemandSummaries)
	require.Len(t, cfg.BuilderProblems, 1)

	spec := cfg.BuilderProblems[0]
	require.True(t, spec.ValueReceiversOnly)
	require.True(t, spec.IsRequiredStep("WithTimeout"))
	require.False(t, spec.IsRequiredStep("WithRetries"))
	require.Equal(t, [][]string{{"WithTLS", "WithInsecure"}}, spec.ExclusiveSteps)
}

func TestPkgFilter(t *testing.T) {
	cfg := loadTestConfig(t)
	require.True(t, cfg.MatchPkgFilter("github.com/example/req"))
	require.False(t, cfg.MatchPkgFilter("github.com/other/pkg"))

	// without a filter every package matches
	require.True(t, config.NewDefault().MatchPkgFilter("anything"))
}

func TestFactoryIdentifierMatching(t *testing.T) {
	cfg := loadTestConfig(t)
	factory := cfg.BuilderProblems[0].Factories[0]
	require.True(t, factory.MatchesFunc("github.com/example/req", "", "NewBuilder"))
	require.True(t, factory.MatchesFunc("github.com/example/req", "", "New"))
	require.False(t, factory.MatchesFunc("github.com/example/req", "", "MakeBuilder"))
	require.False(t, factory.MatchesFunc("github.com/other", "", "NewBuilder"))
}

func TestBuilderTypeMatching(t *testing.T) {
	cfg := loadTestConfig(t)
	builder := cfg.BuilderProblems[0].Builders[0]
	require.True(t, builder.MatchesType("Builder"))
	require.False(t, builder.MatchesType("RequestBuilder"))
}

func TestTerminalMatching(t *testing.T) {
	cfg := loadTestConfig(t)
	terminal := cfg.BuilderProblems[0].Terminals[0]
	require.True(t, terminal.MatchesFunc("anypkg", "Builder", "Build"))
	require.False(t, terminal.MatchesFunc("anypkg", "Builder", "Builds"))
	require.False(t, terminal.MatchesFunc("anypkg", "Other", "Build"))
}

func TestDefaults(t *testing.T) {
	cfg := config.NewDefault()
	require.Equal(t, config.DefaultMaxPathSuffixLength, cfg.MaxPathSuffixLength)
	require.Equal(t, int(config.InfoLevel), cfg.LogLevel)
	require.True(t, cfg.IsReportingEntryPoint("any.procedure"))
}

func TestLoadMissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join("testdata", "does-not-exist.yaml"))
	require.Error(t, err)
}

func TestLoadRejectsShortExclusiveSteps(t *testing.T) {
	_, err := config.Load(filepath.Join("testdata", "bad-exclusive.yaml"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "exclusive-steps")
}
