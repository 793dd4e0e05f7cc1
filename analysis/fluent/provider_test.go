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
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/tools/go/ssa"
)

func TestStorePublishOnce(t *testing.T) {
	f := &ssa.Function{}
	store := NewSummaryStore(nil)
	first := &Summary{Proc: "first"}
	store.Update(f, first)
	store.Update(f, &Summary{Proc: "second"})
	require.Equal(t, first, store.Of(f).Value())
	// a nil store never serves on-demand lookups
	require.True(t, store.Lookup(&ssa.Function{}).IsNone())
}

func TestStoreFailedAnalysisPublishesNothing(t *testing.T) {
	f := &ssa.Function{}
	store := NewSummaryStore(func(*ssa.Function) (*Summary, error) {
		return nil, fmt.Errorf("no summary")
	})
	require.True(t, store.Lookup(f).IsNone())
	require.True(t, store.Of(f).IsNone())

	// the in-progress marker is cleared, a later publication still goes through
	store.Update(f, &Summary{Proc: "late"})
	require.True(t, store.Of(f).IsSome())
}

func TestStoreRecursionGuardResolvesToNone(t *testing.T) {
	f := &ssa.Function{}
	calls := 0
	var store *SummaryStore
	store = NewSummaryStore(func(callee *ssa.Function) (*Summary, error) {
		calls++
		// a recursive lookup observes the in-progress marker instead of waiting
		require.True(t, store.Lookup(callee).IsNone())
		return &Summary{Proc: "rec"}, nil
	})
	require.True(t, store.Lookup(f).IsSome())
	require.Equal(t, 1, calls)
}
