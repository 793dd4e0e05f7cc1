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

package funcutil

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOptional(t *testing.T) {
	x := Some(3)
	require.True(t, x.IsSome())
	require.False(t, x.IsNone())
	require.Equal(t, 3, x.Value())
	require.Equal(t, 3, x.ValueOr(0))

	y := None[int]()
	require.True(t, y.IsNone())
	require.Equal(t, 42, y.ValueOr(42))

	z := MapOption(x, func(n int) string { return strconv.Itoa(n) })
	require.Equal(t, "3", z.Value())
	require.True(t, MapOption(y, strconv.Itoa).IsNone())
}

func TestMerge(t *testing.T) {
	a := map[string]int{"x": 1, "y": 2}
	b := map[string]int{"y": 10, "z": 3}
	Merge(a, b, func(u int, v int) int { return u + v })
	require.Equal(t, map[string]int{"x": 1, "y": 12, "z": 3}, a)
}

func TestMapInPlace(t *testing.T) {
	a := []int{1, 2, 3}
	MapInPlace(a, func(n int) int { return n * n })
	require.Equal(t, []int{1, 4, 9}, a)
}

func TestExistsContains(t *testing.T) {
	a := []int{1, 2, 3}
	require.True(t, Exists(a, func(n int) bool { return n > 2 }))
	require.False(t, Exists(a, func(n int) bool { return n > 3 }))
	require.True(t, Contains(a, 2))
	require.False(t, Contains(a, 5))
}

func TestSetToOrderedSlice(t *testing.T) {
	set := map[string]bool{"b": true, "a": true, "c": true}
	require.Equal(t, []string{"a", "b", "c"}, SetToOrderedSlice(set))
}
