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

// Package funcutil implements utilities for manipulating functions, and functions for generic containers
package funcutil

import (
	"sort"

	"golang.org/x/exp/constraints"
)

// Merge merges the two maps, preferring the values of the first map when the function both is not provided.
// Modifies a in place.
func Merge[T comparable, S any](a map[T]S, b map[T]S, both func(x S, y S) S) {
	for k, v := range b {
		if v0, ok := a[k]; ok && both != nil {
			a[k] = both(v0, v)
		} else {
			a[k] = v
		}
	}
}

// MapInPlace applies f to every element in the slice a, replacing the element with the result
func MapInPlace[T any](a []T, f func(T) T) {
	for i, x := range a {
		a[i] = f(x)
	}
}

// Exists returns true if there is some x in a such that f(x) is true
func Exists[T any](a []T, f func(T) bool) bool {
	for _, x := range a {
		if f(x) {
			return true
		}
	}
	return false
}

// Contains returns true when x is an element of a
func Contains[T comparable](a []T, x T) bool {
	return Exists(a, func(y T) bool { return x == y })
}

// SetToOrderedSlice returns the keys of the set as a sorted slice
func SetToOrderedSlice[T constraints.Ordered](set map[T]bool) []T {
	a := make([]T, 0, len(set))
	for x := range set {
		a = append(a, x)
	}
	sort.Slice(a, func(i, j int) bool { return a[i] < a[j] })
	return a
}
