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

// Package funcutil contains generic helpers over slices and sets.
package funcutil

import (
	"sort"
	"sync"

	"golang.org/x/exp/constraints"
)

// MapInPlace replaces every element x of a by f(x).
func MapInPlace[T any](a []T, f func(T) T) {
	for i, x := range a {
		a[i] = f(x)
	}
}

// Map returns a new slice b such for any i < len(a), b[i] = f(a[i]). It returns nil when a is empty.
func Map[T any, S any](a []T, f func(T) S) []S {
	if len(a) == 0 {
		return nil
	}
	b := make([]S, len(a))
	for i, x := range a {
		b[i] = f(x)
	}
	return b
}

// MapParallel is a parallel version of Map using numRoutines goroutines. The order of the results is the order of
// a, whatever the order in which the calls to f finish.
func MapParallel[T any, S any](a []T, f func(T) S, numRoutines int) []S {
	res := make([]S, len(a))
	if numRoutines <= 0 {
		numRoutines = 1
	}
	if numRoutines > len(a) {
		numRoutines = len(a)
	}
	indexes := make(chan int)
	var wg sync.WaitGroup
	wg.Add(numRoutines)
	for r := 0; r < numRoutines; r++ {
		go func() {
			defer wg.Done()
			for i := range indexes {
				res[i] = f(a[i])
			}
		}()
	}
	for i := range a {
		indexes <- i
	}
	close(indexes)
	wg.Wait()
	return res
}

// Exists returns true when there exists some x in slice a such that f(x), otherwise false.
func Exists[T any](a []T, f func(T) bool) bool {
	for _, x := range a {
		if f(x) {
			return true
		}
	}
	return false
}

// Contains returns true when there is some y in slice a such that x == y
func Contains[T comparable](a []T, x T) bool {
	return Exists(a, func(y T) bool { return x == y })
}

// SetToOrderedSlice converts a set represented as a map from elements to booleans into a slice.
// Sorts the result in increasing order
func SetToOrderedSlice[T constraints.Ordered](set map[T]bool) []T {
	var s []T
	for r, b := range set {
		if b {
			s = append(s, r)
		}
	}
	sort.Slice(s, func(i int, j int) bool { return s[i] < s[j] })
	return s
}
