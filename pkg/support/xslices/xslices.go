// Copyright 2026 The Paddlefish Authors. SPDX-License-Identifier: Apache-2.0

// Package xslices complements the standard slices package with the helpers used
// across Paddlefish: negative indexing, deep multidimensional comparison and
// small generators used by tensors and tests.
package xslices

import (
	"cmp"
	"fmt"
	"math"
	"math/cmplx"
	"reflect"
	"sort"
	"strings"

	"golang.org/x/exp/constraints"
)

// At returns the element at the given index, where a negative index counts
// from the end of the slice.
func At[T any](slice []T, index int) T {
	if index < 0 {
		index = len(slice) + index
	}
	return slice[index]
}

// SetAt sets the element at the given index, where a negative index counts
// from the end of the slice.
func SetAt[T any](slice []T, index int, value T) {
	if index < 0 {
		index = len(slice) + index
	}
	slice[index] = value
}

// Last returns the last element of a slice.
func Last[T any](slice []T) T {
	return At(slice, -1)
}

// Copy returns a new shallow copy of the slice. A nil slice stays nil.
func Copy[T any](slice []T) []T {
	if len(slice) == 0 {
		return nil
	}
	slice2 := make([]T, len(slice))
	copy(slice2, slice)
	return slice2
}

// FillSlice fills the slice with the given value.
func FillSlice[T any](slice []T, value T) {
	if len(slice) == 0 {
		return
	}
	slice[0] = value
	for filled := 1; filled < len(slice); filled *= 2 {
		copy(slice[filled:], slice[:filled])
	}
}

// SliceWithValue creates a slice of the given size filled with the given value.
func SliceWithValue[T any](size int, value T) []T {
	s := make([]T, size)
	FillSlice(s, value)
	return s
}

// Iota returns a slice of incremental values, starting at start, of the
// given length. Eg: Iota(3.0, 2) -> []float64{3.0, 4.0}
func Iota[T interface {
	constraints.Integer | constraints.Float
}](start T, length int) (slice []T) {
	slice = make([]T, length)
	for ii := range slice {
		slice[ii] = start + T(ii)
	}
	return
}

// Map executes the given function for every element of in, returning the
// mapped slice.
func Map[In, Out any](in []In, fn func(e In) Out) (out []Out) {
	out = make([]Out, len(in))
	for ii, e := range in {
		out[ii] = fn(e)
	}
	return
}

// SliceToGoStr converts the slice to text, in a Go-syntax style that can be copy&pasted back to Go
// code. Similar to the %#v formatting option, but without repeating the inner dimension slice types.
func SliceToGoStr(slice any) string {
	return fmt.Sprintf("%T%v", slice, recursiveSliceToGoStr(slice))
}

func recursiveSliceToGoStr(slice any) string {
	sliceT := reflect.TypeOf(slice)
	if sliceT.Kind() != reflect.Slice {
		return fmt.Sprintf("%v", slice)
	}
	sliceV := reflect.ValueOf(slice)
	parts := make([]string, 0, sliceV.Len())
	for ii := 0; ii < sliceV.Len(); ii++ {
		parts = append(parts, recursiveSliceToGoStr(sliceV.Index(ii).Interface()))
	}
	return fmt.Sprintf("{%s}", strings.Join(parts, ", "))
}

// Keys returns the keys of a map as a slice, in undefined order.
func Keys[K comparable, V any](m map[K]V) []K {
	s := make([]K, 0, len(m))
	for k := range m {
		s = append(s, k)
	}
	return s
}

// SortedKeys returns the keys of a map as a sorted slice.
func SortedKeys[K cmp.Ordered, V any](m map[K]V) []K {
	s := Keys(m)
	sort.Slice(s, func(i, j int) bool {
		return s[i] < s[j]
	})
	return s
}

// Max scans the slice and returns the largest value.
func Max[T cmp.Ordered](slice []T) (largest T) {
	if len(slice) == 0 {
		return
	}
	largest = slice[0]
	for _, v := range slice {
		if largest < v {
			largest = v
		}
	}
	return
}

// SlicesInDelta checks whether the multidimensional slices s0 and s1 have the
// same shape and element types, and that every pair of values is within the
// given delta. It works for any numeric element type.
//
// If delta <= 0 it checks for exact equality instead.
func SlicesInDelta(s0, s1 any, delta float64) bool {
	cmpFn := func(e0, e1 any) bool {
		if reflect.TypeOf(e0).Kind() != reflect.TypeOf(e1).Kind() {
			return false
		}
		if reflect.DeepEqual(e0, e1) {
			return true
		}
		if delta <= 0 {
			return false
		}

		e0v := reflect.ValueOf(e0)
		e1v := reflect.ValueOf(e1)
		kind := reflect.TypeOf(e0).Kind()
		if kind == reflect.Complex64 || kind == reflect.Complex128 {
			return cmplx.Abs(e0v.Complex()-e1v.Complex()) <= delta
		}

		deltaType := reflect.TypeOf(delta)
		if !e0v.CanConvert(deltaType) {
			// Not numeric, and not equal.
			return false
		}
		e0Float := e0v.Convert(deltaType).Float()
		e1Float := e1v.Convert(deltaType).Float()
		return math.Abs(e0Float-e1Float) <= delta
	}
	return DeepSliceCmp(s0, s1, cmpFn)
}

// DeepSliceCmp returns false if the given slices have different shapes, or if
// cmpFn returns false for any pair of corresponding elements.
func DeepSliceCmp(s0, s1 any, cmpFn func(e0, e1 any) bool) bool {
	return recursiveDeepSliceCmp(reflect.ValueOf(s0), reflect.ValueOf(s1), cmpFn)
}

func recursiveDeepSliceCmp(s0, s1 reflect.Value, cmpFn func(e0, e1 any) bool) bool {
	if !s0.IsValid() || !s1.IsValid() {
		return false
	}
	if s0.Type().Kind() != s1.Type().Kind() {
		fmt.Printf("*** Kinds are different: %s, %s\n", s0.Type().Kind(), s1.Type().Kind())
		return false
	}
	if s0.Type().Kind() != reflect.Slice {
		return cmpFn(s0.Interface(), s1.Interface())
	}
	if s0.Len() != s1.Len() {
		return false
	}
	for ii := 0; ii < s0.Len(); ii++ {
		if !recursiveDeepSliceCmp(s0.Index(ii), s1.Index(ii), cmpFn) {
			return false
		}
	}
	return true
}
