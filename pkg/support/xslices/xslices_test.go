// Copyright 2026 The Paddlefish Authors. SPDX-License-Identifier: Apache-2.0

package xslices

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAtAndLast(t *testing.T) {
	slice := []int{0, 1, 2, 3, 4, 5}
	assert.Equal(t, 5, At(slice, -1))
	assert.Equal(t, 4, At(slice, -2))
	assert.Equal(t, 1, At(slice, 1))
	assert.Equal(t, 5, Last(slice))

	SetAt(slice, -2, 7)
	assert.Equal(t, []int{0, 1, 2, 3, 7, 5}, slice)
}

func TestCopy(t *testing.T) {
	slice := []float32{1, 2, 3}
	slice2 := Copy(slice)
	slice2[0] = 100
	assert.Equal(t, []float32{1, 2, 3}, slice)
	assert.Equal(t, []float32{100, 2, 3}, slice2)
	assert.Nil(t, Copy[int](nil))
}

func TestFillSlice(t *testing.T) {
	slice := make([]float64, 17)
	FillSlice(slice, 3.0)
	for ii, v := range slice {
		assert.Equalf(t, 3.0, v, "element %d doesn't match", ii)
	}
	assert.Equal(t, []int8{2, 2, 2}, SliceWithValue(3, int8(2)))
}

func TestIota(t *testing.T) {
	assert.Equal(t, []float64{3, 4}, Iota(3.0, 2))
	assert.Equal(t, []int32{0, 1, 2, 3}, Iota(int32(0), 4))
}

func TestMap(t *testing.T) {
	count := 17
	in := make([]int, count)
	for ii := 0; ii < count; ii++ {
		in[ii] = ii
	}
	out := Map(in, func(v int) int32 { return int32(v + 1) })
	for ii := 0; ii < count; ii++ {
		assert.Equalf(t, int32(ii+1), out[ii], "element %d doesn't match", ii)
	}
}

func TestSortedKeys(t *testing.T) {
	m := map[string]int{"reshape": 0, "scale": 1, "exp": 2}
	assert.Equal(t, []string{"exp", "reshape", "scale"}, SortedKeys(m))
	assert.Len(t, Keys(m), 3)
}

func TestMax(t *testing.T) {
	assert.Equal(t, 7.0, Max([]float64{3, 7, -2}))
	assert.Equal(t, 0, Max[int](nil))
}

func TestSlicesInDelta(t *testing.T) {
	require.True(t, SlicesInDelta([][]float32{{1, 2}, {3, 4}}, [][]float32{{1, 2}, {3, 4.05}}, 0.1))
	require.False(t, SlicesInDelta([][]float32{{1, 2}, {3, 4}}, [][]float32{{1, 2}, {3, 4.05}}, 0.01))

	// Different shapes never match, whatever the delta.
	require.False(t, SlicesInDelta([]float32{1, 2, 3}, [][]float32{{1, 2, 3}}, 1e6))

	// delta <= 0 means exact equality.
	require.True(t, SlicesInDelta([]int{1, 2}, []int{1, 2}, 0))
	require.False(t, SlicesInDelta([]int{1, 2}, []int{1, 3}, 0))

	require.True(t, SlicesInDelta([]complex64{1 + 1i}, []complex64{1 + 1i}, 0))
}

func TestDeepSliceCmp(t *testing.T) {
	anyEqual := func(e0, e1 any) bool { return e0 == e1 }
	require.True(t, DeepSliceCmp([][]int{{1}, {2}}, [][]int{{1}, {2}}, anyEqual))
	require.False(t, DeepSliceCmp([][]int{{1}, {2}}, [][]int{{1}, {3}}, anyEqual))
	require.False(t, DeepSliceCmp([][]int{{1}}, [][]int{{1}, {2}}, anyEqual))
}
