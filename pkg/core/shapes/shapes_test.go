// Copyright 2026 The Paddlefish Authors. SPDX-License-Identifier: Apache-2.0

package shapes

import (
	"bytes"
	"encoding/gob"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/paddlefish-ml/paddlefish/pkg/core/dtypes"
)

func TestShape(t *testing.T) {
	invalidShape := Invalid()
	require.False(t, invalidShape.Ok())

	shape0 := Make(dtypes.Float64)
	require.True(t, shape0.Ok())
	require.True(t, shape0.IsScalar())
	require.Equal(t, 0, shape0.Rank())
	require.Len(t, shape0.Dimensions, 0)
	require.Equal(t, 1, shape0.Size())
	require.Equal(t, 8, int(shape0.Memory()))

	shape1 := Make(dtypes.Float32, 4, 3, 2)
	require.True(t, shape1.Ok())
	require.False(t, shape1.IsScalar())
	require.Equal(t, 3, shape1.Rank())
	require.Len(t, shape1.Dimensions, 3)
	require.Equal(t, 4*3*2, shape1.Size())
	require.Equal(t, 4*4*3*2, int(shape1.Memory()))
	require.Equal(t, "(Float32)[4 3 2]", shape1.String())

	require.Panics(t, func() { Make(dtypes.Float32, 4, 0) })
	require.Panics(t, func() { Make(dtypes.Float32, 4, -1, 5) })

	require.Equal(t, dtypes.Int64, Scalar[int64]().DType)
}

func TestUncheckedMake(t *testing.T) {
	shape := UncheckedMake(dtypes.Float32, 4, 3, 2)
	require.True(t, shape.Equal(Make(dtypes.Float32, 4, 3, 2)))

	// No validation: invalid dimensions are the caller's problem.
	require.NotPanics(t, func() { UncheckedMake(dtypes.Float32, 4, -1) })

	// No cloning either, the dimensions slice is taken as is.
	dims := []int{2, 3}
	shape = UncheckedMake(dtypes.Int32, dims...)
	dims[0] = 7
	require.Equal(t, 7, shape.Dimensions[0])
}

func TestDim(t *testing.T) {
	shape := Make(dtypes.Float32, 4, 3, 2)
	require.Equal(t, 4, shape.Dim(0))
	require.Equal(t, 3, shape.Dim(1))
	require.Equal(t, 2, shape.Dim(2))
	require.Equal(t, 4, shape.Dim(-3))
	require.Equal(t, 2, shape.Dim(-1))
	require.Panics(t, func() { _ = shape.Dim(3) })
	require.Panics(t, func() { _ = shape.Dim(-4) })
}

func TestEqualAndClone(t *testing.T) {
	shape := Make(dtypes.Float32, 10, 20)
	require.True(t, shape.Equal(Make(dtypes.Float32, 10, 20)))
	require.False(t, shape.Equal(Make(dtypes.Float64, 10, 20)))
	require.False(t, shape.Equal(Make(dtypes.Float32, 20, 10)))
	require.True(t, shape.EqualDimensions(Make(dtypes.Int32, 10, 20)))

	shape2 := shape.Clone()
	shape2.Dimensions[0] = 7
	require.Equal(t, 10, shape.Dimensions[0])
}

func TestCheckAndAssert(t *testing.T) {
	shape := Make(dtypes.Float32, 10, 20)
	require.NoError(t, shape.CheckDims(10, 20))
	require.NoError(t, shape.CheckDims(-1, 20))
	require.Error(t, shape.CheckDims(10))
	require.Error(t, shape.CheckDims(10, 21))
	require.NoError(t, shape.Check(dtypes.Float32, 10, -1))
	require.Error(t, shape.Check(dtypes.Float64, 10, 20))
	require.NoError(t, shape.CheckRank(2))
	require.Error(t, shape.CheckRank(3))

	require.NotPanics(t, func() { shape.AssertDims(10, -1) })
	require.Panics(t, func() { shape.AssertDims(10, 21) })
	require.NotPanics(t, func() { AssertRank(shape, 2) })
	require.Panics(t, func() { Assert(shape, dtypes.Int8, 10, 20) })
}

func TestIter(t *testing.T) {
	shape := Make(dtypes.Float32, 2, 3)
	var got [][]int
	for indices := range shape.Iter() {
		// The yielded slice is owned by the iterator, copy it.
		indicesCopy := make([]int, len(indices))
		copy(indicesCopy, indices)
		got = append(got, indicesCopy)
	}
	want := [][]int{{0, 0}, {0, 1}, {0, 2}, {1, 0}, {1, 1}, {1, 2}}
	require.Equal(t, want, got)

	count := 0
	for range Scalar[float32]().Iter() {
		count++
	}
	require.Equal(t, 1, count)
}

func TestStrides(t *testing.T) {
	require.Equal(t, []int{50, 5, 1}, Make(dtypes.Float32, 4, 10, 5).Strides())
	require.Empty(t, Scalar[float64]().Strides())
}

func TestGobSerialization(t *testing.T) {
	shape := Make(dtypes.BFloat16, 4, 10, 5)
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	require.NoError(t, shape.GobSerialize(enc))

	dec := gob.NewDecoder(&buf)
	shape2, err := GobDeserialize(dec)
	require.NoError(t, err)
	require.True(t, shape.Equal(shape2))
}
