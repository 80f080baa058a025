// Copyright 2026 The Paddlefish Authors. SPDX-License-Identifier: Apache-2.0

package dtypes

import (
	"math"
	"reflect"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/x448/float16"

	"github.com/paddlefish-ml/paddlefish/pkg/core/dtypes/bfloat16"
)

func TestFromGenericsType(t *testing.T) {
	assert.Equal(t, Float32, FromGenericsType[float32]())
	assert.Equal(t, Float64, FromGenericsType[float64]())
	assert.Equal(t, Float16, FromGenericsType[float16.Float16]())
	assert.Equal(t, BFloat16, FromGenericsType[bfloat16.BFloat16]())
	assert.Equal(t, Int8, FromGenericsType[int8]())
	assert.Equal(t, Uint64, FromGenericsType[uint64]())
	assert.Equal(t, Bool, FromGenericsType[bool]())
	assert.Equal(t, Complex128, FromGenericsType[complex128]())
}

func TestFromAny(t *testing.T) {
	assert.Equal(t, Int64, FromAny(int64(7)))
	assert.Equal(t, Float32, FromAny(float32(13)))
	assert.Equal(t, BFloat16, FromAny(bfloat16.FromFloat32(1.0)))
	assert.Equal(t, Float16, FromAny(float16.Fromfloat32(3.0)))
	assert.Equal(t, InvalidDType, FromAny("not a number"))
}

func TestNames(t *testing.T) {
	assert.Equal(t, "Float32", Float32.String())
	assert.Equal(t, "BFloat16", BF16.String())
	for _, name := range []string{"Float16", "float16", "F16", "f16"} {
		assert.Equalf(t, Float16, MapOfNames[name], "MapOfNames[%q]", name)
	}
	assert.Equal(t, Float64, FromString("f64"))
	assert.Equal(t, InvalidDType, FromString("quaternion"))
}

func TestSize(t *testing.T) {
	assert.Equal(t, 8, Int64.Size())
	assert.Equal(t, 4, Float32.Size())
	assert.Equal(t, 2, BFloat16.Size())
	assert.Equal(t, 2, Float16.Size())
	assert.Equal(t, 16, Float16.Bits())

	assert.Equal(t, 2*3*8, Int64.SizeForDimensions(2, 3))
	assert.Equal(t, 4, Float32.SizeForDimensions())
	assert.Equal(t, 2, BFloat16.SizeForDimensions(1, 1, 1))
}

func TestGoTypes(t *testing.T) {
	assert.Equal(t, "float32", Float32.GoStr())
	assert.Equal(t, "Float16", F16.GoStr())
	assert.Equal(t, Float32, FromGoType(Float32.GoType()))
	assert.Equal(t, BFloat16, FromGoType(BFloat16.GoType()))

	// Go's `int` maps to the platform-sized integer dtype.
	switch strconv.IntSize {
	case 64:
		assert.Equal(t, Int64, FromGoType(reflect.TypeOf(int(0))))
	case 32:
		assert.Equal(t, Int32, FromGoType(reflect.TypeOf(int(0))))
	}
	assert.Equal(t, InvalidDType, FromGoType(reflect.TypeOf("")))
	assert.Equal(t, InvalidDType, FromGoType(reflect.TypeOf([]float32{})))
}

func TestHighestLowestSmallestValues(t *testing.T) {
	require.True(t, math.IsInf(Float64.HighestValue().(float64), 1))
	require.True(t, math.IsInf(float64(Float32.LowestValue().(float32)), -1))

	_, ok := Float16.SmallestNonZeroValueForDType().(float16.Float16)
	require.True(t, ok)
	_, ok = BFloat16.SmallestNonZeroValueForDType().(bfloat16.BFloat16)
	require.True(t, ok)

	// Complex numbers are not ordered, they return 0 instead.
	assert.Equal(t, complex64(0), Complex64.HighestValue().(complex64))
	assert.Equal(t, complex128(0), Complex128.LowestValue().(complex128))
}

func TestPredicates(t *testing.T) {
	assert.True(t, Float16.IsFloat())
	assert.True(t, BFloat16.IsFloat16())
	assert.False(t, Float32.IsFloat16())
	assert.True(t, Int8.IsInt())
	assert.True(t, Uint32.IsUnsigned())
	assert.False(t, Int32.IsUnsigned())
	assert.True(t, Complex64.IsComplex())
	assert.Equal(t, Float32, Complex64.RealDType())
	assert.Equal(t, Float64, Float64.RealDType())
	assert.Equal(t, InvalidDType, Int32.RealDType())
	assert.True(t, Float32.IsSupported())
	assert.False(t, InvalidDType.IsSupported())
}

func TestIsPromotableTo(t *testing.T) {
	assert.True(t, Float32.IsPromotableTo(Float64))
	assert.False(t, Float64.IsPromotableTo(Float32))
	assert.False(t, Int8.IsPromotableTo(Float32))
	assert.True(t, Int16.IsPromotableTo(Int64))
	assert.True(t, Float16.IsPromotableTo(BFloat16))
}
