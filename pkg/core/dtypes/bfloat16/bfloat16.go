// Copyright 2026 The Paddlefish Authors. SPDX-License-Identifier: Apache-2.0

// Package bfloat16 is a trivial implementation of the bfloat16 ("brain float")
// type: a float32 with the lower 16 mantissa bits dropped.
//
// It mirrors the API of github.com/x448/float16, which Paddlefish uses for the
// IEEE half-precision type.
package bfloat16

import (
	"math"
	"strconv"
)

// BFloat16 is a 16-bit truncation of the 32-bit IEEE 754 single-precision
// format: 1 sign bit, 8 exponent bits and 7 mantissa bits. It keeps float32's
// dynamic range at the cost of precision, which is usually the right trade
// for machine-learning workloads.
type BFloat16 uint16

// Float32 converts back to a float32. The conversion is exact.
func (f BFloat16) Float32() float32 {
	return math.Float32frombits(uint32(f) << 16)
}

// FromFloat32 converts a float32 to a BFloat16, truncating the mantissa.
func FromFloat32(x float32) BFloat16 {
	return BFloat16(math.Float32bits(x) >> 16)
}

// FromFloat64 converts a float64 to a BFloat16.
func FromFloat64(x float64) BFloat16 {
	return FromFloat32(float32(x))
}

// FromBits converts an uint16 to a BFloat16.
func FromBits(bits uint16) BFloat16 {
	return BFloat16(bits)
}

// Bits converts BFloat16 to an uint16.
func (f BFloat16) Bits() uint16 {
	return uint16(f)
}

// String implements fmt.Stringer, and prints a float representation of the BFloat16.
func (f BFloat16) String() string {
	return strconv.FormatFloat(float64(f.Float32()), 'f', -1, 32)
}

// Inf returns a BFloat16 infinity with the given sign. A sign >= 0 returns
// positive infinity, a sign < 0 negative infinity.
func Inf(sign int) BFloat16 {
	return FromFloat32(float32(math.Inf(sign)))
}

// SmallestNonzero is the smallest nonzero denormal value for bfloat16,
// the equivalent of math.SmallestNonzeroFloat32 for this type.
const SmallestNonzero = BFloat16(0x0001)
