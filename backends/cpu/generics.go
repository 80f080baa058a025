package cpu

import (
	"github.com/x448/float16"

	"github.com/paddlefish-ml/paddlefish/pkg/core/dtypes/bfloat16"
)

// podNumericConstraints are the Go plain-old-data numeric types the kernels operate on
// natively. Float16 and BFloat16 are specialized types, not natively supported by Go, and are
// handled separately via conversion to float32.
type podNumericConstraints interface {
	int8 | int16 | int32 | int64 | uint8 | uint16 | uint32 | uint64 | float32 | float64
}

// podNumberConstraints adds the complex types, which also support + and * natively.
type podNumberConstraints interface {
	podNumericConstraints | complex64 | complex128
}

// f16ToF32 converts a Float16 flat slice to a newly allocated float32 one.
func f16ToF32(values []float16.Float16) []float32 {
	converted := make([]float32, len(values))
	for ii, v := range values {
		converted[ii] = v.Float32()
	}
	return converted
}

// f16FromF32 converts the float32 values back into the Float16 flat slice out.
func f16FromF32(values []float32, out []float16.Float16) {
	for ii, v := range values {
		out[ii] = float16.Fromfloat32(v)
	}
}

// bf16ToF32 converts a BFloat16 flat slice to a newly allocated float32 one.
func bf16ToF32(values []bfloat16.BFloat16) []float32 {
	converted := make([]float32, len(values))
	for ii, v := range values {
		converted[ii] = v.Float32()
	}
	return converted
}

// bf16FromF32 converts the float32 values back into the BFloat16 flat slice out.
func bf16FromF32(values []float32, out []bfloat16.BFloat16) {
	for ii, v := range values {
		out[ii] = bfloat16.FromFloat32(v)
	}
}
