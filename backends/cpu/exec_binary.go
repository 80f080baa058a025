package cpu

import (
	"github.com/pkg/errors"
	"github.com/x448/float16"

	"github.com/paddlefish-ml/paddlefish/backends"
	"github.com/paddlefish-ml/paddlefish/backends/shapeinference"
	"github.com/paddlefish-ml/paddlefish/pkg/core/dtypes"
	"github.com/paddlefish-ml/paddlefish/pkg/core/dtypes/bfloat16"
	"github.com/paddlefish-ml/paddlefish/pkg/core/shapes"
)

// This file implements the element-wise binary kernels, Add and Mul.
//
// The only broadcast supported is a scalar on either side, in which case the kernel becomes
// almost a unary operation with a constant value.

// binaryOperandsAndOutput validates the operands of a binary kernel and allocates its output
// buffer from the pool.
func (b *Backend) binaryOperandsAndOutput(opType backends.OpType, x, y backends.Buffer) (lhs, rhs, output *Buffer, err error) {
	lhs, err = b.inputBuffer(x)
	if err != nil {
		return
	}
	rhs, err = b.inputBuffer(y)
	if err != nil {
		return
	}
	var outputShape shapes.Shape
	outputShape, err = shapeinference.BinaryOp(opType, lhs.shape, rhs.shape)
	if err != nil {
		return
	}
	output = b.NewBuffer(outputShape)
	return
}

// Add returns the element-wise sum x+y.
func (b *Backend) Add(x, y backends.Buffer) (backends.Buffer, error) {
	lhs, rhs, output, err := b.binaryOperandsAndOutput(backends.OpTypeAdd, x, y)
	if err != nil {
		return nil, err
	}
	switch output.shape.DType {
	case dtypes.Int8:
		execAddGeneric(lhs.flat.([]int8), rhs.flat.([]int8), output.flat.([]int8))
	case dtypes.Int16:
		execAddGeneric(lhs.flat.([]int16), rhs.flat.([]int16), output.flat.([]int16))
	case dtypes.Int32:
		execAddGeneric(lhs.flat.([]int32), rhs.flat.([]int32), output.flat.([]int32))
	case dtypes.Int64:
		execAddGeneric(lhs.flat.([]int64), rhs.flat.([]int64), output.flat.([]int64))
	case dtypes.Uint8:
		execAddGeneric(lhs.flat.([]uint8), rhs.flat.([]uint8), output.flat.([]uint8))
	case dtypes.Uint16:
		execAddGeneric(lhs.flat.([]uint16), rhs.flat.([]uint16), output.flat.([]uint16))
	case dtypes.Uint32:
		execAddGeneric(lhs.flat.([]uint32), rhs.flat.([]uint32), output.flat.([]uint32))
	case dtypes.Uint64:
		execAddGeneric(lhs.flat.([]uint64), rhs.flat.([]uint64), output.flat.([]uint64))
	case dtypes.Float32:
		execAddGeneric(lhs.flat.([]float32), rhs.flat.([]float32), output.flat.([]float32))
	case dtypes.Float64:
		execAddGeneric(lhs.flat.([]float64), rhs.flat.([]float64), output.flat.([]float64))
	case dtypes.Complex64:
		execAddGeneric(lhs.flat.([]complex64), rhs.flat.([]complex64), output.flat.([]complex64))
	case dtypes.Complex128:
		execAddGeneric(lhs.flat.([]complex128), rhs.flat.([]complex128), output.flat.([]complex128))
	case dtypes.Float16:
		execBinaryF16(execAddGeneric[float32], lhs.flat.([]float16.Float16), rhs.flat.([]float16.Float16), output.flat.([]float16.Float16))
	case dtypes.BFloat16:
		execBinaryBF16(execAddGeneric[float32], lhs.flat.([]bfloat16.BFloat16), rhs.flat.([]bfloat16.BFloat16), output.flat.([]bfloat16.BFloat16))
	default:
		b.putBuffer(output)
		return nil, errors.Wrapf(backends.ErrNotImplemented, "Add for data type %s", output.shape.DType)
	}
	return output, nil
}

// Mul returns the element-wise product x*y.
func (b *Backend) Mul(x, y backends.Buffer) (backends.Buffer, error) {
	lhs, rhs, output, err := b.binaryOperandsAndOutput(backends.OpTypeMul, x, y)
	if err != nil {
		return nil, err
	}
	switch output.shape.DType {
	case dtypes.Int8:
		execMulGeneric(lhs.flat.([]int8), rhs.flat.([]int8), output.flat.([]int8))
	case dtypes.Int16:
		execMulGeneric(lhs.flat.([]int16), rhs.flat.([]int16), output.flat.([]int16))
	case dtypes.Int32:
		execMulGeneric(lhs.flat.([]int32), rhs.flat.([]int32), output.flat.([]int32))
	case dtypes.Int64:
		execMulGeneric(lhs.flat.([]int64), rhs.flat.([]int64), output.flat.([]int64))
	case dtypes.Uint8:
		execMulGeneric(lhs.flat.([]uint8), rhs.flat.([]uint8), output.flat.([]uint8))
	case dtypes.Uint16:
		execMulGeneric(lhs.flat.([]uint16), rhs.flat.([]uint16), output.flat.([]uint16))
	case dtypes.Uint32:
		execMulGeneric(lhs.flat.([]uint32), rhs.flat.([]uint32), output.flat.([]uint32))
	case dtypes.Uint64:
		execMulGeneric(lhs.flat.([]uint64), rhs.flat.([]uint64), output.flat.([]uint64))
	case dtypes.Float32:
		execMulGeneric(lhs.flat.([]float32), rhs.flat.([]float32), output.flat.([]float32))
	case dtypes.Float64:
		execMulGeneric(lhs.flat.([]float64), rhs.flat.([]float64), output.flat.([]float64))
	case dtypes.Complex64:
		execMulGeneric(lhs.flat.([]complex64), rhs.flat.([]complex64), output.flat.([]complex64))
	case dtypes.Complex128:
		execMulGeneric(lhs.flat.([]complex128), rhs.flat.([]complex128), output.flat.([]complex128))
	case dtypes.Float16:
		execBinaryF16(execMulGeneric[float32], lhs.flat.([]float16.Float16), rhs.flat.([]float16.Float16), output.flat.([]float16.Float16))
	case dtypes.BFloat16:
		execBinaryBF16(execMulGeneric[float32], lhs.flat.([]bfloat16.BFloat16), rhs.flat.([]bfloat16.BFloat16), output.flat.([]bfloat16.BFloat16))
	default:
		b.putBuffer(output)
		return nil, errors.Wrapf(backends.ErrNotImplemented, "Mul for data type %s", output.shape.DType)
	}
	return output, nil
}

func execAddGeneric[T podNumberConstraints](lhs, rhs, output []T) {
	switch {
	case len(lhs) == 1:
		c := lhs[0]
		for ii, v := range rhs {
			output[ii] = c + v
		}
	case len(rhs) == 1:
		c := rhs[0]
		for ii, v := range lhs {
			output[ii] = v + c
		}
	default:
		for ii, v := range lhs {
			output[ii] = v + rhs[ii]
		}
	}
}

func execMulGeneric[T podNumberConstraints](lhs, rhs, output []T) {
	switch {
	case len(lhs) == 1:
		c := lhs[0]
		for ii, v := range rhs {
			output[ii] = c * v
		}
	case len(rhs) == 1:
		c := rhs[0]
		for ii, v := range lhs {
			output[ii] = v * c
		}
	default:
		for ii, v := range lhs {
			output[ii] = v * rhs[ii]
		}
	}
}

// execBinaryF16 runs the float32 version of a binary kernel over Float16 operands, converting
// on the way in and out.
func execBinaryF16(kernel func(lhs, rhs, output []float32), lhs, rhs, output []float16.Float16) {
	out32 := make([]float32, len(output))
	kernel(f16ToF32(lhs), f16ToF32(rhs), out32)
	f16FromF32(out32, output)
}

// execBinaryBF16 runs the float32 version of a binary kernel over BFloat16 operands,
// converting on the way in and out.
func execBinaryBF16(kernel func(lhs, rhs, output []float32), lhs, rhs, output []bfloat16.BFloat16) {
	out32 := make([]float32, len(output))
	kernel(bf16ToF32(lhs), bf16ToF32(rhs), out32)
	bf16FromF32(out32, output)
}
