package cpu

import (
	"github.com/pkg/errors"
	"github.com/x448/float16"

	"github.com/paddlefish-ml/paddlefish/backends"
	"github.com/paddlefish-ml/paddlefish/backends/shapeinference"
	"github.com/paddlefish-ml/paddlefish/pkg/core/dtypes"
	"github.com/paddlefish-ml/paddlefish/pkg/core/dtypes/bfloat16"
)

// ReduceSum sums x over the given axes, which are removed from the result shape. If no axes
// are given, it reduces over all axes and returns a scalar.
func (b *Backend) ReduceSum(x backends.Buffer, axes ...int) (backends.Buffer, error) {
	input, err := b.inputBuffer(x)
	if err != nil {
		return nil, err
	}
	outputShape, err := shapeinference.ReduceOp(input.shape, axes)
	if err != nil {
		return nil, err
	}
	output := b.NewBuffer(outputShape)

	// Per input axis, the stride into the output's flat data. Reduced axes contribute stride
	// 0, so every input position along them accumulates into the same output position.
	rank := input.shape.Rank()
	reduced := make([]bool, rank)
	if len(axes) == 0 {
		for axis := range reduced {
			reduced[axis] = true
		}
	} else {
		for _, axis := range axes {
			reduced[axis] = true
		}
	}
	outputStrides := make([]int, rank)
	stride := 1
	for axis := rank - 1; axis >= 0; axis-- {
		if !reduced[axis] {
			outputStrides[axis] = stride
			stride *= input.shape.Dimensions[axis]
		}
	}

	operandDims := input.shape.Dimensions
	switch output.shape.DType {
	case dtypes.Int8:
		execReduceSumGeneric(input.flat.([]int8), output.flat.([]int8), operandDims, outputStrides)
	case dtypes.Int16:
		execReduceSumGeneric(input.flat.([]int16), output.flat.([]int16), operandDims, outputStrides)
	case dtypes.Int32:
		execReduceSumGeneric(input.flat.([]int32), output.flat.([]int32), operandDims, outputStrides)
	case dtypes.Int64:
		execReduceSumGeneric(input.flat.([]int64), output.flat.([]int64), operandDims, outputStrides)
	case dtypes.Uint8:
		execReduceSumGeneric(input.flat.([]uint8), output.flat.([]uint8), operandDims, outputStrides)
	case dtypes.Uint16:
		execReduceSumGeneric(input.flat.([]uint16), output.flat.([]uint16), operandDims, outputStrides)
	case dtypes.Uint32:
		execReduceSumGeneric(input.flat.([]uint32), output.flat.([]uint32), operandDims, outputStrides)
	case dtypes.Uint64:
		execReduceSumGeneric(input.flat.([]uint64), output.flat.([]uint64), operandDims, outputStrides)
	case dtypes.Float32:
		execReduceSumGeneric(input.flat.([]float32), output.flat.([]float32), operandDims, outputStrides)
	case dtypes.Float64:
		execReduceSumGeneric(input.flat.([]float64), output.flat.([]float64), operandDims, outputStrides)
	case dtypes.Complex64:
		execReduceSumGeneric(input.flat.([]complex64), output.flat.([]complex64), operandDims, outputStrides)
	case dtypes.Complex128:
		execReduceSumGeneric(input.flat.([]complex128), output.flat.([]complex128), operandDims, outputStrides)
	case dtypes.Float16:
		// Accumulate in float32 for precision, convert at the end.
		out32 := make([]float32, output.shape.Size())
		execReduceSumGeneric(f16ToF32(input.flat.([]float16.Float16)), out32, operandDims, outputStrides)
		f16FromF32(out32, output.flat.([]float16.Float16))
	case dtypes.BFloat16:
		out32 := make([]float32, output.shape.Size())
		execReduceSumGeneric(bf16ToF32(input.flat.([]bfloat16.BFloat16)), out32, operandDims, outputStrides)
		bf16FromF32(out32, output.flat.([]bfloat16.BFloat16))
	default:
		b.putBuffer(output)
		return nil, errors.Wrapf(backends.ErrNotImplemented, "ReduceSum for data type %s", output.shape.DType)
	}
	return output, nil
}

// execReduceSumGeneric accumulates input into output. outputStrides gives, per input axis,
// the stride into the output's flat data, with reduced axes at stride 0.
//
// The output comes from the pool and may hold left-over values, so it is zeroed first.
func execReduceSumGeneric[T podNumberConstraints](input, output []T, operandDims, outputStrides []int) {
	clear(output)
	rank := len(operandDims)
	coords := make([]int, rank)
	outIdx := 0
	for _, v := range input {
		output[outIdx] += v
		for axis := rank - 1; axis >= 0; axis-- {
			coords[axis]++
			outIdx += outputStrides[axis]
			if coords[axis] < operandDims[axis] {
				break
			}
			coords[axis] = 0
			outIdx -= outputStrides[axis] * operandDims[axis]
		}
	}
}
