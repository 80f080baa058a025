package cpu

import (
	"github.com/pkg/errors"
	"github.com/x448/float16"

	"github.com/paddlefish-ml/paddlefish/backends"
	"github.com/paddlefish-ml/paddlefish/backends/shapeinference"
	"github.com/paddlefish-ml/paddlefish/pkg/core/dtypes"
	"github.com/paddlefish-ml/paddlefish/pkg/core/dtypes/bfloat16"
)

// This file implements the kernels that rearrange data without changing values: Reshape and
// Transpose.

// Reshape returns a buffer with the same data as x laid out with the given dimensions.
//
// The data is copied into a fresh buffer: kernels never alias their inputs' flat data, so the
// reshaped result and its source can be finalized independently.
func (b *Backend) Reshape(x backends.Buffer, dimensions ...int) (backends.Buffer, error) {
	input, err := b.inputBuffer(x)
	if err != nil {
		return nil, err
	}
	outputShape, err := shapeinference.ReshapeOp(input.shape, dimensions)
	if err != nil {
		return nil, err
	}
	output := b.NewBuffer(outputShape)
	copyFlat(output.flat, input.flat)
	return output, nil
}

// Transpose returns x with its axes rearranged so that result axis i is x's axis
// permutation[i].
func (b *Backend) Transpose(x backends.Buffer, permutation ...int) (backends.Buffer, error) {
	input, err := b.inputBuffer(x)
	if err != nil {
		return nil, err
	}
	outputShape, err := shapeinference.TransposeOp(input.shape, permutation)
	if err != nil {
		return nil, err
	}
	output := b.NewBuffer(outputShape)
	operandDims := input.shape.Dimensions
	switch output.shape.DType {
	case dtypes.Bool:
		execTransposeGeneric(input.flat.([]bool), output.flat.([]bool), operandDims, permutation)
	case dtypes.Int8:
		execTransposeGeneric(input.flat.([]int8), output.flat.([]int8), operandDims, permutation)
	case dtypes.Int16:
		execTransposeGeneric(input.flat.([]int16), output.flat.([]int16), operandDims, permutation)
	case dtypes.Int32:
		execTransposeGeneric(input.flat.([]int32), output.flat.([]int32), operandDims, permutation)
	case dtypes.Int64:
		execTransposeGeneric(input.flat.([]int64), output.flat.([]int64), operandDims, permutation)
	case dtypes.Uint8:
		execTransposeGeneric(input.flat.([]uint8), output.flat.([]uint8), operandDims, permutation)
	case dtypes.Uint16:
		execTransposeGeneric(input.flat.([]uint16), output.flat.([]uint16), operandDims, permutation)
	case dtypes.Uint32:
		execTransposeGeneric(input.flat.([]uint32), output.flat.([]uint32), operandDims, permutation)
	case dtypes.Uint64:
		execTransposeGeneric(input.flat.([]uint64), output.flat.([]uint64), operandDims, permutation)
	case dtypes.Float16:
		execTransposeGeneric(input.flat.([]float16.Float16), output.flat.([]float16.Float16), operandDims, permutation)
	case dtypes.Float32:
		execTransposeGeneric(input.flat.([]float32), output.flat.([]float32), operandDims, permutation)
	case dtypes.Float64:
		execTransposeGeneric(input.flat.([]float64), output.flat.([]float64), operandDims, permutation)
	case dtypes.BFloat16:
		execTransposeGeneric(input.flat.([]bfloat16.BFloat16), output.flat.([]bfloat16.BFloat16), operandDims, permutation)
	case dtypes.Complex64:
		execTransposeGeneric(input.flat.([]complex64), output.flat.([]complex64), operandDims, permutation)
	case dtypes.Complex128:
		execTransposeGeneric(input.flat.([]complex128), output.flat.([]complex128), operandDims, permutation)
	default:
		b.putBuffer(output)
		return nil, errors.Wrapf(backends.ErrNotImplemented, "Transpose for data type %s", output.shape.DType)
	}
	return output, nil
}

// execTransposeGeneric copies input into output with the axes rearranged, so that output axis
// outAxis iterates over input axis permutation[outAxis].
//
// It walks the output positions in order, keeping the matching input flat index incrementally
// updated per axis, like a multi-dimensional counter.
func execTransposeGeneric[T any](input, output []T, operandDims, permutation []int) {
	rank := len(operandDims)
	srcStrides := make([]int, rank)
	stride := 1
	for axis := rank - 1; axis >= 0; axis-- {
		srcStrides[axis] = stride
		stride *= operandDims[axis]
	}
	outputDims := make([]int, rank)
	outputStrides := make([]int, rank) // stride into the input, per output axis
	for outAxis, srcAxis := range permutation {
		outputDims[outAxis] = operandDims[srcAxis]
		outputStrides[outAxis] = srcStrides[srcAxis]
	}
	coords := make([]int, rank)
	srcIdx := 0
	for outIdx := range output {
		output[outIdx] = input[srcIdx]
		for axis := rank - 1; axis >= 0; axis-- {
			coords[axis]++
			srcIdx += outputStrides[axis]
			if coords[axis] < outputDims[axis] {
				break
			}
			coords[axis] = 0
			srcIdx -= outputStrides[axis] * outputDims[axis]
		}
	}
}
