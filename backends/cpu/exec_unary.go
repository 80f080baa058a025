package cpu

import (
	"math"
	"math/cmplx"

	"github.com/chewxy/math32"
	"github.com/pkg/errors"
	"github.com/x448/float16"

	"github.com/paddlefish-ml/paddlefish/backends"
	"github.com/paddlefish-ml/paddlefish/backends/shapeinference"
	"github.com/paddlefish-ml/paddlefish/pkg/core/dtypes"
	"github.com/paddlefish-ml/paddlefish/pkg/core/dtypes/bfloat16"
	"github.com/paddlefish-ml/paddlefish/pkg/core/shapes"
)

// unaryOperandAndOutput validates the operand of a unary kernel and allocates its output
// buffer from the pool.
func (b *Backend) unaryOperandAndOutput(opType backends.OpType, x backends.Buffer) (input, output *Buffer, err error) {
	input, err = b.inputBuffer(x)
	if err != nil {
		return
	}
	var outputShape shapes.Shape
	outputShape, err = shapeinference.UnaryOp(opType, input.shape)
	if err != nil {
		return
	}
	output = b.NewBuffer(outputShape)
	return
}

// Exp returns e^x element-wise.
func (b *Backend) Exp(x backends.Buffer) (backends.Buffer, error) {
	input, output, err := b.unaryOperandAndOutput(backends.OpTypeExp, x)
	if err != nil {
		return nil, err
	}
	switch output.shape.DType {
	case dtypes.Float32:
		execExpF32(input.flat.([]float32), output.flat.([]float32))
	case dtypes.Float64:
		execExpF64(input.flat.([]float64), output.flat.([]float64))
	case dtypes.Float16:
		execUnaryF16(execExpF32, input.flat.([]float16.Float16), output.flat.([]float16.Float16))
	case dtypes.BFloat16:
		execUnaryBF16(execExpF32, input.flat.([]bfloat16.BFloat16), output.flat.([]bfloat16.BFloat16))
	case dtypes.Complex64:
		execExpComplex(input.flat.([]complex64), output.flat.([]complex64))
	case dtypes.Complex128:
		execExpComplex(input.flat.([]complex128), output.flat.([]complex128))
	default:
		b.putBuffer(output)
		return nil, errors.Wrapf(backends.ErrNotImplemented, "Exp for data type %s", output.shape.DType)
	}
	return output, nil
}

// Scale returns the affine transform scale*x+bias, element-wise. The scalars are given as
// float64 and converted to x's dtype.
func (b *Backend) Scale(x backends.Buffer, scale, bias float64) (backends.Buffer, error) {
	input, err := b.inputBuffer(x)
	if err != nil {
		return nil, err
	}
	outputShape, err := shapeinference.ScaleOp(input.shape)
	if err != nil {
		return nil, err
	}
	output := b.NewBuffer(outputShape)
	switch output.shape.DType {
	case dtypes.Int8:
		execScaleGeneric(input.flat.([]int8), output.flat.([]int8), scale, bias)
	case dtypes.Int16:
		execScaleGeneric(input.flat.([]int16), output.flat.([]int16), scale, bias)
	case dtypes.Int32:
		execScaleGeneric(input.flat.([]int32), output.flat.([]int32), scale, bias)
	case dtypes.Int64:
		execScaleGeneric(input.flat.([]int64), output.flat.([]int64), scale, bias)
	case dtypes.Uint8:
		execScaleGeneric(input.flat.([]uint8), output.flat.([]uint8), scale, bias)
	case dtypes.Uint16:
		execScaleGeneric(input.flat.([]uint16), output.flat.([]uint16), scale, bias)
	case dtypes.Uint32:
		execScaleGeneric(input.flat.([]uint32), output.flat.([]uint32), scale, bias)
	case dtypes.Uint64:
		execScaleGeneric(input.flat.([]uint64), output.flat.([]uint64), scale, bias)
	case dtypes.Float32:
		execScaleGeneric(input.flat.([]float32), output.flat.([]float32), scale, bias)
	case dtypes.Float64:
		execScaleGeneric(input.flat.([]float64), output.flat.([]float64), scale, bias)
	case dtypes.Complex64:
		execScaleComplex(input.flat.([]complex64), output.flat.([]complex64), scale, bias)
	case dtypes.Complex128:
		execScaleComplex(input.flat.([]complex128), output.flat.([]complex128), scale, bias)
	case dtypes.Float16:
		execUnaryF16(func(in, out []float32) {
			execScaleGeneric(in, out, scale, bias)
		}, input.flat.([]float16.Float16), output.flat.([]float16.Float16))
	case dtypes.BFloat16:
		execUnaryBF16(func(in, out []float32) {
			execScaleGeneric(in, out, scale, bias)
		}, input.flat.([]bfloat16.BFloat16), output.flat.([]bfloat16.BFloat16))
	default:
		b.putBuffer(output)
		return nil, errors.Wrapf(backends.ErrNotImplemented, "Scale for data type %s", output.shape.DType)
	}
	return output, nil
}

func execExpF32(input, output []float32) {
	for ii, v := range input {
		output[ii] = math32.Exp(v)
	}
}

func execExpF64(input, output []float64) {
	for ii, v := range input {
		output[ii] = math.Exp(v)
	}
}

func execExpComplex[T complex64 | complex128](input, output []T) {
	for ii, v := range input {
		output[ii] = T(cmplx.Exp(complex128(v)))
	}
}

func execScaleGeneric[T podNumericConstraints](input, output []T, scale, bias float64) {
	for ii, v := range input {
		output[ii] = T(float64(v)*scale + bias)
	}
}

func execScaleComplex[T complex64 | complex128](input, output []T, scale, bias float64) {
	factor, offset := T(complex(scale, 0)), T(complex(bias, 0))
	for ii, v := range input {
		output[ii] = v*factor + offset
	}
}

// execUnaryF16 runs the float32 version of a unary kernel over a Float16 operand, converting
// on the way in and out.
func execUnaryF16(kernel func(input, output []float32), input, output []float16.Float16) {
	out32 := make([]float32, len(output))
	kernel(f16ToF32(input), out32)
	f16FromF32(out32, output)
}

// execUnaryBF16 runs the float32 version of a unary kernel over a BFloat16 operand, converting
// on the way in and out.
func execUnaryBF16(kernel func(input, output []float32), input, output []bfloat16.BFloat16) {
	out32 := make([]float32, len(output))
	kernel(bf16ToF32(input), out32)
	bf16FromF32(out32, output)
}
