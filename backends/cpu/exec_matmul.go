package cpu

import (
	"github.com/pkg/errors"
	"github.com/x448/float16"
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"
	"gonum.org/v1/gonum/blas/blas64"

	"github.com/paddlefish-ml/paddlefish/backends"
	"github.com/paddlefish-ml/paddlefish/backends/shapeinference"
	"github.com/paddlefish-ml/paddlefish/pkg/core/dtypes"
	"github.com/paddlefish-ml/paddlefish/pkg/core/dtypes/bfloat16"
)

// MatMul returns the rank-2 matrix product x·y, after transposing either side if requested.
//
// Float32 and Float64 go through gonum's BLAS (blas32/blas64 Gemm). Float16 and BFloat16 are
// converted to float32 and take the same path. The remaining number dtypes use a plain triple
// loop.
func (b *Backend) MatMul(x, y backends.Buffer, transposeX, transposeY bool) (backends.Buffer, error) {
	lhs, err := b.inputBuffer(x)
	if err != nil {
		return nil, err
	}
	rhs, err := b.inputBuffer(y)
	if err != nil {
		return nil, err
	}
	outputShape, err := shapeinference.MatMulOp(lhs.shape, rhs.shape, transposeX, transposeY)
	if err != nil {
		return nil, err
	}
	output := b.NewBuffer(outputShape)
	lhsDims, rhsDims := lhs.shape.Dimensions, rhs.shape.Dimensions
	switch output.shape.DType {
	case dtypes.Float32:
		execMatMulF32(lhs.flat.([]float32), lhsDims, rhs.flat.([]float32), rhsDims,
			output.flat.([]float32), transposeX, transposeY)
	case dtypes.Float64:
		execMatMulF64(lhs.flat.([]float64), lhsDims, rhs.flat.([]float64), rhsDims,
			output.flat.([]float64), transposeX, transposeY)
	case dtypes.Float16:
		out32 := make([]float32, output.shape.Size())
		execMatMulF32(f16ToF32(lhs.flat.([]float16.Float16)), lhsDims, f16ToF32(rhs.flat.([]float16.Float16)), rhsDims,
			out32, transposeX, transposeY)
		f16FromF32(out32, output.flat.([]float16.Float16))
	case dtypes.BFloat16:
		out32 := make([]float32, output.shape.Size())
		execMatMulF32(bf16ToF32(lhs.flat.([]bfloat16.BFloat16)), lhsDims, bf16ToF32(rhs.flat.([]bfloat16.BFloat16)), rhsDims,
			out32, transposeX, transposeY)
		bf16FromF32(out32, output.flat.([]bfloat16.BFloat16))
	case dtypes.Int8:
		execMatMulGeneric(lhs.flat.([]int8), lhsDims, rhs.flat.([]int8), rhsDims, output.flat.([]int8), transposeX, transposeY)
	case dtypes.Int16:
		execMatMulGeneric(lhs.flat.([]int16), lhsDims, rhs.flat.([]int16), rhsDims, output.flat.([]int16), transposeX, transposeY)
	case dtypes.Int32:
		execMatMulGeneric(lhs.flat.([]int32), lhsDims, rhs.flat.([]int32), rhsDims, output.flat.([]int32), transposeX, transposeY)
	case dtypes.Int64:
		execMatMulGeneric(lhs.flat.([]int64), lhsDims, rhs.flat.([]int64), rhsDims, output.flat.([]int64), transposeX, transposeY)
	case dtypes.Uint8:
		execMatMulGeneric(lhs.flat.([]uint8), lhsDims, rhs.flat.([]uint8), rhsDims, output.flat.([]uint8), transposeX, transposeY)
	case dtypes.Uint16:
		execMatMulGeneric(lhs.flat.([]uint16), lhsDims, rhs.flat.([]uint16), rhsDims, output.flat.([]uint16), transposeX, transposeY)
	case dtypes.Uint32:
		execMatMulGeneric(lhs.flat.([]uint32), lhsDims, rhs.flat.([]uint32), rhsDims, output.flat.([]uint32), transposeX, transposeY)
	case dtypes.Uint64:
		execMatMulGeneric(lhs.flat.([]uint64), lhsDims, rhs.flat.([]uint64), rhsDims, output.flat.([]uint64), transposeX, transposeY)
	case dtypes.Complex64:
		execMatMulGeneric(lhs.flat.([]complex64), lhsDims, rhs.flat.([]complex64), rhsDims, output.flat.([]complex64), transposeX, transposeY)
	case dtypes.Complex128:
		execMatMulGeneric(lhs.flat.([]complex128), lhsDims, rhs.flat.([]complex128), rhsDims, output.flat.([]complex128), transposeX, transposeY)
	default:
		b.putBuffer(output)
		return nil, errors.Wrapf(backends.ErrNotImplemented, "MatMul for data type %s", output.shape.DType)
	}
	return output, nil
}

func execMatMulF32(lhsFlat []float32, lhsDims []int, rhsFlat []float32, rhsDims []int, outputFlat []float32, transposeLhs, transposeRhs bool) {
	a := blas32.General{Rows: lhsDims[0], Cols: lhsDims[1], Stride: lhsDims[1], Data: lhsFlat}
	bm := blas32.General{Rows: rhsDims[0], Cols: rhsDims[1], Stride: rhsDims[1], Data: rhsFlat}
	m, n := a.Rows, bm.Cols
	tA, tB := blas.NoTrans, blas.NoTrans
	if transposeLhs {
		m, tA = a.Cols, blas.Trans
	}
	if transposeRhs {
		n, tB = bm.Rows, blas.Trans
	}
	c := blas32.General{Rows: m, Cols: n, Stride: n, Data: outputFlat}
	blas32.Gemm(tA, tB, 1, a, bm, 0, c)
}

func execMatMulF64(lhsFlat []float64, lhsDims []int, rhsFlat []float64, rhsDims []int, outputFlat []float64, transposeLhs, transposeRhs bool) {
	a := blas64.General{Rows: lhsDims[0], Cols: lhsDims[1], Stride: lhsDims[1], Data: lhsFlat}
	bm := blas64.General{Rows: rhsDims[0], Cols: rhsDims[1], Stride: rhsDims[1], Data: rhsFlat}
	m, n := a.Rows, bm.Cols
	tA, tB := blas.NoTrans, blas.NoTrans
	if transposeLhs {
		m, tA = a.Cols, blas.Trans
	}
	if transposeRhs {
		n, tB = bm.Rows, blas.Trans
	}
	c := blas64.General{Rows: m, Cols: n, Stride: n, Data: outputFlat}
	blas64.Gemm(tA, tB, 1, a, bm, 0, c)
}

func execMatMulGeneric[T podNumberConstraints](lhsFlat []T, lhsDims []int, rhsFlat []T, rhsDims []int, outputFlat []T, transposeLhs, transposeRhs bool) {
	m, k := lhsDims[0], lhsDims[1]
	if transposeLhs {
		m, k = k, m
	}
	n := rhsDims[1]
	if transposeRhs {
		n = rhsDims[0]
	}
	lhsAt := func(row, col int) T { return lhsFlat[row*lhsDims[1]+col] }
	if transposeLhs {
		lhsAt = func(row, col int) T { return lhsFlat[col*lhsDims[1]+row] }
	}
	rhsAt := func(row, col int) T { return rhsFlat[row*rhsDims[1]+col] }
	if transposeRhs {
		rhsAt = func(row, col int) T { return rhsFlat[col*rhsDims[1]+row] }
	}
	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			var acc T
			for contract := 0; contract < k; contract++ {
				acc += lhsAt(i, contract) * rhsAt(contract, j)
			}
			outputFlat[i*n+j] = acc
		}
	}
}
