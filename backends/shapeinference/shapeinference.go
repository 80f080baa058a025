// Package shapeinference calculates the shape resulting from kernels and validates their inputs.
//
// The cpu backend uses it to validate inputs and to find the shape of output buffers before
// executing a kernel, and new backends can do the same.
//
// It defines a BinaryOp function for shape inference of the element-wise binary kernels and a
// UnaryOp function for the element-wise unary kernels.
//
// For the remaining kernels, it defines one function per backends.OpType.
package shapeinference

import (
	"slices"

	"github.com/paddlefish-ml/paddlefish/backends"
	"github.com/paddlefish-ml/paddlefish/pkg/core/dtypes"
	"github.com/paddlefish-ml/paddlefish/pkg/core/shapes"
	"github.com/paddlefish-ml/paddlefish/pkg/support/sets"
	"github.com/pkg/errors"
)

var (
	// NumberOperations can take any type of number as input: integers, floats, or complex numbers.
	NumberOperations = sets.MakeWith(
		backends.OpTypeAdd,
		backends.OpTypeMul,
		backends.OpTypeScale,
		backends.OpTypeReduceSum,
		backends.OpTypeMatMul,
	)

	// FloatOrComplexOperations operate only on float or complex numbers and won't work on integer
	// or boolean values.
	FloatOrComplexOperations = sets.MakeWith(
		backends.OpTypeExp,
	)

	// StandardBinaryOperations include all kernels that have two operands and apply element-wise.
	StandardBinaryOperations = sets.MakeWith(
		backends.OpTypeAdd,
		backends.OpTypeMul,
	)

	// StandardUnaryOperations include all kernels that have a single operand as input, and whose
	// output has the same shape as the input.
	StandardUnaryOperations = sets.MakeWith(
		backends.OpTypeExp,
	)
)

// BinaryOp returns the expected output shape for kernels in the StandardBinaryOperations set.
//
// Either side may be a scalar, in which case the output takes the other side's shape. Otherwise,
// the two shapes must match exactly.
//
// It returns an error if the data type (shape.DType) is invalid for the operation, or if the
// shapes are not compatible.
func BinaryOp(opType backends.OpType, lhsShape, rhsShape shapes.Shape) (output shapes.Shape, err error) {
	if !StandardBinaryOperations.Has(opType) {
		err = errors.Errorf("operation %s is not in the StandardBinaryOperations set, cannot process it with BinaryOp", opType)
		return
	}
	if lhsShape.DType == dtypes.InvalidDType || rhsShape.DType == dtypes.InvalidDType {
		err = errors.Errorf("invalid shape for %s or %s for BinaryOp %s", lhsShape, rhsShape, opType)
		return
	}
	if lhsShape.DType != rhsShape.DType {
		err = errors.Errorf("data types (DType) for BinaryOp %s must match, got %s and %s", opType, lhsShape, rhsShape)
		return
	}
	if NumberOperations.Has(opType) && !(lhsShape.DType.IsInt() || lhsShape.DType.IsFloat() || lhsShape.DType.IsComplex()) {
		err = errors.Errorf("numeric BinaryOp %s must have a number (Int32, Float32, Complex64, ...) data type as input, got %s", opType, lhsShape)
		return
	}
	if FloatOrComplexOperations.Has(opType) && !(lhsShape.DType.IsFloat() || lhsShape.DType.IsComplex()) {
		err = errors.Errorf("float/complex BinaryOp %s must have a float or complex (Float32, Complex64, ...) data type as input, got %s", opType, lhsShape)
		return
	}

	// Trivial cases: if one of the sides is a scalar, return the other side's shape.
	if lhsShape.IsScalar() {
		return rhsShape, nil
	}
	if rhsShape.IsScalar() {
		return lhsShape, nil
	}
	if !lhsShape.Equal(rhsShape) {
		err = errors.Errorf("if operands are not scalars, their shapes must match exactly for BinaryOp %s, got shapes %s and %s",
			opType, lhsShape, rhsShape)
		return
	}
	return lhsShape, nil
}

// UnaryOp checks the validity of the data type for StandardUnaryOperations and returns either an
// error or the output shape, which is the same as the operand.
func UnaryOp(opType backends.OpType, operand shapes.Shape) (output shapes.Shape, err error) {
	if !StandardUnaryOperations.Has(opType) {
		err = errors.Errorf("operation %s is not in the StandardUnaryOperations set, cannot process it with UnaryOp", opType)
		return
	}
	if operand.DType == dtypes.InvalidDType {
		err = errors.Errorf("invalid shape %s for UnaryOp %s", operand, opType)
		return
	}
	if NumberOperations.Has(opType) && !(operand.DType.IsInt() || operand.DType.IsFloat() || operand.DType.IsComplex()) {
		err = errors.Errorf("numeric UnaryOp %s must have a number (Int32, Float32, Complex64, ...) data type as input, got %s", opType, operand)
		return
	}
	if FloatOrComplexOperations.Has(opType) && !(operand.DType.IsFloat() || operand.DType.IsComplex()) {
		err = errors.Errorf("float/complex UnaryOp %s must have a float or complex (Float32, Complex64, ...) data type as input, got %s", opType, operand)
		return
	}
	output = operand
	return
}

// ReshapeOp returns the shape of a reshaped operand. The dimensions must be concrete (all > 0)
// and their product must match the operand size.
func ReshapeOp(operand shapes.Shape, dims []int) (output shapes.Shape, err error) {
	if operand.DType == dtypes.InvalidDType {
		err = errors.Errorf("invalid shape %s for ReshapeOp", operand)
		return
	}
	for _, dim := range dims {
		if dim <= 0 {
			err = errors.Errorf("Reshape() requires concrete dimensions (all > 0), got %v for operand %s",
				dims, operand)
			return
		}
	}
	output = shapes.UncheckedMake(operand.DType, dims...)
	if operand.Size() != output.Size() {
		err = errors.Errorf("Reshape() cannot reshape %s to dimensions %v, their sizes don't match",
			operand, dims)
		return shapes.Invalid(), err
	}
	return
}

// TransposeOp permutes all axes of the operand.
// There must be one value in permutations for each axis in the operand.
// The output will have: output.Dimensions[ii] = operand.Dimensions[permutations[ii]].
func TransposeOp(operand shapes.Shape, permutations []int) (output shapes.Shape, err error) {
	rank := operand.Rank()
	if len(permutations) != rank {
		err = errors.Errorf("Transpose() requires all axes permutations to be defined, operand has shape %s, but %d permutations were given",
			operand, len(permutations))
		return
	}
	if rank == 0 {
		return operand, nil
	}

	// Check permutation axes are within range and unique.
	axesSet := slices.Clone(permutations)
	slices.Sort(axesSet)
	for ii, srcAxis := range axesSet {
		if srcAxis < 0 || srcAxis >= rank {
			err = errors.Errorf("invalid permutation axis %d given to Transpose(%s), it must be within the range of its rank",
				srcAxis, operand)
			return
		}
		if ii > 0 && srcAxis == axesSet[ii-1] {
			err = errors.Errorf("invalid permutations given to Transpose(%s, %v), there cannot be any repeated axis, each must appear exactly once",
				operand, permutations)
			return
		}
	}

	output = operand.Clone()
	for axis := range output.Dimensions {
		srcAxis := permutations[axis]
		output.Dimensions[axis] = operand.Dimensions[srcAxis]
	}
	return
}

// ScaleOp returns the output shape of the affine transform scale*x+bias, which is the operand
// shape unchanged. Only number dtypes are accepted.
func ScaleOp(operand shapes.Shape) (output shapes.Shape, err error) {
	if operand.DType == dtypes.InvalidDType {
		err = errors.Errorf("invalid shape %s for ScaleOp", operand)
		return
	}
	if !(operand.DType.IsInt() || operand.DType.IsFloat() || operand.DType.IsComplex()) {
		err = errors.Errorf("ScaleOp must have a number (Int32, Float32, Complex64, ...) data type as input, got %s", operand)
		return
	}
	output = operand
	return
}

// ReduceOp works for the ReduceSum kernel: the reduced axes are removed from the shape.
//
// If no axes are given, the kernel reduces over all axes and the output is a scalar.
func ReduceOp(operand shapes.Shape, axes []int) (output shapes.Shape, err error) {
	if !(operand.DType.IsInt() || operand.DType.IsFloat() || operand.DType.IsComplex()) {
		err = errors.Errorf("ReduceOp must have a number (Int32, Float32, Complex64, ...) data type as input, got %s", operand)
		return
	}
	if len(axes) == 0 {
		// Full reduction to a scalar.
		return shapes.Make(operand.DType), nil
	}
	for _, axis := range axes {
		if axis < 0 || axis >= operand.Rank() {
			return shapes.Invalid(), errors.Errorf("ReduceOp requires each axis to be 0 <= axis < rank, but got invalid axis %d for shape %s", axis, operand)
		}
	}
	output = shapes.Make(operand.DType)
	axesSet := sets.MakeWith(axes...)
	outputRank := operand.Rank() - len(axesSet)
	if outputRank > 0 {
		// Copy over dimensions that will stay.
		output.Dimensions = make([]int, 0, outputRank)
		for axis, dim := range operand.Dimensions {
			if !axesSet.Has(axis) {
				output.Dimensions = append(output.Dimensions, dim)
			}
		}
	}
	return
}

// MatMulOp returns the output shape of the rank-2 matrix product lhs·rhs, after the requested
// transposes are applied to each side.
func MatMulOp(lhsShape, rhsShape shapes.Shape, transposeLhs, transposeRhs bool) (output shapes.Shape, err error) {
	if lhsShape.DType != rhsShape.DType {
		err = errors.Errorf("data types (DType) for MatMulOp must match, got %s and %s", lhsShape, rhsShape)
		return
	}
	if !(lhsShape.DType.IsInt() || lhsShape.DType.IsFloat() || lhsShape.DType.IsComplex()) {
		err = errors.Errorf("MatMulOp must have a number (Int32, Float32, Complex64, ...) data type as input, got %s", lhsShape)
		return
	}
	if lhsShape.Rank() != 2 || rhsShape.Rank() != 2 {
		err = errors.Errorf("MatMulOp requires rank-2 operands, got shapes %s and %s", lhsShape, rhsShape)
		return
	}
	m, kLhs := lhsShape.Dimensions[0], lhsShape.Dimensions[1]
	if transposeLhs {
		m, kLhs = kLhs, m
	}
	kRhs, n := rhsShape.Dimensions[0], rhsShape.Dimensions[1]
	if transposeRhs {
		kRhs, n = n, kRhs
	}
	if kLhs != kRhs {
		err = errors.Errorf("MatMulOp contraction dimensions don't match: lhs %s (transpose=%v) against rhs %s (transpose=%v)",
			lhsShape, transposeLhs, rhsShape, transposeRhs)
		return
	}
	output = shapes.UncheckedMake(lhsShape.DType, m, n)
	return
}
