// Copyright 2026 The Paddlefish Authors. SPDX-License-Identifier: Apache-2.0

// Package shapes defines Shape and associated tools.
//
// Shape represents the shape (rank, dimensions and DType) of a Tensor or of a
// backend buffer. DType indicates the type of the unit element of a Tensor.
//
// Go float16 support uses the github.com/x448/float16 implementation, and
// bfloat16 uses a simple implementation in pkg/core/dtypes/bfloat16.
//
// ## Glossary
//
//   - Rank: number of axes (dimensions) of a Tensor.
//   - Axis: the index of a dimension on a multidimensional Tensor. Sometimes
//     used interchangeably with Dimension, but here we try to refer to a
//     dimension index as "axis" (plural axes), and its size as its dimension.
//   - Dimension: the size of a multi-dimensional Tensor in one of its axes.
//   - DType: the data type of the unit element in a tensor. Enumeration
//     defined in pkg/core/dtypes.
//   - Scalar: a shape with no axes (or dimensions), only a single value of the
//     associated DType.
//
// Example: the multi-dimensional array `[][]int32{{0, 1, 2}, {3, 4, 5}}` if
// converted to a Tensor would have shape `(Int32)[2 3]`. We say it has rank 2
// (so 2 axes), axis 0 has dimension 2, and axis 1 has dimension 3. This shape
// could be created with `shapes.Make(dtypes.Int32, 2, 3)`.
package shapes

import (
	"encoding/gob"
	"fmt"
	"slices"

	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"

	"github.com/paddlefish-ml/paddlefish/pkg/core/dtypes"
)

// Shape represents the shape of either a Tensor or of the buffers manipulated
// by backend kernels.
//
// Use Make to create a new shape. See example in package shapes documentation.
type Shape struct {
	DType      dtypes.DType
	Dimensions []int
}

// Make returns a Shape structure filled with the values given.
//
// Every dimension must be >= 1: shapes are always concrete, placeholder
// dimensions (like the -1 of a reshape target) are resolved by the operator
// layer before a Shape is built.
func Make(dtype dtypes.DType, dimensions ...int) Shape {
	s := Shape{Dimensions: slices.Clone(dimensions), DType: dtype}
	for _, dim := range dimensions {
		if dim <= 0 {
			exceptions.Panicf("shapes.Make(%s): cannot create a shape with an axis with dimension <= 0", s)
		}
	}
	return s
}

// UncheckedMake returns a Shape without validating the dimensions, and
// without cloning them. For callers that already validated their input;
// everything else should use Make.
func UncheckedMake(dtype dtypes.DType, dimensions ...int) Shape {
	return Shape{DType: dtype, Dimensions: dimensions}
}

// Scalar returns a scalar Shape for the given type.
func Scalar[T dtypes.Number]() Shape {
	return Shape{DType: dtypes.FromGenericsType[T]()}
}

// Invalid returns an invalid shape.
//
// Invalid().Ok() == false.
func Invalid() Shape {
	return Shape{DType: dtypes.InvalidDType}
}

// Ok returns whether this is a valid Shape. A "zero" shape, that is just
// instantiating it with Shape{}, will be invalid.
func (s Shape) Ok() bool { return s.DType != dtypes.InvalidDType }

// Rank of the shape, that is, the number of dimensions.
func (s Shape) Rank() int { return len(s.Dimensions) }

// IsScalar returns whether the shape represents a scalar, that is, there are
// no dimensions (rank==0).
func (s Shape) IsScalar() bool { return s.Ok() && s.Rank() == 0 }

// Dim returns the dimension of the given axis. axis can take negative values,
// in which case it counts from the end -- so axis=-1 refers to the last axis.
// Like with slice indexing, it panics for an out-of-bound axis.
func (s Shape) Dim(axis int) int {
	adjustedAxis := axis
	if adjustedAxis < 0 {
		adjustedAxis += s.Rank()
	}
	if adjustedAxis < 0 || adjustedAxis >= s.Rank() {
		exceptions.Panicf("Shape.Dim(%d) out-of-bounds for rank %d (shape=%s)", axis, s.Rank(), s)
	}
	return s.Dimensions[adjustedAxis]
}

// Shape returns a shallow copy of itself. It implements the HasShape interface.
func (s Shape) Shape() Shape { return s }

// String implements fmt.Stringer, pretty-prints the shape.
func (s Shape) String() string {
	if s.Rank() == 0 {
		return fmt.Sprintf("(%s)", s.DType)
	}
	return fmt.Sprintf("(%s)%v", s.DType, s.Dimensions)
}

// Size returns the number of elements of DType needed for this shape.
// It's the product of all dimensions, and 1 for scalars.
func (s Shape) Size() (size int) {
	size = 1
	for _, d := range s.Dimensions {
		size *= d
	}
	return
}

// Memory returns the memory used to store an array of the given shape, the
// same as the size in bytes.
func (s Shape) Memory() uintptr {
	return s.DType.Memory() * uintptr(s.Size())
}

// Equal compares two shapes for equality: dtype and dimensions are compared.
func (s Shape) Equal(s2 Shape) bool {
	if s.DType != s2.DType {
		return false
	}
	return s.EqualDimensions(s2)
}

// EqualDimensions compares two shapes for equality of dimensions only.
// DTypes can be different.
func (s Shape) EqualDimensions(s2 Shape) bool {
	if s.Rank() != s2.Rank() {
		return false
	}
	return slices.Equal(s.Dimensions, s2.Dimensions)
}

// Clone returns a new deep copy of the shape.
func (s Shape) Clone() (s2 Shape) {
	s2.DType = s.DType
	s2.Dimensions = slices.Clone(s.Dimensions)
	return
}

// GobSerialize shape in binary format.
func (s Shape) GobSerialize(encoder *gob.Encoder) (err error) {
	enc := func(e any) {
		if err != nil {
			return
		}
		err = encoder.Encode(e)
		if err != nil {
			err = errors.Wrapf(err, "failed to serialize Shape %s", s)
		}
	}
	enc(s.DType)
	enc(s.Dimensions)
	return
}

// GobDeserialize a Shape. Returns the new Shape or an error.
func GobDeserialize(decoder *gob.Decoder) (s Shape, err error) {
	dec := func(data any) {
		if err != nil {
			return
		}
		err = decoder.Decode(data)
		if err != nil {
			err = errors.Wrapf(err, "failed to deserialize Shape")
		}
	}
	dec(&s.DType)
	dec(&s.Dimensions)
	return
}
