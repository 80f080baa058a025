// Copyright 2026 The Paddlefish Authors. SPDX-License-Identifier: Apache-2.0

// Package tensors implements a Tensor, a representation of a multidimensional array.
//
// Tensors are multidimensional arrays (from scalar with 0 dimensions, to arbitrarily large dimensions),
// defined by their shape (a data type and its axes' dimensions) and their actual content.
//
// The main use of tensors is to be used as inputs and outputs of Paddlefish operators (see pkg/core/ops).
//
// There are various ways to construct a Tensor from local data:
//
//   - FromShape(shape shapes.Shape): creates a tensor with the given shape, and zero values.
//
//   - FromScalarAndDimensions[T dtypes.Supported](value T, dimensions ...int): creates a Tensor with the
//     given dimensions, filled with the scalar value given. `T` must be one of the supported types.
//
//   - FromFlatDataAndDimensions[T dtypes.Supported](data []T, dimensions ...int): creates a Tensor with the
//     given dimensions and set the flattened values with the given data. `T` must be one of the supported types.
//     Example:
//
//     t := FromFlatDataAndDimensions([]int8{1, 2, 3, 4}, 2, 2) // Tensor with [[1,2], [3,4]]
//
//   - FromValue[S MultiDimensionSlice](value S): Generic conversion, works with the scalar supported `DType`s
//     as well as with any arbitrary multidimensional slice of them. Slices of rank > 1 must be regular, that is
//     all the sub-slices must have the same shape. Example:
//
//     t := FromValue([][]float32{{1, 2}, {3, 5}, {7, 11}})
//
//   - FromAnyValue(value any): same as FromValue but non-generic, it takes an anonymous type `any`. The exception
//     is if `value` is already a tensor, then it is a no-op, and it returns the tensor itself.
//
// Behind the scenes (as much as possible Tensor tries to hide all the details), Tensor is a container that keeps
// in sync different materializations of the value:
//
//   - `local`: a copy of the values stored on host CPU, as a Go flat array of the underlying dtype.
//   - `onDevice`: a copy of the values stored in the backend device that executes the kernels,
//     a wrapper for whatever the backend uses as buffer, managed by the lower levels (see backends.Buffer).
//   - An "on-device" Tensor can also be "shared" if the backend allows it, in which case the local
//     and "on-device" data use the same memory allocation.
//
// The Tensor container is lazy in nature: it won't transfer data from local storage to "on device" until needed.
// And if/when it can, it will make it "shared" (generally, when running on CPUs).
// If not "shared", when one (local or on-device) is updated, the others are immediately invalidated.
//
// Transferring tensors to/from local/device areas has a cost and should be avoided, but the Tensor keeps
// the (local/device) copies cached, so they can be used multiple times, and transfer only occurs once.
//
// Tensors used across multiple backends:
//
// Keep tensors used for each backend in separate variables and copy when needed:
// you can use Tensor.LocalClone() to copy a tensor from one backend to a new local tensor.
// Alternatively, after using a tensor as input to a kernel, or a tensor returned from a kernel,
// call Tensor.ToLocal(): it removes any links to the backend (by copying all the data locally), and
// it can then be used by other backends.
package tensors

import (
	"sync"

	"github.com/paddlefish-ml/paddlefish/backends"
	"github.com/paddlefish-ml/paddlefish/pkg/core/dtypes"
	"github.com/paddlefish-ml/paddlefish/pkg/core/shapes"
	"github.com/pkg/errors"
)

// Tensor represents a multidimensional array (from scalar with 0 dimensions, to arbitrarily large dimensions),
// defined by its shape, a data type (dtypes.DType) and its axes' dimensions, with the actual content stored as
// a flat (1D) array of values.
//
// It is a container for "local" (host CPU) and "on-device" backing of the tensor -- they can be the same
// ("shared") in some cases.
//
// Tensor manages caching of local and device copies. There is a transferring cost that one needs to be aware
// of when using it for large data. The cache system prevents duplicate transfers, but it requires some care
// from the user (see ConstFlatData and MutableFlatData).
//
// More details in the package documentation.
type Tensor struct {
	// shape of the tensor.
	shape shapes.Shape

	// mu protects the local and onDevice data, but not the shape, which is considered immutable (only changed
	// when Tensor is finalized).
	mu sync.Mutex

	// local storage tensor. Not used for shared buffers.
	local *local

	// onDevice storage for the tensor.
	onDevice *onDevice

	// isShared indicates that the tensor uses a shared buffer: it is held "on-device", but it has
	// a direct reference to the flat data in Tensor.sharedFlat.
	//
	// This is allocated, freed, and mutated in ondevice.go, by the corresponding onDevice structure that owns
	// the shared buffer.
	isShared     bool
	sharedFlat   any // Flat slice, []dtype of the shared memory area.
	sharedDevice backends.DeviceNum

	// backend to use for on-device tensors.
	backend backends.Backend
}

// newEmptyTensor returns a Tensor object initialized only with the shape, but no actual storage (local or on
// any device). The returned tensor is invalid, and some data (local or on device) must be associated with it still.
func newEmptyTensor(shape shapes.Shape) *Tensor {
	return &Tensor{
		shape: shape,
	}
}

// Shape of the tensor, includes the DType.
func (t *Tensor) Shape() shapes.Shape { return t.shape }

// DType returns the DType of the tensor's shape.
// It is a shortcut to `Tensor.Shape().DType`.
func (t *Tensor) DType() dtypes.DType {
	if t == nil {
		return dtypes.InvalidDType
	}
	return t.shape.DType
}

// Rank returns the rank of the tensor's shape.
// It is a shortcut to `Tensor.Shape().Rank()`.
func (t *Tensor) Rank() int { return t.shape.Rank() }

// IsScalar returns whether the tensor represents a scalar value.
// It is a shortcut to `Tensor.Shape().IsScalar()`.
func (t *Tensor) IsScalar() bool { return t.shape.IsScalar() }

// Size returns the number of elements in the tensor.
// It is a shortcut to `Tensor.Shape().Size()`.
func (t *Tensor) Size() int { return t.shape.Size() }

// Memory returns the number of bytes used to store the tensor. An alias to Tensor.Shape().Memory().
func (t *Tensor) Memory() uintptr { return t.shape.Memory() }

// Ok returns whether the Tensor is in a valid state: it is not nil, and it hasn't been finalized.
func (t *Tensor) Ok() bool {
	// Notice that shared buffers are stored as onDevice.
	return t != nil && t.shape.Ok() &&
		(!t.local.IsFinalized() || !t.onDevice.IsFinalized())
}

// IsShared returns whether the underlying tensor storage is shared with the backend engine.
//
// In most cases, an end-user doesn't need to use this.
//
// If true, one shouldn't access it (ConstFlatData or MutableFlatData) during the execution of
// a kernel that uses it.
//
// The Tensor implementation will try to use shared tensors where possible, since they save an
// extra copy.
func (t *Tensor) IsShared() bool {
	return t.isShared
}

// CheckValid returns an error if it's nil, has been finalized, or if its shape is invalid.
func (t *Tensor) CheckValid() error {
	if t == nil {
		return errors.New("Tensor is nil")
	}
	if !t.shape.Ok() {
		return errors.New("Tensor shape is invalid")
	}
	if t.local.IsFinalized() {
		if t.onDevice.IsFinalized() {
			// Notice that shared buffers are stored as onDevice.
			return errors.New("Tensor has no local or on-device representation")
		}
		if t.backend == nil || t.backend.IsFinalized() {
			return errors.New("attempting to access Tensor stored with a nil or finalized backend")
		}
	}
	return nil
}

// AssertValid panics if it's nil, has been finalized, or if its shape is invalid.
func (t *Tensor) AssertValid() {
	err := t.CheckValid()
	if err != nil {
		panic(err)
	}
}

// MustFinalizeAll immediately frees all associated data and leaves the Tensor in an invalid state.
//
// It's the caller's responsibility to ensure the tensor buffers are not being used elsewhere
// (like in the middle of an execution).
//
// Panics on error.
func (t *Tensor) MustFinalizeAll() {
	must(t.FinalizeAll())
}

// FinalizeAll immediately frees all associated data and leaves the Tensor in an invalid state.
//
// It's the caller's responsibility to ensure the tensor buffers are not being used elsewhere
// (like in the middle of an execution).
func (t *Tensor) FinalizeAll() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.Ok() {
		// Likely already finalized, no-op.
		return nil
	}
	return t.lockedFinalizeAll()
}

// lockedFinalizeAll is FinalizeAll but must be called with the tensor already locked.
func (t *Tensor) lockedFinalizeAll() error {
	if t == nil {
		return nil
	}
	if t.local != nil {
		t.local.Finalize()
		t.local = nil
	}
	var err error
	if t.onDevice != nil {
		err = t.onDevice.Finalize()
		t.onDevice = nil
	}
	t.shape = shapes.Invalid()
	t.isShared = false
	return err
}
