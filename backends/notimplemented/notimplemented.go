// Package notimplemented implements a backends.Backend whose every kernel and data method
// returns a "not implemented" error.
//
// It can bootstrap a new backend implementation: embed Backend in your backend struct and
// override the methods you support, the rest answer with backends.ErrNotImplemented instead
// of breaking compilation whenever the Ops interface grows.
package notimplemented

import (
	"github.com/pkg/errors"

	"github.com/paddlefish-ml/paddlefish/backends"
	"github.com/paddlefish-ml/paddlefish/pkg/core/shapes"
)

// NotImplementedError is returned by every method.
//
// It doesn't carry a stack trace, it is wrapped with the method name at each return.
var NotImplementedError = backends.ErrNotImplemented

// Backend answers every method with NotImplementedError. Embed it to bootstrap a new backend.
type Backend struct{}

var _ backends.Backend = Backend{}

// Name returns the short name of the backend.
func (b Backend) Name() string {
	return "notimplemented"
}

// String returns the same as Name.
func (b Backend) String() string {
	return b.Name()
}

// Description is a longer description of the Backend.
func (b Backend) Description() string {
	return "Not Implemented Backend (placeholder to bootstrap backends)"
}

// NumDevices returns 1 as the number of devices available.
func (b Backend) NumDevices() backends.DeviceNum {
	return 1
}

// Finalize is a no-op, there are no resources to release.
func (b Backend) Finalize() {}

// IsFinalized returns false, there is nothing to finalize.
func (b Backend) IsFinalized() bool {
	return false
}

// BufferFinalize returns NotImplementedError.
func (b Backend) BufferFinalize(buffer backends.Buffer) error {
	return errors.Wrapf(NotImplementedError, "in BufferFinalize()")
}

// BufferShape returns NotImplementedError.
func (b Backend) BufferShape(buffer backends.Buffer) (shapes.Shape, error) {
	return shapes.Invalid(), errors.Wrapf(NotImplementedError, "in BufferShape()")
}

// BufferDeviceNum returns NotImplementedError.
func (b Backend) BufferDeviceNum(buffer backends.Buffer) (backends.DeviceNum, error) {
	return 0, errors.Wrapf(NotImplementedError, "in BufferDeviceNum()")
}

// BufferToFlatData returns NotImplementedError.
func (b Backend) BufferToFlatData(buffer backends.Buffer, flat any) error {
	return errors.Wrapf(NotImplementedError, "in BufferToFlatData()")
}

// BufferFromFlatData returns NotImplementedError.
func (b Backend) BufferFromFlatData(deviceNum backends.DeviceNum, flat any, shape shapes.Shape) (backends.Buffer, error) {
	return nil, errors.Wrapf(NotImplementedError, "in BufferFromFlatData()")
}

// BufferCopyToDevice returns NotImplementedError.
func (b Backend) BufferCopyToDevice(buffer backends.Buffer, deviceNum backends.DeviceNum) (backends.Buffer, error) {
	return nil, errors.Wrapf(NotImplementedError, "in BufferCopyToDevice()")
}

// HasSharedBuffers returns false.
func (b Backend) HasSharedBuffers() bool {
	return false
}

// NewSharedBuffer returns NotImplementedError.
func (b Backend) NewSharedBuffer(deviceNum backends.DeviceNum, shape shapes.Shape) (buffer backends.Buffer, flat any, err error) {
	return nil, nil, errors.Wrapf(NotImplementedError, "in NewSharedBuffer()")
}

// BufferData returns NotImplementedError.
func (b Backend) BufferData(buffer backends.Buffer) (flat any, err error) {
	return nil, errors.Wrapf(NotImplementedError, "in BufferData()")
}

// Reshape returns NotImplementedError.
func (b Backend) Reshape(x backends.Buffer, dimensions ...int) (backends.Buffer, error) {
	return nil, errors.Wrapf(NotImplementedError, "in Reshape()")
}

// Transpose returns NotImplementedError.
func (b Backend) Transpose(x backends.Buffer, permutation ...int) (backends.Buffer, error) {
	return nil, errors.Wrapf(NotImplementedError, "in Transpose()")
}

// Add returns NotImplementedError.
func (b Backend) Add(x, y backends.Buffer) (backends.Buffer, error) {
	return nil, errors.Wrapf(NotImplementedError, "in Add()")
}

// Mul returns NotImplementedError.
func (b Backend) Mul(x, y backends.Buffer) (backends.Buffer, error) {
	return nil, errors.Wrapf(NotImplementedError, "in Mul()")
}

// Scale returns NotImplementedError.
func (b Backend) Scale(x backends.Buffer, scale, bias float64) (backends.Buffer, error) {
	return nil, errors.Wrapf(NotImplementedError, "in Scale()")
}

// Exp returns NotImplementedError.
func (b Backend) Exp(x backends.Buffer) (backends.Buffer, error) {
	return nil, errors.Wrapf(NotImplementedError, "in Exp()")
}

// ReduceSum returns NotImplementedError.
func (b Backend) ReduceSum(x backends.Buffer, axes ...int) (backends.Buffer, error) {
	return nil, errors.Wrapf(NotImplementedError, "in ReduceSum()")
}

// MatMul returns NotImplementedError.
func (b Backend) MatMul(x, y backends.Buffer, transposeX, transposeY bool) (backends.Buffer, error) {
	return nil, errors.Wrapf(NotImplementedError, "in MatMul()")
}
