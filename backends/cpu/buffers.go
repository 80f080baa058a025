package cpu

import (
	"reflect"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/paddlefish-ml/paddlefish/backends"
	"github.com/paddlefish-ml/paddlefish/pkg/core/dtypes"
	"github.com/paddlefish-ml/paddlefish/pkg/core/shapes"
)

// Compile-time check:
var _ backends.DataInterface = (*Backend)(nil)

// Buffer for the cpu backend holds a shape and a reference to the flat data.
//
// Buffers are pooled: a finalized buffer goes back to the backend pool and its flat slice is
// reused by a later allocation of the same dtype and size.
type Buffer struct {
	shape shapes.Shape
	valid bool

	// flat is always a slice of the underlying data type (shape.DType).
	flat any
}

type bufferPoolKey struct {
	dtype  dtypes.DType
	length int
}

// getBufferPool for given dtype/length.
func (b *Backend) getBufferPool(dtype dtypes.DType, length int) *sync.Pool {
	key := bufferPoolKey{dtype: dtype, length: length}
	poolInterface, ok := b.bufferPools.Load(key)
	if !ok {
		poolInterface, _ = b.bufferPools.LoadOrStore(key, &sync.Pool{
			New: func() interface{} {
				return &Buffer{
					flat:  reflect.MakeSlice(reflect.SliceOf(dtype.GoType()), length, length).Interface(),
					shape: shapes.Make(dtype, length),
				}
			},
		})
	}
	return poolInterface.(*sync.Pool)
}

// getBuffer from the backend pool of buffers.
//
// The flat data may hold left-over values from a previous use: kernels must overwrite every
// element (or zero it first, for accumulating kernels).
func (b *Backend) getBuffer(dtype dtypes.DType, length int) *Buffer {
	pool := b.getBufferPool(dtype, length)
	buf := pool.Get().(*Buffer)
	buf.valid = true
	return buf
}

// putBuffer back into the backend pool of buffers.
// After this any references to buffer should be dropped.
func (b *Backend) putBuffer(buffer *Buffer) {
	if buffer == nil || !buffer.shape.Ok() {
		return
	}
	buffer.valid = false
	pool := b.getBufferPool(buffer.shape.DType, buffer.shape.Size())
	pool.Put(buffer)
}

// NewBuffer creates a buffer of the given shape, with the flat data taken from the pool.
func (b *Backend) NewBuffer(shape shapes.Shape) *Buffer {
	buffer := b.getBuffer(shape.DType, shape.Size())
	buffer.shape = shape.Clone()
	return buffer
}

// copyFlat assumes both flat slices are of the same underlying type.
func copyFlat(flatDst, flatSrc any) {
	reflect.Copy(reflect.ValueOf(flatDst), reflect.ValueOf(flatSrc))
}

// cloneBuffer using the pool to allocate the new one.
func (b *Backend) cloneBuffer(buffer *Buffer) *Buffer {
	newBuffer := b.getBuffer(buffer.shape.DType, buffer.shape.Size())
	newBuffer.shape = buffer.shape.Clone()
	copyFlat(newBuffer.flat, buffer.flat)
	return newBuffer
}

// inputBuffer checks that the given backends.Buffer is a valid (not finalized) buffer of this
// backend, and that the backend itself is still alive. Every kernel and data method starts here.
func (b *Backend) inputBuffer(backendBuffer backends.Buffer) (*Buffer, error) {
	if b.finalized.Load() {
		return nil, errors.Errorf("%q backend was already finalized", BackendName)
	}
	buffer, ok := backendBuffer.(*Buffer)
	if !ok {
		return nil, errors.Errorf("buffer is not a %q backend buffer", BackendName)
	}
	if buffer == nil || buffer.flat == nil || !buffer.shape.Ok() || !buffer.valid {
		var issues []string
		if buffer != nil {
			if buffer.flat == nil {
				issues = append(issues, "buffer.flat was nil")
			}
			if !buffer.shape.Ok() {
				issues = append(issues, "buffer.shape was invalid")
			}
			if !buffer.valid {
				issues = append(issues, "buffer was marked as invalid")
			}
		} else {
			issues = append(issues, "buffer was nil")
		}
		return nil, errors.Errorf("buffer (%p): %s -- buffer was already finalized!?", buffer, strings.Join(issues, ", "))
	}
	return buffer, nil
}

// BufferFinalize allows the client to inform backend that buffer is no longer needed and
// associated resources can be freed immediately: the buffer goes back to the pool.
//
// A finalized buffer should never be used again. Preferably, the caller should set its
// references to it to nil.
func (b *Backend) BufferFinalize(backendBuffer backends.Buffer) error {
	buffer, err := b.inputBuffer(backendBuffer)
	if err != nil {
		return errors.WithMessage(err, "BufferFinalize")
	}
	b.putBuffer(buffer)
	return nil
}

// BufferShape returns the shape for the buffer.
func (b *Backend) BufferShape(buffer backends.Buffer) (shapes.Shape, error) {
	buf, err := b.inputBuffer(buffer)
	if err != nil {
		return shapes.Invalid(), err
	}
	return buf.shape, nil
}

// BufferDeviceNum returns the deviceNum for the buffer: always 0 for the cpu backend.
func (b *Backend) BufferDeviceNum(buffer backends.Buffer) (backends.DeviceNum, error) {
	_, err := b.inputBuffer(buffer)
	if err != nil {
		return 0, err
	}
	return 0, nil
}

// BufferToFlatData transfers the flat values of the buffer to the Go flat array.
// The slice flat must have the exact number of elements required to store the Buffer shape.
//
// See also BufferFromFlatData, BufferShape, and shapes.Shape.Size.
func (b *Backend) BufferToFlatData(backendBuffer backends.Buffer, flat any) error {
	buf, err := b.inputBuffer(backendBuffer)
	if err != nil {
		return err
	}
	copyFlat(flat, buf.flat)
	return nil
}

// BufferFromFlatData transfers data from Go given as a flat slice (of the type corresponding
// to the shape DType) to the deviceNum, and returns the corresponding backends.Buffer.
func (b *Backend) BufferFromFlatData(deviceNum backends.DeviceNum, flat any, shape shapes.Shape) (backends.Buffer, error) {
	if deviceNum != 0 {
		return nil, errors.Errorf("backend %q only supports deviceNum 0, cannot create buffer on deviceNum %d (shape=%s)",
			BackendName, deviceNum, shape)
	}
	if dtypes.FromGoType(reflect.TypeOf(flat).Elem()) != shape.DType {
		return nil, errors.Errorf("flat data type (%s) does not match shape DType (%s)",
			reflect.TypeOf(flat).Elem(), shape.DType)
	}
	buffer := b.NewBuffer(shape)
	copyFlat(buffer.flat, flat)
	return buffer, nil
}

// BufferCopyToDevice copies the buffer contents to a new buffer on the given device. The cpu
// backend only has deviceNum 0, so this amounts to a clone. The original buffer is left
// untouched.
func (b *Backend) BufferCopyToDevice(buffer backends.Buffer, deviceNum backends.DeviceNum) (backends.Buffer, error) {
	if deviceNum != 0 {
		return nil, errors.Errorf("backend %q only supports deviceNum 0, cannot copy buffer to deviceNum %d",
			BackendName, deviceNum)
	}
	buf, err := b.inputBuffer(buffer)
	if err != nil {
		return nil, err
	}
	return b.cloneBuffer(buf), nil
}

// HasSharedBuffers returns whether the backend supports "shared buffers": these are buffers
// that can be used directly by the kernels and have a local address that can be read or
// mutated directly by the client. True for the cpu backend.
func (b *Backend) HasSharedBuffers() bool {
	return true
}

// NewSharedBuffer returns a "shared buffer" that can be both used as input for kernel
// execution and directly read or mutated by the clients.
//
// The shared buffer should not be mutated while it is used by an execution.
//
// When done, to release the memory, call BufferFinalize on the returned buffer.
//
// It returns a handle to the buffer and a slice of the corresponding data type pointing to
// the shared data.
func (b *Backend) NewSharedBuffer(deviceNum backends.DeviceNum, shape shapes.Shape) (buffer backends.Buffer, flat any, err error) {
	if deviceNum != 0 {
		return nil, nil, errors.Errorf("backend %q only supports deviceNum 0, cannot create buffer on deviceNum %d (shape=%s)",
			BackendName, deviceNum, shape)
	}
	goBuffer := b.NewBuffer(shape)
	return goBuffer, goBuffer.flat, nil
}

// BufferData returns a slice pointing to the buffer storage memory directly.
//
// The returned slice becomes invalid after the buffer is finalized.
func (b *Backend) BufferData(buffer backends.Buffer) (flat any, err error) {
	buf, err := b.inputBuffer(buffer)
	if err != nil {
		return nil, err
	}
	return buf.flat, nil
}
