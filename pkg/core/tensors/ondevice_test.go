package tensors_test

import (
	"bytes"
	"encoding/gob"
	"flag"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"k8s.io/klog/v2"

	"github.com/paddlefish-ml/paddlefish/backends"
	_ "github.com/paddlefish-ml/paddlefish/backends/default" // Registers the cpu backend.
	"github.com/paddlefish-ml/paddlefish/pkg/core/dtypes"
	"github.com/paddlefish-ml/paddlefish/pkg/core/shapes"
	"github.com/paddlefish-ml/paddlefish/pkg/core/tensors"
)

var flagBackend = flag.String("backend", "cpu", "backend to use, this is overwritten by PADDLEFISH_BACKEND if it is set")

func init() {
	klog.InitFlags(nil)
}

func must(err error) {
	if err != nil {
		klog.Errorf("Failed with error: %+v", err)
		panic(err)
	}
}

func must1[T any](value T, err error) T {
	must(err)
	return value
}

var (
	backend   backends.Backend
	setupOnce sync.Once
)

func setupTest(t *testing.T) {
	// setupTest is also called from benchmarks, make sure it only executes once.
	setupOnce.Do(func() {
		backends.DefaultConfig = *flagBackend
		backend = backends.New()
	})
	if t != nil {
		require.NotNil(t, backend)
	}
}

func testTensorOnDeviceImpl[T dtypes.NumberNotComplex](t *testing.T) {
	dtype := dtypes.FromGenericsType[T]()
	t.Run(dtype.String(), func(t *testing.T) {
		dims := []int{3, 2}
		values := []T{0, 1, 2, 3, 4, 11}
		tensor := tensors.FromFlatDataAndDimensions(values, dims...)

		buffer := must1(tensor.Buffer(backend, 0))
		if backend.HasSharedBuffers() {
			// The tensor becomes shared during the conversion to on-device.
			require.True(t, tensor.IsShared())
			tensors.MustConstFlatData(tensor, func(flat []T) {
				require.Equal(t, []T{0, 1, 2, 3, 4, 11}, flat)
			})
		}

		// f(x) = x^2 with the eager Mul kernel.
		output := must1(backend.Mul(buffer, buffer))
		outputTensor := must1(tensors.FromBuffer(backend, output))

		// The output buffer came from a kernel execution, not from this client, so the
		// tensor wrapping it is not shared.
		require.False(t, outputTensor.IsShared())
		require.True(t, outputTensor.Shape().Equal(shapes.Make(dtype, dims...)))
		want := []T{0, 1, 4, 9, 16, 121}
		tensors.MustConstFlatData(outputTensor, func(flat []T) {
			require.Equal(t, want, flat)
		})

		// The input tensor is untouched by the kernel.
		tensors.MustConstFlatData(tensor, func(flat []T) {
			require.Equal(t, []T{0, 1, 2, 3, 4, 11}, flat)
		})
	})
}

func TestTensorOnDevice(t *testing.T) {
	setupTest(t)
	testTensorOnDeviceImpl[float32](t)
	testTensorOnDeviceImpl[float64](t)
	testTensorOnDeviceImpl[int32](t)
	testTensorOnDeviceImpl[uint8](t)
}

func TestMutableFlatDataInvalidatesDevice(t *testing.T) {
	setupTest(t)
	tensor := tensors.FromFlatDataAndDimensions([]float32{1, 2, 3}, 3)

	// A non-shared device copy.
	must(tensor.MaterializeOnDevice(backend, false, 0))
	require.True(t, tensor.IsOnDevice(0))
	require.False(t, tensor.IsShared())

	tensors.MustMutableFlatData(tensor, func(flat []float32) {
		flat[0] = 100
	})

	// The mutation dropped the now stale device copy.
	require.False(t, tensor.IsOnAnyDevice())
	buffer := must1(tensor.Buffer(backend, 0))
	got := make([]float32, 3)
	must(backend.BufferToFlatData(buffer, got))
	require.Equal(t, []float32{100, 2, 3}, got)
}

func TestSharedTensorMutation(t *testing.T) {
	setupTest(t)
	if !backend.HasSharedBuffers() {
		t.Skipf("Backend %q does not support shared buffers", backend.Name())
	}
	tensor := tensors.FromFlatDataAndDimensions([]float64{1, 2, 3}, 3)
	buffer := must1(tensor.Buffer(backend, 0))
	require.True(t, tensor.IsShared())

	// Mutating a shared tensor writes directly to the buffer the kernels see.
	tensors.MustMutableFlatData(tensor, func(flat []float64) {
		flat[2] = 30
	})
	require.True(t, tensor.IsOnDevice(0))
	sum := must1(backend.ReduceSum(buffer))
	sumTensor := must1(tensors.FromBuffer(backend, sum))
	require.Equal(t, 33.0, tensors.ToScalar[float64](sumTensor))
}

func TestDonateBuffer(t *testing.T) {
	setupTest(t)
	tensor := tensors.FromFlatDataAndDimensions([]int64{5, 7}, 2)
	buffer := must1(tensor.DonateBuffer(backend, 0))

	// Only the device buffer was handed over, the local storage remains with the tensor.
	require.True(t, tensor.Ok())
	require.False(t, tensor.IsOnAnyDevice())

	doubled := must1(backend.Add(buffer, buffer))
	doubledTensor := must1(tensors.FromBuffer(backend, doubled))
	tensors.MustConstFlatData(doubledTensor, func(flat []int64) {
		require.Equal(t, []int64{10, 14}, flat)
	})

	// The new owner finalizes the donated buffer, the tensor is still readable.
	must(backend.BufferFinalize(buffer))
	tensors.MustConstFlatData(tensor, func(flat []int64) {
		require.Equal(t, []int64{5, 7}, flat)
	})
}

func TestOnDeviceClone(t *testing.T) {
	setupTest(t)
	tensor := tensors.FromFlatDataAndDimensions([]float32{1, 2, 3, 4}, 2, 2)
	clone := must1(tensor.OnDeviceClone(backend, 0))
	require.Equal(t, backend.HasSharedBuffers(), clone.IsShared())

	// The clone has its own storage.
	tensors.MustMutableFlatData(tensor, func(flat []float32) {
		flat[0] = 100
	})
	tensors.MustConstFlatData(clone, func(flat []float32) {
		require.Equal(t, []float32{1, 2, 3, 4}, flat)
	})
}

func TestCopyFrom(t *testing.T) {
	setupTest(t)
	src := tensors.FromFlatDataAndDimensions([]float32{1, 2, 3}, 3)
	dst := tensors.FromShape(shapes.Make(dtypes.Float32, 3))
	must(dst.CopyFrom(src))
	tensors.MustConstFlatData(dst, func(flat []float32) {
		require.Equal(t, []float32{1, 2, 3}, flat)
	})

	// Copying into a shared tensor writes through to the device buffer.
	if backend.HasSharedBuffers() {
		shared := tensors.FromShape(shapes.Make(dtypes.Float32, 3))
		buffer := must1(shared.Buffer(backend, 0))
		require.True(t, shared.IsShared())
		must(shared.CopyFrom(src))
		got := make([]float32, 3)
		must(backend.BufferToFlatData(buffer, got))
		require.Equal(t, []float32{1, 2, 3}, got)
	}

	// Copying from an on-device only tensor materializes the device values into the receiver.
	clone := must1(src.OnDeviceClone(backend, 0))
	deviceOnly := must1(tensors.FromBuffer(backend, must1(clone.DonateBuffer(backend, 0))))
	receiver := tensors.FromShape(shapes.Make(dtypes.Float32, 3))
	must(receiver.CopyFrom(deviceOnly))
	tensors.MustConstFlatData(receiver, func(flat []float32) {
		require.Equal(t, []float32{1, 2, 3}, flat)
	})

	// Mismatched shapes are rejected.
	bad := tensors.FromShape(shapes.Make(dtypes.Float32, 2))
	require.Error(t, bad.CopyFrom(src))
}

func TestToLocal(t *testing.T) {
	setupTest(t)
	tensor := tensors.FromFlatDataAndDimensions([]int32{1, 2, 3}, 3)
	_ = must1(tensor.Buffer(backend, 0))
	require.Equal(t, backend.HasSharedBuffers(), tensor.IsShared())

	must(tensor.ToLocal())
	require.False(t, tensor.IsShared())
	require.False(t, tensor.IsOnAnyDevice())
	tensors.MustConstFlatData(tensor, func(flat []int32) {
		require.Equal(t, []int32{1, 2, 3}, flat)
	})
}

func TestGobDeserializeToDevice(t *testing.T) {
	setupTest(t)
	tensor := tensors.FromFlatDataAndDimensions([]float32{1, 2, 3, 4}, 2, 2)
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	must(tensor.GobSerialize(enc))

	dec := gob.NewDecoder(&buf)
	restored := must1(tensors.GobDeserializeToDevice(dec, backend, 0))
	require.True(t, restored.Shape().Equal(shapes.Make(dtypes.Float32, 2, 2)))
	require.True(t, restored.IsOnDevice(0))
	if backend.HasSharedBuffers() {
		require.True(t, restored.IsShared())
	}
	tensors.MustConstFlatData(restored, func(flat []float32) {
		require.Equal(t, []float32{1, 2, 3, 4}, flat)
	})
}

func TestBackendAndDevice(t *testing.T) {
	setupTest(t)
	tensor := tensors.FromFlatDataAndDimensions([]float32{1}, 1)

	// Local-only tensors are not attached to any backend.
	_, err := tensor.Backend()
	require.Error(t, err)
	_, err = tensor.Device()
	require.Error(t, err)

	_ = must1(tensor.Buffer(backend, 0))
	require.Equal(t, backend, must1(tensor.Backend()))
	require.Equal(t, backends.DeviceNum(0), must1(tensor.Device()))
}

func TestFinalizeAllWithDeviceStorage(t *testing.T) {
	setupTest(t)
	tensor := tensors.FromFlatDataAndDimensions([]float32{1, 2}, 2)
	_ = must1(tensor.Buffer(backend, 0))
	tensor.MustFinalizeAll()
	require.False(t, tensor.Ok())
	require.Error(t, tensor.CheckValid())
}
