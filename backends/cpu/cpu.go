// Package cpu implements the default Paddlefish backend: eager kernels executed on the host
// CPU, written in pure Go, with the matrix multiplication kernels backed by gonum's BLAS.
//
// It supports all Paddlefish dtypes. Float16 and BFloat16 are computed via conversion to
// Float32, so they are slower but bit-faithful on storage.
//
// To use it, import it anonymously and it registers itself under the name "cpu":
//
//	import _ "github.com/paddlefish-ml/paddlefish/backends/cpu"
package cpu

import (
	"sync"
	"sync/atomic"

	"github.com/paddlefish-ml/paddlefish/backends"
)

// BackendName to be used in PADDLEFISH_BACKEND to select this backend.
const BackendName = "cpu"

// Registers New() as the constructor for the "cpu" backend.
func init() {
	backends.Register(BackendName, New)
}

// New constructs a new cpu Backend.
// There are no configuration options, the config string is simply ignored.
func New(_ string) backends.Backend {
	return &Backend{}
}

// Backend implements backends.Backend with eager kernels on the host CPU.
type Backend struct {
	// bufferPools is a map to pools of buffers that can be reused.
	// The underlying type is map[bufferPoolKey]*sync.Pool.
	bufferPools sync.Map

	finalized atomic.Bool
}

// Compile-time check that cpu.Backend implements backends.Backend.
var _ backends.Backend = &Backend{}

// Name returns BackendName, the name under which the backend registers itself.
func (b *Backend) Name() string { return BackendName }

// String implements fmt.Stringer.
func (b *Backend) String() string { return BackendName }

// Description is a longer description of the Backend that can be used to pretty-print.
func (b *Backend) Description() string {
	return "Portable pure Go CPU backend, BLAS (gonum) matrix multiplication"
}

// NumDevices returns the number of devices available: the cpu backend sees the host as a
// single device, deviceNum 0.
func (b *Backend) NumDevices() backends.DeviceNum {
	return 1
}

// Finalize releases the pooled buffers immediately and makes the backend invalid: kernels
// called after Finalize return an error.
func (b *Backend) Finalize() {
	b.finalized.Store(true)
	b.bufferPools.Clear()
}

// IsFinalized returns true if the backend has already been finalized.
func (b *Backend) IsFinalized() bool {
	return b.finalized.Load()
}
