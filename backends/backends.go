// Package backends defines the interface a tensor execution engine needs to implement to be used by Paddlefish.
//
// A backend owns device buffers and executes the eager kernels (see the Ops interface) that the
// operator layer in pkg/core/ops dispatches to. The default backend is the pure Go "cpu" engine
// under backends/cpu, registered by importing it:
//
//	import _ "github.com/paddlefish-ml/paddlefish/backends/cpu"
//
// or simply import the meta-package backends/default.
//
// A backend that doesn't implement every kernel can return a "Not implemented" error for it, and
// it still works for operators that don't require those kernels.
//
// Kernels and data transfer methods return errors. The constructor entry points (New, NewWithConfig)
// throw (panic) with a stack trace in case of errors, see package github.com/gomlx/exceptions.
package backends

import (
	"os"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/paddlefish-ml/paddlefish/pkg/support/xslices"
)

// DeviceNum represents which device holds a buffer, or should execute a kernel.
// It's up to the backend to interpret it, but it should be between 0 and Backend.NumDevices.
type DeviceNum int

// Backend is the API that needs to be implemented by a Paddlefish backend.
type Backend interface {
	// Name returns the short name of the backend, e.g.: "cpu" for the pure Go engine.
	Name() string

	// Description is a longer description of the Backend that can be used to pretty-print.
	Description() string

	// NumDevices returns the number of devices available for this Backend.
	NumDevices() DeviceNum

	// Ops is the sub-interface with the eager kernels executed by the operator layer.
	Ops

	// DataInterface is the sub-interface that defines the API to transfer Buffer to/from the backend.
	DataInterface

	// Finalize releases all the associated resources immediately, and makes the backend invalid.
	Finalize()

	// IsFinalized returns true if the backend has already been finalized and can no longer be used.
	IsFinalized() bool
}

// Constructor takes a config string (optionally empty) and returns a Backend.
type Constructor func(config string) Backend

var (
	registeredConstructors = make(map[string]Constructor)
	firstRegistered        string
)

// Register backend with the given name, and a default constructor that takes as input a configuration
// string that is passed along to the backend constructor.
//
// To be safe, call Register during initialization of a package.
func Register(name string, constructor Constructor) {
	if len(registeredConstructors) == 0 {
		firstRegistered = name
	}
	registeredConstructors[name] = constructor
}

// List returns the names of the registered backends, sorted.
func List() []string {
	return xslices.SortedKeys(registeredConstructors)
}

// DefaultConfig is the backend configuration to use if the environment variable is not set.
//
// See NewWithConfig for the format of the configuration string.
var DefaultConfig = "cpu"

// ConfigEnvVar is the environment variable with the default backend configuration to use.
//
// The format of config is "<backend_name>:<backend_configuration>".
// The "<backend_name>" is the name of a registered backend (e.g.: "cpu") and
// "<backend_configuration>" is backend specific (e.g.: for the cpu backend, the number of workers).
const ConfigEnvVar = "PADDLEFISH_BACKEND"

// New returns a new Backend with the default configuration.
//
// The default is:
//
// 1. The environment PADDLEFISH_BACKEND is used as a configuration if defined.
// 2. Next the variable DefaultConfig is used as a configuration if defined.
// 3. The first registered backend is used with an empty configuration.
//
// It panics if no backend was registered.
func New() Backend {
	config, found := os.LookupEnv(ConfigEnvVar)
	if found {
		return NewWithConfig(config)
	}
	if DefaultConfig != "" {
		return NewWithConfig(DefaultConfig)
	}
	return NewWithConfig("")
}

// MustNew is an alias to New. The name spells out at the call site that it panics if no
// backend can be created.
func MustNew() Backend {
	return New()
}

// NewOrErr is like New, but returns an error instead of panicking.
func NewOrErr() (backend Backend, err error) {
	err = exceptions.TryCatch[error](func() { backend = New() })
	if err != nil {
		return nil, err
	}
	return backend, nil
}

// NewWithConfig takes a configuration string formatted as "<backend_name>:<backend_configuration>".
//
// The "<backend_name>" is the name of a registered backend (e.g.: "cpu") and
// "<backend_configuration>" is backend specific (e.g.: for the cpu backend, the number of workers).
func NewWithConfig(config string) Backend {
	if len(registeredConstructors) == 0 {
		exceptions.Panicf(`no registered backends for Paddlefish -- maybe import the default one with import _ "github.com/paddlefish-ml/paddlefish/backends/default"?`)
	}
	backendName := config
	backendConfig := ""
	if idx := strings.Index(config, ":"); idx != -1 {
		backendName = config[:idx]
		backendConfig = config[idx+1:]
	}
	if backendName == "" {
		backendName = firstRegistered
	}
	constructor, found := registeredConstructors[backendName]
	if !found {
		exceptions.Panicf("can't find backend %q for configuration %q given", backendName, config)
	}
	return constructor(backendConfig)
}
