// Package _default includes the default backend, the pure Go cpu backend.
//
// To use it simply include:
//
//	import _ "github.com/paddlefish-ml/paddlefish/backends/default"
//
// Programs that link other backends can import them directly instead, and select among them
// with PADDLEFISH_BACKEND.
package _default

import (
	_ "github.com/paddlefish-ml/paddlefish/backends/cpu"
)
