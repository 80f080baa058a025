// Copyright 2026 The Paddlefish Authors. SPDX-License-Identifier: Apache-2.0

// Package optest is a test harness for operators: it runs an operator case on a backend and
// checks its outputs against expected tensors (CheckOutput), and checks its analytic gradients
// against central finite differences (CheckGrad).
//
// A Case bundles the operator type, inputs, attributes and expected outputs:
//
//	c := &optest.Case{
//		OpType: "reshape",
//		Inputs: map[string]*tensors.Tensor{"X": x},
//		Attrs:  map[string]any{"shape": []int{4, -1, 5}},
//		Expected: map[string]*tensors.Tensor{"Out": want},
//	}
//	optest.CheckOutput(t, c, 1e-5)
//	optest.CheckGrad(t, c, []string{"X"}, "Out")
//
// All checks run on the process-wide test backend, see BuildTestBackend.
package optest

import (
	"fmt"
	"maps"
	"math"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/gomlx/exceptions"
	"github.com/stretchr/testify/require"

	"github.com/paddlefish-ml/paddlefish/backends"
	"github.com/paddlefish-ml/paddlefish/pkg/core/dtypes"
	"github.com/paddlefish-ml/paddlefish/pkg/core/ops"
	"github.com/paddlefish-ml/paddlefish/pkg/core/shapes"
	"github.com/paddlefish-ml/paddlefish/pkg/core/tensors"
)

// Case describes one operator execution to check: the operator type, its input tensors and
// attributes, and the expected output tensors, all keyed by slot name.
type Case struct {
	OpType   string
	Inputs   map[string]*tensors.Tensor
	Attrs    map[string]any
	Expected map[string]*tensors.Tensor
}

// newOperator builds a fresh Operator from the case. The input tensors are shared with the
// case, so perturbing them is seen by all operators built from it.
func (c *Case) newOperator() *ops.Operator {
	op := ops.NewOperator(c.OpType)
	for slot, input := range c.Inputs {
		op.SetInput(slot, input)
	}
	maps.Copy(op.Attrs, c.Attrs)
	return op
}

var (
	backendOnce   sync.Once
	cachedBackend backends.Backend
)

// BuildTestBackend returns the process-wide backend used by the harness, building it on the
// first call with the default "cpu" configuration, overridable with PADDLEFISH_BACKEND.
func BuildTestBackend() backends.Backend {
	backendOnce.Do(func() {
		backends.DefaultConfig = "cpu"
		cachedBackend = backends.New()
		fmt.Printf("Backend: %s\n", cachedBackend.Description())
	})
	return cachedBackend
}

// Backend returns the process-wide backend used by the harness, see BuildTestBackend.
func Backend() backends.Backend {
	return BuildTestBackend()
}

// CheckOutput runs the case's operator and compares each expected output within the given
// delta (values of delta <= 0 mean only exact equality is accepted). Panics and errors from
// the execution become test failures.
func CheckOutput(t *testing.T, c *Case, delta float64) {
	backend := BuildTestBackend()
	op := c.newOperator()
	var err error
	require.NotPanicsf(t, func() { err = ops.Run(backend, op) }, "%s: operator execution panicked", c.OpType)
	require.NoErrorf(t, err, "%s: operator execution failed", c.OpType)
	for slot, want := range c.Expected {
		got := op.Output(slot)
		require.NotNilf(t, got, "%s: no output produced for slot %q", c.OpType, slot)
		require.Truef(t, want.InDelta(got, delta),
			"%s: output %q doesn't match:\n\tgot  %s\n\twant %s", c.OpType, slot, got.GoStr(), want.GoStr())
	}
}

// gradSettings collects the CheckGrad options.
type gradSettings struct {
	delta            float64
	maxRelativeError float64
}

// GradOption configures CheckGrad.
type GradOption func(*gradSettings)

// WithDelta sets the step used by the central finite differences. The default is 0.005.
func WithDelta(delta float64) GradOption {
	return func(settings *gradSettings) { settings.delta = delta }
}

// WithMaxRelativeError sets the largest accepted relative error between the analytic and the
// numeric gradients. The default is 0.005.
func WithMaxRelativeError(maxRelativeError float64) GradOption {
	return func(settings *gradSettings) { settings.maxRelativeError = maxRelativeError }
}

// CheckGrad checks the operator's analytic gradients against central finite differences.
//
// The analytic side runs the operator forward and then differentiates it with ops.RunGrad,
// feeding ones as the gradient of the output slot named by output. The numeric side perturbs
// each element of the checked inputs by +-delta/2 and re-runs the operator, taking as loss the
// sum of all the elements of that output, so the analytic and numeric gradients estimate the
// same quantity.
//
// Each element's relative error is |analytic-numeric| / max(1e-3, |analytic|), and the largest
// one must be within maxRelativeError. The checked inputs must be Float32 or Float64.
func CheckGrad(t *testing.T, c *Case, inputsToCheck []string, output string, opts ...GradOption) {
	settings := &gradSettings{delta: 0.005, maxRelativeError: 0.005}
	for _, opt := range opts {
		opt(settings)
	}

	backend := BuildTestBackend()
	op := c.newOperator()
	var err error
	require.NotPanicsf(t, func() { err = ops.Run(backend, op) }, "%s: operator execution panicked", c.OpType)
	require.NoErrorf(t, err, "%s: operator execution failed", c.OpType)
	outTensor := op.Output(output)
	require.NotNilf(t, outTensor, "%s: no output produced for slot %q", c.OpType, output)

	grads, err := ops.RunGrad(backend, op, map[string]*tensors.Tensor{output: Ones(outTensor.Shape())})
	require.NoErrorf(t, err, "%s: gradient execution failed", c.OpType)

	for _, slot := range inputsToCheck {
		input := c.Inputs[slot]
		require.NotNilf(t, input, "%s: input %q to check is not set in the case", c.OpType, slot)
		analytic := grads[ops.GradName(slot)]
		require.NotNilf(t, analytic, "%s: no gradient produced for input %q", c.OpType, slot)
		analyticFlat := flatAsFloat64(t, analytic)
		numericFlat := numericGradient(t, backend, c, slot, output, settings.delta)
		require.Equalf(t, len(analyticFlat), len(numericFlat),
			"%s: gradient of input %q has %d elements, input has %d", c.OpType, slot, len(analyticFlat), len(numericFlat))

		maxRelativeError, maxIdx := 0.0, 0
		for idx, analyticValue := range analyticFlat {
			relativeError := math.Abs(analyticValue-numericFlat[idx]) / max(1e-3, math.Abs(analyticValue))
			if relativeError > maxRelativeError {
				maxRelativeError, maxIdx = relativeError, idx
			}
		}
		require.LessOrEqualf(t, maxRelativeError, settings.maxRelativeError,
			"%s: gradient of input %q differs from the finite differences: worst relative error %.5f at flat index %d (analytic %.6f, numeric %.6f)",
			c.OpType, slot, maxRelativeError, maxIdx, analyticFlat[maxIdx], numericFlat[maxIdx])
	}
}

// numericGradient estimates d(sum(output))/d(input) with central differences, perturbing each
// element of the input in place and re-running the operator.
func numericGradient(t *testing.T, backend backends.Backend, c *Case, inputSlot, output string, delta float64) []float64 {
	op := c.newOperator()
	input := c.Inputs[inputSlot]
	numeric := make([]float64, input.Size())
	for idx := range numeric {
		original := flatValueAt(t, input, idx)
		setFlatValueAt(t, input, idx, original+delta/2)
		lossPos := runLoss(t, backend, op, output)
		setFlatValueAt(t, input, idx, original-delta/2)
		lossNeg := runLoss(t, backend, op, output)
		setFlatValueAt(t, input, idx, original)
		numeric[idx] = (lossPos - lossNeg) / delta
	}
	return numeric
}

// runLoss runs the operator and returns the sum of all the elements of the given output. The
// output tensors are finalized right away, there are two of them per perturbed element.
func runLoss(t *testing.T, backend backends.Backend, op *ops.Operator, output string) float64 {
	require.NoErrorf(t, ops.Run(backend, op), "%s: operator execution failed during finite differences", op.Type)
	loss := 0.0
	for _, value := range flatAsFloat64(t, op.Output(output)) {
		loss += value
	}
	for _, produced := range op.Outputs {
		produced.MustFinalizeAll()
	}
	return loss
}

// flatAsFloat64 returns the tensor's flat values converted to float64. The tensor must be
// Float32 or Float64.
func flatAsFloat64(t *testing.T, tensor *tensors.Tensor) []float64 {
	values := make([]float64, tensor.Size())
	switch dtype := tensor.DType(); dtype {
	case dtypes.Float32:
		tensors.MustConstFlatData(tensor, func(flat []float32) {
			for idx, value := range flat {
				values[idx] = float64(value)
			}
		})
	case dtypes.Float64:
		tensors.MustConstFlatData(tensor, func(flat []float64) {
			copy(values, flat)
		})
	default:
		t.Fatalf("tensor dtype %s not supported by the gradient checker, use Float32 or Float64", dtype)
	}
	return values
}

func flatValueAt(t *testing.T, tensor *tensors.Tensor, idx int) (value float64) {
	switch dtype := tensor.DType(); dtype {
	case dtypes.Float32:
		tensors.MustConstFlatData(tensor, func(flat []float32) { value = float64(flat[idx]) })
	case dtypes.Float64:
		tensors.MustConstFlatData(tensor, func(flat []float64) { value = flat[idx] })
	default:
		t.Fatalf("tensor dtype %s not supported by the gradient checker, use Float32 or Float64", dtype)
	}
	return
}

func setFlatValueAt(t *testing.T, tensor *tensors.Tensor, idx int, value float64) {
	switch dtype := tensor.DType(); dtype {
	case dtypes.Float32:
		tensors.MustMutableFlatData(tensor, func(flat []float32) { flat[idx] = float32(value) })
	case dtypes.Float64:
		tensors.MustMutableFlatData(tensor, func(flat []float64) { flat[idx] = value })
	default:
		t.Fatalf("tensor dtype %s not supported by the gradient checker, use Float32 or Float64", dtype)
	}
}

// Ones returns a tensor of the given shape filled with ones. The shape must be Float32 or
// Float64, the dtypes the gradient checker works with.
func Ones(shape shapes.Shape) *tensors.Tensor {
	tensor := tensors.FromShape(shape)
	switch shape.DType {
	case dtypes.Float32:
		tensors.MustMutableFlatData(tensor, func(flat []float32) {
			for idx := range flat {
				flat[idx] = 1
			}
		})
	case dtypes.Float64:
		tensors.MustMutableFlatData(tensor, func(flat []float64) {
			for idx := range flat {
				flat[idx] = 1
			}
		})
	default:
		exceptions.Panicf("optest.Ones: dtype %s not supported, use Float32 or Float64", shape.DType)
	}
	return tensor
}

// rngMu protects rng, tests can run in parallel.
var (
	rngMu sync.Mutex
	rng   = rand.New(rand.NewPCG(42, 42))
)

// RandomUniform returns a tensor of the given shape filled with uniform random values in
// [lo, hi). The generator is seeded once per process, so a test always sees the same values.
// The shape must be Float32 or Float64.
func RandomUniform(shape shapes.Shape, lo, hi float64) *tensors.Tensor {
	rngMu.Lock()
	defer rngMu.Unlock()
	tensor := tensors.FromShape(shape)
	switch shape.DType {
	case dtypes.Float32:
		tensors.MustMutableFlatData(tensor, func(flat []float32) {
			for idx := range flat {
				flat[idx] = float32(lo + (hi-lo)*rng.Float64())
			}
		})
	case dtypes.Float64:
		tensors.MustMutableFlatData(tensor, func(flat []float64) {
			for idx := range flat {
				flat[idx] = lo + (hi-lo)*rng.Float64()
			}
		})
	default:
		exceptions.Panicf("optest.RandomUniform: dtype %s not supported, use Float32 or Float64", shape.DType)
	}
	return tensor
}
