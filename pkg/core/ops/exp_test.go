// Copyright 2026 The Paddlefish Authors. SPDX-License-Identifier: Apache-2.0

package ops_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/paddlefish-ml/paddlefish/pkg/core/ops"
	"github.com/paddlefish-ml/paddlefish/pkg/core/ops/optest"
	"github.com/paddlefish-ml/paddlefish/pkg/core/tensors"
)

func TestExp(t *testing.T) {
	xs := []float32{0, 1, -1, 0.5}
	want := make([]float32, len(xs))
	for idx, x := range xs {
		want[idx] = float32(math.Exp(float64(x)))
	}
	c := &optest.Case{
		OpType: "exp",
		Inputs: map[string]*tensors.Tensor{
			"X": tensors.FromFlatDataAndDimensions(xs, len(xs))},
		Expected: map[string]*tensors.Tensor{
			"Out": tensors.FromFlatDataAndDimensions(want, len(want))},
	}
	optest.CheckOutput(t, c, 1e-5)
	optest.CheckGrad(t, c, []string{"X"}, "Out")
}

func TestExpFloat64(t *testing.T) {
	xs := []float64{0, 1, -1, 0.5, 2}
	want := make([]float64, len(xs))
	for idx, x := range xs {
		want[idx] = math.Exp(x)
	}
	c := &optest.Case{
		OpType: "exp",
		Inputs: map[string]*tensors.Tensor{
			"X": tensors.FromFlatDataAndDimensions(xs, len(xs))},
		Expected: map[string]*tensors.Tensor{
			"Out": tensors.FromFlatDataAndDimensions(want, len(want))},
	}
	optest.CheckOutput(t, c, 1e-12)
	optest.CheckGrad(t, c, []string{"X"}, "Out")
}

func TestExpGradReusesOutput(t *testing.T) {
	// With ones as the upstream gradient, X@GRAD must be bit-for-bit the forward output.
	backend := optest.Backend()
	x := tensors.FromFlatDataAndDimensions([]float32{0, 0.25, 0.5, 0.75, 1, 1.25}, 2, 3)
	op := ops.NewOperator("exp").SetInput("X", x)
	require.NoError(t, ops.Run(backend, op))
	grads, err := ops.RunGrad(backend, op, map[string]*tensors.Tensor{"Out": optest.Ones(x.Shape())})
	require.NoError(t, err)
	require.Equal(t,
		tensors.MustCopyFlatData[float32](op.Output("Out")),
		tensors.MustCopyFlatData[float32](grads[ops.GradName("X")]))
}

func TestExpRejectsInts(t *testing.T) {
	backend := optest.Backend()
	op := ops.NewOperator("exp").SetInput("X", tensors.FromFlatDataAndDimensions([]int32{1, 2, 3}, 3))
	require.Error(t, ops.Run(backend, op))
}
