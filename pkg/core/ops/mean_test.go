// Copyright 2026 The Paddlefish Authors. SPDX-License-Identifier: Apache-2.0

package ops_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/paddlefish-ml/paddlefish/pkg/core/ops"
	"github.com/paddlefish-ml/paddlefish/pkg/core/ops/optest"
	"github.com/paddlefish-ml/paddlefish/pkg/core/tensors"
)

func TestMean(t *testing.T) {
	c := &optest.Case{
		OpType: "mean",
		Inputs: map[string]*tensors.Tensor{
			"X": tensors.FromFlatDataAndDimensions([]float32{1, 2, 3, 4, 5, 6}, 2, 3)},
		Expected: map[string]*tensors.Tensor{"Out": tensors.FromScalar(float32(3.5))},
	}
	optest.CheckOutput(t, c, 1e-6)
	optest.CheckGrad(t, c, []string{"X"}, "Out")
}

func TestMeanFloat64(t *testing.T) {
	c := &optest.Case{
		OpType: "mean",
		Inputs: map[string]*tensors.Tensor{
			"X": tensors.FromFlatDataAndDimensions([]float64{0.5, 1.5, 2.5, 3.5}, 4)},
		Expected: map[string]*tensors.Tensor{"Out": tensors.FromScalar(2.0)},
	}
	optest.CheckOutput(t, c, 1e-12)
	optest.CheckGrad(t, c, []string{"X"}, "Out")
}

func TestMeanGradSpreadsUniformly(t *testing.T) {
	backend := optest.Backend()
	x := tensors.FromFlatDataAndDimensions([]float32{1, 2, 3, 4, 5, 6}, 2, 3)
	op := ops.NewOperator("mean").SetInput("X", x)
	require.NoError(t, ops.Run(backend, op))
	grads, err := ops.RunGrad(backend, op, map[string]*tensors.Tensor{"Out": optest.Ones(op.Output("Out").Shape())})
	require.NoError(t, err)
	gradX := grads[ops.GradName("X")]
	require.NotNil(t, gradX)
	require.True(t, gradX.Shape().Equal(x.Shape()))
	sixth := float32(1.0 / 6.0)
	require.Equal(t, []float32{sixth, sixth, sixth, sixth, sixth, sixth}, tensors.MustCopyFlatData[float32](gradX))
}
