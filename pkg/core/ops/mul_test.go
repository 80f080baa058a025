// Copyright 2026 The Paddlefish Authors. SPDX-License-Identifier: Apache-2.0

package ops_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/paddlefish-ml/paddlefish/pkg/core/ops"
	"github.com/paddlefish-ml/paddlefish/pkg/core/ops/optest"
	"github.com/paddlefish-ml/paddlefish/pkg/core/tensors"
)

func TestMatMul(t *testing.T) {
	c := &optest.Case{
		OpType: "mul",
		Inputs: map[string]*tensors.Tensor{
			"X": tensors.FromFlatDataAndDimensions([]float32{1, 2, 3, 4, 5, 6}, 2, 3),
			"Y": tensors.FromFlatDataAndDimensions([]float32{1, 2, 3, 4, 5, 6}, 3, 2),
		},
		Expected: map[string]*tensors.Tensor{
			"Out": tensors.FromFlatDataAndDimensions([]float32{22, 28, 49, 64}, 2, 2)},
	}
	optest.CheckOutput(t, c, 1e-5)
	optest.CheckGrad(t, c, []string{"X", "Y"}, "Out")
}

func TestMatMulGradValues(t *testing.T) {
	// With ones as the upstream gradient, X@GRAD[i, k] is the sum of Y's row k and
	// Y@GRAD[k, j] is the sum of X's column k.
	backend := optest.Backend()
	x := tensors.FromFlatDataAndDimensions([]float32{1, 2, 3, 4, 5, 6}, 2, 3)
	y := tensors.FromFlatDataAndDimensions([]float32{1, 2, 3, 4, 5, 6}, 3, 2)
	op := ops.NewOperator("mul").SetInput("X", x).SetInput("Y", y)
	require.NoError(t, ops.Run(backend, op))
	grads, err := ops.RunGrad(backend, op, map[string]*tensors.Tensor{"Out": optest.Ones(op.Output("Out").Shape())})
	require.NoError(t, err)
	require.Equal(t, []float32{3, 7, 11, 3, 7, 11}, tensors.MustCopyFlatData[float32](grads[ops.GradName("X")]))
	require.Equal(t, []float32{5, 5, 7, 7, 9, 9}, tensors.MustCopyFlatData[float32](grads[ops.GradName("Y")]))
}

func TestMatMulFloat64(t *testing.T) {
	c := &optest.Case{
		OpType: "mul",
		Inputs: map[string]*tensors.Tensor{
			"X": tensors.FromFlatDataAndDimensions([]float64{0.5, 1, 1.5, 2}, 2, 2),
			"Y": tensors.FromFlatDataAndDimensions([]float64{2, 0, 0, 2}, 2, 2),
		},
		Expected: map[string]*tensors.Tensor{
			"Out": tensors.FromFlatDataAndDimensions([]float64{1, 2, 3, 4}, 2, 2)},
	}
	optest.CheckOutput(t, c, 1e-12)
	optest.CheckGrad(t, c, []string{"X", "Y"}, "Out")
}

func TestMatMulRejects(t *testing.T) {
	backend := optest.Backend()
	x := tensors.FromFlatDataAndDimensions([]float32{1, 2, 3, 4, 5, 6}, 2, 3)

	// Contraction dimensions must agree: (2, 3) x (2, 2) doesn't.
	op := ops.NewOperator("mul").SetInput("X", x).
		SetInput("Y", tensors.FromFlatDataAndDimensions([]float32{1, 2, 3, 4}, 2, 2))
	require.Error(t, ops.Run(backend, op))

	// Inputs must be matrices.
	op = ops.NewOperator("mul").
		SetInput("X", tensors.FromFlatDataAndDimensions([]float32{1, 2, 3, 4, 5, 6, 7, 8}, 2, 2, 2)).
		SetInput("Y", tensors.FromFlatDataAndDimensions([]float32{1, 2, 3, 4}, 2, 2))
	require.Error(t, ops.Run(backend, op))

	// Flattening higher-rank inputs via num_col_dims is not implemented.
	op = ops.NewOperator("mul").SetInput("X", x).
		SetInput("Y", tensors.FromFlatDataAndDimensions([]float32{1, 2, 3, 4, 5, 6}, 3, 2)).
		SetAttr("x_num_col_dims", 2)
	require.ErrorContains(t, ops.Run(backend, op), "x_num_col_dims")
}
