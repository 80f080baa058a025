// Copyright 2026 The Paddlefish Authors. SPDX-License-Identifier: Apache-2.0

package ops_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/paddlefish-ml/paddlefish/pkg/core/ops"
	"github.com/paddlefish-ml/paddlefish/pkg/core/ops/optest"
	"github.com/paddlefish-ml/paddlefish/pkg/core/tensors"
)

func TestElementwiseAdd(t *testing.T) {
	c := &optest.Case{
		OpType: "elementwise_add",
		Inputs: map[string]*tensors.Tensor{
			"X": tensors.FromFlatDataAndDimensions([]float32{1, 2, 3, 4, 5, 6}, 2, 3),
			"Y": tensors.FromFlatDataAndDimensions([]float32{0.5, 1, 1.5, 2, 2.5, 3}, 2, 3),
		},
		Expected: map[string]*tensors.Tensor{
			"Out": tensors.FromFlatDataAndDimensions([]float32{1.5, 3, 4.5, 6, 7.5, 9}, 2, 3)},
	}
	optest.CheckOutput(t, c, 0)
	optest.CheckGrad(t, c, []string{"X", "Y"}, "Out")
}

func TestElementwiseAddScalarBroadcast(t *testing.T) {
	// A scalar operand is broadcast against the other input, and its gradient sums over all
	// the axes of the upstream gradient.
	c := &optest.Case{
		OpType: "elementwise_add",
		Inputs: map[string]*tensors.Tensor{
			"X": tensors.FromFlatDataAndDimensions([]float32{1, 2, 3, 4, 5, 6}, 2, 3),
			"Y": tensors.FromScalar(float32(0.5)),
		},
		Expected: map[string]*tensors.Tensor{
			"Out": tensors.FromFlatDataAndDimensions([]float32{1.5, 2.5, 3.5, 4.5, 5.5, 6.5}, 2, 3)},
	}
	optest.CheckOutput(t, c, 0)
	optest.CheckGrad(t, c, []string{"X", "Y"}, "Out")

	flipped := &optest.Case{
		OpType: "elementwise_add",
		Inputs: map[string]*tensors.Tensor{
			"X": tensors.FromScalar(float32(0.5)),
			"Y": tensors.FromFlatDataAndDimensions([]float32{1, 2, 3, 4, 5, 6}, 2, 3),
		},
		Expected: map[string]*tensors.Tensor{
			"Out": tensors.FromFlatDataAndDimensions([]float32{1.5, 2.5, 3.5, 4.5, 5.5, 6.5}, 2, 3)},
	}
	optest.CheckOutput(t, flipped, 0)
	optest.CheckGrad(t, flipped, []string{"X", "Y"}, "Out")
}

func TestElementwiseAddRejects(t *testing.T) {
	backend := optest.Backend()
	x := tensors.FromFlatDataAndDimensions([]float32{1, 2, 3, 4, 5, 6}, 2, 3)

	// General axis broadcast is not supported.
	op := ops.NewOperator("elementwise_add").
		SetInput("X", x).
		SetInput("Y", tensors.FromFlatDataAndDimensions([]float32{1, 2, 3}, 3)).
		SetAttr("axis", 0)
	require.ErrorContains(t, ops.Run(backend, op), "axis")

	// Non-scalar shapes must match exactly.
	op = ops.NewOperator("elementwise_add").
		SetInput("X", x).
		SetInput("Y", tensors.FromFlatDataAndDimensions([]float32{1, 2, 3, 4, 5, 6}, 3, 2))
	require.Error(t, ops.Run(backend, op))

	// And so must the dtypes.
	op = ops.NewOperator("elementwise_add").
		SetInput("X", x).
		SetInput("Y", tensors.FromFlatDataAndDimensions([]float64{1, 2, 3, 4, 5, 6}, 2, 3))
	require.Error(t, ops.Run(backend, op))
}

func TestElementwiseMul(t *testing.T) {
	c := &optest.Case{
		OpType: "elementwise_mul",
		Inputs: map[string]*tensors.Tensor{
			"X": tensors.FromFlatDataAndDimensions([]float32{1, 2, 3, 4, 5, 6}, 2, 3),
			"Y": tensors.FromFlatDataAndDimensions([]float32{2, 3, 4, 5, 6, 7}, 2, 3),
		},
		Expected: map[string]*tensors.Tensor{
			"Out": tensors.FromFlatDataAndDimensions([]float32{2, 6, 12, 20, 30, 42}, 2, 3)},
	}
	optest.CheckOutput(t, c, 0)
	optest.CheckGrad(t, c, []string{"X", "Y"}, "Out")
}

func TestElementwiseMulScalarBroadcast(t *testing.T) {
	c := &optest.Case{
		OpType: "elementwise_mul",
		Inputs: map[string]*tensors.Tensor{
			"X": tensors.FromFlatDataAndDimensions([]float32{1, 2, 3, 4, 5, 6}, 2, 3),
			"Y": tensors.FromScalar(float32(2.5)),
		},
		Expected: map[string]*tensors.Tensor{
			"Out": tensors.FromFlatDataAndDimensions([]float32{2.5, 5, 7.5, 10, 12.5, 15}, 2, 3)},
	}
	optest.CheckOutput(t, c, 0)
	optest.CheckGrad(t, c, []string{"X", "Y"}, "Out")
}

func TestElementwiseMulGradValues(t *testing.T) {
	// With ones as the upstream gradient, X@GRAD is exactly Y and Y@GRAD exactly X.
	backend := optest.Backend()
	x := tensors.FromFlatDataAndDimensions([]float32{1, 2, 3, 4, 5, 6}, 2, 3)
	y := tensors.FromFlatDataAndDimensions([]float32{2, 3, 4, 5, 6, 7}, 2, 3)
	op := ops.NewOperator("elementwise_mul").SetInput("X", x).SetInput("Y", y)
	require.NoError(t, ops.Run(backend, op))
	grads, err := ops.RunGrad(backend, op, map[string]*tensors.Tensor{"Out": optest.Ones(x.Shape())})
	require.NoError(t, err)
	require.Equal(t, []float32{2, 3, 4, 5, 6, 7}, tensors.MustCopyFlatData[float32](grads[ops.GradName("X")]))
	require.Equal(t, []float32{1, 2, 3, 4, 5, 6}, tensors.MustCopyFlatData[float32](grads[ops.GradName("Y")]))
}
