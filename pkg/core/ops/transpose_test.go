// Copyright 2026 The Paddlefish Authors. SPDX-License-Identifier: Apache-2.0

package ops_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/paddlefish-ml/paddlefish/pkg/core/ops"
	"github.com/paddlefish-ml/paddlefish/pkg/core/ops/optest"
	"github.com/paddlefish-ml/paddlefish/pkg/core/tensors"
)

func TestTranspose(t *testing.T) {
	c := &optest.Case{
		OpType: "transpose",
		Inputs: map[string]*tensors.Tensor{
			"X": tensors.FromFlatDataAndDimensions([]float32{1, 2, 3, 4, 5, 6}, 2, 3)},
		Attrs: map[string]any{"axis": []int{1, 0}},
		Expected: map[string]*tensors.Tensor{
			"Out": tensors.FromFlatDataAndDimensions([]float32{1, 4, 2, 5, 3, 6}, 3, 2)},
	}
	optest.CheckOutput(t, c, 0)
	optest.CheckGrad(t, c, []string{"X"}, "Out")
}

func TestTransposeRank3(t *testing.T) {
	flat := make([]float32, 2*3*4)
	for idx := range flat {
		flat[idx] = float32(idx)
	}
	// With axis (2, 0, 1) the output has dimensions (4, 2, 3) and out[a, b, c] = x[b, c, a].
	want := make([]float32, len(flat))
	idx := 0
	for a := 0; a < 4; a++ {
		for b := 0; b < 2; b++ {
			for c := 0; c < 3; c++ {
				want[idx] = flat[(b*3+c)*4+a]
				idx++
			}
		}
	}
	c := &optest.Case{
		OpType: "transpose",
		Inputs: map[string]*tensors.Tensor{
			"X": tensors.FromFlatDataAndDimensions(flat, 2, 3, 4)},
		Attrs: map[string]any{"axis": []int{2, 0, 1}},
		Expected: map[string]*tensors.Tensor{
			"Out": tensors.FromFlatDataAndDimensions(want, 4, 2, 3)},
	}
	optest.CheckOutput(t, c, 0)
	optest.CheckGrad(t, c, []string{"X"}, "Out")
}

func TestTransposeGradRestoresLayout(t *testing.T) {
	backend := optest.Backend()
	x := tensors.FromFlatDataAndDimensions([]float32{1, 2, 3, 4, 5, 6}, 2, 3)
	op := ops.NewOperator("transpose").SetInput("X", x).SetAttr("axis", []int{1, 0})
	require.NoError(t, ops.Run(backend, op))

	// The gradient applies the inverse permutation: with upstream values g[i, j] laid out over
	// the (3, 2) output, X@GRAD[i, j] = g[j, i].
	upstream := tensors.FromFlatDataAndDimensions([]float32{0, 1, 2, 3, 4, 5}, 3, 2)
	grads, err := ops.RunGrad(backend, op, map[string]*tensors.Tensor{"Out": upstream})
	require.NoError(t, err)
	gradX := grads[ops.GradName("X")]
	require.NotNil(t, gradX)
	require.True(t, gradX.Shape().Equal(x.Shape()))
	require.Equal(t, []float32{0, 2, 4, 1, 3, 5}, tensors.MustCopyFlatData[float32](gradX))
}

func TestTransposeRejectsBadAxis(t *testing.T) {
	backend := optest.Backend()
	x := tensors.FromFlatDataAndDimensions([]float32{1, 2, 3, 4, 5, 6}, 2, 3)
	for _, axis := range [][]int{
		{0, 0},    // repeated axis
		{0},       // wrong rank
		{0, 2},    // out of range
		{1, 0, 2}, // wrong rank
	} {
		op := ops.NewOperator("transpose").SetInput("X", x).SetAttr("axis", axis)
		err := ops.Run(backend, op)
		require.Errorf(t, err, "transpose of a (2, 3) input with axis %v should have failed", axis)
		require.ErrorContainsf(t, err, "InferShape", "transpose with axis %v should be rejected while inferring shapes", axis)
	}
}
