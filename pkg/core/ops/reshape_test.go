// Copyright 2026 The Paddlefish Authors. SPDX-License-Identifier: Apache-2.0

package ops_test

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paddlefish-ml/paddlefish/pkg/core/dtypes"
	"github.com/paddlefish-ml/paddlefish/pkg/core/ops"
	"github.com/paddlefish-ml/paddlefish/pkg/core/ops/optest"
	"github.com/paddlefish-ml/paddlefish/pkg/core/shapes"
	"github.com/paddlefish-ml/paddlefish/pkg/core/tensors"
)

// reshapedCopy returns the input's values in a tensor with the given dimensions, the row-major
// order untouched.
func reshapedCopy(x *tensors.Tensor, dimensions ...int) *tensors.Tensor {
	var reshaped *tensors.Tensor
	tensors.MustConstFlatData(x, func(flat []float32) {
		reshaped = tensors.FromFlatDataAndDimensions(slices.Clone(flat), dimensions...)
	})
	return reshaped
}

func TestReshapeExplicitTarget(t *testing.T) {
	x := optest.RandomUniform(shapes.Make(dtypes.Float32, 10, 20), -1, 1)
	c := &optest.Case{
		OpType:   "reshape",
		Inputs:   map[string]*tensors.Tensor{"X": x},
		Attrs:    map[string]any{"shape": []int{200}},
		Expected: map[string]*tensors.Tensor{"Out": reshapedCopy(x, 200)},
	}
	optest.CheckOutput(t, c, 0)
	optest.CheckGrad(t, c, []string{"X"}, "Out")
}

func TestReshapeInferredDimension(t *testing.T) {
	x := optest.RandomUniform(shapes.Make(dtypes.Float32, 10, 20), -1, 1)
	// The -1 must resolve to 200/(4*5) = 10.
	c := &optest.Case{
		OpType:   "reshape",
		Inputs:   map[string]*tensors.Tensor{"X": x},
		Attrs:    map[string]any{"shape": []int{4, -1, 5}},
		Expected: map[string]*tensors.Tensor{"Out": reshapedCopy(x, 4, 10, 5)},
	}
	optest.CheckOutput(t, c, 0)
	optest.CheckGrad(t, c, []string{"X"}, "Out")
}

func TestReshapeRoundTrip(t *testing.T) {
	backend := optest.Backend()
	x := optest.RandomUniform(shapes.Make(dtypes.Float32, 10, 20), -1, 1)
	flattened := ops.NewOperator("reshape").SetInput("X", x).SetAttr("shape", []int{200})
	require.NoError(t, ops.Run(backend, flattened))
	restored := ops.NewOperator("reshape").SetInput("X", flattened.Output("Out")).SetAttr("shape", []int{10, 20})
	require.NoError(t, ops.Run(backend, restored))
	assert.True(t, x.Equal(restored.Output("Out")), "reshape round-trip changed the tensor:\n\tgot  %s\n\twant %s",
		restored.Output("Out").GoStr(), x.GoStr())
}

func TestReshapeGradPassesUpstreamThrough(t *testing.T) {
	backend := optest.Backend()
	x := optest.RandomUniform(shapes.Make(dtypes.Float32, 10, 20), -1, 1)
	op := ops.NewOperator("reshape").SetInput("X", x).SetAttr("shape", []int{4, -1, 5})
	require.NoError(t, ops.Run(backend, op))

	// Feed a distinct upstream gradient per element: the reshape gradient must hand exactly
	// those values back, reshaped to X's dimensions.
	upstream := make([]float32, x.Size())
	for idx := range upstream {
		upstream[idx] = float32(idx)
	}
	gradOut := tensors.FromFlatDataAndDimensions(slices.Clone(upstream), 4, 10, 5)
	grads, err := ops.RunGrad(backend, op, map[string]*tensors.Tensor{"Out": gradOut})
	require.NoError(t, err)
	gradX := grads[ops.GradName("X")]
	require.NotNil(t, gradX, "no gradient produced for X")
	assert.True(t, gradX.Shape().Equal(x.Shape()), "gradient shape %s, want the input's %s", gradX.Shape(), x.Shape())
	assert.Equal(t, upstream, tensors.MustCopyFlatData[float32](gradX))
}

func TestReshapeRejectsBadTargets(t *testing.T) {
	backend := optest.Backend()
	x := optest.RandomUniform(shapes.Make(dtypes.Float32, 10, 20), -1, 1)
	for _, test := range []struct {
		dims   []int
		reason string
	}{
		{[]int{-1, -1, 50}, "only one dimension can be inferred"},
		{[]int{3, -1}, "200 isn't divisible by 3"},
		{[]int{7}, "wrong total size"},
		{[]int{0, 200}, "dimensions must be positive"},
		{[]int{-2, 100}, "only -1 marks an inferred dimension"},
		{[]int{20, -1, 20}, "the known dimensions alone overflow the input size"},
	} {
		op := ops.NewOperator("reshape").SetInput("X", x).SetAttr("shape", test.dims)
		err := ops.Run(backend, op)
		require.Errorf(t, err, "reshape of a (10, 20) input to %v should have failed: %s", test.dims, test.reason)
		assert.ErrorContainsf(t, err, "InferShape", "reshape to %v should be rejected while inferring shapes", test.dims)
		assert.Nilf(t, op.Output("Out"), "reshape to %v failed but still produced an output", test.dims)
	}
}
