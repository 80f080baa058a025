// Copyright 2026 The Paddlefish Authors. SPDX-License-Identifier: Apache-2.0

package ops_test

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/paddlefish-ml/paddlefish/backends/default"
	"github.com/paddlefish-ml/paddlefish/pkg/core/dtypes"
	"github.com/paddlefish-ml/paddlefish/pkg/core/ops"
	"github.com/paddlefish-ml/paddlefish/pkg/core/ops/optest"
	"github.com/paddlefish-ml/paddlefish/pkg/core/shapes"
	"github.com/paddlefish-ml/paddlefish/pkg/core/tensors"
)

// The "test_identity" operator copies X to Out and defines no gradient, it exists to exercise
// the framework paths the real operators can't reach.
func init() {
	ops.Register(&ops.OpDef{
		Name:    "test_identity",
		Inputs:  []string{"X"},
		Outputs: []string{"Out"},
		InferShape: func(ctx *ops.InferContext) error {
			xShape, err := ctx.InputShape("X")
			if err != nil {
				return err
			}
			ctx.SetOutputShape("Out", xShape)
			return nil
		},
		Compute: func(ctx *ops.ExecContext) error {
			x, err := ctx.Input("X")
			if err != nil {
				return err
			}
			out, err := ctx.Backend.BufferCopyToDevice(x, 0)
			if err != nil {
				return err
			}
			ctx.SetOutput("Out", out)
			return nil
		},
	})
}

func TestRegistry(t *testing.T) {
	list := ops.List()
	assert.True(t, slices.IsSorted(list), "ops.List() should be sorted, got %v", list)
	assert.Subset(t, list, []string{
		"elementwise_add", "elementwise_mul", "exp", "mean", "mul", "reshape", "scale", "transpose"})

	def, err := ops.Get("reshape")
	require.NoError(t, err)
	assert.Equal(t, []string{"X"}, def.Inputs)
	assert.Equal(t, []string{"Out"}, def.Outputs)
	assert.Equal(t, []string{"shape"}, def.Attrs)
	assert.True(t, def.HasGrad())

	_, err = ops.Get("no_such_operator")
	require.ErrorContains(t, err, "unknown operator type")
	require.ErrorContains(t, err, "reshape")
	assert.Panics(t, func() { ops.MustGet("no_such_operator") })
	assert.NotPanics(t, func() { ops.MustGet("mean") })

	assert.False(t, ops.MustGet("test_identity").HasGrad())
}

func TestGradName(t *testing.T) {
	assert.Equal(t, "X@GRAD", ops.GradName("X"))
	assert.Equal(t, "Out@GRAD", ops.GradName("Out"))
}

func TestAttrs(t *testing.T) {
	op := ops.NewOperator("test").
		SetAttr("scale", 2.5).
		SetAttr("shape", []int{4, -1, 5}).
		SetAttr("axes32", []int32{1, 0}).
		SetAttr("axes64", []int64{2, 3}).
		SetAttr("name", "main")

	scale, err := ops.Attr[float64](op, "scale")
	require.NoError(t, err)
	assert.Equal(t, 2.5, scale)

	_, err = ops.Attr[float64](op, "bias")
	require.ErrorContains(t, err, "missing required attribute")
	_, err = ops.Attr[float64](op, "name")
	require.ErrorContains(t, err, "wanted")

	bias, err := ops.AttrOr(op, "bias", 0.25)
	require.NoError(t, err)
	assert.Equal(t, 0.25, bias)
	scale, err = ops.AttrOr(op, "scale", 1.0)
	require.NoError(t, err)
	assert.Equal(t, 2.5, scale)
	_, err = ops.AttrOr(op, "name", 1.0)
	require.Error(t, err, "AttrOr should reject a set attribute of the wrong type")

	dims, err := ops.IntsAttr(op, "shape")
	require.NoError(t, err)
	assert.Equal(t, []int{4, -1, 5}, dims)
	dims, err = ops.IntsAttr(op, "axes32")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 0}, dims)
	dims, err = ops.IntsAttr(op, "axes64")
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, dims)
	_, err = ops.IntsAttr(op, "missing")
	require.ErrorContains(t, err, "missing required attribute")
	_, err = ops.IntsAttr(op, "name")
	require.ErrorContains(t, err, "wanted a list of ints")
}

func TestResolveDims(t *testing.T) {
	for _, test := range []struct {
		totalSize int
		dims      []int
		want      []int
	}{
		{200, []int{200}, []int{200}},
		{200, []int{4, -1, 5}, []int{4, 10, 5}},
		{200, []int{-1}, []int{200}},
		{200, []int{2, 100}, []int{2, 100}},
		{1, []int{}, []int{}},
		{24, []int{-1, 2, 3}, []int{4, 2, 3}},
	} {
		got, err := ops.ResolveDims(test.totalSize, test.dims)
		require.NoErrorf(t, err, "ResolveDims(%d, %v)", test.totalSize, test.dims)
		assert.Equalf(t, test.want, got, "ResolveDims(%d, %v)", test.totalSize, test.dims)
	}

	for _, test := range []struct {
		totalSize int
		dims      []int
	}{
		{200, []int{-1, -1, 50}},
		{200, []int{3, -1}},
		{200, []int{7}},
		{200, []int{0, 200}},
		{200, []int{-2, 100}},
		{2, []int{}},
	} {
		_, err := ops.ResolveDims(test.totalSize, test.dims)
		require.Errorf(t, err, "ResolveDims(%d, %v) should have failed", test.totalSize, test.dims)
	}

	// The input dims are never changed in place, the resolved ones are a copy.
	dims := []int{4, -1, 5}
	_, err := ops.ResolveDims(200, dims)
	require.NoError(t, err)
	assert.Equal(t, []int{4, -1, 5}, dims)
}

func TestRunValidations(t *testing.T) {
	backend := optest.Backend()

	err := ops.Run(backend, ops.NewOperator("no_such_operator"))
	require.ErrorContains(t, err, "unknown operator type")

	err = ops.Run(backend, ops.NewOperator("reshape").SetAttr("shape", []int{2}))
	require.ErrorContains(t, err, `missing input "X"`)

	x := tensors.FromFlatDataAndDimensions([]float32{1, 2, 3, 4}, 2, 2)
	err = ops.Run(backend, ops.NewOperator("reshape").SetInput("X", x).SetAttr("shape", "4"))
	require.ErrorContains(t, err, "InferShape")
}

func TestRunGradValidations(t *testing.T) {
	backend := optest.Backend()
	x := tensors.FromFlatDataAndDimensions([]float32{1, 2, 3, 4}, 2, 2)

	// Differentiating before running.
	op := ops.NewOperator("mean").SetInput("X", x)
	_, err := ops.RunGrad(backend, op, nil)
	require.ErrorContains(t, err, "Run the operator before RunGrad")

	require.NoError(t, ops.Run(backend, op))

	// Gradient for a slot the operator doesn't have.
	_, err = ops.RunGrad(backend, op, map[string]*tensors.Tensor{"Bogus": tensors.FromScalar(float32(1))})
	require.ErrorContains(t, err, "unknown output")

	// Gradient with a shape that doesn't match the output's.
	_, err = ops.RunGrad(backend, op, map[string]*tensors.Tensor{
		"Out": tensors.FromFlatDataAndDimensions([]float32{1, 2}, 2)})
	require.ErrorContains(t, err, "shape")

	// Operator without a gradient.
	identity := ops.NewOperator("test_identity").SetInput("X", x)
	require.NoError(t, ops.Run(backend, identity))
	_, err = ops.RunGrad(backend, identity, map[string]*tensors.Tensor{"Out": optest.Ones(x.Shape())})
	require.ErrorContains(t, err, "doesn't define a gradient")
}

func TestRunIdentity(t *testing.T) {
	backend := optest.Backend()
	x := tensors.FromFlatDataAndDimensions([]float32{1, 2, 3, 4, 5, 6}, 2, 3)
	op := ops.NewOperator("test_identity").SetInput("X", x)
	require.NoError(t, ops.Run(backend, op))
	out := op.Output("Out")
	require.NotNil(t, out)
	assert.True(t, out.Shape().Equal(shapes.Make(dtypes.Float32, 2, 3)))
	assert.Equal(t, []float32{1, 2, 3, 4, 5, 6}, tensors.MustCopyFlatData[float32](out))

	// The output is a copy, mutating it leaves the input alone.
	tensors.MustMutableFlatData(out, func(flat []float32) { flat[0] = 100 })
	assert.Equal(t, float32(1), tensors.MustCopyFlatData[float32](x)[0])
}
