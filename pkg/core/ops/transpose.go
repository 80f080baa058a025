// Copyright 2026 The Paddlefish Authors. SPDX-License-Identifier: Apache-2.0

package ops

import (
	"github.com/paddlefish-ml/paddlefish/backends/shapeinference"
)

// The "transpose" operator permutes the axes of its input according to the "axis" attribute,
// a permutation of the input axes: axis i of the output is axis[i] of the input.
//
//	Out = transpose(X, axis)
//	X@GRAD = transpose(Out@GRAD, inverse of axis)
func init() {
	Register(&OpDef{
		Name:       "transpose",
		Inputs:     []string{"X"},
		Outputs:    []string{"Out"},
		Attrs:      []string{"axis"},
		InferShape: transposeInferShape,
		Compute:    transposeCompute,
		Grad:       transposeGrad,
	})
}

func transposeInferShape(ctx *InferContext) error {
	xShape, err := ctx.InputShape("X")
	if err != nil {
		return err
	}
	permutation, err := IntsAttr(ctx.Op, "axis")
	if err != nil {
		return err
	}
	outShape, err := shapeinference.TransposeOp(xShape, permutation)
	if err != nil {
		return err
	}
	ctx.SetOutputShape("Out", outShape)
	return nil
}

func transposeCompute(ctx *ExecContext) error {
	x, err := ctx.Input("X")
	if err != nil {
		return err
	}
	permutation, err := IntsAttr(ctx.Op, "axis")
	if err != nil {
		return err
	}
	out, err := ctx.Backend.Transpose(x, permutation...)
	if err != nil {
		return err
	}
	ctx.SetOutput("Out", out)
	return nil
}

func transposeGrad(ctx *GradContext) error {
	gradOut, err := ctx.OutputGrad("Out")
	if err != nil {
		return err
	}
	permutation, err := IntsAttr(ctx.Op, "axis")
	if err != nil {
		return err
	}
	gradX, err := ctx.Backend.Transpose(gradOut, inversePermutation(permutation)...)
	if err != nil {
		return err
	}
	ctx.SetInputGrad("X", gradX)
	return nil
}

// inversePermutation returns the permutation that undoes permutation: applying one after the
// other restores the original axes order.
func inversePermutation(permutation []int) []int {
	inverse := make([]int, len(permutation))
	for axis, src := range permutation {
		inverse[src] = axis
	}
	return inverse
}
