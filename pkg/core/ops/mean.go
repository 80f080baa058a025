// Copyright 2026 The Paddlefish Authors. SPDX-License-Identifier: Apache-2.0

package ops

import (
	"github.com/paddlefish-ml/paddlefish/backends"
	"github.com/paddlefish-ml/paddlefish/backends/shapeinference"
)

// The "mean" operator averages all the elements of its input into a scalar.
//
//	Out = sum(X) / size(X)
//	X@GRAD[i...] = Out@GRAD / size(X)
//
// The gradient spreads the (scaled) output gradient uniformly over the input's shape.
func init() {
	Register(&OpDef{
		Name:       "mean",
		Inputs:     []string{"X"},
		Outputs:    []string{"Out"},
		InferShape: meanInferShape,
		Compute:    meanCompute,
		Grad:       meanGrad,
	})
}

func meanInferShape(ctx *InferContext) error {
	xShape, err := ctx.InputShape("X")
	if err != nil {
		return err
	}
	outShape, err := shapeinference.ReduceOp(xShape, nil)
	if err != nil {
		return err
	}
	ctx.SetOutputShape("Out", outShape)
	return nil
}

func meanCompute(ctx *ExecContext) error {
	x, err := ctx.Input("X")
	if err != nil {
		return err
	}
	xShape, err := ctx.InputShape("X")
	if err != nil {
		return err
	}
	sum, err := ctx.Backend.ReduceSum(x)
	if err != nil {
		return err
	}
	out, err := ctx.Backend.Scale(sum, 1/float64(xShape.Size()), 0)
	finalizeBuffers(ctx.Backend, sum)
	if err != nil {
		return err
	}
	ctx.SetOutput("Out", out)
	return nil
}

func meanGrad(ctx *GradContext) error {
	gradOut, err := ctx.OutputGrad("Out")
	if err != nil {
		return err
	}
	x, err := ctx.Input("X")
	if err != nil {
		return err
	}
	xShape, err := ctx.InputShape("X")
	if err != nil {
		return err
	}

	// Scale the upstream scalar by 1/size and broadcast it over X's shape with a multiply
	// against a buffer of ones.
	var scaled, ones backends.Buffer
	defer func() { finalizeBuffers(ctx.Backend, scaled, ones) }()
	scaled, err = ctx.Backend.Scale(gradOut, 1/float64(xShape.Size()), 0)
	if err != nil {
		return err
	}
	ones, err = ctx.Backend.Scale(x, 0, 1)
	if err != nil {
		return err
	}
	gradX, err := ctx.Backend.Mul(ones, scaled)
	if err != nil {
		return err
	}
	ctx.SetInputGrad("X", gradX)
	return nil
}
