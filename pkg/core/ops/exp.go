// Copyright 2026 The Paddlefish Authors. SPDX-License-Identifier: Apache-2.0

package ops

import (
	"github.com/paddlefish-ml/paddlefish/backends"
	"github.com/paddlefish-ml/paddlefish/backends/shapeinference"
)

// The "exp" operator exponentiates its input element-wise.
//
//	Out = e^X
//	X@GRAD = Out@GRAD * Out
//
// The gradient reuses the forward output instead of recomputing the exponential.
func init() {
	Register(&OpDef{
		Name:       "exp",
		Inputs:     []string{"X"},
		Outputs:    []string{"Out"},
		InferShape: expInferShape,
		Compute:    expCompute,
		Grad:       expGrad,
	})
}

func expInferShape(ctx *InferContext) error {
	xShape, err := ctx.InputShape("X")
	if err != nil {
		return err
	}
	outShape, err := shapeinference.UnaryOp(backends.OpTypeExp, xShape)
	if err != nil {
		return err
	}
	ctx.SetOutputShape("Out", outShape)
	return nil
}

func expCompute(ctx *ExecContext) error {
	x, err := ctx.Input("X")
	if err != nil {
		return err
	}
	out, err := ctx.Backend.Exp(x)
	if err != nil {
		return err
	}
	ctx.SetOutput("Out", out)
	return nil
}

func expGrad(ctx *GradContext) error {
	gradOut, err := ctx.OutputGrad("Out")
	if err != nil {
		return err
	}
	out, err := ctx.Output("Out")
	if err != nil {
		return err
	}
	gradX, err := ctx.Backend.Mul(gradOut, out)
	if err != nil {
		return err
	}
	ctx.SetInputGrad("X", gradX)
	return nil
}
