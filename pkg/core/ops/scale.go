// Copyright 2026 The Paddlefish Authors. SPDX-License-Identifier: Apache-2.0

package ops

// The "scale" operator applies an affine transformation with constant coefficients.
//
//	Out = scale*X + bias                   if bias_after_scale (the default)
//	Out = scale*(X + bias)                 otherwise
//	X@GRAD = scale * Out@GRAD
//
// Attributes: "scale" (default 1.0), "bias" (default 0.0) and "bias_after_scale" (default
// true), the scalar coefficients taken as float64.
func init() {
	Register(&OpDef{
		Name:       "scale",
		Inputs:     []string{"X"},
		Outputs:    []string{"Out"},
		Attrs:      []string{"scale", "bias", "bias_after_scale"},
		InferShape: scaleInferShape,
		Compute:    scaleCompute,
		Grad:       scaleGrad,
	})
}

// scaleCoefficients reads the attributes and folds bias_after_scale away, returning the
// coefficients for Out = scale*X + bias.
func scaleCoefficients(op *Operator) (scale, bias float64, err error) {
	scale, err = AttrOr(op, "scale", 1.0)
	if err != nil {
		return
	}
	bias, err = AttrOr(op, "bias", 0.0)
	if err != nil {
		return
	}
	biasAfterScale, err := AttrOr(op, "bias_after_scale", true)
	if err != nil {
		return
	}
	if !biasAfterScale {
		bias *= scale
	}
	return
}

func scaleInferShape(ctx *InferContext) error {
	xShape, err := ctx.InputShape("X")
	if err != nil {
		return err
	}
	if _, _, err := scaleCoefficients(ctx.Op); err != nil {
		return err
	}
	ctx.SetOutputShape("Out", xShape)
	return nil
}

func scaleCompute(ctx *ExecContext) error {
	x, err := ctx.Input("X")
	if err != nil {
		return err
	}
	scale, bias, err := scaleCoefficients(ctx.Op)
	if err != nil {
		return err
	}
	out, err := ctx.Backend.Scale(x, scale, bias)
	if err != nil {
		return err
	}
	ctx.SetOutput("Out", out)
	return nil
}

func scaleGrad(ctx *GradContext) error {
	gradOut, err := ctx.OutputGrad("Out")
	if err != nil {
		return err
	}
	scale, _, err := scaleCoefficients(ctx.Op)
	if err != nil {
		return err
	}
	gradX, err := ctx.Backend.Scale(gradOut, scale, 0)
	if err != nil {
		return err
	}
	ctx.SetInputGrad("X", gradX)
	return nil
}
