// Copyright 2026 The Paddlefish Authors. SPDX-License-Identifier: Apache-2.0

package ops

import (
	"github.com/paddlefish-ml/paddlefish/backends"
	"github.com/paddlefish-ml/paddlefish/backends/shapeinference"
)

// The "elementwise_mul" operator multiplies its two inputs element-wise. The inputs must have
// the same dimensions, or one of them can be a scalar, broadcast against the other.
//
//	Out = X * Y
//	X@GRAD = Out@GRAD * Y        summed over all axes if X is a broadcast scalar
//	Y@GRAD = Out@GRAD * X        likewise
//
// As with "elementwise_add", only the default axis -1 is supported.
func init() {
	Register(&OpDef{
		Name:       "elementwise_mul",
		Inputs:     []string{"X", "Y"},
		Outputs:    []string{"Out"},
		Attrs:      []string{"axis"},
		InferShape: mulInferShape,
		Compute:    mulCompute,
		Grad:       mulGrad,
	})
}

func mulInferShape(ctx *InferContext) error {
	xShape, err := ctx.InputShape("X")
	if err != nil {
		return err
	}
	yShape, err := ctx.InputShape("Y")
	if err != nil {
		return err
	}
	if err := checkElementwiseAxis(ctx.Op); err != nil {
		return err
	}
	outShape, err := shapeinference.BinaryOp(backends.OpTypeMul, xShape, yShape)
	if err != nil {
		return err
	}
	ctx.SetOutputShape("Out", outShape)
	return nil
}

func mulCompute(ctx *ExecContext) error {
	x, err := ctx.Input("X")
	if err != nil {
		return err
	}
	y, err := ctx.Input("Y")
	if err != nil {
		return err
	}
	out, err := ctx.Backend.Mul(x, y)
	if err != nil {
		return err
	}
	ctx.SetOutput("Out", out)
	return nil
}

func mulGrad(ctx *GradContext) error {
	gradOut, err := ctx.OutputGrad("Out")
	if err != nil {
		return err
	}
	if err := mulGradForOperand(ctx, "X", "Y", gradOut); err != nil {
		return err
	}
	return mulGradForOperand(ctx, "Y", "X", gradOut)
}

// mulGradForOperand computes and sets the gradient flowing to one operand of the product,
// Out@GRAD times the other operand, summed over all axes if the operand was a broadcast
// scalar.
func mulGradForOperand(ctx *GradContext, slot, otherSlot string, gradOut backends.Buffer) error {
	other, err := ctx.Input(otherSlot)
	if err != nil {
		return err
	}
	product, err := ctx.Backend.Mul(gradOut, other)
	if err != nil {
		return err
	}
	operandShape, err := ctx.InputShape(slot)
	if err != nil {
		finalizeBuffers(ctx.Backend, product)
		return err
	}
	productShape, err := ctx.Backend.BufferShape(product)
	if err != nil {
		finalizeBuffers(ctx.Backend, product)
		return err
	}
	if productShape.EqualDimensions(operandShape) {
		ctx.SetInputGrad(slot, product)
		return nil
	}
	reduced, err := ctx.Backend.ReduceSum(product)
	finalizeBuffers(ctx.Backend, product)
	if err != nil {
		return err
	}
	ctx.SetInputGrad(slot, reduced)
	return nil
}
