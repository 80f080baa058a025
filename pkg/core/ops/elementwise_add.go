// Copyright 2026 The Paddlefish Authors. SPDX-License-Identifier: Apache-2.0

package ops

import (
	"github.com/pkg/errors"

	"github.com/paddlefish-ml/paddlefish/backends"
	"github.com/paddlefish-ml/paddlefish/backends/shapeinference"
)

// The "elementwise_add" operator adds its two inputs element-wise. The inputs must have the
// same dimensions, or one of them can be a scalar, broadcast against the other.
//
//	Out = X + Y
//	X@GRAD = Out@GRAD        summed over all axes if X is a broadcast scalar
//	Y@GRAD = Out@GRAD        likewise
//
// The "axis" attribute is accepted for compatibility but only its default -1 (align trailing
// dimensions) is supported.
func init() {
	Register(&OpDef{
		Name:       "elementwise_add",
		Inputs:     []string{"X", "Y"},
		Outputs:    []string{"Out"},
		Attrs:      []string{"axis"},
		InferShape: addInferShape,
		Compute:    addCompute,
		Grad:       addGrad,
	})
}

// checkElementwiseAxis rejects the general axis broadcast of the elementwise operators, which
// isn't supported: only same-dimension inputs or a scalar operand are.
func checkElementwiseAxis(op *Operator) error {
	axis, err := AttrOr(op, "axis", -1)
	if err != nil {
		return err
	}
	if axis != -1 {
		return errors.Errorf("operator %q: axis %d is not supported, inputs must have the same dimensions (or one is a scalar), which requires the default axis -1", op.Type, axis)
	}
	return nil
}

func addInferShape(ctx *InferContext) error {
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
	outShape, err := shapeinference.BinaryOp(backends.OpTypeAdd, xShape, yShape)
	if err != nil {
		return err
	}
	ctx.SetOutputShape("Out", outShape)
	return nil
}

func addCompute(ctx *ExecContext) error {
	x, err := ctx.Input("X")
	if err != nil {
		return err
	}
	y, err := ctx.Input("Y")
	if err != nil {
		return err
	}
	out, err := ctx.Backend.Add(x, y)
	if err != nil {
		return err
	}
	ctx.SetOutput("Out", out)
	return nil
}

func addGrad(ctx *GradContext) error {
	gradOut, err := ctx.OutputGrad("Out")
	if err != nil {
		return err
	}
	for _, slot := range []string{"X", "Y"} {
		grad, err := addGradForOperand(ctx, slot, gradOut)
		if err != nil {
			return err
		}
		ctx.SetInputGrad(slot, grad)
	}
	return nil
}

// addGradForOperand returns a fresh buffer with the gradient flowing to one operand of the
// addition: a copy of the output gradient, or its sum over all axes if the operand was a
// broadcast scalar.
func addGradForOperand(ctx *GradContext, slot string, gradOut backends.Buffer) (backends.Buffer, error) {
	operandShape, err := ctx.InputShape(slot)
	if err != nil {
		return nil, err
	}
	gradShape, err := ctx.Backend.BufferShape(gradOut)
	if err != nil {
		return nil, err
	}
	if gradShape.EqualDimensions(operandShape) {
		return ctx.Backend.BufferCopyToDevice(gradOut, 0)
	}
	return ctx.Backend.ReduceSum(gradOut)
}
