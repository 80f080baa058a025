// Copyright 2026 The Paddlefish Authors. SPDX-License-Identifier: Apache-2.0

package ops

import (
	"github.com/paddlefish-ml/paddlefish/pkg/core/shapes"
)

// The "reshape" operator changes the dimensions of its input without touching the row-major
// order of the elements.
//
//	Out = reshape(X, shape)
//	X@GRAD = reshape(Out@GRAD, dimensions of X)
//
// The "shape" attribute gives the target dimensions and may use -1 once to have that dimension
// inferred from the input size, see ResolveDims.
func init() {
	Register(&OpDef{
		Name:       "reshape",
		Inputs:     []string{"X"},
		Outputs:    []string{"Out"},
		Attrs:      []string{"shape"},
		InferShape: reshapeInferShape,
		Compute:    reshapeCompute,
		Grad:       reshapeGrad,
	})
}

func reshapeInferShape(ctx *InferContext) error {
	xShape, err := ctx.InputShape("X")
	if err != nil {
		return err
	}
	dims, err := IntsAttr(ctx.Op, "shape")
	if err != nil {
		return err
	}
	resolved, err := ResolveDims(xShape.Size(), dims)
	if err != nil {
		return err
	}
	ctx.SetOutputShape("Out", shapes.Make(xShape.DType, resolved...))
	return nil
}

func reshapeCompute(ctx *ExecContext) error {
	x, err := ctx.Input("X")
	if err != nil {
		return err
	}
	// The -1 in the target dimensions (if any) was already resolved by reshapeInferShape.
	outShape, err := ctx.OutputShape("Out")
	if err != nil {
		return err
	}
	out, err := ctx.Backend.Reshape(x, outShape.Dimensions...)
	if err != nil {
		return err
	}
	ctx.SetOutput("Out", out)
	return nil
}

func reshapeGrad(ctx *GradContext) error {
	gradOut, err := ctx.OutputGrad("Out")
	if err != nil {
		return err
	}
	xShape, err := ctx.InputShape("X")
	if err != nil {
		return err
	}
	gradX, err := ctx.Backend.Reshape(gradOut, xShape.Dimensions...)
	if err != nil {
		return err
	}
	ctx.SetInputGrad("X", gradX)
	return nil
}
