// Copyright 2026 The Paddlefish Authors. SPDX-License-Identifier: Apache-2.0

package ops

import (
	"github.com/pkg/errors"

	"github.com/paddlefish-ml/paddlefish/backends/shapeinference"
)

// The "mul" operator multiplies two matrices.
//
//	Out = X·Y                       X is (m, k), Y is (k, n), Out is (m, n)
//	X@GRAD = Out@GRAD · Y^T
//	Y@GRAD = X^T · Out@GRAD
//
// The "x_num_col_dims" and "y_num_col_dims" attributes that flatten higher-rank inputs into
// matrices are accepted only at their default 1, with inputs already of rank 2.
func init() {
	Register(&OpDef{
		Name:       "mul",
		Inputs:     []string{"X", "Y"},
		Outputs:    []string{"Out"},
		Attrs:      []string{"x_num_col_dims", "y_num_col_dims"},
		InferShape: matMulInferShape,
		Compute:    matMulCompute,
		Grad:       matMulGrad,
	})
}

func checkMatMulColDims(op *Operator) error {
	for _, name := range []string{"x_num_col_dims", "y_num_col_dims"} {
		numColDims, err := AttrOr(op, name, 1)
		if err != nil {
			return err
		}
		if numColDims != 1 {
			return errors.Errorf("operator %q: %s=%d is not supported, inputs must already be matrices (%s=1)",
				op.Type, name, numColDims, name)
		}
	}
	return nil
}

func matMulInferShape(ctx *InferContext) error {
	xShape, err := ctx.InputShape("X")
	if err != nil {
		return err
	}
	yShape, err := ctx.InputShape("Y")
	if err != nil {
		return err
	}
	if err := checkMatMulColDims(ctx.Op); err != nil {
		return err
	}
	outShape, err := shapeinference.MatMulOp(xShape, yShape, false, false)
	if err != nil {
		return err
	}
	ctx.SetOutputShape("Out", outShape)
	return nil
}

func matMulCompute(ctx *ExecContext) error {
	x, err := ctx.Input("X")
	if err != nil {
		return err
	}
	y, err := ctx.Input("Y")
	if err != nil {
		return err
	}
	out, err := ctx.Backend.MatMul(x, y, false, false)
	if err != nil {
		return err
	}
	ctx.SetOutput("Out", out)
	return nil
}

func matMulGrad(ctx *GradContext) error {
	gradOut, err := ctx.OutputGrad("Out")
	if err != nil {
		return err
	}
	x, err := ctx.Input("X")
	if err != nil {
		return err
	}
	y, err := ctx.Input("Y")
	if err != nil {
		return err
	}
	gradX, err := ctx.Backend.MatMul(gradOut, y, false, true)
	if err != nil {
		return err
	}
	gradY, err := ctx.Backend.MatMul(x, gradOut, true, false)
	if err != nil {
		finalizeBuffers(ctx.Backend, gradX)
		return err
	}
	ctx.SetInputGrad("X", gradX)
	ctx.SetInputGrad("Y", gradY)
	return nil
}
