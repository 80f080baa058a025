// Copyright 2026 The Paddlefish Authors. SPDX-License-Identifier: Apache-2.0

package ops

import (
	"slices"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/paddlefish-ml/paddlefish/backends"
	"github.com/paddlefish-ml/paddlefish/pkg/core/shapes"
	"github.com/paddlefish-ml/paddlefish/pkg/core/tensors"
)

// InferContext is handed to OpDef.InferShape: input shapes and attributes in, output shapes
// out.
type InferContext struct {
	// Op being executed. Attributes are usually read with Attr, AttrOr and IntsAttr.
	Op *Operator

	outputShapes map[string]shapes.Shape
}

// InputShape returns the shape of the input tensor in the given slot.
func (ctx *InferContext) InputShape(slot string) (shapes.Shape, error) {
	input := ctx.Op.Inputs[slot]
	if input == nil {
		return shapes.Invalid(), errors.Errorf("operator %q: missing input %q", ctx.Op.Type, slot)
	}
	return input.Shape(), nil
}

// SetOutputShape sets the inferred shape for the given output slot. InferShape must call it
// for every output slot of the operator.
func (ctx *InferContext) SetOutputShape(slot string, shape shapes.Shape) {
	ctx.outputShapes[slot] = shape
}

// ExecContext is handed to OpDef.Compute: it gives access to the input buffers (materialized
// on the backend) and the shapes inferred by InferShape, and collects the output buffers.
//
// Operators execute on the backend's device 0.
type ExecContext struct {
	// Backend executing the operator, used by Compute to invoke kernels.
	Backend backends.Backend

	// Op being executed.
	Op *Operator

	outputShapes map[string]shapes.Shape
	outputs      map[string]backends.Buffer
}

// Input returns the backend buffer with the input tensor in the given slot, materializing it
// on the backend if needed. The buffer remains owned by the input tensor, it must only be read.
func (ctx *ExecContext) Input(slot string) (backends.Buffer, error) {
	input := ctx.Op.Inputs[slot]
	if input == nil {
		return nil, errors.Errorf("operator %q: missing input %q", ctx.Op.Type, slot)
	}
	buffer, err := input.Buffer(ctx.Backend, 0)
	if err != nil {
		return nil, errors.WithMessagef(err, "operator %q: input %q", ctx.Op.Type, slot)
	}
	return buffer, nil
}

// InputShape returns the shape of the input tensor in the given slot.
func (ctx *ExecContext) InputShape(slot string) (shapes.Shape, error) {
	input := ctx.Op.Inputs[slot]
	if input == nil {
		return shapes.Invalid(), errors.Errorf("operator %q: missing input %q", ctx.Op.Type, slot)
	}
	return input.Shape(), nil
}

// OutputShape returns the shape inferred by InferShape for the given output slot. Operators
// whose kernels need resolved attributes (e.g. reshape with a -1 target dimension) read them
// back from here instead of resolving twice.
func (ctx *ExecContext) OutputShape(slot string) (shapes.Shape, error) {
	shape, found := ctx.outputShapes[slot]
	if !found {
		return shapes.Invalid(), errors.Errorf("operator %q: no shape inferred for output %q", ctx.Op.Type, slot)
	}
	return shape, nil
}

// SetOutput sets the buffer produced for the given output slot. The buffer must be owned by
// the caller (freshly produced by a kernel or a buffer copy), never one obtained from Input:
// the output tensor created by Run takes ownership of it.
func (ctx *ExecContext) SetOutput(slot string, buffer backends.Buffer) {
	ctx.outputs[slot] = buffer
}

// GradContext is handed to OpDef.Grad: it gives access to the forward inputs and outputs and
// to the gradients with respect to the outputs, and collects the gradients with respect to the
// inputs.
type GradContext struct {
	// Backend that executed the forward operator, used by Grad to invoke kernels.
	Backend backends.Backend

	// Op is the forward operator, already executed with Run, so both input and output slots
	// are set.
	Op *Operator

	outputGrads map[string]*tensors.Tensor
	inputGrads  map[string]backends.Buffer
}

// Input returns the backend buffer with the forward input tensor in the given slot. The buffer
// remains owned by the input tensor, it must only be read.
func (ctx *GradContext) Input(slot string) (backends.Buffer, error) {
	input := ctx.Op.Inputs[slot]
	if input == nil {
		return nil, errors.Errorf("operator %q: missing input %q", ctx.Op.Type, slot)
	}
	buffer, err := input.Buffer(ctx.Backend, 0)
	if err != nil {
		return nil, errors.WithMessagef(err, "operator %q: input %q", ctx.Op.Type, slot)
	}
	return buffer, nil
}

// InputShape returns the shape of the forward input tensor in the given slot.
func (ctx *GradContext) InputShape(slot string) (shapes.Shape, error) {
	input := ctx.Op.Inputs[slot]
	if input == nil {
		return shapes.Invalid(), errors.Errorf("operator %q: missing input %q", ctx.Op.Type, slot)
	}
	return input.Shape(), nil
}

// Output returns the backend buffer with the forward output tensor in the given slot. The
// buffer remains owned by the output tensor, it must only be read.
func (ctx *GradContext) Output(slot string) (backends.Buffer, error) {
	output := ctx.Op.Outputs[slot]
	if output == nil {
		return nil, errors.Errorf("operator %q: output %q not set, it must be Run first", ctx.Op.Type, slot)
	}
	buffer, err := output.Buffer(ctx.Backend, 0)
	if err != nil {
		return nil, errors.WithMessagef(err, "operator %q: output %q", ctx.Op.Type, slot)
	}
	return buffer, nil
}

// OutputGrad returns the backend buffer with the gradient with respect to the output in the
// given slot, as provided to RunGrad. The buffer remains owned by the gradient tensor, it must
// only be read.
func (ctx *GradContext) OutputGrad(slot string) (backends.Buffer, error) {
	grad := ctx.outputGrads[slot]
	if grad == nil {
		return nil, errors.Errorf("operator %q: no gradient provided for output %q", ctx.Op.Type, slot)
	}
	buffer, err := grad.Buffer(ctx.Backend, 0)
	if err != nil {
		return nil, errors.WithMessagef(err, "operator %q: gradient for output %q", ctx.Op.Type, slot)
	}
	return buffer, nil
}

// SetInputGrad sets the buffer with the gradient with respect to the input in the given slot.
// As with ExecContext.SetOutput, the buffer must be owned by the caller: the gradient tensor
// created by RunGrad takes ownership of it.
func (ctx *GradContext) SetInputGrad(slot string, buffer backends.Buffer) {
	ctx.inputGrads[slot] = buffer
}

// Run executes the operator on the backend: it resolves the output shapes with the operator's
// InferShape, executes its Compute and stores the resulting tensors in the operator's output
// slots.
//
// All the operator's input slots must be set. Previous contents of the output slots are
// replaced (but not finalized).
func Run(backend backends.Backend, op *Operator) error {
	def, err := Get(op.Type)
	if err != nil {
		return err
	}
	for _, slot := range def.Inputs {
		if op.Inputs[slot] == nil {
			return errors.Errorf("operator %q: missing input %q", op.Type, slot)
		}
	}

	inferCtx := &InferContext{
		Op:           op,
		outputShapes: make(map[string]shapes.Shape, len(def.Outputs)),
	}
	if err := def.InferShape(inferCtx); err != nil {
		return errors.WithMessagef(err, "operator %q: InferShape", op.Type)
	}
	for _, slot := range def.Outputs {
		if _, found := inferCtx.outputShapes[slot]; !found {
			return errors.Errorf("operator %q: InferShape didn't set the shape of output %q", op.Type, slot)
		}
	}

	execCtx := &ExecContext{
		Backend:      backend,
		Op:           op,
		outputShapes: inferCtx.outputShapes,
		outputs:      make(map[string]backends.Buffer, len(def.Outputs)),
	}
	if err := def.Compute(execCtx); err != nil {
		return errors.WithMessagef(err, "operator %q: Compute", op.Type)
	}

	for _, slot := range def.Outputs {
		buffer, found := execCtx.outputs[slot]
		if !found {
			return errors.Errorf("operator %q: Compute didn't produce output %q", op.Type, slot)
		}
		output, err := tensors.FromBuffer(backend, buffer)
		if err != nil {
			return errors.WithMessagef(err, "operator %q: output %q", op.Type, slot)
		}
		if inferred := inferCtx.outputShapes[slot]; !output.Shape().Equal(inferred) {
			return errors.Errorf("operator %q: output %q has shape %s, but InferShape resolved it to %s",
				op.Type, slot, output.Shape(), inferred)
		}
		op.Outputs[slot] = output
	}
	return nil
}

// RunGrad differentiates an already executed operator: given the gradients with respect to the
// operator's outputs (keyed by output slot name), it returns the gradients with respect to its
// inputs, keyed by GradName(inputSlot), so the gradient of input "X" comes under "X@GRAD".
//
// The operator must have been executed with Run first, and its type must define a gradient.
func RunGrad(backend backends.Backend, op *Operator, outputGrads map[string]*tensors.Tensor) (map[string]*tensors.Tensor, error) {
	def, err := Get(op.Type)
	if err != nil {
		return nil, err
	}
	if !def.HasGrad() {
		return nil, errors.Errorf("operator %q doesn't define a gradient", op.Type)
	}
	for _, slot := range def.Outputs {
		if op.Outputs[slot] == nil {
			return nil, errors.Errorf("operator %q: output %q not set, Run the operator before RunGrad", op.Type, slot)
		}
	}
	for slot, grad := range outputGrads {
		if !slices.Contains(def.Outputs, slot) {
			return nil, errors.Errorf("operator %q: gradient provided for unknown output %q", op.Type, slot)
		}
		if output := op.Outputs[slot]; !grad.Shape().Equal(output.Shape()) {
			return nil, errors.Errorf("operator %q: gradient for output %q has shape %s, the output has shape %s",
				op.Type, slot, grad.Shape(), output.Shape())
		}
	}

	gradCtx := &GradContext{
		Backend:     backend,
		Op:          op,
		outputGrads: outputGrads,
		inputGrads:  make(map[string]backends.Buffer, len(def.Inputs)),
	}
	if err := def.Grad(gradCtx); err != nil {
		return nil, errors.WithMessagef(err, "operator %q: Grad", op.Type)
	}

	grads := make(map[string]*tensors.Tensor, len(gradCtx.inputGrads))
	for slot, buffer := range gradCtx.inputGrads {
		if !slices.Contains(def.Inputs, slot) {
			return nil, errors.Errorf("operator %q: Grad produced a gradient for unknown input %q", op.Type, slot)
		}
		grad, err := tensors.FromBuffer(backend, buffer)
		if err != nil {
			return nil, errors.WithMessagef(err, "operator %q: gradient for input %q", op.Type, slot)
		}
		if input := op.Inputs[slot]; !grad.Shape().Equal(input.Shape()) {
			return nil, errors.Errorf("operator %q: gradient for input %q has shape %s, the input has shape %s",
				op.Type, slot, grad.Shape(), input.Shape())
		}
		grads[GradName(slot)] = grad
	}
	return grads, nil
}

// finalizeBuffers returns temporary buffers to the backend. Errors are logged, not returned,
// since it is used on cleanup paths.
func finalizeBuffers(backend backends.Backend, buffers ...backends.Buffer) {
	for _, buffer := range buffers {
		if buffer == nil {
			continue
		}
		if err := backend.BufferFinalize(buffer); err != nil {
			klog.Warningf("Failed to finalize temporary operator buffer: %+v", err)
		}
	}
}
