// Copyright 2026 The Paddlefish Authors. SPDX-License-Identifier: Apache-2.0

// Package ops defines the operator layer of Paddlefish: named operators ("reshape", "scale",
// "elementwise_add", ...) that read and write tensors through named slots and execute eagerly
// on a backend.
//
// An Operator is a value describing one execution: its type, its input tensors keyed by slot
// name (e.g. "X", "Y"), its attributes (e.g. "shape", "axis") and, after Run, its output
// tensors (e.g. "Out"). The behavior of each operator type is given by an OpDef registered by
// the operator's implementation file in this package, usually during initialization:
//
//	op := ops.NewOperator("reshape").
//		SetInput("X", x).
//		SetAttr("shape", []int{4, -1, 5})
//	err := ops.Run(backend, op)
//	out := op.Output("Out")
//
// Operators that define a gradient can also be differentiated with RunGrad, which takes the
// gradients with respect to the operator's outputs and returns the gradients with respect to
// its inputs, keyed by GradName(inputSlot). See pkg/core/ops/optest for a harness that checks
// those gradients against finite differences.
package ops

import (
	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"

	"github.com/paddlefish-ml/paddlefish/pkg/core/tensors"
	"github.com/paddlefish-ml/paddlefish/pkg/support/xslices"
)

// Operator describes one eager execution of a registered operator type: the input tensors and
// attributes to run it with, and after a successful Run, the output tensors it produced.
//
// Slot names ("X", "Out", ...) are given by the operator's OpDef. Create with NewOperator.
type Operator struct {
	// Type of the operator, it must match the OpDef.Name of a registered operator.
	Type string

	// Inputs and Outputs are the tensors of the operator, keyed by slot name.
	// Inputs are set by the caller, Outputs are filled in by Run.
	Inputs, Outputs map[string]*tensors.Tensor

	// Attrs are the operator's attributes, keyed by attribute name. Values are plain Go values
	// ([]int, float64, bool, ...), read by the operator implementation with Attr, AttrOr or
	// IntsAttr.
	Attrs map[string]any
}

// NewOperator creates an empty Operator of the given type, ready to have its inputs and
// attributes set.
func NewOperator(opType string) *Operator {
	return &Operator{
		Type:    opType,
		Inputs:  make(map[string]*tensors.Tensor),
		Outputs: make(map[string]*tensors.Tensor),
		Attrs:   make(map[string]any),
	}
}

// SetInput sets the input tensor for the given slot. It returns the operator to allow chaining.
func (op *Operator) SetInput(slot string, t *tensors.Tensor) *Operator {
	op.Inputs[slot] = t
	return op
}

// SetAttr sets the attribute with the given name. It returns the operator to allow chaining.
func (op *Operator) SetAttr(name string, value any) *Operator {
	op.Attrs[name] = value
	return op
}

// Output returns the output tensor for the given slot, or nil if the operator hasn't produced
// it (yet).
func (op *Operator) Output(slot string) *tensors.Tensor {
	return op.Outputs[slot]
}

// OpDef defines the behavior of one operator type. Implementation files in this package create
// one OpDef per operator and register it with Register during initialization.
type OpDef struct {
	// Name of the operator type, e.g. "reshape". It is the key used by Operator.Type.
	Name string

	// Inputs and Outputs list the operator's slot names, e.g. []string{"X", "Y"} and
	// []string{"Out"}. All input slots are required by Run.
	Inputs, Outputs []string

	// Attrs lists the names of the attributes the operator reads, for documentation and
	// tooling. All attributes have defaults or are validated by InferShape, so the list is
	// informational.
	Attrs []string

	// InferShape computes the shapes of the output slots from the input shapes and attributes.
	// It runs before Compute and must call InferContext.SetOutputShape for every output slot.
	InferShape func(ctx *InferContext) error

	// Compute executes the operator's kernels on the backend and must call ExecContext.SetOutput
	// with a backend buffer for every output slot.
	Compute func(ctx *ExecContext) error

	// Grad computes the gradients with respect to the operator's inputs, given the gradients
	// with respect to its outputs. It is optional: operators without a gradient leave it nil,
	// and RunGrad fails for them.
	Grad func(ctx *GradContext) error
}

// HasGrad returns whether the operator type defines a gradient.
func (def *OpDef) HasGrad() bool { return def.Grad != nil }

var registeredOps = make(map[string]*OpDef)

// Register the operator definition, making it available to Run by name.
//
// To be safe, call Register during initialization of a package. It panics if the definition is
// incomplete or if the name is already taken.
func Register(def *OpDef) {
	if def.Name == "" || def.InferShape == nil || def.Compute == nil {
		exceptions.Panicf("ops.Register: operator definition %q must set Name, InferShape and Compute", def.Name)
	}
	if _, found := registeredOps[def.Name]; found {
		exceptions.Panicf("ops.Register: operator %q registered twice", def.Name)
	}
	registeredOps[def.Name] = def
}

// Get returns the definition of the operator type with the given name.
func Get(name string) (*OpDef, error) {
	def, found := registeredOps[name]
	if !found {
		return nil, errors.Errorf("unknown operator type %q, registered operators are %v", name, List())
	}
	return def, nil
}

// MustGet returns the definition of the operator type with the given name, and panics if it
// isn't registered.
func MustGet(name string) *OpDef {
	def, err := Get(name)
	if err != nil {
		panic(err)
	}
	return def
}

// List returns the names of the registered operator types, sorted.
func List() []string {
	return xslices.SortedKeys(registeredOps)
}

// GradSuffix is appended to a slot name to name its gradient, see GradName.
const GradSuffix = "@GRAD"

// GradName returns the name under which the gradient with respect to the given slot is
// reported: GradName("X") is "X@GRAD".
func GradName(slot string) string {
	return slot + GradSuffix
}
