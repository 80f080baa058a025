// Copyright 2026 The Paddlefish Authors. SPDX-License-Identifier: Apache-2.0

package ops

import (
	"slices"

	"github.com/pkg/errors"

	"github.com/paddlefish-ml/paddlefish/pkg/support/xslices"
)

// Attr returns the operator's attribute with the given name, requiring it to be set and to
// hold a value of type T.
func Attr[T any](op *Operator, name string) (value T, err error) {
	raw, found := op.Attrs[name]
	if !found {
		err = errors.Errorf("operator %q: missing required attribute %q", op.Type, name)
		return
	}
	value, ok := raw.(T)
	if !ok {
		err = errors.Errorf("operator %q: attribute %q holds a %T, wanted a %T", op.Type, name, raw, value)
	}
	return
}

// AttrOr returns the operator's attribute with the given name, or defaultValue if it wasn't
// set. It is an error for the attribute to be set to a value of a type other than T.
func AttrOr[T any](op *Operator, name string, defaultValue T) (T, error) {
	if _, found := op.Attrs[name]; !found {
		return defaultValue, nil
	}
	return Attr[T](op, name)
}

// IntsAttr returns the operator's attribute with the given name as a list of ints. It accepts
// []int, []int32 and []int64 values, converting where needed.
func IntsAttr(op *Operator, name string) ([]int, error) {
	raw, found := op.Attrs[name]
	if !found {
		return nil, errors.Errorf("operator %q: missing required attribute %q", op.Type, name)
	}
	switch v := raw.(type) {
	case []int:
		return v, nil
	case []int32:
		return xslices.Map(v, func(dim int32) int { return int(dim) }), nil
	case []int64:
		return xslices.Map(v, func(dim int64) int { return int(dim) }), nil
	}
	return nil, errors.Errorf("operator %q: attribute %q holds a %T, wanted a list of ints", op.Type, name, raw)
}

// ResolveDims resolves target dimensions that may use -1 ("infer this dimension") against the
// total element count being shaped, and returns concrete dimensions whose product is totalSize.
//
// At most one dimension can be set to -1, every other dimension must be positive. Empty dims
// resolve to a scalar, valid only if totalSize is 1.
func ResolveDims(totalSize int, dims []int) ([]int, error) {
	knownSize := 1
	missingIdx := -1
	for idx, dim := range dims {
		if dim == -1 {
			if missingIdx != -1 {
				return nil, errors.Errorf("only one dimension can be set to -1 (inferred), %v given", dims)
			}
			missingIdx = idx
			continue
		}
		if dim <= 0 {
			return nil, errors.Errorf("dimensions must be positive, or -1 to infer, %v given", dims)
		}
		knownSize *= dim
	}
	resolved := slices.Clone(dims)
	if missingIdx != -1 {
		if totalSize%knownSize != 0 {
			return nil, errors.Errorf("cannot find a dimension for axis %d that makes %v match the input size %d",
				missingIdx, dims, totalSize)
		}
		resolved[missingIdx] = totalSize / knownSize
	} else if knownSize != totalSize {
		return nil, errors.Errorf("total requested size %d (dimensions %v) doesn't match the input size %d",
			knownSize, dims, totalSize)
	}
	return resolved, nil
}
