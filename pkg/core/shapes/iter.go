// Copyright 2026 The Paddlefish Authors. SPDX-License-Identifier: Apache-2.0

package shapes

import "iter"

// Iter iterates over all possible indices of the given shape, in row-major
// order (the last axis changes fastest).
//
// To avoid allocating a slice per step, the yielded indices slice is owned by
// the iterator: don't change or keep it inside the loop.
func (s Shape) Iter() iter.Seq[[]int] {
	return func(yield func([]int) bool) {
		if !s.Ok() {
			return
		}

		rank := s.Rank()
		if rank == 0 {
			// Valid scalar: yield one empty index slice.
			_ = yield(make([]int, 0))
			return
		}
		for _, dimSize := range s.Dimensions {
			if dimSize <= 0 {
				return
			}
		}

		// An N-dimensional counter over the indices.
		currentIndices := make([]int, rank)
		for {
			if !yield(currentIndices) {
				return
			}

			axis := rank - 1
			for ; axis >= 0; axis-- {
				if s.Dimensions[axis] == 1 {
					continue
				}
				currentIndices[axis]++
				if currentIndices[axis] < s.Dimensions[axis] {
					break
				}
				// Carry-over to the next higher-order axis.
				currentIndices[axis] = 0
			}
			if axis < 0 {
				break
			}
		}
	}
}

// Strides returns the row-major strides for each axis of the shape, counted
// in elements (not bytes).
func (s Shape) Strides() []int {
	rank := s.Rank()
	strides := make([]int, rank)
	stride := 1
	for axis := rank - 1; axis >= 0; axis-- {
		strides[axis] = stride
		stride *= s.Dimensions[axis]
	}
	return strides
}
