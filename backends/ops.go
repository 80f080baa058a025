package backends

import "github.com/pkg/errors"

// ErrNotImplemented is returned by backends for kernels they don't support.
//
// It doesn't carry a stack trace, wrap it with errors.Wrapf or errors.WithStack when returning it.
var ErrNotImplemented = errors.New("kernel not implemented")

// Ops is the sub-interface of Backend with the eager kernels the operator layer executes.
//
// Kernels never mutate their input buffers: each one allocates (or takes from a pool) a fresh
// output buffer on the same device as the inputs. Binary kernels require both operands to have
// the same shape and dtype, except that either operand may be a scalar, which is broadcast to
// the other operand's shape. There is no other implicit broadcasting.
//
// The shape of the result of each kernel is defined in the backends/shapeinference package, which
// backends can use to validate their inputs.
type Ops interface {
	// Reshape returns a buffer with the same data as x laid out with the given dimensions.
	// The product of dimensions must match x's size. Dimensions must be concrete (all > 0):
	// resolving a -1 ("infer this axis") happens in the operator layer, before the backend is called.
	Reshape(x Buffer, dimensions ...int) (Buffer, error)

	// Transpose returns x with its axes rearranged so that result axis i is x's axis permutation[i].
	// The permutation must have exactly one value per axis of x.
	Transpose(x Buffer, permutation ...int) (Buffer, error)

	// Add returns the element-wise sum x+y. Shapes of x and y must match, or either side may
	// be a scalar. The dtypes must always match.
	Add(x, y Buffer) (Buffer, error)

	// Mul returns the element-wise product x*y. Shapes of x and y must match, or either side
	// may be a scalar. The dtypes must always match.
	Mul(x, y Buffer) (Buffer, error)

	// Scale returns the affine transform scale*x+bias, element-wise.
	// The scalars are given as float64 and converted to x's dtype.
	Scale(x Buffer, scale, bias float64) (Buffer, error)

	// Exp returns e^x element-wise. Only defined for float dtypes.
	Exp(x Buffer) (Buffer, error)

	// ReduceSum sums x over the given axes, which are removed from the result shape.
	// If no axes are given, it reduces over all axes and returns a scalar.
	ReduceSum(x Buffer, axes ...int) (Buffer, error)

	// MatMul returns the rank-2 matrix product x·y, after transposing either side if requested.
	// Both operands must be rank-2 with matching contraction dimensions.
	MatMul(x, y Buffer, transposeX, transposeY bool) (Buffer, error)
}
