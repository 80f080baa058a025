package backends

import "strconv"

// OpType is an enum of the eager kernels that a Backend implements, see the Ops interface.
//
// It is used by backends/shapeinference to validate inputs and by backends to report errors
// consistently.
type OpType int

const (
	OpTypeInvalid OpType = iota
	OpTypeReshape
	OpTypeTranspose
	OpTypeAdd
	OpTypeMul
	OpTypeScale
	OpTypeExp
	OpTypeReduceSum
	OpTypeMatMul
)

var opTypeNames = map[OpType]string{
	OpTypeInvalid:   "Invalid",
	OpTypeReshape:   "Reshape",
	OpTypeTranspose: "Transpose",
	OpTypeAdd:       "Add",
	OpTypeMul:       "Mul",
	OpTypeScale:     "Scale",
	OpTypeExp:       "Exp",
	OpTypeReduceSum: "ReduceSum",
	OpTypeMatMul:    "MatMul",
}

// String implements the fmt.Stringer interface.
func (t OpType) String() string {
	if name, found := opTypeNames[t]; found {
		return name
	}
	return "OpType(" + strconv.Itoa(int(t)) + ")"
}
