// Copyright 2026 The Paddlefish Authors. SPDX-License-Identifier: Apache-2.0

package dtypes

import "strconv"

// DType is an enum that represents the data type of a tensor, a buffer or a
// scalar.
type DType int32

const (
	// InvalidDType is an invalid data type that serves as the default.
	InvalidDType DType = iota

	// Bool are two-state predicates.
	Bool

	// Int8 are signed integral values of fixed width.
	Int8
	Int16
	Int32
	Int64

	// Uint8 are unsigned integral values of fixed width.
	Uint8
	Uint16
	Uint32
	Uint64

	// Float16 is the IEEE 754 half-precision format: 1 sign bit, 5 exponent
	// bits and 10 mantissa bits.
	Float16

	// Float32 and Float64 are the usual IEEE 754 single and double precision
	// formats, Go's float32 and float64.
	Float32
	Float64

	// BFloat16 is a truncated 16-bit version of the 32-bit IEEE 754
	// single-precision format: 1 sign bit, 8 exponent bits and 7 mantissa bits.
	BFloat16

	// Complex64 are paired Float32 (real, imag), as in Go's complex64.
	Complex64

	// Complex128 are paired Float64 (real, imag), as in Go's complex128.
	Complex128
)

// Short aliases, used throughout numeric code.
const (
	PRED = Bool
	S8   = Int8
	S16  = Int16
	S32  = Int32
	S64  = Int64
	U8   = Uint8
	U16  = Uint16
	U32  = Uint32
	U64  = Uint64
	F16  = Float16
	F32  = Float32
	F64  = Float64
	BF16 = BFloat16
	C64  = Complex64
	C128 = Complex128
)

var dtypeNames = map[DType]string{
	InvalidDType: "InvalidDType",
	Bool:         "Bool",
	Int8:         "Int8",
	Int16:        "Int16",
	Int32:        "Int32",
	Int64:        "Int64",
	Uint8:        "Uint8",
	Uint16:       "Uint16",
	Uint32:       "Uint32",
	Uint64:       "Uint64",
	Float16:      "Float16",
	Float32:      "Float32",
	Float64:      "Float64",
	BFloat16:     "BFloat16",
	Complex64:    "Complex64",
	Complex128:   "Complex128",
}

// String implements fmt.Stringer. It returns the canonical (CamelCase) name
// of the dtype.
func (dtype DType) String() string {
	if name, found := dtypeNames[dtype]; found {
		return name
	}
	return "DType(" + strconv.Itoa(int(dtype)) + ")"
}

// MapOfNames to their dtypes. It includes the short aliases, and after
// package initialization also the lower-case version of every name.
var MapOfNames = map[string]DType{
	"InvalidDType": InvalidDType,
	"Bool":         Bool,
	"PRED":         Bool,
	"Int8":         Int8,
	"S8":           Int8,
	"Int16":        Int16,
	"S16":          Int16,
	"Int32":        Int32,
	"S32":          Int32,
	"Int64":        Int64,
	"S64":          Int64,
	"Uint8":        Uint8,
	"U8":           Uint8,
	"Uint16":       Uint16,
	"U16":          Uint16,
	"Uint32":       Uint32,
	"U32":          Uint32,
	"Uint64":       Uint64,
	"U64":          Uint64,
	"Float16":      Float16,
	"F16":          Float16,
	"Float32":      Float32,
	"F32":          Float32,
	"Float64":      Float64,
	"F64":          Float64,
	"BFloat16":     BFloat16,
	"BF16":         BFloat16,
	"Complex64":    Complex64,
	"C64":          Complex64,
	"Complex128":   Complex128,
	"C128":         Complex128,
}
