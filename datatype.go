// Licensed to the Apache Software Foundation (ASF) under one
// or more contributor license agreements.  See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership.  The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License.  You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package meshfield

import (
	"reflect"

	"github.com/apache/arrow-go/v18/arrow"
)

// DType identifies the logical element type of a column, view or
// NDArray. The logical type may differ from the physical arrow type
// backing the storage: Bool is stored as uint8 and Complex64/Complex128
// as interleaved float32/float64 pairs.
type DType int

const (
	InvalidDType DType = iota
	Int8
	Int16
	Int32
	Int64
	Uint8
	Uint16
	Uint32
	Uint64
	Float32
	Float64
	Bool
	Complex64
	Complex128
	String
)

var dtypeNames = [...]string{
	InvalidDType: "invalid",
	Int8:         "int8",
	Int16:        "int16",
	Int32:        "int32",
	Int64:        "int64",
	Uint8:        "uint8",
	Uint16:       "uint16",
	Uint32:       "uint32",
	Uint64:       "uint64",
	Float32:      "float32",
	Float64:      "float64",
	Bool:         "bool",
	Complex64:    "complex64",
	Complex128:   "complex128",
	String:       "string",
}

func (d DType) String() string {
	if d < 0 || int(d) >= len(dtypeNames) {
		return "invalid"
	}
	return dtypeNames[d]
}

// Physical returns the arrow data type used to store elements of d.
// String has no fixed-width arrow representation here and maps to
// arrow.BinaryTypes.String for schema purposes only.
func (d DType) Physical() arrow.DataType {
	switch d {
	case Int8:
		return arrow.PrimitiveTypes.Int8
	case Int16:
		return arrow.PrimitiveTypes.Int16
	case Int32:
		return arrow.PrimitiveTypes.Int32
	case Int64:
		return arrow.PrimitiveTypes.Int64
	case Uint8, Bool:
		return arrow.PrimitiveTypes.Uint8
	case Uint16:
		return arrow.PrimitiveTypes.Uint16
	case Uint32:
		return arrow.PrimitiveTypes.Uint32
	case Uint64:
		return arrow.PrimitiveTypes.Uint64
	case Float32, Complex64:
		return arrow.PrimitiveTypes.Float32
	case Float64, Complex128:
		return arrow.PrimitiveTypes.Float64
	case String:
		return arrow.BinaryTypes.String
	}
	return nil
}

// ItemSize returns the in-memory width of one logical element in bytes,
// or 0 for String, which has no fixed width.
func (d DType) ItemSize() int {
	switch d {
	case Int8, Uint8, Bool:
		return 1
	case Int16, Uint16:
		return 2
	case Int32, Uint32, Float32:
		return 4
	case Int64, Uint64, Float64, Complex64:
		return 8
	case Complex128:
		return 16
	}
	return 0
}

// FixedWidth reports whether elements of d occupy a fixed number of
// bytes and can be reinterpreted in place.
func (d DType) FixedWidth() bool { return d.ItemSize() > 0 }

// IsNumeric reports whether d is an integer or floating point type.
func (d DType) IsNumeric() bool { return d >= Int8 && d <= Float64 }

// IsComplex reports whether d is a complex type.
func (d DType) IsComplex() bool { return d == Complex64 || d == Complex128 }

// Elem is the set of Go element types a fixed-width column or NDArray
// can carry. Platform-sized int and uint are excluded; callers widen
// them to 64 bits before storage.
type Elem interface {
	~int8 | ~int16 | ~int32 | ~int64 |
		~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64 |
		~bool | ~complex64 | ~complex128
}

// DTypeOf returns the DType corresponding to the Go element type T.
// Kind-based so that defined types resolve to their underlying kind.
func DTypeOf[T Elem]() DType {
	var z T
	switch reflect.TypeOf(z).Kind() {
	case reflect.Int8:
		return Int8
	case reflect.Int16:
		return Int16
	case reflect.Int32:
		return Int32
	case reflect.Int64:
		return Int64
	case reflect.Uint8:
		return Uint8
	case reflect.Uint16:
		return Uint16
	case reflect.Uint32:
		return Uint32
	case reflect.Uint64:
		return Uint64
	case reflect.Float32:
		return Float32
	case reflect.Float64:
		return Float64
	case reflect.Bool:
		return Bool
	case reflect.Complex64:
		return Complex64
	case reflect.Complex128:
		return Complex128
	}
	return InvalidDType
}
