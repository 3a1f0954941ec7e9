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

package meshfield_test

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/meshfield/meshfield"
)

func TestDTypePhysical(t *testing.T) {
	for _, tc := range []struct {
		dtype meshfield.DType
		want  arrow.DataType
	}{
		{meshfield.Int8, arrow.PrimitiveTypes.Int8},
		{meshfield.Int64, arrow.PrimitiveTypes.Int64},
		{meshfield.Uint16, arrow.PrimitiveTypes.Uint16},
		{meshfield.Float32, arrow.PrimitiveTypes.Float32},
		{meshfield.Float64, arrow.PrimitiveTypes.Float64},
		{meshfield.Bool, arrow.PrimitiveTypes.Uint8},
		{meshfield.Complex64, arrow.PrimitiveTypes.Float32},
		{meshfield.Complex128, arrow.PrimitiveTypes.Float64},
		{meshfield.String, arrow.BinaryTypes.String},
	} {
		t.Run(tc.dtype.String(), func(t *testing.T) {
			if got := tc.dtype.Physical(); !arrow.TypeEqual(got, tc.want) {
				t.Fatalf("invalid physical type: got=%v, want=%v", got, tc.want)
			}
		})
	}
}

func TestDTypeItemSize(t *testing.T) {
	for _, tc := range []struct {
		dtype meshfield.DType
		want  int
	}{
		{meshfield.Int8, 1},
		{meshfield.Bool, 1},
		{meshfield.Uint16, 2},
		{meshfield.Float32, 4},
		{meshfield.Int64, 8},
		{meshfield.Complex64, 8},
		{meshfield.Complex128, 16},
		{meshfield.String, 0},
	} {
		if got := tc.dtype.ItemSize(); got != tc.want {
			t.Fatalf("%s: invalid item size: got=%d, want=%d", tc.dtype, got, tc.want)
		}
	}
	if meshfield.String.FixedWidth() {
		t.Fatal("string must not be fixed width")
	}
	if !meshfield.Complex128.FixedWidth() {
		t.Fatal("complex128 must be fixed width")
	}
}

func TestDTypeKinds(t *testing.T) {
	if !meshfield.Float64.IsNumeric() || !meshfield.Uint8.IsNumeric() {
		t.Fatal("float64/uint8 must be numeric")
	}
	if meshfield.Bool.IsNumeric() || meshfield.String.IsNumeric() || meshfield.Complex64.IsNumeric() {
		t.Fatal("bool/string/complex must not be numeric")
	}
	if !meshfield.Complex64.IsComplex() || !meshfield.Complex128.IsComplex() {
		t.Fatal("complex kinds must report complex")
	}
}

type celsius float64

func TestDTypeOf(t *testing.T) {
	if got, want := meshfield.DTypeOf[int16](), meshfield.Int16; got != want {
		t.Fatalf("got=%v, want=%v", got, want)
	}
	if got, want := meshfield.DTypeOf[bool](), meshfield.Bool; got != want {
		t.Fatalf("got=%v, want=%v", got, want)
	}
	if got, want := meshfield.DTypeOf[complex64](), meshfield.Complex64; got != want {
		t.Fatalf("got=%v, want=%v", got, want)
	}
	// defined types resolve through their underlying kind
	if got, want := meshfield.DTypeOf[celsius](), meshfield.Float64; got != want {
		t.Fatalf("got=%v, want=%v", got, want)
	}
}

func TestDTypeString(t *testing.T) {
	for dt, want := range map[meshfield.DType]string{
		meshfield.Bool:       "bool",
		meshfield.Complex64:  "complex64",
		meshfield.Complex128: "complex128",
		meshfield.Float64:    "float64",
		meshfield.String:     "string",
	} {
		if got := dt.String(); got != want {
			t.Fatalf("invalid name: got=%q, want=%q", got, want)
		}
	}
}
