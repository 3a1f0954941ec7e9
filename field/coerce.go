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

package field

import (
	"fmt"
	"reflect"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/meshfield/meshfield"
)

// Normalize coerces value into a freshly allocated column named name.
// length locks the row count when non-negative; scalars and single-row
// inputs broadcast to it, any other leading-dimension mismatch fails.
// The returned DType is the logical element type, which records boolean
// and complex inputs whose physical storage erases them.
//
// Accepted values: Go scalars and flat slices of the fixed-width element
// kinds, string and []string, nested [][]T rows, *meshfield.NDArray for
// multi-dimensional or strided input, *View (always copied) and *Column
// (adopted by reference). Caller memory is never aliased except by
// column adoption.
func Normalize(mem memory.Allocator, name string, value any, length int) (*Column, meshfield.DType, error) {
	switch v := value.(type) {
	case nil:
		return nil, 0, fmt.Errorf("%w: cannot store nil as array %q", arrow.ErrType, name)
	case *Column:
		return adoptColumn(v, name, length)
	case *View:
		return normalizeView(mem, name, v, length)
	case *meshfield.NDArray:
		return fromNDArray(mem, name, v, length)

	case string:
		return fromStrings(name, []string{v}, length)
	case []string:
		return fromStrings(name, v, length)

	case bool:
		return fromSlice(mem, name, []bool{v}, length)
	case int:
		return fromSlice(mem, name, []int64{int64(v)}, length)
	case int8:
		return fromSlice(mem, name, []int8{v}, length)
	case int16:
		return fromSlice(mem, name, []int16{v}, length)
	case int32:
		return fromSlice(mem, name, []int32{v}, length)
	case int64:
		return fromSlice(mem, name, []int64{v}, length)
	case uint:
		return fromSlice(mem, name, []uint64{uint64(v)}, length)
	case uint8:
		return fromSlice(mem, name, []uint8{v}, length)
	case uint16:
		return fromSlice(mem, name, []uint16{v}, length)
	case uint32:
		return fromSlice(mem, name, []uint32{v}, length)
	case uint64:
		return fromSlice(mem, name, []uint64{v}, length)
	case float32:
		return fromSlice(mem, name, []float32{v}, length)
	case float64:
		return fromSlice(mem, name, []float64{v}, length)
	case complex64:
		return fromSlice(mem, name, []complex64{v}, length)
	case complex128:
		return fromSlice(mem, name, []complex128{v}, length)

	case []bool:
		return fromSlice(mem, name, v, length)
	case []int:
		return fromSlice(mem, name, widenInts(v), length)
	case []int8:
		return fromSlice(mem, name, v, length)
	case []int16:
		return fromSlice(mem, name, v, length)
	case []int32:
		return fromSlice(mem, name, v, length)
	case []int64:
		return fromSlice(mem, name, v, length)
	case []uint:
		return fromSlice(mem, name, widenUints(v), length)
	case []uint8:
		return fromSlice(mem, name, v, length)
	case []uint16:
		return fromSlice(mem, name, v, length)
	case []uint32:
		return fromSlice(mem, name, v, length)
	case []uint64:
		return fromSlice(mem, name, v, length)
	case []float32:
		return fromSlice(mem, name, v, length)
	case []float64:
		return fromSlice(mem, name, v, length)
	case []complex64:
		return fromSlice(mem, name, v, length)
	case []complex128:
		return fromSlice(mem, name, v, length)

	case [][]bool:
		return fromMatrix(mem, name, v, length)
	case [][]int:
		return fromMatrix(mem, name, widenIntRows(v), length)
	case [][]int8:
		return fromMatrix(mem, name, v, length)
	case [][]int16:
		return fromMatrix(mem, name, v, length)
	case [][]int32:
		return fromMatrix(mem, name, v, length)
	case [][]int64:
		return fromMatrix(mem, name, v, length)
	case [][]uint:
		return fromMatrix(mem, name, widenUintRows(v), length)
	case [][]uint8:
		return fromMatrix(mem, name, v, length)
	case [][]uint16:
		return fromMatrix(mem, name, v, length)
	case [][]uint32:
		return fromMatrix(mem, name, v, length)
	case [][]uint64:
		return fromMatrix(mem, name, v, length)
	case [][]float32:
		return fromMatrix(mem, name, v, length)
	case [][]float64:
		return fromMatrix(mem, name, v, length)
	case [][]complex64:
		return fromMatrix(mem, name, v, length)
	case [][]complex128:
		return fromMatrix(mem, name, v, length)
	}
	return nil, 0, fmt.Errorf("%w: cannot coerce %T into an attribute array", arrow.ErrType, value)
}

func fromSlice[T meshfield.Elem](mem memory.Allocator, name string, vals []T, length int) (*Column, meshfield.DType, error) {
	arr, err := meshfield.NewNDArray(vals)
	if err != nil {
		return nil, 0, err
	}
	return fromNDArray(mem, name, arr, length)
}

func fromMatrix[T meshfield.Elem](mem memory.Allocator, name string, rows [][]T, length int) (*Column, meshfield.DType, error) {
	arr, err := meshfield.NDArrayFromMatrix(rows)
	if err != nil {
		return nil, 0, err
	}
	return fromNDArray(mem, name, arr, length)
}

// fromNDArray is the numeric coercion pipeline: matrix orientation,
// broadcast resolution, physical allocation and a single contiguous
// copy into the column buffer.
func fromNDArray(mem memory.Allocator, name string, arr *meshfield.NDArray, length int) (*Column, meshfield.DType, error) {
	logical := arr.DType()
	if !logical.FixedWidth() {
		return nil, 0, fmt.Errorf("%w: cannot coerce %s elements", arrow.ErrType, logical)
	}
	if logical.IsComplex() && arr.NumDims() != 1 {
		return nil, 0, fmt.Errorf("%w: complex data must be single dimensional", meshfield.ErrShape)
	}
	if arr.NumDims() > 3 {
		return nil, 0, fmt.Errorf("%w: rank %d input is not supported", meshfield.ErrShape, arr.NumDims())
	}

	arr, err := orientMatrices(arr)
	if err != nil {
		return nil, 0, err
	}

	rows, comps, bcast, err := broadcastShape(arr, length)
	if err != nil {
		return nil, 0, err
	}

	// complex elements occupy two physical float slots per row
	pcomps := comps
	if logical.IsComplex() {
		pcomps = 2 * comps
	}
	col, err := NewColumn(mem, name, logical.Physical(), rows, pcomps)
	if err != nil {
		return nil, 0, err
	}

	// the backing slice can be larger than the addressed elements
	src := arr.Contiguous().Bytes()[:arr.Len()*arr.ItemSize()]
	dst := col.Bytes()
	switch {
	case bcast && len(src) > 0:
		for off := 0; off < len(dst); off += len(src) {
			copy(dst[off:off+len(src)], src)
		}
	default:
		copy(dst, src)
	}
	return col, logical, nil
}

// broadcastShape resolves the row/component split of arr against the
// table's required length. Scalars and single-element inputs fill every
// row with one component, leading-dimension-1 inputs repeat their row.
func broadcastShape(arr *meshfield.NDArray, length int) (rows, comps int, bcast bool, err error) {
	shape := arr.Shape()
	lead := 1
	comps = 1
	if len(shape) > 0 {
		lead = shape[0]
		for _, v := range shape[1:] {
			comps *= v
		}
	}
	if length < 0 || lead == length {
		if len(shape) == 0 {
			lead = 1
		}
		return lead, comps, false, nil
	}
	switch {
	case arr.Len() == 1:
		return length, 1, true, nil
	case lead == 1:
		return length, comps, true, nil
	}
	return 0, 0, false, fmt.Errorf("%w: array with leading dimension %d cannot fill %d rows", meshfield.ErrShape, lead, length)
}

// orientMatrices fixes the element order of rank-3 input. When the last
// two axes arrive column-major the per-row matrices are transposed by a
// stride swap, so flattening preserves row-major element order and a
// later reshape to the original per-row shape round-trips faithfully.
func orientMatrices(arr *meshfield.NDArray) (*meshfield.NDArray, error) {
	if arr.NumDims() != 3 || arr.IsRowMajor() {
		return arr, nil
	}
	sh, st := arr.Shape(), arr.Strides()
	iz := arr.ItemSize()
	if st[1] == iz && st[2] == sh[1]*iz {
		return arr.SwapAxes(1, 2)
	}
	return arr, nil
}

// fromStrings copies string values element by element; there is no
// buffer-level fast path for variable-length elements.
func fromStrings(name string, vals []string, length int) (*Column, meshfield.DType, error) {
	rows := len(vals)
	if length >= 0 && rows != length {
		if rows != 1 {
			return nil, 0, fmt.Errorf("%w: array with leading dimension %d cannot fill %d rows", meshfield.ErrShape, rows, length)
		}
		rows = length
	}
	col, err := NewStringColumn(name, rows)
	if err != nil {
		return nil, 0, err
	}
	if len(vals) == 1 && rows != 1 {
		for i := range col.strs {
			col.strs[i] = vals[0]
		}
	} else {
		copy(col.strs, vals)
	}
	return col, meshfield.String, nil
}

// normalizeView copies a view's elements into a new column. Views from
// other tables must never share storage across tables, so the copy is
// unconditional. The view's logical dtype carries over.
func normalizeView(mem memory.Allocator, name string, v *View, length int) (*Column, meshfield.DType, error) {
	if v.DType() == meshfield.String {
		return fromStrings(name, v.Strings(), length)
	}
	arr, err := meshfield.NewNDArrayBytes(v.DType(), v.bytes(), v.Shape()...)
	if err != nil {
		return nil, 0, err
	}
	return fromNDArray(mem, name, arr, length)
}

// adoptColumn takes a reference on an existing column instead of
// copying it. The arrow buffer already guarantees stable, contiguous
// storage. The column is renamed to the key it is stored under.
func adoptColumn(c *Column, name string, length int) (*Column, meshfield.DType, error) {
	if length >= 0 && c.Rows() != length {
		return nil, 0, fmt.Errorf("%w: column has %d rows, table requires %d", meshfield.ErrShape, c.Rows(), length)
	}
	c.Retain()
	if c.Name() != name {
		c.SetName(name)
	}
	return c, logicalOf(c.PhysicalType()), nil
}

// logicalOf maps a physical arrow type back to the plain logical kind.
// Boolean and complex annotations live at the table level and are
// layered on top of this by the caller.
func logicalOf(dt arrow.DataType) meshfield.DType {
	switch dt.ID() {
	case arrow.INT8:
		return meshfield.Int8
	case arrow.INT16:
		return meshfield.Int16
	case arrow.INT32:
		return meshfield.Int32
	case arrow.INT64:
		return meshfield.Int64
	case arrow.UINT8:
		return meshfield.Uint8
	case arrow.UINT16:
		return meshfield.Uint16
	case arrow.UINT32:
		return meshfield.Uint32
	case arrow.UINT64:
		return meshfield.Uint64
	case arrow.FLOAT32:
		return meshfield.Float32
	case arrow.FLOAT64:
		return meshfield.Float64
	case arrow.STRING:
		return meshfield.String
	}
	return meshfield.InvalidDType
}

// probeShape reports the dimensions a value would present to coercion,
// before any broadcasting. Scalars probe as zero-dimensional (nil).
func probeShape(value any) []int {
	switch v := value.(type) {
	case *Column:
		return []int{v.Rows(), v.Components()}
	case *View:
		return v.Shape()
	case *meshfield.NDArray:
		return v.Shape()
	case nil:
		return nil
	}
	var shape []int
	for rv := reflect.ValueOf(value); rv.Kind() == reflect.Slice; {
		shape = append(shape, rv.Len())
		if rv.Len() == 0 {
			break
		}
		rv = rv.Index(0)
	}
	return shape
}

func widenInts(v []int) []int64 {
	out := make([]int64, len(v))
	for i, x := range v {
		out[i] = int64(x)
	}
	return out
}

func widenUints(v []uint) []uint64 {
	out := make([]uint64, len(v))
	for i, x := range v {
		out[i] = uint64(x)
	}
	return out
}

func widenIntRows(v [][]int) [][]int64 {
	out := make([][]int64, len(v))
	for i, r := range v {
		out[i] = widenInts(r)
	}
	return out
}

func widenUintRows(v [][]uint) [][]uint64 {
	out := make([][]uint64, len(v))
	for i, r := range v {
		out[i] = widenUints(r)
	}
	return out
}
