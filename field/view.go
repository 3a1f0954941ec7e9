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
	"slices"
	"strings"
	"weak"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/goccy/go-json"
	"github.com/zeebo/xxh3"
	"golang.org/x/exp/constraints"
	"gonum.org/v1/gonum/floats"

	"github.com/meshfield/meshfield"
)

// View is a zero-copy window onto one column's storage. Reads and
// writes go straight to the shared bytes, so every view of a column
// observes every write. Provenance back to the column, the owning
// table and the owning entity is weak: a view never extends their
// lifetimes, and write propagation degrades silently once they are
// collected.
type View struct {
	name  string
	dtype meshfield.DType
	rows  int
	comps int

	data []byte   // aliases the column buffer
	strs []string // aliases the string backing

	col   weak.Pointer[Column]
	table weak.Pointer[Attributes]
	owner OwnerRef
	role  Role
}

// newView builds the logical window onto col. The logical dtype layers
// the owning table's boolean/complex annotations over the physical
// element type.
func newView(col *Column, logical meshfield.DType, table *Attributes, owner OwnerRef, role Role) *View {
	v := &View{
		name:  col.Name(),
		dtype: logical,
		rows:  col.Rows(),
		comps: col.Components(),
		col:   weak.Make(col),
		owner: owner,
		role:  role,
	}
	if table != nil {
		v.table = weak.Make(table)
	}
	if logical.IsComplex() {
		// two physical float slots fold into one logical element
		v.comps = col.Components() / 2
	}
	if col.IsString() {
		v.strs = col.Strings()
	} else {
		v.data = col.Bytes()
	}
	return v
}

// NewColumnView wraps a bare column in a view bound to owner, for
// entities that expose columns outside of an attribute table.
func NewColumnView(col *Column, owner OwnerRef) *View {
	return newView(col, logicalOf(col.PhysicalType()), nil, owner, RoleNone)
}

func (v *View) Name() string           { return v.name }
func (v *View) DType() meshfield.DType { return v.dtype }
func (v *View) Rows() int              { return v.rows }
func (v *View) Components() int        { return v.comps }
func (v *View) Len() int               { return v.rows * v.comps }
func (v *View) Role() Role             { return v.role }

// Shape returns the logical dimensions: one-dimensional for
// single-component views, rows x components otherwise.
func (v *View) Shape() []int {
	if v.comps == 1 {
		return []int{v.rows}
	}
	return []int{v.rows, v.comps}
}

// Column returns the viewed column, or nil once it has been collected.
func (v *View) Column() *Column { return v.col.Value() }

// Table returns the owning attribute table, or nil once it has been
// collected or for detached views.
func (v *View) Table() *Attributes { return v.table.Value() }

func (v *View) bytes() []byte { return v.data }

// rowBytes is the byte width of one logical row.
func (v *View) rowBytes() int { return v.comps * v.dtype.ItemSize() }

// MarkModified propagates a modification signal: the column's counter
// is bumped first, then the owning entity is notified. Callers mutating
// raw slices directly finish with this; the typed setters call it
// implicitly.
func (v *View) MarkModified() {
	if col := v.col.Value(); col != nil {
		col.MarkModified()
	}
	if v.owner != nil {
		if o := v.owner.Owner(); o != nil {
			o.MarkModified()
		}
	}
}

// Values returns the view's elements as a typed slice aliasing the
// shared storage. Writes through it are visible everywhere but bypass
// modification signals; call MarkModified after bulk writes.
func Values[T meshfield.Elem](v *View) ([]T, error) {
	if meshfield.DTypeOf[T]() != v.dtype {
		return nil, fmt.Errorf("%w: view holds %s elements, not %s", arrow.ErrType, v.dtype, meshfield.DTypeOf[T]())
	}
	return meshfield.CastFromBytes[T](v.data), nil
}

// Float64s returns the aliased element slice of a float64 view.
func (v *View) Float64s() ([]float64, error) { return Values[float64](v) }

// Float32s returns the aliased element slice of a float32 view.
func (v *View) Float32s() ([]float32, error) { return Values[float32](v) }

// Int32s returns the aliased element slice of an int32 view.
func (v *View) Int32s() ([]int32, error) { return Values[int32](v) }

// Int64s returns the aliased element slice of an int64 view.
func (v *View) Int64s() ([]int64, error) { return Values[int64](v) }

// Bools returns the aliased element slice of a boolean view.
func (v *View) Bools() ([]bool, error) { return Values[bool](v) }

// Complex128s returns the aliased element slice of a complex128 view.
func (v *View) Complex128s() ([]complex128, error) { return Values[complex128](v) }

// Strings returns the shared backing slice of a string view, nil for
// any other element type.
func (v *View) Strings() []string { return v.strs }

// At returns the element at (row, comp).
func At[T meshfield.Elem](v *View, row, comp int) (T, error) {
	var zero T
	s, err := Values[T](v)
	if err != nil {
		return zero, err
	}
	if row < 0 || row >= v.rows || comp < 0 || comp >= v.comps {
		return zero, fmt.Errorf("%w: (%d, %d) outside %dx%d view", arrow.ErrIndex, row, comp, v.rows, v.comps)
	}
	return s[row*v.comps+comp], nil
}

// SetAt stores val at (row, comp) and propagates the modification to
// the column and the owning entity.
func SetAt[T meshfield.Elem](v *View, row, comp int, val T) error {
	s, err := Values[T](v)
	if err != nil {
		return err
	}
	if row < 0 || row >= v.rows || comp < 0 || comp >= v.comps {
		return fmt.Errorf("%w: (%d, %d) outside %dx%d view", arrow.ErrIndex, row, comp, v.rows, v.comps)
	}
	s[row*v.comps+comp] = val
	v.MarkModified()
	return nil
}

// Float64 returns the float64 element at (row, comp).
func (v *View) Float64(row, comp int) (float64, error) { return At[float64](v, row, comp) }

// SetFloat64 stores a float64 element and propagates the modification.
func (v *View) SetFloat64(row, comp int, val float64) error { return SetAt(v, row, comp, val) }

// Bool returns the boolean element at (row, comp).
func (v *View) Bool(row, comp int) (bool, error) { return At[bool](v, row, comp) }

// SetBool stores a boolean element and propagates the modification.
func (v *View) SetBool(row, comp int, val bool) error { return SetAt(v, row, comp, val) }

// StringAt returns the string element at row.
func (v *View) StringAt(row int) (string, error) {
	if v.strs == nil {
		return "", fmt.Errorf("%w: view holds %s elements, not string", arrow.ErrType, v.dtype)
	}
	if row < 0 || row >= v.rows {
		return "", fmt.Errorf("%w: row %d outside %d rows", arrow.ErrIndex, row, v.rows)
	}
	return v.strs[row], nil
}

// SetString stores a string element and propagates the modification.
func (v *View) SetString(row int, val string) error {
	if v.strs == nil {
		return fmt.Errorf("%w: view holds %s elements, not string", arrow.ErrType, v.dtype)
	}
	if row < 0 || row >= v.rows {
		return fmt.Errorf("%w: row %d outside %d rows", arrow.ErrIndex, row, v.rows)
	}
	v.strs[row] = val
	v.MarkModified()
	return nil
}

// Fill writes value into every element and propagates once. The value
// must have the view's exact logical element type.
func (v *View) Fill(value any) error {
	if v.strs != nil {
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("%w: cannot fill string view with %T", arrow.ErrType, value)
		}
		for i := range v.strs {
			v.strs[i] = s
		}
		v.MarkModified()
		return nil
	}
	var err error
	switch v.dtype {
	case meshfield.Int8:
		err = fillAs[int8](v, value)
	case meshfield.Int16:
		err = fillAs[int16](v, value)
	case meshfield.Int32:
		err = fillAs[int32](v, value)
	case meshfield.Int64:
		err = fillAs[int64](v, value)
	case meshfield.Uint8:
		err = fillAs[uint8](v, value)
	case meshfield.Uint16:
		err = fillAs[uint16](v, value)
	case meshfield.Uint32:
		err = fillAs[uint32](v, value)
	case meshfield.Uint64:
		err = fillAs[uint64](v, value)
	case meshfield.Float32:
		err = fillAs[float32](v, value)
	case meshfield.Float64:
		err = fillAs[float64](v, value)
	case meshfield.Bool:
		err = fillAs[bool](v, value)
	case meshfield.Complex64:
		err = fillAs[complex64](v, value)
	case meshfield.Complex128:
		err = fillAs[complex128](v, value)
	default:
		return fmt.Errorf("%w: cannot fill %s view", arrow.ErrType, v.dtype)
	}
	if err != nil {
		return err
	}
	v.MarkModified()
	return nil
}

func fillAs[T meshfield.Elem](v *View, value any) error {
	val, ok := value.(T)
	if !ok {
		return fmt.Errorf("%w: cannot fill %s view with %T", arrow.ErrType, v.dtype, value)
	}
	s, err := Values[T](v)
	if err != nil {
		return err
	}
	for i := range s {
		s[i] = val
	}
	return nil
}

// CopyFrom writes src's elements into the receiver's storage and
// propagates once. Shapes and logical element types must match.
func (v *View) CopyFrom(src *View) error {
	if src == nil {
		return fmt.Errorf("%w: cannot copy from nil view", arrow.ErrType)
	}
	if v.dtype != src.dtype {
		return fmt.Errorf("%w: cannot copy %s elements into %s view", arrow.ErrType, src.dtype, v.dtype)
	}
	if v.rows != src.rows || v.comps != src.comps {
		return fmt.Errorf("%w: cannot copy %dx%d into %dx%d view",
			meshfield.ErrShape, src.rows, src.comps, v.rows, v.comps)
	}
	if v.strs != nil {
		copy(v.strs, src.strs)
	} else {
		copy(v.data, src.data)
	}
	v.MarkModified()
	return nil
}

// Slice returns a view of rows [i, j) sharing storage and provenance
// with the receiver.
func (v *View) Slice(i, j int) (*View, error) {
	if i < 0 || j < i || j > v.rows {
		return nil, fmt.Errorf("%w: rows [%d, %d) outside %d rows", arrow.ErrIndex, i, j, v.rows)
	}
	out := *v
	out.rows = j - i
	if v.strs != nil {
		out.strs = v.strs[i:j]
	} else {
		rb := v.rowBytes()
		out.data = v.data[i*rb : j*rb]
	}
	return &out, nil
}

// detach copies the elements into a view with no provenance.
func (v *View) detach() *View {
	out := &View{name: v.name, dtype: v.dtype, rows: v.rows, comps: v.comps}
	if v.strs != nil {
		out.strs = slices.Clone(v.strs)
	} else {
		out.data = slices.Clone(v.data)
	}
	return out
}

// Take copies the given rows, in order, into a detached view with no
// provenance: writes to it reach nothing else and propagate nowhere.
func (v *View) Take(indices []int) (*View, error) {
	out := &View{
		name:  v.name,
		dtype: v.dtype,
		rows:  len(indices),
		comps: v.comps,
	}
	if v.strs != nil {
		out.strs = make([]string, len(indices))
		for i, ix := range indices {
			if ix < 0 || ix >= v.rows {
				return nil, fmt.Errorf("%w: row %d outside %d rows", arrow.ErrIndex, ix, v.rows)
			}
			out.strs[i] = v.strs[ix]
		}
		return out, nil
	}
	rb := v.rowBytes()
	out.data = make([]byte, len(indices)*rb)
	for i, ix := range indices {
		if ix < 0 || ix >= v.rows {
			return nil, fmt.Errorf("%w: row %d outside %d rows", arrow.ErrIndex, ix, v.rows)
		}
		copy(out.data[i*rb:(i+1)*rb], v.data[ix*rb:(ix+1)*rb])
	}
	return out, nil
}

// asFloat64s converts the elements to float64 for reductions. Float64
// views alias their storage, everything else converts element-wise.
func (v *View) asFloat64s() ([]float64, error) {
	if !v.dtype.IsNumeric() {
		return nil, fmt.Errorf("%w: no numeric reduction over %s elements", arrow.ErrType, v.dtype)
	}
	if v.dtype == meshfield.Float64 {
		return meshfield.CastFromBytes[float64](v.data), nil
	}
	out := make([]float64, v.Len())
	switch v.dtype {
	case meshfield.Int8:
		convertFloat64(out, meshfield.CastFromBytes[int8](v.data))
	case meshfield.Int16:
		convertFloat64(out, meshfield.CastFromBytes[int16](v.data))
	case meshfield.Int32:
		convertFloat64(out, meshfield.CastFromBytes[int32](v.data))
	case meshfield.Int64:
		convertFloat64(out, meshfield.CastFromBytes[int64](v.data))
	case meshfield.Uint8:
		convertFloat64(out, meshfield.CastFromBytes[uint8](v.data))
	case meshfield.Uint16:
		convertFloat64(out, meshfield.CastFromBytes[uint16](v.data))
	case meshfield.Uint32:
		convertFloat64(out, meshfield.CastFromBytes[uint32](v.data))
	case meshfield.Uint64:
		convertFloat64(out, meshfield.CastFromBytes[uint64](v.data))
	case meshfield.Float32:
		convertFloat64(out, meshfield.CastFromBytes[float32](v.data))
	}
	return out, nil
}

func convertFloat64[T constraints.Integer | constraints.Float](dst []float64, src []T) {
	for i, x := range src {
		dst[i] = float64(x)
	}
}

// Min returns the smallest element of a numeric view.
func (v *View) Min() (float64, error) {
	s, err := v.asFloat64s()
	if err != nil {
		return 0, err
	}
	if len(s) == 0 {
		return 0, fmt.Errorf("%w: empty array has no minimum", arrow.ErrInvalid)
	}
	return floats.Min(s), nil
}

// Max returns the largest element of a numeric view.
func (v *View) Max() (float64, error) {
	s, err := v.asFloat64s()
	if err != nil {
		return 0, err
	}
	if len(s) == 0 {
		return 0, fmt.Errorf("%w: empty array has no maximum", arrow.ErrInvalid)
	}
	return floats.Max(s), nil
}

// Sum returns the sum of a numeric view's elements.
func (v *View) Sum() (float64, error) {
	s, err := v.asFloat64s()
	if err != nil {
		return 0, err
	}
	return floats.Sum(s), nil
}

// Mean returns the arithmetic mean of a numeric view's elements.
func (v *View) Mean() (float64, error) {
	s, err := v.asFloat64s()
	if err != nil {
		return 0, err
	}
	if len(s) == 0 {
		return 0, fmt.Errorf("%w: empty array has no mean", arrow.ErrInvalid)
	}
	return floats.Sum(s) / float64(len(s)), nil
}

// Checksum returns a content hash of the viewed elements.
func (v *View) Checksum() uint64 {
	if v.strs != nil {
		h := xxh3.New()
		for _, s := range v.strs {
			h.WriteString(s)
			h.Write([]byte{0})
		}
		return h.Sum64()
	}
	return xxh3.Hash(v.data)
}

// logicalValues renders the elements as plain Go values, rows nested
// when the view is multi-component. Complex elements become [re, im]
// pairs for JSON's sake.
func (v *View) logicalValues() any {
	elems := make([]any, 0, v.Len())
	switch v.dtype {
	case meshfield.String:
		for _, s := range v.strs {
			elems = append(elems, s)
		}
	case meshfield.Bool:
		for _, b := range meshfield.CastFromBytes[bool](v.data) {
			elems = append(elems, b)
		}
	case meshfield.Complex64:
		for _, c := range meshfield.CastFromBytes[complex64](v.data) {
			elems = append(elems, [2]float32{real(c), imag(c)})
		}
	case meshfield.Complex128:
		for _, c := range meshfield.CastFromBytes[complex128](v.data) {
			elems = append(elems, [2]float64{real(c), imag(c)})
		}
	case meshfield.Int8:
		for _, x := range meshfield.CastFromBytes[int8](v.data) {
			elems = append(elems, x)
		}
	case meshfield.Int16:
		for _, x := range meshfield.CastFromBytes[int16](v.data) {
			elems = append(elems, x)
		}
	case meshfield.Int32:
		for _, x := range meshfield.CastFromBytes[int32](v.data) {
			elems = append(elems, x)
		}
	case meshfield.Int64:
		for _, x := range meshfield.CastFromBytes[int64](v.data) {
			elems = append(elems, x)
		}
	case meshfield.Uint8:
		for _, x := range meshfield.CastFromBytes[uint8](v.data) {
			elems = append(elems, x)
		}
	case meshfield.Uint16:
		for _, x := range meshfield.CastFromBytes[uint16](v.data) {
			elems = append(elems, x)
		}
	case meshfield.Uint32:
		for _, x := range meshfield.CastFromBytes[uint32](v.data) {
			elems = append(elems, x)
		}
	case meshfield.Uint64:
		for _, x := range meshfield.CastFromBytes[uint64](v.data) {
			elems = append(elems, x)
		}
	case meshfield.Float32:
		for _, x := range meshfield.CastFromBytes[float32](v.data) {
			elems = append(elems, x)
		}
	case meshfield.Float64:
		for _, x := range meshfield.CastFromBytes[float64](v.data) {
			elems = append(elems, x)
		}
	}
	if v.comps == 1 {
		return elems
	}
	rows := make([]any, v.rows)
	for i := range rows {
		rows[i] = elems[i*v.comps : (i+1)*v.comps]
	}
	return rows
}

const viewPreviewLen = 8

func (v *View) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "view[%s]", v.dtype)
	if v.comps == 1 {
		fmt.Fprintf(&b, "(%d)", v.rows)
	} else {
		fmt.Fprintf(&b, "(%dx%d)", v.rows, v.comps)
	}
	b.WriteString(" [")
	flat := View{dtype: v.dtype, rows: v.Len(), comps: 1, data: v.data, strs: v.strs}
	elems := flat.logicalValues().([]any)
	n := len(elems)
	if n > viewPreviewLen {
		n = viewPreviewLen
	}
	for i, e := range elems[:n] {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%v", e)
	}
	if len(elems) > viewPreviewLen {
		b.WriteString(" ...")
	}
	b.WriteByte(']')
	return b.String()
}

// MarshalJSON renders the logical values, nested per row for
// multi-component views.
func (v *View) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Name   string `json:"name"`
		DType  string `json:"dtype"`
		Shape  []int  `json:"shape"`
		Values any    `json:"values"`
	}{
		Name:   v.name,
		DType:  v.dtype.String(),
		Shape:  v.Shape(),
		Values: v.logicalValues(),
	})
}
