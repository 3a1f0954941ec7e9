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
	"fmt"
	"slices"

	"github.com/JohnCGriffin/overflow"
	"github.com/apache/arrow-go/v18/arrow"
)

// NDArray is a strided n-dimensional view over a flat, fixed-width
// element buffer. It is the input carrier for multi-dimensional or
// non-contiguous data handed to attribute tables: shape and byte
// strides describe the layout, the backing bytes are shared with the
// caller and never mutated by this package.
type NDArray struct {
	dtype    DType
	itemsize int
	data     []byte
	shape    []int
	strides  []int // bytes to step per dimension
}

// NewNDArray wraps data in an NDArray of the given shape without
// copying. When no shape is given, the array is one-dimensional with
// length len(data). The shape's element count must equal len(data).
func NewNDArray[T Elem](data []T, shape ...int) (*NDArray, error) {
	dt := DTypeOf[T]()
	if len(shape) == 0 {
		shape = []int{len(data)}
	}
	n, err := shapeLen(shape)
	if err != nil {
		return nil, err
	}
	if n != len(data) {
		return nil, fmt.Errorf("%w: shape %v requires %d elements, have %d", ErrShape, shape, n, len(data))
	}
	return &NDArray{
		dtype:    dt,
		itemsize: dt.ItemSize(),
		data:     CastToBytes(data),
		shape:    slices.Clone(shape),
		strides:  rowMajorStrides(dt.ItemSize(), shape),
	}, nil
}

// NewStridedNDArray wraps data in an NDArray with an explicit layout.
// Strides are in bytes, one per dimension, and every reachable element
// must fall inside data.
func NewStridedNDArray[T Elem](data []T, shape, strides []int) (*NDArray, error) {
	dt := DTypeOf[T]()
	if len(shape) != len(strides) {
		return nil, fmt.Errorf("%w: %d strides for %d dimensions", ErrShape, len(strides), len(shape))
	}
	if _, err := shapeLen(shape); err != nil {
		return nil, err
	}
	b := CastToBytes(data)
	a := &NDArray{
		dtype:    dt,
		itemsize: dt.ItemSize(),
		data:     b,
		shape:    slices.Clone(shape),
		strides:  slices.Clone(strides),
	}
	if a.Len() > 0 {
		last := 0
		for i, v := range shape {
			if strides[i] < 0 {
				return nil, fmt.Errorf("%w: negative stride %d", ErrShape, strides[i])
			}
			last += (v - 1) * strides[i]
		}
		if last+a.itemsize > len(b) {
			return nil, fmt.Errorf("%w: strides reach past the end of the data", ErrShape)
		}
	}
	return a, nil
}

// NewNDArrayBytes wraps raw bytes as a row-major NDArray of the given
// dtype. When no shape is given the array is one-dimensional. The shape
// must address exactly len(data) bytes.
func NewNDArrayBytes(dtype DType, data []byte, shape ...int) (*NDArray, error) {
	if !dtype.FixedWidth() {
		return nil, fmt.Errorf("%w: %s elements have no fixed width", arrow.ErrType, dtype)
	}
	iz := dtype.ItemSize()
	if len(shape) == 0 {
		if len(data)%iz != 0 {
			return nil, fmt.Errorf("%w: %d bytes is not a whole number of %s elements", ErrShape, len(data), dtype)
		}
		shape = []int{len(data) / iz}
	}
	n, err := shapeLen(shape)
	if err != nil {
		return nil, err
	}
	nbytes, ok := overflow.Mul(n, iz)
	if !ok || nbytes != len(data) {
		return nil, fmt.Errorf("%w: shape %v requires %d elements, have %d bytes", ErrShape, shape, n, len(data))
	}
	return &NDArray{
		dtype:    dtype,
		itemsize: iz,
		data:     data,
		shape:    slices.Clone(shape),
		strides:  rowMajorStrides(iz, shape),
	}, nil
}

// NDArrayFromMatrix copies a slice of equally sized rows into a
// contiguous two-dimensional NDArray.
func NDArrayFromMatrix[T Elem](rows [][]T) (*NDArray, error) {
	ncols := 0
	if len(rows) > 0 {
		ncols = len(rows[0])
	}
	flat := make([]T, 0, len(rows)*ncols)
	for _, r := range rows {
		if len(r) != ncols {
			return nil, fmt.Errorf("%w: ragged rows, %d elements vs %d", ErrShape, len(r), ncols)
		}
		flat = append(flat, r...)
	}
	return NewNDArray(flat, len(rows), ncols)
}

func (a *NDArray) DType() DType   { return a.dtype }
func (a *NDArray) Shape() []int   { return a.shape }
func (a *NDArray) Strides() []int { return a.strides }
func (a *NDArray) NumDims() int   { return len(a.shape) }
func (a *NDArray) ItemSize() int  { return a.itemsize }

// Bytes returns the backing bytes, including any slack a strided
// layout skips over.
func (a *NDArray) Bytes() []byte { return a.data }

// Len returns the number of elements addressed by the shape.
func (a *NDArray) Len() int {
	n := 1
	for _, v := range a.shape {
		n *= v
	}
	return n
}

func (a *NDArray) IsContiguous() bool {
	return a.IsRowMajor() || a.IsColMajor()
}

func (a *NDArray) IsRowMajor() bool {
	return equalInts(rowMajorStrides(a.itemsize, a.shape), a.strides)
}

func (a *NDArray) IsColMajor() bool {
	return equalInts(colMajorStrides(a.itemsize, a.shape), a.strides)
}

// SwapAxes returns a view of the same data with dimensions i and j
// exchanged. Only shape and strides change.
func (a *NDArray) SwapAxes(i, j int) (*NDArray, error) {
	if i < 0 || i >= a.NumDims() || j < 0 || j >= a.NumDims() {
		return nil, fmt.Errorf("%w: axis out of range for %d-dim array", arrow.ErrIndex, a.NumDims())
	}
	shape := slices.Clone(a.shape)
	strides := slices.Clone(a.strides)
	shape[i], shape[j] = shape[j], shape[i]
	strides[i], strides[j] = strides[j], strides[i]
	return &NDArray{
		dtype:    a.dtype,
		itemsize: a.itemsize,
		data:     a.data,
		shape:    shape,
		strides:  strides,
	}, nil
}

// Reshape returns an array of the given shape over the same elements.
// Row-major arrays share their data; other layouts are compacted first.
func (a *NDArray) Reshape(shape ...int) (*NDArray, error) {
	n, err := shapeLen(shape)
	if err != nil {
		return nil, err
	}
	if n != a.Len() {
		return nil, fmt.Errorf("%w: cannot reshape %v into %v", ErrShape, a.shape, shape)
	}
	if !a.IsRowMajor() {
		return a.Contiguous().Reshape(shape...)
	}
	return &NDArray{
		dtype:    a.dtype,
		itemsize: a.itemsize,
		data:     a.data,
		shape:    slices.Clone(shape),
		strides:  rowMajorStrides(a.itemsize, shape),
	}, nil
}

// Contiguous returns a row-major rendition of the array: the receiver
// itself when already row-major, otherwise a compact copy.
func (a *NDArray) Contiguous() *NDArray {
	if a.IsRowMajor() {
		return a
	}
	out := make([]byte, a.Len()*a.itemsize)
	ix := make([]int, a.NumDims())
	for pos := 0; pos < a.Len(); pos++ {
		src := a.offset(ix)
		copy(out[pos*a.itemsize:(pos+1)*a.itemsize], a.data[src:src+a.itemsize])
		for d := a.NumDims() - 1; d >= 0; d-- {
			ix[d]++
			if ix[d] < a.shape[d] {
				break
			}
			ix[d] = 0
		}
	}
	return &NDArray{
		dtype:    a.dtype,
		itemsize: a.itemsize,
		data:     out,
		shape:    slices.Clone(a.shape),
		strides:  rowMajorStrides(a.itemsize, a.shape),
	}
}

// offset returns the byte offset of the element at index.
func (a *NDArray) offset(index []int) int {
	var off int
	for i, v := range index {
		off += v * a.strides[i]
	}
	return off
}

// NDValue returns the element of a at index, reinterpreted as T.
// T must have a's dtype.
func NDValue[T Elem](a *NDArray, index ...int) T {
	if DTypeOf[T]() != a.dtype {
		panic(fmt.Sprintf("meshfield: NDValue[%s] on %s array", DTypeOf[T](), a.dtype))
	}
	off := a.offset(index)
	return CastFromBytes[T](a.data[off : off+a.itemsize])[0]
}

func shapeLen(shape []int) (int, error) {
	n := 1
	for _, v := range shape {
		if v < 0 {
			return 0, fmt.Errorf("%w: negative dimension %d", ErrShape, v)
		}
		var ok bool
		if n, ok = overflow.Mul(n, v); !ok {
			return 0, fmt.Errorf("%w: element count overflows", ErrShape)
		}
	}
	return n, nil
}

func rowMajorStrides(itemsize int, shape []int) []int {
	rem := itemsize
	for _, v := range shape {
		rem *= v
	}

	if rem == 0 {
		strides := make([]int, len(shape))
		for i := range strides {
			strides[i] = itemsize
		}
		return strides
	}

	var strides []int
	for _, v := range shape {
		rem /= v
		strides = append(strides, rem)
	}
	return strides
}

func colMajorStrides(itemsize int, shape []int) []int {
	total := itemsize
	for _, v := range shape {
		if v == 0 {
			strides := make([]int, len(shape))
			for i := range strides {
				strides[i] = total
			}
			return strides
		}
	}

	var strides []int
	for _, v := range shape {
		strides = append(strides, total)
		total *= v
	}
	return strides
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
