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
	"errors"
	"reflect"
	"testing"

	"github.com/meshfield/meshfield"
)

func TestNDArray(t *testing.T) {
	raw := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	arr, err := meshfield.NewNDArray(raw, 2, 5)
	if err != nil {
		t.Fatal(err)
	}

	if got, want := arr.Len(), 10; got != want {
		t.Fatalf("invalid length: got=%d, want=%d", got, want)
	}
	if got, want := arr.Shape(), []int{2, 5}; !reflect.DeepEqual(got, want) {
		t.Fatalf("invalid shape: got=%v, want=%v", got, want)
	}
	if got, want := arr.Strides(), []int{40, 8}; !reflect.DeepEqual(got, want) {
		t.Fatalf("invalid strides: got=%v, want=%v", got, want)
	}
	if got, want := arr.NumDims(), 2; got != want {
		t.Fatalf("invalid dims: got=%d, want=%d", got, want)
	}
	if got, want := arr.DType(), meshfield.Float64; got != want {
		t.Fatalf("invalid dtype: got=%v, want=%v", got, want)
	}
	if !arr.IsRowMajor() || !arr.IsContiguous() {
		t.Fatal("fresh array must be row-major contiguous")
	}
	if got, want := meshfield.NDValue[float64](arr, 1, 2), 8.0; got != want {
		t.Fatalf("invalid element: got=%v, want=%v", got, want)
	}
}

func TestNDArrayDefaultShape(t *testing.T) {
	arr, err := meshfield.NewNDArray([]int32{1, 2, 3})
	if err != nil {
		t.Fatal(err)
	}
	if got, want := arr.Shape(), []int{3}; !reflect.DeepEqual(got, want) {
		t.Fatalf("invalid shape: got=%v, want=%v", got, want)
	}
}

func TestNDArrayShapeMismatch(t *testing.T) {
	_, err := meshfield.NewNDArray([]float64{1, 2, 3}, 2, 2)
	if !errors.Is(err, meshfield.ErrShape) {
		t.Fatalf("expected shape error, got %v", err)
	}

	_, err = meshfield.NewNDArray([]float64{1, 2, 3}, -1)
	if !errors.Is(err, meshfield.ErrShape) {
		t.Fatalf("expected shape error for negative dim, got %v", err)
	}
}

func TestNDArraySwapAxes(t *testing.T) {
	// 2x3 row-major: [[1 2 3] [4 5 6]]
	arr, err := meshfield.NewNDArray([]int64{1, 2, 3, 4, 5, 6}, 2, 3)
	if err != nil {
		t.Fatal(err)
	}

	tr, err := arr.SwapAxes(0, 1)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := tr.Shape(), []int{3, 2}; !reflect.DeepEqual(got, want) {
		t.Fatalf("invalid shape: got=%v, want=%v", got, want)
	}
	if tr.IsRowMajor() {
		t.Fatal("transpose must not be row-major")
	}
	if !tr.IsColMajor() {
		t.Fatal("transpose of row-major must be col-major")
	}
	if got, want := meshfield.NDValue[int64](tr, 2, 1), int64(6); got != want {
		t.Fatalf("invalid element: got=%v, want=%v", got, want)
	}

	// same backing bytes
	if &tr.Bytes()[0] != &arr.Bytes()[0] {
		t.Fatal("swap must not copy data")
	}

	if _, err := arr.SwapAxes(0, 5); err == nil {
		t.Fatal("expected axis range error")
	}
}

func TestNDArrayContiguous(t *testing.T) {
	arr, err := meshfield.NewNDArray([]int32{1, 2, 3, 4, 5, 6}, 2, 3)
	if err != nil {
		t.Fatal(err)
	}
	if got := arr.Contiguous(); got != arr {
		t.Fatal("contiguous of row-major must be the receiver")
	}

	tr, err := arr.SwapAxes(0, 1)
	if err != nil {
		t.Fatal(err)
	}
	compact := tr.Contiguous()
	if !compact.IsRowMajor() {
		t.Fatal("compacted array must be row-major")
	}
	got := meshfield.CastFromBytes[int32](compact.Bytes())
	want := []int32{1, 4, 2, 5, 3, 6}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("invalid element order: got=%v, want=%v", got, want)
	}
}

func TestNDArrayReshape(t *testing.T) {
	arr, err := meshfield.NewNDArray([]float32{1, 2, 3, 4, 5, 6}, 6)
	if err != nil {
		t.Fatal(err)
	}

	m, err := arr.Reshape(2, 3)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := meshfield.NDValue[float32](m, 1, 0), float32(4); got != want {
		t.Fatalf("invalid element: got=%v, want=%v", got, want)
	}
	if &m.Bytes()[0] != &arr.Bytes()[0] {
		t.Fatal("row-major reshape must share data")
	}

	if _, err := arr.Reshape(4, 2); !errors.Is(err, meshfield.ErrShape) {
		t.Fatalf("expected shape error, got %v", err)
	}
}

func TestNDArrayFromMatrix(t *testing.T) {
	m, err := meshfield.NDArrayFromMatrix([][]float64{{1, 2, 3}, {4, 5, 6}})
	if err != nil {
		t.Fatal(err)
	}
	if got, want := m.Shape(), []int{2, 3}; !reflect.DeepEqual(got, want) {
		t.Fatalf("invalid shape: got=%v, want=%v", got, want)
	}

	_, err = meshfield.NDArrayFromMatrix([][]float64{{1, 2}, {3}})
	if !errors.Is(err, meshfield.ErrShape) {
		t.Fatalf("expected shape error for ragged rows, got %v", err)
	}
}

func TestNDArrayStrided(t *testing.T) {
	// every other element of a flat buffer
	raw := []int16{1, 9, 2, 9, 3, 9}
	arr, err := meshfield.NewStridedNDArray(raw, []int{3}, []int{4})
	if err != nil {
		t.Fatal(err)
	}
	if arr.IsContiguous() {
		t.Fatal("strided array must not be contiguous")
	}
	got := meshfield.CastFromBytes[int16](arr.Contiguous().Bytes())
	if want := []int16{1, 2, 3}; !reflect.DeepEqual(got, want) {
		t.Fatalf("invalid elements: got=%v, want=%v", got, want)
	}

	_, err = meshfield.NewStridedNDArray(raw, []int{4}, []int{4})
	if !errors.Is(err, meshfield.ErrShape) {
		t.Fatalf("expected bounds error, got %v", err)
	}
	_, err = meshfield.NewStridedNDArray(raw, []int{3}, []int{4, 2})
	if !errors.Is(err, meshfield.ErrShape) {
		t.Fatalf("expected stride count error, got %v", err)
	}
}
