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

package dataset_test

import (
	"runtime"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meshfield/meshfield"
	"github.com/meshfield/meshfield/dataset"
	"github.com/meshfield/meshfield/field"
)

// leafWithPoints builds a dataset with n points for composite tests.
func leafWithPoints(t *testing.T, mem memory.Allocator, n int) *dataset.DataSet {
	t.Helper()
	ds := dataset.New(mem)
	coords := make([]float32, 3*n)
	for i := range coords {
		coords[i] = float32(i)
	}
	require.NoError(t, ds.SetPoints(coords))
	return ds
}

func TestMultiBlockLeaves(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	a := leafWithPoints(t, mem, 1)
	defer a.Release()
	b := leafWithPoints(t, mem, 2)
	defer b.Release()
	c := leafWithPoints(t, mem, 3)
	defer c.Release()

	inner := dataset.NewMultiBlock(b, c)
	mb := dataset.NewMultiBlock(a, nil, inner)
	mb.Append(nil)

	assert.Equal(t, 4, mb.Len())
	assert.Nil(t, mb.Block(1))
	assert.Nil(t, mb.Block(7))
	assert.Same(t, inner, mb.Block(2))

	leaves := mb.Leaves()
	require.Len(t, leaves, 3)
	assert.Same(t, a, leaves[0])
	assert.Same(t, b, leaves[1])
	assert.Same(t, c, leaves[2])
}

func TestCompositeAttributesUnion(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	a := leafWithPoints(t, mem, 2)
	defer a.Release()
	b := leafWithPoints(t, mem, 3)
	defer b.Release()
	c := leafWithPoints(t, mem, 2)
	defer c.Release()

	// "A" lives in the first and last block only
	require.NoError(t, a.PointData().Set("A", []float64{1, 2}))
	require.NoError(t, c.PointData().Set("A", []float64{5, 6}))
	require.NoError(t, b.PointData().Set("B", []float64{7, 8, 9}))

	mb := dataset.NewMultiBlock(a, b, c)
	pd := mb.PointData()
	assert.Equal(t, field.AssocPoint, pd.Association())

	// one key per name, first-seen order across leaves
	assert.Equal(t, []string{"A", "B"}, pd.Keys())
	assert.True(t, pd.Has("A"))
	assert.False(t, pd.Has("missing"))
	assert.Nil(t, pd.Get("missing"))

	arr := pd.Get("A")
	require.NotNil(t, arr)
	assert.Equal(t, "A", arr.Name())
	require.Equal(t, 3, arr.Len())

	// blocks without the array contribute nil placeholders
	assert.NotNil(t, arr.Block(0))
	assert.Nil(t, arr.Block(1))
	assert.NotNil(t, arr.Block(2))
	assert.Equal(t, 4, arr.Rows())

	vals, err := arr.Block(2).Float64s()
	require.NoError(t, err)
	assert.Equal(t, []float64{5, 6}, vals)

	// block views alias leaf storage
	require.NoError(t, field.SetAt(arr.Block(0), 0, 0, 42.0))
	got, err := field.At[float64](a.PointData().Get("A"), 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 42.0, got)
}

func TestCompositeAttributesCaching(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	a := leafWithPoints(t, mem, 2)
	defer a.Release()
	mb := dataset.NewMultiBlock(a)
	require.NoError(t, a.PointData().Set("A", []float64{1, 2}))

	// a held union keeps returning the same object and the same key
	// list, even when a leaf gains arrays behind its back
	pd := mb.PointData()
	assert.Same(t, pd, mb.PointData())
	assert.Same(t, pd.Get("A"), pd.Get("A"))

	require.NoError(t, a.PointData().Set("late", []float64{3, 4}))
	assert.Equal(t, []string{"A"}, pd.Keys())
	runtime.KeepAlive(pd)

	// once dropped and collected, the next access rebuilds the union
	// over the current tables
	pd = nil
	runtime.GC()
	assert.Equal(t, []string{"A", "late"}, mb.PointData().Keys())
}

func TestCompositeAttributesSet(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	a := leafWithPoints(t, mem, 2)
	defer a.Release()
	b := leafWithPoints(t, mem, 3)
	defer b.Release()

	mb := dataset.NewMultiBlock(a, b)
	pd := mb.PointData()

	// scalars broadcast to every block's own length
	require.NoError(t, pd.Set("p", 1.5))
	assert.Equal(t, []string{"p"}, pd.Keys())
	assert.Equal(t, 2, a.PointData().Get("p").Rows())
	assert.Equal(t, 3, b.PointData().Get("p").Rows())

	// a fixed-length array fits some blocks only; the name still joins
	// the union and the refusing block keeps a nil slot
	require.NoError(t, pd.Set("q", []float64{1, 2}))
	assert.True(t, pd.Has("q"))
	arr := pd.Get("q")
	assert.NotNil(t, arr.Block(0))
	assert.Nil(t, arr.Block(1))

	// refused by every block
	err := pd.Set("r", []float64{1, 2, 3, 4, 5, 6, 7})
	require.Error(t, err)
	assert.ErrorIs(t, err, meshfield.ErrShape)
	assert.ErrorContains(t, err, "block 0")
	assert.ErrorContains(t, err, "block 1")
	assert.False(t, pd.Has("r"))
}

func TestCompositeAttributesSetComposite(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	a := leafWithPoints(t, mem, 2)
	defer a.Release()
	b := leafWithPoints(t, mem, 3)
	defer b.Release()
	c := leafWithPoints(t, mem, 2)
	defer c.Release()

	require.NoError(t, a.PointData().Set("A", []float64{1, 2}))
	require.NoError(t, c.PointData().Set("A", []float64{5, 6}))

	mb := dataset.NewMultiBlock(a, b, c)
	pd := mb.PointData()

	// a composite value distributes per block, skipping nil slots
	require.NoError(t, pd.Set("B", pd.Get("A")))
	arr := pd.Get("B")
	require.NotNil(t, arr)
	assert.NotNil(t, arr.Block(0))
	assert.Nil(t, arr.Block(1))
	assert.NotNil(t, arr.Block(2))

	// distribution copies; the source stays independent
	require.NoError(t, field.SetAt(arr.Block(0), 0, 0, 9.0))
	got, err := field.At[float64](a.PointData().Get("A"), 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1.0, got)
}

func TestMultiBlockPoints(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	a := leafWithPoints(t, mem, 2)
	defer a.Release()
	bare := dataset.New(mem)
	defer bare.Release()
	c := leafWithPoints(t, mem, 3)
	defer c.Release()

	mb := dataset.NewMultiBlock(a, bare, c)
	pts := mb.Points()
	require.Equal(t, 3, pts.Len())

	// point-less leaves stay nil instead of materializing coordinates
	assert.NotNil(t, pts.Block(0))
	assert.Nil(t, pts.Block(1))
	assert.NotNil(t, pts.Block(2))
	assert.Equal(t, 5, pts.Rows())
	assert.Equal(t, 0, bare.NumPoints())

	blocks := pts.Blocks()
	require.Len(t, blocks, 3)
	assert.Equal(t, 2, blocks[0].Rows())
}

func TestCompositeFieldAndCellData(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	a := dataset.New(mem)
	defer a.Release()
	b := dataset.New(mem)
	defer b.Release()
	a.SetNumCells(2)
	b.SetNumCells(4)

	require.NoError(t, a.FieldData().Set("tag", "left"))
	require.NoError(t, b.FieldData().Set("tag", "right"))

	mb := dataset.NewMultiBlock(a, b)

	fd := mb.FieldData()
	assert.Equal(t, field.AssocNone, fd.Association())
	assert.Equal(t, []string{"tag"}, fd.Keys())
	tags := fd.Get("tag")
	assert.Equal(t, []string{"left"}, tags.Block(0).Strings())

	cd := mb.CellData()
	require.NoError(t, cd.Set("den", 2.5))
	assert.Equal(t, 2, a.CellData().Get("den").Rows())
	assert.Equal(t, 4, b.CellData().Get("den").Rows())
}

func TestCompositeEmptyTree(t *testing.T) {
	mb := dataset.NewMultiBlock()
	assert.Empty(t, mb.Leaves())
	assert.Equal(t, 0, mb.Len())

	pd := mb.PointData()
	assert.Empty(t, pd.Keys())
	assert.Nil(t, pd.Get("anything"))

	// storing into an empty tree is a no-op, not an error
	require.NoError(t, pd.Set("a", []float64{1}))
	assert.False(t, pd.Has("a"))

	assert.Equal(t, 0, mb.Points().Len())
}
