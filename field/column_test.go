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

package field_test

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meshfield/meshfield"
	"github.com/meshfield/meshfield/field"
)

func TestColumnNew(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	col, err := field.NewColumn(mem, "vel", arrow.PrimitiveTypes.Float64, 4, 3)
	require.NoError(t, err)
	defer col.Release()

	assert.Equal(t, "vel", col.Name())
	assert.Equal(t, 4, col.Rows())
	assert.Equal(t, 3, col.Components())
	assert.Equal(t, 12, col.Len())
	assert.False(t, col.IsString())

	if got, want := len(col.Bytes()), 4*3*8; got != want {
		t.Fatalf("invalid buffer size: got=%d, want=%d", got, want)
	}
	for _, b := range col.Bytes() {
		if b != 0 {
			t.Fatal("fresh column must be zeroed")
		}
	}
}

func TestColumnNewInvalid(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	_, err := field.NewColumn(mem, "x", arrow.BinaryTypes.String, 3, 1)
	assert.ErrorIs(t, err, arrow.ErrType)

	_, err = field.NewColumn(mem, "x", arrow.PrimitiveTypes.Int32, -1, 1)
	assert.ErrorIs(t, err, meshfield.ErrShape)

	_, err = field.NewColumn(mem, "x", arrow.PrimitiveTypes.Int32, 3, 0)
	assert.ErrorIs(t, err, meshfield.ErrShape)

	_, err = field.NewColumn(mem, "x", arrow.PrimitiveTypes.Int32, 1<<40, 1<<40)
	assert.ErrorIs(t, err, meshfield.ErrShape)
}

func TestColumnRetainRelease(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	col, err := field.NewColumn(mem, "x", arrow.PrimitiveTypes.Int64, 8, 1)
	require.NoError(t, err)

	col.Retain()
	col.Release()
	if mem.CurrentAlloc() == 0 {
		t.Fatal("buffer released while a reference is held")
	}
	col.Release()
}

func TestColumnStrings(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	col, err := field.NewStringColumn("labels", 3)
	require.NoError(t, err)
	defer col.Release()

	assert.True(t, col.IsString())
	assert.Equal(t, 3, col.Rows())
	assert.Equal(t, 1, col.Components())
	assert.Nil(t, col.Bytes())

	copy(col.Strings(), []string{"a", "b", "c"})
	assert.Equal(t, []string{"a", "b", "c"}, col.Strings())

	_, err = field.NewStringColumn("labels", -1)
	assert.ErrorIs(t, err, meshfield.ErrShape)
}

func TestColumnMTime(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	col, err := field.NewColumn(mem, "x", arrow.PrimitiveTypes.Int8, 1, 1)
	require.NoError(t, err)
	defer col.Release()

	before := col.MTime()
	col.MarkModified()
	col.MarkModified()
	assert.Equal(t, before+2, col.MTime())
}

func TestColumnChecksum(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	col, err := field.NewColumn(mem, "x", arrow.PrimitiveTypes.Float32, 4, 1)
	require.NoError(t, err)
	defer col.Release()

	before := col.Checksum()
	col.Bytes()[0] = 0xff
	assert.NotEqual(t, before, col.Checksum())

	// string hashing must keep element boundaries apart
	ab, err := field.NewStringColumn("s", 2)
	require.NoError(t, err)
	defer ab.Release()
	copy(ab.Strings(), []string{"ab", ""})

	ba, err := field.NewStringColumn("s", 2)
	require.NoError(t, err)
	defer ba.Release()
	copy(ba.Strings(), []string{"a", "b"})

	assert.NotEqual(t, ab.Checksum(), ba.Checksum())
}

func TestColumnEqual(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	a, _, err := field.Normalize(mem, "a", []int64{1, 2, 3}, -1)
	require.NoError(t, err)
	defer a.Release()

	b, _, err := field.Normalize(mem, "b", []int64{1, 2, 3}, -1)
	require.NoError(t, err)
	defer b.Release()

	// names and modification counters do not participate
	b.MarkModified()
	assert.True(t, a.Equal(b))
	assert.True(t, a.Equal(a))
	assert.False(t, a.Equal(nil))

	c, _, err := field.Normalize(mem, "c", []int64{1, 2, 4}, -1)
	require.NoError(t, err)
	defer c.Release()
	assert.False(t, a.Equal(c))

	d, _, err := field.Normalize(mem, "d", []int32{1, 2, 3}, -1)
	require.NoError(t, err)
	defer d.Release()
	assert.False(t, a.Equal(d))
}

func TestColumnClone(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	col, _, err := field.Normalize(mem, "x", []float64{1, 2, 3}, -1)
	require.NoError(t, err)
	defer col.Release()

	dup, err := col.Clone(mem)
	require.NoError(t, err)
	defer dup.Release()

	require.True(t, col.Equal(dup))
	meshfield.CastFromBytes[float64](dup.Bytes())[0] = 9
	assert.False(t, col.Equal(dup))
	assert.Equal(t, 1.0, meshfield.CastFromBytes[float64](col.Bytes())[0])
}
