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
	"bytes"
	"fmt"
	"slices"
	"sync/atomic"

	"github.com/JohnCGriffin/overflow"
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/zeebo/xxh3"

	"github.com/meshfield/meshfield"
	"github.com/meshfield/meshfield/internal/debug"
)

// Column is one named attribute array: a contiguous arrow buffer of
// rows x components fixed-width elements, or a string slice for the one
// element kind arrow buffers cannot carry here. The stored layout is
// physical; logically boolean or complex columns are recorded by the
// owning table and resurfaced through views.
type Column struct {
	refCount int64

	name  string
	dt    arrow.DataType
	rows  int
	comps int

	buf  *memory.Buffer // fixed-width storage
	strs []string       // string storage

	mtime uint64
}

// NewColumn allocates a zeroed column of rows x comps elements of the
// fixed-width physical type dt.
func NewColumn(mem memory.Allocator, name string, dt arrow.DataType, rows, comps int) (*Column, error) {
	fw, ok := dt.(arrow.FixedWidthDataType)
	if !ok {
		return nil, fmt.Errorf("%w: column type %s is not fixed width", arrow.ErrType, dt)
	}
	if rows < 0 || comps <= 0 {
		return nil, fmt.Errorf("%w: column of %d rows x %d components", meshfield.ErrShape, rows, comps)
	}
	nbytes, ok := mulAll(rows, comps, fw.BitWidth()/8)
	if !ok {
		return nil, fmt.Errorf("%w: column byte size overflows", meshfield.ErrShape)
	}

	buf := memory.NewResizableBuffer(mem)
	buf.Resize(nbytes)
	return &Column{
		refCount: 1,
		name:     name,
		dt:       dt,
		rows:     rows,
		comps:    comps,
		buf:      buf,
	}, nil
}

// NewStringColumn allocates a single-component string column.
func NewStringColumn(name string, rows int) (*Column, error) {
	if rows < 0 {
		return nil, fmt.Errorf("%w: column of %d rows", meshfield.ErrShape, rows)
	}
	return &Column{
		refCount: 1,
		name:     name,
		dt:       arrow.BinaryTypes.String,
		rows:     rows,
		comps:    1,
		strs:     make([]string, rows),
	}, nil
}

// Retain increases the reference count by 1.
// Retain may be called simultaneously from multiple goroutines.
func (c *Column) Retain() {
	atomic.AddInt64(&c.refCount, 1)
}

// Release decreases the reference count by 1.
// When the reference count goes to zero, the backing buffer is freed.
// Release may be called simultaneously from multiple goroutines.
func (c *Column) Release() {
	debug.Assert(atomic.LoadInt64(&c.refCount) > 0, "too many releases")

	if atomic.AddInt64(&c.refCount, -1) == 0 {
		if c.buf != nil {
			c.buf.Release()
			c.buf = nil
		}
		c.strs = nil
	}
}

func (c *Column) Name() string                 { return c.name }
func (c *Column) SetName(name string)          { c.name = name }
func (c *Column) PhysicalType() arrow.DataType { return c.dt }
func (c *Column) Rows() int                    { return c.rows }
func (c *Column) Components() int              { return c.comps }
func (c *Column) Len() int                     { return c.rows * c.comps }

// IsString reports whether the column stores variable-length strings
// instead of a fixed-width buffer.
func (c *Column) IsString() bool { return arrow.TypeEqual(c.dt, arrow.BinaryTypes.String) }

// Bytes returns the live backing bytes of a fixed-width column, nil for
// string columns or after release.
func (c *Column) Bytes() []byte {
	if c.buf == nil {
		return nil
	}
	return c.buf.Bytes()
}

// Strings returns the live backing slice of a string column.
func (c *Column) Strings() []string { return c.strs }

// MTime returns the column's modification counter. Any write through a
// view or a coercion-in-place bumps it.
func (c *Column) MTime() uint64 { return atomic.LoadUint64(&c.mtime) }

// MarkModified bumps the modification counter.
func (c *Column) MarkModified() { atomic.AddUint64(&c.mtime, 1) }

// Checksum returns a content hash of the column payload.
func (c *Column) Checksum() uint64 {
	if c.strs != nil {
		h := xxh3.New()
		for _, s := range c.strs {
			h.WriteString(s)
			h.Write([]byte{0})
		}
		return h.Sum64()
	}
	return xxh3.Hash(c.Bytes())
}

// Equal reports payload equality: same physical type, same shape, same
// contents. Names and modification counters do not participate.
func (c *Column) Equal(o *Column) bool {
	if c == o {
		return true
	}
	if c == nil || o == nil {
		return false
	}
	if !arrow.TypeEqual(c.dt, o.dt) || c.rows != o.rows || c.comps != o.comps {
		return false
	}
	if c.strs != nil || o.strs != nil {
		return slices.Equal(c.strs, o.strs)
	}
	return bytes.Equal(c.Bytes(), o.Bytes())
}

// Clone returns a deep copy of the column with a fresh reference count.
func (c *Column) Clone(mem memory.Allocator) (*Column, error) {
	if c.strs != nil {
		out, err := NewStringColumn(c.name, c.rows)
		if err != nil {
			return nil, err
		}
		copy(out.strs, c.strs)
		return out, nil
	}
	out, err := NewColumn(mem, c.name, c.dt, c.rows, c.comps)
	if err != nil {
		return nil, err
	}
	copy(out.Bytes(), c.Bytes())
	return out, nil
}

func mulAll(vals ...int) (int, bool) {
	n := 1
	for _, v := range vals {
		var ok bool
		if n, ok = overflow.Mul(n, v); !ok {
			return 0, false
		}
	}
	return n, true
}
