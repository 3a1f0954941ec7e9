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

package dataset

import (
	"fmt"
	"sync/atomic"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"golang.org/x/exp/constraints"

	"github.com/meshfield/meshfield"
	"github.com/meshfield/meshfield/field"
	"github.com/meshfield/meshfield/internal/debug"
)

const pointsName = "points"

// DataSet is a mesh-like entity: a point coordinate column plus one
// attribute table per association. The dataset owns its points and
// tables; views handed out by either hold only weak references back, so
// a collected dataset never lingers because a caller kept a view.
//
// Cell topology is out of scope here, so the cell count is carried as a
// plain number for the cell table to size against.
type DataSet struct {
	id  uuid.UUID
	mem memory.Allocator

	points *field.Column
	cells  int

	pointData *field.DataAttributes
	cellData  *field.DataAttributes
	fieldData *field.Attributes

	mtime uint64
}

// New builds an empty dataset. A nil allocator selects the default.
func New(mem memory.Allocator) *DataSet {
	if mem == nil {
		mem = memory.DefaultAllocator
	}
	return &DataSet{id: uuid.New(), mem: mem}
}

// ID returns the dataset's identity tag. Copies get fresh identities;
// equality never consults it.
func (ds *DataSet) ID() uuid.UUID { return ds.id }

// Allocator returns the allocator backing the dataset's storage.
func (ds *DataSet) Allocator() memory.Allocator { return ds.mem }

// NumPoints returns the number of points, the valid length of the
// point table.
func (ds *DataSet) NumPoints() int {
	if ds.points == nil {
		return 0
	}
	return ds.points.Rows()
}

// NumCells returns the cell count, the valid length of the cell table.
func (ds *DataSet) NumCells() int { return ds.cells }

// SetNumCells fixes the cell count. Arrays already in the cell table
// keep their length; only later stores are checked against n.
func (ds *DataSet) SetNumCells(n int) {
	ds.cells = n
	ds.MarkModified()
}

// MarkModified bumps the dataset's modification counter. Views call
// this through their weak owner handle on every in-place write.
func (ds *DataSet) MarkModified() { atomic.AddUint64(&ds.mtime, 1) }

// MTime returns the modification counter.
func (ds *DataSet) MTime() uint64 { return atomic.LoadUint64(&ds.mtime) }

// Points returns a zero-copy (n, 3) view of the point coordinates.
// Element writes through it land in the dataset and mark it modified.
// A dataset without points materializes an empty coordinate column.
func (ds *DataSet) Points() *field.View {
	if ds.points == nil {
		col, err := field.NewColumn(ds.mem, pointsName, arrow.PrimitiveTypes.Float32, 0, 3)
		debug.Assert(err == nil, "empty points column cannot fail")
		ds.points = col
	}
	return field.NewColumnView(ds.points, field.WeakOwner(ds))
}

func (ds *DataSet) hasPoints() bool { return ds.points != nil }

// SetPoints replaces the point coordinates. Accepted are the coercion
// layer's numeric inputs shaped (n, 3), or flat with a multiple of
// three elements; integer coordinates are cast to float32. Boolean,
// complex and string input is refused.
func (ds *DataSet) SetPoints(value any) error {
	col, dt, err := field.Normalize(ds.mem, pointsName, value, -1)
	if err != nil {
		return err
	}
	pts, err := shapePoints(ds.mem, col, dt)
	col.Release()
	if err != nil {
		return err
	}
	if ds.points != nil {
		ds.points.Release()
	}
	ds.points = pts
	ds.MarkModified()
	return nil
}

// shapePoints turns a freshly normalized column into a (n, 3) float
// coordinate column, reshaping flat input and widening integers to
// float32. The input column is left for the caller to release.
func shapePoints(mem memory.Allocator, col *field.Column, dt meshfield.DType) (*field.Column, error) {
	if !dt.IsNumeric() {
		return nil, fmt.Errorf("%w: points must be numeric, not %s", arrow.ErrType, dt)
	}
	var n int
	switch {
	case col.Components() == 3:
		n = col.Rows()
	case col.Components() == 1 && col.Rows()%3 == 0:
		n = col.Rows() / 3
	default:
		return nil, fmt.Errorf("%w: points need three values per point, got %dx%d",
			meshfield.ErrShape, col.Rows(), col.Components())
	}

	if dt == meshfield.Float32 || dt == meshfield.Float64 {
		out, err := field.NewColumn(mem, pointsName, dt.Physical(), n, 3)
		if err != nil {
			return nil, err
		}
		copy(out.Bytes(), col.Bytes())
		return out, nil
	}

	out, err := field.NewColumn(mem, pointsName, arrow.PrimitiveTypes.Float32, n, 3)
	if err != nil {
		return nil, err
	}
	dst := meshfield.CastFromBytes[float32](out.Bytes())
	switch dt {
	case meshfield.Int8:
		convertFloat32(dst, meshfield.CastFromBytes[int8](col.Bytes()))
	case meshfield.Int16:
		convertFloat32(dst, meshfield.CastFromBytes[int16](col.Bytes()))
	case meshfield.Int32:
		convertFloat32(dst, meshfield.CastFromBytes[int32](col.Bytes()))
	case meshfield.Int64:
		convertFloat32(dst, meshfield.CastFromBytes[int64](col.Bytes()))
	case meshfield.Uint8:
		convertFloat32(dst, meshfield.CastFromBytes[uint8](col.Bytes()))
	case meshfield.Uint16:
		convertFloat32(dst, meshfield.CastFromBytes[uint16](col.Bytes()))
	case meshfield.Uint32:
		convertFloat32(dst, meshfield.CastFromBytes[uint32](col.Bytes()))
	case meshfield.Uint64:
		convertFloat32(dst, meshfield.CastFromBytes[uint64](col.Bytes()))
	}
	return out, nil
}

func convertFloat32[T constraints.Integer](dst []float32, src []T) {
	for i, x := range src {
		dst[i] = float32(x)
	}
}

// PointData returns the point attribute table, built on first access
// and bound to the dataset through a weak owner handle.
func (ds *DataSet) PointData() *field.DataAttributes {
	if ds.pointData == nil {
		da, err := field.NewDataAttributes(ds.mem, field.AssocPoint, field.WeakOwner(ds))
		debug.Assert(err == nil, "point association is always valid")
		ds.pointData = da
	}
	return ds.pointData
}

// CellData returns the cell attribute table, built on first access and
// bound to the dataset through a weak owner handle.
func (ds *DataSet) CellData() *field.DataAttributes {
	if ds.cellData == nil {
		da, err := field.NewDataAttributes(ds.mem, field.AssocCell, field.WeakOwner(ds))
		debug.Assert(err == nil, "cell association is always valid")
		ds.cellData = da
	}
	return ds.cellData
}

// FieldData returns the whole-object attribute table. Its arrays carry
// no length constraint and no active roles.
func (ds *DataSet) FieldData() *field.Attributes {
	if ds.fieldData == nil {
		ds.fieldData = field.NewAttributes(ds.mem, field.AssocNone, field.WeakOwner(ds))
	}
	return ds.fieldData
}

// AttributesFor returns the table holding arrays of the given
// association: the point or cell table, or the whole-object field
// table for anything else.
func (ds *DataSet) AttributesFor(assoc field.Association) *field.Attributes {
	switch assoc {
	case field.AssocPoint:
		return &ds.PointData().Attributes
	case field.AssocCell:
		return &ds.CellData().Attributes
	}
	return ds.FieldData()
}

// NArrays returns the total array count across the point, cell and
// field tables.
func (ds *DataSet) NArrays() int {
	n := 0
	if ds.pointData != nil {
		n += ds.pointData.Len()
	}
	if ds.cellData != nil {
		n += ds.cellData.Len()
	}
	if ds.fieldData != nil {
		n += ds.fieldData.Len()
	}
	return n
}

// ClearData drops every array from the point, cell and field tables.
// Points are kept.
func (ds *DataSet) ClearData() {
	if ds.pointData != nil {
		ds.pointData.Clear()
	}
	if ds.cellData != nil {
		ds.cellData.Clear()
	}
	if ds.fieldData != nil {
		ds.fieldData.Clear()
	}
}

// Copy returns a copy with a fresh identity. A deep copy clones all
// storage; a shallow copy shares points and columns, so element writes
// stay visible on both sides.
func (ds *DataSet) Copy(deep bool) (*DataSet, error) {
	out := New(ds.mem)
	out.cells = ds.cells
	if ds.points != nil {
		if deep {
			pts, err := ds.points.Clone(ds.mem)
			if err != nil {
				return nil, err
			}
			out.points = pts
		} else {
			ds.points.Retain()
			out.points = ds.points
		}
	}
	if ds.pointData != nil {
		if err := out.PointData().CopyFrom(&ds.pointData.Attributes, deep); err != nil {
			out.Release()
			return nil, err
		}
	}
	if ds.cellData != nil {
		if err := out.CellData().CopyFrom(&ds.cellData.Attributes, deep); err != nil {
			out.Release()
			return nil, err
		}
	}
	if ds.fieldData != nil {
		if err := out.FieldData().CopyFrom(ds.fieldData, deep); err != nil {
			out.Release()
			return nil, err
		}
	}
	return out, nil
}

// Equal reports whether both datasets carry the same points and the
// same attribute tables. Identity, allocators and modification
// counters do not participate.
func (ds *DataSet) Equal(o *DataSet) bool {
	if ds == o {
		return true
	}
	if ds == nil || o == nil {
		return false
	}
	if ds.cells != o.cells || !pointsEqual(ds.points, o.points) {
		return false
	}
	return ds.PointData().Equal(&o.PointData().Attributes) &&
		ds.CellData().Equal(&o.CellData().Attributes) &&
		ds.FieldData().Equal(o.FieldData())
}

// pointsEqual treats a missing coordinate column like an empty one.
func pointsEqual(a, b *field.Column) bool {
	if a == nil || a.Rows() == 0 {
		return b == nil || b.Rows() == 0
	}
	return a.Equal(b)
}

// Release drops the dataset's hold on its points and tables.
func (ds *DataSet) Release() {
	if ds.points != nil {
		ds.points.Release()
		ds.points = nil
	}
	if ds.pointData != nil {
		ds.pointData.Release()
	}
	if ds.cellData != nil {
		ds.cellData.Release()
	}
	if ds.fieldData != nil {
		ds.fieldData.Release()
	}
}

func (ds *DataSet) String() string {
	return fmt.Sprintf("dataset %s (%d points, %d cells, %d arrays)",
		ds.id, ds.NumPoints(), ds.NumCells(), ds.NArrays())
}

// MarshalJSON renders the identity, the counts and every populated
// attribute table.
func (ds *DataSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID        string                `json:"id"`
		NumPoints int                   `json:"numPoints"`
		NumCells  int                   `json:"numCells"`
		PointData *field.DataAttributes `json:"pointData,omitempty"`
		CellData  *field.DataAttributes `json:"cellData,omitempty"`
		FieldData *field.Attributes     `json:"fieldData,omitempty"`
	}{
		ID:        ds.id.String(),
		NumPoints: ds.NumPoints(),
		NumCells:  ds.NumCells(),
		PointData: ds.pointData,
		CellData:  ds.cellData,
		FieldData: ds.fieldData,
	})
}
