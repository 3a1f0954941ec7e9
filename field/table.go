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
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/goccy/go-json"

	"github.com/meshfield/meshfield"
)

// Attributes is an ordered, name-keyed collection of attribute columns
// sharing one association. Arrays come back as views onto the stored
// columns, so element writes through a view are visible to every other
// view of the same name.
//
// Boolean and complex element kinds have no native columnar layout, so
// the table stores them as unsigned bytes and float pairs and keeps the
// logical kind per name, resurfacing it whenever the array is viewed.
type Attributes struct {
	mem   memory.Allocator
	assoc Association
	owner OwnerRef

	names []string
	index map[string]int
	cols  []*Column

	active       map[Role]string
	boolNames    map[string]struct{}
	complexNames map[string]struct{}
}

// NewAttributes builds an empty table with the given association. A nil
// owner leaves lengths unconstrained; a nil allocator selects the
// default.
func NewAttributes(mem memory.Allocator, assoc Association, owner OwnerRef) *Attributes {
	if mem == nil {
		mem = memory.DefaultAllocator
	}
	return &Attributes{
		mem:          mem,
		assoc:        assoc,
		owner:        owner,
		index:        make(map[string]int),
		active:       make(map[Role]string),
		boolNames:    make(map[string]struct{}),
		complexNames: make(map[string]struct{}),
	}
}

// Association returns the element association shared by all arrays.
func (a *Attributes) Association() Association { return a.assoc }

// Allocator returns the allocator backing the column storage.
func (a *Attributes) Allocator() memory.Allocator { return a.mem }

// Owner returns the owning entity, or nil if the table is detached or
// the entity has been collected.
func (a *Attributes) Owner() Owner {
	if a.owner == nil {
		return nil
	}
	return a.owner.Owner()
}

func (a *Attributes) markOwnerModified() {
	if o := a.Owner(); o != nil {
		o.MarkModified()
	}
}

// ValidLen returns the row count every stored array must have, or -1
// when the association leaves lengths unconstrained. Point and cell
// tables take the count from the owning entity; row tables take it from
// the arrays already present.
func (a *Attributes) ValidLen() int {
	switch a.assoc {
	case AssocPoint:
		if o := a.Owner(); o != nil {
			return o.NumPoints()
		}
	case AssocCell:
		if o := a.Owner(); o != nil {
			return o.NumCells()
		}
	case AssocRow:
		if len(a.cols) == 0 {
			return -1
		}
		if rc, ok := a.Owner().(RowCounter); ok {
			return rc.NumRows()
		}
		return a.cols[0].Rows()
	}
	return -1
}

func (a *Attributes) Len() int { return len(a.names) }

// Has reports whether an array is stored under name.
func (a *Attributes) Has(name string) bool {
	_, ok := a.index[name]
	return ok
}

// Keys returns the array names in insertion order.
func (a *Attributes) Keys() []string {
	out := make([]string, len(a.names))
	copy(out, a.names)
	return out
}

// Values returns a view per stored array, in insertion order.
func (a *Attributes) Values() []*View {
	out := make([]*View, len(a.cols))
	for i := range a.cols {
		out[i] = a.viewAt(i, RoleNone)
	}
	return out
}

// Get returns a view of the named array, or nil if the table holds no
// such array.
func (a *Attributes) Get(name string) *View {
	i, ok := a.index[name]
	if !ok {
		return nil
	}
	return a.viewAt(i, RoleNone)
}

// Lookup returns a view of the named array and whether it exists.
func (a *Attributes) Lookup(name string) (*View, bool) {
	i, ok := a.index[name]
	if !ok {
		return nil, false
	}
	return a.viewAt(i, RoleNone), true
}

// Array returns a view of the named array.
func (a *Attributes) Array(name string) (*View, error) {
	i, ok := a.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: attribute table does not contain array %q", meshfield.ErrKeyNotFound, name)
	}
	return a.viewAt(i, RoleNone), nil
}

// At returns a view of the array at position i in insertion order.
func (a *Attributes) At(i int) (*View, error) {
	if i < 0 || i >= len(a.cols) {
		return nil, fmt.Errorf("%w: array %d outside table of %d arrays", arrow.ErrIndex, i, len(a.cols))
	}
	return a.viewAt(i, RoleNone), nil
}

// Set coerces value into a column stored under name, replacing any
// previous array of that name. On point and cell tables a numeric or
// boolean array stored under a new name also becomes the active
// scalars.
func (a *Attributes) Set(name string, value any) error {
	return a.set(name, value, true)
}

// SetArray stores value under name like Set but never touches the
// active scalars registration.
func (a *Attributes) SetArray(name string, value any) error {
	return a.set(name, value, false)
}

func (a *Attributes) set(name string, value any, activate bool) error {
	if name == "" {
		return fmt.Errorf("%w: attribute array needs a non-empty name", arrow.ErrInvalid)
	}
	col, logical, err := Normalize(a.mem, name, value, a.ValidLen())
	if err != nil {
		return err
	}
	a.install(name, col, logical, activate)
	return nil
}

// install wires a normalized column into the table, refreshing the
// logical-kind annotations for name and, for new names on point or
// cell tables, electing the array as active scalars when asked to.
func (a *Attributes) install(name string, col *Column, logical meshfield.DType, activate bool) {
	delete(a.boolNames, name)
	delete(a.complexNames, name)
	switch {
	case logical == meshfield.Bool:
		a.boolNames[name] = struct{}{}
	case logical.IsComplex():
		a.complexNames[name] = struct{}{}
	}
	if i, ok := a.index[name]; ok {
		a.cols[i].Release()
		a.cols[i] = col
	} else {
		a.index[name] = len(a.names)
		a.names = append(a.names, name)
		a.cols = append(a.cols, col)
		autoScalars := (a.assoc == AssocPoint || a.assoc == AssocCell) &&
			(logical.IsNumeric() || logical == meshfield.Bool)
		if activate && autoScalars {
			a.active[RoleScalars] = name
		}
	}
	a.markOwnerModified()
}

// Remove drops the named array, along with any active-role
// registrations and logical-kind annotations pointing at it.
func (a *Attributes) Remove(name string) error {
	i, ok := a.index[name]
	if !ok {
		return fmt.Errorf("%w: attribute table does not contain array %q", meshfield.ErrKeyNotFound, name)
	}
	a.cols[i].Release()
	a.cols = append(a.cols[:i], a.cols[i+1:]...)
	a.names = append(a.names[:i], a.names[i+1:]...)
	delete(a.index, name)
	for j := i; j < len(a.names); j++ {
		a.index[a.names[j]] = j
	}
	for r, n := range a.active {
		if n == name {
			delete(a.active, r)
		}
	}
	delete(a.boolNames, name)
	delete(a.complexNames, name)
	a.markOwnerModified()
	return nil
}

// Pop removes the named array and returns a detached copy of its
// contents.
func (a *Attributes) Pop(name string) (*View, error) {
	i, ok := a.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: attribute table does not contain array %q", meshfield.ErrKeyNotFound, name)
	}
	out := a.viewAt(i, RoleNone).detach()
	if err := a.Remove(name); err != nil {
		return nil, err
	}
	return out, nil
}

// Clear drops every array, annotation and active-role registration.
func (a *Attributes) Clear() {
	for _, col := range a.cols {
		col.Release()
	}
	a.names = a.names[:0]
	a.cols = a.cols[:0]
	a.index = make(map[string]int)
	a.active = make(map[Role]string)
	a.boolNames = make(map[string]struct{})
	a.complexNames = make(map[string]struct{})
	a.markOwnerModified()
}

// Release drops the table's hold on all column storage. The table is
// empty afterwards.
func (a *Attributes) Release() {
	for _, col := range a.cols {
		col.Release()
	}
	a.names = nil
	a.cols = nil
	a.index = make(map[string]int)
	a.active = make(map[Role]string)
	a.boolNames = make(map[string]struct{})
	a.complexNames = make(map[string]struct{})
}

// CopyFrom replaces the table's contents with src's arrays. A deep copy
// clones the column storage; a shallow copy shares it, so element
// writes remain visible on both sides.
func (a *Attributes) CopyFrom(src *Attributes, deep bool) error {
	a.Clear()
	for i, name := range src.names {
		col := src.cols[i]
		if deep {
			c, err := col.Clone(a.mem)
			if err != nil {
				return err
			}
			col = c
		} else {
			col.Retain()
		}
		a.index[name] = len(a.names)
		a.names = append(a.names, name)
		a.cols = append(a.cols, col)
	}
	for r, n := range src.active {
		a.active[r] = n
	}
	for n := range src.boolNames {
		a.boolNames[n] = struct{}{}
	}
	for n := range src.complexNames {
		a.complexNames[n] = struct{}{}
	}
	a.markOwnerModified()
	return nil
}

// Equal reports whether both tables hold the same arrays under the same
// names with the same logical kinds, and the same active-role
// registrations. Insertion order does not matter.
func (a *Attributes) Equal(o *Attributes) bool {
	if a == o {
		return true
	}
	if o == nil {
		return false
	}
	if a.assoc != o.assoc || len(a.names) != len(o.names) {
		return false
	}
	for i, name := range a.names {
		j, ok := o.index[name]
		if !ok {
			return false
		}
		if a.logicalFor(a.cols[i]) != o.logicalFor(o.cols[j]) {
			return false
		}
		if !a.cols[i].Equal(o.cols[j]) {
			return false
		}
	}
	for r := RoleScalars; r <= RoleTCoords; r++ {
		if a.active[r] != o.active[r] {
			return false
		}
	}
	return true
}

func (a *Attributes) viewAt(i int, role Role) *View {
	col := a.cols[i]
	return newView(col, a.logicalFor(col), a, a.owner, role)
}

// logicalFor layers the table's annotations for the column's name over
// its physical element type.
func (a *Attributes) logicalFor(col *Column) meshfield.DType {
	if _, ok := a.boolNames[col.Name()]; ok {
		return meshfield.Bool
	}
	if _, ok := a.complexNames[col.Name()]; ok {
		if arrow.TypeEqual(col.PhysicalType(), arrow.PrimitiveTypes.Float32) {
			return meshfield.Complex64
		}
		return meshfield.Complex128
	}
	return logicalOf(col.PhysicalType())
}

func (a *Attributes) rolesOf(name string) []string {
	var roles []string
	for r := RoleScalars; r <= RoleTCoords; r++ {
		if a.active[r] == name {
			roles = append(roles, r.String())
		}
	}
	return roles
}

func (a *Attributes) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s attributes (%d)", a.assoc, len(a.names))
	for i, name := range a.names {
		v := a.viewAt(i, RoleNone)
		shape := fmt.Sprintf("%d", v.Rows())
		if v.Components() != 1 {
			shape = fmt.Sprintf("%dx%d", v.Rows(), v.Components())
		}
		fmt.Fprintf(&b, "\n  %-20s %s (%s)", name+":", v.DType(), shape)
		if roles := a.rolesOf(name); len(roles) != 0 {
			fmt.Fprintf(&b, " *%s", strings.Join(roles, " *"))
		}
	}
	return b.String()
}

// MarshalJSON renders the association, the active-role registrations
// and every array with its logical values.
func (a *Attributes) MarshalJSON() ([]byte, error) {
	active := make(map[string]string, len(a.active))
	for r, n := range a.active {
		active[r.String()] = n
	}
	return json.Marshal(struct {
		Association string            `json:"association"`
		Active      map[string]string `json:"active,omitempty"`
		Arrays      []*View           `json:"arrays"`
	}{a.assoc.String(), active, a.Values()})
}
