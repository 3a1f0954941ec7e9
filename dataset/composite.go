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
	"errors"
	"fmt"
	"slices"
	"strings"
	"weak"

	"github.com/meshfield/meshfield/field"
)

// Block is a node of a MultiBlock tree: a DataSet leaf or a nested
// MultiBlock. The set is closed; attribute access only ever reaches
// the DataSet leaves.
type Block interface {
	appendLeaves(dst []*DataSet) []*DataSet
}

func (ds *DataSet) appendLeaves(dst []*DataSet) []*DataSet {
	if ds == nil {
		return dst
	}
	return append(dst, ds)
}

func (mb *MultiBlock) appendLeaves(dst []*DataSet) []*DataSet {
	if mb == nil {
		return dst
	}
	for _, c := range mb.children {
		if c != nil {
			dst = c.appendLeaves(dst)
		}
	}
	return dst
}

// MultiBlock is an ordered tree of blocks: datasets, nested
// MultiBlocks, or nil placeholders. It holds but never owns its
// children; releasing their storage stays with whoever built them.
//
// The per-association composite attribute unions and the composite
// points are cached weakly, so a union stays shared for as long as the
// caller keeps it and is rebuilt from the current tree afterwards.
type MultiBlock struct {
	children []Block

	pointData weak.Pointer[CompositeAttributes]
	cellData  weak.Pointer[CompositeAttributes]
	fieldData weak.Pointer[CompositeAttributes]
	points    weak.Pointer[CompositeArray]
}

// NewMultiBlock builds a tree over the given blocks. Nil entries are
// kept as empty slots.
func NewMultiBlock(blocks ...Block) *MultiBlock {
	return &MultiBlock{children: slices.Clone(blocks)}
}

// Append adds a block at the end. Nil appends an empty slot.
func (mb *MultiBlock) Append(b Block) {
	mb.children = append(mb.children, b)
}

// Len returns the number of child slots, empty ones included.
func (mb *MultiBlock) Len() int { return len(mb.children) }

// Block returns the child at slot i, which may be nil.
func (mb *MultiBlock) Block(i int) Block {
	if i < 0 || i >= len(mb.children) {
		return nil
	}
	return mb.children[i]
}

// Leaves returns the non-empty leaf datasets in tree order, recursing
// through nested MultiBlocks and skipping empty slots.
func (mb *MultiBlock) Leaves() []*DataSet {
	return mb.appendLeaves(nil)
}

// PointData returns the composite union of the leaves' point tables.
func (mb *MultiBlock) PointData() *CompositeAttributes {
	return mb.attributes(&mb.pointData, field.AssocPoint)
}

// CellData returns the composite union of the leaves' cell tables.
func (mb *MultiBlock) CellData() *CompositeAttributes {
	return mb.attributes(&mb.cellData, field.AssocCell)
}

// FieldData returns the composite union of the leaves' field tables.
func (mb *MultiBlock) FieldData() *CompositeAttributes {
	return mb.attributes(&mb.fieldData, field.AssocNone)
}

func (mb *MultiBlock) attributes(cache *weak.Pointer[CompositeAttributes], assoc field.Association) *CompositeAttributes {
	if ca := cache.Value(); ca != nil {
		return ca
	}
	ca := NewCompositeAttributes(mb, assoc)
	*cache = weak.Make(ca)
	return ca
}

// Points returns a composite array of the leaves' point coordinates,
// with nil slots for leaves that carry no points. The result is cached
// weakly like the attribute unions.
func (mb *MultiBlock) Points() *CompositeArray {
	if arr := mb.points.Value(); arr != nil {
		return arr
	}
	leaves := mb.Leaves()
	views := make([]*field.View, len(leaves))
	for i, leaf := range leaves {
		if leaf.hasPoints() {
			views[i] = leaf.Points()
		}
	}
	arr := NewCompositeArray(views)
	mb.points = weak.Make(arr)
	return arr
}

// CompositeArray is one logical array spanning the leaf blocks of a
// MultiBlock: one view per block, nil where the block misses the
// array. It never owns block storage.
type CompositeArray struct {
	name   string
	blocks []*field.View
}

// NewCompositeArray wraps per-block views, nil slots included, into a
// composite array.
func NewCompositeArray(blocks []*field.View) *CompositeArray {
	return &CompositeArray{blocks: slices.Clone(blocks)}
}

// Name returns the array name, "" for ad hoc composites.
func (ca *CompositeArray) Name() string { return ca.name }

// Len returns the number of block slots.
func (ca *CompositeArray) Len() int { return len(ca.blocks) }

// Block returns the view for block i, nil where the block misses the
// array.
func (ca *CompositeArray) Block(i int) *field.View {
	if i < 0 || i >= len(ca.blocks) {
		return nil
	}
	return ca.blocks[i]
}

// Blocks returns the per-block views in block order, nil slots
// included.
func (ca *CompositeArray) Blocks() []*field.View {
	return slices.Clone(ca.blocks)
}

// Rows returns the total row count across the non-nil blocks.
func (ca *CompositeArray) Rows() int {
	n := 0
	for _, v := range ca.blocks {
		if v != nil {
			n += v.Rows()
		}
	}
	return n
}

func (ca *CompositeArray) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "composite %q over %d blocks", ca.name, len(ca.blocks))
	for i, v := range ca.blocks {
		if v == nil {
			fmt.Fprintf(&b, "\n  [%d] <missing>", i)
			continue
		}
		fmt.Fprintf(&b, "\n  [%d] %s", i, v)
	}
	return b.String()
}

// CompositeAttributes presents the attribute tables of one association
// across all leaf blocks as a single named-array namespace. Blocks may
// carry only a subset of the names; a missing name contributes a nil
// slot to the composite array.
//
// The union holds the tree but never the leaf storage, and tolerates
// blocks being mutated externally: only its own key list and array
// cache are kept consistent.
type CompositeAttributes struct {
	mb    *MultiBlock
	assoc field.Association

	names  []string
	arrays map[string]weak.Pointer[CompositeArray]
}

// NewCompositeAttributes builds the union of the array names found in
// the leaves' tables for assoc, in first-seen tree order. The key list
// is computed once; names stored later through Set are appended.
func NewCompositeAttributes(mb *MultiBlock, assoc field.Association) *CompositeAttributes {
	ca := &CompositeAttributes{
		mb:     mb,
		assoc:  assoc,
		arrays: make(map[string]weak.Pointer[CompositeArray]),
	}
	seen := make(map[string]struct{})
	for _, leaf := range mb.Leaves() {
		for _, name := range leaf.AttributesFor(assoc).Keys() {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			ca.names = append(ca.names, name)
		}
	}
	return ca
}

// Association returns the association the union spans.
func (ca *CompositeAttributes) Association() field.Association { return ca.assoc }

// Keys returns the known array names in first-seen order.
func (ca *CompositeAttributes) Keys() []string {
	return slices.Clone(ca.names)
}

// Has reports whether name is in the union.
func (ca *CompositeAttributes) Has(name string) bool {
	return slices.Contains(ca.names, name)
}

// Len returns the number of known names.
func (ca *CompositeAttributes) Len() int { return len(ca.names) }

// Get returns the composite array for name, or nil when the union has
// no such name. The synthesized array is cached weakly: while a caller
// holds it, repeated gets return the same object; once collected, the
// next get rebuilds it from the current blocks.
func (ca *CompositeAttributes) Get(name string) *CompositeArray {
	if !ca.Has(name) {
		return nil
	}
	if p, ok := ca.arrays[name]; ok {
		if arr := p.Value(); arr != nil {
			return arr
		}
	}
	arr := ca.synthesize(name)
	ca.arrays[name] = weak.Make(arr)
	return arr
}

// synthesize collects the per-leaf views of name, nil for leaves whose
// table misses it.
func (ca *CompositeAttributes) synthesize(name string) *CompositeArray {
	leaves := ca.mb.Leaves()
	views := make([]*field.View, len(leaves))
	for i, leaf := range leaves {
		views[i] = leaf.AttributesFor(ca.assoc).Get(name)
	}
	return &CompositeArray{name: name, blocks: views}
}

// Set stores value under name across the blocks. A *CompositeArray
// distributes its per-block sub-arrays, skipping nil slots; any other
// value is stored into every leaf's table, each coercing against its
// own valid length. Partial success is deliberate: name joins the key
// list as soon as one block accepts, and an error is returned only
// when every targeted block refused.
func (ca *CompositeAttributes) Set(name string, value any) error {
	leaves := ca.mb.Leaves()
	added := false
	var errs []error

	if comp, ok := value.(*CompositeArray); ok {
		for i, leaf := range leaves {
			sub := comp.Block(i)
			if sub == nil {
				continue
			}
			if err := leaf.AttributesFor(ca.assoc).Set(name, sub); err != nil {
				errs = append(errs, fmt.Errorf("block %d: %w", i, err))
				continue
			}
			added = true
		}
	} else {
		for i, leaf := range leaves {
			if err := leaf.AttributesFor(ca.assoc).Set(name, value); err != nil {
				errs = append(errs, fmt.Errorf("block %d: %w", i, err))
				continue
			}
			added = true
		}
	}

	if added {
		if !ca.Has(name) {
			ca.names = append(ca.names, name)
		}
		delete(ca.arrays, name)
		return nil
	}
	return errors.Join(errs...)
}

func (ca *CompositeAttributes) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "composite %s attributes (%d)", ca.assoc, len(ca.names))
	for _, name := range ca.names {
		fmt.Fprintf(&b, "\n  %s", name)
	}
	return b.String()
}
