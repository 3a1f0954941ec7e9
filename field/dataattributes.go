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

	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/meshfield/meshfield"
)

// DataAttributes is an attribute table bound to mesh elements, point or
// cell, extending the plain table with the active-role registry:
// at most one array per role serves as the scalars, vectors, normals or
// texture coordinates of the owning entity.
type DataAttributes struct {
	Attributes
}

// NewDataAttributes builds an empty point or cell attribute table.
func NewDataAttributes(mem memory.Allocator, assoc Association, owner OwnerRef) (*DataAttributes, error) {
	if assoc != AssocPoint && assoc != AssocCell {
		return nil, fmt.Errorf("%w: data attributes bind to points or cells, not %s", meshfield.ErrRole, assoc)
	}
	da := &DataAttributes{}
	da.Attributes = *NewAttributes(mem, assoc, owner)
	return da, nil
}

func (da *DataAttributes) elementNoun() string {
	if da.assoc == AssocCell {
		return "cells"
	}
	return "points"
}

func (da *DataAttributes) activeView(role Role) *View {
	name, ok := da.active[role]
	if !ok {
		return nil
	}
	i, ok := da.index[name]
	if !ok {
		return nil
	}
	return da.viewAt(i, role)
}

// ActiveScalars returns a view of the active scalars, or nil when no
// array holds the role.
func (da *DataAttributes) ActiveScalars() *View { return da.activeView(RoleScalars) }

// ActiveVectors returns a view of the active vectors, or nil when no
// array holds the role.
func (da *DataAttributes) ActiveVectors() *View { return da.activeView(RoleVectors) }

// ActiveNormals returns a view of the active normals, or nil when no
// array holds the role.
func (da *DataAttributes) ActiveNormals() *View { return da.activeView(RoleNormals) }

// ActiveTCoords returns a view of the active texture coordinates, or
// nil when no array holds the role.
func (da *DataAttributes) ActiveTCoords() *View { return da.activeView(RoleTCoords) }

// ActiveScalarsName returns the name registered as scalars, or "".
func (da *DataAttributes) ActiveScalarsName() string { return da.active[RoleScalars] }

// ActiveVectorsName returns the name registered as vectors, or "".
func (da *DataAttributes) ActiveVectorsName() string { return da.active[RoleVectors] }

// ActiveNormalsName returns the name registered as normals, or "".
func (da *DataAttributes) ActiveNormalsName() string { return da.active[RoleNormals] }

// ActiveTCoordsName returns the name registered as texture
// coordinates, or "".
func (da *DataAttributes) ActiveTCoordsName() string { return da.active[RoleTCoords] }

// setActiveName points role at a stored array after checking it can
// hold the role. An empty name clears the registration.
func (da *DataAttributes) setActiveName(role Role, name string) error {
	if name == "" {
		delete(da.active, role)
		da.markOwnerModified()
		return nil
	}
	i, ok := da.index[name]
	if !ok {
		return fmt.Errorf("%w: attribute table does not contain array %q", meshfield.ErrKeyNotFound, name)
	}
	v := da.viewAt(i, RoleNone)
	if role == RoleScalars && v.DType() == meshfield.String {
		return fmt.Errorf("%w: array %q of string elements cannot be the active scalars", meshfield.ErrRole, name)
	}
	if !role.validComponents(v.Components()) {
		if role == RoleTCoords {
			return fmt.Errorf("%w: array %q needs 2 or 3 components to be the active %s, got %d", meshfield.ErrRole, name, role, v.Components())
		}
		return fmt.Errorf("%w: array %q needs 3 components to be the active %s, got %d", meshfield.ErrRole, name, role, v.Components())
	}
	da.active[role] = name
	da.markOwnerModified()
	return nil
}

// SetActiveScalarsName registers the named array as the active scalars.
// An empty name clears the registration.
func (da *DataAttributes) SetActiveScalarsName(name string) error {
	return da.setActiveName(RoleScalars, name)
}

// SetActiveVectorsName registers the named array as the active vectors.
// An empty name clears the registration.
func (da *DataAttributes) SetActiveVectorsName(name string) error {
	return da.setActiveName(RoleVectors, name)
}

// SetActiveNormalsName registers the named array as the active normals.
// An empty name clears the registration.
func (da *DataAttributes) SetActiveNormalsName(name string) error {
	return da.setActiveName(RoleNormals, name)
}

// SetActiveTCoordsName registers the named array as the active texture
// coordinates. An empty name clears the registration.
func (da *DataAttributes) SetActiveTCoordsName(name string) error {
	return da.setActiveName(RoleTCoords, name)
}

// checkRoleShape validates a role-bound value before it is stored:
// two-dimensional, one row per element, components in [minComps,
// maxComps].
func (da *DataAttributes) checkRoleShape(value any, minComps, maxComps int, what string) error {
	shape := probeShape(value)
	if len(shape) != 2 {
		return fmt.Errorf("%w: %s must be a 2-dim array, got %d dimensions", meshfield.ErrShape, what, len(shape))
	}
	if n := da.ValidLen(); n >= 0 && shape[0] != n {
		return fmt.Errorf("%w: number of %s (%d) must match number of %s (%d)", meshfield.ErrShape, what, shape[0], da.elementNoun(), n)
	}
	switch {
	case minComps == maxComps && shape[1] != minComps:
		return fmt.Errorf("%w: %s must have exactly %d components, got %d", meshfield.ErrShape, what, minComps, shape[1])
	case shape[1] < minComps || shape[1] > maxComps:
		return fmt.Errorf("%w: %s must have %d or %d components, got %d", meshfield.ErrShape, what, minComps, maxComps, shape[1])
	}
	return nil
}

// SetScalars stores value under name and registers it as the active
// scalars. The array is stored even when the registration fails.
func (da *DataAttributes) SetScalars(name string, value any) error {
	if err := da.SetArray(name, value); err != nil {
		return err
	}
	return da.setActiveName(RoleScalars, name)
}

// SetVectors stores a per-element array of 3-component vectors under
// name and registers it as the active vectors.
func (da *DataAttributes) SetVectors(name string, value any) error {
	if err := da.checkRoleShape(value, 3, 3, "vectors"); err != nil {
		return err
	}
	if err := da.SetArray(name, value); err != nil {
		return err
	}
	return da.setActiveName(RoleVectors, name)
}

// SetNormals stores a per-element array of 3-component normals under
// name and registers it as the active normals.
func (da *DataAttributes) SetNormals(name string, value any) error {
	if err := da.checkRoleShape(value, 3, 3, "normals"); err != nil {
		return err
	}
	if err := da.SetArray(name, value); err != nil {
		return err
	}
	return da.setActiveName(RoleNormals, name)
}

// SetTCoords stores a per-element array of texture coordinates under
// name and registers it as the active texture coordinates.
func (da *DataAttributes) SetTCoords(name string, value any) error {
	if err := da.checkRoleShape(value, 2, 3, "texture coordinates"); err != nil {
		return err
	}
	if err := da.SetArray(name, value); err != nil {
		return err
	}
	return da.setActiveName(RoleTCoords, name)
}
