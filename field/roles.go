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

// Role names the distinguished channel a column can serve on a point or
// cell table. At most one column holds each role at a time.
type Role int

const (
	RoleNone Role = iota
	RoleScalars
	RoleVectors
	RoleNormals
	RoleTCoords
)

var roleNames = [...]string{
	RoleNone:    "none",
	RoleScalars: "scalars",
	RoleVectors: "vectors",
	RoleNormals: "normals",
	RoleTCoords: "tcoords",
}

func (r Role) String() string {
	if r < 0 || int(r) >= len(roleNames) {
		return "unknown"
	}
	return roleNames[r]
}

// validComponents reports whether a column with c components can hold
// the role. Vectors and normals are three-component by definition,
// texture coordinates carry two or three, scalars anything.
func (r Role) validComponents(c int) bool {
	switch r {
	case RoleVectors, RoleNormals:
		return c == 3
	case RoleTCoords:
		return c == 2 || c == 3
	}
	return true
}
