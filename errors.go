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

import "errors"

// Sentinel errors wrapped by the field and dataset packages. Argument
// kind errors reuse the arrow sentinels (arrow.ErrType, arrow.ErrInvalid,
// arrow.ErrIndex); these cover the conditions arrow has no name for.
var (
	// ErrShape signals a dimensionality or element-count mismatch:
	// non-broadcastable row counts, component-count violations, rank
	// limits, or multi-dimensional complex input.
	ErrShape = errors.New("invalid shape")

	// ErrKeyNotFound signals lookup of an absent array name.
	ErrKeyNotFound = errors.New("key not found")

	// ErrRole signals active-role bookkeeping on a table whose
	// association cannot carry roles.
	ErrRole = errors.New("invalid attribute role")
)
