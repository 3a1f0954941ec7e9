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

import "weak"

// Owner is the geometric entity an attribute table is attached to. It
// supplies the table's valid length and receives modification signals
// when a view writes through to shared storage.
type Owner interface {
	NumPoints() int
	NumCells() int
	MarkModified()
}

// RowCounter is implemented by owners that carry tabular rows, giving
// Row-associated tables a valid length.
type RowCounter interface {
	NumRows() int
}

// OwnerRef observes an Owner without keeping it alive. Owner returns
// nil once the entity has been collected.
type OwnerRef interface {
	Owner() Owner
}

// weak.Pointer cannot hold an interface, so the adapter is generic over
// the concrete entity type.
type ownerRef[T any, PT interface {
	*T
	Owner
}] struct {
	p weak.Pointer[T]
}

func (r ownerRef[T, PT]) Owner() Owner {
	if v := r.p.Value(); v != nil {
		return PT(v)
	}
	return nil
}

// WeakOwner wraps a concrete entity pointer in a weak OwnerRef.
func WeakOwner[T any, PT interface {
	*T
	Owner
}](ptr PT) OwnerRef {
	return ownerRef[T, PT]{p: weak.Make((*T)(ptr))}
}
