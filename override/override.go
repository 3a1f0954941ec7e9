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

package override

import (
	"reflect"
	"sync"
)

// factories maps reflect.Type of a native *N to func(any) any producing
// the wrapper. Safe for concurrent registration and routing.
var factories = sync.Map{}

// Register installs wrap as the factory translating a native *N into
// its wrapper *W. A later Register for the same native type replaces
// the earlier factory.
func Register[N, W any](wrap func(*N) *W) {
	factories.Store(reflect.TypeFor[N](), func(v any) any {
		return wrap(v.(*N))
	})
}

// Revert removes the factory installed for N and reports whether one
// was installed.
func Revert[N any]() bool {
	_, ok := factories.LoadAndDelete(reflect.TypeFor[N]())
	return ok
}

// Installed reports whether N currently has a wrapper factory.
func Installed[N any]() bool {
	_, ok := factories.Load(reflect.TypeFor[N]())
	return ok
}

// Wrap routes native through the factory installed for N. Natives of
// unregistered types come back unchanged, so call sites can route
// unconditionally. A nil native is returned as untyped nil.
func Wrap[N any](native *N) any {
	if native == nil {
		return nil
	}
	fn, ok := factories.Load(reflect.TypeFor[N]())
	if !ok {
		return native
	}
	return fn.(func(any) any)(native)
}
