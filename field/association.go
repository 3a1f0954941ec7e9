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

// Association identifies the geometric entity an attribute table is
// scoped to. Point and Cell tables lock every column's row count to the
// owner's point or cell count; Row tables follow the owner's row count
// when it reports one; None tables carry free-standing columns of any
// length.
type Association int

const (
	AssocNone Association = iota
	AssocPoint
	AssocCell
	AssocRow
)

var assocNames = [...]string{
	AssocNone:  "none",
	AssocPoint: "point",
	AssocCell:  "cell",
	AssocRow:   "row",
}

func (a Association) String() string {
	if a < 0 || int(a) >= len(assocNames) {
		return "unknown"
	}
	return assocNames[a]
}
