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

package override_test

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meshfield/meshfield/dataset"
	"github.com/meshfield/meshfield/override"
)

type grid struct{ res int }

type tracedGrid struct {
	*grid
	label string
}

func TestRegisterWrapRevert(t *testing.T) {
	override.Register(func(g *grid) *tracedGrid {
		return &tracedGrid{grid: g, label: "traced"}
	})
	defer override.Revert[grid]()

	require.True(t, override.Installed[grid]())

	g := &grid{res: 8}
	got := override.Wrap(g)
	tg, ok := got.(*tracedGrid)
	require.True(t, ok)
	assert.Same(t, g, tg.grid)
	assert.Equal(t, "traced", tg.label)
}

func TestWrapWithoutFactory(t *testing.T) {
	g := &grid{res: 2}
	got := override.Wrap(g)
	assert.Same(t, g, got)

	assert.Nil(t, override.Wrap[grid](nil))
	assert.False(t, override.Installed[grid]())
}

func TestRegisterReplacesAndRevertReports(t *testing.T) {
	override.Register(func(g *grid) *tracedGrid { return &tracedGrid{grid: g, label: "first"} })
	override.Register(func(g *grid) *tracedGrid { return &tracedGrid{grid: g, label: "second"} })

	tg := override.Wrap(&grid{}).(*tracedGrid)
	assert.Equal(t, "second", tg.label)

	assert.True(t, override.Revert[grid]())
	assert.False(t, override.Revert[grid]())
}

// wrapping a dataset is the expected use: downstream packages hand out
// enriched views of the stock entity without touching its storage.
type annotatedDataSet struct {
	*dataset.DataSet
	source string
}

func TestWrapDataSet(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	override.Register(func(ds *dataset.DataSet) *annotatedDataSet {
		return &annotatedDataSet{DataSet: ds, source: "reader"}
	})
	defer override.Revert[dataset.DataSet]()

	ds := dataset.New(mem)
	defer ds.Release()
	require.NoError(t, ds.SetPoints([]float32{0, 0, 0, 1, 1, 1}))

	wrapped, ok := override.Wrap(ds).(*annotatedDataSet)
	require.True(t, ok)
	assert.Equal(t, "reader", wrapped.source)
	assert.Equal(t, 2, wrapped.NumPoints())
	assert.Same(t, ds, wrapped.DataSet)
}
