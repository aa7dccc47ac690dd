// Copyright 2023 The Databend Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or
// implied. See the License for the specific language governing
// permissions and limitations under the License.

package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xiaozhiyan/databend/pkg/sql/types"
)

func testSchema() *types.TableSchema {
	return types.NewTableSchema([]types.TableField{
		{Name: "a", Typ: types.Int64},
		{Name: "b", Typ: types.String},
		{Name: "c", Typ: types.Variant},
		{Name: "d", Typ: types.Bool},
	})
}

func TestFlatProjection(t *testing.T) {
	proj := NewFlatProjection([]int{3, 0, 2})
	require.False(t, proj.IsInner())
	require.Equal(t, 3, proj.Len())
	// Positions are normalized to ascending order.
	require.Equal(t, []int{0, 2, 3}, proj.Positions())

	projected := proj.ProjectSchema(testSchema())
	require.Equal(t, 3, projected.NumFields())
	require.Equal(t, "a", projected.Field(0).Name)
	require.Equal(t, "c", projected.Field(1).Name)
	require.Equal(t, "d", projected.Field(2).Name)

	require.Equal(t, "[0 2 3]", proj.String())
}

func TestInnerProjection(t *testing.T) {
	proj := NewInnerProjection()
	require.True(t, proj.IsInner())
	proj.AddPath(7, []int{2, 1})
	proj.AddPath(5, []int{2, 0})
	proj.AddPath(6, []int{0})
	require.Equal(t, 3, proj.Len())

	var cols []int
	var paths [][]int
	proj.EachPath(func(col int, path []int) {
		cols = append(cols, col)
		paths = append(paths, path)
	})
	// Visit order is ascending by column index.
	require.Equal(t, []int{5, 6, 7}, cols)
	require.Equal(t, [][]int{{2, 0}, {0}, {2, 1}}, paths)

	// Distinct paths sharing a top-level column project it once.
	projected := proj.ProjectSchema(testSchema())
	require.Equal(t, 2, projected.NumFields())
	require.Equal(t, "a", projected.Field(0).Name)
	require.Equal(t, "c", projected.Field(1).Name)
}

func TestAddPathOnFlatProjectionPanics(t *testing.T) {
	proj := NewFlatProjection([]int{0})
	require.Panics(t, func() { proj.AddPath(1, []int{1}) })
}
