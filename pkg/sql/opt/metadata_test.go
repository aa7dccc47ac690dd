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

package opt

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xiaozhiyan/databend/pkg/sql/catalog"
	"github.com/xiaozhiyan/databend/pkg/sql/types"
)

type stubTable struct {
	name   string
	schema *types.TableSchema
}

func (t *stubTable) Name() string               { return t.name }
func (t *stubTable) Schema() *types.TableSchema { return t.schema }
func (t *stubTable) BuildReadPlan(
	_ context.Context, pushDowns *catalog.PushDownInfo,
) (*catalog.ReadPlan, error) {
	return &catalog.ReadPlan{Source: t.schema, PushDowns: pushDowns}, nil
}

func TestMetadataColumns(t *testing.T) {
	md := NewMetadata()
	tid := md.AddTable("default", "db", "t", &stubTable{name: "t"}, nil)

	c0 := md.AddBaseTableColumn("id", types.Int64, tid, nil)
	c1 := md.AddBaseTableColumn("v:path", types.Variant, tid, []int{2, 0})
	c2 := md.AddDerivedColumn("total", types.Int64, "sum(id)")
	require.Equal(t, ColumnID(0), c0)
	require.Equal(t, ColumnID(1), c1)
	require.Equal(t, ColumnID(2), c2)
	require.Equal(t, "2", c2.ColumnName())

	entry, err := md.Column(c1)
	require.NoError(t, err)
	base, ok := entry.(*BaseTableColumn)
	require.True(t, ok)
	require.Equal(t, []int{2, 0}, base.PathIndices)
	require.Equal(t, tid, base.Table)

	name, err := md.ColumnName(c2)
	require.NoError(t, err)
	require.Equal(t, "total", name)

	_, err = md.Column(99)
	require.Error(t, err)
	_, err = md.Table(42)
	require.Error(t, err)
}

func TestMetadataRefSnapshot(t *testing.T) {
	md := NewMetadata()
	md.AddDerivedColumn("a", types.Int64, "a")
	ref := NewMetadataRef(md)

	snap := ref.Snapshot()
	ref.Update(func(md *Metadata) {
		md.AddDerivedColumn("b", types.Int64, "b")
	})

	// The snapshot is isolated from later updates.
	_, err := snap.Column(1)
	require.Error(t, err)
	_, err = ref.Snapshot().Column(1)
	require.NoError(t, err)
}
