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

package plans

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xiaozhiyan/databend/pkg/sql/catalog"
	"github.com/xiaozhiyan/databend/pkg/sql/opt"
	"github.com/xiaozhiyan/databend/pkg/sql/opt/props"
	"github.com/xiaozhiyan/databend/pkg/sql/types"
)

type reltestTable struct {
	schema *types.TableSchema
}

func (t *reltestTable) Name() string               { return "t" }
func (t *reltestTable) Schema() *types.TableSchema { return t.schema }
func (t *reltestTable) BuildReadPlan(
	_ context.Context, pushDowns *catalog.PushDownInfo,
) (*catalog.ReadPlan, error) {
	return &catalog.ReadPlan{Source: t.schema, PushDowns: pushDowns}, nil
}

// reltestMetadata registers one table with the given stats and two
// columns: id (Int64) and name (String).
func reltestMetadata(stats *props.Statistics) (*opt.Metadata, opt.TableID, opt.ColumnID, opt.ColumnID) {
	md := opt.NewMetadata()
	schema := types.NewTableSchema([]types.TableField{
		{Name: "id", Typ: types.Int64},
		{Name: "name", Typ: types.String},
	})
	tid := md.AddTable("default", "db", "t", &reltestTable{schema: schema}, stats)
	id := md.AddBaseTableColumn("id", types.Int64, tid, nil)
	name := md.AddBaseTableColumn("name", types.String, tid, nil)
	return md, tid, id, name
}

func scanExpr(tid opt.TableID, cols ...opt.ColumnID) *RelExpr {
	return NewRelExpr(&Scan{TableIndex: tid, Columns: opt.MakeColSet(cols...)})
}

func TestDeriveScanCardinality(t *testing.T) {
	md, tid, id, _ := reltestMetadata(nil)
	deriver := NewRelPropDeriver(md)

	// Without stats the scan falls back to the default estimate.
	rel, err := deriver.Derive(scanExpr(tid, id))
	require.NoError(t, err)
	require.Equal(t, float64(unknownRowCount), rel.Cardinality)

	md2, tid2, id2, _ := reltestMetadata(props.NewStatistics(9000))
	deriver = NewRelPropDeriver(md2)
	rel, err = deriver.Derive(scanExpr(tid2, id2))
	require.NoError(t, err)
	require.Equal(t, float64(9000), rel.Cardinality)

	// Push-down predicates and limits reduce the estimate.
	limit := int64(100)
	expr := NewRelExpr(&Scan{
		TableIndex:         tid2,
		Columns:            opt.MakeColSet(id2),
		PushDownPredicates: []ScalarExpr{&ConstantExpr{Value: nil, Typ: types.Bool}},
		Limit:              &limit,
	})
	rel, err = deriver.Derive(expr)
	require.NoError(t, err)
	require.Equal(t, float64(100), rel.Cardinality)
}

func TestDeriveFilterCardinality(t *testing.T) {
	md, tid, id, _ := reltestMetadata(props.NewStatistics(900))
	deriver := NewRelPropDeriver(md)

	pred := &ComparisonExpr{
		Op:    GtOp,
		Left:  &BoundColumnRef{Column: ColumnBinding{Index: id, Name: "id", Typ: types.Int64}},
		Right: &ConstantExpr{Value: nil, Typ: types.Int64},
	}
	expr := NewRelExpr(&Filter{Predicates: []ScalarExpr{pred}}, scanExpr(tid, id))
	rel, err := deriver.Derive(expr)
	require.NoError(t, err)
	require.Equal(t, float64(300), rel.Cardinality)
}

func TestDeriveJoinCardinality(t *testing.T) {
	md, tid, id, name := reltestMetadata(props.NewStatistics(1000))
	deriver := NewRelPropDeriver(md)

	equi := NewRelExpr(
		&Join{
			JoinType:        InnerJoin,
			LeftConditions:  []ScalarExpr{&BoundColumnRef{Column: ColumnBinding{Index: id, Typ: types.Int64}}},
			RightConditions: []ScalarExpr{&BoundColumnRef{Column: ColumnBinding{Index: name, Typ: types.String}}},
		},
		scanExpr(tid, id),
		scanExpr(tid, name),
	)
	rel, err := deriver.Derive(equi)
	require.NoError(t, err)
	// 1000 * 1000 / max(1000, 1000)
	require.Equal(t, float64(1000), rel.Cardinality)

	cross := NewRelExpr(&Join{JoinType: CrossJoin}, scanExpr(tid, id), scanExpr(tid, name))
	rel, err = deriver.Derive(cross)
	require.NoError(t, err)
	require.Equal(t, float64(1000*1000), rel.Cardinality)
}

func TestDeriveAggregateCardinality(t *testing.T) {
	stats := props.NewStatistics(1000)
	col := props.NewColumnStatistic()
	for i := 0; i < 10; i++ {
		col.AddValue([]byte{byte(i)})
	}
	stats.ColStats["name"] = col
	md, tid, id, name := reltestMetadata(stats)
	deriver := NewRelPropDeriver(md)

	// Scalar aggregation returns exactly one row.
	scalarAgg := NewRelExpr(&Aggregate{Mode: AggregateFinal}, scanExpr(tid, id))
	rel, err := deriver.Derive(scalarAgg)
	require.NoError(t, err)
	require.Equal(t, float64(1), rel.Cardinality)

	// Grouped aggregation uses the column sketch.
	grouped := NewRelExpr(
		&Aggregate{
			Mode: AggregateFinal,
			GroupItems: []ScalarItem{{
				Scalar: &BoundColumnRef{Column: ColumnBinding{Index: name, Name: "name", Typ: types.String}},
				Index:  name,
			}},
		},
		scanExpr(tid, id, name),
	)
	rel, err = deriver.Derive(grouped)
	require.NoError(t, err)
	require.InDelta(t, 10, rel.Cardinality, 1)
}

func TestDeriveLimitAndSortCardinality(t *testing.T) {
	md, tid, id, _ := reltestMetadata(props.NewStatistics(500))
	deriver := NewRelPropDeriver(md)

	limit := int64(20)
	expr := NewRelExpr(&Limit{Limit: &limit}, scanExpr(tid, id))
	rel, err := deriver.Derive(expr)
	require.NoError(t, err)
	require.Equal(t, float64(20), rel.Cardinality)

	sorted := NewRelExpr(&Sort{Limit: &limit}, scanExpr(tid, id))
	rel, err = deriver.Derive(sorted)
	require.NoError(t, err)
	require.Equal(t, float64(20), rel.Cardinality)

	// Exchange passes the estimate through.
	exchanged := NewRelExpr(&Exchange{Kind: ExchangeMerge}, scanExpr(tid, id))
	rel, err = deriver.Derive(exchanged)
	require.NoError(t, err)
	require.Equal(t, float64(500), rel.Cardinality)
}
