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
	"github.com/xiaozhiyan/databend/pkg/sql/opt"
	"github.com/xiaozhiyan/databend/pkg/sql/opt/props"
)

const (
	// unknownRowCount is the scan estimate when the table has no
	// collected statistics.
	unknownRowCount = 1000

	// unknownFilterSelectivity is the estimated fraction of rows a
	// predicate keeps when no better information is available.
	unknownFilterSelectivity = 1.0 / 3.0

	// unknownDistinctCountRatio estimates distinct values as a
	// fraction of row count when no sketch exists for a column.
	unknownDistinctCountRatio = 0.1
)

// RelPropDeriver computes relational properties, currently just
// cardinality estimates, for relational expression trees.
type RelPropDeriver struct {
	md *opt.Metadata
}

// NewRelPropDeriver returns a deriver reading table statistics from md.
func NewRelPropDeriver(md *opt.Metadata) *RelPropDeriver {
	return &RelPropDeriver{md: md}
}

// Derive estimates the output cardinality of expr.
func (d *RelPropDeriver) Derive(expr *RelExpr) (*props.Relational, error) {
	switch n := expr.Node().(type) {
	case *Scan:
		return d.deriveScan(n)

	case *DummyTableScan:
		return &props.Relational{Cardinality: 1}, nil

	case *Join:
		return d.deriveJoin(expr, n)

	case *Filter:
		input, err := d.deriveChild(expr, 0)
		if err != nil {
			return nil, err
		}
		card := input.Cardinality
		for range n.Predicates {
			card *= unknownFilterSelectivity
		}
		return &props.Relational{Cardinality: card}, nil

	case *Aggregate:
		return d.deriveAggregate(expr, n)

	case *Sort:
		input, err := d.deriveChild(expr, 0)
		if err != nil {
			return nil, err
		}
		card := input.Cardinality
		if n.Limit != nil && float64(*n.Limit) < card {
			card = float64(*n.Limit)
		}
		return &props.Relational{Cardinality: card}, nil

	case *Limit:
		input, err := d.deriveChild(expr, 0)
		if err != nil {
			return nil, err
		}
		card := input.Cardinality
		if n.Limit != nil && float64(*n.Limit) < card {
			card = float64(*n.Limit)
		}
		return &props.Relational{Cardinality: card}, nil

	default:
		// Projection, exchange and runtime filter placement preserve
		// row count.
		return d.deriveChild(expr, 0)
	}
}

func (d *RelPropDeriver) deriveChild(expr *RelExpr, i int) (*props.Relational, error) {
	child, err := expr.Child(i)
	if err != nil {
		return nil, err
	}
	return d.Derive(child)
}

func (d *RelPropDeriver) deriveScan(scan *Scan) (*props.Relational, error) {
	table, err := d.md.Table(scan.TableIndex)
	if err != nil {
		return nil, err
	}
	card := float64(unknownRowCount)
	if table.Stats != nil && table.Stats.RowCount > 0 {
		card = table.Stats.RowCount
	}
	for range scan.PushDownPredicates {
		card *= unknownFilterSelectivity
	}
	if scan.Prewhere != nil {
		for range scan.Prewhere.Predicates {
			card *= unknownFilterSelectivity
		}
	}
	if scan.Limit != nil && float64(*scan.Limit) < card {
		card = float64(*scan.Limit)
	}
	return &props.Relational{Cardinality: card}, nil
}

func (d *RelPropDeriver) deriveJoin(expr *RelExpr, join *Join) (*props.Relational, error) {
	probe, err := d.deriveChild(expr, 0)
	if err != nil {
		return nil, err
	}
	build, err := d.deriveChild(expr, 1)
	if err != nil {
		return nil, err
	}
	card := probe.Cardinality * build.Cardinality
	if len(join.LeftConditions) > 0 {
		// Equi-joins produce at most one match per key on the larger
		// side, approximated by dividing out the maximum.
		larger := probe.Cardinality
		if build.Cardinality > larger {
			larger = build.Cardinality
		}
		if larger > 0 {
			card /= larger
		}
	}
	for range join.NonEquiConditions {
		card *= unknownFilterSelectivity
	}
	return &props.Relational{Cardinality: card}, nil
}

func (d *RelPropDeriver) deriveAggregate(
	expr *RelExpr, agg *Aggregate,
) (*props.Relational, error) {
	input, err := d.deriveChild(expr, 0)
	if err != nil {
		return nil, err
	}
	if len(agg.GroupItems) == 0 {
		return &props.Relational{Cardinality: 1}, nil
	}
	card := 1.0
	for i := range agg.GroupItems {
		card *= d.groupColumnDistinct(agg.GroupItems[i].Scalar, input.Cardinality)
		if card >= input.Cardinality {
			card = input.Cardinality
			break
		}
	}
	if agg.Limit != nil && float64(*agg.Limit) < card {
		card = float64(*agg.Limit)
	}
	return &props.Relational{Cardinality: card}, nil
}

// groupColumnDistinct estimates the number of distinct values of a
// group-by key from the owning table's column sketches, falling back
// to a fixed fraction of the input row count.
func (d *RelPropDeriver) groupColumnDistinct(scalar ScalarExpr, inputRows float64) float64 {
	fallback := unknownDistinctCountRatio * inputRows
	if fallback < 1 {
		fallback = 1
	}
	ref, ok := scalar.(*BoundColumnRef)
	if !ok {
		return fallback
	}
	entry, err := d.md.Column(ref.Column.Index)
	if err != nil {
		return fallback
	}
	base, ok := entry.(*opt.BaseTableColumn)
	if !ok {
		return fallback
	}
	table, err := d.md.Table(base.Table)
	if err != nil || table.Stats == nil {
		return fallback
	}
	distinct, ok := table.Stats.DistinctCount(base.ColumnName)
	if !ok {
		return fallback
	}
	if distinct > inputRows {
		return inputRows
	}
	return distinct
}
