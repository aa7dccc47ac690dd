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

package physicalplan

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/logtags"
	"github.com/cockroachdb/redact"
	"github.com/google/uuid"

	"github.com/xiaozhiyan/databend/pkg/sql/catalog"
	"github.com/xiaozhiyan/databend/pkg/sql/opt"
	"github.com/xiaozhiyan/databend/pkg/sql/plans"
	"github.com/xiaozhiyan/databend/pkg/sql/sem/eval"
	"github.com/xiaozhiyan/databend/pkg/sql/sem/tree"
	"github.com/xiaozhiyan/databend/pkg/sql/types"
	"github.com/xiaozhiyan/databend/pkg/util/log"
)

// PlanContext supplies the query-scoped state a plan build needs.
type PlanContext interface {
	// FunctionContext returns the evaluation context used for constant
	// folding. It is fixed for the whole query so that repeated folds
	// of the same expression agree.
	FunctionContext() *eval.FunctionContext

	// QueryID identifies the query in logs and diagnostics.
	QueryID() uuid.UUID

	// Tenant is the tenant the query runs under.
	Tenant() string
}

// PhysicalPlanBuilder lowers an optimized relational expression tree
// into a physical plan. A builder is single-use per Build call chain
// and not safe for concurrent use; create one per query.
type PhysicalPlanBuilder struct {
	metadata *opt.MetadataRef
	catalog  catalog.Catalog
	planCtx  PlanContext

	// md is the metadata snapshot taken at the start of the current
	// build; all column and table resolution goes through it.
	md         *opt.Metadata
	deriver    *plans.RelPropDeriver
	nextPlanID uint32
}

// NewPhysicalPlanBuilder returns a builder over the given metadata and
// catalog.
func NewPhysicalPlanBuilder(
	metadata *opt.MetadataRef, cat catalog.Catalog, planCtx PlanContext,
) *PhysicalPlanBuilder {
	return &PhysicalPlanBuilder{metadata: metadata, catalog: cat, planCtx: planCtx}
}

// Build lowers expr to a physical plan. The metadata is snapshotted
// once at entry; concurrent metadata updates do not affect an ongoing
// build.
func (b *PhysicalPlanBuilder) Build(
	ctx context.Context, expr *plans.RelExpr,
) (PhysicalPlan, error) {
	ctx = logtags.AddTag(ctx, "query", b.planCtx.QueryID().String())
	b.md = b.metadata.Snapshot()
	b.deriver = plans.NewRelPropDeriver(b.md)
	plan, err := b.build(ctx, expr)
	if err != nil {
		return nil, err
	}
	if log.V(2) {
		log.Infof("query %s: built physical plan:\n%s", b.planCtx.QueryID(), Explain(plan))
	}
	return plan, nil
}

func (b *PhysicalPlanBuilder) nextID() uint32 {
	id := b.nextPlanID
	b.nextPlanID++
	return id
}

func (b *PhysicalPlanBuilder) base(stats *PlanStatsInfo) basePlan {
	return basePlan{id: b.nextID(), stats: stats}
}

func (b *PhysicalPlanBuilder) fnCtx() *eval.FunctionContext {
	return b.planCtx.FunctionContext()
}

// stat derives the cardinality estimate for a relational node.
func (b *PhysicalPlanBuilder) stat(expr *plans.RelExpr) (*PlanStatsInfo, error) {
	rel, err := b.deriver.Derive(expr)
	if err != nil {
		return nil, err
	}
	return &PlanStatsInfo{EstimatedRows: rel.Cardinality}, nil
}

func (b *PhysicalPlanBuilder) build(
	ctx context.Context, expr *plans.RelExpr,
) (PhysicalPlan, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch n := expr.Node().(type) {
	case *plans.Scan:
		return b.buildScan(ctx, expr, n)
	case *plans.DummyTableScan:
		return b.buildDummyScan(ctx, expr)
	case *plans.Join:
		return b.buildJoin(ctx, expr, n)
	case *plans.EvalScalar:
		return b.buildEvalScalar(ctx, expr, n)
	case *plans.Filter:
		return b.buildFilter(ctx, expr, n)
	case *plans.Aggregate:
		return b.buildAggregate(ctx, expr, n)
	case *plans.Sort:
		return b.buildSort(ctx, expr, n)
	case *plans.Limit:
		return b.buildLimit(ctx, expr, n)
	case *plans.Exchange:
		return b.buildExchange(ctx, expr, n)
	case *plans.UnionAll:
		return b.buildUnionAll(ctx, expr, n)
	case *plans.RuntimeFilterSource:
		return b.buildRuntimeFilterSource(ctx, expr, n)
	default:
		return nil, errors.Newf("unsupported physical plan: %s", redact.Safe(expr.Op()))
	}
}

func (b *PhysicalPlanBuilder) buildScan(
	ctx context.Context, expr *plans.RelExpr, scan *plans.Scan,
) (PhysicalPlan, error) {
	entry, err := b.md.Table(scan.TableIndex)
	if err != nil {
		return nil, err
	}
	tableSchema := entry.Table.Schema()

	// With a prewhere split the scan exposes only the scanned columns
	// the prewhere output set retains; storage materializes the rest
	// internally.
	mapping := make([]ColumnMapping, 0, scan.Columns.Len())
	var mapErr error
	scan.Columns.ForEach(func(col opt.ColumnID) {
		if mapErr != nil {
			return
		}
		if scan.Prewhere != nil && !scan.Prewhere.OutputColumns.Contains(col) {
			return
		}
		colEntry, err := b.md.Column(col)
		if err != nil {
			mapErr = err
			return
		}
		mapping = append(mapping, ColumnMapping{
			Name:  colEntry.Name(),
			Index: col,
			Typ:   colEntry.DataType(),
		})
	})
	if mapErr != nil {
		return nil, mapErr
	}

	pushDowns, err := buildPushDowns(b.md, b.fnCtx(), tableSchema, scan)
	if err != nil {
		return nil, err
	}
	readPlan, err := entry.Table.BuildReadPlan(ctx, pushDowns)
	if err != nil {
		return nil, errors.Wrapf(err, "build read plan for table %s.%s",
			entry.DatabaseName, entry.TableName)
	}
	stats, err := b.stat(expr)
	if err != nil {
		return nil, err
	}
	return &TableScan{
		basePlan:   b.base(stats),
		Mapping:    mapping,
		Source:     readPlan,
		TableIndex: scan.TableIndex,
	}, nil
}

// buildDummyScan lowers the table-free relation to a scan over the
// one-row system table.
func (b *PhysicalPlanBuilder) buildDummyScan(
	ctx context.Context, expr *plans.RelExpr,
) (PhysicalPlan, error) {
	table, err := b.catalog.GetTable(
		ctx, b.planCtx.Tenant(), catalog.SystemDatabase, catalog.SystemTableOne)
	if err != nil {
		return nil, err
	}
	readPlan, err := table.BuildReadPlan(ctx, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "build read plan for table %s.%s",
			catalog.SystemDatabase, catalog.SystemTableOne)
	}
	stats, err := b.stat(expr)
	if err != nil {
		return nil, err
	}
	return &TableScan{
		basePlan: b.base(stats),
		Mapping: []ColumnMapping{{
			Name:  catalog.DummyColumnName,
			Index: opt.DummyColumnID,
			Typ:   types.UInt8,
		}},
		Source:     readPlan,
		TableIndex: opt.DummyTableID,
	}, nil
}

func (b *PhysicalPlanBuilder) buildJoin(
	ctx context.Context, expr *plans.RelExpr, join *plans.Join,
) (PhysicalPlan, error) {
	// The build side is constructed first: its hash table must be ready
	// before the probe side streams, and plan ids follow that order.
	buildChild, err := expr.Child(1)
	if err != nil {
		return nil, err
	}
	buildSide, err := b.build(ctx, buildChild)
	if err != nil {
		return nil, err
	}
	probeChild, err := expr.Child(0)
	if err != nil {
		return nil, err
	}
	probeSide, err := b.build(ctx, probeChild)
	if err != nil {
		return nil, err
	}

	buildSchema, err := buildSide.OutputSchema()
	if err != nil {
		return nil, err
	}
	probeSchema, err := probeSide.OutputSchema()
	if err != nil {
		return nil, err
	}
	mergedFields := make([]types.DataField, 0, probeSchema.NumFields()+buildSchema.NumFields())
	mergedFields = append(mergedFields, probeSchema.Fields()...)
	mergedFields = append(mergedFields, buildSchema.Fields()...)
	mergedSchema := types.NewDataSchema(mergedFields)

	buildKeys := make([]tree.Expr, len(join.RightConditions))
	for i, cond := range join.RightConditions {
		if buildKeys[i], err = lowerRebindFold(b.fnCtx(), buildSchema, cond); err != nil {
			return nil, err
		}
	}
	probeKeys := make([]tree.Expr, len(join.LeftConditions))
	for i, cond := range join.LeftConditions {
		if probeKeys[i], err = lowerRebindFold(b.fnCtx(), probeSchema, cond); err != nil {
			return nil, err
		}
	}
	nonEqui := make([]tree.Expr, len(join.NonEquiConditions))
	for i, cond := range join.NonEquiConditions {
		if nonEqui[i], err = lowerRebindFold(b.fnCtx(), mergedSchema, cond); err != nil {
			return nil, err
		}
	}

	stats, err := b.stat(expr)
	if err != nil {
		return nil, err
	}
	return &HashJoin{
		basePlan:               b.base(stats),
		Build:                  buildSide,
		Probe:                  probeSide,
		JoinType:               join.JoinType,
		BuildKeys:              buildKeys,
		ProbeKeys:              probeKeys,
		NonEquiConditions:      nonEqui,
		MarkerIndex:            join.MarkerIndex,
		FromCorrelatedSubquery: join.FromCorrelatedSubquery,
		ContainRuntimeFilter:   join.ContainRuntimeFilter,
	}, nil
}

func (b *PhysicalPlanBuilder) buildEvalScalar(
	ctx context.Context, expr *plans.RelExpr, proj *plans.EvalScalar,
) (PhysicalPlan, error) {
	child, err := expr.Child(0)
	if err != nil {
		return nil, err
	}
	input, err := b.build(ctx, child)
	if err != nil {
		return nil, err
	}
	inputSchema, err := input.OutputSchema()
	if err != nil {
		return nil, err
	}

	exprs := make([]EvalExpr, 0, len(proj.Items))
	var unnestOffsets []int
	for i, item := range proj.Items {
		scalar := item.Scalar
		if un, ok := scalar.(*plans.Unnest); ok {
			unnestOffsets = append(unnestOffsets, inputSchema.NumFields()+i)
			scalar = un.Argument
		}
		lowered, err := lowerRebindFold(b.fnCtx(), inputSchema, scalar)
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, EvalExpr{Expr: lowered, Index: item.Index})
	}

	stats, err := b.stat(expr)
	if err != nil {
		return nil, err
	}
	plan := PhysicalPlan(&EvalScalar{basePlan: b.base(stats), Input: input, Exprs: exprs})
	if len(unnestOffsets) > 0 {
		plan = &Unnest{basePlan: b.base(stats), Input: plan, Offsets: unnestOffsets}
	}
	return plan, nil
}

func (b *PhysicalPlanBuilder) buildFilter(
	ctx context.Context, expr *plans.RelExpr, filter *plans.Filter,
) (PhysicalPlan, error) {
	child, err := expr.Child(0)
	if err != nil {
		return nil, err
	}
	input, err := b.build(ctx, child)
	if err != nil {
		return nil, err
	}
	inputSchema, err := input.OutputSchema()
	if err != nil {
		return nil, err
	}
	predicates := make([]tree.Expr, len(filter.Predicates))
	for i, pred := range filter.Predicates {
		if predicates[i], err = lowerPredicate(b.fnCtx(), inputSchema, pred); err != nil {
			return nil, err
		}
	}
	stats, err := b.stat(expr)
	if err != nil {
		return nil, err
	}
	return &Filter{basePlan: b.base(stats), Input: input, Predicates: predicates}, nil
}

func (b *PhysicalPlanBuilder) buildAggregate(
	ctx context.Context, expr *plans.RelExpr, agg *plans.Aggregate,
) (PhysicalPlan, error) {
	child, err := expr.Child(0)
	if err != nil {
		return nil, err
	}
	input, err := b.build(ctx, child)
	if err != nil {
		return nil, err
	}
	switch agg.Mode {
	case plans.AggregatePartial:
		return b.buildAggregatePartial(expr, agg, input)
	case plans.AggregateFinal:
		return b.buildAggregateFinal(expr, agg, input)
	default:
		return nil, errors.AssertionFailedf("invalid aggregate mode: %s", agg.Mode)
	}
}

// groupColumns extracts the logical indexes of the group-by items.
func groupColumns(items []plans.ScalarItem) []opt.ColumnID {
	cols := make([]opt.ColumnID, len(items))
	for i := range items {
		cols[i] = items[i].Index
	}
	return cols
}

// aggregateDescs resolves aggregate items against the aggregation
// input schema. Argument expressions must already be plain column
// references; the optimizer extracts computed arguments into an
// EvalScalar below the aggregation.
func aggregateDescs(
	schema *types.DataSchema, items []plans.ScalarItem,
) ([]AggregateFunctionDesc, error) {
	descs := make([]AggregateFunctionDesc, 0, len(items))
	for _, item := range items {
		agg, ok := item.Scalar.(*plans.AggregateFunction)
		if !ok {
			return nil, errors.AssertionFailedf(
				"aggregate item %d is not an aggregate function", item.Index)
		}
		desc := AggregateFunctionDesc{
			Sig: AggregateFunctionSignature{
				Name:       agg.FuncName,
				Params:     agg.Params,
				ReturnType: agg.ReturnType,
			},
			OutputColumn: item.Index,
		}
		for _, arg := range agg.Args {
			ref, ok := arg.(*plans.BoundColumnRef)
			if !ok {
				return nil, errors.AssertionFailedf(
					"argument of aggregate function %s must be a column", agg.FuncName)
			}
			pos, err := schema.IndexOf(ref.Column.Index.ColumnName())
			if err != nil {
				return nil, err
			}
			desc.Sig.ArgTypes = append(desc.Sig.ArgTypes, ref.Column.Typ)
			desc.Args = append(desc.Args, pos)
			desc.ArgIndices = append(desc.ArgIndices, ref.Column.Index)
		}
		descs = append(descs, desc)
	}
	return descs, nil
}

func (b *PhysicalPlanBuilder) buildAggregatePartial(
	expr *plans.RelExpr, agg *plans.Aggregate, input PhysicalPlan,
) (PhysicalPlan, error) {
	groupBy := groupColumns(agg.GroupItems)
	stats, err := b.stat(expr)
	if err != nil {
		return nil, err
	}

	// When the input is an exchange, aggregate below it and
	// redistribute the compact partial states by the serialized group
	// key instead of shuffling raw rows.
	if exchange, ok := input.(*Exchange); ok {
		innerSchema, err := exchange.Input.OutputSchema()
		if err != nil {
			return nil, err
		}
		descs, err := aggregateDescs(innerSchema, agg.AggregateFunctions)
		if err != nil {
			return nil, err
		}
		partial := &AggregatePartial{
			basePlan: b.base(stats),
			Input:    exchange.Input,
			GroupBy:  groupBy,
			AggFuncs: descs,
		}
		keys := exchange.Keys
		if len(groupBy) > 0 {
			partialSchema, err := partial.OutputSchema()
			if err != nil {
				return nil, err
			}
			keyPos := partialSchema.NumFields() - 1
			keyField := partialSchema.Field(keyPos)
			keys = []tree.Expr{
				&tree.IndexedVar{Idx: keyPos, DisplayName: keyField.Name, Typ: keyField.Typ},
			}
		}
		return &Exchange{
			basePlan: basePlan{id: b.nextID()},
			Input:    partial,
			Kind:     exchange.Kind,
			Keys:     keys,
		}, nil
	}

	inputSchema, err := input.OutputSchema()
	if err != nil {
		return nil, err
	}
	descs, err := aggregateDescs(inputSchema, agg.AggregateFunctions)
	if err != nil {
		return nil, err
	}
	return &AggregatePartial{
		basePlan: b.base(stats),
		Input:    input,
		GroupBy:  groupBy,
		AggFuncs: descs,
	}, nil
}

func (b *PhysicalPlanBuilder) buildAggregateFinal(
	expr *plans.RelExpr, agg *plans.Aggregate, input PhysicalPlan,
) (PhysicalPlan, error) {
	// Recover the schema feeding the partial stage; the final stage
	// resolves group columns and aggregate arguments against it.
	var before *types.DataSchema
	var err error
	switch t := input.(type) {
	case *AggregatePartial:
		before, err = t.Input.OutputSchema()
	case *Exchange:
		partial, ok := t.Input.(*AggregatePartial)
		if !ok {
			return nil, errors.AssertionFailedf(
				"input of final aggregate must be a partial aggregate, got %s", t.Input.Name())
		}
		before, err = partial.Input.OutputSchema()
	default:
		return nil, errors.AssertionFailedf(
			"input of final aggregate must be a partial aggregate, got %s", input.Name())
	}
	if err != nil {
		return nil, err
	}

	descs, err := aggregateDescs(before, agg.AggregateFunctions)
	if err != nil {
		return nil, err
	}
	stats, err := b.stat(expr)
	if err != nil {
		return nil, err
	}
	return &AggregateFinal{
		basePlan:            b.base(stats),
		Input:               input,
		GroupBy:             groupColumns(agg.GroupItems),
		AggFuncs:            descs,
		BeforeGroupBySchema: before,
		Limit:               agg.Limit,
	}, nil
}

func (b *PhysicalPlanBuilder) buildSort(
	ctx context.Context, expr *plans.RelExpr, sort *plans.Sort,
) (PhysicalPlan, error) {
	child, err := expr.Child(0)
	if err != nil {
		return nil, err
	}
	input, err := b.build(ctx, child)
	if err != nil {
		return nil, err
	}
	orderBy := make([]SortDesc, len(sort.Items))
	for i, item := range sort.Items {
		orderBy[i] = SortDesc{Column: item.Index, Asc: item.Asc, NullsFirst: item.NullsFirst}
	}
	stats, err := b.stat(expr)
	if err != nil {
		return nil, err
	}
	return &Sort{basePlan: b.base(stats), Input: input, OrderBy: orderBy, Limit: sort.Limit}, nil
}

func (b *PhysicalPlanBuilder) buildLimit(
	ctx context.Context, expr *plans.RelExpr, limit *plans.Limit,
) (PhysicalPlan, error) {
	child, err := expr.Child(0)
	if err != nil {
		return nil, err
	}
	input, err := b.build(ctx, child)
	if err != nil {
		return nil, err
	}
	stats, err := b.stat(expr)
	if err != nil {
		return nil, err
	}
	return &Limit{basePlan: b.base(stats), Input: input, Limit: limit.Limit, Offset: limit.Offset}, nil
}

func (b *PhysicalPlanBuilder) buildExchange(
	ctx context.Context, expr *plans.RelExpr, exchange *plans.Exchange,
) (PhysicalPlan, error) {
	child, err := expr.Child(0)
	if err != nil {
		return nil, err
	}
	input, err := b.build(ctx, child)
	if err != nil {
		return nil, err
	}
	var kind FragmentKind
	var keys []tree.Expr
	switch exchange.Kind {
	case plans.ExchangeRandom:
		kind = FragmentInit
	case plans.ExchangeHash:
		kind = FragmentNormal
		inputSchema, err := input.OutputSchema()
		if err != nil {
			return nil, err
		}
		keys = make([]tree.Expr, len(exchange.HashKeys))
		for i, key := range exchange.HashKeys {
			if keys[i], err = lowerRebindFold(b.fnCtx(), inputSchema, key); err != nil {
				return nil, err
			}
		}
	case plans.ExchangeBroadcast:
		kind = FragmentExpansive
	case plans.ExchangeMerge:
		kind = FragmentMerge
	default:
		return nil, errors.AssertionFailedf("unknown exchange kind: %s", exchange.Kind)
	}
	return &Exchange{basePlan: basePlan{id: b.nextID()}, Input: input, Kind: kind, Keys: keys}, nil
}

func (b *PhysicalPlanBuilder) buildUnionAll(
	ctx context.Context, expr *plans.RelExpr, union *plans.UnionAll,
) (PhysicalPlan, error) {
	leftChild, err := expr.Child(0)
	if err != nil {
		return nil, err
	}
	left, err := b.build(ctx, leftChild)
	if err != nil {
		return nil, err
	}
	leftSchema, err := left.OutputSchema()
	if err != nil {
		return nil, err
	}
	for _, pair := range union.Pairs {
		if _, err := leftSchema.FieldWithName(pair.Left); err != nil {
			return nil, err
		}
	}

	// The union's id sits between the two subtrees: the left side is
	// finalized before it, the right side after.
	stats, err := b.stat(expr)
	if err != nil {
		return nil, err
	}
	base := b.base(stats)

	rightChild, err := expr.Child(1)
	if err != nil {
		return nil, err
	}
	right, err := b.build(ctx, rightChild)
	if err != nil {
		return nil, err
	}
	rightSchema, err := right.OutputSchema()
	if err != nil {
		return nil, err
	}
	for _, pair := range union.Pairs {
		if _, err := rightSchema.FieldWithName(pair.Right); err != nil {
			return nil, err
		}
	}
	return &UnionAll{basePlan: base, Left: left, Right: right, Pairs: union.Pairs}, nil
}

func (b *PhysicalPlanBuilder) buildRuntimeFilterSource(
	ctx context.Context, expr *plans.RelExpr, source *plans.RuntimeFilterSource,
) (PhysicalPlan, error) {
	leftChild, err := expr.Child(0)
	if err != nil {
		return nil, err
	}
	left, err := b.build(ctx, leftChild)
	if err != nil {
		return nil, err
	}
	rightChild, err := expr.Child(1)
	if err != nil {
		return nil, err
	}
	right, err := b.build(ctx, rightChild)
	if err != nil {
		return nil, err
	}

	leftSchema, err := left.OutputSchema()
	if err != nil {
		return nil, err
	}
	rightSchema, err := right.OutputSchema()
	if err != nil {
		return nil, err
	}
	lowerFilters := func(
		schema *types.DataSchema, filters []plans.RuntimeFilter,
	) ([]RuntimeFilterDesc, error) {
		descs := make([]RuntimeFilterDesc, len(filters))
		for i, f := range filters {
			lowered, err := lowerRebindFold(b.fnCtx(), schema, f.Scalar)
			if err != nil {
				return nil, err
			}
			descs[i] = RuntimeFilterDesc{ID: f.ID, Expr: lowered}
		}
		return descs, nil
	}
	leftFilters, err := lowerFilters(leftSchema, source.LeftFilters)
	if err != nil {
		return nil, err
	}
	rightFilters, err := lowerFilters(rightSchema, source.RightFilters)
	if err != nil {
		return nil, err
	}
	return &RuntimeFilterSource{
		basePlan:     basePlan{id: b.nextID()},
		LeftSide:     left,
		RightSide:    right,
		LeftFilters:  leftFilters,
		RightFilters: rightFilters,
	}, nil
}
