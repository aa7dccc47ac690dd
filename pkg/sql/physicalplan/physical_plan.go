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

// Package physicalplan lowers optimized relational expression trees to
// executable physical plans: trees of typed operators whose scalar
// expressions are rebound to row-block positions and whose scans carry
// storage read plans.
package physicalplan

import (
	"github.com/cockroachdb/errors"

	"github.com/xiaozhiyan/databend/pkg/sql/catalog"
	"github.com/xiaozhiyan/databend/pkg/sql/opt"
	"github.com/xiaozhiyan/databend/pkg/sql/plans"
	"github.com/xiaozhiyan/databend/pkg/sql/sem/tree"
	"github.com/xiaozhiyan/databend/pkg/sql/types"
)

// groupByKeyName is the synthetic column holding the serialized
// group-by key between the partial and final aggregation stages.
const groupByKeyName = "_group_by_key"

// PhysicalPlan is a node of an executable plan. Output schemas are
// derived on demand from the node's inputs and payload, never stored,
// so repeated calls always agree with the current tree shape.
type PhysicalPlan interface {
	// PlanID returns the node's build-scoped identifier.
	PlanID() uint32

	// Name returns the operator name used in diagnostics and EXPLAIN.
	Name() string

	// OutputSchema returns the schema of the row blocks this node emits.
	OutputSchema() (*types.DataSchema, error)

	// Children returns the node's inputs in execution order.
	Children() []PhysicalPlan

	// StatInfo returns the planner's cardinality estimate, or nil when
	// the node carries none.
	StatInfo() *PlanStatsInfo
}

// basePlan implements the identity and statistics half of PhysicalPlan.
type basePlan struct {
	id    uint32
	stats *PlanStatsInfo
}

// PlanID implements PhysicalPlan.
func (p *basePlan) PlanID() uint32 { return p.id }

// StatInfo implements PhysicalPlan.
func (p *basePlan) StatInfo() *PlanStatsInfo { return p.stats }

// ColumnMapping ties one scan output field to its storage name and
// logical column index. Scans keep their mapping ordered by ascending
// column index; the output schema follows that order.
type ColumnMapping struct {
	// Name is the storage-level column name.
	Name string
	// Index is the logical column index the field carries downstream.
	Index opt.ColumnID
	Typ   *types.T
}

// TableScan reads a table through a storage read plan.
type TableScan struct {
	basePlan

	// Mapping lists the exposed columns in ascending column-index
	// order. When a prewhere split is present this is the scanned set
	// restricted to the prewhere output columns.
	Mapping    []ColumnMapping
	Source     *catalog.ReadPlan
	TableIndex opt.TableID
}

// Name implements PhysicalPlan.
func (*TableScan) Name() string { return "TableScan" }

// Children implements PhysicalPlan.
func (*TableScan) Children() []PhysicalPlan { return nil }

// OutputSchema implements PhysicalPlan.
func (s *TableScan) OutputSchema() (*types.DataSchema, error) {
	fields := make([]types.DataField, len(s.Mapping))
	for i, m := range s.Mapping {
		fields[i] = types.DataField{Name: m.Index.ColumnName(), Typ: m.Typ}
	}
	return types.NewDataSchema(fields), nil
}

// HashJoin joins its probe input against a hash table built from its
// build input. Key expressions are rebound against the side they hash.
type HashJoin struct {
	basePlan

	Build PhysicalPlan
	Probe PhysicalPlan

	JoinType  plans.JoinType
	BuildKeys []tree.Expr
	ProbeKeys []tree.Expr
	// NonEquiConditions are rebound against the merged probe-then-build
	// schema.
	NonEquiConditions []tree.Expr

	MarkerIndex            *opt.ColumnID
	FromCorrelatedSubquery bool
	ContainRuntimeFilter   bool
}

// Name implements PhysicalPlan.
func (*HashJoin) Name() string { return "HashJoin" }

// Children implements PhysicalPlan.
func (j *HashJoin) Children() []PhysicalPlan { return []PhysicalPlan{j.Build, j.Probe} }

// OutputSchema implements PhysicalPlan.
func (j *HashJoin) OutputSchema() (*types.DataSchema, error) {
	probe, err := j.Probe.OutputSchema()
	if err != nil {
		return nil, err
	}
	switch j.JoinType {
	case plans.LeftSemiJoin, plans.LeftAntiJoin, plans.RightSemiJoin, plans.RightAntiJoin:
		return probe, nil

	case plans.MarkJoin:
		if j.MarkerIndex == nil {
			return nil, errors.AssertionFailedf("mark join has no marker column")
		}
		fields := make([]types.DataField, 0, probe.NumFields()+1)
		fields = append(fields, probe.Fields()...)
		fields = append(fields, types.DataField{
			Name: j.MarkerIndex.ColumnName(),
			Typ:  types.Bool.AsNullable(),
		})
		return types.NewDataSchema(fields), nil

	default:
		build, err := j.Build.OutputSchema()
		if err != nil {
			return nil, err
		}
		fields := make([]types.DataField, 0, probe.NumFields()+build.NumFields())
		fields = append(fields, probe.Fields()...)
		fields = append(fields, build.Fields()...)
		return types.NewDataSchema(fields), nil
	}
}

// EvalExpr is one projection item: the rebound expression and the
// logical column index its output carries.
type EvalExpr struct {
	Expr  tree.Expr
	Index opt.ColumnID
}

// EvalScalar appends projection items to its input's row blocks.
type EvalScalar struct {
	basePlan

	Input PhysicalPlan
	Exprs []EvalExpr
}

// Name implements PhysicalPlan.
func (*EvalScalar) Name() string { return "EvalScalar" }

// Children implements PhysicalPlan.
func (e *EvalScalar) Children() []PhysicalPlan { return []PhysicalPlan{e.Input} }

// OutputSchema implements PhysicalPlan.
func (e *EvalScalar) OutputSchema() (*types.DataSchema, error) {
	input, err := e.Input.OutputSchema()
	if err != nil {
		return nil, err
	}
	fields := make([]types.DataField, 0, input.NumFields()+len(e.Exprs))
	fields = append(fields, input.Fields()...)
	for _, item := range e.Exprs {
		fields = append(fields, types.DataField{
			Name: item.Index.ColumnName(),
			Typ:  item.Expr.ResolvedType(),
		})
	}
	return types.NewDataSchema(fields), nil
}

// Unnest explodes array fields of its input: each field at a recorded
// offset turns from Array(T) into nullable T, one output row per array
// element.
type Unnest struct {
	basePlan

	Input PhysicalPlan
	// Offsets are positions in the input schema, ascending.
	Offsets []int
}

// Name implements PhysicalPlan.
func (*Unnest) Name() string { return "Unnest" }

// Children implements PhysicalPlan.
func (u *Unnest) Children() []PhysicalPlan { return []PhysicalPlan{u.Input} }

// OutputSchema implements PhysicalPlan.
func (u *Unnest) OutputSchema() (*types.DataSchema, error) {
	input, err := u.Input.OutputSchema()
	if err != nil {
		return nil, err
	}
	fields := make([]types.DataField, input.NumFields())
	copy(fields, input.Fields())
	for _, off := range u.Offsets {
		if off < 0 || off >= len(fields) {
			return nil, errors.AssertionFailedf(
				"unnest offset %d out of range for schema with %d fields", off, len(fields))
		}
		typ := fields[off].Typ
		if typ.Family() != types.ArrayFamily {
			return nil, errors.AssertionFailedf(
				"unnest field %q has non-array type %s", fields[off].Name, typ)
		}
		fields[off].Typ = typ.Elem().AsNullable()
	}
	return types.NewDataSchema(fields), nil
}

// Filter keeps the input rows every predicate accepts. Predicates are
// rebound and coerced to non-nullable booleans.
type Filter struct {
	basePlan

	Input      PhysicalPlan
	Predicates []tree.Expr
}

// Name implements PhysicalPlan.
func (*Filter) Name() string { return "Filter" }

// Children implements PhysicalPlan.
func (f *Filter) Children() []PhysicalPlan { return []PhysicalPlan{f.Input} }

// OutputSchema implements PhysicalPlan.
func (f *Filter) OutputSchema() (*types.DataSchema, error) { return f.Input.OutputSchema() }

// AggregateFunctionSignature identifies an aggregate function instance.
type AggregateFunctionSignature struct {
	Name string
	// Params are constant parameters of the function itself, not
	// per-row arguments.
	Params     []tree.Datum
	ArgTypes   []*types.T
	ReturnType *types.T
}

// AggregateFunctionDesc binds an aggregate function to its input
// columns and output position.
type AggregateFunctionDesc struct {
	Sig AggregateFunctionSignature
	// OutputColumn is the logical index the result carries.
	OutputColumn opt.ColumnID
	// Args are the argument positions in the aggregation input schema.
	Args []int
	// ArgIndices are the logical indexes behind Args.
	ArgIndices []opt.ColumnID
}

// AggregatePartial computes per-stream aggregation states. Its output
// carries one serialized state field per aggregate plus, when group
// keys exist, the synthetic group-by key as the last field.
type AggregatePartial struct {
	basePlan

	Input    PhysicalPlan
	GroupBy  []opt.ColumnID
	AggFuncs []AggregateFunctionDesc
}

// Name implements PhysicalPlan.
func (*AggregatePartial) Name() string { return "AggregatePartial" }

// Children implements PhysicalPlan.
func (a *AggregatePartial) Children() []PhysicalPlan { return []PhysicalPlan{a.Input} }

// OutputSchema implements PhysicalPlan.
func (a *AggregatePartial) OutputSchema() (*types.DataSchema, error) {
	input, err := a.Input.OutputSchema()
	if err != nil {
		return nil, err
	}
	fields := make([]types.DataField, 0, len(a.AggFuncs)+1)
	for _, agg := range a.AggFuncs {
		// Intermediate aggregation states travel serialized.
		fields = append(fields, types.DataField{
			Name: agg.OutputColumn.ColumnName(),
			Typ:  types.String,
		})
	}
	if len(a.GroupBy) > 0 {
		method, err := groupKeyType(input, a.GroupBy)
		if err != nil {
			return nil, err
		}
		fields = append(fields, types.DataField{Name: groupByKeyName, Typ: method})
	}
	return types.NewDataSchema(fields), nil
}

// groupKeyType resolves the group-by columns in the aggregation input
// schema and picks the synthetic key's representation.
func groupKeyType(input *types.DataSchema, groupBy []opt.ColumnID) (*types.T, error) {
	groupTypes := make([]*types.T, len(groupBy))
	for i, col := range groupBy {
		field, err := input.FieldWithName(col.ColumnName())
		if err != nil {
			return nil, errors.AssertionFailedf(
				"group-by column %d missing from aggregation input %s", col, input)
		}
		groupTypes[i] = field.Typ
	}
	return types.ChooseHashMethod(groupTypes)
}

// AggregateFinal merges partial states into final aggregate values.
type AggregateFinal struct {
	basePlan

	Input    PhysicalPlan
	GroupBy  []opt.ColumnID
	AggFuncs []AggregateFunctionDesc
	// BeforeGroupBySchema is the schema feeding the partial stage; the
	// group columns' names and types are recovered from it.
	BeforeGroupBySchema *types.DataSchema
	Limit               *int64
}

// Name implements PhysicalPlan.
func (*AggregateFinal) Name() string { return "AggregateFinal" }

// Children implements PhysicalPlan.
func (a *AggregateFinal) Children() []PhysicalPlan { return []PhysicalPlan{a.Input} }

// OutputSchema implements PhysicalPlan.
func (a *AggregateFinal) OutputSchema() (*types.DataSchema, error) {
	fields := make([]types.DataField, 0, len(a.AggFuncs)+len(a.GroupBy))
	for _, agg := range a.AggFuncs {
		fields = append(fields, types.DataField{
			Name: agg.OutputColumn.ColumnName(),
			Typ:  agg.Sig.ReturnType,
		})
	}
	for _, col := range a.GroupBy {
		field, err := a.BeforeGroupBySchema.FieldWithName(col.ColumnName())
		if err != nil {
			return nil, errors.AssertionFailedf(
				"group-by column %d missing from pre-aggregation schema %s",
				col, a.BeforeGroupBySchema)
		}
		fields = append(fields, types.DataField{Name: field.Name, Typ: field.Typ})
	}
	return types.NewDataSchema(fields), nil
}

// SortDesc is one sort key of a Sort node.
type SortDesc struct {
	Column     opt.ColumnID
	Asc        bool
	NullsFirst bool
}

// Sort orders its input.
type Sort struct {
	basePlan

	Input   PhysicalPlan
	OrderBy []SortDesc
	Limit   *int64
}

// Name implements PhysicalPlan.
func (*Sort) Name() string { return "Sort" }

// Children implements PhysicalPlan.
func (s *Sort) Children() []PhysicalPlan { return []PhysicalPlan{s.Input} }

// OutputSchema implements PhysicalPlan.
func (s *Sort) OutputSchema() (*types.DataSchema, error) { return s.Input.OutputSchema() }

// Limit passes through at most Limit rows after skipping Offset rows.
type Limit struct {
	basePlan

	Input  PhysicalPlan
	Limit  *int64
	Offset int64
}

// Name implements PhysicalPlan.
func (*Limit) Name() string { return "Limit" }

// Children implements PhysicalPlan.
func (l *Limit) Children() []PhysicalPlan { return []PhysicalPlan{l.Input} }

// OutputSchema implements PhysicalPlan.
func (l *Limit) OutputSchema() (*types.DataSchema, error) { return l.Input.OutputSchema() }

// FragmentKind is the distribution strategy of an Exchange.
type FragmentKind int

const (
	// FragmentInit scatters rows round-robin.
	FragmentInit FragmentKind = iota
	// FragmentNormal shuffles rows by hash keys.
	FragmentNormal
	// FragmentExpansive replicates every row to all nodes.
	FragmentExpansive
	// FragmentMerge gathers all rows on the coordinator.
	FragmentMerge
)

func (k FragmentKind) String() string {
	switch k {
	case FragmentInit:
		return "Init"
	case FragmentNormal:
		return "Normal"
	case FragmentExpansive:
		return "Expansive"
	case FragmentMerge:
		return "Merge"
	default:
		return "Unknown"
	}
}

// Exchange redistributes its input across the cluster.
type Exchange struct {
	basePlan

	Input PhysicalPlan
	Kind  FragmentKind
	// Keys are the hash keys of a FragmentNormal exchange, rebound
	// against the input schema.
	Keys []tree.Expr
}

// Name implements PhysicalPlan.
func (*Exchange) Name() string { return "Exchange" }

// Children implements PhysicalPlan.
func (e *Exchange) Children() []PhysicalPlan { return []PhysicalPlan{e.Input} }

// OutputSchema implements PhysicalPlan.
func (e *Exchange) OutputSchema() (*types.DataSchema, error) { return e.Input.OutputSchema() }

// UnionAll concatenates two inputs pairwise by field name. The output
// schema is derived from the pair list against the left input.
type UnionAll struct {
	basePlan

	Left  PhysicalPlan
	Right PhysicalPlan
	Pairs []plans.UnionAllPair
}

// Name implements PhysicalPlan.
func (*UnionAll) Name() string { return "UnionAll" }

// Children implements PhysicalPlan.
func (u *UnionAll) Children() []PhysicalPlan { return []PhysicalPlan{u.Left, u.Right} }

// OutputSchema implements PhysicalPlan.
func (u *UnionAll) OutputSchema() (*types.DataSchema, error) {
	left, err := u.Left.OutputSchema()
	if err != nil {
		return nil, err
	}
	fields := make([]types.DataField, len(u.Pairs))
	for i, pair := range u.Pairs {
		field, err := left.FieldWithName(pair.Left)
		if err != nil {
			return nil, err
		}
		fields[i] = field
	}
	return types.NewDataSchema(fields), nil
}

// RuntimeFilterDesc is one runtime filter expression with its
// correlation id.
type RuntimeFilterDesc struct {
	ID   int
	Expr tree.Expr
}

// RuntimeFilterSource builds runtime filters from its right input and
// applies them while reading the left input. Rows flow through from
// the left side.
type RuntimeFilterSource struct {
	basePlan

	LeftSide  PhysicalPlan
	RightSide PhysicalPlan
	// LeftFilters are rebound against the left schema, RightFilters
	// against the right schema; entries pair up by ID.
	LeftFilters  []RuntimeFilterDesc
	RightFilters []RuntimeFilterDesc
}

// Name implements PhysicalPlan.
func (*RuntimeFilterSource) Name() string { return "RuntimeFilterSource" }

// Children implements PhysicalPlan.
func (r *RuntimeFilterSource) Children() []PhysicalPlan {
	return []PhysicalPlan{r.LeftSide, r.RightSide}
}

// OutputSchema implements PhysicalPlan.
func (r *RuntimeFilterSource) OutputSchema() (*types.DataSchema, error) {
	return r.LeftSide.OutputSchema()
}
