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

// Package plans holds the optimizer's relational expression tree: the
// operator payloads, the scalar expression representation, and the
// cardinality deriver. The physical plan builder consumes these trees
// and lowers them to executable plans.
package plans

import (
	"github.com/cockroachdb/errors"

	"github.com/xiaozhiyan/databend/pkg/sql/opt"
)

// RelNode is an operator payload attached to a RelExpr.
type RelNode interface {
	Op() opt.Operator
}

// RelExpr is a node in the optimized relational expression tree.
type RelExpr struct {
	node     RelNode
	children []*RelExpr
}

// NewRelExpr wraps an operator payload and its children.
func NewRelExpr(node RelNode, children ...*RelExpr) *RelExpr {
	return &RelExpr{node: node, children: children}
}

// Node returns the operator payload.
func (e *RelExpr) Node() RelNode { return e.node }

// Op returns the node's operator.
func (e *RelExpr) Op() opt.Operator { return e.node.Op() }

// ChildCount returns the number of children.
func (e *RelExpr) ChildCount() int { return len(e.children) }

// Child returns the i-th child.
func (e *RelExpr) Child(i int) (*RelExpr, error) {
	if i < 0 || i >= len(e.children) {
		return nil, errors.AssertionFailedf(
			"operator %s has %d children, child %d requested", e.Op(), len(e.children), i)
	}
	return e.children[i], nil
}

// SortItem is a single sort key.
type SortItem struct {
	Index      opt.ColumnID
	Asc        bool
	NullsFirst bool
}

// Prewhere carries the prewhere split decided by the optimizer: the
// predicates to evaluate against PrewhereColumns before reading the
// remaining output columns.
type Prewhere struct {
	// OutputColumns is the scan's full output set.
	OutputColumns opt.ColSet
	// PrewhereColumns are the columns the predicates read.
	PrewhereColumns opt.ColSet
	Predicates      []ScalarExpr
}

// Scan reads a base table.
type Scan struct {
	TableIndex opt.TableID
	Columns    opt.ColSet
	// PushDownPredicates are filters the storage layer can apply.
	PushDownPredicates []ScalarExpr
	Prewhere           *Prewhere
	OrderBy            []SortItem
	Limit              *int64
}

// Op implements RelNode.
func (*Scan) Op() opt.Operator { return opt.ScanOp }

// DummyTableScan produces the single constant row used by table-free
// SELECTs.
type DummyTableScan struct{}

// Op implements RelNode.
func (*DummyTableScan) Op() opt.Operator { return opt.DummyScanOp }

// JoinType enumerates join semantics.
type JoinType int

const (
	InnerJoin JoinType = iota
	LeftOuterJoin
	RightOuterJoin
	FullOuterJoin
	LeftSemiJoin
	RightSemiJoin
	LeftAntiJoin
	RightAntiJoin
	CrossJoin
	MarkJoin
)

func (t JoinType) String() string {
	switch t {
	case InnerJoin:
		return "INNER"
	case LeftOuterJoin:
		return "LEFT OUTER"
	case RightOuterJoin:
		return "RIGHT OUTER"
	case FullOuterJoin:
		return "FULL OUTER"
	case LeftSemiJoin:
		return "LEFT SEMI"
	case RightSemiJoin:
		return "RIGHT SEMI"
	case LeftAntiJoin:
		return "LEFT ANTI"
	case RightAntiJoin:
		return "RIGHT ANTI"
	case CrossJoin:
		return "CROSS"
	case MarkJoin:
		return "MARK"
	default:
		return "UNKNOWN"
	}
}

// Join joins its two children. Child 0 is the probe side, child 1 the
// build side. LeftConditions bind against the probe schema,
// RightConditions against the build schema, and NonEquiConditions
// against the merged schema.
type Join struct {
	JoinType               JoinType
	LeftConditions         []ScalarExpr
	RightConditions        []ScalarExpr
	NonEquiConditions      []ScalarExpr
	MarkerIndex            *opt.ColumnID
	FromCorrelatedSubquery bool
	ContainRuntimeFilter   bool
}

// Op implements RelNode.
func (*Join) Op() opt.Operator { return opt.JoinOp }

// ScalarItem is a projection item with its output column.
type ScalarItem struct {
	Scalar ScalarExpr
	Index  opt.ColumnID
}

// EvalScalar appends projection items to its input.
type EvalScalar struct {
	Items []ScalarItem
}

// Op implements RelNode.
func (*EvalScalar) Op() opt.Operator { return opt.EvalScalarOp }

// Filter keeps rows satisfying every predicate.
type Filter struct {
	Predicates []ScalarExpr
}

// Op implements RelNode.
func (*Filter) Op() opt.Operator { return opt.FilterOp }

// AggregateMode distinguishes the two-phase aggregation stages.
type AggregateMode int

const (
	AggregateInitial AggregateMode = iota
	AggregatePartial
	AggregateFinal
)

func (m AggregateMode) String() string {
	switch m {
	case AggregateInitial:
		return "Initial"
	case AggregatePartial:
		return "Partial"
	case AggregateFinal:
		return "Final"
	default:
		return "Unknown"
	}
}

// Aggregate groups and aggregates its input.
type Aggregate struct {
	Mode               AggregateMode
	GroupItems         []ScalarItem
	AggregateFunctions []ScalarItem
	Limit              *int64
}

// Op implements RelNode.
func (*Aggregate) Op() opt.Operator { return opt.AggregateOp }

// Sort orders its input.
type Sort struct {
	Items []SortItem
	Limit *int64
}

// Op implements RelNode.
func (*Sort) Op() opt.Operator { return opt.SortOp }

// Limit restricts row count with an offset.
type Limit struct {
	Limit  *int64
	Offset int64
}

// Op implements RelNode.
func (*Limit) Op() opt.Operator { return opt.LimitOp }

// ExchangeKind enumerates data distribution strategies.
type ExchangeKind int

const (
	ExchangeRandom ExchangeKind = iota
	ExchangeHash
	ExchangeBroadcast
	ExchangeMerge
)

func (k ExchangeKind) String() string {
	switch k {
	case ExchangeRandom:
		return "Random"
	case ExchangeHash:
		return "Hash"
	case ExchangeBroadcast:
		return "Broadcast"
	case ExchangeMerge:
		return "Merge"
	default:
		return "Unknown"
	}
}

// Exchange redistributes its input across the cluster.
type Exchange struct {
	Kind     ExchangeKind
	HashKeys []ScalarExpr
}

// Op implements RelNode.
func (*Exchange) Op() opt.Operator { return opt.ExchangeOp }

// UnionAllPair maps a left output field name to the right field name
// it unions with.
type UnionAllPair struct {
	Left, Right string
}

// UnionAll concatenates its two children pairwise by name.
type UnionAll struct {
	Pairs []UnionAllPair
}

// Op implements RelNode.
func (*UnionAll) Op() opt.Operator { return opt.UnionAllOp }

// RuntimeFilter is one filter produced by a runtime filter source.
type RuntimeFilter struct {
	ID     int
	Scalar ScalarExpr
}

// RuntimeFilterSource builds runtime filters from the right child and
// applies them while scanning the left child.
type RuntimeFilterSource struct {
	LeftFilters  []RuntimeFilter
	RightFilters []RuntimeFilter
}

// Op implements RelNode.
func (*RuntimeFilterSource) Op() opt.Operator { return opt.RuntimeFilterSourceOp }

// Pattern only occurs in optimizer rule patterns and never reaches
// the physical plan builder.
type Pattern struct{}

// Op implements RelNode.
func (*Pattern) Op() opt.Operator { return opt.PatternOp }
