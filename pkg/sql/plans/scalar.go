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
	"github.com/cockroachdb/errors"

	"github.com/xiaozhiyan/databend/pkg/sql/opt"
	"github.com/xiaozhiyan/databend/pkg/sql/sem/eval"
	"github.com/xiaozhiyan/databend/pkg/sql/sem/tree"
	"github.com/xiaozhiyan/databend/pkg/sql/types"
)

// ColumnBinding ties a logical column index to its resolved name and
// type.
type ColumnBinding struct {
	Index opt.ColumnID
	Name  string
	Typ   *types.T
}

// ScalarExpr is a logical scalar expression: column references are by
// logical column index, not physical position. Lowering to a physical
// expression happens through AsExpr (index-carrying leaves, rebound
// later against a concrete schema) or AsNamedExpr (storage-facing,
// name-bound leaves).
type ScalarExpr interface {
	// DataType returns the expression's static type.
	DataType() *types.T

	// AsExpr lowers to a physical expression whose leaves are logical
	// column references.
	AsExpr() (tree.Expr, error)

	// AsNamedExpr lowers to a storage expression whose leaves are
	// name-bound column references.
	AsNamedExpr() (tree.Expr, error)
}

func byIndex(b ColumnBinding) tree.Expr {
	return &tree.ColumnRef{Col: int(b.Index), DisplayName: b.Name, Typ: b.Typ}
}

func byName(b ColumnBinding) tree.Expr {
	return &tree.ColumnName{Name: b.Name, Typ: b.Typ}
}

// BoundColumnRef references a resolved column.
type BoundColumnRef struct {
	Column ColumnBinding
}

// DataType implements ScalarExpr.
func (e *BoundColumnRef) DataType() *types.T { return e.Column.Typ }

// AsExpr implements ScalarExpr.
func (e *BoundColumnRef) AsExpr() (tree.Expr, error) { return byIndex(e.Column), nil }

// AsNamedExpr implements ScalarExpr.
func (e *BoundColumnRef) AsNamedExpr() (tree.Expr, error) { return byName(e.Column), nil }

// ConstantExpr is a literal.
type ConstantExpr struct {
	Value tree.Datum
	Typ   *types.T
}

// DataType implements ScalarExpr.
func (e *ConstantExpr) DataType() *types.T { return e.Typ }

// AsExpr implements ScalarExpr.
func (e *ConstantExpr) AsExpr() (tree.Expr, error) {
	return &tree.Constant{Value: e.Value, Typ: e.Typ}, nil
}

// AsNamedExpr implements ScalarExpr.
func (e *ConstantExpr) AsNamedExpr() (tree.Expr, error) { return e.AsExpr() }

// AndExpr is a conjunction.
type AndExpr struct {
	Left, Right ScalarExpr
}

// DataType implements ScalarExpr.
func (e *AndExpr) DataType() *types.T {
	if e.Left.DataType().Nullable() || e.Right.DataType().Nullable() {
		return types.Bool.AsNullable()
	}
	return types.Bool
}

// AsExpr implements ScalarExpr.
func (e *AndExpr) AsExpr() (tree.Expr, error) {
	return lowerFunc("and", []ScalarExpr{e.Left, e.Right}, scalarAsExpr)
}

// AsNamedExpr implements ScalarExpr.
func (e *AndExpr) AsNamedExpr() (tree.Expr, error) {
	return lowerFunc("and", []ScalarExpr{e.Left, e.Right}, scalarAsNamedExpr)
}

// OrExpr is a disjunction.
type OrExpr struct {
	Left, Right ScalarExpr
}

// DataType implements ScalarExpr.
func (e *OrExpr) DataType() *types.T {
	if e.Left.DataType().Nullable() || e.Right.DataType().Nullable() {
		return types.Bool.AsNullable()
	}
	return types.Bool
}

// AsExpr implements ScalarExpr.
func (e *OrExpr) AsExpr() (tree.Expr, error) {
	return lowerFunc("or", []ScalarExpr{e.Left, e.Right}, scalarAsExpr)
}

// AsNamedExpr implements ScalarExpr.
func (e *OrExpr) AsNamedExpr() (tree.Expr, error) {
	return lowerFunc("or", []ScalarExpr{e.Left, e.Right}, scalarAsNamedExpr)
}

// CompareOp enumerates comparison operators.
type CompareOp int

const (
	EqOp CompareOp = iota
	NotEqOp
	LtOp
	LteOp
	GtOp
	GteOp
)

func (op CompareOp) funcName() string {
	switch op {
	case EqOp:
		return "eq"
	case NotEqOp:
		return "noteq"
	case LtOp:
		return "lt"
	case LteOp:
		return "lte"
	case GtOp:
		return "gt"
	default:
		return "gte"
	}
}

// ComparisonExpr compares two expressions.
type ComparisonExpr struct {
	Op          CompareOp
	Left, Right ScalarExpr
}

// DataType implements ScalarExpr.
func (e *ComparisonExpr) DataType() *types.T {
	if e.Left.DataType().Nullable() || e.Right.DataType().Nullable() {
		return types.Bool.AsNullable()
	}
	return types.Bool
}

// AsExpr implements ScalarExpr.
func (e *ComparisonExpr) AsExpr() (tree.Expr, error) {
	return lowerFunc(e.Op.funcName(), []ScalarExpr{e.Left, e.Right}, scalarAsExpr)
}

// AsNamedExpr implements ScalarExpr.
func (e *ComparisonExpr) AsNamedExpr() (tree.Expr, error) {
	return lowerFunc(e.Op.funcName(), []ScalarExpr{e.Left, e.Right}, scalarAsNamedExpr)
}

// FunctionCall is a call of a scalar builtin.
type FunctionCall struct {
	FuncName string
	Args     []ScalarExpr
	// RetType is the return type resolved during semantic analysis.
	RetType *types.T
}

// DataType implements ScalarExpr.
func (e *FunctionCall) DataType() *types.T { return e.RetType }

// AsExpr implements ScalarExpr.
func (e *FunctionCall) AsExpr() (tree.Expr, error) {
	return lowerFunc(e.FuncName, e.Args, scalarAsExpr)
}

// AsNamedExpr implements ScalarExpr.
func (e *FunctionCall) AsNamedExpr() (tree.Expr, error) {
	return lowerFunc(e.FuncName, e.Args, scalarAsNamedExpr)
}

// CastExpr converts its argument to the target type.
type CastExpr struct {
	Argument   ScalarExpr
	TargetType *types.T
}

// DataType implements ScalarExpr.
func (e *CastExpr) DataType() *types.T { return e.TargetType }

// AsExpr implements ScalarExpr.
func (e *CastExpr) AsExpr() (tree.Expr, error) {
	inner, err := e.Argument.AsExpr()
	if err != nil {
		return nil, err
	}
	return &tree.CastExpr{Expr: inner, Typ: e.TargetType}, nil
}

// AsNamedExpr implements ScalarExpr.
func (e *CastExpr) AsNamedExpr() (tree.Expr, error) {
	inner, err := e.Argument.AsNamedExpr()
	if err != nil {
		return nil, err
	}
	return &tree.CastExpr{Expr: inner, Typ: e.TargetType}, nil
}

// AggregateFunction is an aggregate call. It never lowers to a scalar
// expression; the aggregation handlers consume it structurally.
type AggregateFunction struct {
	FuncName   string
	Params     []tree.Datum
	Args       []ScalarExpr
	ReturnType *types.T
	Distinct   bool
}

// DataType implements ScalarExpr.
func (e *AggregateFunction) DataType() *types.T { return e.ReturnType }

// AsExpr implements ScalarExpr.
func (e *AggregateFunction) AsExpr() (tree.Expr, error) {
	return nil, errors.AssertionFailedf(
		"aggregate function %q cannot be lowered to a scalar expression", e.FuncName)
}

// AsNamedExpr implements ScalarExpr.
func (e *AggregateFunction) AsNamedExpr() (tree.Expr, error) { return e.AsExpr() }

// Unnest marks a set-returning projection item: its argument is
// evaluated as a normal scalar and the enclosing EvalScalar records
// the output position for row explosion.
type Unnest struct {
	Argument   ScalarExpr
	ReturnType *types.T
}

// DataType implements ScalarExpr.
func (e *Unnest) DataType() *types.T { return e.ReturnType }

// AsExpr implements ScalarExpr.
func (e *Unnest) AsExpr() (tree.Expr, error) {
	return nil, errors.AssertionFailedf("unnest must be unwrapped before lowering")
}

// AsNamedExpr implements ScalarExpr.
func (e *Unnest) AsNamedExpr() (tree.Expr, error) { return e.AsExpr() }

func scalarAsExpr(s ScalarExpr) (tree.Expr, error)      { return s.AsExpr() }
func scalarAsNamedExpr(s ScalarExpr) (tree.Expr, error) { return s.AsNamedExpr() }

func lowerFunc(
	name string, args []ScalarExpr, lower func(ScalarExpr) (tree.Expr, error),
) (tree.Expr, error) {
	loweredArgs := make([]tree.Expr, len(args))
	for i, arg := range args {
		lowered, err := lower(arg)
		if err != nil {
			return nil, err
		}
		loweredArgs[i] = lowered
	}
	return eval.CheckFunction(name, loweredArgs)
}
