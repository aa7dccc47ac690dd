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
	"strconv"

	"github.com/cockroachdb/errors"

	"github.com/xiaozhiyan/databend/pkg/sql/plans"
	"github.com/xiaozhiyan/databend/pkg/sql/sem/eval"
	"github.com/xiaozhiyan/databend/pkg/sql/sem/tree"
	"github.com/xiaozhiyan/databend/pkg/sql/types"
)

// ivarRebinder rewrites logical column references into indexed
// variables positioned in a concrete row-block schema. A reference to
// a column the schema does not carry is an invariant violation: the
// optimizer guarantees every referenced column is in scope.
type ivarRebinder struct {
	schema *types.DataSchema
	err    error
}

// VisitPre implements tree.Visitor.
func (r *ivarRebinder) VisitPre(expr tree.Expr) (bool, tree.Expr) {
	if r.err != nil {
		return false, expr
	}
	ref, ok := expr.(*tree.ColumnRef)
	if !ok {
		return true, expr
	}
	idx, err := r.schema.IndexOf(strconv.Itoa(ref.Col))
	if err != nil {
		r.err = errors.AssertionFailedf(
			"column %s not found in schema %s", ref, r.schema)
		return false, expr
	}
	return false, &tree.IndexedVar{Idx: idx, DisplayName: ref.DisplayName, Typ: ref.Typ}
}

// VisitPost implements tree.Visitor.
func (r *ivarRebinder) VisitPost(expr tree.Expr) tree.Expr { return expr }

// rebindExpr repositions every logical column reference in expr
// against schema.
func rebindExpr(schema *types.DataSchema, expr tree.Expr) (tree.Expr, error) {
	r := &ivarRebinder{schema: schema}
	rebound := tree.WalkExpr(r, expr)
	if r.err != nil {
		return nil, r.err
	}
	return rebound, nil
}

// lowerRebindFold lowers a scalar, rebinds it against schema and folds
// its literal subtrees. This is the path for projection items, join
// keys and hash keys.
func lowerRebindFold(
	fnCtx *eval.FunctionContext, schema *types.DataSchema, scalar plans.ScalarExpr,
) (tree.Expr, error) {
	expr, err := scalar.AsExpr()
	if err != nil {
		return nil, err
	}
	rebound, err := rebindExpr(schema, expr)
	if err != nil {
		return nil, err
	}
	folded, _, err := eval.FoldConstants(fnCtx, rebound)
	return folded, err
}

// lowerPredicate is lowerRebindFold plus the boolean coercion every
// filtering site requires.
func lowerPredicate(
	fnCtx *eval.FunctionContext, schema *types.DataSchema, scalar plans.ScalarExpr,
) (tree.Expr, error) {
	expr, err := scalar.AsExpr()
	if err != nil {
		return nil, err
	}
	rebound, err := rebindExpr(schema, expr)
	if err != nil {
		return nil, err
	}
	pred, err := eval.CastExprToNonNullBoolean(rebound)
	if err != nil {
		return nil, err
	}
	folded, _, err := eval.FoldConstants(fnCtx, pred)
	return folded, err
}
