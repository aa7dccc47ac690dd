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

package eval_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xiaozhiyan/databend/pkg/sql/sem/eval"
	"github.com/xiaozhiyan/databend/pkg/sql/sem/tree"
	"github.com/xiaozhiyan/databend/pkg/sql/types"
)

func intConst(v int64) tree.Expr {
	return &tree.Constant{Value: tree.NewDInt(tree.DInt(v)), Typ: types.Int64}
}

func mustCall(t *testing.T, name string, args ...tree.Expr) *tree.FuncExpr {
	t.Helper()
	call, err := eval.CheckFunction(name, args)
	require.NoError(t, err)
	return call
}

func defaultCtx() *eval.FunctionContext {
	fnCtx := eval.DefaultFunctionContext()
	return &fnCtx
}

func TestFoldConstantsLiteral(t *testing.T) {
	expr := mustCall(t, "plus", intConst(1), intConst(2))
	folded, datum, err := eval.FoldConstants(defaultCtx(), expr)
	require.NoError(t, err)
	require.NotNil(t, datum)
	require.Equal(t, "3", datum.String())
	c, ok := folded.(*tree.Constant)
	require.True(t, ok)
	require.Same(t, types.Int64, c.Typ)
}

func TestFoldConstantsPartial(t *testing.T) {
	ivar := &tree.IndexedVar{Idx: 0, DisplayName: "x", Typ: types.Int64}
	inner := mustCall(t, "plus", intConst(1), intConst(2))
	outer := mustCall(t, "plus", ivar, inner)

	folded, datum, err := eval.FoldConstants(defaultCtx(), outer)
	require.NoError(t, err)
	// A non-literal operand keeps the expression unfolded.
	require.Nil(t, datum)
	call, ok := folded.(*tree.FuncExpr)
	require.True(t, ok)
	require.Same(t, tree.Expr(ivar), call.Args[0])
	_, ok = call.Args[1].(*tree.Constant)
	require.True(t, ok)
}

func TestFoldConstantsIdempotent(t *testing.T) {
	ivar := &tree.IndexedVar{Idx: 0, DisplayName: "x", Typ: types.Int64}
	expr := mustCall(t, "gt", ivar, intConst(5))

	once, datum, err := eval.FoldConstants(defaultCtx(), expr)
	require.NoError(t, err)
	require.Nil(t, datum)
	// Nothing to fold, so the input is returned as-is.
	require.Same(t, tree.Expr(expr), once)

	twice, _, err := eval.FoldConstants(defaultCtx(), once)
	require.NoError(t, err)
	require.Same(t, once, twice)
}

func TestFoldConstantsDivisionByZero(t *testing.T) {
	expr := mustCall(t, "divide", intConst(1), intConst(0))
	_, _, err := eval.FoldConstants(defaultCtx(), expr)
	require.Error(t, err)
	require.Contains(t, err.Error(), "division by zero")
}

func TestFoldConstantsRespectsNow(t *testing.T) {
	fnCtx := eval.DefaultFunctionContext()
	fnCtx.Now = time.Date(2023, 5, 1, 12, 0, 0, 0, time.UTC)
	expr := mustCall(t, "now")
	_, datum, err := eval.FoldConstants(&fnCtx, expr)
	require.NoError(t, err)
	ts, ok := datum.(*tree.DTimestamp)
	require.True(t, ok)
	require.True(t, ts.Equal(fnCtx.Now))
}

func TestFoldConstantsNullCastToBool(t *testing.T) {
	cast := &tree.CastExpr{
		Expr: &tree.Constant{Value: tree.DNull, Typ: types.Null},
		Typ:  types.Bool,
	}
	_, datum, err := eval.FoldConstants(defaultCtx(), cast)
	require.NoError(t, err)
	// NULL predicates filter the row rather than erroring.
	require.Same(t, tree.Datum(tree.DBoolFalse), datum)
}

func TestCastExprToNonNullBoolean(t *testing.T) {
	ivarBool := &tree.IndexedVar{Idx: 0, Typ: types.Bool}
	got, err := eval.CastExprToNonNullBoolean(ivarBool)
	require.NoError(t, err)
	require.Same(t, tree.Expr(ivarBool), got)

	ivarNullableBool := &tree.IndexedVar{Idx: 0, Typ: types.Bool.AsNullable()}
	got, err = eval.CastExprToNonNullBoolean(ivarNullableBool)
	require.NoError(t, err)
	cast, ok := got.(*tree.CastExpr)
	require.True(t, ok)
	require.Same(t, types.Bool, cast.Typ)

	ivarInt := &tree.IndexedVar{Idx: 0, Typ: types.Int64}
	got, err = eval.CastExprToNonNullBoolean(ivarInt)
	require.NoError(t, err)
	_, ok = got.(*tree.CastExpr)
	require.True(t, ok)

	ivarArray := &tree.IndexedVar{Idx: 0, Typ: types.MakeArray(types.Int64)}
	_, err = eval.CastExprToNonNullBoolean(ivarArray)
	require.Error(t, err)
	require.Contains(t, err.Error(), "cannot cast type")
}

func TestCheckFunction(t *testing.T) {
	call := mustCall(t, "eq", intConst(1), intConst(2))
	require.Same(t, types.Bool, call.Typ)

	nullable := &tree.IndexedVar{Idx: 0, Typ: types.Int64.AsNullable()}
	call = mustCall(t, "eq", nullable, intConst(2))
	require.True(t, call.Typ.Nullable())

	_, err := eval.CheckFunction("eq", []tree.Expr{intConst(1)})
	require.Error(t, err)

	_, err = eval.CheckFunction("no_such_function", []tree.Expr{intConst(1)})
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown function")
}
