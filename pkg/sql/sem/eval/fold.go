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

package eval

import (
	"strconv"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/xiaozhiyan/databend/pkg/sql/sem/tree"
	"github.com/xiaozhiyan/databend/pkg/sql/types"
)

// FoldConstants simplifies expr by evaluating every fully-literal
// subtree with the given function context. The returned datum is
// non-nil iff the whole expression folded to a constant. Folding is
// sound (non-literal subtrees are untouched) and idempotent: folding
// an already-folded expression returns it unchanged.
//
// Evaluation failures on literal subtrees (e.g. division by zero in a
// constant predicate) surface to the caller as user-facing query
// errors.
func FoldConstants(
	fnCtx *FunctionContext, expr tree.Expr,
) (tree.Expr, tree.Datum, error) {
	switch t := expr.(type) {
	case *tree.Constant:
		return t, t.Value, nil

	case tree.Datum:
		return t, t, nil

	case *tree.FuncExpr:
		newArgs := make([]tree.Expr, len(t.Args))
		argDatums := make([]tree.Datum, len(t.Args))
		allConst := true
		changed := false
		for i, arg := range t.Args {
			folded, datum, err := FoldConstants(fnCtx, arg)
			if err != nil {
				return nil, nil, err
			}
			newArgs[i] = folded
			argDatums[i] = datum
			if datum == nil {
				allConst = false
			}
			if folded != arg {
				changed = true
			}
		}
		if allConst {
			b, ok := builtins[t.Name]
			if !ok {
				return nil, nil, errors.Newf("unknown function %q", t.Name)
			}
			datum, err := b.fn(fnCtx, argDatums)
			if err != nil {
				return nil, nil, err
			}
			return &tree.Constant{Value: datum, Typ: t.Typ}, datum, nil
		}
		if changed {
			return &tree.FuncExpr{Name: t.Name, Args: newArgs, Typ: t.Typ}, nil, nil
		}
		return t, nil, nil

	case *tree.CastExpr:
		folded, datum, err := FoldConstants(fnCtx, t.Expr)
		if err != nil {
			return nil, nil, err
		}
		if datum != nil {
			cast, err := evalCast(fnCtx, datum, t.Typ)
			if err != nil {
				return nil, nil, err
			}
			return &tree.Constant{Value: cast, Typ: t.Typ}, cast, nil
		}
		if folded != t.Expr {
			return &tree.CastExpr{Expr: folded, Typ: t.Typ}, nil, nil
		}
		return t, nil, nil

	default:
		// Column references of any flavor are left as-is.
		return expr, nil, nil
	}
}

// evalCast converts a datum to the target type.
func evalCast(fnCtx *FunctionContext, d tree.Datum, to *types.T) (tree.Datum, error) {
	if d == tree.DNull {
		if to.Nullable() {
			return tree.DNull, nil
		}
		// A NULL predicate cast to a non-null boolean filters the row.
		if to.Family() == types.BoolFamily {
			return tree.DBoolFalse, nil
		}
		return nil, errors.Newf("cannot cast NULL to non-nullable %s", to)
	}
	switch to.Family() {
	case types.BoolFamily:
		switch t := d.(type) {
		case *tree.DBool:
			return t, nil
		case *tree.DInt:
			return tree.MakeDBool(*t != 0), nil
		case *tree.DFloat:
			return tree.MakeDBool(*t != 0), nil
		}
	case types.Int64Family:
		switch t := d.(type) {
		case *tree.DInt:
			return t, nil
		case *tree.DBool:
			if *t {
				return tree.NewDInt(1), nil
			}
			return tree.NewDInt(0), nil
		case *tree.DFloat:
			return tree.NewDInt(tree.DInt(*t)), nil
		case *tree.DString:
			i, err := strconv.ParseInt(string(*t), 10, 64)
			if err != nil {
				return nil, errors.Newf("cannot cast %s to %s", d, to)
			}
			return tree.NewDInt(tree.DInt(i)), nil
		}
	case types.Float64Family:
		switch t := d.(type) {
		case *tree.DFloat:
			return t, nil
		case *tree.DInt:
			return tree.NewDFloat(tree.DFloat(*t)), nil
		case *tree.DDecimal:
			f, err := t.Float64()
			if err != nil {
				return nil, err
			}
			return tree.NewDFloat(tree.DFloat(f)), nil
		case *tree.DString:
			f, err := strconv.ParseFloat(string(*t), 64)
			if err != nil {
				return nil, errors.Newf("cannot cast %s to %s", d, to)
			}
			return tree.NewDFloat(tree.DFloat(f)), nil
		}
	case types.StringFamily:
		switch t := d.(type) {
		case *tree.DString:
			return t, nil
		case *tree.DTimestamp:
			return tree.NewDString(tree.DString(t.In(fnCtx.Timezone).Format(time.RFC3339Nano))), nil
		default:
			return tree.NewDString(tree.DString(d.String())), nil
		}
	case types.TimestampFamily:
		switch t := d.(type) {
		case *tree.DTimestamp:
			return t, nil
		case *tree.DString:
			ts, err := time.ParseInLocation(time.RFC3339Nano, string(*t), fnCtx.Timezone)
			if err != nil {
				return nil, errors.Newf("cannot cast %s to %s", d, to)
			}
			return &tree.DTimestamp{Time: ts}, nil
		}
	}
	return nil, errors.Newf("cannot cast %s to %s", d, to)
}

// CastExprToNonNullBoolean coerces a predicate to produce a
// non-nullable boolean, the form every filtering site consumes.
// Boolean inputs are wrapped only if nullable; numeric and string
// inputs get an explicit cast; anything else is a user error.
func CastExprToNonNullBoolean(expr tree.Expr) (tree.Expr, error) {
	typ := expr.ResolvedType()
	switch typ.Family() {
	case types.BoolFamily:
		if !typ.Nullable() {
			return expr, nil
		}
	case types.Int64Family, types.UInt8Family, types.UInt64Family,
		types.Float64Family, types.StringFamily, types.NullFamily:
	default:
		return nil, errors.Newf("cannot cast type %s to a boolean predicate", typ)
	}
	return &tree.CastExpr{Expr: expr, Typ: types.Bool}, nil
}
