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
	"strings"

	"github.com/cockroachdb/apd/v3"
	"github.com/cockroachdb/errors"

	"github.com/xiaozhiyan/databend/pkg/sql/sem/tree"
	"github.com/xiaozhiyan/databend/pkg/sql/types"
)

// builtin is a scalar function known to the planner: a result-type
// rule plus a constant evaluator.
type builtin struct {
	// arity < 0 means variadic with at least -arity args.
	arity   int
	retType func(args []*types.T) (*types.T, error)
	fn      func(fnCtx *FunctionContext, args []tree.Datum) (tree.Datum, error)
}

var decimalCtx = apd.BaseContext.WithPrecision(38)

func anyNullable(args []*types.T) bool {
	for _, t := range args {
		if t.Nullable() {
			return true
		}
	}
	return false
}

func boolResult(args []*types.T) (*types.T, error) {
	if anyNullable(args) {
		return types.Bool.AsNullable(), nil
	}
	return types.Bool, nil
}

// numericResult implements the promotion ladder Int64 < Decimal <
// Float64 for binary arithmetic.
func numericResult(args []*types.T) (*types.T, error) {
	result := types.Int64
	for _, t := range args {
		switch t.Family() {
		case types.Int64Family, types.UInt64Family, types.UInt8Family, types.NullFamily:
		case types.DecimalFamily:
			if result.Family() != types.Float64Family {
				result = t.AsNonNullable()
			}
		case types.Float64Family:
			result = types.Float64
		default:
			return nil, errors.Newf("cannot apply arithmetic to type %s", t)
		}
	}
	if anyNullable(args) {
		return result.AsNullable(), nil
	}
	return result, nil
}

func sameFamily(args []*types.T) error {
	for _, t := range args[1:] {
		if t.Family() != args[0].Family() &&
			t.Family() != types.NullFamily && args[0].Family() != types.NullFamily {
			return errors.Newf("mismatched argument types %s and %s", args[0], t)
		}
	}
	return nil
}

var builtins = map[string]*builtin{
	"and": {
		arity:   -2,
		retType: boolResult,
		fn: func(_ *FunctionContext, args []tree.Datum) (tree.Datum, error) {
			sawNull := false
			for _, d := range args {
				if d == tree.DNull {
					sawNull = true
					continue
				}
				b, ok := d.(*tree.DBool)
				if !ok {
					return nil, errors.Newf("AND requires boolean arguments, got %s", d)
				}
				if !bool(*b) {
					return tree.DBoolFalse, nil
				}
			}
			if sawNull {
				return tree.DNull, nil
			}
			return tree.DBoolTrue, nil
		},
	},
	"or": {
		arity:   -2,
		retType: boolResult,
		fn: func(_ *FunctionContext, args []tree.Datum) (tree.Datum, error) {
			sawNull := false
			for _, d := range args {
				if d == tree.DNull {
					sawNull = true
					continue
				}
				b, ok := d.(*tree.DBool)
				if !ok {
					return nil, errors.Newf("OR requires boolean arguments, got %s", d)
				}
				if bool(*b) {
					return tree.DBoolTrue, nil
				}
			}
			if sawNull {
				return tree.DNull, nil
			}
			return tree.DBoolFalse, nil
		},
	},
	"not": {
		arity:   1,
		retType: boolResult,
		fn: func(_ *FunctionContext, args []tree.Datum) (tree.Datum, error) {
			if args[0] == tree.DNull {
				return tree.DNull, nil
			}
			b, ok := args[0].(*tree.DBool)
			if !ok {
				return nil, errors.Newf("NOT requires a boolean argument, got %s", args[0])
			}
			return tree.MakeDBool(!*b), nil
		},
	},
	"eq":    cmpBuiltin(func(c int) bool { return c == 0 }),
	"noteq": cmpBuiltin(func(c int) bool { return c != 0 }),
	"lt":    cmpBuiltin(func(c int) bool { return c < 0 }),
	"lte":   cmpBuiltin(func(c int) bool { return c <= 0 }),
	"gt":    cmpBuiltin(func(c int) bool { return c > 0 }),
	"gte":   cmpBuiltin(func(c int) bool { return c >= 0 }),
	"plus":  arithBuiltin(arithAdd),
	"minus": arithBuiltin(arithSub),
	"multiply": arithBuiltin(arithMul),
	"divide": {
		arity: 2,
		retType: func(args []*types.T) (*types.T, error) {
			if _, err := numericResult(args); err != nil {
				return nil, err
			}
			// Division always produces a float, even over integers.
			if anyNullable(args) {
				return types.Float64.AsNullable(), nil
			}
			return types.Float64, nil
		},
		fn: func(_ *FunctionContext, args []tree.Datum) (tree.Datum, error) {
			if args[0] == tree.DNull || args[1] == tree.DNull {
				return tree.DNull, nil
			}
			l, err := asFloat(args[0])
			if err != nil {
				return nil, err
			}
			r, err := asFloat(args[1])
			if err != nil {
				return nil, err
			}
			if r == 0 {
				return nil, errors.New("division by zero")
			}
			return tree.NewDFloat(tree.DFloat(l / r)), nil
		},
	},
	"concat": {
		arity: -2,
		retType: func(args []*types.T) (*types.T, error) {
			for _, t := range args {
				if t.Family() != types.StringFamily && t.Family() != types.NullFamily {
					return nil, errors.Newf("concat requires string arguments, got %s", t)
				}
			}
			if anyNullable(args) {
				return types.String.AsNullable(), nil
			}
			return types.String, nil
		},
		fn: func(_ *FunctionContext, args []tree.Datum) (tree.Datum, error) {
			var sb strings.Builder
			for _, d := range args {
				if d == tree.DNull {
					return tree.DNull, nil
				}
				s, ok := d.(*tree.DString)
				if !ok {
					return nil, errors.Newf("concat requires string arguments, got %s", d)
				}
				sb.WriteString(string(*s))
			}
			return tree.NewDString(tree.DString(sb.String())), nil
		},
	},
	"upper": strBuiltin(strings.ToUpper),
	"lower": strBuiltin(strings.ToLower),
	"length": {
		arity: 1,
		retType: func(args []*types.T) (*types.T, error) {
			if args[0].Family() != types.StringFamily && args[0].Family() != types.NullFamily {
				return nil, errors.Newf("length requires a string argument, got %s", args[0])
			}
			if anyNullable(args) {
				return types.Int64.AsNullable(), nil
			}
			return types.Int64, nil
		},
		fn: func(_ *FunctionContext, args []tree.Datum) (tree.Datum, error) {
			if args[0] == tree.DNull {
				return tree.DNull, nil
			}
			s, ok := args[0].(*tree.DString)
			if !ok {
				return nil, errors.Newf("length requires a string argument, got %s", args[0])
			}
			return tree.NewDInt(tree.DInt(len(*s))), nil
		},
	},
	"now": {
		arity: 0,
		retType: func([]*types.T) (*types.T, error) {
			return types.Timestamp, nil
		},
		fn: func(fnCtx *FunctionContext, _ []tree.Datum) (tree.Datum, error) {
			return &tree.DTimestamp{Time: fnCtx.Now.In(fnCtx.Timezone)}, nil
		},
	},
}

func cmpBuiltin(pred func(int) bool) *builtin {
	return &builtin{
		arity: 2,
		retType: func(args []*types.T) (*types.T, error) {
			if err := sameFamily(args); err != nil {
				return nil, err
			}
			return boolResult(args)
		},
		fn: func(_ *FunctionContext, args []tree.Datum) (tree.Datum, error) {
			if args[0] == tree.DNull || args[1] == tree.DNull {
				return tree.DNull, nil
			}
			c, err := tree.CompareDatums(args[0], args[1])
			if err != nil {
				return nil, err
			}
			return tree.MakeDBool(tree.DBool(pred(c))), nil
		},
	}
}

type arithOp struct {
	onInt     func(a, b int64) int64
	onFloat   func(a, b float64) float64
	onDecimal func(res, a, b *apd.Decimal) error
}

var arithAdd = arithOp{
	onInt:   func(a, b int64) int64 { return a + b },
	onFloat: func(a, b float64) float64 { return a + b },
	onDecimal: func(res, a, b *apd.Decimal) error {
		_, err := decimalCtx.Add(res, a, b)
		return err
	},
}

var arithSub = arithOp{
	onInt:   func(a, b int64) int64 { return a - b },
	onFloat: func(a, b float64) float64 { return a - b },
	onDecimal: func(res, a, b *apd.Decimal) error {
		_, err := decimalCtx.Sub(res, a, b)
		return err
	},
}

var arithMul = arithOp{
	onInt:   func(a, b int64) int64 { return a * b },
	onFloat: func(a, b float64) float64 { return a * b },
	onDecimal: func(res, a, b *apd.Decimal) error {
		_, err := decimalCtx.Mul(res, a, b)
		return err
	},
}

func arithBuiltin(op arithOp) *builtin {
	return &builtin{
		arity:   2,
		retType: numericResult,
		fn: func(_ *FunctionContext, args []tree.Datum) (tree.Datum, error) {
			if args[0] == tree.DNull || args[1] == tree.DNull {
				return tree.DNull, nil
			}
			if l, ok := args[0].(*tree.DInt); ok {
				if r, ok := args[1].(*tree.DInt); ok {
					return tree.NewDInt(tree.DInt(op.onInt(int64(*l), int64(*r)))), nil
				}
			}
			if ld, lok := args[0].(*tree.DDecimal); lok {
				if rd, rok := args[1].(*tree.DDecimal); rok {
					res := &tree.DDecimal{}
					if err := op.onDecimal(&res.Decimal, &ld.Decimal, &rd.Decimal); err != nil {
						return nil, err
					}
					return res, nil
				}
			}
			l, err := asFloat(args[0])
			if err != nil {
				return nil, err
			}
			r, err := asFloat(args[1])
			if err != nil {
				return nil, err
			}
			return tree.NewDFloat(tree.DFloat(op.onFloat(l, r))), nil
		},
	}
}

func strBuiltin(f func(string) string) *builtin {
	return &builtin{
		arity: 1,
		retType: func(args []*types.T) (*types.T, error) {
			if args[0].Family() != types.StringFamily && args[0].Family() != types.NullFamily {
				return nil, errors.Newf("string function requires a string argument, got %s", args[0])
			}
			if anyNullable(args) {
				return types.String.AsNullable(), nil
			}
			return types.String, nil
		},
		fn: func(_ *FunctionContext, args []tree.Datum) (tree.Datum, error) {
			if args[0] == tree.DNull {
				return tree.DNull, nil
			}
			s, ok := args[0].(*tree.DString)
			if !ok {
				return nil, errors.Newf("string function requires a string argument, got %s", args[0])
			}
			return tree.NewDString(tree.DString(f(string(*s)))), nil
		},
	}
}

func asFloat(d tree.Datum) (float64, error) {
	switch t := d.(type) {
	case *tree.DInt:
		return float64(*t), nil
	case *tree.DFloat:
		return float64(*t), nil
	case *tree.DDecimal:
		f, err := t.Float64()
		return f, err
	default:
		return 0, errors.Newf("expected a numeric value, got %s", d)
	}
}

// CheckFunction type-checks a call of a builtin and returns the typed
// expression. It is the planning-time entry point for synthesizing
// function calls (e.g. combining predicates with "and").
func CheckFunction(name string, args []tree.Expr) (*tree.FuncExpr, error) {
	b, ok := builtins[name]
	if !ok {
		return nil, errors.Newf("unknown function %q", name)
	}
	if b.arity >= 0 && len(args) != b.arity {
		return nil, errors.Newf("function %q expects %d arguments, got %d", name, b.arity, len(args))
	}
	if b.arity < 0 && len(args) < -b.arity {
		return nil, errors.Newf("function %q expects at least %d arguments, got %d", name, -b.arity, len(args))
	}
	argTypes := make([]*types.T, len(args))
	for i, a := range args {
		argTypes[i] = a.ResolvedType()
	}
	retType, err := b.retType(argTypes)
	if err != nil {
		return nil, errors.Wrapf(err, "type checking %q", name)
	}
	return &tree.FuncExpr{Name: name, Args: args, Typ: retType}, nil
}
