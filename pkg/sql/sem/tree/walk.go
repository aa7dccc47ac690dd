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

package tree

// Visitor rewrites expressions during a WalkExpr traversal. VisitPre is
// called before visiting children; returning recurse=false stops the
// descent into the (possibly replaced) node. VisitPost may replace the
// node after its children were visited.
type Visitor interface {
	VisitPre(expr Expr) (recurse bool, newExpr Expr)
	VisitPost(expr Expr) (newExpr Expr)
}

// WalkExpr traverses expr with v, reconstructing nodes copy-on-write.
// The input expression is never mutated.
func WalkExpr(v Visitor, expr Expr) Expr {
	recurse, newExpr := v.VisitPre(expr)
	if recurse {
		switch t := newExpr.(type) {
		case *FuncExpr:
			var newArgs []Expr
			for i, arg := range t.Args {
				newArg := WalkExpr(v, arg)
				if newArg != arg && newArgs == nil {
					newArgs = make([]Expr, len(t.Args))
					copy(newArgs, t.Args[:i])
				}
				if newArgs != nil {
					newArgs[i] = newArg
				}
			}
			if newArgs != nil {
				newExpr = &FuncExpr{Name: t.Name, Args: newArgs, Typ: t.Typ}
			}
		case *CastExpr:
			newInner := WalkExpr(v, t.Expr)
			if newInner != t.Expr {
				newExpr = &CastExpr{Expr: newInner, Typ: t.Typ}
			}
		}
	}
	return v.VisitPost(newExpr)
}
