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

// Package tree holds the physical scalar expression representation
// consumed by the execution layer. Column references exist in three
// forms: ColumnRef (logical column index, pre-rebinding), IndexedVar
// (position in a concrete row-block schema) and ColumnName
// (storage-level name binding, used by push-down expressions).
package tree

import (
	"fmt"
	"strings"

	"github.com/xiaozhiyan/databend/pkg/sql/types"
)

// Expr is a typed scalar expression node.
type Expr interface {
	fmt.Stringer
	// ResolvedType returns the static type of the expression.
	ResolvedType() *types.T
}

// Constant wraps a datum with a declared type. The declared type may be
// wider than the datum's natural type (e.g. a NULL constant typed as
// Nullable(Int64)).
type Constant struct {
	Value Datum
	Typ   *types.T
}

// ResolvedType implements Expr.
func (c *Constant) ResolvedType() *types.T { return c.Typ }

func (c *Constant) String() string { return c.Value.String() }

// ColumnRef references a column by its logical column index. It only
// appears between scalar lowering and rebinding; a physical expression
// handed to the execution layer never contains one.
type ColumnRef struct {
	// Col is the logical column index (opt.ColumnID); kept as a plain
	// int here so that this package stays below pkg/sql/opt.
	Col int
	// DisplayName is the resolved column name, kept for diagnostics.
	DisplayName string
	Typ         *types.T
}

// ResolvedType implements Expr.
func (c *ColumnRef) ResolvedType() *types.T { return c.Typ }

func (c *ColumnRef) String() string {
	return fmt.Sprintf("%s#%d", c.DisplayName, c.Col)
}

// IndexedVar references a column by position in the operator's input
// schema. Positions are zero-based; the diagnostic form uses the
// 1-based @N placeholder convention.
type IndexedVar struct {
	Idx         int
	DisplayName string
	Typ         *types.T
}

// ResolvedType implements Expr.
func (v *IndexedVar) ResolvedType() *types.T { return v.Typ }

func (v *IndexedVar) String() string { return fmt.Sprintf("@%d", v.Idx+1) }

// ColumnName references a storage column by declared name. Storage
// consumes these without position rebinding.
type ColumnName struct {
	Name string
	Typ  *types.T
}

// ResolvedType implements Expr.
func (c *ColumnName) ResolvedType() *types.T { return c.Typ }

func (c *ColumnName) String() string { return c.Name }

// FuncExpr is a call of a builtin scalar function.
type FuncExpr struct {
	Name string
	Args []Expr
	Typ  *types.T
}

// ResolvedType implements Expr.
func (f *FuncExpr) ResolvedType() *types.T { return f.Typ }

func (f *FuncExpr) String() string {
	args := make([]string, len(f.Args))
	for i, a := range f.Args {
		args[i] = a.String()
	}
	return fmt.Sprintf("%s(%s)", f.Name, strings.Join(args, ", "))
}

// CastExpr converts its input to the given type.
type CastExpr struct {
	Expr Expr
	Typ  *types.T
}

// ResolvedType implements Expr.
func (c *CastExpr) ResolvedType() *types.T { return c.Typ }

func (c *CastExpr) String() string {
	return fmt.Sprintf("CAST(%s AS %s)", c.Expr, c.Typ)
}
