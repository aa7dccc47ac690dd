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
	"github.com/cockroachdb/errors"

	"github.com/xiaozhiyan/databend/pkg/sql/catalog"
	"github.com/xiaozhiyan/databend/pkg/sql/opt"
	"github.com/xiaozhiyan/databend/pkg/sql/plans"
	"github.com/xiaozhiyan/databend/pkg/sql/sem/eval"
	"github.com/xiaozhiyan/databend/pkg/sql/sem/tree"
	"github.com/xiaozhiyan/databend/pkg/sql/types"
)

// scanHasInnerColumn reports whether any requested scan column is a
// nested sub-field. The flat or path projection form is decided once
// per scan from the full column set and applies to every projection
// in that scan's push-down bundle.
func scanHasInnerColumn(md *opt.Metadata, columns opt.ColSet) (bool, error) {
	hasInner := false
	var iterErr error
	columns.ForEach(func(col opt.ColumnID) {
		if iterErr != nil || hasInner {
			return
		}
		entry, err := md.Column(col)
		if err != nil {
			iterErr = err
			return
		}
		if base, ok := entry.(*opt.BaseTableColumn); ok && base.PathIndices != nil {
			hasInner = true
		}
	})
	return hasInner, iterErr
}

// buildProjection translates a logical column set into the storage
// projection for a table. Base-table columns resolve by declared name
// and derived columns by alias. With hasInner the projection takes
// path form, whole columns degrading to length-one paths.
func buildProjection(
	md *opt.Metadata, schema *types.TableSchema, columns opt.ColSet, hasInner bool,
) (*catalog.Projection, error) {
	if !hasInner {
		positions := make([]int, 0, columns.Len())
		var iterErr error
		columns.ForEach(func(col opt.ColumnID) {
			if iterErr != nil {
				return
			}
			entry, err := md.Column(col)
			if err != nil {
				iterErr = err
				return
			}
			pos, err := schema.IndexOf(entry.Name())
			if err != nil {
				iterErr = err
				return
			}
			positions = append(positions, pos)
		})
		if iterErr != nil {
			return nil, iterErr
		}
		return catalog.NewFlatProjection(positions), nil
	}

	proj := catalog.NewInnerProjection()
	var iterErr error
	columns.ForEach(func(col opt.ColumnID) {
		if iterErr != nil {
			return
		}
		entry, err := md.Column(col)
		if err != nil {
			iterErr = err
			return
		}
		if base, ok := entry.(*opt.BaseTableColumn); ok && base.PathIndices != nil {
			proj.AddPath(int(col), base.PathIndices)
			return
		}
		pos, err := schema.IndexOf(entry.Name())
		if err != nil {
			iterErr = err
			return
		}
		proj.AddPath(int(col), []int{pos})
	})
	if iterErr != nil {
		return nil, iterErr
	}
	return proj, nil
}

// combinePredicates lowers each predicate to its name-bound storage
// form, folds them into one conjunction and coerces it to a
// non-nullable boolean. Storage evaluates the result against declared
// column names, so rebinding never applies here.
func combinePredicates(
	fnCtx *eval.FunctionContext, predicates []plans.ScalarExpr,
) (tree.Expr, error) {
	var combined tree.Expr
	for _, pred := range predicates {
		expr, err := pred.AsNamedExpr()
		if err != nil {
			return nil, err
		}
		if combined == nil {
			combined = expr
			continue
		}
		combined, err = eval.CheckFunction("and", []tree.Expr{combined, expr})
		if err != nil {
			return nil, err
		}
	}
	if combined == nil {
		return nil, nil
	}
	boolExpr, err := eval.CastExprToNonNullBoolean(combined)
	if err != nil {
		return nil, err
	}
	folded, _, err := eval.FoldConstants(fnCtx, boolExpr)
	return folded, err
}

// buildPushDowns assembles the storage push-down bundle for a scan.
func buildPushDowns(
	md *opt.Metadata,
	fnCtx *eval.FunctionContext,
	schema *types.TableSchema,
	scan *plans.Scan,
) (*catalog.PushDownInfo, error) {
	hasInner, err := scanHasInnerColumn(md, scan.Columns)
	if err != nil {
		return nil, err
	}
	projection, err := buildProjection(md, schema, scan.Columns, hasInner)
	if err != nil {
		return nil, err
	}
	info := &catalog.PushDownInfo{
		Projection: projection,
		Limit:      scan.Limit,
	}

	if len(scan.PushDownPredicates) > 0 {
		info.Filter, err = combinePredicates(fnCtx, scan.PushDownPredicates)
		if err != nil {
			return nil, err
		}
	}

	if scan.Prewhere != nil {
		info.Prewhere, err = buildPrewhere(md, fnCtx, schema, scan, hasInner)
		if err != nil {
			return nil, err
		}
	}

	for _, item := range scan.OrderBy {
		entry, err := md.Column(item.Index)
		if err != nil {
			return nil, err
		}
		info.OrderBy = append(info.OrderBy, catalog.SortColumn{
			Expr:       &tree.ColumnName{Name: entry.Name(), Typ: entry.DataType()},
			Asc:        item.Asc,
			NullsFirst: item.NullsFirst,
		})
	}
	return info, nil
}

// buildPrewhere splits the scan's column set for early filtering:
// storage reads the prewhere columns, applies the filter, then reads
// the remaining columns for surviving rows only. All three projections
// share the scan's projection form.
func buildPrewhere(
	md *opt.Metadata,
	fnCtx *eval.FunctionContext,
	schema *types.TableSchema,
	scan *plans.Scan,
	hasInner bool,
) (*catalog.PrewhereInfo, error) {
	prewhere := scan.Prewhere

	output, err := buildProjection(md, schema, prewhere.OutputColumns, hasInner)
	if err != nil {
		return nil, err
	}
	prewhereCols, err := buildProjection(md, schema, prewhere.PrewhereColumns, hasInner)
	if err != nil {
		return nil, err
	}
	remain, err := buildProjection(
		md, schema, scan.Columns.Difference(prewhere.PrewhereColumns), hasInner)
	if err != nil {
		return nil, err
	}
	filter, err := combinePredicates(fnCtx, prewhere.Predicates)
	if err != nil {
		return nil, err
	}
	if filter == nil {
		return nil, errors.AssertionFailedf("prewhere with no predicates")
	}
	return &catalog.PrewhereInfo{
		OutputColumns:   output,
		PrewhereColumns: prewhereCols,
		RemainColumns:   remain,
		Filter:          filter,
	}, nil
}
