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

package catalog

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/google/btree"

	"github.com/xiaozhiyan/databend/pkg/sql/sem/tree"
	"github.com/xiaozhiyan/databend/pkg/sql/types"
)

// innerPath is one inner-column projection entry: the logical column
// index and the positional path that reaches the value inside the
// top-level composite column.
type innerPath struct {
	col  int
	path []int
}

func (p innerPath) Less(than btree.Item) bool { return p.col < than.(innerPath).col }

// Projection selects the columns a scan reads. It is either flat (an
// ascending list of field positions in the table schema) or inner (an
// ascending col-index to path mapping, used when any requested column
// sits inside a composite value). The two forms are mutually exclusive
// for one projection.
type Projection struct {
	columns []int
	inner   *btree.BTree
}

// NewFlatProjection builds a flat projection over the given positions,
// normalized to ascending order.
func NewFlatProjection(positions []int) *Projection {
	cols := make([]int, len(positions))
	copy(cols, positions)
	sort.Ints(cols)
	return &Projection{columns: cols}
}

// NewInnerProjection builds an empty inner-column projection.
func NewInnerProjection() *Projection {
	return &Projection{inner: btree.New(8)}
}

// IsInner reports whether this is an inner-column projection.
func (p *Projection) IsInner() bool { return p.inner != nil }

// Positions returns the ascending field positions of a flat
// projection; nil for inner projections.
func (p *Projection) Positions() []int { return p.columns }

// AddPath records the path for a logical column index. Calling this on
// a flat projection is a programming error.
func (p *Projection) AddPath(col int, path []int) {
	if p.inner == nil {
		panic(errors.AssertionFailedf("AddPath on a flat projection"))
	}
	p.inner.ReplaceOrInsert(innerPath{col: col, path: path})
}

// EachPath visits the inner-column entries in ascending column-index
// order.
func (p *Projection) EachPath(fn func(col int, path []int)) {
	if p.inner == nil {
		return
	}
	p.inner.Ascend(func(item btree.Item) bool {
		e := item.(innerPath)
		fn(e.col, e.path)
		return true
	})
}

// Len returns the number of projected columns.
func (p *Projection) Len() int {
	if p.inner != nil {
		return p.inner.Len()
	}
	return len(p.columns)
}

// ProjectSchema restricts schema to the projected columns. Inner
// projections keep the top-level column of each path.
func (p *Projection) ProjectSchema(schema *types.TableSchema) *types.TableSchema {
	if p.inner == nil {
		return schema.Project(p.columns)
	}
	positions := make([]int, 0, p.inner.Len())
	seen := make(map[int]struct{})
	p.EachPath(func(_ int, path []int) {
		if _, ok := seen[path[0]]; !ok {
			seen[path[0]] = struct{}{}
			positions = append(positions, path[0])
		}
	})
	sort.Ints(positions)
	return schema.Project(positions)
}

func (p *Projection) String() string {
	if p.inner == nil {
		return fmt.Sprintf("%v", p.columns)
	}
	var parts []string
	p.EachPath(func(col int, path []int) {
		parts = append(parts, fmt.Sprintf("%d->%v", col, path))
	})
	return "{" + strings.Join(parts, ", ") + "}"
}

// PrewhereInfo is the prewhere half of a push-down bundle: the
// predicate evaluated before full row materialization, plus the three
// projections storage needs to stage it. PrewhereColumns and
// RemainColumns are disjoint and together cover the scan's required
// column set; OutputColumns is what the parent still needs downstream.
type PrewhereInfo struct {
	OutputColumns   *Projection
	PrewhereColumns *Projection
	RemainColumns   *Projection
	// Filter is the AND of all prewhere predicates, name-bound, cast
	// to a non-null boolean and folded.
	Filter tree.Expr
}

// SortColumn is one storage-level order-by key. The expression is a
// name-bound column reference; storage resolves it against its own
// layout rather than a row-block position.
type SortColumn struct {
	Expr       tree.Expr
	Asc        bool
	NullsFirst bool
}

// PushDownInfo is the bundle of storage hints attached to a scan. A
// prewhere split and a push-down filter may both be present; they
// apply at different storage phases and are independent.
type PushDownInfo struct {
	Projection *Projection
	// Filter is the AND of all push-down predicates, name-bound, cast
	// to a non-null boolean and folded. Nil when nothing was pushed.
	Filter   tree.Expr
	Prewhere *PrewhereInfo
	Limit    *int64
	OrderBy  []SortColumn
}
