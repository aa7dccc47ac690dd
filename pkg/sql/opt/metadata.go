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

// Package opt holds the query-scoped metadata registry shared by the
// optimizer and the physical plan builder: logical column indexes and
// their column entries, plus catalog-bound table entries.
package opt

import (
	"strconv"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/xiaozhiyan/databend/pkg/sql/catalog"
	"github.com/xiaozhiyan/databend/pkg/sql/opt/props"
	"github.com/xiaozhiyan/databend/pkg/sql/types"
)

// ColumnID is the logical column index: a process-unique integer
// identifying a column irrespective of which physical schema currently
// carries it. It is the sole handle used for cross-node correlation.
type ColumnID int

// TableID indexes a bound table within the metadata.
type TableID int

// Reserved indexes used by the dummy scan backing scalar-only queries.
const (
	DummyColumnID ColumnID = 1<<31 - 1
	DummyTableID  TableID  = 1<<31 - 1
)

// ColumnName returns the physical field name a logical column uses in
// row-block schemas: the stringified column index. Stringifying keeps
// columns with equal source names unambiguous after joins.
func (c ColumnID) ColumnName() string { return strconv.Itoa(int(c)) }

// ColumnEntry describes a logical column. It is either a
// BaseTableColumn or a DerivedColumn.
type ColumnEntry interface {
	// Name returns the column's resolved name: the declared name for
	// base-table columns, the alias for derived ones.
	Name() string
	// DataType returns the column's declared type.
	DataType() *types.T

	columnEntry()
}

// BaseTableColumn is a column belonging to a bound base table.
type BaseTableColumn struct {
	ColumnName string
	Typ        *types.T
	Table      TableID
	// PathIndices, when set, mean the column is a sub-field reached by
	// following the given positional path through a composite value
	// rather than a whole top-level column.
	PathIndices []int
}

// Name implements ColumnEntry.
func (c *BaseTableColumn) Name() string { return c.ColumnName }

// DataType implements ColumnEntry.
func (c *BaseTableColumn) DataType() *types.T { return c.Typ }

func (*BaseTableColumn) columnEntry() {}

// DerivedColumn is a column produced by an expression (projection
// item, aggregate result).
type DerivedColumn struct {
	Alias string
	Typ   *types.T
	// Lineage is a display form of the defining expression, kept for
	// diagnostics only.
	Lineage string
}

// Name implements ColumnEntry.
func (c *DerivedColumn) Name() string { return c.Alias }

// DataType implements ColumnEntry.
func (c *DerivedColumn) DataType() *types.T { return c.Typ }

func (*DerivedColumn) columnEntry() {}

// TableEntry is a catalog-bound table registered in the metadata.
type TableEntry struct {
	CatalogName  string
	DatabaseName string
	TableName    string
	Table        catalog.Table
	// Stats holds optimizer statistics for the table, if collected.
	Stats *props.Statistics
}

// Metadata is the per-query registry mapping logical column indexes to
// column entries and table indexes to bound tables. It is read-only
// during a build pass.
type Metadata struct {
	columns map[ColumnID]ColumnEntry
	tables  []TableEntry
	nextCol ColumnID
}

// NewMetadata returns an empty registry.
func NewMetadata() *Metadata {
	return &Metadata{columns: make(map[ColumnID]ColumnEntry)}
}

// AddBaseTableColumn registers a base-table column and returns its
// logical index.
func (md *Metadata) AddBaseTableColumn(
	name string, typ *types.T, table TableID, pathIndices []int,
) ColumnID {
	id := md.nextCol
	md.nextCol++
	md.columns[id] = &BaseTableColumn{
		ColumnName:  name,
		Typ:         typ,
		Table:       table,
		PathIndices: pathIndices,
	}
	return id
}

// AddDerivedColumn registers a derived column and returns its logical
// index.
func (md *Metadata) AddDerivedColumn(alias string, typ *types.T, lineage string) ColumnID {
	id := md.nextCol
	md.nextCol++
	md.columns[id] = &DerivedColumn{Alias: alias, Typ: typ, Lineage: lineage}
	return id
}

// AddTable registers a catalog-bound table and returns its index.
func (md *Metadata) AddTable(
	catalogName, databaseName, tableName string, table catalog.Table, stats *props.Statistics,
) TableID {
	md.tables = append(md.tables, TableEntry{
		CatalogName:  catalogName,
		DatabaseName: databaseName,
		TableName:    tableName,
		Table:        table,
		Stats:        stats,
	})
	return TableID(len(md.tables) - 1)
}

// Column returns the entry for a logical column index.
func (md *Metadata) Column(id ColumnID) (ColumnEntry, error) {
	entry, ok := md.columns[id]
	if !ok {
		return nil, errors.AssertionFailedf("unknown column index %d", id)
	}
	return entry, nil
}

// ColumnName returns the resolved name for a logical column index.
func (md *Metadata) ColumnName(id ColumnID) (string, error) {
	entry, err := md.Column(id)
	if err != nil {
		return "", err
	}
	return entry.Name(), nil
}

// Table returns the entry for a table index.
func (md *Metadata) Table(id TableID) (*TableEntry, error) {
	if int(id) < 0 || int(id) >= len(md.tables) {
		return nil, errors.AssertionFailedf("unknown table index %d", id)
	}
	return &md.tables[id], nil
}

// clone returns a deep-enough copy: entries themselves are immutable,
// so copying the containers suffices.
func (md *Metadata) clone() *Metadata {
	cols := make(map[ColumnID]ColumnEntry, len(md.columns))
	for id, entry := range md.columns {
		cols[id] = entry
	}
	tables := make([]TableEntry, len(md.tables))
	copy(tables, md.tables)
	return &Metadata{columns: cols, tables: tables, nextCol: md.nextCol}
}

// MetadataRef shares a Metadata between the planning stages. Readers
// take a snapshot per need instead of holding the lock across
// suspension points; writers (name resolution, earlier in the
// pipeline) mutate under the write lock.
type MetadataRef struct {
	mu sync.RWMutex
	md *Metadata
}

// NewMetadataRef wraps md for sharing.
func NewMetadataRef(md *Metadata) *MetadataRef {
	return &MetadataRef{md: md}
}

// Snapshot returns a copy of the current metadata. The copy is
// immutable from the caller's perspective.
func (r *MetadataRef) Snapshot() *Metadata {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.md.clone()
}

// Update runs fn with exclusive access to the metadata.
func (r *MetadataRef) Update(fn func(md *Metadata)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(r.md)
}
