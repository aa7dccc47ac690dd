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

// Package catalog declares the storage-facing interfaces the planner
// consumes (tables, catalogs, read plans) and the push-down bundle
// attached to scans. Implementations live outside this module.
package catalog

import (
	"context"

	"github.com/xiaozhiyan/databend/pkg/sql/types"
)

// Well-known names used to resolve the one-row system table backing
// scalar-only queries.
const (
	DefaultCatalogName = "default"
	SystemDatabase     = "system"
	SystemTableOne     = "one"
	DummyColumnName    = "dummy"
)

// Table is a catalog-bound table handle.
type Table interface {
	// Name returns the table's name, for diagnostics.
	Name() string

	// Schema returns the storage-level schema.
	Schema() *types.TableSchema

	// BuildReadPlan asks the storage engine for a read plan honoring
	// the given push-downs (which may be nil). This is the only
	// suspending call in a plan build; it respects ctx cancellation.
	BuildReadPlan(ctx context.Context, pushDowns *PushDownInfo) (*ReadPlan, error)
}

// Catalog resolves tables by name.
type Catalog interface {
	GetTable(ctx context.Context, tenant, database, table string) (Table, error)
}

// ReadStatistics summarizes what a read plan will scan.
type ReadStatistics struct {
	ReadRows  uint64
	ReadBytes uint64
}

// ReadPlan is the storage engine's answer to BuildReadPlan: the data
// source description a table scan executes against. The planner treats
// it as opaque except for the source schema.
type ReadPlan struct {
	// Catalog is the catalog the table was resolved through.
	Catalog string
	// Source is the schema of the blocks the scan emits, i.e. the
	// table schema restricted to the projected columns.
	Source *types.TableSchema
	// PushDowns echoes the bundle the plan was built with.
	PushDowns *PushDownInfo
	// Statistics of the planned read.
	Statistics ReadStatistics
}
