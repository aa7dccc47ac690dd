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

// Package props holds the relational properties derived over the
// logical plan, most importantly the statistics feeding cardinality
// estimation.
package props

import "github.com/axiomhq/hyperloglog"

// ColumnStatistic tracks per-column statistics. Distinct counts come
// from a HyperLogLog sketch filled during stats collection.
type ColumnStatistic struct {
	NullCount uint64
	sketch    *hyperloglog.Sketch
}

// NewColumnStatistic returns an empty column statistic.
func NewColumnStatistic() *ColumnStatistic {
	return &ColumnStatistic{sketch: hyperloglog.New14()}
}

// AddValue records one value observation.
func (c *ColumnStatistic) AddValue(val []byte) {
	c.sketch.Insert(val)
}

// DistinctCount estimates the number of distinct values observed.
func (c *ColumnStatistic) DistinctCount() float64 {
	return float64(c.sketch.Estimate())
}

// MergeFrom folds another column's sketch into this one; used to
// estimate the distinct count of a multi-column group key upper bound.
func (c *ColumnStatistic) MergeFrom(other *ColumnStatistic) error {
	return c.sketch.Merge(other.sketch)
}

// Statistics summarizes a table for the optimizer: total row count and
// per-column statistics keyed by declared column name.
type Statistics struct {
	RowCount float64
	ColStats map[string]*ColumnStatistic
}

// NewStatistics returns empty statistics.
func NewStatistics(rowCount float64) *Statistics {
	return &Statistics{RowCount: rowCount, ColStats: make(map[string]*ColumnStatistic)}
}

// DistinctCount returns the estimated distinct count for a column, or
// (0, false) if no statistic was collected.
func (s *Statistics) DistinctCount(column string) (float64, bool) {
	if s == nil {
		return 0, false
	}
	cs, ok := s.ColStats[column]
	if !ok {
		return 0, false
	}
	return cs.DistinctCount(), true
}

// Relational is the property set derived for one relational node. The
// physical plan builder consumes only the cardinality today; the
// struct leaves room for the rest of the optimizer's derivation.
type Relational struct {
	// Cardinality is the estimated output row count.
	Cardinality float64
}
