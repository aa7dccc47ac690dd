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

package opt

import (
	"fmt"
	"sort"
	"strings"
)

// ColSet is a set of logical column indexes. The zero value is an
// empty, usable set. Iteration order is ascending, which downstream
// code relies on for deterministic projections.
type ColSet struct {
	cols []ColumnID
}

// MakeColSet returns a set of the given columns.
func MakeColSet(cols ...ColumnID) ColSet {
	var s ColSet
	for _, c := range cols {
		s.Add(c)
	}
	return s
}

func (s *ColSet) find(col ColumnID) (int, bool) {
	i := sort.Search(len(s.cols), func(i int) bool { return s.cols[i] >= col })
	return i, i < len(s.cols) && s.cols[i] == col
}

// Add adds a column to the set.
func (s *ColSet) Add(col ColumnID) {
	i, ok := s.find(col)
	if ok {
		return
	}
	s.cols = append(s.cols, 0)
	copy(s.cols[i+1:], s.cols[i:])
	s.cols[i] = col
}

// Remove removes a column from the set, if present.
func (s *ColSet) Remove(col ColumnID) {
	if i, ok := s.find(col); ok {
		s.cols = append(s.cols[:i], s.cols[i+1:]...)
	}
}

// Contains reports whether the set contains the column.
func (s ColSet) Contains(col ColumnID) bool {
	_, ok := s.find(col)
	return ok
}

// Len returns the number of columns in the set.
func (s ColSet) Len() int { return len(s.cols) }

// Empty reports whether the set is empty.
func (s ColSet) Empty() bool { return len(s.cols) == 0 }

// ForEach visits the columns in ascending order.
func (s ColSet) ForEach(fn func(col ColumnID)) {
	for _, c := range s.cols {
		fn(c)
	}
}

// Ordered returns the columns in ascending order.
func (s ColSet) Ordered() []ColumnID {
	out := make([]ColumnID, len(s.cols))
	copy(out, s.cols)
	return out
}

// Copy returns an independent copy of the set.
func (s ColSet) Copy() ColSet {
	return ColSet{cols: s.Ordered()}
}

// Union returns the union of s and other.
func (s ColSet) Union(other ColSet) ColSet {
	r := s.Copy()
	other.ForEach(func(c ColumnID) { r.Add(c) })
	return r
}

// Difference returns the columns in s that are not in other.
func (s ColSet) Difference(other ColSet) ColSet {
	var r ColSet
	s.ForEach(func(c ColumnID) {
		if !other.Contains(c) {
			r.Add(c)
		}
	})
	return r
}

// Intersects reports whether the sets share a column.
func (s ColSet) Intersects(other ColSet) bool {
	for _, c := range s.cols {
		if other.Contains(c) {
			return true
		}
	}
	return false
}

// Equals reports set equality.
func (s ColSet) Equals(other ColSet) bool {
	if len(s.cols) != len(other.cols) {
		return false
	}
	for i := range s.cols {
		if s.cols[i] != other.cols[i] {
			return false
		}
	}
	return true
}

func (s ColSet) String() string {
	var sb strings.Builder
	sb.WriteByte('(')
	for i, c := range s.cols {
		if i > 0 {
			sb.WriteByte(',')
		}
		fmt.Fprintf(&sb, "%d", c)
	}
	sb.WriteByte(')')
	return sb.String()
}
