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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestColSetBasic(t *testing.T) {
	var s ColSet
	require.True(t, s.Empty())
	s.Add(5)
	s.Add(1)
	s.Add(5)
	s.Add(3)
	require.Equal(t, 3, s.Len())
	require.True(t, s.Contains(3))
	require.False(t, s.Contains(2))
	require.Equal(t, []ColumnID{1, 3, 5}, s.Ordered())

	s.Remove(3)
	require.False(t, s.Contains(3))
	require.Equal(t, 2, s.Len())

	var visited []ColumnID
	s.ForEach(func(col ColumnID) { visited = append(visited, col) })
	require.Equal(t, []ColumnID{1, 5}, visited)
}

func TestColSetOps(t *testing.T) {
	a := MakeColSet(1, 2, 3)
	b := MakeColSet(3, 4)

	union := a.Union(b)
	require.Equal(t, []ColumnID{1, 2, 3, 4}, union.Ordered())

	diff := a.Difference(b)
	require.Equal(t, []ColumnID{1, 2}, diff.Ordered())

	require.True(t, a.Intersects(b))
	require.False(t, diff.Intersects(b))
	require.True(t, a.Equals(MakeColSet(3, 2, 1)))
	require.False(t, a.Equals(b))

	// Mutating a copy leaves the original untouched.
	c := a.Copy()
	c.Add(9)
	require.False(t, a.Contains(9))
}
