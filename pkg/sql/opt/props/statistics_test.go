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

package props

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestColumnStatisticDistinctCount(t *testing.T) {
	stat := NewColumnStatistic()
	for i := 0; i < 1000; i++ {
		// Half the values repeat.
		stat.AddValue([]byte(fmt.Sprintf("v%d", i%500)))
	}
	distinct := stat.DistinctCount()
	// The sketch estimate must land close to the true count.
	require.InDelta(t, 500, distinct, 25)
}

func TestColumnStatisticMerge(t *testing.T) {
	a := NewColumnStatistic()
	b := NewColumnStatistic()
	for i := 0; i < 300; i++ {
		a.AddValue([]byte(fmt.Sprintf("a%d", i)))
		b.AddValue([]byte(fmt.Sprintf("b%d", i)))
	}
	require.NoError(t, a.MergeFrom(b))
	require.InDelta(t, 600, a.DistinctCount(), 30)
}

func TestStatisticsDistinctCount(t *testing.T) {
	stats := NewStatistics(100)
	col := NewColumnStatistic()
	col.AddValue([]byte("x"))
	stats.ColStats["id"] = col

	distinct, ok := stats.DistinctCount("id")
	require.True(t, ok)
	require.Equal(t, float64(1), distinct)

	_, ok = stats.DistinctCount("missing")
	require.False(t, ok)

	var nilStats *Statistics
	_, ok = nilStats.DistinctCount("id")
	require.False(t, ok)
}
