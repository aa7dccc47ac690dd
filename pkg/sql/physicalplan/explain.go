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
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/xiaozhiyan/databend/pkg/sql/sem/tree"
)

// Explain renders a physical plan as an indented operator tree with
// per-node details and cardinality estimates.
func Explain(plan PhysicalPlan) string {
	var sb strings.Builder
	explainNode(&sb, plan, 0)
	return sb.String()
}

func explainNode(sb *strings.Builder, plan PhysicalPlan, depth int) {
	indent := strings.Repeat("  ", depth)
	sb.WriteString(indent)
	sb.WriteString(plan.Name())
	if detail := nodeDetail(plan); detail != "" {
		sb.WriteString(" [")
		sb.WriteString(detail)
		sb.WriteByte(']')
	}
	sb.WriteByte('\n')
	if stats := plan.StatInfo(); stats != nil {
		fmt.Fprintf(sb, "%s  estimated rows: %s\n",
			indent, humanize.Commaf(stats.EstimatedRows))
	}
	for _, child := range plan.Children() {
		explainNode(sb, child, depth+1)
	}
}

func nodeDetail(plan PhysicalPlan) string {
	switch t := plan.(type) {
	case *TableScan:
		return fmt.Sprintf("read rows: %s, read bytes: %s",
			humanize.Comma(int64(t.Source.Statistics.ReadRows)),
			humanize.IBytes(t.Source.Statistics.ReadBytes))
	case *HashJoin:
		return fmt.Sprintf("%s, build keys: %s, probe keys: %s",
			t.JoinType, exprList(t.BuildKeys), exprList(t.ProbeKeys))
	case *Filter:
		return exprList(t.Predicates)
	case *AggregatePartial:
		return fmt.Sprintf("group by: %v", t.GroupBy)
	case *AggregateFinal:
		return fmt.Sprintf("group by: %v", t.GroupBy)
	case *Sort:
		parts := make([]string, len(t.OrderBy))
		for i, d := range t.OrderBy {
			dir := "desc"
			if d.Asc {
				dir = "asc"
			}
			parts[i] = fmt.Sprintf("%d %s", d.Column, dir)
		}
		return strings.Join(parts, ", ")
	case *Limit:
		if t.Limit != nil {
			return fmt.Sprintf("limit: %d, offset: %d", *t.Limit, t.Offset)
		}
		return fmt.Sprintf("offset: %d", t.Offset)
	case *Exchange:
		if len(t.Keys) > 0 {
			return fmt.Sprintf("%s, keys: %s", t.Kind, exprList(t.Keys))
		}
		return t.Kind.String()
	default:
		return ""
	}
}

func exprList(exprs []tree.Expr) string {
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		parts[i] = e.String()
	}
	return strings.Join(parts, ", ")
}
