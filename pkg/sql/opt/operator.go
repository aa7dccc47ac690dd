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

import "fmt"

// Operator tags a relational node with its kind. The set is closed;
// the physical plan builder dispatches over it exhaustively and
// rejects anything it does not implement.
type Operator int

const (
	UnknownOp Operator = iota
	ScanOp
	DummyScanOp
	JoinOp
	EvalScalarOp
	FilterOp
	AggregateOp
	SortOp
	LimitOp
	ExchangeOp
	UnionAllOp
	RuntimeFilterSourceOp
	// PatternOp and friends exist in the optimizer's rule engine but
	// must never reach the physical plan builder.
	PatternOp
)

func (op Operator) String() string {
	switch op {
	case ScanOp:
		return "Scan"
	case DummyScanOp:
		return "DummyTableScan"
	case JoinOp:
		return "Join"
	case EvalScalarOp:
		return "EvalScalar"
	case FilterOp:
		return "Filter"
	case AggregateOp:
		return "Aggregate"
	case SortOp:
		return "Sort"
	case LimitOp:
		return "Limit"
	case ExchangeOp:
		return "Exchange"
	case UnionAllOp:
		return "UnionAll"
	case RuntimeFilterSourceOp:
		return "RuntimeFilterSource"
	case PatternOp:
		return "Pattern"
	default:
		return fmt.Sprintf("Operator(%d)", int(op))
	}
}
