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

// Package eval implements scalar function evaluation over constant
// datums and the constant folder built on top of it. It evaluates only
// fully-literal subtrees; execution-time vectorized evaluation lives
// outside this module.
package eval

import "time"

// FunctionContext carries the session-dependent state needed to
// evaluate scalar functions during planning. It is supplied by the
// query session (see physicalplan.PlanContext) and treated as
// read-only.
type FunctionContext struct {
	// Timezone applies to timestamp parsing and formatting.
	Timezone *time.Location
	// Now is the statement time; now() folds to it.
	Now time.Time
	// Locale selects collation-sensitive string behavior.
	Locale string
}

// DefaultFunctionContext returns a context with UTC timezone and the
// current time. Tests use fixed variants instead.
func DefaultFunctionContext() FunctionContext {
	return FunctionContext{
		Timezone: time.UTC,
		Now:      time.Now().UTC(),
		Locale:   "C",
	}
}
