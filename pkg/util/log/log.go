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

// Package log is a thin adapter around glog so that the rest of the
// code base does not import a logging implementation directly.
package log

import "github.com/golang/glog"

// Level is the glog verbosity level.
type Level = glog.Level

// V reports whether verbosity at the call site is at least the
// requested level.
func V(level Level) bool {
	return bool(glog.V(level))
}

// Infof formats arguments and logs at INFO severity.
func Infof(format string, args ...interface{}) {
	glog.InfoDepthf(1, format, args...)
}

// Warningf formats arguments and logs at WARNING severity.
func Warningf(format string, args ...interface{}) {
	glog.WarningDepthf(1, format, args...)
}

// Errorf formats arguments and logs at ERROR severity.
func Errorf(format string, args ...interface{}) {
	glog.ErrorDepthf(1, format, args...)
}

// Flush ensures any pending log I/O is written.
var Flush = glog.Flush
