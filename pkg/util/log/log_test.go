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

package log

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestLoggingRoundTrip exercises each severity through the adapter so
// a mismatch with the underlying logger surfaces at build time.
func TestLoggingRoundTrip(t *testing.T) {
	Infof("info %s", "message")
	Warningf("warning %d", 1)
	Errorf("error %v", struct{}{})
	Flush()

	// Verbosity defaults to 0, so a high level is always off.
	require.False(t, V(1000))
}
