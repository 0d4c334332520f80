// Licensed to the LF AI & Data foundation under one
// or more contributor license agreements. See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership. The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License. You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterGAMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	require.NotPanics(t, func() {
		RegisterGAMetrics(registry)
	})
}

func TestRecorder_Observations(t *testing.T) {
	rec := Recorder{}

	rec.ObserveIteration("7", 8, 123.5)
	rec.ObserveIteration("7", 8, 120.25)
	rec.ObserveDuplicates("7", 4)
	rec.ObserveTiming("fitness_pass", 25*time.Millisecond)

	assert.InDelta(t, 120.25,
		testutil.ToFloat64(BestFitness.WithLabelValues("7", "8")), 1e-9)
	assert.InDelta(t, 2.0,
		testutil.ToFloat64(Iterations.WithLabelValues("7")), 1e-9)
	assert.InDelta(t, 4.0,
		testutil.ToFloat64(Duplicates.WithLabelValues("7")), 1e-9)
}
