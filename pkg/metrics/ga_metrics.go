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

// Package metrics exposes the optimizer's run counters to Prometheus.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const routefinderNamespace = "routefinder"

const (
	sectorLabelName    = "sector_id"
	waypointsLabelName = "num_waypoints"
)

var (
	// BestFitness tracks the latest best fitness per search.
	BestFitness = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: routefinderNamespace,
			Name:      "best_fitness",
			Help:      "Best fitness of the current generation",
		},
		[]string{sectorLabelName, waypointsLabelName},
	)

	// Iterations counts completed generations per sector.
	Iterations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: routefinderNamespace,
			Name:      "iterations_total",
			Help:      "Completed optimizer generations",
		},
		[]string{sectorLabelName},
	)

	// Duplicates counts replaced duplicate routes per sector.
	Duplicates = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: routefinderNamespace,
			Name:      "duplicates_total",
			Help:      "Duplicate routes replaced during deduplication",
		},
		[]string{sectorLabelName},
	)

	// SubsystemSeconds observes named timing samples from the aggregator.
	SubsystemSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: routefinderNamespace,
			Name:      "subsystem_seconds",
			Help:      "Elapsed time per subsystem sample",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 12),
		},
		[]string{"subsystem"},
	)
)

// RegisterGAMetrics registers all optimizer metrics.
func RegisterGAMetrics(registry *prometheus.Registry) {
	registry.MustRegister(BestFitness)
	registry.MustRegister(Iterations)
	registry.MustRegister(Duplicates)
	registry.MustRegister(SubsystemSeconds)
}

// Recorder adapts the metric vectors to the stats aggregator's mirror
// interface.
type Recorder struct{}

// ObserveIteration updates the fitness gauge and the iteration counter.
func (Recorder) ObserveIteration(sectorID string, numWaypoints int, bestFitness float64) {
	BestFitness.WithLabelValues(sectorID, itoa(numWaypoints)).Set(bestFitness)
	Iterations.WithLabelValues(sectorID).Inc()
}

// ObserveDuplicates bumps the duplicate counter.
func (Recorder) ObserveDuplicates(sectorID string, count int) {
	Duplicates.WithLabelValues(sectorID).Add(float64(count))
}

// ObserveTiming feeds the subsystem histogram.
func (Recorder) ObserveTiming(subsystem string, elapsed time.Duration) {
	SubsystemSeconds.WithLabelValues(subsystem).Observe(elapsed.Seconds())
}

func itoa(v int) string {
	return strconv.Itoa(v)
}
