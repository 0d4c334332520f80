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

package stats

import (
	"sync"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Well-known timing subsystem names.
const (
	SubsystemIteration = "ga_iteration"
	SubsystemFitness   = "fitness_pass"
	SubsystemSector    = "sector_run"
)

// IterationRow is one per-generation record destined for the iteration CSV.
type IterationRow struct {
	SectorID     string
	NumWaypoints int
	Iteration    int
	BestFitness  float64
	ElapsedSec   float64
}

// DuplicateRow is one per-generation duplicate count destined for the
// duplicates CSV.
type DuplicateRow struct {
	SectorID     string
	NumWaypoints int
	Iteration    int
	Duplicates   int
}

// Metrics mirrors aggregator reports into an external metrics system.
// Implementations must be safe for concurrent use.
type Metrics interface {
	ObserveIteration(sectorID string, numWaypoints int, bestFitness float64)
	ObserveDuplicates(sectorID string, count int)
	ObserveTiming(subsystem string, elapsed time.Duration)
}

// Aggregator collects timing samples, iteration rows, and duplicate rows
// from every sector runner. All methods are safe for concurrent use.
type Aggregator struct {
	mu      sync.Mutex
	timings map[string]*Accumulator

	pendingIterations []IterationRow
	pendingDuplicates []DuplicateRow

	metrics Metrics

	writerStop chan struct{}
	writerDone chan struct{}
}

// NewAggregator creates an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{
		timings: make(map[string]*Accumulator),
	}
}

// SetMetrics installs an external metrics mirror. Call before any reports.
func (a *Aggregator) SetMetrics(m Metrics) {
	a.metrics = m
}

// ReportTiming folds a named timing sample into its accumulator.
func (a *Aggregator) ReportTiming(subsystem string, elapsed time.Duration) {
	a.mu.Lock()
	acc, ok := a.timings[subsystem]
	if !ok {
		acc = &Accumulator{}
		a.timings[subsystem] = acc
	}
	acc.Insert(elapsed.Seconds())
	a.mu.Unlock()

	if a.metrics != nil {
		a.metrics.ObserveTiming(subsystem, elapsed)
	}
}

// ReportIteration records one generation's best fitness and elapsed time.
func (a *Aggregator) ReportIteration(sectorID string, numWaypoints, iteration int, bestFitness, elapsedSec float64) {
	a.mu.Lock()
	a.pendingIterations = append(a.pendingIterations, IterationRow{
		SectorID:     sectorID,
		NumWaypoints: numWaypoints,
		Iteration:    iteration,
		BestFitness:  bestFitness,
		ElapsedSec:   elapsedSec,
	})
	a.mu.Unlock()

	if a.metrics != nil {
		a.metrics.ObserveIteration(sectorID, numWaypoints, bestFitness)
	}
}

// ReportDuplicates records one generation's duplicate count.
func (a *Aggregator) ReportDuplicates(sectorID string, numWaypoints, iteration, count int) {
	a.mu.Lock()
	a.pendingDuplicates = append(a.pendingDuplicates, DuplicateRow{
		SectorID:     sectorID,
		NumWaypoints: numWaypoints,
		Iteration:    iteration,
		Duplicates:   count,
	})
	a.mu.Unlock()

	if a.metrics != nil {
		a.metrics.ObserveDuplicates(sectorID, count)
	}
}

// TimingSnapshot returns a copy of a named accumulator, or nil when no
// sample was reported under that name.
func (a *Aggregator) TimingSnapshot(subsystem string) *Accumulator {
	a.mu.Lock()
	defer a.mu.Unlock()
	acc, ok := a.timings[subsystem]
	if !ok {
		return nil
	}
	cp := *acc
	return &cp
}

// drainPending swaps out the pending rows under the lock.
func (a *Aggregator) drainPending() ([]IterationRow, []DuplicateRow) {
	a.mu.Lock()
	defer a.mu.Unlock()
	iterations := a.pendingIterations
	duplicates := a.pendingDuplicates
	a.pendingIterations = nil
	a.pendingDuplicates = nil
	return iterations, duplicates
}

// Close logs the timing summaries. Call after StopWriter.
func (a *Aggregator) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, subsystem := range lo.Keys(a.timings) {
		zap.L().Info("timing summary",
			zap.String("subsystem", subsystem),
			zap.String("stats", a.timings[subsystem].Summary("Subsystem: "+subsystem, "sec")))
	}
}
