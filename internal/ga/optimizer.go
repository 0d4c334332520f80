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

package ga

import (
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/trailscout/routefinder/internal/pool"
	"github.com/trailscout/routefinder/internal/route"
	"github.com/trailscout/routefinder/internal/stats"
)

// randomizeDuplicateChance is the probability that a duplicate slot is
// fully re-randomized instead of rebuilt from a donor's shuffled vertices.
const randomizeDuplicateChance = 1.0 / 3.0

// logSampleSize bounds the population sample printed at debug level.
const logSampleSize = 10

// EmitFunc receives the best route after each generation.
type EmitFunc func(best *route.Route, iteration int)

// Optimizer drives the generational loop over one population. One
// optimizer instance serves one (sector, waypoint count) search.
type Optimizer struct {
	cfg        Config
	population []*route.Route
	workers    *pool.Pool
	aggregator *stats.Aggregator
	emit       EmitFunc
	rng        *rand.Rand
}

// New builds an optimizer over the initial population. The caller provides
// the population (random, seeded, or loaded); fitness is not validated
// before iteration 0, the first generation evaluates it. The worker pool is
// borrowed, not owned.
func New(cfg Config, population []*route.Route, workers *pool.Pool,
	aggregator *stats.Aggregator, emit EmitFunc, rng *rand.Rand) *Optimizer {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Optimizer{
		cfg:        cfg,
		population: population,
		workers:    workers,
		aggregator: aggregator,
		emit:       emit,
		rng:        rng,
	}
}

// Run iterates the generational loop for up to maxIterations, stopping
// early when exit fires. It returns the final population sorted by
// ascending fitness.
func (o *Optimizer) Run(ctx *route.Context, sectorID string, numWaypoints, maxIterations int, exit *ExitCondition) []*route.Route {
	sizes := o.cfg.DeriveSizes(len(o.population))
	log := zap.L().With(
		zap.String("sector", sectorID),
		zap.Int("waypoints", numWaypoints))
	log.Debug("optimizer sizes",
		zap.Int("preservation", sizes.Preservation),
		zap.Int("selection", sizes.Selection),
		zap.Int("mutation", sizes.Mutation))

	for iteration := 0; iteration < maxIterations; iteration++ {
		iterStart := time.Now()

		o.crossoverPhase(sizes)
		o.mutationPhase(sizes)
		o.fitnessPass(ctx, false)
		duplicates := o.replaceDuplicates(sizes)
		o.fitnessPass(ctx, true)
		o.sortPopulation()

		best := o.population[0]
		elapsed := time.Since(iterStart)
		log.Debug("iteration complete",
			zap.Int("iteration", iteration),
			zap.Float64("bestFitness", best.Fitness()),
			zap.Int("duplicates", duplicates),
			zap.Duration("elapsed", elapsed))
		log.Debug("current best matches",
			zap.String("sample", route.PrintPopulation(o.population, logSampleSize)))

		if o.aggregator != nil {
			o.aggregator.ReportTiming(stats.SubsystemIteration, elapsed)
			o.aggregator.ReportIteration(sectorID, numWaypoints, iteration, best.Fitness(), elapsed.Seconds())
			o.aggregator.ReportDuplicates(sectorID, numWaypoints, iteration, duplicates)
		}
		if o.emit != nil {
			o.emit(best, iteration)
		}

		if exit != nil && exit.Check(best.Fitness()) {
			break
		}
	}
	return o.population
}

// crossoverPhase refills every slot beyond the preservation and selection
// prefixes with a child of two distinct parents drawn from that prefix.
func (o *Optimizer) crossoverPhase(sizes Sizes) {
	parentPool := sizes.Preservation + sizes.Selection
	if parentPool < 2 {
		return
	}
	for slot := parentPool; slot < len(o.population); slot++ {
		idx1 := o.rng.Intn(parentPool)
		idx2 := o.rng.Intn(parentPool)
		for idx1 == idx2 {
			idx2 = o.rng.Intn(parentPool)
		}
		o.population[slot] = route.Crossover(o.population[idx1], o.population[idx2], o.rng)
	}
}

// mutationPhase applies Mutation draws to slots outside the preservation
// prefix.
func (o *Optimizer) mutationPhase(sizes Sizes) {
	mutable := len(o.population) - sizes.Preservation
	if mutable <= 0 {
		return
	}
	for i := 0; i < sizes.Mutation; i++ {
		slot := o.rng.Intn(mutable) + sizes.Preservation
		route.Mutate(o.population[slot], o.rng)
	}
}

// fitnessPass evaluates every member on the worker pool and barriers until
// all are done. Each task touches only its own slot's route.
func (o *Optimizer) fitnessPass(ctx *route.Context, checkCache bool) {
	start := time.Now()
	for _, member := range o.population {
		member := member
		o.workers.Submit(func() {
			member.UpdateFitness(ctx, checkCache)
		})
	}
	o.workers.Wait()
	if o.aggregator != nil {
		o.aggregator.ReportTiming(stats.SubsystemFitness, time.Since(start))
	}
}

// replaceDuplicates sorts by fitness, then rebuilds every slot whose dna
// exactly matches its predecessor: a third are fully re-randomized, the
// rest take a shuffled copy of a random parent-pool donor's vertices. It
// returns the duplicate count.
func (o *Optimizer) replaceDuplicates(sizes Sizes) int {
	o.sortPopulation()

	parentPool := sizes.Preservation + sizes.Selection
	if parentPool < 1 {
		parentPool = 1
	}
	duplicates := 0
	if len(o.population) == 0 {
		return 0
	}
	// Compare against the original strand of the previous slot so a run of
	// equal members is fully replaced, not just its first successor.
	prev := o.population[0].DNA()
	for i := 1; i < len(o.population); i++ {
		cur := o.population[i].DNA()
		if cur != prev {
			prev = cur
			continue
		}
		duplicates++
		if o.rng.Float64() < randomizeDuplicateChance {
			route.Randomize(o.population[i], o.rng)
		} else {
			donor := o.population[o.rng.Intn(parentPool)]
			route.RandomizeVertices(o.population[i], donor, o.rng)
		}
	}
	return duplicates
}

// sortPopulation stable-sorts by ascending fitness.
func (o *Optimizer) sortPopulation() {
	route.SortByFitness(o.population)
}
