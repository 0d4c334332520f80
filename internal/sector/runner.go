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

// Package sector drives the full search for one sector: loading and
// normalizing its points, building the shared context, seeding the initial
// population, and running the optimizer across the waypoint-count range.
package sector

import (
	"math/rand"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/trailscout/routefinder/internal/db"
	"github.com/trailscout/routefinder/internal/ga"
	"github.com/trailscout/routefinder/internal/geo"
	"github.com/trailscout/routefinder/internal/geometry"
	"github.com/trailscout/routefinder/internal/pool"
	"github.com/trailscout/routefinder/internal/quadtree"
	"github.com/trailscout/routefinder/internal/route"
	"github.com/trailscout/routefinder/internal/sink"
	"github.com/trailscout/routefinder/internal/stats"
)

// ErrNoPoints is returned when a sector has no samples to fit against.
var ErrNoPoints = errors.New("sector: no points for sector")

// Params configures one sector run.
type Params struct {
	GAConfig       ga.Config
	PopulationSize int
	MinWaypoints   int
	MaxWaypoints   int
	MaxIterations  int
	ExitRepeats    int
	ExitEps        float64

	DensityStep    float64
	QuadMaxObjects int
	QuadMaxLevels  int

	// LoadPopulationPath resumes from a prior run's population file when
	// non-empty.
	LoadPopulationPath string

	// SeedDatasetID seeds the initial population from a historical dataset
	// when non-negative. A resume file takes precedence.
	SeedDatasetID int

	// PopulationOutPath receives the final population of every search.
	PopulationOutPath string
}

// Runner owns the search for one sector. Runners for different sectors run
// on separate goroutines and share only the loader, the projectors, the
// aggregator, and the sink.
type Runner struct {
	loader     db.Loader
	sector     db.Sector
	params     Params
	ddToUTM    geo.Projector
	utmToDD    geo.Projector
	results    sink.ResultSink
	aggregator *stats.Aggregator
	rng        *rand.Rand
}

// NewRunner wires a runner. rng may be nil for a time-seeded source.
func NewRunner(loader db.Loader, sector db.Sector, params Params,
	ddToUTM, utmToDD geo.Projector, results sink.ResultSink,
	aggregator *stats.Aggregator, rng *rand.Rand) *Runner {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	zap.L().Debug("constructed runner", zap.String("sector", sector.ID))
	return &Runner{
		loader:     loader,
		sector:     sector,
		params:     params,
		ddToUTM:    ddToUTM,
		utmToDD:    utmToDD,
		results:    results,
		aggregator: aggregator,
		rng:        rng,
	}
}

// Run executes the whole sector search. A failure terminates only this
// sector; other sectors keep running.
func (r *Runner) Run() error {
	start := time.Now()
	log := zap.L().With(zap.String("sector", r.sector.ID))
	log.Info("sector run starting")

	points, err := r.loader.LoadPoints(r.sector.ID, -1)
	if err != nil {
		return err
	}
	if len(points) == 0 {
		return errors.Wrapf(ErrNoPoints, "sector %s", r.sector.ID)
	}

	pointRange := db.Normalize(points, nil)
	maxX := int(pointRange.MaxX-pointRange.MinX) + 1
	maxY := int(pointRange.MaxY-pointRange.MinY) + 1
	gridZone := points[0].GridZone
	log.Debug("normalized sector",
		zap.Int("points", len(points)),
		zap.Int("maxX", maxX),
		zap.Int("maxY", maxY),
		zap.Int("gridZone", gridZone))

	// Endpoints into normalized planar space.
	origin := pointRange.Origin()
	startPoint := r.ddToUTM.Project(r.sector.Start.LLA()).Sub(origin)
	endPoint := r.ddToUTM.Project(r.sector.End.LLA()).Sub(origin)
	log.Debug("sector endpoints",
		zap.Stringer("start", startPoint),
		zap.Stringer("end", endPoint))

	ctx, err := r.buildContext(points, startPoint, endPoint)
	if err != nil {
		return err
	}

	shapeFor := func(numWaypoints int) route.Shape {
		return route.NewShape(numWaypoints, maxX, maxY)
	}
	initial, err := r.initialPopulations(shapeFor, origin)
	if err != nil {
		return err
	}

	workers := pool.New(r.params.GAConfig.Threads)
	defer workers.Close()

	for numWaypoints := r.params.MinWaypoints; numWaypoints <= r.params.MaxWaypoints; numWaypoints++ {
		population := route.FillRandom(initial[numWaypoints],
			r.params.PopulationSize, shapeFor(numWaypoints), r.rng)
		log.Debug("initial population ready",
			zap.Int("waypoints", numWaypoints),
			zap.String("sample", route.PrintPopulation(population, 10)))

		emit := r.emitFunc(numWaypoints, origin, gridZone)
		optimizer := ga.New(r.params.GAConfig, population, workers, r.aggregator, emit, r.rng)
		exit := ga.NewExitCondition(r.params.ExitRepeats, r.params.ExitEps)

		final := optimizer.Run(ctx, r.sector.ID, numWaypoints, r.params.MaxIterations, exit)
		log.Info("search converged",
			zap.Int("waypoints", numWaypoints),
			zap.Float64("bestFitness", final[0].Fitness()))
		log.Debug("most fit members", zap.String("sample", route.PrintPopulation(final, 10)))

		if r.params.PopulationOutPath != "" {
			endpoints := sink.Endpoints(r.sector.Start.LLA(), r.sector.End.LLA())
			if err := sink.AppendPopulation(r.params.PopulationOutPath, numWaypoints, final, endpoints); err != nil {
				log.Warn("population append failed", zap.Error(err))
			}
		}
	}

	elapsed := time.Since(start)
	if r.aggregator != nil {
		r.aggregator.ReportTiming(stats.SubsystemSector, elapsed)
	}
	log.Info("sector run finished", zap.Duration("elapsed", elapsed))
	return nil
}

// buildContext indexes the normalized points and bundles the immutable
// per-sector state.
func (r *Runner) buildContext(points []db.DatabasePoint, startPoint, endPoint geometry.Point) (*route.Context, error) {
	geoPoints, err := normalizedPoints(points)
	if err != nil {
		return nil, err
	}

	bounds := route.PointBounds(geoPoints, startPoint, endPoint)
	items := make([]quadtree.Item, len(geoPoints))
	for i, p := range geoPoints {
		items[i] = quadtree.Item{ID: i, Point: p}
	}
	tree, err := quadtree.Build(bounds, items, r.params.QuadMaxObjects, r.params.QuadMaxLevels)
	if err != nil {
		return nil, err
	}
	return route.NewContext(geoPoints, tree, startPoint, endPoint, r.params.DensityStep), nil
}

// initialPopulations resolves the population source: resume file, seed
// dataset, or nothing (random fill happens per waypoint count).
func (r *Runner) initialPopulations(shapeFor func(int) route.Shape, origin geometry.Point) (map[int][]*route.Route, error) {
	log := zap.L().With(zap.String("sector", r.sector.ID))

	if r.params.LoadPopulationPath != "" {
		loaded, _, err := sink.LoadPopulation(r.params.LoadPopulationPath,
			r.params.MinWaypoints, r.params.MaxWaypoints, r.params.PopulationSize)
		if err != nil {
			return nil, err
		}
		// Members whose recorded shape disagrees with this run cannot breed
		// with fresh routes; drop them and let random fill cover the gap.
		for k, population := range loaded {
			want := shapeFor(k)
			kept := population[:0]
			for _, member := range population {
				if member.Shape() == want {
					kept = append(kept, member)
				} else {
					log.Warn("dropping resumed member with mismatched shape",
						zap.Int("waypoints", k))
				}
			}
			loaded[k] = kept
		}
		log.Info("resumed population from disk",
			zap.String("path", r.params.LoadPopulationPath))
		return loaded, nil
	}

	if r.params.SeedDatasetID >= 0 {
		datasetPoints, err := r.loader.LoadPoints(r.sector.ID, r.params.SeedDatasetID)
		if err != nil {
			return nil, err
		}
		// Normalize against the main run's origin so seed vertices land in
		// the same frame.
		db.Normalize(datasetPoints, &origin)
		dataset := make([]geometry.Point, len(datasetPoints))
		for i, p := range datasetPoints {
			dataset[i] = p.Normalized()
		}
		log.Info("seeding population from dataset",
			zap.Int("dataset", r.params.SeedDatasetID),
			zap.Int("points", len(dataset)))
		return SeedPopulations(dataset, r.params.MinWaypoints, r.params.MaxWaypoints,
			r.params.PopulationSize, shapeFor, r.rng), nil
	}

	return map[int][]*route.Route{}, nil
}

// emitFunc adapts the sink to the optimizer's per-generation callback.
func (r *Runner) emitFunc(numWaypoints int, origin geometry.Point, gridZone int) ga.EmitFunc {
	if r.results == nil {
		return nil
	}
	return func(best *route.Route, iteration int) {
		vs := best.Vertices()
		vertices := make([]geometry.Point, len(vs))
		for i, v := range vs {
			vertices[i] = geometry.Pt(float64(v.X), float64(v.Y))
		}
		r.results.Update(sink.RouteResult{
			SectorID:     r.sector.ID,
			NumWaypoints: numWaypoints,
			Iteration:    iteration,
			Fitness:      best.Fitness(),
			DNA:          best.DNA(),
			Vertices:     vertices,
			Origin:       origin,
			GridZone:     gridZone,
		})
	}
}
