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

// routefinder searches a recorded GPS point cloud for near-optimal
// waypoint routes, one evolutionary search per sector and waypoint count.
package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/trailscout/routefinder/internal/config"
	"github.com/trailscout/routefinder/internal/db"
	"github.com/trailscout/routefinder/internal/geo"
	"github.com/trailscout/routefinder/internal/sector"
	"github.com/trailscout/routefinder/internal/sink"
	"github.com/trailscout/routefinder/internal/stats"
	"github.com/trailscout/routefinder/pkg/metrics"
)

// Exit codes.
const (
	exitOK      = 0
	exitInvalid = 1
	exitRuntime = 2
)

const (
	waypointsCSVPath = "waypoints.csv"
	waypointsKMLPath = "waypoints.kml"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	opts, err := config.Parse(args)
	if err != nil {
		setupLogger(false)
		zap.L().Warn("invalid arguments", zap.Error(err))
		zap.L().Warn(config.Usage())
		return exitInvalid
	}
	setupLogger(opts.Verbose)
	defer zap.L().Sync() //nolint:errcheck

	if err := execute(opts); err != nil {
		switch {
		case errors.Is(err, config.ErrInvalidConfig), errors.Is(err, db.ErrDatabase):
			zap.L().Error("run failed", zap.Error(err))
			return exitInvalid
		default:
			zap.L().Error("unrecoverable runtime error", zap.Error(err))
			return exitRuntime
		}
	}
	return exitOK
}

// setupLogger installs the global zap logger.
func setupLogger(verbose bool) {
	var cfg zap.Config
	if verbose {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
		cfg.Encoding = "console"
		cfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	}
	logger, err := cfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger setup failed: %v\n", err)
		os.Exit(exitRuntime)
	}
	zap.ReplaceGlobals(logger)
}

func execute(opts config.Options) error {
	loader, err := db.Open(opts.DatabasePath)
	if err != nil {
		return err
	}
	defer loader.Close()

	sectors, err := loader.LoadSectors()
	if err != nil {
		return err
	}
	if opts.SectorFilter != "" {
		sectors = filterSectors(sectors, opts.SectorFilter)
		if len(sectors) == 0 {
			return errors.Wrapf(config.ErrInvalidConfig, "sector %s not found", opts.SectorFilter)
		}
	}
	zap.L().Info("loaded sectors", zap.Int("count", len(sectors)))

	ddToUTM, err := geo.NewDDToUTM(opts.EPSGCode)
	if err != nil {
		return err
	}
	utmToDD, err := geo.NewUTMToDD(opts.EPSGCode)
	if err != nil {
		return err
	}

	aggregator := stats.NewAggregator()
	if opts.MetricsListen != "" {
		startMetrics(opts.MetricsListen, aggregator)
	}
	aggregator.StartWriter(opts.StatsPath)
	defer func() {
		aggregator.StopWriter()
		aggregator.Close()
	}()

	results, err := sink.NewWaypointWriter(waypointsCSVPath, waypointsKMLPath, utmToDD)
	if err != nil {
		return err
	}
	defer results.Close()

	params := sector.Params{
		GAConfig:           opts.GAConfig(),
		PopulationSize:     opts.PopulationSize,
		MinWaypoints:       opts.MinWaypoints,
		MaxWaypoints:       opts.MaxWaypoints,
		MaxIterations:      opts.MaxIterations,
		ExitRepeats:        opts.ExitRepeats,
		ExitEps:            opts.ExitEps,
		DensityStep:        opts.DensityStep,
		QuadMaxObjects:     opts.QuadMaxObjects,
		QuadMaxLevels:      opts.QuadMaxLevels,
		LoadPopulationPath: opts.InputPopulation,
		SeedDatasetID:      opts.SeedDatasetID,
		PopulationOutPath:  populationOutPath(opts.InputPopulation),
	}

	// One goroutine per sector; a failed sector logs and falls out of the
	// result set without stopping the others.
	var group errgroup.Group
	for _, s := range sectors {
		s := withEndpointFallback(s, opts)
		group.Go(func() error {
			runner := sector.NewRunner(loader, s, params,
				ddToUTM, utmToDD, results, aggregator, nil)
			if err := runner.Run(); err != nil {
				zap.L().Error("sector terminated early",
					zap.String("sector", s.ID),
					zap.Error(err))
			}
			return nil
		})
	}
	group.Wait() //nolint:errcheck

	zap.L().Info("all sectors finished")
	return nil
}

// withEndpointFallback substitutes the CLI start/end coordinates when the
// sector's endpoint row carries no geographic data.
func withEndpointFallback(s db.Sector, opts config.Options) db.Sector {
	if s.Start.Latitude == 0 && s.Start.Longitude == 0 {
		s.Start.Latitude = opts.StartLat
		s.Start.Longitude = opts.StartLon
	}
	if s.End.Latitude == 0 && s.End.Longitude == 0 {
		s.End.Latitude = opts.EndLat
		s.End.Longitude = opts.EndLon
	}
	return s
}

// startMetrics registers the optimizer collectors, mirrors aggregator
// reports into them, and serves the Prometheus endpoint.
func startMetrics(listen string, aggregator *stats.Aggregator) {
	registry := prometheus.NewRegistry()
	metrics.RegisterGAMetrics(registry)
	aggregator.SetMetrics(metrics.Recorder{})

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	go func() {
		if err := http.ListenAndServe(listen, mux); err != nil {
			zap.L().Warn("metrics endpoint failed", zap.Error(err))
		}
	}()
	zap.L().Info("serving metrics", zap.String("listen", listen))
}

// filterSectors keeps only the named sector.
func filterSectors(sectors []db.Sector, id string) []db.Sector {
	var out []db.Sector
	for _, s := range sectors {
		if s.ID == id {
			out = append(out, s)
		}
	}
	return out
}

// populationOutPath is where final populations are appended. A resumed run
// appends back to its input file.
func populationOutPath(input string) string {
	if input != "" {
		return input
	}
	return "population.csv"
}
