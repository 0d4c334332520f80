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

// Package config parses and validates the command-line surface of the
// route finder. Flags are bound through viper so every option except
// --start-point and --end-point can also be supplied via ROUTEFINDER_*
// environment variables; those two are read from the flag set only.
package config

import (
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cast"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/trailscout/routefinder/internal/ga"
)

// ErrInvalidConfig marks invalid or missing CLI arguments.
var ErrInvalidConfig = errors.New("config: invalid configuration")

const envPrefix = "ROUTEFINDER"

// Options is the full run configuration.
type Options struct {
	DatabasePath string
	StartLat     float64
	StartLon     float64
	EndLat       float64
	EndLon       float64

	SectorFilter string
	EPSGCode     int

	PopulationSize int
	MinWaypoints   int
	MaxWaypoints   int
	MaxIterations  int
	ExitRepeats    int
	ExitEps        float64

	PreservationRate float64
	SelectionRate    float64
	MutationRate     float64
	RandomVertRate   float64
	Threads          int

	DensityStep    float64
	QuadMaxObjects int
	QuadMaxLevels  int

	StatsPath       string
	InputPopulation string
	SeedDatasetID   int

	MetricsListen string
	Verbose       bool
}

// Defaults mirrors the documented flag defaults.
func Defaults() Options {
	return Options{
		EPSGCode:         32613,
		PopulationSize:   2000,
		MinWaypoints:     8,
		MaxWaypoints:     14,
		MaxIterations:    500,
		ExitRepeats:      0, // derived from MaxIterations when unset
		ExitEps:          0.001,
		PreservationRate: 0.05,
		SelectionRate:    0.4,
		MutationRate:     0.8,
		RandomVertRate:   0.05,
		Threads:          10,
		DensityStep:      25,
		QuadMaxObjects:   5,
		QuadMaxLevels:    5,
		StatsPath:        "./ga_run_stats",
		SeedDatasetID:    -1,
	}
}

// GAConfig projects the optimizer-facing subset.
func (o Options) GAConfig() ga.Config {
	return ga.Config{
		PreservationRate: o.PreservationRate,
		SelectionRate:    o.SelectionRate,
		MutationRate:     o.MutationRate,
		Threads:          o.Threads,
	}
}

// FlagSet declares every CLI flag against the defaults.
func FlagSet() *pflag.FlagSet {
	d := Defaults()
	fs := pflag.NewFlagSet("routefinder", pflag.ContinueOnError)

	fs.StringP("database", "d", "", "path to the point database (required)")
	fs.Float64Slice("start-point", nil, "start coordinate as lat,lon (required)")
	fs.Float64Slice("end-point", nil, "end coordinate as lat,lon (required)")
	fs.String("sector", "", "restrict the run to one sector id")
	fs.Int("epsg", d.EPSGCode, "EPSG code for lat/lon <-> UTM conversions")
	fs.Int("population", d.PopulationSize, "population size")
	fs.Int("min-waypoints", d.MinWaypoints, "minimum number of waypoints")
	fs.Int("max-waypoints", d.MaxWaypoints, "maximum number of waypoints")
	fs.IntP("iterations", "i", d.MaxIterations, "generation cap per waypoint count")
	fs.Int("exit-repeats", d.ExitRepeats, "consecutive flat iterations before early exit (0 derives 10% of iterations)")
	fs.Float64("exit-eps", d.ExitEps, "fitness flatness threshold for early exit")
	fs.Float64P("preservation-rate", "p", d.PreservationRate, "preservation rate [0-1]")
	fs.Float64P("selection-rate", "s", d.SelectionRate, "selection rate [0-1]")
	fs.Float64P("mutation-rate", "m", d.MutationRate, "mutation rate [0-1]")
	fs.Float64P("random-vert-rate", "r", d.RandomVertRate, "random vertex rate [0-1]")
	fs.Int("threads", d.Threads, "worker pool size for fitness evaluation")
	fs.Float64("density-step", d.DensityStep, "density march step distance in meters")
	fs.Int("quad-max-objects", d.QuadMaxObjects, "quadtree bucket size before splitting")
	fs.Int("quad-max-levels", d.QuadMaxLevels, "quadtree maximum depth")
	fs.String("stats", d.StatsPath, "base path for the stats CSV files")
	fs.String("input-population", "", "resume the initial population from this file")
	fs.Int("seed-dataset", d.SeedDatasetID, "dataset id used to seed the initial population (<0 disables)")
	fs.String("metrics-listen", "", "address for the Prometheus metrics endpoint (empty disables)")
	fs.BoolP("verbose", "v", false, "enable debug logging")
	return fs
}

// Parse reads flags (and ROUTEFINDER_* environment variables) into
// Options and validates them.
func Parse(args []string) (Options, error) {
	fs := FlagSet()
	if err := fs.Parse(args); err != nil {
		return Options{}, errors.Wrapf(ErrInvalidConfig, "%v", err)
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(fs); err != nil {
		return Options{}, errors.Wrapf(ErrInvalidConfig, "%v", err)
	}

	o := Options{
		DatabasePath:     v.GetString("database"),
		SectorFilter:     v.GetString("sector"),
		EPSGCode:         cast.ToInt(v.Get("epsg")),
		PopulationSize:   cast.ToInt(v.Get("population")),
		MinWaypoints:     cast.ToInt(v.Get("min-waypoints")),
		MaxWaypoints:     cast.ToInt(v.Get("max-waypoints")),
		MaxIterations:    cast.ToInt(v.Get("iterations")),
		ExitRepeats:      cast.ToInt(v.Get("exit-repeats")),
		ExitEps:          cast.ToFloat64(v.Get("exit-eps")),
		PreservationRate: cast.ToFloat64(v.Get("preservation-rate")),
		SelectionRate:    cast.ToFloat64(v.Get("selection-rate")),
		MutationRate:     cast.ToFloat64(v.Get("mutation-rate")),
		RandomVertRate:   cast.ToFloat64(v.Get("random-vert-rate")),
		Threads:          cast.ToInt(v.Get("threads")),
		DensityStep:      cast.ToFloat64(v.Get("density-step")),
		QuadMaxObjects:   cast.ToInt(v.Get("quad-max-objects")),
		QuadMaxLevels:    cast.ToInt(v.Get("quad-max-levels")),
		StatsPath:        v.GetString("stats"),
		InputPopulation:  v.GetString("input-population"),
		SeedDatasetID:    cast.ToInt(v.Get("seed-dataset")),
		MetricsListen:    v.GetString("metrics-listen"),
		Verbose:          v.GetBool("verbose"),
	}

	// Coordinate pairs come straight off the flag set; viper has no
	// float64Slice round-trip.
	start, err := fs.GetFloat64Slice("start-point")
	if err != nil {
		return Options{}, errors.Wrapf(ErrInvalidConfig, "%v", err)
	}
	end, err := fs.GetFloat64Slice("end-point")
	if err != nil {
		return Options{}, errors.Wrapf(ErrInvalidConfig, "%v", err)
	}
	if len(start) == 0 || len(end) == 0 {
		return Options{}, errors.Wrap(ErrInvalidConfig, "start-point and end-point are required")
	}
	if len(start) != 2 {
		return Options{}, errors.Wrapf(ErrInvalidConfig, "start-point needs lat,lon, got %d values", len(start))
	}
	if len(end) != 2 {
		return Options{}, errors.Wrapf(ErrInvalidConfig, "end-point needs lat,lon, got %d values", len(end))
	}
	o.StartLat, o.StartLon = start[0], start[1]
	o.EndLat, o.EndLon = end[0], end[1]

	if o.ExitRepeats <= 0 {
		o.ExitRepeats = o.MaxIterations / 10
		if o.ExitRepeats < 1 {
			o.ExitRepeats = 1
		}
	}

	if err := o.Validate(); err != nil {
		return Options{}, err
	}
	return o, nil
}

// Validate enforces ranges and the database path.
func (o Options) Validate() error {
	if o.DatabasePath == "" {
		return errors.Wrap(ErrInvalidConfig, "database path is required")
	}
	if _, err := os.Stat(o.DatabasePath); err != nil {
		return errors.Wrapf(ErrInvalidConfig, "database path %s: %v", o.DatabasePath, err)
	}
	for name, rate := range map[string]float64{
		"preservation-rate": o.PreservationRate,
		"selection-rate":    o.SelectionRate,
		"mutation-rate":     o.MutationRate,
		"random-vert-rate":  o.RandomVertRate,
	} {
		if rate < 0 || rate > 1 {
			return errors.Wrapf(ErrInvalidConfig, "%s %f outside [0, 1]", name, rate)
		}
	}
	if o.PopulationSize < 10 {
		return errors.Wrapf(ErrInvalidConfig, "population %d below minimum 10", o.PopulationSize)
	}
	if o.MinWaypoints < 1 || o.MaxWaypoints < o.MinWaypoints {
		return errors.Wrapf(ErrInvalidConfig, "waypoint range [%d, %d]", o.MinWaypoints, o.MaxWaypoints)
	}
	if o.MaxIterations < 1 {
		return errors.Wrapf(ErrInvalidConfig, "iterations %d", o.MaxIterations)
	}
	if o.Threads < 1 {
		return errors.Wrapf(ErrInvalidConfig, "threads %d", o.Threads)
	}
	if o.DensityStep <= 0 {
		return errors.Wrapf(ErrInvalidConfig, "density-step %f", o.DensityStep)
	}
	return nil
}

// Usage renders the flag help text.
func Usage() string {
	return FlagSet().FlagUsages()
}
