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

package sink

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/trailscout/routefinder/internal/geometry"
	"github.com/trailscout/routefinder/internal/route"
)

var populationHeader = []string{
	"num_waypoints", "population", "dna", "max_x", "max_y",
	"start_point_lat", "start_point_lon", "end_point_lat", "end_point_lon",
	"fitness",
}

// PopulationEndpoints carries the geographic endpoints written alongside
// each population row so a resumed run can verify them.
type PopulationEndpoints struct {
	StartLat float64
	StartLon float64
	EndLat   float64
	EndLon   float64
}

// AppendPopulation appends the final population of one (sector run,
// waypoint count) search to the population CSV, creating the file with a
// header when absent.
func AppendPopulation(path string, numWaypoints int, population []*route.Route, endpoints PopulationEndpoints) error {
	_, statErr := os.Stat(path)
	isNew := statErr != nil

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return errors.Wrapf(ErrIO, "open %s: %v", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if isNew {
		if err := w.Write(populationHeader); err != nil {
			return errors.Wrapf(ErrIO, "header %s: %v", path, err)
		}
	}
	for i, member := range population {
		shape := member.Shape()
		row := []string{
			strconv.Itoa(numWaypoints),
			strconv.Itoa(i),
			member.DNA(),
			strconv.Itoa(shape.MaxX),
			strconv.Itoa(shape.MaxY),
			strconv.FormatFloat(endpoints.StartLat, 'f', 8, 64),
			strconv.FormatFloat(endpoints.StartLon, 'f', 8, 64),
			strconv.FormatFloat(endpoints.EndLat, 'f', 8, 64),
			strconv.FormatFloat(endpoints.EndLon, 'f', 8, 64),
			strconv.FormatFloat(member.Fitness(), 'f', 6, 64),
		}
		if err := w.Write(row); err != nil {
			return errors.Wrapf(ErrIO, "row %s: %v", path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return errors.Wrapf(ErrIO, "flush %s: %v", path, err)
	}
	zap.L().Debug("appended population",
		zap.String("path", path),
		zap.Int("waypoints", numWaypoints),
		zap.Int("size", len(population)))
	return nil
}

// LoadPopulation reads the population CSV back into per-waypoint-count
// populations. Rows outside [minWaypoints, maxWaypoints] are skipped, and
// each population is capped at populationSize. Rows whose dna does not
// parse against their recorded shape are dropped with a warning.
func LoadPopulation(path string, minWaypoints, maxWaypoints, populationSize int) (map[int][]*route.Route, PopulationEndpoints, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, PopulationEndpoints{}, errors.Wrapf(ErrIO, "open %s: %v", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(populationHeader)

	// Header row.
	if _, err := r.Read(); err != nil {
		return nil, PopulationEndpoints{}, errors.Wrapf(ErrIO, "header %s: %v", path, err)
	}

	out := make(map[int][]*route.Route)
	var endpoints PopulationEndpoints
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, endpoints, errors.Wrapf(ErrIO, "read %s: %v", path, err)
		}

		numWaypoints, err := strconv.Atoi(record[0])
		if err != nil || numWaypoints < minWaypoints || numWaypoints > maxWaypoints {
			continue
		}
		if len(out[numWaypoints]) >= populationSize {
			continue
		}

		maxX, errX := strconv.Atoi(record[3])
		maxY, errY := strconv.Atoi(record[4])
		if errX != nil || errY != nil {
			zap.L().Warn("population row has bad extents", zap.Strings("row", record))
			continue
		}
		member, err := route.New(record[2], route.NewShape(numWaypoints, maxX, maxY))
		if err != nil {
			zap.L().Warn("population row has bad dna",
				zap.String("dna", record[2]),
				zap.Error(err))
			continue
		}
		out[numWaypoints] = append(out[numWaypoints], member)

		endpoints.StartLat, _ = strconv.ParseFloat(record[5], 64)
		endpoints.StartLon, _ = strconv.ParseFloat(record[6], 64)
		endpoints.EndLat, _ = strconv.ParseFloat(record[7], 64)
		endpoints.EndLon, _ = strconv.ParseFloat(record[8], 64)
	}

	zap.L().Debug("loaded population file",
		zap.String("path", path),
		zap.Int("waypointCounts", len(out)))
	return out, endpoints, nil
}

// Endpoints packages lat/lon endpoint points into the CSV side fields.
func Endpoints(startLLA, endLLA geometry.Point) PopulationEndpoints {
	return PopulationEndpoints{
		StartLat: startLLA.X,
		StartLon: startLLA.Y,
		EndLat:   endLLA.X,
		EndLon:   endLLA.Y,
	}
}
