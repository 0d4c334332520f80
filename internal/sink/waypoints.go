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

// Package sink materializes search results: the waypoints CSV and KML
// artifacts rewritten on every update, and the resumable population CSV.
package sink

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strconv"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/panjf2000/ants/v2"
	"github.com/samber/lo"
	kml "github.com/twpayne/go-kml/v2"
	"go.uber.org/zap"

	"github.com/trailscout/routefinder/internal/geo"
	"github.com/trailscout/routefinder/internal/geometry"
)

// ErrIO marks artifact write failures. The current iteration continues;
// writes are dropped until the next attempt.
var ErrIO = errors.New("sink: artifact write failure")

// Artifact file headers and style names.
var waypointsHeader = []string{
	"SectorId", "NumWaypoints", "Iteration", "Fitness",
	"GridZone", "Easting", "Northing", "Latitude", "Longitude", "DNA",
}

const lineStyleID = "thickLine"

// RouteResult is one emitted best route in normalized coordinates, plus
// everything needed to take it back to geographic space.
type RouteResult struct {
	SectorID     string
	NumWaypoints int
	Iteration    int
	Fitness      float64
	DNA          string

	// Vertices are the intermediate vertices in normalized coordinates.
	Vertices []geometry.Point

	// Origin is the normalization origin (minX, minY) of the sector run.
	Origin geometry.Point

	// GridZone is the UTM zone recorded from the sector's points.
	GridZone int
}

// ResultSink receives the best route after each optimizer generation.
// Implementations must be safe for concurrent use across sector runners.
type ResultSink interface {
	Update(result RouteResult)
}

// vertexRecord is one de-normalized, re-projected route vertex.
type vertexRecord struct {
	gridZone  int
	easting   float64
	northing  float64
	latitude  float64
	longitude float64
	fitness   float64
	dna       string
}

// WaypointWriter keeps the master vertex list (sector -> waypoint count ->
// iteration -> vertices) and rewrites waypoints.csv and waypoints.kml on
// every update. File writes run on a single-worker pool: Update returns once
// the rewrite is handed to the worker, and waits while a previous rewrite is
// still running.
type WaypointWriter struct {
	csvPath   string
	kmlPath   string
	projector geo.Projector

	mu      sync.RWMutex
	entries map[string]map[int]map[int][]vertexRecord

	emitPool *ants.Pool
	emitWG   sync.WaitGroup
}

var _ ResultSink = (*WaypointWriter)(nil)

// NewWaypointWriter builds the writer. projector converts (easting,
// northing) back to (latitude, longitude).
func NewWaypointWriter(csvPath, kmlPath string, projector geo.Projector) (*WaypointWriter, error) {
	emitPool, err := ants.NewPool(1)
	if err != nil {
		return nil, errors.Wrapf(ErrIO, "emit pool: %v", err)
	}
	return &WaypointWriter{
		csvPath:   csvPath,
		kmlPath:   kmlPath,
		projector: projector,
		entries:   make(map[string]map[int]map[int][]vertexRecord),
		emitPool:  emitPool,
	}, nil
}

// Update de-normalizes and re-projects the route, records it under
// (sector, waypoint count, iteration), and schedules a full rewrite of both
// artifacts.
func (w *WaypointWriter) Update(result RouteResult) {
	records := make([]vertexRecord, 0, len(result.Vertices))
	for _, v := range result.Vertices {
		utm := v.Add(result.Origin)
		lla := w.projector.Project(utm)
		records = append(records, vertexRecord{
			gridZone:  result.GridZone,
			easting:   utm.X,
			northing:  utm.Y,
			latitude:  lla.X,
			longitude: lla.Y,
			fitness:   result.Fitness,
			dna:       result.DNA,
		})
	}

	w.mu.Lock()
	bySector, ok := w.entries[result.SectorID]
	if !ok {
		bySector = make(map[int]map[int][]vertexRecord)
		w.entries[result.SectorID] = bySector
	}
	byCount, ok := bySector[result.NumWaypoints]
	if !ok {
		byCount = make(map[int][]vertexRecord)
		bySector[result.NumWaypoints] = byCount
	}
	byCount[result.Iteration] = records
	w.mu.Unlock()

	w.scheduleEmit()
}

// scheduleEmit queues one artifact rewrite on the single-worker pool.
func (w *WaypointWriter) scheduleEmit() {
	w.emitWG.Add(1)
	err := w.emitPool.Submit(func() {
		defer w.emitWG.Done()
		if err := w.writeCSV(); err != nil {
			zap.L().Warn("waypoints csv write failed", zap.Error(err))
		}
		if err := w.writeKML(); err != nil {
			zap.L().Warn("waypoints kml write failed", zap.Error(err))
		}
	})
	if err != nil {
		w.emitWG.Done()
		zap.L().Warn("emit submit failed", zap.Error(err))
	}
}

// Flush blocks until every scheduled rewrite has landed.
func (w *WaypointWriter) Flush() {
	w.emitWG.Wait()
}

// Close flushes and releases the emit pool.
func (w *WaypointWriter) Close() {
	w.Flush()
	w.emitPool.Release()
}

// sortedSectors returns the sector keys in sorted order. It takes no lock;
// callers hold the read lock.
func (w *WaypointWriter) sortedSectors() []string {
	sectors := lo.Keys(w.entries)
	sort.Strings(sectors)
	return sectors
}

func sortedInts(m map[int]map[int][]vertexRecord) []int {
	keys := lo.Keys(m)
	sort.Ints(keys)
	return keys
}

func sortedIterations(m map[int][]vertexRecord) []int {
	keys := lo.Keys(m)
	sort.Ints(keys)
	return keys
}

// writeCSV rewrites the full waypoints CSV.
func (w *WaypointWriter) writeCSV() error {
	f, err := os.Create(w.csvPath)
	if err != nil {
		return errors.Wrapf(ErrIO, "create %s: %v", w.csvPath, err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write(waypointsHeader); err != nil {
		return errors.Wrapf(ErrIO, "header %s: %v", w.csvPath, err)
	}

	w.mu.RLock()
	defer w.mu.RUnlock()
	for _, sector := range w.sortedSectors() {
		bySector := w.entries[sector]
		for _, count := range sortedInts(bySector) {
			byCount := bySector[count]
			for _, iteration := range sortedIterations(byCount) {
				for _, rec := range byCount[iteration] {
					row := []string{
						sector,
						strconv.Itoa(count),
						strconv.Itoa(iteration),
						strconv.FormatFloat(rec.fitness, 'f', 6, 64),
						strconv.Itoa(rec.gridZone),
						strconv.FormatFloat(rec.easting, 'f', 3, 64),
						strconv.FormatFloat(rec.northing, 'f', 3, 64),
						strconv.FormatFloat(rec.latitude, 'f', 8, 64),
						strconv.FormatFloat(rec.longitude, 'f', 8, 64),
						rec.dna,
					}
					if err := cw.Write(row); err != nil {
						return errors.Wrapf(ErrIO, "row %s: %v", w.csvPath, err)
					}
				}
			}
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.Wrapf(ErrIO, "flush %s: %v", w.csvPath, err)
	}
	return nil
}

// writeKML rewrites the full waypoints KML: one folder per sector, one
// placemark per (sector, waypoint count, iteration) line string.
func (w *WaypointWriter) writeKML() error {
	w.mu.RLock()
	folders := make([]kml.Element, 0, len(w.entries))
	for _, sector := range w.sortedSectors() {
		bySector := w.entries[sector]
		placemarks := []kml.Element{kml.Name(fmt.Sprintf("Sector %s", sector))}
		for _, count := range sortedInts(bySector) {
			byCount := bySector[count]
			for _, iteration := range sortedIterations(byCount) {
				coords := make([]kml.Coordinate, 0, len(byCount[iteration]))
				for _, rec := range byCount[iteration] {
					coords = append(coords, kml.Coordinate{
						Lon: rec.longitude,
						Lat: rec.latitude,
						Alt: 0,
					})
				}
				placemarks = append(placemarks, kml.Placemark(
					kml.Name(fmt.Sprintf("Waypoints %d (iteration %d)", count, iteration)),
					kml.StyleURL("#"+lineStyleID),
					kml.LineString(kml.Coordinates(coords...)),
				))
			}
		}
		folders = append(folders, kml.Folder(placemarks...))
	}
	w.mu.RUnlock()

	doc := []kml.Element{
		kml.Name("Waypoint List"),
		kml.SharedStyle(lineStyleID, kml.LineStyle(kml.Width(2.5))),
	}
	doc = append(doc, folders...)
	root := kml.KML(kml.Document(doc...))

	f, err := os.Create(w.kmlPath)
	if err != nil {
		return errors.Wrapf(ErrIO, "create %s: %v", w.kmlPath, err)
	}
	defer f.Close()
	if err := root.WriteIndent(f, "", "  "); err != nil {
		return errors.Wrapf(ErrIO, "write %s: %v", w.kmlPath, err)
	}
	return nil
}
