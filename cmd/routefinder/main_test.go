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

package main

import (
	"database/sql"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trailscout/routefinder/internal/geo"
	"github.com/trailscout/routefinder/internal/geometry"
)

// buildTestDatabase creates a one-sector point database whose samples run
// straight between the endpoints.
func buildTestDatabase(t *testing.T, dir string, startLLA, endLLA geometry.Point) string {
	t.Helper()
	path := filepath.Join(dir, "points.db")

	handle, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer handle.Close()

	ddToUTM, err := geo.NewDDToUTM(32613)
	require.NoError(t, err)
	utmToDD, err := geo.NewUTMToDD(32613)
	require.NoError(t, err)
	startUTM := ddToUTM.Project(startLLA)
	endUTM := ddToUTM.Project(endLLA)

	stmts := []string{
		`CREATE TABLE sector_list (sector_id TEXT)`,
		`CREATE TABLE sector_point_list (
			sectorId TEXT,
			startLatitude REAL, startLongitude REAL, startEasting REAL, startNorthing REAL,
			stopLatitude REAL, stopLongitude REAL, stopEasting REAL, stopNorthing REAL)`,
		`CREATE TABLE point_list (
			"index" INTEGER, latitude REAL, longitude REAL, gridZone INTEGER,
			easting REAL, northing REAL, timestamp TEXT, sectorId TEXT, datasetId TEXT)`,
		`INSERT INTO sector_list VALUES ('7')`,
	}
	for _, stmt := range stmts {
		_, err := handle.Exec(stmt)
		require.NoError(t, err)
	}

	_, err = handle.Exec(`INSERT INTO sector_point_list VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		"7", startLLA.X, startLLA.Y, startUTM.X, startUTM.Y,
		endLLA.X, endLLA.Y, endUTM.X, endUTM.Y)
	require.NoError(t, err)

	for i := 0; i < 30; i++ {
		utm := geometry.Lerp(startUTM, endUTM, float64(i)/29.0)
		lla := utmToDD.Project(utm)
		_, err = handle.Exec(
			`INSERT INTO point_list VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			i, lla.X, lla.Y, 13, utm.X, utm.Y,
			fmt.Sprintf("2020-12-20T10:00:%02d", i), "7", "1")
		require.NoError(t, err)
	}
	return path
}

func TestRun_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	origWD, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(origWD) })

	startLLA := geometry.Pt(39.5000, -105.1000)
	endLLA := geometry.Pt(39.5040, -105.1000)
	dbPath := buildTestDatabase(t, dir, startLLA, endLLA)

	code := run([]string{
		"--database", dbPath,
		"--start-point", "39.5000,-105.1000",
		"--end-point", "39.5040,-105.1000",
		"--population", "30",
		"--min-waypoints", "2",
		"--max-waypoints", "2",
		"--iterations", "3",
		"--exit-repeats", "10",
		"--threads", "2",
		"--stats", filepath.Join(dir, "stats"),
	})
	require.Equal(t, exitOK, code)

	// Waypoint artifacts exist with the expected shape.
	f, err := os.Open(filepath.Join(dir, "waypoints.csv"))
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Greater(t, len(records), 1)
	assert.Equal(t, "SectorId", records[0][0])
	assert.Equal(t, "7", records[1][0])

	kml, err := os.ReadFile(filepath.Join(dir, "waypoints.kml"))
	require.NoError(t, err)
	assert.Contains(t, string(kml), "Sector 7")

	// Stats files carry the run's iterations.
	stats, err := os.ReadFile(filepath.Join(dir, "stats.iteration.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(stats), "SectorId,NumWaypoints,Iteration")

	// The final population file supports resuming.
	_, err = os.Stat(filepath.Join(dir, "population.csv"))
	assert.NoError(t, err)
}

func TestRun_InvalidArgumentsExitCode(t *testing.T) {
	assert.Equal(t, exitInvalid, run([]string{"--database", "/does/not/exist.db"}))
	assert.Equal(t, exitInvalid, run(nil))
}

func TestRun_UnknownSectorExitCode(t *testing.T) {
	dir := t.TempDir()
	origWD, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(origWD) })
	dbPath := buildTestDatabase(t, dir,
		geometry.Pt(39.5000, -105.1000), geometry.Pt(39.5040, -105.1000))

	code := run([]string{
		"--database", dbPath,
		"--start-point", "39.5000,-105.1000",
		"--end-point", "39.5040,-105.1000",
		"--sector", "nope",
	})
	assert.Equal(t, exitInvalid, code)
}
