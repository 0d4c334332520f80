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

package db

import (
	"database/sql"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	_ "modernc.org/sqlite"
)

// ErrDatabase marks open and query failures against the point database.
var ErrDatabase = errors.New("db: database failure")

// Loader is the read-only view of the point database used by the sector
// runners.
type Loader interface {
	// LoadSectors returns every sector with its endpoint pair.
	LoadSectors() ([]Sector, error)

	// LoadPoints returns points ordered by timestamp. Empty sectorID means
	// all sectors; datasetID < 0 means all datasets.
	LoadPoints(sectorID string, datasetID int) ([]DatabasePoint, error)

	// Close releases the underlying handle.
	Close() error
}

// SQLiteLoader reads the sqlite point database. Safe for concurrent use;
// database/sql serializes access to the handle.
type SQLiteLoader struct {
	db   *sql.DB
	path string
}

var _ Loader = (*SQLiteLoader)(nil)

// Open opens the sqlite database at path.
func Open(path string) (*SQLiteLoader, error) {
	handle, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(ErrDatabase, "open %s: %v", path, err)
	}
	if err := handle.Ping(); err != nil {
		handle.Close()
		return nil, errors.Wrapf(ErrDatabase, "ping %s: %v", path, err)
	}
	zap.L().Debug("opened point database", zap.String("path", path))
	return &SQLiteLoader{db: handle, path: path}, nil
}

// LoadSectors loads sector ids and their endpoint coordinates.
func (l *SQLiteLoader) LoadSectors() ([]Sector, error) {
	ids, err := l.loadSectorIDs()
	if err != nil {
		return nil, err
	}
	endpoints, err := l.loadSectorEndpoints()
	if err != nil {
		return nil, err
	}

	sectors := make([]Sector, 0, len(ids))
	for _, id := range ids {
		s, ok := endpoints[id]
		if !ok {
			zap.L().Warn("sector has no endpoint row", zap.String("sector", id))
			continue
		}
		sectors = append(sectors, s)
	}
	zap.L().Debug("loaded sector list", zap.Int("count", len(sectors)))
	return sectors, nil
}

func (l *SQLiteLoader) loadSectorIDs() ([]string, error) {
	rows, err := l.db.Query(`SELECT sector_id FROM sector_list`)
	if err != nil {
		return nil, errors.Wrapf(ErrDatabase, "sector_list query: %v", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrapf(ErrDatabase, "sector_list scan: %v", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(ErrDatabase, "sector_list rows: %v", err)
	}
	return ids, nil
}

func (l *SQLiteLoader) loadSectorEndpoints() (map[string]Sector, error) {
	rows, err := l.db.Query(`
		SELECT sectorId,
		       startLatitude, startLongitude, startEasting, startNorthing,
		       stopLatitude, stopLongitude, stopEasting, stopNorthing
		FROM sector_point_list`)
	if err != nil {
		return nil, errors.Wrapf(ErrDatabase, "sector_point_list query: %v", err)
	}
	defer rows.Close()

	out := make(map[string]Sector)
	for rows.Next() {
		var s Sector
		if err := rows.Scan(&s.ID,
			&s.Start.Latitude, &s.Start.Longitude, &s.Start.Easting, &s.Start.Northing,
			&s.End.Latitude, &s.End.Longitude, &s.End.Easting, &s.End.Northing); err != nil {
			return nil, errors.Wrapf(ErrDatabase, "sector_point_list scan: %v", err)
		}
		s.Start.SectorID = s.ID
		s.End.SectorID = s.ID
		out[s.ID] = s
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(ErrDatabase, "sector_point_list rows: %v", err)
	}
	return out, nil
}

// LoadPoints loads samples ordered by timestamp, optionally filtered by
// sector and dataset.
func (l *SQLiteLoader) LoadPoints(sectorID string, datasetID int) ([]DatabasePoint, error) {
	query := `
		SELECT "index", latitude, longitude, gridZone, easting, northing,
		       timestamp, sectorId, datasetId
		FROM point_list`
	var args []any
	switch {
	case sectorID != "" && datasetID >= 0:
		query += ` WHERE sectorId = ? AND datasetId = ?`
		args = append(args, sectorID, datasetID)
	case sectorID != "":
		query += ` WHERE sectorId = ?`
		args = append(args, sectorID)
	case datasetID >= 0:
		query += ` WHERE datasetId = ?`
		args = append(args, datasetID)
	}
	query += ` ORDER BY timestamp`

	rows, err := l.db.Query(query, args...)
	if err != nil {
		return nil, errors.Wrapf(ErrDatabase, "point_list query: %v", err)
	}
	defer rows.Close()

	var points []DatabasePoint
	for rows.Next() {
		var p DatabasePoint
		if err := rows.Scan(&p.Index, &p.Latitude, &p.Longitude, &p.GridZone,
			&p.Easting, &p.Northing, &p.Timestamp, &p.SectorID, &p.DatasetID); err != nil {
			return nil, errors.Wrapf(ErrDatabase, "point_list scan: %v", err)
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(ErrDatabase, "point_list rows: %v", err)
	}

	zap.L().Debug("loaded point list",
		zap.String("sector", sectorID),
		zap.Int("dataset", datasetID),
		zap.Int("count", len(points)))
	return points, nil
}

// Close closes the database handle.
func (l *SQLiteLoader) Close() error {
	if err := l.db.Close(); err != nil {
		return errors.Wrapf(ErrDatabase, "close %s: %v", l.path, err)
	}
	return nil
}
