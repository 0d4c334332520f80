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

// Package geo converts between WGS84 geographic coordinates and UTM planar
// coordinates for a fixed EPSG grid zone.
package geo

import (
	"github.com/cockroachdb/errors"
	"github.com/im7mortal/UTM"
	"go.uber.org/zap"

	"github.com/trailscout/routefinder/internal/geometry"
)

// ErrProjection marks coordinate transform failures.
var ErrProjection = errors.New("geo: projection failure")

// EPSG ranges for WGS84 / UTM zones.
const (
	epsgUTMNorthBase = 32600
	epsgUTMSouthBase = 32700
	utmZoneCount     = 60
)

// Projector converts a single coordinate pair. Implementations are safe for
// concurrent use. On failure the input point is passed through unchanged and
// the error is logged at error level.
type Projector interface {
	Project(geometry.Point) geometry.Point
}

// Zone describes the UTM grid zone derived from an EPSG code.
type Zone struct {
	Number   int
	Northern bool
}

// ZoneFromEPSG resolves a WGS84/UTM EPSG code (326xx north, 327xx south)
// into its grid zone.
func ZoneFromEPSG(epsg int) (Zone, error) {
	switch {
	case epsg > epsgUTMNorthBase && epsg <= epsgUTMNorthBase+utmZoneCount:
		return Zone{Number: epsg - epsgUTMNorthBase, Northern: true}, nil
	case epsg > epsgUTMSouthBase && epsg <= epsgUTMSouthBase+utmZoneCount:
		return Zone{Number: epsg - epsgUTMSouthBase, Northern: false}, nil
	default:
		return Zone{}, errors.Wrapf(ErrProjection, "unsupported EPSG code %d", epsg)
	}
}

// ddToUTM projects (latitude, longitude) to (easting, northing).
type ddToUTM struct {
	zone Zone
}

// NewDDToUTM builds the geographic-to-planar projector for the EPSG code.
func NewDDToUTM(epsg int) (Projector, error) {
	zone, err := ZoneFromEPSG(epsg)
	if err != nil {
		return nil, err
	}
	return &ddToUTM{zone: zone}, nil
}

// Project converts Point{X: latitude, Y: longitude} to
// Point{X: easting, Y: northing}.
func (p *ddToUTM) Project(pt geometry.Point) geometry.Point {
	easting, northing, _, _, err := UTM.FromLatLon(pt.X, pt.Y, p.zone.Northern)
	if err != nil {
		zap.L().Error("DD to UTM transform failed",
			zap.Float64("latitude", pt.X),
			zap.Float64("longitude", pt.Y),
			zap.Error(err))
		return pt
	}
	return geometry.Pt(easting, northing)
}

// utmToDD projects (easting, northing) back to (latitude, longitude).
type utmToDD struct {
	zone Zone
}

// NewUTMToDD builds the planar-to-geographic projector for the EPSG code.
func NewUTMToDD(epsg int) (Projector, error) {
	zone, err := ZoneFromEPSG(epsg)
	if err != nil {
		return nil, err
	}
	return &utmToDD{zone: zone}, nil
}

// Project converts Point{X: easting, Y: northing} to
// Point{X: latitude, Y: longitude}.
func (p *utmToDD) Project(pt geometry.Point) geometry.Point {
	lat, lon, err := UTM.ToLatLon(pt.X, pt.Y, p.zone.Number, "", p.zone.Northern)
	if err != nil {
		zap.L().Error("UTM to DD transform failed",
			zap.Float64("easting", pt.X),
			zap.Float64("northing", pt.Y),
			zap.Int("zone", p.zone.Number),
			zap.Error(err))
		return pt
	}
	return geometry.Pt(lat, lon)
}
