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

// Package db loads recorded GPS samples and sector metadata from the point
// database and owns the normalization of point clouds into origin-anchored
// coordinates.
package db

import (
	"fmt"
	"math"

	"github.com/trailscout/routefinder/internal/geometry"
)

// DatabasePoint is one recorded GPS sample. XNorm/YNorm are transient
// normalized coordinates assigned by Normalize; they are not stored.
type DatabasePoint struct {
	Index     int
	Latitude  float64
	Longitude float64
	GridZone  int
	Easting   float64
	Northing  float64
	Timestamp string
	SectorID  string
	DatasetID string

	XNorm float64
	YNorm float64
}

// LLA returns the point's geographic coordinate as (latitude, longitude).
func (p DatabasePoint) LLA() geometry.Point {
	return geometry.Pt(p.Latitude, p.Longitude)
}

// Normalized returns the point's normalized planar coordinate.
func (p DatabasePoint) Normalized() geometry.Point {
	return geometry.Pt(p.XNorm, p.YNorm)
}

// String renders the point for log output.
func (p DatabasePoint) String() string {
	return fmt.Sprintf("DatabasePoint(index=%d, lat=%.6f, lon=%.6f, gz=%d, e=%.2f, n=%.2f, sector=%s, dataset=%s)",
		p.Index, p.Latitude, p.Longitude, p.GridZone, p.Easting, p.Northing, p.SectorID, p.DatasetID)
}

// Sector is a named partition of the point cloud with fixed endpoints.
type Sector struct {
	ID    string
	Start DatabasePoint
	End   DatabasePoint
}

// Range is the bounding box of a normalized point cloud in easting/northing
// space, truncated to whole meters.
type Range struct {
	MinX float64
	MinY float64
	MaxX float64
	MaxY float64
}

// Origin returns the bottom-left corner of the range.
func (r Range) Origin() geometry.Point {
	return geometry.Pt(r.MinX, r.MinY)
}

// Normalize subtracts the supplied origin from every point, so the origin
// maps to (0, 0), recording XNorm/YNorm in place. A nil origin uses the
// floored minimum corner of the points themselves. The returned Range always carries the
// origin actually used, so the inverse mapping is known to the result sink.
func Normalize(points []DatabasePoint, origin *geometry.Point) Range {
	if len(points) == 0 {
		if origin != nil {
			return Range{MinX: origin.X, MinY: origin.Y, MaxX: origin.X, MaxY: origin.Y}
		}
		return Range{}
	}

	r := Range{
		MinX: math.Floor(points[0].Easting),
		MinY: math.Floor(points[0].Northing),
		MaxX: math.Floor(points[0].Easting),
		MaxY: math.Floor(points[0].Northing),
	}
	for _, p := range points {
		r.MinX = math.Min(r.MinX, math.Floor(p.Easting))
		r.MinY = math.Min(r.MinY, math.Floor(p.Northing))
		r.MaxX = math.Max(r.MaxX, math.Floor(p.Easting))
		r.MaxY = math.Max(r.MaxY, math.Floor(p.Northing))
	}
	if origin != nil {
		r.MinX = origin.X
		r.MinY = origin.Y
	}

	for i := range points {
		points[i].XNorm = points[i].Easting - r.MinX
		points[i].YNorm = points[i].Northing - r.MinY
	}
	return r
}
