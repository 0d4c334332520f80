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
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trailscout/routefinder/internal/geometry"
)

func TestNormalize_ComputedOrigin(t *testing.T) {
	points := []DatabasePoint{
		{Easting: 500100.7, Northing: 4300200.2},
		{Easting: 500050.1, Northing: 4300300.9},
		{Easting: 500250.4, Northing: 4300250.5},
	}

	r := Normalize(points, nil)

	assert.InDelta(t, 500050, r.MinX, 1e-9)
	assert.InDelta(t, 4300200, r.MinY, 1e-9)
	assert.InDelta(t, 500250, r.MaxX, 1e-9)
	assert.InDelta(t, 4300300, r.MaxY, 1e-9)

	for _, p := range points {
		assert.InDelta(t, p.Easting-r.MinX, p.XNorm, 1e-9)
		assert.InDelta(t, p.Northing-r.MinY, p.YNorm, 1e-9)
		assert.GreaterOrEqual(t, p.XNorm, 0.0)
		assert.GreaterOrEqual(t, p.YNorm, 0.0)
	}
}

func TestNormalize_SuppliedOrigin(t *testing.T) {
	points := []DatabasePoint{
		{Easting: 500100, Northing: 4300200},
	}
	origin := geometry.Pt(500000, 4300000)

	r := Normalize(points, &origin)

	assert.InDelta(t, 500000.0, r.MinX, 1e-9)
	assert.InDelta(t, 4300000.0, r.MinY, 1e-9)
	assert.InDelta(t, 100.0, points[0].XNorm, 1e-9)
	assert.InDelta(t, 200.0, points[0].YNorm, 1e-9)
}

func TestNormalize_Empty(t *testing.T) {
	r := Normalize(nil, nil)
	assert.Equal(t, Range{}, r)

	origin := geometry.Pt(5, 7)
	r = Normalize(nil, &origin)
	assert.InDelta(t, 5.0, r.MinX, 1e-9)
	assert.InDelta(t, 7.0, r.MinY, 1e-9)
}
