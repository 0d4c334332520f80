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

package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPointSegmentDistance_Perpendicular(t *testing.T) {
	assert.InDelta(t, 1.0, PointSegmentDistance(Pt(1, 6), Pt(2, 1), Pt(2, 6)), 1e-3)
	assert.InDelta(t, 1.87409, PointSegmentDistance(Pt(6, 3), Pt(2, 1), Pt(6, 6)), 1e-3)
	assert.InDelta(t, 4.52904, PointSegmentDistance(Pt(1, 7), Pt(2, 1), Pt(6, 6)), 1e-3)
}

func TestPointSegmentDistance_Endpoints(t *testing.T) {
	a := Pt(2, 1)
	b := Pt(6, 6)

	assert.InDelta(t, 0.0, PointSegmentDistance(a, a, b), 1e-9)
	assert.InDelta(t, 0.0, PointSegmentDistance(b, a, b), 1e-9)

	// Projections beyond each endpoint clamp to the endpoint distance.
	assert.InDelta(t, Distance(Pt(0, 0), a), PointSegmentDistance(Pt(0, 0), a, b), 1e-9)
	assert.InDelta(t, Distance(Pt(9, 9), b), PointSegmentDistance(Pt(9, 9), a, b), 1e-9)
}

func TestPointSegmentDistance_DegenerateSegment(t *testing.T) {
	a := Pt(2, 2)
	p := Pt(5, 6)

	assert.InDelta(t, Distance(p, a), PointSegmentDistance(p, a, a), 1e-9)
}

func TestPolylineLength(t *testing.T) {
	vs := []Point{Pt(0, 0), Pt(3, 4), Pt(3, 10)}
	assert.InDelta(t, 11.0, PolylineLength(vs), 1e-12)

	assert.InDelta(t, 0.0, PolylineLength(nil), 1e-12)
	assert.InDelta(t, 0.0, PolylineLength(vs[:1]), 1e-12)
}

func TestNearestSegment(t *testing.T) {
	vs := []Point{Pt(0, 0), Pt(10, 0), Pt(10, 10)}

	idx, dist := NearestSegment(Pt(5, 1), vs)
	assert.Equal(t, 0, idx)
	assert.InDelta(t, 1.0, dist, 1e-9)

	idx, dist = NearestSegment(Pt(9, 8), vs)
	assert.Equal(t, 1, idx)
	assert.InDelta(t, 1.0, dist, 1e-9)

	// Ties resolve to the smallest index.
	idx, _ = NearestSegment(Pt(10, 0), vs)
	assert.Equal(t, 0, idx)

	idx, _ = NearestSegment(Pt(0, 0), vs[:1])
	assert.Equal(t, -1, idx)
}
