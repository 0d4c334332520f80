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

import "math"

// degenerateSegmentLength is the threshold below which a segment collapses
// to its first endpoint for distance purposes.
const degenerateSegmentLength = 1e-2

// PointSegmentDistance returns the minimum distance from p to the segment
// [a, b]. The endpoint projection tests are evaluated before the
// perpendicular case, and their dot products are rounded to integers so that
// points sitting numerically on an endpoint do not flip branches.
func PointSegmentDistance(p, a, b Point) float64 {
	v := b.Sub(a)
	u1 := p.Sub(a)
	u2 := p.Sub(b)

	if math.Round(v.Dot(u2)) > 0 {
		return Distance(p, b)
	}
	if math.Round(v.Dot(u1)) < 0 {
		return Distance(p, a)
	}
	if v.Magnitude() < degenerateSegmentLength {
		return Distance(p, a)
	}
	return math.Abs(v.Cross(u1)) / v.Magnitude()
}

// PolylineLength returns the total length of the polyline described by vs.
func PolylineLength(vs []Point) float64 {
	var total float64
	for i := 0; i+1 < len(vs); i++ {
		total += Distance(vs[i], vs[i+1])
	}
	return total
}

// NearestSegment returns the index of the segment of vs closest to p and
// the distance to it. Ties resolve to the smallest segment index. A polyline
// with fewer than two vertices yields (-1, 0).
func NearestSegment(p Point, vs []Point) (int, float64) {
	best := -1
	bestDist := 0.0
	for i := 0; i+1 < len(vs); i++ {
		d := PointSegmentDistance(p, vs[i], vs[i+1])
		if best < 0 || d < bestDist {
			best = i
			bestDist = d
		}
	}
	return best, bestDist
}
