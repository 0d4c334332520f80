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

package route

import (
	"github.com/trailscout/routefinder/internal/geometry"
)

// scoreScale normalizes the length and density ratios onto a common scale
// with the per-point distance error.
const scoreScale = 100.0

// Polyline returns the decoded route. With includeEndpoints the context's
// start and end bracket the intermediate vertices.
func (r *Route) Polyline(ctx *Context, includeEndpoints bool) []geometry.Point {
	vs := r.Vertices()
	pts := make([]geometry.Point, 0, len(vs)+2)
	if includeEndpoints {
		pts = append(pts, ctx.Start())
	}
	for _, v := range vs {
		pts = append(pts, geometry.Pt(float64(v.X), float64(v.Y)))
	}
	if includeEndpoints {
		pts = append(pts, ctx.End())
	}
	return pts
}

// UpdateFitness computes the combined fitness over the decoded polyline.
// With checkCache it returns immediately when the cached value is still
// valid. The evaluator is total: degenerate inputs yield finite scores.
func (r *Route) UpdateFitness(ctx *Context, checkCache bool) {
	if checkCache && r.HasFitness() {
		return
	}

	polyline := r.Polyline(ctx, true)

	r.pointScore = pointScore(ctx, polyline)
	r.lengthScore = lengthScore(ctx, polyline)
	r.densityScore = densityScore(ctx, polyline)
	r.fitness = r.pointScore + r.lengthScore + r.densityScore
}

// pointScore is the mean distance from every context point to its best-fit
// segment of the polyline.
func pointScore(ctx *Context, polyline []geometry.Point) float64 {
	points := ctx.Points()
	if len(points) == 0 {
		return 0
	}
	var sum float64
	for _, p := range points {
		_, dist := geometry.NearestSegment(p, polyline)
		sum += dist
	}
	return sum / float64(len(points))
}

// lengthScore normalizes the polyline length against the shortest length
// seen so far in this run. The first evaluation seeds the minimum and
// scores exactly scoreScale.
func lengthScore(ctx *Context, polyline []geometry.Point) float64 {
	length := geometry.PolylineLength(polyline)
	minLength := ctx.observeLength(length)
	if minLength <= 0 {
		return 0
	}
	return scoreScale * length / minLength
}

// densityScore marches each segment in StepDistance increments and scores
// the ratio of total steps to steps that found at least one point nearby.
// No coverage at all degrades to the total step count, the worst ratio.
func densityScore(ctx *Context, polyline []geometry.Point) float64 {
	step := ctx.StepDistance()
	var totalSteps, stepsWithPoints uint64

	for i := 0; i+1 < len(polyline); i++ {
		segLength := geometry.Distance(polyline[i], polyline[i+1])
		for pos := 0.0; ; pos += step {
			var ratio float64
			if segLength > 0 {
				ratio = pos / segLength
			} else if pos > 0 {
				break
			}
			if ratio > 1 {
				break
			}
			totalSteps++
			probe := geometry.Lerp(polyline[i], polyline[i+1], ratio)
			if ctx.Index().AnyWithin(probe, step) {
				stepsWithPoints++
			}
		}
	}

	if stepsWithPoints == 0 {
		return scoreScale * float64(totalSteps)
	}
	return scoreScale * float64(totalSteps) / float64(stepsWithPoints)
}
