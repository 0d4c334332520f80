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
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/trailscout/routefinder/internal/geometry"
)

// DefaultDensityStepDistance is the default march length for segment
// coverage queries, in normalized meters.
const DefaultDensityStepDistance = 25.0

// boundsMargin pads the quadtree root so boundary points never fail
// insertion.
const boundsMargin = 2.0

// SpatialIndex answers radius queries over the sector's normalized points.
// Implementations must be immutable once the context is built.
type SpatialIndex interface {
	// AnyWithin reports whether at least one point lies within radius of
	// center.
	AnyWithin(center geometry.Point, radius float64) bool
}

// Context is the immutable per-sector bundle shared by every fitness
// evaluation of one sector run. It must not be mutated after construction.
type Context struct {
	points       []geometry.Point
	index        SpatialIndex
	start        geometry.Point
	end          geometry.Point
	stepDistance float64

	// minLength is the running minimum polyline length over every
	// evaluation of this run, seeding the length-score normalization.
	// Zero means unseeded.
	minLength atomic.Float64
}

// NewContext bundles the normalized point cloud, the endpoints, and the
// spatial index for one sector run.
func NewContext(points []geometry.Point, index SpatialIndex, start, end geometry.Point, stepDistance float64) *Context {
	if stepDistance <= 0 {
		stepDistance = DefaultDensityStepDistance
	}
	return &Context{
		points:       points,
		index:        index,
		start:        start,
		end:          end,
		stepDistance: stepDistance,
	}
}

// Points returns the normalized point cloud. Callers must not mutate it.
func (c *Context) Points() []geometry.Point {
	return c.points
}

// Index returns the spatial index over Points.
func (c *Context) Index() SpatialIndex {
	return c.index
}

// Start returns the normalized start endpoint.
func (c *Context) Start() geometry.Point {
	return c.start
}

// End returns the normalized end endpoint.
func (c *Context) End() geometry.Point {
	return c.end
}

// StepDistance returns the density march length.
func (c *Context) StepDistance() float64 {
	return c.stepDistance
}

// observeLength folds a polyline length into the running minimum and
// returns the minimum after folding. The first observation seeds it.
func (c *Context) observeLength(length float64) float64 {
	for {
		cur := c.minLength.Load()
		if cur != 0 && cur <= length {
			return cur
		}
		if c.minLength.CompareAndSwap(cur, length) {
			return length
		}
	}
}

// MinLength returns the running minimum polyline length, or 0 when no
// evaluation has run yet.
func (c *Context) MinLength() float64 {
	return c.minLength.Load()
}

// PointBounds returns a rectangle covering every point plus the endpoints,
// expanded by a small margin so all insertions land inside.
func PointBounds(points []geometry.Point, start, end geometry.Point) geometry.Rect {
	min := geometry.Min(start, end)
	max := geometry.Max(start, end)
	for _, p := range points {
		min = geometry.Min(min, p)
		max = geometry.Max(max, p)
	}
	bounds := geometry.RectFromCorners(min, max).Expand(boundsMargin)
	zap.L().Debug("computed point bounds", zap.Stringer("bounds", bounds))
	return bounds
}
