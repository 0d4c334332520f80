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
	"fmt"
	"math"
)

// Rect is an axis-aligned rectangle anchored at its bottom-left corner.
// Width and Height are non-negative.
type Rect struct {
	Min    Point
	Width  float64
	Height float64
}

// NewRect builds a rectangle from a bottom-left corner and extents.
func NewRect(min Point, width, height float64) Rect {
	return Rect{Min: min, Width: width, Height: height}
}

// RectFromCorners builds a rectangle spanning two arbitrary corner points.
func RectFromCorners(a, b Point) Rect {
	min := Min(a, b)
	return Rect{
		Min:    min,
		Width:  math.Abs(b.X - a.X),
		Height: math.Abs(b.Y - a.Y),
	}
}

// BL returns the bottom-left corner.
func (r Rect) BL() Point {
	return r.Min
}

// BR returns the bottom-right corner.
func (r Rect) BR() Point {
	return Point{X: r.Min.X + r.Width, Y: r.Min.Y}
}

// TL returns the top-left corner.
func (r Rect) TL() Point {
	return Point{X: r.Min.X, Y: r.Min.Y + r.Height}
}

// TR returns the top-right corner.
func (r Rect) TR() Point {
	return Point{X: r.Min.X + r.Width, Y: r.Min.Y + r.Height}
}

// Center returns the midpoint of the rectangle.
func (r Rect) Center() Point {
	return Point{X: r.Min.X + r.Width/2, Y: r.Min.Y + r.Height/2}
}

// Area returns Width * Height.
func (r Rect) Area() float64 {
	return r.Width * r.Height
}

// ContainsPoint reports whether p lies inside the rectangle, inclusive of
// the boundary.
func (r Rect) ContainsPoint(p Point) bool {
	if p.X < r.Min.X || p.X > r.Min.X+r.Width {
		return false
	}
	if p.Y < r.Min.Y || p.Y > r.Min.Y+r.Height {
		return false
	}
	return true
}

// ContainsRect reports whether other lies entirely inside r, inclusive of
// the boundary.
func (r Rect) ContainsRect(other Rect) bool {
	if r.Min.X > other.Min.X || r.Min.Y > other.Min.Y {
		return false
	}
	if r.TR().X < other.TR().X || r.TR().Y < other.TR().Y {
		return false
	}
	return true
}

// Union returns the smallest rectangle covering both a and b.
func Union(a, b Rect) Rect {
	min := Min(a.BL(), b.BL())
	max := Max(a.TR(), b.TR())
	return RectFromCorners(min, max)
}

// Intersection returns the overlap of a and b. Disjoint rectangles yield the
// zero Rect, whose Area is 0.
func Intersection(a, b Rect) Rect {
	minX := math.Max(a.Min.X, b.Min.X)
	minY := math.Max(a.Min.Y, b.Min.Y)
	maxX := math.Min(a.TR().X, b.TR().X)
	maxY := math.Min(a.TR().Y, b.TR().Y)
	if minX > maxX || minY > maxY {
		return Rect{}
	}
	return RectFromCorners(Pt(minX, minY), Pt(maxX, maxY))
}

// Expand grows the rectangle symmetrically about its center by amount on
// both axes.
func (r Rect) Expand(amount float64) Rect {
	return r.ExpandXY(amount, amount)
}

// ExpandXY grows the rectangle symmetrically about its center by dx on the
// x axis and dy on the y axis.
func (r Rect) ExpandXY(dx, dy float64) Rect {
	return Rect{
		Min:    Point{X: r.Min.X - dx/2, Y: r.Min.Y - dy/2},
		Width:  r.Width + dx,
		Height: r.Height + dy,
	}
}

// String renders the rectangle for log output.
func (r Rect) String() string {
	return fmt.Sprintf("Rect(min=%s, w=%.3f, h=%.3f)", r.Min, r.Width, r.Height)
}
