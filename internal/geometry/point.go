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

// Package geometry provides the 2-D primitives used by the spatial index and
// the route fitness evaluator: points, axis-aligned rectangles, and the
// point-to-segment distance kernel.
package geometry

import (
	"fmt"
	"math"
)

// Point is a 2-D coordinate pair. Points are plain values with no identity;
// they are copied freely.
type Point struct {
	X float64
	Y float64
}

// Pt is shorthand for constructing a Point.
func Pt(x, y float64) Point {
	return Point{X: x, Y: y}
}

// Add returns p + q component-wise.
func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y}
}

// Sub returns p - q component-wise.
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Scale returns the point scaled by s.
func (p Point) Scale(s float64) Point {
	return Point{X: p.X * s, Y: p.Y * s}
}

// Dot returns the dot product of p and q.
func (p Point) Dot(q Point) float64 {
	return p.X*q.X + p.Y*q.Y
}

// Cross returns the 2-D cross product (z component) of p and q.
func (p Point) Cross(q Point) float64 {
	return p.X*q.Y - p.Y*q.X
}

// Magnitude returns the L2 norm of the point treated as a vector.
func (p Point) Magnitude() float64 {
	return math.Sqrt(p.X*p.X + p.Y*p.Y)
}

// Distance returns the L2 distance between p and q.
func Distance(p, q Point) float64 {
	dx := p.X - q.X
	dy := p.Y - q.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Min returns the component-wise minimum of p and q.
func Min(p, q Point) Point {
	return Point{X: math.Min(p.X, q.X), Y: math.Min(p.Y, q.Y)}
}

// Max returns the component-wise maximum of p and q.
func Max(p, q Point) Point {
	return Point{X: math.Max(p.X, q.X), Y: math.Max(p.Y, q.Y)}
}

// Lerp linearly interpolates between a and b. t=0 yields a, t=1 yields b.
func Lerp(a, b Point, t float64) Point {
	return a.Scale(1 - t).Add(b.Scale(t))
}

// String renders the point for log output.
func (p Point) String() string {
	return fmt.Sprintf("Point(%.6f, %.6f)", p.X, p.Y)
}
