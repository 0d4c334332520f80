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

// Package route holds the genetic phenotype of a candidate route: a
// fixed-length decimal-digit string encoding the intermediate vertices, the
// operators that breed it, and the fitness evaluator that scores the decoded
// polyline against a sector's point cloud.
package route

import (
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// ErrEncoding marks dna strings with a bad length or non-digit characters.
// Such a strand is a hard bug, never an expected input.
var ErrEncoding = errors.New("route: invalid dna encoding")

// fitnessUnset is the cached-fitness sentinel. All real fitness values are
// non-negative.
const fitnessUnset = -1.0

// Shape fixes the encoding parameters of a route: the intermediate vertex
// count, the coordinate extents, and the derived per-axis digit widths. All
// routes in one population share a Shape.
type Shape struct {
	NumWaypoints int
	MaxX         int
	MaxY         int
	XDigits      int
	YDigits      int
}

// NewShape derives digit widths from the coordinate extents.
func NewShape(numWaypoints, maxX, maxY int) Shape {
	return Shape{
		NumWaypoints: numWaypoints,
		MaxX:         maxX,
		MaxY:         maxY,
		XDigits:      digitsFor(maxX),
		YDigits:      digitsFor(maxY),
	}
}

// digitsFor returns ceil(log10(max+1)), the decimal width needed to encode
// values in [0, max].
func digitsFor(max int) int {
	if max < 0 {
		return 1
	}
	return int(math.Ceil(math.Log10(float64(max) + 1)))
}

// Stride is the number of digits one vertex occupies.
func (s Shape) Stride() int {
	return s.XDigits + s.YDigits
}

// DNALen is the total dna length for this shape.
func (s Shape) DNALen() int {
	return s.NumWaypoints * s.Stride()
}

// Route is one phenotype: an encoded vertex sequence plus a cached fitness
// score. Routes are mutated only by the optimizer loop that owns their
// population slot.
type Route struct {
	shape Shape
	dna   string

	fitness      float64
	pointScore   float64
	lengthScore  float64
	densityScore float64
}

// New builds a route from an existing dna strand, validating it against the
// shape.
func New(dna string, shape Shape) (*Route, error) {
	if len(dna) != shape.DNALen() {
		return nil, errors.Wrapf(ErrEncoding, "dna length %d, want %d", len(dna), shape.DNALen())
	}
	for i := 0; i < len(dna); i++ {
		if dna[i] < '0' || dna[i] > '9' {
			return nil, errors.Wrapf(ErrEncoding, "non-digit %q at offset %d", dna[i], i)
		}
	}
	return &Route{shape: shape, dna: dna, fitness: fitnessUnset}, nil
}

// Random samples a route whose vertices are uniform over
// [0, MaxX) x [0, MaxY).
func Random(shape Shape, rng *rand.Rand) *Route {
	vs := make([]Vertex, shape.NumWaypoints)
	for i := range vs {
		vs[i] = Vertex{X: rng.Intn(max(shape.MaxX, 1)), Y: rng.Intn(max(shape.MaxY, 1))}
	}
	r, err := Encode(vs, shape)
	if err != nil {
		// Unreachable: Encode only rejects vertices wider than the shape.
		panic(err)
	}
	return r
}

// Vertex is one decoded intermediate vertex in normalized integer
// coordinates.
type Vertex struct {
	X int
	Y int
}

// Encode packs vertices into a route using fixed-width zero-padded decimal
// digits.
func Encode(vs []Vertex, shape Shape) (*Route, error) {
	if len(vs) != shape.NumWaypoints {
		return nil, errors.Wrapf(ErrEncoding, "vertex count %d, want %d", len(vs), shape.NumWaypoints)
	}
	var sb strings.Builder
	sb.Grow(shape.DNALen())
	for _, v := range vs {
		if v.X < 0 || v.Y < 0 || digitsFor(v.X) > shape.XDigits || digitsFor(v.Y) > shape.YDigits {
			return nil, errors.Wrapf(ErrEncoding, "vertex (%d, %d) does not fit %dx%d digits",
				v.X, v.Y, shape.XDigits, shape.YDigits)
		}
		fmt.Fprintf(&sb, "%0*d%0*d", shape.XDigits, v.X, shape.YDigits, v.Y)
	}
	return &Route{shape: shape, dna: sb.String(), fitness: fitnessUnset}, nil
}

// Shape returns the route's shape parameters.
func (r *Route) Shape() Shape {
	return r.shape
}

// DNA returns the encoded strand.
func (r *Route) DNA() string {
	return r.dna
}

// Vertices decodes the dna into its intermediate vertex list.
func (r *Route) Vertices() []Vertex {
	stride := r.shape.Stride()
	vs := make([]Vertex, r.shape.NumWaypoints)
	for i := range vs {
		off := i * stride
		x, _ := strconv.Atoi(r.dna[off : off+r.shape.XDigits])
		y, _ := strconv.Atoi(r.dna[off+r.shape.XDigits : off+stride])
		vs[i] = Vertex{X: x, Y: y}
	}
	return vs
}

// Fitness returns the cached fitness, or the unset sentinel if no
// evaluation has run since the last mutation.
func (r *Route) Fitness() float64 {
	return r.fitness
}

// HasFitness reports whether the cached fitness is valid.
func (r *Route) HasFitness() bool {
	return r.fitness >= 0
}

// SetFitness overrides the cached fitness. Test hook only.
func (r *Route) SetFitness(f float64) {
	r.fitness = f
}

// Scores returns the last computed (point, length, density) breakdown.
func (r *Route) Scores() (float64, float64, float64) {
	return r.pointScore, r.lengthScore, r.densityScore
}

// invalidate drops the cached fitness after a mutating operation.
func (r *Route) invalidate() {
	r.fitness = fitnessUnset
}

// Clone returns an independent copy of the route.
func (r *Route) Clone() *Route {
	cp := *r
	return &cp
}

// Less orders routes by ascending fitness (smaller is better).
func (r *Route) Less(other *Route) bool {
	return r.fitness < other.fitness
}

// Equal reports dna equality. Fitness does not participate.
func (r *Route) Equal(other *Route) bool {
	return r.dna == other.dna
}

// Crossover splices a child from two parents at a cut position uniform in
// [1, len(dna)-2]. Shape parameters come from a. The child's fitness is
// unset.
func Crossover(a, b *Route, rng *rand.Rand) *Route {
	if len(a.dna) < 3 {
		return &Route{shape: a.shape, dna: a.dna, fitness: fitnessUnset}
	}
	cut := rng.Intn(len(a.dna)-2) + 1
	return &Route{
		shape:   a.shape,
		dna:     a.dna[:cut] + b.dna[cut:],
		fitness: fitnessUnset,
	}
}

// Mutate replaces one uniformly chosen digit with a uniform random digit
// and resets the cached fitness.
func Mutate(r *Route, rng *rand.Rand) {
	idx := rng.Intn(len(r.dna))
	digit := byte('0' + rng.Intn(10))
	r.dna = r.dna[:idx] + string(digit) + r.dna[idx+1:]
	r.invalidate()
}

// Randomize replaces the strand with a fresh random one of the same shape.
func Randomize(r *Route, rng *rand.Rand) {
	r.dna = Random(r.shape, rng).dna
	r.invalidate()
}

// RandomizeVertices re-encodes the donor's vertices into r in shuffled
// order.
func RandomizeVertices(r, donor *Route, rng *rand.Rand) {
	vs := donor.Vertices()
	rng.Shuffle(len(vs), func(i, j int) {
		vs[i], vs[j] = vs[j], vs[i]
	})
	shuffled, err := Encode(vs, r.shape)
	if err != nil {
		// Unreachable: donor vertices already fit the shared shape.
		panic(err)
	}
	r.dna = shuffled.dna
	r.invalidate()
}

// String renders the route for log output.
func (r *Route) String() string {
	return fmt.Sprintf("DNA: [%s], Fitness: %f", r.dna, r.fitness)
}

// PrintPopulation renders the first maxValues members for debug logs.
// maxValues <= 0 prints the whole population.
func PrintPopulation(population []*Route, maxValues int) string {
	printSize := len(population)
	if maxValues > 0 && maxValues < printSize {
		printSize = maxValues
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Sample: %d of %d\n", printSize, len(population))
	for i := 0; i < printSize; i++ {
		fmt.Fprintf(&sb, "  %d -> %s\n", i, population[i])
	}
	return sb.String()
}
