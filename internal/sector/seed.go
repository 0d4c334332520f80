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

package sector

import (
	"math/rand"
	"sort"

	"go.uber.org/zap"

	"github.com/trailscout/routefinder/internal/geometry"
	"github.com/trailscout/routefinder/internal/route"
)

// seedRatio is the fraction of a seeded population drawn from the
// historical dataset; the remainder is fully random.
const seedRatio = 0.5

// SeedPopulations builds an initial population per waypoint count from a
// historical dataset's normalized points: one evenly-strided member, a
// block of sorted random subsets, and random fill for the rest.
func SeedPopulations(dataset []geometry.Point, minWaypoints, maxWaypoints, populationSize int,
	shapeFor func(numWaypoints int) route.Shape, rng *rand.Rand) map[int][]*route.Route {

	out := make(map[int][]*route.Route)
	for k := minWaypoints; k <= maxWaypoints; k++ {
		out[k] = seedPopulation(dataset, k, populationSize, shapeFor(k), rng)
	}
	return out
}

func seedPopulation(dataset []geometry.Point, numWaypoints, populationSize int,
	shape route.Shape, rng *rand.Rand) []*route.Route {

	population := make([]*route.Route, 0, populationSize)
	seeded := int(seedRatio * float64(populationSize))

	if len(dataset) >= numWaypoints && numWaypoints > 0 {
		population = append(population, strideSeed(dataset, numWaypoints, shape, rng))
		for len(population) < seeded {
			population = append(population, subsetSeed(dataset, numWaypoints, shape, rng))
		}
	} else if len(dataset) > 0 {
		zap.L().Warn("dataset too small to seed, falling back to random",
			zap.Int("datasetSize", len(dataset)),
			zap.Int("waypoints", numWaypoints))
	}

	return route.FillRandom(population, populationSize, shape, rng)
}

// strideSeed samples the dataset at even strides: indices floor(j*M/K).
func strideSeed(dataset []geometry.Point, numWaypoints int, shape route.Shape, rng *rand.Rand) *route.Route {
	indices := make([]int, numWaypoints)
	for j := 0; j < numWaypoints; j++ {
		indices[j] = j * len(dataset) / numWaypoints
	}
	return encodeIndices(dataset, indices, shape, rng)
}

// subsetSeed draws distinct random indices and uses them in sorted order,
// preserving the dataset's travel direction.
func subsetSeed(dataset []geometry.Point, numWaypoints int, shape route.Shape, rng *rand.Rand) *route.Route {
	indices := rng.Perm(len(dataset))[:numWaypoints]
	sort.Ints(indices)
	return encodeIndices(dataset, indices, shape, rng)
}

// encodeIndices re-encodes the selected dataset points through the
// phenotype encoder, clamping into the shape's extents. Points that still
// fail to encode fall back to a random member.
func encodeIndices(dataset []geometry.Point, indices []int, shape route.Shape, rng *rand.Rand) *route.Route {
	vs := make([]route.Vertex, len(indices))
	for j, idx := range indices {
		vs[j] = route.Vertex{
			X: clamp(int(dataset[idx].X), 0, shape.MaxX-1),
			Y: clamp(int(dataset[idx].Y), 0, shape.MaxY-1),
		}
	}
	member, err := route.Encode(vs, shape)
	if err != nil {
		zap.L().Warn("seed vertex did not encode, using random member", zap.Error(err))
		return route.Random(shape, rng)
	}
	return member
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
