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
	"math/rand"
	"sort"
)

// BuildRandomPopulation samples a fresh population of the given size, all
// sharing one shape.
func BuildRandomPopulation(size int, shape Shape, rng *rand.Rand) []*Route {
	population := make([]*Route, size)
	for i := range population {
		population[i] = Random(shape, rng)
	}
	return population
}

// FillRandom pads a population with random members up to size. Short
// resume files and undersized seeds are topped up this way.
func FillRandom(population []*Route, size int, shape Shape, rng *rand.Rand) []*Route {
	for len(population) < size {
		population = append(population, Random(shape, rng))
	}
	return population
}

// SortByFitness stable-sorts the population by ascending fitness.
func SortByFitness(population []*Route) {
	sort.SliceStable(population, func(i, j int) bool {
		return population[i].Less(population[j])
	})
}

// CountDuplicates returns how many members share a strand with an earlier
// member. The population does not need to be sorted.
func CountDuplicates(population []*Route) int {
	seen := make(map[string]bool, len(population))
	duplicates := 0
	for _, member := range population {
		if seen[member.dna] {
			duplicates++
			continue
		}
		seen[member.dna] = true
	}
	return duplicates
}
