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

package ga

import (
	"math/rand"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/trailscout/routefinder/internal/geometry"
	"github.com/trailscout/routefinder/internal/pool"
	"github.com/trailscout/routefinder/internal/quadtree"
	"github.com/trailscout/routefinder/internal/route"
	"github.com/trailscout/routefinder/internal/stats"
)

func TestConfig_Validate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	bad := DefaultConfig()
	bad.MutationRate = 1.5
	assert.True(t, errors.Is(bad.Validate(), ErrInvalidConfig))

	bad = DefaultConfig()
	bad.PreservationRate = -0.1
	assert.True(t, errors.Is(bad.Validate(), ErrInvalidConfig))

	bad = DefaultConfig()
	bad.Threads = 0
	assert.True(t, errors.Is(bad.Validate(), ErrInvalidConfig))
}

func TestConfig_DeriveSizes(t *testing.T) {
	cfg := Config{PreservationRate: 0.05, SelectionRate: 0.4, MutationRate: 0.8, Threads: 2}
	sizes := cfg.DeriveSizes(2000)

	assert.Equal(t, 100, sizes.Preservation)
	assert.Equal(t, 800, sizes.Selection)
	assert.Equal(t, 1600, sizes.Mutation)

	// The preservation prefix never collapses to zero.
	tiny := Config{PreservationRate: 0.0, SelectionRate: 0.5, MutationRate: 0.5, Threads: 1}
	assert.Equal(t, 1, tiny.DeriveSizes(10).Preservation)
}

// OptimizerSuite exercises the generational loop against a synthetic sector
// whose points all lie on a known polyline.
type OptimizerSuite struct {
	suite.Suite

	ctx     *route.Context
	shape   route.Shape
	workers *pool.Pool
	rng     *rand.Rand
}

// groundTruth is the vertex pair the synthetic points are sampled from.
var groundTruth = []route.Vertex{{X: 3, Y: 6}, {X: 7, Y: 3}}

func (s *OptimizerSuite) SetupTest() {
	start := geometry.Pt(0, 0)
	end := geometry.Pt(9, 9)
	s.shape = route.NewShape(2, 9, 9)

	knots := []geometry.Point{start, geometry.Pt(3, 6), geometry.Pt(7, 3), end}
	var points []geometry.Point
	for i := 0; i+1 < len(knots); i++ {
		for t := 0.0; t < 1.0; t += 0.1 {
			points = append(points, geometry.Lerp(knots[i], knots[i+1], t))
		}
	}
	points = append(points, end)

	items := make([]quadtree.Item, len(points))
	for i, p := range points {
		items[i] = quadtree.Item{ID: i, Point: p}
	}
	bounds := route.PointBounds(points, start, end)
	tree, err := quadtree.Build(bounds, items, quadtree.DefaultMaxObjects, quadtree.DefaultMaxLevels)
	s.Require().NoError(err)

	s.ctx = route.NewContext(points, tree, start, end, 1.5)
	s.workers = pool.New(4)
	s.rng = rand.New(rand.NewSource(42))
}

func (s *OptimizerSuite) TearDownTest() {
	s.workers.Close()
}

func (s *OptimizerSuite) randomPopulation(size int) []*route.Route {
	pop := make([]*route.Route, size)
	for i := range pop {
		pop[i] = route.Random(s.shape, s.rng)
	}
	return pop
}

func (s *OptimizerSuite) TestPopulationSizeInvariant() {
	pop := s.randomPopulation(60)
	opt := New(DefaultConfig(), pop, s.workers, nil, nil, s.rng)

	final := opt.Run(s.ctx, "7", 2, 5, nil)
	s.Len(final, 60)
	for _, r := range final {
		s.Equal(s.shape.DNALen(), len(r.DNA()))
		s.True(r.HasFitness())
	}
}

func (s *OptimizerSuite) TestFinalPopulationSorted() {
	pop := s.randomPopulation(40)
	opt := New(DefaultConfig(), pop, s.workers, nil, nil, s.rng)

	final := opt.Run(s.ctx, "7", 2, 3, nil)
	for i := 1; i < len(final); i++ {
		s.LessOrEqual(final[i-1].Fitness(), final[i].Fitness())
	}
}

func (s *OptimizerSuite) TestEmitCallbackSeesEveryIteration() {
	pop := s.randomPopulation(30)
	var iterations []int
	emit := func(best *route.Route, iteration int) {
		s.True(best.HasFitness())
		iterations = append(iterations, iteration)
	}
	opt := New(DefaultConfig(), pop, s.workers, nil, emit, s.rng)

	opt.Run(s.ctx, "7", 2, 4, nil)
	s.Equal([]int{0, 1, 2, 3}, iterations)
}

func (s *OptimizerSuite) TestAggregatorReceivesRows() {
	agg := stats.NewAggregator()
	pop := s.randomPopulation(30)
	opt := New(DefaultConfig(), pop, s.workers, agg, nil, s.rng)

	opt.Run(s.ctx, "7", 2, 3, nil)

	s.Equal(int64(3), agg.TimingSnapshot(stats.SubsystemIteration).Count())
	s.Equal(int64(6), agg.TimingSnapshot(stats.SubsystemFitness).Count(),
		"two fitness passes per generation")
}

func (s *OptimizerSuite) TestEarlyExitStopsLoop() {
	pop := s.randomPopulation(50)
	count := 0
	emit := func(*route.Route, int) { count++ }
	opt := New(DefaultConfig(), pop, s.workers, nil, emit, s.rng)

	// A huge eps makes every iteration a match; the loop must stop after
	// maxMatches iterations rather than the full budget.
	exit := NewExitCondition(3, 1e12)
	opt.Run(s.ctx, "7", 2, 500, exit)
	s.Equal(4, count, "baseline iteration plus maxMatches flat iterations")
}

func (s *OptimizerSuite) TestConvergesToGroundTruth() {
	pop := s.randomPopulation(200)
	opt := New(DefaultConfig(), pop, s.workers, nil, nil, s.rng)

	final := opt.Run(s.ctx, "7", 2, 500, NewExitCondition(50, 0.001))
	best := final[0]

	truth, err := route.Encode(groundTruth, s.shape)
	s.Require().NoError(err)
	truth.UpdateFitness(s.ctx, false)

	s.LessOrEqual(best.Fitness(), truth.Fitness()*1.01,
		"best %f must be within 1%% of ground truth %f", best.Fitness(), truth.Fitness())
}

func TestOptimizerSuite(t *testing.T) {
	suite.Run(t, new(OptimizerSuite))
}

func TestCrossoverPhase_FillsTailFromParentPool(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	shape := route.NewShape(2, 9, 9)

	pop := make([]*route.Route, 10)
	for i := range pop {
		pop[i] = route.Random(shape, rng)
		pop[i].SetFitness(float64(i))
	}
	prefix := make([]string, 4)
	for i := 0; i < 4; i++ {
		prefix[i] = pop[i].DNA()
	}

	opt := New(Config{PreservationRate: 0.2, SelectionRate: 0.2, MutationRate: 0, Threads: 1}, pop, nil, nil, nil, rng)
	sizes := opt.cfg.DeriveSizes(len(pop))
	opt.crossoverPhase(sizes)

	// Slots [0, pres+sel) are untouched; the tail is rebuilt with fitness
	// unset.
	for i := 0; i < 4; i++ {
		assert.Equal(t, prefix[i], pop[i].DNA())
	}
	for i := 4; i < 10; i++ {
		assert.False(t, pop[i].HasFitness())
	}
}

func TestMutationPhase_SparesPreservationPrefix(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	shape := route.NewShape(2, 9, 9)

	pop := make([]*route.Route, 10)
	for i := range pop {
		pop[i] = route.Random(shape, rng)
		pop[i].SetFitness(float64(i))
	}
	preserved := make([]string, 2)
	for i := range preserved {
		preserved[i] = pop[i].DNA()
	}

	opt := New(Config{PreservationRate: 0.2, SelectionRate: 0.3, MutationRate: 1.0, Threads: 1}, pop, nil, nil, nil, rng)
	sizes := opt.cfg.DeriveSizes(len(pop))
	for round := 0; round < 20; round++ {
		opt.mutationPhase(sizes)
	}

	for i, dna := range preserved {
		assert.Equal(t, dna, pop[i].DNA(), "preservation slot %d must never mutate", i)
		assert.True(t, pop[i].HasFitness())
	}
}

func TestReplaceDuplicates_CountsAndRebuilds(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	shape := route.NewShape(2, 9, 9)

	base, err := route.Encode([]route.Vertex{{X: 1, Y: 2}, {X: 3, Y: 4}}, shape)
	require.NoError(t, err)

	pop := make([]*route.Route, 6)
	for i := range pop {
		pop[i] = base.Clone()
		pop[i].SetFitness(1)
	}

	opt := New(Config{PreservationRate: 0.2, SelectionRate: 0.3, MutationRate: 0, Threads: 1}, pop, nil, nil, nil, rng)
	dups := opt.replaceDuplicates(opt.cfg.DeriveSizes(len(pop)))

	assert.Equal(t, 5, dups, "every slot beyond the first duplicates it")
	for i := 1; i < len(pop); i++ {
		assert.False(t, pop[i].HasFitness(), "rebuilt slot %d has unset fitness", i)
	}
}
