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

package quadtree

import (
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trailscout/routefinder/internal/geometry"
)

// diagonalItems returns the 40 points {(+-i, +-i) | i=1..10}.
func diagonalItems() []Item {
	var items []Item
	id := 0
	for i := 1; i <= 10; i++ {
		f := float64(i)
		for _, p := range []geometry.Point{
			geometry.Pt(f, f), geometry.Pt(f, -f), geometry.Pt(-f, f), geometry.Pt(-f, -f),
		} {
			items = append(items, Item{ID: id, Point: p})
			id++
		}
	}
	return items
}

func TestTree_SearchSmallScale(t *testing.T) {
	bounds := geometry.NewRect(geometry.Pt(-10, -10), 20, 20)
	tree, err := Build(bounds, diagonalItems(), DefaultMaxObjects, DefaultMaxLevels)
	require.NoError(t, err)
	require.Equal(t, 40, tree.Len())

	// The four innermost corners are the only points within 1.5 of origin.
	assert.Len(t, tree.Search(geometry.Pt(0, 0), 1.5), 4)

	// (-6,6), (-7,7), (-8,8) are within 3 of (-8,6).
	assert.Len(t, tree.Search(geometry.Pt(-8, 6), 3), 3)
}

func TestTree_SearchContainsInsertedPoint(t *testing.T) {
	bounds := geometry.NewRect(geometry.Pt(-10, -10), 20, 20)
	items := diagonalItems()
	tree, err := Build(bounds, items, 3, 6)
	require.NoError(t, err)

	for _, it := range items {
		got := tree.Search(it.Point, 1e-9)
		ids := make(map[int]bool, len(got))
		for _, g := range got {
			ids[g.ID] = true
		}
		assert.True(t, ids[it.ID], "point %s must be found around itself", it.Point)
	}
}

func TestTree_SearchCrossesQuadrantBoundary(t *testing.T) {
	bounds := geometry.NewRect(geometry.Pt(-10, -10), 20, 20)
	tree := New(bounds, 5, 5)

	// Fillers force a root split; the last point sits in the SE quadrant
	// just below the axis.
	items := []Item{
		{ID: 0, Point: geometry.Pt(2, 2)},
		{ID: 1, Point: geometry.Pt(3, 3)},
		{ID: 2, Point: geometry.Pt(4, 4)},
		{ID: 3, Point: geometry.Pt(5, 5)},
		{ID: 4, Point: geometry.Pt(6, 6)},
		{ID: 5, Point: geometry.Pt(0.6, -0.2)},
	}
	for _, it := range items {
		require.NoError(t, tree.Insert(it))
	}

	// The query centers inside the NE quadrant but its radius reaches the
	// SE neighbor; the sibling must still be visited.
	got := tree.Search(geometry.Pt(0.6, 0.6), 1.0)
	require.Len(t, got, 1)
	assert.Equal(t, 5, got[0].ID)
	assert.True(t, tree.AnyWithin(geometry.Pt(0.6, 0.6), 1.0))
}

func TestTree_SearchZeroRadius(t *testing.T) {
	bounds := geometry.NewRect(geometry.Pt(-10, -10), 20, 20)
	tree, err := Build(bounds, diagonalItems(), DefaultMaxObjects, DefaultMaxLevels)
	require.NoError(t, err)

	// Zero radius admits at most exact matches; strict comparison yields none.
	assert.Empty(t, tree.Search(geometry.Pt(1, 1), 0))
}

func TestTree_InsertOutOfBounds(t *testing.T) {
	tree := New(geometry.NewRect(geometry.Pt(0, 0), 10, 10), 0, 0)

	err := tree.Insert(Item{ID: 1, Point: geometry.Pt(11, 5)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrOutOfBounds))
	assert.Equal(t, 0, tree.Len())
}

func TestTree_SplitKeepsAllItems(t *testing.T) {
	bounds := geometry.NewRect(geometry.Pt(0, 0), 100, 100)
	tree := New(bounds, 2, 4)

	var items []Item
	for i := 0; i < 50; i++ {
		it := Item{ID: i, Point: geometry.Pt(float64(i*2%100)+0.5, float64(i*7%100)+0.25)}
		items = append(items, it)
		require.NoError(t, tree.Insert(it))
	}
	require.Equal(t, 50, tree.Len())

	// A radius covering the whole bound recovers every item.
	got := tree.Search(geometry.Pt(50, 50), 200)
	assert.Len(t, got, len(items))
}

func TestTree_InBound(t *testing.T) {
	bounds := geometry.NewRect(geometry.Pt(-10, -10), 20, 20)
	tree, err := Build(bounds, diagonalItems(), DefaultMaxObjects, DefaultMaxLevels)
	require.NoError(t, err)

	// Quadrant x>0, y>0 holds exactly the ten (i, i) points.
	got := tree.InBound(geometry.RectFromCorners(geometry.Pt(0.5, 0.5), geometry.Pt(10, 10)))
	assert.Len(t, got, 10)

	assert.Empty(t, tree.InBound(geometry.RectFromCorners(geometry.Pt(3.5, -2.5), geometry.Pt(4.5, -3.5))))
}

func TestTree_Remove(t *testing.T) {
	bounds := geometry.NewRect(geometry.Pt(-10, -10), 20, 20)
	items := diagonalItems()
	tree, err := Build(bounds, items, DefaultMaxObjects, DefaultMaxLevels)
	require.NoError(t, err)

	assert.True(t, tree.Remove(items[0]))
	assert.Equal(t, 39, tree.Len())
	assert.False(t, tree.Remove(Item{ID: 999, Point: geometry.Pt(1, 1)}))
}

func TestTree_ConcurrentSearch(t *testing.T) {
	bounds := geometry.NewRect(geometry.Pt(-10, -10), 20, 20)
	tree, err := Build(bounds, diagonalItems(), DefaultMaxObjects, DefaultMaxLevels)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				_ = tree.Search(geometry.Pt(0, 0), 1.5)
				_ = tree.Search(geometry.Pt(-8, 6), 3)
			}
		}()
	}
	wg.Wait()
}
