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

// Package quadtree implements a bucketed, bulk-loaded 2-D spatial index.
//
// Nodes hold up to maxObjects items before splitting into four equal
// quadrants; an item descends into a child only when the child's bounds
// fully contain it, otherwise it stays at the current level. The tree is
// built once and never mutated during searches, so concurrent readers need
// no locking.
package quadtree

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/trailscout/routefinder/internal/geometry"
)

// ErrOutOfBounds is returned when inserting a point outside the root bounds.
var ErrOutOfBounds = errors.New("quadtree: point outside of root bounds")

// Child quadrant slots. thisNode marks an item that stays at the current
// level because no child fully contains it.
const (
	thisNode = -1
	childNE  = 0
	childNW  = 1
	childSW  = 2
	childSE  = 3
)

const (
	// DefaultMaxObjects is the per-node bucket size before a split.
	DefaultMaxObjects = 5
	// DefaultMaxLevels bounds the subdivision depth.
	DefaultMaxLevels = 5
)

// Item is an indexed point stored in the tree. ID refers back to the
// caller's point list.
type Item struct {
	ID    int
	Point geometry.Point
}

// node is one arena entry. children holds arena indices, or -1 when the
// node is a leaf.
type node struct {
	bounds   geometry.Rect
	level    int
	children [4]int32
	items    []Item
}

// Tree is the quadtree. The zero value is not usable; construct with New.
type Tree struct {
	nodes      []node
	maxObjects int
	maxLevels  int
	size       int
}

// New creates an empty tree covering bounds.
func New(bounds geometry.Rect, maxObjects, maxLevels int) *Tree {
	if maxObjects <= 0 {
		maxObjects = DefaultMaxObjects
	}
	if maxLevels <= 0 {
		maxLevels = DefaultMaxLevels
	}
	t := &Tree{
		maxObjects: maxObjects,
		maxLevels:  maxLevels,
	}
	t.nodes = append(t.nodes, newNode(bounds, 0))
	return t
}

// Build bulk-loads items into a fresh tree covering bounds.
func Build(bounds geometry.Rect, items []Item, maxObjects, maxLevels int) (*Tree, error) {
	t := New(bounds, maxObjects, maxLevels)
	for _, it := range items {
		if err := t.Insert(it); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func newNode(bounds geometry.Rect, level int) node {
	return node{
		bounds:   bounds,
		level:    level,
		children: [4]int32{thisNode, thisNode, thisNode, thisNode},
	}
}

// Bounds returns the root bounds.
func (t *Tree) Bounds() geometry.Rect {
	return t.nodes[0].bounds
}

// Len returns the number of items stored.
func (t *Tree) Len() int {
	return t.size
}

// Insert places an item into the tree. Points outside the root bounds fail
// with ErrOutOfBounds.
func (t *Tree) Insert(it Item) error {
	if !t.nodes[0].bounds.ContainsPoint(it.Point) {
		return errors.Wrapf(ErrOutOfBounds, "point %s", it.Point)
	}
	t.insert(0, it)
	t.size++
	return nil
}

func (t *Tree) insert(ni int32, it Item) {
	n := &t.nodes[ni]

	// Descend while a child can fully contain the item.
	if n.children[0] != thisNode {
		if ci := t.childIndex(ni, it.Point, 0); ci != thisNode {
			t.insert(n.children[ci], it)
			return
		}
	}

	n.items = append(n.items, it)

	// Split once the bucket overflows, provided depth remains.
	if len(n.items) > t.maxObjects && n.level < t.maxLevels && n.children[0] == thisNode {
		t.split(ni)
		n = &t.nodes[ni]
		kept := n.items[:0]
		for _, obj := range n.items {
			if ci := t.childIndex(ni, obj.Point, 0); ci != thisNode {
				t.insert(t.nodes[ni].children[ci], obj)
				n = &t.nodes[ni]
			} else {
				kept = append(kept, obj)
			}
		}
		n.items = kept
	}
}

// childIndex returns the quadrant whose bounds fully contain the square of
// side radius centered on p, or thisNode if none does.
func (t *Tree) childIndex(ni int32, p geometry.Point, radius float64) int {
	bounds := t.nodes[ni].bounds
	center := bounds.Center()

	objBounds := geometry.NewRect(
		p.Sub(geometry.Pt(radius/2, radius/2)), radius, radius)

	quads := [4]geometry.Rect{
		childNE: geometry.RectFromCorners(bounds.TR(), center),
		childNW: geometry.RectFromCorners(bounds.TL(), center),
		childSW: geometry.RectFromCorners(bounds.BL(), center),
		childSE: geometry.RectFromCorners(bounds.BR(), center),
	}
	for ci, q := range quads {
		if q.ContainsRect(objBounds) {
			return ci
		}
	}
	return thisNode
}

// split creates the four quadrant children of node ni.
func (t *Tree) split(ni int32) {
	bounds := t.nodes[ni].bounds
	level := t.nodes[ni].level
	center := bounds.Center()

	corners := [4]geometry.Point{
		childNE: bounds.TR(),
		childNW: bounds.TL(),
		childSW: bounds.BL(),
		childSE: bounds.BR(),
	}
	for ci, corner := range corners {
		t.nodes[ni].children[ci] = int32(len(t.nodes))
		t.nodes = append(t.nodes, newNode(geometry.RectFromCorners(center, corner), level+1))
	}
}

// Search returns every item whose point lies strictly within radius of
// center. Safe for concurrent readers.
func (t *Tree) Search(center geometry.Point, radius float64) []Item {
	var candidates []Item
	t.gather(0, center, radius, &candidates)

	var out []Item
	for _, it := range candidates {
		if geometry.Distance(center, it.Point) < radius {
			out = append(out, it)
		}
	}
	return out
}

// gather collects candidate items by walking every node whose bounds
// intersect the query square with positive area.
func (t *Tree) gather(ni int32, center geometry.Point, radius float64, out *[]Item) {
	n := &t.nodes[ni]
	*out = append(*out, n.items...)

	if n.children[0] == thisNode {
		return
	}

	queryBounds := geometry.NewRect(
		center.Sub(geometry.Pt(radius, radius)), radius*2, radius*2)

	for _, child := range n.children {
		if geometry.Intersection(t.nodes[child].bounds, queryBounds).Area() > 0 {
			t.gather(child, center, radius, out)
		}
	}
}

// AnyWithin reports whether at least one item lies strictly within radius
// of center. It short-circuits on the first hit.
func (t *Tree) AnyWithin(center geometry.Point, radius float64) bool {
	var candidates []Item
	t.gather(0, center, radius, &candidates)
	for _, it := range candidates {
		if geometry.Distance(center, it.Point) < radius {
			return true
		}
	}
	return false
}

// InBound returns every item whose point lies inside r (boundary included).
func (t *Tree) InBound(r geometry.Rect) []Item {
	var out []Item
	t.inBound(0, r, &out)
	return out
}

func (t *Tree) inBound(ni int32, r geometry.Rect, out *[]Item) {
	n := &t.nodes[ni]
	if geometry.Intersection(n.bounds, r).Area() <= 0 && !r.ContainsRect(n.bounds) {
		return
	}
	for _, it := range n.items {
		if r.ContainsPoint(it.Point) {
			*out = append(*out, it)
		}
	}
	if n.children[0] == thisNode {
		return
	}
	for _, child := range n.children {
		t.inBound(child, r, out)
	}
}

// Remove deletes the item with the given id at the node owning its point.
// It reports whether an item was removed. Not safe against concurrent
// searches; the optimizer never calls it during a run.
func (t *Tree) Remove(it Item) bool {
	return t.remove(0, it)
}

func (t *Tree) remove(ni int32, it Item) bool {
	n := &t.nodes[ni]
	if n.children[0] != thisNode {
		if ci := t.childIndex(ni, it.Point, 0); ci != thisNode {
			return t.remove(n.children[ci], it)
		}
	}
	for i, obj := range n.items {
		if obj.ID == it.ID {
			n.items = append(n.items[:i], n.items[i+1:]...)
			t.size--
			return true
		}
	}
	return false
}

// String renders the tree structure for debug logs.
func (t *Tree) String() string {
	var sb strings.Builder
	t.dump(&sb, 0, "Root")
	return sb.String()
}

func (t *Tree) dump(sb *strings.Builder, ni int32, label string) {
	n := &t.nodes[ni]
	gap := strings.Repeat(" ", 4*n.level)
	fmt.Fprintf(sb, "%sQuadTree: %s, Level: %d, Points: %d, BBOX: %s\n",
		gap, label, n.level, len(n.items), n.bounds)
	if n.children[0] == thisNode {
		fmt.Fprintf(sb, "%s    - No Children\n", gap)
		return
	}
	labels := [4]string{childNE: "NE", childNW: "NW", childSW: "SW", childSE: "SE"}
	for ci, child := range n.children {
		t.dump(sb, child, labels[ci])
	}
}
