// Package interval provides an augmented interval tree for range-overlap
// queries over closed ranges. Inserts are O(log N) and overlap queries are
// O(log N + k) for k matches.
//
// The tree is a red-black tree in which every node stores the maximum right
// endpoint of its subtree, so overlap queries can prune whole subtrees.
package interval

import "cmp"

// Interval is a closed range [Low, High] carrying a Value.
type Interval[K cmp.Ordered, V any] struct {
	Low   K
	High  K
	Value V
}

// Tree is an insert-only augmented interval tree. The zero value is not
// usable; call New.
type Tree[K cmp.Ordered, V any] struct {
	root *node[K, V]
	size int
}

type node[K cmp.Ordered, V any] struct {
	interval    Interval[K, V]
	maxHigh     K
	left, right *node[K, V]
	parent      *node[K, V]
	color       color
}

type color bool

const (
	red   color = false
	black color = true
)

// New creates an empty tree.
func New[K cmp.Ordered, V any]() *Tree[K, V] {
	return &Tree[K, V]{}
}

// Len returns the number of intervals in the tree.
func (t *Tree[K, V]) Len() int {
	return t.size
}

// Clear removes all intervals.
func (t *Tree[K, V]) Clear() {
	t.root = nil
	t.size = 0
}

// Insert adds [low, high] with value. Duplicates are kept. Ranges with
// high < low are stored as given and never match a query.
func (t *Tree[K, V]) Insert(low, high K, value V) {
	n := &node[K, V]{
		interval: Interval[K, V]{Low: low, High: high, Value: value},
		maxHigh:  high,
		color:    red,
	}

	t.bstInsert(n)
	t.insertFixup(n)
	t.size++
}

// QueryOverlap returns the intervals overlapping [low, high], ordered by Low
// then High. [a, b] overlaps [low, high] when a <= high and b >= low.
func (t *Tree[K, V]) QueryOverlap(low, high K) []Interval[K, V] {
	var results []Interval[K, V]

	t.VisitOverlap(low, high, func(iv Interval[K, V]) bool {
		results = append(results, iv)

		return true
	})

	return results
}

// VisitOverlap calls fn for each interval overlapping [low, high] in the same
// order as QueryOverlap. It stops when fn returns false.
func (t *Tree[K, V]) VisitOverlap(low, high K, fn func(Interval[K, V]) bool) {
	if high < low {
		return
	}

	visitOverlap(t.root, low, high, fn)
}

// QueryPoint returns the intervals containing point.
func (t *Tree[K, V]) QueryPoint(point K) []Interval[K, V] {
	return t.QueryOverlap(point, point)
}

func visitOverlap[K cmp.Ordered, V any](n *node[K, V], low, high K, fn func(Interval[K, V]) bool) bool {
	if n == nil || n.maxHigh < low {
		return true
	}

	if !visitOverlap(n.left, low, high, fn) {
		return false
	}

	if n.interval.Low > high {
		return true
	}

	if n.interval.High >= low && n.interval.High >= n.interval.Low && !fn(n.interval) {
		return false
	}

	return visitOverlap(n.right, low, high, fn)
}

// bstInsert places n by Low, then High. Equal keys go right, which keeps
// insertion order among duplicates.
func (t *Tree[K, V]) bstInsert(n *node[K, V]) {
	if t.root == nil {
		t.root = n

		return
	}

	current := t.root

	for {
		current.maxHigh = max(current.maxHigh, n.interval.High)

		if compareIntervals(n.interval, current.interval) < 0 {
			if current.left == nil {
				current.left = n
				n.parent = current

				return
			}

			current = current.left

			continue
		}

		if current.right == nil {
			current.right = n
			n.parent = current

			return
		}

		current = current.right
	}
}

func (t *Tree[K, V]) insertFixup(n *node[K, V]) {
	for n != t.root && nodeColor(n.parent) == red {
		parent := n.parent

		grandparent := parent.parent
		if grandparent == nil {
			break
		}

		n = t.insertFixupCase(n, parent, grandparent, parent == grandparent.left)
	}

	t.root.color = black
}

// insertFixupCase handles one side of the fixup; leftCase means parent is
// grandparent.left.
func (t *Tree[K, V]) insertFixupCase(n, parent, grandparent *node[K, V], leftCase bool) *node[K, V] {
	uncle := childOf(grandparent, !leftCase)

	if nodeColor(uncle) == red {
		parent.color = black
		uncle.color = black
		grandparent.color = red

		return grandparent
	}

	if n == childOf(parent, !leftCase) {
		t.rotate(parent, leftCase)
		n, parent = parent, n
	}

	parent.color = black
	grandparent.color = red
	t.rotate(grandparent, !leftCase)

	return n
}

// rotate rotates left at n when left is true, right otherwise, and repairs
// maxHigh on the two nodes that moved.
func (t *Tree[K, V]) rotate(n *node[K, V], left bool) {
	var pivot *node[K, V]

	if left {
		pivot = n.right
		n.right = pivot.left

		if pivot.left != nil {
			pivot.left.parent = n
		}

		pivot.left = n
	} else {
		pivot = n.left
		n.left = pivot.right

		if pivot.right != nil {
			pivot.right.parent = n
		}

		pivot.right = n
	}

	pivot.parent = n.parent

	switch {
	case n.parent == nil:
		t.root = pivot
	case n == n.parent.left:
		n.parent.left = pivot
	default:
		n.parent.right = pivot
	}

	n.parent = pivot

	recalcMaxHigh(n)
	recalcMaxHigh(pivot)
}

func compareIntervals[K cmp.Ordered, V any](a, b Interval[K, V]) int {
	if c := cmp.Compare(a.Low, b.Low); c != 0 {
		return c
	}

	return cmp.Compare(a.High, b.High)
}

func nodeColor[K cmp.Ordered, V any](n *node[K, V]) color {
	if n == nil {
		return black
	}

	return n.color
}

func childOf[K cmp.Ordered, V any](n *node[K, V], left bool) *node[K, V] {
	if n == nil {
		return nil
	}

	if left {
		return n.left
	}

	return n.right
}

func recalcMaxHigh[K cmp.Ordered, V any](n *node[K, V]) {
	m := n.interval.High

	if n.left != nil {
		m = max(m, n.left.maxHigh)
	}

	if n.right != nil {
		m = max(m, n.right.maxHigh)
	}

	n.maxHigh = m
}
