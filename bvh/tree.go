// Package bvh implements a dynamic bounding-volume hierarchy used as the
// broad phase of the solver.
//
// The tree is a binary tree of AABBs over a dynamic set of keyed boxes. Leaves
// hold the user boxes, internal nodes hold the union of their two children.
// Insertion picks the sibling that minimises the total surface area added to
// the tree (branch and bound over a priority queue), then walks back to the
// root refitting boxes and applying local rotations that shrink the subtree.
//
// Nodes live in a single slice and reference each other by index; freed
// nodes are recycled through a free list.
package bvh

import (
	"container/heap"
	"fmt"
	"iter"
	"math"
	"slices"

	"github.com/akmonengine/marble/actor"
	"golang.org/x/exp/constraints"
)

const nullNode = -1

type node[K constraints.Ordered] struct {
	box    actor.AABB
	parent int
	child1 int
	child2 int
	// next links free nodes
	next int
	key  K
	live bool
}

func (n *node[K]) isLeaf() bool {
	return n.child1 == nullNode
}

// Pair is an unordered pair of keys stored as (min, max)
type Pair[K constraints.Ordered] struct {
	A, B K
}

func makePair[K constraints.Ordered](a, b K) Pair[K] {
	if b < a {
		a, b = b, a
	}

	return Pair[K]{A: a, B: b}
}

// Tree is a dynamic AABB tree keyed by K. The zero value is not usable, use NewTree.
type Tree[K constraints.Ordered] struct {
	nodes     []node[K]
	root      int
	freeList  int
	nodeCount int
	leaves    map[K]int

	// Rotations enables the local restructuring on the refit walk.
	// Disabling it is only useful to measure its effect.
	Rotations bool
}

func NewTree[K constraints.Ordered]() *Tree[K] {
	return &Tree[K]{
		nodes:     make([]node[K], 0, 16),
		root:      nullNode,
		freeList:  nullNode,
		leaves:    make(map[K]int),
		Rotations: true,
	}
}

// Len returns the number of keys in the tree
func (t *Tree[K]) Len() int {
	return len(t.leaves)
}

// NodeCount returns the number of live nodes, leaves and internal ones
func (t *Tree[K]) NodeCount() int {
	return t.nodeCount
}

// Root returns the root node index, -1 when the tree is empty
func (t *Tree[K]) Root() int {
	return t.root
}

// Box returns the box stored for key
func (t *Tree[K]) Box(key K) (actor.AABB, bool) {
	leaf, ok := t.leaves[key]
	if !ok {
		return actor.AABB{}, false
	}

	return t.nodes[leaf].box, true
}

func (t *Tree[K]) allocateNode() int {
	var id int
	if t.freeList == nullNode {
		t.nodes = append(t.nodes, node[K]{})
		id = len(t.nodes) - 1
	} else {
		id = t.freeList
		t.freeList = t.nodes[id].next
	}

	t.nodes[id] = node[K]{
		parent: nullNode,
		child1: nullNode,
		child2: nullNode,
		next:   nullNode,
		live:   true,
	}
	t.nodeCount++

	return id
}

func (t *Tree[K]) freeNode(id int) {
	t.nodes[id] = node[K]{
		parent: nullNode,
		child1: nullNode,
		child2: nullNode,
		next:   t.freeList,
	}
	t.freeList = id
	t.nodeCount--
}

// Insert adds box under key. It returns false without touching the tree if
// key is already present or box is malformed.
func (t *Tree[K]) Insert(box actor.AABB, key K) bool {
	if !box.IsValid() {
		return false
	}
	if _, ok := t.leaves[key]; ok {
		return false
	}

	leaf := t.allocateNode()
	t.nodes[leaf].box = box
	t.nodes[leaf].key = key
	t.leaves[key] = leaf

	if t.root == nullNode {
		t.root = leaf
		return true
	}

	sibling := t.findBestSibling(box)

	// Create a new parent joining the sibling and the new leaf
	oldParent := t.nodes[sibling].parent
	newParent := t.allocateNode()
	t.nodes[newParent].parent = oldParent
	t.nodes[newParent].box = box.Union(t.nodes[sibling].box)
	t.nodes[newParent].child1 = sibling
	t.nodes[newParent].child2 = leaf
	t.nodes[sibling].parent = newParent
	t.nodes[leaf].parent = newParent

	if oldParent == nullNode {
		t.root = newParent
	} else if t.nodes[oldParent].child1 == sibling {
		t.nodes[oldParent].child1 = newParent
	} else {
		t.nodes[oldParent].child2 = newParent
	}

	t.refit(newParent)

	return true
}

// Erase removes key. It returns false if key is absent.
func (t *Tree[K]) Erase(key K) bool {
	leaf, ok := t.leaves[key]
	if !ok {
		return false
	}
	delete(t.leaves, key)

	if leaf == t.root {
		t.root = nullNode
		t.freeNode(leaf)
		return true
	}

	parent := t.nodes[leaf].parent
	grandParent := t.nodes[parent].parent
	sibling := t.nodes[parent].child1
	if sibling == leaf {
		sibling = t.nodes[parent].child2
	}

	if grandParent == nullNode {
		t.root = sibling
		t.nodes[sibling].parent = nullNode
	} else {
		if t.nodes[grandParent].child1 == parent {
			t.nodes[grandParent].child1 = sibling
		} else {
			t.nodes[grandParent].child2 = sibling
		}
		t.nodes[sibling].parent = grandParent
	}

	t.freeNode(parent)
	t.freeNode(leaf)

	if grandParent != nullNode {
		t.refit(grandParent)
	}

	return true
}

// Move replaces the box of key, reinserting the leaf. Returns false if key is absent.
func (t *Tree[K]) Move(key K, box actor.AABB) bool {
	if !box.IsValid() || !t.Erase(key) {
		return false
	}

	return t.Insert(box, key)
}

// refit walks from index to the root, rotating and recomputing boxes
func (t *Tree[K]) refit(index int) {
	for index != nullNode {
		if t.Rotations {
			t.rotate(index)
		}

		n := &t.nodes[index]
		n.box = t.nodes[n.child1].box.Union(t.nodes[n.child2].box)

		index = n.parent
	}
}

// rotate considers swapping one child of a with a grandchild from the other
// side and keeps the arrangement that minimises the area of the rebuilt
// child. The box of a is unchanged by construction.
func (t *Tree[K]) rotate(a int) {
	b := t.nodes[a].child1
	c := t.nodes[a].child2

	bestGain := 0.0
	var swapOuter, swapInner, pivot int
	found := false

	try := func(outer, inner, other, sub int) {
		// outer moves below sub, inner moves up into a
		area := t.nodes[sub].box.Cost()
		newArea := t.nodes[outer].box.Union(t.nodes[other].box).Cost()
		if gain := area - newArea; gain > bestGain {
			bestGain = gain
			swapOuter, swapInner, pivot = outer, inner, sub
			found = true
		}
	}

	if !t.nodes[c].isLeaf() {
		f := t.nodes[c].child1
		g := t.nodes[c].child2
		try(b, f, g, c)
		try(b, g, f, c)
	}
	if !t.nodes[b].isLeaf() {
		d := t.nodes[b].child1
		e := t.nodes[b].child2
		try(c, d, e, b)
		try(c, e, d, b)
	}

	if !found {
		return
	}

	// inner takes the place of outer under a
	if t.nodes[a].child1 == swapOuter {
		t.nodes[a].child1 = swapInner
	} else {
		t.nodes[a].child2 = swapInner
	}
	t.nodes[swapInner].parent = a

	// outer takes the place of inner under pivot
	if t.nodes[pivot].child1 == swapInner {
		t.nodes[pivot].child1 = swapOuter
	} else {
		t.nodes[pivot].child2 = swapOuter
	}
	t.nodes[swapOuter].parent = pivot

	p := &t.nodes[pivot]
	p.box = t.nodes[p.child1].box.Union(t.nodes[p.child2].box)
}

type candidate struct {
	index      int
	inherited  float64
	lowerBound float64
}

type candidateQueue []candidate

func (q candidateQueue) Len() int           { return len(q) }
func (q candidateQueue) Less(i, j int) bool { return q[i].lowerBound < q[j].lowerBound }
func (q candidateQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }
func (q *candidateQueue) Push(x any)        { *q = append(*q, x.(candidate)) }
func (q *candidateQueue) Pop() any {
	old := *q
	n := len(old)
	c := old[n-1]
	*q = old[:n-1]
	return c
}

// findBestSibling returns the node whose pairing with box adds the least
// area to the tree. The cost of choosing node S is area(S ∪ box) plus the
// area growth of every ancestor of S; the growth already paid on the way
// down is the inherited cost.
func (t *Tree[K]) findBestSibling(box actor.AABB) int {
	leafArea := box.Cost()
	best := t.root
	bestCost := math.Inf(1)

	queue := &candidateQueue{{index: t.root, lowerBound: leafArea}}
	for queue.Len() > 0 {
		c := heap.Pop(queue).(candidate)
		if c.lowerBound >= bestCost {
			break
		}

		n := &t.nodes[c.index]
		directCost := box.Union(n.box).Cost()
		if cost := directCost + c.inherited; cost < bestCost {
			bestCost = cost
			best = c.index
		}

		if n.isLeaf() {
			continue
		}

		inherited := c.inherited + directCost - n.box.Cost()
		lowerBound := leafArea + inherited
		if lowerBound < bestCost {
			heap.Push(queue, candidate{index: n.child1, inherited: inherited, lowerBound: lowerBound})
			heap.Push(queue, candidate{index: n.child2, inherited: inherited, lowerBound: lowerBound})
		}
	}

	return best
}

// Query calls fn with every key whose box overlaps box, until fn returns false
func (t *Tree[K]) Query(box actor.AABB, fn func(K) bool) {
	if t.root == nullNode {
		return
	}

	stack := make([]int, 0, 64)
	stack = append(stack, t.root)
	for len(stack) > 0 {
		index := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n := &t.nodes[index]
		if !n.box.Overlaps(box) {
			continue
		}

		if n.isLeaf() {
			if !fn(n.key) {
				return
			}
		} else {
			stack = append(stack, n.child1, n.child2)
		}
	}
}

// Overlapping iterates over the keys whose box overlaps box
func (t *Tree[K]) Overlapping(box actor.AABB) iter.Seq[K] {
	return func(yield func(K) bool) {
		t.Query(box, yield)
	}
}

// OverlappingPairs returns every pair of keys whose boxes overlap, each pair
// once as (min, max), sorted ascending
func (t *Tree[K]) OverlappingPairs() []Pair[K] {
	seen := make(map[Pair[K]]struct{})
	pairs := make([]Pair[K], 0, len(t.leaves))

	for key, leaf := range t.leaves {
		t.Query(t.nodes[leaf].box, func(other K) bool {
			if other == key {
				return true
			}

			pair := makePair(key, other)
			if _, ok := seen[pair]; !ok {
				seen[pair] = struct{}{}
				pairs = append(pairs, pair)
			}
			return true
		})
	}

	slices.SortFunc(pairs, func(p, q Pair[K]) int {
		switch {
		case p.A < q.A:
			return -1
		case p.A > q.A:
			return 1
		case p.B < q.B:
			return -1
		case p.B > q.B:
			return 1
		}
		return 0
	})

	return pairs
}

// TotalCost sums the surface area of every live node
func (t *Tree[K]) TotalCost() float64 {
	var cost float64
	for i := range t.nodes {
		if t.nodes[i].live {
			cost += t.nodes[i].box.Cost()
		}
	}

	return cost
}

// Height returns the number of levels of the tree, 0 when empty
func (t *Tree[K]) Height() int {
	var height func(index int) int
	height = func(index int) int {
		if index == nullNode {
			return 0
		}
		n := &t.nodes[index]
		if n.isLeaf() {
			return 1
		}
		return 1 + max(height(n.child1), height(n.child2))
	}

	return height(t.root)
}

// CheckInvariants walks the whole structure and reports the first broken
// invariant. It is meant for tests and debug builds.
func (t *Tree[K]) CheckInvariants() error {
	free := 0
	for i := t.freeList; i != nullNode; i = t.nodes[i].next {
		if t.nodes[i].live {
			return fmt.Errorf("node %d is both live and in the free list", i)
		}
		free++
		if free > len(t.nodes) {
			return fmt.Errorf("free list has a cycle")
		}
	}
	if free+t.nodeCount != len(t.nodes) {
		return fmt.Errorf("free list (%d) and live nodes (%d) do not cover the arena (%d)", free, t.nodeCount, len(t.nodes))
	}

	roots := 0
	for i := range t.nodes {
		if t.nodes[i].live && t.nodes[i].parent == nullNode {
			roots++
		}
	}

	if t.root == nullNode {
		if t.nodeCount != 0 || len(t.leaves) != 0 || roots != 0 {
			return fmt.Errorf("empty tree with %d nodes and %d keys", t.nodeCount, len(t.leaves))
		}
		return nil
	}
	if roots != 1 {
		return fmt.Errorf("expected exactly one root, found %d", roots)
	}
	if t.nodes[t.root].parent != nullNode {
		return fmt.Errorf("root %d has parent %d", t.root, t.nodes[t.root].parent)
	}

	visited, leaves := 0, 0
	stack := []int{t.root}
	for len(stack) > 0 {
		index := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		visited++
		if visited > t.nodeCount {
			return fmt.Errorf("more reachable nodes than live nodes (%d)", t.nodeCount)
		}

		n := &t.nodes[index]
		if !n.live {
			return fmt.Errorf("node %d is reachable but free", index)
		}

		if n.isLeaf() {
			if n.child2 != nullNode {
				return fmt.Errorf("node %d has a single child", index)
			}
			if leaf, ok := t.leaves[n.key]; !ok || leaf != index {
				return fmt.Errorf("leaf %d with key %v is not indexed", index, n.key)
			}
			leaves++
			continue
		}

		if n.child2 == nullNode {
			return fmt.Errorf("node %d has a single child", index)
		}
		for _, child := range []int{n.child1, n.child2} {
			if t.nodes[child].parent != index {
				return fmt.Errorf("node %d: child %d points to parent %d", index, child, t.nodes[child].parent)
			}
		}
		if union := t.nodes[n.child1].box.Union(t.nodes[n.child2].box); union != n.box {
			return fmt.Errorf("node %d box %v differs from the union of its children %v", index, n.box, union)
		}

		stack = append(stack, n.child1, n.child2)
	}

	if visited != t.nodeCount {
		return fmt.Errorf("reached %d nodes, %d are live", visited, t.nodeCount)
	}
	if leaves != len(t.leaves) {
		return fmt.Errorf("reached %d leaves, %d keys indexed", leaves, len(t.leaves))
	}

	return nil
}
