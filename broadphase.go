package marble

import (
	"github.com/akmonengine/marble/actor"
	"github.com/akmonengine/marble/bvh"
)

// bodyPair is a candidate pair of body handles, A < B
type bodyPair struct {
	A, B int
}

// broadPhase finds the candidate pairs among spheres bodies. update receives
// the world bounding sphere of each body listed in handles, pairs returns
// candidates sorted by handle.
type broadPhase interface {
	update(handles []int, bounds []BoundingSphere)
	pairs() []bodyPair
	checkInvariants() error
}

func newBroadPhase(config Config) broadPhase {
	if config.BroadPhase == BroadPhaseGrid {
		return &gridBroadPhase{grid: NewSpatialGrid(config.CellSize, config.Buckets)}
	}

	return &treeBroadPhase{tree: bvh.NewTree[int](), fatMargin: config.FatMargin}
}

// treeBroadPhase keeps one enlarged box per body in a dynamic tree. A leaf is
// moved only once the tight box of its body escapes the enlarged one.
type treeBroadPhase struct {
	tree      *bvh.Tree[int]
	fatMargin float64
}

func (b *treeBroadPhase) update(handles []int, bounds []BoundingSphere) {
	for i, handle := range handles {
		tight := actor.NewSphereAABB(bounds[i].Center, bounds[i].Radius)
		if !tight.IsValid() {
			continue
		}

		fat, ok := b.tree.Box(handle)
		if ok && fat.Contains(tight) {
			continue
		}

		if ok {
			b.tree.Move(handle, tight.Expand(b.fatMargin))
		} else {
			b.tree.Insert(tight.Expand(b.fatMargin), handle)
		}
	}
}

func (b *treeBroadPhase) pairs() []bodyPair {
	overlapping := b.tree.OverlappingPairs()

	pairs := make([]bodyPair, len(overlapping))
	for i, p := range overlapping {
		pairs[i] = bodyPair{A: p.A, B: p.B}
	}

	return pairs
}

func (b *treeBroadPhase) checkInvariants() error {
	return b.tree.CheckInvariants()
}

// gridBroadPhase rehashes every bounding sphere on each update
type gridBroadPhase struct {
	grid    *SpatialGrid
	handles []int
}

func (b *gridBroadPhase) update(handles []int, bounds []BoundingSphere) {
	b.handles = handles
	b.grid.Rehash(bounds)
}

func (b *gridBroadPhase) pairs() []bodyPair {
	candidates := b.grid.Pairs()

	pairs := make([]bodyPair, len(candidates))
	for i, p := range candidates {
		// handles are ascending, so index order is handle order
		pairs[i] = bodyPair{A: b.handles[p.A], B: b.handles[p.B]}
	}

	return pairs
}

func (b *gridBroadPhase) checkInvariants() error {
	return nil
}
