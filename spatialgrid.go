package marble

import (
	"math"
	"slices"
	"sort"

	"github.com/akmonengine/marble/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// CellKey is the integer coordinate of a grid cell
type CellKey struct {
	X, Y, Z int
}

// Cell is one hash bucket: the indices of the spheres whose box touches a
// cell hashed to it
type Cell struct {
	sphereIndices []int
}

// BoundingSphere is the world bounding sphere of a body, as seen by the grid
type BoundingSphere struct {
	Center mgl64.Vec3
	Radius float64
}

// Pair of indices into the slice given to Rehash, A < B
type Pair struct {
	A, B int
}

// SpatialGrid is a uniform grid hashed into a fixed number of buckets. Two
// spheres sharing a bucket form a candidate pair, distinct cells may collide
// in the same bucket so overlap still has to be verified by the caller.
type SpatialGrid struct {
	cellSize float64
	cells    []Cell
	cellMask int
	spheres  []BoundingSphere
}

// NewSpatialGrid rounds numCells up to a power of two
func NewSpatialGrid(cellSize float64, numCells int) *SpatialGrid {
	numCells = nextPowerOfTwo(numCells)

	cells := make([]Cell, numCells)
	for i := range cells {
		cells[i].sphereIndices = make([]int, 0, 8)
	}

	return &SpatialGrid{
		cellSize: cellSize,
		cells:    cells,
		cellMask: numCells - 1,
	}
}

func nextPowerOfTwo(n int) int {
	if n <= 0 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n++
	return n
}

// Buckets returns the number of hash buckets
func (sg *SpatialGrid) Buckets() int {
	return len(sg.cells)
}

// Rehash clears the grid and inserts every sphere in all the cells its box
// overlaps. The grid keeps the slice until the next Rehash.
func (sg *SpatialGrid) Rehash(spheres []BoundingSphere) {
	sg.Clear()
	sg.spheres = spheres

	for i, s := range spheres {
		sg.insert(i, s)
	}
	sg.SortCells()
}

func (sg *SpatialGrid) insert(index int, s BoundingSphere) {
	aabb := actor.NewSphereAABB(s.Center, s.Radius)
	minCell := sg.worldToCell(aabb.Min)
	maxCell := sg.worldToCell(aabb.Max)

	for x := minCell.X; x <= maxCell.X; x++ {
		for y := minCell.Y; y <= maxCell.Y; y++ {
			for z := minCell.Z; z <= maxCell.Z; z++ {
				cellIdx := sg.hashCell(CellKey{x, y, z})

				// a sphere spanning several cells may hash twice into the same bucket
				indices := sg.cells[cellIdx].sphereIndices
				if len(indices) > 0 && indices[len(indices)-1] == index {
					continue
				}
				sg.cells[cellIdx].sphereIndices = append(indices, index)
			}
		}
	}
}

func (sg *SpatialGrid) Clear() {
	for i := range sg.cells {
		sg.cells[i].sphereIndices = sg.cells[i].sphereIndices[:0]
	}
	sg.spheres = nil
}

func (sg *SpatialGrid) SortCells() {
	for i := range sg.cells {
		if len(sg.cells[i].sphereIndices) > 1 {
			sort.Ints(sg.cells[i].sphereIndices)
			sg.cells[i].sphereIndices = slices.Compact(sg.cells[i].sphereIndices)
		}
	}
}

// Pairs returns every pair of spheres sharing a bucket, once, sorted
func (sg *SpatialGrid) Pairs() []Pair {
	seen := make(map[Pair]struct{})
	pairs := make([]Pair, 0, len(sg.spheres))

	for _, cell := range sg.cells {
		indices := cell.sphereIndices
		for i := 0; i < len(indices); i++ {
			for j := i + 1; j < len(indices); j++ {
				pair := Pair{A: indices[i], B: indices[j]}
				if _, ok := seen[pair]; ok {
					continue
				}
				seen[pair] = struct{}{}
				pairs = append(pairs, pair)
			}
		}
	}

	slices.SortFunc(pairs, func(a, b Pair) int {
		if a.A != b.A {
			return a.A - b.A
		}
		return a.B - b.B
	})

	return pairs
}

func (sg *SpatialGrid) worldToCell(pos mgl64.Vec3) CellKey {
	return CellKey{
		X: int(math.Floor(pos.X() / sg.cellSize)),
		Y: int(math.Floor(pos.Y() / sg.cellSize)),
		Z: int(math.Floor(pos.Z() / sg.cellSize)),
	}
}

// hashCell combines the cell coordinates with three large primes. The mask
// is a modulo that stays non-negative for negative coordinates.
func (sg *SpatialGrid) hashCell(key CellKey) int {
	h := key.X*73856093 + key.Y*19349663 + key.Z*83492791
	return h & sg.cellMask
}
