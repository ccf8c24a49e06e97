package marble

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestWorldToCell(t *testing.T) {
	grid := NewSpatialGrid(1.0, 16)

	tests := []struct {
		name     string
		position mgl64.Vec3
		expected CellKey
	}{
		{"origin", mgl64.Vec3{0, 0, 0}, CellKey{0, 0, 0}},
		{"positive", mgl64.Vec3{1.5, 2.3, 3.7}, CellKey{1, 2, 3}},
		{"negative", mgl64.Vec3{-1.5, -2.3, -3.7}, CellKey{-2, -3, -4}},
		{"fractional", mgl64.Vec3{0.5, 0.5, 0.5}, CellKey{0, 0, 0}},
		{"large", mgl64.Vec3{100.7, -200.3, 50.1}, CellKey{100, -201, 50}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := grid.worldToCell(tt.position)
			if result != tt.expected {
				t.Errorf("worldToCell(%v) = %v, want %v", tt.position, result, tt.expected)
			}
		})
	}
}

func TestHashCell(t *testing.T) {
	grid := NewSpatialGrid(1.0, 16) // mask = 15

	tests := []struct {
		name     string
		key      CellKey
		expected int
	}{
		{"origin", CellKey{0, 0, 0}, 0},
		{"x", CellKey{1, 0, 0}, 13},
		{"y", CellKey{0, 1, 0}, 15},
		{"z", CellKey{0, 0, 1}, 7},
		{"negative", CellKey{-1, 0, 0}, 3},
		{"mixed", CellKey{3, -2, 5}, 12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := grid.hashCell(tt.key)
			if result < 0 || result >= grid.Buckets() {
				t.Errorf("hashCell(%v) = %d, out of range [0, %d)", tt.key, result, grid.Buckets())
			}
			if result != tt.expected {
				t.Errorf("hashCell(%v) = %d, want %d", tt.key, result, tt.expected)
			}
		})
	}
}

func TestNewSpatialGridRoundsBuckets(t *testing.T) {
	tests := []struct {
		requested, expected int
	}{
		{0, 1},
		{1, 1},
		{3, 4},
		{16, 16},
		{1000, 1024},
	}

	for _, tt := range tests {
		if got := NewSpatialGrid(1.0, tt.requested).Buckets(); got != tt.expected {
			t.Errorf("NewSpatialGrid(_, %d).Buckets() = %d, want %d", tt.requested, got, tt.expected)
		}
	}
}

func TestHashCellDistribution(t *testing.T) {
	grid := NewSpatialGrid(1.0, 1024)

	cellCounts := make(map[int]int)
	for x := -20; x <= 20; x++ {
		for y := -20; y <= 20; y++ {
			for z := -20; z <= 20; z++ {
				cellCounts[grid.hashCell(CellKey{x, y, z})]++
			}
		}
	}

	minCount := int(^uint(0) >> 1)
	maxCount := 0
	for _, count := range cellCounts {
		minCount = min(minCount, count)
		maxCount = max(maxCount, count)
	}

	t.Logf("Hash distribution: buckets=%d, min=%d, max=%d", len(cellCounts), minCount, maxCount)
	if len(cellCounts) < grid.Buckets()/2 {
		t.Errorf("only %d of %d buckets used", len(cellCounts), grid.Buckets())
	}
}

func bucketsOf(grid *SpatialGrid, index int) []int {
	var buckets []int
	for i, cell := range grid.cells {
		for _, idx := range cell.sphereIndices {
			if idx == index {
				buckets = append(buckets, i)
			}
		}
	}

	return buckets
}

func TestRehashSingleSphere(t *testing.T) {
	grid := NewSpatialGrid(1.0, 1024)
	grid.Rehash([]BoundingSphere{{Center: mgl64.Vec3{1.5, 2.5, 3.5}, Radius: 0.4}})

	buckets := bucketsOf(grid, 0)
	if len(buckets) != 1 {
		t.Fatalf("sphere inside one cell found in %d buckets", len(buckets))
	}
	if buckets[0] != grid.hashCell(CellKey{1, 2, 3}) {
		t.Errorf("sphere stored in bucket %d, want %d", buckets[0], grid.hashCell(CellKey{1, 2, 3}))
	}
}

func TestRehashSpanningSphere(t *testing.T) {
	grid := NewSpatialGrid(1.0, 16)
	// the box covers cells -1..1 on every axis, 27 cells in 16 buckets
	grid.Rehash([]BoundingSphere{{Center: mgl64.Vec3{0.5, 0.5, 0.5}, Radius: 1.0}})

	for i, cell := range grid.cells {
		count := 0
		for _, idx := range cell.sphereIndices {
			if idx == 0 {
				count++
			}
		}
		if count > 1 {
			t.Errorf("bucket %d holds the sphere %d times", i, count)
		}
	}

	for x := -1; x <= 1; x++ {
		for y := -1; y <= 1; y++ {
			for z := -1; z <= 1; z++ {
				cell := grid.cells[grid.hashCell(CellKey{x, y, z})]
				if len(cell.sphereIndices) != 1 {
					t.Errorf("cell %v: bucket holds %v", CellKey{x, y, z}, cell.sphereIndices)
				}
			}
		}
	}
}

func TestClear(t *testing.T) {
	grid := NewSpatialGrid(1.0, 16)
	grid.Rehash([]BoundingSphere{
		{Center: mgl64.Vec3{1, 1, 1}, Radius: 0.4},
		{Center: mgl64.Vec3{2, 2, 2}, Radius: 0.4},
	})

	if len(bucketsOf(grid, 0)) == 0 {
		t.Fatal("spheres should be present before clear")
	}

	grid.Clear()

	for _, cell := range grid.cells {
		if len(cell.sphereIndices) != 0 {
			t.Error("cells should be empty after clear")
		}
	}
	if len(grid.Pairs()) != 0 {
		t.Error("cleared grid should not report pairs")
	}
}

func TestSortCells(t *testing.T) {
	grid := NewSpatialGrid(1.0, 16)

	grid.cells[0].sphereIndices = append(grid.cells[0].sphereIndices, 5, 2, 8, 1, 9, 3, 2)

	grid.SortCells()

	expected := []int{1, 2, 3, 5, 8, 9}
	if !sort.IntsAreSorted(grid.cells[0].sphereIndices) {
		t.Error("cell indices should be sorted")
	}
	if len(grid.cells[0].sphereIndices) != len(expected) {
		t.Fatalf("got %v, want %v", grid.cells[0].sphereIndices, expected)
	}
	for i, idx := range grid.cells[0].sphereIndices {
		if idx != expected[i] {
			t.Errorf("expected index %d at position %d, got %d", expected[i], i, idx)
		}
	}
}

func TestPairsNoCollision(t *testing.T) {
	grid := NewSpatialGrid(1.0, 1024)
	grid.Rehash([]BoundingSphere{
		{Center: mgl64.Vec3{0, 0, 0}, Radius: 0.4},
		{Center: mgl64.Vec3{10, 10, 10}, Radius: 0.4},
	})

	if pairs := grid.Pairs(); len(pairs) != 0 {
		t.Errorf("expected 0 pairs, got %v", pairs)
	}
}

func TestPairsBucketCollision(t *testing.T) {
	// with 16 buckets the two distant spheres share buckets 1 and 10: the
	// grid reports them as a candidate, once
	grid := NewSpatialGrid(1.0, 16)
	grid.Rehash([]BoundingSphere{
		{Center: mgl64.Vec3{0, 0, 0}, Radius: 0.4},
		{Center: mgl64.Vec3{10, 10, 10}, Radius: 0.4},
	})

	pairs := grid.Pairs()
	if len(pairs) != 1 || pairs[0] != (Pair{A: 0, B: 1}) {
		t.Errorf("expected the single candidate {0 1}, got %v", pairs)
	}
}

func TestPairsWithCollision(t *testing.T) {
	grid := NewSpatialGrid(1.0, 1024)
	grid.Rehash([]BoundingSphere{
		{Center: mgl64.Vec3{0, 0, 0}, Radius: 0.4},
		{Center: mgl64.Vec3{0.5, 0.5, 0.5}, Radius: 0.4},
		{Center: mgl64.Vec3{-20, 3, 7}, Radius: 0.4},
	})

	pairs := grid.Pairs()
	if len(pairs) != 1 {
		t.Fatalf("expected 1 pair, got %v", pairs)
	}
	if pairs[0] != (Pair{A: 0, B: 1}) {
		t.Errorf("expected pair {0 1}, got %v", pairs[0])
	}
}

func TestPairsCompleteness(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for _, buckets := range []int{8, 64, 4096} {
		grid := NewSpatialGrid(2.0, buckets)

		spheres := make([]BoundingSphere, 300)
		for i := range spheres {
			spheres[i] = BoundingSphere{
				Center: mgl64.Vec3{rng.Float64()*40 - 20, rng.Float64()*40 - 20, rng.Float64()*40 - 20},
				Radius: 0.2 + rng.Float64()*2,
			}
		}
		grid.Rehash(spheres)

		pairs := grid.Pairs()
		candidates := make(map[Pair]bool, len(pairs))
		for i, p := range pairs {
			if p.A >= p.B {
				t.Fatalf("pair %v is not ordered", p)
			}
			if candidates[p] {
				t.Fatalf("pair %v reported twice", p)
			}
			if i > 0 {
				prev := pairs[i-1]
				if prev.A > p.A || (prev.A == p.A && prev.B > p.B) {
					t.Fatalf("pairs not sorted: %v before %v", prev, p)
				}
			}
			candidates[p] = true
		}

		for i := range spheres {
			for j := i + 1; j < len(spheres); j++ {
				distance := spheres[i].Center.Sub(spheres[j].Center).Len()
				if distance > spheres[i].Radius+spheres[j].Radius {
					continue
				}
				if !candidates[Pair{A: i, B: j}] {
					t.Errorf("buckets=%d: overlapping spheres %d and %d missing", buckets, i, j)
				}
			}
		}
	}
}
