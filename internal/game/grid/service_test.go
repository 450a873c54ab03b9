package grid_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/keystrike/internal/game/grid"
)

type occupied map[grid.Coord]bool

func (o occupied) OccupiedAt(c grid.Coord) bool { return o[c] }

func blocked() *bool {
	b := false
	return &b
}

func squareMap(size int) *grid.Map {
	tiles := make(map[grid.Coord]grid.Tile)
	for q := -size; q <= size; q++ {
		for r := -size; r <= size; r++ {
			tiles[grid.Coord{Q: q, R: r}] = grid.Tile{Terrain: "grass"}
		}
	}
	return grid.NewMap("test", tiles)
}

func TestNeighbors_FixedOrder(t *testing.T) {
	svc := grid.NewService(squareMap(2), nil, grid.DefaultGeometry)
	got := svc.Neighbors(grid.Coord{Q: 1, R: 1})
	want := []grid.Coord{
		{Q: 1, R: 0}, {Q: 1, R: 2},
		{Q: 0, R: 1}, {Q: 2, R: 0},
		{Q: 0, R: 2}, {Q: 2, R: 1},
	}
	assert.Equal(t, want, got)
}

func TestNeighbors_AllAtDistanceOne(t *testing.T) {
	svc := grid.NewService(squareMap(2), nil, grid.DefaultGeometry)
	c := grid.Coord{Q: -1, R: 2}
	for _, n := range svc.Neighbors(c) {
		assert.Equal(t, 1, svc.Distance(c, n), "neighbor %v", n)
		assert.True(t, svc.IsNeighbor(c, n))
	}
	assert.False(t, svc.IsNeighbor(c, c))
}

func TestIsWalkable(t *testing.T) {
	m := grid.NewMap("w", map[grid.Coord]grid.Tile{
		{Q: 0, R: 0}: {Terrain: "grass"},
		{Q: 1, R: 0}: {Terrain: "water", Walkable: blocked()},
	})
	svc := grid.NewService(m, nil, grid.DefaultGeometry)
	assert.True(t, svc.IsWalkable(grid.Coord{Q: 0, R: 0}))
	assert.False(t, svc.IsWalkable(grid.Coord{Q: 1, R: 0}), "explicitly blocked")
	assert.False(t, svc.IsWalkable(grid.Coord{Q: 9, R: 9}), "out of bounds")
}

func TestIsOccupied(t *testing.T) {
	occ := occupied{{Q: 1, R: 1}: true}
	svc := grid.NewService(squareMap(2), occ, grid.DefaultGeometry)
	assert.True(t, svc.IsOccupied(grid.Coord{Q: 1, R: 1}))
	assert.False(t, svc.IsOccupied(grid.Coord{Q: 0, R: 0}))
	assert.False(t, svc.CanEnter(grid.Coord{Q: 1, R: 1}))
	assert.True(t, svc.CanEnter(grid.Coord{Q: 0, R: 0}))

	noOcc := grid.NewService(squareMap(2), nil, grid.DefaultGeometry)
	assert.False(t, noOcc.IsOccupied(grid.Coord{Q: 1, R: 1}))
}

func TestDistance_Axial(t *testing.T) {
	svc := grid.NewService(squareMap(5), nil, grid.DefaultGeometry)
	assert.Equal(t, 0, svc.Distance(grid.Coord{}, grid.Coord{}))
	assert.Equal(t, 3, svc.Distance(grid.Coord{Q: 0, R: 0}, grid.Coord{Q: 0, R: 3}))
	assert.Equal(t, 3, svc.Distance(grid.Coord{Q: 0, R: 0}, grid.Coord{Q: 3, R: -3}))
	assert.Equal(t, 4, svc.Distance(grid.Coord{Q: -2, R: 0}, grid.Coord{Q: 2, R: 0}))
}

func TestDistance_PixelMatchesAxialForNeighbors(t *testing.T) {
	geo := grid.Geometry{Metric: grid.MetricPixel, CellWidth: 32, CellHeight: 28}
	svc := grid.NewService(squareMap(3), nil, geo)
	c := grid.Coord{Q: 0, R: 0}
	for _, n := range svc.Neighbors(c) {
		assert.Equal(t, 1, svc.Distance(c, n), "neighbor %v", n)
	}
	assert.Equal(t, 3, svc.Distance(c, grid.Coord{Q: 0, R: 3}))
}

func TestParseMetric(t *testing.T) {
	m, ok := grid.ParseMetric("pixel")
	assert.True(t, ok)
	assert.Equal(t, grid.MetricPixel, m)
	_, ok = grid.ParseMetric("taxicab")
	assert.False(t, ok)
}

func TestTilesInRange_ZeroIsCenter(t *testing.T) {
	svc := grid.NewService(squareMap(3), nil, grid.DefaultGeometry)
	c := grid.Coord{Q: 1, R: -1}
	assert.Equal(t, []grid.Coord{c}, svc.TilesInRange(c, 0))
}

func TestTilesInRange_OpenFieldRadiusOne(t *testing.T) {
	svc := grid.NewService(squareMap(3), nil, grid.DefaultGeometry)
	got := svc.TilesInRange(grid.Coord{}, 1)
	assert.Len(t, got, 7)
	assert.Equal(t, grid.Coord{}, got[0])
	got = svc.TilesInRange(grid.Coord{}, 2)
	assert.Len(t, got, 19)
}

func TestTilesInRange_StopsAtMapEdge(t *testing.T) {
	m := grid.NewMap("line", map[grid.Coord]grid.Tile{
		{Q: 0, R: 0}: {Terrain: "grass"},
		{Q: 0, R: 1}: {Terrain: "grass"},
		{Q: 0, R: 3}: {Terrain: "grass"},
	})
	svc := grid.NewService(m, nil, grid.DefaultGeometry)
	got := svc.TilesInRange(grid.Coord{}, 5)
	assert.ElementsMatch(t, []grid.Coord{{Q: 0, R: 0}, {Q: 0, R: 1}}, got)
}

func TestPropertyTilesInRangeMonotonic(t *testing.T) {
	svc := grid.NewService(squareMap(6), nil, grid.DefaultGeometry)
	rapid.Check(t, func(t *rapid.T) {
		c := grid.Coord{
			Q: rapid.IntRange(-6, 6).Draw(t, "q"),
			R: rapid.IntRange(-6, 6).Draw(t, "r"),
		}
		r := rapid.IntRange(0, 8).Draw(t, "radius")
		small := svc.TilesInRange(c, r)
		large := svc.TilesInRange(c, r+1)
		if len(large) < len(small) {
			t.Fatalf("radius %d gave %d tiles, radius %d gave %d", r, len(small), r+1, len(large))
		}
		for _, tile := range small {
			if svc.Distance(c, tile) > r {
				t.Fatalf("tile %v is %d away, beyond radius %d", tile, svc.Distance(c, tile), r)
			}
		}
	})
}

func TestPropertyDistanceSymmetric(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		metric := grid.Metric(rapid.IntRange(0, 1).Draw(t, "metric"))
		svc := grid.NewService(squareMap(1), nil, grid.Geometry{Metric: metric, CellWidth: 32, CellHeight: 28})
		a := grid.Coord{Q: rapid.IntRange(-20, 20).Draw(t, "aq"), R: rapid.IntRange(-20, 20).Draw(t, "ar")}
		b := grid.Coord{Q: rapid.IntRange(-20, 20).Draw(t, "bq"), R: rapid.IntRange(-20, 20).Draw(t, "br")}
		if svc.Distance(a, b) != svc.Distance(b, a) {
			t.Fatalf("distance not symmetric for %v %v", a, b)
		}
		if svc.Distance(a, b) < 0 {
			t.Fatalf("negative distance")
		}
	})
}

func TestNewService_NilMapPanics(t *testing.T) {
	require.Panics(t, func() { grid.NewService(nil, nil, grid.DefaultGeometry) })
}
