package grid

import "math"

// Metric selects how Distance measures separation between cells.
type Metric int

const (
	// MetricAxial is the exact integer hex distance.
	MetricAxial Metric = iota
	// MetricPixel divides the world-space separation of cell centres by the
	// cell height and rounds to the nearest integer.
	MetricPixel
)

// ParseMetric maps a configuration string to a Metric.
func ParseMetric(s string) (Metric, bool) {
	switch s {
	case "axial", "":
		return MetricAxial, true
	case "pixel":
		return MetricPixel, true
	}
	return MetricAxial, false
}

// Geometry describes the cell size used by MetricPixel.
type Geometry struct {
	Metric     Metric
	CellWidth  float64
	CellHeight float64
}

// DefaultGeometry is the exact metric over 32x28 cells.
var DefaultGeometry = Geometry{Metric: MetricAxial, CellWidth: 32, CellHeight: 28}

// Occupancy reports whether a living combatant stands on a cell.
type Occupancy interface {
	OccupiedAt(c Coord) bool
}

// Service answers spatial queries over a read-only Map.
// It holds no mutable state of its own.
type Service struct {
	m   *Map
	occ Occupancy
	geo Geometry
}

// NewService creates a Service over m.
//
// Precondition: m must be non-nil.
// Postcondition: occ may be nil, in which case no cell is occupied.
func NewService(m *Map, occ Occupancy, geo Geometry) *Service {
	if m == nil {
		panic("grid.NewService: map must not be nil")
	}
	if geo.CellHeight <= 0 || geo.CellWidth <= 0 {
		geo.CellWidth, geo.CellHeight = DefaultGeometry.CellWidth, DefaultGeometry.CellHeight
	}
	return &Service{m: m, occ: occ, geo: geo}
}

// Map returns the underlying map snapshot.
func (s *Service) Map() *Map {
	return s.m
}

// Neighbors returns the six cells adjacent to c in fixed order:
// top, bottom, top-left, top-right, bottom-left, bottom-right.
//
// Postcondition: len(result) == 6; cells need not exist on the map.
func (s *Service) Neighbors(c Coord) []Coord {
	out := make([]Coord, len(neighborOffsets))
	for i, off := range neighborOffsets {
		out[i] = c.Add(off)
	}
	return out
}

// IsNeighbor reports whether b is one of the six cells adjacent to a.
func (s *Service) IsNeighbor(a, b Coord) bool {
	if a == b {
		return false
	}
	for _, off := range neighborOffsets {
		if a.Add(off) == b {
			return true
		}
	}
	return false
}

// IsWalkable reports whether c carries terrain that is not marked blocked.
// Cells outside the map are never walkable.
func (s *Service) IsWalkable(c Coord) bool {
	t, ok := s.m.Tile(c)
	if !ok {
		return false
	}
	return t.IsWalkable()
}

// IsOccupied reports whether a living combatant stands on c.
func (s *Service) IsOccupied(c Coord) bool {
	if s.occ == nil {
		return false
	}
	return s.occ.OccupiedAt(c)
}

// CanEnter reports whether a unit may step onto c.
func (s *Service) CanEnter(c Coord) bool {
	return s.IsWalkable(c) && !s.IsOccupied(c)
}

// Distance returns the separation of a and b in cells under the configured metric.
//
// Postcondition: Result is >= 0 and symmetric.
func (s *Service) Distance(a, b Coord) int {
	if s.geo.Metric == MetricPixel {
		ax, ay := s.worldPosition(a)
		bx, by := s.worldPosition(b)
		d := math.Hypot(ax-bx, ay-by)
		return int(math.Round(d / s.geo.CellHeight))
	}
	return AxialDistance(a, b)
}

// worldPosition returns the centre of a flat-top cell in world units.
func (s *Service) worldPosition(c Coord) (float64, float64) {
	x := s.geo.CellWidth * 0.75 * float64(c.Q)
	y := s.geo.CellHeight * (float64(c.R) + float64(c.Q)/2)
	return x, y
}

// TilesInRange returns every map cell reachable from center within radius
// neighbor hops, in breadth-first order. Expansion only passes through cells
// present on the map; the center is always included.
//
// Postcondition: result[0] == center; len(result) is non-decreasing in radius.
func (s *Service) TilesInRange(center Coord, radius int) []Coord {
	out := []Coord{center}
	if radius <= 0 {
		return out
	}
	type entry struct {
		c    Coord
		hops int
	}
	visited := map[Coord]bool{center: true}
	queue := []entry{{c: center}}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.hops >= radius {
			continue
		}
		for _, off := range neighborOffsets {
			next := cur.c.Add(off)
			if visited[next] {
				continue
			}
			if _, ok := s.m.Tile(next); !ok {
				continue
			}
			visited[next] = true
			out = append(out, next)
			queue = append(queue, entry{c: next, hops: cur.hops + 1})
		}
	}
	return out
}
