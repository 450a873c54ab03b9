// Package grid provides the flat-top hex grid the encounter is played on:
// axial coordinates, tile terrain, and the spatial queries combat depends on.
package grid

import "fmt"

// Coord identifies a hex cell using axial coordinates.
// The third cube coordinate is derived: s = -q - r.
type Coord struct {
	Q int `yaml:"q" json:"q"`
	R int `yaml:"r" json:"r"`
}

// S returns the implicit third cube coordinate.
func (c Coord) S() int {
	return -c.Q - c.R
}

// Add returns the component-wise sum of c and o.
func (c Coord) Add(o Coord) Coord {
	return Coord{Q: c.Q + o.Q, R: c.R + o.R}
}

// String renders the coordinate as "(q,r)".
func (c Coord) String() string {
	return fmt.Sprintf("(%d,%d)", c.Q, c.R)
}

// Direction names one of the six sides of a flat-top hex.
type Direction int

const (
	Top Direction = iota
	Bottom
	TopLeft
	TopRight
	BottomLeft
	BottomRight
)

// neighborOffsets is indexed by Direction. Enumeration order is fixed so that
// greedy movement breaks ties deterministically.
var neighborOffsets = [6]Coord{
	Top:         {Q: 0, R: -1},
	Bottom:      {Q: 0, R: 1},
	TopLeft:     {Q: -1, R: 0},
	TopRight:    {Q: 1, R: -1},
	BottomLeft:  {Q: -1, R: 1},
	BottomRight: {Q: 1, R: 0},
}

// Neighbor returns the cell adjacent to c on side d.
func (c Coord) Neighbor(d Direction) Coord {
	return c.Add(neighborOffsets[d])
}

// AxialDistance returns the exact hex distance between a and b.
//
// Postcondition: Returns 0 iff a == b; result is symmetric.
func AxialDistance(a, b Coord) int {
	dq := abs(a.Q - b.Q)
	dr := abs(a.R - b.R)
	ds := abs(a.S() - b.S())
	return max(dq, dr, ds)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
