package schemas

import "fmt"

// Direction is a single-button directional move on the 4-connected tile grid.
type Direction string

const (
	DirUp    Direction = "UP"
	DirDown  Direction = "DOWN"
	DirLeft  Direction = "LEFT"
	DirRight Direction = "RIGHT"
)

// AllDirections lists the four directional buttons in a fixed order.
// Several components iterate this to enumerate neighbors; the order also
// fixes tie-breaking where a deterministic scan is required.
var AllDirections = [4]Direction{DirUp, DirDown, DirLeft, DirRight}

// Delta returns the (dx, dy) tile offset of one step in the direction.
// Y grows downward, matching the row-major tile window layout.
func (d Direction) Delta() (int, int) {
	switch d {
	case DirUp:
		return 0, -1
	case DirDown:
		return 0, 1
	case DirLeft:
		return -1, 0
	case DirRight:
		return 1, 0
	}
	return 0, 0
}

// IsDirectional reports whether d is one of the four movement buttons.
func (d Direction) IsDirectional() bool {
	switch d {
	case DirUp, DirDown, DirLeft, DirRight:
		return true
	}
	return false
}

// ParseDirection converts a button string into a Direction.
func ParseDirection(s string) (Direction, error) {
	d := Direction(s)
	if !d.IsDirectional() {
		return "", fmt.Errorf("not a directional button: %q", s)
	}
	return d, nil
}

// Position is a world-tile coordinate pair. It is a plain value and is used
// as a map key throughout the navigation core.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Step returns the position one tile away in the given direction.
func (p Position) Step(d Direction) Position {
	dx, dy := d.Delta()
	return Position{X: p.X + dx, Y: p.Y + dy}
}

// ManhattanDistance returns the L1 distance between two positions, the
// admissible heuristic for uniform-cost 4-connected grids.
func (p Position) ManhattanDistance(o Position) int {
	return abs(p.X-o.X) + abs(p.Y-o.Y)
}

func (p Position) String() string {
	return fmt.Sprintf("(%d, %d)", p.X, p.Y)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
