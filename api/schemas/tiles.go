package schemas

// TileKind is the fixed classification of a single tile as seen by the
// navigation core. The host's tile classifier collapses raw game data into
// one of these symbols; the pathfinder and frontier detector never see raw
// tile data.
type TileKind byte

const (
	TileUnexplored TileKind = iota // outside the view window, or no data
	TileWalkable                   // plain explored ground
	TileWall                       // impassable terrain or obstacle
	TileWater                      // impassable unless water traversal enabled
	TileDoor                       // enterable doorway
	TileStairs                     // floor-transition feature
	TileGrass                      // tall grass, walkable
	TileNPC                        // occupied by a character, blocks movement
	TileGym                        // high-value building tile
	TileHouse                      // building tile
	TileShop                       // building tile
	TileHeal                       // healing-house building tile
	TileLedgeUp                    // one-way ledge, traversed upward only
	TileLedgeDown
	TileLedgeLeft
	TileLedgeRight
)

// tileSymbols is the display alphabet, shared with the ASCII map format the
// simulation harness reads.
var tileSymbols = map[TileKind]rune{
	TileUnexplored: '?',
	TileWalkable:   '.',
	TileWall:       '#',
	TileWater:      'W',
	TileDoor:       'D',
	TileStairs:     'S',
	TileGrass:      '~',
	TileNPC:        'N',
	TileGym:        'G',
	TileHouse:      'H',
	TileShop:       'M',
	TileHeal:       'C',
	TileLedgeUp:    '^',
	TileLedgeDown:  'v',
	TileLedgeLeft:  '<',
	TileLedgeRight: '>',
}

// Symbol returns the one-rune display form of the tile kind.
func (k TileKind) Symbol() rune {
	if r, ok := tileSymbols[k]; ok {
		return r
	}
	return '?'
}

// ParseTileSymbol is the inverse of Symbol. Unknown runes classify as wall,
// the conservative choice for anything the alphabet does not cover.
func ParseTileSymbol(r rune) TileKind {
	for k, sym := range tileSymbols {
		if sym == r {
			return k
		}
	}
	return TileWall
}

// IsExplored reports whether the tile has been observed at all.
func (k TileKind) IsExplored() bool {
	return k != TileUnexplored
}

// TileView is a square, player-centered window of classified tiles with the
// given radius: (2R+1)x(2R+1) cells in row-major order. It is a read-only
// snapshot valid for a single tick; anything outside the window reads as
// TileUnexplored.
type TileView struct {
	Center Position
	Radius int
	Tiles  [][]TileKind
}

// NewTileView allocates a view of the given radius filled with
// TileUnexplored.
func NewTileView(center Position, radius int) *TileView {
	side := 2*radius + 1
	tiles := make([][]TileKind, side)
	for i := range tiles {
		tiles[i] = make([]TileKind, side)
	}
	return &TileView{Center: center, Radius: radius, Tiles: tiles}
}

// Contains reports whether the world position falls inside the window.
func (v *TileView) Contains(p Position) bool {
	if v == nil {
		return false
	}
	return abs(p.X-v.Center.X) <= v.Radius && abs(p.Y-v.Center.Y) <= v.Radius
}

// At returns the classification of the tile at world position p.
// Positions outside the window are unexplored by definition.
func (v *TileView) At(p Position) TileKind {
	if !v.Contains(p) {
		return TileUnexplored
	}
	row := p.Y - v.Center.Y + v.Radius
	col := p.X - v.Center.X + v.Radius
	return v.Tiles[row][col]
}

// Set writes the classification of the tile at world position p. Writes
// outside the window are dropped.
func (v *TileView) Set(p Position, k TileKind) {
	if !v.Contains(p) {
		return
	}
	row := p.Y - v.Center.Y + v.Radius
	col := p.X - v.Center.X + v.Radius
	v.Tiles[row][col] = k
}
