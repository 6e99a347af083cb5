// File: internal/sim/world.go

// Package sim is a deterministic, scriptable world for exercising the
// navigation core end to end without a live game: an ASCII tile map, a
// player with game-like movement rules, warps between maps, and a paced
// tick driver.
package sim

import (
	"fmt"
	"strings"

	"github.com/mossriver/tilenav/api/schemas"
)

// Warp teleports the player when stepped on, the way doors and stairs do.
type Warp struct {
	ToMap   int
	ToFloor int
	To      schemas.Position
}

// World is one simulated map plus the player's situation on it. Tile symbols
// follow the shared alphabet; '@' marks the player start on otherwise
// walkable ground.
type World struct {
	tiles  [][]schemas.TileKind
	width  int
	height int

	Player  schemas.Position
	MapID   int
	Floor   int
	Context schemas.GameContext

	warps map[schemas.Position]Warp
	// ForcedBlocks vetoes specific movements regardless of terrain, standing
	// in for invisible scripted obstructions.
	ForcedBlocks map[schemas.Position]map[schemas.Direction]bool
}

// ParseWorld builds a world from an ASCII map. Rows may differ in length;
// short rows pad with walls. Exactly one '@' is required.
func ParseWorld(text string) (*World, error) {
	lines := strings.Split(strings.Trim(text, "\n"), "\n")
	if len(lines) == 0 {
		return nil, fmt.Errorf("empty map")
	}
	width := 0
	for _, line := range lines {
		if len(line) > width {
			width = len(line)
		}
	}

	w := &World{
		width:        width,
		height:       len(lines),
		Context:      schemas.ContextOverworld,
		warps:        make(map[schemas.Position]Warp),
		ForcedBlocks: make(map[schemas.Position]map[schemas.Direction]bool),
	}
	playerSeen := false
	w.tiles = make([][]schemas.TileKind, len(lines))
	for y, line := range lines {
		row := make([]schemas.TileKind, width)
		for x := range row {
			row[x] = schemas.TileWall
		}
		for x, r := range line {
			if r == '@' {
				if playerSeen {
					return nil, fmt.Errorf("multiple player markers")
				}
				playerSeen = true
				w.Player = schemas.Position{X: x, Y: y}
				row[x] = schemas.TileWalkable
				continue
			}
			row[x] = schemas.ParseTileSymbol(r)
		}
		w.tiles[y] = row
	}
	if !playerSeen {
		return nil, fmt.Errorf("no player marker '@' in map")
	}
	return w, nil
}

// MustParseWorld is ParseWorld for hand-written literals.
func MustParseWorld(text string) *World {
	w, err := ParseWorld(text)
	if err != nil {
		panic(err)
	}
	return w
}

// AddWarp registers a teleport at pos.
func (w *World) AddWarp(pos schemas.Position, warp Warp) {
	w.warps[pos] = warp
}

// Block forcibly vetoes moving dir out of pos.
func (w *World) Block(pos schemas.Position, dir schemas.Direction) {
	if w.ForcedBlocks[pos] == nil {
		w.ForcedBlocks[pos] = make(map[schemas.Direction]bool)
	}
	w.ForcedBlocks[pos][dir] = true
}

// Unblock removes a forced veto.
func (w *World) Unblock(pos schemas.Position, dir schemas.Direction) {
	delete(w.ForcedBlocks[pos], dir)
}

// At returns the tile at a world position; anything off the map is wall.
func (w *World) At(p schemas.Position) schemas.TileKind {
	if p.X < 0 || p.Y < 0 || p.X >= w.width || p.Y >= w.height {
		return schemas.TileWall
	}
	return w.tiles[p.Y][p.X]
}

// passable reports whether the player may stand on the tile.
func (w *World) passable(k schemas.TileKind) bool {
	switch k {
	case schemas.TileWalkable, schemas.TileDoor, schemas.TileStairs, schemas.TileGrass:
		return true
	}
	return false
}

// Apply attempts one directional step and reports whether the player moved.
// Warps fire after a successful step onto their tile.
func (w *World) Apply(dir schemas.Direction) bool {
	if !w.Context.AllowsMovement() {
		return false
	}
	if w.ForcedBlocks[w.Player][dir] {
		return false
	}
	next := w.Player.Step(dir)
	if !w.passable(w.At(next)) {
		return false
	}
	w.Player = next
	if warp, ok := w.warps[next]; ok {
		w.MapID = warp.ToMap
		w.Floor = warp.ToFloor
		w.Player = warp.To
	}
	return true
}

// Snapshot renders the player-centered view window of the given radius.
func (w *World) Snapshot(radius int) schemas.Snapshot {
	view := schemas.NewTileView(w.Player, radius)
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			p := schemas.Position{X: w.Player.X + dx, Y: w.Player.Y + dy}
			view.Set(p, w.At(p))
		}
	}
	return schemas.Snapshot{
		Position: w.Player,
		MapID:    w.MapID,
		Floor:    w.Floor,
		Context:  w.Context,
		View:     view,
	}
}
