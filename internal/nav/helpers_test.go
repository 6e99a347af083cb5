package nav_test

import (
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/mossriver/tilenav/api/schemas"
	"github.com/mossriver/tilenav/internal/config"
)

// parseView builds a tile view from ASCII art. '@' marks the player on
// walkable ground; the window radius is chosen so the whole drawing fits.
func parseView(t *testing.T, art string) (*schemas.TileView, schemas.Position) {
	t.Helper()
	lines := strings.Split(strings.Trim(art, "\n"), "\n")

	player := schemas.Position{X: -1, Y: -1}
	for y, line := range lines {
		if x := strings.IndexRune(line, '@'); x >= 0 {
			player = schemas.Position{X: x, Y: y}
		}
	}
	if player.X < 0 {
		t.Fatalf("no player marker '@' in view art")
	}

	radius := 0
	for y, line := range lines {
		for x := range line {
			if d := chebyshev(player, schemas.Position{X: x, Y: y}); d > radius {
				radius = d
			}
		}
	}

	view := schemas.NewTileView(player, radius)
	for y, line := range lines {
		for x, r := range line {
			p := schemas.Position{X: x, Y: y}
			if r == '@' {
				view.Set(p, schemas.TileWalkable)
				continue
			}
			view.Set(p, schemas.ParseTileSymbol(r))
		}
	}
	return view, player
}

func chebyshev(a, b schemas.Position) int {
	dx, dy := a.X-b.X, a.Y-b.Y
	if dx < 0 {
		dx = -dx
	}
	if dy < 0 {
		dy = -dy
	}
	if dx > dy {
		return dx
	}
	return dy
}

// walkPath replays a button sequence from start and returns where it lands,
// failing the test if any intermediate step leaves walkable ground. The final
// step is exempt so paths onto unexplored goals can be verified.
func walkPath(t *testing.T, view *schemas.TileView, start schemas.Position, path []schemas.Direction) schemas.Position {
	t.Helper()
	at := start
	for i, d := range path {
		at = at.Step(d)
		if i == len(path)-1 {
			break
		}
		switch view.At(at) {
		case schemas.TileWalkable, schemas.TileDoor, schemas.TileStairs, schemas.TileGrass:
		default:
			t.Fatalf("step %d of path lands on non-traversable tile at %s", i, at)
		}
	}
	return at
}

func testPathfinderConfig() config.PathfinderConfig {
	return config.PathfinderConfig{MaxDistance: 50}
}

func testFrontierConfig() config.FrontierConfig {
	return config.FrontierConfig{
		MaxSearchDepth:  50,
		MaxFrontiers:    20,
		DistancePenalty: 0.5,
		ObjectiveBonus:  30.0,
		Randomize:       false,
		Seed:            1,
	}
}

func testCollisionConfig() config.CollisionConfig {
	return config.CollisionConfig{FailureLimit: 5, MovementResetThreshold: 2}
}

func testNavigatorConfig() config.NavigatorConfig {
	return config.NavigatorConfig{StuckWindow: 5, StuckEpisodeLimit: 3}
}

func testLogger() *zap.Logger {
	return zap.NewNop()
}
