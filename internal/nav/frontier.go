// File: internal/nav/frontier.go
package nav

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/mossriver/tilenav/api/schemas"
	"github.com/mossriver/tilenav/internal/config"
)

// tileScores weights the 8-neighborhood of a frontier candidate. Positive
// weights pull exploration toward interesting structures, negative ones push
// it away from dead terrain.
var tileScores = map[schemas.TileKind]float64{
	schemas.TileGym:        100,
	schemas.TileHouse:      70,
	schemas.TileNPC:        65,
	schemas.TileHeal:       55,
	schemas.TileStairs:     50,
	schemas.TileDoor:       50,
	schemas.TileShop:       40,
	schemas.TileGrass:      15,
	schemas.TileUnexplored: 10,
	schemas.TileLedgeUp:    5,
	schemas.TileLedgeDown:  5,
	schemas.TileLedgeLeft:  5,
	schemas.TileLedgeRight: 5,
	schemas.TileWalkable:   0,
	schemas.TileWater:      -10,
	schemas.TileWall:       -40,
}

// FrontierDetector finds and ranks exploration targets: unexplored cells on
// the edge of explored, walkable ground.
type FrontierDetector struct {
	cfg config.FrontierConfig
	rng *rand.Rand
}

// NewFrontierDetector builds a detector. A zero seed seeds the perturbation
// source from the clock; tests pin the seed (or disable Randomize entirely)
// for reproducible rankings.
func NewFrontierDetector(cfg config.FrontierConfig) *FrontierDetector {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &FrontierDetector{cfg: cfg, rng: rand.New(rand.NewSource(seed))}
}

// DetectRequest is one frontier query.
type DetectRequest struct {
	View   *schemas.TileView
	Player schemas.Position
	// Objective, when set, biases scoring toward frontiers in its direction.
	Objective *schemas.Position
	// Unreachable, when set, drops candidates the collision tracker has
	// written off.
	Unreachable func(schemas.Position) bool
}

// Detect returns the ranked frontier list, best first, truncated to the
// configured maximum. An empty result means the visible area holds no
// reachable unexplored edge.
func (f *FrontierDetector) Detect(req DetectRequest) []schemas.Frontier {
	if req.View == nil {
		return nil
	}

	candidates := f.collect(req.View, f.searchStart(req.View, req.Player))
	frontiers := make([]schemas.Frontier, 0, len(candidates))
	for pos := range candidates {
		if req.Unreachable != nil && req.Unreachable(pos) {
			continue
		}
		frontiers = append(frontiers, schemas.Frontier{
			Pos:   pos,
			Score: f.score(req, pos),
		})
	}

	// Score descending; ties break on coordinates so equal-score runs keep a
	// stable order.
	sort.Slice(frontiers, func(i, j int) bool {
		if frontiers[i].Score != frontiers[j].Score {
			return frontiers[i].Score > frontiers[j].Score
		}
		if frontiers[i].Pos.Y != frontiers[j].Pos.Y {
			return frontiers[i].Pos.Y < frontiers[j].Pos.Y
		}
		return frontiers[i].Pos.X < frontiers[j].Pos.X
	})
	if len(frontiers) > f.cfg.MaxFrontiers {
		frontiers = frontiers[:f.cfg.MaxFrontiers]
	}
	return frontiers
}

// searchStart picks where the sweep begins. With randomization on, a handful
// of scattered probes near the player break the symmetry that would otherwise
// make repeated detections walk the same edge; the player position is always
// a valid fallback.
func (f *FrontierDetector) searchStart(view *schemas.TileView, player schemas.Position) schemas.Position {
	if !f.cfg.Randomize {
		return player
	}
	for attempt := 0; attempt < 20; attempt++ {
		probe := schemas.Position{
			X: player.X + f.rng.Intn(21) - 10,
			Y: player.Y + f.rng.Intn(21) - 10,
		}
		if view.Contains(probe) && explorable(view.At(probe)) {
			return probe
		}
	}
	return player
}

// collect runs a depth-bounded breadth-first sweep over explorable ground
// from start, returning every frontier cell found: an unexplored cell with at
// least one explored, walkable 4-neighbor.
func (f *FrontierDetector) collect(view *schemas.TileView, start schemas.Position) map[schemas.Position]struct{} {
	frontiers := make(map[schemas.Position]struct{})
	if !explorable(view.At(start)) {
		return frontiers
	}

	visited := map[schemas.Position]struct{}{start: {}}
	level := []schemas.Position{start}
	for depth := 0; depth < f.cfg.MaxSearchDepth && len(level) > 0; depth++ {
		var next []schemas.Position
		for _, pos := range level {
			for _, d := range schemas.AllDirections {
				neighbor := pos.Step(d)
				if _, seen := visited[neighbor]; seen {
					continue
				}
				visited[neighbor] = struct{}{}
				if !view.Contains(neighbor) {
					continue
				}
				k := view.At(neighbor)
				if !k.IsExplored() {
					frontiers[neighbor] = struct{}{}
					continue
				}
				if explorable(k) {
					next = append(next, neighbor)
				}
			}
		}
		level = next
	}
	return frontiers
}

// score combines the neighborhood value of a frontier with a distance penalty
// and an optional objective-direction bonus. A small random perturbation
// keeps equally-scored frontiers from always ranking identically.
func (f *FrontierDetector) score(req DetectRequest, pos schemas.Position) float64 {
	var score float64
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			neighbor := schemas.Position{X: pos.X + dx, Y: pos.Y + dy}
			score += tileScores[req.View.At(neighbor)]
		}
	}

	score -= f.cfg.DistancePenalty * float64(req.Player.ManhattanDistance(pos))

	if req.Objective != nil {
		// Dot product of the frontier and objective offsets from the player:
		// positive means the frontier lies in the objective's half-plane.
		fx, fy := pos.X-req.Player.X, pos.Y-req.Player.Y
		ox, oy := req.Objective.X-req.Player.X, req.Objective.Y-req.Player.Y
		if fx*ox+fy*oy > 0 {
			score += f.cfg.ObjectiveBonus
		}
	}

	if f.cfg.Randomize {
		score += f.rng.Float64()*4 - 2
	}
	return score
}

// explorable reports whether the BFS sweep may pass through a tile. The
// sweep moves only over ground the player could plausibly walk, so frontiers
// behind solid walls are never reported.
func explorable(k schemas.TileKind) bool {
	switch k {
	case schemas.TileWalkable, schemas.TileDoor, schemas.TileStairs, schemas.TileGrass:
		return true
	}
	return false
}

// FormatRanking renders the top frontiers as stable selection labels for an
// external decision-maker. The Nth line corresponds to frontier index N.
func FormatRanking(frontiers []schemas.Frontier, max int) string {
	if len(frontiers) == 0 {
		return "No frontiers detected."
	}
	if max > 0 && len(frontiers) > max {
		frontiers = frontiers[:max]
	}
	var b strings.Builder
	for i, fr := range frontiers {
		fmt.Fprintf(&b, "FRONTIER_%d: %s\n", i+1, fr)
	}
	return strings.TrimRight(b.String(), "\n")
}
