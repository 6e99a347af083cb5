// File: internal/nav/pathfinder.go

// Package nav contains the navigation core: grid pathfinding, frontier
// detection, collision recovery, and the per-tick navigator that ties them
// together. Everything here is pure with respect to the game: components
// consume read-only snapshots and produce directional decisions.
package nav

import (
	"container/heap"

	"github.com/mossriver/tilenav/api/schemas"
	"github.com/mossriver/tilenav/internal/config"
)

// Pathfinder runs bounded A* over the player-centered tile window. The grid
// is 4-connected with uniform step cost, so Manhattan distance is an
// admissible heuristic and the first settled goal is optimal.
type Pathfinder struct {
	cfg config.PathfinderConfig
}

// NewPathfinder builds a pathfinder with the given bounds.
func NewPathfinder(cfg config.PathfinderConfig) *Pathfinder {
	return &Pathfinder{cfg: cfg}
}

// PlanRequest is one path query.
type PlanRequest struct {
	Start schemas.Position
	Goal  schemas.Position
	View  *schemas.TileView
	// MaxDistance overrides the configured path-cost cap when positive.
	MaxDistance int
	// Avoid, when set, vetoes individual (from, direction) expansions. The
	// navigator wires the abandoned-movement set through here so known-futile
	// moves never appear in a plan.
	Avoid func(from schemas.Position, d schemas.Direction) bool
}

// FindPath returns the button sequence moving Start to Goal, or nil when no
// path exists within the distance bound. A nil result is the only failure
// signal; callers treat it as "defer, don't retry".
//
// The goal cell itself is exempt from the walkability check when it is
// unexplored: frontier targets are by definition unexplored cells, and the
// final step onto one is how they get explored. Explored-but-blocked goals
// (walls, water, NPCs) still fail.
func (p *Pathfinder) FindPath(req PlanRequest) []schemas.Direction {
	if req.View == nil || req.Start == req.Goal {
		return nil
	}
	maxDist := req.MaxDistance
	if maxDist <= 0 {
		maxDist = p.cfg.MaxDistance
	}
	// The heuristic is a lower bound on path cost, so a goal further than the
	// cap in straight-line terms can never be reached under it.
	if req.Start.ManhattanDistance(req.Goal) > maxDist {
		return nil
	}
	if !p.goalEnterable(req.View, req.Goal) {
		return nil
	}

	gScore := map[schemas.Position]int{req.Start: 0}
	parent := make(map[schemas.Position]cameFrom)
	closed := make(map[schemas.Position]bool)

	open := &nodeQueue{}
	heap.Init(open)
	heap.Push(open, &pathNode{
		pos: req.Start,
		g:   0,
		f:   req.Start.ManhattanDistance(req.Goal),
	})

	for open.Len() > 0 {
		current := heap.Pop(open).(*pathNode)
		if closed[current.pos] {
			continue
		}
		closed[current.pos] = true

		if current.pos == req.Goal {
			return reconstruct(parent, req.Start, req.Goal)
		}

		for _, d := range schemas.AllDirections {
			next := current.pos.Step(d)
			if closed[next] {
				continue
			}
			if req.Avoid != nil && req.Avoid(current.pos, d) {
				continue
			}
			if next != req.Goal && !p.traversable(req.View.At(next)) {
				continue
			}
			g := current.g + 1
			if g > maxDist {
				continue
			}
			if prev, seen := gScore[next]; seen && g >= prev {
				continue
			}
			gScore[next] = g
			parent[next] = cameFrom{prev: current.pos, dir: d}
			heap.Push(open, &pathNode{
				pos: next,
				g:   g,
				f:   g + next.ManhattanDistance(req.Goal),
			})
		}
	}
	return nil
}

// traversable reports whether a tile kind admits a step onto it.
func (p *Pathfinder) traversable(k schemas.TileKind) bool {
	switch k {
	case schemas.TileWalkable, schemas.TileDoor, schemas.TileStairs, schemas.TileGrass:
		return true
	case schemas.TileWater:
		return p.cfg.AllowWater
	}
	return false
}

// goalEnterable applies the relaxed goal rule: unexplored goals are allowed,
// explored goals must be traversable.
func (p *Pathfinder) goalEnterable(view *schemas.TileView, goal schemas.Position) bool {
	k := view.At(goal)
	if !k.IsExplored() {
		return true
	}
	return p.traversable(k)
}

// cameFrom is one parent link in the search tree: the predecessor cell and
// the button that stepped off it.
type cameFrom struct {
	prev schemas.Position
	dir  schemas.Direction
}

// reconstruct walks the parent links back from the goal and reverses them
// into a start-to-goal button sequence.
func reconstruct(parent map[schemas.Position]cameFrom, start, goal schemas.Position) []schemas.Direction {
	var reversed []schemas.Direction
	for at := goal; at != start; {
		step := parent[at]
		reversed = append(reversed, step.dir)
		at = step.prev
	}
	path := make([]schemas.Direction, len(reversed))
	for i, d := range reversed {
		path[len(reversed)-1-i] = d
	}
	return path
}

// -- Priority queue --

type pathNode struct {
	pos schemas.Position
	g   int
	f   int
}

type nodeQueue []*pathNode

func (q nodeQueue) Len() int { return len(q) }

func (q nodeQueue) Less(i, j int) bool {
	if q[i].f != q[j].f {
		return q[i].f < q[j].f
	}
	// Prefer the deeper node on equal f; it is closer to the goal.
	return q[i].g > q[j].g
}

func (q nodeQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *nodeQueue) Push(x any) { *q = append(*q, x.(*pathNode)) }

func (q *nodeQueue) Pop() any {
	old := *q
	n := len(old)
	node := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return node
}
