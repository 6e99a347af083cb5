package nav_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mossriver/tilenav/api/schemas"
	"github.com/mossriver/tilenav/internal/config"
	"github.com/mossriver/tilenav/internal/nav"
)

func TestFindPathStraightLine(t *testing.T) {
	view, start := parseView(t, `
#######
#@....#
#######
`)
	p := nav.NewPathfinder(testPathfinderConfig())
	goal := schemas.Position{X: 5, Y: 1}

	path := p.FindPath(nav.PlanRequest{Start: start, Goal: goal, View: view})
	require.NotNil(t, path)
	assert.Len(t, path, 4, "open corridor path should be optimal")
	assert.Equal(t, goal, walkPath(t, view, start, path))
}

func TestFindPathDetoursAroundWall(t *testing.T) {
	view, start := parseView(t, `
#########
#@..#...#
#...#...#
#.......#
#########
`)
	p := nav.NewPathfinder(testPathfinderConfig())
	goal := schemas.Position{X: 7, Y: 1}

	path := p.FindPath(nav.PlanRequest{Start: start, Goal: goal, View: view})
	require.NotNil(t, path)
	assert.Equal(t, goal, walkPath(t, view, start, path))
	// Optimal detour: down around the wall and back up.
	assert.Len(t, path, 10)
}

func TestFindPathBlockedGoalFails(t *testing.T) {
	view, start := parseView(t, `
#####
#@..#
#####
`)
	p := nav.NewPathfinder(testPathfinderConfig())

	tests := []struct {
		name string
		goal schemas.Position
	}{
		{"wall goal", schemas.Position{X: 4, Y: 1}},
		{"fully enclosed", schemas.Position{X: 0, Y: 0}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Nil(t, p.FindPath(nav.PlanRequest{Start: start, Goal: tc.goal, View: view}))
		})
	}
}

func TestFindPathUnexploredGoalAllowed(t *testing.T) {
	// Frontier targets are unexplored by definition; the final step onto one
	// must be plannable.
	view, start := parseView(t, `
#####
#@.?#
#####
`)
	p := nav.NewPathfinder(testPathfinderConfig())
	goal := schemas.Position{X: 3, Y: 1}

	path := p.FindPath(nav.PlanRequest{Start: start, Goal: goal, View: view})
	require.NotNil(t, path)
	assert.Equal(t, goal, walkPath(t, view, start, path))
}

func TestFindPathUnexploredMidPathBlocks(t *testing.T) {
	// Unexplored cells are only enterable as the goal itself, never as a
	// waypoint.
	view, start := parseView(t, `
#####
#@?.#
#####
`)
	p := nav.NewPathfinder(testPathfinderConfig())
	assert.Nil(t, p.FindPath(nav.PlanRequest{Start: start, Goal: schemas.Position{X: 3, Y: 1}, View: view}))
}

func TestFindPathStartEqualsGoal(t *testing.T) {
	view, start := parseView(t, `
###
#@#
###
`)
	p := nav.NewPathfinder(testPathfinderConfig())
	assert.Nil(t, p.FindPath(nav.PlanRequest{Start: start, Goal: start, View: view}))
}

func TestFindPathMaxDistanceBound(t *testing.T) {
	view, start := parseView(t, `
############
#@.........#
############
`)
	p := nav.NewPathfinder(testPathfinderConfig())
	goal := schemas.Position{X: 10, Y: 1}

	assert.Nil(t, p.FindPath(nav.PlanRequest{Start: start, Goal: goal, View: view, MaxDistance: 5}),
		"goal beyond the distance cap must not be reachable")
	assert.NotNil(t, p.FindPath(nav.PlanRequest{Start: start, Goal: goal, View: view, MaxDistance: 9}))
}

func TestFindPathAvoidCallback(t *testing.T) {
	view, start := parseView(t, `
#####
#@..#
#...#
#####
`)
	p := nav.NewPathfinder(testPathfinderConfig())
	goal := schemas.Position{X: 3, Y: 2}

	// Veto stepping right out of the start; the planner must go down first.
	avoid := func(from schemas.Position, d schemas.Direction) bool {
		return from == start && d == schemas.DirRight
	}
	path := p.FindPath(nav.PlanRequest{Start: start, Goal: goal, View: view, Avoid: avoid})
	require.NotNil(t, path)
	assert.Equal(t, schemas.DirDown, path[0])
	assert.Equal(t, goal, walkPath(t, view, start, path))

	// Veto everything: no path.
	all := func(schemas.Position, schemas.Direction) bool { return true }
	assert.Nil(t, p.FindPath(nav.PlanRequest{Start: start, Goal: goal, View: view, Avoid: all}))
}

func TestFindPathWater(t *testing.T) {
	art := `
#####
#@W.#
#####
`
	goal := schemas.Position{X: 3, Y: 1}

	view, start := parseView(t, art)
	blocked := nav.NewPathfinder(testPathfinderConfig())
	assert.Nil(t, blocked.FindPath(nav.PlanRequest{Start: start, Goal: goal, View: view}),
		"water blocks by default")

	swimmer := nav.NewPathfinder(config.PathfinderConfig{MaxDistance: 50, AllowWater: true})
	path := swimmer.FindPath(nav.PlanRequest{Start: start, Goal: goal, View: view})
	require.NotNil(t, path)
	assert.Len(t, path, 2)
}

func TestFindPathOptimalityOnOpenGrid(t *testing.T) {
	view, start := parseView(t, `
##########
#@.......#
#........#
#........#
##########
`)
	p := nav.NewPathfinder(testPathfinderConfig())

	for _, goal := range []schemas.Position{
		{X: 8, Y: 1}, {X: 8, Y: 3}, {X: 1, Y: 3}, {X: 4, Y: 2},
	} {
		path := p.FindPath(nav.PlanRequest{Start: start, Goal: goal, View: view})
		require.NotNil(t, path, "goal %s", goal)
		assert.Equal(t, start.ManhattanDistance(goal), len(path),
			"open-grid path to %s must match Manhattan distance", goal)
		assert.Equal(t, goal, walkPath(t, view, start, path))
	}
}

func TestFindPathNilView(t *testing.T) {
	p := nav.NewPathfinder(testPathfinderConfig())
	assert.Nil(t, p.FindPath(nav.PlanRequest{Start: schemas.Position{}, Goal: schemas.Position{X: 1}}))
}
