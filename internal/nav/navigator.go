// File: internal/nav/navigator.go
package nav

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mossriver/tilenav/api/schemas"
	"github.com/mossriver/tilenav/internal/config"
)

// NavState is the navigator's coarse mode, reported with every decision.
type NavState string

const (
	// StateIdle means no goal is active; the navigator only reports
	// frontiers.
	StateIdle NavState = "idle"
	// StateNavigating means a goal is active and movement is being emitted
	// (or is paused by the game context).
	StateNavigating NavState = "navigating"
	// StateStuck means the last goal was abandoned after repeated stuck
	// episodes; it clears on the next command.
	StateStuck NavState = "stuck"
)

// FloorResolver infers the floor number from a map identifier, for hosts
// whose snapshots cannot carry the floor directly.
type FloorResolver func(mapID int) (int, bool)

// Goal is an active navigation target. Floor zero means "whatever floor the
// target was issued on"; a non-zero floor forces stair-seeking when the
// player is elsewhere.
type Goal struct {
	Target schemas.Position
	Floor  int
}

// Decision is the navigator's output for one tick. HasAction distinguishes
// "press this button" from "nothing to do, control is yours".
type Decision struct {
	Action    schemas.Direction
	HasAction bool
	State     NavState
	Reason    string
	// Frontiers carries the latest ranking whenever the navigator defers
	// while exploration candidates are visible.
	Frontiers []schemas.Frontier
}

func deferred(state NavState, reason string) Decision {
	return Decision{State: state, Reason: reason}
}

func press(d schemas.Direction, reason string) Decision {
	return Decision{Action: d, HasAction: true, State: StateNavigating, Reason: reason}
}

// Navigator is the per-tick orchestrator: it owns the active goal and path,
// feeds movement results to the collision tracker, gates on game context,
// watches for stuck episodes, and replans when the world disagrees with the
// plan. It is driven by exactly one goroutine; Decide is not safe to call
// concurrently.
type Navigator struct {
	id       uuid.UUID
	cfg      config.NavigatorConfig
	planner  *Pathfinder
	detector *FrontierDetector
	tracker  *CollisionTracker
	logger   *zap.Logger

	floorFor FloorResolver

	state NavState
	goal  *Goal
	path  []schemas.Direction

	// Movement bookkeeping: the action emitted last tick is judged against
	// the position observed this tick.
	lastPos       schemas.Position
	lastAction    schemas.Direction
	hasLastAction bool

	mapID  int
	hasMap bool

	stuckTicks    int
	stuckEpisodes int

	lastFrontiers []schemas.Frontier
}

// NewNavigator wires the navigation core together.
func NewNavigator(cfg config.NavigatorConfig, planner *Pathfinder, detector *FrontierDetector, tracker *CollisionTracker, logger *zap.Logger) *Navigator {
	id := uuid.New()
	return &Navigator{
		id:       id,
		cfg:      cfg,
		planner:  planner,
		detector: detector,
		tracker:  tracker,
		logger:   logger.Named("navigator").With(zap.String("navigator_id", id.String())),
		state:    StateIdle,
	}
}

// SetFloorResolver installs a map-to-floor resolver consulted whenever a
// snapshot arrives without floor information.
func (n *Navigator) SetFloorResolver(r FloorResolver) {
	n.floorFor = r
}

// ID returns the navigator's session identifier.
func (n *Navigator) ID() uuid.UUID { return n.id }

// State returns the current mode.
func (n *Navigator) State() NavState { return n.state }

// Goal returns a copy of the active goal, if any.
func (n *Navigator) Goal() (Goal, bool) {
	if n.goal == nil {
		return Goal{}, false
	}
	return *n.goal, true
}

// Frontiers returns the ranking from the most recent detection. Frontier
// selection commands index into this list.
func (n *Navigator) Frontiers() []schemas.Frontier { return n.lastFrontiers }

// Tracker exposes the collision tracker for status queries.
func (n *Navigator) Tracker() *CollisionTracker { return n.tracker }

// Decide consumes one snapshot and an optional command and produces this
// tick's decision. Order matters: map-change reset, then movement
// bookkeeping, then context gating, then commands, then stuck detection,
// then path following and planning.
func (n *Navigator) Decide(snap schemas.Snapshot, cmd *schemas.Command) Decision {
	if snap.Floor == 0 && n.floorFor != nil {
		if floor, ok := n.floorFor(snap.MapID); ok {
			snap.Floor = floor
		}
	}
	n.observeMap(snap)
	n.recordMovement(snap)

	if cmd != nil {
		if d, done := n.handleCommand(snap, cmd); done {
			return n.finish(d)
		}
	}

	// Non-movement contexts pause navigation without discarding it: the
	// path and goal survive a dialogue box or a battle and resume after.
	if !snap.Context.AllowsMovement() {
		n.stuckTicks = 0
		return n.finish(deferred(n.state, fmt.Sprintf("context %q pauses movement", snap.Context)))
	}

	if d, abandoned := n.checkStuck(snap); abandoned {
		return n.finish(d)
	}

	if n.goal == nil {
		return n.finish(n.idle(snap, "no active goal"))
	}
	return n.finish(n.navigate(snap))
}

// finish records this tick's position for next tick's bookkeeping.
func (n *Navigator) finish(d Decision) Decision {
	if d.HasAction {
		n.lastAction = d.Action
		n.hasLastAction = true
	} else {
		n.hasLastAction = false
	}
	return d
}

// observeMap resets per-map state when the map changes. The goal survives a
// warp: entering a door on the way to a target is progress, not failure.
func (n *Navigator) observeMap(snap schemas.Snapshot) {
	if n.hasMap && snap.MapID == n.mapID {
		return
	}
	if n.hasMap {
		n.logger.Info("Map changed; resetting per-map navigation state",
			zap.Int("from", n.mapID), zap.Int("to", snap.MapID))
		n.path = nil
		n.lastFrontiers = nil
		n.stuckTicks = 0
		n.stuckEpisodes = 0
		n.hasLastAction = false
		n.tracker.ResetSession()
	}
	n.mapID = snap.MapID
	n.hasMap = true
}

// recordMovement judges last tick's action against this tick's position and
// reacts to the tracker's verdict.
func (n *Navigator) recordMovement(snap schemas.Snapshot) {
	if !n.hasLastAction {
		n.lastPos = snap.Position
		return
	}
	moved := snap.Position != n.lastPos
	outcome := n.tracker.RecordMovement(n.lastPos, n.lastAction, moved)
	n.lastPos = snap.Position

	if !outcome.Collision {
		n.stuckTicks = 0
		return
	}

	n.stuckTicks++
	switch outcome.Hint {
	case HintAvoidPosition:
		// The blocked movement may sit anywhere in the remaining path, so
		// the whole plan is stale.
		n.path = nil
		n.logger.Debug("Dropping path around abandoned movement",
			zap.Stringer("position", n.lastPos), zap.String("direction", string(n.lastAction)))
	case HintAbandonPath:
		n.path = nil
		n.abandonGoal("every direction out of the current cell has failed")
	case HintTryAlternate:
		// Replanning with fresh counters tends to pick the same first step;
		// dropping the path forces the planner to run again next tick, where
		// the Avoid callback and any newly visible tiles can change its mind.
		n.path = nil
	}
}

// handleCommand applies a typed command. The boolean result reports whether
// the command consumed the tick.
func (n *Navigator) handleCommand(snap schemas.Snapshot, cmd *schemas.Command) (Decision, bool) {
	switch cmd.Type {
	case schemas.CommandCancel:
		n.clearGoal()
		n.state = StateIdle
		return deferred(StateIdle, "navigation cancelled"), true

	case schemas.CommandGoTo:
		floor := cmd.TargetFloor
		if floor == 0 {
			floor = snap.Floor
		}
		n.setGoal(Goal{Target: cmd.Target, Floor: floor})
		return Decision{}, false

	case schemas.CommandGoToFrontier:
		idx := cmd.FrontierIndex
		if idx < 1 || idx > len(n.lastFrontiers) {
			return deferred(n.state, fmt.Sprintf("no frontier with index %d in the latest ranking", idx)), true
		}
		target := n.lastFrontiers[idx-1].Pos
		n.setGoal(Goal{Target: target, Floor: snap.Floor})
		return Decision{}, false
	}
	return deferred(n.state, "unrecognized command"), true
}

// checkStuck counts unchanged-position ticks into episodes and abandons the
// goal once the episode limit is hit.
func (n *Navigator) checkStuck(snap schemas.Snapshot) (Decision, bool) {
	if n.goal == nil || n.stuckTicks < n.cfg.StuckWindow {
		return Decision{}, false
	}
	n.stuckTicks = 0
	n.stuckEpisodes++
	n.path = nil
	n.logger.Warn("Stuck episode",
		zap.Int("episode", n.stuckEpisodes),
		zap.Stringer("position", snap.Position))
	if n.stuckEpisodes >= n.cfg.StuckEpisodeLimit {
		n.abandonGoal(fmt.Sprintf("%d stuck episodes", n.stuckEpisodes))
		return n.idleWithState(snap, StateStuck, "goal abandoned after repeated stuck episodes"), true
	}
	// One episode only forces a replan.
	return Decision{}, false
}

// navigate advances the active goal by one tick.
func (n *Navigator) navigate(snap schemas.Snapshot) Decision {
	goal := *n.goal

	// Cross-floor goals route through the nearest visible stairs first.
	target := goal.Target
	subgoal := false
	if goal.Floor != 0 && goal.Floor != snap.Floor {
		stairs, ok := FindFeature(snap.View, schemas.TileStairs)
		if !ok {
			return n.idle(snap, "goal is on another floor and no stairs are visible")
		}
		target = stairs
		subgoal = true
		if snap.Position == target {
			// Standing on the stairs; the floor transition is the game's to
			// perform, not ours.
			return deferred(StateNavigating, "on stairs, awaiting floor transition")
		}
	}

	if !subgoal && snap.Position == target {
		n.clearGoal()
		n.state = StateIdle
		return n.idle(snap, "goal reached")
	}

	// One tile short of the goal is close enough: the last step is usually
	// an interaction (talk, enter, pick up), which is not ours to make.
	if !subgoal && snap.Position.ManhattanDistance(target) == 1 {
		n.clearGoal()
		n.state = StateIdle
		return deferred(StateIdle, "adjacent to goal")
	}

	if len(n.path) > 0 {
		next := n.path[0]
		n.path = n.path[1:]
		return press(next, "following path")
	}

	path := n.planner.FindPath(PlanRequest{
		Start: snap.Position,
		Goal:  target,
		View:  snap.View,
		Avoid: n.tracker.IsAbandoned,
	})
	if path == nil {
		reason := "no path to goal within range"
		if subgoal {
			reason = "no path to visible stairs"
		}
		n.logger.Debug("Planning failed",
			zap.Stringer("target", target), zap.Bool("stairs_subgoal", subgoal))
		// An unplannable goal is dropped rather than retried every tick; the
		// caller sees the reason and the fresh frontier ranking.
		n.clearGoal()
		n.state = StateIdle
		return n.idle(snap, reason)
	}

	n.path = path[1:]
	n.state = StateNavigating
	return press(path[0], "starting planned path")
}

// idle produces a deferring decision and, in the overworld, refreshes the
// frontier ranking so the caller always has exploration options on hand.
func (n *Navigator) idle(snap schemas.Snapshot, reason string) Decision {
	state := n.state
	if n.goal == nil && state == StateNavigating {
		state = StateIdle
		n.state = state
	}
	return n.idleWithState(snap, state, reason)
}

func (n *Navigator) idleWithState(snap schemas.Snapshot, state NavState, reason string) Decision {
	d := deferred(state, reason)
	if snap.Context.AllowsMovement() && snap.View != nil {
		var objective *schemas.Position
		if n.goal != nil {
			t := n.goal.Target
			objective = &t
		}
		n.lastFrontiers = n.detector.Detect(DetectRequest{
			View:      snap.View,
			Player:    snap.Position,
			Objective: objective,
			Unreachable: func(p schemas.Position) bool {
				return n.tracker.IsUnreachable(p)
			},
		})
		d.Frontiers = n.lastFrontiers
	}
	return d
}

func (n *Navigator) setGoal(g Goal) {
	n.goal = &g
	n.path = nil
	n.stuckTicks = 0
	n.stuckEpisodes = 0
	n.state = StateNavigating
	n.logger.Info("Goal set",
		zap.Stringer("target", g.Target), zap.Int("floor", g.Floor))
}

func (n *Navigator) clearGoal() {
	n.goal = nil
	n.path = nil
	n.stuckTicks = 0
	n.stuckEpisodes = 0
}

func (n *Navigator) abandonGoal(reason string) {
	if n.goal == nil {
		return
	}
	n.logger.Warn("Abandoning goal",
		zap.Stringer("target", n.goal.Target), zap.String("reason", reason))
	n.clearGoal()
	n.state = StateStuck
}

// FindFeature returns the position of the nearest visible tile of the given
// kind, by Manhattan distance from the view center.
func FindFeature(view *schemas.TileView, kind schemas.TileKind) (schemas.Position, bool) {
	if view == nil {
		return schemas.Position{}, false
	}
	best := schemas.Position{}
	bestDist := -1
	for dy := -view.Radius; dy <= view.Radius; dy++ {
		for dx := -view.Radius; dx <= view.Radius; dx++ {
			p := schemas.Position{X: view.Center.X + dx, Y: view.Center.Y + dy}
			if view.At(p) != kind {
				continue
			}
			dist := view.Center.ManhattanDistance(p)
			if bestDist == -1 || dist < bestDist {
				best, bestDist = p, dist
			}
		}
	}
	return best, bestDist != -1
}
