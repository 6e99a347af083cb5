package schemas

import "fmt"

// GameContext classifies what the game is currently doing. Navigation only
// emits movement while the context is free-movement; everything else gates
// the orchestrator.
type GameContext string

const (
	ContextOverworld GameContext = "overworld"
	ContextDialogue  GameContext = "dialogue"
	ContextBattle    GameContext = "battle"
	ContextMenu      GameContext = "menu"
	ContextTitle     GameContext = "title"
	ContextUnknown   GameContext = "unknown"
)

// AllowsMovement reports whether directional buttons may be emitted in this
// context.
func (c GameContext) AllowsMovement() bool {
	return c == ContextOverworld
}

// Snapshot is the strongly-typed, read-only view of the game the host hands
// the navigation core once per tick. The core never mutates it and never
// assumes it persists beyond the tick.
type Snapshot struct {
	Position Position
	MapID    int
	Floor    int
	Context  GameContext
	View     *TileView
}

// CommandType enumerates the typed navigation commands an external
// decision-maker can issue.
type CommandType int

const (
	// CommandGoTo starts goal-directed navigation to explicit coordinates.
	CommandGoTo CommandType = iota
	// CommandGoToFrontier starts navigation to the Nth ranked frontier from
	// the most recent detection (1-based index).
	CommandGoToFrontier
	// CommandCancel discards the active path and goal.
	CommandCancel
)

// Command is the typed input variant replacing free-text directives like
// "FRONTIER_3". Exactly one of the payload fields is meaningful, selected
// by Type.
type Command struct {
	Type          CommandType
	Target        Position // CommandGoTo
	TargetFloor   int      // CommandGoTo; 0 means the current floor
	FrontierIndex int      // CommandGoToFrontier, 1-based
}

// GoTo builds a goal-directed navigation command.
func GoTo(target Position) *Command {
	return &Command{Type: CommandGoTo, Target: target}
}

// GoToFloor builds a goal-directed command that requires a specific floor.
func GoToFloor(target Position, floor int) *Command {
	return &Command{Type: CommandGoTo, Target: target, TargetFloor: floor}
}

// GoToFrontier builds a frontier-selection command (1-based index into the
// latest ranking).
func GoToFrontier(index int) *Command {
	return &Command{Type: CommandGoToFrontier, FrontierIndex: index}
}

// Cancel builds a command that discards the active path and goal.
func Cancel() *Command {
	return &Command{Type: CommandCancel}
}

// Frontier is a scored exploration candidate: an unexplored cell adjacent to
// explored, walkable ground.
type Frontier struct {
	Score float64
	Pos   Position
}

func (f Frontier) String() string {
	return fmt.Sprintf("%s score=%.1f", f.Pos, f.Score)
}
