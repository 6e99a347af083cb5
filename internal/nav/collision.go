// File: internal/nav/collision.go
package nav

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/mossriver/tilenav/api/schemas"
	"github.com/mossriver/tilenav/internal/config"
	"github.com/mossriver/tilenav/internal/store"
)

// RecoveryHint tells the navigator how to react to a recorded collision.
type RecoveryHint int

const (
	// HintNone means keep going; the failure is not yet significant.
	HintNone RecoveryHint = iota
	// HintTryAlternate means failures are mounting on this movement; prefer
	// an untried direction out of the same cell.
	HintTryAlternate
	// HintAvoidPosition means the movement is permanently abandoned and must
	// be routed around.
	HintAvoidPosition
	// HintAbandonPath means every direction out of the cell has failed; the
	// active path is not salvageable from here.
	HintAbandonPath
)

func (h RecoveryHint) String() string {
	switch h {
	case HintTryAlternate:
		return "try-alternate"
	case HintAvoidPosition:
		return "avoid-position"
	case HintAbandonPath:
		return "abandon-path"
	}
	return "none"
}

// MovementOutcome is the tracker's verdict on one recorded movement attempt.
type MovementOutcome struct {
	// Collision reports whether the attempt failed to change position.
	Collision bool
	// FailureCount is the consecutive failure count for this exact
	// (position, direction) after recording.
	FailureCount int
	// ConsecutiveMovements is the current run of successful moves.
	ConsecutiveMovements int
	// ShouldAbandon is set on the record that crossed the failure limit and
	// made the movement permanently abandoned.
	ShouldAbandon bool
	// Unreachable reports that the movement was already abandoned before
	// this attempt; it should never have been tried.
	Unreachable bool
	// Hint is the suggested recovery action.
	Hint RecoveryHint
	// Untried lists directions out of the position not yet attempted this
	// session, the candidates behind HintTryAlternate.
	Untried []schemas.Direction
}

// CollisionTracker counts movement failures per (position, direction),
// promotes persistent failures into the durable abandoned set, and resets its
// transient counters once the agent demonstrably moves freely again.
type CollisionTracker struct {
	cfg    config.CollisionConfig
	store  store.Store
	logger *zap.Logger

	mu sync.Mutex
	// failures holds the transient consecutive-failure count per movement.
	failures map[store.Key]int
	// tried marks movements attempted (and failed) this session, per cell.
	tried map[schemas.Position]map[schemas.Direction]bool
	// movements is the current run of successful moves anywhere.
	movements int
	// sessionFailures counts every collision recorded this session.
	sessionFailures int
}

// NewCollisionTracker builds a tracker over the given abandoned-movement
// store.
func NewCollisionTracker(cfg config.CollisionConfig, st store.Store, logger *zap.Logger) *CollisionTracker {
	return &CollisionTracker{
		cfg:      cfg,
		store:    st,
		logger:   logger.Named("collision"),
		failures: make(map[store.Key]int),
		tried:    make(map[schemas.Position]map[schemas.Direction]bool),
	}
}

// RecordMovement records one attempted step: the position it was attempted
// from, the direction pressed, and whether the position actually changed.
func (t *CollisionTracker) RecordMovement(pos schemas.Position, dir schemas.Direction, moved bool) MovementOutcome {
	t.mu.Lock()
	defer t.mu.Unlock()

	if moved {
		t.movements++
		out := MovementOutcome{ConsecutiveMovements: t.movements}
		// A short run of clean movement proves the earlier failures were
		// situational (an NPC in the way, a scripted block), so the transient
		// counters start over.
		if t.movements >= t.cfg.MovementResetThreshold && (len(t.failures) > 0 || len(t.tried) > 0) {
			t.failures = make(map[store.Key]int)
			t.tried = make(map[schemas.Position]map[schemas.Direction]bool)
			t.logger.Debug("Movement streak reset transient collision counters",
				zap.Int("streak", t.movements))
		}
		return out
	}

	t.movements = 0
	t.sessionFailures++
	key := store.KeyFor(pos, dir)

	if t.store.Contains(key) {
		// Already written off in a previous session; re-recording would only
		// inflate counters.
		return MovementOutcome{
			Collision:   true,
			Unreachable: true,
			Hint:        HintAvoidPosition,
			Untried:     t.untriedLocked(pos),
		}
	}

	if t.tried[pos] == nil {
		t.tried[pos] = make(map[schemas.Direction]bool)
	}
	t.tried[pos][dir] = true
	t.failures[key]++
	count := t.failures[key]

	out := MovementOutcome{
		Collision:    true,
		FailureCount: count,
		Untried:      t.untriedLocked(pos),
	}

	if count >= t.cfg.FailureLimit {
		t.store.Add(key)
		delete(t.failures, key)
		out.ShouldAbandon = true
		out.Hint = HintAvoidPosition
		t.logger.Info("Movement permanently abandoned",
			zap.Stringer("position", pos),
			zap.String("direction", string(dir)),
			zap.Int("failures", count))
		return out
	}

	switch {
	case len(out.Untried) == 0 && t.allBlockedLocked(pos):
		out.Hint = HintAbandonPath
	case count >= 2:
		out.Hint = HintTryAlternate
	}
	return out
}

// IsAbandoned reports whether the exact movement is permanently abandoned.
// Its signature matches the pathfinder's Avoid callback.
func (t *CollisionTracker) IsAbandoned(pos schemas.Position, dir schemas.Direction) bool {
	return t.store.Contains(store.KeyFor(pos, dir))
}

// IsUnreachable reports whether every one of the given directions out of pos
// is abandoned; with no directions given it checks all four. A cell all of
// whose exits are abandoned is effectively unreachable as a destination.
func (t *CollisionTracker) IsUnreachable(pos schemas.Position, dirs ...schemas.Direction) bool {
	if len(dirs) == 0 {
		dirs = schemas.AllDirections[:]
	}
	for _, d := range dirs {
		if !t.store.Contains(store.KeyFor(pos, d)) {
			return false
		}
	}
	return true
}

// SafeDirections returns the directions out of pos not permanently abandoned.
func (t *CollisionTracker) SafeDirections(pos schemas.Position) []schemas.Direction {
	safe := make([]schemas.Direction, 0, len(schemas.AllDirections))
	for _, d := range schemas.AllDirections {
		if !t.store.Contains(store.KeyFor(pos, d)) {
			safe = append(safe, d)
		}
	}
	return safe
}

// Warning summarizes known trouble at pos for an external decision-maker.
// It returns "" when there is nothing to warn about.
func (t *CollisionTracker) Warning(pos schemas.Position) string {
	t.mu.Lock()
	defer t.mu.Unlock()

	var blocked, failing []string
	for _, d := range schemas.AllDirections {
		if t.store.Contains(store.KeyFor(pos, d)) {
			blocked = append(blocked, string(d))
		} else if n := t.failures[store.KeyFor(pos, d)]; n > 0 {
			failing = append(failing, fmt.Sprintf("%s(%d)", d, n))
		}
	}
	if len(blocked) == 0 && len(failing) == 0 {
		return ""
	}
	var parts []string
	if len(blocked) > 0 {
		parts = append(parts, "abandoned: "+strings.Join(blocked, ", "))
	}
	if len(failing) > 0 {
		parts = append(parts, "failing: "+strings.Join(failing, ", "))
	}
	return fmt.Sprintf("Movement trouble at %s — %s", pos, strings.Join(parts, "; "))
}

// TrackerStats is a point-in-time snapshot of the tracker's counters.
type TrackerStats struct {
	SessionFailures      int
	ActiveCounters       int
	ConsecutiveMovements int
	AbandonedActive      int
	AbandonedTotal       int
}

// Stats snapshots the tracker and store counters.
func (t *CollisionTracker) Stats() TrackerStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return TrackerStats{
		SessionFailures:      t.sessionFailures,
		ActiveCounters:       len(t.failures),
		ConsecutiveMovements: t.movements,
		AbandonedActive:      len(t.store.All()),
		AbandonedTotal:       t.store.Total(),
	}
}

// Status renders the stats as a one-line summary.
func (t *CollisionTracker) Status() string {
	s := t.Stats()
	return fmt.Sprintf("failures=%d active_counters=%d movement_streak=%d abandoned=%d lifetime=%d",
		s.SessionFailures, s.ActiveCounters, s.ConsecutiveMovements, s.AbandonedActive, s.AbandonedTotal)
}

// ResetSession clears every transient counter while keeping the durable
// abandoned set intact. The navigator calls this on map changes.
func (t *CollisionTracker) ResetSession() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failures = make(map[store.Key]int)
	t.tried = make(map[schemas.Position]map[schemas.Direction]bool)
	t.movements = 0
}

// ClearAbandoned erases the durable abandoned set, transient state included.
func (t *CollisionTracker) ClearAbandoned(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.store.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear abandoned movements: %w", err)
	}
	t.failures = make(map[store.Key]int)
	t.tried = make(map[schemas.Position]map[schemas.Direction]bool)
	t.movements = 0
	return nil
}

// untriedLocked lists directions out of pos with no recorded failure this
// session and no permanent abandonment. Callers hold t.mu.
func (t *CollisionTracker) untriedLocked(pos schemas.Position) []schemas.Direction {
	var untried []schemas.Direction
	for _, d := range schemas.AllDirections {
		if t.tried[pos][d] {
			continue
		}
		if t.store.Contains(store.KeyFor(pos, d)) {
			continue
		}
		untried = append(untried, d)
	}
	return untried
}

// allBlockedLocked reports whether every direction out of pos has either
// failed this session or been permanently abandoned. Callers hold t.mu.
func (t *CollisionTracker) allBlockedLocked(pos schemas.Position) bool {
	for _, d := range schemas.AllDirections {
		if !t.tried[pos][d] && !t.store.Contains(store.KeyFor(pos, d)) {
			return false
		}
	}
	return true
}
