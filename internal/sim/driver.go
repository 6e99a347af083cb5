// File: internal/sim/driver.go
package sim

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/mossriver/tilenav/api/schemas"
	"github.com/mossriver/tilenav/internal/config"
	"github.com/mossriver/tilenav/internal/nav"
)

// Driver ticks a world against a navigator at a fixed pace, injecting
// scripted commands and context switches at chosen ticks.
type Driver struct {
	World     *World
	Navigator *nav.Navigator
	Cfg       config.SimConfig
	Logger    *zap.Logger

	// Commands and Contexts fire at the start of the named tick.
	Commands map[int]*schemas.Command
	Contexts map[int]schemas.GameContext
}

// Result summarizes one run.
type Result struct {
	Ticks      int
	Moves      int
	Collisions int
	FinalPos   schemas.Position
	FinalState nav.NavState
}

// Run ticks until the navigator settles, the tick budget runs out, or the
// context is cancelled.
func (d *Driver) Run(ctx context.Context) (*Result, error) {
	logger := d.Logger.Named("sim")
	limiter := rate.NewLimiter(rate.Limit(d.Cfg.TicksPerSecond), 1)

	lastScripted := -1
	for t := range d.Commands {
		if t > lastScripted {
			lastScripted = t
		}
	}
	for t := range d.Contexts {
		if t > lastScripted {
			lastScripted = t
		}
	}

	res := &Result{}
	for tick := 0; tick < d.Cfg.MaxTicks; tick++ {
		if err := limiter.Wait(ctx); err != nil {
			return res, err
		}
		res.Ticks = tick + 1

		if c, ok := d.Contexts[tick]; ok {
			d.World.Context = c
		}
		snap := d.World.Snapshot(d.Cfg.ViewRadius)
		decision := d.Navigator.Decide(snap, d.Commands[tick])

		if decision.HasAction {
			moved := d.World.Apply(decision.Action)
			if moved {
				res.Moves++
			} else {
				res.Collisions++
			}
			logger.Debug("Tick",
				zap.Int("tick", tick),
				zap.Stringer("position", snap.Position),
				zap.String("action", string(decision.Action)),
				zap.Bool("moved", moved))
			continue
		}

		logger.Debug("Tick (deferred)",
			zap.Int("tick", tick),
			zap.Stringer("position", snap.Position),
			zap.String("state", string(decision.State)),
			zap.String("reason", decision.Reason))

		// Settled: nothing scripted remains and the navigator has no goal.
		if tick > lastScripted && decision.State != nav.StateNavigating {
			break
		}
	}

	res.FinalPos = d.World.Player
	res.FinalState = d.Navigator.State()
	logger.Info("Simulation finished",
		zap.Int("ticks", res.Ticks),
		zap.Int("moves", res.Moves),
		zap.Int("collisions", res.Collisions),
		zap.Stringer("final_position", res.FinalPos),
		zap.String("final_state", string(res.FinalState)))
	return res, nil
}
