// -- cmd/simulate.go --
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/mossriver/tilenav/api/schemas"
	"github.com/mossriver/tilenav/internal/nav"
	"github.com/mossriver/tilenav/internal/observability"
	"github.com/mossriver/tilenav/internal/sim"
	"github.com/mossriver/tilenav/internal/store"
)

var (
	simMapFile string
	simTarget  string
	simExplore bool
	simPersist bool
)

// demoMap is used when no map file is given: a couple of rooms, a door, and
// some grass to explore.
const demoMap = `
##############################
#............#...............#
#..@.........D....~~~~.......#
#............#....~~~~....H..#
#......N.....#................
#............#......S.........
##############################
`

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run the navigator against a scripted ASCII world.",
	Long: `Simulate ticks the navigation core against an ASCII tile map and reports
the outcome. Give it a goal with --target "x,y", or let it chase the best
frontier with --explore.`,
	RunE: runSimulate,
}

func init() {
	simulateCmd.Flags().StringVarP(&simMapFile, "map", "m", "", "ASCII map file ('@' marks the player)")
	simulateCmd.Flags().StringVarP(&simTarget, "target", "t", "", "goal coordinates as \"x,y\"")
	simulateCmd.Flags().BoolVar(&simExplore, "explore", false, "navigate to the top-ranked frontier")
	simulateCmd.Flags().BoolVar(&simPersist, "persist", false, "use the configured abandoned-movement store instead of memory")
	rootCmd.AddCommand(simulateCmd)
}

func runSimulate(cmd *cobra.Command, args []string) error {
	logger := observability.GetLogger()
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mapText := demoMap
	if simMapFile != "" {
		data, err := os.ReadFile(simMapFile)
		if err != nil {
			return fmt.Errorf("failed to read map file: %w", err)
		}
		mapText = string(data)
	}
	world, err := sim.ParseWorld(mapText)
	if err != nil {
		return fmt.Errorf("invalid map: %w", err)
	}

	st := buildStore(ctx)
	defer st.Close()

	tracker := nav.NewCollisionTracker(appConfig.Collision, st, logger)
	navigator := nav.NewNavigator(
		appConfig.Navigator,
		nav.NewPathfinder(appConfig.Pathfinder),
		nav.NewFrontierDetector(appConfig.Frontier),
		tracker,
		logger,
	)

	commands := make(map[int]*schemas.Command)
	switch {
	case simTarget != "":
		target, err := parseTarget(simTarget)
		if err != nil {
			return err
		}
		commands[0] = schemas.GoTo(target)
	case simExplore:
		// Tick 0 runs idle so the first frontier ranking exists before the
		// selection command fires on tick 1.
		commands[1] = schemas.GoToFrontier(1)
	default:
		return fmt.Errorf("nothing to do: pass --target or --explore")
	}

	driver := &sim.Driver{
		World:     world,
		Navigator: navigator,
		Cfg:       appConfig.Sim,
		Logger:    logger,
		Commands:  commands,
	}

	var result *sim.Result
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		result, err = driver.Run(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("simulation failed: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(),
		"ticks=%d moves=%d collisions=%d final=%s state=%s\n%s\n",
		result.Ticks, result.Moves, result.Collisions,
		result.FinalPos, result.FinalState, tracker.Status())
	return nil
}

// buildStore honors --persist; the default in-memory store keeps simulation
// runs from polluting the real abandoned set.
func buildStore(ctx context.Context) store.Store {
	logger := observability.GetLogger()
	if !simPersist {
		return store.NewMemory()
	}
	path, err := appConfig.ResolveStorePath()
	if err != nil {
		logger.Warn("Bad store path; using in-memory store")
		return store.NewMemory()
	}
	return store.Open(ctx, path, store.SQLiteOptions{FlushInterval: appConfig.Store.FlushInterval}, logger)
}

// parseTarget parses "x,y" into a position.
func parseTarget(s string) (schemas.Position, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return schemas.Position{}, fmt.Errorf("target must be \"x,y\", got %q", s)
	}
	x, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return schemas.Position{}, fmt.Errorf("bad target x: %w", err)
	}
	y, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return schemas.Position{}, fmt.Errorf("bad target y: %w", err)
	}
	return schemas.Position{X: x, Y: y}, nil
}
