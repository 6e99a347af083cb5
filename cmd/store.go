// -- cmd/store.go --
package cmd

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/mossriver/tilenav/internal/observability"
	"github.com/mossriver/tilenav/internal/store"
)

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Inspect and manage the abandoned-movement store.",
}

var storeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List abandoned movements.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(ctx context.Context, st store.Store) error {
			keys := st.All()
			sort.Slice(keys, func(i, j int) bool {
				if keys[i].Y != keys[j].Y {
					return keys[i].Y < keys[j].Y
				}
				if keys[i].X != keys[j].X {
					return keys[i].X < keys[j].X
				}
				return keys[i].Dir < keys[j].Dir
			})
			for _, k := range keys {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", k.Position(), k.Dir)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "active=%d lifetime=%d\n", len(keys), st.Total())
			return nil
		})
	},
}

var storeImportCmd = &cobra.Command{
	Use:   "import <file.json>",
	Short: "Merge a legacy JSON cache file into the store.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(ctx context.Context, st store.Store) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open cache file: %w", err)
			}
			defer f.Close()
			n, err := store.ImportJSON(ctx, st, f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d movements\n", n)
			return nil
		})
	},
}

var storeExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the store as a legacy JSON cache to stdout.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(ctx context.Context, st store.Store) error {
			return store.ExportJSON(st, cmd.OutOrStdout())
		})
	},
}

var storeClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Erase every abandoned movement and reset the lifetime counter.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(ctx context.Context, st store.Store) error {
			if err := st.Clear(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "store cleared")
			return nil
		})
	},
}

func init() {
	storeCmd.AddCommand(storeListCmd, storeImportCmd, storeExportCmd, storeClearCmd)
	rootCmd.AddCommand(storeCmd)
}

// withStore opens the configured store, runs fn, and closes it.
func withStore(ctx context.Context, fn func(context.Context, store.Store) error) error {
	path, err := appConfig.ResolveStorePath()
	if err != nil {
		return err
	}
	if path == "" {
		return fmt.Errorf("no store path configured; set store.path")
	}
	st := store.Open(ctx, path, store.SQLiteOptions{FlushInterval: appConfig.Store.FlushInterval}, observability.GetLogger())
	defer st.Close()
	return fn(ctx, st)
}
