package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"northstar/internal/catalog"
	"northstar/internal/store"
)

// =============================================================================
// HISTORY AND CATALOG COMMANDS
// =============================================================================

func newHistoryCmd(o *rootOptions) *cobra.Command {
	var (
		userID string
		limit  int
		asJSON bool
		stats  bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded runs",
		Long: `Lists runs recorded by "recommend --record", "profile --record" and the
HTTP server, newest first.

Examples:
  northstar history --user u-123
  northstar history --stats`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !stats && userID == "" {
				return fmt.Errorf("--user is required")
			}
			st, err := o.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			if stats {
				s, err := st.Stats()
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), s)
				}
				fmt.Fprintln(cmd.OutOrStdout(), titleStyle.Render("Run history"))
				fmt.Fprintf(cmd.OutOrStdout(), "runs: %d  users: %d\n", s.TotalRuns, s.Users)
				kinds := make([]string, 0, len(s.ByKind))
				for kind := range s.ByKind {
					kinds = append(kinds, string(kind))
				}
				sort.Strings(kinds)
				for _, kind := range kinds {
					fmt.Fprintf(cmd.OutOrStdout(), "  %s: %d\n", kind, s.ByKind[store.Kind(kind)])
				}
				return nil
			}

			runs, err := st.ListRuns(userID, limit)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), runs)
			}
			renderRuns(cmd.OutOrStdout(), runs)
			return nil
		},
	}

	cmd.Flags().StringVarP(&userID, "user", "u", "", "User id")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum runs to list")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	cmd.Flags().BoolVar(&stats, "stats", false, "Print aggregate statistics instead of runs")
	return cmd
}

func newCatalogCmd(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect the pillar and assessment catalog",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective catalog as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := o.engine()
			if err != nil {
				return err
			}
			data, err := yaml.Marshal(e.catalog)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	initCmd := &cobra.Command{
		Use:   "init PATH",
		Short: "Write the built-in catalog to PATH for editing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := catalog.Default().Save(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "catalog written to %s\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(show, initCmd)
	return cmd
}
