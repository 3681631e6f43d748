package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"northstar/internal/coach"
	"northstar/internal/comb"
	"northstar/internal/store"
)

// =============================================================================
// ENGINE COMMANDS - recommend, profile, plan
// =============================================================================

type engineFlags struct {
	snapshotPath    string
	assessmentsPath string
	accessible      string
	userID          string
	limit           int
	asJSON          bool
	markdown        bool
	record          bool
}

func (f *engineFlags) bindSnapshot(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.snapshotPath, "snapshot", "s", "", "COM-B snapshot JSON file (\"-\" for stdin)")
	cmd.Flags().IntVarP(&f.limit, "limit", "n", 0, "Number of recommended actions (0 uses the configured default)")
	cmd.Flags().BoolVar(&f.asJSON, "json", false, "Print JSON instead of styled text")
}

func (f *engineFlags) bindProfile(cmd *cobra.Command) {
	f.bindSnapshot(cmd)
	cmd.Flags().StringVarP(&f.assessmentsPath, "assessments", "a", "", "Assessments JSON file: object, array or keyed entries")
	cmd.Flags().StringVar(&f.accessible, "accessible", "", "Comma-separated pillar ids the user can work on")
	cmd.Flags().StringVarP(&f.userID, "user", "u", "", "User id")
}

// buildProfile scores the snapshot (when given) and builds the profile.
func (o *rootOptions) buildProfile(cmd *cobra.Command, e *engine, f *engineFlags) (*coach.Profile, coach.Input, error) {
	var in coach.Input

	if f.snapshotPath != "" {
		snap, err := loadSnapshot(f.snapshotPath, cmd.InOrStdin())
		if err != nil {
			return nil, in, err
		}
		res := e.scorer.Compute(snap, comb.Options{Limit: e.limitFor(f.limit)})
		in.Insights = &res
	}

	assessments, err := loadAssessments(f.assessmentsPath, cmd.InOrStdin())
	if err != nil {
		return nil, in, err
	}
	if f.userID != "" || assessments.Len() > 0 {
		in.User = &coach.User{ID: comb.Text(f.userID), Assessments: assessments}
	}
	in.AccessiblePillars = splitList(f.accessible)

	return e.builder.BuildProfile(in), in, nil
}

func newRecommendCmd(o *rootOptions) *cobra.Command {
	f := &engineFlags{}
	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Score a COM-B snapshot and recommend actions",
		Long: `Sanitizes a COM-B snapshot, ranks pillars by risk and prints the
primary focus, recommended actions and constraint notes.

Examples:
  northstar recommend --snapshot snapshot.json
  cat snapshot.json | northstar recommend --snapshot - --limit 1 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := o.engine()
			if err != nil {
				return err
			}
			snap, err := loadSnapshot(f.snapshotPath, cmd.InOrStdin())
			if err != nil {
				return err
			}

			res := e.scorer.Compute(snap, comb.Options{Limit: e.limitFor(f.limit)})
			o.logger.Debug("computed recommendations",
				zap.Int("actions", len(res.RecommendedActions)),
				zap.Int("pillars", len(res.RankedPillars)))

			if f.record {
				id, err := o.record(f.userID, store.KindRecommendations, snap, res)
				if err != nil {
					return fmt.Errorf("failed to record run: %w", err)
				}
				o.logger.Info("recorded run", zap.String("id", id), zap.String("user", f.userID))
			}

			if f.asJSON {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			renderResult(cmd.OutOrStdout(), res)
			return nil
		},
	}
	f.bindSnapshot(cmd)
	cmd.Flags().StringVarP(&f.userID, "user", "u", "", "User id for recorded runs")
	cmd.Flags().BoolVar(&f.record, "record", false, "Record the run in the history database")
	return cmd
}

func newProfileCmd(o *rootOptions) *cobra.Command {
	f := &engineFlags{}
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Build the adaptive coaching profile",
		Long: `Merges scorer output with screening assessments into a persona,
priority pillars and watchouts.

Examples:
  northstar profile --snapshot snapshot.json --assessments assessments.json
  northstar profile --assessments assessments.json --accessible sleep,diet --markdown`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if f.asJSON && f.markdown {
				return fmt.Errorf("--json and --markdown are mutually exclusive")
			}
			e, err := o.engine()
			if err != nil {
				return err
			}
			profile, in, err := o.buildProfile(cmd, e, f)
			if err != nil {
				return err
			}

			if f.record {
				id, err := o.record(f.userID, store.KindProfile, in, profile)
				if err != nil {
					return fmt.Errorf("failed to record run: %w", err)
				}
				o.logger.Info("recorded run", zap.String("id", id), zap.String("user", f.userID))
			}

			switch {
			case f.asJSON:
				return writeJSON(cmd.OutOrStdout(), map[string]*coach.Profile{"profile": profile})
			case f.markdown:
				out, err := renderMarkdown(profileMarkdown(profile))
				if err != nil {
					return fmt.Errorf("failed to render markdown: %w", err)
				}
				fmt.Fprint(cmd.OutOrStdout(), out)
			default:
				renderProfile(cmd.OutOrStdout(), profile)
			}
			return nil
		},
	}
	f.bindProfile(cmd)
	cmd.Flags().BoolVar(&f.markdown, "markdown", false, "Render the profile as a markdown report")
	cmd.Flags().BoolVar(&f.record, "record", false, "Record the run in the history database")
	return cmd
}

func newPlanCmd(o *rootOptions) *cobra.Command {
	f := &engineFlags{}
	cmd := &cobra.Command{
		Use:   "plan PILLAR",
		Short: "Show the coaching plan for one pillar",
		Long: `Builds the profile and prints the plan for a single pillar. A pillar
that is not a priority falls back to the strongest watchout covering it.

Examples:
  northstar plan sleep --snapshot snapshot.json --assessments assessments.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := o.engine()
			if err != nil {
				return err
			}
			profile, _, err := o.buildProfile(cmd, e, f)
			if err != nil {
				return err
			}

			plan := e.builder.PillarPlan(args[0], profile)
			if plan == nil {
				return fmt.Errorf("no plan for pillar %q", args[0])
			}
			if f.asJSON {
				return writeJSON(cmd.OutOrStdout(), plan)
			}
			renderPlan(cmd.OutOrStdout(), plan)
			return nil
		},
	}
	f.bindProfile(cmd)
	return cmd
}
