// Package main implements the northstar CLI: the COM-B scorer and the
// adaptive coaching profile builder behind a command line and an HTTP server.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"northstar/internal/config"
	"northstar/internal/logging"
)

// rootOptions holds global flag values and the loaded configuration.
type rootOptions struct {
	configPath string
	dbPath     string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "northstar",
		Short: "NorthStar adaptive coaching engine",
		Long: `NorthStar scores a user's COM-B behavioral drivers and pillar metrics,
recommends a small set of interventions and builds an adaptive coaching
profile from screening assessments.

Examples:
  northstar recommend --snapshot snapshot.json --limit 2
  northstar profile --snapshot snapshot.json --assessments assessments.json --markdown
  northstar plan sleep --snapshot snapshot.json --assessments assessments.json
  northstar serve --port 8088 --watch`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.logger != nil {
				_ = logging.Sync()
			}
		},
	}

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "northstar.yaml", "Path to the YAML config file")
	root.PersistentFlags().StringVar(&opts.dbPath, "db", "", "Run history database (overrides config)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable verbose logging")

	root.AddCommand(newRecommendCmd(opts))
	root.AddCommand(newProfileCmd(opts))
	root.AddCommand(newPlanCmd(opts))
	root.AddCommand(newServeCmd(opts))
	root.AddCommand(newHistoryCmd(opts))
	root.AddCommand(newCatalogCmd(opts))

	return root
}

// init loads configuration and builds the logger.
func (o *rootOptions) init() error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	if o.dbPath != "" {
		cfg.Store.DatabasePath = o.dbPath
	}
	if o.verbose {
		cfg.Logging.DebugMode = true
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if err := logging.Initialize(cfg.Logging.Options()); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	o.cfg = cfg
	o.logger = logging.Base()
	logging.BootDebug("config loaded from %s", o.configPath)
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
