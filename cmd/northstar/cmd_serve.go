package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"northstar/internal/server"
	"northstar/internal/store"
)

func newServeCmd(o *rootOptions) *cobra.Command {
	var (
		host    string
		port    int
		watch   bool
		noStore bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the engine over HTTP",
		Long: `Starts the HTTP API. Requests are cached per catalog generation and,
when a userId is present, recorded in the history database.

Examples:
  northstar serve
  northstar serve --port 9090 --watch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := o.cfg
			if cmd.Flags().Changed("host") {
				cfg.Server.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			if cmd.Flags().Changed("watch") {
				cfg.Catalog.Watch = watch
			}

			e, err := o.engine()
			if err != nil {
				return err
			}

			var st *store.Store
			if !noStore {
				st, err = o.openStore()
				if err != nil {
					return err
				}
				defer st.Close()
			}

			srv, err := server.New(server.Options{
				Config:        cfg.Server,
				Scorer:        cfg.Engine.ScorerConfig(),
				DefaultLimit:  e.limit,
				Catalog:       e.catalog,
				CatalogPath:   cfg.Catalog.Path,
				Watch:         cfg.Catalog.Watch && cfg.Catalog.Path != "",
				WatchDebounce: cfg.GetCatalogDebounce(),
				Store:         st,
				Debug:         o.verbose,
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			o.logger.Info("serving", zap.String("addr", cfg.Server.Addr()), zap.Bool("watch", cfg.Catalog.Watch))
			return srv.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "Listen host (overrides config)")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "Listen port (overrides config)")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Reload the catalog file when it changes")
	cmd.Flags().BoolVar(&noStore, "no-store", false, "Do not record runs")
	return cmd
}
