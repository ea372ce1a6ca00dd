package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/adelakul/retail-pulse/internal/core"
	"github.com/adelakul/retail-pulse/internal/store"
	"github.com/adelakul/retail-pulse/internal/web"
)

func newServeCommand(st *state) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Serve the catalog, resolve and ingest endpoints.

The server stops on SIGINT or SIGTERM, waiting up to SERVER_SHUTDOWN_TIMEOUT
for running ingests to finish.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := st.cfg
			if port > 0 {
				cfg.Server.Port = port
			}

			cat, err := st.loadCatalog()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			storeCfg := cfg.StoreConfig()
			sink, err := store.Open(ctx, storeCfg)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer sink.Close()

			slog.Info("configuration loaded",
				"addr", cfg.Server.Addr(),
				"driver", storeCfg.Driver,
				"catalog_fields", cat.Len(),
				"ingest_max_concurrent", cfg.Ingest.MaxConcurrent,
				"rate_limit_enabled", cfg.Rate.Enabled,
			)

			var db web.Pinger
			if storeCfg.Driver != store.DriverNone {
				db = sink
			}
			service := core.NewService(cat, sink, cfg.ServiceOptions())
			server := web.NewServer(service, db, cfg)

			errCh := make(chan error, 1)
			go func() { errCh <- server.Start() }()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			slog.Info("shutting down...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()

			if status := service.Limiter().Status(); status.Active > 0 {
				slog.Info("waiting for ingests to complete", "active", status.Active)
			}
			if err := server.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown: %w", err)
			}
			return <-errCh
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "listen port (default: $SERVER_PORT)")

	return cmd
}
