package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/visionkit/scanbox/internal/server"
)

// serveCmd starts the embedding HTTP server.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the scan HTTP server",
	Long: `Start an HTTP server exposing the scan engine:

  POST /scan     - decode an uploaded frame within the configured region
  GET  /events   - websocket stream of detection events
  GET  /healthz  - health check
  GET  /metrics  - Prometheus metrics

Examples:
  scanbox serve
  scanbox serve --port 3000`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("host", "", "host to bind (overrides config)")
	serveCmd.Flags().Int("port", 0, "port to listen on (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	if cmd.Flags().Changed("host") {
		cfg.Server.Host, _ = cmd.Flags().GetString("host")
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port, _ = cmd.Flags().GetInt("port")
	}

	srv, err := server.New(cfg)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              srv.Addr(),
		Handler:           srv.Handler(),
		ReadTimeout:       time.Duration(cfg.Server.TimeoutSec) * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      time.Duration(cfg.Server.TimeoutSec) * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("scan server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(),
			time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
		defer cancel()
		slog.Info("shutting down scan server")
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
