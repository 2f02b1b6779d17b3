package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/AntonStoeckl/fakersql-go/shell/httpapi"
)

const shutdownTimeout = 10 * time.Second

func serveCmd(flags *rootFlags) *cobra.Command {
	var listenAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long:  "Run the HTTP API with the JSON endpoints, the index page and, if enabled, /metrics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}

			if listenAddr == "" {
				listenAddr = cfg.ListenAddr()
			}

			ctx := cmd.Context()

			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}

			logger := a.telemetry.Logger

			options := []httpapi.Option{
				httpapi.WithLogger(logger),
				httpapi.WithPoolStats(a.db.Pool),
				httpapi.WithMaxBatchSize(cfg.Generation.MaxBatchSize),
			}
			if metrics := a.telemetry.Metrics(); metrics != nil {
				options = append(options, httpapi.WithMetrics(metrics))
			}

			server, err := httpapi.NewServer(a.service, options...)
			if err != nil {
				return errors.Join(err, a.close(ctx))
			}

			httpServer := httpapi.NewHTTPServer(listenAddr, server.Handler())

			errCh := make(chan error, 1)
			go func() {
				logger.Info("fakersql api started", "addr", listenAddr, "adapter", cfg.Database.Adapter)
				if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
			}()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(sigCh)

			var serveErr error
			select {
			case sig := <-sigCh:
				logger.Info("shutdown signal received", "signal", sig.String())
			case err := <-errCh:
				serveErr = fmt.Errorf("fakersql server error: %w", err)
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				serveErr = errors.Join(serveErr, fmt.Errorf("shutdown server: %w", err))
			}

			return errors.Join(serveErr, a.close(shutdownCtx))
		},
	}

	cmd.Flags().StringVar(&listenAddr, "addr", "", "Listen address (default from HTTP_HOST and HTTP_PORT)")

	return cmd
}
