package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wearcast/wearcast/internal/instrumentation"
	"github.com/wearcast/wearcast/internal/logging"
	"github.com/wearcast/wearcast/internal/server"
)

func newServeCmd() *cobra.Command {
	var (
		addr           string
		metricsEnabled bool
		metricsAddr    string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the local JSON API consumed by the app shell",
		Long: `Run the local JSON API consumed by the app shell.

The server exposes the merged today view, connection status, an arbitrary
date range endpoint, and weather data. Prometheus metrics are served on a
dedicated port.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(addr, metricsEnabled, metricsAddr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "API listen address (overrides the config file)")
	cmd.Flags().BoolVar(&metricsEnabled, "metrics-enabled", true, "Enable the metrics server on a dedicated port")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Metrics server address (overrides the config file)")

	return cmd
}

func runServe(addr string, metricsEnabled bool, metricsAddr string) error {
	shutdownCtx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version

	instrProvider, err := instrumentation.NewProvider(shutdownCtx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		if err := instrProvider.Shutdown(context.Background()); err != nil {
			slog.Error("instrumentation shutdown failed", logging.Err(err))
		}
	}()

	app, err := newApp(appOptions{Metrics: instrProvider.Metrics()})
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	if addr == "" {
		addr = app.cfg.Listen
	}
	if metricsAddr == "" {
		metricsAddr = app.cfg.MetricsListen
	}

	apiServer, err := server.NewAPIServer(server.APIServerConfig{
		Addr:    addr,
		Store:   app.store,
		Weather: app.weather,
		Metrics: instrProvider.Metrics(),
		Logger:  app.logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create API server: %w", err)
	}

	var metricsServer *server.MetricsServer
	if metricsEnabled && instrProvider.Enabled() {
		metricsServer, err = server.NewMetricsServer(server.MetricsServerConfig{
			Addr:                    metricsAddr,
			InstrumentationProvider: instrProvider,
		})
		if err != nil {
			return fmt.Errorf("failed to create metrics server: %w", err)
		}
		go func() {
			if err := metricsServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", logging.Err(err))
			}
		}()
	}

	// Warm the cache before accepting requests. A partial failure is fine,
	// the state carries the diagnostic.
	if err := app.store.Initialize(shutdownCtx); err != nil {
		app.logger.Warn("initial refresh incomplete", logging.Err(err))
	}
	apiServer.Health().SetReady(true)

	// Keep the event cache warm while the server runs.
	refreshDone := make(chan struct{})
	go func() {
		defer close(refreshDone)
		ticker := time.NewTicker(app.cfg.EventTTL())
		defer ticker.Stop()
		for {
			select {
			case <-shutdownCtx.Done():
				return
			case <-ticker.C:
				if err := app.store.Refresh(shutdownCtx, false); err != nil {
					app.logger.Warn("background refresh incomplete", logging.Err(err))
				}
			}
		}
	}()

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := apiServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverDone <- err
		}
	}()

	select {
	case <-shutdownCtx.Done():
		app.logger.Info("shutdown signal received")
		ctx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()
		if err := apiServer.Shutdown(ctx); err != nil {
			return fmt.Errorf("error shutting down API server: %w", err)
		}
		if metricsServer != nil {
			if err := metricsServer.Shutdown(ctx); err != nil {
				return fmt.Errorf("error shutting down metrics server: %w", err)
			}
		}
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("API server stopped with error: %w", err)
		}
	}

	<-refreshDone
	return nil
}
