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

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/igorsal/routewarden/api"
	"github.com/igorsal/routewarden/internal/config"
	"github.com/igorsal/routewarden/internal/interfaces"
	"github.com/igorsal/routewarden/internal/services"
	"github.com/igorsal/routewarden/pkg/logger"
	"github.com/igorsal/routewarden/pkg/metrics"
)

const (
	DefaultVersion  = "1.0.0"
	ShutdownTimeout = 30 * time.Second
	IdleTimeout     = 120 * time.Second
)

// Application holds all dependencies
type Application struct {
	config  *config.Config
	logger  interfaces.Logger
	metrics interfaces.MetricsCollector
	relay   interfaces.RelayService
	server  *http.Server
}

func main() {
	app, err := initializeApplication()
	if err != nil {
		fmt.Printf("Failed to initialize application: %v\n", err)
		os.Exit(1)
	}

	app.logger.Info("Starting routewarden relay",
		"version", DefaultVersion,
		"environment", os.Getenv("ENVIRONMENT"),
	)

	if err := app.run(); err != nil {
		app.logger.Fatal("Application failed to run", err)
	}
}

func initializeApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := logger.NewAdapter(cfg.Logging.Level, cfg.Logging.Format)
	metrics := metrics.NewPrometheusCollector(nil)
	relay := services.NewRelayService(cfg.Relay, logger, metrics)

	app := &Application{
		config:  cfg,
		logger:  logger,
		metrics: metrics,
		relay:   relay,
	}
	app.setupServer()

	return app, nil
}

func (app *Application) setupServer() {
	handler := api.NewRouter(app.config, app.relay, app.logger, app.metrics, promhttp.Handler())

	app.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", app.config.Server.Host, app.config.Server.Port),
		Handler:      handler,
		ReadTimeout:  app.config.Server.ReadTimeout,
		WriteTimeout: app.config.Server.WriteTimeout,
		IdleTimeout:  IdleTimeout,
	}
}

// run serves until SIGINT or SIGTERM, then shuts down gracefully
func (app *Application) run() error {
	serverErrors := make(chan error, 1)

	go func() {
		var err error
		if app.config.Server.TLSEnabled() {
			app.logger.Info("Starting HTTPS server",
				"host", app.config.Server.Host,
				"port", app.config.Server.Port,
				"cert_file", app.config.Server.TLSCertFile,
			)
			err = app.server.ListenAndServeTLS(app.config.Server.TLSCertFile, app.config.Server.TLSKeyFile)
		} else {
			app.logger.Info("Starting HTTP server",
				"host", app.config.Server.Host,
				"port", app.config.Server.Port,
			)
			err = app.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server failed to start: %w", err)

	case <-ctx.Done():
		app.logger.Info("Shutdown signal received")
		return app.gracefulShutdown()
	}
}

// gracefulShutdown lets in-flight relays finish before the timeout
func (app *Application) gracefulShutdown() error {
	app.logger.Info("Starting graceful shutdown")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	if err := app.server.Shutdown(shutdownCtx); err != nil {
		app.logger.Error("Graceful shutdown failed, forcing close", err)
		if closeErr := app.server.Close(); closeErr != nil {
			app.logger.Error("Force shutdown also failed", closeErr)
		}
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	app.logger.Info("Graceful shutdown completed successfully")
	return nil
}
