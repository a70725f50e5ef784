package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/lattice-run/warden/internal/config"
	"github.com/lattice-run/warden/internal/runtime"
	"github.com/lattice-run/warden/internal/serve"
)

// ServeOptions contains options for the serve command
type ServeOptions struct {
	ConfigPath string
	AdminPort  int
}

// Serve runs the decision engine host until interrupted.
func (c *Controller) Serve(ctx context.Context, opts ...ServeOptions) error {
	configPath := ""
	adminPort := 0

	if len(opts) > 0 {
		configPath = opts[0].ConfigPath
		adminPort = opts[0].AdminPort
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Create logger
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()

	// Locate configuration
	if configPath == "" {
		_, found, err := config.LoadConfig()
		if err != nil {
			return err
		}
		configPath = found
	}

	resolver, err := config.NewResolver(configPath, logger)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Hot-reload configuration for the lifetime of the process
	go func() {
		if err := resolver.Watch(ctx); err != nil && ctx.Err() == nil {
			logger.Warn().Err(err).Msg("config watcher stopped")
		}
	}()

	// Create runtime
	rt := runtime.NewRuntime(resolver, logger)
	if err := rt.Start(ctx); err != nil {
		return fmt.Errorf("failed to start runtime: %w", err)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := rt.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("error shutting down runtime")
		}
	}()

	if adminPort == 0 {
		adminPort = resolver.Snapshot().AdminPort
	}

	adminServer := serve.NewAdminServer(rt.Engine(), rt.Registry())

	errChan := make(chan error, 1)
	go func() {
		logger.Info().Int("port", adminPort).Msg("starting admin server")
		if err := adminServer.Start(ctx, adminPort); err != nil {
			errChan <- err
		}
	}()

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
		cancel()
		return nil
	case err := <-errChan:
		return fmt.Errorf("admin server failed: %w", err)
	case <-ctx.Done():
		return nil
	}
}
