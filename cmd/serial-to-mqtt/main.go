// Package main implements the entry point for the serial-to-mqtt bridge.
// The bridge polls serial-attached sensors, decodes their frames and
// publishes readings to a NATS broker, exposing Prometheus metrics on
// the side.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/yarkivaev/serial-to-mqtt/bridge"
	"github.com/yarkivaev/serial-to-mqtt/config"
	"github.com/yarkivaev/serial-to-mqtt/metric"
	"github.com/yarkivaev/serial-to-mqtt/natspub"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "serial-to-mqtt"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	// Run application with proper error handling
	if err := run(); err != nil {
		slog.Error("Application failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run() error {
	cliCfg, shouldExit, err := initializeCLI()
	if shouldExit || err != nil {
		return err
	}

	cfg, err := initializeConfiguration(cliCfg)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(logger)

	slog.Info("Starting serial-to-mqtt (serial sensor to NATS bridge)",
		"version", Version,
		"build_time", BuildTime,
		"config_path", cliCfg.ConfigPath,
		"sensors", len(cfg.Sensors))

	if cliCfg.Validate {
		slog.Info("Configuration is valid")
		return nil
	}

	registry := metric.NewRegistry()

	broker, err := createBroker(cfg, logger, registry)
	if err != nil {
		return fmt.Errorf("create NATS client: %w", err)
	}

	service := bridge.New(bridge.Deps{
		Config:   cfg,
		Broker:   broker,
		Registry: registry,
		Logger:   logger,
	})
	if err := service.Initialize(); err != nil {
		return fmt.Errorf("initialize bridge: %w", err)
	}

	return runWithSignalHandling(cfg, service, registry, cliCfg.ShutdownTimeout)
}

// initializeCLI parses and validates flags, handling version/help exits.
func initializeCLI() (*CLIConfig, bool, error) {
	cliCfg := parseFlags()
	if err := validateFlags(cliCfg); err != nil {
		return nil, false, fmt.Errorf("invalid flags: %w", err)
	}

	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil, true, nil
	}

	if cliCfg.ShowHelp {
		printDetailedHelp()
		return nil, true, nil
	}

	return cliCfg, false, nil
}

// initializeConfiguration loads the config file and applies CLI
// overrides for logging before validation.
func initializeConfiguration(cliCfg *CLIConfig) (*config.Config, error) {
	loader := config.NewLoader()
	cfg, err := loader.LoadFile(cliCfg.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	// CLI flags win over the config file
	if cliCfg.LogLevel != "" {
		cfg.Logging.Level = cliCfg.LogLevel
	}
	if cliCfg.LogFormat != "" {
		cfg.Logging.Format = cliCfg.LogFormat
	}

	return cfg, nil
}

// createBroker builds the NATS client from configuration. Each process
// gets a unique client name so broker-side monitoring can tell
// instances apart.
func createBroker(cfg *config.Config, logger *slog.Logger, registry *metric.Registry) (*natspub.Client, error) {
	opts := []natspub.ClientOption{
		natspub.WithLogger(logger),
		natspub.WithMetrics(registry.CoreMetrics()),
		natspub.WithName(fmt.Sprintf("%s-%s", appName, uuid.NewString()[:8])),
		natspub.WithMaxReconnects(cfg.NATS.MaxReconnects),
		natspub.WithReconnectWait(cfg.NATS.ReconnectWait.Std()),
	}
	if cfg.NATS.Username != "" {
		opts = append(opts, natspub.WithCredentials(cfg.NATS.Username, cfg.NATS.Password))
	}
	if cfg.NATS.Token != "" {
		opts = append(opts, natspub.WithToken(cfg.NATS.Token))
	}

	return natspub.NewClient(cfg.NATS.URL, opts...)
}

// runWithSignalHandling starts the bridge and optional metrics server,
// then blocks until a shutdown signal arrives.
func runWithSignalHandling(
	cfg *config.Config,
	service *bridge.Service,
	registry *metric.Registry,
	shutdownTimeout time.Duration,
) error {
	signalCtx, signalCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer signalCancel()

	var metricsServer *metric.Server
	g, gctx := errgroup.WithContext(signalCtx)

	if cfg.Metrics.Enabled {
		metricsServer = metric.NewServer(cfg.Metrics.Port, cfg.Metrics.Path, registry)
		g.Go(func() error {
			slog.Info("Starting metrics server", "address", metricsServer.Address())
			if err := metricsServer.Start(); err != nil {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
	}

	if err := service.Start(signalCtx); err != nil {
		stopMetrics(metricsServer)
		_ = g.Wait()
		return fmt.Errorf("start bridge: %w", err)
	}
	slog.Info("Bridge started", "sensors", service.Sensors())

	// Wait for a signal or a metrics server failure
	<-gctx.Done()
	slog.Info("Received shutdown signal")

	if err := service.Stop(shutdownTimeout); err != nil {
		slog.Error("Error stopping bridge", "error", err)
		stopMetrics(metricsServer)
		_ = g.Wait()
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	stopMetrics(metricsServer)
	if err := g.Wait(); err != nil {
		return err
	}

	slog.Info("Shutdown complete")
	return nil
}

func stopMetrics(server *metric.Server) {
	if server == nil {
		return
	}
	if err := server.Stop(); err != nil {
		slog.Warn("Error stopping metrics server", "error", err)
	}
}
