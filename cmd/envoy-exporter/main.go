package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/obsidianstack/envoy-exporter/internal/config"
	"github.com/obsidianstack/envoy-exporter/internal/exporter"
	"github.com/obsidianstack/envoy-exporter/internal/logging"
	"github.com/obsidianstack/envoy-exporter/internal/metrics"
	"github.com/obsidianstack/envoy-exporter/internal/version"
)

func main() {
	configPath := pflag.StringP("config", "c", "", "path to config file (.yaml, .yml or .toml)")
	showVersion := pflag.Bool("version", false, "print version information and exit")
	pflag.Parse()

	info := version.Get()
	if *showVersion {
		fmt.Print(info.String())
		return
	}

	// The config path may also be given positionally: envoy-exporter envoy.toml
	path := *configPath
	if path == "" && pflag.NArg() > 0 {
		path = pflag.Arg(0)
	}
	if path == "" {
		fmt.Fprintf(os.Stderr, "Usage: envoy-exporter [--config] <config_file>\n\n%s", info)
		os.Exit(2)
	}

	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Could not read %q: %v\n", path, err)
		os.Exit(1)
	}

	logger, level, err := logging.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Could not build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck

	logger.Info("envoy-exporter starting",
		zap.String("version", info.Version),
		zap.String("revision", info.Revision),
		zap.String("config", path),
		zap.Int("systems", len(cfg.Systems)),
		zap.Duration("timeout", time.Duration(cfg.Timeout)),
		zap.String("stale_inverters", cfg.StaleInverters),
	)
	if len(cfg.Systems) == 0 {
		logger.Warn("no systems configured, /metrics will only report build info")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	reg := metrics.NewRegistry()
	handler := exporter.New(reg, exporter.NewTargets(cfg), exporter.Options{
		ClearStaleInverters: cfg.StaleInverters == config.StaleInvertersClear,
		Build:               info,
	}, logger)

	// Only the log level is applied on reload; devices and the listener are
	// fixed for the lifetime of the process.
	go func() {
		err := config.Watch(ctx, path, logger, func(updated *config.Config) {
			if lvl, err := logging.ParseLevel(updated.LogLevel); err == nil && lvl != level.Level() {
				level.SetLevel(lvl)
				logger.Info("log level changed", zap.String("level", lvl.String()))
			}
			if !slices.Equal(updated.Systems, cfg.Systems) ||
				updated.ListenPort != cfg.ListenPort ||
				updated.Timeout != cfg.Timeout ||
				updated.StaleInverters != cfg.StaleInverters {
				logger.Warn("config changed in a way that requires a restart to take effect")
			}
		})
		if err != nil {
			logger.Error("config watcher stopped", zap.Error(err))
		}
	}()

	addr := fmt.Sprintf("0.0.0.0:%d", cfg.ListenPort)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		logger.Fatal("failed to listen", zap.String("addr", addr), zap.Error(err))
	}

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("server started", zap.String("addr", addr))
		if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server stopped", zap.Error(err))
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("envoy-exporter shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown", zap.Error(err))
	}
}
