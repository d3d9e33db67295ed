// Package main provides a microphone level meter: a web page whose button
// starts audio capture on the host and whose bar follows the input volume.
//
// Usage:
//
//	micmeter [-config path/to/config.json]
//
// If -config is not specified, micmeter looks for config.json in the same
// directory as the binary. Files ending in .yaml or .yml are read as YAML.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/oszuidwest/zwfm-micmeter/internal/audio"
	"github.com/oszuidwest/zwfm-micmeter/internal/capture"
	"github.com/oszuidwest/zwfm-micmeter/internal/config"
	"github.com/oszuidwest/zwfm-micmeter/internal/eventlog"
	"github.com/oszuidwest/zwfm-micmeter/internal/observe"
	"github.com/oszuidwest/zwfm-micmeter/internal/ui"
	"github.com/oszuidwest/zwfm-micmeter/internal/util"
)

// shutdownTimeout bounds HTTP server shutdown.
const shutdownTimeout = 30 * time.Second

func main() {
	configPath := flag.String("config", "", "Path to config file (default: config.json next to binary)")
	showVersion := flag.Bool("version", false, "Print version information and exit")
	flag.Parse()

	if *showVersion {
		slog.Info("version info", "version", Version, "commit", Commit, "build_time", BuildTime)
		return
	}

	if *configPath == "" {
		execPath, err := os.Executable()
		if err != nil {
			slog.Error("failed to get executable path", "error", err)
			os.Exit(1)
		}
		*configPath = filepath.Join(filepath.Dir(execPath), "config.json")
	}

	slog.Info("using config file", "path", *configPath)

	cfg := config.New(*configPath)
	if err := cfg.Load(); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	snap := cfg.Snapshot()
	slog.SetDefault(newLogger(snap.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), util.ShutdownSignals()...)
	defer stop()

	// Metrics
	metrics := observe.Discard()
	var (
		provider       *observe.Provider
		metricsHandler http.Handler
	)
	if snap.MetricsEnabled {
		var err error
		provider, err = observe.InitProvider(ctx, observe.ProviderConfig{ServiceVersion: Version})
		if err != nil {
			slog.Error("failed to initialize metrics", "error", err)
			os.Exit(1)
		}
		if metrics, err = observe.NewMetrics(provider.MeterProvider()); err != nil {
			slog.Error("failed to create metrics", "error", err)
			os.Exit(1)
		}
		metricsHandler = provider.Handler()
	}

	// Event log (optional)
	var events *eventlog.Logger
	if snap.HasEventLog() {
		var err error
		events, err = eventlog.NewLogger(snap.EventLogPath)
		if err != nil {
			slog.Warn("event log disabled", "path", snap.EventLogPath, "error", err)
		} else {
			slog.Info("writing capture events", "path", events.Path())
		}
	}

	platform := audio.NewPlatform(snap.FFmpegPath, snap.AudioInput)
	if platform.Supported() {
		slog.Info("audio capture available", "command", platform.Command())
	} else {
		slog.Warn("no audio capture tool found - capture requests will report unsupported",
			"configured_ffmpeg_path", snap.FFmpegPath)
	}

	page := ui.NewPage()
	ctrl := capture.New(capture.Config{
		Devices:  platform,
		Page:     page,
		Messages: ui.NewMessages(snap.Locale),
		Refresh: func() capture.RefreshSource {
			return ui.NewRefreshTicker(snap.FrameRate)
		},
		Metrics: metrics,
		Events:  events,
		Input:   snap.AudioInput,
	})
	ctrl.Bind(ctx, page)

	srv := NewServer(cfg, page, ctrl, platform, metricsHandler)
	httpServer := srv.HTTPServer()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("starting web server", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return util.WrapError("serve HTTP", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")

		// Page teardown: release the microphone first.
		ctrl.Teardown()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		var errs []error
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, util.WrapError("shut down HTTP server", err))
		}
		if err := provider.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, util.WrapError("shut down metrics", err))
		}
		if events != nil {
			if err := events.Close(); err != nil {
				errs = append(errs, util.WrapError("close event log", err))
			}
		}
		return errors.Join(errs...)
	})

	if err := g.Wait(); err != nil {
		slog.Error("micmeter stopped with error", "error", err)
		os.Exit(1)
	}

	slog.Info("shutdown complete")
}

// newLogger returns a text logger on stderr at the named level.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
