package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"google.golang.org/api/option"

	"github.com/rustedturnip/flipclock"
	"github.com/rustedturnip/flipclock/dom"
	"github.com/rustedturnip/flipclock/internal/config"
	"github.com/rustedturnip/flipclock/internal/server"
	"github.com/rustedturnip/flipclock/metrics"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("flipclock exited", "error", err)
		os.Exit(1)
	}
}

func run() error {

	vc, err := config.NewViper(os.Getenv("FLIPCLOCK_CONFIG"))
	if err != nil {
		return err
	}

	cfg, err := vc.Load()
	if err != nil {
		return err
	}

	level := new(slog.LevelVar)
	lvl, _ := cfg.Log.SlogLevel()
	level.Set(lvl)

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	// only the log level can change without a restart
	vc.Watch(func(cfg *config.Config) {
		lvl, _ := cfg.Log.SlogLevel()
		level.Set(lvl)
	})

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clk := clock.New()

	document := dom.NewClockDocument()
	stylesheet := dom.NewStylesheet(document, clk, flipclock.ClassFlip, cfg.Transition.Duration)
	defer stylesheet.Close()

	options := []flipclock.Option{
		flipclock.OptionWithClock(clk),
		flipclock.OptionWithInterval(cfg.Clock.Interval),
		flipclock.OptionWithLogger(logger),
	}

	if cfg.Metrics.Enabled {

		exporter, err := newExporter(ctx, cfg.Metrics, logger)
		if err != nil {
			return err
		}
		defer exporter.Stop()

		flips, err := metrics.NewFlipCounter(exporter, cfg.Metrics.AggregationInterval, nil)
		if err != nil {
			return err
		}

		options = append(options, flipclock.OptionWithFlipObserver(flips))
	}

	ticker, err := flipclock.New(ctx, document, options...)
	if err != nil {
		return err
	}

	ticker.Start()
	defer ticker.Stop()

	srv, err := server.New(server.Config{Addr: cfg.HTTP.Addr}, document, logger)
	if err != nil {
		return err
	}

	errs := make(chan error, 1)
	go func() {
		errs <- srv.Start()
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

func newExporter(ctx context.Context, cfg config.Metrics, logger *slog.Logger) (*metrics.Exporter, error) {

	options := []metrics.Option{
		metrics.OptionWithResourceType(metrics.DetectResource(ctx, cfg.ProjectID)),
		metrics.OptionWithRefreshInterval(cfg.RefreshInterval),
		metrics.OptionWithErrorHandler(func(_ *metrics.Exporter, err error) {
			logger.Error("failed to report metrics", "error", err)
		}),
	}

	if cfg.CredentialsFile != "" {
		options = append(options, metrics.OptionWithClientOptions(option.WithCredentialsFile(cfg.CredentialsFile)))
	}

	return metrics.New(ctx, options...)
}
