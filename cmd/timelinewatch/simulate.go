package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/bft-labs/timelinewatch/internal/cliconfig"
	"github.com/bft-labs/timelinewatch/pkg/log"
	"github.com/bft-labs/timelinewatch/pkg/metrics"
	"github.com/bft-labs/timelinewatch/pkg/simhost"
	"github.com/bft-labs/timelinewatch/pkg/timeline"
	"github.com/bft-labs/timelinewatch/plugins/scriptwatcher"
)

func runSimulate(ctx context.Context, cfg cliconfig.Config, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	zl, err := cliconfig.NewLogger(os.Stderr, cfg.LogFormat, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	logger := log.NewZerologLogger(zl)
	logger.Debug("configuration", log.Any("config", cfg))

	script, err := simhost.LoadScript(cfg.Script)
	if err != nil {
		return err
	}

	if !cfg.Watch {
		return runOnce(ctx, cfg, script, logger, out)
	}

	reloads := make(chan *simhost.Script, 1)
	watcher := scriptwatcher.New(cfg.Script, func(_ context.Context, s *simhost.Script) {
		// Only the newest script matters.
		select {
		case <-reloads:
		default:
		}
		reloads <- s
	}, watchConfig(cfg, logger))
	if err := watcher.Start(ctx); err != nil {
		return err
	}
	defer watcher.Shutdown(context.Background())

	for {
		runCtx, cancelRun := context.WithCancel(ctx)
		done := make(chan error, 1)
		go func(s *simhost.Script) {
			done <- runOnce(runCtx, cfg, s, logger, out)
		}(script)

		select {
		case <-ctx.Done():
			cancelRun()
			<-done
			return nil
		case script = <-reloads:
			cancelRun()
			<-done
			logger.Info("restarting simulation", log.String("script", cfg.Script))
			continue
		case err := <-done:
			cancelRun()
			if err != nil {
				logger.Error("simulation failed", log.Err(err))
			}
		}

		logger.Info("waiting for script changes", log.String("script", cfg.Script))
		select {
		case <-ctx.Done():
			return nil
		case script = <-reloads:
		}
	}
}

func watchConfig(cfg cliconfig.Config, logger log.Logger) scriptwatcher.Config {
	wc := scriptwatcher.DefaultConfig()
	if cfg.Debounce > 0 {
		wc.DebounceDelay = cfg.Debounce
	}
	wc.Logger = logger
	return wc
}

// runOnce plays script through a fresh observer. Cancellation of ctx ends
// the run early and is not an error.
func runOnce(ctx context.Context, cfg cliconfig.Config, script *simhost.Script, logger log.Logger, out io.Writer) error {
	reg := prometheus.NewRegistry()
	collector, err := metrics.New(reg)
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	runner := simhost.NewRunner(script, simhost.RunnerConfig{
		Frame:    cfg.FrameInterval,
		Realtime: cfg.Realtime,
		Logger:   logger,
		Recorder: collector,
	})
	sum, err := runner.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	fields := []log.Field{log.Int("frames", sum.Frames)}
	for _, k := range timeline.Kinds() {
		fields = append(fields, log.Int(k.String(), sum.Count(k)))
	}
	logger.Info("simulation summary", fields...)

	if cfg.Metrics {
		return writeMetrics(reg, out)
	}
	return nil
}

func writeMetrics(g prometheus.Gatherer, out io.Writer) error {
	mfs, err := g.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range mfs {
		if _, err := expfmt.MetricFamilyToText(out, mf); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	return nil
}
