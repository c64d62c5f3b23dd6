package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codeberg.org/mutker/heatboard/internal/config"
	"codeberg.org/mutker/heatboard/internal/errors"
	"codeberg.org/mutker/heatboard/internal/gpu"
	"codeberg.org/mutker/heatboard/internal/heatmap"
	"codeberg.org/mutker/heatboard/internal/instrument"
	"codeberg.org/mutker/heatboard/internal/logger"
	"codeberg.org/mutker/heatboard/internal/pid"
	"codeberg.org/mutker/heatboard/internal/source"
)

const sourceStopTimeout = 5 * time.Second

var (
	cfg     *config.Config
	board   *heatmap.SyncBoard
	metrics *instrument.Metrics
)

func setup() {
	var err error
	cfg, err = config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	level, _ := logger.ParseLevel(cfg.LogLevel)
	logger.Init(level, logger.IsService())
	logger.Debug().Msg("Config loaded")

	opts := []heatmap.Option{
		heatmap.WithHistory(cfg.History),
		heatmap.WithMode(cfg.HeatmapMode()),
		heatmap.WithLogScale(cfg.LogScale),
		heatmap.WithStrict(cfg.Strict),
		heatmap.WithLogger(logger.Default().With("heatmap")),
	}
	if cfg.MetricsAddr != "" {
		metrics = instrument.New()
		opts = append(opts, heatmap.WithObserver(metrics))
	}
	board = heatmap.NewSyncBoard(opts...)
}

func main() {
	setup()

	pidPath := pid.DefaultPath()
	if err := pid.Write(pidPath); err != nil {
		logger.Fatal().Err(err).Msg("failed to write PID file")
	}
	defer func() {
		if err := pid.Remove(pidPath); err != nil {
			logger.Error().Err(err).Msg("failed to remove PID file")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(cancel)

	src, closeSource, err := openSource()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open source")
	}
	defer closeSource()

	if metrics != nil {
		go func() {
			if err := metrics.Serve(ctx, cfg.MetricsAddr, logger.Default().With("metrics")); err != nil {
				logger.Error().Err(err).Msg("metrics server stopped")
			}
		}()
	}

	var sink source.Sink = board
	if cfg.RecordPath != "" {
		rec, err := source.NewRecorder(board, source.RecorderConfig{DBPath: cfg.RecordPath}, logger.Default())
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to open recorder")
		}
		defer closer(rec, "recorder")()
		sink = rec
	}

	sourceDone := make(chan error, 1)
	sourceStopped := make(chan struct{})
	go func() {
		defer close(sourceStopped)
		sourceDone <- src.Run(ctx, sink)
	}()

	emit := newEmitter(config.OutputKind(cfg.Output), os.Stdout, logger.Default().With("view"))
	if err := loop(ctx, emit, sourceDone); err != nil {
		logger.Error().Err(err).Msg("error in main loop")
	}

	cancel()
	select {
	case <-sourceStopped:
	case <-time.After(sourceStopTimeout):
		logger.Warn().Msg("Source did not stop in time")
	}
	cleanup(emit)
}

func loop(ctx context.Context, emit *emitter, sourceDone <-chan error) error {
	errFactory := errors.New()

	interval := time.Duration(cfg.Interval) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Info().
		Str("source", cfg.Source).
		Str("mode", cfg.Mode).
		Int("history", cfg.History).
		Bool("log_scale", cfg.LogScale).
		Msg("Heat board running")

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-sourceDone:
			if ctx.Err() != nil {
				return nil
			}
			if err != nil {
				return errFactory.Wrap(errors.ErrMainLoop, err)
			}
			logger.Info().Msg("Source exhausted")
			return nil
		case <-ticker.C:
			if err := tick(emit); err != nil {
				return err
			}
		}
	}
}

// tick updates the board and emits the view. Scale violations in strict
// mode are reported but do not stop the loop.
func tick(emit *emitter) error {
	errFactory := errors.New()

	view, err := board.UpdateView()
	if err != nil {
		if errors.HasCode(err, heatmap.ErrUnsupportedMode) {
			return errFactory.Wrap(errors.ErrUpdateBoard, err)
		}
		logger.Warn().Err(err).Int("violations", len(heatmap.Violations(err))).Msg("Board update reported violations")
	}

	if err := emit.Emit(view); err != nil {
		return errFactory.Wrap(errors.ErrEmitView, err)
	}

	return nil
}

func openSource() (source.Source, func(), error) {
	log := logger.Default().With("source")
	interval := time.Duration(cfg.Interval) * time.Second

	switch config.SourceKind(cfg.Source) {
	case config.SourceStdin:
		return source.NewStreamSource(os.Stdin, log), func() {}, nil
	case config.SourceFile:
		f, err := os.Open(cfg.SourcePath)
		if err != nil {
			return nil, nil, errors.New().Wrap(source.ErrOpenSource, err)
		}
		return source.NewStreamSource(f, log), closer(f, "file"), nil
	case config.SourceSQLite:
		s, err := source.NewSQLiteSource(source.SQLiteConfig{
			DBPath:       cfg.SourcePath,
			Follow:       true,
			PollInterval: interval,
		}, log)
		if err != nil {
			return nil, nil, err
		}
		return s, closer(s, "sqlite"), nil
	case config.SourceNVML:
		s, err := gpu.NewSampler(gpu.SamplerConfig{Interval: interval}, logger.Default())
		if err != nil {
			return nil, nil, err
		}
		return s, closer(s, "nvml"), nil
	default:
		return nil, nil, errors.New().WithMessage(errors.ErrInvalidConfig, "unknown source "+cfg.Source)
	}
}

func closer(c io.Closer, name string) func() {
	return func() {
		if err := c.Close(); err != nil {
			logger.Error().Err(err).Str("source", name).Msg("failed to close source")
		}
	}
}

func handleSignals(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info().Msg("Received termination signal.")
	cancel()
}

func cleanup(emit *emitter) {
	if err := tick(emit); err != nil {
		logger.Error().Err(err).Msg("failed final update")
	}
	logger.Info().Msg("Exiting...")
}
