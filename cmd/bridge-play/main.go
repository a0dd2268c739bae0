// Command bridge-play plays a producer through a bridge on the default audio
// device. The producer runs on its own wall-clock pacing, deliberately off
// the device clock by -drift-ppm, and the bridge absorbs the difference.
//
// Usage:
//
//	bridge-play                                   # 1 kHz tone with live monitor
//	bridge-play -source music.ogg -drift-ppm 300  # file played 300 ppm fast
//	bridge-play -no-tui -metrics :9464            # headless, Prometheus on :9464
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"github.com/tphakala/go-audio-bridge/internal/config"
	"github.com/tphakala/go-audio-bridge/internal/monitor"
	"github.com/tphakala/go-audio-bridge/internal/sink/otosink"
)

const shutdownTimeout = 5 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "bridge-play: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "YAML configuration file")
	sourceFlag := flag.String("source", "", "Producer: \"tone\" or a WAV/MP3/Ogg file")
	driftPPM := flag.Float64("drift-ppm", 0, "Producer clock offset in parts per million")
	metricsAddr := flag.String("metrics", "", "Serve Prometheus metrics on this address")
	noTUI := flag.Bool("no-tui", false, "Log to stderr instead of showing the monitor")
	logFile := flag.String("log-file", "", "Write logs here while the monitor runs")
	logLevel := flag.String("log-level", "", "Log level: debug, info, warn, error")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return err
		}
		cfg = *loaded
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "source":
			cfg.Producer.Source = *sourceFlag
		case "drift-ppm":
			cfg.Producer.DriftPPM = *driftPPM
		case "metrics":
			cfg.MetricsAddr = *metricsAddr
		case "log-level":
			cfg.LogLevel = config.LogLevel(*logLevel)
		}
	})
	if err := config.Validate(&cfg); err != nil {
		return err
	}

	// The monitor owns the terminal, so logs go to a file or nowhere
	var logOut io.Writer = os.Stderr
	if !*noTUI {
		logOut = io.Discard
		if *logFile != "" {
			f, err := os.Create(*logFile)
			if err != nil {
				return fmt.Errorf("failed to create log file: %w", err)
			}
			defer func() { _ = f.Close() }()
			logOut = f
		}
	}
	logger := slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: cfg.LogLevel.Level()}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := openProducer(&cfg, logger)
	if err != nil {
		return err
	}
	defer p.close()

	bc := p.bridge.Config()
	player, err := otosink.Open(p.bridge, otosink.Config{
		SampleRate: bc.OutputRate,
		Channels:   bc.Channels,
		BufferSize: cfg.Period(),
		Logger:     logger,
	})
	if err != nil {
		return err
	}
	defer func() { _ = player.Close() }()

	eg, egCtx := errgroup.WithContext(ctx)

	if cfg.MetricsAddr != "" {
		srv, err := newMetricsServer(egCtx, cfg.MetricsAddr, p.bridge, bc.Name)
		if err != nil {
			return err
		}
		eg.Go(func() error { return srv.serve(egCtx, logger) })
	}

	eg.Go(func() error {
		if err := p.feeder.Run(egCtx, p.rate, cfg.Period()/2); err != nil {
			return fmt.Errorf("producer: %w", err)
		}
		logger.Info("producer finished", "frames", p.feeder.Pushed())
		return nil
	})

	eg.Go(func() error { return watchPlayer(egCtx, player, cfg.Period()) })

	if *noTUI {
		logger.Info("playing, press Ctrl+C to stop", "source", cfg.Producer.Source, "rate", p.rate)
		<-egCtx.Done()
		stop()
	} else {
		prog := monitor.NewProgram(egCtx, monitor.NewModel(p.bridge, monitor.Options{
			Title:       "bridge-play: " + cfg.Producer.Source,
			NominalRate: bc.NominalInputRate,
		}))
		if _, err := prog.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			stop()
			_ = eg.Wait()
			return fmt.Errorf("monitor: %w", err)
		}
		stop()
	}

	if err := eg.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("stopped", "stats", p.bridge.Stats().String())
	return nil
}

// watchPlayer surfaces device errors until ctx ends.
func watchPlayer(ctx context.Context, player *otosink.Player, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := player.Err(); err != nil {
				return fmt.Errorf("audio output: %w", err)
			}
		}
	}
}
