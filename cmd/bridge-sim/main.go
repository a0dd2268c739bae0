// Command bridge-sim drives a bridge with a drifting producer and a fixed
// clock consumer and reports whether the pipeline stays healthy.
//
// Usage:
//
//	bridge-sim                                  # 10 s, 1 kHz tone 229 ppm fast
//	bridge-sim -drift-ppm -500 -jitter 0.002    # slow, noisy producer
//	bridge-sim -source music.wav -out out.wav   # replay a file, record the output
//	bridge-sim -config bridge.yaml -realtime    # wall-clock run on two goroutines
//
// The virtual-time run is deterministic and finishes as fast as the CPU
// allows; -realtime paces producer and consumer with tickers instead.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/tphakala/go-audio-bridge/internal/config"
	"github.com/tphakala/go-audio-bridge/internal/sim"
	"github.com/tphakala/go-audio-bridge/internal/simdops"
)

var errUnhealthy = errors.New("pipeline unhealthy")

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "bridge-sim: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "YAML configuration file")
	sourceFlag := flag.String("source", "", "Producer: \"tone\" or a WAV/MP3/Ogg file")
	seconds := flag.Float64("seconds", 0, "Producer run time in seconds")
	driftPPM := flag.Float64("drift-ppm", 0, "Producer clock offset in parts per million")
	jitter := flag.Float64("jitter", 0, "Relative peak error of each timing hint")
	outPath := flag.String("out", "", "Write the pulled audio to this WAV file")
	realtime := flag.Bool("realtime", false, "Run producer and consumer on wall-clock tickers")
	logLevel := flag.String("log-level", "", "Log level: debug, info, warn, error")
	strict := flag.Bool("strict", false, "Exit non-zero when the health check fails")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return err
		}
		cfg = *loaded
	}

	// Flags override the file only when given
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "source":
			cfg.Producer.Source = *sourceFlag
		case "seconds":
			cfg.Simulation.Seconds = *seconds
		case "drift-ppm":
			cfg.Producer.DriftPPM = *driftPPM
		case "jitter":
			cfg.Producer.Jitter = *jitter
		case "out":
			cfg.Simulation.Output = *outPath
		case "realtime":
			cfg.Simulation.Realtime = *realtime
		case "log-level":
			cfg.LogLevel = config.LogLevel(*logLevel)
		}
	})
	if err := config.Validate(&cfg); err != nil {
		return err
	}

	logger := newLogger(os.Stderr, cfg.LogLevel)
	logger.Debug("simd", "cpu", simdops.CPUInfo())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sc, err := buildScenario(&cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = sc.Source.Close() }()

	runner := sim.Run
	if cfg.Simulation.Realtime {
		runner = sim.RunRealtime
	}
	res, err := runner(ctx, sc)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	sum := summarize(&cfg, sc, res)
	sum.write(os.Stdout)

	if cfg.Simulation.Output != "" {
		if err := writeWAV(cfg.Simulation.Output, sc.Bridge.OutputRate, sc.Bridge.Channels, res.Audio); err != nil {
			return err
		}
		logger.Info("output written", "path", cfg.Simulation.Output, "frames", len(res.Audio)/sc.Bridge.Channels)
	}

	if *strict && !sum.Healthy {
		return errUnhealthy
	}
	return nil
}
