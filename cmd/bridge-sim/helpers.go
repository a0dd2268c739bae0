package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/tphakala/go-audio-bridge/internal/analysis"
	"github.com/tphakala/go-audio-bridge/internal/config"
	"github.com/tphakala/go-audio-bridge/internal/sim"
	"github.com/tphakala/go-audio-bridge/internal/sink"
	"github.com/tphakala/go-audio-bridge/internal/source"
)

const (
	// Health limits for the output buffer after warm-up
	minHealthyFill = 0.2
	maxHealthyFill = 0.8

	ppmScale = 1e6
)

func newLogger(w io.Writer, level config.LogLevel) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level.Level()}))
}

// buildScenario opens the producer and maps cfg onto a scenario. The
// producer's nominal rate centres the hint sanity band unless the pipeline
// section sets one.
func buildScenario(cfg *config.Config, logger *slog.Logger) (sim.Scenario, error) {
	bc := cfg.ToBridge(logger)
	sc := sim.Scenario{
		Batch:      cfg.Producer.Batch,
		PullFrames: cfg.Consumer.Frames,
		Period:     cfg.Period(),
		Duration:   cfg.Duration(),
		Prefill:    cfg.Consumer.Prefill,
		Capture:    true,
	}

	if cfg.Producer.Source == config.SourceTone {
		tone, err := source.NewTone(cfg.Tone())
		if err != nil {
			return sim.Scenario{}, err
		}
		sc.Source = tone
		sc.ProducerRate = tone.TrueRate()
	} else {
		src, err := source.Open(cfg.Producer.Source)
		if err != nil {
			return sim.Scenario{}, err
		}
		sc.Source = src
		sc.ProducerRate = float64(src.SampleRate()) * (1 + cfg.Producer.DriftPPM/ppmScale)
		sc.Capture = cfg.Simulation.Output != ""
	}

	if bc.NominalInputRate == 0 {
		bc.NominalInputRate = float64(sc.Source.SampleRate())
	}
	sc.Bridge = bc
	return sc, nil
}

// summary is the printable outcome of a run.
type summary struct {
	Result   sim.Result
	Expected float64 // tone frequency, 0 for file sources
	Measured float64
	Healthy  bool
	Problems []string
}

func summarize(cfg *config.Config, sc sim.Scenario, res sim.Result) summary {
	s := summary{Result: res, Healthy: true}

	fail := func(format string, args ...any) {
		s.Healthy = false
		s.Problems = append(s.Problems, fmt.Sprintf(format, args...))
	}
	switch {
	case !res.Started:
		fail("consumer never reached its prefill")
	case res.UnderrunsAfterWarmUp > 0:
		fail("%d underruns after warm-up", res.UnderrunsAfterWarmUp)
	}
	if res.Started && (res.MinFill < minHealthyFill || res.MaxFill > maxHealthyFill) {
		fail("output fill %.1f%%..%.1f%% outside %.0f%%..%.0f%%",
			res.MinFill*100, res.MaxFill*100, minHealthyFill*100, maxHealthyFill*100)
	}

	// Pitch check on the output clock, skipping the first second
	if cfg.Producer.Source == config.SourceTone && len(res.Audio) > 0 {
		s.Expected = cfg.Producer.ToneHz
		ch := sc.Bridge.Channels
		if ch == 0 {
			ch = 1
		}
		left := analysis.Channel(res.Audio, ch, 0)
		if skip := sc.Bridge.OutputRate; len(left) > 2*skip {
			left = left[skip:]
		}
		s.Measured = analysis.DominantFrequency(left, float64(sc.Bridge.OutputRate))
	}
	return s
}

func (s summary) write(w io.Writer) {
	r := s.Result
	st := r.Stats
	fmt.Fprintf(w, "Frames:    pushed %d, resampled %d, pulled %d, buffered %d\n",
		r.FramesPushed, st.FramesResampled, st.FramesPulled, r.Buffered)
	fmt.Fprintf(w, "Rate:      estimated %.3f Hz, %d hints rejected\n", st.EstimatedRate, st.RejectedHints)
	fmt.Fprintf(w, "Consumer:  started at %v, %d pulls, %d underruns (%d after warm-up)\n",
		r.ConsumerFrom, r.Pulls, st.Underruns, r.UnderrunsAfterWarmUp)
	fmt.Fprintf(w, "Fill:      %.1f%% .. %.1f%% after warm-up\n", r.MinFill*100, r.MaxFill*100)
	fmt.Fprintf(w, "Overruns:  input %d, output %d (%d frames dropped)\n",
		st.InputOverruns, st.OutputOverruns, st.DroppedFrames)
	if s.Expected > 0 {
		fmt.Fprintf(w, "Pitch:     %.3f Hz measured, %.3f Hz expected (%+.1f ppm)\n",
			s.Measured, s.Expected, (s.Measured/s.Expected-1)*ppmScale)
	}
	if s.Healthy {
		fmt.Fprintln(w, "Health:    OK")
		return
	}
	for _, p := range s.Problems {
		fmt.Fprintf(w, "Health:    FAIL %s\n", p)
	}
}

// writeWAV records interleaved float32 audio as 16-bit PCM.
func writeWAV(path string, rate, channels int, audio []float32) (err error) {
	rec, err := sink.CreateWAV(path, rate, channels)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := rec.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return rec.Write(audio)
}
