// Package sim drives a bridge with a producer and a consumer on separate
// clocks. Run steps both in virtual time and is fully deterministic;
// RunRealtime uses goroutines and wall-clock tickers.
package sim

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"golang.org/x/sync/errgroup"

	bridge "github.com/tphakala/go-audio-bridge"
	"github.com/tphakala/go-audio-bridge/internal/source"
)

// Scenario defaults
const (
	DefaultPeriod   = 10 * time.Millisecond
	DefaultDuration = 10 * time.Second
	DefaultPrefill  = 0.5
	DefaultWarmUp   = time.Second

	// Virtual periods between context checks
	ctxCheckInterval = 100
)

// ErrInvalidScenario indicates an unusable scenario.
var ErrInvalidScenario = errors.New("invalid scenario")

// Scenario describes one producer/consumer run.
type Scenario struct {
	// Bridge configures the coordinator under test.
	Bridge bridge.Config

	// Source produces the input frames. Sources implementing
	// source.Hinter supply their own timing hints.
	Source source.Source

	// ProducerRate is the true rate frames are pushed at, in Hz. Defaults
	// to the source's true clock when it reports one, else its nominal rate.
	ProducerRate float64

	// Batch is the number of frames the producer reads from Source at a
	// time. Zero takes the feeder default.
	Batch int

	// PullFrames is the consumer request size. Defaults to one Period at
	// the output rate.
	PullFrames int

	// Period is the consumer pull interval.
	Period time.Duration

	// Duration is the producer run time.
	Duration time.Duration

	// Prefill is the output fill the consumer waits for before its first
	// pull.
	Prefill float32

	// WarmUp is the time after the first pull excluded from the health
	// figures in Result.
	WarmUp time.Duration

	// Capture keeps every pulled frame in Result.Audio.
	Capture bool
}

// Result summarizes a run.
type Result struct {
	Pulls        int           // Pull calls made
	FramesPushed int           // frames handed to the bridge
	ConsumerFrom time.Duration // time of the first pull
	Started      bool          // the consumer reached its prefill

	// Health after warm-up
	UnderrunsAfterWarmUp uint64
	MinFill, MaxFill     float32

	// Final bridge state before Close
	Stats    bridge.Stats
	Buffered int

	Audio []float32
}

// trueRater is implemented by sources with a drifting clock, such as
// source.Tone.
type trueRater interface {
	TrueRate() float64
}

func (s Scenario) withDefaults() Scenario {
	if s.Period == 0 {
		s.Period = DefaultPeriod
	}
	if s.Duration == 0 {
		s.Duration = DefaultDuration
	}
	if s.Prefill == 0 {
		s.Prefill = DefaultPrefill
	}
	if s.WarmUp == 0 {
		s.WarmUp = DefaultWarmUp
	}
	if s.ProducerRate == 0 && s.Source != nil {
		s.ProducerRate = float64(s.Source.SampleRate())
		if tr, ok := s.Source.(trueRater); ok {
			s.ProducerRate = tr.TrueRate()
		}
	}
	if s.PullFrames == 0 {
		s.PullFrames = int(float64(s.Bridge.OutputRate) * s.Period.Seconds())
	}
	return s
}

func (s Scenario) validate() error {
	switch {
	case s.Source == nil:
		return fmt.Errorf("%w: no source", ErrInvalidScenario)
	case s.ProducerRate <= 0:
		return fmt.Errorf("%w: producer rate must be positive, got %v", ErrInvalidScenario, s.ProducerRate)
	case s.Batch < 0:
		return fmt.Errorf("%w: batch must not be negative, got %d", ErrInvalidScenario, s.Batch)
	case s.PullFrames < 1:
		return fmt.Errorf("%w: pull size must be positive, got %d", ErrInvalidScenario, s.PullFrames)
	case s.Period <= 0 || s.Duration < s.Period:
		return fmt.Errorf("%w: need 0 < period <= duration, got %v and %v", ErrInvalidScenario, s.Period, s.Duration)
	case s.Prefill < 0 || s.Prefill >= 1:
		return fmt.Errorf("%w: prefill must be in [0, 1), got %v", ErrInvalidScenario, s.Prefill)
	}
	return nil
}

// harness holds the state shared by both runners.
type harness struct {
	sc     Scenario
	bridge *bridge.Coordinator
	feeder *source.Feeder
	out    []float32
	res    Result

	warm          bool
	baseUnderruns uint64
}

func newHarness(sc Scenario) (*harness, error) {
	sc = sc.withDefaults()
	if err := sc.validate(); err != nil {
		return nil, err
	}

	c, err := bridge.New(sc.Bridge)
	if err != nil {
		return nil, err
	}
	cfg := c.Config()

	feeder, err := source.NewFeeder(sc.Source, c, source.FeederConfig{
		Channels:    cfg.Channels,
		BatchFrames: sc.Batch,
		TimeBase:    cfg.TimeBase,
		Rate:        sc.ProducerRate,
	})
	if err != nil {
		_ = c.Close()
		return nil, err
	}

	return &harness{
		sc:     sc,
		bridge: c,
		feeder: feeder,
		out:    make([]float32, sc.PullFrames*cfg.Channels),
		res:    Result{MinFill: 1},
	}, nil
}

// produce pushes frames until the producer clock reaches elapsed. It
// reports false once the source is exhausted.
func (h *harness) produce(elapsed time.Duration) (bool, error) {
	target := int(h.sc.ProducerRate * elapsed.Seconds())
	pushed := int(h.feeder.Pushed())
	if target <= pushed {
		return true, nil
	}
	_, err := h.feeder.Feed(target - pushed)
	if errors.Is(err, io.EOF) {
		return false, nil
	}
	return err == nil, err
}

// consume performs one consumer tick at elapsed.
func (h *harness) consume(elapsed time.Duration) {
	if !h.res.Started {
		if h.bridge.FillPercent() < h.sc.Prefill {
			return
		}
		h.res.Started = true
		h.res.ConsumerFrom = elapsed
	}

	if !h.warm && elapsed-h.res.ConsumerFrom >= h.sc.WarmUp {
		h.warm = true
		h.baseUnderruns = h.bridge.Stats().Underruns
	}
	if h.warm {
		h.trackFill()
	}

	h.bridge.Pull(h.out, h.sc.PullFrames)
	h.res.Pulls++
	if h.warm {
		h.trackFill()
	}
	if h.sc.Capture {
		h.res.Audio = append(h.res.Audio, h.out...)
	}
}

func (h *harness) trackFill() {
	fill := h.bridge.FillPercent()
	h.res.MinFill = min(h.res.MinFill, fill)
	h.res.MaxFill = max(h.res.MaxFill, fill)
}

func (h *harness) finish() Result {
	h.res.FramesPushed = int(h.feeder.Pushed())
	h.res.Stats = h.bridge.Stats()
	h.res.Buffered = h.bridge.BufferedFrames()
	if h.warm {
		h.res.UnderrunsAfterWarmUp = h.res.Stats.Underruns - h.baseUnderruns
	} else {
		h.res.MinFill = 0
	}
	_ = h.bridge.Close()
	return h.res
}

// Run executes sc in virtual time: each period the producer catches up to
// its true clock and then the consumer pulls once.
func Run(ctx context.Context, sc Scenario) (Result, error) {
	h, err := newHarness(sc)
	if err != nil {
		return Result{}, err
	}

	periods := int(h.sc.Duration / h.sc.Period)
	producing := true
	for p := 1; p <= periods; p++ {
		if p%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return h.finish(), err
			}
		}

		elapsed := time.Duration(p) * h.sc.Period
		if producing {
			if producing, err = h.produce(elapsed); err != nil {
				return h.finish(), fmt.Errorf("producer: %w", err)
			}
		}
		h.consume(elapsed)
	}
	return h.finish(), nil
}

// RunRealtime executes sc on two goroutines paced by wall-clock tickers.
// The producer catches up to its clock every half Period and the consumer
// pulls every Period, so the bridge sees real concurrency.
func RunRealtime(ctx context.Context, sc Scenario) (Result, error) {
	h, err := newHarness(sc)
	if err != nil {
		return Result{}, err
	}

	runCtx, cancel := context.WithTimeout(ctx, h.sc.Duration)
	defer cancel()

	start := time.Now()
	eg, egCtx := errgroup.WithContext(runCtx)

	eg.Go(func() error {
		if err := h.feeder.Run(egCtx, h.sc.ProducerRate, h.sc.Period/2); err != nil {
			return fmt.Errorf("producer: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		ticker := time.NewTicker(h.sc.Period)
		defer ticker.Stop()
		for {
			select {
			case <-egCtx.Done():
				return nil
			case <-ticker.C:
				h.consume(time.Since(start))
			}
		}
	})

	err = eg.Wait()
	res := h.finish()
	if err != nil {
		return res, err
	}
	return res, ctx.Err()
}
