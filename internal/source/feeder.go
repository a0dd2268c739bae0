package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

// Pusher accepts frames for the bridge. *bridge.Coordinator satisfies it.
type Pusher interface {
	PushFrame(frame []int16, unitsPerSample float64)
}

// FeederConfig configures a Feeder.
type FeederConfig struct {
	// Channels is the channel count the Pusher expects. Defaults to the
	// source channel count. Mono sources are duplicated across channels and
	// wider sources are averaged down to mono.
	Channels int

	// BatchFrames is the number of frames read from the source at a time.
	BatchFrames int

	// TimeBase is the hint unit count per second.
	TimeBase float64

	// Rate is the clock the hints describe, in Hz. Defaults to the source's
	// nominal rate. Ignored for sources implementing Hinter.
	Rate float64
}

// Feeder reads frames from a Source and pushes them one by one with a
// timing hint, the way a producer thread would.
type Feeder struct {
	src      Source
	dst      Pusher
	hinter   Hinter
	hint     float64
	srcCh    int
	dstCh    int
	batch    []int16
	frame    []int16
	pending  int // frames in batch not yet pushed
	offset   int
	finished bool
	pushed   uint64
}

// NewFeeder creates a feeder from src to dst.
func NewFeeder(src Source, dst Pusher, cfg FeederConfig) (*Feeder, error) {
	if cfg.Channels == 0 {
		cfg.Channels = src.Channels()
	}
	if cfg.BatchFrames == 0 {
		cfg.BatchFrames = defaultFeedBatch
	}
	if cfg.TimeBase == 0 {
		cfg.TimeBase = defaultTimeBase
	}
	if cfg.Rate == 0 {
		cfg.Rate = float64(src.SampleRate())
	}
	if cfg.Channels < 1 || cfg.BatchFrames < 1 || cfg.TimeBase <= 0 || cfg.Rate <= 0 || src.Channels() < 1 {
		return nil, fmt.Errorf("feeder: invalid configuration %+v for %d-channel source", cfg, src.Channels())
	}

	f := &Feeder{
		src:   src,
		dst:   dst,
		hint:  cfg.TimeBase / cfg.Rate,
		srcCh: src.Channels(),
		dstCh: cfg.Channels,
		batch: make([]int16, cfg.BatchFrames*src.Channels()),
		frame: make([]int16, cfg.Channels),
	}
	if h, ok := src.(Hinter); ok {
		f.hinter = h
	}
	return f, nil
}

// Feed pushes up to frames frames and returns how many were pushed. It
// returns io.EOF once the source is exhausted and nothing was pushed.
func (f *Feeder) Feed(frames int) (int, error) {
	pushed := 0
	for pushed < frames {
		if f.pending == 0 {
			if f.finished {
				break
			}
			n, err := f.src.ReadFrames(f.batch)
			if errors.Is(err, io.EOF) {
				f.finished = true
			} else if err != nil {
				return pushed, err
			}
			if n == 0 {
				break
			}
			f.pending, f.offset = n, 0
		}

		take := min(f.pending, frames-pushed)
		for i := range take {
			at := (f.offset + i) * f.srcCh
			f.remap(f.batch[at : at+f.srcCh])
			f.dst.PushFrame(f.frame, f.nextHint())
		}
		f.offset += take
		f.pending -= take
		pushed += take
	}

	f.pushed += uint64(pushed)
	if pushed == 0 && f.finished {
		return 0, io.EOF
	}
	return pushed, nil
}

// Run pushes frames at rate frames per second of wall-clock time, catching
// up every interval, until ctx is done or the source is exhausted.
func (f *Feeder) Run(ctx context.Context, rate float64, interval time.Duration) error {
	if !(rate > 0) || interval <= 0 {
		return fmt.Errorf("feeder: invalid pacing %v Hz every %v", rate, interval)
	}

	start := time.Now()
	base := f.pushed
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			target := base + uint64(rate*time.Since(start).Seconds())
			if target <= f.pushed {
				continue
			}
			if _, err := f.Feed(int(target - f.pushed)); err != nil {
				if errors.Is(err, io.EOF) {
					return nil
				}
				return err
			}
		}
	}
}

// Pushed returns the total frames pushed.
func (f *Feeder) Pushed() uint64 { return f.pushed }

func (f *Feeder) nextHint() float64 {
	if f.hinter != nil {
		return f.hinter.Hint()
	}
	return f.hint
}

// remap converts one source frame to the destination channel layout.
func (f *Feeder) remap(in []int16) {
	switch {
	case f.srcCh == f.dstCh:
		copy(f.frame, in)
	case f.srcCh == 1:
		for c := range f.frame {
			f.frame[c] = in[0]
		}
	case f.dstCh == 1:
		var sum int32
		for _, v := range in {
			sum += int32(v)
		}
		f.frame[0] = int16(sum / int32(len(in)))
	default:
		n := copy(f.frame, in)
		clear(f.frame[n:])
	}
}
