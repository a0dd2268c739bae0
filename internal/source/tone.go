package source

import (
	"fmt"
	"io"
	"math"
	"math/rand/v2"
)

// ToneConfig configures a synthetic sine producer.
type ToneConfig struct {
	// Frequency of the tone in Hz of true time. Defaults to 1000.
	Frequency float64

	// Amplitude relative to full scale, in (0, 1]. Defaults to 0.5.
	Amplitude float64

	// Rate is the nominal rate the producer claims, in Hz. Defaults to 48000.
	Rate int

	// TrueRate overrides the clock the tone is actually generated at.
	// When zero it is Rate adjusted by DriftPPM.
	TrueRate float64

	// DriftPPM offsets the true clock from Rate in parts per million.
	DriftPPM float64

	// Jitter is the relative peak error applied to each timing hint.
	Jitter float64

	// TimeBase is the hint unit count per second. Defaults to microseconds.
	TimeBase float64

	// Channels defaults to 2. All channels carry the same tone.
	Channels int

	// Frames limits the tone length; zero means endless.
	Frames int

	// Seed makes the hint jitter reproducible.
	Seed uint64
}

// Tone is a deterministic sine producer running on a clock that may drift
// from its nominal rate. It reports a timing hint for each frame.
type Tone struct {
	cfg      ToneConfig
	trueRate float64
	step     float64 // phase increment per frame, radians
	phase    float64
	emitted  int
	rng      *rand.Rand
}

// NewTone creates a tone source.
func NewTone(cfg ToneConfig) (*Tone, error) {
	if cfg.Frequency == 0 {
		cfg.Frequency = defaultToneFrequency
	}
	if cfg.Amplitude == 0 {
		cfg.Amplitude = defaultToneAmplitude
	}
	if cfg.Rate == 0 {
		cfg.Rate = defaultToneRate
	}
	if cfg.TimeBase == 0 {
		cfg.TimeBase = defaultTimeBase
	}
	if cfg.Channels == 0 {
		cfg.Channels = 2
	}

	trueRate := cfg.TrueRate
	if trueRate == 0 {
		trueRate = float64(cfg.Rate) * (1 + cfg.DriftPPM/ppmScale)
	}

	switch {
	case cfg.Rate < 0 || trueRate <= 0:
		return nil, fmt.Errorf("tone: rate must be positive, got nominal %d true %v", cfg.Rate, trueRate)
	case cfg.Frequency < 0 || cfg.Frequency >= trueRate/2:
		return nil, fmt.Errorf("tone: frequency %v must be in [0, %v)", cfg.Frequency, trueRate/2)
	case cfg.Amplitude < 0 || cfg.Amplitude > 1:
		return nil, fmt.Errorf("tone: amplitude %v must be in (0, 1]", cfg.Amplitude)
	case cfg.Channels < 1:
		return nil, fmt.Errorf("tone: channels must be positive, got %d", cfg.Channels)
	case cfg.Jitter < 0 || cfg.Jitter >= 1:
		return nil, fmt.Errorf("tone: jitter %v must be in [0, 1)", cfg.Jitter)
	}

	return &Tone{
		cfg:      cfg,
		trueRate: trueRate,
		step:     2 * math.Pi * cfg.Frequency / trueRate,
		rng:      rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)),
	}, nil
}

func (t *Tone) SampleRate() int { return t.cfg.Rate }
func (t *Tone) Channels() int   { return t.cfg.Channels }
func (t *Tone) Close() error    { return nil }

// TrueRate returns the clock the tone is generated at, in Hz.
func (t *Tone) TrueRate() float64 { return t.trueRate }

// Frequency returns the tone frequency in Hz of true time.
func (t *Tone) Frequency() float64 { return t.cfg.Frequency }

// ReadFrames generates the next frames of the tone.
func (t *Tone) ReadFrames(dst []int16) (int, error) {
	ch := t.cfg.Channels
	frames := len(dst) / ch
	if t.cfg.Frames > 0 {
		frames = min(frames, t.cfg.Frames-t.emitted)
		if frames <= 0 {
			return 0, io.EOF
		}
	}

	amp := t.cfg.Amplitude * maxInt16
	for i := range frames {
		v := int16(math.Round(amp * math.Sin(t.phase)))
		for c := range ch {
			dst[i*ch+c] = v
		}
		t.phase += t.step
		if t.phase >= 2*math.Pi {
			t.phase -= 2 * math.Pi
		}
	}
	t.emitted += frames
	return frames, nil
}

// Hint returns the timing hint for the next frame: TimeBase/TrueRate with
// uniform relative jitter.
func (t *Tone) Hint() float64 {
	h := t.cfg.TimeBase / t.trueRate
	if t.cfg.Jitter > 0 {
		h *= 1 + t.cfg.Jitter*(2*t.rng.Float64()-1)
	}
	return h
}
