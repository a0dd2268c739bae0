package sim

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bridge "github.com/tphakala/go-audio-bridge"
	"github.com/tphakala/go-audio-bridge/internal/analysis"
	"github.com/tphakala/go-audio-bridge/internal/source"
	"github.com/tphakala/go-audio-bridge/internal/testutil"
)

func quietBridge() bridge.Config {
	return bridge.Config{
		OutputRate:       48000,
		Channels:         2,
		InputCapacity:    480,
		OutputCapacity:   9600,
		NominalInputRate: 48000,
		Logger:           slog.New(slog.DiscardHandler),
	}
}

func newTone(t *testing.T, cfg source.ToneConfig) *source.Tone {
	t.Helper()
	tone, err := source.NewTone(cfg)
	require.NoError(t, err)
	return tone
}

// A producer running 11 Hz fast for 10 s, pulled in 10 ms periods.
func TestRun_DriftingProducer(t *testing.T) {
	tone := newTone(t, source.ToneConfig{Rate: 48000, TrueRate: 48011, Frequency: 1000})

	res, err := Run(context.Background(), Scenario{
		Bridge:  quietBridge(),
		Source:  tone,
		Capture: true,
	})
	require.NoError(t, err)
	require.True(t, res.Started)

	assert.Equal(t, 480110, res.FramesPushed)
	assert.Zero(t, res.UnderrunsAfterWarmUp)
	testutil.AssertInRange(t, float64(res.MinFill), 0.2, 0.8)
	testutil.AssertInRange(t, float64(res.MaxFill), 0.2, 0.8)

	s := res.Stats
	assert.InDelta(t, 480000, float64(s.FramesResampled), 480)
	assert.Equal(t, s.FramesResampled, s.FramesPulled+uint64(res.Buffered), "no frame lost or invented")
	assert.Zero(t, s.InputOverruns)
	assert.Zero(t, s.OutputOverruns)
	assert.Zero(t, s.RejectedHints)
	assert.Equal(t, uint64(1), s.ScratchGrowths, "scratch sized once")
	assert.InDelta(t, 48011.0, s.EstimatedRate, 1e-3)

	// The tone keeps its pitch on the output clock
	testutil.AssertNoNaNOrInf(t, res.Audio)
	left := analysis.Channel(res.Audio, 2, 0)
	require.Greater(t, len(left), 96000)
	assert.InEpsilon(t, 1000.0, analysis.ZeroCrossingFrequency(left[48000:], 48000), 1e-4)
}

func TestRun_JitteredHints(t *testing.T) {
	tone := newTone(t, source.ToneConfig{Rate: 48000, TrueRate: 48011, Jitter: 0.001, Seed: 3})

	res, err := Run(context.Background(), Scenario{
		Bridge:   quietBridge(),
		Source:   tone,
		Duration: 5 * time.Second,
	})
	require.NoError(t, err)

	assert.Zero(t, res.UnderrunsAfterWarmUp)
	assert.GreaterOrEqual(t, res.MinFill, float32(0.2))
	assert.LessOrEqual(t, res.MaxFill, float32(0.8))
	assert.InDelta(t, 48011.0, res.Stats.EstimatedRate, 2)
}

func TestRun_SourceRunsDry(t *testing.T) {
	tone := newTone(t, source.ToneConfig{Rate: 48000, Frames: 48000})

	res, err := Run(context.Background(), Scenario{
		Bridge:   quietBridge(),
		Source:   tone,
		Duration: 3 * time.Second,
		Prefill:  0.1,
	})
	require.NoError(t, err)

	assert.Equal(t, 48000, res.FramesPushed)
	assert.Positive(t, res.UnderrunsAfterWarmUp)
	assert.Positive(t, res.Stats.SilentFrames)
	assert.Zero(t, res.Buffered)
	assert.Equal(t, res.Stats.FramesResampled, res.Stats.FramesPulled)
}

func TestRun_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, Scenario{
		Bridge: quietBridge(),
		Source: newTone(t, source.ToneConfig{}),
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_InvalidScenario(t *testing.T) {
	tone := newTone(t, source.ToneConfig{})

	tests := []struct {
		name string
		sc   Scenario
	}{
		{"no source", Scenario{Bridge: quietBridge()}},
		{"prefill too high", Scenario{Bridge: quietBridge(), Source: tone, Prefill: 1}},
		{"period beyond duration", Scenario{Bridge: quietBridge(), Source: tone, Period: time.Second, Duration: time.Millisecond}},
		{"negative pull", Scenario{Bridge: quietBridge(), Source: tone, PullFrames: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Run(context.Background(), tt.sc)
			assert.ErrorIs(t, err, ErrInvalidScenario)
		})
	}

	_, err := Run(context.Background(), Scenario{Bridge: bridge.Config{Channels: 2}, Source: tone, PullFrames: 480})
	assert.ErrorIs(t, err, bridge.ErrInvalidConfig)
}

func TestRunRealtime(t *testing.T) {
	if testing.Short() {
		t.Skip("wall-clock test")
	}

	res, err := RunRealtime(context.Background(), Scenario{
		Bridge:   quietBridge(),
		Source:   newTone(t, source.ToneConfig{Rate: 48000, DriftPPM: 200}),
		Duration: 400 * time.Millisecond,
		Prefill:  0.05,
		WarmUp:   50 * time.Millisecond,
	})
	require.NoError(t, err)

	assert.Positive(t, res.FramesPushed)
	assert.True(t, res.Started)
	assert.Positive(t, res.Pulls)
	assert.Equal(t, res.Stats.FramesResampled, res.Stats.FramesPulled+uint64(res.Buffered))
}
