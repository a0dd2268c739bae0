package rate

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEstimator(t *testing.T, nominal float64) *Estimator {
	t.Helper()
	e, err := NewEstimator(EstimatorConfig{NominalRate: nominal})
	require.NoError(t, err)
	return e
}

func TestNewEstimator_Defaults(t *testing.T) {
	e := newTestEstimator(t, 48000)

	cfg := e.Config()
	assert.Equal(t, float64(DefaultTimeBase), cfg.TimeBase)
	assert.Equal(t, DefaultAlpha, cfg.Alpha)

	lo, hi := e.Band()
	assert.InDelta(t, 19200.0, lo, 1e-9)
	assert.InDelta(t, 52800.0, hi, 1e-9)

	assert.Zero(t, e.Estimate(), "no measurement yet")
	assert.False(t, e.Measured())
}

func TestNewEstimator_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  EstimatorConfig
	}{
		{"zero nominal", EstimatorConfig{}},
		{"negative nominal", EstimatorConfig{NominalRate: -1}},
		{"alpha above one", EstimatorConfig{NominalRate: 48000, Alpha: 1.5}},
		{"negative time base", EstimatorConfig{NominalRate: 48000, TimeBase: -1}},
		{"inverted band", EstimatorConfig{NominalRate: 48000, MinRatio: 1.2, MaxRatio: 0.8}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewEstimator(tt.cfg)
			require.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestEstimator_FirstHintSeeds(t *testing.T) {
	e := newTestEstimator(t, 48000)

	require.True(t, e.Observe(1e6/48011))
	assert.InDelta(t, 48011.0, e.Estimate(), 1e-6)
	assert.InDelta(t, 48011.0, e.Last(), 1e-6)
	assert.Equal(t, uint64(1), e.Accepted())
}

func TestEstimator_Blend(t *testing.T) {
	e, err := NewEstimator(EstimatorConfig{NominalRate: 1000, TimeBase: 1000, Alpha: 0.5})
	require.NoError(t, err)

	require.True(t, e.Observe(1.0))  // 1000 Hz seeds
	require.True(t, e.Observe(0.95)) // ~1052.6 Hz
	assert.InDelta(t, 0.5*1000/0.95+0.5*1000, e.Estimate(), 1e-9)
}

// TestEstimator_Convergence feeds jittered hints for a 48011 Hz producer
// after seeding at the nominal 48000 Hz and checks the estimate settles.
func TestEstimator_Convergence(t *testing.T) {
	e := newTestEstimator(t, 48000)
	require.True(t, e.Observe(1e6/48000))

	rng := rand.New(rand.NewPCG(1, 2))
	const trueRate = 48011.0
	for range 200_000 {
		jitter := 1 + (rng.Float64()*2-1)*0.001
		e.Observe(1e6 / trueRate * jitter)
	}

	assert.InDelta(t, trueRate, e.Estimate(), 1.0)
	assert.Zero(t, e.Rejected())
}

func TestEstimator_OutlierImmunity(t *testing.T) {
	e := newTestEstimator(t, 48000)
	for range 1000 {
		require.True(t, e.Observe(1e6/48011))
	}
	before := e.Estimate()

	outliers := []float64{
		0,
		-20.8,
		math.NaN(),
		math.Inf(1),
		1e6 / 100,    // 100 Hz, below band
		1e6 / 200000, // 200 kHz, above band
	}
	for _, h := range outliers {
		assert.False(t, e.Observe(h), "hint %v", h)
	}

	assert.Equal(t, before, e.Estimate(), "outliers must not move the estimate")
	assert.Equal(t, uint64(len(outliers)), e.Rejected())
	assert.Equal(t, uint64(1000), e.Accepted())
}

func TestEstimator_ObserveWithTimeBase(t *testing.T) {
	// Hints as bus cycles per sample on a 3.546895 MHz clock
	const clock = 3_546_895.0
	e := newTestEstimator(t, 44100)

	require.True(t, e.ObserveWithTimeBase(clock/44100, clock))
	assert.InDelta(t, 44100.0, e.Estimate(), 1e-6)

	assert.False(t, e.ObserveWithTimeBase(80, 0), "zero time base")
}
