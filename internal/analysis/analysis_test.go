package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func sine(freq, rate float64, n int, amp float64) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = amp * math.Sin(2*math.Pi*freq*float64(i)/rate)
	}
	return s
}

func TestZeroCrossingFrequency(t *testing.T) {
	tests := []struct {
		freq float64
		rate float64
	}{
		{440, 48000},
		{1000, 48000},
		{997, 44100},
		{3000, 96000},
	}

	for _, tt := range tests {
		got := ZeroCrossingFrequency(sine(tt.freq, tt.rate, int(tt.rate), 0.5), tt.rate)
		assert.InEpsilon(t, tt.freq, got, 1e-5, "freq %.0f at %.0f Hz", tt.freq, tt.rate)
	}
}

func TestZeroCrossingFrequency_TooShort(t *testing.T) {
	assert.Zero(t, ZeroCrossingFrequency(nil, 48000))
	assert.Zero(t, ZeroCrossingFrequency([]float64{-1, 1}, 48000))
	assert.Zero(t, ZeroCrossingFrequency(make([]float64, 100), 48000), "silence has no crossings")
}

func TestDominantFrequency(t *testing.T) {
	const rate = 48000.0
	for _, freq := range []float64{440, 1000, 5000} {
		got := DominantFrequency(sine(freq, rate, 16384, 0.8), rate)
		assert.InDelta(t, freq, got, 1.0, "freq %.0f", freq)
	}

	assert.Zero(t, DominantFrequency(make([]float64, 10), rate))
}

func TestRMSAndMean(t *testing.T) {
	s := sine(1000, 48000, 48000, 1.0)
	assert.InDelta(t, 1/math.Sqrt2, RMS(s), 1e-4)
	assert.InDelta(t, 0.0, Mean(s), 1e-4)

	assert.InDelta(t, 0.25, Mean([]float64{0.25, 0.25, 0.25, 0.25}), 1e-12)
	assert.Zero(t, RMS(nil))
	assert.Zero(t, Mean(nil))
}

func TestChannel(t *testing.T) {
	interleaved := []float32{1, -1, 2, -2, 3, -3}

	assert.Equal(t, []float64{1, 2, 3}, Channel(interleaved, 2, 0))
	assert.Equal(t, []float64{-1, -2, -3}, Channel(interleaved, 2, 1))
	assert.Nil(t, Channel(interleaved, 2, 2))
	assert.Nil(t, Channel(interleaved, 0, 0))
}

func TestTHD(t *testing.T) {
	const (
		rate = 48000.0
		freq = 375.0 // bin-centred for n = 16384
		n    = 16384
	)

	clean := sine(freq, rate, n, 0.5)
	assert.Less(t, THD(clean, rate, freq), 1e-3)

	// Add a third harmonic at -20 dB
	distorted := sine(freq, rate, n, 0.5)
	third := sine(3*freq, rate, n, 0.05)
	for i := range distorted {
		distorted[i] += third[i]
	}
	assert.InDelta(t, 0.1, THD(distorted, rate, freq), 0.01)
}
