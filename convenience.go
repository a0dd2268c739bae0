package bridge

import (
	"github.com/tphakala/go-audio-bridge/internal/simdops"
)

// Common sample rates for convenience functions.
const (
	// RateCD is the CD quality sample rate (Red Book standard).
	RateCD = 44100

	// RateDAT is the DAT/DVD sample rate.
	RateDAT = 48000

	// RateHiRes96 is the high-resolution 2x DAT sample rate.
	RateHiRes96 = 96000
)

const stereoChannels = 2

// NewStereo creates a stereo bridge for a producer expected to run at
// nominalInputRate feeding a consumer at outputRate. Hints are in
// microseconds per sample.
func NewStereo(nominalInputRate float64, outputRate int) (*Coordinator, error) {
	return New(Config{
		OutputRate:       outputRate,
		Channels:         stereoChannels,
		NominalInputRate: nominalInputRate,
	})
}

// NewMono creates a mono bridge. Push averages its two channels.
func NewMono(nominalInputRate float64, outputRate int) (*Coordinator, error) {
	return New(Config{
		OutputRate:       outputRate,
		Channels:         1,
		NominalInputRate: nominalInputRate,
	})
}

// HintForRate returns the hint a producer running at rateHz reports in a
// time base of timeBase units per second.
func HintForRate(rateHz, timeBase float64) float64 {
	if rateHz <= 0 {
		return 0
	}
	return timeBase / rateHz
}

// HintForRate32 is HintForRate narrowed for Push.
func HintForRate32(rateHz, timeBase float64) float32 {
	return float32(HintForRate(rateHz, timeBase))
}

// RateFromHint converts a hint back to a rate in Hz.
func RateFromHint(unitsPerSample, timeBase float64) float64 {
	if unitsPerSample <= 0 {
		return 0
	}
	return timeBase / unitsPerSample
}

// InterleaveToStereoFloat32 converts two mono float32 channels to interleaved stereo.
// Output format: [L0, R0, L1, R1, L2, R2, ...]
func InterleaveToStereoFloat32(left, right []float32) []float32 {
	minLen := min(len(left), len(right))
	result := make([]float32, minLen*stereoChannels)
	simdops.Float32Ops().Interleave2(result, left[:minLen], right[:minLen])
	return result
}

// DeinterleaveFromStereoFloat32 converts interleaved stereo float32 to two mono channels.
// Input format: [L0, R0, L1, R1, L2, R2, ...]
func DeinterleaveFromStereoFloat32(interleaved []float32) (left, right []float32) {
	numSamples := len(interleaved) / stereoChannels
	left = make([]float32, numSamples)
	right = make([]float32, numSamples)
	for i := range numSamples {
		left[i] = interleaved[i*stereoChannels]
		right[i] = interleaved[i*stereoChannels+1]
	}
	return left, right
}
