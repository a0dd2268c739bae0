// Package testutil provides reusable test helpers for the audio bridge tests.
package testutil

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

// SampleTolerance is one int16 quantization step in normalized float32.
const SampleTolerance = 1.0 / 32768.0

// StereoSine returns frames of an interleaved stereo int16 sine. The right
// channel carries the same tone with its phase inverted.
func StereoSine(freq, sampleRate float64, frames int, amplitude float64) []int16 {
	out := make([]int16, frames*2)
	for i := range frames {
		v := int16(math.Round(amplitude * math.Sin(2*math.Pi*freq*float64(i)/sampleRate)))
		out[2*i] = v
		out[2*i+1] = -v
	}
	return out
}

// Ramp returns frames of interleaved stereo int16 samples whose left channel
// counts up from start and whose right channel counts down from -start.
// Useful for spotting reordered, duplicated or lost frames.
func Ramp(start, frames int) []int16 {
	out := make([]int16, frames*2)
	for i := range frames {
		v := int16(start + i)
		out[2*i] = v
		out[2*i+1] = -v
	}
	return out
}

// AssertNoNaNOrInf verifies that no elements in the slice are NaN or Inf.
func AssertNoNaNOrInf(t *testing.T, s []float32, msgAndArgs ...any) bool {
	t.Helper()
	for i, v := range s {
		f := float64(v)
		if math.IsNaN(f) {
			return assert.Fail(t, "found NaN", "s[%d] is NaN", i)
		}
		if math.IsInf(f, 0) {
			return assert.Fail(t, "found Inf", "s[%d] is Inf", i)
		}
	}
	return true
}

// AssertAllInRange verifies that all elements are within [min, max].
func AssertAllInRange(t *testing.T, s []float32, minVal, maxVal float32, msgAndArgs ...any) bool {
	t.Helper()
	for i, v := range s {
		if v < minVal || v > maxVal {
			return assert.Fail(t, "value out of range",
				"s[%d]=%f is outside range [%f, %f]", i, v, minVal, maxVal)
		}
	}
	return true
}

// AssertAllZero verifies that every element of the slice is zero.
func AssertAllZero(t *testing.T, s []float32, msgAndArgs ...any) bool {
	t.Helper()
	for i, v := range s {
		if v != 0 {
			return assert.Fail(t, "non-zero sample", "s[%d]=%f", i, v)
		}
	}
	return true
}

// AssertRelativeError verifies that the relative error between actual and expected is within tolerance.
func AssertRelativeError(t *testing.T, expected, actual, tolerance float64, msgAndArgs ...any) bool {
	t.Helper()
	if expected == 0 {
		return assert.InDelta(t, expected, actual, tolerance, msgAndArgs...)
	}
	relError := math.Abs(actual-expected) / math.Abs(expected)
	return assert.LessOrEqual(t, relError, tolerance,
		"relative error %e exceeds tolerance %e (expected=%f, actual=%f)",
		relError, tolerance, expected, actual)
}

// AssertInRange verifies that a value is within [min, max].
func AssertInRange(t *testing.T, value, minVal, maxVal float64, msgAndArgs ...any) bool {
	t.Helper()
	if value < minVal || value > maxVal {
		return assert.Fail(t, "value out of range",
			"value %f is outside range [%f, %f]", value, minVal, maxVal)
	}
	return true
}
