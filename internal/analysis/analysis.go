// Package analysis measures properties of bridged audio: pitch, level and
// harmonic distortion. It backs the rate-correctness tests and the
// bridge-sim report.
package analysis

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/tphakala/go-audio-bridge/internal/simdops"
)

// Analysis constants
const (
	// Smallest FFT the frequency estimators will run
	minFFTSize = 64

	// Guards log/division of empty bins
	magnitudeFloor = 1e-20

	// Highest harmonic considered by THD
	maxHarmonic = 10
)

// Channel extracts channel ch of an interleaved float32 buffer as float64.
// It returns nil when ch is out of range.
func Channel(interleaved []float32, channels, ch int) []float64 {
	if channels <= 0 || ch < 0 || ch >= channels {
		return nil
	}
	frames := len(interleaved) / channels
	out := make([]float64, frames)
	for i := range frames {
		out[i] = float64(interleaved[i*channels+ch])
	}
	return out
}

// Mean returns the arithmetic mean of samples (0 for an empty slice).
func Mean(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	return simdops.Float64Ops().Sum(samples) / float64(len(samples))
}

// RMS returns the root-mean-square level of samples (0 for an empty slice).
func RMS(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	energy := simdops.Float64Ops().DotProductUnsafe(samples, samples)
	return math.Sqrt(energy / float64(len(samples)))
}

// ZeroCrossingFrequency estimates the frequency of a single tone by timing
// its rising zero crossings. Crossing instants are linearly interpolated
// between samples, which makes the estimate precise for long, clean tones.
// It returns 0 when fewer than two crossings are found.
func ZeroCrossingFrequency(samples []float64, sampleRate float64) float64 {
	first, last := -1.0, -1.0
	crossings := 0
	for i := 1; i < len(samples); i++ {
		a, b := samples[i-1], samples[i]
		if a < 0 && b >= 0 {
			at := float64(i-1) + (-a)/(b-a)
			if crossings == 0 {
				first = at
			}
			last = at
			crossings++
		}
	}
	if crossings < 2 || last <= first {
		return 0
	}
	return float64(crossings-1) * sampleRate / (last - first)
}

// DominantFrequency returns the frequency of the strongest spectral peak.
// The largest power-of-two prefix of samples is Hann-windowed and
// transformed, and the peak bin is refined by parabolic interpolation.
// It returns 0 for inputs shorter than 64 samples.
func DominantFrequency(samples []float64, sampleRate float64) float64 {
	spectrum, n := magnitudes(samples)
	if spectrum == nil {
		return 0
	}

	peak := 1
	for k := 2; k < len(spectrum)-1; k++ {
		if spectrum[k] > spectrum[peak] {
			peak = k
		}
	}

	delta := 0.0
	if peak > 0 && peak < len(spectrum)-1 {
		a := math.Log(spectrum[peak-1] + magnitudeFloor)
		b := math.Log(spectrum[peak] + magnitudeFloor)
		c := math.Log(spectrum[peak+1] + magnitudeFloor)
		if denom := a - 2*b + c; denom != 0 {
			delta = 0.5 * (a - c) / denom
		}
	}

	return (float64(peak) + delta) * sampleRate / float64(n)
}

// THD returns total harmonic distortion as a ratio: the root-sum-square
// magnitude of harmonics 2..10 below Nyquist over the fundamental.
func THD(samples []float64, sampleRate, fundamental float64) float64 {
	spectrum, n := magnitudes(samples)
	if spectrum == nil || fundamental <= 0 {
		return 0
	}

	bin := func(freq float64) int {
		return int(math.Round(freq / sampleRate * float64(n)))
	}
	// Hann main lobe spans +-2 bins
	peakAround := func(k int) float64 {
		best := 0.0
		for j := max(k-2, 1); j <= min(k+2, len(spectrum)-1); j++ {
			best = max(best, spectrum[j])
		}
		return best
	}

	fundamentalMag := peakAround(bin(fundamental))
	var harmonicPower float64
	for h := 2; h <= maxHarmonic; h++ {
		freq := fundamental * float64(h)
		if freq >= sampleRate/2 {
			break
		}
		m := peakAround(bin(freq))
		harmonicPower += m * m
	}

	return math.Sqrt(harmonicPower) / (fundamentalMag + magnitudeFloor)
}

// magnitudes returns the one-sided magnitude spectrum of the Hann-windowed
// power-of-two prefix of samples, along with the FFT size.
func magnitudes(samples []float64) ([]float64, int) {
	n := 1
	for n*2 <= len(samples) {
		n *= 2
	}
	if n < minFFTSize {
		return nil, 0
	}

	windowed := make([]float64, n)
	for i := range n {
		w := 0.5 * (1.0 - math.Cos(2.0*math.Pi*float64(i)/float64(n-1)))
		windowed[i] = samples[i] * w
	}

	fft := fourier.NewFFT(n)
	coeffs := fft.Coefficients(nil, windowed)

	spectrum := make([]float64, len(coeffs))
	for k, c := range coeffs {
		spectrum[k] = cmplx.Abs(c)
	}
	return spectrum, n
}
