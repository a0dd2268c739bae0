// Package engine implements the sample-rate converter used by the bridge.
package engine

import (
	"fmt"
	"math"

	"github.com/tphakala/go-audio-bridge/internal/simdops"
)

// Resampler converts interleaved int16 frames at a variable input rate into
// interleaved float32 frames at a fixed output rate using linear (2-point,
// 1st order) interpolation.
//
// The fractional read position and the last input frame are carried across
// calls. The carried frame acts as source index 0 of the next call, so every
// interval between consecutive input frames is interpolated exactly once and
// streaming in arbitrary batch sizes yields the same output as one large call.
//
// A Resampler is not safe for concurrent use.
type Resampler struct {
	inputRate  float64
	outputRate int
	channels   int

	position float64 // fractional read position in the extended input
	history  []int16 // last frame of the previous call

	initialized bool
	ops         *simdops.Ops[float32]
}

// NewResampler returns an uninitialized resampler. Process returns 0 until
// Initialize succeeds.
func NewResampler() *Resampler {
	return &Resampler{ops: simdops.For[float32]()}
}

// Initialize configures rates and channel count and clears the carried
// state. It may be called again to re-initialize.
func (r *Resampler) Initialize(inputRate float64, outputRate, channels int) error {
	if !(inputRate > 0) || math.IsInf(inputRate, 0) {
		return fmt.Errorf("%w: input rate %v", ErrInvalidRate, inputRate)
	}
	if outputRate <= 0 {
		return fmt.Errorf("%w: output rate %d", ErrInvalidRate, outputRate)
	}
	if channels <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidChannels, channels)
	}

	r.inputRate = inputRate
	r.outputRate = outputRate
	r.channels = channels
	if cap(r.history) >= channels {
		r.history = r.history[:channels]
	} else {
		r.history = make([]int16, channels)
	}
	r.initialized = true
	r.Reset()
	return nil
}

// IsInitialized reports whether Initialize has succeeded.
func (r *Resampler) IsInitialized() bool {
	return r.initialized
}

// SetInputRate changes the input rate for subsequent Process calls without
// resetting position or history. The value is not validated; Process
// produces nothing while the rate is not a positive finite number.
func (r *Resampler) SetInputRate(rate float64) {
	r.inputRate = rate
}

// InputRate returns the current input rate in Hz.
func (r *Resampler) InputRate() float64 {
	return r.inputRate
}

// OutputRate returns the output rate in Hz.
func (r *Resampler) OutputRate() int {
	return r.outputRate
}

// Channels returns the configured channel count.
func (r *Resampler) Channels() int {
	return r.channels
}

// Ratio returns inputRate/outputRate, the source step per output frame.
func (r *Resampler) Ratio() float64 {
	if r.outputRate == 0 {
		return 0
	}
	return r.inputRate / float64(r.outputRate)
}

// Process resamples inputFrames frames from input into output, writing at
// most outputCapacity frames, and returns the number of frames written.
//
// Output samples are normalized by 1/32768. Process returns 0 when the
// resampler is uninitialized or the arguments are degenerate.
func (r *Resampler) Process(input []int16, inputFrames int, output []float32, outputCapacity int) int {
	if !r.initialized || inputFrames <= 0 || outputCapacity <= 0 {
		return 0
	}
	ch := r.channels
	if len(input) < inputFrames*ch || len(output) < outputCapacity*ch {
		return 0
	}
	step := r.Ratio()
	if !(step > 0) || math.IsInf(step, 0) {
		return 0
	}

	// Extended input: index 0 is the history frame, index k is input frame k-1.
	// An output frame at position p needs indices int(p) and int(p)+1.
	pos := r.position
	written := 0
	for written < outputCapacity {
		idx := int(pos)
		if idx >= inputFrames {
			break
		}
		frac := float32(pos - float64(idx))

		var s0 []int16
		if idx == 0 {
			s0 = r.history
		} else {
			s0 = input[(idx-1)*ch : idx*ch]
		}
		s1 := input[idx*ch : (idx+1)*ch]
		out := output[written*ch : (written+1)*ch]
		for c := range ch {
			a := float32(s0[c])
			out[c] = a + (float32(s1[c])-a)*frac
		}

		written++
		pos += step
	}

	if written > 0 {
		block := output[:written*ch]
		r.ops.Scale(block, block, int16Normalize)
	}

	pos -= float64(inputFrames)
	if pos < 0 {
		pos = 0
	}
	r.position = pos
	copy(r.history, input[(inputFrames-1)*ch:inputFrames*ch])

	return written
}

// Reset clears the carried position and history but keeps the rates.
// The first call after Reset skips the silent history frame.
func (r *Resampler) Reset() {
	r.position = 1
	clear(r.history)
}

// Latency returns the number of input frames held back between calls.
func (r *Resampler) Latency() int {
	return linearLatencyFrames
}

// EstimateOutput returns an upper-bound estimate of the frames produced from
// inputFrames frames at the current ratio.
func (r *Resampler) EstimateOutput(inputFrames int) int {
	step := r.Ratio()
	if inputFrames <= 0 || !(step > 0) {
		return 0
	}
	return int(math.Ceil(float64(inputFrames) / step))
}
