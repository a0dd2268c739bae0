package bridge

import (
	"math"
	"testing"
)

// TestNewStereoAndMono verifies the convenience constructors.
func TestNewStereoAndMono(t *testing.T) {
	tests := []struct {
		name     string
		create   func(float64, int) (*Coordinator, error)
		channels int
	}{
		{"Stereo_CD_to_DAT", NewStereo, 2},
		{"Mono_CD_to_DAT", NewMono, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := tt.create(RateCD, RateDAT)
			if err != nil {
				t.Fatalf("constructor failed: %v", err)
			}
			defer func() { _ = c.Close() }()

			cfg := c.Config()
			if cfg.Channels != tt.channels {
				t.Errorf("Channels = %d, want %d", cfg.Channels, tt.channels)
			}
			if cfg.OutputRate != RateDAT {
				t.Errorf("OutputRate = %d, want %d", cfg.OutputRate, RateDAT)
			}
			if cfg.NominalInputRate != RateCD {
				t.Errorf("NominalInputRate = %v, want %v", cfg.NominalInputRate, RateCD)
			}
		})
	}

	if _, err := NewStereo(RateCD, 0); err == nil {
		t.Error("NewStereo with zero output rate should fail")
	}
}

// TestHintConversions verifies hints and rates convert both ways.
func TestHintConversions(t *testing.T) {
	const timeBase = 3_546_895 // PAL Amiga clock

	for _, rate := range []float64{RateCD, RateDAT, RateHiRes96, 48011} {
		hint := HintForRate(rate, timeBase)
		if got := RateFromHint(hint, timeBase); math.Abs(got-rate) > 1e-9*rate {
			t.Errorf("RateFromHint(HintForRate(%v)) = %v", rate, got)
		}
		if got := RateFromHint(float64(HintForRate32(rate, timeBase)), timeBase); math.Abs(got-rate) > 1e-6*rate {
			t.Errorf("float32 hint for %v round-trips to %v", rate, got)
		}
	}

	if HintForRate(0, DefaultTimeBase) != 0 || RateFromHint(-1, DefaultTimeBase) != 0 {
		t.Error("non-positive inputs should map to zero")
	}
}

// TestInterleaveDeinterleaveFloat32 verifies interleave/deinterleave roundtrip.
func TestInterleaveDeinterleaveFloat32(t *testing.T) {
	const numSamples = 100

	left := make([]float32, numSamples)
	right := make([]float32, numSamples+5) // extra samples are ignored
	for i := range left {
		left[i] = float32(i)
		right[i] = float32(i + 1000)
	}

	interleaved := InterleaveToStereoFloat32(left, right)
	if len(interleaved) != numSamples*2 {
		t.Fatalf("Interleaved length = %d, want %d", len(interleaved), numSamples*2)
	}
	for i := range numSamples {
		if interleaved[i*2] != left[i] || interleaved[i*2+1] != right[i] {
			t.Errorf("frame %d = [%v %v], want [%v %v]", i, interleaved[i*2], interleaved[i*2+1], left[i], right[i])
		}
	}

	leftOut, rightOut := DeinterleaveFromStereoFloat32(interleaved)
	if len(leftOut) != numSamples || len(rightOut) != numSamples {
		t.Fatalf("Deinterleaved lengths: left=%d, right=%d, want %d", len(leftOut), len(rightOut), numSamples)
	}
	for i := range numSamples {
		if leftOut[i] != left[i] || rightOut[i] != right[i] {
			t.Errorf("roundtrip frame %d = [%v %v]", i, leftOut[i], rightOut[i])
		}
	}
}

// TestPullIntoDeinterleave shows the consumer path for planar outputs.
func TestPullIntoDeinterleave(t *testing.T) {
	c, err := NewStereo(RateDAT, RateDAT)
	if err != nil {
		t.Fatalf("NewStereo failed: %v", err)
	}
	defer func() { _ = c.Close() }()

	hint := float32(HintForRate(RateDAT, DefaultTimeBase))
	for range DefaultMinBatch {
		c.Push(16384, -16384, hint)
	}

	out := make([]float32, 2*8)
	if n := c.Pull(out, 8); n != 8 {
		t.Fatalf("Pull = %d, want 8", n)
	}
	left, right := DeinterleaveFromStereoFloat32(out)
	for i := range left {
		if math.Abs(float64(left[i])-0.5) > 1e-4 || math.Abs(float64(right[i])+0.5) > 1e-4 {
			t.Errorf("frame %d = [%v %v], want [0.5 -0.5]", i, left[i], right[i])
		}
	}
}
