package simdops

import (
	"fmt"
	"testing"
)

// scalarScale is the plain loop the resampler would use without SIMD.
func scalarScale(dst, a []float32, s float32) {
	for i, v := range a {
		dst[i] = v * s
	}
}

// Batch sizes cover the smallest and largest stereo resample passes.
var normalizeSizes = []int{32, 256, 2048}

func BenchmarkNormalize(b *testing.B) {
	ops := Float32Ops()
	for _, n := range normalizeSizes {
		block := make([]float32, n)
		for i := range block {
			block[i] = float32(i - n/2)
		}

		b.Run(fmt.Sprintf("simd/%d", n), func(b *testing.B) {
			b.ReportAllocs()
			for b.Loop() {
				ops.Scale(block, block, 1.0/32768.0)
			}
		})
		b.Run(fmt.Sprintf("scalar/%d", n), func(b *testing.B) {
			b.ReportAllocs()
			for b.Loop() {
				scalarScale(block, block, 1.0/32768.0)
			}
		})
	}
}
