// Package bridge connects an audio producer running at a drifting,
// approximately known rate to a consumer that must be fed at a fixed,
// precisely known rate on a hard real-time deadline.
//
// The producer never blocks and the consumer never waits. Audio flows
// through two lock-free single-producer/single-consumer ring buffers with a
// linear-interpolation resampler between them:
//
//	producer ──Push──▶ input ring (int16, producer rate)
//	                      │
//	                      ▼  resample pass (producer goroutine)
//	                   resampler ◀── rate estimator ◀── timing hints
//	                      │
//	                      ▼
//	                output ring (float32, consumer rate) ──Pull──▶ consumer
//
// # Quick Start
//
//	c, err := bridge.New(bridge.Config{OutputRate: 48000, Channels: 2})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Producer goroutine: one frame at a time with a timing hint
//	// (time units per sample, microseconds by default).
//	c.Push(left, right, bridge.HintForRate32(48011, bridge.DefaultTimeBase))
//
//	// Consumer goroutine: always gets exactly the requested frames.
//	out := make([]float32, 480*2)
//	c.Pull(out, 480)
//
// # Rate Tracking
//
// Each pushed frame may carry a hint of how many time units elapsed per
// sample. The estimator converts hints to instantaneous rates, rejects
// values outside a sanity band around the nominal rate, and smooths the
// rest with an exponential moving average. The resampler follows the
// estimate, so the output ring stays at a stable occupancy even when the
// producer runs a few hundred ppm fast or slow.
//
// # Failure Policy
//
// Nothing on the audio path returns an error. A full input ring evicts its
// oldest frame, a full output ring drops the resampled batch, an empty
// output ring is padded with silence, and an implausible hint is ignored.
// Every such event is counted in [Stats].
//
// # Concurrency
//
// Push, PushFrame and PushBatch must be called from a single producer
// goroutine; Pull from a single consumer goroutine. Stats, FillPercent,
// State and Close are safe from any goroutine.
package bridge
