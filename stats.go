package bridge

import "fmt"

// Stats is a snapshot of pipeline counters. Counters are monotonically
// increasing for the life of the coordinator.
type Stats struct {
	PushCalls      uint64 // calls to Push, PushFrame and PushBatch
	ResampleCalls  uint64 // resample passes that read input
	InputOverruns  uint64 // frames evicted from a full input ring
	OutputOverruns uint64 // resampled batches dropped on a full output ring
	DroppedFrames  uint64 // frames in those dropped batches
	Underruns      uint64 // Pull calls that were padded with silence
	RejectedHints  uint64 // positive hints outside the sanity band

	FramesIn        uint64 // frames accepted into the input ring
	FramesResampled uint64 // frames written to the output ring
	FramesPulled    uint64 // frames delivered from the output ring
	SilentFrames    uint64 // zero frames substituted by Pull
	ScratchGrowths  uint64 // scratch buffer reallocations

	EstimatedRate float64 // Hz, 0 until the first accepted hint
	InputFill     float32 // input ring occupancy in [0, 1)
	OutputFill    float32 // output ring occupancy in [0, 1)
	Tracking      bool    // resampler initialized
}

// Stats returns a snapshot of the pipeline counters. Safe from any goroutine.
// Counters are read individually, so a snapshot taken while audio flows
// may be off by one batch between related fields.
func (c *Coordinator) Stats() Stats {
	state := c.State()
	return Stats{
		PushCalls:       c.pushCalls.Load(),
		ResampleCalls:   c.resampleCalls.Load(),
		InputOverruns:   c.inputOverruns.Load(),
		OutputOverruns:  c.outputOverruns.Load(),
		DroppedFrames:   c.droppedFrames.Load(),
		Underruns:       c.underruns.Load(),
		RejectedHints:   c.rejectedHints.Load(),
		FramesIn:        c.framesIn.Load(),
		FramesResampled: c.framesResampled.Load(),
		FramesPulled:    c.framesPulled.Load(),
		SilentFrames:    c.silentFrames.Load(),
		ScratchGrowths:  c.scratchGrowths.Load(),
		EstimatedRate:   c.EstimatedRate(),
		InputFill:       c.input.FillPercent(),
		OutputFill:      c.output.FillPercent(),
		Tracking:        state == StateTracking || (state == StateClosed && c.resampleCalls.Load() > 0),
	}
}

// String formats the snapshot on one line.
func (s Stats) String() string {
	return fmt.Sprintf("rate=%.2fHz out=%.1f%% in=%.1f%% resampled=%d pulled=%d silent=%d underruns=%d overruns=%d/%d rejected=%d",
		s.EstimatedRate, s.OutputFill*100, s.InputFill*100,
		s.FramesResampled, s.FramesPulled, s.SilentFrames,
		s.Underruns, s.InputOverruns, s.OutputOverruns, s.RejectedHints)
}
