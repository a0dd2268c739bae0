package bridge

import (
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"

	"github.com/tphakala/go-audio-bridge/internal/engine"
	"github.com/tphakala/go-audio-bridge/internal/pipeline"
	"github.com/tphakala/go-audio-bridge/internal/rate"
)

// Coordinator is the two-stage rate-adaptive pipeline. Create it with New.
type Coordinator struct {
	cfg    Config
	logger *slog.Logger

	input     *pipeline.RingBuffer[int16]
	output    *pipeline.RingBuffer[float32]
	resampler *engine.Resampler
	estimator *rate.Estimator

	// Producer-owned scratch
	frame   []int16 // one frame for Push
	evicted []int16 // one frame dropped on input overrun
	batch   []int16 // MaxBatch frames read from the input ring
	scratch []float32

	state  atomic.Int32
	closed atomic.Bool

	// Published for readers on other goroutines
	estimate atomic.Uint64 // math.Float64bits

	pushCalls       atomic.Uint64
	resampleCalls   atomic.Uint64
	inputOverruns   atomic.Uint64
	outputOverruns  atomic.Uint64
	droppedFrames   atomic.Uint64
	underruns       atomic.Uint64
	rejectedHints   atomic.Uint64
	framesIn        atomic.Uint64
	framesResampled atomic.Uint64
	framesPulled    atomic.Uint64
	silentFrames    atomic.Uint64
	scratchGrowths  atomic.Uint64
}

// New validates cfg, applies defaults and allocates both ring buffers.
// The resampler is initialized lazily on the first resample pass, so the
// first accepted hint can set its starting rate.
func New(cfg Config) (*Coordinator, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	input, err := pipeline.NewRingBuffer[int16](cfg.InputCapacity, cfg.Channels)
	if err != nil {
		return nil, fmt.Errorf("%w: input buffer: %w", ErrInvalidConfig, err)
	}
	output, err := pipeline.NewRingBuffer[float32](cfg.OutputCapacity, cfg.Channels)
	if err != nil {
		return nil, fmt.Errorf("%w: output buffer: %w", ErrInvalidConfig, err)
	}
	estimator, err := rate.NewEstimator(cfg.estimatorConfig())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	c := &Coordinator{
		cfg:       cfg,
		logger:    cfg.Logger.With("pipeline", cfg.Name),
		input:     input,
		output:    output,
		resampler: engine.NewResampler(),
		estimator: estimator,
		frame:     make([]int16, cfg.Channels),
		evicted:   make([]int16, cfg.Channels),
		batch:     make([]int16, cfg.MaxBatch*cfg.Channels),
	}
	c.state.Store(int32(StateInitialized))

	c.logger.Debug("bridge created",
		"output_rate", cfg.OutputRate,
		"channels", cfg.Channels,
		"input_capacity", input.Capacity(),
		"output_capacity", output.Capacity(),
		"nominal_input_rate", cfg.NominalInputRate)

	return c, nil
}

// Config returns the effective configuration.
func (c *Coordinator) Config() Config {
	return c.cfg
}

// Push appends one stereo frame with its timing hint. On a mono pipeline
// the two channels are averaged; on wider pipelines the remaining channels
// are silent. A non-positive hint means "no timing information".
//
// Producer goroutine only.
func (c *Coordinator) Push(left, right int16, unitsPerSample float32) {
	switch len(c.frame) {
	case 1:
		c.frame[0] = int16((int32(left) + int32(right)) / 2)
	default:
		c.frame[0], c.frame[1] = left, right
	}
	c.pushCalls.Add(1)
	c.push(c.frame, float64(unitsPerSample))
}

// PushFrame appends one interleaved frame of Channels samples. Frames
// shorter than Channels are ignored.
//
// Producer goroutine only.
func (c *Coordinator) PushFrame(frame []int16, unitsPerSample float64) {
	c.pushCalls.Add(1)
	if len(frame) < c.cfg.Channels {
		return
	}
	c.push(frame[:c.cfg.Channels], unitsPerSample)
}

// PushBatch appends interleaved frames that share one timing hint. Each
// frame goes through the same path as PushFrame, including a resample pass
// check, so rate tracking keeps its per-frame granularity. A trailing
// partial frame is ignored.
//
// Producer goroutine only.
func (c *Coordinator) PushBatch(frames []int16, unitsPerSample float64) {
	c.pushCalls.Add(1)
	ch := c.cfg.Channels
	for i := 0; i+ch <= len(frames); i += ch {
		c.push(frames[i:i+ch], unitsPerSample)
	}
}

func (c *Coordinator) push(frame []int16, unitsPerSample float64) {
	if c.closed.Load() {
		return
	}

	if !c.input.Write(frame, 1) {
		// Keep the newest audio: drop the oldest frame and retry once
		c.input.Read(c.evicted, 1)
		c.input.Write(frame, 1)
		if c.inputOverruns.Add(1) == 1 {
			c.logger.Warn("input buffer full, evicting oldest frames",
				"capacity", c.input.Capacity())
		}
	}
	c.framesIn.Add(1)

	c.observe(unitsPerSample)
	c.resamplePass()
}

func (c *Coordinator) observe(unitsPerSample float64) {
	if !(unitsPerSample > 0) {
		return
	}
	if c.estimator.Observe(unitsPerSample) {
		c.estimate.Store(math.Float64bits(c.estimator.Estimate()))
		return
	}
	if n := c.rejectedHints.Add(1); n <= rejectedHintLogLimit {
		lo, hi := c.estimator.Band()
		c.logger.Warn("rejected outlier rate hint",
			"units_per_sample", unitsPerSample,
			"rate_hz", c.cfg.TimeBase/unitsPerSample,
			"band_min_hz", lo,
			"band_max_hz", hi)
	}
}

// resamplePass moves up to MaxBatch frames from the input ring through the
// resampler into the output ring once MinBatch frames are waiting.
func (c *Coordinator) resamplePass() {
	if c.input.AvailableRead() < c.cfg.MinBatch {
		return
	}

	read := c.input.Read(c.batch, c.cfg.MaxBatch)
	if read <= 0 {
		return
	}
	c.resampleCalls.Add(1)

	inputRate := c.cfg.NominalInputRate
	if c.estimator.Measured() {
		inputRate = c.estimator.Estimate()
	}

	if !c.resampler.IsInitialized() {
		if err := c.resampler.Initialize(inputRate, c.cfg.OutputRate, c.cfg.Channels); err != nil {
			c.logger.Error("resampler initialization failed", "error", err)
			return
		}
		c.state.CompareAndSwap(int32(StateInitialized), int32(StateTracking))
		c.logger.Info("resampler initialized",
			"input_rate_hz", inputRate,
			"output_rate_hz", c.cfg.OutputRate,
			"measured", c.estimator.Measured())
	} else if c.estimator.Measured() {
		c.resampler.SetInputRate(inputRate)
	}

	capacity := int(float64(read)*float64(c.cfg.OutputRate)/inputRate) + c.cfg.Headroom
	c.ensureScratch(capacity)

	n := c.resampler.Process(c.batch, read, c.scratch, capacity)
	if n <= 0 {
		return
	}

	if !c.output.Write(c.scratch, n) {
		c.droppedFrames.Add(uint64(n))
		if overruns := c.outputOverruns.Add(1); overruns%outputOverrunLogInterval == 1 {
			c.logger.Warn("output buffer full, dropping resampled batch",
				"frames", n,
				"overruns", overruns,
				"fill", c.output.FillPercent())
		}
		return
	}
	c.framesResampled.Add(uint64(n))
}

// ensureScratch grows the resampled-frame scratch buffer geometrically so
// steady-state passes never allocate.
func (c *Coordinator) ensureScratch(frames int) {
	need := frames * c.cfg.Channels
	if len(c.scratch) >= need {
		return
	}
	c.scratch = make([]float32, need*scratchGrowthFactor)
	c.scratchGrowths.Add(1)
	c.logger.Debug("scratch buffer expanded", "frames", frames*scratchGrowthFactor)
}

// Pull fills out with requestedFrames interleaved frames and returns
// requestedFrames. When the output ring holds fewer frames the remainder
// is silence and an underrun is counted. It returns 0 only for invalid
// arguments: non-positive requestedFrames or an out slice shorter than
// requestedFrames*Channels.
//
// Consumer goroutine only. Pull never blocks and never allocates.
func (c *Coordinator) Pull(out []float32, requestedFrames int) int {
	ch := c.cfg.Channels
	if requestedFrames <= 0 || len(out) < requestedFrames*ch {
		return 0
	}

	if c.closed.Load() {
		clear(out[:requestedFrames*ch])
		return requestedFrames
	}

	n := c.output.Read(out, requestedFrames)
	c.framesPulled.Add(uint64(n))
	if n < requestedFrames {
		clear(out[n*ch : requestedFrames*ch])
		c.underruns.Add(1)
		c.silentFrames.Add(uint64(requestedFrames - n))
	}
	return requestedFrames
}

// FillPercent returns the output ring occupancy in [0, 1).
func (c *Coordinator) FillPercent() float32 {
	return c.output.FillPercent()
}

// BufferedFrames returns the number of resampled frames waiting for Pull.
func (c *Coordinator) BufferedFrames() int {
	return c.output.AvailableRead()
}

// EstimatedRate returns the current producer rate estimate in Hz, or 0
// before the first accepted hint.
func (c *Coordinator) EstimatedRate() float64 {
	return math.Float64frombits(c.estimate.Load())
}

// State returns the lifecycle state.
func (c *Coordinator) State() State {
	return State(c.state.Load())
}

// Close stops the pipeline. Later pushes are ignored and Pull returns
// silence. Close is idempotent and always returns nil.
func (c *Coordinator) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	c.state.Store(int32(StateClosed))

	s := c.Stats()
	c.logger.Info("bridge closed",
		"frames_in", s.FramesIn,
		"frames_resampled", s.FramesResampled,
		"frames_pulled", s.FramesPulled,
		"underruns", s.Underruns,
		"input_overruns", s.InputOverruns,
		"output_overruns", s.OutputOverruns,
		"rejected_hints", s.RejectedHints,
		"estimated_rate_hz", s.EstimatedRate)
	return nil
}
