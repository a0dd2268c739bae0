package bridge

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/tphakala/go-audio-bridge/internal/pipeline"
	"github.com/tphakala/go-audio-bridge/internal/rate"
)

// Config holds pipeline configuration. Zero values take defaults, see
// WithDefaults.
type Config struct {
	// OutputRate is the consumer sample rate in Hz. Required.
	OutputRate int

	// Channels is the number of interleaved channels per frame. Required.
	Channels int

	// InputCapacity is the input ring size in frames, rounded up to a power
	// of two. Defaults to 10 ms at the output rate, but never less than
	// twice MinBatch.
	InputCapacity int

	// OutputCapacity is the output ring size in frames, rounded up to a
	// power of two. Defaults to 1920 frames.
	OutputCapacity int

	// MinBatch is the input occupancy that triggers a resample pass.
	MinBatch int

	// MaxBatch caps the frames consumed by one resample pass.
	MaxBatch int

	// Headroom is added to the expected output frames of each pass when
	// sizing the scratch buffer.
	Headroom int

	// TimeBase is the number of hint units per second.
	TimeBase float64

	// NominalInputRate is the expected producer rate in Hz. It sets the
	// centre of the hint sanity band and the resampler rate until the first
	// hint is accepted. Defaults to OutputRate.
	NominalInputRate float64

	// Alpha is the weight of each accepted hint in the rate average.
	Alpha float64

	// MinRateRatio and MaxRateRatio bound accepted instantaneous rates as
	// multiples of NominalInputRate.
	MinRateRatio float64
	MaxRateRatio float64

	// Logger receives rare pipeline events. Defaults to slog.Default().
	// Push logs from the producer goroutine: the first input overrun, the
	// first few rejected hints, every 100th output overrun and resampler
	// start. Real-time producers should pass a handler that does not block,
	// such as one writing to a buffered channel or slog.DiscardHandler.
	Logger *slog.Logger

	// Name identifies the pipeline in logs and metrics. Defaults to a
	// random "bridge-xxxxxxxx".
	Name string
}

// Common errors returned by the bridge.
var (
	// ErrInvalidConfig indicates invalid configuration parameters.
	ErrInvalidConfig = errors.New("invalid bridge configuration")
)

// WithDefaults returns a copy of c with zero fields replaced by defaults.
func (c Config) WithDefaults() Config {
	if c.MinBatch == 0 {
		c.MinBatch = DefaultMinBatch
	}
	if c.MaxBatch == 0 {
		c.MaxBatch = DefaultMaxBatch
	}
	if c.Headroom == 0 {
		c.Headroom = DefaultHeadroom
	}
	if c.InputCapacity == 0 {
		c.InputCapacity = max(c.OutputRate/inputCapacityDivisor, 2*c.MinBatch)
	}
	if c.OutputCapacity == 0 {
		c.OutputCapacity = DefaultOutputCapacity
	}
	if c.TimeBase == 0 {
		c.TimeBase = DefaultTimeBase
	}
	if c.NominalInputRate == 0 {
		c.NominalInputRate = float64(c.OutputRate)
	}
	if c.Alpha == 0 {
		c.Alpha = rate.DefaultAlpha
	}
	if c.MinRateRatio == 0 {
		c.MinRateRatio = rate.DefaultMinRatio
	}
	if c.MaxRateRatio == 0 {
		c.MaxRateRatio = rate.DefaultMaxRatio
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Name == "" {
		c.Name = namePrefix + uuid.NewString()[:nameSuffixLen]
	}
	return c
}

// Validate checks if the configuration is valid. It expects defaults to
// have been applied and reports every problem found.
func (c Config) Validate() error {
	var errs []error

	if c.OutputRate <= 0 {
		errs = append(errs, fmt.Errorf("output rate must be positive, got %d", c.OutputRate))
	}
	if c.Channels < 1 || c.Channels > pipeline.MaxChannels {
		errs = append(errs, fmt.Errorf("channels must be 1-%d, got %d", pipeline.MaxChannels, c.Channels))
	}
	if c.MinBatch < 1 || c.MaxBatch < c.MinBatch {
		errs = append(errs, fmt.Errorf("batch bounds must satisfy 1 <= min <= max, got [%d, %d]", c.MinBatch, c.MaxBatch))
	}
	if c.InputCapacity <= c.MinBatch || c.InputCapacity > pipeline.MaxCapacityFrames {
		errs = append(errs, fmt.Errorf("input capacity must exceed min batch %d (max %d), got %d",
			c.MinBatch, pipeline.MaxCapacityFrames, c.InputCapacity))
	}
	if c.OutputCapacity < 1 || c.OutputCapacity > pipeline.MaxCapacityFrames {
		errs = append(errs, fmt.Errorf("output capacity must be 1-%d, got %d", pipeline.MaxCapacityFrames, c.OutputCapacity))
	}
	if c.Headroom < 0 {
		errs = append(errs, fmt.Errorf("headroom must not be negative, got %d", c.Headroom))
	}
	if err := c.estimatorConfig().Validate(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

func (c Config) estimatorConfig() rate.EstimatorConfig {
	return rate.EstimatorConfig{
		NominalRate: c.NominalInputRate,
		TimeBase:    c.TimeBase,
		Alpha:       c.Alpha,
		MinRatio:    c.MinRateRatio,
		MaxRatio:    c.MaxRateRatio,
	}
}

// State is the coordinator lifecycle state.
type State int32

const (
	// StateInitialized means buffers exist but no audio has been resampled.
	StateInitialized State = iota

	// StateTracking means the resampler has been initialized and follows
	// the rate estimate. When no hint has been accepted by the first
	// resample pass it starts at the nominal input rate and switches to the
	// estimate once one exists. Entered once.
	StateTracking

	// StateClosed means Close has been called.
	StateClosed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateInitialized:
		return "initialized"
	case StateTracking:
		return "tracking"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}
