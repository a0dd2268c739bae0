// Package rate turns noisy per-sample timing hints from an audio producer
// into a stable estimate of its true sample rate.
package rate

import (
	"errors"
	"fmt"
	"math"
)

// Estimator defaults
const (
	// DefaultAlpha is the smoothing factor of the moving average. At 48 kHz a
	// hint per sample gives a time constant of roughly 0.2 s.
	DefaultAlpha = 1e-4

	// DefaultMinRatio and DefaultMaxRatio bound accepted instantaneous rates
	// relative to the nominal rate.
	DefaultMinRatio = 0.4
	DefaultMaxRatio = 1.1

	// DefaultTimeBase expresses hints in microseconds.
	DefaultTimeBase = 1_000_000
)

// Errors returned by NewEstimator.
var (
	ErrInvalidConfig = errors.New("invalid estimator configuration")
)

// EstimatorConfig configures an Estimator.
type EstimatorConfig struct {
	// NominalRate is the expected producer rate in Hz.
	NominalRate float64

	// TimeBase is the number of timing units per second. A hint of
	// unitsPerSample corresponds to an instantaneous rate of
	// TimeBase/unitsPerSample.
	TimeBase float64

	// Alpha is the weight of each new accepted measurement, in (0, 1].
	Alpha float64

	// MinRatio and MaxRatio define the sanity band
	// [MinRatio*NominalRate, MaxRatio*NominalRate].
	MinRatio float64
	MaxRatio float64
}

// WithDefaults returns a copy of c with zero fields replaced by defaults.
func (c EstimatorConfig) WithDefaults() EstimatorConfig {
	if c.TimeBase == 0 {
		c.TimeBase = DefaultTimeBase
	}
	if c.Alpha == 0 {
		c.Alpha = DefaultAlpha
	}
	if c.MinRatio == 0 {
		c.MinRatio = DefaultMinRatio
	}
	if c.MaxRatio == 0 {
		c.MaxRatio = DefaultMaxRatio
	}
	return c
}

// Validate checks the configuration.
func (c EstimatorConfig) Validate() error {
	var errs []error
	if !(c.NominalRate > 0) || math.IsInf(c.NominalRate, 0) {
		errs = append(errs, fmt.Errorf("nominal rate must be positive, got %v", c.NominalRate))
	}
	if !(c.TimeBase > 0) || math.IsInf(c.TimeBase, 0) {
		errs = append(errs, fmt.Errorf("time base must be positive, got %v", c.TimeBase))
	}
	if !(c.Alpha > 0 && c.Alpha <= 1) {
		errs = append(errs, fmt.Errorf("alpha must be in (0, 1], got %v", c.Alpha))
	}
	if !(c.MinRatio > 0) || !(c.MaxRatio > c.MinRatio) {
		errs = append(errs, fmt.Errorf("rate band must satisfy 0 < min < max, got [%v, %v]", c.MinRatio, c.MaxRatio))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// Estimator is an exponential moving average over instantaneous rates
// derived from timing hints. Implausible hints are rejected.
//
// An Estimator is not safe for concurrent use; the bridge feeds it from the
// producer goroutine only.
type Estimator struct {
	cfg      EstimatorConfig
	minRate  float64
	maxRate  float64
	estimate float64
	last     float64
	accepted uint64
	rejected uint64
}

// NewEstimator creates an estimator. Zero fields of cfg take defaults.
func NewEstimator(cfg EstimatorConfig) (*Estimator, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Estimator{
		cfg:     cfg,
		minRate: cfg.MinRatio * cfg.NominalRate,
		maxRate: cfg.MaxRatio * cfg.NominalRate,
	}, nil
}

// Observe folds in a hint expressed in the configured time base.
// It reports whether the hint was accepted.
func (e *Estimator) Observe(unitsPerSample float64) bool {
	return e.ObserveWithTimeBase(unitsPerSample, e.cfg.TimeBase)
}

// ObserveWithTimeBase folds in a hint expressed in timeBase units per second.
func (e *Estimator) ObserveWithTimeBase(unitsPerSample, timeBase float64) bool {
	if !(unitsPerSample > 0) || !(timeBase > 0) {
		e.rejected++
		return false
	}

	instant := timeBase / unitsPerSample
	if math.IsInf(instant, 0) || math.IsNaN(instant) || instant < e.minRate || instant > e.maxRate {
		e.rejected++
		return false
	}

	if e.estimate == 0 {
		e.estimate = instant
	} else {
		e.estimate += e.cfg.Alpha * (instant - e.estimate)
	}
	e.last = instant
	e.accepted++
	return true
}

// Estimate returns the smoothed rate in Hz, or 0 before the first accepted hint.
func (e *Estimator) Estimate() float64 {
	return e.estimate
}

// Measured reports whether at least one hint has been accepted.
func (e *Estimator) Measured() bool {
	return e.estimate > 0
}

// Last returns the most recent accepted instantaneous rate.
func (e *Estimator) Last() float64 {
	return e.last
}

// Accepted returns the number of accepted hints.
func (e *Estimator) Accepted() uint64 {
	return e.accepted
}

// Rejected returns the number of rejected hints.
func (e *Estimator) Rejected() uint64 {
	return e.rejected
}

// Band returns the accepted instantaneous rate range in Hz.
func (e *Estimator) Band() (minRate, maxRate float64) {
	return e.minRate, e.maxRate
}

// Config returns the effective configuration.
func (e *Estimator) Config() EstimatorConfig {
	return e.cfg
}
