// Package observe exports bridge health as OpenTelemetry metrics.
//
// Instruments are observable: each collection reads one Stats snapshot from
// the bridge, so the audio path records nothing itself. A Prometheus
// exporter bridge is available via [InitProvider]; tests should use
// [NewMetrics] with their own [metric.MeterProvider].
package observe

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	bridge "github.com/tphakala/go-audio-bridge"
)

// meterName is the instrumentation scope name used for all bridge metrics.
const meterName = "github.com/tphakala/go-audio-bridge"

// Attribute keys.
const (
	pipelineKey = attribute.Key("pipeline")
	stageKey    = attribute.Key("stage")
)

// StatsSource is anything that can report bridge counters.
// *bridge.Coordinator satisfies it.
type StatsSource interface {
	Stats() bridge.Stats
}

// Metrics holds the observable instruments registered for one bridge.
type Metrics struct {
	OutputFill    metric.Float64ObservableGauge
	InputFill     metric.Float64ObservableGauge
	RateEstimate  metric.Float64ObservableGauge
	Underruns     metric.Int64ObservableCounter
	Overruns      metric.Int64ObservableCounter // attribute stage=input|output
	RejectedHints metric.Int64ObservableCounter
	FramesPulled  metric.Int64ObservableCounter
	SilentFrames  metric.Int64ObservableCounter

	registration metric.Registration
}

// NewMetrics creates the instruments on mp and registers a callback that
// observes src. name is recorded as the pipeline attribute.
func NewMetrics(mp metric.MeterProvider, src StatsSource, name string) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Gauges.
	if met.OutputFill, err = m.Float64ObservableGauge("bridge.output.fill",
		metric.WithDescription("Occupancy of the resampled output buffer."),
		metric.WithUnit("1"),
	); err != nil {
		return nil, err
	}
	if met.InputFill, err = m.Float64ObservableGauge("bridge.input.fill",
		metric.WithDescription("Occupancy of the raw input buffer."),
		metric.WithUnit("1"),
	); err != nil {
		return nil, err
	}
	if met.RateEstimate, err = m.Float64ObservableGauge("bridge.rate.estimate",
		metric.WithDescription("Estimated producer sample rate."),
		metric.WithUnit("Hz"),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.Underruns, err = m.Int64ObservableCounter("bridge.underruns",
		metric.WithDescription("Pull calls padded with silence."),
	); err != nil {
		return nil, err
	}
	if met.Overruns, err = m.Int64ObservableCounter("bridge.overruns",
		metric.WithDescription("Buffer overruns by stage."),
	); err != nil {
		return nil, err
	}
	if met.RejectedHints, err = m.Int64ObservableCounter("bridge.hints.rejected",
		metric.WithDescription("Timing hints outside the plausible rate band."),
	); err != nil {
		return nil, err
	}
	if met.FramesPulled, err = m.Int64ObservableCounter("bridge.frames.pulled",
		metric.WithDescription("Resampled frames delivered to the consumer."),
		metric.WithUnit("{frame}"),
	); err != nil {
		return nil, err
	}
	if met.SilentFrames, err = m.Int64ObservableCounter("bridge.frames.silent",
		metric.WithDescription("Silent frames substituted on underrun."),
		metric.WithUnit("{frame}"),
	); err != nil {
		return nil, err
	}

	pipeline := metric.WithAttributes(pipelineKey.String(name))
	inputStage := metric.WithAttributes(pipelineKey.String(name), stageKey.String("input"))
	outputStage := metric.WithAttributes(pipelineKey.String(name), stageKey.String("output"))

	met.registration, err = m.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		s := src.Stats()
		o.ObserveFloat64(met.OutputFill, float64(s.OutputFill), pipeline)
		o.ObserveFloat64(met.InputFill, float64(s.InputFill), pipeline)
		if s.EstimatedRate > 0 {
			o.ObserveFloat64(met.RateEstimate, s.EstimatedRate, pipeline)
		}
		o.ObserveInt64(met.Underruns, int64(s.Underruns), pipeline)
		o.ObserveInt64(met.Overruns, int64(s.InputOverruns), inputStage)
		o.ObserveInt64(met.Overruns, int64(s.OutputOverruns), outputStage)
		o.ObserveInt64(met.RejectedHints, int64(s.RejectedHints), pipeline)
		o.ObserveInt64(met.FramesPulled, int64(s.FramesPulled), pipeline)
		o.ObserveInt64(met.SilentFrames, int64(s.SilentFrames), pipeline)
		return nil
	},
		met.OutputFill, met.InputFill, met.RateEstimate,
		met.Underruns, met.Overruns, met.RejectedHints,
		met.FramesPulled, met.SilentFrames,
	)
	if err != nil {
		return nil, fmt.Errorf("observe: register callback: %w", err)
	}
	return met, nil
}

// Unregister stops observing the bridge.
func (m *Metrics) Unregister() error {
	return m.registration.Unregister()
}
