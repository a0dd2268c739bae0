// Package config provides the YAML configuration schema and loader for the
// bridge tools.
package config

import (
	"log/slog"
	"time"

	bridge "github.com/tphakala/go-audio-bridge"
	"github.com/tphakala/go-audio-bridge/internal/source"
)

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Level maps l to a slog level. Unknown levels map to info.
func (l LogLevel) Level() slog.Level {
	switch l {
	case LogDebug:
		return slog.LevelDebug
	case LogWarn:
		return slog.LevelWarn
	case LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SourceTone selects the synthetic tone producer.
const SourceTone = "tone"

// Config is the root configuration document.
type Config struct {
	Pipeline    PipelineConfig   `yaml:"pipeline"`
	Producer    ProducerConfig   `yaml:"producer"`
	Consumer    ConsumerConfig   `yaml:"consumer"`
	Simulation  SimulationConfig `yaml:"simulation"`
	LogLevel    LogLevel         `yaml:"log_level"`
	MetricsAddr string           `yaml:"metrics_addr"`
}

// PipelineConfig mirrors bridge.Config. Zero values take the bridge
// defaults.
type PipelineConfig struct {
	OutputRate       int     `yaml:"output_rate"`
	Channels         int     `yaml:"channels"`
	InputCapacity    int     `yaml:"input_capacity"`
	OutputCapacity   int     `yaml:"output_capacity"`
	MinBatch         int     `yaml:"min_batch"`
	MaxBatch         int     `yaml:"max_batch"`
	Headroom         int     `yaml:"headroom"`
	TimeBase         float64 `yaml:"time_base"`
	NominalInputRate float64 `yaml:"nominal_input_rate"`
	Alpha            float64 `yaml:"alpha"`
	MinRateRatio     float64 `yaml:"min_rate_ratio"`
	MaxRateRatio     float64 `yaml:"max_rate_ratio"`
	Name             string  `yaml:"name"`
}

// ProducerConfig describes the audio producer.
type ProducerConfig struct {
	// Source is "tone" or a path to a WAV, MP3 or Ogg Vorbis file.
	Source string `yaml:"source"`

	// ToneHz is the tone frequency.
	ToneHz float64 `yaml:"tone_hz"`

	// RateHz is the nominal producer rate. File sources use their own rate
	// when zero.
	RateHz int `yaml:"rate_hz"`

	// DriftPPM offsets the producer's true clock from RateHz.
	DriftPPM float64 `yaml:"drift_ppm"`

	// Jitter is the relative peak error of each timing hint.
	Jitter float64 `yaml:"jitter"`

	// Batch is the number of frames read from the source at a time.
	Batch int `yaml:"batch"`
}

// ConsumerConfig describes the pulling side.
type ConsumerConfig struct {
	PeriodMS int     `yaml:"period_ms"`
	Frames   int     `yaml:"frames"`
	Prefill  float32 `yaml:"prefill"`
}

// SimulationConfig controls bridge-sim runs.
type SimulationConfig struct {
	Seconds  float64 `yaml:"seconds"`
	Output   string  `yaml:"output"`
	Realtime bool    `yaml:"realtime"`
}

// Default returns the configuration used when no file is given: a stereo
// 48 kHz pipeline fed by a 1 kHz tone running 11 Hz fast.
func Default() Config {
	return Config{
		Pipeline: PipelineConfig{
			OutputRate:     48000,
			Channels:       2,
			InputCapacity:  480,
			OutputCapacity: 9600,
		},
		Producer: ProducerConfig{
			Source:   SourceTone,
			ToneHz:   1000,
			RateHz:   48000,
			DriftPPM: 229.166,
		},
		Consumer: ConsumerConfig{
			PeriodMS: 10,
			Frames:   480,
			Prefill:  0.5,
		},
		Simulation: SimulationConfig{
			Seconds: 10,
		},
		LogLevel: LogInfo,
	}
}

// ToBridge maps the pipeline section to a bridge configuration.
func (c *Config) ToBridge(logger *slog.Logger) bridge.Config {
	p := c.Pipeline
	return bridge.Config{
		OutputRate:       p.OutputRate,
		Channels:         p.Channels,
		InputCapacity:    p.InputCapacity,
		OutputCapacity:   p.OutputCapacity,
		MinBatch:         p.MinBatch,
		MaxBatch:         p.MaxBatch,
		Headroom:         p.Headroom,
		TimeBase:         p.TimeBase,
		NominalInputRate: p.NominalInputRate,
		Alpha:            p.Alpha,
		MinRateRatio:     p.MinRateRatio,
		MaxRateRatio:     p.MaxRateRatio,
		Logger:           logger,
		Name:             p.Name,
	}
}

// Tone maps the producer section to a tone configuration.
func (c *Config) Tone() source.ToneConfig {
	return source.ToneConfig{
		Frequency: c.Producer.ToneHz,
		Rate:      c.Producer.RateHz,
		DriftPPM:  c.Producer.DriftPPM,
		Jitter:    c.Producer.Jitter,
		TimeBase:  c.Pipeline.TimeBase,
		Channels:  c.Pipeline.Channels,
	}
}

// Period returns the consumer pull interval.
func (c *Config) Period() time.Duration {
	return time.Duration(c.Consumer.PeriodMS) * time.Millisecond
}

// Duration returns the simulation length.
func (c *Config) Duration() time.Duration {
	return time.Duration(c.Simulation.Seconds * float64(time.Second))
}
