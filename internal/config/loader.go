package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path over [Default] and returns
// a validated [Config]. It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r over [Default] and validates
// the result. Unknown keys are rejected. An empty document yields the
// defaults.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.LogLevel != "" && !cfg.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("log_level %q is invalid; valid values: debug, info, warn, error", cfg.LogLevel))
	}

	// Pipeline, checked by the bridge itself with defaults applied
	if err := cfg.ToBridge(nil).WithDefaults().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("pipeline: %w", err))
	}

	// Producer
	if cfg.Producer.Source == "" {
		errs = append(errs, errors.New("producer.source is required; use \"tone\" or a file path"))
	}
	if cfg.Producer.RateHz < 0 {
		errs = append(errs, fmt.Errorf("producer.rate_hz %d must not be negative", cfg.Producer.RateHz))
	}
	if cfg.Producer.Jitter < 0 || cfg.Producer.Jitter >= 1 {
		errs = append(errs, fmt.Errorf("producer.jitter %v is out of range [0, 1)", cfg.Producer.Jitter))
	}
	if cfg.Producer.Batch < 0 {
		errs = append(errs, fmt.Errorf("producer.batch %d must not be negative", cfg.Producer.Batch))
	}

	// Consumer
	if cfg.Consumer.PeriodMS <= 0 {
		errs = append(errs, fmt.Errorf("consumer.period_ms %d must be positive", cfg.Consumer.PeriodMS))
	}
	if cfg.Consumer.Frames < 0 {
		errs = append(errs, fmt.Errorf("consumer.frames %d must not be negative", cfg.Consumer.Frames))
	}
	if cfg.Consumer.Prefill < 0 || cfg.Consumer.Prefill >= 1 {
		errs = append(errs, fmt.Errorf("consumer.prefill %v is out of range [0, 1)", cfg.Consumer.Prefill))
	}

	// Simulation
	if cfg.Simulation.Seconds <= 0 {
		errs = append(errs, fmt.Errorf("simulation.seconds %v must be positive", cfg.Simulation.Seconds))
	}

	return errors.Join(errs...)
}
