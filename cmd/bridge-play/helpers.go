package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"

	bridge "github.com/tphakala/go-audio-bridge"
	"github.com/tphakala/go-audio-bridge/internal/config"
	"github.com/tphakala/go-audio-bridge/internal/observe"
	"github.com/tphakala/go-audio-bridge/internal/source"
)

const (
	ppmScale          = 1e6
	readHeaderTimeout = 5 * time.Second
	serviceName       = "bridge-play"
)

// producer is a source wired to a bridge through a feeder.
type producer struct {
	src    source.Source
	bridge *bridge.Coordinator
	feeder *source.Feeder
	rate   float64 // true push rate, Hz
}

func openProducer(cfg *config.Config, logger *slog.Logger) (*producer, error) {
	var (
		src  source.Source
		rate float64
	)
	if cfg.Producer.Source == config.SourceTone {
		tone, err := source.NewTone(cfg.Tone())
		if err != nil {
			return nil, err
		}
		src, rate = tone, tone.TrueRate()
	} else {
		s, err := source.Open(cfg.Producer.Source)
		if err != nil {
			return nil, err
		}
		src = s
		rate = float64(s.SampleRate()) * (1 + cfg.Producer.DriftPPM/ppmScale)
	}

	bc := cfg.ToBridge(logger)
	if bc.NominalInputRate == 0 {
		bc.NominalInputRate = float64(src.SampleRate())
	}
	b, err := bridge.New(bc)
	if err != nil {
		_ = src.Close()
		return nil, err
	}
	bc = b.Config()

	feeder, err := source.NewFeeder(src, b, source.FeederConfig{
		Channels:    bc.Channels,
		BatchFrames: cfg.Producer.Batch,
		TimeBase:    bc.TimeBase,
		Rate:        rate,
	})
	if err != nil {
		_ = b.Close()
		_ = src.Close()
		return nil, err
	}

	logger.Info("producer opened",
		"source", cfg.Producer.Source,
		"nominal_rate", src.SampleRate(),
		"true_rate", rate,
		"channels", src.Channels())
	return &producer{src: src, bridge: b, feeder: feeder, rate: rate}, nil
}

func (p *producer) close() {
	_ = p.bridge.Close()
	_ = p.src.Close()
}

// metricsServer exposes bridge metrics for Prometheus scraping.
type metricsServer struct {
	srv      *http.Server
	ln       net.Listener
	metrics  *observe.Metrics
	shutdown func(context.Context) error
}

func newMetricsServer(ctx context.Context, addr string, src observe.StatsSource, name string) (*metricsServer, error) {
	shutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceName: serviceName})
	if err != nil {
		return nil, err
	}
	m, err := observe.NewMetrics(otel.GetMeterProvider(), src, name)
	if err != nil {
		_ = shutdown(ctx)
		return nil, err
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		_ = m.Unregister()
		_ = shutdown(ctx)
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())
	return &metricsServer{
		srv:      &http.Server{Handler: mux, ReadHeaderTimeout: readHeaderTimeout},
		ln:       ln,
		metrics:  m,
		shutdown: shutdown,
	}, nil
}

// Addr returns the bound listen address.
func (s *metricsServer) Addr() string { return s.ln.Addr().String() }

// serve blocks until ctx ends, then shuts the server and provider down.
func (s *metricsServer) serve(ctx context.Context, logger *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() { errCh <- s.srv.Serve(s.ln) }()
	logger.Info("metrics listening", "addr", s.Addr())

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := errors.Join(
		s.srv.Shutdown(shutdownCtx),
		s.metrics.Unregister(),
		s.shutdown(shutdownCtx),
	)
	if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
		return fmt.Errorf("metrics server: %w", serveErr)
	}
	return err
}
