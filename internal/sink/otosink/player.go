// Package otosink plays bridge output on the platform audio device through
// oto. The device pulls float32 frames on its own thread; the bridge pads
// any shortfall with silence, so playback never stalls.
package otosink

import (
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/tphakala/go-audio-bridge/internal/sink"
)

// ErrAlreadyOpen is returned when a second Player is opened. oto allows one
// context per process.
var ErrAlreadyOpen = errors.New("audio device already open")

// Config configures a Player.
type Config struct {
	SampleRate int
	Channels   int

	// BufferSize is the device buffer duration. Zero lets oto choose.
	BufferSize time.Duration

	Logger *slog.Logger
}

// Player owns the oto context and a player reading from the bridge.
type Player struct {
	ctx    *oto.Context
	player *oto.Player
	logger *slog.Logger
}

// opened is claimed by the first Open that gets as far as the device.
var opened atomic.Bool

// Open creates the oto context, waits for the device and starts playback of
// frames pulled from src. It succeeds at most once per process; later calls
// return ErrAlreadyOpen, even after Close. A call that fails before the
// device context exists leaves the claim free.
func Open(src sink.Puller, cfg Config) (*Player, error) {
	if !opened.CompareAndSwap(false, true) {
		return nil, ErrAlreadyOpen
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	reader, err := sink.NewPCMReader(src, cfg.Channels)
	if err != nil {
		opened.Store(false)
		return nil, err
	}

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   cfg.SampleRate,
		ChannelCount: cfg.Channels,
		Format:       oto.FormatFloat32LE,
		BufferSize:   cfg.BufferSize,
	})
	if err != nil {
		opened.Store(false)
		return nil, fmt.Errorf("failed to create oto context: %w", err)
	}
	<-ready

	p := &Player{
		ctx:    ctx,
		player: ctx.NewPlayer(reader),
		logger: cfg.Logger,
	}
	p.player.Play()

	p.logger.Info("audio output started",
		"sample_rate", cfg.SampleRate,
		"channels", cfg.Channels,
		"buffer", cfg.BufferSize)
	return p, nil
}

// Err reports a device or player error, if any.
func (p *Player) Err() error {
	if err := p.ctx.Err(); err != nil {
		return err
	}
	return p.player.Err()
}

// Close stops playback. The oto context stays alive for the process.
func (p *Player) Close() error {
	p.player.Pause()
	if err := p.player.Close(); err != nil {
		return fmt.Errorf("failed to close player: %w", err)
	}
	p.logger.Info("audio output stopped")
	return nil
}
