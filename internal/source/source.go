// Package source provides audio producers for the bridge: a synthetic tone
// with controllable clock drift and decoders for WAV, MP3 and Ogg Vorbis
// files. All sources deliver interleaved int16 frames, the bridge's input
// representation.
package source

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Source is a pull-based producer of interleaved int16 frames.
type Source interface {
	// SampleRate returns the nominal rate in Hz.
	SampleRate() int

	// Channels returns the number of interleaved channels.
	Channels() int

	// ReadFrames fills dst with up to len(dst)/Channels() frames and returns
	// the number of frames read. It returns io.EOF when no frames remain.
	ReadFrames(dst []int16) (int, error)

	// Close releases the underlying resources.
	Close() error
}

// Hinter is implemented by sources that know their true clock and can
// report the timing hint for each frame they produce.
type Hinter interface {
	Hint() float64
}

// Common errors returned by sources.
var (
	ErrUnsupportedFormat   = errors.New("unsupported audio format")
	ErrUnsupportedBitDepth = errors.New("unsupported bit depth")
	ErrInvalidFile         = errors.New("invalid audio file")
)

// Open opens an audio file and picks the decoder by extension.
func Open(path string) (Source, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".wav", ".wave":
		return OpenWAV(path)
	case ".mp3":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open input file: %w", err)
		}
		src, err := NewMP3(f)
		if err != nil {
			_ = f.Close()
			return nil, err
		}
		src.closer = f
		return src, nil
	case ".ogg", ".oga":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open input file: %w", err)
		}
		src, err := NewVorbis(f)
		if err != nil {
			_ = f.Close()
			return nil, err
		}
		src.closer = f
		return src, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

// floatToInt16 converts a normalized sample to int16, clamping to [-1, 1].
func floatToInt16(v float32) int16 {
	switch {
	case v >= 1:
		return maxInt16
	case v <= -1:
		return -maxInt16
	default:
		return int16(v * maxInt16)
	}
}
