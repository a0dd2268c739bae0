package source

import (
	"fmt"
	"io"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WAVSource decodes PCM WAV data of 8, 16, 24 or 32 bits to int16 frames.
type WAVSource struct {
	decoder  *wav.Decoder
	closer   io.Closer
	buf      *audio.IntBuffer
	rate     int
	channels int
	bitDepth int
}

// OpenWAV opens a WAV file.
func OpenWAV(path string) (*WAVSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	src, err := NewWAV(f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	src.closer = f
	return src, nil
}

// NewWAV decodes WAV data from r. The caller keeps ownership of r.
func NewWAV(r io.ReadSeeker) (*WAVSource, error) {
	decoder := wav.NewDecoder(r)
	if !decoder.IsValidFile() {
		return nil, ErrInvalidFile
	}

	format := decoder.Format()
	bitDepth := int(decoder.BitDepth)
	switch bitDepth {
	case bitsPerSample8, bitsPerSample16, bitsPerSample24, bitsPerSample32:
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedBitDepth, bitDepth)
	}
	if format.NumChannels < 1 || format.SampleRate <= 0 {
		return nil, fmt.Errorf("%w: %d channels at %d Hz", ErrInvalidFile, format.NumChannels, format.SampleRate)
	}

	return &WAVSource{
		decoder:  decoder,
		buf:      &audio.IntBuffer{Format: format},
		rate:     format.SampleRate,
		channels: format.NumChannels,
		bitDepth: bitDepth,
	}, nil
}

func (s *WAVSource) SampleRate() int { return s.rate }
func (s *WAVSource) Channels() int   { return s.channels }

// BitDepth returns the bit depth stored in the file.
func (s *WAVSource) BitDepth() int { return s.bitDepth }

// Close closes the file opened by OpenWAV.
func (s *WAVSource) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// ReadFrames decodes the next frames.
func (s *WAVSource) ReadFrames(dst []int16) (int, error) {
	frames := len(dst) / s.channels
	if frames == 0 {
		return 0, nil
	}

	want := frames * s.channels
	if cap(s.buf.Data) < want {
		s.buf.Data = make([]int, want)
	}
	s.buf.Data = s.buf.Data[:want]

	// PCMBuffer reports decoded values, not frames
	n, err := s.decoder.PCMBuffer(s.buf)
	if err != nil {
		return 0, fmt.Errorf("failed to read audio data: %w", err)
	}
	got := n / s.channels
	if got == 0 {
		return 0, io.EOF
	}

	for i, v := range s.buf.Data[:got*s.channels] {
		dst[i] = s.toInt16(v)
	}
	return got, nil
}

func (s *WAVSource) toInt16(v int) int16 {
	switch s.bitDepth {
	case bitsPerSample8:
		return int16((v - unsigned8Midpoint) << shift8To16)
	case bitsPerSample24:
		return int16(v >> shift24To16)
	case bitsPerSample32:
		return int16(v >> shift32To16)
	default:
		return int16(v)
	}
}
