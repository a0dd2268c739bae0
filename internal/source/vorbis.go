package source

import (
	"errors"
	"fmt"
	"io"

	"github.com/jfreymuth/oggvorbis"
)

// oggReader is the subset of oggvorbis.Reader the source needs.
type oggReader interface {
	SampleRate() int
	Channels() int
	Read([]float32) (int, error)
}

// VorbisSource decodes Ogg Vorbis audio and converts it to int16.
type VorbisSource struct {
	dec      oggReader
	closer   io.Closer
	rate     int
	channels int
	buf      []float32
	eof      bool
}

// NewVorbis decodes Ogg Vorbis data from r.
func NewVorbis(r io.Reader) (*VorbisSource, error) {
	dec, err := oggvorbis.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: vorbis: %w", ErrInvalidFile, err)
	}
	return newVorbisSource(dec), nil
}

func newVorbisSource(dec oggReader) *VorbisSource {
	return &VorbisSource{dec: dec, rate: dec.SampleRate(), channels: dec.Channels()}
}

func (s *VorbisSource) SampleRate() int { return s.rate }
func (s *VorbisSource) Channels() int   { return s.channels }

// Close closes the file opened by Open.
func (s *VorbisSource) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// ReadFrames decodes the next frames.
func (s *VorbisSource) ReadFrames(dst []int16) (int, error) {
	if s.eof {
		return 0, io.EOF
	}
	want := (len(dst) / s.channels) * s.channels
	if want == 0 {
		return 0, nil
	}
	if cap(s.buf) < want {
		s.buf = make([]float32, want)
	}
	s.buf = s.buf[:want]

	// Read returns values (frames * channels), always a whole number of frames
	total := 0
	for total < want {
		n, err := s.dec.Read(s.buf[total:])
		total += n
		if errors.Is(err, io.EOF) {
			s.eof = true
			break
		}
		if err != nil {
			return 0, fmt.Errorf("failed to decode vorbis: %w", err)
		}
		if n == 0 {
			break
		}
	}

	got := total / s.channels
	if got == 0 {
		return 0, io.EOF
	}
	for i, v := range s.buf[:got*s.channels] {
		dst[i] = floatToInt16(v)
	}
	return got, nil
}
