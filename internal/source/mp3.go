package source

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	gomp3 "github.com/hajimehoshi/go-mp3"
)

// mp3Reader is the subset of gomp3.Decoder the source needs.
type mp3Reader interface {
	Read([]byte) (int, error)
	SampleRate() int
}

// MP3Source decodes MPEG-1/2 Layer III audio. go-mp3 always produces
// 16-bit little-endian stereo.
type MP3Source struct {
	dec    mp3Reader
	closer io.Closer
	rate   int
	buf    []byte
	eof    bool
}

// NewMP3 decodes MP3 data from r.
func NewMP3(r io.Reader) (*MP3Source, error) {
	dec, err := gomp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("%w: mp3: %w", ErrInvalidFile, err)
	}
	return newMP3Source(dec), nil
}

func newMP3Source(dec mp3Reader) *MP3Source {
	return &MP3Source{dec: dec, rate: dec.SampleRate()}
}

func (s *MP3Source) SampleRate() int { return s.rate }
func (s *MP3Source) Channels() int   { return mp3Channels }

// Close closes the file opened by Open.
func (s *MP3Source) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// ReadFrames decodes the next frames.
func (s *MP3Source) ReadFrames(dst []int16) (int, error) {
	if s.eof {
		return 0, io.EOF
	}
	frames := len(dst) / mp3Channels
	if frames == 0 {
		return 0, nil
	}

	need := frames * mp3Channels * bytesPerSample16
	if cap(s.buf) < need {
		s.buf = make([]byte, need)
	}
	s.buf = s.buf[:need]

	n, err := io.ReadFull(s.dec, s.buf)
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		s.eof = true
	case err != nil:
		return 0, fmt.Errorf("failed to decode mp3: %w", err)
	}

	got := n / (mp3Channels * bytesPerSample16)
	if got == 0 {
		return 0, io.EOF
	}
	for i := range got * mp3Channels {
		dst[i] = int16(binary.LittleEndian.Uint16(s.buf[i*bytesPerSample16:]))
	}
	return got, nil
}
