// Package sink provides consumers for the bridge's float32 output: a WAV
// recorder and an io.Reader adapter for pull-based audio players.
package sink

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Sample format constants
const (
	maxInt16         = 32767
	bitsPerSample16  = 16
	bytesPerFloat32  = 4
	wavFormatPCM     = 1
	defaultPullChunk = 512
)

// Common errors returned by sinks.
var (
	ErrClosed        = errors.New("sink closed")
	ErrInvalidFormat = errors.New("invalid sink format")
)

// Puller is the consumer side of the bridge. *bridge.Coordinator satisfies it.
type Puller interface {
	Pull(out []float32, requestedFrames int) int
}

// Float32ToInt16 converts normalized samples to int16, clamping to [-1, 1]
// and scaling by 32767. It converts min(len(dst), len(src)) samples and
// returns that count.
func Float32ToInt16(dst []int16, src []float32) int {
	n := min(len(dst), len(src))
	for i, v := range src[:n] {
		switch {
		case v >= 1:
			dst[i] = maxInt16
		case v <= -1:
			dst[i] = -maxInt16
		default:
			dst[i] = int16(v * maxInt16)
		}
	}
	return n
}

// WAVRecorder writes float32 frames to a 16-bit PCM WAV file.
type WAVRecorder struct {
	file     *os.File
	encoder  *wav.Encoder
	buf      *audio.IntBuffer
	conv     []int16
	channels int
	frames   int64
	closed   bool
}

// CreateWAV creates path and returns a recorder for it.
func CreateWAV(path string, sampleRate, channels int) (*WAVRecorder, error) {
	if sampleRate <= 0 || channels < 1 {
		return nil, fmt.Errorf("%w: %d Hz, %d channels", ErrInvalidFormat, sampleRate, channels)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return &WAVRecorder{
		file:    f,
		encoder: wav.NewEncoder(f, sampleRate, bitsPerSample16, channels, wavFormatPCM),
		buf: &audio.IntBuffer{
			Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
			SourceBitDepth: bitsPerSample16,
		},
		channels: channels,
	}, nil
}

// Write appends interleaved frames. A trailing partial frame is dropped.
func (r *WAVRecorder) Write(frames []float32) error {
	if r.closed {
		return ErrClosed
	}
	n := (len(frames) / r.channels) * r.channels
	if n == 0 {
		return nil
	}

	if cap(r.conv) < n {
		r.conv = make([]int16, n)
		r.buf.Data = make([]int, n)
	}
	r.conv = r.conv[:n]
	r.buf.Data = r.buf.Data[:n]

	Float32ToInt16(r.conv, frames[:n])
	for i, v := range r.conv {
		r.buf.Data[i] = int(v)
	}

	if err := r.encoder.Write(r.buf); err != nil {
		return fmt.Errorf("failed to write audio data: %w", err)
	}
	r.frames += int64(n / r.channels)
	return nil
}

// Frames returns the number of frames written.
func (r *WAVRecorder) Frames() int64 { return r.frames }

// Close finalizes the WAV header and closes the file.
func (r *WAVRecorder) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	return errors.Join(r.encoder.Close(), r.file.Close())
}

// PCMReader adapts a Puller to io.Reader, producing interleaved
// little-endian float32 bytes. Every Read is served in full: the bridge pads
// underruns with silence, so a player on the other end never starves.
type PCMReader struct {
	src      Puller
	channels int
	frame    int // bytes per frame
	buf      []float32
	pending  []byte // tail of a frame split across Read calls
	scratch  []byte
}

// NewPCMReader creates a reader pulling channels-wide frames from src.
func NewPCMReader(src Puller, channels int) (*PCMReader, error) {
	if channels < 1 {
		return nil, fmt.Errorf("%w: %d channels", ErrInvalidFormat, channels)
	}
	return &PCMReader{
		src:      src,
		channels: channels,
		frame:    channels * bytesPerFloat32,
		buf:      make([]float32, defaultPullChunk*channels),
		scratch:  make([]byte, channels*bytesPerFloat32),
	}, nil
}

// Read fills p with float32LE samples pulled from the bridge.
func (r *PCMReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	n := copy(p, r.pending)
	r.pending = r.pending[n:]

	for n < len(p) {
		remaining := len(p) - n
		frames := min(remaining/r.frame, defaultPullChunk)
		if frames == 0 {
			// Less than one frame of room: pull one and keep the tail
			r.pullInto(r.scratch, 1)
			c := copy(p[n:], r.scratch)
			r.pending = r.scratch[c:]
			n += c
			break
		}
		r.pullInto(p[n:], frames)
		n += frames * r.frame
	}
	return n, nil
}

func (r *PCMReader) pullInto(dst []byte, frames int) {
	samples := r.buf[:frames*r.channels]
	r.src.Pull(samples, frames)
	for i, v := range samples {
		binary.LittleEndian.PutUint32(dst[i*bytesPerFloat32:], math.Float32bits(v))
	}
}

var _ io.Reader = (*PCMReader)(nil)
