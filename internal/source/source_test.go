package source

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/go-audio-bridge/internal/analysis"
)

// =============================================================================
// Tone
// =============================================================================

func TestNewTone_Defaults(t *testing.T) {
	tone, err := NewTone(ToneConfig{})
	require.NoError(t, err)

	assert.Equal(t, 48000, tone.SampleRate())
	assert.Equal(t, 2, tone.Channels())
	assert.InDelta(t, 48000.0, tone.TrueRate(), 1e-9)
	assert.InDelta(t, 1e6/48000, tone.Hint(), 1e-12)
	assert.NoError(t, tone.Close())
}

func TestNewTone_Drift(t *testing.T) {
	tone, err := NewTone(ToneConfig{Rate: 48000, DriftPPM: 229.166})
	require.NoError(t, err)
	assert.InDelta(t, 48011.0, tone.TrueRate(), 0.01)

	explicit, err := NewTone(ToneConfig{Rate: 48000, TrueRate: 47990})
	require.NoError(t, err)
	assert.InDelta(t, 47990.0, explicit.TrueRate(), 1e-9)
}

func TestNewTone_Invalid(t *testing.T) {
	for _, cfg := range []ToneConfig{
		{Frequency: 30000},
		{Amplitude: 2},
		{Channels: -1},
		{Jitter: 1.5},
		{Rate: -48000},
	} {
		_, err := NewTone(cfg)
		assert.Error(t, err, "%+v", cfg)
	}
}

func TestTone_FrequencyOnTrueClock(t *testing.T) {
	tone, err := NewTone(ToneConfig{Frequency: 440, TrueRate: 44100, Rate: 44100, Channels: 1})
	require.NoError(t, err)

	buf := make([]int16, 44100)
	n, err := tone.ReadFrames(buf)
	require.NoError(t, err)
	require.Equal(t, 44100, n)

	samples := make([]float64, n)
	for i, v := range buf {
		samples[i] = float64(v)
	}
	assert.InEpsilon(t, 440.0, analysis.ZeroCrossingFrequency(samples, 44100), 1e-4)
}

func TestTone_FrameLimit(t *testing.T) {
	tone, err := NewTone(ToneConfig{Frames: 100})
	require.NoError(t, err)

	buf := make([]int16, 2*64)
	n, err := tone.ReadFrames(buf)
	require.NoError(t, err)
	assert.Equal(t, 64, n)

	n, err = tone.ReadFrames(buf)
	require.NoError(t, err)
	assert.Equal(t, 36, n)

	_, err = tone.ReadFrames(buf)
	assert.ErrorIs(t, err, io.EOF)
}

func TestTone_HintJitterBounded(t *testing.T) {
	tone, err := NewTone(ToneConfig{Rate: 48000, Jitter: 0.01, Seed: 7})
	require.NoError(t, err)

	nominal := 1e6 / 48000
	varied := false
	for range 1000 {
		h := tone.Hint()
		assert.InDelta(t, nominal, h, nominal*0.01+1e-12)
		if h != nominal {
			varied = true
		}
	}
	assert.True(t, varied)
}

// =============================================================================
// WAV
// =============================================================================

func writeWAV(t *testing.T, bitDepth, channels int, data []int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "in.wav")
	f, err := os.Create(path)
	require.NoError(t, err)

	enc := wav.NewEncoder(f, 44100, bitDepth, channels, 1)
	require.NoError(t, enc.Write(&audio.IntBuffer{
		Format: &audio.Format{NumChannels: channels, SampleRate: 44100},
		Data:   data,
	}))
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())
	return path
}

func TestWAVSource_16Bit(t *testing.T) {
	data := []int{0, 0, 1000, -1000, 32767, -32768, 5, -5, 7, 8}
	path := writeWAV(t, 16, 2, data)

	src, err := OpenWAV(path)
	require.NoError(t, err)
	defer func() { _ = src.Close() }()

	assert.Equal(t, 44100, src.SampleRate())
	assert.Equal(t, 2, src.Channels())
	assert.Equal(t, 16, src.BitDepth())

	var got []int16
	buf := make([]int16, 4) // two frames per read
	for {
		n, err := src.ReadFrames(buf)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		got = append(got, buf[:n*2]...)
	}

	want := make([]int16, len(data))
	for i, v := range data {
		want[i] = int16(v)
	}
	assert.Equal(t, want, got)
}

func TestWAVSource_24BitScaledTo16(t *testing.T) {
	path := writeWAV(t, 24, 1, []int{8388607, -8388608, 256})

	src, err := OpenWAV(path)
	require.NoError(t, err)
	defer func() { _ = src.Close() }()

	buf := make([]int16, 8)
	n, err := src.ReadFrames(buf)
	require.NoError(t, err)
	require.Equal(t, 3, n)
	assert.Equal(t, []int16{32767, -32768, 1}, buf[:3])
}

func TestNewWAV_InvalidData(t *testing.T) {
	_, err := NewWAV(bytes.NewReader([]byte("definitely not a RIFF file")))
	assert.ErrorIs(t, err, ErrInvalidFile)
}

func TestOpen_UnsupportedExtension(t *testing.T) {
	_, err := Open("song.flac")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

// =============================================================================
// MP3
// =============================================================================

// mockMP3Reader simulates gomp3.Decoder output: little-endian int16 stereo.
type mockMP3Reader struct {
	sampleRate int
	data       []byte
	offset     int
	chunk      int // bytes returned per Read
}

func newMockMP3(rate int, samples []int16, chunk int) *mockMP3Reader {
	data := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(data[i*2:], uint16(s))
	}
	return &mockMP3Reader{sampleRate: rate, data: data, chunk: chunk}
}

func (m *mockMP3Reader) SampleRate() int { return m.sampleRate }

func (m *mockMP3Reader) Read(buf []byte) (int, error) {
	if m.offset >= len(m.data) {
		return 0, io.EOF
	}
	n := copy(buf[:min(len(buf), m.chunk)], m.data[m.offset:])
	m.offset += n
	return n, nil
}

func TestMP3Source_ReadFrames(t *testing.T) {
	samples := []int16{1, -1, 2, -2, 3, -3, 4, -4, 5, -5}
	// Odd chunk size splits samples across Read calls
	src := newMP3Source(newMockMP3(44100, samples, 3))

	assert.Equal(t, 44100, src.SampleRate())
	assert.Equal(t, 2, src.Channels())

	buf := make([]int16, 8)
	n, err := src.ReadFrames(buf)
	require.NoError(t, err)
	require.Equal(t, 4, n)
	assert.Equal(t, samples[:8], buf)

	n, err = src.ReadFrames(buf)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	assert.Equal(t, samples[8:], buf[:2])

	_, err = src.ReadFrames(buf)
	assert.ErrorIs(t, err, io.EOF)
	assert.NoError(t, src.Close())
}

func TestNewMP3_InvalidData(t *testing.T) {
	_, err := NewMP3(bytes.NewReader([]byte("This is not MP3 data")))
	assert.ErrorIs(t, err, ErrInvalidFile)
}

// =============================================================================
// Vorbis
// =============================================================================

// mockOggReader returns interleaved float32 values a few frames at a time.
type mockOggReader struct {
	rate, channels int
	values         []float32
	offset         int
	framesPerRead  int
}

func (m *mockOggReader) SampleRate() int { return m.rate }
func (m *mockOggReader) Channels() int   { return m.channels }

func (m *mockOggReader) Read(p []float32) (int, error) {
	if m.offset >= len(m.values) {
		return 0, io.EOF
	}
	want := min(len(p), m.framesPerRead*m.channels)
	n := copy(p[:want], m.values[m.offset:])
	m.offset += n
	return n, nil
}

func TestVorbisSource_ReadFramesClamps(t *testing.T) {
	dec := &mockOggReader{
		rate:          48000,
		channels:      2,
		values:        []float32{0, 0, 0.5, -0.5, 1.5, -1.5, 1, -1},
		framesPerRead: 1,
	}
	src := newVorbisSource(dec)
	assert.Equal(t, 48000, src.SampleRate())
	assert.Equal(t, 2, src.Channels())

	buf := make([]int16, 8)
	n, err := src.ReadFrames(buf)
	require.NoError(t, err)
	require.Equal(t, 4, n)
	assert.Equal(t, []int16{0, 0, 16383, -16383, 32767, -32767, 32767, -32767}, buf)

	_, err = src.ReadFrames(buf)
	assert.ErrorIs(t, err, io.EOF)
}

func TestNewVorbis_InvalidData(t *testing.T) {
	_, err := NewVorbis(bytes.NewReader([]byte("not an ogg stream")))
	assert.ErrorIs(t, err, ErrInvalidFile)
}

// =============================================================================
// Feeder
// =============================================================================

type recordingPusher struct {
	frames [][]int16
	hints  []float64
}

func (p *recordingPusher) PushFrame(frame []int16, unitsPerSample float64) {
	p.frames = append(p.frames, append([]int16(nil), frame...))
	p.hints = append(p.hints, unitsPerSample)
}

func TestFeeder_PushesEveryFrameWithHint(t *testing.T) {
	tone, err := NewTone(ToneConfig{Rate: 48000, TrueRate: 48011, Frames: 1000})
	require.NoError(t, err)

	dst := &recordingPusher{}
	feeder, err := NewFeeder(tone, dst, FeederConfig{BatchFrames: 64})
	require.NoError(t, err)

	n, err := feeder.Feed(300)
	require.NoError(t, err)
	assert.Equal(t, 300, n)

	n, err = feeder.Feed(5000)
	require.NoError(t, err)
	assert.Equal(t, 700, n)

	_, err = feeder.Feed(10)
	assert.ErrorIs(t, err, io.EOF)

	require.Len(t, dst.frames, 1000)
	assert.Equal(t, uint64(1000), feeder.Pushed())
	for _, h := range dst.hints {
		assert.InDelta(t, 1e6/48011, h, 1e-9)
	}
}

func TestFeeder_ConstantHintFromRate(t *testing.T) {
	src := newMP3Source(newMockMP3(44100, []int16{1, 2, 3, 4}, 64))
	dst := &recordingPusher{}
	feeder, err := NewFeeder(src, dst, FeederConfig{TimeBase: 3_546_895})
	require.NoError(t, err)

	n, err := feeder.Feed(10)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.InDelta(t, 3_546_895.0/44100, dst.hints[0], 1e-9)
}

func TestFeeder_ChannelRemap(t *testing.T) {
	mono := &mockOggReader{rate: 8000, channels: 1, values: []float32{0.5, -0.5}, framesPerRead: 8}
	dst := &recordingPusher{}
	feeder, err := NewFeeder(newVorbisSource(mono), dst, FeederConfig{Channels: 2})
	require.NoError(t, err)
	_, err = feeder.Feed(2)
	require.NoError(t, err)
	assert.Equal(t, [][]int16{{16383, 16383}, {-16383, -16383}}, dst.frames)

	stereo := newMP3Source(newMockMP3(8000, []int16{100, 300, -100, -301}, 64))
	down := &recordingPusher{}
	feeder, err = NewFeeder(stereo, down, FeederConfig{Channels: 1})
	require.NoError(t, err)
	_, err = feeder.Feed(2)
	require.NoError(t, err)
	assert.Equal(t, [][]int16{{200}, {-200}}, down.frames)
}

func TestFeeder_RunPacesUntilExhausted(t *testing.T) {
	tone, err := NewTone(ToneConfig{Rate: 48000, Frames: 480})
	require.NoError(t, err)

	dst := &recordingPusher{}
	feeder, err := NewFeeder(tone, dst, FeederConfig{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	start := time.Now()
	require.NoError(t, feeder.Run(ctx, 48000, time.Millisecond))
	assert.Equal(t, uint64(480), feeder.Pushed())
	assert.GreaterOrEqual(t, time.Since(start), 9*time.Millisecond, "480 frames take 10 ms at 48 kHz")
	assert.Less(t, time.Since(start), 4*time.Second, "returned on exhaustion")
}

func TestFeeder_RunInvalidPacing(t *testing.T) {
	feeder, err := NewFeeder(newMP3Source(newMockMP3(8000, nil, 4)), &recordingPusher{}, FeederConfig{})
	require.NoError(t, err)
	assert.Error(t, feeder.Run(context.Background(), 0, time.Millisecond))
}
