package otosink

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/go-audio-bridge/internal/sink"
)

type silence struct{}

func (silence) Pull(out []float32, frames int) int {
	clear(out)
	return frames
}

// These tests never reach the device: they stop at the claim or at
// argument validation.

func TestOpen_InvalidChannelsReleasesClaim(t *testing.T) {
	require.False(t, opened.Load())

	_, err := Open(silence{}, Config{SampleRate: 48000, Channels: 0})
	require.ErrorIs(t, err, sink.ErrInvalidFormat)
	assert.False(t, opened.Load(), "a failed open must not hold the device")
}

func TestOpen_OncePerProcess(t *testing.T) {
	require.True(t, opened.CompareAndSwap(false, true))
	t.Cleanup(func() { opened.Store(false) })

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = Open(silence{}, Config{SampleRate: 48000, Channels: 2})
		}()
	}
	wg.Wait()

	for _, err := range errs {
		assert.ErrorIs(t, err, ErrAlreadyOpen)
	}
	assert.True(t, opened.Load())
}
