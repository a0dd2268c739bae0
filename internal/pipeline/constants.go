package pipeline

import "errors"

// Buffer limits
const (
	// MaxChannels is the largest supported channel count.
	MaxChannels = 32

	// MaxCapacityFrames bounds a single buffer allocation (16M frames).
	MaxCapacityFrames = 1 << 24
)

// Cursor layout
const (
	cacheLineSize = 64
	cursorSize    = 4 // atomic.Uint32
)

// Errors returned by NewRingBuffer.
var (
	ErrInvalidCapacity = errors.New("invalid ring buffer capacity")
	ErrInvalidChannels = errors.New("invalid channel count")
)
