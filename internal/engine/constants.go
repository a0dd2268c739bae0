package engine

import "errors"

// Linear interpolation constants
const (
	// One frame of history is carried between calls
	linearLatencyFrames = 1

	// int16 full scale used to normalize into [-1, 1)
	int16FullScale = 32768.0

	// Normalization factor applied to the whole output batch
	int16Normalize = float32(1.0 / int16FullScale)
)

// Errors returned by Initialize.
var (
	ErrInvalidRate     = errors.New("invalid sample rate")
	ErrInvalidChannels = errors.New("invalid channel count")
)
