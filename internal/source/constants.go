package source

// Sample format constants
const (
	maxInt16 = 32767

	bitsPerSample8  = 8
	bitsPerSample16 = 16
	bitsPerSample24 = 24
	bitsPerSample32 = 32

	// 8-bit WAV samples are unsigned around this midpoint
	unsigned8Midpoint = 128

	// Shifts that bring wider samples down to 16 bits
	shift8To16  = 8
	shift24To16 = 8
	shift32To16 = 16

	bytesPerSample16 = 2
)

// go-mp3 always decodes to 16-bit stereo
const mp3Channels = 2

// Tone defaults
const (
	defaultToneFrequency = 1000.0
	defaultToneAmplitude = 0.5
	defaultToneRate      = 48000
	defaultTimeBase      = 1_000_000
	ppmScale             = 1e6
)

// Feeder defaults
const defaultFeedBatch = 256
