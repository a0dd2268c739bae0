package bridge

// Pipeline defaults
const (
	// DefaultMinBatch is the input occupancy that triggers a resample pass.
	DefaultMinBatch = 16

	// DefaultMaxBatch caps the frames consumed by one resample pass.
	DefaultMaxBatch = 128

	// DefaultHeadroom is added to the expected output of each pass.
	DefaultHeadroom = 32

	// DefaultOutputCapacity is 40 ms at 48 kHz.
	DefaultOutputCapacity = 1920

	// DefaultTimeBase expresses hints in microseconds per sample.
	DefaultTimeBase = 1_000_000

	// Input ring holds about 10 ms at the output rate
	inputCapacityDivisor = 100
)

// Logging thresholds
const (
	// Rejected hints logged before going quiet
	rejectedHintLogLimit = 5

	// Output overruns are logged on the first and every Nth occurrence
	outputOverrunLogInterval = 100
)

// Scratch buffer growth factor
const scratchGrowthFactor = 2

// Default pipeline name prefix and length of the random suffix
const (
	namePrefix    = "bridge-"
	nameSuffixLen = 8
)
