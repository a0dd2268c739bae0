package pipeline

import (
	"fmt"
	"sync/atomic"
)

// Sample is the set of element types a RingBuffer can carry. The bridge uses
// int16 for raw producer frames and float32 for resampled consumer frames.
type Sample interface {
	int16 | float32
}

// BufferStats is a snapshot of the counters kept by a RingBuffer.
type BufferStats struct {
	TotalWritten uint64 // frames accepted by Write
	TotalRead    uint64 // frames returned by Read
	Overruns     uint64 // rejected writes
	Underruns    uint64 // short reads
}

// RingBuffer is a lock-free single-producer/single-consumer circular buffer
// of interleaved multi-channel frames.
//
// Capacity is a power of two and cursors wrap with a bitmask. One slot is
// always left empty, so at most Capacity()-1 frames are live at once.
//
// The writer publishes its cursor only after the frame data has been copied,
// and the reader loads the writer's cursor before copying data out (and vice
// versa for the read cursor). sync/atomic operations are sequentially
// consistent, which covers the acquire/release pairing this requires.
//
// Thread assignment:
//   - Write, AvailableWrite: producer goroutine only
//   - Read, AvailableRead: consumer goroutine only
//
// Stats, FillPercent and the Available* accessors may be called from any
// goroutine as eventually consistent snapshots.
type RingBuffer[T Sample] struct {
	// Separate cache lines to prevent false sharing between producer and consumer.
	writePos atomic.Uint32
	_pad1    [cacheLineSize - cursorSize]byte
	readPos  atomic.Uint32
	_pad2    [cacheLineSize - cursorSize]byte

	data     []T
	capacity uint32
	mask     uint32
	channels int

	totalWritten atomic.Uint64
	totalRead    atomic.Uint64
	overruns     atomic.Uint64
	underruns    atomic.Uint64
}

// NewRingBuffer creates a ring buffer holding capacityFrames frames of the
// given channel count. Capacity is rounded up to the next power of two.
func NewRingBuffer[T Sample](capacityFrames, channels int) (*RingBuffer[T], error) {
	if channels < 1 || channels > MaxChannels {
		return nil, fmt.Errorf("%w: %d (must be 1-%d)", ErrInvalidChannels, channels, MaxChannels)
	}
	if capacityFrames < 1 || capacityFrames > MaxCapacityFrames {
		return nil, fmt.Errorf("%w: %d frames (must be 1-%d)", ErrInvalidCapacity, capacityFrames, MaxCapacityFrames)
	}

	capacity := NextPowerOfTwo(capacityFrames)

	return &RingBuffer[T]{
		data:     make([]T, capacity*channels),
		capacity: uint32(capacity),
		mask:     uint32(capacity - 1),
		channels: channels,
	}, nil
}

// Write copies count frames from frames into the buffer.
//
// Writes are all-or-nothing: when fewer than count slots are free the whole
// write is rejected, the overrun counter is incremented and false is
// returned. The caller decides whether to drop, retry or evict.
func (b *RingBuffer[T]) Write(frames []T, count int) bool {
	if count <= 0 || len(frames) < count*b.channels {
		return false
	}

	w := b.writePos.Load()
	r := b.readPos.Load()

	free := (r - w - 1) & b.mask
	if count > int(free) {
		b.overruns.Add(1)
		return false
	}

	// Copy in one or two segments depending on wrap-around
	start := int(w) * b.channels
	n := count * b.channels
	first := min(n, len(b.data)-start)
	copy(b.data[start:start+first], frames[:first])
	if first < n {
		copy(b.data[:n-first], frames[first:n])
	}

	b.writePos.Store((w + uint32(count)) & b.mask)
	b.totalWritten.Add(uint64(count))
	return true
}

// Read copies up to count frames into frames and returns the number of
// frames read. A short read is an ordinary outcome; it increments the
// underrun counter.
func (b *RingBuffer[T]) Read(frames []T, count int) int {
	if count <= 0 || len(frames) < count*b.channels {
		return 0
	}

	r := b.readPos.Load()
	w := b.writePos.Load()

	available := int((w - r) & b.mask)
	toRead := min(count, available)

	if toRead > 0 {
		start := int(r) * b.channels
		n := toRead * b.channels
		first := min(n, len(b.data)-start)
		copy(frames[:first], b.data[start:start+first])
		if first < n {
			copy(frames[first:n], b.data[:n-first])
		}

		b.readPos.Store((r + uint32(toRead)) & b.mask)
		b.totalRead.Add(uint64(toRead))
	}

	if toRead < count {
		b.underruns.Add(1)
	}

	return toRead
}

// AvailableRead returns the number of frames ready to be read.
func (b *RingBuffer[T]) AvailableRead() int {
	w := b.writePos.Load()
	r := b.readPos.Load()
	return int((w - r) & b.mask)
}

// AvailableWrite returns the number of frames that can be written.
func (b *RingBuffer[T]) AvailableWrite() int {
	w := b.writePos.Load()
	r := b.readPos.Load()
	return int((r - w - 1) & b.mask)
}

// FillPercent returns AvailableRead()/Capacity() in [0, 1).
func (b *RingBuffer[T]) FillPercent() float32 {
	return float32(b.AvailableRead()) / float32(b.capacity)
}

// Capacity returns the rounded capacity in frames.
func (b *RingBuffer[T]) Capacity() int {
	return int(b.capacity)
}

// Channels returns the number of samples per frame.
func (b *RingBuffer[T]) Channels() int {
	return b.channels
}

// Stats returns a snapshot of the buffer counters.
func (b *RingBuffer[T]) Stats() BufferStats {
	return BufferStats{
		TotalWritten: b.totalWritten.Load(),
		TotalRead:    b.totalRead.Load(),
		Overruns:     b.overruns.Load(),
		Underruns:    b.underruns.Load(),
	}
}

// ResetStats zeroes the counters. Cursors and contents are untouched.
func (b *RingBuffer[T]) ResetStats() {
	b.totalWritten.Store(0)
	b.totalRead.Store(0)
	b.overruns.Store(0)
	b.underruns.Store(0)
}

// NextPowerOfTwo returns the smallest power of two >= n (1 for n <= 1).
func NextPowerOfTwo(n int) int {
	size := 1
	for size < n {
		size <<= 1
	}
	return size
}
