package engine

import (
	"sync"

	"github.com/quphoton/tagstream/errs"
)

// MaxBufferSize is the largest configurable ring buffer capacity.
const MaxBufferSize = 1_000_000

// RingBuffer stores the most recent events in a fixed-capacity ring.
// By default the capacity is 0 and all pushes are dropped; a capacity is
// assigned with SetSize. The zero value is ready to use.
type RingBuffer struct {
	mu    sync.Mutex
	tags  []TimeTag
	next  int // write cursor
	count int // valid entries, <= len(tags)
}

// SetSize re-creates the buffer with the given capacity, clearing its
// contents. Size 0 disables the buffer; the valid range is otherwise
// 1..MaxBufferSize.
func (b *RingBuffer) SetSize(size int) error {
	if size < 0 || size > MaxBufferSize {
		return errs.ErrInvalidParameter
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if size == 0 {
		b.tags = nil
	} else {
		b.tags = make([]TimeTag, size)
	}
	b.next = 0
	b.count = 0

	return nil
}

// Size returns the configured capacity.
func (b *RingBuffer) Size() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.tags)
}

// Push appends a tag, overwriting the oldest entry when full.
func (b *RingBuffer) Push(tag TimeTag) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.tags) == 0 {
		return
	}

	b.tags[b.next] = tag
	b.next = (b.next + 1) % len(b.tags)
	if b.count < len(b.tags) {
		b.count++
	}
}

// Snapshot returns a copy of the valid entries in chronological order and
// their count. With reset, the valid count is cleared afterwards; the
// storage is retained.
func (b *RingBuffer) Snapshot(reset bool) ([]TimeTag, int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]TimeTag, b.count)
	if b.count > 0 {
		start := (b.next - b.count + len(b.tags)) % len(b.tags)
		n := copy(out, b.tags[start:min(start+b.count, len(b.tags))])
		copy(out[n:], b.tags[:b.count-n])
	}

	valid := b.count
	if reset {
		b.count = 0
		b.next = 0
	}

	return out, valid
}

// Clear drops all valid entries, retaining the storage.
func (b *RingBuffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.count = 0
	b.next = 0
}
