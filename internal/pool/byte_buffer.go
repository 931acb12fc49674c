package pool

import "sync"

// RecordBufferDefaultSize is the default capacity of a ByteBuffer obtained
// from the pool. Record encoders append 5 or 10 bytes per event, so a 16KiB
// buffer covers a full flush interval without reallocation.
const (
	RecordBufferDefaultSize  = 1024 * 16
	RecordBufferMaxThreshold = 1024 * 128
)

// ByteBuffer is a reusable byte slice with amortized growth.
type ByteBuffer struct {
	// B is the underlying byte slice.
	B []byte
}

// NewByteBuffer creates a new ByteBuffer with the specified default capacity.
func NewByteBuffer(defaultSize int) *ByteBuffer {
	return &ByteBuffer{
		B: make([]byte, 0, defaultSize),
	}
}

// Bytes returns the underlying byte slice.
func (bb *ByteBuffer) Bytes() []byte {
	return bb.B
}

// Reset resets the buffer to be empty, retaining the allocated memory.
func (bb *ByteBuffer) Reset() {
	bb.B = bb.B[:0]
}

// Len returns the length of the buffer.
func (bb *ByteBuffer) Len() int {
	return len(bb.B)
}

// MustWrite appends data to the buffer, growing it if necessary.
func (bb *ByteBuffer) MustWrite(data []byte) {
	bb.B = append(bb.B, data...)
}

// Grow ensures the buffer can hold requiredBytes more bytes without
// reallocating. Small buffers grow by RecordBufferDefaultSize, larger ones
// by 25% of their capacity.
func (bb *ByteBuffer) Grow(requiredBytes int) {
	available := cap(bb.B) - len(bb.B)
	if available >= requiredBytes {
		return
	}

	growBy := RecordBufferDefaultSize
	if cap(bb.B) > 4*RecordBufferDefaultSize {
		growBy = cap(bb.B) / 4
	}
	if growBy < requiredBytes {
		growBy = requiredBytes
	}

	newBuf := make([]byte, len(bb.B), len(bb.B)+growBy)
	copy(newBuf, bb.B)
	bb.B = newBuf
}

var recordBufferPool = sync.Pool{
	New: func() any {
		return NewByteBuffer(RecordBufferDefaultSize)
	},
}

// GetRecordBuffer obtains a reset ByteBuffer from the pool.
func GetRecordBuffer() *ByteBuffer {
	bb := recordBufferPool.Get().(*ByteBuffer)
	bb.Reset()

	return bb
}

// PutRecordBuffer returns a ByteBuffer to the pool. Oversized buffers are
// dropped so the pool does not pin large allocations.
func PutRecordBuffer(bb *ByteBuffer) {
	if bb == nil || cap(bb.B) > RecordBufferMaxThreshold {
		return
	}
	recordBufferPool.Put(bb)
}
