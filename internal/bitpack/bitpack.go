// Package bitpack implements little-endian bit-cursor access to packed
// records. Bit i of the logical stream lives in byte i/8 at bit position
// i%8, so a value written with WriteBits can be reassembled by reading the
// bytes in order and shifting each into place from the low end. This is the
// bit order used by the 40-bit compressed timestamp records.
package bitpack

import "github.com/quphoton/tagstream/errs"

// maxBitsPerCall bounds a single read or write so the 64-bit accumulator
// can never overflow while it still holds up to 7 unflushed bits.
const maxBitsPerCall = 56

// Writer packs values into a byte slice, LSB first.
type Writer struct {
	buf      []byte
	bitBuf   uint64
	bitCount int
}

// NewWriter creates a Writer appending to buf. buf may be nil.
func NewWriter(buf []byte) *Writer {
	return &Writer{buf: buf}
}

// WriteBits appends the n low bits of v to the stream. n must be 1..56.
func (w *Writer) WriteBits(v uint64, n int) {
	if n < 1 || n > maxBitsPerCall {
		panic("bitpack: bit count out of range")
	}

	if n < 64 {
		v &= (1 << n) - 1
	}
	w.bitBuf |= v << w.bitCount
	w.bitCount += n

	for w.bitCount >= 8 {
		w.buf = append(w.buf, byte(w.bitBuf))
		w.bitBuf >>= 8
		w.bitCount -= 8
	}
}

// Flush pads the stream with zero bits up to the next byte boundary.
func (w *Writer) Flush() {
	if w.bitCount > 0 {
		w.buf = append(w.buf, byte(w.bitBuf))
		w.bitBuf = 0
		w.bitCount = 0
	}
}

// Bytes returns the packed bytes written so far. Unflushed bits are not
// included; call Flush first to terminate a record.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// Reset clears the writer state, retaining the underlying buffer storage.
func (w *Writer) Reset() {
	w.buf = w.buf[:0]
	w.bitBuf = 0
	w.bitCount = 0
}

// Reader unpacks values from a byte slice, LSB first.
type Reader struct {
	buf    []byte
	bitPos int
}

// NewReader creates a Reader over buf.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// ReadBits consumes the next n bits and returns them as the low bits of the
// result. n must be 1..56. Returns ErrTruncatedRecord if fewer than n bits
// remain.
func (r *Reader) ReadBits(n int) (uint64, error) {
	if n < 1 || n > maxBitsPerCall {
		panic("bitpack: bit count out of range")
	}
	if r.bitPos+n > len(r.buf)*8 {
		return 0, errs.ErrTruncatedRecord
	}

	var v uint64
	shift := 0
	pos := r.bitPos
	remaining := n

	for remaining > 0 {
		b := uint64(r.buf[pos/8]) >> (pos % 8)
		avail := 8 - pos%8
		take := avail
		if take > remaining {
			take = remaining
		}
		v |= (b & ((1 << take) - 1)) << shift
		shift += take
		pos += take
		remaining -= take
	}

	r.bitPos = pos

	return v, nil
}

// Remaining returns the number of unread bits.
func (r *Reader) Remaining() int {
	return len(r.buf)*8 - r.bitPos
}
