// Package codec implements the on-disk timestamp record formats and the
// streaming file writer and reader built on them.
//
// Four formats exist. ASCII writes one "<timestamp>,<channel>\n" line per
// event with 1-based channel numbers. BINARY writes a 40-byte file header
// followed by 10-byte records. COMPRESSED writes the same header followed
// by 5-byte packed records: 37 bits of timestamp and 3 bits of channel,
// which restricts the channel range to stop channels 1..8 and wraps the
// timestamp every 2^37 ps (about 11 seconds). RAW is BINARY without the
// header, kept for compatibility with early recordings; since nothing in
// the file identifies it, reading RAW requires the caller to name the
// format.
//
// Files whose name ends in a known compression extension (.zst, .lz4, .s2)
// are additionally wrapped in the matching streaming container on both
// write and read.
package codec

import (
	"strconv"

	"github.com/quphoton/tagstream/endian"
	"github.com/quphoton/tagstream/engine"
	"github.com/quphoton/tagstream/errs"
	"github.com/quphoton/tagstream/internal/bitpack"
	"github.com/quphoton/tagstream/section"
)

// Compressed record geometry.
const (
	compressedTimeBits = 37
	compressedChanBits = 3

	// CompressedTimeWrap is the timestamp period of the compressed format;
	// the 37-bit field stores the timestamp modulo this value.
	CompressedTimeWrap = int64(1) << compressedTimeBits

	// MaxCompressedChannel is the highest stop channel the 3-bit channel
	// field can represent.
	MaxCompressedChannel = 8
)

// appendBinaryRecord appends one 10-byte record: timestamp int64 then
// channel uint16, both in the given byte order.
func appendBinaryRecord(dst []byte, e endian.EndianEngine, tag engine.TimeTag) []byte {
	dst = e.AppendUint64(dst, uint64(tag.Time))

	return e.AppendUint16(dst, uint16(tag.Channel))
}

// decodeBinaryRecord decodes one 10-byte record.
func decodeBinaryRecord(b []byte, e endian.EndianEngine) (engine.TimeTag, error) {
	if len(b) < section.BinaryRecordSize {
		return engine.TimeTag{}, errs.ErrTruncatedRecord
	}

	return engine.TimeTag{
		Time:    int64(e.Uint64(b[0:8])),
		Channel: uint8(e.Uint16(b[8:10])),
	}, nil
}

// compressedRepresentable reports whether the event fits the 3-bit channel
// field. Negative timestamps do not round-trip through the modulo and are
// rejected as well.
func compressedRepresentable(tag engine.TimeTag) bool {
	return tag.Channel >= 1 && tag.Channel <= MaxCompressedChannel && tag.Time >= 0
}

// appendCompressedRecord appends one 5-byte packed record. The caller must
// have checked compressedRepresentable.
func appendCompressedRecord(w *bitpack.Writer, tag engine.TimeTag) {
	w.WriteBits(uint64(tag.Time&(CompressedTimeWrap-1)), compressedTimeBits)
	w.WriteBits(uint64(tag.Channel-1), compressedChanBits)
	w.Flush()
}

// decodeCompressedRecord decodes one 5-byte packed record into the wrapped
// 37-bit timestamp and the stop channel number (1..8).
func decodeCompressedRecord(b []byte) (wrapped int64, channel uint8, err error) {
	r := bitpack.NewReader(b)

	t, err := r.ReadBits(compressedTimeBits)
	if err != nil {
		return 0, 0, err
	}
	ch, err := r.ReadBits(compressedChanBits)
	if err != nil {
		return 0, 0, err
	}

	return int64(t), uint8(ch) + 1, nil
}

// appendASCIIRecord appends one "<timestamp>,<channel>\n" line with a
// 1-based channel number.
func appendASCIIRecord(dst []byte, tag engine.TimeTag) []byte {
	dst = strconv.AppendInt(dst, tag.Time, 10)
	dst = append(dst, ',')
	dst = strconv.AppendInt(dst, int64(tag.Channel)+1, 10)

	return append(dst, '\n')
}
