// Package section defines the fixed-size on-disk sections of timestamp
// files, currently the 40-byte file header shared by the binary and
// compressed formats.
package section

import (
	"math"
	"unsafe"

	"github.com/cespare/xxhash/v2"

	"github.com/quphoton/tagstream/endian"
	"github.com/quphoton/tagstream/errs"
	"github.com/quphoton/tagstream/format"
)

// FileHeader is the fixed-size header at the start of binary and compressed
// timestamp files.
//
// Layout (40 bytes):
//
//	 0- 1  Options      packed flags and magic number
//	 2     Format       file format tag (format.FileFormat)
//	 3     Version      header layout version
//	 4- 5  DevType      recording device family
//	 6- 7  Features     device feature flags, passed through opaquely
//	 8-15  Timebase     device time base in seconds (IEEE 754 float64)
//	16-19  ChannelCount number of stop channels of the recording device
//	20-31  reserved     must be zero
//	32-39  Checksum     xxHash64 of bytes 0-31
//
// The format tag lets a reader auto-detect binary vs compressed files; the
// feature flags let a replay without hardware recover the HBT/Lifetime
// context of the recording device.
type FileHeader struct {
	Timebase     float64
	ChannelCount int32
	Flag         Flag
	Version      uint8
	Format       format.FileFormat
	DevType      format.DevType
	Features     format.FeatureFlags
}

// Flag is the packed Options field of the file header.
type Flag struct {
	// Options packs the endianness bit (bit 1) and the magic number
	// (bits 4-15). Bits 0, 2 and 3 are reserved and must be zero.
	Options uint16
}

// NewFlag creates a Flag with the v1 magic number and little-endian order.
func NewFlag() Flag {
	return Flag{Options: MagicTimetagV1Opt}
}

// IsLittleEndian returns whether the file payload is little-endian.
func (f Flag) IsLittleEndian() bool {
	return (f.Options & EndiannessMask) == 0
}

// WithBigEndian sets big-endian byte order.
func (f *Flag) WithBigEndian() {
	f.Options |= EndiannessMask
}

// MagicNumber returns the magic number bits of the Options field.
func (f Flag) MagicNumber() uint16 {
	return f.Options & MagicNumberMask
}

// Validate checks magic number and reserved bits.
func (f Flag) Validate() error {
	if f.MagicNumber() != MagicTimetagV1Opt {
		return errs.ErrInvalidMagicNumber
	}
	if f.Options&ReservedBitsMask != 0 {
		return errs.ErrInvalidHeaderFlags
	}

	return nil
}

// Engine returns the endian engine matching the header flags.
func (f Flag) Engine() endian.EndianEngine {
	if f.IsLittleEndian() {
		return endian.GetLittleEndianEngine()
	}

	return endian.GetBigEndianEngine()
}

// NewFileHeader creates a header for the given output format with the
// default synthetic-device metadata.
func NewFileHeader(fileFormat format.FileFormat) *FileHeader {
	return &FileHeader{
		Flag:         NewFlag(),
		Format:       fileFormat,
		Version:      HeaderVersion,
		DevType:      format.DevTypeNone,
		Timebase:     1e-12, // engine timestamps are in picoseconds
		ChannelCount: 32,
	}
}

// Bytes serializes the header into a fresh 40-byte slice, including the
// trailing checksum.
func (h *FileHeader) Bytes() []byte {
	b := make([]byte, HeaderSize)

	// The Options field itself is always little-endian so a reader can
	// resolve the byte order of the remaining fields from it.
	b[0] = byte(h.Flag.Options)
	b[1] = byte(h.Flag.Options >> 8)
	b[2] = byte(h.Format)
	b[3] = h.Version

	engine := h.Flag.Engine()
	engine.PutUint16(b[4:6], uint16(h.DevType))
	engine.PutUint16(b[6:8], uint16(h.Features))
	engine.PutUint64(b[8:16], math.Float64bits(h.Timebase))
	engine.PutUint32(b[16:20], *(*uint32)(unsafe.Pointer(&h.ChannelCount)))
	// bytes 20-31 reserved, zero

	engine.PutUint64(b[32:40], xxhash.Sum64(b[:32]))

	return b
}

// Parse parses a header from data, which must be exactly 40 bytes.
func (h *FileHeader) Parse(data []byte) error {
	if len(data) != HeaderSize {
		return errs.ErrInvalidHeaderSize
	}

	h.Flag.Options = uint16(data[0]) | uint16(data[1])<<8
	if err := h.Flag.Validate(); err != nil {
		return err
	}

	engine := h.Flag.Engine()
	if engine.Uint64(data[32:40]) != xxhash.Sum64(data[:32]) {
		return errs.ErrHeaderChecksumMismatch
	}

	h.Format = format.FileFormat(data[2])
	if !h.Format.SelfDescribing() {
		return errs.ErrInvalidHeaderFlags
	}
	h.Version = data[3]
	h.DevType = format.DevType(engine.Uint16(data[4:6]))
	h.Features = format.FeatureFlags(engine.Uint16(data[6:8]))
	h.Timebase = math.Float64frombits(engine.Uint64(data[8:16]))
	count := engine.Uint32(data[16:20])
	h.ChannelCount = *(*int32)(unsafe.Pointer(&count))

	return nil
}

// ParseFileHeader parses a FileHeader from the first 40 bytes of data.
func ParseFileHeader(data []byte) (FileHeader, error) {
	if len(data) < HeaderSize {
		return FileHeader{}, errs.ErrInvalidHeaderSize
	}

	var h FileHeader
	if err := h.Parse(data[:HeaderSize]); err != nil {
		return FileHeader{}, err
	}

	return h, nil
}

// LooksLikeHeader reports whether data starts with a parseable file header.
// Used by readers to distinguish self-describing files from raw record
// streams.
func LooksLikeHeader(data []byte) bool {
	_, err := ParseFileHeader(data)

	return err == nil
}
