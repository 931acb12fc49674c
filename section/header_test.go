package section

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quphoton/tagstream/errs"
	"github.com/quphoton/tagstream/format"
)

func TestFileHeader_RoundTrip(t *testing.T) {
	h := NewFileHeader(format.FormatBinary)
	h.DevType = format.DevTypeHR
	h.Features = format.FeatureHBT | format.FeatureLifetime
	h.ChannelCount = 8

	b := h.Bytes()
	require.Len(t, b, HeaderSize)

	parsed, err := ParseFileHeader(b)
	require.NoError(t, err)
	require.Equal(t, *h, parsed)
	require.True(t, parsed.Features.Has(format.FeatureHBT))
	require.True(t, parsed.Features.Has(format.FeatureLifetime))
}

func TestFileHeader_FormatTagAutoDetect(t *testing.T) {
	for _, f := range []format.FileFormat{format.FormatBinary, format.FormatCompressed} {
		b := NewFileHeader(f).Bytes()
		parsed, err := ParseFileHeader(b)
		require.NoError(t, err)
		require.Equal(t, f, parsed.Format)
	}
}

func TestFileHeader_InvalidSize(t *testing.T) {
	var h FileHeader
	require.ErrorIs(t, h.Parse(make([]byte, HeaderSize-1)), errs.ErrInvalidHeaderSize)

	_, err := ParseFileHeader(nil)
	require.ErrorIs(t, err, errs.ErrInvalidHeaderSize)
}

func TestFileHeader_InvalidMagic(t *testing.T) {
	b := NewFileHeader(format.FormatBinary).Bytes()
	b[1] ^= 0xF0

	_, err := ParseFileHeader(b)
	require.ErrorIs(t, err, errs.ErrInvalidMagicNumber)
}

func TestFileHeader_ChecksumMismatch(t *testing.T) {
	b := NewFileHeader(format.FormatBinary).Bytes()
	b[8] ^= 0x01 // corrupt the timebase without touching the checksum

	_, err := ParseFileHeader(b)
	require.ErrorIs(t, err, errs.ErrHeaderChecksumMismatch)
}

func TestFileHeader_RejectsNonBinaryFormatTag(t *testing.T) {
	h := NewFileHeader(format.FormatASCII)
	b := h.Bytes()

	_, err := ParseFileHeader(b)
	require.ErrorIs(t, err, errs.ErrInvalidHeaderFlags)
}

func TestLooksLikeHeader(t *testing.T) {
	b := NewFileHeader(format.FormatCompressed).Bytes()
	require.True(t, LooksLikeHeader(b))

	// A raw record stream: 10 bytes of timestamp/channel data.
	raw := make([]byte, HeaderSize)
	require.False(t, LooksLikeHeader(raw))
	require.False(t, LooksLikeHeader(b[:10]))
}
