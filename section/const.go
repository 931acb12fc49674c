package section

const (
	// Bit masks for the packed Options field.
	EndiannessMask   = 0x0002 // endianness bit (bit 1)
	ReservedBitsMask = 0x000D // reserved bits (0, 2, 3), must be zero
	MagicNumberMask  = 0xFFF0 // magic number (bits 4-15)

	// MagicTimetagV1Opt identifies version 1 of the timestamp file header.
	MagicTimetagV1Opt = 0x7A10

	// HeaderVersion is the current header layout version.
	HeaderVersion = 1

	// HeaderSize is the fixed header size in bytes. Binary and compressed
	// timestamp files start with exactly one header; ASCII and raw files
	// carry none.
	HeaderSize = 40

	// Record sizes of the binary formats.
	BinaryRecordSize     = 10
	CompressedRecordSize = 5
)
