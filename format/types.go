package format

type (
	// FileFormat identifies the on-disk encoding of a timestamp file.
	FileFormat uint8
	// SimType selects the time-difference distribution of the synthetic
	// timestamp generator.
	SimType uint8
	// DevType identifies the device family a timestamp file originates from.
	DevType uint16
	// FeatureFlags is a bitfield of device software features. The flags are
	// carried opaquely in file headers so that a replay without hardware can
	// recover the feature context of the recording device.
	FeatureFlags uint16
)

const (
	FormatASCII      FileFormat = 0x1 // one "<timestamp_ps>,<channel>" line per event, channels 1-based
	FormatBinary     FileFormat = 0x2 // 40-byte header, 10-byte records
	FormatCompressed FileFormat = 0x3 // 40-byte header, 40-bit packed records
	FormatRaw        FileFormat = 0x4 // 10-byte records without header, for backward compatibility
	FormatNone       FileFormat = 0x0 // no format / stop writing

	SimFlat   SimType = 0x1 // time diffs uniformly distributed
	SimNormal SimType = 0x2 // time diffs normally distributed
	SimNone   SimType = 0x0

	DevTypeNone DevType = 0x0 // no device / synthetic stream
	DevTypeMC   DevType = 0x1
	DevTypeHR   DevType = 0x2

	FeatureHBT      FeatureFlags = 0x0001 // cross correlation (HBT) software functions
	FeatureLifetime FeatureFlags = 0x0002 // lifetime software functions
	FeatureMarkers  FeatureFlags = 0x0020 // marker input
	FeatureFilters  FeatureFlags = 0x0040 // event filters for the timestamp stream
	FeatureExtClk   FeatureFlags = 0x0080 // external clock
	FeatureDevSync  FeatureFlags = 0x0100 // multi-device synchronisation
)

func (f FileFormat) String() string {
	switch f {
	case FormatASCII:
		return "ASCII"
	case FormatBinary:
		return "Binary"
	case FormatCompressed:
		return "Compressed"
	case FormatRaw:
		return "Raw"
	case FormatNone:
		return "None"
	default:
		return "Unknown"
	}
}

// Binary reports whether the format stores fixed-size binary records,
// i.e. whether it can be replayed by a reader.
func (f FileFormat) Binary() bool {
	return f == FormatBinary || f == FormatCompressed || f == FormatRaw
}

// SelfDescribing reports whether files in this format start with the
// 40-byte header that identifies the format on read.
func (f FileFormat) SelfDescribing() bool {
	return f == FormatBinary || f == FormatCompressed
}

func (s SimType) String() string {
	switch s {
	case SimFlat:
		return "Flat"
	case SimNormal:
		return "Normal"
	case SimNone:
		return "None"
	default:
		return "Unknown"
	}
}

func (d DevType) String() string {
	switch d {
	case DevTypeMC:
		return "MC"
	case DevTypeHR:
		return "HR"
	case DevTypeNone:
		return "None"
	default:
		return "Unknown"
	}
}

// Has reports whether all features in mask are present.
func (f FeatureFlags) Has(mask FeatureFlags) bool {
	return f&mask == mask
}
