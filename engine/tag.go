// Package engine implements the timestamp stream processing core: a
// coordinator fans every incoming time tag out to a ring buffer, the
// coincidence counters, the start/stop histograms, an optional file sink
// and the heralded g(2) engine.
//
// Timestamps are int64 picoseconds and must be non-decreasing within one
// ingestion session. Channel numbers are 0-based: 0 is the start input,
// 1..32 are stop channels, 100..108 carry marker events (104 is the
// millisecond tick) and 200..203 are reserved pseudo-channels.
package engine

// TimeTag is one detected event: a timestamp in picoseconds and the input
// channel it was detected on.
type TimeTag struct {
	Time    int64
	Channel uint8
}

// Channel numbering constants.
const (
	ChannelStart = 0 // start / idler-capable input

	NumStopChannels = 32 // hardware stop channels 1..32
	NumChannels     = NumStopChannels + 1

	MarkerChannelFirst = 100 // markers 100..103: rising edges
	MarkerChannelTick  = 104 // 1 ms timer tick
	MarkerChannelLast  = 108 // markers 105..108: falling edges
	ClockChannelFirst  = 200 // reserved clock pseudo-channels
	ClockChannelLast   = 203
)

// IsMarker reports whether ch is a marker or timer-tick pseudo-channel.
func IsMarker(ch uint8) bool {
	return ch >= MarkerChannelFirst && ch <= MarkerChannelLast
}

// IsPseudo reports whether ch is any marker or clock pseudo-channel.
func IsPseudo(ch uint8) bool {
	return IsMarker(ch) || (ch >= ClockChannelFirst && ch <= ClockChannelLast)
}

// Sink receives every accepted, enabled time tag in stream order. The file
// writer implements Sink; write errors after a successful open are dropped
// by the coordinator so a slow or failing disk never stalls ingestion.
type Sink interface {
	Write(tag TimeTag) error
}

// SinkFunc adapts a plain function to the Sink interface.
type SinkFunc func(tag TimeTag) error

// Write calls f(tag).
func (f SinkFunc) Write(tag TimeTag) error { return f(tag) }
