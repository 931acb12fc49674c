package engine

import (
	"sync"
	"sync/atomic"

	"github.com/quphoton/tagstream/errs"
)

// Coordinator owns all stream accumulators and fans every accepted event
// out to them in a fixed order: ring buffer, coincidence counters,
// histograms, file sink, Hg2 engine. It enforces the single ingestion
// discipline: timestamps must be non-decreasing, disabled channels are
// skipped, and the freeze flag suspends the buffered consumers (ring
// buffer, histograms, Hg2) while coincidence counting and file writing
// continue.
//
// Ingestion runs on one producer goroutine; configuration and snapshot
// calls may arrive concurrently from control goroutines. Each accumulator
// carries its own lock, so a reader copying one snapshot never stalls the
// others.
type Coordinator struct {
	ring  RingBuffer
	coinc CoincidenceCounter
	hist  HistogramEngine
	hg2   *Hg2Engine

	frozen       atomic.Bool
	startEnabled atomic.Bool
	channelMask  atomic.Int32
	markerMask   atomic.Int32

	dropped  atomic.Uint64
	dataLost atomic.Bool

	mu       sync.Mutex // guards the session cursor and the sink
	lastTime int64
	haveLast bool
	sink     Sink
}

// NewCoordinator creates a coordinator with all channels disabled, no ring
// buffer capacity and the Hg2 engine present but disabled.
func NewCoordinator() *Coordinator {
	return &Coordinator{hg2: NewHg2Engine()}
}

// Ring returns the timestamp ring buffer.
func (c *Coordinator) Ring() *RingBuffer { return &c.ring }

// Coinc returns the coincidence counter.
func (c *Coordinator) Coinc() *CoincidenceCounter { return &c.coinc }

// Histograms returns the start/stop histogram engine.
func (c *Coordinator) Histograms() *HistogramEngine { return &c.hist }

// Hg2 returns the heralded g(2) engine.
func (c *Coordinator) Hg2() *Hg2Engine { return c.hg2 }

// SetChannels selects the channels contributing to the stream: the start
// input and a bitfield of stop channels (bit 0 enables stop channel 1).
func (c *Coordinator) SetChannels(startEnabled bool, channelMask int32) {
	c.startEnabled.Store(startEnabled)
	c.channelMask.Store(channelMask)
}

// Channels returns the start enable flag and the stop channel mask.
func (c *Coordinator) Channels() (startEnabled bool, channelMask int32) {
	return c.startEnabled.Load(), c.channelMask.Load()
}

// SetMarkers selects the marker pseudo-channels contributing to the
// stream; bit 0 enables marker channel 100. Markers are disabled by
// default.
func (c *Coordinator) SetMarkers(markerMask int32) {
	c.markerMask.Store(markerMask)
}

// Markers returns the marker mask.
func (c *Coordinator) Markers() int32 {
	return c.markerMask.Load()
}

// Freeze suspends (true) or resumes (false) the ring buffer, histogram and
// Hg2 updates without clearing them. Coincidence counting and an active
// file write are unaffected.
func (c *Coordinator) Freeze(freeze bool) {
	c.frozen.Store(freeze)
}

// Frozen reports the freeze state.
func (c *Coordinator) Frozen() bool {
	return c.frozen.Load()
}

// AttachSink routes every accepted event to sink until DetachSink. The
// previous sink, if any, is returned so the caller can close it.
func (c *Coordinator) AttachSink(sink Sink) Sink {
	c.mu.Lock()
	defer c.mu.Unlock()

	prev := c.sink
	c.sink = sink

	return prev
}

// DetachSink removes and returns the current sink.
func (c *Coordinator) DetachSink() Sink {
	return c.AttachSink(nil)
}

// Ingest feeds one event into the engine.
//
// An event whose timestamp is smaller than the last accepted one is
// dropped: the drop counter increments, the data-lost flag latches and
// ErrOutOfOrderTimestamp is returned. Events on disabled channels are
// skipped silently. Sink write errors are dropped by design so a failing
// disk never causes loss in the memory-only consumers.
func (c *Coordinator) Ingest(tag TimeTag) error {
	c.mu.Lock()

	if c.haveLast && tag.Time < c.lastTime {
		c.mu.Unlock()
		c.dropped.Add(1)
		c.dataLost.Store(true)

		return errs.ErrOutOfOrderTimestamp
	}
	c.lastTime = tag.Time
	c.haveLast = true
	sink := c.sink
	c.mu.Unlock()

	if !c.channelEnabled(tag.Channel) {
		return nil
	}

	frozen := c.frozen.Load()

	if !frozen {
		c.ring.Push(tag)
	}
	c.coinc.Process(tag)
	if !frozen {
		c.hist.Process(tag)
	}
	if sink != nil {
		_ = sink.Write(tag)
	}
	if !frozen {
		c.hg2.Process(tag)
	}

	return nil
}

// IngestSlice feeds parallel timestamp and channel arrays, mirroring
// synthetic input of recorded data. Out-of-order events are dropped
// individually and counted; the first such error is returned after the
// whole slice has been processed.
func (c *Coordinator) IngestSlice(timestamps []int64, channels []uint8) error {
	if len(timestamps) != len(channels) {
		return errs.ErrInvalidParameter
	}

	var firstErr error
	for i := range timestamps {
		if err := c.Ingest(TimeTag{Time: timestamps[i], Channel: channels[i]}); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}

// ResetAll clears every accumulator and starts a new ingestion session:
// the monotonicity cursor is reset so a replay may begin at an earlier
// timestamp. Configuration (channel masks, histogram pairs, Hg2
// parameters) is retained.
func (c *Coordinator) ResetAll() {
	c.mu.Lock()
	c.haveLast = false
	c.lastTime = 0
	c.mu.Unlock()

	c.ring.Clear()
	c.coinc.Reset()
	c.hist.ResetAll()
	c.hg2.ResetCorrelations()
}

// DataLost reports whether events have been dropped since the last call
// and clears the latch, mirroring the device's data-loss latch.
func (c *Coordinator) DataLost() bool {
	return c.dataLost.Swap(false)
}

// Dropped returns the monotonic count of dropped events.
func (c *Coordinator) Dropped() uint64 {
	return c.dropped.Load()
}

func (c *Coordinator) channelEnabled(ch uint8) bool {
	switch {
	case ch == ChannelStart:
		return c.startEnabled.Load()
	case ch <= NumStopChannels:
		return c.channelMask.Load()&(1<<(ch-1)) != 0
	case IsMarker(ch):
		return c.markerMask.Load()&(1<<(ch-MarkerChannelFirst)) != 0
	default:
		// Clock pseudo-channels and anything beyond the documented ranges
		// never enter the accumulators.
		return false
	}
}
