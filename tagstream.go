// Package tagstream processes streams of time-tagged single-photon
// detection events: it buffers them, counts singles and multi-channel
// coincidences over exposure windows, accumulates start/stop histograms
// and heralded g(2) correlations, and reads and writes the four timestamp
// file formats.
//
// The Engine facade mirrors the control surface of a time-to-digital
// converter, minus the hardware: events enter through InputTimestamps,
// GenerateTimestamps or ReadTimestamps and fan out to all accumulators.
// The underlying packages (engine, codec, section, compress) are usable on
// their own.
package tagstream

import (
	"sync"
	"time"

	"github.com/quphoton/tagstream/codec"
	"github.com/quphoton/tagstream/engine"
	"github.com/quphoton/tagstream/errs"
	"github.com/quphoton/tagstream/format"
	"github.com/quphoton/tagstream/internal/options"
)

// Engine is the device-style facade over the stream processing core.
//
// One goroutine may feed events while others configure and query; every
// accumulator carries its own lock. All configuration setters validate
// their ranges before touching any state, and all query calls succeed even
// before any data has arrived.
type Engine struct {
	coord *engine.Coordinator
	gen   *engine.Generator

	mu       sync.Mutex
	writer   *codec.TagWriter
	delays   [engine.NumChannels]int64
	devType  format.DevType
	features format.FeatureFlags
}

// Option configures an Engine during construction.
type Option = options.Option[*Engine]

// WithGeneratorSeed seeds the synthetic timestamp generator so generated
// streams reproduce.
func WithGeneratorSeed(seed uint64) Option {
	return options.NoError(func(e *Engine) {
		e.gen = engine.NewGenerator(seed)
	})
}

// WithDeviceInfo sets the device family and feature flags recorded in the
// headers of written timestamp files.
func WithDeviceInfo(dev format.DevType, features format.FeatureFlags) Option {
	return options.NoError(func(e *Engine) {
		e.devType = dev
		e.features = features
	})
}

// New creates an engine with all channels disabled and no buffer capacity.
// Enable channels and set a buffer size before feeding events.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		coord: engine.NewCoordinator(),
		gen:   engine.NewGenerator(uint64(time.Now().UnixNano())),
	}
	if err := options.Apply(e, opts...); err != nil {
		return nil, err
	}

	return e, nil
}

// SetTimestampBufferSize sets the capacity of the most-recent-timestamps
// ring buffer, range 1..1,000,000; 0 disables buffering.
func (e *Engine) SetTimestampBufferSize(size int) error {
	return e.coord.Ring().SetSize(size)
}

// TimestampBufferSize returns the ring buffer capacity.
func (e *Engine) TimestampBufferSize() int {
	return e.coord.Ring().Size()
}

// LastTimestamps returns the buffered most recent timestamps and channels
// in chronological order. With reset, the buffer restarts empty.
func (e *Engine) LastTimestamps(reset bool) (timestamps []int64, channels []uint8, valid int) {
	tags, valid := e.coord.Ring().Snapshot(reset)

	timestamps = make([]int64, len(tags))
	channels = make([]uint8, len(tags))
	for i, tag := range tags {
		timestamps[i] = tag.Time
		channels[i] = tag.Channel
	}

	return timestamps, channels, valid
}

// SetExposureTime sets the coincidence counter exposure time in
// milliseconds, range 0..65535.
func (e *Engine) SetExposureTime(ms int) error {
	return e.coord.Coinc().SetExposureTime(ms)
}

// SetCoincidenceWindow sets the coincidence window in picoseconds, range
// 0..2,000,000,000.
func (e *Engine) SetCoincidenceWindow(ps int) error {
	return e.coord.Coinc().SetCoincidenceWindow(ps)
}

// DeviceParams returns the channel mask, coincidence window (ps) and
// exposure time (ms).
func (e *Engine) DeviceParams() (channelMask int32, coincWindowPs, exposureTimeMs int) {
	_, mask := e.coord.Channels()

	return mask, e.coord.Coinc().CoincidenceWindow(), e.coord.Coinc().ExposureTime()
}

// CoincCounters returns the 59 counter values of the last completed
// exposure window and the number of windows completed since the previous
// call.
func (e *Engine) CoincCounters() (data [engine.NumCoincCounters]int32, updates int32) {
	return e.coord.Coinc().Counters()
}

// EnableChannels selects the contributing channels: the start input and a
// bitfield of stop channels, bit 0 enabling channel 1.
func (e *Engine) EnableChannels(startEnabled bool, channelMask int32) {
	e.coord.SetChannels(startEnabled, channelMask)
}

// ChannelsEnabled returns the start enable flag and the stop channel mask.
func (e *Engine) ChannelsEnabled() (startEnabled bool, channelMask int32) {
	return e.coord.Channels()
}

// EnableMarkers selects the marker pseudo-channels, bit 0 enabling marker
// channel 100.
func (e *Engine) EnableMarkers(markerMask int32) {
	e.coord.SetMarkers(markerMask)
}

// MarkersEnabled returns the marker mask.
func (e *Engine) MarkersEnabled() int32 {
	return e.coord.Markers()
}

// SetChannelDelay sets the delay correction for one channel in
// picoseconds, range +-100 ns. Delays apply to timestamp files started
// afterwards; they do not shift the in-memory accumulators.
func (e *Engine) SetChannelDelay(channel int, delayPs int64) error {
	if channel < 0 || channel >= engine.NumChannels {
		return errs.ErrInvalidParameter
	}
	if delayPs < -codec.MaxChannelDelayPs || delayPs > codec.MaxChannelDelayPs {
		return errs.ErrInvalidParameter
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.delays[channel] = delayPs

	return nil
}

// ChannelDelay returns the delay correction of one channel; channels out
// of range read as zero.
func (e *Engine) ChannelDelay(channel int) int64 {
	if channel < 0 || channel >= engine.NumChannels {
		return 0
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	return e.delays[channel]
}

// FreezeBuffers suspends (true) or resumes (false) the ring buffer,
// histogram and Hg2 updates without clearing them. Coincidence counting
// and an active file write continue.
func (e *Engine) FreezeBuffers(freeze bool) {
	e.coord.Freeze(freeze)
}

// BuffersFrozen reports the freeze state.
func (e *Engine) BuffersFrozen() bool {
	return e.coord.Frozen()
}

// DataLost reports whether events have been dropped since the last call
// and clears the latch.
func (e *Engine) DataLost() bool {
	return e.coord.DataLost()
}

// PreselectSingleStop makes every histogram record only the first stop
// after each start, regardless of the per-histogram flag.
func (e *Engine) PreselectSingleStop(single bool) {
	e.coord.Histograms().SetSingleStopAll(single)
}

// SingleStopPreselected reports the global single-stop flag.
func (e *Engine) SingleStopPreselected() bool {
	return e.coord.Histograms().SingleStopAll()
}

// ConfigureHistograms replaces the set of start/stop histograms. All
// histograms share one bin width (ps) and bin count; previously collected
// histogram data is discarded. An invalid spec leaves the previous
// configuration running.
func (e *Engine) ConfigureHistograms(pairs []engine.HistogramPair, spec engine.HistogramSpec) error {
	return e.coord.Histograms().Configure(pairs, spec)
}

// Histogram returns the bins and overflow count of the first histogram
// registered for the channel pair; ok is false if none is. With reset,
// that histogram restarts at zero.
func (e *Engine) Histogram(start, stop uint8, reset bool) (bins []int32, overflow int32, ok bool) {
	return e.coord.Histograms().Histogram(start, stop, reset)
}

// ClearAllHistograms zeroes every histogram, keeping the configuration.
func (e *Engine) ClearAllHistograms() {
	e.coord.Histograms().ResetAll()
}

// ResetAccumulators clears every accumulator and starts a new ingestion
// session, so a replay may begin at an earlier timestamp. Configuration is
// retained.
func (e *Engine) ResetAccumulators() {
	e.coord.ResetAll()
}

// WriteTimestamps starts streaming every accepted event to a file in the
// given format, applying the configured channel delays. An active write is
// stopped first. An empty path or format.FormatNone stops writing without
// starting a new file. Errors creating the file surface here; write errors
// afterwards do not.
func (e *Engine) WriteTimestamps(path string, fileFormat format.FileFormat) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if path == "" || fileFormat == format.FormatNone {
		return e.stopWritingLocked()
	}

	writer, err := codec.NewTagWriter(path, fileFormat,
		codec.WithChannelDelays(e.delays[:]),
		codec.WithDeviceType(e.devType),
		codec.WithFeatures(e.features),
	)
	if err != nil {
		return err
	}

	if err := e.stopWritingLocked(); err != nil {
		writer.Close()

		return err
	}

	e.writer = writer
	e.coord.AttachSink(writer)

	return nil
}

// WritingTimestamps reports whether a file write is active.
func (e *Engine) WritingTimestamps() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.writer != nil
}

func (e *Engine) stopWritingLocked() error {
	if e.writer == nil {
		return nil
	}

	e.coord.DetachSink()
	err := e.writer.Close()
	e.writer = nil

	return err
}

// ReadTimestamps replays a timestamp file through the full processing
// chain, as if the events arrived live. fileFormat is format.FormatNone
// for self-describing files and format.FormatRaw for headerless ones. The
// returned count includes events dropped for being out of order relative
// to the current session; call ResetAccumulators first to replay from
// timestamp zero.
func (e *Engine) ReadTimestamps(path string, fileFormat format.FileFormat) (int, error) {
	r, err := codec.OpenTagReader(path, fileFormat)
	if err != nil {
		return 0, err
	}
	defer r.Close()

	return r.Replay(engine.SinkFunc(func(tag engine.TimeTag) error {
		return e.coord.Ingest(tag)
	}))
}

// InputTimestamps feeds parallel timestamp and channel arrays through the
// processing chain. Timestamps must be non-decreasing; out-of-order events
// are dropped and the first such error returned after the whole input has
// been processed.
func (e *Engine) InputTimestamps(timestamps []int64, channels []uint8) error {
	return e.coord.IngestSlice(timestamps, channels)
}

// GenerateTimestamps feeds count synthetic events with the given
// time-difference distribution, par = [center, width] in picoseconds,
// spread uniformly over the enabled channels.
func (e *Engine) GenerateTimestamps(simType format.SimType, par []float64, count int) error {
	return e.gen.Generate(e.coord, simType, par, count)
}

// EnableHg2 enables or disables the heralded g(2) accumulation. Both
// transitions clear the correlation data.
func (e *Engine) EnableHg2(enable bool) {
	e.coord.Hg2().Enable(enable)
}

// SetHg2Params sets the correlation bin width (ps, 1..1,000,000) and bin
// count (16..65536), clearing collected data.
func (e *Engine) SetHg2Params(binWidth, binCount int32) error {
	return e.coord.Hg2().SetParams(binWidth, binCount)
}

// Hg2Params returns the correlation bin width and bin count.
func (e *Engine) Hg2Params() (binWidth, binCount int32) {
	return e.coord.Hg2().Params()
}

// SetHg2Input selects the idler and the two signal channels, clearing
// collected data.
func (e *Engine) SetHg2Input(idler, channel1, channel2 int) error {
	return e.coord.Hg2().SetInput(idler, channel1, channel2)
}

// Hg2Input returns the idler and signal channel numbers.
func (e *Engine) Hg2Input() (idler, channel1, channel2 int) {
	return e.coord.Hg2().Input()
}

// ResetHg2Correlations clears the collected correlation data.
func (e *Engine) ResetHg2Correlations() {
	e.coord.Hg2().ResetCorrelations()
}

// CalcHg2G2 calculates the normalized g(2) function, one value per bin.
// With reset, the accumulators restart at zero afterwards.
func (e *Engine) CalcHg2G2(reset bool) []float64 {
	return e.coord.Hg2().G2(reset)
}

// CalcHg2Tcp returns the 2D triple coincidence map.
func (e *Engine) CalcHg2Tcp(reset bool) [][]int64 {
	return e.coord.Hg2().Tcp(reset)
}

// CalcHg2Tcp1D returns the triple coincidence map flattened row-major:
// element a + b*binCount counts triples with time-difference bins a and b.
func (e *Engine) CalcHg2Tcp1D(reset bool) []int64 {
	return e.coord.Hg2().Tcp1D(reset)
}

// Hg2Raw returns the raw accumulators the g(2) function is derived from:
// idler events, signal1/idler coincidences, and the two per-bin histograms.
func (e *Engine) Hg2Raw() (evtIdler, evtCoinc int64, ssi, s2i []int64) {
	return e.coord.Hg2().Raw()
}
