package engine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quphoton/tagstream/errs"
	"github.com/quphoton/tagstream/format"
)

type collectSink struct {
	tags []TimeTag
	err  error
}

func (s *collectSink) Write(tag TimeTag) error {
	if s.err != nil {
		return s.err
	}
	s.tags = append(s.tags, tag)

	return nil
}

func newCoordinator(t *testing.T) *Coordinator {
	t.Helper()

	c := NewCoordinator()
	c.SetChannels(true, 0x1F) // start plus stops 1..5
	require.NoError(t, c.Ring().SetSize(100))

	return c
}

func TestCoordinator_OutOfOrderDropped(t *testing.T) {
	c := newCoordinator(t)

	require.NoError(t, c.Ingest(TimeTag{Time: 100, Channel: 1}))
	require.ErrorIs(t, c.Ingest(TimeTag{Time: 50, Channel: 1}), errs.ErrOutOfOrderTimestamp)
	require.NoError(t, c.Ingest(TimeTag{Time: 100, Channel: 2}), "equal timestamps are in order")

	require.EqualValues(t, 1, c.Dropped())
	require.True(t, c.DataLost())
	require.False(t, c.DataLost(), "reading clears the latch")

	tags, valid := c.Ring().Snapshot(false)
	require.Equal(t, 2, valid)
	require.Equal(t, []TimeTag{{100, 1}, {100, 2}}, tags)
}

func TestCoordinator_DisabledChannelsSkipped(t *testing.T) {
	c := NewCoordinator()
	c.SetChannels(false, 0b10) // only stop channel 2
	require.NoError(t, c.Ring().SetSize(10))

	require.NoError(t, c.Ingest(TimeTag{Time: 10, Channel: 1}))
	require.NoError(t, c.Ingest(TimeTag{Time: 20, Channel: 2}))
	require.NoError(t, c.Ingest(TimeTag{Time: 30, Channel: ChannelStart}))
	require.NoError(t, c.Ingest(TimeTag{Time: 40, Channel: ClockChannelFirst}))

	tags, valid := c.Ring().Snapshot(false)
	require.Equal(t, 1, valid)
	require.Equal(t, []TimeTag{{20, 2}}, tags)

	// Skipped events still advance the monotonicity cursor.
	require.ErrorIs(t, c.Ingest(TimeTag{Time: 35, Channel: 2}), errs.ErrOutOfOrderTimestamp)
}

func TestCoordinator_MarkersRequireEnable(t *testing.T) {
	c := newCoordinator(t)

	require.NoError(t, c.Ingest(TimeTag{Time: 10, Channel: MarkerChannelTick}))
	_, valid := c.Ring().Snapshot(false)
	require.Equal(t, 0, valid)

	c.SetMarkers(1 << (MarkerChannelTick - MarkerChannelFirst))
	require.NoError(t, c.Ingest(TimeTag{Time: 20, Channel: MarkerChannelTick}))

	tags, valid := c.Ring().Snapshot(false)
	require.Equal(t, 1, valid)
	require.Equal(t, uint8(MarkerChannelTick), tags[0].Channel)
}

func TestCoordinator_FreezeSuspendsBufferedConsumers(t *testing.T) {
	c := newCoordinator(t)
	require.NoError(t, c.Coinc().SetExposureTime(1))
	require.NoError(t, c.Coinc().SetCoincidenceWindow(1000))

	sink := &collectSink{}
	c.AttachSink(sink)

	c.Freeze(true)
	require.True(t, c.Frozen())

	require.NoError(t, c.Ingest(TimeTag{Time: 10, Channel: 1}))
	require.NoError(t, c.Ingest(TimeTag{Time: 1_100_000_000, Channel: 2}))

	// The ring buffer is frozen, coincidence counting and the sink are not.
	_, valid := c.Ring().Snapshot(false)
	require.Equal(t, 0, valid)
	require.Len(t, sink.tags, 2)

	data, updates := c.Coinc().Counters()
	require.EqualValues(t, 1, updates)
	require.EqualValues(t, 1, data[1])

	c.Freeze(false)
	require.NoError(t, c.Ingest(TimeTag{Time: 2_000_000_000, Channel: 1}))
	_, valid = c.Ring().Snapshot(false)
	require.Equal(t, 1, valid)
}

func TestCoordinator_SinkErrorsDoNotBlockIngestion(t *testing.T) {
	c := newCoordinator(t)
	c.AttachSink(&collectSink{err: errs.ErrInvalidParameter})

	require.NoError(t, c.Ingest(TimeTag{Time: 10, Channel: 1}))

	_, valid := c.Ring().Snapshot(false)
	require.Equal(t, 1, valid)
}

func TestCoordinator_AttachSinkReturnsPrevious(t *testing.T) {
	c := newCoordinator(t)

	first := &collectSink{}
	require.Nil(t, c.AttachSink(first))

	second := &collectSink{}
	require.Same(t, Sink(first), c.AttachSink(second))

	require.NoError(t, c.Ingest(TimeTag{Time: 10, Channel: 1}))
	require.Empty(t, first.tags)
	require.Len(t, second.tags, 1)

	require.Same(t, Sink(second), c.DetachSink())
	require.Nil(t, c.DetachSink())
}

func TestCoordinator_IngestSlice(t *testing.T) {
	c := newCoordinator(t)

	require.ErrorIs(t, c.IngestSlice([]int64{1, 2}, []uint8{1}), errs.ErrInvalidParameter)

	// The out-of-order event in the middle is dropped, the rest lands.
	err := c.IngestSlice([]int64{10, 20, 15, 30}, []uint8{1, 2, 3, 4})
	require.ErrorIs(t, err, errs.ErrOutOfOrderTimestamp)
	require.EqualValues(t, 1, c.Dropped())

	_, valid := c.Ring().Snapshot(false)
	require.Equal(t, 3, valid)
}

func TestCoordinator_ResetAllStartsNewSession(t *testing.T) {
	c := newCoordinator(t)

	require.NoError(t, c.Ingest(TimeTag{Time: 1000, Channel: 1}))
	c.ResetAll()

	// A replay may begin before the previous cursor.
	require.NoError(t, c.Ingest(TimeTag{Time: 5, Channel: 1}))

	tags, valid := c.Ring().Snapshot(false)
	require.Equal(t, 1, valid)
	require.EqualValues(t, 5, tags[0].Time)

	// Configuration survives the reset.
	start, mask := c.Channels()
	require.True(t, start)
	require.EqualValues(t, 0x1F, mask)
}

func TestGenerator_Deterministic(t *testing.T) {
	run := func() []TimeTag {
		c := newCoordinator(t)
		g := NewGenerator(1234)
		require.NoError(t, g.Generate(c, format.SimFlat, []float64{1000, 200}, 50))

		tags, _ := c.Ring().Snapshot(false)

		return tags
	}

	first := run()
	second := run()
	require.NotEmpty(t, first)
	require.Equal(t, first, second)

	for i := 1; i < len(first); i++ {
		require.LessOrEqual(t, first[i-1].Time, first[i].Time)
	}
}

func TestGenerator_Validation(t *testing.T) {
	c := newCoordinator(t)
	g := NewGenerator(1)

	require.ErrorIs(t, g.Generate(c, format.SimNone, []float64{10, 1}, 5), errs.ErrInvalidParameter)
	require.ErrorIs(t, g.Generate(c, format.SimFlat, []float64{10}, 5), errs.ErrInvalidParameter)
	require.ErrorIs(t, g.Generate(c, format.SimFlat, []float64{10, 1}, -1), errs.ErrInvalidParameter)

	disabled := NewCoordinator()
	require.ErrorIs(t, g.Generate(disabled, format.SimFlat, []float64{10, 1}, 5), errs.ErrInvalidParameter)
}

func TestGenerator_OnlyEnabledChannels(t *testing.T) {
	c := NewCoordinator()
	c.SetChannels(false, 0b101) // stops 1 and 3
	require.NoError(t, c.Ring().SetSize(1000))

	g := NewGenerator(99)
	require.NoError(t, g.Generate(c, format.SimNormal, []float64{500, 50}, 500))

	tags, _ := c.Ring().Snapshot(false)
	require.NotEmpty(t, tags)
	for _, tag := range tags {
		require.Contains(t, []uint8{1, 3}, tag.Channel)
	}
}
