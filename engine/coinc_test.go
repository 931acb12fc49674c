package engine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quphoton/tagstream/errs"
)

const exposurePs = int64(1_000_000_000) // 1 ms in ps

func newCoinc(t *testing.T, exposureMs, windowPs int) *CoincidenceCounter {
	t.Helper()

	var c CoincidenceCounter
	require.NoError(t, c.SetExposureTime(exposureMs))
	require.NoError(t, c.SetCoincidenceWindow(windowPs))

	return &c
}

func TestCoincidenceCounter_ParameterRanges(t *testing.T) {
	var c CoincidenceCounter

	require.ErrorIs(t, c.SetExposureTime(-1), errs.ErrInvalidParameter)
	require.ErrorIs(t, c.SetExposureTime(MaxExposureTimeMs+1), errs.ErrInvalidParameter)
	require.NoError(t, c.SetExposureTime(MaxExposureTimeMs))

	require.ErrorIs(t, c.SetCoincidenceWindow(-1), errs.ErrInvalidParameter)
	require.ErrorIs(t, c.SetCoincidenceWindow(MaxCoincWindowPs+1), errs.ErrInvalidParameter)
	require.NoError(t, c.SetCoincidenceWindow(MaxCoincWindowPs))

	require.Equal(t, MaxExposureTimeMs, c.ExposureTime())
	require.Equal(t, MaxCoincWindowPs, c.CoincidenceWindow())
}

func TestCoincidenceCounter_ZeroBeforeFirstWindow(t *testing.T) {
	c := newCoinc(t, 1, 1000)

	c.Process(TimeTag{Time: 100, Channel: 1})
	data, updates := c.Counters()
	require.Equal(t, [NumCoincCounters]int32{}, data)
	require.EqualValues(t, 0, updates)
}

func TestCoincidenceCounter_SinglesAndPairwise(t *testing.T) {
	c := newCoinc(t, 1, 1000)

	// Channels 1 and 2 fire simultaneously ten times inside the first
	// exposure window.
	for i := int64(0); i < 10; i++ {
		ts := i * 10_000
		c.Process(TimeTag{Time: ts, Channel: 1})
		c.Process(TimeTag{Time: ts, Channel: 2})
	}
	// First event beyond the boundary publishes the window.
	c.Process(TimeTag{Time: exposurePs + 1, Channel: 3})

	data, updates := c.Counters()
	require.EqualValues(t, 1, updates)
	require.EqualValues(t, 10, data[1]) // singles ch 1
	require.EqualValues(t, 10, data[2]) // singles ch 2
	require.EqualValues(t, 10, data[NumChannels+0], "coincidences 1/2")
	require.EqualValues(t, 0, data[NumChannels+1], "coincidences 1/3")
	require.EqualValues(t, 0, data[NumChannels+10], "coincidences 1/2/3")
}

func TestCoincidenceCounter_OutsideWindowCountsZero(t *testing.T) {
	c := newCoinc(t, 1, 10)

	// Events on channels 1 and 2 are 1000 ps apart, far outside the 10 ps
	// coincidence window.
	for i := int64(0); i < 5; i++ {
		base := i * 100_000
		c.Process(TimeTag{Time: base, Channel: 1})
		c.Process(TimeTag{Time: base + 1000, Channel: 2})
	}
	c.Process(TimeTag{Time: exposurePs + 1, Channel: 1})

	data, _ := c.Counters()
	require.EqualValues(t, 5, data[1])
	require.EqualValues(t, 5, data[2])
	require.EqualValues(t, 0, data[NumChannels+0])
}

func TestCoincidenceCounter_PairwiseEqualsMinSingles(t *testing.T) {
	c := newCoinc(t, 1, 100)

	// Channel 1 fires twice per burst, channel 2 once; the greedy matcher
	// consumes one event per channel per coincidence, so pairwise 1/2
	// equals min(singles).
	for i := int64(0); i < 7; i++ {
		base := i * 1_000_000
		c.Process(TimeTag{Time: base, Channel: 1})
		c.Process(TimeTag{Time: base + 10, Channel: 2})
		c.Process(TimeTag{Time: base + 20, Channel: 1})
	}
	c.Process(TimeTag{Time: exposurePs + 1, Channel: 3})

	data, _ := c.Counters()
	require.EqualValues(t, 14, data[1])
	require.EqualValues(t, 7, data[2])
	require.EqualValues(t, 7, data[NumChannels+0])
}

func TestCoincidenceCounter_TripleCoincidences(t *testing.T) {
	c := newCoinc(t, 1, 50)

	for i := int64(0); i < 4; i++ {
		base := i * 1_000_000
		c.Process(TimeTag{Time: base, Channel: 1})
		c.Process(TimeTag{Time: base + 10, Channel: 2})
		c.Process(TimeTag{Time: base + 20, Channel: 3})
	}
	c.Process(TimeTag{Time: exposurePs + 1, Channel: 4})

	data, _ := c.Counters()
	require.EqualValues(t, 4, data[NumChannels+0], "1/2")
	require.EqualValues(t, 4, data[NumChannels+1], "1/3")
	require.EqualValues(t, 4, data[NumChannels+2], "2/3")
	require.EqualValues(t, 4, data[NumChannels+10], "1/2/3")
	require.EqualValues(t, 0, data[NumChannels+11], "1/2/4")
	require.EqualValues(t, 0, data[NumChannels+25], "1/2/3/4/5")
}

func TestCoincidenceCounter_EmptyWindowsPublishZeros(t *testing.T) {
	c := newCoinc(t, 1, 1000)

	c.Process(TimeTag{Time: 0, Channel: 1})
	// Next event lands 4 windows later: the first boundary publishes the
	// tallies, the 3 empty windows publish zeros.
	c.Process(TimeTag{Time: 4*exposurePs + 1, Channel: 1})

	data, updates := c.Counters()
	require.EqualValues(t, 4, updates)
	require.EqualValues(t, 0, data[1], "latest completed window is empty")

	// The updates count is consumed by the read.
	_, updates = c.Counters()
	require.EqualValues(t, 0, updates)
}

func TestCoincidenceCounter_ExposureZeroDisables(t *testing.T) {
	c := newCoinc(t, 0, 1000)

	c.Process(TimeTag{Time: 0, Channel: 1})
	c.Process(TimeTag{Time: 10 * exposurePs, Channel: 1})

	data, updates := c.Counters()
	require.Equal(t, [NumCoincCounters]int32{}, data)
	require.EqualValues(t, 0, updates)
}

func TestCoincidenceCounter_GreedyEarliestUnused(t *testing.T) {
	c := newCoinc(t, 1, 100)

	// ch1 at 0 and 90, ch2 at 150: the greedy matcher skips ch1@0
	// (span 150 > 100) and matches ch1@90 with ch2@150 (span 60).
	c.Process(TimeTag{Time: 0, Channel: 1})
	c.Process(TimeTag{Time: 90, Channel: 1})
	c.Process(TimeTag{Time: 150, Channel: 2})
	c.Process(TimeTag{Time: exposurePs + 1, Channel: 3})

	data, _ := c.Counters()
	require.EqualValues(t, 1, data[NumChannels+0])
}

func TestCoincidenceCounter_ResetIdempotent(t *testing.T) {
	c := newCoinc(t, 1, 1000)

	c.Process(TimeTag{Time: 0, Channel: 1})
	c.Process(TimeTag{Time: exposurePs + 1, Channel: 1})

	c.Reset()
	data, updates := c.Counters()
	require.Equal(t, [NumCoincCounters]int32{}, data)
	require.EqualValues(t, 0, updates)

	c.Reset()
	data2, updates2 := c.Counters()
	require.Equal(t, data, data2)
	require.Equal(t, updates, updates2)
}

func TestCoincidenceCounter_IgnoresPseudoChannels(t *testing.T) {
	c := newCoinc(t, 1, 1000)

	c.Process(TimeTag{Time: 0, Channel: MarkerChannelTick})
	c.Process(TimeTag{Time: 10, Channel: 1})
	c.Process(TimeTag{Time: exposurePs + 1, Channel: 1})

	data, _ := c.Counters()
	require.EqualValues(t, 1, data[1])
	require.EqualValues(t, 0, data[0])
}
