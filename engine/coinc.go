package engine

import (
	"sync"

	"github.com/quphoton/tagstream/errs"
)

// Coincidence counter dimensions and parameter ranges.
const (
	NumCoincCounters = 59 // 33 singles + 26 coincidence patterns

	MaxExposureTimeMs = 65535
	MaxCoincWindowPs  = 2_000_000_000

	numCoincInputs = 5 // coincidence patterns cover stop channels 1..5
)

// coincPatterns lists the 26 fixed channel subsets, bit i selecting stop
// channel i+1. The order is part of the counter array contract:
// 1/2, 1/3, 2/3, 1/4, 2/4, 3/4, 1/5, 2/5, 3/5, 4/5,
// 1/2/3, 1/2/4, 1/3/4, 2/3/4, 1/2/5, 1/3/5, 2/3/5, 1/4/5, 2/4/5, 3/4/5,
// 1/2/3/4, 1/2/3/5, 1/2/4/5, 1/3/4/5, 2/3/4/5, 1/2/3/4/5.
var coincPatterns = [26]uint8{
	0b00011, 0b00101, 0b00110, 0b01001, 0b01010, 0b01100,
	0b10001, 0b10010, 0b10100, 0b11000,
	0b00111, 0b01011, 0b01101, 0b01110, 0b10011, 0b10101,
	0b10110, 0b11001, 0b11010, 0b11100,
	0b01111, 0b10111, 0b11011, 0b11101, 0b11110,
	0b11111,
}

// CoincidenceCounter integrates singles and multi-channel coincidence
// counts over a rolling exposure window. At every exposure boundary the
// 59-element tally array replaces the previously published values; between
// boundaries readers see the last completed window.
//
// Exposure boundaries are derived from event timestamps, not wall time, so
// replaying a file reproduces the same counter sequence as the live stream.
type CoincidenceCounter struct {
	mu sync.Mutex

	exposurePs int64 // 0 disables windowing
	windowPs   int64

	windowStart int64
	started     bool
	singles     [NumChannels]int32
	events      [numCoincInputs][]int64

	published [NumCoincCounters]int32
	updates   int32
}

// SetExposureTime sets the exposure (integration) time in milliseconds,
// range 0..65535. 0 disables counter publishing. The in-progress window is
// discarded; published values are retained.
func (c *CoincidenceCounter) SetExposureTime(ms int) error {
	if ms < 0 || ms > MaxExposureTimeMs {
		return errs.ErrInvalidParameter
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.exposurePs = int64(ms) * 1_000_000_000 // ms -> ps
	c.restartWindowLocked()

	return nil
}

// ExposureTime returns the configured exposure time in milliseconds.
func (c *CoincidenceCounter) ExposureTime() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return int(c.exposurePs / 1_000_000_000)
}

// SetCoincidenceWindow sets the coincidence time window in picoseconds,
// range 0..2,000,000,000. The in-progress window is discarded.
func (c *CoincidenceCounter) SetCoincidenceWindow(ps int) error {
	if ps < 0 || ps > MaxCoincWindowPs {
		return errs.ErrInvalidParameter
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.windowPs = int64(ps)
	c.restartWindowLocked()

	return nil
}

// CoincidenceWindow returns the configured coincidence window in ps.
func (c *CoincidenceCounter) CoincidenceWindow() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return int(c.windowPs)
}

// Process accounts one event. Pseudo-channels and channels beyond the
// hardware range do not contribute to the counters.
func (c *CoincidenceCounter) Process(tag TimeTag) {
	if tag.Channel >= NumChannels {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.exposurePs == 0 {
		return
	}

	if !c.started {
		c.windowStart = tag.Time
		c.started = true
	}

	if tag.Time >= c.windowStart+c.exposurePs {
		c.finalizeLocked()

		// Jump over exposure windows without any events: each one counts
		// as an update publishing zeros.
		skipped := (tag.Time - c.windowStart) / c.exposurePs
		if skipped > 1 {
			c.published = [NumCoincCounters]int32{}
			c.updates += int32(skipped - 1)
		}
		c.windowStart += skipped * c.exposurePs
	}

	c.singles[tag.Channel]++
	if tag.Channel >= 1 && tag.Channel <= numCoincInputs {
		idx := tag.Channel - 1
		c.events[idx] = append(c.events[idx], tag.Time)
	}
}

// Counters returns the most recently completed window's 59 counter values
// and the number of window updates since the last call. It never fails;
// before the first completed window all values are zero.
func (c *CoincidenceCounter) Counters() ([NumCoincCounters]int32, int32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data := c.published
	updates := c.updates
	c.updates = 0

	return data, updates
}

// Reset clears published counters, the in-progress window and the update
// count. The exposure time and coincidence window settings are retained.
func (c *CoincidenceCounter) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.published = [NumCoincCounters]int32{}
	c.updates = 0
	c.restartWindowLocked()
}

func (c *CoincidenceCounter) restartWindowLocked() {
	c.started = false
	c.singles = [NumChannels]int32{}
	for i := range c.events {
		c.events[i] = c.events[i][:0]
	}
}

// finalizeLocked publishes the current window's tallies and starts a fresh
// tally set.
func (c *CoincidenceCounter) finalizeLocked() {
	var out [NumCoincCounters]int32
	copy(out[:NumChannels], c.singles[:])

	for i, mask := range coincPatterns {
		out[NumChannels+i] = c.countCoincidencesLocked(mask)
	}

	c.published = out
	c.updates++

	c.singles = [NumChannels]int32{}
	for i := range c.events {
		c.events[i] = c.events[i][:0]
	}
}

// countCoincidencesLocked counts coincidences of the channel subset given
// by mask within the current window's events, using greedy earliest-unused
// matching: the candidate set is the earliest unused event of every
// channel; if its time span fits the coincidence window, all candidates are
// consumed as one coincidence, otherwise the earliest candidate is skipped.
// The match is deterministic for a given input sequence.
func (c *CoincidenceCounter) countCoincidencesLocked(mask uint8) int32 {
	var chans []int
	for i := 0; i < numCoincInputs; i++ {
		if mask&(1<<i) != 0 {
			if len(c.events[i]) == 0 {
				return 0
			}
			chans = append(chans, i)
		}
	}

	idx := make([]int, len(chans))
	var count int32

	for {
		tmin := int64(1<<63 - 1)
		tmax := int64(-1 << 63)
		argmin := 0
		for k, ch := range chans {
			if idx[k] >= len(c.events[ch]) {
				return count
			}
			t := c.events[ch][idx[k]]
			if t < tmin {
				tmin = t
				argmin = k
			}
			if t > tmax {
				tmax = t
			}
		}

		if tmax-tmin <= c.windowPs {
			count++
			for k := range idx {
				idx[k]++
			}
		} else {
			idx[argmin]++
		}
	}
}
