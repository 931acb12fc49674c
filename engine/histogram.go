package engine

import (
	"sync"

	"github.com/quphoton/tagstream/errs"
)

// Histogram bin count limits shared by all start/stop histograms.
const (
	MinHistBinCount = 1
	MaxHistBinCount = 65536
)

// HistogramSpec describes the bin layout shared by all configured
// start/stop histograms. BinWidth is in picoseconds.
type HistogramSpec struct {
	BinWidth int32
	BinCount int32
}

func (s HistogramSpec) validate() error {
	if s.BinWidth < 1 {
		return errs.ErrInvalidParameter
	}
	if s.BinCount < MinHistBinCount || s.BinCount > MaxHistBinCount {
		return errs.ErrInvalidParameter
	}

	return nil
}

// HistogramPair selects a start/stop channel pair for one histogram
// instance. With SingleStop, only the first stop event after each start
// contributes; later stops before the next start are ignored for this
// histogram only.
type HistogramPair struct {
	Start      uint8
	Stop       uint8
	SingleStop bool
}

type histogram struct {
	pair      HistogramPair
	bins      []int32
	overflow  int32
	lastStart int64
	haveStart bool
	consumed  bool
}

// HistogramEngine maintains start/stop time-difference histograms for the
// configured channel pairs. Multiple instances may coexist on the same
// pair, each owning its own bins.
type HistogramEngine struct {
	mu            sync.Mutex
	spec          HistogramSpec
	hists         []*histogram
	singleStopAll bool
}

// Configure replaces the histogram set. The previous configuration and all
// accumulated bins stay untouched if validation fails.
func (h *HistogramEngine) Configure(pairs []HistogramPair, spec HistogramSpec) error {
	if err := spec.validate(); err != nil {
		return err
	}

	hists := make([]*histogram, 0, len(pairs))
	for _, p := range pairs {
		hists = append(hists, &histogram{
			pair: p,
			bins: make([]int32, spec.BinCount),
		})
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.spec = spec
	h.hists = hists

	return nil
}

// Spec returns the configured bin layout.
func (h *HistogramEngine) Spec() HistogramSpec {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.spec
}

// Pairs returns the configured channel pairs in registration order.
func (h *HistogramEngine) Pairs() []HistogramPair {
	h.mu.Lock()
	defer h.mu.Unlock()

	pairs := make([]HistogramPair, len(h.hists))
	for i, hist := range h.hists {
		pairs[i] = hist.pair
	}

	return pairs
}

// SetSingleStopAll sets the global single-stop preselection: when active,
// every histogram behaves as if its SingleStop flag were set.
func (h *HistogramEngine) SetSingleStopAll(single bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.singleStopAll = single
}

// SingleStopAll returns the global single-stop preselection.
func (h *HistogramEngine) SingleStopAll() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.singleStopAll
}

// Process accounts one event in every histogram whose start or stop channel
// matches. When a channel serves as both (a pair with Start == Stop), the
// event closes the previous interval before opening a new one.
func (h *HistogramEngine) Process(tag TimeTag) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, hist := range h.hists {
		if tag.Channel == hist.pair.Stop && hist.haveStart {
			single := hist.pair.SingleStop || h.singleStopAll
			if !single || !hist.consumed {
				bin := (tag.Time - hist.lastStart) / int64(h.spec.BinWidth)
				if bin < int64(h.spec.BinCount) {
					hist.bins[bin]++
				} else {
					hist.overflow++
				}
				hist.consumed = true
			}
		}
		if tag.Channel == hist.pair.Start {
			hist.lastStart = tag.Time
			hist.haveStart = true
			hist.consumed = false
		}
	}
}

// Histogram returns a copy of the bins and the overflow counter of the
// first histogram registered for (start, stop). With reset, the counters
// are cleared atomically after the copy. ok is false if no such pair is
// configured; reading never fails otherwise.
func (h *HistogramEngine) Histogram(start, stop uint8, reset bool) (bins []int32, overflow int32, ok bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, hist := range h.hists {
		if hist.pair.Start != start || hist.pair.Stop != stop {
			continue
		}

		bins = make([]int32, len(hist.bins))
		copy(bins, hist.bins)
		overflow = hist.overflow

		if reset {
			clear(hist.bins)
			hist.overflow = 0
		}

		return bins, overflow, true
	}

	return nil, 0, false
}

// ResetAll zeros the bins and overflow counters of every histogram without
// touching the configuration.
func (h *HistogramEngine) ResetAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, hist := range h.hists {
		clear(hist.bins)
		hist.overflow = 0
		hist.haveStart = false
		hist.consumed = false
	}
}
