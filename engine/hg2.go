package engine

import (
	"sync"

	"github.com/quphoton/tagstream/errs"
)

// Hg2 parameter ranges and defaults.
const (
	MinHg2BinCount = 16
	MaxHg2BinCount = 65536
	MaxHg2BinWidth = 1_000_000
	MaxHg2Channel  = 96

	DefaultHg2BinWidth = 1
	DefaultHg2BinCount = 256
)

// Hg2Engine accumulates the second-order cross correlation data heralded
// g(2) functions are derived from. Three channels contribute: the idler
// (herald) and two signal detectors. Every idler event becomes the current
// time reference; signal events are binned by their time difference to that
// reference into centered histograms (bin binCount/2 is zero difference).
//
// Accumulators:
//   - evtIdler: idler events registered
//   - evtCoinc: signal1/idler coincidences with |dt| < binWidth/2
//   - histS2i:  signal2/idler pairs per signal2 bin
//   - histSsi:  triples with a coincident signal1 per signal2 bin
//   - tcp:      triple coincidence map over (signal1 bin, signal2 bin)
//
// The g(2) estimate per bin i is histSsi[i]*evtIdler/(evtCoinc*histS2i[i]),
// which approaches 1 for uncorrelated inputs.
type Hg2Engine struct {
	mu sync.Mutex

	enabled  bool
	binWidth int32
	binCount int32
	idler    uint8
	ch1      uint8
	ch2      uint8

	evtIdler int64
	evtCoinc int64
	histSsi  []int64
	histS2i  []int64
	tcp      [][]int64

	// State of the current idler reference.
	haveIdler bool
	idlerTime int64
	ch1Bins   []int32
	ch1Coinc  int64
	ch2Bins   []int32
}

// NewHg2Engine creates a disabled engine with default parameters
// (binWidth 1, binCount 256, channels 1/2/3).
func NewHg2Engine() *Hg2Engine {
	e := &Hg2Engine{
		binWidth: DefaultHg2BinWidth,
		binCount: DefaultHg2BinCount,
		idler:    1,
		ch1:      2,
		ch2:      3,
	}
	e.allocLocked()

	return e
}

// Enable enables or disables the accumulation. Both transitions clear the
// correlation data; use Freeze on the coordinator to pause without
// clearing.
func (e *Hg2Engine) Enable(enable bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.enabled = enable
	e.clearLocked()
}

// Enabled reports whether accumulation is active.
func (e *Hg2Engine) Enabled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.enabled
}

// SetParams sets the bin width (picoseconds, 1..1M) and bin count
// (16..64k). All collected data is cleared on success; the previous
// parameters stay in effect on error.
func (e *Hg2Engine) SetParams(binWidth, binCount int32) error {
	if binWidth < 1 || binWidth > MaxHg2BinWidth {
		return errs.ErrInvalidParameter
	}
	if binCount < MinHg2BinCount || binCount > MaxHg2BinCount {
		return errs.ErrInvalidParameter
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.binWidth = binWidth
	e.binCount = binCount
	e.allocLocked()

	return nil
}

// Params returns bin width and bin count.
func (e *Hg2Engine) Params() (binWidth, binCount int32) {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.binWidth, e.binCount
}

// SetInput selects the idler and the two signal channels. The channels
// must be distinct and within 0..96. Collected data is cleared on success.
func (e *Hg2Engine) SetInput(idler, ch1, ch2 int) error {
	for _, ch := range []int{idler, ch1, ch2} {
		if ch < 0 || ch > MaxHg2Channel {
			return errs.ErrInvalidParameter
		}
	}
	if idler == ch1 || idler == ch2 || ch1 == ch2 {
		return errs.ErrInvalidParameter
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.idler = uint8(idler)
	e.ch1 = uint8(ch1)
	e.ch2 = uint8(ch2)
	e.clearLocked()

	return nil
}

// Input returns the idler and signal channel numbers.
func (e *Hg2Engine) Input() (idler, ch1, ch2 int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	return int(e.idler), int(e.ch1), int(e.ch2)
}

// ResetCorrelations clears the accumulated correlation data, keeping the
// configuration and the enable state.
func (e *Hg2Engine) ResetCorrelations() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.clearLocked()
}

// Process accounts one event. Events on channels other than the three
// configured inputs are ignored, as are signal events before the first
// idler reference.
func (e *Hg2Engine) Process(tag TimeTag) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.enabled {
		return
	}

	switch tag.Channel {
	case e.idler:
		e.evtIdler++
		e.idlerTime = tag.Time
		e.haveIdler = true
		e.ch1Bins = e.ch1Bins[:0]
		e.ch1Coinc = 0
		e.ch2Bins = e.ch2Bins[:0]

	case e.ch1:
		if !e.haveIdler {
			return
		}
		dt := tag.Time - e.idlerTime
		if coincident(dt, e.binWidth) {
			e.evtCoinc++
			e.ch1Coinc++
			for _, b2 := range e.ch2Bins {
				e.histSsi[b2]++
			}
		}
		bin, ok := e.binOf(dt)
		if !ok {
			return
		}
		for _, b2 := range e.ch2Bins {
			e.tcp[bin][b2]++
		}
		e.ch1Bins = append(e.ch1Bins, bin)

	case e.ch2:
		if !e.haveIdler {
			return
		}
		bin, ok := e.binOf(tag.Time - e.idlerTime)
		if !ok {
			return
		}
		e.histS2i[bin]++
		e.histSsi[bin] += e.ch1Coinc
		for _, b1 := range e.ch1Bins {
			e.tcp[b1][bin]++
		}
		e.ch2Bins = append(e.ch2Bins, bin)
	}
}

// G2 calculates the g(2) function from the current accumulator state:
// g2[i] = histSsi[i]*evtIdler / (evtCoinc*histS2i[i]), 0 where the
// denominator is zero. With reset, the accumulators are cleared atomically
// after the snapshot.
func (e *Hg2Engine) G2(reset bool) []float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]float64, e.binCount)
	for i := range out {
		denom := float64(e.evtCoinc) * float64(e.histS2i[i])
		if denom > 0 {
			out[i] = float64(e.histSsi[i]) * float64(e.evtIdler) / denom
		}
	}

	if reset {
		e.clearLocked()
	}

	return out
}

// Tcp returns a copy of the 2D triple coincidence map; tcp[a][b] counts
// triples with signal1 in bin a and signal2 in bin b.
func (e *Hg2Engine) Tcp(reset bool) [][]int64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([][]int64, e.binCount)
	for a := range out {
		out[a] = make([]int64, e.binCount)
		copy(out[a], e.tcp[a])
	}

	if reset {
		e.clearLocked()
	}

	return out
}

// Tcp1D returns the triple coincidence map flattened row-major:
// buffer[a + b*binCount] counts triples with time-difference bins a and b.
func (e *Hg2Engine) Tcp1D(reset bool) []int64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	n := int(e.binCount)
	out := make([]int64, n*n)
	for a := 0; a < n; a++ {
		for b := 0; b < n; b++ {
			out[a+b*n] = e.tcp[a][b]
		}
	}

	if reset {
		e.clearLocked()
	}

	return out
}

// Raw returns copies of the raw accumulators the g(2) function is derived
// from. It never fails; before any data arrives all values are zero.
func (e *Hg2Engine) Raw() (evtIdler, evtCoinc int64, ssi, s2i []int64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ssi = make([]int64, e.binCount)
	copy(ssi, e.histSsi)
	s2i = make([]int64, e.binCount)
	copy(s2i, e.histS2i)

	return e.evtIdler, e.evtCoinc, ssi, s2i
}

// binOf maps a time difference to a centered bin index.
func (e *Hg2Engine) binOf(dt int64) (int32, bool) {
	bin := int64(e.binCount/2) + floorDiv(dt, int64(e.binWidth))
	if bin < 0 || bin >= int64(e.binCount) {
		return 0, false
	}

	return int32(bin), true
}

// coincident reports |dt| < binWidth/2 without losing the half unit to
// integer division.
func coincident(dt int64, binWidth int32) bool {
	if dt < 0 {
		dt = -dt
	}

	return 2*dt < int64(binWidth)
}

// floorDiv divides rounding toward negative infinity.
func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}

	return q
}

func (e *Hg2Engine) allocLocked() {
	e.histSsi = make([]int64, e.binCount)
	e.histS2i = make([]int64, e.binCount)
	e.tcp = make([][]int64, e.binCount)
	for i := range e.tcp {
		e.tcp[i] = make([]int64, e.binCount)
	}
	e.resetReferenceLocked()
	e.evtIdler = 0
	e.evtCoinc = 0
}

func (e *Hg2Engine) clearLocked() {
	e.evtIdler = 0
	e.evtCoinc = 0
	clear(e.histSsi)
	clear(e.histS2i)
	for i := range e.tcp {
		clear(e.tcp[i])
	}
	e.resetReferenceLocked()
}

func (e *Hg2Engine) resetReferenceLocked() {
	e.haveIdler = false
	e.idlerTime = 0
	e.ch1Bins = e.ch1Bins[:0]
	e.ch1Coinc = 0
	e.ch2Bins = e.ch2Bins[:0]
}
