package engine

import (
	"math/rand/v2"

	"github.com/quphoton/tagstream/errs"
	"github.com/quphoton/tagstream/format"
)

// Generator produces synthetic timestamps for demonstration and
// simulation. Generated events run through the same ingestion path as
// recorded data. The time cursor advances across calls, so consecutive
// generations extend one ordered stream.
type Generator struct {
	rng *rand.Rand
	now int64
}

// NewGenerator creates a seeded generator; the same seed reproduces the
// same stream.
func NewGenerator(seed uint64) *Generator {
	return &Generator{
		rng: rand.New(rand.NewPCG(seed, seed^0x9E3779B97F4A7C15)),
	}
}

// Generate feeds count synthetic events into the coordinator. Channels are
// drawn uniformly from the enabled channels; time differences follow the
// selected distribution with par = [center, width] in picoseconds.
// Negative time differences are dropped without producing an event. At
// least one channel has to be enabled.
func (g *Generator) Generate(c *Coordinator, simType format.SimType, par []float64, count int) error {
	if simType != format.SimFlat && simType != format.SimNormal {
		return errs.ErrInvalidParameter
	}
	if len(par) < 2 || count < 0 {
		return errs.ErrInvalidParameter
	}

	channels := enabledChannels(c)
	if len(channels) == 0 {
		return errs.ErrInvalidParameter
	}

	center, width := par[0], par[1]
	for i := 0; i < count; i++ {
		var diff float64
		switch simType {
		case format.SimFlat:
			diff = center + (g.rng.Float64()-0.5)*width
		case format.SimNormal:
			diff = center + g.rng.NormFloat64()*width
		}
		if diff < 0 {
			continue
		}

		g.now += int64(diff)
		ch := channels[g.rng.IntN(len(channels))]
		_ = c.Ingest(TimeTag{Time: g.now, Channel: ch})
	}

	return nil
}

func enabledChannels(c *Coordinator) []uint8 {
	start, mask := c.Channels()

	var channels []uint8
	if start {
		channels = append(channels, ChannelStart)
	}
	for ch := uint8(1); ch <= NumStopChannels; ch++ {
		if mask&(1<<(ch-1)) != 0 {
			channels = append(channels, ch)
		}
	}

	return channels
}
