package l3filters

import (
	"fmt"

	"github.com/Harrison-Oatman/EventCamProcessing/internal/config"
	"github.com/Harrison-Oatman/EventCamProcessing/internal/evcam/l1events"
)

// FilterStat records one filter's effect on a window.
type FilterStat struct {
	Name string
	In   int
	Out  int
}

// Removed returns the number of events the filter dropped.
func (s FilterStat) Removed() int { return s.In - s.Out }

// Chain applies filters in order. An empty chain passes events through.
type Chain []Filter

// Apply runs every filter and returns the final events with per-filter
// statistics in application order.
func (c Chain) Apply(evs []l1events.Event) ([]l1events.Event, []FilterStat) {
	stats := make([]FilterStat, 0, len(c))
	for _, f := range c {
		in := len(evs)
		evs = f.Apply(evs)
		stats = append(stats, FilterStat{Name: f.Name(), In: in, Out: len(evs)})
	}
	return evs, stats
}

// Names lists the filter names in application order.
func (c Chain) Names() []string {
	names := make([]string, len(c))
	for i, f := range c {
		names[i] = f.Name()
	}
	return names
}

// ChainFromTuning builds the filter chain named by cfg.GetFilters(), in
// that order, with parameters taken from cfg.
func ChainFromTuning(cfg *config.TuningConfig) (Chain, error) {
	index := IndexKind(cfg.GetNeighbourIndex())
	var chain Chain
	for _, name := range cfg.GetFilters() {
		switch name {
		case NameIsolated:
			f := Isolated{
				SpatialRadius: cfg.GetIsolatedSpatialRadius(),
				TimeWindow:    cfg.GetIsolatedTimeWindowUs(),
				MinNeighbors:  cfg.GetIsolatedMinNeighbors(),
				Index:         index,
			}
			if err := f.Validate(); err != nil {
				return nil, err
			}
			chain = append(chain, f)
		case NameLowPass:
			chain = append(chain, LowPass{
				MinDt:    cfg.GetLowPassMinDtUs(),
				MinCount: cfg.GetLowPassMinCount(),
			})
		case NameHotPixel:
			chain = append(chain, HotPixel{MinDuration: cfg.GetHotPixelMinDurationUs()})
		case NameOppositePolarity:
			chain = append(chain, OppositePolarity{
				SpatialRadius: cfg.GetOppositePolaritySpatialRadius(),
				TimeScale:     cfg.GetOppositePolarityTimeScale(),
				Index:         index,
			})
		default:
			return nil, fmt.Errorf("unknown filter %q", name)
		}
	}
	diagf("filter chain: %v (index=%s)", chain.Names(), index)
	return chain, nil
}
