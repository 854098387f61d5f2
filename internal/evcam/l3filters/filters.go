package l3filters

import (
	"fmt"

	"gonum.org/v1/gonum/stat"

	"github.com/Harrison-Oatman/EventCamProcessing/internal/evcam/l1events"
)

// Filter names used in configuration and metrics labels.
const (
	NameIsolated         = "isolated"
	NameLowPass          = "low_pass"
	NameHotPixel         = "hot_pixel"
	NameOppositePolarity = "opposite_polarity"
)

// Filter removes noise events from a window. Apply returns a subsequence
// of evs and never mutates evs.
type Filter interface {
	Name() string
	Apply(evs []l1events.Event) []l1events.Event
}

// =============================================================================
// Isolated-event filter
// =============================================================================

// Isolated keeps events that have more than MinNeighbors events (itself
// included) within a Chebyshev radius of 1 once coordinates are scaled to
// (x/SpatialRadius, y/SpatialRadius, t/TimeWindow).
type Isolated struct {
	SpatialRadius float64   // pixels
	TimeWindow    float64   // microseconds
	MinNeighbors  int       // strict lower bound on the neighbour count
	Index         IndexKind // neighbour index backend
}

func (f Isolated) Name() string { return NameIsolated }

// Validate checks the filter parameters.
func (f Isolated) Validate() error {
	if !(f.SpatialRadius > 0) {
		return fmt.Errorf("isolated: spatial radius must be positive, got %v", f.SpatialRadius)
	}
	if !(f.TimeWindow > 0) {
		return fmt.Errorf("isolated: time window must be positive, got %v", f.TimeWindow)
	}
	return nil
}

// Apply preserves the input order of the retained events.
func (f Isolated) Apply(evs []l1events.Event) []l1events.Event {
	if len(evs) == 0 {
		return evs
	}
	if err := f.Validate(); err != nil {
		opsf("%v; passing %d events through", err, len(evs))
		return evs
	}
	points := make([]Point3, len(evs))
	for i, e := range evs {
		points[i] = Point3{
			float64(e.X) / f.SpatialRadius,
			float64(e.Y) / f.SpatialRadius,
			float64(e.T) / f.TimeWindow,
		}
	}
	idx := NewNeighbourIndex(f.Index, points, Chebyshev, 1.0)

	out := make([]l1events.Event, 0, len(evs))
	for i, p := range points {
		if idx.CountWithin(p, 1.0) > f.MinNeighbors {
			out = append(out, evs[i])
		}
	}
	return out
}

// FilterIsolated applies an Isolated filter using the k-d tree backend.
func FilterIsolated(evs []l1events.Event, spatialRadius, timeWindow float64, minNeighbors int) []l1events.Event {
	return Isolated{SpatialRadius: spatialRadius, TimeWindow: timeWindow, MinNeighbors: minNeighbors}.Apply(evs)
}

// =============================================================================
// Low-pass (flicker) filter
// =============================================================================

// LowPass removes every event at pixels that fire, on average, faster than
// once per MinDt microseconds. Pixels with fewer than MinCount events are
// never classified and always kept.
type LowPass struct {
	MinDt    float64 // microseconds
	MinCount int
}

func (f LowPass) Name() string { return NameLowPass }

// Apply returns the survivors sorted by time.
func (f LowPass) Apply(evs []l1events.Event) []l1events.Event {
	if len(evs) == 0 {
		return evs
	}
	sorted := l1events.SortedByTime(evs)
	keys, groups := l1events.GroupByPixel(sorted)

	drop := make(map[l1events.PixelKey]bool)
	for _, k := range keys {
		idx := groups[k]
		if len(idx) < f.MinCount || len(idx) < 2 {
			continue
		}
		gaps := make([]float64, len(idx)-1)
		for i := 1; i < len(idx); i++ {
			gaps[i-1] = float64(sorted[idx[i]].T - sorted[idx[i-1]].T)
		}
		if stat.Mean(gaps, nil) < f.MinDt {
			drop[k] = true
			tracef("low_pass: pixel (%d,%d) flickers, %d events", k.X, k.Y, len(idx))
		}
	}
	return keepPixels(sorted, drop)
}

// FilterLowPass applies a LowPass filter.
func FilterLowPass(evs []l1events.Event, minDt float64, minCount int) []l1events.Event {
	return LowPass{MinDt: minDt, MinCount: minCount}.Apply(evs)
}

// =============================================================================
// Hot-pixel filter
// =============================================================================

// HotPixel removes every event at pixels that hold one polarity for at
// least MinDuration microseconds: a run of two or more consecutive
// same-polarity events whose first and last timestamps are MinDuration or
// more apart condemns the whole pixel.
type HotPixel struct {
	MinDuration int64 // microseconds
}

func (f HotPixel) Name() string { return NameHotPixel }

// Apply returns the survivors sorted by time.
func (f HotPixel) Apply(evs []l1events.Event) []l1events.Event {
	if len(evs) == 0 {
		return evs
	}
	sorted := l1events.SortedByTime(evs)
	keys, groups := l1events.GroupByPixel(sorted)

	drop := make(map[l1events.PixelKey]bool)
	for _, k := range keys {
		if hasLongRun(sorted, groups[k], f.MinDuration) {
			drop[k] = true
			tracef("hot_pixel: pixel (%d,%d) held polarity >= %dus", k.X, k.Y, f.MinDuration)
		}
	}
	return keepPixels(sorted, drop)
}

// hasLongRun scans the time-ordered events at idx for a maximal
// same-polarity run of length >= 2 spanning at least minDuration.
func hasLongRun(sorted []l1events.Event, idx []int, minDuration int64) bool {
	start := 0
	for i := 1; i <= len(idx); i++ {
		if i < len(idx) && sorted[idx[i]].P == sorted[idx[start]].P {
			continue
		}
		if i-start >= 2 && sorted[idx[i-1]].T-sorted[idx[start]].T >= minDuration {
			return true
		}
		start = i
	}
	return false
}

// FilterHotPixel applies a HotPixel filter.
func FilterHotPixel(evs []l1events.Event, minDuration int64) []l1events.Event {
	return HotPixel{MinDuration: minDuration}.Apply(evs)
}

func keepPixels(sorted []l1events.Event, drop map[l1events.PixelKey]bool) []l1events.Event {
	if len(drop) == 0 {
		return sorted
	}
	out := sorted[:0]
	for _, e := range sorted {
		if !drop[e.Pixel()] {
			out = append(out, e)
		}
	}
	return out
}

// =============================================================================
// Opposite-polarity filter
// =============================================================================

// OppositePolarity keeps an event only if an event of the other polarity
// lies within Euclidean SpatialRadius in (x, y, t*TimeScale) space.
type OppositePolarity struct {
	SpatialRadius float64
	TimeScale     float64
	Index         IndexKind
}

func (f OppositePolarity) Name() string { return NameOppositePolarity }

// Apply returns the survivors sorted by time. If either polarity is
// absent the result is empty.
func (f OppositePolarity) Apply(evs []l1events.Event) []l1events.Event {
	on, off := l1events.SplitByPolarity(evs)
	if len(on) == 0 || len(off) == 0 {
		diagf("opposite_polarity: found no opposite-polarity events (on=%d off=%d)", len(on), len(off))
		return []l1events.Event{}
	}
	onPts := f.scale(on)
	offPts := f.scale(off)
	onIdx := NewNeighbourIndex(f.Index, onPts, Euclidean, f.SpatialRadius)
	offIdx := NewNeighbourIndex(f.Index, offPts, Euclidean, f.SpatialRadius)

	out := make([]l1events.Event, 0, len(evs))
	for i, p := range onPts {
		if offIdx.CountWithin(p, f.SpatialRadius) > 0 {
			out = append(out, on[i])
		}
	}
	for i, p := range offPts {
		if onIdx.CountWithin(p, f.SpatialRadius) > 0 {
			out = append(out, off[i])
		}
	}
	l1events.SortByTime(out)
	return out
}

func (f OppositePolarity) scale(evs []l1events.Event) []Point3 {
	pts := make([]Point3, len(evs))
	for i, e := range evs {
		pts[i] = Point3{float64(e.X), float64(e.Y), float64(e.T) * f.TimeScale}
	}
	return pts
}

// FilterOppositePolarity applies an OppositePolarity filter using the k-d
// tree backend.
func FilterOppositePolarity(evs []l1events.Event, spatialRadius, timeScale float64) []l1events.Event {
	return OppositePolarity{SpatialRadius: spatialRadius, TimeScale: timeScale}.Apply(evs)
}

var (
	_ Filter = Isolated{}
	_ Filter = LowPass{}
	_ Filter = HotPixel{}
	_ Filter = OppositePolarity{}
)
