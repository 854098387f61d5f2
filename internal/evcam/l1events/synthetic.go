package l1events

import (
	"context"
	"io"
	"math"
	"math/rand"
)

// Blob describes one synthetic particle: a square of Size pixels whose
// top-left corner starts at (X0, Y0) and moves at (VX, VY) pixels per
// millisecond.
type Blob struct {
	X0, Y0 float64
	VX, VY float64
	Size   int
}

// SyntheticSource generates a deterministic event stream of moving blobs,
// uniform background noise and an optional hot pixel. It is used by tests
// and by the evtrack demo binary.
type SyntheticSource struct {
	// Configuration
	Width, Height  int
	DeltaT         int64  // chunk duration (us)
	DurationUs     int64  // total stream duration (us)
	StepUs         int64  // blob redraw interval (us)
	NoisePerChunk  int    // uniformly placed noise events per chunk
	HotPixel       *PixelKey
	HotPixelPeriod int64 // us between hot-pixel events
	Blobs          []Blob

	// Internal state
	start int64
	next  int64
	rng   *rand.Rand
}

// NewSyntheticSource creates a generator for a width x height sensor with
// a fixed random seed.
func NewSyntheticSource(width, height int, seed int64) *SyntheticSource {
	return &SyntheticSource{
		Width:          width,
		Height:         height,
		DeltaT:         10000,
		DurationUs:     200000,
		StepUs:         1000,
		NoisePerChunk:  20,
		HotPixelPeriod: 500,
		rng:            rand.New(rand.NewSource(seed)),
	}
}

// Next returns the next DeltaT-long chunk, sorted by time.
func (g *SyntheticSource) Next(ctx context.Context) ([]Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if g.DeltaT <= 0 || g.next-g.start >= g.DurationUs {
		return nil, io.EOF
	}
	t0 := g.next
	t1 := t0 + g.DeltaT
	g.next = t1

	var chunk []Event
	if g.StepUs > 0 {
		first := ((t0 + g.StepUs - 1) / g.StepUs) * g.StepUs
		for t := first; t < t1; t += g.StepUs {
			for _, b := range g.Blobs {
				chunk = g.appendBlob(chunk, b, t)
			}
		}
	}
	for i := 0; i < g.NoisePerChunk; i++ {
		p := PolarityOn
		if g.rng.Intn(2) == 0 {
			p = PolarityOff
		}
		chunk = append(chunk, Event{
			X: int32(g.rng.Intn(g.Width)),
			Y: int32(g.rng.Intn(g.Height)),
			T: t0 + g.rng.Int63n(g.DeltaT),
			P: p,
		})
	}
	if g.HotPixel != nil && g.HotPixelPeriod > 0 {
		first := ((t0 + g.HotPixelPeriod - 1) / g.HotPixelPeriod) * g.HotPixelPeriod
		for t := first; t < t1; t += g.HotPixelPeriod {
			chunk = append(chunk, Event{X: g.HotPixel.X, Y: g.HotPixel.Y, T: t, P: PolarityOn})
		}
	}
	SortByTime(chunk)
	return chunk, nil
}

// appendBlob draws the blob at time t: ON events over its current square
// and OFF events over the pixels it vacated since the previous step.
func (g *SyntheticSource) appendBlob(dst []Event, b Blob, t int64) []Event {
	ms := float64(t-g.start) / 1000
	x := int32(math.Round(b.X0 + b.VX*ms))
	y := int32(math.Round(b.Y0 + b.VY*ms))
	prevMs := float64(t-g.StepUs-g.start) / 1000
	px := int32(math.Round(b.X0 + b.VX*prevMs))
	py := int32(math.Round(b.Y0 + b.VY*prevMs))
	size := int32(b.Size)

	for dy := int32(0); dy < size; dy++ {
		for dx := int32(0); dx < size; dx++ {
			if g.inFrame(x+dx, y+dy) {
				dst = append(dst, Event{X: x + dx, Y: y + dy, T: t, P: PolarityOn})
			}
			ox, oy := px+dx, py+dy
			stillCovered := ox >= x && ox < x+size && oy >= y && oy < y+size
			if t-g.StepUs >= g.start && !stillCovered && g.inFrame(ox, oy) {
				dst = append(dst, Event{X: ox, Y: oy, T: t, P: PolarityOff})
			}
		}
	}
	return dst
}

func (g *SyntheticSource) inFrame(x, y int32) bool {
	return x >= 0 && y >= 0 && int(x) < g.Width && int(y) < g.Height
}

var _ EventSource = (*SyntheticSource)(nil)
