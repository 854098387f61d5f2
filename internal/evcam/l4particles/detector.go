package l4particles

import (
	"sort"

	"github.com/Harrison-Oatman/EventCamProcessing/internal/config"
	"github.com/Harrison-Oatman/EventCamProcessing/internal/evcam/l1events"
)

// DetectStats summarises one Detect call.
type DetectStats struct {
	OnEvents     int // ON events inside the frame
	OutOfFrame   int // ON events skipped for lying outside the sensor
	Regions      int // connected regions found
	BelowMinArea int // regions discarded for area < MinArea
}

// Detector labels the ON events of a window into particles. Its frame
// buffers are reused across calls, so a Detector must not be shared
// between goroutines; give each worker its own.
type Detector struct {
	MinArea int
	Height  int
	Width   int

	// Per-pixel accumulators, indexed y*Width + x.
	count  []uint32
	tsSum  []float64
	label  []int32
	queue  []int
	active []int // occupied pixel indices, reset after each call
}

// NewDetector creates a detector for a height x width sensor.
func NewDetector(minArea, height, width int) *Detector {
	d := &Detector{MinArea: minArea, Height: height, Width: width}
	if height > 0 && width > 0 {
		n := height * width
		d.count = make([]uint32, n)
		d.tsSum = make([]float64, n)
		d.label = make([]int32, n)
	}
	return d
}

// Detect clusters the ON events of window into particles, in raster order
// of each region's first pixel. Events outside the sensor are skipped and
// counted in the returned stats.
func (d *Detector) Detect(window []l1events.Event) ([]Particle, DetectStats) {
	var stats DetectStats
	if len(window) == 0 || len(d.count) == 0 {
		return []Particle{}, stats
	}
	defer d.reset()

	w, h := d.Width, d.Height
	for _, e := range window {
		if !e.IsOn() {
			continue
		}
		if e.X < 0 || e.Y < 0 || int(e.X) >= w || int(e.Y) >= h {
			stats.OutOfFrame++
			continue
		}
		stats.OnEvents++
		i := int(e.Y)*w + int(e.X)
		if d.count[i] == 0 {
			d.active = append(d.active, i)
		}
		d.count[i]++
		d.tsSum[i] += float64(e.T)
	}
	if stats.OutOfFrame > 0 {
		opsf("skipped %d ON events outside %dx%d frame", stats.OutOfFrame, w, h)
	}

	// Raster order: row-major pixel index.
	sort.Ints(d.active)

	particles := make([]Particle, 0)
	var next int32
	for _, seed := range d.active {
		if d.label[seed] != 0 {
			continue
		}
		next++
		stats.Regions++
		p := d.grow(seed, next)
		if int(p.Area) < d.MinArea {
			stats.BelowMinArea++
			continue
		}
		particles = append(particles, p)
	}

	tracef("detected %d particles from %d ON events (%d regions, %d below min area %d)",
		len(particles), stats.OnEvents, stats.Regions, stats.BelowMinArea, d.MinArea)
	return particles, stats
}

// grow labels the 8-connected region containing seed and returns its
// particle measurements.
func (d *Detector) grow(seed int, id int32) Particle {
	w, h := d.Width, d.Height
	d.label[seed] = id
	d.queue = append(d.queue[:0], seed)

	var sumX, sumY, tSum float64
	var tCount uint64
	for j := 0; j < len(d.queue); j++ {
		i := d.queue[j]
		x, y := i%w, i/w
		sumX += float64(x)
		sumY += float64(y)
		tSum += d.tsSum[i]
		tCount += uint64(d.count[i])

		for dy := -1; dy <= 1; dy++ {
			ny := y + dy
			if ny < 0 || ny >= h {
				continue
			}
			for dx := -1; dx <= 1; dx++ {
				nx := x + dx
				if (dx == 0 && dy == 0) || nx < 0 || nx >= w {
					continue
				}
				ni := ny*w + nx
				if d.count[ni] == 0 || d.label[ni] != 0 {
					continue
				}
				d.label[ni] = id
				d.queue = append(d.queue, ni)
			}
		}
	}

	area := float64(len(d.queue))
	return Particle{
		X:    float32(sumX / area),
		Y:    float32(sumY / area),
		T:    tSum / float64(tCount),
		Area: int32(len(d.queue)),
	}
}

// reset clears only the pixels touched by the last call.
func (d *Detector) reset() {
	for _, i := range d.active {
		d.count[i] = 0
		d.tsSum[i] = 0
		d.label[i] = 0
	}
	d.active = d.active[:0]
}

// DetectParticles is the one-shot form of Detector.Detect.
func DetectParticles(window []l1events.Event, minArea, height, width int) []Particle {
	ps, _ := NewDetector(minArea, height, width).Detect(window)
	return ps
}

// DetectorFromTuning builds a Detector from the sensor geometry and
// min_area in cfg.
func DetectorFromTuning(cfg *config.TuningConfig) *Detector {
	d := NewDetector(cfg.GetMinArea(), cfg.GetSensorHeight(), cfg.GetSensorWidth())
	diagf("detector: min_area=%d frame=%dx%d", d.MinArea, d.Width, d.Height)
	return d
}
