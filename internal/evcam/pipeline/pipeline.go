package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Harrison-Oatman/EventCamProcessing/internal/config"
	"github.com/Harrison-Oatman/EventCamProcessing/internal/evcam/l1events"
	"github.com/Harrison-Oatman/EventCamProcessing/internal/evcam/l2window"
	"github.com/Harrison-Oatman/EventCamProcessing/internal/evcam/l3filters"
	"github.com/Harrison-Oatman/EventCamProcessing/internal/evcam/l4particles"
	"github.com/Harrison-Oatman/EventCamProcessing/internal/evcam/l5tracks"
	"github.com/Harrison-Oatman/EventCamProcessing/internal/monitoring"
)

// Options configures a Pipeline.
type Options struct {
	TAccumUs int64 // window retention
	BinUs    int64 // tracker bin width, normally the source chunk duration

	Chain l3filters.Chain

	MinArea int
	Height  int
	Width   int
	Workers int // detection workers; 1 runs detection inline

	MaxDisp    float64
	DeltaFloor float64

	Metrics *monitoring.PipelineMetrics // optional
}

// OptionsFromTuning derives pipeline options from cfg.
func OptionsFromTuning(cfg *config.TuningConfig, metrics *monitoring.PipelineMetrics) (Options, error) {
	chain, err := l3filters.ChainFromTuning(cfg)
	if err != nil {
		return Options{}, fmt.Errorf("build filter chain: %w", err)
	}
	return Options{
		TAccumUs:   cfg.GetTAccumUs(),
		BinUs:      cfg.GetChunkDeltaTUs(),
		Chain:      chain,
		MinArea:    cfg.GetMinArea(),
		Height:     cfg.GetSensorHeight(),
		Width:      cfg.GetSensorWidth(),
		Workers:    cfg.GetDetectWorkers(),
		MaxDisp:    cfg.GetMaxDisp(),
		DeltaFloor: cfg.GetDeltaFloor(),
		Metrics:    metrics,
	}, nil
}

// Validate checks the options.
func (o Options) Validate() error {
	if o.TAccumUs < 0 {
		return fmt.Errorf("t_accum_us must be non-negative, got %d", o.TAccumUs)
	}
	if o.BinUs <= 0 {
		return fmt.Errorf("bin width must be positive, got %d", o.BinUs)
	}
	if o.Height <= 0 || o.Width <= 0 {
		return fmt.Errorf("sensor size must be positive, got %dx%d", o.Height, o.Width)
	}
	if o.MaxDisp < 0 {
		return fmt.Errorf("max_disp must be non-negative, got %f", o.MaxDisp)
	}
	return nil
}

// Result is the outcome of one pipeline run.
type Result struct {
	RunID uuid.UUID

	Particles []l4particles.Particle // sorted by time centroid
	Tracks    []l5tracks.Track
	TimeBins  []float64

	Chunks  int
	Events  int
	Windows int

	FilterStats []l3filters.FilterStat // summed over all windows
	Detect      l4particles.DetectStats
	Stats       *l5tracks.RunStatistics
}

// Pipeline runs a recording end to end. A Pipeline may be reused for
// sequential runs but not shared between concurrent Run calls.
type Pipeline struct {
	opts Options
}

// New validates opts and returns a Pipeline.
func New(opts Options) (*Pipeline, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Pipeline{opts: opts}, nil
}

// Options returns the pipeline's options.
func (p *Pipeline) Options() Options { return p.opts }

// windowResult is the per-window output of filter and detection.
type windowResult struct {
	particles []l4particles.Particle
	filters   []l3filters.FilterStat
	detect    l4particles.DetectStats
}

// streamBounds tracks the first and last event timestamps seen.
type streamBounds struct {
	seen        bool
	first, last int64
}

func (b *streamBounds) observe(chunk []l1events.Event) {
	if len(chunk) == 0 {
		return
	}
	if !b.seen {
		b.first = chunk[0].T
		b.seen = true
	}
	b.last = chunk[len(chunk)-1].T
}

// Run drains src, detecting particles in every window, then links them
// into tracks over bins of BinUs from the first to the last event.
//
// The window current at end of stream was already detected by the Push
// that produced it; the accumulator is then closed so it cannot be
// pushed again.
func (p *Pipeline) Run(ctx context.Context, src l1events.EventSource) (*Result, error) {
	res := &Result{RunID: uuid.New()}
	acc := l2window.NewAccumulator(p.opts.TAccumUs)
	var bounds streamBounds

	var perWindow []windowResult
	var err error
	if p.opts.Workers > 1 {
		perWindow, err = p.detectParallel(ctx, src, acc, &bounds, res)
	} else {
		perWindow, err = p.detectSequential(ctx, src, acc, &bounds, res)
	}
	if err != nil {
		return nil, err
	}
	if final := acc.Close(); len(final) > 0 {
		diagf("run %s: closed accumulator with %d events in final window", res.RunID, len(final))
	}

	res.FilterStats = make([]l3filters.FilterStat, len(p.opts.Chain))
	for i, f := range p.opts.Chain {
		res.FilterStats[i].Name = f.Name()
	}
	for _, w := range perWindow {
		res.Particles = append(res.Particles, w.particles...)
		for i, fs := range w.filters {
			res.FilterStats[i].In += fs.In
			res.FilterStats[i].Out += fs.Out
		}
		res.Detect.OnEvents += w.detect.OnEvents
		res.Detect.OutOfFrame += w.detect.OutOfFrame
		res.Detect.Regions += w.detect.Regions
		res.Detect.BelowMinArea += w.detect.BelowMinArea
	}
	if res.Particles == nil {
		res.Particles = []l4particles.Particle{}
	}
	l4particles.SortByTime(res.Particles)

	if bounds.seen {
		res.TimeBins = l2window.TimeBins(bounds.first, bounds.last, p.opts.BinUs)
	}
	res.Tracks = l5tracks.NewTracker(p.opts.MaxDisp, p.opts.DeltaFloor).Run(res.Particles, res.TimeBins)
	res.Stats = l5tracks.ComputeRunStatistics(res.Tracks)
	p.opts.Metrics.RecordTracks(len(res.Tracks))

	diagf("run %s: %d chunks, %d events, %d windows, %d particles, %d tracks",
		res.RunID, res.Chunks, res.Events, res.Windows, len(res.Particles), len(res.Tracks))
	return res, nil
}

// next reads one chunk. It returns io.EOF at end of stream.
func (p *Pipeline) next(ctx context.Context, src l1events.EventSource, bounds *streamBounds, res *Result) ([]l1events.Event, error) {
	chunk, err := src.Next(ctx)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		opsf("run %s: source failed after %d chunks: %v", res.RunID, res.Chunks, err)
		return nil, fmt.Errorf("read chunk %d: %w", res.Chunks, err)
	}
	res.Chunks++
	res.Events += len(chunk)
	bounds.observe(chunk)
	p.opts.Metrics.RecordChunk(len(chunk))
	return chunk, nil
}

func (p *Pipeline) detectSequential(ctx context.Context, src l1events.EventSource, acc *l2window.Accumulator,
	bounds *streamBounds, res *Result) ([]windowResult, error) {

	det := l4particles.NewDetector(p.opts.MinArea, p.opts.Height, p.opts.Width)
	var out []windowResult
	for {
		chunk, err := p.next(ctx, src, bounds, res)
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		window, err := acc.Push(chunk)
		if err != nil {
			return nil, err
		}
		res.Windows++
		out = append(out, p.processWindow(det, window))
	}
}

type windowJob struct {
	index  int
	window []l1events.Event
}

// detectParallel accumulates windows in stream order on one goroutine and
// fans filtering and detection out to Workers goroutines, each with its
// own Detector. Results are returned in window order.
func (p *Pipeline) detectParallel(ctx context.Context, src l1events.EventSource, acc *l2window.Accumulator,
	bounds *streamBounds, res *Result) ([]windowResult, error) {

	g, gctx := errgroup.WithContext(ctx)
	jobs := make(chan windowJob, p.opts.Workers)

	var mu sync.Mutex
	results := make(map[int]windowResult)

	g.Go(func() error {
		defer close(jobs)
		for {
			chunk, err := p.next(gctx, src, bounds, res)
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return err
			}
			window, err := acc.Push(chunk)
			if err != nil {
				return err
			}
			job := windowJob{index: res.Windows, window: window}
			res.Windows++
			select {
			case jobs <- job:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
	})

	for w := 0; w < p.opts.Workers; w++ {
		det := l4particles.NewDetector(p.opts.MinArea, p.opts.Height, p.opts.Width)
		g.Go(func() error {
			for job := range jobs {
				r := p.processWindow(det, job.window)
				mu.Lock()
				results[job.index] = r
				mu.Unlock()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	out := make([]windowResult, len(results))
	for i, r := range results {
		out[i] = r
	}
	return out, nil
}

// processWindow filters one window and detects its particles.
func (p *Pipeline) processWindow(det *l4particles.Detector, window []l1events.Event) windowResult {
	start := time.Now()
	filtered, fstats := p.opts.Chain.Apply(window)
	for _, fs := range fstats {
		p.opts.Metrics.RecordFilter(fs.Name, fs.Removed())
	}
	particles, dstats := det.Detect(filtered)
	p.opts.Metrics.RecordWindow(len(particles), dstats.OutOfFrame, time.Since(start).Seconds())
	tracef("window: %d events, %d after filters, %d particles", len(window), len(filtered), len(particles))
	return windowResult{particles: particles, filters: fstats, detect: dstats}
}
