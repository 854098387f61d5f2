package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Harrison-Oatman/EventCamProcessing/internal/config"
	"github.com/Harrison-Oatman/EventCamProcessing/internal/evcam/l1events"
	"github.com/Harrison-Oatman/EventCamProcessing/internal/evcam/l3filters"
	"github.com/Harrison-Oatman/EventCamProcessing/internal/evcam/l4particles"
	"github.com/Harrison-Oatman/EventCamProcessing/internal/evcam/l5tracks"
	"github.com/Harrison-Oatman/EventCamProcessing/internal/monitoring"
)

// linearBlobSource emits one 4x4 blob moving +1 px/ms along x for 100ms,
// without noise.
func linearBlobSource() *l1events.SyntheticSource {
	src := l1events.NewSyntheticSource(128, 64, 1)
	src.DurationUs = 100000
	src.NoisePerChunk = 0
	src.Blobs = []l1events.Blob{{X0: 10, Y0: 10, VX: 1, VY: 0, Size: 4}}
	return src
}

func noisySource(seed int64) *l1events.SyntheticSource {
	src := l1events.NewSyntheticSource(128, 64, seed)
	src.DurationUs = 80000
	src.NoisePerChunk = 40
	hot := l1events.PixelKey{X: 100, Y: 50}
	src.HotPixel = &hot
	src.Blobs = []l1events.Blob{
		{X0: 5, Y0: 5, VX: 0.8, VY: 0.2, Size: 5},
		{X0: 100, Y0: 40, VX: -0.6, VY: -0.1, Size: 4},
	}
	return src
}

func testOptions() Options {
	return Options{
		TAccumUs: 20000,
		BinUs:    10000,
		MinArea:  9,
		Height:   64,
		Width:    128,
		Workers:  1,
		MaxDisp:  12,
	}
}

func records(tracks []l5tracks.Track) []l5tracks.TrackRecord {
	out := make([]l5tracks.TrackRecord, len(tracks))
	for i, tr := range tracks {
		out[i] = tr.Record()
	}
	return out
}

func TestRun_LinearBlob(t *testing.T) {
	p, err := New(testOptions())
	require.NoError(t, err)

	res, err := p.Run(context.Background(), linearBlobSource())
	require.NoError(t, err)

	assert.Equal(t, 10, res.Chunks)
	assert.Equal(t, 10, res.Windows)
	require.Len(t, res.Particles, 10)
	assert.True(t, l4particles.IsTimeOrdered(res.Particles))
	assert.Len(t, res.TimeBins, 11)

	// The first two windows both fall in the seeding bin; the second one
	// continues, the first is frozen after one round.
	require.Len(t, res.Tracks, 2)
	assert.Equal(t, 1, res.Tracks[0].Len())
	assert.Equal(t, []float64{16}, res.Tracks[0].X())

	long := res.Tracks[1]
	assert.Equal(t, 9, long.Len())
	assert.Equal(t, []float64{21, 30.5, 40.5, 50.5, 60.5, 70.5, 80.5, 90.5, 100.5}, long.X())
	for _, y := range long.Y() {
		assert.Equal(t, 11.5, y)
	}
	assert.Equal(t, 2, res.Stats.TrackCount)
	assert.Equal(t, 9, res.Stats.MaxTrackLength)
	assert.NotEqual(t, [16]byte{}, [16]byte(res.RunID))
}

func TestRun_ParallelMatchesSequential(t *testing.T) {
	chain := l3filters.Chain{
		l3filters.HotPixel{MinDuration: 4000},
		l3filters.Isolated{SpatialRadius: 2, TimeWindow: 3000, MinNeighbors: 2, Index: l3filters.IndexGrid},
	}

	seqOpts := testOptions()
	seqOpts.Chain = chain
	seq, err := New(seqOpts)
	require.NoError(t, err)
	want, err := seq.Run(context.Background(), noisySource(11))
	require.NoError(t, err)

	parOpts := seqOpts
	parOpts.Workers = 4
	par, err := New(parOpts)
	require.NoError(t, err)
	got, err := par.Run(context.Background(), noisySource(11))
	require.NoError(t, err)

	assert.NotEmpty(t, want.Particles)
	if diff := cmp.Diff(want.Particles, got.Particles); diff != "" {
		t.Errorf("particles mismatch (-sequential +parallel):\n%s", diff)
	}
	if diff := cmp.Diff(records(want.Tracks), records(got.Tracks)); diff != "" {
		t.Errorf("tracks mismatch (-sequential +parallel):\n%s", diff)
	}
	assert.Equal(t, want.FilterStats, got.FilterStats)
	assert.Equal(t, want.Detect, got.Detect)
	assert.Equal(t, want.Windows, got.Windows)
	assert.NotEqual(t, want.RunID, got.RunID)
}

func TestRun_FilterStats(t *testing.T) {
	opts := testOptions()
	opts.Chain = l3filters.Chain{l3filters.HotPixel{MinDuration: 4000}}
	p, err := New(opts)
	require.NoError(t, err)

	res, err := p.Run(context.Background(), noisySource(3))
	require.NoError(t, err)

	require.Len(t, res.FilterStats, 1)
	assert.Equal(t, l3filters.NameHotPixel, res.FilterStats[0].Name)
	assert.Positive(t, res.FilterStats[0].Removed())
	assert.GreaterOrEqual(t, res.FilterStats[0].In, res.Events)
}

func TestRun_EmptySource(t *testing.T) {
	p, err := New(testOptions())
	require.NoError(t, err)

	res, err := p.Run(context.Background(), l1events.NewSliceSource(nil, 10000))
	require.NoError(t, err)

	assert.Zero(t, res.Chunks)
	assert.Empty(t, res.Particles)
	assert.NotNil(t, res.Particles)
	assert.Empty(t, res.Tracks)
	assert.Nil(t, res.TimeBins)
	assert.Equal(t, 0, res.Stats.TrackCount)
}

type failingSource struct {
	after int
	calls int
	err   error
}

func (s *failingSource) Next(ctx context.Context) ([]l1events.Event, error) {
	s.calls++
	if s.calls > s.after {
		return nil, s.err
	}
	return []l1events.Event{{X: 1, Y: 1, T: int64(s.calls) * 1000, P: l1events.PolarityOn}}, nil
}

func TestRun_SourceError(t *testing.T) {
	boom := errors.New("sensor unplugged")
	for _, workers := range []int{1, 3} {
		opts := testOptions()
		opts.Workers = workers
		p, err := New(opts)
		require.NoError(t, err)

		_, err = p.Run(context.Background(), &failingSource{after: 2, err: boom})
		require.Error(t, err, "workers=%d", workers)
		assert.ErrorIs(t, err, boom)
	}
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for _, workers := range []int{1, 2} {
		opts := testOptions()
		opts.Workers = workers
		p, err := New(opts)
		require.NoError(t, err)

		_, err = p.Run(ctx, linearBlobSource())
		assert.ErrorIs(t, err, context.Canceled, "workers=%d", workers)
	}
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Options)
	}{
		{"zero bin", func(o *Options) { o.BinUs = 0 }},
		{"negative retention", func(o *Options) { o.TAccumUs = -1 }},
		{"zero height", func(o *Options) { o.Height = 0 }},
		{"zero width", func(o *Options) { o.Width = 0 }},
		{"negative max disp", func(o *Options) { o.MaxDisp = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := testOptions()
			tt.mutate(&opts)
			_, err := New(opts)
			assert.Error(t, err)
		})
	}

	opts := testOptions()
	opts.Workers = 0
	p, err := New(opts)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Options().Workers)
}

func TestOptionsFromTuning_RecordsMetrics(t *testing.T) {
	cfg := config.MustLoadDefaultConfig()
	reg := prometheus.NewRegistry()
	opts, err := OptionsFromTuning(cfg, monitoring.NewPipelineMetrics(reg))
	require.NoError(t, err)
	assert.Equal(t, cfg.GetTAccumUs(), opts.TAccumUs)
	assert.Equal(t, cfg.GetChunkDeltaTUs(), opts.BinUs)
	assert.Empty(t, opts.Chain)

	opts.Height, opts.Width, opts.MinArea = 64, 128, 9
	p, err := New(opts)
	require.NoError(t, err)
	res, err := p.Run(context.Background(), linearBlobSource())
	require.NoError(t, err)

	assert.Equal(t, float64(res.Events), gatheredValue(t, reg, "evcam_pipeline_events_ingested_total"))
	assert.Equal(t, float64(res.Windows), gatheredValue(t, reg, "evcam_pipeline_windows_processed_total"))
	assert.Equal(t, float64(len(res.Particles)), gatheredValue(t, reg, "evcam_detector_particles_detected_total"))
	assert.Equal(t, float64(len(res.Tracks)), gatheredValue(t, reg, "evcam_tracker_tracks_created_total"))
}

func TestOptionsFromTuning_BadChain(t *testing.T) {
	_, err := OptionsFromTuning(&config.TuningConfig{Filters: []string{"nope"}}, nil)
	assert.Error(t, err)
}

func gatheredValue(t *testing.T, g prometheus.Gatherer, name string) float64 {
	t.Helper()
	families, err := g.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		var sum float64
		for _, m := range mf.GetMetric() {
			sum += m.GetCounter().GetValue()
		}
		return sum
	}
	t.Fatalf("metric %s not gathered", name)
	return 0
}
