package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Harrison-Oatman/EventCamProcessing/internal/config"
	"github.com/Harrison-Oatman/EventCamProcessing/internal/evcam/l1events"
	"github.com/Harrison-Oatman/EventCamProcessing/internal/evcam/l2window"
	"github.com/Harrison-Oatman/EventCamProcessing/internal/evcam/l3filters"
	"github.com/Harrison-Oatman/EventCamProcessing/internal/evcam/l4particles"
	"github.com/Harrison-Oatman/EventCamProcessing/internal/evcam/l5tracks"
	"github.com/Harrison-Oatman/EventCamProcessing/internal/evcam/pipeline"
	"github.com/Harrison-Oatman/EventCamProcessing/internal/monitoring"
	"github.com/Harrison-Oatman/EventCamProcessing/internal/version"
)

var (
	configPath  = flag.String("config", "", "Path to tuning JSON (defaults apply to omitted keys)")
	seed        = flag.Int64("seed", 1, "Random seed for the synthetic event source")
	blobs       = flag.Int("blobs", 3, "Number of synthetic particles")
	durationUs  = flag.Int64("duration-us", 200000, "Synthetic recording length in microseconds")
	noise       = flag.Int("noise", 200, "Background noise events per chunk")
	hotPixel    = flag.Bool("hot-pixel", true, "Add a stuck pixel to the synthetic stream")
	tracksOut   = flag.String("tracks-out", "", "Write track records as JSON to this file")
	metricsAddr = flag.String("metrics-addr", "", "Serve Prometheus metrics on this address until interrupted")
	debugLogs   = flag.Bool("debug", false, "Enable diagnostic logs from the pipeline layers")
	traceLogs   = flag.Bool("trace", false, "Enable per-window and per-round trace logs")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("evtrack %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load tuning config: %v", err)
	}
	setLogWriters(os.Stderr, *debugLogs, *traceLogs)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	metrics := monitoring.NewPipelineMetrics(reg)

	var server *http.Server
	if *metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", monitoring.MetricsHandler(reg))
		server = &http.Server{Addr: *metricsAddr, Handler: mux}
		go func() {
			log.Printf("Serving metrics on %s/metrics", *metricsAddr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("metrics server error: %v", err)
			}
		}()
	}

	src := newSyntheticSource(cfg, *seed, *blobs, *durationUs, *noise, *hotPixel)
	res, err := run(ctx, cfg, metrics, src)
	if err != nil {
		log.Fatalf("Pipeline failed: %v", err)
	}
	printSummary(os.Stdout, res)

	if *tracksOut != "" {
		if err := writeTracks(*tracksOut, res.Tracks); err != nil {
			log.Fatalf("Failed to write tracks: %v", err)
		}
		log.Printf("Wrote %d tracks to %s", len(res.Tracks), *tracksOut)
	}

	if server != nil {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("metrics server shutdown error: %v", err)
		}
	}
}

// loadConfig reads path, or returns an empty config whose getters yield
// the defaults when path is empty.
func loadConfig(path string) (*config.TuningConfig, error) {
	if path == "" {
		return config.EmptyTuningConfig(), nil
	}
	return config.LoadTuningConfig(path)
}

// setLogWriters routes every layer's ops stream to w and enables the
// diag and trace streams on request.
func setLogWriters(w io.Writer, debug, trace bool) {
	var diag, tr io.Writer
	if debug {
		diag = w
	}
	if trace {
		tr = w
	}
	l2window.SetLogWriters(w, diag, tr)
	l3filters.SetLogWriters(w, diag, tr)
	l4particles.SetLogWriters(w, diag, tr)
	l5tracks.SetLogWriters(w, diag, tr)
	pipeline.SetLogWriters(w, diag, tr)
	monitoring.SetLogger(monitoring.WriterLogger(w, "[evtrack] "))
}

// newSyntheticSource spreads n blobs across the sensor with velocities
// that keep them in frame for most of the recording.
func newSyntheticSource(cfg *config.TuningConfig, seed int64, n int, durationUs int64, noise int, hot bool) *l1events.SyntheticSource {
	w, h := cfg.GetSensorWidth(), cfg.GetSensorHeight()
	src := l1events.NewSyntheticSource(w, h, seed)
	src.DeltaT = cfg.GetChunkDeltaTUs()
	src.DurationUs = durationUs
	src.NoisePerChunk = noise
	if hot {
		src.HotPixel = &l1events.PixelKey{X: int32(w / 3), Y: int32(h / 3)}
	}
	size := 12
	for i := 0; i < n; i++ {
		row := float64(h) * float64(i+1) / float64(n+1)
		src.Blobs = append(src.Blobs, l1events.Blob{
			X0:   float64(w) / 10,
			Y0:   row - float64(size)/2,
			VX:   float64(w) * 0.6 / (float64(durationUs) / 1000),
			VY:   0.02 * float64(i%3-1),
			Size: size,
		})
	}
	return src
}

func run(ctx context.Context, cfg *config.TuningConfig, metrics *monitoring.PipelineMetrics, src l1events.EventSource) (*pipeline.Result, error) {
	opts, err := pipeline.OptionsFromTuning(cfg, metrics)
	if err != nil {
		return nil, err
	}
	p, err := pipeline.New(opts)
	if err != nil {
		return nil, err
	}
	monitoring.Logf("Running pipeline: filters=%v workers=%d sensor=%dx%d",
		opts.Chain.Names(), opts.Workers, opts.Width, opts.Height)
	return p.Run(ctx, src)
}

func printSummary(w io.Writer, res *pipeline.Result) {
	fmt.Fprintf(w, "run %s\n", res.RunID)
	fmt.Fprintf(w, "  chunks=%d events=%d windows=%d\n", res.Chunks, res.Events, res.Windows)
	for _, fs := range res.FilterStats {
		fmt.Fprintf(w, "  filter %-18s in=%d out=%d removed=%d\n", fs.Name, fs.In, fs.Out, fs.Removed())
	}
	fmt.Fprintf(w, "  particles=%d (regions=%d below_min_area=%d out_of_frame=%d)\n",
		len(res.Particles), res.Detect.Regions, res.Detect.BelowMinArea, res.Detect.OutOfFrame)
	s := res.Stats
	fmt.Fprintf(w, "  tracks=%d single_point=%d max_len=%d avg_len=%.2f median_len=%.1f avg_path_px=%.1f avg_duration_us=%.0f\n",
		s.TrackCount, s.SinglePointTracks, s.MaxTrackLength, s.AvgTrackLength, s.MedianTrackLength,
		s.AvgPathLength, s.AvgTrackDuration)
}

func writeTracks(path string, tracks []l5tracks.Track) error {
	recs := make([]l5tracks.TrackRecord, len(tracks))
	for i, tr := range tracks {
		recs[i] = tr.Record()
	}
	data, err := json.MarshalIndent(recs, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal tracks: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
