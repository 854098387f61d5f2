package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// =============================================================================
// Prometheus Metrics for the event pipeline
// =============================================================================

// PipelineMetrics groups the counters a pipeline run updates. All methods
// are safe on a nil receiver so callers can run without metrics.
type PipelineMetrics struct {
	// eventsIngested counts events read from the source.
	eventsIngested prometheus.Counter

	// eventsRemoved counts events dropped by noise filters.
	// Labels: filter (isolated, low_pass, hot_pixel, opposite_polarity)
	eventsRemoved *prometheus.CounterVec

	// eventsOutOfFrame counts ON events the detector skipped.
	eventsOutOfFrame prometheus.Counter

	windowsProcessed  prometheus.Counter
	particlesDetected prometheus.Counter
	tracksCreated     prometheus.Counter

	// windowSeconds measures filter plus detection time per window.
	windowSeconds prometheus.Histogram
}

// NewPipelineMetrics registers the pipeline metrics with reg.
func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	f := promauto.With(reg)
	return &PipelineMetrics{
		eventsIngested: f.NewCounter(prometheus.CounterOpts{
			Namespace: "evcam",
			Subsystem: "pipeline",
			Name:      "events_ingested_total",
			Help:      "Events read from the event source",
		}),
		eventsRemoved: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "evcam",
			Subsystem: "filters",
			Name:      "events_removed_total",
			Help:      "Events removed by each noise filter",
		}, []string{"filter"}),
		eventsOutOfFrame: f.NewCounter(prometheus.CounterOpts{
			Namespace: "evcam",
			Subsystem: "detector",
			Name:      "events_out_of_frame_total",
			Help:      "ON events skipped for lying outside the sensor",
		}),
		windowsProcessed: f.NewCounter(prometheus.CounterOpts{
			Namespace: "evcam",
			Subsystem: "pipeline",
			Name:      "windows_processed_total",
			Help:      "Accumulation windows filtered and detected",
		}),
		particlesDetected: f.NewCounter(prometheus.CounterOpts{
			Namespace: "evcam",
			Subsystem: "detector",
			Name:      "particles_detected_total",
			Help:      "Particles detected across all windows",
		}),
		tracksCreated: f.NewCounter(prometheus.CounterOpts{
			Namespace: "evcam",
			Subsystem: "tracker",
			Name:      "tracks_created_total",
			Help:      "Tracks produced by the tracker",
		}),
		windowSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "evcam",
			Subsystem: "pipeline",
			Name:      "window_duration_seconds",
			Help:      "Filter and detection time per window in seconds",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
	}
}

// RecordChunk records n events read from the source.
func (m *PipelineMetrics) RecordChunk(n int) {
	if m == nil {
		return
	}
	m.eventsIngested.Add(float64(n))
}

// RecordFilter records removed events for one filter.
func (m *PipelineMetrics) RecordFilter(filter string, removed int) {
	if m == nil || removed <= 0 {
		return
	}
	m.eventsRemoved.WithLabelValues(filter).Add(float64(removed))
}

// RecordWindow records one processed window.
func (m *PipelineMetrics) RecordWindow(particles, outOfFrame int, durationSec float64) {
	if m == nil {
		return
	}
	m.windowsProcessed.Inc()
	m.particlesDetected.Add(float64(particles))
	m.eventsOutOfFrame.Add(float64(outOfFrame))
	m.windowSeconds.Observe(durationSec)
}

// RecordTracks records the tracks produced by a run.
func (m *PipelineMetrics) RecordTracks(n int) {
	if m == nil {
		return
	}
	m.tracksCreated.Add(float64(n))
}

// MetricsHandler serves the metrics gathered by g.
func MetricsHandler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
