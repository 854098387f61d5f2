package monitoring

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipelineMetrics_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPipelineMetrics(reg)

	m.RecordChunk(120)
	m.RecordChunk(30)
	m.RecordFilter("hot_pixel", 7)
	m.RecordFilter("hot_pixel", 3)
	m.RecordFilter("isolated", 0)
	m.RecordWindow(4, 2, 0.002)
	m.RecordWindow(1, 0, 0.001)
	m.RecordTracks(3)

	assert.Equal(t, 150.0, testutil.ToFloat64(m.eventsIngested))
	assert.Equal(t, 10.0, testutil.ToFloat64(m.eventsRemoved.WithLabelValues("hot_pixel")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.windowsProcessed))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.particlesDetected))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.eventsOutOfFrame))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.tracksCreated))

	// Zero removals do not create a label series.
	assert.Equal(t, 1, testutil.CollectAndCount(m.eventsRemoved))
}

func TestPipelineMetrics_NilSafe(t *testing.T) {
	var m *PipelineMetrics
	assert.NotPanics(t, func() {
		m.RecordChunk(1)
		m.RecordFilter("isolated", 1)
		m.RecordWindow(1, 1, 1)
		m.RecordTracks(1)
	})
}

func TestMetricsHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPipelineMetrics(reg)
	m.RecordChunk(5)

	srv := httptest.NewServer(MetricsHandler(reg))
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "evcam_pipeline_events_ingested_total 5")
}
