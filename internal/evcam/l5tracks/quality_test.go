package l5tracks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Harrison-Oatman/EventCamProcessing/internal/evcam/l4particles"
)

func TestComputeRunStatistics_Empty(t *testing.T) {
	stats := ComputeRunStatistics(nil)
	assert.Equal(t, &RunStatistics{}, stats)
}

func TestComputeRunStatistics(t *testing.T) {
	long := newTrack(p(0, 0, 0))
	long.push(p(3, 4, 100))
	long.push(p(6, 8, 200))
	tracks := []Track{long, newTrack(p(50, 50, 0)), newTrack(p(60, 60, 0))}

	stats := ComputeRunStatistics(tracks)

	assert.Equal(t, 3, stats.TrackCount)
	assert.Equal(t, 2, stats.SinglePointTracks)
	assert.Equal(t, 3, stats.MaxTrackLength)
	assert.InDelta(t, 5.0/3.0, stats.AvgTrackLength, 1e-12)
	assert.Equal(t, 1.0, stats.MedianTrackLength)
	assert.InDelta(t, 10.0/3.0, stats.AvgPathLength, 1e-12)
	assert.InDelta(t, 200.0/3.0, stats.AvgTrackDuration, 1e-12)
}

func TestPathLength(t *testing.T) {
	tr := newTrack(l4particles.Particle{X: 0, Y: 0})
	assert.Equal(t, 0.0, PathLength(tr))
	tr.push(l4particles.Particle{X: 3, Y: 4})
	assert.Equal(t, 5.0, PathLength(tr))
}

func TestRunStatisticsJSON(t *testing.T) {
	stats := &RunStatistics{TrackCount: 4, SinglePointTracks: 1, AvgTrackLength: 2.5}
	s, err := stats.ToJSON()
	require.NoError(t, err)
	assert.Contains(t, s, `"track_count":4`)

	back, err := ParseRunStatistics(s)
	require.NoError(t, err)
	assert.Equal(t, stats, back)

	_, err = ParseRunStatistics("{")
	assert.Error(t, err)
}
