package l5tracks

import (
	"encoding/json"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// RunStatistics holds aggregate statistics for one tracking run.
type RunStatistics struct {
	TrackCount        int     `json:"track_count"`
	SinglePointTracks int     `json:"single_point_tracks"`
	AvgTrackLength    float64 `json:"avg_track_length_points"`
	MedianTrackLength float64 `json:"median_track_length_points"`
	MaxTrackLength    int     `json:"max_track_length_points"`
	AvgPathLength     float64 `json:"avg_path_length_px"`
	AvgTrackDuration  float64 `json:"avg_track_duration_us"`
}

// ComputeRunStatistics calculates aggregate statistics from a set of tracks.
func ComputeRunStatistics(tracks []Track) *RunStatistics {
	if len(tracks) == 0 {
		return &RunStatistics{}
	}

	stats := &RunStatistics{TrackCount: len(tracks)}
	lengths := make([]float64, len(tracks))
	paths := make([]float64, len(tracks))
	durations := make([]float64, len(tracks))
	for i, tr := range tracks {
		n := tr.Len()
		if n == 1 {
			stats.SinglePointTracks++
		}
		if n > stats.MaxTrackLength {
			stats.MaxTrackLength = n
		}
		lengths[i] = float64(n)
		paths[i] = PathLength(tr)
		durations[i] = tr.Duration()
	}

	stats.AvgTrackLength = stat.Mean(lengths, nil)
	stats.AvgPathLength = stat.Mean(paths, nil)
	stats.AvgTrackDuration = stat.Mean(durations, nil)

	sort.Float64s(lengths)
	stats.MedianTrackLength = stat.Quantile(0.5, stat.Empirical, lengths, nil)

	return stats
}

// PathLength returns the summed xy step length of tr in pixels.
func PathLength(tr Track) float64 {
	x, y := tr.X(), tr.Y()
	if len(x) < 2 {
		return 0
	}
	steps := make([]float64, len(x)-1)
	for i := range steps {
		steps[i] = math.Hypot(x[i+1]-x[i], y[i+1]-y[i])
	}
	return floats.Sum(steps)
}

// ToJSON serializes RunStatistics to JSON.
func (rs *RunStatistics) ToJSON() (string, error) {
	data, err := json.Marshal(rs)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ParseRunStatistics deserializes RunStatistics from JSON.
func ParseRunStatistics(jsonStr string) (*RunStatistics, error) {
	var stats RunStatistics
	if err := json.Unmarshal([]byte(jsonStr), &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}
