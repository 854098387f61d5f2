package l5tracks

import "github.com/Harrison-Oatman/EventCamProcessing/internal/evcam/l4particles"

// Track is the ordered list of particle positions linked into one
// trajectory. Its coordinate sequences only grow together, so Len always
// equals the length of each.
type Track struct {
	x, y, t []float64
}

func newTrack(p l4particles.Particle) Track {
	var tr Track
	tr.push(p)
	return tr
}

func (tr *Track) push(p l4particles.Particle) {
	tr.x = append(tr.x, float64(p.X))
	tr.y = append(tr.y, float64(p.Y))
	tr.t = append(tr.t, p.T)
}

// Len returns the number of points in the track.
func (tr Track) Len() int { return len(tr.x) }

// X returns the x coordinates. The slice must not be modified.
func (tr Track) X() []float64 { return tr.x }

// Y returns the y coordinates. The slice must not be modified.
func (tr Track) Y() []float64 { return tr.y }

// T returns the time coordinates. The slice must not be modified.
func (tr Track) T() []float64 { return tr.t }

// Point returns the i-th point.
func (tr Track) Point(i int) (x, y, t float64) {
	return tr.x[i], tr.y[i], tr.t[i]
}

// Duration returns the time between the first and last point in
// microseconds.
func (tr Track) Duration() float64 {
	if len(tr.t) < 2 {
		return 0
	}
	return tr.t[len(tr.t)-1] - tr.t[0]
}

// TrackRecord is the exported, serialisable form of a Track.
type TrackRecord struct {
	Length int32     `json:"length"`
	X      []float64 `json:"x"`
	Y      []float64 `json:"y"`
	T      []float64 `json:"t"`
}

// Record copies the track into a TrackRecord.
func (tr Track) Record() TrackRecord {
	return TrackRecord{
		Length: int32(tr.Len()),
		X:      append([]float64(nil), tr.x...),
		Y:      append([]float64(nil), tr.y...),
		T:      append([]float64(nil), tr.t...),
	}
}
