package l4particles

import "sort"

// Particle is one detected cluster of ON events. X and Y are the mean
// pixel coordinates of the cluster's distinct pixels; T is the mean
// timestamp of every ON event that fed the cluster.
type Particle struct {
	X    float32
	Y    float32
	T    float64 // microseconds
	Area int32   // distinct occupied pixels
}

// SortByTime stably sorts particles by time centroid, so particles from
// one window keep their label order among equal timestamps.
func SortByTime(ps []Particle) {
	sort.SliceStable(ps, func(i, j int) bool { return ps[i].T < ps[j].T })
}

// IsTimeOrdered reports whether ps is non-decreasing in T.
func IsTimeOrdered(ps []Particle) bool {
	return sort.SliceIsSorted(ps, func(i, j int) bool { return ps[i].T < ps[j].T })
}
