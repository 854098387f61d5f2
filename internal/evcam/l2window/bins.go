package l2window

// TimeBins returns the tracker bin boundaries tStart, tStart+dt, ... for
// every value strictly below tEnd+dt. The last bin therefore covers the
// final event. A non-positive dt or tEnd < tStart yields nil.
func TimeBins(tStart, tEnd, dt int64) []float64 {
	if dt <= 0 || tEnd < tStart {
		return nil
	}
	stop := tEnd + dt
	bins := make([]float64, 0, (stop-tStart+dt-1)/dt)
	for v := tStart; v < stop; v += dt {
		bins = append(bins, float64(v))
	}
	return bins
}
