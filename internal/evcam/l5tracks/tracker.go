package l5tracks

import (
	"math"
	"sort"

	"github.com/Harrison-Oatman/EventCamProcessing/internal/config"
	"github.com/Harrison-Oatman/EventCamProcessing/internal/evcam/l4particles"
)

// DefaultDeltaFloor is the smallest per-axis displacement used when
// normalising a multi-point track's prediction error.
const DefaultDeltaFloor = 1e-6

// normalisedCostLimit bounds the anisotropic cost of tracks with a known
// displacement: each of the three axes may contribute about one.
const normalisedCostLimit = 3.0

// noPair marks a track without a claimed candidate.
const noPair = -1

// StepStats summarises one linking round.
type StepStats struct {
	Candidates int // particles in the bin
	Active     int // active tracks entering the round
	Matched    int // tracks extended
	NewTracks  int // tracks seeded from unclaimed candidates
	Frozen     int // tracks that left the active set
	Ties       int // tracks left unmatched by an exact cost tie
	Displaced  int // claims taken over by a cheaper later track
}

// Tracker links particles bin by bin. Rounds are strictly sequential;
// a Tracker is not safe for concurrent use.
type Tracker struct {
	MaxDisp    float64 // max xy step for single-point tracks, pixels
	DeltaFloor float64 // per-axis |delta| floor for multi-point tracks

	tracks []Track
	active []int // indices into tracks
	rounds int
}

// NewTracker creates an empty tracker. A non-positive deltaFloor selects
// DefaultDeltaFloor.
func NewTracker(maxDisp, deltaFloor float64) *Tracker {
	if !(deltaFloor > 0) {
		deltaFloor = DefaultDeltaFloor
	}
	return &Tracker{MaxDisp: maxDisp, DeltaFloor: deltaFloor}
}

// TrackerFromTuning builds a Tracker from max_disp and delta_floor in cfg.
func TrackerFromTuning(cfg *config.TuningConfig) *Tracker {
	return NewTracker(cfg.GetMaxDisp(), cfg.GetDeltaFloor())
}

// Seed starts one single-point track per particle and makes exactly
// those tracks active.
func (tk *Tracker) Seed(ps []l4particles.Particle) {
	tk.active = tk.active[:0]
	for _, p := range ps {
		tk.active = append(tk.active, len(tk.tracks))
		tk.tracks = append(tk.tracks, newTrack(p))
	}
	tk.rounds++
	tracef("round %d: seeded %d tracks", tk.rounds, len(ps))
}

// Step links the active tracks against one bin's candidates.
//
// Each track predicts its next position by repeating its last step and
// claims its single cheapest admissible candidate. An exact tie for the
// minimum leaves the track unmatched. A candidate already claimed moves
// to the new track only if the new cost is strictly lower. Unmatched
// tracks are frozen for good; unclaimed candidates seed new tracks.
func (tk *Tracker) Step(cands []l4particles.Particle) StepStats {
	stats := StepStats{Candidates: len(cands), Active: len(tk.active)}
	tk.rounds++

	if len(cands) == 0 {
		stats.Frozen = len(tk.active)
		tk.active = tk.active[:0]
		tracef("round %d: no candidates, froze %d tracks", tk.rounds, stats.Frozen)
		return stats
	}

	costs := make([]float64, len(tk.active))
	pairs := make([]int, len(tk.active))
	for i := range pairs {
		pairs[i] = noPair
	}

	for tr, id := range tk.active {
		best, bestIdx, tie := tk.cheapest(&tk.tracks[id], cands)
		costs[tr] = best
		if best > tk.limit(&tk.tracks[id]) {
			continue
		}
		if tie {
			stats.Ties++
			continue
		}
		if other := claimant(pairs, bestIdx); other != noPair {
			if costs[other] > best {
				pairs[other] = noPair
				stats.Displaced++
			} else {
				continue
			}
		}
		pairs[tr] = bestIdx
	}

	claimed := make([]bool, len(cands))
	next := make([]int, 0, len(tk.active)+len(cands))
	for tr, id := range tk.active {
		if pairs[tr] == noPair {
			continue
		}
		tk.tracks[id].push(cands[pairs[tr]])
		claimed[pairs[tr]] = true
		next = append(next, id)
	}
	stats.Matched = len(next)
	stats.Frozen = len(tk.active) - stats.Matched

	for j, p := range cands {
		if claimed[j] {
			continue
		}
		next = append(next, len(tk.tracks))
		tk.tracks = append(tk.tracks, newTrack(p))
		stats.NewTracks++
	}
	tk.active = next

	tracef("round %d: %d candidates, %d active, %d matched, %d new, %d frozen, %d total",
		tk.rounds, stats.Candidates, stats.Active, stats.Matched, stats.NewTracks, stats.Frozen, len(tk.tracks))
	return stats
}

// cheapest returns the minimum cost over cands for track tr, the index
// of the first minimal candidate, and whether another candidate ties it.
func (tk *Tracker) cheapest(tr *Track, cands []l4particles.Particle) (best float64, bestIdx int, tie bool) {
	n := tr.Len()
	cx, cy, ct := tr.Point(n - 1)
	px, py, pt := cx, cy, ct
	if n > 1 {
		px, py, pt = tr.Point(n - 2)
	}
	dx, dy, dt := cx-px, cy-py, ct-pt
	ex, ey, et := cx+dx, cy+dy, ct+dt

	fx := tk.floor(dx)
	fy := tk.floor(dy)
	ft := tk.floor(dt)

	best, bestIdx = math.Inf(1), noPair
	for j, c := range cands {
		var cost float64
		if n > 1 {
			ax := (ex - float64(c.X)) / fx
			ay := (ey - float64(c.Y)) / fy
			at := (et - c.T) / ft
			cost = ax*ax + ay*ay + at*at
		} else {
			ax := ex - float64(c.X)
			ay := ey - float64(c.Y)
			cost = ax*ax + ay*ay
		}
		switch {
		case cost < best:
			best, bestIdx, tie = cost, j, false
		case cost == best:
			tie = true
		}
	}
	return best, bestIdx, tie
}

// limit returns the admissible cost bound for tr.
func (tk *Tracker) limit(tr *Track) float64 {
	if tr.Len() > 1 {
		return normalisedCostLimit
	}
	return tk.MaxDisp * tk.MaxDisp
}

// floor keeps |d| at or above DeltaFloor. Only the magnitude matters
// since every normalised term is squared.
func (tk *Tracker) floor(d float64) float64 {
	if math.Abs(d) < tk.DeltaFloor {
		return tk.DeltaFloor
	}
	return d
}

// claimant returns the track position holding candidate j, or noPair.
func claimant(pairs []int, j int) int {
	for tr, p := range pairs {
		if p == j {
			return tr
		}
	}
	return noPair
}

// Tracks returns every track created so far, frozen ones included, in
// creation order.
func (tk *Tracker) Tracks() []Track { return tk.tracks }

// Active returns the indices into Tracks() of the tracks that may still
// be extended.
func (tk *Tracker) Active() []int {
	return append([]int(nil), tk.active...)
}

// Run sorts particles by time, seeds from the first bin (bins[0],
// bins[1]] and steps through every later bin (bins[i], bins[i+1]].
func (tk *Tracker) Run(particles []l4particles.Particle, timeBins []float64) []Track {
	if len(timeBins) < 2 {
		opsf("need at least two time bins, got %d; no tracks built", len(timeBins))
		return tk.tracks
	}
	sorted := append([]l4particles.Particle(nil), particles...)
	l4particles.SortByTime(sorted)

	tk.Seed(inBin(sorted, timeBins[0], timeBins[1]))
	for i := 1; i < len(timeBins)-1; i++ {
		tk.Step(inBin(sorted, timeBins[i], timeBins[i+1]))
	}
	diagf("linked %d particles into %d tracks over %d bins", len(sorted), len(tk.tracks), len(timeBins)-1)
	return tk.tracks
}

// inBin returns the particles of time-sorted ps with lo < T <= hi.
func inBin(ps []l4particles.Particle, lo, hi float64) []l4particles.Particle {
	start := sort.Search(len(ps), func(i int) bool { return ps[i].T > lo })
	end := sort.Search(len(ps), func(i int) bool { return ps[i].T > hi })
	if end < start {
		end = start
	}
	return ps[start:end]
}

// TrackParticles links all particles of a recording into tracks using
// the given bin boundaries and DefaultDeltaFloor.
func TrackParticles(particles []l4particles.Particle, maxDisp float64, timeBins []float64) []Track {
	return NewTracker(maxDisp, DefaultDeltaFloor).Run(particles, timeBins)
}
