package l3filters

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetricString(t *testing.T) {
	assert.Equal(t, "chebyshev", Chebyshev.String())
	assert.Equal(t, "euclidean", Euclidean.String())
	assert.Equal(t, "Metric(7)", Metric(7).String())
}

func TestNeighbourIndex_Empty(t *testing.T) {
	for _, kind := range []IndexKind{IndexKDTree, IndexGrid} {
		idx := NewNeighbourIndex(kind, nil, Euclidean, 1)
		assert.Equal(t, 0, idx.CountWithin(Point3{}, 10), "index %s", kind)
	}
}

func TestNeighbourIndex_CountsIncludeQueryPoint(t *testing.T) {
	points := []Point3{{0, 0, 0}, {0, 0, 0}, {3, 0, 0}}
	for _, kind := range []IndexKind{IndexKDTree, IndexGrid} {
		for _, m := range []Metric{Chebyshev, Euclidean} {
			idx := NewNeighbourIndex(kind, points, m, 1)
			assert.Equal(t, 2, idx.CountWithin(Point3{0, 0, 0}, 0), "%s/%s", kind, m)
			assert.Equal(t, 3, idx.CountWithin(Point3{0, 0, 0}, 3), "%s/%s", kind, m)
		}
	}
}

func TestNeighbourIndex_MetricShape(t *testing.T) {
	// (1,1,1) is within Chebyshev 1 but at Euclidean sqrt(3).
	points := []Point3{{1, 1, 1}}
	for _, kind := range []IndexKind{IndexKDTree, IndexGrid} {
		cheb := NewNeighbourIndex(kind, points, Chebyshev, 1)
		euc := NewNeighbourIndex(kind, points, Euclidean, 1)
		assert.Equal(t, 1, cheb.CountWithin(Point3{}, 1), "index %s", kind)
		assert.Equal(t, 0, euc.CountWithin(Point3{}, 1), "index %s", kind)
	}
}

func TestNeighbourIndex_UnknownKindFallsBack(t *testing.T) {
	idx := NewNeighbourIndex("octree", []Point3{{0, 0, 0}}, Euclidean, 1)
	_, ok := idx.(*KDIndex)
	assert.True(t, ok)
}

func TestNewGridIndex_BadCellSize(t *testing.T) {
	g := NewGridIndex([]Point3{{0.5, 0.5, 0.5}}, Euclidean, 0)
	assert.Equal(t, 1.0, g.CellSize)
	assert.Equal(t, 1, g.CountWithin(Point3{0, 0, 0}, 1))
}

func TestNeighbourIndex_BackendsAgree(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	points := make([]Point3, 400)
	for i := range points {
		// Integer lattice coordinates produce many exact radius ties.
		points[i] = Point3{
			float64(rng.Intn(20)),
			float64(rng.Intn(20)),
			float64(rng.Intn(20)),
		}
	}

	for _, m := range []Metric{Chebyshev, Euclidean} {
		for _, radius := range []float64{0, 1, 2.5, 5} {
			kd := NewKDIndex(points, m)
			grid := NewGridIndex(points, m, radius)
			for i, q := range points {
				if got, want := grid.CountWithin(q, radius), kd.CountWithin(q, radius); got != want {
					t.Fatalf("%s r=%v point %d %v: grid=%d kdtree=%d", m, radius, i, q, got, want)
				}
			}
		}
	}
}

func TestNeighbourIndex_BruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	points := make([]Point3, 150)
	for i := range points {
		points[i] = Point3{rng.Float64() * 10, rng.Float64() * 10, rng.Float64() * 10}
	}
	const radius = 1.7
	kd := NewKDIndex(points, Euclidean)
	for _, q := range points {
		want := 0
		for _, p := range points {
			d0, d1, d2 := q[0]-p[0], q[1]-p[1], q[2]-p[2]
			if d0*d0+d1*d1+d2*d2 <= radius*radius {
				want++
			}
		}
		assert.Equal(t, want, kd.CountWithin(q, radius))
	}
}
