package l3filters

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/kdtree"
)

// Metric selects the distance used by a NeighbourIndex.
type Metric int

const (
	// Chebyshev is the L-infinity distance: max per-axis difference.
	Chebyshev Metric = iota
	// Euclidean is the L2 distance.
	Euclidean
)

func (m Metric) String() string {
	switch m {
	case Chebyshev:
		return "chebyshev"
	case Euclidean:
		return "euclidean"
	}
	return fmt.Sprintf("Metric(%d)", int(m))
}

// IndexKind names a NeighbourIndex backend.
type IndexKind string

const (
	IndexKDTree IndexKind = "kdtree"
	IndexGrid   IndexKind = "grid"
)

// Point3 is a point in scaled (x, y, t) space.
type Point3 [3]float64

// NeighbourIndex answers fixed-radius neighbour counts over a static set
// of points. Counts include any indexed point identical to the query.
type NeighbourIndex interface {
	// CountWithin returns the number of indexed points at distance <= radius
	// from q under the index's metric.
	CountWithin(q Point3, radius float64) int
}

// NewNeighbourIndex builds an index of the requested kind over points.
// cellSize is used only by the grid backend and should approximate the
// query radius. An unknown kind falls back to the k-d tree.
func NewNeighbourIndex(kind IndexKind, points []Point3, metric Metric, cellSize float64) NeighbourIndex {
	switch kind {
	case IndexGrid:
		return NewGridIndex(points, metric, cellSize)
	case IndexKDTree, "":
		return NewKDIndex(points, metric)
	}
	opsf("unknown neighbour index %q, using %s", kind, IndexKDTree)
	return NewKDIndex(points, metric)
}

// =============================================================================
// k-d tree backend
// =============================================================================

// KDIndex wraps a gonum k-d tree. Tree distances are squared, so radius
// queries compare against radius².
type KDIndex struct {
	tree   *kdtree.Tree
	metric Metric
}

// NewKDIndex builds a k-d tree over a copy of points.
func NewKDIndex(points []Point3, metric Metric) *KDIndex {
	idx := &KDIndex{metric: metric}
	if len(points) == 0 {
		return idx
	}
	switch metric {
	case Chebyshev:
		pts := make(chebyshevPoints, len(points))
		for i, p := range points {
			pts[i] = chebyshevPoint(p)
		}
		idx.tree = kdtree.New(pts, false)
	default:
		pts := make(kdtree.Points, len(points))
		for i, p := range points {
			pts[i] = kdtree.Point{p[0], p[1], p[2]}
		}
		idx.tree = kdtree.New(pts, false)
	}
	return idx
}

// CountWithin implements NeighbourIndex.
func (k *KDIndex) CountWithin(q Point3, radius float64) int {
	if k.tree == nil || radius < 0 {
		return 0
	}
	var query kdtree.Comparable
	if k.metric == Chebyshev {
		query = chebyshevPoint(q)
	} else {
		query = kdtree.Point{q[0], q[1], q[2]}
	}
	keep := kdtree.NewDistKeeper(radius * radius)
	k.tree.NearestSet(keep, query)

	// The keeper may retain its nil sentinel when a hit ties the radius.
	n := 0
	for _, c := range keep.Heap {
		if c.Comparable != nil {
			n++
		}
	}
	return n
}

// chebyshevPoint is a kdtree.Comparable whose Distance is the squared
// Chebyshev distance, keeping the tree's plane-distance pruning valid.
type chebyshevPoint [3]float64

func (p chebyshevPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(chebyshevPoint)
	return p[d] - q[d]
}

func (p chebyshevPoint) Dims() int { return 3 }

func (p chebyshevPoint) Distance(c kdtree.Comparable) float64 {
	q := c.(chebyshevPoint)
	m := chebyshev(Point3(p), Point3(q))
	return m * m
}

type chebyshevPoints []chebyshevPoint

func (p chebyshevPoints) Index(i int) kdtree.Comparable         { return p[i] }
func (p chebyshevPoints) Len() int                              { return len(p) }
func (p chebyshevPoints) Slice(start, end int) kdtree.Interface { return p[start:end] }
func (p chebyshevPoints) Pivot(d kdtree.Dim) int {
	return chebyshevPlane{points: p, dim: d}.Pivot()
}

// chebyshevPlane sorts chebyshevPoints along one dimension for pivoting.
type chebyshevPlane struct {
	points chebyshevPoints
	dim    kdtree.Dim
}

func (p chebyshevPlane) Len() int           { return len(p.points) }
func (p chebyshevPlane) Less(i, j int) bool { return p.points[i][p.dim] < p.points[j][p.dim] }
func (p chebyshevPlane) Swap(i, j int)      { p.points[i], p.points[j] = p.points[j], p.points[i] }
func (p chebyshevPlane) Slice(start, end int) kdtree.SortSlicer {
	return chebyshevPlane{points: p.points[start:end], dim: p.dim}
}
func (p chebyshevPlane) Pivot() int { return kdtree.Partition(p, kdtree.MedianOfMedians(p)) }

// =============================================================================
// Uniform grid backend
// =============================================================================

// GridIndex buckets points into cubic cells of CellSize so a radius query
// only inspects the cells overlapping the query's bounding cube.
type GridIndex struct {
	CellSize float64
	Grid     map[cellKey][]int // cell → point indices
	points   []Point3
	metric   Metric
}

// cellKey is a composite cell address; unlike a packed integer it cannot
// collide for large time coordinates.
type cellKey struct {
	X, Y, Z int64
}

// NewGridIndex populates a grid over points. A non-positive cellSize is
// replaced by 1.
func NewGridIndex(points []Point3, metric Metric, cellSize float64) *GridIndex {
	if !(cellSize > 0) || math.IsInf(cellSize, 0) {
		cellSize = 1
	}
	g := &GridIndex{
		CellSize: cellSize,
		Grid:     make(map[cellKey][]int, len(points)/EstimatedPointsPerCell+1),
		points:   points,
		metric:   metric,
	}
	for i, p := range points {
		k := g.cellOf(p)
		g.Grid[k] = append(g.Grid[k], i)
	}
	return g
}

// EstimatedPointsPerCell is used for initial grid capacity estimation.
const EstimatedPointsPerCell = 4

func (g *GridIndex) cellOf(p Point3) cellKey {
	return cellKey{
		X: int64(math.Floor(p[0] / g.CellSize)),
		Y: int64(math.Floor(p[1] / g.CellSize)),
		Z: int64(math.Floor(p[2] / g.CellSize)),
	}
}

// CountWithin implements NeighbourIndex.
func (g *GridIndex) CountWithin(q Point3, radius float64) int {
	if len(g.points) == 0 || radius < 0 {
		return 0
	}
	lo := g.cellOf(Point3{q[0] - radius, q[1] - radius, q[2] - radius})
	hi := g.cellOf(Point3{q[0] + radius, q[1] + radius, q[2] + radius})
	r2 := radius * radius

	n := 0
	for cx := lo.X; cx <= hi.X; cx++ {
		for cy := lo.Y; cy <= hi.Y; cy++ {
			for cz := lo.Z; cz <= hi.Z; cz++ {
				for _, i := range g.Grid[cellKey{cx, cy, cz}] {
					if g.dist2(q, g.points[i]) <= r2 {
						n++
					}
				}
			}
		}
	}
	return n
}

// dist2 returns the squared metric distance, computed exactly as the k-d
// tree backend does so both backends agree at the radius boundary.
func (g *GridIndex) dist2(a, b Point3) float64 {
	if g.metric == Chebyshev {
		m := chebyshev(a, b)
		return m * m
	}
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

func chebyshev(a, b Point3) float64 {
	var m float64
	for i := range a {
		if d := math.Abs(a[i] - b[i]); d > m {
			m = d
		}
	}
	return m
}

var (
	_ NeighbourIndex = (*KDIndex)(nil)
	_ NeighbourIndex = (*GridIndex)(nil)
)
