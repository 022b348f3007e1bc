// Package contour converts between binary voxel planes and closed planar polygons.
//
// Polygons live in in-plane index space: X follows image columns and Y image rows,
// integer coordinates are voxel centres. A polygon is closed implicitly, the first
// vertex is never repeated at the end.
package contour

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/jpfielding/rtss.go/pkg/volume"
)

// ErrDegeneratePolygon marks a polygon left with too few vertices to enclose an area
var ErrDegeneratePolygon = errors.New("degenerate polygon")

// Point is an in-plane index space coordinate
type Point struct {
	X, Y float64
}

// Sub returns p-q
func (p Point) Sub(q Point) Point {
	return Point{p.X - q.X, p.Y - q.Y}
}

// Cross returns the z component of the cross product p×q
func (p Point) Cross(q Point) float64 {
	return p.X*q.Y - p.Y*q.X
}

// Polygon is a closed ring of points
type Polygon []Point

// Len returns the number of distinct consecutive vertices
func (poly Polygon) Len() int {
	return len(dedupe(poly))
}

// Area returns the signed shoelace area
func (poly Polygon) Area() float64 {
	var a float64
	for i := range poly {
		j := (i + 1) % len(poly)
		a += poly[i].Cross(poly[j])
	}
	return a / 2
}

// Bounds returns the min and max corners
func (poly Polygon) Bounds() (Point, Point) {
	if len(poly) == 0 {
		return Point{}, Point{}
	}
	lo, hi := poly[0], poly[0]
	for _, p := range poly[1:] {
		lo.X, lo.Y = math.Min(lo.X, p.X), math.Min(lo.Y, p.Y)
		hi.X, hi.Y = math.Max(hi.X, p.X), math.Max(hi.Y, p.Y)
	}
	return lo, hi
}

// Check validates a polygon against a minimum vertex count
func Check(poly Polygon, minPoints int) error {
	if minPoints < 3 {
		minPoints = 3
	}
	if n := poly.Len(); n < minPoints {
		return fmt.Errorf("%d points, need %d: %w", n, minPoints, ErrDegeneratePolygon)
	}
	return nil
}

// dedupe drops consecutive repeated vertices including the wrap around
func dedupe(poly Polygon) Polygon {
	out := make(Polygon, 0, len(poly))
	for _, p := range poly {
		if len(out) > 0 && out[len(out)-1] == p {
			continue
		}
		out = append(out, p)
	}
	for len(out) > 1 && out[0] == out[len(out)-1] {
		out = out[:len(out)-1]
	}
	return out
}

// edge identifies a lattice edge between two neighbouring voxel centres.
// A horizontal edge joins (x,y)-(x+1,y), a vertical one (x,y)-(x,y+1).
type edge struct {
	x, y     int
	vertical bool
}

func (e edge) point() Point {
	if e.vertical {
		return Point{float64(e.x), float64(e.y) + 0.5}
	}
	return Point{float64(e.x) + 0.5, float64(e.y)}
}

// cell corner bits
const (
	topLeft     = 1
	topRight    = 2
	bottomRight = 4
	bottomLeft  = 8
)

// epsilon absorbs floating point noise when testing collinearity
const epsilon = 1e-9

// cell side indices
const (
	sideTop = iota
	sideRight
	sideBottom
	sideLeft
)

// cases lists the side pairs crossed for every corner configuration. Saddles (5 and 10)
// cut off each foreground corner separately so diagonal neighbours stay disconnected.
var cases = [16][][2]int{
	0:  nil,
	1:  {{sideLeft, sideTop}},
	2:  {{sideTop, sideRight}},
	3:  {{sideLeft, sideRight}},
	4:  {{sideRight, sideBottom}},
	5:  {{sideLeft, sideTop}, {sideRight, sideBottom}},
	6:  {{sideTop, sideBottom}},
	7:  {{sideBottom, sideLeft}},
	8:  {{sideBottom, sideLeft}},
	9:  {{sideTop, sideBottom}},
	10: {{sideTop, sideRight}, {sideBottom, sideLeft}},
	11: {{sideRight, sideBottom}},
	12: {{sideLeft, sideRight}},
	13: {{sideTop, sideRight}},
	14: {{sideLeft, sideTop}},
	15: nil,
}

// Extract traces the boundaries between voxels above level and the rest of a plane.
// The plane is treated as surrounded by background so every ring is closed. Rings are
// returned in the order their first edge is met scanning cells row by row, and every
// ring keeps the foreground on the same side.
func Extract(plane *volume.Plane, level float32) []Polygon {
	fg := func(x, y int) bool { return plane.At(x, y) > level }

	next := map[edge]edge{}
	var order []edge
	for cy := -1; cy < plane.Height; cy++ {
		for cx := -1; cx < plane.Width; cx++ {
			corners := [4]Point{
				{float64(cx), float64(cy)},
				{float64(cx + 1), float64(cy)},
				{float64(cx + 1), float64(cy + 1)},
				{float64(cx), float64(cy + 1)},
			}
			inside := [4]bool{fg(cx, cy), fg(cx+1, cy), fg(cx+1, cy+1), fg(cx, cy+1)}
			idx := 0
			for i, bit := range [4]int{topLeft, topRight, bottomRight, bottomLeft} {
				if inside[i] {
					idx |= bit
				}
			}
			sides := [4]edge{
				sideTop:    {cx, cy, false},
				sideRight:  {cx + 1, cy, true},
				sideBottom: {cx, cy + 1, false},
				sideLeft:   {cx, cy, true},
			}
			for _, pair := range cases[idx] {
				a, b := sides[pair[0]], sides[pair[1]]
				ref := referenceCorner(pair, inside, corners)
				pa, pb := a.point(), b.point()
				if pb.Sub(pa).Cross(ref.Sub(pa)) < 0 {
					a, b = b, a
				}
				next[a] = b
				order = append(order, a)
			}
		}
	}

	var polys []Polygon
	visited := map[edge]bool{}
	for _, start := range order {
		if visited[start] {
			continue
		}
		var poly Polygon
		for e := start; !visited[e]; e = next[e] {
			visited[e] = true
			poly = append(poly, e.point())
		}
		polys = append(polys, poly)
	}
	return polys
}

// referenceCorner picks a foreground corner on the side of the segment the
// foreground lies on, so orientation can be decided with one cross product.
func referenceCorner(pair [2]int, inside [4]bool, corners [4]Point) Point {
	// corner shared by two adjacent sides, indexed like the corner bits
	shared := func(s, t int) int {
		switch {
		case (s == sideLeft && t == sideTop) || (s == sideTop && t == sideLeft):
			return 0
		case (s == sideTop && t == sideRight) || (s == sideRight && t == sideTop):
			return 1
		case (s == sideRight && t == sideBottom) || (s == sideBottom && t == sideRight):
			return 2
		case (s == sideBottom && t == sideLeft) || (s == sideLeft && t == sideBottom):
			return 3
		}
		return -1
	}
	if c := shared(pair[0], pair[1]); c >= 0 {
		if inside[c] {
			return corners[c]
		}
		return corners[(c+2)%4]
	}
	for i, in := range inside {
		if in {
			return corners[i]
		}
	}
	return corners[0]
}

// Simplify reduces a closed ring with Douglas-Peucker. Vertices within tolerance of
// the chord spanning them are dropped, so a zero tolerance removes only exactly
// collinear vertices. The ring is split at its first vertex and the vertex farthest
// from it, and the first vertex is itself dropped when it lies within tolerance of
// its neighbours and more than three vertices remain.
func Simplify(poly Polygon, tolerance float64) Polygon {
	ring := dedupe(poly)
	if len(ring) < 3 {
		return ring
	}
	far, farDist := 0, -1.0
	for i, p := range ring {
		if d := dist(p, ring[0]); d > farDist {
			far, farDist = i, d
		}
	}
	keep := make([]bool, len(ring)+1)
	keep[0], keep[far], keep[len(ring)] = true, true, true
	closed := append(append(Polygon{}, ring...), ring[0])
	douglasPeucker(closed, 0, far, tolerance, keep)
	douglasPeucker(closed, far, len(ring), tolerance, keep)

	out := make(Polygon, 0, len(ring))
	for i, p := range ring {
		if keep[i] {
			out = append(out, p)
		}
	}
	if len(out) > 3 && segmentDistance(out[0], out[len(out)-1], out[1]) <= tolerance+epsilon {
		out = out[1:]
	}
	return out
}

func douglasPeucker(pts Polygon, first, last int, tolerance float64, keep []bool) {
	if last-first < 2 {
		return
	}
	idx, maxDist := -1, -1.0
	for i := first + 1; i < last; i++ {
		if d := segmentDistance(pts[i], pts[first], pts[last]); d > maxDist {
			idx, maxDist = i, d
		}
	}
	if maxDist <= tolerance+epsilon {
		return
	}
	keep[idx] = true
	douglasPeucker(pts, first, idx, tolerance, keep)
	douglasPeucker(pts, idx, last, tolerance, keep)
}

func dist(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// segmentDistance returns the distance from p to the segment a-b
func segmentDistance(p, a, b Point) float64 {
	ab := b.Sub(a)
	l2 := ab.X*ab.X + ab.Y*ab.Y
	if l2 == 0 {
		return dist(p, a)
	}
	t := ((p.X-a.X)*ab.X + (p.Y-a.Y)*ab.Y) / l2
	t = math.Max(0, math.Min(1, t))
	return dist(p, Point{a.X + t*ab.X, a.Y + t*ab.Y})
}

// onEdge is the distance within which a voxel centre counts as lying on a polygon edge
const onEdge = 1e-6

// Fill rasterizes one polygon into a plane, raising every voxel whose centre lies
// inside it or on its boundary to label. Rings traced by Extract never pass through
// a voxel centre, so at tolerance 0 they fill back exactly the voxels they came from.
func Fill(plane *volume.Plane, poly Polygon, label float32) {
	FillRings(plane, []Polygon{poly}, label)
}

// FillRings rasterizes several rings together with the even-odd rule, so a ring
// nested inside another punches a hole in it. Centres on any ring's boundary are
// always filled, hole boundaries included.
func FillRings(plane *volume.Plane, rings []Polygon, label float32) {
	var ymin, ymax = math.Inf(1), math.Inf(-1)
	snapped := make([]Polygon, 0, len(rings))
	for _, poly := range rings {
		if len(poly) < 3 {
			continue
		}
		ring := make(Polygon, len(poly))
		for i, p := range poly {
			ring[i] = Point{snap(p.X), snap(p.Y)}
			ymin, ymax = math.Min(ymin, ring[i].Y), math.Max(ymax, ring[i].Y)
		}
		snapped = append(snapped, ring)
	}
	if len(snapped) == 0 {
		return
	}
	lo, hi := max(int(math.Ceil(ymin-onEdge)), 0), min(int(math.Floor(ymax+onEdge)), plane.Height-1)

	span := func(y int, x0, x1 float64) {
		from := max(int(math.Ceil(x0-onEdge)), 0)
		to := min(int(math.Floor(x1+onEdge)), plane.Width-1)
		for x := from; x <= to; x++ {
			plane.SetMax(x, y, label)
		}
	}

	xs := make([]float64, 0, 8)
	for y := lo; y <= hi; y++ {
		fy := float64(y)
		xs = xs[:0]
		for _, ring := range snapped {
			for i := range ring {
				a, b := ring[i], ring[(i+1)%len(ring)]
				if a.Y == b.Y {
					// horizontal edges add no crossing, only their own centres
					if math.Abs(a.Y-fy) <= onEdge {
						span(y, math.Min(a.X, b.X), math.Max(a.X, b.X))
					}
					continue
				}
				if a.Y > b.Y {
					a, b = b, a
				}
				if fy < a.Y-onEdge || fy > b.Y+onEdge {
					continue
				}
				x := a.X + (fy-a.Y)/(b.Y-a.Y)*(b.X-a.X)
				// the edge itself, including an end vertex the crossing rule skips
				if r := math.Round(x); math.Abs(x-r) <= onEdge {
					span(y, r, r)
				}
				if fy >= a.Y && fy < b.Y {
					xs = append(xs, x)
				}
			}
		}
		slices.Sort(xs)
		for i := 0; i+1 < len(xs); i += 2 {
			span(y, xs[i], xs[i+1])
		}
	}
}

// snap removes decimal string round off picked up on the way through patient coordinates
func snap(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
