// Package geom maps between voxel indices and patient coordinates for a stacked image series
package geom

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// ErrOutOfRangeSlice is returned when a through-plane position maps outside the volume
var ErrOutOfRangeSlice = errors.New("slice index out of range")

// Round rounds half up. Every physical to index conversion goes through it so
// encode and decode agree on ties.
func Round(v float64) int {
	return int(math.Floor(v + 0.5))
}

// Grid is the voxel lattice of a series in DICOM patient coordinates (LPS, mm).
// Origin is the centre of voxel (0,0,0); x follows columns, y rows, z slices.
type Grid struct {
	Origin  r3.Vec
	Spacing r3.Vec
	Size    [3]int

	// Positions holds the sorted through-plane position of every slice when known
	Positions []float64
}

// IndexToPhysical converts a (possibly fractional) in-plane index on slice k to patient coordinates
func (g Grid) IndexToPhysical(i, j float64, k int) r3.Vec {
	z := g.Origin.Z + float64(k)*g.Spacing.Z
	if k >= 0 && k < len(g.Positions) {
		z = g.Positions[k]
	}
	return r3.Vec{
		X: i*g.Spacing.X + g.Origin.X,
		Y: j*g.Spacing.Y + g.Origin.Y,
		Z: z,
	}
}

// PhysicalToIndex converts a patient coordinate to the nearest voxel index, unclamped
func (g Grid) PhysicalToIndex(p r3.Vec) [3]int {
	c := g.Continuous(p)
	return [3]int{Round(c.X), Round(c.Y), Round(c.Z)}
}

// Continuous converts a patient coordinate to fractional voxel coordinates
func (g Grid) Continuous(p r3.Vec) r3.Vec {
	d := r3.Sub(p, g.Origin)
	return r3.Vec{
		X: d.X / g.Spacing.X,
		Y: d.Y / g.Spacing.Y,
		Z: d.Z / g.Spacing.Z,
	}
}

// SliceIndex returns the slice a through-plane position belongs to. When the
// slice positions are known it picks the nearest one and rejects z farther
// than half the gap to the neighbouring slice on that side.
func (g Grid) SliceIndex(z float64) (int, error) {
	n := len(g.Positions)
	if n == 0 || n != g.Size[2] {
		k := Round((z - g.Origin.Z) / g.Spacing.Z)
		if k < 0 || k >= g.Size[2] {
			return k, fmt.Errorf("z=%.3f maps to slice %d of %d: %w", z, k, g.Size[2], ErrOutOfRangeSlice)
		}
		return k, nil
	}
	k := 0
	for i, p := range g.Positions {
		if math.Abs(z-p) < math.Abs(z-g.Positions[k]) {
			k = i
		}
	}
	d := z - g.Positions[k]
	if math.Abs(d) > g.halfGap(k, d)+1e-6 {
		return k, fmt.Errorf("z=%.3f is %.3f from nearest slice %d of %d: %w", z, math.Abs(d), k, n, ErrOutOfRangeSlice)
	}
	return k, nil
}

// halfGap is half the distance from slice k to its neighbour in the direction of d
func (g Grid) halfGap(k int, d float64) float64 {
	n := len(g.Positions)
	if n == 1 {
		return math.Abs(g.Spacing.Z) / 2
	}
	// neighbour on the side of d, falling back to the only neighbour at either end
	var nb int
	switch {
	case k == 0:
		nb = 1
	case k == n-1:
		nb = n - 2
	case (g.Positions[k+1]-g.Positions[k])*d > 0:
		nb = k + 1
	default:
		nb = k - 1
	}
	return math.Abs(g.Positions[nb]-g.Positions[k]) / 2
}

// VoxelVolume returns the volume of one voxel in mm³
func (g Grid) VoxelVolume() float64 {
	return math.Abs(g.Spacing.X * g.Spacing.Y * g.Spacing.Z)
}

// MeanInPlaneSpacing averages the row and column spacing
func (g Grid) MeanInPlaneSpacing() float64 {
	return 0.5 * (math.Abs(g.Spacing.X) + math.Abs(g.Spacing.Y))
}

// Affine returns the 4x4 index to LPS transform of the grid
func (g Grid) Affine() *mat.Dense {
	return mat.NewDense(4, 4, []float64{
		g.Spacing.X, 0, 0, g.Origin.X,
		0, g.Spacing.Y, 0, g.Origin.Y,
		0, 0, g.Spacing.Z, g.Origin.Z,
		0, 0, 0, 1,
	})
}

// Apply multiplies a 4x4 affine with a point
func Apply(a mat.Matrix, p r3.Vec) r3.Vec {
	var out mat.VecDense
	out.MulVec(a, mat.NewVecDense(4, []float64{p.X, p.Y, p.Z, 1}))
	return r3.Vec{X: out.AtVec(0), Y: out.AtVec(1), Z: out.AtVec(2)}
}

// String renders the grid for logs
func (g Grid) String() string {
	return fmt.Sprintf("size=%v spacing=(%.4g,%.4g,%.4g) origin=(%.4g,%.4g,%.4g)",
		g.Size, g.Spacing.X, g.Spacing.Y, g.Spacing.Z, g.Origin.X, g.Origin.Y, g.Origin.Z)
}
