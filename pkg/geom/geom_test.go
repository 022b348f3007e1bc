package geom

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/jpfielding/rtss.go/pkg/volume"
)

func testGrid() Grid {
	return Grid{
		Origin:  r3.Vec{X: -120.5, Y: -80, Z: 10},
		Spacing: r3.Vec{X: 0.75, Y: 0.5, Z: 2.5},
		Size:    [3]int{10, 10, 5},
	}
}

func TestRound(t *testing.T) {
	assert.Equal(t, 3, Round(2.5))
	assert.Equal(t, -2, Round(-2.5))
	assert.Equal(t, 2, Round(2.4999))
	assert.Equal(t, 0, Round(-0.4))
}

func TestIndexPhysicalRoundTrip(t *testing.T) {
	g := testGrid()
	for k := 0; k < g.Size[2]; k++ {
		for j := 0; j < g.Size[1]; j++ {
			for i := 0; i < g.Size[0]; i++ {
				p := g.IndexToPhysical(float64(i), float64(j), k)
				assert.Equal(t, [3]int{i, j, k}, g.PhysicalToIndex(p))
			}
		}
	}
	p := g.IndexToPhysical(2, 3, 1)
	assert.InDelta(t, -119.0, p.X, 1e-9)
	assert.InDelta(t, -78.5, p.Y, 1e-9)
	assert.InDelta(t, 12.5, p.Z, 1e-9)
}

func TestPositionsOverrideZ(t *testing.T) {
	g := testGrid()
	g.Positions = []float64{10, 12.4, 15.1, 17.5, 20}
	assert.Equal(t, 12.4, g.IndexToPhysical(0, 0, 1).Z)
	k, err := g.SliceIndex(12.4)
	require.NoError(t, err)
	assert.Equal(t, 1, k)
}

func TestSliceIndexRange(t *testing.T) {
	g := testGrid()
	k, err := g.SliceIndex(20.0)
	require.NoError(t, err)
	assert.Equal(t, 4, k)

	_, err = g.SliceIndex(8.7)
	assert.True(t, errors.Is(err, ErrOutOfRangeSlice))
	_, err = g.SliceIndex(21.3)
	assert.True(t, errors.Is(err, ErrOutOfRangeSlice))

	// half a slice below the first position still rounds onto it
	k, err = g.SliceIndex(8.76)
	require.NoError(t, err)
	assert.Equal(t, 0, k)
}

func TestSliceIndexNonUniform(t *testing.T) {
	g := Grid{
		Origin:    r3.Vec{Z: 0},
		Spacing:   r3.Vec{X: 1, Y: 1, Z: 10.0 / 3},
		Size:      [3]int{4, 4, 4},
		Positions: []float64{0, 2, 4, 10},
	}
	for z, want := range map[float64]int{0: 0, 2: 1, 4: 2, 10: 3, 6.9: 2, 7.5: 3, 12.9: 3, -0.9: 0} {
		k, err := g.SliceIndex(z)
		require.NoError(t, err, "z=%g", z)
		assert.Equal(t, want, k, "z=%g", z)
	}
	// a uniform lattice would put z=4 on slice 1
	assert.Equal(t, 1, Round((4-g.Origin.Z)/g.Spacing.Z))

	for _, z := range []float64{-1.5, 13.5} {
		_, err := g.SliceIndex(z)
		assert.ErrorIs(t, err, ErrOutOfRangeSlice, "z=%g", z)
	}
}

func TestVoxelVolume(t *testing.T) {
	g := testGrid()
	assert.InDelta(t, 0.75*0.5*2.5, g.VoxelVolume(), 1e-12)
	assert.InDelta(t, 0.625, g.MeanInPlaneSpacing(), 1e-12)
}

func TestAffineApply(t *testing.T) {
	g := testGrid()
	p := Apply(g.Affine(), r3.Vec{X: 2, Y: 3, Z: 1})
	assert.InDelta(t, 0, r3.Norm(r3.Sub(p, g.IndexToPhysical(2, 3, 1))), 1e-9)
}

func TestConventionAffineRoundTrip(t *testing.T) {
	g := testGrid()
	for _, c := range []Convention{
		{}, {FlipX: true}, {FlipY: true}, {FlipZ: true},
		{FlipX: true, FlipY: true}, {FlipX: true, FlipY: true, FlipZ: true},
	} {
		a := c.Affine(g)
		assert.Equal(t, c, ConventionFromAffine(a))

		// voxel (0,0,0) of the reordered volume is voxel (W-1,...) of the LPS grid when flipped
		want := [3]int{0, 0, 0}
		if c.FlipX {
			want[0] = g.Size[0] - 1
		}
		if c.FlipY {
			want[1] = g.Size[1] - 1
		}
		if c.FlipZ {
			want[2] = g.Size[2] - 1
		}
		ras := Apply(a, r3.Vec{})
		lps := r3.Vec{X: -ras.X, Y: -ras.Y, Z: ras.Z}
		assert.Equal(t, want, g.PhysicalToIndex(lps))
	}
}

func TestConventionFromAffine(t *testing.T) {
	ras := mat.NewDense(4, 4, []float64{
		0.9, 0, 0, -90,
		0, 0.9, 0, -120,
		0, 0, -3, 40,
		0, 0, 0, 1,
	})
	assert.Equal(t, Convention{FlipX: true, FlipY: true, FlipZ: true}, ConventionFromAffine(ras))
}

func TestConventionReorder(t *testing.T) {
	v := volume.New(3, 2, 2)
	v.Set(0, 0, 0, 1)
	c := Convention{FlipX: true, FlipZ: true}
	c.ToLPS(v)
	assert.Equal(t, float32(1), v.At(2, 0, 1))
	c.FromLPS(v)
	assert.Equal(t, float32(1), v.At(0, 0, 0))
}
