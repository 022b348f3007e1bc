package geom

import (
	"gonum.org/v1/gonum/mat"

	"github.com/jpfielding/rtss.go/pkg/volume"
)

// Convention records which voxel axes of a NIfTI (RAS) volume run opposite to the
// DICOM (LPS) series order. It is derived once per run and used by both pipelines.
type Convention struct {
	FlipX bool
	FlipY bool
	FlipZ bool
}

// ConventionFromAffine derives the flips from the diagonal of a NIfTI voxel to RAS affine.
// DICOM columns run toward patient left and rows toward posterior, which in RAS are
// negative x and negative y, so a positive diagonal entry on those axes needs a flip.
func ConventionFromAffine(a mat.Matrix) Convention {
	return Convention{
		FlipX: a.At(0, 0) > 0,
		FlipY: a.At(1, 1) > 0,
		FlipZ: a.At(2, 2) < 0,
	}
}

// ToLPS reorders a NIfTI volume in place into DICOM series index order
func (c Convention) ToLPS(v *volume.Volume) {
	c.flip(v)
}

// FromLPS reorders a DICOM ordered volume in place into the NIfTI index order
func (c Convention) FromLPS(v *volume.Volume) {
	c.flip(v)
}

func (c Convention) flip(v *volume.Volume) {
	if c.FlipX {
		v.FlipX()
	}
	if c.FlipY {
		v.FlipY()
	}
	if c.FlipZ {
		v.FlipZ()
	}
}

// Affine returns the voxel to RAS affine of a volume reordered with FromLPS.
// Flipped axes run backwards from the far edge of the grid and LPS x and y are negated.
func (c Convention) Affine(g Grid) *mat.Dense {
	flips := mat.NewDense(4, 4, []float64{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	})
	for axis, flipped := range [3]bool{c.FlipX, c.FlipY, c.FlipZ} {
		if flipped {
			flips.Set(axis, axis, -1)
			flips.Set(axis, 3, float64(g.Size[axis]-1))
		}
	}
	lpsToRAS := mat.NewDense(4, 4, []float64{
		-1, 0, 0, 0,
		0, -1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	})
	var a mat.Dense
	a.Product(lpsToRAS, g.Affine(), flips)
	return &a
}
