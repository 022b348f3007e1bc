// Package series orders the slices of an image series and exposes them as one grid and volume
package series

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"slices"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/jpfielding/rtss.go/pkg/dicom"
	"github.com/jpfielding/rtss.go/pkg/dicom/tag"
	"github.com/jpfielding/rtss.go/pkg/geom"
	"github.com/jpfielding/rtss.go/pkg/volume"
)

var (
	// ErrMissingGeometryTag means the first slice carries neither ImagePositionPatient nor SliceLocation
	ErrMissingGeometryTag = errors.New("missing geometry tag")
	// ErrInconsistentGeometryTag means a slice lacks the tag the series is sorted by
	ErrInconsistentGeometryTag = errors.New("inconsistent geometry tag")
)

// Slice is one image of a series and its through-plane position
type Slice struct {
	Path     string
	Dataset  *dicom.Dataset
	Position float64
}

// SOPInstanceUID of the slice
func (s Slice) SOPInstanceUID() string {
	return dicom.GetString(s.Dataset, tag.SOPInstanceUID)
}

// SOPClassUID of the slice
func (s Slice) SOPClassUID() string {
	return dicom.GetString(s.Dataset, tag.SOPClassUID)
}

// Series is a stack of slices in ascending through-plane order
type Series struct {
	Slices []Slice
	// Key is the tag the slices were sorted by
	Key tag.Tag
}

// position reads the through-plane coordinate a slice is sorted by
func position(ds *dicom.Dataset, key tag.Tag) (float64, bool) {
	v, ok := dicom.GetDecimals(ds, key)
	if !ok {
		return 0, false
	}
	if key == tag.ImagePositionPatient {
		if len(v) < 3 {
			return 0, false
		}
		return v[2], true
	}
	return v[0], true
}

// Sort orders slices by ImagePositionPatient z, or SliceLocation when the first slice has
// no position. The key is chosen from the first slice and every other slice must carry it.
func Sort(in []Slice) (*Series, error) {
	if len(in) == 0 {
		return nil, errors.New("no slices to sort")
	}
	key := tag.ImagePositionPatient
	if _, ok := position(in[0].Dataset, key); !ok {
		key = tag.SliceLocation
		if _, ok := position(in[0].Dataset, key); !ok {
			return nil, fmt.Errorf("%s: neither %s nor %s present: %w",
				in[0].Path, tag.ImagePositionPatient.Describe(), tag.SliceLocation.Describe(), ErrMissingGeometryTag)
		}
	}

	out := make([]Slice, len(in))
	for i, s := range in {
		z, ok := position(s.Dataset, key)
		if !ok {
			return nil, fmt.Errorf("%s has no %s: %w", s.Path, key.Describe(), ErrInconsistentGeometryTag)
		}
		s.Position = z
		out[i] = s
	}
	slices.SortStableFunc(out, func(a, b Slice) int {
		return cmp.Compare(a.Position, b.Position)
	})
	return &Series{Slices: out, Key: key}, nil
}

// Load reads every regular file in dir, keeps the image slices and sorts them.
// Unreadable and non-image files are skipped.
func Load(ctx context.Context, dir string) (*Series, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading series directory: %w", err)
	}
	var found []Slice
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !e.Type().IsRegular() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		ds, err := dicom.ReadFile(path)
		if err != nil {
			slog.DebugContext(ctx, "skipping unreadable file", "path", path, "error", err)
			continue
		}
		if !dicom.IsImage(ds) {
			slog.DebugContext(ctx, "skipping non image object", "path", path, "modality", dicom.GetModality(ds))
			continue
		}
		found = append(found, Slice{Path: path, Dataset: ds})
	}
	if len(found) == 0 {
		return nil, fmt.Errorf("no image slices found in %s", dir)
	}
	s, err := Sort(found)
	if err != nil {
		return nil, err
	}
	slog.DebugContext(ctx, "loaded series", "dir", dir, "slices", s.Len(), "key", s.Key.LookupName())
	return s, nil
}

// Len returns the number of slices
func (s *Series) Len() int {
	return len(s.Slices)
}

// Reference returns the dataset of the first slice, the source of shared series attributes
func (s *Series) Reference() *dicom.Dataset {
	return s.Slices[0].Dataset
}

// Rows of every slice
func (s *Series) Rows() int {
	return dicom.GetRows(s.Reference())
}

// Columns of every slice
func (s *Series) Columns() int {
	return dicom.GetColumns(s.Reference())
}

// Positions returns the sorted through-plane positions
func (s *Series) Positions() []float64 {
	out := make([]float64, len(s.Slices))
	for i, sl := range s.Slices {
		out[i] = sl.Position
	}
	return out
}

// StudyInstanceUID shared by the series
func (s *Series) StudyInstanceUID() string {
	return dicom.GetString(s.Reference(), tag.StudyInstanceUID)
}

// SeriesInstanceUID shared by the series
func (s *Series) SeriesInstanceUID() string {
	return dicom.GetString(s.Reference(), tag.SeriesInstanceUID)
}

// FrameOfReferenceUID shared by the series
func (s *Series) FrameOfReferenceUID() string {
	return dicom.GetString(s.Reference(), tag.FrameOfReferenceUID)
}

// Grid derives the voxel lattice: in-plane spacing from PixelSpacing of the first
// slice, through-plane spacing from the extent of the sorted positions, falling back
// to SpacingBetweenSlices, SliceThickness and finally 1 mm.
func (s *Series) Grid() geom.Grid {
	ref := s.Reference()
	g := geom.Grid{
		Spacing:   r3.Vec{X: 1, Y: 1, Z: 1},
		Size:      [3]int{s.Columns(), s.Rows(), s.Len()},
		Positions: s.Positions(),
	}
	if ps, ok := dicom.GetDecimals(ref, tag.PixelSpacing); ok && len(ps) >= 2 {
		g.Spacing.X, g.Spacing.Y = ps[1], ps[0]
	}
	if ipp, ok := dicom.GetDecimals(ref, tag.ImagePositionPatient); ok && len(ipp) >= 3 {
		g.Origin.X, g.Origin.Y = ipp[0], ipp[1]
	}
	g.Origin.Z = s.Slices[0].Position

	if n := s.Len(); n > 1 && s.Slices[n-1].Position != s.Slices[0].Position {
		g.Spacing.Z = (s.Slices[n-1].Position - s.Slices[0].Position) / float64(n-1)
	} else if v, ok := dicom.GetDecimals(ref, tag.SpacingBetweenSlices); ok && v[0] != 0 {
		g.Spacing.Z = math.Abs(v[0])
	} else if v, ok := dicom.GetDecimals(ref, tag.SliceThickness); ok && v[0] != 0 {
		g.Spacing.Z = math.Abs(v[0])
	}
	return g
}

// Rescale returns the modality LUT of the first slice
func (s *Series) Rescale() (intercept, slope float64) {
	return dicom.GetRescale(s.Reference())
}

// Volume stacks the stored pixel values of all slices. Signed data is sign extended,
// the rescale is left to the caller.
func (s *Series) Volume(ctx context.Context) (*volume.Volume, error) {
	rows, cols := s.Rows(), s.Columns()
	v := volume.New(cols, rows, s.Len())
	for z, sl := range s.Slices {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if r, c := dicom.GetRows(sl.Dataset), dicom.GetColumns(sl.Dataset); r != rows || c != cols {
			return nil, fmt.Errorf("%s is %dx%d, series is %dx%d", sl.Path, c, r, cols, rows)
		}
		pd, err := sl.Dataset.GetPixelData()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", sl.Path, err)
		}
		if len(pd.Frames) == 0 {
			return nil, fmt.Errorf("%s: no frames", sl.Path)
		}
		signed := dicom.GetPixelRepresentation(sl.Dataset) == 1
		eight := dicom.GetBitsAllocated(sl.Dataset) == 8
		plane := v.Plane(z)
		for i, raw := range pd.Frames[0].Data {
			switch {
			case signed && eight:
				plane.Data[i] = float32(int8(raw))
			case signed:
				plane.Data[i] = float32(int16(raw))
			default:
				plane.Data[i] = float32(raw)
			}
		}
	}
	return v, nil
}
