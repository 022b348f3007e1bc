package series

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jpfielding/rtss.go/pkg/dicom"
	"github.com/jpfielding/rtss.go/pkg/dicom/tag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sliceAt(t *testing.T, name string, opts ...dicom.Option) Slice {
	ds, err := dicom.NewDataset(opts...)
	require.NoError(t, err)
	return Slice{Path: name, Dataset: ds}
}

func TestSortByImagePosition(t *testing.T) {
	in := []Slice{
		sliceAt(t, "b", dicom.WithElement(tag.ImagePositionPatient, []float64{0, 0, 5})),
		sliceAt(t, "c", dicom.WithElement(tag.ImagePositionPatient, []float64{0, 0, -2.5})),
		sliceAt(t, "a", dicom.WithElement(tag.ImagePositionPatient, []float64{0, 0, 2.5})),
	}
	s, err := Sort(in)
	require.NoError(t, err)
	assert.Equal(t, tag.ImagePositionPatient, s.Key)
	assert.Equal(t, []float64{-2.5, 2.5, 5}, s.Positions())
	assert.Equal(t, "c", s.Slices[0].Path)
	// input untouched
	assert.Equal(t, "b", in[0].Path)
}

func TestSortBySliceLocation(t *testing.T) {
	in := []Slice{
		sliceAt(t, "a", dicom.WithElement(tag.SliceLocation, "10.0")),
		sliceAt(t, "b", dicom.WithElement(tag.SliceLocation, "-4"),
			dicom.WithElement(tag.ImagePositionPatient, []float64{0, 0, 99})),
	}
	s, err := Sort(in)
	require.NoError(t, err)
	assert.Equal(t, tag.SliceLocation, s.Key)
	assert.Equal(t, []float64{-4, 10}, s.Positions())
}

func TestSortIsStable(t *testing.T) {
	in := []Slice{
		sliceAt(t, "first", dicom.WithElement(tag.SliceLocation, 1.0)),
		sliceAt(t, "second", dicom.WithElement(tag.SliceLocation, 1.0)),
		sliceAt(t, "third", dicom.WithElement(tag.SliceLocation, 0.0)),
	}
	s, err := Sort(in)
	require.NoError(t, err)
	assert.Equal(t, "third", s.Slices[0].Path)
	assert.Equal(t, "first", s.Slices[1].Path)
	assert.Equal(t, "second", s.Slices[2].Path)
}

func TestSortErrors(t *testing.T) {
	_, err := Sort(nil)
	assert.Error(t, err)

	_, err = Sort([]Slice{sliceAt(t, "bare", dicom.WithElement(tag.PatientID, "X"))})
	assert.ErrorIs(t, err, ErrMissingGeometryTag)

	_, err = Sort([]Slice{
		sliceAt(t, "a", dicom.WithElement(tag.ImagePositionPatient, []float64{0, 0, 1})),
		sliceAt(t, "b", dicom.WithElement(tag.SliceLocation, 2.0)),
	})
	assert.ErrorIs(t, err, ErrInconsistentGeometryTag)
	assert.Contains(t, err.Error(), "b has no")
}

func TestLoadPhantom(t *testing.T) {
	dir := t.TempDir()
	p := NewPhantom(4, 6, 3)
	p.PixelSpacing = [2]float64{0.5, 0.75}
	p.SliceSpacing = 2.5
	p.Origin = [3]float64{-10, 20, -5}
	p.Value = func(x, y, z int) uint16 { return uint16(x + 10*y + 100*z) }
	_, err := p.WriteDir(dir)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("not dicom"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o755))

	s, err := Load(context.Background(), dir)
	require.NoError(t, err)
	require.Equal(t, 3, s.Len())
	assert.Equal(t, []float64{-5, -2.5, 0}, s.Positions())
	assert.Equal(t, p.SeriesInstanceUID, s.SeriesInstanceUID())
	assert.Equal(t, p.StudyInstanceUID, s.StudyInstanceUID())
	assert.Equal(t, p.FrameOfReferenceUID, s.FrameOfReferenceUID())
	assert.Equal(t, dicom.CTImageStorageUID, s.Slices[0].SOPClassUID())
	assert.NotEmpty(t, s.Slices[0].SOPInstanceUID())

	g := s.Grid()
	assert.Equal(t, [3]int{6, 4, 3}, g.Size)
	assert.InDelta(t, 0.75, g.Spacing.X, 1e-9)
	assert.InDelta(t, 0.5, g.Spacing.Y, 1e-9)
	assert.InDelta(t, 2.5, g.Spacing.Z, 1e-9)
	assert.InDelta(t, -10, g.Origin.X, 1e-9)
	assert.InDelta(t, 20, g.Origin.Y, 1e-9)
	assert.InDelta(t, -5, g.Origin.Z, 1e-9)

	v, err := s.Volume(context.Background())
	require.NoError(t, err)
	assert.Equal(t, [3]int{6, 4, 3}, v.Shape())
	assert.Equal(t, float32(5+10*3+100*2), v.At(5, 3, 2))
	assert.Equal(t, float32(0), v.At(0, 0, 0))
}

func TestGridKeepsGappedPositions(t *testing.T) {
	dir := t.TempDir()
	p := NewPhantom(4, 4, 6)
	p.SliceSpacing = 2
	paths, err := p.WriteDir(dir)
	require.NoError(t, err)
	// drop the slices at z=6 and z=8
	require.NoError(t, os.Remove(paths[3]))
	require.NoError(t, os.Remove(paths[4]))

	s, err := Load(context.Background(), dir)
	require.NoError(t, err)
	g := s.Grid()
	assert.Equal(t, []float64{0, 2, 4, 10}, g.Positions)
	assert.InDelta(t, 10.0/3, g.Spacing.Z, 1e-9)
	assert.Equal(t, 4.0, g.IndexToPhysical(0, 0, 2).Z)

	k, err := g.SliceIndex(4)
	require.NoError(t, err)
	assert.Equal(t, 2, k)
	k, err = g.SliceIndex(10)
	require.NoError(t, err)
	assert.Equal(t, 3, k)
}

func TestLoadEmptyDir(t *testing.T) {
	_, err := Load(context.Background(), t.TempDir())
	assert.Error(t, err)

	_, err = Load(context.Background(), filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestGridSpacingFallback(t *testing.T) {
	s, err := Sort([]Slice{sliceAt(t, "only",
		dicom.WithElement(tag.ImagePositionPatient, []float64{1, 2, 3}),
		dicom.WithElement(tag.SliceThickness, 3.0),
		dicom.WithElement(tag.Rows, uint16(2)),
		dicom.WithElement(tag.Columns, uint16(2)),
	)})
	require.NoError(t, err)
	assert.InDelta(t, 3.0, s.Grid().Spacing.Z, 1e-9)

	s.Slices[0].Dataset.Elements[tag.SpacingBetweenSlices] = &dicom.Element{Tag: tag.SpacingBetweenSlices, VR: "DS", Value: "2.0"}
	assert.InDelta(t, 2.0, s.Grid().Spacing.Z, 1e-9)
}

func TestSignedVolume(t *testing.T) {
	dir := t.TempDir()
	p := NewPhantom(2, 2, 1)
	p.Value = func(x, y, z int) uint16 { return uint16(0xFC18) } // -1000
	datasets, err := p.Datasets()
	require.NoError(t, err)
	datasets[0].Elements[tag.PixelRepresentation] = &dicom.Element{Tag: tag.PixelRepresentation, VR: "US", Value: uint16(1)}
	_, err = dicom.WriteFile(filepath.Join(dir, "ct.dcm"), datasets[0])
	require.NoError(t, err)

	s, err := Load(context.Background(), dir)
	require.NoError(t, err)
	v, err := s.Volume(context.Background())
	require.NoError(t, err)
	assert.Equal(t, float32(-1000), v.At(1, 1, 0))
}
