package convert

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/jpfielding/rtss.go/pkg/dicom"
	"github.com/jpfielding/rtss.go/pkg/dicom/tag"
	"github.com/jpfielding/rtss.go/pkg/geom"
	"github.com/jpfielding/rtss.go/pkg/nifti"
	"github.com/jpfielding/rtss.go/pkg/rtstruct"
	"github.com/jpfielding/rtss.go/pkg/series"
	"github.com/jpfielding/rtss.go/pkg/volume"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	dir  string
	grid geom.Grid
}

// newFixture writes a 10x10x5 CT phantom with anisotropic spacing
func newFixture(t *testing.T) fixture {
	t.Helper()
	p := series.NewPhantom(10, 10, 5)
	p.PixelSpacing = [2]float64{0.8, 0.6}
	p.SliceSpacing = 2
	p.Origin = [3]float64{-3, 4.5, -10}
	p.Value = func(x, y, z int) uint16 { return uint16(x + 10*y + 100*z) }

	dir := filepath.Join(t.TempDir(), "ct")
	_, err := p.WriteDir(dir)
	require.NoError(t, err)
	s, err := series.Load(context.Background(), dir)
	require.NoError(t, err)
	return fixture{dir: dir, grid: s.Grid()}
}

// newGappedFixture writes a 10x10x6 phantom and removes two adjacent slices so the
// remaining positions (-10, -8, -6, 0) are not evenly spaced
func newGappedFixture(t *testing.T) fixture {
	t.Helper()
	p := series.NewPhantom(10, 10, 6)
	p.PixelSpacing = [2]float64{0.8, 0.6}
	p.SliceSpacing = 2
	p.Origin = [3]float64{-3, 4.5, -10}

	dir := filepath.Join(t.TempDir(), "ct")
	paths, err := p.WriteDir(dir)
	require.NoError(t, err)
	require.NoError(t, os.Remove(paths[3]))
	require.NoError(t, os.Remove(paths[4]))
	s, err := series.Load(context.Background(), dir)
	require.NoError(t, err)
	return fixture{dir: dir, grid: s.Grid()}
}

// writeMask stores a series ordered mask in the voxel order of conv
func (f fixture) writeMask(t *testing.T, mask *volume.Volume, conv geom.Convention) (string, *volume.Volume) {
	t.Helper()
	stored := mask.Clone()
	conv.FromLPS(stored)
	path := filepath.Join(t.TempDir(), "mask.nii.gz")
	require.NoError(t, nifti.WriteFile(path, nifti.New(stored, conv.Affine(f.grid), nifti.DTUint8)))
	return path, stored
}

func box(v *volume.Volume, label float32, x0, x1, y0, y1, z0, z1 int) {
	for z := z0; z < z1; z++ {
		for y := y0; y < y1; y++ {
			for x := x0; x < x1; x++ {
				v.Set(x, y, z, label)
			}
		}
	}
}

func (f fixture) encode(t *testing.T, maskPath string, mod func(*EncodeOptions)) (string, *Report) {
	t.Helper()
	opts := DefaultEncodeOptions()
	opts.MaskPath = maskPath
	opts.SeriesDir = f.dir
	opts.OutPath = filepath.Join(t.TempDir(), "rtss.dcm")
	opts.Tolerance = 0
	if mod != nil {
		mod(&opts)
	}
	report, err := NiftiToRTSS(context.Background(), opts)
	require.NoError(t, err)
	return opts.OutPath, report
}

func (f fixture) decode(t *testing.T, rtss string, mod func(*DecodeOptions)) (DecodeOptions, *Report) {
	t.Helper()
	opts := DecodeOptions{
		RTSSPath:  rtss,
		SeriesDir: f.dir,
		OutRoot:   filepath.Join(t.TempDir(), "out.nii"),
	}
	if mod != nil {
		mod(&opts)
	}
	report, err := RTSSToNifti(context.Background(), opts)
	require.NoError(t, err)
	return opts, report
}

func TestSquareScenario(t *testing.T) {
	f := newFixture(t)
	mask := volume.New(10, 10, 5)
	box(mask, 1, 2, 6, 2, 6, 1, 4)
	maskPath, stored := f.writeMask(t, mask, geom.Convention{})

	rtss, encoded := f.encode(t, maskPath, nil)
	require.Len(t, encoded.Results, 1)
	assert.Zero(t, encoded.Dropped())

	ds, err := dicom.ReadFile(rtss)
	require.NoError(t, err)
	assert.True(t, dicom.ValidateRTStruct(ds).IsValid())
	assert.Equal(t, "ROI1", dicom.GetString(ds, tag.StructureSetLabel))
	rc := dicom.GetSequenceItems(ds, tag.ROIContourSequence)
	require.Len(t, rc, 1)
	assert.Len(t, dicom.GetSequenceItems(rc[0], tag.ContourSequence), 3)

	opts, decoded := f.decode(t, rtss, nil)
	assert.Equal(t, []string{opts.MaskPath(""), opts.SidecarPath(), opts.StructurePath()}, decoded.Outputs)

	got, err := nifti.ReadFile(opts.MaskPath(""))
	require.NoError(t, err)
	assert.Equal(t, stored.Data, got.Volume.Data)
	assert.Equal(t, 48, got.Volume.CountNonZero())
	assert.True(t, mat.EqualApprox(geom.Convention{}.Affine(f.grid), got.Affine(), 1e-6))

	summaries, err := ReadSidecar(opts.SidecarPath())
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	sum := summaries[0]
	assert.Equal(t, 1, sum.Number)
	assert.Equal(t, "ROI_1", sum.Name)
	assert.Equal(t, 1, sum.Label)
	assert.Equal(t, 3, sum.NumContours)
	require.NotNil(t, sum.DisplayColor)
	assert.Equal(t, "0x00E600", *sum.DisplayColor)
	assert.Equal(t, opts.MaskPath(""), sum.OutFile)
	assert.InDelta(t, 48*0.6*0.8*2, sum.VolumeMM3, 1e-9)

	structure, err := nifti.ReadFile(opts.StructurePath())
	require.NoError(t, err)
	assert.Equal(t, [3]int{10, 10, 5}, structure.Header.Shape())
	assert.Equal(t, float32(3+10*7+100*4), structure.Volume.At(3, 7, 4))
}

func TestGappedSeriesRoundTrip(t *testing.T) {
	f := newGappedFixture(t)
	require.Equal(t, []float64{-10, -8, -6, 0}, f.grid.Positions)

	// a different square per slice so a contour landing on the wrong slice shows up
	mask := volume.New(10, 10, 4)
	for k := 0; k < 4; k++ {
		box(mask, 1, 1, 3+k, 1, 3+k, k, k+1)
	}
	maskPath, stored := f.writeMask(t, mask, geom.Convention{})

	rtss, encoded := f.encode(t, maskPath, nil)
	require.Len(t, encoded.Results, 1)
	assert.Zero(t, encoded.Dropped())

	opts, decoded := f.decode(t, rtss, nil)
	require.Len(t, decoded.Results, 1)
	assert.Zero(t, decoded.Dropped())
	got, err := nifti.ReadFile(opts.MaskPath(""))
	require.NoError(t, err)
	assert.Equal(t, stored.Data, got.Volume.Data)
	assert.Equal(t, 4+9+16+25, got.Volume.CountNonZero())
}

func TestFlippedConventionRoundTrip(t *testing.T) {
	f := newFixture(t)
	mask := volume.New(10, 10, 5)
	box(mask, 1, 1, 4, 2, 8, 0, 2)
	box(mask, 1, 6, 9, 6, 9, 4, 5)
	conv := geom.Convention{FlipX: true, FlipY: true}
	maskPath, stored := f.writeMask(t, mask, conv)

	rtss, _ := f.encode(t, maskPath, nil)
	opts, _ := f.decode(t, rtss, func(o *DecodeOptions) {
		o.Convention = conv
		o.Compress = true
	})
	assert.True(t, nifti.IsGzip(opts.MaskPath("")))

	got, err := nifti.ReadFile(opts.MaskPath(""))
	require.NoError(t, err)
	assert.Equal(t, stored.Data, got.Volume.Data)
	assert.Equal(t, conv, geom.ConventionFromAffine(got.Affine()))
}

func TestPerLabel(t *testing.T) {
	f := newFixture(t)
	mask := volume.New(10, 10, 5)
	box(mask, 1, 1, 4, 1, 4, 0, 2)
	box(mask, 3, 5, 9, 5, 8, 2, 5)
	maskPath, _ := f.writeMask(t, mask, geom.Convention{})

	rtss, encoded := f.encode(t, maskPath, func(o *EncodeOptions) { o.PerLabel = true })
	require.Len(t, encoded.Results, 2)
	assert.Equal(t, "ROI_1", encoded.Results[0].Name)
	assert.Equal(t, "ROI_3", encoded.Results[1].Name)

	// combined labels follow encounter order
	combinedOpts, combined := f.decode(t, rtss, nil)
	require.Len(t, combined.Regions, 2)
	assert.Equal(t, 1, combined.Regions[0].Label)
	assert.Equal(t, 2, combined.Regions[1].Label)
	got, err := nifti.ReadFile(combinedOpts.MaskPath(""))
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2}, got.Volume.Labels())
	assert.Equal(t, 18, got.Volume.Count(func(v float32) bool { return v == 1 }))
	assert.Equal(t, 36, got.Volume.Count(func(v float32) bool { return v == 2 }))

	// separate masks hold the same voxels labelled 1
	separateOpts, separate := f.decode(t, rtss, func(o *DecodeOptions) { o.Separate = true })
	total := 0
	for _, r := range separate.Regions {
		assert.Equal(t, 1, r.Label)
		assert.Equal(t, separateOpts.MaskPath(r.Name), r.OutFile)
		img, err := nifti.ReadFile(r.OutFile)
		require.NoError(t, err)
		assert.Equal(t, []float32{1}, img.Volume.Labels())
		total += img.Volume.CountNonZero()
	}
	assert.Equal(t, got.Volume.CountNonZero(), total)
	assert.Equal(t, filepath.Join(filepath.Dir(separateOpts.OutRoot), "out_ROI_3.nii"), separateOpts.MaskPath("ROI_3"))
}

func TestExcludeAndDeterminism(t *testing.T) {
	f := newFixture(t)
	mask := volume.New(10, 10, 5)
	box(mask, 1, 1, 4, 1, 4, 0, 2)
	box(mask, 2, 5, 9, 5, 8, 2, 5)
	maskPath, _ := f.writeMask(t, mask, geom.Convention{})
	rtss, _ := f.encode(t, maskPath, func(o *EncodeOptions) { o.PerLabel = true })

	opts, report := f.decode(t, rtss, func(o *DecodeOptions) { o.Exclude = []string{"roi_2"} })
	require.Len(t, report.Regions, 1)
	assert.Equal(t, "ROI_1", report.Regions[0].Name)
	assert.Equal(t, rtstruct.Excluded, report.Results[1].Status)
	got, err := nifti.ReadFile(opts.MaskPath(""))
	require.NoError(t, err)
	assert.Equal(t, []float32{1}, got.Volume.Labels())

	first, _ := f.decode(t, rtss, nil)
	second, _ := f.decode(t, rtss, nil)
	a, err := ReadSidecar(first.SidecarPath())
	require.NoError(t, err)
	b, err := ReadSidecar(second.SidecarPath())
	require.NoError(t, err)
	for i := range a {
		a[i].OutFile, b[i].OutFile = "", ""
	}
	assert.Equal(t, a, b)
	va, err := nifti.ReadFile(first.MaskPath(""))
	require.NoError(t, err)
	vb, err := nifti.ReadFile(second.MaskPath(""))
	require.NoError(t, err)
	assert.Equal(t, va.Volume.Data, vb.Volume.Data)
}

func TestMinPointsBoundary(t *testing.T) {
	f := newFixture(t)
	mask := volume.New(10, 10, 5)
	mask.Set(4, 4, 2, 1)
	maskPath, _ := f.writeMask(t, mask, geom.Convention{})

	// a single voxel traces to a four point diamond
	rtss, report := f.encode(t, maskPath, func(o *EncodeOptions) { o.MinPoints = 5 })
	assert.Equal(t, 1, report.Dropped())
	_, decoded := f.decode(t, rtss, nil)
	require.Len(t, decoded.Results, 1)
	assert.Equal(t, rtstruct.Skipped, decoded.Results[0].Status)
	assert.Empty(t, decoded.Regions)

	rtss, report = f.encode(t, maskPath, func(o *EncodeOptions) { o.MinPoints = 4 })
	assert.Zero(t, report.Dropped())
	opts, decoded := f.decode(t, rtss, nil)
	require.Len(t, decoded.Regions, 1)
	assert.Equal(t, 4, decoded.Regions[0].Points)
	got, err := nifti.ReadFile(opts.MaskPath(""))
	require.NoError(t, err)
	assert.Equal(t, 1, got.Volume.CountNonZero())
	assert.Equal(t, float32(1), got.Volume.At(4, 4, 2))
}

func TestShapeMismatch(t *testing.T) {
	f := newFixture(t)
	path := filepath.Join(t.TempDir(), "small.nii")
	require.NoError(t, nifti.WriteFile(path, nifti.New(volume.New(10, 10, 4), geom.Convention{}.Affine(f.grid), nifti.DTUint8)))

	opts := DefaultEncodeOptions()
	opts.MaskPath, opts.SeriesDir, opts.OutPath = path, f.dir, filepath.Join(t.TempDir(), "rtss.dcm")
	_, err := NiftiToRTSS(context.Background(), opts)
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestDecodeRejectsImage(t *testing.T) {
	f := newFixture(t)
	s, err := series.Load(context.Background(), f.dir)
	require.NoError(t, err)
	_, err = RTSSToNifti(context.Background(), DecodeOptions{
		RTSSPath:  s.Slices[0].Path,
		SeriesDir: f.dir,
		OutRoot:   filepath.Join(t.TempDir(), "out"),
	})
	assert.ErrorContains(t, err, "not an RT structure set")
}

func TestOutputPaths(t *testing.T) {
	opts := DecodeOptions{OutRoot: "/tmp/case/mask.nii.gz"}
	assert.Equal(t, "/tmp/case/mask.nii.gz", opts.MaskPath(""))
	assert.Equal(t, "/tmp/case/mask.json", opts.SidecarPath())
	assert.Equal(t, "/tmp/case/mask_struct.nii.gz", opts.StructurePath())

	opts = DecodeOptions{OutRoot: "/tmp/case/mask", Separate: true, StructPath: "/tmp/t1.nii"}
	assert.Equal(t, "/tmp/case/mask_GTV.nii", opts.MaskPath("GTV"))
	assert.Equal(t, "/tmp/t1.nii", opts.StructurePath())
}
