package rtstruct

import (
	"context"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/jpfielding/rtss.go/pkg/dicom"
	"github.com/jpfielding/rtss.go/pkg/dicom/tag"
	"github.com/jpfielding/rtss.go/pkg/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func phantomSet(t *testing.T) (*StructureSet, []*dicom.Dataset) {
	t.Helper()
	p := series.NewPhantom(4, 4, 3)
	p.SliceSpacing = 2.5
	images, err := p.Datasets()
	require.NoError(t, err)

	var refs []ImageRef
	for _, ds := range images {
		refs = append(refs, ImageRef{
			SOPClassUID:    dicom.GetString(ds, tag.SOPClassUID),
			SOPInstanceUID: dicom.GetString(ds, tag.SOPInstanceUID),
		})
	}
	return FromImage(images[0], refs, "ROI1"), images
}

func square(z float64, img ImageRef) Contour {
	return Contour{
		Points: []r3.Vec{{X: 0, Y: 0, Z: z}, {X: 10.125, Y: 0, Z: z}, {X: 10.125, Y: 10, Z: z}, {X: 0, Y: 10, Z: z}},
		Image:  img,
	}
}

func TestBuildAndParse(t *testing.T) {
	s, images := phantomSet(t)
	ref := s.Referenced.Images

	green := Color{0, 230, 0}
	assert.Equal(t, 1, s.AddROI(ROI{Name: "Liver", Color: &green, Contours: []Contour{square(0, ref[0]), square(2.5, ref[1])}}))
	assert.Equal(t, 2, s.AddROI(ROI{Name: "Spleen", Description: "auto", Contours: []Contour{square(5, ref[2])}}))

	ds, err := s.Dataset()
	require.NoError(t, err)
	assert.True(t, dicom.IsRTStruct(ds))
	result := dicom.ValidateRTStruct(ds)
	assert.True(t, result.IsValid(), "%v", result.Errors)

	path := filepath.Join(t.TempDir(), "rtss.dcm")
	_, err = dicom.WriteFile(path, ds)
	require.NoError(t, err)
	read, err := dicom.ReadFile(path)
	require.NoError(t, err)

	got, report, err := Parse(context.Background(), read, ParseOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Count(Included))
	assert.Equal(t, dicom.GetString(images[0], tag.FrameOfReferenceUID), got.FrameOfReferenceUID)
	assert.Equal(t, s.Referenced.SeriesInstanceUID, got.Referenced.SeriesInstanceUID)
	assert.Equal(t, s.Referenced.StudyInstanceUID, got.Referenced.StudyInstanceUID)
	assert.Equal(t, ref, got.Referenced.Images)
	assert.Equal(t, "RTSTRUCT", got.Series.Modality)
	assert.Equal(t, "ROI1", got.Set.StructureSetLabel)
	assert.Equal(t, "PHANTOM", got.Patient.PatientID)

	require.Len(t, got.ROIs, 2)
	liver := got.ROIs[0]
	assert.Equal(t, 1, liver.Number)
	assert.Equal(t, "Liver", liver.Name)
	require.NotNil(t, liver.Color)
	assert.Equal(t, green, *liver.Color)
	assert.Equal(t, "AUTOMATIC", liver.Algorithm)
	assert.Equal(t, "ORGAN", liver.InterpretedType)
	require.Len(t, liver.Contours, 2)
	assert.Equal(t, ref[1], liver.Contours[1].Image)
	assert.Equal(t, 8, liver.NumPoints())
	for i, p := range liver.Contours[1].Points {
		want := square(2.5, ref[1]).Points[i]
		assert.InDelta(t, want.X, p.X, 1e-9)
		assert.InDelta(t, want.Y, p.Y, 1e-9)
		assert.InDelta(t, want.Z, p.Z, 1e-9)
	}

	spleen := got.ROIs[1]
	assert.Nil(t, spleen.Color)
	assert.Equal(t, "auto", spleen.Description)
}

func TestReferencedStudyClass(t *testing.T) {
	s, _ := phantomSet(t)
	ds, err := s.Dataset()
	require.NoError(t, err)

	frames := dicom.GetSequenceItems(ds, tag.ReferencedFrameOfReferenceSequence)
	require.Len(t, frames, 1)
	studies := dicom.GetSequenceItems(frames[0], tag.RTReferencedStudySequence)
	require.Len(t, studies, 1)
	assert.Equal(t, StudyComponentSOPClassUID, dicom.GetString(studies[0], tag.ReferencedSOPClassUID))
	seriesItems := dicom.GetSequenceItems(studies[0], tag.RTReferencedSeriesSequence)
	require.Len(t, seriesItems, 1)
	assert.Len(t, dicom.GetSequenceItems(seriesItems[0], tag.ContourImageSequence), 3)
}

func TestParseExclude(t *testing.T) {
	s, _ := phantomSet(t)
	ref := s.Referenced.Images
	s.AddROI(ROI{Name: "Body", Contours: []Contour{square(0, ref[0])}})
	s.AddROI(ROI{Name: "Lung L", Contours: []Contour{square(0, ref[0])}})
	ds, err := s.Dataset()
	require.NoError(t, err)

	got, report, err := Parse(context.Background(), ds, ParseOptions{Exclude: []string{"body", "LUNG_L", "lung l"}})
	require.NoError(t, err)
	require.Len(t, got.ROIs, 1)
	assert.Equal(t, "LungL", got.ROIs[0].Name)
	assert.Equal(t, Excluded, report.Results[0].Status)
	assert.Equal(t, Included, report.Results[1].Status)
}

func TestParseSkipsMissingStructures(t *testing.T) {
	s, _ := phantomSet(t)
	ref := s.Referenced.Images
	s.AddROI(ROI{Name: "Kept", Contours: []Contour{square(0, ref[0])}})
	s.AddROI(ROI{Name: "NoContours"})
	ds, err := s.Dataset()
	require.NoError(t, err)

	// a structure set entry whose contour item never made it into the file
	orphan, err := dicom.NewDataset(
		dicom.WithElement(tag.ROINumber, 9),
		dicom.WithElement(tag.ROIName, "Orphan"),
	)
	require.NoError(t, err)
	require.NoError(t, dicom.AddSequenceItem(ds, tag.StructureSetROISequence, orphan))

	got, report, err := Parse(context.Background(), ds, ParseOptions{})
	require.NoError(t, err)
	require.Len(t, got.ROIs, 1)
	assert.Equal(t, "Kept", got.ROIs[0].Name)

	require.Len(t, report.Results, 3)
	assert.Equal(t, 2, report.Count(Skipped))
	for _, res := range report.Results[1:] {
		assert.Equal(t, Skipped, res.Status)
		assert.ErrorIs(t, res.Reason, ErrMissingROIStructure)
	}
	assert.Equal(t, 9, report.Results[2].Number)
}

func TestParseDropsMalformedContour(t *testing.T) {
	s, _ := phantomSet(t)
	ref := s.Referenced.Images
	s.AddROI(ROI{Name: "Partial", Contours: []Contour{square(0, ref[0]), square(2.5, ref[1])}})
	ds, err := s.Dataset()
	require.NoError(t, err)

	rc := dicom.GetSequenceItems(ds, tag.ROIContourSequence)
	bad := dicom.GetSequenceItems(rc[0], tag.ContourSequence)[1]
	require.NoError(t, dicom.WithElement(tag.ContourData, []float64{1, 2, 3, 4})(bad))

	got, report, err := Parse(context.Background(), ds, ParseOptions{})
	require.NoError(t, err)
	require.Len(t, got.ROIs, 1)
	assert.Len(t, got.ROIs[0].Contours, 1)
	assert.Equal(t, 1, report.Results[0].Dropped)
	assert.Equal(t, Included, report.Results[0].Status)
}

func TestParseRequiresStructureSet(t *testing.T) {
	ds, err := dicom.NewDataset(dicom.WithElement(tag.Modality, "RTSTRUCT"))
	require.NoError(t, err)
	_, _, err = Parse(context.Background(), ds, ParseOptions{})
	assert.Error(t, err)
}

func TestSanitizeName(t *testing.T) {
	assert.Equal(t, "Lung_Left2", SanitizeName("Lung_Left 2"))
	assert.Equal(t, "GTV", SanitizeName("G.T-V!"))
	assert.Equal(t, "", SanitizeName("  "))
}

func TestColor(t *testing.T) {
	c, err := ParseColor("255, 0,128")
	require.NoError(t, err)
	assert.Equal(t, Color{255, 0, 128}, c)
	assert.Equal(t, "0xFF0080", c.Hex())

	c, err = ParseColor("0x00e600")
	require.NoError(t, err)
	assert.Equal(t, Color{0, 230, 0}, c)

	for _, bad := range []string{"1,2", "0xFFF", "256,0,0", "a,b,c", "0xGGGGGG"} {
		_, err := ParseColor(bad)
		assert.Error(t, err, bad)
	}
}
