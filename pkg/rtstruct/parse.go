package rtstruct

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/jpfielding/rtss.go/pkg/dicom"
	"github.com/jpfielding/rtss.go/pkg/dicom/tag"
)

// Status is the outcome of reading one structure set entry
type Status string

const (
	Included Status = "included"
	Excluded Status = "excluded"
	Skipped  Status = "skipped"
)

// ROIResult records what happened to one StructureSetROISequence entry
type ROIResult struct {
	Number int
	Name   string
	Status Status
	Reason error
	// Dropped counts malformed contours left out of an included ROI
	Dropped int
}

// Report lists one result per structure set entry in document order
type Report struct {
	Results []ROIResult
}

// Count returns the number of results with the given status
func (r Report) Count(s Status) int {
	n := 0
	for _, res := range r.Results {
		if res.Status == s {
			n++
		}
	}
	return n
}

// ParseOptions tune Parse
type ParseOptions struct {
	// Exclude lists ROI names to leave out, compared case-insensitively after sanitizing
	Exclude []string
}

func (o ParseOptions) excluded(name string) bool {
	for _, e := range o.Exclude {
		if strings.EqualFold(SanitizeName(e), name) {
			return true
		}
	}
	return false
}

// Parse reads the ROIs of an RTSTRUCT dataset. Each StructureSetROISequence entry is
// matched to its ROIContourSequence item by ReferencedROINumber; entries without a
// counterpart or without contours are skipped and reported, never fatal.
func Parse(ctx context.Context, ds *dicom.Dataset, opts ParseOptions) (*StructureSet, Report, error) {
	var report Report
	if !dicom.HasElement(ds, tag.StructureSetROISequence) {
		return nil, report, fmt.Errorf("no %s in dataset", tag.StructureSetROISequence.Describe())
	}

	s := &StructureSet{
		FrameOfReferenceUID: firstFrameOfReference(ds),
		Referenced:          parseReferencedSeries(ds),
	}
	get := getter(ds)
	s.Patient.Read(get)
	s.Study.Read(get)
	s.Equipment.Read(get)
	s.SOP.Read(get)
	s.Series.SeriesInstanceUID = dicom.GetString(ds, tag.SeriesInstanceUID)
	s.Series.Modality = dicom.GetModality(ds)
	s.Set.StructureSetLabel = dicom.GetString(ds, tag.StructureSetLabel)
	s.Set.StructureSetName = dicom.GetString(ds, tag.StructureSetName)

	contoursByROI := map[int]*dicom.Dataset{}
	for _, item := range dicom.GetSequenceItems(ds, tag.ROIContourSequence) {
		if n, ok := dicom.GetInteger(item, tag.ReferencedROINumber); ok {
			if _, dup := contoursByROI[n]; !dup {
				contoursByROI[n] = item
			}
		}
	}
	interpreted := map[int]string{}
	for _, item := range dicom.GetSequenceItems(ds, tag.RTROIObservationsSequence) {
		if n, ok := dicom.GetInteger(item, tag.ReferencedROINumber); ok {
			interpreted[n] = dicom.GetString(item, tag.RTROIInterpretedType)
		}
	}

	for _, item := range dicom.GetSequenceItems(ds, tag.StructureSetROISequence) {
		number, _ := dicom.GetInteger(item, tag.ROINumber)
		name := SanitizeName(dicom.GetString(item, tag.ROIName))
		res := ROIResult{Number: number, Name: name}
		log := slog.With("roi_number", number, "roi_name", name)

		if opts.excluded(name) {
			res.Status = Excluded
			report.Results = append(report.Results, res)
			log.InfoContext(ctx, "excluding structure")
			continue
		}

		roi, dropped, err := parseROI(number, name, contoursByROI[number])
		if err != nil {
			res.Status, res.Reason = Skipped, err
			report.Results = append(report.Results, res)
			log.WarnContext(ctx, "skipping structure", "error", err)
			continue
		}
		roi.Description = dicom.GetString(item, tag.ROIDescription)
		roi.Algorithm = dicom.GetString(item, tag.ROIGenerationAlgorithm)
		roi.InterpretedType = interpreted[number]

		for _, d := range dropped {
			log.WarnContext(ctx, "dropping contour", "error", d)
		}
		res.Status = Included
		res.Dropped = len(dropped)
		report.Results = append(report.Results, res)
		s.ROIs = append(s.ROIs, roi)
		log.DebugContext(ctx, "read structure", "contours", len(roi.Contours), "points", roi.NumPoints())
	}
	return s, report, nil
}

// parseROI returns the ROI and the errors of any contours it had to drop
func parseROI(number int, name string, item *dicom.Dataset) (ROI, []error, error) {
	roi := ROI{Number: number, Name: name}
	if item == nil {
		return roi, nil, fmt.Errorf("no ROI contour references ROI %d: %w", number, ErrMissingROIStructure)
	}
	if !dicom.HasElement(item, tag.ContourSequence) {
		return roi, nil, fmt.Errorf("ROI %d has no contour sequence: %w", number, ErrMissingROIStructure)
	}
	if v, ok := dicom.GetIntegers(item, tag.ROIDisplayColor); ok && len(v) == 3 {
		roi.Color = &Color{v[0], v[1], v[2]}
	}

	var dropped []error
	for i, c := range dicom.GetSequenceItems(item, tag.ContourSequence) {
		contour, err := parseContour(c)
		if err != nil {
			dropped = append(dropped, fmt.Errorf("contour %d: %w", i+1, err))
			continue
		}
		roi.Contours = append(roi.Contours, contour)
	}
	return roi, dropped, nil
}

func parseContour(item *dicom.Dataset) (Contour, error) {
	var c Contour
	data, _ := dicom.GetDecimals(item, tag.ContourData)
	if len(data)%3 != 0 {
		return c, fmt.Errorf("contour data holds %d values, not x/y/z triplets", len(data))
	}
	c.Points = make([]r3.Vec, 0, len(data)/3)
	for i := 0; i+2 < len(data); i += 3 {
		c.Points = append(c.Points, r3.Vec{X: data[i], Y: data[i+1], Z: data[i+2]})
	}
	if images := dicom.GetSequenceItems(item, tag.ContourImageSequence); len(images) > 0 {
		c.Image = ImageRef{
			SOPClassUID:    dicom.GetString(images[0], tag.ReferencedSOPClassUID),
			SOPInstanceUID: dicom.GetString(images[0], tag.ReferencedSOPInstanceUID),
		}
	}
	return c, nil
}

func firstFrameOfReference(ds *dicom.Dataset) string {
	if uid := dicom.GetString(ds, tag.FrameOfReferenceUID); uid != "" {
		return uid
	}
	for _, f := range dicom.GetSequenceItems(ds, tag.ReferencedFrameOfReferenceSequence) {
		if uid := dicom.GetString(f, tag.FrameOfReferenceUID); uid != "" {
			return uid
		}
	}
	return ""
}

// parseReferencedSeries follows the first item at each level of the referenced frame of reference
func parseReferencedSeries(ds *dicom.Dataset) ReferencedSeries {
	var ref ReferencedSeries
	first := func(items []*dicom.Dataset) *dicom.Dataset {
		if len(items) == 0 {
			return nil
		}
		return items[0]
	}
	study := first(dicom.GetSequenceItems(first(dicom.GetSequenceItems(ds, tag.ReferencedFrameOfReferenceSequence)), tag.RTReferencedStudySequence))
	if study == nil {
		return ref
	}
	ref.StudyInstanceUID = dicom.GetString(study, tag.ReferencedSOPInstanceUID)
	series := first(dicom.GetSequenceItems(study, tag.RTReferencedSeriesSequence))
	if series == nil {
		return ref
	}
	ref.SeriesInstanceUID = dicom.GetString(series, tag.SeriesInstanceUID)
	for _, img := range dicom.GetSequenceItems(series, tag.ContourImageSequence) {
		ref.Images = append(ref.Images, ImageRef{
			SOPClassUID:    dicom.GetString(img, tag.ReferencedSOPClassUID),
			SOPInstanceUID: dicom.GetString(img, tag.ReferencedSOPInstanceUID),
		})
	}
	return ref
}
