package rtstruct

import (
	"fmt"

	"github.com/jpfielding/rtss.go/pkg/dicom"
	"github.com/jpfielding/rtss.go/pkg/dicom/tag"
)

// Dataset serializes the structure set. Every sequence is assembled from the typed
// records in one pass, so the order ROIs and contours were added does not matter
// beyond their numbering.
func (s *StructureSet) Dataset() (*dicom.Dataset, error) {
	referenced, err := s.referencedFrameOfReference()
	if err != nil {
		return nil, err
	}

	roiSeq := dicom.NewSequenceBuilder(tag.StructureSetROISequence)
	contourSeq := dicom.NewSequenceBuilder(tag.ROIContourSequence)
	observationSeq := dicom.NewSequenceBuilder(tag.RTROIObservationsSequence)
	for _, roi := range s.ROIs {
		roiOpts := []dicom.Option{
			dicom.WithElement(tag.ROINumber, roi.Number),
			dicom.WithElement(tag.ReferencedFrameOfReferenceUID, s.FrameOfReferenceUID),
			dicom.WithElement(tag.ROIName, roi.Name),
			dicom.WithElement(tag.ROIGenerationAlgorithm, roi.Algorithm),
		}
		if roi.Description != "" {
			roiOpts = append(roiOpts, dicom.WithElement(tag.ROIDescription, roi.Description))
		}
		roiSeq.AddItem(roiOpts...)

		contours := dicom.NewSequenceBuilder(tag.ContourSequence)
		for i, c := range roi.Contours {
			image := dicom.NewSequenceBuilder(tag.ContourImageSequence).AddItem(
				dicom.WithElement(tag.ReferencedSOPClassUID, c.Image.SOPClassUID),
				dicom.WithElement(tag.ReferencedSOPInstanceUID, c.Image.SOPInstanceUID),
			)
			contours.AddBuilder(image,
				dicom.WithElement(tag.ContourNumber, i+1),
				dicom.WithElement(tag.ContourGeometricType, ClosedPlanar),
				dicom.WithElement(tag.NumberOfContourPoints, len(c.Points)),
				dicom.WithElement(tag.ContourData, c.Flatten()),
			)
		}
		contourOpts := []dicom.Option{dicom.WithElement(tag.ReferencedROINumber, roi.Number)}
		if roi.Color != nil {
			contourOpts = append(contourOpts, dicom.WithElement(tag.ROIDisplayColor, roi.Color[:]))
		}
		if len(roi.Contours) > 0 {
			contourSeq.AddBuilder(contours, contourOpts...)
		} else {
			contourSeq.AddItem(contourOpts...)
		}

		observationSeq.AddItem(
			dicom.WithElement(tag.ObservationNumber, roi.Number),
			dicom.WithElement(tag.ReferencedROINumber, roi.Number),
			dicom.WithElement(tag.RTROIInterpretedType, roi.InterpretedType),
			dicom.WithElement(tag.ROIInterpreter, ""),
		)
	}

	opts := []dicom.Option{
		dicom.WithFileMeta(s.SOP.SOPClassUID, s.SOP.SOPInstanceUID, dicom.ExplicitVRLittleEndian),
		dicom.WithModule(&s.Patient),
		dicom.WithModule(&s.Study),
		dicom.WithModule(&s.Series),
		dicom.WithModule(&s.Equipment),
		dicom.WithModule(&s.Set),
		dicom.WithModule(&s.SOP),
		dicom.WithModule(&s.Approval),
		dicom.WithElement(tag.InstanceNumber, 1),
		referenced,
	}
	for _, sb := range []*dicom.SequenceBuilder{roiSeq, contourSeq, observationSeq} {
		opt, err := sb.Build()
		if err != nil {
			return nil, fmt.Errorf("building structure set: %w", err)
		}
		opts = append(opts, opt)
	}
	return dicom.NewDataset(opts...)
}

// referencedFrameOfReference nests frame of reference, study, series and every image of the series
func (s *StructureSet) referencedFrameOfReference() (dicom.Option, error) {
	images := dicom.NewSequenceBuilder(tag.ContourImageSequence)
	for _, img := range s.Referenced.Images {
		images.AddItem(
			dicom.WithElement(tag.ReferencedSOPClassUID, img.SOPClassUID),
			dicom.WithElement(tag.ReferencedSOPInstanceUID, img.SOPInstanceUID),
		)
	}
	series := dicom.NewSequenceBuilder(tag.RTReferencedSeriesSequence).
		AddBuilder(images, dicom.WithElement(tag.SeriesInstanceUID, s.Referenced.SeriesInstanceUID))
	study := dicom.NewSequenceBuilder(tag.RTReferencedStudySequence).
		AddBuilder(series,
			dicom.WithElement(tag.ReferencedSOPClassUID, StudyComponentSOPClassUID),
			dicom.WithElement(tag.ReferencedSOPInstanceUID, s.Referenced.StudyInstanceUID),
		)
	frame := dicom.NewSequenceBuilder(tag.ReferencedFrameOfReferenceSequence).
		AddBuilder(study, dicom.WithElement(tag.FrameOfReferenceUID, s.FrameOfReferenceUID))
	return frame.Build()
}
