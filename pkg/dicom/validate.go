package dicom

import (
	"fmt"

	"github.com/jpfielding/rtss.go/pkg/dicom/tag"
)

// AttributeType represents DICOM attribute type requirements
type AttributeType int

const (
	// Type1 - Required, must have value
	Type1 AttributeType = 1
	// Type1C - Conditionally required, must have value if present
	Type1C AttributeType = 2
	// Type2 - Required, may be empty
	Type2 AttributeType = 3
	// Type2C - Conditionally required, may be empty if present
	Type2C AttributeType = 4
	// Type3 - Optional
	Type3 AttributeType = 5
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Tag        tag.Tag
	Type       AttributeType
	Message    string
	IsCritical bool // Type 1 and 1C violations are critical
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Tag.Describe(), e.typeName(), e.Message)
}

func (e ValidationError) typeName() string {
	switch e.Type {
	case Type1:
		return "Type 1"
	case Type1C:
		return "Type 1C"
	case Type2:
		return "Type 2"
	case Type2C:
		return "Type 2C"
	case Type3:
		return "Type 3"
	default:
		return "Unknown"
	}
}

// ValidationResult contains all validation errors for a dataset
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationError
}

// IsValid returns true if there are no critical errors
func (r ValidationResult) IsValid() bool {
	for _, err := range r.Errors {
		if err.IsCritical {
			return false
		}
	}
	return true
}

// HasErrors returns true if there are any errors
func (r ValidationResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// HasWarnings returns true if there are any warnings
func (r ValidationResult) HasWarnings() bool {
	return len(r.Warnings) > 0
}

// IODRequirement defines a required attribute for an IOD
type IODRequirement struct {
	Tag       tag.Tag
	Type      AttributeType
	Condition func(*Dataset) bool // For Type 1C/2C, returns true if attribute is required
}

// ValidateDataset validates a dataset against a set of requirements
func ValidateDataset(ds *Dataset, requirements []IODRequirement) ValidationResult {
	result := ValidationResult{}

	for _, req := range requirements {
		elem, exists := ds.Find(req.Tag)
		required := req.Condition == nil || req.Condition(ds)

		switch req.Type {
		case Type1, Type1C:
			if !required {
				continue
			}
			if !exists {
				result.Errors = append(result.Errors, ValidationError{
					Tag: req.Tag, Type: req.Type, Message: "Required attribute missing", IsCritical: true,
				})
			} else if isEmpty(elem) {
				result.Errors = append(result.Errors, ValidationError{
					Tag: req.Tag, Type: req.Type, Message: "Required attribute is empty", IsCritical: true,
				})
			}
		case Type2, Type2C:
			if required && !exists {
				result.Warnings = append(result.Warnings, ValidationError{
					Tag: req.Tag, Type: req.Type, Message: "Required attribute missing (may be empty)",
				})
			}
		case Type3:
			// Optional
		}
	}

	return result
}

// merge appends another result, prefixing messages with the item path
func (r *ValidationResult) merge(path string, other ValidationResult) {
	for _, e := range other.Errors {
		e.Message = path + ": " + e.Message
		r.Errors = append(r.Errors, e)
	}
	for _, w := range other.Warnings {
		w.Message = path + ": " + w.Message
		r.Warnings = append(r.Warnings, w)
	}
}

// isEmpty checks if an element has no value
func isEmpty(elem *Element) bool {
	if elem == nil || elem.Value == nil {
		return true
	}
	switch v := elem.Value.(type) {
	case string:
		return v == ""
	case []byte:
		return len(v) == 0
	case []uint16:
		return len(v) == 0
	case []float64:
		return len(v) == 0
	case []int:
		return len(v) == 0
	case []*Dataset:
		return len(v) == 0
	default:
		return false
	}
}

// PatientModuleRequirements defines required attributes for Patient Module
var PatientModuleRequirements = []IODRequirement{
	{Tag: tag.PatientName, Type: Type2},
	{Tag: tag.PatientID, Type: Type2},
	{Tag: tag.PatientBirthDate, Type: Type2},
	{Tag: tag.PatientSex, Type: Type2},
}

// GeneralStudyModuleRequirements defines required attributes for General Study Module
var GeneralStudyModuleRequirements = []IODRequirement{
	{Tag: tag.StudyInstanceUID, Type: Type1},
	{Tag: tag.StudyDate, Type: Type2},
	{Tag: tag.StudyTime, Type: Type2},
	{Tag: tag.ReferringPhysicianName, Type: Type2},
	{Tag: tag.StudyID, Type: Type2},
	{Tag: tag.AccessionNumber, Type: Type2},
}

// RTSeriesModuleRequirements defines required attributes for the RT Series Module
var RTSeriesModuleRequirements = []IODRequirement{
	{Tag: tag.Modality, Type: Type1},
	{Tag: tag.SeriesInstanceUID, Type: Type1},
	{Tag: tag.SeriesNumber, Type: Type2},
	{Tag: tag.OperatorsName, Type: Type2},
}

// GeneralEquipmentModuleRequirements defines required attributes for General Equipment Module
var GeneralEquipmentModuleRequirements = []IODRequirement{
	{Tag: tag.Manufacturer, Type: Type2},
}

// StructureSetModuleRequirements defines the top level Structure Set Module attributes
var StructureSetModuleRequirements = []IODRequirement{
	{Tag: tag.StructureSetLabel, Type: Type1},
	{Tag: tag.StructureSetDate, Type: Type2},
	{Tag: tag.StructureSetTime, Type: Type2},
	{Tag: tag.StructureSetROISequence, Type: Type1},
	{Tag: tag.ReferencedFrameOfReferenceSequence, Type: Type3},
}

// ROIContourModuleRequirements defines required attributes for the ROI Contour Module
var ROIContourModuleRequirements = []IODRequirement{
	{Tag: tag.ROIContourSequence, Type: Type1},
}

// RTROIObservationsModuleRequirements defines required attributes for the RT ROI Observations Module
var RTROIObservationsModuleRequirements = []IODRequirement{
	{Tag: tag.RTROIObservationsSequence, Type: Type1},
}

// SOPCommonModuleRequirements defines required attributes for SOP Common Module
var SOPCommonModuleRequirements = []IODRequirement{
	{Tag: tag.SOPClassUID, Type: Type1},
	{Tag: tag.SOPInstanceUID, Type: Type1},
}

// ImagePlaneModuleRequirements defines required attributes for Image Plane Module
var ImagePlaneModuleRequirements = []IODRequirement{
	{Tag: tag.PixelSpacing, Type: Type1},
	{Tag: tag.ImageOrientationPatient, Type: Type1},
	{Tag: tag.ImagePositionPatient, Type: Type1},
	{Tag: tag.SliceThickness, Type: Type2},
}

// ImagePixelModuleRequirements defines required attributes for Image Pixel Module
var ImagePixelModuleRequirements = []IODRequirement{
	{Tag: tag.SamplesPerPixel, Type: Type1},
	{Tag: tag.PhotometricInterpretation, Type: Type1},
	{Tag: tag.Rows, Type: Type1},
	{Tag: tag.Columns, Type: Type1},
	{Tag: tag.BitsAllocated, Type: Type1},
	{Tag: tag.BitsStored, Type: Type1},
	{Tag: tag.HighBit, Type: Type1},
	{Tag: tag.PixelRepresentation, Type: Type1},
	{Tag: tag.PixelData, Type: Type1},
}

func concat(reqs ...[]IODRequirement) []IODRequirement {
	var all []IODRequirement
	for _, r := range reqs {
		all = append(all, r...)
	}
	return all
}

// RTStructRequirements combines all top level requirements for the RT Structure Set IOD
var RTStructRequirements = concat(
	PatientModuleRequirements,
	GeneralStudyModuleRequirements,
	RTSeriesModuleRequirements,
	GeneralEquipmentModuleRequirements,
	StructureSetModuleRequirements,
	ROIContourModuleRequirements,
	RTROIObservationsModuleRequirements,
	SOPCommonModuleRequirements,
)

// ImageRequirements covers what a series slice needs for geometry and pixel decoding
var ImageRequirements = concat(
	SOPCommonModuleRequirements,
	ImagePlaneModuleRequirements,
	ImagePixelModuleRequirements,
)

var structureSetROIItemRequirements = []IODRequirement{
	{Tag: tag.ROINumber, Type: Type1},
	{Tag: tag.ReferencedFrameOfReferenceUID, Type: Type1},
	{Tag: tag.ROIName, Type: Type2},
	{Tag: tag.ROIGenerationAlgorithm, Type: Type2},
}

var roiContourItemRequirements = []IODRequirement{
	{Tag: tag.ReferencedROINumber, Type: Type1},
	{Tag: tag.ROIDisplayColor, Type: Type3},
	{Tag: tag.ContourSequence, Type: Type3},
}

var contourItemRequirements = []IODRequirement{
	{Tag: tag.ContourGeometricType, Type: Type1},
	{Tag: tag.NumberOfContourPoints, Type: Type1},
	{Tag: tag.ContourData, Type: Type1},
}

var observationItemRequirements = []IODRequirement{
	{Tag: tag.ObservationNumber, Type: Type1},
	{Tag: tag.ReferencedROINumber, Type: Type1},
	{Tag: tag.RTROIInterpretedType, Type: Type2},
	{Tag: tag.ROIInterpreter, Type: Type2},
}

// ValidateRTStruct validates an RT Structure Set including its nested ROI items
func ValidateRTStruct(ds *Dataset) ValidationResult {
	result := ValidateDataset(ds, RTStructRequirements)

	for i, item := range GetSequenceItems(ds, tag.StructureSetROISequence) {
		result.merge(fmt.Sprintf("StructureSetROISequence[%d]", i), ValidateDataset(item, structureSetROIItemRequirements))
	}
	for i, item := range GetSequenceItems(ds, tag.RTROIObservationsSequence) {
		result.merge(fmt.Sprintf("RTROIObservationsSequence[%d]", i), ValidateDataset(item, observationItemRequirements))
	}
	for i, item := range GetSequenceItems(ds, tag.ROIContourSequence) {
		path := fmt.Sprintf("ROIContourSequence[%d]", i)
		result.merge(path, ValidateDataset(item, roiContourItemRequirements))
		for j, c := range GetSequenceItems(item, tag.ContourSequence) {
			cpath := fmt.Sprintf("%s.ContourSequence[%d]", path, j)
			result.merge(cpath, ValidateDataset(c, contourItemRequirements))
			n, _ := GetInteger(c, tag.NumberOfContourPoints)
			data, _ := GetDecimals(c, tag.ContourData)
			if len(data) != 3*n {
				result.Errors = append(result.Errors, ValidationError{
					Tag:        tag.ContourData,
					Type:       Type1,
					Message:    fmt.Sprintf("%s: %d values for %d contour points", cpath, len(data), n),
					IsCritical: true,
				})
			}
		}
	}
	return result
}

// ValidateImage validates a series slice
func ValidateImage(ds *Dataset) ValidationResult {
	return ValidateDataset(ds, ImageRequirements)
}
