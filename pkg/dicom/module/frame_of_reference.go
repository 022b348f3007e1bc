package module

import (
	"github.com/jpfielding/rtss.go/pkg/dicom/tag"
)

// FrameOfReferenceModule represents the Frame of Reference Module (PS3.3 C.7.4.1)
type FrameOfReferenceModule struct {
	FrameOfReferenceUID        string
	PositionReferenceIndicator string // e.g. "VERTEX", may be empty
}

func (m *FrameOfReferenceModule) ToTags() []IODElement {
	return []IODElement{
		{Tag: tag.FrameOfReferenceUID, Value: m.FrameOfReferenceUID},
		{Tag: tag.PositionReferenceIndicator, Value: m.PositionReferenceIndicator},
	}
}

// ImagePlaneModule represents the Image Plane Module (PS3.3 C.7.6.2)
type ImagePlaneModule struct {
	PixelSpacing            [2]float64 // row spacing, column spacing (mm)
	ImageOrientationPatient [6]float64 // row direction cosines then column direction cosines
	ImagePositionPatient    [3]float64 // centre of the first transmitted voxel (mm)

	SliceThickness float64
	SliceLocation  *float64
}

// NewImagePlaneModule creates an axial plane with unit spacing at the origin
func NewImagePlaneModule() *ImagePlaneModule {
	return &ImagePlaneModule{
		PixelSpacing:            [2]float64{1.0, 1.0},
		ImageOrientationPatient: [6]float64{1, 0, 0, 0, 1, 0},
		SliceThickness:          1.0,
	}
}

func (m *ImagePlaneModule) ToTags() []IODElement {
	elements := []IODElement{
		{Tag: tag.PixelSpacing, Value: m.PixelSpacing[:]},
		{Tag: tag.ImageOrientationPatient, Value: m.ImageOrientationPatient[:]},
		{Tag: tag.ImagePositionPatient, Value: m.ImagePositionPatient[:]},
	}
	if m.SliceThickness != 0 {
		elements = append(elements, IODElement{Tag: tag.SliceThickness, Value: m.SliceThickness})
	}
	if m.SliceLocation != nil {
		elements = append(elements, IODElement{Tag: tag.SliceLocation, Value: *m.SliceLocation})
	}
	return elements
}

// ImagePixelModule represents the Image Pixel Module (PS3.3 C.7.6.3) for monochrome images
type ImagePixelModule struct {
	Rows, Columns       int
	BitsAllocated       int
	PixelRepresentation int // 0 unsigned, 1 two's complement
	RescaleIntercept    float64
	RescaleSlope        float64
}

func (m *ImagePixelModule) ToTags() []IODElement {
	slope := m.RescaleSlope
	if slope == 0 {
		slope = 1
	}
	return []IODElement{
		{Tag: tag.SamplesPerPixel, Value: uint16(1)},
		{Tag: tag.PhotometricInterpretation, Value: "MONOCHROME2"},
		{Tag: tag.Rows, Value: uint16(m.Rows)},
		{Tag: tag.Columns, Value: uint16(m.Columns)},
		{Tag: tag.BitsAllocated, Value: uint16(m.BitsAllocated)},
		{Tag: tag.BitsStored, Value: uint16(m.BitsAllocated)},
		{Tag: tag.HighBit, Value: uint16(m.BitsAllocated - 1)},
		{Tag: tag.PixelRepresentation, Value: uint16(m.PixelRepresentation)},
		{Tag: tag.RescaleIntercept, Value: m.RescaleIntercept},
		{Tag: tag.RescaleSlope, Value: slope},
	}
}
