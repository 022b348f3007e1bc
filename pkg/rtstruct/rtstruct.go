// Package rtstruct models RT Structure Sets as typed records and converts them to and from DICOM datasets
package rtstruct

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/jpfielding/rtss.go/pkg/dicom"
	"github.com/jpfielding/rtss.go/pkg/dicom/module"
	"github.com/jpfielding/rtss.go/pkg/dicom/tag"
)

// ErrMissingROIStructure marks a structure set entry without a usable ROI contour counterpart
var ErrMissingROIStructure = errors.New("missing ROI structure")

// StudyComponentSOPClassUID is the SOP class referenced by RT Referenced Study items
const StudyComponentSOPClassUID = "1.2.840.10008.3.1.2.3.1"

// ClosedPlanar is the geometric type of every contour written
const ClosedPlanar = "CLOSED_PLANAR"

// Color is an RGB display color
type Color [3]int

// Hex renders the color as 0xRRGGBB
func (c Color) Hex() string {
	return fmt.Sprintf("0x%02X%02X%02X", c[0], c[1], c[2])
}

// ParseColor reads "R,G,B" or "0xRRGGBB"
func ParseColor(s string) (Color, error) {
	s = strings.TrimSpace(s)
	if hex, ok := strings.CutPrefix(strings.ToLower(s), "0x"); ok {
		v, err := strconv.ParseUint(hex, 16, 32)
		if err != nil || len(hex) != 6 {
			return Color{}, fmt.Errorf("invalid color %q", s)
		}
		return Color{int(v >> 16 & 0xFF), int(v >> 8 & 0xFF), int(v & 0xFF)}, nil
	}
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return Color{}, fmt.Errorf("invalid color %q, want R,G,B", s)
	}
	var c Color
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || v < 0 || v > 255 {
			return Color{}, fmt.Errorf("invalid color component %q", p)
		}
		c[i] = v
	}
	return c, nil
}

// ImageRef points at one image of the referenced series
type ImageRef struct {
	SOPClassUID    string
	SOPInstanceUID string
}

// Contour is one closed planar polygon in patient coordinates
type Contour struct {
	Points []r3.Vec
	Image  ImageRef
}

// Flatten returns the points as x\y\z triplets for ContourData
func (c Contour) Flatten() []float64 {
	out := make([]float64, 0, 3*len(c.Points))
	for _, p := range c.Points {
		out = append(out, p.X, p.Y, p.Z)
	}
	return out
}

// ROI is one named region and its contours
type ROI struct {
	Number          int
	Name            string
	Description     string
	Color           *Color
	Algorithm       string // ROIGenerationAlgorithm
	InterpretedType string // RTROIInterpretedType
	Contours        []Contour
}

// NumPoints counts the vertices of every contour
func (r ROI) NumPoints() int {
	n := 0
	for _, c := range r.Contours {
		n += len(c.Points)
	}
	return n
}

// ReferencedSeries identifies the image series the contours were drawn on
type ReferencedSeries struct {
	StudyInstanceUID  string
	SeriesInstanceUID string
	Images            []ImageRef
}

// StructureSet is the typed form of an RTSTRUCT object
type StructureSet struct {
	Patient   module.PatientModule
	Study     module.GeneralStudyModule
	Series    module.RTSeriesModule
	Equipment module.GeneralEquipmentModule
	Set       module.StructureSetModule
	SOP       module.SOPCommonModule
	Approval  module.ApprovalModule

	FrameOfReferenceUID string
	Referenced          ReferencedSeries
	ROIs                []ROI
}

// FromImage starts an empty structure set that takes its patient, study and frame of
// reference from an image of the series it references.
func FromImage(ref *dicom.Dataset, images []ImageRef, label string) *StructureSet {
	s := &StructureSet{
		Series:    module.NewRTSeriesModule(dicom.GenerateUID("")),
		Equipment: module.GeneralEquipmentModule{Manufacturer: dicom.ImplementationVersionName},
		Set:       module.NewStructureSetModule(label),
		SOP:       module.NewSOPCommonModule(dicom.RTStructureSetStorageUID, dicom.GenerateUID("")),
		Approval:  module.ApprovalModule{ApprovalStatus: "UNAPPROVED"},

		FrameOfReferenceUID: dicom.GetString(ref, tag.FrameOfReferenceUID),
		Referenced: ReferencedSeries{
			StudyInstanceUID:  dicom.GetString(ref, tag.StudyInstanceUID),
			SeriesInstanceUID: dicom.GetString(ref, tag.SeriesInstanceUID),
			Images:            images,
		},
	}
	s.Series.SeriesDate = s.Set.StructureSetDate
	s.Series.SeriesTime = s.Set.StructureSetTime

	s.Patient.Read(getter(ref))
	s.Study.Read(getter(ref))
	return s
}

// getter reads string values of ds for the module Read methods
func getter(ds *dicom.Dataset) module.Getter {
	return func(t tag.Tag) string { return dicom.GetString(ds, t) }
}

// AddROI appends a region numbered after the existing ones and returns its number
func (s *StructureSet) AddROI(roi ROI) int {
	roi.Number = len(s.ROIs) + 1
	if roi.Algorithm == "" {
		roi.Algorithm = "AUTOMATIC"
	}
	if roi.InterpretedType == "" {
		roi.InterpretedType = "ORGAN"
	}
	s.ROIs = append(s.ROIs, roi)
	return roi.Number
}

var nonWord = regexp.MustCompile(`\W+`)

// SanitizeName strips every character outside [A-Za-z0-9_]
func SanitizeName(name string) string {
	return nonWord.ReplaceAllString(name, "")
}
