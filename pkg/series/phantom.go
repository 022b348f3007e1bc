package series

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jpfielding/rtss.go/pkg/dicom"
	"github.com/jpfielding/rtss.go/pkg/dicom/module"
	"github.com/jpfielding/rtss.go/pkg/dicom/tag"
)

// Phantom describes a synthetic axial CT series
type Phantom struct {
	Rows, Columns, Slices int
	PixelSpacing          [2]float64 // row, column
	SliceSpacing          float64
	Origin                [3]float64

	PatientID           string
	StudyInstanceUID    string
	SeriesInstanceUID   string
	FrameOfReferenceUID string

	// Value returns the stored pixel value of a voxel, nil leaves the series empty
	Value func(x, y, z int) uint16
}

// NewPhantom returns a unit spaced phantom with fresh UIDs
func NewPhantom(rows, cols, slices int) Phantom {
	return Phantom{
		Rows:                rows,
		Columns:             cols,
		Slices:              slices,
		PixelSpacing:        [2]float64{1, 1},
		SliceSpacing:        1,
		PatientID:           "PHANTOM",
		StudyInstanceUID:    dicom.GenerateUID(""),
		SeriesInstanceUID:   dicom.GenerateUID(""),
		FrameOfReferenceUID: dicom.GenerateUID(""),
	}
}

// Datasets renders one CT image dataset per slice, ordered by position
func (p Phantom) Datasets() ([]*dicom.Dataset, error) {
	out := make([]*dicom.Dataset, 0, p.Slices)
	patient := module.PatientModule{PatientName: module.PersonName{FamilyName: "Phantom"}, PatientID: p.PatientID}
	study := module.NewGeneralStudyModule()
	study.StudyInstanceUID = p.StudyInstanceUID
	frame := module.FrameOfReferenceModule{FrameOfReferenceUID: p.FrameOfReferenceUID}

	for z := 0; z < p.Slices; z++ {
		plane := module.NewImagePlaneModule()
		plane.PixelSpacing = p.PixelSpacing
		plane.SliceThickness = p.SliceSpacing
		plane.ImagePositionPatient = [3]float64{p.Origin[0], p.Origin[1], p.Origin[2] + float64(z)*p.SliceSpacing}
		loc := plane.ImagePositionPatient[2]
		plane.SliceLocation = &loc

		pixel := module.ImagePixelModule{Rows: p.Rows, Columns: p.Columns, BitsAllocated: 16, RescaleSlope: 1}
		sop := module.NewSOPCommonModule(dicom.CTImageStorageUID, dicom.GenerateUID(""))

		data := make([]uint16, p.Rows*p.Columns)
		if p.Value != nil {
			for y := 0; y < p.Rows; y++ {
				for x := 0; x < p.Columns; x++ {
					data[x+y*p.Columns] = p.Value(x, y, z)
				}
			}
		}

		ds, err := dicom.NewDataset(
			dicom.WithModule(&patient),
			dicom.WithModule(&study),
			dicom.WithElement(tag.Modality, "CT"),
			dicom.WithElement(tag.SeriesInstanceUID, p.SeriesInstanceUID),
			dicom.WithElement(tag.SeriesNumber, 1),
			dicom.WithElement(tag.InstanceNumber, z+1),
			dicom.WithModule(&frame),
			dicom.WithModule(plane),
			dicom.WithModule(&pixel),
			dicom.WithModule(&sop),
			dicom.WithPixelData(p.Rows, p.Columns, 16, data),
		)
		if err != nil {
			return nil, fmt.Errorf("slice %d: %w", z, err)
		}
		out = append(out, ds)
	}
	return out, nil
}

// WriteDir writes the phantom as one file per slice, named in reverse order so
// readers cannot rely on directory order.
func (p Phantom) WriteDir(dir string) ([]string, error) {
	datasets, err := p.Datasets()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	paths := make([]string, len(datasets))
	for i, ds := range datasets {
		paths[i] = filepath.Join(dir, fmt.Sprintf("CT%04d%s", len(datasets)-i, dicom.GetExtension()))
		if _, err := dicom.WriteFile(paths[i], ds); err != nil {
			return nil, err
		}
	}
	return paths, nil
}
