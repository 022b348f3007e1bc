// Package dicom provides a native Go implementation for reading and writing the DICOM
// objects involved in radiotherapy contouring: image series (CT, MR, PET) and
// RT Structure Sets.
//
// It provides:
//   - Part 10 parsing (explicit and implicit VR little endian, nested sequences)
//   - Part 10 writing (explicit VR little endian)
//   - functional-option dataset construction and sequence builders
//   - IOD requirement validation
//
// Basic usage:
//
//	ds, err := dicom.ReadFile("/path/to/rtss.dcm")
//	if err != nil {
//		log.Fatal(err)
//	}
//	if dicom.IsRTStruct(ds) {
//		rois := dicom.GetSequenceItems(ds, tag.StructureSetROISequence)
//		...
//	}
package dicom

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/jpfielding/rtss.go/pkg/dicom/tag"
	"github.com/jpfielding/rtss.go/pkg/dicom/transfer"
)

// Re-export commonly used types from subpackages
type (
	// TransferSyntax represents a DICOM transfer syntax
	TransferSyntax = transfer.Syntax
)

// Transfer syntax constants
const (
	ExplicitVRLittleEndian = transfer.ExplicitVRLittleEndian
	ImplicitVRLittleEndian = transfer.ImplicitVRLittleEndian
)

// SOP Class UIDs
const (
	CTImageStorageUID         = "1.2.840.10008.5.1.4.1.1.2"
	EnhancedCTImageStorageUID = "1.2.840.10008.5.1.4.1.1.2.1"
	MRImageStorageUID         = "1.2.840.10008.5.1.4.1.1.4"
	PETImageStorageUID        = "1.2.840.10008.5.1.4.1.1.128"
	RTStructureSetStorageUID  = "1.2.840.10008.5.1.4.1.1.481.3"
)

// ReadFile reads a DICOM file from disk
func ReadFile(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}

	return Parse(bytes.NewReader(data))
}

// ReadBuffer reads a DICOM file from a byte slice
func ReadBuffer(data []byte) (*Dataset, error) {
	return Parse(bytes.NewReader(data))
}

// GetExtension returns the standard DICOM file extension
func GetExtension() string {
	return ".dcm"
}

// IsRTStruct returns true if the dataset is an RT Structure Set
func IsRTStruct(ds *Dataset) bool {
	return checkSOPClass(ds, RTStructureSetStorageUID) || GetModality(ds) == "RTSTRUCT"
}

// IsImage returns true if the dataset is a cross-sectional image a mask can be drawn on
func IsImage(ds *Dataset) bool {
	if checkSOPClass(ds, CTImageStorageUID, EnhancedCTImageStorageUID, MRImageStorageUID, PETImageStorageUID) {
		return true
	}
	return HasElement(ds, tag.PixelData) && HasElement(ds, tag.ImagePositionPatient)
}

// GetModality returns the modality string from the dataset
func GetModality(ds *Dataset) string {
	return GetString(ds, tag.Modality)
}

// GetString returns the trimmed string value of a tag, or "" when absent
func GetString(ds *Dataset, t Tag) string {
	if elem, ok := ds.Find(t); ok {
		if s, ok := elem.GetString(); ok {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// GetDecimals returns the numeric values of a DS/FD/FL element
func GetDecimals(ds *Dataset, t Tag) ([]float64, bool) {
	if elem, ok := ds.Find(t); ok {
		if f, ok := elem.GetFloats(); ok && len(f) > 0 {
			return f, true
		}
	}
	return nil, false
}

// GetIntegers returns the numeric values of an IS/US/UL element
func GetIntegers(ds *Dataset, t Tag) ([]int, bool) {
	if elem, ok := ds.Find(t); ok {
		if v, ok := elem.GetInts(); ok && len(v) > 0 {
			return v, true
		}
	}
	return nil, false
}

// GetInteger returns the first value of an integer element
func GetInteger(ds *Dataset, t Tag) (int, bool) {
	if elem, ok := ds.Find(t); ok {
		return elem.GetInt()
	}
	return 0, false
}

// GetTransferSyntax returns the transfer syntax from the dataset
func GetTransferSyntax(ds *Dataset) TransferSyntax {
	if s := GetString(ds, tag.TransferSyntaxUID); s != "" {
		return transfer.FromUID(s)
	}
	return ExplicitVRLittleEndian
}

// IsEncapsulated returns true if the pixel data is encapsulated (compressed)
func IsEncapsulated(ds *Dataset) bool {
	return GetTransferSyntax(ds).IsEncapsulated()
}

// GetRows returns the number of rows in the image
func GetRows(ds *Dataset) int {
	v, _ := GetInteger(ds, tag.Rows)
	return v
}

// GetColumns returns the number of columns in the image
func GetColumns(ds *Dataset) int {
	v, _ := GetInteger(ds, tag.Columns)
	return v
}

// GetNumberOfFrames returns the number of frames in the image
func GetNumberOfFrames(ds *Dataset) int {
	if v, ok := GetInteger(ds, tag.NumberOfFrames); ok && v > 0 {
		return v
	}
	return 1
}

// GetBitsAllocated returns the bits allocated per sample
func GetBitsAllocated(ds *Dataset) int {
	if v, ok := GetInteger(ds, tag.BitsAllocated); ok {
		return v
	}
	return 16
}

// GetPixelRepresentation returns 0 for unsigned, 1 for signed
func GetPixelRepresentation(ds *Dataset) int {
	v, _ := GetInteger(ds, tag.PixelRepresentation)
	return v
}

// GetInstanceNumber returns the instance number (0020,0013)
func GetInstanceNumber(ds *Dataset) int {
	v, _ := GetInteger(ds, tag.InstanceNumber)
	return v
}

// GetSeriesDescription returns the series description (0008,103E)
func GetSeriesDescription(ds *Dataset) string {
	return GetString(ds, tag.SeriesDescription)
}

// GetPixelData extracts and returns pixel data from the dataset
func (ds *Dataset) GetPixelData() (*PixelData, error) {
	elem, ok := ds.Find(tag.PixelData)
	if !ok {
		return nil, fmt.Errorf("no pixel data element found")
	}

	if pd, ok := elem.GetPixelData(); ok {
		if pd.IsEncapsulated {
			return nil, fmt.Errorf("encapsulated pixel data (%s) is not supported", GetTransferSyntax(ds).Name())
		}
		return pd, nil
	}

	var u16Raw []uint16
	var byteRaw []byte

	switch v := elem.Value.(type) {
	case []byte:
		byteRaw = v
	case []uint16:
		u16Raw = v
	case uint16:
		u16Raw = []uint16{v}
	default:
		return nil, fmt.Errorf("pixel data element has unexpected type: %T", elem.Value)
	}

	rows := GetRows(ds)
	cols := GetColumns(ds)
	numFrames := GetNumberOfFrames(ds)
	bitsAllocated := GetBitsAllocated(ds)

	slog.Debug("converting native pixel data",
		slog.Int("rows", rows),
		slog.Int("cols", cols),
		slog.Int("numFrames", numFrames),
		slog.Int("bitsAllocated", bitsAllocated))

	if rows == 0 || cols == 0 {
		return nil, fmt.Errorf("invalid dimensions for pixel data conversion: %dx%d", rows, cols)
	}
	if bitsAllocated != 8 && bitsAllocated != 16 {
		return nil, fmt.Errorf("unsupported bits allocated: %d", bitsAllocated)
	}

	pd := &PixelData{
		IsEncapsulated: false,
		Frames:         make([]Frame, numFrames),
	}

	bytesPerPixel := bitsAllocated / 8
	pixelsPerFrame := rows * cols
	frameSizeInBytes := pixelsPerFrame * bytesPerPixel

	for i := 0; i < numFrames; i++ {
		u16Data := make([]uint16, pixelsPerFrame)

		if u16Raw != nil {
			start := i * pixelsPerFrame
			end := start + pixelsPerFrame
			if end > len(u16Raw) {
				return nil, fmt.Errorf("pixel data truncated: expected %d pixels for %d frames, got %d", numFrames*pixelsPerFrame, numFrames, len(u16Raw))
			}
			copy(u16Data, u16Raw[start:end])
		} else {
			start := i * frameSizeInBytes
			end := start + frameSizeInBytes
			if end > len(byteRaw) {
				return nil, fmt.Errorf("pixel data truncated: expected %d bytes for %d frames, got %d", numFrames*frameSizeInBytes, numFrames, len(byteRaw))
			}
			frameData := byteRaw[start:end]
			if bytesPerPixel == 2 {
				for j := 0; j < pixelsPerFrame; j++ {
					u16Data[j] = uint16(frameData[j*2]) | (uint16(frameData[j*2+1]) << 8)
				}
			} else {
				for j := 0; j < pixelsPerFrame; j++ {
					u16Data[j] = uint16(frameData[j])
				}
			}
		}

		pd.Frames[i] = Frame{Data: u16Data}
	}

	return pd, nil
}

// GetRescale returns the rescale intercept and slope from the dataset.
// Missing values default to 0 and 1.
func GetRescale(ds *Dataset) (intercept, slope float64) {
	intercept, slope = 0, 1
	if v, ok := GetDecimals(ds, tag.RescaleIntercept); ok {
		intercept = v[0]
	}
	if v, ok := GetDecimals(ds, tag.RescaleSlope); ok && v[0] != 0 {
		slope = v[0]
	}
	return
}

// Helper function to check SOP Class UID
func checkSOPClass(ds *Dataset, uids ...string) bool {
	s := GetString(ds, tag.SOPClassUID)
	if s == "" {
		return false
	}
	for _, uid := range uids {
		if s == uid {
			return true
		}
	}
	return false
}
