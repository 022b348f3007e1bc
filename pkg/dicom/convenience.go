package dicom

import (
	"fmt"

	"github.com/jpfielding/rtss.go/pkg/dicom/tag"
)

// QuickValidate performs basic structural validation of a DICOM dataset.
//
// This is a lightweight check for common issues, not a full compliance check.
// For IOD level validation use ValidateRTStruct or ValidateImage.
func QuickValidate(ds *Dataset) []error {
	var errs []error

	if !HasElement(ds, tag.SOPClassUID) {
		errs = append(errs, fmt.Errorf("missing required element: SOP Class UID (0008,0016)"))
	}
	if !HasElement(ds, tag.SOPInstanceUID) {
		errs = append(errs, fmt.Errorf("missing required element: SOP Instance UID (0008,0018)"))
	}

	if pixelElem, ok := ds.Find(tag.PixelData); ok && pixelElem.Value != nil {
		if GetRows(ds) == 0 {
			errs = append(errs, fmt.Errorf("pixel data present but Rows (0028,0010) is missing or zero"))
		}
		if GetColumns(ds) == 0 {
			errs = append(errs, fmt.Errorf("pixel data present but Columns (0028,0011) is missing or zero"))
		}
	}

	return errs
}

// AddSequenceItem appends a dataset item to an existing sequence element,
// creating the sequence when it doesn't exist.
func AddSequenceItem(ds *Dataset, t Tag, item *Dataset) error {
	if item == nil {
		return fmt.Errorf("cannot add nil dataset to sequence")
	}

	elem, exists := ds.Find(t)
	if !exists {
		ds.Elements[t] = &Element{
			Tag:   t,
			VR:    "SQ",
			Value: []*Dataset{item},
		}
		return nil
	}

	seq, ok := elem.Value.([]*Dataset)
	if !ok {
		return fmt.Errorf("element %v exists but is not a sequence (VR=%s)", t, elem.VR)
	}
	elem.Value = append(seq, item)
	return nil
}

// GetSequenceItems returns all items from a sequence element.
// Returns nil if the element doesn't exist or isn't a sequence.
//
//	for _, roi := range dicom.GetSequenceItems(ds, tag.StructureSetROISequence) {
//		fmt.Println(dicom.GetString(roi, tag.ROIName))
//	}
func GetSequenceItems(ds *Dataset, t Tag) []*Dataset {
	elem, ok := ds.Find(t)
	if !ok {
		return nil
	}
	seq, _ := elem.GetSequence()
	return seq
}

// HasElement returns true if the dataset contains the specified element
func HasElement(ds *Dataset, t Tag) bool {
	_, ok := ds.Find(t)
	return ok
}

// DeleteElement removes an element from the dataset
func DeleteElement(ds *Dataset, t Tag) {
	delete(ds.Elements, t)
}

// CloneDataset creates a deep copy of a dataset.
// Pixel data is shared between the copies.
func CloneDataset(ds *Dataset) *Dataset {
	clone := &Dataset{
		Elements: make(map[Tag]*Element, len(ds.Elements)),
	}

	for t, elem := range ds.Elements {
		clonedElem := &Element{
			Tag: elem.Tag,
			VR:  elem.VR,
		}
		switch v := elem.Value.(type) {
		case []byte:
			copied := make([]byte, len(v))
			copy(copied, v)
			clonedElem.Value = copied
		case []float64:
			copied := make([]float64, len(v))
			copy(copied, v)
			clonedElem.Value = copied
		case []*Dataset:
			clonedSeq := make([]*Dataset, len(v))
			for i, item := range v {
				clonedSeq[i] = CloneDataset(item)
			}
			clonedElem.Value = clonedSeq
		default:
			clonedElem.Value = v
		}
		clone.Elements[t] = clonedElem
	}

	return clone
}
