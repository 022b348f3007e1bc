package dicom

import (
	"encoding/binary"
	"strconv"
	"strings"

	"github.com/jpfielding/rtss.go/pkg/dicom/tag"
	"github.com/jpfielding/rtss.go/pkg/dicom/vr"
)

// Dataset represents a complete DICOM dataset or a sequence item
type Dataset struct {
	Elements map[Tag]*Element
}

// Element represents a single DICOM element
type Element struct {
	Tag   Tag
	VR    string      // Value Representation
	Value interface{} // Parsed value, []*Dataset for sequences
}

// Tag alias to avoid duplication
type Tag = tag.Tag

// PixelData represents pixel data (native or encapsulated)
type PixelData struct {
	IsEncapsulated bool
	Frames         []Frame
	Offsets        []uint32 // Basic Offset Table for encapsulated data
}

// Frame represents a single frame of pixel data
type Frame struct {
	// For native (uncompressed) data
	Data []uint16

	// For encapsulated (compressed) data
	CompressedData []byte
}

// GetFlatData returns all pixel data flattened into a single slice.
// Only valid for native pixel data.
func (pd *PixelData) GetFlatData() []uint16 {
	if pd.IsEncapsulated {
		return nil
	}
	var totalPixels int
	for _, f := range pd.Frames {
		totalPixels += len(f.Data)
	}
	res := make([]uint16, totalPixels)
	offset := 0
	for _, f := range pd.Frames {
		copy(res[offset:], f.Data)
		offset += len(f.Data)
	}
	return res
}

// FindElement returns an element by tag
func (ds *Dataset) FindElement(group, element uint16) (*Element, bool) {
	if ds == nil {
		return nil, false
	}
	elem, ok := ds.Elements[Tag{Group: group, Element: element}]
	return elem, ok
}

// Find returns an element by tag
func (ds *Dataset) Find(t Tag) (*Element, bool) {
	return ds.FindElement(t.Group, t.Element)
}

// GetString returns a string value from an element
func (elem *Element) GetString() (string, bool) {
	switch v := elem.Value.(type) {
	case string:
		return v, true
	case []string:
		return strings.Join(v, `\`), true
	}
	return "", false
}

// number covers the binary value types the reader produces
type number interface {
	~int | ~int16 | ~int32 | ~uint16 | ~uint32 | ~float32 | ~float64
}

func widen[U, T number](v []T) []U {
	out := make([]U, len(v))
	for i, x := range v {
		out[i] = U(x)
	}
	return out
}

// GetInt returns the first integer of an element
func (elem *Element) GetInt() (int, bool) {
	ints, ok := elem.GetInts()
	if !ok || len(ints) == 0 {
		return 0, false
	}
	return ints[0], true
}

// GetInts returns the integers of an IS, US, UL, SS or SL element
func (elem *Element) GetInts() ([]int, bool) {
	switch v := elem.Value.(type) {
	case []int:
		return v, true
	case []uint16:
		return widen[int](v), true
	case []uint32:
		return widen[int](v), true
	case []int16:
		return widen[int](v), true
	case []int32:
		return widen[int](v), true
	case int:
		return []int{v}, true
	case uint16:
		return []int{int(v)}, true
	case uint32:
		return []int{int(v)}, true
	case int16:
		return []int{int(v)}, true
	case int32:
		return []int{int(v)}, true
	case string:
		ints, err := vr.ParseIS(v)
		return ints, err == nil
	case []byte:
		// untyped values from implicit VR private tags
		switch len(v) {
		case 2:
			return []int{int(binary.LittleEndian.Uint16(v))}, true
		case 4:
			return []int{int(binary.LittleEndian.Uint32(v))}, true
		}
	}
	return nil, false
}

// GetFloats returns the decimals of a DS, FD or FL element, integers are widened
func (elem *Element) GetFloats() ([]float64, bool) {
	switch v := elem.Value.(type) {
	case []float64:
		return v, true
	case []float32:
		return widen[float64](v), true
	case float64:
		return []float64{v}, true
	case float32:
		return []float64{float64(v)}, true
	case string:
		f, err := vr.ParseDS(v)
		return f, err == nil
	}
	if ints, ok := elem.GetInts(); ok {
		return widen[float64](ints), true
	}
	return nil, false
}

// GetSequence returns the items of a sequence element
func (elem *Element) GetSequence() ([]*Dataset, bool) {
	if seq, ok := elem.Value.([]*Dataset); ok {
		return seq, true
	}
	return nil, false
}

// GetPixelData returns pixel data from an element
func (elem *Element) GetPixelData() (*PixelData, bool) {
	if pd, ok := elem.Value.(*PixelData); ok {
		return pd, true
	}
	return nil, false
}

// formatIS renders integers for IS elements
func formatIS(v []int) string {
	parts := make([]string, len(v))
	for i, n := range v {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, `\`)
}

// formatDS renders decimals for DS elements
func formatDS(v []float64) string {
	parts := make([]string, len(v))
	for i, f := range v {
		parts[i] = vr.FormatDS(f)
	}
	return strings.Join(parts, `\`)
}
