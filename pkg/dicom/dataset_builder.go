package dicom

import (
	"fmt"

	"github.com/jpfielding/rtss.go/pkg/dicom/module"
	"github.com/jpfielding/rtss.go/pkg/dicom/tag"
)

// Option configures a Dataset during construction
type Option func(*Dataset) error

// NewDataset creates a Dataset with the given options
func NewDataset(opts ...Option) (*Dataset, error) {
	ds := &Dataset{Elements: make(map[Tag]*Element)}
	for _, opt := range opts {
		if err := opt(ds); err != nil {
			return nil, err
		}
	}
	return ds, nil
}

// WithElement adds a single element to the dataset using the dictionary VR
func WithElement(t tag.Tag, value interface{}) Option {
	return WithElementVR(t, GetVR(t), value)
}

// WithElementVR adds a single element with an explicit VR
func WithElementVR(t tag.Tag, vr string, value interface{}) Option {
	return func(ds *Dataset) error {
		if len(vr) != 2 {
			return fmt.Errorf("invalid VR %q for %v", vr, t)
		}
		ds.Elements[t] = &Element{
			Tag:   t,
			VR:    vr,
			Value: value,
		}
		return nil
	}
}

// WithSequence adds a sequence element to the dataset
func WithSequence(t tag.Tag, items ...*Dataset) Option {
	return func(ds *Dataset) error {
		if items == nil {
			items = []*Dataset{}
		}
		ds.Elements[t] = &Element{
			Tag:   t,
			VR:    "SQ",
			Value: items,
		}
		return nil
	}
}

// WithFileMeta adds standard file meta information elements
func WithFileMeta(sopClassUID, sopInstanceUID string, transferSyntax TransferSyntax) Option {
	return func(ds *Dataset) error {
		opts := []Option{
			WithElement(tag.FileMetaInformationVersion, []byte{0x00, 0x01}),
			WithElement(tag.MediaStorageSOPClassUID, sopClassUID),
			WithElement(tag.MediaStorageSOPInstanceUID, sopInstanceUID),
			WithElement(tag.TransferSyntaxUID, string(transferSyntax)),
			WithElement(tag.ImplementationClassUID, ImplementationClassUID),
			WithElement(tag.ImplementationVersionName, ImplementationVersionName),
		}
		for _, opt := range opts {
			if err := opt(ds); err != nil {
				return err
			}
		}
		return nil
	}
}

// WithModule adds all elements from a module's ToTags() result
func WithModule(m module.IODModule) Option {
	return func(ds *Dataset) error {
		for _, el := range m.ToTags() {
			if err := WithElement(el.Tag, el.Value)(ds); err != nil {
				return err
			}
		}
		return nil
	}
}

// WithPixelData adds native pixel data split into frames of rows*cols pixels
func WithPixelData(rows, cols, bitsAllocated int, data []uint16) Option {
	return func(ds *Dataset) error {
		if len(data) == 0 {
			return nil
		}
		pixelsPerFrame := rows * cols
		if pixelsPerFrame == 0 || len(data)%pixelsPerFrame != 0 {
			return fmt.Errorf("pixel data of %d values does not divide into %dx%d frames", len(data), rows, cols)
		}
		numFrames := len(data) / pixelsPerFrame

		pd := &PixelData{Frames: make([]Frame, numFrames)}
		for i := 0; i < numFrames; i++ {
			start := i * pixelsPerFrame
			fData := make([]uint16, pixelsPerFrame)
			copy(fData, data[start:start+pixelsPerFrame])
			pd.Frames[i] = Frame{Data: fData}
		}

		vr := "OB"
		if bitsAllocated > 8 {
			vr = "OW"
		}
		ds.Elements[tag.PixelData] = &Element{
			Tag:   tag.PixelData,
			VR:    vr,
			Value: pd,
		}
		return nil
	}
}

// GetVR returns the Value Representation (VR) for a standard tag
func GetVR(t tag.Tag) string {
	return tag.VROf(t)
}
