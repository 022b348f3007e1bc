package dicom

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/jpfielding/rtss.go/pkg/dicom/tag"
	"github.com/jpfielding/rtss.go/pkg/dicom/transfer"
)

const undefinedLength = 0xFFFFFFFF

// Reader reads DICOM Part 10 streams
type Reader struct {
	r              io.Reader
	transferSyntax transfer.Syntax
	explicitVR     bool
}

// NewReader creates a new DICOM reader
func NewReader(r io.Reader) *Reader {
	return &Reader{
		r:          r,
		explicitVR: true,
	}
}

// Parse reads a complete DICOM file
func Parse(r io.Reader) (*Dataset, error) {
	reader := NewReader(r)
	return reader.ReadDataset()
}

// sub returns a reader over src sharing the current encoding
func (r *Reader) sub(src io.Reader) *Reader {
	return &Reader{r: src, transferSyntax: r.transferSyntax, explicitVR: r.explicitVR}
}

// ReadDataset reads the complete dataset. Files without the 128 byte preamble
// are read as bare implicit VR little endian datasets.
func (r *Reader) ReadDataset() (*Dataset, error) {
	ds := &Dataset{
		Elements: make(map[Tag]*Element),
	}

	head := make([]byte, 132)
	n, err := io.ReadFull(r.r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, fmt.Errorf("failed to read preamble: %w", err)
	}
	if n == 132 && string(head[128:]) == "DICM" {
		// Group 0002 (File Meta Information) is always explicit VR little endian
		r.explicitVR = true
	} else {
		if n < 8 {
			return nil, errors.New("invalid DICOM file: missing DICM magic")
		}
		r.r = io.MultiReader(bytes.NewReader(head[:n]), r.r)
		r.explicitVR = false
		r.transferSyntax = ImplicitVRLittleEndian
	}

	metaDone := !r.explicitVR
	for {
		t, err := r.readTag()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read tag: %w", err)
		}

		if !metaDone && !t.IsGroup0002() {
			metaDone = true
			if err := r.applyTransferSyntax(); err != nil {
				return nil, err
			}
		}

		elem, err := r.readElementWithTag(t)
		if err != nil {
			return nil, fmt.Errorf("failed to read element %v: %w", t, err)
		}
		ds.Elements[elem.Tag] = elem

		if t.Equals(tag.TransferSyntaxUID) {
			if s, ok := elem.GetString(); ok {
				r.transferSyntax = transfer.FromUID(s)
			}
		}
	}

	return ds, nil
}

// applyTransferSyntax switches the reader to the body encoding announced in the meta group
func (r *Reader) applyTransferSyntax() error {
	if r.transferSyntax == "" {
		r.transferSyntax = ImplicitVRLittleEndian
	}
	if !r.transferSyntax.IsSupported() {
		return fmt.Errorf("unsupported transfer syntax: %s", r.transferSyntax.Name())
	}
	r.explicitVR = r.transferSyntax.IsExplicitVR()
	return nil
}

// readElements reads elements into ds until EOF, or until an item delimiter when delimited is set
func (r *Reader) readElements(ds *Dataset, delimited bool) error {
	for {
		t, err := r.readTag()
		if err == io.EOF {
			if delimited {
				return io.ErrUnexpectedEOF
			}
			return nil
		}
		if err != nil {
			return err
		}
		if t.Equals(tag.ItemDelimitationItem) {
			var discard uint32
			return binary.Read(r.r, binary.LittleEndian, &discard)
		}
		elem, err := r.readElementWithTag(t)
		if err != nil {
			return fmt.Errorf("element %v: %w", t, err)
		}
		ds.Elements[elem.Tag] = elem
	}
}

// readElementWithTag reads a DICOM element after the tag has been read
func (r *Reader) readElementWithTag(t Tag) (*Element, error) {
	var vr string
	var vl uint32

	if r.explicitVR {
		vrBytes := make([]byte, 2)
		if _, err := io.ReadFull(r.r, vrBytes); err != nil {
			return nil, err
		}
		vr = string(vrBytes)

		if isLongVR(vr) {
			reserved := make([]byte, 2)
			if _, err := io.ReadFull(r.r, reserved); err != nil {
				return nil, err
			}
			if err := binary.Read(r.r, binary.LittleEndian, &vl); err != nil {
				return nil, err
			}
		} else {
			var vl16 uint16
			if err := binary.Read(r.r, binary.LittleEndian, &vl16); err != nil {
				return nil, err
			}
			vl = uint32(vl16)
		}
	} else {
		// Implicit VR: VL is always 4 bytes, VR comes from the dictionary
		if err := binary.Read(r.r, binary.LittleEndian, &vl); err != nil {
			return nil, err
		}
		vr = tag.VROf(t)
	}

	value, err := r.readValue(t, vr, vl)
	if err != nil {
		return nil, err
	}
	if vr == "UN" {
		if _, ok := value.([]*Dataset); ok {
			vr = "SQ"
		}
	}

	return &Element{
		Tag:   t,
		VR:    vr,
		Value: value,
	}, nil
}

// readTag reads a DICOM tag
func (r *Reader) readTag() (Tag, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r.r, buf[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return Tag{}, fmt.Errorf("truncated tag: %w", err)
		}
		return Tag{}, err
	}
	return Tag{
		Group:   binary.LittleEndian.Uint16(buf[0:]),
		Element: binary.LittleEndian.Uint16(buf[2:]),
	}, nil
}

// readValue reads the value based on VR and VL
func (r *Reader) readValue(t Tag, vr string, vl uint32) (interface{}, error) {
	if t.Equals(tag.PixelData) && vl == undefinedLength {
		return r.readEncapsulatedPixelData()
	}
	if vr == "SQ" {
		return r.readSequence(vl)
	}
	if vl == undefinedLength {
		// UN with undefined length carries an implicit VR little endian sequence
		implicit := &Reader{r: r.r, transferSyntax: ImplicitVRLittleEndian, explicitVR: false}
		return implicit.readSequence(vl)
	}

	data, err := r.readN(vl)
	if err != nil {
		return nil, err
	}

	return parseValue(vr, data)
}

// readSequence reads the items of a sequence with defined or undefined length
func (r *Reader) readSequence(vl uint32) ([]*Dataset, error) {
	items := []*Dataset{}
	src := r
	if vl != undefinedLength {
		data, err := r.readN(vl)
		if err != nil {
			return nil, fmt.Errorf("reading sequence: %w", err)
		}
		src = r.sub(bytes.NewReader(data))
	}

	for {
		itemTag, err := src.readTag()
		if err == io.EOF && vl != undefinedLength {
			return items, nil
		}
		if err != nil {
			return nil, fmt.Errorf("reading sequence item tag: %w", err)
		}

		var itemLen uint32
		if err := binary.Read(src.r, binary.LittleEndian, &itemLen); err != nil {
			return nil, fmt.Errorf("reading item length: %w", err)
		}

		switch {
		case itemTag.Equals(tag.SequenceDelimitationItem):
			return items, nil
		case itemTag.Equals(tag.Item):
			item, err := src.readItem(itemLen)
			if err != nil {
				return nil, fmt.Errorf("item %d: %w", len(items), err)
			}
			items = append(items, item)
		default:
			return nil, fmt.Errorf("expected item tag, got %v", itemTag)
		}
	}
}

// readItem reads one sequence item
func (r *Reader) readItem(vl uint32) (*Dataset, error) {
	item := &Dataset{Elements: make(map[Tag]*Element)}
	if vl == undefinedLength {
		return item, r.readElements(item, true)
	}
	data, err := r.readN(vl)
	if err != nil {
		return nil, err
	}
	return item, r.sub(bytes.NewReader(data)).readElements(item, false)
}

// readEncapsulatedPixelData reads encapsulated (compressed) pixel data fragments
func (r *Reader) readEncapsulatedPixelData() (*PixelData, error) {
	pd := &PixelData{
		IsEncapsulated: true,
		Frames:         []Frame{},
	}

	botTag, err := r.readTag()
	if err != nil {
		return nil, err
	}
	if !botTag.Equals(tag.Item) {
		return nil, fmt.Errorf("expected BOT item tag, got %v", botTag)
	}

	var botLength uint32
	if err := binary.Read(r.r, binary.LittleEndian, &botLength); err != nil {
		return nil, err
	}
	if botLength > 0 {
		bot, err := r.readN(botLength)
		if err != nil {
			return nil, fmt.Errorf("reading basic offset table: %w", err)
		}
		pd.Offsets = make([]uint32, len(bot)/4)
		for i := range pd.Offsets {
			pd.Offsets[i] = binary.LittleEndian.Uint32(bot[i*4:])
		}
	}

	for {
		itemTag, err := r.readTag()
		if err != nil {
			return nil, err
		}
		var itemLength uint32
		if err := binary.Read(r.r, binary.LittleEndian, &itemLength); err != nil {
			return nil, err
		}
		if itemTag.Equals(tag.SequenceDelimitationItem) {
			break
		}
		if !itemTag.Equals(tag.Item) {
			return nil, fmt.Errorf("expected item tag, got %v", itemTag)
		}

		frameData, err := r.readN(itemLength)
		if err != nil {
			return nil, err
		}
		pd.Frames = append(pd.Frames, Frame{CompressedData: frameData})
	}

	return pd, nil
}

// readN reads exactly n bytes. The buffer grows with the data actually present,
// so a corrupt length cannot force a large allocation up front.
func (r *Reader) readN(n uint32) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r.r, int64(n)))
	if err != nil {
		return nil, err
	}
	if len(data) < int(n) {
		return nil, fmt.Errorf("value length %d, only %d bytes left: %w", n, len(data), io.ErrUnexpectedEOF)
	}
	return data, nil
}

// isLongVR returns true if VR uses 4-byte VL (OB, OD, OF, OL, OW, SQ, UC, UR, UT, UN)
func isLongVR(vr string) bool {
	switch vr {
	case "OB", "OD", "OF", "OL", "OW", "SQ", "UC", "UR", "UT", "UN":
		return true
	}
	return false
}

// parseValue converts raw bytes to a typed value based on VR
func parseValue(vr string, data []byte) (interface{}, error) {
	switch vr {
	case "AE", "UI", "SH", "LO", "ST", "LT", "UT", "PN", "CS", "DA", "TM", "DT", "AS", "IS", "DS", "UC", "UR":
		s := string(data)
		for len(s) > 0 && (s[len(s)-1] == 0 || s[len(s)-1] == ' ') {
			s = s[:len(s)-1]
		}
		return s, nil
	case "US":
		if len(data) == 2 {
			return binary.LittleEndian.Uint16(data), nil
		}
		values := make([]uint16, len(data)/2)
		for i := range values {
			values[i] = binary.LittleEndian.Uint16(data[i*2:])
		}
		return values, nil
	case "UL":
		if len(data) == 4 {
			return binary.LittleEndian.Uint32(data), nil
		}
		values := make([]uint32, len(data)/4)
		for i := range values {
			values[i] = binary.LittleEndian.Uint32(data[i*4:])
		}
		return values, nil
	case "SS":
		if len(data) == 2 {
			return int16(binary.LittleEndian.Uint16(data)), nil
		}
	case "SL":
		if len(data) == 4 {
			return int32(binary.LittleEndian.Uint32(data)), nil
		}
	case "FL":
		if len(data) == 4 {
			return math.Float32frombits(binary.LittleEndian.Uint32(data)), nil
		}
		values := make([]float32, len(data)/4)
		for i := range values {
			values[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
		}
		return values, nil
	case "FD":
		if len(data) == 8 {
			return math.Float64frombits(binary.LittleEndian.Uint64(data)), nil
		}
		values := make([]float64, len(data)/8)
		for i := range values {
			values[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[i*8:]))
		}
		return values, nil
	}
	return data, nil
}
