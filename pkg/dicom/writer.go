package dicom

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/jpfielding/rtss.go/pkg/dicom/tag"
	"github.com/jpfielding/rtss.go/pkg/dicom/vr"
)

// WriteFile writes a dataset to a DICOM file
func WriteFile(path string, ds *Dataset) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	n, err := Write(f, ds)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return n, err
}

// Write writes a dataset to a writer using Explicit VR Little Endian.
// The file meta group length is recomputed and the transfer syntax is set to
// Explicit VR Little Endian unless the pixel data is encapsulated.
func Write(w io.Writer, ds *Dataset) (int64, error) {
	cw := &CountingWriter{Writer: w}

	preamble := make([]byte, 128)
	if _, err := cw.Write(preamble); err != nil {
		return cw.Count.Load(), err
	}
	if _, err := cw.Write([]byte("DICM")); err != nil {
		return cw.Count.Load(), err
	}

	meta, body := splitMeta(ds)

	var metaBuf bytes.Buffer
	if _, err := writeDataSetBody(&metaBuf, meta); err != nil {
		return cw.Count.Load(), fmt.Errorf("failed to encode file meta: %w", err)
	}
	groupLength := &Element{Tag: tag.FileMetaInformationGroupLength, VR: "UL", Value: uint32(metaBuf.Len())}
	if _, err := writeElement(cw, groupLength); err != nil {
		return cw.Count.Load(), err
	}
	if _, err := cw.Write(metaBuf.Bytes()); err != nil {
		return cw.Count.Load(), err
	}

	if _, err := writeDataSetBody(cw, body); err != nil {
		return cw.Count.Load(), err
	}
	return cw.Count.Load(), nil
}

// splitMeta separates group 0002 from the body, filling in meta defaults
func splitMeta(ds *Dataset) (*Dataset, *Dataset) {
	meta := &Dataset{Elements: map[Tag]*Element{}}
	body := &Dataset{Elements: map[Tag]*Element{}}
	for t, elem := range ds.Elements {
		switch {
		case t.Equals(tag.FileMetaInformationGroupLength):
		case t.IsGroup0002():
			meta.Elements[t] = elem
		default:
			body.Elements[t] = elem
		}
	}

	setDefault := func(t Tag, value interface{}) {
		if _, ok := meta.Elements[t]; !ok {
			meta.Elements[t] = &Element{Tag: t, VR: tag.VROf(t), Value: value}
		}
	}
	setDefault(tag.FileMetaInformationVersion, []byte{0x00, 0x01})
	if s := GetString(ds, tag.SOPClassUID); s != "" {
		setDefault(tag.MediaStorageSOPClassUID, s)
	}
	if s := GetString(ds, tag.SOPInstanceUID); s != "" {
		setDefault(tag.MediaStorageSOPInstanceUID, s)
	}
	setDefault(tag.ImplementationClassUID, ImplementationClassUID)
	setDefault(tag.ImplementationVersionName, ImplementationVersionName)

	ts := GetTransferSyntax(ds)
	if !ts.IsEncapsulated() || !hasEncapsulatedPixels(ds) {
		ts = ExplicitVRLittleEndian
	}
	meta.Elements[tag.TransferSyntaxUID] = &Element{Tag: tag.TransferSyntaxUID, VR: "UI", Value: string(ts)}
	return meta, body
}

func hasEncapsulatedPixels(ds *Dataset) bool {
	if elem, ok := ds.Find(tag.PixelData); ok {
		if pd, ok := elem.GetPixelData(); ok {
			return pd.IsEncapsulated
		}
	}
	return false
}

func writeDataSetBody(w io.Writer, ds *Dataset) (int64, error) {
	var elements []*Element
	for _, elem := range ds.Elements {
		elements = append(elements, elem)
	}
	sort.Slice(elements, func(i, j int) bool {
		return elements[i].Tag.Less(elements[j].Tag)
	})

	cw := &CountingWriter{Writer: w}
	for _, elem := range elements {
		if _, err := writeElement(cw, elem); err != nil {
			return cw.Count.Load(), fmt.Errorf("failed to write element %v: %w", elem.Tag, err)
		}
	}
	return cw.Count.Load(), nil
}

func writeElement(w io.Writer, elem *Element) (int, error) {
	cw := &CountingWriter{Writer: w}

	if err := binary.Write(cw, binary.LittleEndian, elem.Tag.Group); err != nil {
		return int(cw.Count.Load()), err
	}
	if err := binary.Write(cw, binary.LittleEndian, elem.Tag.Element); err != nil {
		return int(cw.Count.Load()), err
	}

	evr := elem.VR
	if len(evr) != 2 {
		slog.Warn("invalid VR length, defaulting to UN", "vr", evr, "tag", elem.Tag)
		evr = "UN"
	}
	if _, err := cw.Write([]byte(evr)); err != nil {
		return int(cw.Count.Load()), err
	}

	valBytes, isUndefinedLength, err := encodeValue(elem.Value, evr)
	if err != nil {
		return int(cw.Count.Load()), err
	}

	if isLongVR(evr) {
		if _, err := cw.Write([]byte{0, 0}); err != nil {
			return int(cw.Count.Load()), err
		}
		length := uint32(len(valBytes))
		if isUndefinedLength {
			length = undefinedLength
		}
		if err := binary.Write(cw, binary.LittleEndian, length); err != nil {
			return int(cw.Count.Load()), err
		}
	} else {
		if isUndefinedLength {
			return int(cw.Count.Load()), fmt.Errorf("undefined length not supported for Short VR %s", evr)
		}
		if len(valBytes) > math.MaxUint16 {
			return int(cw.Count.Load()), fmt.Errorf("value of %d bytes too long for VR %s", len(valBytes), evr)
		}
		if err := binary.Write(cw, binary.LittleEndian, uint16(len(valBytes))); err != nil {
			return int(cw.Count.Load()), err
		}
	}

	if _, err := cw.Write(valBytes); err != nil {
		return int(cw.Count.Load()), err
	}
	return int(cw.Count.Load()), nil
}

// padded applies the even-length rule with the VR's padding byte
func padded(s string, evr string) []byte {
	b := []byte(s)
	if len(b)%2 != 0 {
		b = append(b, vr.VR(evr).Padding())
	}
	return b
}

// encodeValue returns encoded bytes and a bool indicating if undefined length is used
func encodeValue(v interface{}, evr string) ([]byte, bool, error) {
	if v == nil {
		if evr == "SQ" {
			b, err := encodeSequence(nil)
			return b, true, err
		}
		return []byte{}, false, nil
	}

	if pd, ok := v.(*PixelData); ok {
		if pd.IsEncapsulated {
			b, err := encodeEncapsulatedPixelData(pd)
			return b, true, err
		}
		return encodeNativePixelData(pd, evr)
	}

	switch val := v.(type) {
	case []*Dataset:
		if evr == "SQ" {
			b, err := encodeSequence(val)
			return b, true, err
		}
		return nil, false, fmt.Errorf("unexpected []*Dataset for VR %s", evr)
	case string:
		return padded(val, evr), false, nil
	case []string:
		return padded(strings.Join(val, `\`), evr), false, nil
	case uint16:
		if evr == "IS" {
			return padded(strconv.Itoa(int(val)), evr), false, nil
		}
		b := make([]byte, 2)
		binary.LittleEndian.PutUint16(b, val)
		return b, false, nil
	case []uint16:
		b := make([]byte, len(val)*2)
		for i, u := range val {
			binary.LittleEndian.PutUint16(b[i*2:], u)
		}
		return b, false, nil
	case uint32:
		b := make([]byte, 4)
		binary.LittleEndian.PutUint32(b, val)
		return b, false, nil
	case int:
		return encodeInts([]int{val}, evr)
	case []int:
		return encodeInts(val, evr)
	case float64:
		return encodeFloats([]float64{val}, evr)
	case []float64:
		return encodeFloats(val, evr)
	case []float32:
		b := make([]byte, len(val)*4)
		for i, f := range val {
			binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(f))
		}
		return b, false, nil
	case []byte:
		if len(val)%2 != 0 {
			return append(append([]byte{}, val...), 0x00), false, nil
		}
		return val, false, nil
	}

	return nil, false, fmt.Errorf("unsupported value type %T for VR %s", v, evr)
}

func encodeInts(val []int, evr string) ([]byte, bool, error) {
	switch evr {
	case "IS":
		return padded(formatIS(val), evr), false, nil
	case "DS":
		f := make([]float64, len(val))
		for i, n := range val {
			f[i] = float64(n)
		}
		return padded(formatDS(f), evr), false, nil
	case "US", "SS":
		b := make([]byte, len(val)*2)
		for i, n := range val {
			binary.LittleEndian.PutUint16(b[i*2:], uint16(n))
		}
		return b, false, nil
	case "UL", "SL":
		b := make([]byte, len(val)*4)
		for i, n := range val {
			binary.LittleEndian.PutUint32(b[i*4:], uint32(n))
		}
		return b, false, nil
	}
	return nil, false, fmt.Errorf("int for VR %s not implemented", evr)
}

func encodeFloats(val []float64, evr string) ([]byte, bool, error) {
	switch evr {
	case "DS":
		return padded(formatDS(val), evr), false, nil
	case "FD":
		b := make([]byte, len(val)*8)
		for i, f := range val {
			binary.LittleEndian.PutUint64(b[i*8:], math.Float64bits(f))
		}
		return b, false, nil
	case "FL":
		b := make([]byte, len(val)*4)
		for i, f := range val {
			binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(float32(f)))
		}
		return b, false, nil
	}
	return nil, false, fmt.Errorf("float64 for VR %s not implemented", evr)
}

func encodeSequence(datasets []*Dataset) ([]byte, error) {
	var buf bytes.Buffer

	for _, ds := range datasets {
		// Item Tag (FFFE,E000)
		buf.Write([]byte{0xFE, 0xFF, 0x00, 0xE0})

		var dsBuf bytes.Buffer
		if _, err := writeDataSetBody(&dsBuf, ds); err != nil {
			return nil, fmt.Errorf("failed to encode sequence item: %w", err)
		}
		binary.Write(&buf, binary.LittleEndian, uint32(dsBuf.Len()))
		buf.Write(dsBuf.Bytes())
	}

	// Sequence Delimitation Item (FFFE,E0DD) with zero length
	buf.Write([]byte{0xFE, 0xFF, 0xDD, 0xE0})
	buf.Write([]byte{0x00, 0x00, 0x00, 0x00})

	return buf.Bytes(), nil
}

func encodeNativePixelData(pd *PixelData, evr string) ([]byte, bool, error) {
	var buf bytes.Buffer
	for _, frame := range pd.Frames {
		for _, pixel := range frame.Data {
			if evr == "OB" {
				buf.WriteByte(byte(pixel))
				continue
			}
			binary.Write(&buf, binary.LittleEndian, pixel)
		}
	}
	if buf.Len()%2 != 0 {
		buf.WriteByte(0)
	}
	return buf.Bytes(), false, nil
}

func encodeEncapsulatedPixelData(pd *PixelData) ([]byte, error) {
	var buf bytes.Buffer

	buf.Write([]byte{0xFE, 0xFF, 0x00, 0xE0})
	binary.Write(&buf, binary.LittleEndian, uint32(len(pd.Offsets)*4))
	for _, off := range pd.Offsets {
		binary.Write(&buf, binary.LittleEndian, off)
	}

	for _, frame := range pd.Frames {
		buf.Write([]byte{0xFE, 0xFF, 0x00, 0xE0})
		binary.Write(&buf, binary.LittleEndian, uint32(len(frame.CompressedData)))
		buf.Write(frame.CompressedData)
	}

	buf.Write([]byte{0xFE, 0xFF, 0xDD, 0xE0})
	buf.Write([]byte{0x00, 0x00, 0x00, 0x00})

	return buf.Bytes(), nil
}

// CountingWriter tracks the number of bytes written through it
type CountingWriter struct {
	Count  atomic.Int64
	Writer io.Writer
}

func (c *CountingWriter) Write(p []byte) (int, error) {
	n, err := c.Writer.Write(p)
	if err == nil {
		c.Count.Add(int64(n))
	}
	return n, err
}
