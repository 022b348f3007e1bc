package nifti

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/jpfielding/rtss.go/pkg/volume"
)

// Image is a NIfTI header and the first 3D volume of its data with scaling applied
type Image struct {
	Header *Header
	Volume *volume.Volume
	// Frames counts the 3D volumes stored in the file, only the first is loaded
	Frames int
}

// New wraps a volume in a header with the given datatype and voxel to RAS affine
func New(v *volume.Volume, affine mat.Matrix, datatype int16) *Image {
	h := &Header{
		SizeOfHdr: HeaderSize,
		Datatype:  datatype,
		BitPix:    int16(8 * bytesPer(datatype)),
		VoxOffset: VoxOffset,
		SclSlope:  1,
		XYZTUnits: byte(UnitsMM),
		Magic:     magicSingleFile,
		Regular:   'r',
	}
	h.Dim = [8]int16{3, int16(v.Width), int16(v.Height), int16(v.Depth), 1, 1, 1, 1}
	h.PixDim = [8]float32{1, 1, 1, 1, 1, 1, 1, 1}
	h.SetAffine(affine)
	return &Image{Header: h, Volume: v, Frames: 1}
}

// Affine returns the voxel to RAS transform
func (img *Image) Affine() *mat.Dense {
	return img.Header.Affine()
}

// IsGzip reports whether a path names a compressed image
func IsGzip(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), ".gz")
}

// TrimExt strips .nii or .nii.gz from a path
func TrimExt(path string) string {
	lower := strings.ToLower(path)
	for _, ext := range []string{".nii.gz", ".nii"} {
		if strings.HasSuffix(lower, ext) {
			return path[:len(path)-len(ext)]
		}
	}
	return path
}

// ReadFile loads an image, decompressing gzip content regardless of the file name
func ReadFile(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening nifti: %w", err)
	}
	defer f.Close()
	img, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}

// Read decodes an image from a stream
func Read(r io.Reader) (*Image, error) {
	br := bufio.NewReader(r)
	if magic, err := br.Peek(2); err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("opening gzip stream: %w", err)
		}
		defer zr.Close()
		r = zr
	} else {
		r = br
	}

	raw := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	h, order, err := decodeHeader(raw)
	if err != nil {
		return nil, err
	}

	offset := int64(h.VoxOffset)
	if offset < HeaderSize {
		offset = VoxOffset
	}
	if _, err := io.CopyN(io.Discard, r, offset-HeaderSize); err != nil {
		return nil, fmt.Errorf("skipping extensions: %w", err)
	}

	shape := h.Shape()
	v := volume.New(shape[0], shape[1], shape[2])
	data := make([]byte, v.Len()*bytesPer(h.Datatype))
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("reading voxels: %w", err)
	}
	if err := decodeVoxels(v.Data, data, h.Datatype, order); err != nil {
		return nil, err
	}
	if slope := h.SclSlope; slope != 0 && !(slope == 1 && h.SclInter == 0) {
		for i, val := range v.Data {
			v.Data[i] = val*slope + h.SclInter
		}
	}

	frames := 1
	for i := 4; i <= int(h.Dim[0]); i++ {
		frames *= int(h.Dim[i])
	}
	return &Image{Header: h, Volume: v, Frames: frames}, nil
}

func decodeVoxels(dst []float32, src []byte, dt int16, order binary.ByteOrder) error {
	n := bytesPer(dt)
	for i := range dst {
		b := src[i*n : (i+1)*n]
		switch dt {
		case DTUint8:
			dst[i] = float32(b[0])
		case DTInt8:
			dst[i] = float32(int8(b[0]))
		case DTInt16:
			dst[i] = float32(int16(order.Uint16(b)))
		case DTUint16:
			dst[i] = float32(order.Uint16(b))
		case DTInt32:
			dst[i] = float32(int32(order.Uint32(b)))
		case DTUint32:
			dst[i] = float32(order.Uint32(b))
		case DTFloat32:
			dst[i] = math.Float32frombits(order.Uint32(b))
		case DTFloat64:
			dst[i] = float32(math.Float64frombits(order.Uint64(b)))
		default:
			return fmt.Errorf("unsupported datatype %d", dt)
		}
	}
	return nil
}

// WriteFile stores the image little endian, gzip compressed when the path ends in .gz
func WriteFile(path string, img *Image) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating nifti: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	var w io.Writer = f
	if IsGzip(path) {
		zw := gzip.NewWriter(f)
		defer func() {
			if cerr := zw.Close(); err == nil {
				err = cerr
			}
		}()
		w = zw
	}
	return Write(w, img)
}

// Write encodes the image little endian with no extensions. Values are stored
// unscaled after inverting the header slope and intercept.
func Write(w io.Writer, img *Image) error {
	h := *img.Header
	h.SizeOfHdr = HeaderSize
	h.VoxOffset = VoxOffset
	h.Magic = magicSingleFile
	h.BitPix = int16(8 * bytesPer(h.Datatype))
	h.Dim = [8]int16{3, int16(img.Volume.Width), int16(img.Volume.Height), int16(img.Volume.Depth), 1, 1, 1, 1}
	if h.SclSlope == 0 {
		h.SclSlope = 1
	}
	if h.BitPix == 0 {
		return fmt.Errorf("unsupported datatype %d", h.Datatype)
	}

	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, &h); err != nil {
		return fmt.Errorf("encoding header: %w", err)
	}
	buf.Write([]byte{0, 0, 0, 0})
	if _, err := w.Write(buf.Bytes()); err != nil {
		return err
	}

	n := bytesPer(h.Datatype)
	out := make([]byte, len(img.Volume.Data)*n)
	for i, val := range img.Volume.Data {
		stored := float64((val - h.SclInter) / h.SclSlope)
		if err := encodeVoxel(out[i*n:(i+1)*n], stored, h.Datatype); err != nil {
			return err
		}
	}
	_, err := w.Write(out)
	return err
}

// ErrValueRange is returned when a voxel does not fit the chosen datatype
var ErrValueRange = errors.New("value out of datatype range")

func encodeVoxel(b []byte, v float64, dt int16) error {
	le := binary.LittleEndian
	integer := func(lo, hi float64) (int64, error) {
		r := math.Round(v)
		if r < lo || r > hi {
			return 0, fmt.Errorf("%g: %w", v, ErrValueRange)
		}
		return int64(r), nil
	}
	switch dt {
	case DTUint8:
		i, err := integer(0, math.MaxUint8)
		b[0] = byte(i)
		return err
	case DTInt8:
		i, err := integer(math.MinInt8, math.MaxInt8)
		b[0] = byte(int8(i))
		return err
	case DTInt16:
		i, err := integer(math.MinInt16, math.MaxInt16)
		le.PutUint16(b, uint16(int16(i)))
		return err
	case DTUint16:
		i, err := integer(0, math.MaxUint16)
		le.PutUint16(b, uint16(i))
		return err
	case DTInt32:
		i, err := integer(math.MinInt32, math.MaxInt32)
		le.PutUint32(b, uint32(int32(i)))
		return err
	case DTUint32:
		i, err := integer(0, math.MaxUint32)
		le.PutUint32(b, uint32(i))
		return err
	case DTFloat32:
		le.PutUint32(b, math.Float32bits(float32(v)))
	case DTFloat64:
		le.PutUint64(b, math.Float64bits(v))
	default:
		return fmt.Errorf("unsupported datatype %d", dt)
	}
	return nil
}
