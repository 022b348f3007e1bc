// Package nifti reads and writes single file NIfTI-1 images (.nii and .nii.gz)
package nifti

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// HeaderSize is the fixed size of a NIfTI-1 header, data follows the 4 byte extension flag
const (
	HeaderSize = 348
	VoxOffset  = 352
)

// Datatype codes
const (
	DTUint8   int16 = 2
	DTInt16   int16 = 4
	DTInt32   int16 = 8
	DTFloat32 int16 = 16
	DTFloat64 int16 = 64
	DTInt8    int16 = 256
	DTUint16  int16 = 512
	DTUint32  int16 = 768
)

// Transform codes
const (
	XformUnknown   int16 = 0
	XformScanner   int16 = 1
	XformAligned   int16 = 2
	XformTalairach int16 = 3
	XformMNI152    int16 = 4
)

// UnitsMM marks spatial units in millimetres
const UnitsMM int8 = 2

var magicSingleFile = [4]byte{'n', '+', '1', 0}

// Header is the on-disk NIfTI-1 header. Field order and sizes follow nifti1.h exactly.
type Header struct {
	SizeOfHdr    int32
	DataTypeName [10]byte
	DbName       [18]byte
	Extents      int32
	SessionError int16
	Regular      byte
	DimInfo      byte

	Dim        [8]int16
	IntentP1   float32
	IntentP2   float32
	IntentP3   float32
	IntentCode int16
	Datatype   int16
	BitPix     int16
	SliceStart int16
	PixDim     [8]float32
	VoxOffset  float32
	SclSlope   float32
	SclInter   float32
	SliceEnd   int16
	SliceCode  byte
	XYZTUnits  byte
	CalMax     float32
	CalMin     float32
	SliceDur   float32
	TOffset    float32
	GLMax      int32
	GLMin      int32

	Descrip [80]byte
	AuxFile [24]byte

	QFormCode int16
	SFormCode int16

	QuaternB float32
	QuaternC float32
	QuaternD float32
	QOffsetX float32
	QOffsetY float32
	QOffsetZ float32

	SRowX [4]float32
	SRowY [4]float32
	SRowZ [4]float32

	IntentName [16]byte
	Magic      [4]byte
}

// decodeHeader reads a header detecting the byte order from sizeof_hdr
func decodeHeader(b []byte) (*Header, binary.ByteOrder, error) {
	if len(b) < HeaderSize {
		return nil, nil, fmt.Errorf("header truncated at %d bytes", len(b))
	}
	var order binary.ByteOrder
	switch {
	case binary.LittleEndian.Uint32(b) == HeaderSize:
		order = binary.LittleEndian
	case binary.BigEndian.Uint32(b) == HeaderSize:
		order = binary.BigEndian
	default:
		return nil, nil, fmt.Errorf("not a NIfTI-1 header: sizeof_hdr=%d", binary.LittleEndian.Uint32(b))
	}
	h := &Header{}
	if err := binary.Read(bytes.NewReader(b[:HeaderSize]), order, h); err != nil {
		return nil, nil, fmt.Errorf("decoding header: %w", err)
	}
	if err := h.validate(); err != nil {
		return nil, nil, err
	}
	return h, order, nil
}

func (h *Header) validate() error {
	if h.Magic != magicSingleFile {
		return fmt.Errorf("unsupported magic %q, only single file n+1 images are read", strings.TrimRight(string(h.Magic[:]), "\x00"))
	}
	if h.Dim[0] < 1 || h.Dim[0] > 7 {
		return fmt.Errorf("invalid dim[0]=%d", h.Dim[0])
	}
	for i := 1; i <= int(h.Dim[0]); i++ {
		if h.Dim[i] < 1 {
			return fmt.Errorf("invalid dim[%d]=%d", i, h.Dim[i])
		}
	}
	if bytesPer(h.Datatype) == 0 {
		return fmt.Errorf("unsupported datatype %d", h.Datatype)
	}
	return nil
}

// Shape returns the first three dimensions, 1 when absent
func (h *Header) Shape() [3]int {
	s := [3]int{1, 1, 1}
	for i := 0; i < 3 && i < int(h.Dim[0]); i++ {
		s[i] = int(h.Dim[i+1])
	}
	return s
}

// Description returns the descrip field as a string
func (h *Header) Description() string {
	return strings.TrimRight(string(h.Descrip[:]), "\x00 ")
}

// SetDescription stores up to 79 bytes in descrip
func (h *Header) SetDescription(s string) {
	h.Descrip = [80]byte{}
	copy(h.Descrip[:79], s)
}

// Affine returns the voxel to RAS transform: the sform when set, else the qform,
// else a diagonal built from pixdim.
func (h *Header) Affine() *mat.Dense {
	switch {
	case h.SFormCode > 0:
		a := mat.NewDense(4, 4, nil)
		for j := 0; j < 4; j++ {
			a.Set(0, j, float64(h.SRowX[j]))
			a.Set(1, j, float64(h.SRowY[j]))
			a.Set(2, j, float64(h.SRowZ[j]))
		}
		a.Set(3, 3, 1)
		return a
	case h.QFormCode > 0:
		return h.qformAffine()
	default:
		a := mat.NewDense(4, 4, nil)
		for i := 0; i < 3; i++ {
			d := float64(h.PixDim[i+1])
			if d == 0 {
				d = 1
			}
			a.Set(i, i, d)
		}
		a.Set(3, 3, 1)
		return a
	}
}

// qformAffine rebuilds the rotation from the quaternion (b, c, d) with a = sqrt(1-b²-c²-d²)
func (h *Header) qformAffine() *mat.Dense {
	b, c, d := float64(h.QuaternB), float64(h.QuaternC), float64(h.QuaternD)
	a := 1 - (b*b + c*c + d*d)
	if a < 1e-7 {
		n := 1 / math.Sqrt(b*b+c*c+d*d)
		b, c, d = b*n, c*n, d*n
		a = 0
	} else {
		a = math.Sqrt(a)
	}
	dx, dy, dz := float64(h.PixDim[1]), float64(h.PixDim[2]), float64(h.PixDim[3])
	if dx <= 0 {
		dx = 1
	}
	if dy <= 0 {
		dy = 1
	}
	if dz <= 0 {
		dz = 1
	}
	if h.PixDim[0] < 0 {
		dz = -dz
	}
	return mat.NewDense(4, 4, []float64{
		(a*a + b*b - c*c - d*d) * dx, 2 * (b*c - a*d) * dy, 2 * (b*d + a*c) * dz, float64(h.QOffsetX),
		2 * (b*c + a*d) * dx, (a*a + c*c - b*b - d*d) * dy, 2 * (c*d - a*b) * dz, float64(h.QOffsetY),
		2 * (b*d - a*c) * dx, 2 * (c*d + a*b) * dy, (a*a + d*d - c*c - b*b) * dz, float64(h.QOffsetZ),
		0, 0, 0, 1,
	})
}

// SetAffine stores the transform as sform and as the closest qform, both with the scanner code
func (h *Header) SetAffine(a mat.Matrix) {
	for j := 0; j < 4; j++ {
		h.SRowX[j] = float32(a.At(0, j))
		h.SRowY[j] = float32(a.At(1, j))
		h.SRowZ[j] = float32(a.At(2, j))
	}
	h.SFormCode = XformScanner
	h.QFormCode = XformScanner

	// column norms are the voxel sizes
	var r [3][3]float64
	var size [3]float64
	for j := 0; j < 3; j++ {
		for i := 0; i < 3; i++ {
			size[j] += a.At(i, j) * a.At(i, j)
		}
		size[j] = math.Sqrt(size[j])
		if size[j] == 0 {
			size[j] = 1
		}
		for i := 0; i < 3; i++ {
			r[i][j] = a.At(i, j) / size[j]
		}
	}
	qfac := 1.0
	if det3(r) < 0 {
		qfac = -1
		for i := 0; i < 3; i++ {
			r[i][2] = -r[i][2]
		}
	}
	h.PixDim[0] = float32(qfac)
	for i := 0; i < 3; i++ {
		h.PixDim[i+1] = float32(size[i])
	}
	b, c, d := quaternion(r)
	h.QuaternB, h.QuaternC, h.QuaternD = float32(b), float32(c), float32(d)
	h.QOffsetX, h.QOffsetY, h.QOffsetZ = float32(a.At(0, 3)), float32(a.At(1, 3)), float32(a.At(2, 3))
}

func det3(r [3][3]float64) float64 {
	return r[0][0]*(r[1][1]*r[2][2]-r[1][2]*r[2][1]) -
		r[0][1]*(r[1][0]*r[2][2]-r[1][2]*r[2][0]) +
		r[0][2]*(r[1][0]*r[2][1]-r[1][1]*r[2][0])
}

// quaternion converts a proper rotation matrix to (b, c, d) with a non-negative a
func quaternion(r [3][3]float64) (b, c, d float64) {
	var a float64
	trace := r[0][0] + r[1][1] + r[2][2] + 1
	if trace > 0.5 {
		a = 0.5 * math.Sqrt(trace)
		b = 0.25 * (r[2][1] - r[1][2]) / a
		c = 0.25 * (r[0][2] - r[2][0]) / a
		d = 0.25 * (r[1][0] - r[0][1]) / a
	} else {
		xd := 1 + r[0][0] - (r[1][1] + r[2][2])
		yd := 1 + r[1][1] - (r[0][0] + r[2][2])
		zd := 1 + r[2][2] - (r[0][0] + r[1][1])
		switch {
		case xd > 1:
			b = 0.5 * math.Sqrt(xd)
			c = 0.25 * (r[0][1] + r[1][0]) / b
			d = 0.25 * (r[0][2] + r[2][0]) / b
			a = 0.25 * (r[2][1] - r[1][2]) / b
		case yd > 1:
			c = 0.5 * math.Sqrt(yd)
			b = 0.25 * (r[0][1] + r[1][0]) / c
			d = 0.25 * (r[1][2] + r[2][1]) / c
			a = 0.25 * (r[0][2] - r[2][0]) / c
		default:
			d = 0.5 * math.Sqrt(zd)
			b = 0.25 * (r[0][2] + r[2][0]) / d
			c = 0.25 * (r[1][2] + r[2][1]) / d
			a = 0.25 * (r[1][0] - r[0][1]) / d
		}
		if a < 0 {
			b, c, d = -b, -c, -d
		}
	}
	return b, c, d
}

// bytesPer returns the storage size of a datatype, 0 when unsupported
func bytesPer(dt int16) int {
	switch dt {
	case DTUint8, DTInt8:
		return 1
	case DTInt16, DTUint16:
		return 2
	case DTInt32, DTUint32, DTFloat32:
		return 4
	case DTFloat64:
		return 8
	}
	return 0
}
