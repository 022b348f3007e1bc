package nifti

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/jpfielding/rtss.go/pkg/volume"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ramp(w, h, d int) *volume.Volume {
	v := volume.New(w, h, d)
	for i := range v.Data {
		v.Data[i] = float32(i % 7)
	}
	return v
}

func TestHeaderSize(t *testing.T) {
	assert.Equal(t, HeaderSize, binary.Size(Header{}))
}

func TestRoundTrip(t *testing.T) {
	affine := mat.NewDense(4, 4, []float64{
		-0.75, 0, 0, 12.5,
		0, -0.5, 0, -30,
		0, 0, 2.5, 7,
		0, 0, 0, 1,
	})
	for _, name := range []string{"mask.nii", "mask.nii.gz"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			src := New(ramp(5, 4, 3), affine, DTUint16)
			src.Header.SetDescription("round trip")
			require.NoError(t, WriteFile(path, src))

			got, err := ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, [3]int{5, 4, 3}, got.Header.Shape())
			assert.Equal(t, src.Volume.Data, got.Volume.Data)
			assert.Equal(t, "round trip", got.Header.Description())
			assert.Equal(t, XformScanner, got.Header.SFormCode)
			assert.True(t, mat.EqualApprox(affine, got.Affine(), 1e-6))
			assert.Equal(t, 1, got.Frames)
		})
	}
}

func TestQFormMatchesSForm(t *testing.T) {
	for _, diag := range [][3]float64{{-1, -1, 1}, {1, -1, 1}, {-1, 1, -1}, {1, 1, 1}, {0.8, -0.8, -3}} {
		affine := mat.NewDense(4, 4, []float64{
			diag[0], 0, 0, 1,
			0, diag[1], 0, 2,
			0, 0, diag[2], 3,
			0, 0, 0, 1,
		})
		img := New(volume.New(2, 2, 2), affine, DTUint8)
		img.Header.SFormCode = XformUnknown
		assert.True(t, mat.EqualApprox(affine, img.Affine(), 1e-6), "diag %v got %v", diag, mat.Formatted(img.Affine()))
	}
}

func TestPixDimFallback(t *testing.T) {
	h := &Header{PixDim: [8]float32{1, 2, 3, 0}}
	a := h.Affine()
	assert.Equal(t, 2.0, a.At(0, 0))
	assert.Equal(t, 3.0, a.At(1, 1))
	assert.Equal(t, 1.0, a.At(2, 2))
}

func TestDatatypes(t *testing.T) {
	v := volume.New(3, 1, 1)
	v.Data = []float32{-2, 0, 100}
	for _, dt := range []int16{DTInt8, DTInt16, DTInt32, DTFloat32, DTFloat64} {
		var buf bytes.Buffer
		require.NoError(t, Write(&buf, New(v, mat.NewDiagDense(4, []float64{1, 1, 1, 1}), dt)))
		got, err := Read(&buf)
		require.NoError(t, err, "datatype %d", dt)
		assert.Equal(t, v.Data, got.Volume.Data, "datatype %d", dt)
	}

	var buf bytes.Buffer
	err := Write(&buf, New(v, mat.NewDiagDense(4, []float64{1, 1, 1, 1}), DTUint8))
	assert.ErrorIs(t, err, ErrValueRange)
}

func TestScaling(t *testing.T) {
	v := volume.New(2, 1, 1)
	v.Data = []float32{-1024, 976}
	img := New(v, mat.NewDiagDense(4, []float64{1, 1, 1, 1}), DTUint16)
	img.Header.SclSlope = 2
	img.Header.SclInter = -1024

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, img))
	raw := buf.Bytes()
	assert.Equal(t, uint16(0), binary.LittleEndian.Uint16(raw[VoxOffset:]))
	assert.Equal(t, uint16(1000), binary.LittleEndian.Uint16(raw[VoxOffset+2:]))

	got, err := Read(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, v.Data, got.Volume.Data)
}

func TestReadBigEndianFourD(t *testing.T) {
	h := Header{
		SizeOfHdr: HeaderSize,
		Datatype:  DTInt16,
		BitPix:    16,
		VoxOffset: VoxOffset,
		SclSlope:  1,
		Magic:     magicSingleFile,
	}
	h.Dim = [8]int16{4, 2, 1, 1, 2, 1, 1, 1}
	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.BigEndian, &h))
	buf.Write([]byte{0, 0, 0, 0})
	require.NoError(t, binary.Write(&buf, binary.BigEndian, []int16{-3, 300, 7, 8}))

	img, err := Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, 2, img.Frames)
	assert.Equal(t, []float32{-3, 300}, img.Volume.Data)
}

func TestReadErrors(t *testing.T) {
	_, err := Read(bytes.NewReader([]byte("short")))
	assert.Error(t, err)

	_, err = Read(bytes.NewReader(make([]byte, 400)))
	assert.ErrorContains(t, err, "not a NIfTI-1 header")

	h := Header{SizeOfHdr: HeaderSize, Datatype: DTUint8, Magic: [4]byte{'n', 'i', '1', 0}}
	h.Dim = [8]int16{3, 1, 1, 1}
	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, &h))
	_, err = Read(&buf)
	assert.ErrorContains(t, err, "single file")

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.nii"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestTrimExt(t *testing.T) {
	assert.Equal(t, "out/mask", TrimExt("out/mask.nii.gz"))
	assert.Equal(t, "out/mask", TrimExt("out/mask.NII"))
	assert.Equal(t, "out/mask", TrimExt("out/mask"))
	assert.True(t, IsGzip("a.nii.gz"))
	assert.False(t, IsGzip("a.nii"))
}
