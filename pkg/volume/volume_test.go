package volume

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ramp(w, h, d int) *Volume {
	v := New(w, h, d)
	for i := range v.Data {
		v.Data[i] = float32(i)
	}
	return v
}

func TestIndexing(t *testing.T) {
	v := ramp(4, 3, 2)
	assert.Equal(t, 24, v.Len())
	assert.Equal(t, float32(1+2*4+1*12), v.At(1, 2, 1))
	assert.True(t, v.Contains(3, 2, 1))
	assert.False(t, v.Contains(4, 0, 0))

	p := v.Plane(1)
	assert.Equal(t, float32(12), p.At(0, 0))
	p.Data[0] = -1
	assert.Equal(t, float32(-1), v.At(0, 0, 1), "plane is a view")
	assert.Equal(t, float32(0), p.At(-1, 0))
}

func TestFlips(t *testing.T) {
	v := ramp(3, 2, 2)
	orig := v.Clone()

	v.FlipX()
	assert.Equal(t, orig.At(2, 1, 1), v.At(0, 1, 1))
	v.FlipX()
	assert.Equal(t, orig.Data, v.Data)

	v.FlipY()
	assert.Equal(t, orig.At(1, 0, 0), v.At(1, 1, 0))
	v.FlipY()

	v.FlipZ()
	assert.Equal(t, orig.At(2, 1, 0), v.At(2, 1, 1))
	v.FlipZ()
	assert.Equal(t, orig.Data, v.Data)
}

func TestLabelsAndCounts(t *testing.T) {
	v := New(2, 2, 1)
	v.Data = []float32{0, 3, 1, 3}
	assert.Equal(t, []float32{1, 3}, v.Labels())
	assert.Equal(t, 3, v.CountNonZero())
	assert.Equal(t, []float32{0, 1, 0, 1}, v.Select(3).Data)

	o := New(2, 2, 1)
	o.Data = []float32{2, 2, 2, 2}
	require.NoError(t, v.Max(o))
	assert.Equal(t, []float32{2, 3, 2, 3}, v.Data)
	assert.Error(t, v.Max(New(1, 1, 1)))
}

func TestPlaneSetMax(t *testing.T) {
	p := NewPlane(2, 2)
	p.SetMax(1, 1, 2)
	p.SetMax(1, 1, 1)
	p.SetMax(5, 5, 9)
	assert.Equal(t, []float32{0, 0, 0, 2}, p.Data)
}
