package tag

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTagString(t *testing.T) {
	assert.Equal(t, "(3006,0039)", ROIContourSequence.String())
	assert.Equal(t, "(3006,0039) ROIContourSequence", ROIContourSequence.Describe())
	assert.Equal(t, "(0009,0010)", New(0x0009, 0x0010).Describe())

	b, err := json.Marshal(ContourData)
	require.NoError(t, err)
	assert.Equal(t, `"(3006,0050)"`, string(b))
}

func TestTagOrdering(t *testing.T) {
	assert.True(t, PatientName.Less(StudyInstanceUID))
	assert.True(t, ROINumber.Less(ROIName))
	assert.False(t, PixelData.Less(ContourData))
	assert.True(t, New(0x0009, 0x0010).IsPrivate())
	assert.True(t, FileMetaInformationGroupLength.IsGroup0002())
	assert.True(t, FileMetaInformationGroupLength.IsGroupLength())
}

func TestVROf(t *testing.T) {
	assert.Equal(t, "SQ", VROf(StructureSetROISequence))
	assert.Equal(t, "DS", VROf(ContourData))
	assert.Equal(t, "IS", VROf(ROIDisplayColor))
	assert.Equal(t, "UL", VROf(New(0x0008, 0x0000)))
	assert.Equal(t, "UN", VROf(New(0x0009, 0x1001)))

	e, ok := Lookup(ROIName)
	require.True(t, ok)
	assert.Equal(t, "LO", e.VR)
}
