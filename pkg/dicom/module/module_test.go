package module

import (
	"testing"
	"time"

	"github.com/jpfielding/rtss.go/pkg/dicom/tag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func valueOf(tags []IODElement, t tag.Tag) (interface{}, bool) {
	for _, el := range tags {
		if el.Tag == t {
			return el.Value, true
		}
	}
	return nil, false
}

func TestDateAndTime(t *testing.T) {
	assert.Equal(t, "", Date{}.String())
	assert.Equal(t, "", Time{}.String())

	d, err := ParseDate("20240131")
	require.NoError(t, err)
	assert.Equal(t, Date{Year: 2024, Month: 1, Day: 31}, d)
	assert.Equal(t, "20240131", d.String())

	_, err = ParseDate("2024-01-31")
	assert.Error(t, err)

	tm, err := ParseTime("0930")
	require.NoError(t, err)
	assert.Equal(t, "093000.000000", tm.String())

	tm, err = ParseTime("235959.5")
	require.NoError(t, err)
	assert.Equal(t, 500000000, tm.Nano)

	now := time.Date(2025, 6, 1, 12, 30, 45, 0, time.UTC)
	assert.Equal(t, "123045.000000", NewTime(now).String())
}

func TestPersonName(t *testing.T) {
	p := ParsePersonName("DOE^JANE")
	assert.Equal(t, "DOE", p.FamilyName)
	assert.Equal(t, "JANE", p.GivenName)
	assert.Equal(t, "DOE^JANE", p.String())
	assert.Equal(t, "", PersonName{}.String())
}

func TestStructureSetModule(t *testing.T) {
	m := NewStructureSetModule("ROI1")
	tags := m.ToTags()
	v, ok := valueOf(tags, tag.StructureSetLabel)
	require.True(t, ok)
	assert.Equal(t, "ROI1", v)
	_, ok = valueOf(tags, tag.StructureSetName)
	assert.False(t, ok)

	a := ApprovalModule{}
	v, _ = valueOf(a.ToTags(), tag.ApprovalStatus)
	assert.Equal(t, "UNAPPROVED", v)
}

func TestRTSeriesModule(t *testing.T) {
	m := NewRTSeriesModule("1.2.3")
	tags := m.ToTags()
	v, _ := valueOf(tags, tag.Modality)
	assert.Equal(t, "RTSTRUCT", v)
	v, _ = valueOf(tags, tag.SeriesNumber)
	assert.Equal(t, 1, v)
}

func TestImagePlaneModule(t *testing.T) {
	m := NewImagePlaneModule()
	m.ImagePositionPatient = [3]float64{-10, -20, 5}
	loc := 5.0
	m.SliceLocation = &loc
	tags := m.ToTags()
	v, _ := valueOf(tags, tag.ImagePositionPatient)
	assert.Equal(t, []float64{-10, -20, 5}, v)
	v, ok := valueOf(tags, tag.SliceLocation)
	require.True(t, ok)
	assert.Equal(t, 5.0, v)
}

func TestReadModules(t *testing.T) {
	values := map[tag.Tag]string{
		tag.PatientName:      "Doe^Jane",
		tag.PatientID:        "P1",
		tag.PatientBirthDate: "19800229",
		tag.StudyInstanceUID: "1.2.3",
		tag.StudyTime:        "not a time",
		tag.Manufacturer:     "ACME",
		tag.SOPClassUID:      "1.2.840.10008.5.1.4.1.1.481.3",
	}
	get := func(t tag.Tag) string { return values[t] }

	var p PatientModule
	p.Read(get)
	assert.Equal(t, "Jane", p.PatientName.GivenName)
	assert.Equal(t, Date{Year: 1980, Month: 2, Day: 29}, p.PatientBirthDate)

	var s GeneralStudyModule
	s.Read(get)
	assert.Equal(t, "1.2.3", s.StudyInstanceUID)
	assert.Equal(t, Time{}, s.StudyTime)

	var e GeneralEquipmentModule
	e.Read(get)
	assert.Len(t, e.ToTags(), 1)

	var sop SOPCommonModule
	sop.Read(get)
	v, ok := valueOf(sop.ToTags(), tag.SOPClassUID)
	require.True(t, ok)
	assert.Equal(t, "1.2.840.10008.5.1.4.1.1.481.3", v)
}
