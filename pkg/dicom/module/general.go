package module

import (
	"time"

	"github.com/jpfielding/rtss.go/pkg/dicom/tag"
)

// Getter returns the string value of a tag, empty when absent
type Getter func(tag.Tag) string

// PatientModule represents the Patient Module (PS3.3 C.7.1.1)
type PatientModule struct {
	PatientName      PersonName
	PatientID        string
	PatientBirthDate Date
	PatientSex       string // M, F, O
	PatientAge       string
}

// Read fills the module from an existing object, unparseable dates stay empty
func (m *PatientModule) Read(get Getter) {
	m.PatientName = ParsePersonName(get(tag.PatientName))
	m.PatientID = get(tag.PatientID)
	m.PatientSex = get(tag.PatientSex)
	m.PatientAge = get(tag.PatientAge)
	m.PatientBirthDate, _ = ParseDate(get(tag.PatientBirthDate))
}

func (m *PatientModule) ToTags() []IODElement {
	tags := []IODElement{
		{Tag: tag.PatientName, Value: m.PatientName.String()},
		{Tag: tag.PatientID, Value: m.PatientID},
		{Tag: tag.PatientBirthDate, Value: m.PatientBirthDate.String()},
		{Tag: tag.PatientSex, Value: m.PatientSex},
	}
	if m.PatientAge != "" {
		tags = append(tags, IODElement{Tag: tag.PatientAge, Value: m.PatientAge})
	}
	return tags
}

// GeneralStudyModule represents the General Study Module (PS3.3 C.7.2.1).
// A structure set joins the study of the images it outlines.
type GeneralStudyModule struct {
	StudyInstanceUID       string
	StudyDate              Date
	StudyTime              Time
	ReferringPhysicianName PersonName
	StudyID                string
	AccessionNumber        string
	StudyDescription       string
}

// NewGeneralStudyModule starts a study dated now, the caller supplies the UID
func NewGeneralStudyModule() GeneralStudyModule {
	t := time.Now()
	return GeneralStudyModule{StudyDate: NewDate(t), StudyTime: NewTime(t)}
}

// Read copies the study attributes of an existing object
func (m *GeneralStudyModule) Read(get Getter) {
	m.StudyInstanceUID = get(tag.StudyInstanceUID)
	m.ReferringPhysicianName = ParsePersonName(get(tag.ReferringPhysicianName))
	m.StudyID = get(tag.StudyID)
	m.AccessionNumber = get(tag.AccessionNumber)
	m.StudyDescription = get(tag.StudyDescription)
	m.StudyDate, _ = ParseDate(get(tag.StudyDate))
	m.StudyTime, _ = ParseTime(get(tag.StudyTime))
}

func (m *GeneralStudyModule) ToTags() []IODElement {
	return []IODElement{
		{Tag: tag.StudyInstanceUID, Value: m.StudyInstanceUID},
		{Tag: tag.StudyDate, Value: m.StudyDate.String()},
		{Tag: tag.StudyTime, Value: m.StudyTime.String()},
		{Tag: tag.ReferringPhysicianName, Value: m.ReferringPhysicianName.String()},
		{Tag: tag.StudyID, Value: m.StudyID},
		{Tag: tag.AccessionNumber, Value: m.AccessionNumber},
		{Tag: tag.StudyDescription, Value: m.StudyDescription},
	}
}

// GeneralEquipmentModule represents the General Equipment Module (PS3.3 C.7.5.1)
type GeneralEquipmentModule struct {
	Manufacturer      string
	InstitutionName   string
	StationName       string
	ManufacturerModel string
	SoftwareVersions  string
}

// Read copies the equipment that produced an existing object
func (m *GeneralEquipmentModule) Read(get Getter) {
	m.Manufacturer = get(tag.Manufacturer)
	m.InstitutionName = get(tag.InstitutionName)
	m.StationName = get(tag.StationName)
	m.ManufacturerModel = get(tag.ManufacturerModelName)
	m.SoftwareVersions = get(tag.SoftwareVersions)
}

func (m *GeneralEquipmentModule) ToTags() []IODElement {
	tags := []IODElement{{Tag: tag.Manufacturer, Value: m.Manufacturer}}
	for _, el := range []IODElement{
		{Tag: tag.InstitutionName, Value: m.InstitutionName},
		{Tag: tag.StationName, Value: m.StationName},
		{Tag: tag.ManufacturerModelName, Value: m.ManufacturerModel},
		{Tag: tag.SoftwareVersions, Value: m.SoftwareVersions},
	} {
		if el.Value != "" {
			tags = append(tags, el)
		}
	}
	return tags
}

// SOPCommonModule represents the SOP Common Module (PS3.3 C.12.1)
type SOPCommonModule struct {
	SOPClassUID          string
	SOPInstanceUID       string
	SpecificCharacterSet string
	InstanceCreationDate Date
	InstanceCreationTime Time
}

// NewSOPCommonModule stamps a new Latin-1 instance with the current time
func NewSOPCommonModule(classUID, instanceUID string) SOPCommonModule {
	t := time.Now()
	return SOPCommonModule{
		SOPClassUID:          classUID,
		SOPInstanceUID:       instanceUID,
		SpecificCharacterSet: "ISO_IR 100",
		InstanceCreationDate: NewDate(t),
		InstanceCreationTime: NewTime(t),
	}
}

// Read identifies an existing instance
func (m *SOPCommonModule) Read(get Getter) {
	m.SOPClassUID = get(tag.SOPClassUID)
	m.SOPInstanceUID = get(tag.SOPInstanceUID)
	m.SpecificCharacterSet = get(tag.SpecificCharacterSet)
	m.InstanceCreationDate, _ = ParseDate(get(tag.InstanceCreationDate))
	m.InstanceCreationTime, _ = ParseTime(get(tag.InstanceCreationTime))
}

func (m *SOPCommonModule) ToTags() []IODElement {
	return []IODElement{
		{Tag: tag.SOPClassUID, Value: m.SOPClassUID},
		{Tag: tag.SOPInstanceUID, Value: m.SOPInstanceUID},
		{Tag: tag.SpecificCharacterSet, Value: m.SpecificCharacterSet},
		{Tag: tag.InstanceCreationDate, Value: m.InstanceCreationDate.String()},
		{Tag: tag.InstanceCreationTime, Value: m.InstanceCreationTime.String()},
	}
}
