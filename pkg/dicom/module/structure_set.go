package module

import (
	"time"

	"github.com/jpfielding/rtss.go/pkg/dicom/tag"
)

// StructureSetModule carries the top level attributes of the Structure Set Module (PS3.3 C.8.8.5).
// Its sequences are assembled by the rtstruct package.
type StructureSetModule struct {
	StructureSetLabel       string
	StructureSetName        string
	StructureSetDescription string
	StructureSetDate        Date
	StructureSetTime        Time
}

// NewStructureSetModule stamps a labelled structure set with the current time
func NewStructureSetModule(label string) StructureSetModule {
	t := time.Now()
	return StructureSetModule{
		StructureSetLabel: label,
		StructureSetDate:  NewDate(t),
		StructureSetTime:  NewTime(t),
	}
}

func (m *StructureSetModule) ToTags() []IODElement {
	tags := []IODElement{
		{Tag: tag.StructureSetLabel, Value: m.StructureSetLabel},
		{Tag: tag.StructureSetDate, Value: m.StructureSetDate.String()},
		{Tag: tag.StructureSetTime, Value: m.StructureSetTime.String()},
	}
	if m.StructureSetName != "" {
		tags = append(tags, IODElement{Tag: tag.StructureSetName, Value: m.StructureSetName})
	}
	if m.StructureSetDescription != "" {
		tags = append(tags, IODElement{Tag: tag.StructureSetDescription, Value: m.StructureSetDescription})
	}
	return tags
}

// ApprovalModule represents the Approval Module (PS3.3 C.8.8.16)
type ApprovalModule struct {
	ApprovalStatus string // APPROVED, UNAPPROVED, REJECTED
}

func (m *ApprovalModule) ToTags() []IODElement {
	status := m.ApprovalStatus
	if status == "" {
		status = "UNAPPROVED"
	}
	return []IODElement{{Tag: tag.ApprovalStatus, Value: status}}
}
