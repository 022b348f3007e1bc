package module

import (
	"github.com/jpfielding/rtss.go/pkg/dicom/tag"
)

// RTSeriesModule represents the RT Series Module (PS3.3 C.8.8.1)
type RTSeriesModule struct {
	Modality          string
	SeriesInstanceUID string
	SeriesNumber      int
	SeriesDate        Date
	SeriesTime        Time
	SeriesDescription string
	OperatorsName     PersonName
}

// NewRTSeriesModule creates a series for an RTSTRUCT object
func NewRTSeriesModule(seriesUID string) RTSeriesModule {
	return RTSeriesModule{
		Modality:          "RTSTRUCT",
		SeriesInstanceUID: seriesUID,
		SeriesNumber:      1,
	}
}

func (m *RTSeriesModule) ToTags() []IODElement {
	tags := []IODElement{
		{Tag: tag.Modality, Value: m.Modality},
		{Tag: tag.SeriesInstanceUID, Value: m.SeriesInstanceUID},
		{Tag: tag.SeriesNumber, Value: m.SeriesNumber},
		{Tag: tag.OperatorsName, Value: m.OperatorsName.String()},
	}
	if s := m.SeriesDate.String(); s != "" {
		tags = append(tags, IODElement{Tag: tag.SeriesDate, Value: s})
	}
	if s := m.SeriesTime.String(); s != "" {
		tags = append(tags, IODElement{Tag: tag.SeriesTime, Value: s})
	}
	if m.SeriesDescription != "" {
		tags = append(tags, IODElement{Tag: tag.SeriesDescription, Value: m.SeriesDescription})
	}
	return tags
}
