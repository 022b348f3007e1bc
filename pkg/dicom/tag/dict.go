package tag

// Entry is a data dictionary record
type Entry struct {
	VR   string
	Name string
}

// dictionary covers every tag this module reads or writes. Implicit VR
// datasets (RTSTRUCTs written by many planning systems) are decoded through it.
var dictionary = map[Tag]Entry{
	FileMetaInformationGroupLength: {"UL", "FileMetaInformationGroupLength"},
	FileMetaInformationVersion:     {"OB", "FileMetaInformationVersion"},
	MediaStorageSOPClassUID:        {"UI", "MediaStorageSOPClassUID"},
	MediaStorageSOPInstanceUID:     {"UI", "MediaStorageSOPInstanceUID"},
	TransferSyntaxUID:              {"UI", "TransferSyntaxUID"},
	ImplementationClassUID:         {"UI", "ImplementationClassUID"},
	ImplementationVersionName:      {"SH", "ImplementationVersionName"},
	SpecificCharacterSet:           {"CS", "SpecificCharacterSet"},

	PatientName:      {"PN", "PatientName"},
	PatientID:        {"LO", "PatientID"},
	PatientBirthDate: {"DA", "PatientBirthDate"},
	PatientSex:       {"CS", "PatientSex"},
	PatientAge:       {"AS", "PatientAge"},
	PatientComments:  {"LT", "PatientComments"},

	StudyDate:              {"DA", "StudyDate"},
	StudyTime:              {"TM", "StudyTime"},
	AccessionNumber:        {"SH", "AccessionNumber"},
	ReferringPhysicianName: {"PN", "ReferringPhysicianName"},
	StudyDescription:       {"LO", "StudyDescription"},
	StudyInstanceUID:       {"UI", "StudyInstanceUID"},
	StudyID:                {"SH", "StudyID"},

	Modality:          {"CS", "Modality"},
	SeriesInstanceUID: {"UI", "SeriesInstanceUID"},
	SeriesNumber:      {"IS", "SeriesNumber"},
	InstanceNumber:    {"IS", "InstanceNumber"},
	SeriesDescription: {"LO", "SeriesDescription"},
	SeriesDate:        {"DA", "SeriesDate"},
	SeriesTime:        {"TM", "SeriesTime"},
	OperatorsName:     {"PN", "OperatorsName"},

	Manufacturer:          {"LO", "Manufacturer"},
	InstitutionName:       {"LO", "InstitutionName"},
	StationName:           {"SH", "StationName"},
	ManufacturerModelName: {"LO", "ManufacturerModelName"},
	DeviceSerialNumber:    {"LO", "DeviceSerialNumber"},
	SoftwareVersions:      {"LO", "SoftwareVersions"},

	SOPClassUID:          {"UI", "SOPClassUID"},
	SOPInstanceUID:       {"UI", "SOPInstanceUID"},
	InstanceCreationDate: {"DA", "InstanceCreationDate"},
	InstanceCreationTime: {"TM", "InstanceCreationTime"},

	FrameOfReferenceUID:        {"UI", "FrameOfReferenceUID"},
	PositionReferenceIndicator: {"LO", "PositionReferenceIndicator"},

	SamplesPerPixel:           {"US", "SamplesPerPixel"},
	PhotometricInterpretation: {"CS", "PhotometricInterpretation"},
	NumberOfFrames:            {"IS", "NumberOfFrames"},
	Rows:                      {"US", "Rows"},
	Columns:                   {"US", "Columns"},
	BitsAllocated:             {"US", "BitsAllocated"},
	BitsStored:                {"US", "BitsStored"},
	HighBit:                   {"US", "HighBit"},
	PixelRepresentation:       {"US", "PixelRepresentation"},
	RescaleIntercept:          {"DS", "RescaleIntercept"},
	RescaleSlope:              {"DS", "RescaleSlope"},
	PixelData:                 {"OW", "PixelData"},

	ImageType:               {"CS", "ImageType"},
	ImagePositionPatient:    {"DS", "ImagePositionPatient"},
	ImageOrientationPatient: {"DS", "ImageOrientationPatient"},
	SliceThickness:          {"DS", "SliceThickness"},
	SpacingBetweenSlices:    {"DS", "SpacingBetweenSlices"},
	PixelSpacing:            {"DS", "PixelSpacing"},
	SliceLocation:           {"DS", "SliceLocation"},

	ContentDate: {"DA", "ContentDate"},
	ContentTime: {"TM", "ContentTime"},

	ReferencedSOPClassUID:    {"UI", "ReferencedSOPClassUID"},
	ReferencedSOPInstanceUID: {"UI", "ReferencedSOPInstanceUID"},
	ReferencedSeriesSequence: {"SQ", "ReferencedSeriesSequence"},
	ReferencedImageSequence:  {"SQ", "ReferencedImageSequence"},

	StructureSetLabel:                  {"SH", "StructureSetLabel"},
	StructureSetName:                   {"LO", "StructureSetName"},
	StructureSetDescription:            {"ST", "StructureSetDescription"},
	StructureSetDate:                   {"DA", "StructureSetDate"},
	StructureSetTime:                   {"TM", "StructureSetTime"},
	ReferencedFrameOfReferenceSequence: {"SQ", "ReferencedFrameOfReferenceSequence"},
	RTReferencedStudySequence:          {"SQ", "RTReferencedStudySequence"},
	RTReferencedSeriesSequence:         {"SQ", "RTReferencedSeriesSequence"},
	ContourImageSequence:               {"SQ", "ContourImageSequence"},
	StructureSetROISequence:            {"SQ", "StructureSetROISequence"},
	ROINumber:                          {"IS", "ROINumber"},
	ReferencedFrameOfReferenceUID:      {"UI", "ReferencedFrameOfReferenceUID"},
	ROIName:                            {"LO", "ROIName"},
	ROIDescription:                     {"ST", "ROIDescription"},
	ROIDisplayColor:                    {"IS", "ROIDisplayColor"},
	ROIGenerationAlgorithm:             {"CS", "ROIGenerationAlgorithm"},

	ROIContourSequence:    {"SQ", "ROIContourSequence"},
	ContourSequence:       {"SQ", "ContourSequence"},
	ContourGeometricType:  {"CS", "ContourGeometricType"},
	NumberOfContourPoints: {"IS", "NumberOfContourPoints"},
	ContourNumber:         {"IS", "ContourNumber"},
	ContourData:           {"DS", "ContourData"},
	ReferencedROINumber:   {"IS", "ReferencedROINumber"},

	RTROIObservationsSequence: {"SQ", "RTROIObservationsSequence"},
	ObservationNumber:         {"IS", "ObservationNumber"},
	RTROIInterpretedType:      {"CS", "RTROIInterpretedType"},
	ROIInterpreter:            {"PN", "ROIInterpreter"},

	ApprovalStatus: {"CS", "ApprovalStatus"},
}

// Lookup returns the dictionary entry for a tag
func Lookup(t Tag) (Entry, bool) {
	e, ok := dictionary[t]
	return e, ok
}

// VROf returns the dictionary VR for a tag, "UL" for group lengths and "UN" otherwise
func VROf(t Tag) string {
	if e, ok := dictionary[t]; ok {
		return e.VR
	}
	if t.IsGroupLength() {
		return "UL"
	}
	return "UN"
}

// LookupName returns a human-readable name for known tags
func (t Tag) LookupName() string {
	if e, ok := dictionary[t]; ok {
		return e.Name
	}
	return ""
}
