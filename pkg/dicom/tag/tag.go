// Package tag defines the DICOM tags used by the RT structure set and image series tooling
package tag

// Tag represents a DICOM tag with Group and Element
type Tag struct {
	Group   uint16
	Element uint16
}

// New creates a new Tag
func New(group, element uint16) Tag {
	return Tag{Group: group, Element: element}
}

// Equals compares two tags
func (t Tag) Equals(other Tag) bool {
	return t.Group == other.Group && t.Element == other.Element
}

// IsPrivate returns true if this is a private tag (odd group number)
func (t Tag) IsPrivate() bool {
	return t.Group%2 == 1
}

// IsGroup0002 returns true if this tag is in the File Meta Information group
func (t Tag) IsGroup0002() bool {
	return t.Group == 0x0002
}

// IsGroupLength returns true for (gggg,0000) group length elements
func (t Tag) IsGroupLength() bool {
	return t.Element == 0x0000
}

// Less orders tags the way they must appear in an encoded dataset
func (t Tag) Less(other Tag) bool {
	if t.Group != other.Group {
		return t.Group < other.Group
	}
	return t.Element < other.Element
}

// File Meta Information (Group 0002)
var (
	FileMetaInformationGroupLength = Tag{0x0002, 0x0000}
	FileMetaInformationVersion     = Tag{0x0002, 0x0001}
	MediaStorageSOPClassUID        = Tag{0x0002, 0x0002}
	MediaStorageSOPInstanceUID     = Tag{0x0002, 0x0003}
	TransferSyntaxUID              = Tag{0x0002, 0x0010}
	ImplementationClassUID         = Tag{0x0002, 0x0012}
	ImplementationVersionName      = Tag{0x0002, 0x0013}
	SpecificCharacterSet           = Tag{0x0008, 0x0005}
)

// Patient Module (Group 0010)
var (
	PatientName      = Tag{0x0010, 0x0010}
	PatientID        = Tag{0x0010, 0x0020}
	PatientBirthDate = Tag{0x0010, 0x0030}
	PatientSex       = Tag{0x0010, 0x0040}
	PatientAge       = Tag{0x0010, 0x1010}
	PatientComments  = Tag{0x0010, 0x4000}
)

// General Study Module (Group 0008, 0020)
var (
	StudyDate              = Tag{0x0008, 0x0020}
	StudyTime              = Tag{0x0008, 0x0030}
	AccessionNumber        = Tag{0x0008, 0x0050}
	ReferringPhysicianName = Tag{0x0008, 0x0090}
	StudyDescription       = Tag{0x0008, 0x1030}
	StudyInstanceUID       = Tag{0x0020, 0x000D}
	StudyID                = Tag{0x0020, 0x0010}
)

// General Series Module
var (
	Modality          = Tag{0x0008, 0x0060}
	SeriesInstanceUID = Tag{0x0020, 0x000E}
	SeriesNumber      = Tag{0x0020, 0x0011}
	InstanceNumber    = Tag{0x0020, 0x0013}
	SeriesDescription = Tag{0x0008, 0x103E}
	SeriesDate        = Tag{0x0008, 0x0021}
	SeriesTime        = Tag{0x0008, 0x0031}
	OperatorsName     = Tag{0x0008, 0x1070}
)

// General Equipment Module
var (
	Manufacturer          = Tag{0x0008, 0x0070}
	InstitutionName       = Tag{0x0008, 0x0080}
	StationName           = Tag{0x0008, 0x1010}
	ManufacturerModelName = Tag{0x0008, 0x1090}
	DeviceSerialNumber    = Tag{0x0018, 0x1000}
	SoftwareVersions      = Tag{0x0018, 0x1020}
)

// SOP Common Module
var (
	SOPClassUID          = Tag{0x0008, 0x0016}
	SOPInstanceUID       = Tag{0x0008, 0x0018}
	InstanceCreationDate = Tag{0x0008, 0x0012}
	InstanceCreationTime = Tag{0x0008, 0x0013}
)

// Frame of Reference Module
var (
	FrameOfReferenceUID        = Tag{0x0020, 0x0052}
	PositionReferenceIndicator = Tag{0x0020, 0x1040}
)

// Image Pixel Module (Group 0028)
var (
	SamplesPerPixel           = Tag{0x0028, 0x0002}
	PhotometricInterpretation = Tag{0x0028, 0x0004}
	NumberOfFrames            = Tag{0x0028, 0x0008}
	Rows                      = Tag{0x0028, 0x0010}
	Columns                   = Tag{0x0028, 0x0011}
	BitsAllocated             = Tag{0x0028, 0x0100}
	BitsStored                = Tag{0x0028, 0x0101}
	HighBit                   = Tag{0x0028, 0x0102}
	PixelRepresentation       = Tag{0x0028, 0x0103}
	RescaleIntercept          = Tag{0x0028, 0x1052}
	RescaleSlope              = Tag{0x0028, 0x1053}
	PixelData                 = Tag{0x7FE0, 0x0010}
)

// Image Plane Module
var (
	ImageType               = Tag{0x0008, 0x0008}
	ImagePositionPatient    = Tag{0x0020, 0x0032}
	ImageOrientationPatient = Tag{0x0020, 0x0037}
	SliceThickness          = Tag{0x0018, 0x0050}
	SpacingBetweenSlices    = Tag{0x0018, 0x0088}
	PixelSpacing            = Tag{0x0028, 0x0030}
	SliceLocation           = Tag{0x0020, 0x1041}
)

// Content Date/Time
var (
	ContentDate = Tag{0x0008, 0x0023}
	ContentTime = Tag{0x0008, 0x0033}
)

// Sequence delimiters
var (
	Item                     = Tag{0xFFFE, 0xE000}
	ItemDelimitationItem     = Tag{0xFFFE, 0xE00D}
	SequenceDelimitationItem = Tag{0xFFFE, 0xE0DD}
)

// Referencing
var (
	ReferencedSOPClassUID    = Tag{0x0008, 0x1150}
	ReferencedSOPInstanceUID = Tag{0x0008, 0x1155}
	ReferencedSeriesSequence = Tag{0x0008, 0x1115}
	ReferencedImageSequence  = Tag{0x0008, 0x1140}
)

// Structure Set Module (Group 3006)
var (
	StructureSetLabel                  = Tag{0x3006, 0x0002} // SH
	StructureSetName                   = Tag{0x3006, 0x0004} // LO
	StructureSetDescription            = Tag{0x3006, 0x0006} // ST
	StructureSetDate                   = Tag{0x3006, 0x0008} // DA
	StructureSetTime                   = Tag{0x3006, 0x0009} // TM
	ReferencedFrameOfReferenceSequence = Tag{0x3006, 0x0010} // SQ
	RTReferencedStudySequence          = Tag{0x3006, 0x0012} // SQ
	RTReferencedSeriesSequence         = Tag{0x3006, 0x0014} // SQ
	ContourImageSequence               = Tag{0x3006, 0x0016} // SQ
	StructureSetROISequence            = Tag{0x3006, 0x0020} // SQ
	ROINumber                          = Tag{0x3006, 0x0022} // IS
	ReferencedFrameOfReferenceUID      = Tag{0x3006, 0x0024} // UI
	ROIName                            = Tag{0x3006, 0x0026} // LO
	ROIDescription                     = Tag{0x3006, 0x0028} // ST
	ROIDisplayColor                    = Tag{0x3006, 0x002A} // IS, 3 values
	ROIGenerationAlgorithm             = Tag{0x3006, 0x0036} // CS - AUTOMATIC, SEMIAUTOMATIC, MANUAL
)

// ROI Contour Module (Group 3006)
var (
	ROIContourSequence    = Tag{0x3006, 0x0039} // SQ
	ContourSequence       = Tag{0x3006, 0x0040} // SQ
	ContourGeometricType  = Tag{0x3006, 0x0042} // CS - POINT, OPEN_PLANAR, CLOSED_PLANAR, ...
	NumberOfContourPoints = Tag{0x3006, 0x0046} // IS
	ContourNumber         = Tag{0x3006, 0x0048} // IS
	ContourData           = Tag{0x3006, 0x0050} // DS, x\y\z triplets
	ReferencedROINumber   = Tag{0x3006, 0x0084} // IS
)

// RT ROI Observations Module (Group 3006)
var (
	RTROIObservationsSequence = Tag{0x3006, 0x0080} // SQ
	ObservationNumber         = Tag{0x3006, 0x0082} // IS
	RTROIInterpretedType      = Tag{0x3006, 0x00A4} // CS - ORGAN, PTV, GTV, ...
	ROIInterpreter            = Tag{0x3006, 0x00A6} // PN
)

// Approval Module
var (
	ApprovalStatus = Tag{0x300E, 0x0002} // CS - APPROVED, UNAPPROVED, REJECTED
)
