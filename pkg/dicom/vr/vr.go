// Package vr defines DICOM Value Representations
package vr

import (
	"strconv"
	"strings"
)

// VR represents a DICOM Value Representation
type VR string

// Standard DICOM Value Representations
const (
	AE VR = "AE" // Application Entity (16 bytes max)
	AS VR = "AS" // Age String (4 bytes fixed)
	AT VR = "AT" // Attribute Tag (4 bytes fixed)
	CS VR = "CS" // Code String (16 bytes max)
	DA VR = "DA" // Date (8 bytes fixed)
	DS VR = "DS" // Decimal String (16 bytes max)
	DT VR = "DT" // DateTime (26 bytes max)
	FL VR = "FL" // Floating Point Single (4 bytes fixed)
	FD VR = "FD" // Floating Point Double (8 bytes fixed)
	IS VR = "IS" // Integer String (12 bytes max)
	LO VR = "LO" // Long String (64 bytes max)
	LT VR = "LT" // Long Text (10240 bytes max)
	OB VR = "OB" // Other Byte String
	OD VR = "OD" // Other Double String
	OF VR = "OF" // Other Float String
	OL VR = "OL" // Other Long
	OW VR = "OW" // Other Word String
	PN VR = "PN" // Person Name (64 bytes max per component)
	SH VR = "SH" // Short String (16 bytes max)
	SL VR = "SL" // Signed Long (4 bytes fixed)
	SQ VR = "SQ" // Sequence of Items
	SS VR = "SS" // Signed Short (2 bytes fixed)
	ST VR = "ST" // Short Text (1024 bytes max)
	TM VR = "TM" // Time (16 bytes max)
	UC VR = "UC" // Unlimited Characters
	UI VR = "UI" // Unique Identifier (64 bytes max)
	UL VR = "UL" // Unsigned Long (4 bytes fixed)
	UN VR = "UN" // Unknown
	UR VR = "UR" // Universal Resource Identifier
	US VR = "US" // Unsigned Short (2 bytes fixed)
	UT VR = "UT" // Unlimited Text
)

// IsExplicitLength returns true if the VR uses a 2-byte length in explicit VR.
// Otherwise it uses a 4-byte length after 2 reserved bytes.
func (v VR) IsExplicitLength() bool {
	switch v {
	case OB, OD, OF, OL, OW, SQ, UC, UN, UR, UT:
		return false
	default:
		return true
	}
}

// IsString returns true if this VR contains string data
func (v VR) IsString() bool {
	switch v {
	case AE, AS, CS, DA, DS, DT, IS, LO, LT, PN, SH, ST, TM, UC, UI, UR, UT:
		return true
	default:
		return false
	}
}

// IsSequence returns true if this is a sequence VR
func (v VR) IsSequence() bool {
	return v == SQ
}

// Padding returns the byte used to pad odd-length values
func (v VR) Padding() byte {
	if v == UI || !v.IsString() {
		return 0x00
	}
	return ' '
}

// maxDS is the longest value a single DS component may carry
const maxDS = 16

// FormatDS renders a float as a Decimal String component no longer than 16 bytes
func FormatDS(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if len(s) <= maxDS {
		return s
	}
	// trade precision for length, fixed point first then exponent form
	for prec := maxDS; prec >= 0; prec-- {
		s = strconv.FormatFloat(f, 'f', prec, 64)
		if len(s) <= maxDS {
			return s
		}
	}
	for prec := maxDS; prec >= 0; prec-- {
		s = strconv.FormatFloat(f, 'e', prec, 64)
		if len(s) <= maxDS {
			return s
		}
	}
	return s
}

// ParseDS splits a backslash separated Decimal String into floats
func ParseDS(s string) ([]float64, error) {
	parts := strings.Split(strings.Trim(s, " \x00"), `\`)
	res := make([]float64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		f, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, err
		}
		res = append(res, f)
	}
	return res, nil
}

// ParseIS splits a backslash separated Integer String into ints
func ParseIS(s string) ([]int, error) {
	parts := strings.Split(strings.Trim(s, " \x00"), `\`)
	res := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		i, err := strconv.Atoi(strings.TrimPrefix(p, "+"))
		if err != nil {
			// some writers emit IS values as decimals
			f, ferr := strconv.ParseFloat(p, 64)
			if ferr != nil {
				return nil, err
			}
			i = int(f)
		}
		res = append(res, i)
	}
	return res, nil
}
