// Package module holds the IOD modules written into RT Structure Set and image datasets
package module

import (
	"fmt"
	"strings"
	"time"

	"github.com/jpfielding/rtss.go/pkg/dicom/tag"
)

// Date represents a DICOM Date (DA VR). The zero Date encodes as an empty value.
type Date struct {
	Year  int
	Month int
	Day   int
}

func (d Date) String() string {
	if d == (Date{}) {
		return ""
	}
	return fmt.Sprintf("%04d%02d%02d", d.Year, d.Month, d.Day)
}

func NewDate(t time.Time) Date {
	return Date{
		Year:  t.Year(),
		Month: int(t.Month()),
		Day:   t.Day(),
	}
}

// ParseDate reads a YYYYMMDD value; empty input yields the zero Date
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, nil
	}
	t, err := time.Parse("20060102", s)
	if err != nil {
		return Date{}, fmt.Errorf("parsing date %q: %w", s, err)
	}
	return NewDate(t), nil
}

// Time represents a DICOM Time (TM VR). The zero Time encodes as an empty value.
type Time struct {
	Hour   int
	Minute int
	Second int
	Nano   int
	set    bool
}

func (t Time) String() string {
	if !t.set && t == (Time{}) {
		return ""
	}
	return fmt.Sprintf("%02d%02d%02d.%06d", t.Hour, t.Minute, t.Second, t.Nano/1000)
}

func NewTime(t time.Time) Time {
	return Time{
		Hour:   t.Hour(),
		Minute: t.Minute(),
		Second: t.Second(),
		Nano:   t.Nanosecond(),
		set:    true,
	}
}

// ParseTime reads an HHMMSS[.FFFFFF] value, accepting truncated forms
func ParseTime(s string) (Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Time{}, nil
	}
	whole, frac, _ := strings.Cut(s, ".")
	for len(whole) < 6 {
		whole += "0"
	}
	var t Time
	if _, err := fmt.Sscanf(whole, "%2d%2d%2d", &t.Hour, &t.Minute, &t.Second); err != nil {
		return Time{}, fmt.Errorf("parsing time %q: %w", s, err)
	}
	if frac != "" {
		for len(frac) < 9 {
			frac += "0"
		}
		if _, err := fmt.Sscanf(frac[:9], "%d", &t.Nano); err != nil {
			return Time{}, fmt.Errorf("parsing time %q: %w", s, err)
		}
	}
	t.set = true
	return t, nil
}

// PersonName represents a DICOM Person Name (PN VR)
type PersonName struct {
	FamilyName string
	GivenName  string
	MiddleName string
	Prefix     string
	Suffix     string
}

// String renders Family^Given^Middle^Prefix^Suffix without trailing empty components
func (p PersonName) String() string {
	s := strings.Join([]string{p.FamilyName, p.GivenName, p.MiddleName, p.Prefix, p.Suffix}, "^")
	return strings.TrimRight(s, "^")
}

// ParsePersonName splits a PN value into its components
func ParsePersonName(s string) PersonName {
	parts := strings.SplitN(strings.TrimSpace(s), "^", 5)
	for len(parts) < 5 {
		parts = append(parts, "")
	}
	return PersonName{
		FamilyName: parts[0],
		GivenName:  parts[1],
		MiddleName: parts[2],
		Prefix:     parts[3],
		Suffix:     parts[4],
	}
}

// IODModule is implemented by every module that can be written into a dataset
type IODModule interface {
	ToTags() []IODElement
}

type IODElement struct {
	Tag   tag.Tag
	Value interface{}
}
