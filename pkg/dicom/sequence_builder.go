package dicom

import (
	"errors"
	"fmt"
)

// SequenceBuilder assembles the items of one SQ element.
//
// Errors from AddItem are collected and reported by Build, so item
// construction can be chained inside loops:
//
//	contours := dicom.NewSequenceBuilder(tag.ContourSequence)
//	for i, c := range roi.Contours {
//		contours.AddItem(
//			dicom.WithElement(tag.ContourNumber, i+1),
//			dicom.WithElement(tag.ContourData, c.Flatten()),
//		)
//	}
//	opt, err := contours.Build()
type SequenceBuilder struct {
	tag   Tag
	items []*Dataset
	errs  []error
}

// NewSequenceBuilder creates a builder for the SQ element t
func NewSequenceBuilder(t Tag) *SequenceBuilder {
	return &SequenceBuilder{tag: t}
}

// AddItem appends an item built from opts
func (sb *SequenceBuilder) AddItem(opts ...Option) *SequenceBuilder {
	item, err := NewDataset(opts...)
	if err != nil {
		sb.errs = append(sb.errs, fmt.Errorf("%v item %d: %w", sb.tag, len(sb.items)+len(sb.errs), err))
		return sb
	}
	sb.items = append(sb.items, item)
	return sb
}

// AddBuilder nests another sequence into a new item of this one, together with opts
func (sb *SequenceBuilder) AddBuilder(nested *SequenceBuilder, opts ...Option) *SequenceBuilder {
	opt, err := nested.Build()
	if err != nil {
		sb.errs = append(sb.errs, err)
		return sb
	}
	return sb.AddItem(append(opts, opt)...)
}

// Count returns the number of items currently in the sequence
func (sb *SequenceBuilder) Count() int {
	return len(sb.items)
}

// HasErrors returns true if any item failed to build
func (sb *SequenceBuilder) HasErrors() bool {
	return len(sb.errs) > 0
}

// Errors returns all accumulated errors
func (sb *SequenceBuilder) Errors() []error {
	return sb.errs
}

// Build returns an Option that adds the sequence to a dataset
func (sb *SequenceBuilder) Build() (Option, error) {
	if len(sb.errs) > 0 {
		return nil, fmt.Errorf("sequence %v has %d error(s): %w", sb.tag, len(sb.errs), errors.Join(sb.errs...))
	}
	return WithSequence(sb.tag, sb.items...), nil
}

// BuildDataset creates a standalone dataset containing only this sequence
func (sb *SequenceBuilder) BuildDataset() (*Dataset, error) {
	opt, err := sb.Build()
	if err != nil {
		return nil, err
	}
	return NewDataset(opt)
}
