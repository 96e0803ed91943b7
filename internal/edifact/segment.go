// Package edifact models the outbound EDIFACT segments and renders them to
// the line-oriented wire grammar.
//
// Each segment renders to one line: a three-letter tag, '+'-separated data
// elements, ':'-separated components, and a terminating apostrophe. The
// grammar is parsed positionally downstream, so literal qualifier and
// version tokens must never change.
package edifact

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ehr/gateway/internal/sequence"
)

const (
	elementSep   = "+"
	componentSep = ":"
	terminator   = "'"
	releaseChars = "+:'?"
)

var (
	// ErrSegmentValidation is returned when a segment fails its structural
	// self-check.
	ErrSegmentValidation = errors.New("edifact: segment validation failed")

	// ErrAlreadyAssigned is returned when a sequence slot is filled twice.
	ErrAlreadyAssigned = errors.New("edifact: sequence number already assigned")
)

// Segment is one EDIFACT line. The set of implementations is closed to this
// package.
type Segment interface {
	// Tag is the three-letter segment code, e.g. "UNB".
	Tag() string
	// PreValidate checks the fields known before sequence numbers are
	// allocated.
	PreValidate() error
	// Validate checks the complete segment, including sequence slots.
	Validate() error
	// EDIFACT renders the segment as a single wire line.
	EDIFACT() string

	segment()
}

// Slot holds a sequence number that starts unset and is filled exactly once.
type Slot struct {
	id  sequence.ID
	set bool
}

// Assign fills the slot. A second call fails with ErrAlreadyAssigned.
func (s *Slot) Assign(id sequence.ID) error {
	if s.set {
		return ErrAlreadyAssigned
	}
	s.id = id
	s.set = true
	return nil
}

// Value returns the assigned id and whether the slot has been filled.
func (s Slot) Value() (sequence.ID, bool) {
	return s.id, s.set
}

// IsSet reports whether the slot has been filled.
func (s Slot) IsSet() bool {
	return s.set
}

// render is the zero-padded 8-digit form; an unset slot renders empty.
func (s Slot) render() string {
	if !s.set {
		return ""
	}
	return s.id.String()
}

// line joins elements into one terminated segment line.
func line(tag string, elements ...string) string {
	return tag + elementSep + strings.Join(elements, elementSep) + terminator
}

func components(parts ...string) string {
	return strings.Join(parts, componentSep)
}

func invalid(tag, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s: %s", ErrSegmentValidation, tag, fmt.Sprintf(format, args...))
}

// requireValue rejects empty values and values containing service characters.
func requireValue(tag, field, value string) error {
	if value == "" {
		return invalid(tag, "%s is required", field)
	}
	if strings.ContainsAny(value, releaseChars) {
		return invalid(tag, "%s %q contains a reserved character", field, value)
	}
	return nil
}

func requireSlot(tag, field string, s Slot) error {
	if !s.set {
		return invalid(tag, "%s has not been assigned", field)
	}
	if s.id == 0 || s.id > sequence.MaxID {
		return invalid(tag, "%s %d is outside 1..%d", field, uint64(s.id), uint64(sequence.MaxID))
	}
	return nil
}

// PreValidateAll runs PreValidate on every segment, stopping at the first
// failure.
func PreValidateAll(segments []Segment) error {
	for i, seg := range segments {
		if err := seg.PreValidate(); err != nil {
			return fmt.Errorf("segment %d: %w", i, err)
		}
	}
	return nil
}

// Serialize renders segments one per line in order.
func Serialize(segments []Segment) string {
	lines := make([]string, len(segments))
	for i, seg := range segments {
		lines[i] = seg.EDIFACT()
	}
	return strings.Join(lines, "\n")
}
