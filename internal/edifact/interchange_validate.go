package edifact

import (
	"fmt"

	"github.com/ehr/gateway/internal/sequence"
)

// Identifiers are the three sequence numbers allocated for one interchange.
type Identifiers struct {
	Interchange sequence.ID
	Message     sequence.ID
	Transaction sequence.ID
}

// AssignIdentifiers fills every sequence slot in segments: the interchange
// id goes to UNB and UNZ, the message id to UNH and UNT, and the
// transaction id to RFF+TN. Segments without a slot are left untouched.
func AssignIdentifiers(segments []Segment, ids Identifiers) error {
	for i, seg := range segments {
		var err error
		switch s := seg.(type) {
		case *InterchangeHeader:
			err = s.SequenceNumber.Assign(ids.Interchange)
		case *InterchangeTrailer:
			err = s.SequenceNumber.Assign(ids.Interchange)
		case *MessageHeader:
			err = s.SequenceNumber.Assign(ids.Message)
		case *MessageTrailer:
			err = s.SequenceNumber.Assign(ids.Message)
		case *ReferenceTransactionNumber:
			err = s.Reference.Assign(ids.Transaction)
		case *BeginningOfMessage, *NameAndAddress, *DateTimePeriod, *SegmentGroup:
		default:
			err = fmt.Errorf("edifact: no identifier mapping for segment %T", seg)
		}
		if err != nil {
			return fmt.Errorf("segment %d (%s): %w", i, seg.Tag(), err)
		}
	}
	return nil
}

// ValidateInterchange checks a fully assigned segment list: every segment
// validates, exactly one UNB/UNZ pair bounds the list, message headers and
// trailers pair up with matching ids and segment counts, and UNZ declares
// the number of messages actually present.
func ValidateInterchange(segments []Segment) error {
	if len(segments) < 2 {
		return fmt.Errorf("%w: interchange needs at least UNB and UNZ, got %d segments", ErrSegmentValidation, len(segments))
	}
	for i, seg := range segments {
		if err := seg.Validate(); err != nil {
			return fmt.Errorf("segment %d: %w", i, err)
		}
	}

	header, ok := segments[0].(*InterchangeHeader)
	if !ok {
		return fmt.Errorf("%w: interchange must open with UNB, got %s", ErrSegmentValidation, segments[0].Tag())
	}
	trailer, ok := segments[len(segments)-1].(*InterchangeTrailer)
	if !ok {
		return fmt.Errorf("%w: interchange must close with UNZ, got %s", ErrSegmentValidation, segments[len(segments)-1].Tag())
	}
	if header.SequenceNumber != trailer.SequenceNumber {
		return fmt.Errorf("%w: UNB and UNZ sequence numbers differ", ErrSegmentValidation)
	}

	messages := 0
	var open *MessageHeader
	openAt := 0
	for i, seg := range segments[1 : len(segments)-1] {
		pos := i + 1
		switch s := seg.(type) {
		case *InterchangeHeader, *InterchangeTrailer:
			return fmt.Errorf("%w: unexpected %s at segment %d", ErrSegmentValidation, s.Tag(), pos)
		case *MessageHeader:
			if open != nil {
				return fmt.Errorf("%w: UNH at segment %d before UNT closed message at %d", ErrSegmentValidation, pos, openAt)
			}
			open, openAt = s, pos
		case *MessageTrailer:
			if open == nil {
				return fmt.Errorf("%w: UNT at segment %d without UNH", ErrSegmentValidation, pos)
			}
			if open.SequenceNumber != s.SequenceNumber {
				return fmt.Errorf("%w: UNH and UNT sequence numbers differ for message at %d", ErrSegmentValidation, openAt)
			}
			if got := pos - openAt + 1; got != s.NumberOfSegments {
				return fmt.Errorf("%w: UNT declares %d segments, message has %d", ErrSegmentValidation, s.NumberOfSegments, got)
			}
			open = nil
			messages++
		default:
			if open == nil {
				return fmt.Errorf("%w: %s at segment %d outside a message", ErrSegmentValidation, s.Tag(), pos)
			}
		}
	}
	if open != nil {
		return fmt.Errorf("%w: message opened at segment %d is not closed", ErrSegmentValidation, openAt)
	}
	if messages != trailer.NumberOfMessages {
		return fmt.Errorf("%w: UNZ declares %d messages, interchange has %d", ErrSegmentValidation, trailer.NumberOfMessages, messages)
	}
	return nil
}
