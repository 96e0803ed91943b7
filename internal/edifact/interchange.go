package edifact

import (
	"strconv"
	"time"
)

const (
	// syntaxIdentifier is UNOA, syntax version 2.
	syntaxIdentifier = "UNOA:2"

	interchangeTimeLayout = "060102:1504"
)

// InterchangeHeader is the UNB segment opening an interchange.
type InterchangeHeader struct {
	Sender         string
	Recipient      string
	DateTime       time.Time
	SequenceNumber Slot
}

func (*InterchangeHeader) segment() {}

// Tag implements Segment.
func (*InterchangeHeader) Tag() string { return "UNB" }

// PreValidate implements Segment.
func (h *InterchangeHeader) PreValidate() error {
	if err := requireValue("UNB", "sender", h.Sender); err != nil {
		return err
	}
	if err := requireValue("UNB", "recipient", h.Recipient); err != nil {
		return err
	}
	if h.DateTime.IsZero() {
		return invalid("UNB", "date_time is required")
	}
	return nil
}

// Validate implements Segment.
func (h *InterchangeHeader) Validate() error {
	if err := h.PreValidate(); err != nil {
		return err
	}
	return requireSlot("UNB", "sequence_number", h.SequenceNumber)
}

// EDIFACT implements Segment.
//
//	UNB+UNOA:2+<sender>+<recipient>+<YYMMDD:HHMM>+<interchange seq>'
func (h *InterchangeHeader) EDIFACT() string {
	return line("UNB",
		syntaxIdentifier,
		h.Sender,
		h.Recipient,
		h.DateTime.UTC().Format(interchangeTimeLayout),
		h.SequenceNumber.render(),
	)
}

// InterchangeTrailer is the UNZ segment closing an interchange.
type InterchangeTrailer struct {
	NumberOfMessages int
	SequenceNumber   Slot
}

func (*InterchangeTrailer) segment() {}

// Tag implements Segment.
func (*InterchangeTrailer) Tag() string { return "UNZ" }

// PreValidate implements Segment.
func (t *InterchangeTrailer) PreValidate() error {
	if t.NumberOfMessages < 1 {
		return invalid("UNZ", "number_of_messages must be positive, got %d", t.NumberOfMessages)
	}
	return nil
}

// Validate implements Segment.
func (t *InterchangeTrailer) Validate() error {
	if err := t.PreValidate(); err != nil {
		return err
	}
	return requireSlot("UNZ", "sequence_number", t.SequenceNumber)
}

// EDIFACT implements Segment.
//
//	UNZ+<number of messages>+<interchange seq>'
func (t *InterchangeTrailer) EDIFACT() string {
	return line("UNZ", strconv.Itoa(t.NumberOfMessages), t.SequenceNumber.render())
}
