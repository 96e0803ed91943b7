package edifact

import (
	"strconv"
	"time"
)

// Fixed message-level tokens of the FHSREG registration message.
const (
	messageType = "FHSREG:0:1:FH:FHS001"

	// BGM document code for a registration message.
	registrationDocumentCode = "507"

	// NAD party qualifier and code-list agency for a health authority.
	PartyQualifierHealthAuthority = "FHS"
	PartyCodeListHealthAuthority  = "954"

	// DTM qualifiers.
	DateTimeTranslation = "137"
	DateTimeEvent       = "206"

	// RFF qualifier for the transaction number.
	referenceTransactionNumber = "TN"
)

// dtmFormats maps a DTM qualifier to its format code and Go layout.
var dtmFormats = map[string]struct {
	code   string
	layout string
}{
	DateTimeTranslation: {code: "203", layout: "200601021504"},
	DateTimeEvent:       {code: "102", layout: "20060102"},
}

// MessageHeader is the UNH segment opening a message.
type MessageHeader struct {
	SequenceNumber Slot
}

func (*MessageHeader) segment() {}

// Tag implements Segment.
func (*MessageHeader) Tag() string { return "UNH" }

// PreValidate implements Segment.
func (*MessageHeader) PreValidate() error { return nil }

// Validate implements Segment.
func (h *MessageHeader) Validate() error {
	return requireSlot("UNH", "sequence_number", h.SequenceNumber)
}

// EDIFACT implements Segment.
//
//	UNH+<message seq>+FHSREG:0:1:FH:FHS001'
func (h *MessageHeader) EDIFACT() string {
	return line("UNH", h.SequenceNumber.render(), messageType)
}

// MessageTrailer is the UNT segment closing a message. NumberOfSegments
// counts every segment from UNH to UNT inclusive.
type MessageTrailer struct {
	NumberOfSegments int
	SequenceNumber   Slot
}

func (*MessageTrailer) segment() {}

// Tag implements Segment.
func (*MessageTrailer) Tag() string { return "UNT" }

// PreValidate implements Segment.
func (t *MessageTrailer) PreValidate() error {
	if t.NumberOfSegments < 2 {
		return invalid("UNT", "number_of_segments must be at least 2, got %d", t.NumberOfSegments)
	}
	return nil
}

// Validate implements Segment.
func (t *MessageTrailer) Validate() error {
	if err := t.PreValidate(); err != nil {
		return err
	}
	return requireSlot("UNT", "sequence_number", t.SequenceNumber)
}

// EDIFACT implements Segment.
//
//	UNT+<segment count>+<message seq>'
func (t *MessageTrailer) EDIFACT() string {
	return line("UNT", strconv.Itoa(t.NumberOfSegments), t.SequenceNumber.render())
}

// BeginningOfMessage is the BGM segment.
type BeginningOfMessage struct{}

func (*BeginningOfMessage) segment() {}

// Tag implements Segment.
func (*BeginningOfMessage) Tag() string { return "BGM" }

// PreValidate implements Segment.
func (*BeginningOfMessage) PreValidate() error { return nil }

// Validate implements Segment.
func (*BeginningOfMessage) Validate() error { return nil }

// EDIFACT implements Segment.
func (*BeginningOfMessage) EDIFACT() string {
	return line("BGM", "", "", registrationDocumentCode)
}

// NameAndAddress is the NAD segment identifying a party.
type NameAndAddress struct {
	Qualifier string
	PartyID   string
	CodeList  string
}

func (*NameAndAddress) segment() {}

// Tag implements Segment.
func (*NameAndAddress) Tag() string { return "NAD" }

// PreValidate implements Segment.
func (n *NameAndAddress) PreValidate() error {
	if err := requireValue("NAD", "qualifier", n.Qualifier); err != nil {
		return err
	}
	if err := requireValue("NAD", "party_id", n.PartyID); err != nil {
		return err
	}
	return requireValue("NAD", "code_list", n.CodeList)
}

// Validate implements Segment.
func (n *NameAndAddress) Validate() error { return n.PreValidate() }

// EDIFACT implements Segment.
//
//	NAD+<qualifier>+<party id>:<code list>'
func (n *NameAndAddress) EDIFACT() string {
	return line("NAD", n.Qualifier, components(n.PartyID, n.CodeList))
}

// DateTimePeriod is the DTM segment.
type DateTimePeriod struct {
	Qualifier string
	Timestamp time.Time
}

func (*DateTimePeriod) segment() {}

// Tag implements Segment.
func (*DateTimePeriod) Tag() string { return "DTM" }

// PreValidate implements Segment.
func (d *DateTimePeriod) PreValidate() error {
	if _, ok := dtmFormats[d.Qualifier]; !ok {
		return invalid("DTM", "unsupported qualifier %q", d.Qualifier)
	}
	if d.Timestamp.IsZero() {
		return invalid("DTM", "timestamp is required")
	}
	return nil
}

// Validate implements Segment.
func (d *DateTimePeriod) Validate() error { return d.PreValidate() }

// EDIFACT implements Segment.
//
//	DTM+<qualifier>:<value>:<format code>'
func (d *DateTimePeriod) EDIFACT() string {
	f := dtmFormats[d.Qualifier]
	return line("DTM", components(d.Qualifier, d.Timestamp.UTC().Format(f.layout), f.code))
}

// SegmentGroup is the S0n segment opening a numbered segment group.
type SegmentGroup struct {
	Group int
	Count int
}

func (*SegmentGroup) segment() {}

// Tag implements Segment.
func (g *SegmentGroup) Tag() string { return "S" + leftPad(strconv.Itoa(g.Group), 2) }

// PreValidate implements Segment.
func (g *SegmentGroup) PreValidate() error {
	if g.Group < 1 || g.Group > 99 {
		return invalid("S", "group %d outside 1..99", g.Group)
	}
	if g.Count < 1 {
		return invalid(g.Tag(), "count must be positive, got %d", g.Count)
	}
	return nil
}

// Validate implements Segment.
func (g *SegmentGroup) Validate() error { return g.PreValidate() }

// EDIFACT implements Segment.
func (g *SegmentGroup) EDIFACT() string {
	return line(g.Tag(), strconv.Itoa(g.Count))
}

// ReferenceTransactionNumber is the RFF+TN segment carrying the
// transaction number. Unlike the interchange and message numbers the
// reference renders without padding.
type ReferenceTransactionNumber struct {
	Reference Slot
}

func (*ReferenceTransactionNumber) segment() {}

// Tag implements Segment.
func (*ReferenceTransactionNumber) Tag() string { return "RFF" }

// PreValidate implements Segment.
func (*ReferenceTransactionNumber) PreValidate() error { return nil }

// Validate implements Segment.
func (r *ReferenceTransactionNumber) Validate() error {
	return requireSlot("RFF", "reference", r.Reference)
}

// EDIFACT implements Segment.
//
//	RFF+TN:<transaction number>'
func (r *ReferenceTransactionNumber) EDIFACT() string {
	ref := ""
	if id, ok := r.Reference.Value(); ok {
		ref = strconv.FormatUint(uint64(id), 10)
	}
	return line("RFF", components(referenceTransactionNumber, ref))
}

func leftPad(s string, width int) string {
	for len(s) < width {
		s = "0" + s
	}
	return s
}
