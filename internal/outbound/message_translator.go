package outbound

import (
	"time"

	"github.com/gofhir/fhir/r4"

	"github.com/ehr/gateway/internal/edifact"
)

// MessageTranslator maps a patient record to the segments of exactly one
// EDIFACT message, UNH through UNT.
type MessageTranslator interface {
	Translate(patient *r4.Patient, timestamp time.Time) ([]edifact.Segment, error)
}

// RegistrationMessageTranslator produces the FHSREG registration message:
// UNH, BGM, NAD, DTM, S01, RFF+TN, UNT.
type RegistrationMessageTranslator struct{}

// NewRegistrationMessageTranslator creates the default message mapper.
func NewRegistrationMessageTranslator() *RegistrationMessageTranslator {
	return &RegistrationMessageTranslator{}
}

// Translate implements MessageTranslator.
func (RegistrationMessageTranslator) Translate(patient *r4.Patient, timestamp time.Time) ([]edifact.Segment, error) {
	ha, err := HealthAuthorityIdentifier(patient)
	if err != nil {
		return nil, err
	}

	segments := []edifact.Segment{
		&edifact.MessageHeader{},
		&edifact.BeginningOfMessage{},
		&edifact.NameAndAddress{
			Qualifier: edifact.PartyQualifierHealthAuthority,
			PartyID:   ha,
			CodeList:  edifact.PartyCodeListHealthAuthority,
		},
		&edifact.DateTimePeriod{Qualifier: edifact.DateTimeTranslation, Timestamp: timestamp},
		&edifact.SegmentGroup{Group: 1, Count: 1},
		&edifact.ReferenceTransactionNumber{},
	}
	// UNT counts itself.
	segments = append(segments, &edifact.MessageTrailer{NumberOfSegments: len(segments) + 1})
	return segments, nil
}
