package outbound

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gofhir/fhir/r4"
)

var (
	// ErrMissingPractitioner is returned when the record lists no
	// responsible practitioner identifier.
	ErrMissingPractitioner = errors.New("outbound: patient has no general practitioner identifier")

	// ErrMissingHealthAuthority is returned when the recipient health
	// authority cannot be derived from the record.
	ErrMissingHealthAuthority = errors.New("outbound: patient has no managing organization identifier")

	// ErrNotPatient is returned by DecodePatient for any other resource type.
	ErrNotPatient = errors.New("outbound: resource is not a Patient")
)

// DecodePatient decodes a FHIR R4 Patient resource from JSON.
func DecodePatient(data []byte) (*r4.Patient, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("outbound: patient resource is empty")
	}
	var head struct {
		ResourceType string `json:"resourceType"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("outbound: decode patient: %w", err)
	}
	if head.ResourceType != "Patient" {
		return nil, fmt.Errorf("%w: resourceType %q", ErrNotPatient, head.ResourceType)
	}

	var p r4.Patient
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("outbound: decode patient: %w", err)
	}
	return &p, nil
}

// PractitionerIdentifier returns the identifier value of the patient's
// first listed general practitioner. It is the interchange sender.
func PractitionerIdentifier(p *r4.Patient) (string, error) {
	if p == nil || len(p.GeneralPractitioner) == 0 {
		return "", ErrMissingPractitioner
	}
	gp := p.GeneralPractitioner[0]
	if gp.Identifier == nil || gp.Identifier.Value == nil || *gp.Identifier.Value == "" {
		return "", ErrMissingPractitioner
	}
	return *gp.Identifier.Value, nil
}

// HealthAuthorityIdentifier returns the identifier of the health authority
// responsible for the patient, taken from the managing organization. It is
// the interchange recipient and the NAD party.
func HealthAuthorityIdentifier(p *r4.Patient) (string, error) {
	if p == nil || p.ManagingOrganization == nil {
		return "", ErrMissingHealthAuthority
	}
	org := p.ManagingOrganization
	if org.Identifier == nil || org.Identifier.Value == nil || *org.Identifier.Value == "" {
		return "", ErrMissingHealthAuthority
	}
	return *org.Identifier.Value, nil
}
