package itk

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

type testMessage struct {
	action        string
	service       string
	manifestCount string
	manifestIDs   []string
	payloadCount  string
	payloadIDs    []string
}

func validMessage() testMessage {
	return testMessage{
		action:        "X",
		service:       "X",
		manifestCount: "2",
		manifestIDs:   []string{"1", "2"},
		payloadCount:  "2",
		payloadIDs:    []string{"1", "2"},
	}
}

func (m testMessage) xml() []byte {
	var items, payloads strings.Builder
	for _, id := range m.manifestIDs {
		fmt.Fprintf(&items, `<itk:manifestitem id=%q mimetype="text/xml"/>`, id)
	}
	for _, id := range m.payloadIDs {
		fmt.Fprintf(&payloads, `<itk:payload id=%q><content/></itk:payload>`, id)
	}
	return []byte(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/" xmlns:wsa="http://www.w3.org/2005/08/addressing" xmlns:itk="urn:nhs-itk:ns:201005">
  <soap:Header>
    <wsa:MessageID>uuid_6B2E3F7A-1C1B-4E6B-9C5B-2A8A4E3B5F1D</wsa:MessageID>
    <wsa:Action>%s</wsa:Action>
  </soap:Header>
  <soap:Body>
    <itk:DistributionEnvelope>
      <itk:header service=%q trackingid="A7D9F1F4-5B1C-4C68-9F5E-0F0E3C2D1B6A">
        <itk:manifest count=%q>%s</itk:manifest>
      </itk:header>
      <itk:payloads count=%q>%s</itk:payloads>
    </itk:DistributionEnvelope>
  </soap:Body>
</soap:Envelope>`, m.action, m.service, m.manifestCount, items.String(), m.payloadCount, payloads.String()))
}

func newTestValidator(t *testing.T) (*Validator, *TemplateRenderer) {
	t.Helper()
	r, err := NewTemplateRenderer()
	if err != nil {
		t.Fatalf("NewTemplateRenderer() error: %v", err)
	}
	return NewValidator(r, zerolog.Nop()), r
}

func TestEvaluate_Success(t *testing.T) {
	v, r := newTestValidator(t)

	result, err := v.Evaluate(validMessage().xml())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != http.StatusOK {
		t.Errorf("expected 200, got %d", result.Status)
	}
	if result.Body != r.Success() {
		t.Errorf("expected success body, got %s", result.Body)
	}
}

func TestEvaluate_SingleFailures(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*testMessage)
		message string
	}{
		{"action mismatch", func(m *testMessage) { m.service = "Y" }, MessageActionMismatch},
		{"action case differs", func(m *testMessage) { m.service = "x" }, MessageActionMismatch},
		{"declared counts differ", func(m *testMessage) { m.payloadCount = "3" }, MessageManifestPayloadCount},
		{"manifest items short", func(m *testMessage) {
			m.manifestIDs = []string{"1"}
			m.payloadIDs = []string{"1", "2"}
		}, MessageManifestInstanceCount},
		{"payload id not in manifest", func(m *testMessage) { m.payloadIDs = []string{"1", "3"} }, MessagePayloadIDMismatch},
	}

	v, r := newTestValidator(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := validMessage()
			tt.mutate(&m)

			result, err := v.Evaluate(m.xml())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.Status != http.StatusInternalServerError {
				t.Errorf("expected 500, got %d", result.Status)
			}
			want, _ := r.Error(tt.message)
			if result.Body != want {
				t.Errorf("expected templated body for %q, got %s", tt.message, result.Body)
			}
			if !strings.Contains(result.Body, tt.message) {
				t.Errorf("expected body to contain %q", tt.message)
			}
		})
	}
}

func TestEvaluate_PayloadCountUsesGenericFault(t *testing.T) {
	v, r := newTestValidator(t)

	m := validMessage()
	// Payload id "9" would also fail the id check, which must not be reached.
	m.payloadIDs = []string{"9"}

	result, err := v.Evaluate(m.xml())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", result.Status)
	}
	if result.Body != r.Fault() {
		t.Errorf("expected generic fault body, got %s", result.Body)
	}
	if strings.Contains(result.Body, MessagePayloadIDMismatch) {
		t.Error("generic fault body must not carry a parameterised message")
	}
}

func TestEvaluate_OrderIsLoadBearing(t *testing.T) {
	v, r := newTestValidator(t)

	// Violates check 1 (action) and check 3 (manifest items).
	m := validMessage()
	m.service = "Y"
	m.manifestIDs = []string{"1"}
	m.payloadIDs = []string{"1", "2"}

	result, err := v.Evaluate(m.xml())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want, _ := r.Error(MessageActionMismatch)
	if result.Body != want {
		t.Errorf("expected action mismatch fault, got %s", result.Body)
	}
}

func TestEvaluate_ReverseContainmentTolerated(t *testing.T) {
	v, _ := newTestValidator(t)

	// Manifest lists id "3" with no matching payload; counts stay consistent.
	m := validMessage()
	m.manifestIDs = []string{"1", "3"}
	m.payloadIDs = []string{"1", "1"}

	result, err := v.Evaluate(m.xml())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != http.StatusOK {
		t.Errorf("expected 200 when manifest has extra ids, got %d: %s", result.Status, result.Body)
	}
}

func TestEvaluate_Idempotent(t *testing.T) {
	v, _ := newTestValidator(t)

	for _, m := range []testMessage{validMessage(), func() testMessage {
		m := validMessage()
		m.payloadIDs = []string{"1", "3"}
		return m
	}()} {
		raw := m.xml()
		first, err1 := v.Evaluate(raw)
		second, err2 := v.Evaluate(raw)
		if err1 != nil || err2 != nil {
			t.Fatalf("unexpected errors: %v, %v", err1, err2)
		}
		if first != second {
			t.Errorf("re-validation changed result: %+v vs %+v", first, second)
		}
	}
}

func TestEvaluate_MissingActionIsNotAFault(t *testing.T) {
	v, _ := newTestValidator(t)

	m := validMessage()
	m.action = ""
	m.service = ""

	result, err := v.Evaluate(m.xml())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != http.StatusOK {
		t.Errorf("expected 200 when action and service are both empty, got %d", result.Status)
	}
}

func TestEvaluate_MalformedInput(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"not xml", "this is not xml"},
		{"unclosed", `<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/"><soap:Body>`},
		{"wrong root", `<Envelope/>`},
		{"unclosed element after root", string(validMessage().xml()) + "<junk"},
		{"stray end tag after root", string(validMessage().xml()) + "</soap:Envelope>"},
		{"second root", string(validMessage().xml()) + "<second/>"},
		{"text after root", string(validMessage().xml()) + "garbage &&&"},
	}

	v, _ := newTestValidator(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Evaluate([]byte(tt.raw))
			if !errors.Is(err, ErrMalformedInput) {
				t.Errorf("expected ErrMalformedInput, got %v", err)
			}
		})
	}
}

func TestEvaluate_TrailingMiscAccepted(t *testing.T) {
	tests := []struct {
		name   string
		suffix string
	}{
		{"whitespace", "\n\t \n"},
		{"comment", "\n<!-- relayed -->\n"},
		{"processing instruction", `<?relay hop="1"?>`},
	}

	v, _ := newTestValidator(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := append(validMessage().xml(), tt.suffix...)
			result, err := v.Evaluate(raw)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.Status != http.StatusOK {
				t.Errorf("expected 200, got %d", result.Status)
			}
		})
	}
}

func TestEvaluate_PaddedCounts(t *testing.T) {
	v, _ := newTestValidator(t)

	m := validMessage()
	m.manifestCount = " 1"
	m.manifestIDs = []string{"1"}
	m.payloadCount = " 1"
	m.payloadIDs = []string{"1"}

	result, err := v.Evaluate(m.xml())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != http.StatusOK {
		t.Errorf("expected 200 for padded counts, got %d: %s", result.Status, result.Body)
	}
}

func TestEvaluate_PaddedCountStillComparedRaw(t *testing.T) {
	v, r := newTestValidator(t)

	m := validMessage()
	m.manifestCount = " 2"

	result, err := v.Evaluate(m.xml())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want, _ := r.Error(MessageManifestPayloadCount)
	if result.Body != want {
		t.Errorf("expected declared count mismatch, got %s", result.Body)
	}
}

func TestEvaluate_MissingStructuralElements(t *testing.T) {
	v, _ := newTestValidator(t)

	noManifest := []byte(`<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/" xmlns:wsa="http://www.w3.org/2005/08/addressing" xmlns:itk="urn:nhs-itk:ns:201005">
  <soap:Header><wsa:Action>X</wsa:Action></soap:Header>
  <soap:Body><itk:DistributionEnvelope>
    <itk:header service="X"/>
    <itk:payloads count="0"/>
  </itk:DistributionEnvelope></soap:Body>
</soap:Envelope>`)
	if _, err := v.Evaluate(noManifest); !errors.Is(err, ErrMalformedInput) {
		t.Errorf("missing manifest: expected ErrMalformedInput, got %v", err)
	}

	m := validMessage()
	m.manifestCount = "two"
	m.payloadCount = "two"
	if _, err := v.Evaluate(m.xml()); !errors.Is(err, ErrMalformedInput) {
		t.Errorf("non-numeric count: expected ErrMalformedInput, got %v", err)
	}
}

func TestEvaluate_ActionCheckedBeforeStructure(t *testing.T) {
	v, r := newTestValidator(t)

	// No manifest at all, but the action check fails first.
	raw := []byte(`<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/" xmlns:wsa="http://www.w3.org/2005/08/addressing" xmlns:itk="urn:nhs-itk:ns:201005">
  <soap:Header><wsa:Action>X</wsa:Action></soap:Header>
  <soap:Body><itk:DistributionEnvelope><itk:header service="Y"/></itk:DistributionEnvelope></soap:Body>
</soap:Envelope>`)
	result, err := v.Evaluate(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want, _ := r.Error(MessageActionMismatch)
	if result.Body != want {
		t.Errorf("expected action mismatch fault, got %s", result.Body)
	}
}

func TestRenderer_EscapesMessage(t *testing.T) {
	r, err := NewTemplateRenderer()
	if err != nil {
		t.Fatalf("NewTemplateRenderer() error: %v", err)
	}
	body, err := r.Error(`a < b & "c"`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(body, "a &lt; b &amp; &#34;c&#34;") {
		t.Errorf("expected escaped message, got %s", body)
	}
}
