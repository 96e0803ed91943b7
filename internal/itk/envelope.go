package itk

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Namespaces of the SOAP/ITK envelope.
const (
	NamespaceSOAP       = "http://schemas.xmlsoap.org/soap/envelope/"
	NamespaceAddressing = "http://www.w3.org/2005/08/addressing"
	NamespaceITK        = "urn:nhs-itk:ns:201005"
)

// ErrMalformedInput is returned when the document does not parse, or when an
// element or attribute the checks depend on is absent.
var ErrMalformedInput = errors.New("itk: malformed input")

type soapEnvelope struct {
	XMLName xml.Name     `xml:"http://schemas.xmlsoap.org/soap/envelope/ Envelope"`
	Headers []soapHeader `xml:"http://schemas.xmlsoap.org/soap/envelope/ Header"`
	Bodies  []soapBody   `xml:"http://schemas.xmlsoap.org/soap/envelope/ Body"`
}

type soapHeader struct {
	Actions []string `xml:"http://www.w3.org/2005/08/addressing Action"`
}

type soapBody struct {
	Distributions []distributionEnvelope `xml:"urn:nhs-itk:ns:201005 DistributionEnvelope"`
}

type distributionEnvelope struct {
	Headers  []itkHeader   `xml:"urn:nhs-itk:ns:201005 header"`
	Payloads []payloadList `xml:"urn:nhs-itk:ns:201005 payloads"`
}

type itkHeader struct {
	Service   *string    `xml:"service,attr"`
	Manifests []manifest `xml:"urn:nhs-itk:ns:201005 manifest"`
}

type manifest struct {
	Count *string   `xml:"count,attr"`
	Items []itemRef `xml:"urn:nhs-itk:ns:201005 manifestitem"`
}

type payloadList struct {
	Count    *string   `xml:"count,attr"`
	Payloads []itemRef `xml:"urn:nhs-itk:ns:201005 payload"`
}

type itemRef struct {
	ID *string `xml:"id,attr"`
}

// Envelope is a parsed inbound SOAP document carrying an ITK
// DistributionEnvelope. Parsing does not enforce any structural rule;
// the accessors report missing required parts as ErrMalformedInput when
// they are first needed.
type Envelope struct {
	action    string
	headers   []itkHeader
	manifests []manifest
	payloads  []payloadList
}

// ParseEnvelope parses raw once into an Envelope.
func ParseEnvelope(raw []byte) (*Envelope, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: message is empty", ErrMalformedInput)
	}

	var doc soapEnvelope
	dec := xml.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: failed to parse XML: %v", ErrMalformedInput, err)
	}
	if err := expectEnd(dec); err != nil {
		return nil, err
	}

	env := &Envelope{}
	// The last Action wins when several are present.
	for _, h := range doc.Headers {
		for _, a := range h.Actions {
			env.action = a
		}
	}
	for _, b := range doc.Bodies {
		for _, d := range b.Distributions {
			env.headers = append(env.headers, d.Headers...)
			for _, h := range d.Headers {
				env.manifests = append(env.manifests, h.Manifests...)
			}
			env.payloads = append(env.payloads, d.Payloads...)
		}
	}
	return env, nil
}

// Action returns the SOAP header Action, or "" when absent.
func (e *Envelope) Action() string {
	return e.action
}

// Service returns the service attribute of the ITK header, or "" when
// there is no header. A header without the attribute is malformed.
func (e *Envelope) Service() (string, error) {
	service := ""
	for _, h := range e.headers {
		if h.Service == nil {
			return "", fmt.Errorf("%w: header has no service attribute", ErrMalformedInput)
		}
		service = *h.Service
	}
	return service, nil
}

// ManifestTags is the number of manifest elements present.
func (e *Envelope) ManifestTags() int {
	return len(e.manifests)
}

// PayloadsTags is the number of payloads elements present.
func (e *Envelope) PayloadsTags() int {
	return len(e.payloads)
}

// ManifestCount returns the declared count attribute of the first manifest.
func (e *Envelope) ManifestCount() (string, error) {
	if len(e.manifests) == 0 {
		return "", fmt.Errorf("%w: no manifest element", ErrMalformedInput)
	}
	if e.manifests[0].Count == nil {
		return "", fmt.Errorf("%w: manifest has no count attribute", ErrMalformedInput)
	}
	return *e.manifests[0].Count, nil
}

// PayloadCount returns the declared count attribute of the first payloads
// element.
func (e *Envelope) PayloadCount() (string, error) {
	if len(e.payloads) == 0 {
		return "", fmt.Errorf("%w: no payloads element", ErrMalformedInput)
	}
	if e.payloads[0].Count == nil {
		return "", fmt.Errorf("%w: payloads has no count attribute", ErrMalformedInput)
	}
	return *e.payloads[0].Count, nil
}

// ManifestItems returns the number of manifestitem elements across all
// manifests.
func (e *Envelope) ManifestItems() int {
	n := 0
	for _, m := range e.manifests {
		n += len(m.Items)
	}
	return n
}

// PayloadItems returns the number of payload elements across all payloads
// elements.
func (e *Envelope) PayloadItems() int {
	n := 0
	for _, p := range e.payloads {
		n += len(p.Payloads)
	}
	return n
}

// ManifestIDs returns the id of every manifestitem in document order.
func (e *Envelope) ManifestIDs() ([]string, error) {
	var ids []string
	for _, m := range e.manifests {
		for _, item := range m.Items {
			if item.ID == nil {
				return nil, fmt.Errorf("%w: manifestitem has no id attribute", ErrMalformedInput)
			}
			ids = append(ids, *item.ID)
		}
	}
	return ids, nil
}

// PayloadIDs returns the id of every payload in document order.
func (e *Envelope) PayloadIDs() ([]string, error) {
	var ids []string
	for _, p := range e.payloads {
		for _, item := range p.Payloads {
			if item.ID == nil {
				return nil, fmt.Errorf("%w: payload has no id attribute", ErrMalformedInput)
			}
			ids = append(ids, *item.ID)
		}
	}
	return ids, nil
}

// parseCount converts a declared count attribute to an integer.
func parseCount(field, value string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q is not an integer", ErrMalformedInput, field, value)
	}
	return n, nil
}

// expectEnd drains dec after the root element. Only whitespace, comments and
// processing instructions may follow it.
func expectEnd(dec *xml.Decoder) error {
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: failed to parse XML: %v", ErrMalformedInput, err)
		}
		switch t := tok.(type) {
		case xml.Comment, xml.ProcInst:
		case xml.CharData:
			if len(bytes.TrimSpace(t)) > 0 {
				return fmt.Errorf("%w: text after document element", ErrMalformedInput)
			}
		default:
			return fmt.Errorf("%w: content after document element", ErrMalformedInput)
		}
	}
}
