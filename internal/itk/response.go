package itk

import (
	"bytes"
	"embed"
	"encoding/xml"
	"fmt"
	"strings"
	"text/template"
)

//go:embed templates/*
var templateFS embed.FS

// Renderer produces the XML response bodies.
type Renderer interface {
	Success() string
	Fault() string
	Error(message string) (string, error)
}

// TemplateRenderer renders responses from the embedded templates. It is
// safe for concurrent use.
type TemplateRenderer struct {
	success string
	fault   string
	errTmpl *template.Template
}

// NewTemplateRenderer loads and parses the embedded response templates.
func NewTemplateRenderer() (*TemplateRenderer, error) {
	success, err := templateFS.ReadFile("templates/success.xml")
	if err != nil {
		return nil, fmt.Errorf("itk: read success response: %w", err)
	}
	fault, err := templateFS.ReadFile("templates/fault.xml")
	if err != nil {
		return nil, fmt.Errorf("itk: read fault response: %w", err)
	}
	errTmpl, err := template.New("error.xml.tmpl").
		Funcs(template.FuncMap{"xml": escapeXML}).
		ParseFS(templateFS, "templates/error.xml.tmpl")
	if err != nil {
		return nil, fmt.Errorf("itk: parse error template: %w", err)
	}
	return &TemplateRenderer{
		success: string(success),
		fault:   string(fault),
		errTmpl: errTmpl,
	}, nil
}

// Success returns the fixed success body.
func (r *TemplateRenderer) Success() string { return r.success }

// Fault returns the fixed, non-parameterised fault body.
func (r *TemplateRenderer) Fault() string { return r.fault }

// Error renders the fault template with message as the error text.
func (r *TemplateRenderer) Error(message string) (string, error) {
	var buf bytes.Buffer
	if err := r.errTmpl.Execute(&buf, map[string]string{"ErrorMessage": message}); err != nil {
		return "", fmt.Errorf("itk: render error template: %w", err)
	}
	return buf.String(), nil
}

func escapeXML(s string) string {
	var b strings.Builder
	xml.EscapeText(&b, []byte(s))
	return b.String()
}
