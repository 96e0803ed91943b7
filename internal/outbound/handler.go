package outbound

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ehr/gateway/internal/sequence"
)

// Handler exposes the translator over HTTP.
type Handler struct {
	translator *InterchangeTranslator
	timeout    time.Duration
}

// NewHandler creates a new outbound handler. A non-positive timeout
// leaves the request context unchanged.
func NewHandler(translator *InterchangeTranslator, timeout time.Duration) *Handler {
	return &Handler{translator: translator, timeout: timeout}
}

// RegisterRoutes registers outbound endpoints on the provided route group.
//
//	POST /api/v1/outbound/patient - translate a FHIR Patient to EDIFACT
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/outbound/patient", h.TranslatePatient)
}

// TranslatePatient handles POST /api/v1/outbound/patient.
// It accepts a FHIR Patient resource and returns the EDIFACT interchange
// as text/plain.
func (h *Handler) TranslatePatient(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		var he *echo.HTTPError
		if errors.As(err, &he) {
			return he
		}
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "failed to read request body",
		})
	}

	patient, err := DecodePatient(body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid patient resource: " + err.Error(),
		})
	}

	ctx := c.Request().Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	text, err := h.translator.Convert(ctx, patient)
	if err != nil {
		return c.JSON(statusFor(err), map[string]string{
			"error": err.Error(),
		})
	}

	return c.Blob(http.StatusOK, "text/plain; charset=utf-8", []byte(text))
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrMissingPractitioner), errors.Is(err, ErrMissingHealthAuthority):
		return http.StatusUnprocessableEntity
	case errors.Is(err, sequence.ErrGenerationUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
