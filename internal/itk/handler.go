package itk

import (
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Handler exposes the validator over HTTP.
type Handler struct {
	validator *Validator
}

// NewHandler creates a new ITK handler.
func NewHandler(validator *Validator) *Handler {
	return &Handler{validator: validator}
}

// RegisterRoutes registers the inbound endpoint.
//
//	POST /itk - validate a SOAP/ITK message and answer with a SOAP response
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST("/itk", h.Receive)
}

// Receive handles POST /itk. The status and body come from the validator;
// malformed documents are rejected with 400 and no SOAP body.
func (h *Handler) Receive(c echo.Context) error {
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

	result, err := h.validator.Evaluate(body)
	if err != nil {
		if errors.Is(err, ErrMalformedInput) {
			return c.JSON(http.StatusBadRequest, map[string]string{
				"error": err.Error(),
			})
		}
		return err
	}

	return c.Blob(result.Status, "text/xml; charset=utf-8", []byte(result.Body))
}
