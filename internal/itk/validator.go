// Package itk validates inbound SOAP messages that carry an NHS ITK
// DistributionEnvelope and produces the SOAP response for each.
package itk

import (
	"fmt"
	"net/http"

	"github.com/rs/zerolog"
)

// Result is the HTTP status and XML body answering one inbound message.
type Result struct {
	Status int
	Body   string
}

// Validator runs Checks over inbound envelopes. It holds no per-message
// state and is safe for concurrent use.
type Validator struct {
	renderer Renderer
	checks   []Check
	logger   zerolog.Logger
}

// NewValidator creates a validator using the standard check order.
func NewValidator(renderer Renderer, logger zerolog.Logger) *Validator {
	return &Validator{
		renderer: renderer,
		checks:   Checks,
		logger:   logger.With().Str("component", "itk_validator").Logger(),
	}
}

// Evaluate parses raw once and runs each check in order, stopping at the
// first failure. It returns 200 with the success body only when every check
// passes. Malformed input is returned as an error wrapping
// ErrMalformedInput and never as a Result.
func (v *Validator) Evaluate(raw []byte) (Result, error) {
	env, err := ParseEnvelope(raw)
	if err != nil {
		return Result{}, err
	}

	if n := env.ManifestTags(); n > 1 {
		v.logger.Warn().Int("count", n).Msg("more than one manifest tag")
	}
	if n := env.PayloadsTags(); n > 1 {
		v.logger.Warn().Int("count", n).Msg("more than one payloads tag")
	}

	for _, check := range v.checks {
		outcome, err := check.Fn(env)
		if err != nil {
			return Result{}, fmt.Errorf("check %s: %w", check.Name, err)
		}
		if !outcome.Failed {
			continue
		}

		v.logger.Warn().Str("check", check.Name).Msg(outcome.Reason)
		if outcome.Generic {
			return Result{Status: http.StatusInternalServerError, Body: v.renderer.Fault()}, nil
		}
		body, err := v.renderer.Error(outcome.Message)
		if err != nil {
			return Result{}, err
		}
		return Result{Status: http.StatusInternalServerError, Body: body}, nil
	}

	return Result{Status: http.StatusOK, Body: v.renderer.Success()}, nil
}
