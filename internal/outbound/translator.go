// Package outbound translates patient records into outbound EDIFACT
// interchanges.
package outbound

import (
	"context"
	"fmt"
	"time"

	"github.com/gofhir/fhir/r4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ehr/gateway/internal/edifact"
	"github.com/ehr/gateway/internal/sequence"
)

// InterchangeTranslator builds, numbers, validates and serialises one
// single-message interchange per call. It keeps no state between calls and
// is safe for concurrent use as long as its generators are.
type InterchangeTranslator struct {
	ids      sequence.Generators
	messages MessageTranslator
	recorder OutgoingStateRecorder
	now      func() time.Time
	logger   zerolog.Logger
}

// NewInterchangeTranslator creates a translator. A nil recorder records
// nothing.
func NewInterchangeTranslator(ids sequence.Generators, messages MessageTranslator, recorder OutgoingStateRecorder, logger zerolog.Logger) *InterchangeTranslator {
	if recorder == nil {
		recorder = NoopRecorder{}
	}
	return &InterchangeTranslator{
		ids:      ids,
		messages: messages,
		recorder: recorder,
		now:      time.Now,
		logger:   logger.With().Str("component", "interchange_translator").Logger(),
	}
}

// SetClock replaces the source of the translation timestamp.
func (t *InterchangeTranslator) SetClock(now func() time.Time) {
	t.now = now
}

// Convert translates patient into EDIFACT text, one segment per line.
//
// Segments are pre-validated before any sequence number is requested, so
// a doomed interchange never consumes an id. Any failure discards the whole
// interchange; no partial text is returned.
func (t *InterchangeTranslator) Convert(ctx context.Context, patient *r4.Patient) (string, error) {
	timestamp := t.now().UTC()
	log := t.logger.With().Str("correlation_id", uuid.NewString()).Logger()

	segments, err := t.build(patient, timestamp)
	if err != nil {
		log.Warn().Err(err).Msg("failed to build interchange")
		return "", err
	}

	if err := edifact.PreValidateAll(segments); err != nil {
		log.Warn().Err(err).Msg("segment pre-validation failed")
		return "", fmt.Errorf("outbound: pre-validate: %w", err)
	}

	ids, err := t.generateIdentifiers(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to generate sequence identifiers")
		return "", fmt.Errorf("outbound: generate identifiers: %w", err)
	}
	if err := edifact.AssignIdentifiers(segments, ids); err != nil {
		return "", fmt.Errorf("outbound: assign identifiers: %w", err)
	}
	if err := edifact.ValidateInterchange(segments); err != nil {
		log.Error().Err(err).Msg("interchange validation failed")
		return "", fmt.Errorf("outbound: validate interchange: %w", err)
	}

	if err := t.recorder.RecordOutgoing(ctx, segments); err != nil {
		return "", fmt.Errorf("outbound: record outgoing state: %w", err)
	}

	log.Info().
		Stringer("interchange_id", ids.Interchange).
		Stringer("message_id", ids.Message).
		Stringer("transaction_id", ids.Transaction).
		Int("segments", len(segments)).
		Msg("interchange translated")

	return edifact.Serialize(segments), nil
}

// build assembles UNB, the mapped message segments, and UNZ.
func (t *InterchangeTranslator) build(patient *r4.Patient, timestamp time.Time) ([]edifact.Segment, error) {
	sender, err := PractitionerIdentifier(patient)
	if err != nil {
		return nil, err
	}
	recipient, err := HealthAuthorityIdentifier(patient)
	if err != nil {
		return nil, err
	}

	segments := []edifact.Segment{
		&edifact.InterchangeHeader{Sender: sender, Recipient: recipient, DateTime: timestamp},
	}

	message, err := t.messages.Translate(patient, timestamp)
	if err != nil {
		return nil, fmt.Errorf("outbound: translate message: %w", err)
	}
	segments = append(segments, message...)

	// Multi-message interchanges are not produced.
	segments = append(segments, &edifact.InterchangeTrailer{NumberOfMessages: 1})
	return segments, nil
}

// generateIdentifiers requests the three ids concurrently and waits for
// every request to finish, even after one fails, so that no increment is
// left in flight. The first error is returned. The caller's deadline and
// cancellation do not reach the counters; an increment once started runs to
// completion.
func (t *InterchangeTranslator) generateIdentifiers(ctx context.Context) (edifact.Identifiers, error) {
	var (
		ids edifact.Identifiers
		g   errgroup.Group
	)
	ctx = context.WithoutCancel(ctx)

	g.Go(func() error {
		id, err := t.ids.Interchange.GenerateID(ctx)
		ids.Interchange = id
		return err
	})
	g.Go(func() error {
		id, err := t.ids.Message.GenerateID(ctx)
		ids.Message = id
		return err
	})
	g.Go(func() error {
		id, err := t.ids.Transaction.GenerateID(ctx)
		ids.Transaction = id
		return err
	})

	if err := g.Wait(); err != nil {
		return edifact.Identifiers{}, err
	}
	return ids, nil
}
