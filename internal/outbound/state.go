package outbound

import (
	"context"

	"github.com/ehr/gateway/internal/edifact"
)

// OutgoingStateRecorder persists the state of an interchange after its
// identifiers are assigned and before it is serialised.
type OutgoingStateRecorder interface {
	RecordOutgoing(ctx context.Context, segments []edifact.Segment) error
}

// NoopRecorder records nothing.
type NoopRecorder struct{}

// RecordOutgoing implements OutgoingStateRecorder.
func (NoopRecorder) RecordOutgoing(ctx context.Context, segments []edifact.Segment) error {
	return nil
}
