// Package sequence allocates the interchange, message and transaction
// sequence numbers stamped on outbound EDIFACT.
//
// Each scope owns a disjoint number space. A Generator never hands out the
// same number twice for the life of its Counter; durability across restarts
// depends on which Counter backs it.
package sequence

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// MaxID is the largest value that fits the 8-digit wire field.
const MaxID ID = 99999999

// ErrGenerationUnavailable is returned when a counter cannot be read or
// incremented, or when its number space is used up.
var ErrGenerationUnavailable = errors.New("sequence: generation unavailable")

// ID is an allocated sequence number.
type ID uint64

// String renders the id zero-padded to 8 decimal digits.
func (id ID) String() string {
	return fmt.Sprintf("%08d", uint64(id))
}

// Scope names one of the three independent sequence spaces.
type Scope string

const (
	ScopeInterchange Scope = "interchange"
	ScopeMessage     Scope = "message"
	ScopeTransaction Scope = "transaction"
)

// Generator allocates ids for a single scope. Implementations must be safe
// for concurrent use; GenerateID may block on a remote counter.
type Generator interface {
	GenerateID(ctx context.Context) (ID, error)
}

// Counter is a named, monotonically increasing counter. Increment returns
// the new value; the first call for a name returns 1.
type Counter interface {
	Increment(ctx context.Context, name string) (uint64, error)
}

// CounterGenerator is a Generator for one scope backed by a Counter.
type CounterGenerator struct {
	scope   Scope
	counter Counter
	logger  zerolog.Logger
}

// NewGenerator creates a generator for scope on top of counter.
func NewGenerator(scope Scope, counter Counter, logger zerolog.Logger) *CounterGenerator {
	return &CounterGenerator{
		scope:   scope,
		counter: counter,
		logger:  logger.With().Str("scope", string(scope)).Logger(),
	}
}

// Scope returns the sequence space this generator allocates from.
func (g *CounterGenerator) Scope() Scope {
	return g.scope
}

// GenerateID increments the scope's counter and returns the new value.
func (g *CounterGenerator) GenerateID(ctx context.Context) (ID, error) {
	v, err := g.counter.Increment(ctx, string(g.scope))
	if err != nil {
		g.logger.Error().Err(err).Msg("sequence counter increment failed")
		return 0, fmt.Errorf("%w: %s counter: %w", ErrGenerationUnavailable, g.scope, err)
	}
	if v == 0 || v > uint64(MaxID) {
		g.logger.Error().Uint64("value", v).Msg("sequence counter out of range")
		return 0, fmt.Errorf("%w: %s counter returned %d, outside 1..%d",
			ErrGenerationUnavailable, g.scope, v, uint64(MaxID))
	}
	return ID(v), nil
}

// Generators groups the three per-scope generators used by one translator.
type Generators struct {
	Interchange Generator
	Message     Generator
	Transaction Generator
}

// NewGenerators builds one generator per scope over a shared counter. The
// scopes stay disjoint because each increments its own counter name.
func NewGenerators(counter Counter, logger zerolog.Logger) Generators {
	return Generators{
		Interchange: NewGenerator(ScopeInterchange, counter, logger),
		Message:     NewGenerator(ScopeMessage, counter, logger),
		Transaction: NewGenerator(ScopeTransaction, counter, logger),
	}
}
