package sequence

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// rowQuerier is the subset of pgxpool.Pool used by PostgresCounter.
type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// PostgresCounter stores counters as rows of the sequence_counter table
// (see migration 001). The upsert takes a row lock, so concurrent
// increments across processes never observe the same value.
type PostgresCounter struct {
	db    rowQuerier
	query string
}

// NewPostgresCounter creates a counter over the sequence_counter table in
// schema. An empty schema relies on the connection's search_path.
func NewPostgresCounter(db rowQuerier, schema string) *PostgresCounter {
	table := pgx.Identifier{"sequence_counter"}
	if schema != "" {
		table = pgx.Identifier{schema, "sequence_counter"}
	}
	name := table.Sanitize()
	return &PostgresCounter{
		db: db,
		query: fmt.Sprintf(`
		INSERT INTO %s (name, value) VALUES ($1, 1)
		ON CONFLICT (name) DO UPDATE SET value = %s.value + 1, updated_at = NOW()
		RETURNING value`, name, name),
	}
}

// Increment implements Counter.
func (c *PostgresCounter) Increment(ctx context.Context, name string) (uint64, error) {
	var v int64
	if err := c.db.QueryRow(ctx, c.query, name).Scan(&v); err != nil {
		return 0, fmt.Errorf("postgres increment %q: %w", name, err)
	}
	if v < 0 {
		return 0, fmt.Errorf("postgres increment %q: negative value %d", name, v)
	}
	return uint64(v), nil
}
