package sequence

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS sequence_counter (
    name       TEXT PRIMARY KEY,
    value      INTEGER NOT NULL,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
)`

const sqliteIncrement = `
INSERT INTO sequence_counter (name, value) VALUES (?, 1)
ON CONFLICT (name) DO UPDATE SET value = value + 1, updated_at = CURRENT_TIMESTAMP
RETURNING value`

// SQLiteCounter persists counters in a local SQLite file, giving a single
// node ids that survive restarts without a database server.
type SQLiteCounter struct {
	db *sql.DB
}

// OpenSQLiteCounter opens (creating if needed) the database at path and
// ensures the counter table exists.
func OpenSQLiteCounter(path string) (*SQLiteCounter, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// One writer keeps the upsert serialised inside this process.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create sequence_counter table: %w", err)
	}
	return &SQLiteCounter{db: db}, nil
}

// Increment implements Counter.
func (c *SQLiteCounter) Increment(ctx context.Context, name string) (uint64, error) {
	var v int64
	if err := c.db.QueryRowContext(ctx, sqliteIncrement, name).Scan(&v); err != nil {
		return 0, fmt.Errorf("sqlite increment %q: %w", name, err)
	}
	if v < 0 {
		return 0, fmt.Errorf("sqlite increment %q: negative value %d", name, v)
	}
	return uint64(v), nil
}

// Close closes the underlying database.
func (c *SQLiteCounter) Close() error {
	return c.db.Close()
}

// Ping checks the database file is still usable.
func (c *SQLiteCounter) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}
