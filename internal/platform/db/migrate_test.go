package db

import (
	"strings"
	"testing"
	"testing/fstest"
	"time"
)

func TestLoadMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"001_sequence_counter.sql": {Data: []byte("CREATE TABLE sequence_counter (name TEXT);")},
		"002_outgoing.sql":         {Data: []byte("CREATE TABLE outgoing (id SERIAL);")},
		"003_indexes.sql":          {Data: []byte("CREATE INDEX i ON outgoing (id);")},
	}

	migrator := NewMigrator(nil, fsys)
	migrations, err := migrator.LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations() error: %v", err)
	}

	if len(migrations) != 3 {
		t.Fatalf("expected 3 migrations, got %d", len(migrations))
	}

	if migrations[0].Version != 1 {
		t.Errorf("expected version 1, got %d", migrations[0].Version)
	}
	if migrations[0].Name != "001_sequence_counter.sql" {
		t.Errorf("expected name 001_sequence_counter.sql, got %s", migrations[0].Name)
	}
	if migrations[0].SQL != "CREATE TABLE sequence_counter (name TEXT);" {
		t.Errorf("unexpected SQL content: %s", migrations[0].SQL)
	}
	if migrations[2].Version != 3 {
		t.Errorf("expected version 3, got %d", migrations[2].Version)
	}
}

func TestLoadMigrations_SortOrder(t *testing.T) {
	fsys := fstest.MapFS{
		"010_late.sql":  {Data: []byte("SELECT 10;")},
		"002_mid.sql":   {Data: []byte("SELECT 2;")},
		"001_first.sql": {Data: []byte("SELECT 1;")},
	}

	migrations, err := NewMigrator(nil, fsys).LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations() error: %v", err)
	}

	want := []int{1, 2, 10}
	for i, v := range want {
		if migrations[i].Version != v {
			t.Errorf("position %d: expected version %d, got %d", i, v, migrations[i].Version)
		}
	}
}

func TestLoadMigrations_InvalidFilename(t *testing.T) {
	fsys := fstest.MapFS{
		"001_valid.sql":    {Data: []byte("SELECT 1;")},
		"README.md":        {Data: []byte("docs")},
		"noprefix.sql":     {Data: []byte("SELECT 2;")},
		"abc_invalid.sql":  {Data: []byte("SELECT 3;")},
		"sub/002_deep.sql": {Data: []byte("SELECT 4;")},
	}

	migrations, err := NewMigrator(nil, fsys).LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations() error: %v", err)
	}

	if len(migrations) != 1 {
		t.Fatalf("expected 1 valid migration, got %d", len(migrations))
	}
	if migrations[0].Name != "001_valid.sql" {
		t.Errorf("expected 001_valid.sql, got %s", migrations[0].Name)
	}
}

func TestLoadMigrations_DuplicateVersion(t *testing.T) {
	fsys := fstest.MapFS{
		"001_a.sql":  {Data: []byte("SELECT 1;")},
		"0001_b.sql": {Data: []byte("SELECT 1;")},
	}

	_, err := NewMigrator(nil, fsys).LoadMigrations()
	if err == nil || !strings.Contains(err.Error(), "duplicate migration version 1") {
		t.Errorf("expected duplicate version error, got %v", err)
	}
}

func TestLoadMigrations_EmptyDir(t *testing.T) {
	migrations, err := NewMigrator(nil, fstest.MapFS{}).LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations() error: %v", err)
	}

	if len(migrations) != 0 {
		t.Errorf("expected 0 migrations from empty dir, got %d", len(migrations))
	}
}

func TestEmbeddedMigrations(t *testing.T) {
	migrations, err := NewMigrator(nil, Migrations()).LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations() error: %v", err)
	}

	if len(migrations) == 0 {
		t.Fatal("expected embedded migrations")
	}
	if migrations[0].Name != "001_sequence_counter.sql" {
		t.Errorf("expected first migration 001_sequence_counter.sql, got %s", migrations[0].Name)
	}
	if !strings.Contains(migrations[0].SQL, "sequence_counter") {
		t.Error("expected first migration to create sequence_counter")
	}
}

func TestMigrationStatus(t *testing.T) {
	migrations := []Migration{
		{Version: 1, Name: "001_sequence_counter.sql"},
		{Version: 2, Name: "002_outgoing.sql"},
		{Version: 3, Name: "003_indexes.sql"},
	}
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	applied := map[int]time.Time{1: at}

	got := statuses(migrations, applied)
	if len(got) != 3 {
		t.Fatalf("expected 3 statuses, got %d", len(got))
	}

	if !got[0].Applied {
		t.Error("expected migration 001 to be applied")
	}
	if got[0].AppliedAt == nil || !got[0].AppliedAt.Equal(at) {
		t.Errorf("expected AppliedAt %s, got %v", at, got[0].AppliedAt)
	}
	if got[1].Applied || got[2].Applied {
		t.Error("expected migrations 002 and 003 to be pending")
	}
	if got[1].AppliedAt != nil {
		t.Error("expected nil AppliedAt for pending migration")
	}
}

func TestPendingMigrations(t *testing.T) {
	migrations := []Migration{{Version: 1}, {Version: 2}, {Version: 3}}
	applied := map[int]time.Time{1: time.Now(), 3: time.Now()}

	got := pending(migrations, applied)
	if len(got) != 1 || got[0].Version != 2 {
		t.Errorf("expected only version 2 pending, got %+v", got)
	}
}

func TestQuoteSchema(t *testing.T) {
	if got := quoteSchema("public"); got != `"public"` {
		t.Errorf("expected quoted schema, got %s", got)
	}
	if got := quoteSchema(`x"; DROP TABLE y; --`); got != `"x""; DROP TABLE y; --"` {
		t.Errorf("expected escaped schema, got %s", got)
	}
}
