package sqlitemigrate

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"testing/fstest"

	_ "modernc.org/sqlite"
)

const createEvents = "-- +migrate Up\nCREATE TABLE journal_events(id TEXT PRIMARY KEY);\n-- +migrate Down\nDROP TABLE journal_events;"

func TestApplyRecordsChecksums(t *testing.T) {
	db := openInMemoryDB(t)
	fsys := fstest.MapFS{
		"journal/001_events.sql":      {Data: []byte(createEvents)},
		"journal/002_checkpoints.sql": {Data: []byte("CREATE TABLE journal_checkpoints(battle_id TEXT PRIMARY KEY);")},
		"journal/README":              {Data: []byte("not a migration")},
	}

	applied, err := Apply(context.Background(), db, fsys, "journal")
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if len(applied) != 2 || applied[0] != "journal/001_events.sql" || applied[1] != "journal/002_checkpoints.sql" {
		t.Fatalf("applied = %v", applied)
	}
	for _, table := range []string{"journal_events", "journal_checkpoints"} {
		if !tableExists(t, db, table) {
			t.Fatalf("table %s missing", table)
		}
	}

	recorded, err := Applied(context.Background(), db)
	if err != nil {
		t.Fatalf("applied: %v", err)
	}
	if len(recorded) != 2 {
		t.Fatalf("recorded = %d, want 2", len(recorded))
	}
	if len(recorded[0].Checksum) != 64 || recorded[0].AppliedAt.IsZero() {
		t.Fatalf("recorded[0] = %+v", recorded[0])
	}
}

func TestApplySkipsAppliedFiles(t *testing.T) {
	db := openInMemoryDB(t)
	fsys := fstest.MapFS{"001_events.sql": {Data: []byte(createEvents)}}

	if _, err := Apply(context.Background(), db, fsys, ""); err != nil {
		t.Fatalf("first apply: %v", err)
	}
	applied, err := Apply(context.Background(), db, fsys, "")
	if err != nil {
		t.Fatalf("second apply: %v", err)
	}
	if len(applied) != 0 {
		t.Fatalf("second apply ran %v", applied)
	}
}

func TestApplyRefusesEditedMigration(t *testing.T) {
	db := openInMemoryDB(t)
	if _, err := Apply(context.Background(), db, fstest.MapFS{"001_events.sql": {Data: []byte(createEvents)}}, ""); err != nil {
		t.Fatalf("first apply: %v", err)
	}

	edited := fstest.MapFS{"001_events.sql": {Data: []byte(createEvents + "\n-- edited")}}
	_, err := Apply(context.Background(), db, edited, "")
	if !errors.Is(err, ErrChecksumMismatch) {
		t.Fatalf("err = %v, want ErrChecksumMismatch", err)
	}
}

func TestApplyDoesNotRecordFailedMigration(t *testing.T) {
	db := openInMemoryDB(t)
	bad := fstest.MapFS{"001_bad.sql": {Data: []byte("-- +migrate Up\nCREAT table things(id INT);")}}
	if _, err := Apply(context.Background(), db, bad, ""); err == nil {
		t.Fatal("expected bad migration to fail")
	}
	if n := queryInt64(t, db, "SELECT COUNT(*) FROM schema_migrations"); n != 0 {
		t.Fatalf("failed migration recorded, %d rows", n)
	}

	fixed := fstest.MapFS{"001_bad.sql": {Data: []byte("-- +migrate Up\nCREATE TABLE casualties(id INTEGER PRIMARY KEY);")}}
	if _, err := Apply(context.Background(), db, fixed, ""); err != nil {
		t.Fatalf("apply fixed migration: %v", err)
	}
	if n := queryInt64(t, db, "SELECT COUNT(*) FROM schema_migrations"); n != 1 {
		t.Fatalf("fixed migration rows = %d, want 1", n)
	}
}

func TestApplyRejectsNilDB(t *testing.T) {
	if _, err := Apply(context.Background(), nil, fstest.MapFS{}, ""); err == nil {
		t.Fatal("expected error for nil db")
	}
}

func TestUpSection(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{name: "up and down", content: createEvents, want: "CREATE TABLE journal_events(id TEXT PRIMARY KEY);"},
		{name: "up only", content: "-- +migrate Up\nCREATE TABLE a(id INT);", want: "CREATE TABLE a(id INT);"},
		{name: "no markers", content: "CREATE TABLE b(id INT);", want: "CREATE TABLE b(id INT);"},
	}
	for _, tt := range tests {
		if got := strings.TrimSpace(UpSection(tt.content)); got != tt.want {
			t.Fatalf("%s: UpSection = %q, want %q", tt.name, got, tt.want)
		}
	}
}

// openInMemoryDB pins the pool to one connection, since every sqlite
// :memory: connection is its own database.
func openInMemoryDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open in-memory db: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func queryInt64(t *testing.T, db *sql.DB, query string) int64 {
	t.Helper()
	var value int64
	if err := db.QueryRow(query).Scan(&value); err != nil {
		t.Fatalf("query %q: %v", query, err)
	}
	return value
}

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()
	var found string
	err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name = ?", name).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return false
	}
	if err != nil {
		t.Fatalf("check table %s: %v", name, err)
	}
	return true
}
