// Package sqlitemigrate applies embedded SQL migrations to a sqlite database.
// Each applied file is recorded with a checksum so an edited migration is
// refused instead of silently diverging from the stored schema.
package sqlitemigrate

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strings"
	"time"
)

const migrationTable = "schema_migrations"

const (
	upMarker   = "-- +migrate Up"
	downMarker = "-- +migrate Down"
)

// ErrChecksumMismatch reports an applied migration whose file has changed.
var ErrChecksumMismatch = errors.New("migration changed after it was applied")

// Migration is one applied migration file.
type Migration struct {
	Name      string
	Checksum  string
	AppliedAt time.Time
}

// Apply runs the .sql files in dir of fsys in name order. Files already
// recorded are skipped after their checksum is compared. It returns the
// names applied by this call.
func Apply(ctx context.Context, db *sql.DB, fsys fs.FS, dir string) ([]string, error) {
	if db == nil {
		return nil, errors.New("sql db is required")
	}
	dir = strings.TrimSpace(dir)
	if dir == "" {
		dir = "."
	}
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	slices.Sort(files)

	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS `+migrationTable+` (
    name TEXT PRIMARY KEY,
    checksum TEXT NOT NULL,
    applied_at INTEGER NOT NULL
)`); err != nil {
		return nil, fmt.Errorf("ensure migration table: %w", err)
	}
	recorded, err := Applied(ctx, db)
	if err != nil {
		return nil, err
	}
	checksums := make(map[string]string, len(recorded))
	for _, m := range recorded {
		checksums[m.Name] = m.Checksum
	}

	var applied []string
	for _, file := range files {
		name := path.Join(dir, file)
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return applied, fmt.Errorf("read migration %s: %w", name, err)
		}
		sum := sha256.Sum256(content)
		checksum := hex.EncodeToString(sum[:])
		if prev, ok := checksums[name]; ok {
			if prev != checksum {
				return applied, fmt.Errorf("%s: %w", name, ErrChecksumMismatch)
			}
			continue
		}
		if err := applyOne(ctx, db, name, checksum, UpSection(string(content))); err != nil {
			return applied, err
		}
		applied = append(applied, name)
	}
	return applied, nil
}

func applyOne(ctx context.Context, db *sql.DB, name, checksum, up string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration %s: %w", name, err)
	}
	defer func() { _ = tx.Rollback() }()

	if strings.TrimSpace(up) != "" {
		if _, err := tx.ExecContext(ctx, up); err != nil {
			return fmt.Errorf("exec migration %s: %w", name, err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO "+migrationTable+" (name, checksum, applied_at) VALUES (?, ?, ?)",
		name, checksum, time.Now().UTC().UnixMilli(),
	); err != nil {
		return fmt.Errorf("record migration %s: %w", name, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %s: %w", name, err)
	}
	return nil
}

// Applied lists the recorded migrations in name order.
func Applied(ctx context.Context, db *sql.DB) ([]Migration, error) {
	rows, err := db.QueryContext(ctx, "SELECT name, checksum, applied_at FROM "+migrationTable+" ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}
	defer rows.Close()

	var out []Migration
	for rows.Next() {
		var m Migration
		var appliedAt int64
		if err := rows.Scan(&m.Name, &m.Checksum, &appliedAt); err != nil {
			return nil, fmt.Errorf("scan migration: %w", err)
		}
		m.AppliedAt = time.UnixMilli(appliedAt).UTC()
		out = append(out, m)
	}
	return out, rows.Err()
}

// UpSection returns the SQL between the Up and Down markers. A file without
// markers is all Up.
func UpSection(content string) string {
	start := strings.Index(content, upMarker)
	if start == -1 {
		return content
	}
	content = content[start+len(upMarker):]
	if end := strings.Index(content, downMarker); end != -1 {
		content = content[:end]
	}
	return content
}
