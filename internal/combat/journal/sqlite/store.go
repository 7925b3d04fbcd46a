// Package sqlite persists battle journals in a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/triplea-game/triplea-sub001/internal/combat/journal"
	"github.com/triplea-game/triplea-sub001/internal/combat/journal/sqlite/migrations"
	apperrors "github.com/triplea-game/triplea-sub001/internal/platform/errors"
	"github.com/triplea-game/triplea-sub001/internal/platform/storage/sqlitemigrate"
)

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Store is a journal.Store and journal.CheckpointStore backed by SQLite.
type Store struct {
	sqlDB   *sql.DB
	keyring *journal.Keyring
}

// Open opens the journal database at path and applies migrations.
func Open(path string, keyring *journal.Keyring) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	if keyring == nil {
		return nil, fmt.Errorf("journal keyring is required")
	}

	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlitemigrate.Apply(context.Background(), sqlDB, migrations.JournalFS, "journal"); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB, keyring: keyring}, nil
}

// Close closes the database. It is nil-safe.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Append seals evt as the next event of its battle in one transaction.
// Appending an event id that is already stored returns the stored event.
func (s *Store) Append(ctx context.Context, evt journal.Event) (journal.Event, error) {
	if err := ctx.Err(); err != nil {
		return journal.Event{}, err
	}
	if s == nil || s.sqlDB == nil {
		return journal.Event{}, fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(evt.BattleID) == "" {
		return journal.Event{}, journal.ErrBattleIDRequired
	}
	if evt.Type == "" {
		return journal.Event{}, journal.ErrTypeRequired
	}
	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	evt.Timestamp = evt.Timestamp.UTC().Truncate(time.Millisecond)
	if len(evt.PayloadJSON) == 0 {
		evt.PayloadJSON = []byte("null")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return journal.Event{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var lastSeq int64
	prevHash := ""
	err = tx.QueryRowContext(ctx,
		"SELECT seq, chain_hash FROM journal_events WHERE battle_id = ? ORDER BY seq DESC LIMIT 1",
		evt.BattleID).Scan(&lastSeq, &prevHash)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return journal.Event{}, fmt.Errorf("load previous event: %w", err)
	}
	evt.Seq = uint64(lastSeq) + 1

	sealed, err := journal.Seal(s.keyring, evt, prevHash)
	if err != nil {
		return journal.Event{}, err
	}
	_, err = tx.ExecContext(ctx, `
INSERT INTO journal_events (
    battle_id, seq, id, event_type, timestamp, payload_json,
    event_hash, prev_event_hash, chain_hash, signature_key_id, event_signature
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sealed.BattleID, int64(sealed.Seq), sealed.ID, string(sealed.Type), toMillis(sealed.Timestamp), sealed.PayloadJSON,
		sealed.Hash, sealed.PrevHash, sealed.ChainHash, sealed.SignatureKeyID, sealed.Signature)
	if err != nil {
		if isConstraintError(err) {
			_ = tx.Rollback()
			if stored, lookupErr := s.GetEvent(ctx, evt.ID); lookupErr == nil {
				return stored, nil
			}
		}
		return journal.Event{}, fmt.Errorf("append event: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return journal.Event{}, fmt.Errorf("commit: %w", err)
	}
	return sealed, nil
}

const eventColumns = `battle_id, seq, id, event_type, timestamp, payload_json,
    event_hash, prev_event_hash, chain_hash, signature_key_id, event_signature`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (journal.Event, error) {
	var (
		evt       journal.Event
		seq       int64
		eventType string
		millis    int64
	)
	if err := row.Scan(&evt.BattleID, &seq, &evt.ID, &eventType, &millis, &evt.PayloadJSON,
		&evt.Hash, &evt.PrevHash, &evt.ChainHash, &evt.SignatureKeyID, &evt.Signature); err != nil {
		return journal.Event{}, err
	}
	evt.Seq = uint64(seq)
	evt.Type = journal.Type(eventType)
	evt.Timestamp = fromMillis(millis)
	return evt, nil
}

// GetEvent returns the event with id.
func (s *Store) GetEvent(ctx context.Context, id string) (journal.Event, error) {
	row := s.sqlDB.QueryRowContext(ctx, "SELECT "+eventColumns+" FROM journal_events WHERE id = ?", id)
	evt, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return journal.Event{}, apperrors.WithMetadata(apperrors.CodeNotFound,
			fmt.Sprintf("journal event %s not found", id), map[string]string{"ID": id})
	}
	if err != nil {
		return journal.Event{}, fmt.Errorf("get event: %w", err)
	}
	return evt, nil
}

// List returns up to limit events of a battle after afterSeq.
func (s *Store) List(ctx context.Context, battleID string, afterSeq uint64, limit int) ([]journal.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(battleID) == "" {
		return nil, journal.ErrBattleIDRequired
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		"SELECT "+eventColumns+" FROM journal_events WHERE battle_id = ? AND seq > ? ORDER BY seq LIMIT ?",
		battleID, int64(afterSeq), limit)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var out []journal.Event
	for rows.Next() {
		evt, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		out = append(out, evt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return out, nil
}

// Battles returns the ids of battles with journaled events.
func (s *Store) Battles(ctx context.Context) ([]string, error) {
	rows, err := s.sqlDB.QueryContext(ctx, "SELECT DISTINCT battle_id FROM journal_events ORDER BY battle_id")
	if err != nil {
		return nil, fmt.Errorf("list battle ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan battle id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate battle ids: %w", err)
	}
	return ids, nil
}

// VerifyAll checks the integrity of every journaled battle.
func (s *Store) VerifyAll(ctx context.Context) error {
	ids, err := s.Battles(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := journal.Verify(ctx, s, s.keyring, id); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the replay checkpoint of a battle.
func (s *Store) Get(ctx context.Context, battleID string) (journal.Checkpoint, error) {
	var (
		lastSeq int64
		updated int64
	)
	err := s.sqlDB.QueryRowContext(ctx,
		"SELECT last_seq, updated_at FROM journal_checkpoints WHERE battle_id = ?", battleID).Scan(&lastSeq, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return journal.Checkpoint{}, journal.ErrCheckpointNotFound
	}
	if err != nil {
		return journal.Checkpoint{}, fmt.Errorf("get checkpoint: %w", err)
	}
	return journal.Checkpoint{BattleID: battleID, LastSeq: uint64(lastSeq), UpdatedAt: fromMillis(updated)}, nil
}

// Save upserts a replay checkpoint.
func (s *Store) Save(ctx context.Context, cp journal.Checkpoint) error {
	if strings.TrimSpace(cp.BattleID) == "" {
		return journal.ErrBattleIDRequired
	}
	if cp.UpdatedAt.IsZero() {
		cp.UpdatedAt = time.Now()
	}
	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO journal_checkpoints (battle_id, last_seq, updated_at) VALUES (?, ?, ?)
ON CONFLICT(battle_id) DO UPDATE SET last_seq = excluded.last_seq, updated_at = excluded.updated_at`,
		cp.BattleID, int64(cp.LastSeq), toMillis(cp.UpdatedAt))
	if err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	return nil
}

func isConstraintError(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	return code == sqlite3.SQLITE_CONSTRAINT || code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}
