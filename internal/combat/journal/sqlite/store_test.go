package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/triplea-game/triplea-sub001/internal/combat/journal"
	apperrors "github.com/triplea-game/triplea-sub001/internal/platform/errors"
)

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	keyring, err := journal.NewKeyring(map[string][]byte{"v1": []byte("secret")}, "v1")
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "journal.db")
	store, err := Open(path, keyring)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, path
}

func TestAppendChainsAndVerifies(t *testing.T) {
	ctx := context.Background()
	store, _ := openTestStore(t)
	rec := journal.NewRecorder(store, "battle-1")

	first, err := rec.Record(ctx, journal.TypeBattleStarted, map[string]string{"territory": "Ukraine"})
	require.NoError(t, err)
	second, err := rec.Record(ctx, journal.TypeBattleEnded, map[string]string{"outcome": "attacker"})
	require.NoError(t, err)
	_, err = journal.NewRecorder(store, "battle-2").Record(ctx, journal.TypeBattleStarted, nil)
	require.NoError(t, err)

	require.Equal(t, uint64(1), first.Seq)
	require.Equal(t, uint64(2), second.Seq)
	require.Equal(t, first.ChainHash, second.PrevHash)

	events, err := store.List(ctx, "battle-1", 0, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, second.Hash, events[1].Hash)
	require.True(t, second.Timestamp.Equal(events[1].Timestamp))

	ids, err := store.Battles(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"battle-1", "battle-2"}, ids)
	require.NoError(t, store.VerifyAll(ctx))
}

func TestAppendIsIdempotentByID(t *testing.T) {
	ctx := context.Background()
	store, _ := openTestStore(t)
	evt := journal.Event{ID: "evt-1", BattleID: "battle-1", Type: journal.TypeHistory, Timestamp: time.Now()}
	first, err := store.Append(ctx, evt)
	require.NoError(t, err)
	again, err := store.Append(ctx, evt)
	require.NoError(t, err)
	require.Equal(t, first.Seq, again.Seq)

	events, err := store.List(ctx, "battle-1", 0, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)

	_, err = store.GetEvent(ctx, "missing")
	require.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestVerifyDetectsEditedRows(t *testing.T) {
	ctx := context.Background()
	store, _ := openTestStore(t)
	rec := journal.NewRecorder(store, "battle-1")
	for range 3 {
		_, err := rec.Record(ctx, journal.TypeHistory, journal.HistoryEntry{Description: "Germans fire"})
		require.NoError(t, err)
	}
	_, err := store.sqlDB.ExecContext(ctx, `UPDATE journal_events SET payload_json = '{"description":"Russians fire"}' WHERE seq = 2`)
	require.NoError(t, err)
	require.True(t, apperrors.HasCode(store.VerifyAll(ctx), apperrors.CodeJournalSignature))
}

func TestReopenKeepsJournalAndCheckpoints(t *testing.T) {
	ctx := context.Background()
	store, path := openTestStore(t)
	rec := journal.NewRecorder(store, "battle-1")
	for range 2 {
		_, err := rec.Record(ctx, journal.TypeHistory, journal.HistoryEntry{Description: "round"})
		require.NoError(t, err)
	}
	count := journal.ApplierFunc(func(state any, _ journal.Event) (any, error) { return state.(int) + 1, nil })
	res, err := journal.Replay(ctx, store, store, count, "battle-1", 0, journal.ReplayOptions{})
	require.NoError(t, err)
	require.Equal(t, 2, res.State)
	require.NoError(t, store.Close())

	keyring, err := journal.NewKeyring(map[string][]byte{"v1": []byte("secret")}, "v1")
	require.NoError(t, err)
	reopened, err := Open(path, keyring)
	require.NoError(t, err)
	defer reopened.Close()

	cp, err := reopened.Get(ctx, "battle-1")
	require.NoError(t, err)
	require.Equal(t, uint64(2), cp.LastSeq)

	_, err = journal.NewRecorder(reopened, "battle-1").Record(ctx, journal.TypeBattleEnded, nil)
	require.NoError(t, err)
	res, err = journal.Replay(ctx, reopened, reopened, count, "battle-1", 0, journal.ReplayOptions{})
	require.NoError(t, err)
	require.Equal(t, 1, res.Applied)
	require.NoError(t, reopened.VerifyAll(ctx))

	_, err = reopened.Get(ctx, "battle-9")
	require.ErrorIs(t, err, journal.ErrCheckpointNotFound)
}

func TestOpenRequiresPathAndKeyring(t *testing.T) {
	_, err := Open(" ", nil)
	require.Error(t, err)
	_, err = Open(filepath.Join(t.TempDir(), "j.db"), nil)
	require.Error(t, err)
}
