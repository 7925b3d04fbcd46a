package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/triplea-game/triplea-sub001/internal/combat/change"
	"github.com/triplea-game/triplea-sub001/internal/combat/dice"
	"github.com/triplea-game/triplea-sub001/internal/combat/history"
	"github.com/triplea-game/triplea-sub001/internal/combat/unit"
	apperrors "github.com/triplea-game/triplea-sub001/internal/platform/errors"
)

func testKeyring(t *testing.T) *Keyring {
	t.Helper()
	k, err := NewKeyring(map[string][]byte{"v1": []byte("secret-one"), "v2": []byte("secret-two")}, "v2")
	require.NoError(t, err)
	return k
}

func appendN(t *testing.T, m *Memory, battleID string, n int) []Event {
	t.Helper()
	var out []Event
	for i := range n {
		evt, err := m.Append(context.Background(), Event{
			BattleID:    battleID,
			Type:        TypeHistory,
			Timestamp:   time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
			PayloadJSON: []byte(fmt.Sprintf(`{"n":%d}`, i)),
		})
		require.NoError(t, err)
		out = append(out, evt)
	}
	return out
}

func TestCanonicalJSONSortsKeys(t *testing.T) {
	a, err := CanonicalJSON([]byte(`{"b": 1, "a": {"d": 2.50, "c": [1, 2]}}`))
	require.NoError(t, err)
	b, err := CanonicalJSON([]byte(`{"a":{"c":[1,2],"d":2.50},"b":1}`))
	require.NoError(t, err)
	require.Equal(t, string(a), string(b))
	require.Equal(t, `{"a":{"c":[1,2],"d":2.50},"b":1}`, string(a))

	empty, err := CanonicalJSON(nil)
	require.NoError(t, err)
	require.Equal(t, "null", string(empty))

	_, err = CanonicalJSON([]byte(`{} {}`))
	require.Error(t, err)
}

func TestEventHashIgnoresPayloadFormatting(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	first, err := EventHash(Event{ID: "e1", BattleID: "b1", Type: TypeDiceRolled, Timestamp: at, PayloadJSON: []byte(`{"x":1,"y":2}`)})
	require.NoError(t, err)
	second, err := EventHash(Event{ID: "e1", BattleID: "b1", Type: TypeDiceRolled, Timestamp: at, PayloadJSON: []byte(`{ "y":2, "x":1 }`)})
	require.NoError(t, err)
	require.Equal(t, first, second)

	other, err := EventHash(Event{ID: "e1", BattleID: "b2", Type: TypeDiceRolled, Timestamp: at, PayloadJSON: []byte(`{"x":1,"y":2}`)})
	require.NoError(t, err)
	require.NotEqual(t, first, other)
}

func TestKeyring(t *testing.T) {
	k := testKeyring(t)
	sig, keyID, err := k.SignChainHash("battle-1", "abc")
	require.NoError(t, err)
	require.Equal(t, "v2", keyID)
	require.NoError(t, k.VerifyChainHash("battle-1", "abc", sig, keyID))
	require.Error(t, k.VerifyChainHash("battle-2", "abc", sig, keyID))
	require.Error(t, k.VerifyChainHash("battle-1", "abc", sig, "v1"))
	require.Error(t, k.VerifyChainHash("battle-1", "abc", sig, "v9"))
	require.Error(t, k.VerifyChainHash("battle-1", "abc", sig, ""))

	_, err = NewKeyring(nil, "v1")
	require.Error(t, err)
	_, err = NewKeyring(map[string][]byte{"v1": []byte("x")}, "v2")
	require.Error(t, err)
	_, err = NewKeyring(map[string][]byte{"v1": []byte("x")}, " ")
	require.Error(t, err)
}

func TestKeyringFromEnv(t *testing.T) {
	t.Run("single key", func(t *testing.T) {
		t.Setenv(envHMACKeys, "")
		t.Setenv(envHMACKeyID, "")
		t.Setenv(envHMACKey, "secret")
		k, err := KeyringFromEnv()
		require.NoError(t, err)
		require.Equal(t, "v1", k.ActiveKeyID())
	})
	t.Run("key list", func(t *testing.T) {
		t.Setenv(envHMACKeys, "old=one, new=two")
		t.Setenv(envHMACKeyID, "new")
		k, err := KeyringFromEnv()
		require.NoError(t, err)
		require.Equal(t, "new", k.ActiveKeyID())
	})
	t.Run("malformed list", func(t *testing.T) {
		t.Setenv(envHMACKeys, "broken")
		_, err := KeyringFromEnv()
		require.Error(t, err)
	})
	t.Run("missing", func(t *testing.T) {
		t.Setenv(envHMACKeys, "")
		t.Setenv(envHMACKey, "")
		_, err := KeyringFromEnv()
		require.Error(t, err)
	})
}

func TestMemoryChainsEvents(t *testing.T) {
	k := testKeyring(t)
	m := NewMemory(k)
	events := appendN(t, m, "battle-1", 3)

	for i, evt := range events {
		require.Equal(t, uint64(i+1), evt.Seq)
		require.NotEmpty(t, evt.ID)
		require.Equal(t, "v2", evt.SignatureKeyID)
		if i == 0 {
			require.Empty(t, evt.PrevHash)
		} else {
			require.Equal(t, events[i-1].ChainHash, evt.PrevHash)
		}
	}
	require.NoError(t, Verify(context.Background(), m, k, "battle-1"))

	again, err := m.Append(context.Background(), Event{ID: events[1].ID, BattleID: "battle-1", Type: TypeHistory})
	require.NoError(t, err)
	require.Equal(t, events[1], again)

	page, err := m.List(context.Background(), "battle-1", 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	require.Equal(t, uint64(2), page[0].Seq)
	require.Equal(t, []string{"battle-1"}, m.Battles())
}

func TestMemoryRejectsIncompleteEvents(t *testing.T) {
	m := NewMemory(testKeyring(t))
	_, err := m.Append(context.Background(), Event{Type: TypeHistory})
	require.ErrorIs(t, err, ErrBattleIDRequired)
	_, err = m.Append(context.Background(), Event{BattleID: "b"})
	require.ErrorIs(t, err, ErrTypeRequired)
	_, err = m.List(context.Background(), "b", 0, 0)
	require.Error(t, err)
}

func TestVerifyDetectsTampering(t *testing.T) {
	k := testKeyring(t)
	tests := []struct {
		name   string
		tamper func(events []Event) []Event
		code   apperrors.Code
	}{
		{name: "payload edited", code: apperrors.CodeJournalSignature, tamper: func(events []Event) []Event {
			events[1].PayloadJSON = []byte(`{"n":9}`)
			return events
		}},
		{name: "signature replaced", code: apperrors.CodeJournalSignature, tamper: func(events []Event) []Event {
			events[2].Signature = events[1].Signature
			return events
		}},
		{name: "event dropped", code: apperrors.CodeJournalGap, tamper: func(events []Event) []Event {
			return append(events[:1], events[2:]...)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMemory(k)
			appendN(t, m, "battle-1", 3)
			m.events["battle-1"] = tt.tamper(m.events["battle-1"])
			err := Verify(context.Background(), m, k, "battle-1")
			require.True(t, apperrors.HasCode(err, tt.code), "err = %v", err)
		})
	}
}

func TestReplayResumesFromCheckpoint(t *testing.T) {
	m := NewMemory(testKeyring(t))
	appendN(t, m, "battle-1", 3)
	checkpoints := NewMemoryCheckpoints()
	count := ApplierFunc(func(state any, _ Event) (any, error) { return state.(int) + 1, nil })

	res, err := Replay(context.Background(), m, checkpoints, count, "battle-1", 0, ReplayOptions{PageSize: 2})
	require.NoError(t, err)
	require.Equal(t, 3, res.State)
	require.Equal(t, uint64(3), res.LastSeq)

	cp, err := checkpoints.Get(context.Background(), "battle-1")
	require.NoError(t, err)
	require.Equal(t, uint64(3), cp.LastSeq)

	appendN(t, m, "battle-1", 2)
	res, err = Replay(context.Background(), m, checkpoints, count, "battle-1", 0, ReplayOptions{})
	require.NoError(t, err)
	require.Equal(t, 2, res.Applied)
	require.Equal(t, uint64(5), res.LastSeq)

	res, err = Replay(context.Background(), m, nil, count, "battle-1", 0, ReplayOptions{UntilSeq: 2})
	require.NoError(t, err)
	require.Equal(t, 2, res.State)
}

func TestReplayReportsGaps(t *testing.T) {
	m := NewMemory(testKeyring(t))
	appendN(t, m, "battle-1", 3)
	m.events["battle-1"] = append(m.events["battle-1"][:1], m.events["battle-1"][2:]...)
	count := ApplierFunc(func(state any, _ Event) (any, error) { return state.(int) + 1, nil })

	res, err := Replay(context.Background(), m, nil, count, "battle-1", 0, ReplayOptions{})
	require.True(t, apperrors.HasCode(err, apperrors.CodeJournalGap), "err = %v", err)
	require.Equal(t, uint64(1), res.LastSeq)

	_, err = Replay(context.Background(), m, nil, nil, "battle-1", 0, ReplayOptions{})
	require.ErrorIs(t, err, ErrApplierRequired)
	_, err = Replay(context.Background(), m, nil, count, " ", 0, ReplayOptions{})
	require.ErrorIs(t, err, ErrBattleIDRequired)
}

func TestRecorderJournalsBattleActivity(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(testKeyring(t))
	rec := NewRecorder(m, "battle-1")

	rolls := dice.NewAudited(dice.NewScripted(4, 0, 2))
	rolls.Sink = rec.Dice
	values, err := rolls.GetRandom(ctx, 6, 3, "Germans roll dice")
	require.NoError(t, err)

	board := change.NewBoard()
	inf := unit.New("inf-1", &unit.Type{Name: "infantry", HitPoints: 1}, &unit.Player{Name: "Germans"})
	board.Place("Ukraine", inf)
	log := change.NewLog(board)
	log.Sink = rec.Change
	require.NoError(t, log.AddChange(ctx, change.RemoveUnits{Territory: "Ukraine", Units: []*unit.Unit{inf}}))

	var w history.Writer = rec
	w.StartEvent("Battle in Ukraine")
	w.AddChildToEvent("1 infantry lost in Ukraine", nil)
	require.NoError(t, rec.Err())

	events, err := m.List(ctx, "battle-1", 0, 10)
	require.NoError(t, err)
	types := make([]Type, len(events))
	for i, evt := range events {
		types[i] = evt.Type
	}
	require.Equal(t, []Type{TypeDiceRolled, TypeChangeApplied, TypeHistory, TypeHistory}, types)

	var removed struct {
		Kind  string   `json:"kind"`
		Units []string `json:"units"`
	}
	require.NoError(t, json.Unmarshal(events[1].PayloadJSON, &removed))
	require.Equal(t, "remove_units", removed.Kind)
	require.Equal(t, []string{"inf-1"}, removed.Units)

	replayed, err := ReplayDice(ctx, m, "battle-1")
	require.NoError(t, err)
	again, err := replayed.GetRandom(ctx, 6, 3, "Germans roll dice")
	require.NoError(t, err)
	require.Equal(t, values, again)
}

func TestRecorderKeepsFirstHistoryError(t *testing.T) {
	rec := NewRecorder(NewMemory(testKeyring(t)), "")
	rec.StartEvent("Battle in Ukraine")
	require.ErrorIs(t, rec.Err(), ErrBattleIDRequired)
}
