package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/triplea-game/triplea-sub001/internal/combat/change"
	"github.com/triplea-game/triplea-sub001/internal/combat/dice"
)

// HistoryEntry is the payload of a TypeHistory event.
type HistoryEntry struct {
	Description string `json:"description"`
	// Child is set for entries under the last started event.
	Child bool `json:"child,omitempty"`
}

// Recorder appends one battle's activity to a journal. Its methods match
// dice.Audited.Sink and change.Log.Sink, and it is a history.Writer.
type Recorder struct {
	store    Store
	battleID string
	now      func() time.Time

	mu  sync.Mutex
	err error
}

// NewRecorder records into store under battleID.
func NewRecorder(store Store, battleID string) *Recorder {
	return &Recorder{store: store, battleID: battleID, now: time.Now}
}

// Record appends one event with payload encoded as JSON.
func (r *Recorder) Record(ctx context.Context, typ Type, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("encode %s payload: %w", typ, err)
	}
	return r.store.Append(ctx, Event{
		BattleID:    r.battleID,
		Type:        typ,
		Timestamp:   r.now(),
		PayloadJSON: data,
	})
}

// Dice records one dice request.
func (r *Recorder) Dice(ctx context.Context, entry dice.Entry) error {
	_, err := r.Record(ctx, TypeDiceRolled, entry)
	return err
}

// Change records one applied change.
func (r *Recorder) Change(ctx context.Context, ch change.Change) error {
	data, err := change.Marshal(ch)
	if err != nil {
		return fmt.Errorf("encode change: %w", err)
	}
	_, err = r.Record(ctx, TypeChangeApplied, json.RawMessage(data))
	return err
}

// StartEvent implements history.Writer.
func (r *Recorder) StartEvent(description string) {
	r.history(HistoryEntry{Description: description})
}

// AddChildToEvent implements history.Writer. Details are not journaled;
// dice and changes have their own events.
func (r *Recorder) AddChildToEvent(description string, _ any) {
	r.history(HistoryEntry{Description: description, Child: true})
}

func (r *Recorder) history(entry HistoryEntry) {
	if _, err := r.Record(context.Background(), TypeHistory, entry); err != nil {
		r.mu.Lock()
		if r.err == nil {
			r.err = err
		}
		r.mu.Unlock()
	}
}

// Err returns the first history write that failed.
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// DiceEntries replays a battle's dice requests in order.
func DiceEntries(ctx context.Context, events Lister, battleID string) ([]dice.Entry, error) {
	res, err := Replay(ctx, events, nil, ApplierFunc(func(state any, evt Event) (any, error) {
		entries := state.([]dice.Entry)
		if evt.Type != TypeDiceRolled {
			return entries, nil
		}
		var entry dice.Entry
		if err := json.Unmarshal(evt.PayloadJSON, &entry); err != nil {
			return nil, fmt.Errorf("decode dice event %d: %w", evt.Seq, err)
		}
		return append(entries, entry), nil
	}), battleID, []dice.Entry(nil), ReplayOptions{})
	if err != nil {
		return nil, err
	}
	return res.State.([]dice.Entry), nil
}

// ReplayDice returns a source that rolls exactly what the journal recorded,
// so a battle can be fought again with the same outcome.
func ReplayDice(ctx context.Context, events Lister, battleID string) (*dice.Scripted, error) {
	entries, err := DiceEntries(ctx, events, battleID)
	if err != nil {
		return nil, err
	}
	return dice.ReplaySource(entries), nil
}
