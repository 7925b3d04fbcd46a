package journal

import (
	"errors"
	"strings"
	"time"
)

// Type names a journal event.
type Type string

const (
	TypeBattleStarted Type = "battle.started"
	TypeDiceRolled    Type = "dice.rolled"
	TypeChangeApplied Type = "change.applied"
	TypeHistory       Type = "history.entry"
	TypeBattleEnded   Type = "battle.ended"
)

var (
	// ErrBattleIDRequired indicates a missing battle id.
	ErrBattleIDRequired = errors.New("battle id is required")
	// ErrTypeRequired indicates a missing event type.
	ErrTypeRequired = errors.New("event type is required")
)

// Event is one sealed journal entry. Seq starts at 1 per battle.
type Event struct {
	ID          string
	BattleID    string
	Seq         uint64
	Type        Type
	Timestamp   time.Time
	PayloadJSON []byte

	Hash           string
	PrevHash       string
	ChainHash      string
	Signature      string
	SignatureKeyID string
}

// validateForAppend normalizes an event before it is sealed.
func validateForAppend(evt Event) (Event, error) {
	evt.BattleID = strings.TrimSpace(evt.BattleID)
	if evt.BattleID == "" {
		return Event{}, ErrBattleIDRequired
	}
	if strings.TrimSpace(string(evt.Type)) == "" {
		return Event{}, ErrTypeRequired
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	evt.Timestamp = evt.Timestamp.UTC().Truncate(time.Millisecond)
	if len(evt.PayloadJSON) == 0 {
		evt.PayloadJSON = []byte("null")
	}
	return evt, nil
}
