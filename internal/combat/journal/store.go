package journal

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Lister pages through a battle's events in sequence order.
type Lister interface {
	List(ctx context.Context, battleID string, afterSeq uint64, limit int) ([]Event, error)
}

// Store appends sealed events and lists them back.
type Store interface {
	Lister
	Append(ctx context.Context, evt Event) (Event, error)
}

// Memory is an in-process Store.
type Memory struct {
	keyring *Keyring

	mu     sync.Mutex
	events map[string][]Event
}

// NewMemory returns an empty journal signed with keyring.
func NewMemory(keyring *Keyring) *Memory {
	return &Memory{keyring: keyring, events: map[string][]Event{}}
}

// Append seals evt as the next event of its battle.
func (m *Memory) Append(ctx context.Context, evt Event) (Event, error) {
	if err := ctx.Err(); err != nil {
		return Event{}, err
	}
	evt, err := validateForAppend(evt)
	if err != nil {
		return Event{}, err
	}
	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	existing := m.events[evt.BattleID]
	if i := slices.IndexFunc(existing, func(e Event) bool { return e.ID == evt.ID }); i >= 0 {
		return existing[i], nil
	}
	prev := ""
	if n := len(existing); n > 0 {
		prev = existing[n-1].ChainHash
	}
	evt.Seq = uint64(len(existing)) + 1
	sealed, err := Seal(m.keyring, evt, prev)
	if err != nil {
		return Event{}, err
	}
	m.events[evt.BattleID] = append(existing, sealed)
	return sealed, nil
}

// List returns up to limit events after afterSeq.
func (m *Memory) List(ctx context.Context, battleID string, afterSeq uint64, limit int) ([]Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(battleID) == "" {
		return nil, ErrBattleIDRequired
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Event
	for _, evt := range m.events[battleID] {
		if evt.Seq <= afterSeq {
			continue
		}
		evt.PayloadJSON = slices.Clone(evt.PayloadJSON)
		out = append(out, evt)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// Battles returns the ids of battles with at least one event.
func (m *Memory) Battles() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.events))
	for id := range m.events {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}
