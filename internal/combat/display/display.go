// Package display broadcasts what happens in a battle to anyone watching.
//
// Notifications are observational: battle logic never depends on whether a
// display received them.
package display

import (
	"context"
	"sync"
	"time"
)

// EventKind names a notification.
type EventKind string

const (
	EventShowBattle EventKind = "show_battle"
	EventSteps      EventKind = "steps"
	EventStep       EventKind = "step"
	EventDice       EventKind = "dice"
	EventCasualties EventKind = "casualties"
	EventDead       EventKind = "dead"
	EventRetreat    EventKind = "retreat"
	EventBombing    EventKind = "bombing"
	EventEnd        EventKind = "end"
	EventSound      EventKind = "sound"
)

// Sound clips a display may play.
const (
	SoundBattleStart   = "battle_start"
	SoundBombard       = "battle_bombard"
	SoundAAHit         = "battle_aa_hit"
	SoundAAMiss        = "battle_aa_miss"
	SoundRetreat       = "battle_retreat"
	SoundSubmerge      = "battle_submerge"
	SoundBombingRaid   = "battle_bombing_raid"
	SoundBattleFailure = "battle_failure"
)

// Event is one notification.
type Event struct {
	Kind      EventKind `json:"kind"`
	BattleID  string    `json:"battle_id"`
	Territory string    `json:"territory,omitempty"`
	Player    string    `json:"player,omitempty"`
	Step      string    `json:"step,omitempty"`
	Steps     []string  `json:"steps,omitempty"`
	Message   string    `json:"message,omitempty"`
	Attacking []string  `json:"attacking,omitempty"`
	Defending []string  `json:"defending,omitempty"`
	Killed    []string  `json:"killed,omitempty"`
	Damaged   []string  `json:"damaged,omitempty"`
	Dice      []int     `json:"dice,omitempty"`
	Hits      int       `json:"hits,omitempty"`
	Sound     string    `json:"sound,omitempty"`
	Round     int       `json:"round,omitempty"`
	At        time.Time `json:"at"`
}

// Display receives battle notifications.
type Display interface {
	Notify(ctx context.Context, evt Event)
}

// Discard drops every notification.
var Discard Display = discard{}

type discard struct{}

func (discard) Notify(context.Context, Event) {}

// Recorder keeps notifications in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Notify implements Display.
func (r *Recorder) Notify(_ context.Context, evt Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
}

// Events returns a copy of the recorded notifications.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Kinds returns the kinds of the recorded notifications in order.
func (r *Recorder) Kinds() []EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventKind, len(r.events))
	for i, evt := range r.events {
		out[i] = evt.Kind
	}
	return out
}

// Multi fans notifications out to several displays.
func Multi(displays ...Display) Display {
	return multi(displays)
}

type multi []Display

func (m multi) Notify(ctx context.Context, evt Event) {
	for _, d := range m {
		if d != nil {
			d.Notify(ctx, evt)
		}
	}
}
