// Package history records the human readable battle log: one event per
// battle step with child entries for dice, casualties and retreats.
package history

import (
	"fmt"
	"strings"
	"sync"
)

// Writer receives history entries. Children attach to the last started event.
type Writer interface {
	StartEvent(description string)
	AddChildToEvent(description string, details any)
}

// Child is one entry under an event.
type Child struct {
	Description string
	Details     any
}

// Event is a top level history node.
type Event struct {
	Description string
	Children    []Child
}

// Log keeps history in memory.
type Log struct {
	mu     sync.Mutex
	events []Event
}

// NewLog returns an empty log.
func NewLog() *Log {
	return &Log{}
}

// StartEvent opens a new event.
func (l *Log) StartEvent(description string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, Event{Description: description})
}

// AddChildToEvent appends to the current event, opening an unnamed one if
// none has been started.
func (l *Log) AddChildToEvent(description string, details any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.events) == 0 {
		l.events = append(l.events, Event{})
	}
	last := &l.events[len(l.events)-1]
	last.Children = append(last.Children, Child{Description: description, Details: details})
}

// Events returns a copy of the recorded events.
func (l *Log) Events() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Event, len(l.events))
	for i, e := range l.events {
		out[i] = Event{Description: e.Description, Children: append([]Child(nil), e.Children...)}
	}
	return out
}

// Len returns the number of events plus children.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.events {
		n += 1 + len(e.Children)
	}
	return n
}

// String renders the log as an indented outline.
func (l *Log) String() string {
	var b strings.Builder
	for _, e := range l.Events() {
		fmt.Fprintln(&b, e.Description)
		for _, c := range e.Children {
			fmt.Fprintf(&b, "  %s\n", c.Description)
		}
	}
	return b.String()
}

// Discard drops every entry.
var Discard Writer = discard{}

type discard struct{}

func (discard) StartEvent(string)           {}
func (discard) AddChildToEvent(string, any) {}

// Tee writes to every writer in order.
func Tee(writers ...Writer) Writer {
	return tee(writers)
}

type tee []Writer

func (t tee) StartEvent(description string) {
	for _, w := range t {
		w.StartEvent(description)
	}
}

func (t tee) AddChildToEvent(description string, details any) {
	for _, w := range t {
		w.AddChildToEvent(description, details)
	}
}
