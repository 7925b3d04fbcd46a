package change

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrNothingToUndo is returned when the log holds no undoable change.
	ErrNothingToUndo = errors.New("nothing to undo")
	// ErrNotUndoable is returned when the last change was marked final.
	ErrNotUndoable = errors.New("move can no longer be undone")
)

// Bridge applies changes on behalf of a battle.
type Bridge interface {
	AddChange(ctx context.Context, ch Change) error
}

// Log applies changes to a board and keeps them for undo.
type Log struct {
	board *Board
	// Sink receives every applied change. An error from Sink rolls the
	// change back.
	Sink func(ctx context.Context, ch Change) error

	mu      sync.Mutex
	applied []Change
	// final is the number of leading changes that may not be undone.
	final int
}

// NewLog returns a log applying changes to board.
func NewLog(board *Board) *Log {
	return &Log{board: board}
}

// Board returns the board the log mutates.
func (l *Log) Board() *Board {
	return l.board
}

// AddChange applies ch and records it.
func (l *Log) AddChange(ctx context.Context, ch Change) error {
	if ch == nil {
		return nil
	}
	if c, ok := ch.(Composite); ok && c.Empty() {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := ch.Apply(l.board); err != nil {
		return fmt.Errorf("apply %s: %w", ch.Kind(), err)
	}
	if l.Sink != nil {
		if err := l.Sink(ctx, ch); err != nil {
			_ = ch.Invert().Apply(l.board)
			return fmt.Errorf("record %s: %w", ch.Kind(), err)
		}
	}
	l.applied = append(l.applied, ch)
	return nil
}

// MarkNonUndoable seals every change applied so far. Random results such as
// AA fire seal the move so it cannot be replayed for a better roll.
func (l *Log) MarkNonUndoable() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.final = len(l.applied)
}

// CanUndo reports whether Undo would succeed.
func (l *Log) CanUndo() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.applied) > l.final
}

// Undo reverts the last change.
func (l *Log) Undo(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.applied) == 0 {
		return ErrNothingToUndo
	}
	if len(l.applied) <= l.final {
		return ErrNotUndoable
	}
	last := l.applied[len(l.applied)-1]
	inverse := last.Invert()
	if err := inverse.Apply(l.board); err != nil {
		return fmt.Errorf("undo %s: %w", last.Kind(), err)
	}
	if l.Sink != nil {
		if err := l.Sink(ctx, inverse); err != nil {
			_ = last.Apply(l.board)
			return fmt.Errorf("record undo %s: %w", last.Kind(), err)
		}
	}
	l.applied = l.applied[:len(l.applied)-1]
	return nil
}

// Len returns the number of applied changes.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.applied)
}
