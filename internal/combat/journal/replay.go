package journal

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

const defaultPageSize = 200

var (
	// ErrApplierRequired indicates a missing applier.
	ErrApplierRequired = errors.New("applier is required")
	// ErrCheckpointNotFound indicates no checkpoint exists yet.
	ErrCheckpointNotFound = errors.New("checkpoint not found")
)

// Checkpoint captures the last applied sequence for a battle.
type Checkpoint struct {
	BattleID  string
	LastSeq   uint64
	UpdatedAt time.Time
}

// CheckpointStore manages replay checkpoints.
type CheckpointStore interface {
	Get(ctx context.Context, battleID string) (Checkpoint, error)
	Save(ctx context.Context, checkpoint Checkpoint) error
}

// Applier folds one event into replay state.
type Applier interface {
	Apply(state any, evt Event) (any, error)
}

// ApplierFunc adapts a function to Applier.
type ApplierFunc func(state any, evt Event) (any, error)

// Apply calls f.
func (f ApplierFunc) Apply(state any, evt Event) (any, error) { return f(state, evt) }

// ReplayOptions bounds a replay.
type ReplayOptions struct {
	AfterSeq uint64
	UntilSeq uint64
	PageSize int
}

// ReplayResult reports where a replay stopped.
type ReplayResult struct {
	State   any
	LastSeq uint64
	Applied int
}

// Replay applies a battle's events in order, starting after the later of
// the saved checkpoint and opts.AfterSeq. A nil checkpoint store replays
// from opts.AfterSeq and saves nothing.
func Replay(ctx context.Context, events Lister, checkpoints CheckpointStore, applier Applier, battleID string, state any, opts ReplayOptions) (ReplayResult, error) {
	if events == nil {
		return ReplayResult{}, errors.New("journal is required")
	}
	if applier == nil {
		return ReplayResult{}, ErrApplierRequired
	}
	battleID = strings.TrimSpace(battleID)
	if battleID == "" {
		return ReplayResult{}, ErrBattleIDRequired
	}

	lastSeq := opts.AfterSeq
	if checkpoints != nil {
		cp, err := checkpoints.Get(ctx, battleID)
		switch {
		case errors.Is(err, ErrCheckpointNotFound):
		case err != nil:
			return ReplayResult{}, err
		default:
			lastSeq = max(lastSeq, cp.LastSeq)
		}
	}
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	result := ReplayResult{State: state, LastSeq: lastSeq}
	for {
		page, err := events.List(ctx, battleID, result.LastSeq, pageSize)
		if err != nil {
			return result, err
		}
		if len(page) == 0 {
			return result, nil
		}
		for _, evt := range page {
			if opts.UntilSeq > 0 && evt.Seq > opts.UntilSeq {
				return result, nil
			}
			if evt.Seq != result.LastSeq+1 {
				return result, gapError(battleID, result.LastSeq+1, evt.Seq)
			}
			next, err := applier.Apply(result.State, evt)
			if err != nil {
				return result, err
			}
			result.State = next
			result.LastSeq = evt.Seq
			result.Applied++
			if checkpoints != nil {
				if err := checkpoints.Save(ctx, Checkpoint{BattleID: battleID, LastSeq: result.LastSeq, UpdatedAt: time.Now().UTC()}); err != nil {
					return result, err
				}
			}
		}
	}
}

// MemoryCheckpoints stores checkpoints in memory.
type MemoryCheckpoints struct {
	mu          sync.Mutex
	checkpoints map[string]Checkpoint
}

// NewMemoryCheckpoints returns an empty checkpoint store.
func NewMemoryCheckpoints() *MemoryCheckpoints {
	return &MemoryCheckpoints{checkpoints: map[string]Checkpoint{}}
}

// Get retrieves a checkpoint by battle id.
func (m *MemoryCheckpoints) Get(ctx context.Context, battleID string) (Checkpoint, error) {
	if err := ctx.Err(); err != nil {
		return Checkpoint{}, err
	}
	battleID = strings.TrimSpace(battleID)
	if battleID == "" {
		return Checkpoint{}, ErrBattleIDRequired
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp, ok := m.checkpoints[battleID]
	if !ok {
		return Checkpoint{}, ErrCheckpointNotFound
	}
	return cp, nil
}

// Save persists a checkpoint.
func (m *MemoryCheckpoints) Save(ctx context.Context, cp Checkpoint) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cp.BattleID = strings.TrimSpace(cp.BattleID)
	if cp.BattleID == "" {
		return ErrBattleIDRequired
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkpoints[cp.BattleID] = cp
	return nil
}
