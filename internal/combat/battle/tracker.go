package battle

import (
	"slices"
	"sort"
	"sync"

	"github.com/triplea-game/triplea-sub001/internal/combat/unit"
)

// Tracker keeps the battles pending this turn and which battles must be
// fought before others.
type Tracker struct {
	mu      sync.Mutex
	pending []*Battle
	// blockers maps a battle to the battles that must finish first.
	blockers map[*Battle][]*Battle
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{blockers: map[*Battle][]*Battle{}}
}

// Add registers a pending battle.
func (t *Tracker) Add(b *Battle) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !slices.Contains(t.pending, b) {
		t.pending = append(t.pending, b)
	}
}

// Block records that blocked cannot be fought until blocker is over, as
// when a landing waits for the sea battle in front of the beach.
func (t *Tracker) Block(blocked, blocker *Battle) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if blocked == blocker || slices.Contains(t.blockers[blocked], blocker) {
		return
	}
	t.blockers[blocked] = append(t.blockers[blocked], blocker)
}

// BlockedBy returns the battles that must finish before b.
func (t *Tracker) BlockedBy(b *Battle) []*Battle {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.blockers[b])
}

// Dependents returns the battles waiting on b.
func (t *Tracker) Dependents(b *Battle) []*Battle {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dependents(b)
}

func (t *Tracker) dependents(b *Battle) []*Battle {
	var out []*Battle
	for _, p := range t.pending {
		if slices.Contains(t.blockers[p], b) {
			out = append(out, p)
		}
	}
	return out
}

// Pending returns the battles not yet over, optionally limited to one
// territory.
func (t *Tracker) Pending(territory string) []*Battle {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []*Battle
	for _, b := range t.pending {
		if territory == "" || b.site.Name == territory {
			out = append(out, b)
		}
	}
	return out
}

// Fightable returns the pending battles nothing blocks, ordered by
// territory name.
func (t *Tracker) Fightable() []*Battle {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []*Battle
	for _, b := range t.pending {
		if len(t.blockers[b]) == 0 {
			out = append(out, b)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].site.Name < out[j].site.Name })
	return out
}

// Remove drops a finished battle and unblocks the battles waiting on it.
func (t *Tracker) Remove(b *Battle) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending = slices.DeleteFunc(t.pending, func(p *Battle) bool { return p == b })
	delete(t.blockers, b)
	for blocked, blockers := range t.blockers {
		t.blockers[blocked] = slices.DeleteFunc(blockers, func(p *Battle) bool { return p == b })
	}
}

// RemoveFromDependents takes units that left from (killed or retreated) out
// of every battle waiting on from.
func (t *Tracker) RemoveFromDependents(from *Battle, units []*unit.Unit) {
	t.mu.Lock()
	deps := t.dependents(from)
	t.mu.Unlock()
	for _, d := range deps {
		d.removeAttackers(units)
	}
}
