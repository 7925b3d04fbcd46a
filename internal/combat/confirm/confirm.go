// Package confirm waits for both sides of a battle to acknowledge casualties.
package confirm

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	apperrors "github.com/triplea-game/triplea-sub001/internal/platform/errors"
)

// DefaultTimeout bounds a rendezvous when none is configured.
const DefaultTimeout = 2 * time.Minute

// Party is one player asked to confirm.
type Party struct {
	Player string
	// Confirm blocks until the player acknowledges. It must return when ctx
	// is done.
	Confirm func(ctx context.Context) error
}

// Rendezvous runs every party's confirmation concurrently and waits for all
// of them.
type Rendezvous struct {
	Timeout time.Duration
}

// Wait returns nil once every party confirmed. The first party error cancels
// the others. Parties still pending when the timeout passes produce a
// CodeRemoteTimeout error naming them.
func (r Rendezvous) Wait(ctx context.Context, parties ...Party) error {
	if len(parties) == 0 {
		return nil
	}
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var mu sync.Mutex
	pending := map[string]bool{}
	for _, p := range parties {
		pending[p.Player] = true
	}

	g, gctx := errgroup.WithContext(waitCtx)
	for _, p := range parties {
		g.Go(func() error {
			if p.Confirm == nil {
				return nil
			}
			if err := p.Confirm(gctx); err != nil {
				return fmt.Errorf("confirm %s: %w", p.Player, err)
			}
			mu.Lock()
			delete(pending, p.Player)
			mu.Unlock()
			return nil
		})
	}

	done := make(chan error, 1)
	go func() { done <- g.Wait() }()

	select {
	case err := <-done:
		if err == nil {
			return nil
		}
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return timeoutError(&mu, pending, timeout, err)
		}
		return err
	case <-waitCtx.Done():
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return timeoutError(&mu, pending, timeout, waitCtx.Err())
	}
}

func timeoutError(mu *sync.Mutex, pending map[string]bool, timeout time.Duration, cause error) error {
	mu.Lock()
	names := make([]string, 0, len(pending))
	for name := range pending {
		names = append(names, name)
	}
	mu.Unlock()
	sort.Strings(names)
	players := strings.Join(names, ", ")
	return apperrors.WrapWithMetadata(apperrors.CodeRemoteTimeout,
		fmt.Sprintf("no casualty confirmation within %s", timeout),
		map[string]string{"Player": players}, cause)
}
