package remoteplayer

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/triplea-game/triplea-sub001/internal/combat/casualty"
	"github.com/triplea-game/triplea-sub001/internal/combat/player"
	"github.com/triplea-game/triplea-sub001/internal/combat/unit"
)

// console asks a person at a terminal. An empty answer takes the default.
type console struct {
	mu    sync.Mutex
	out   io.Writer
	lines chan string
}

func newConsole(in io.Reader, out io.Writer) *console {
	c := &console{out: out, lines: make(chan string)}
	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			c.lines <- strings.TrimSpace(scanner.Text())
		}
		close(c.lines)
	}()
	return c
}

// ask prints prompt and waits for one line. A closed input answers empty.
func (c *console) ask(ctx context.Context, prompt string) (string, error) {
	fmt.Fprint(c.out, prompt)
	select {
	case line, ok := <-c.lines:
		if !ok {
			return "", nil
		}
		return line, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (c *console) SelectCasualties(ctx context.Context, q casualty.Query) (casualty.Details, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(c.out, "%s\n", q.Message)
	for i, u := range q.Targets {
		fmt.Fprintf(c.out, "  %d) %s (%d/%d hits)\n", i+1, u.Type.Name, u.Hits, u.Type.HitPoints)
	}
	fmt.Fprintf(c.out, "default: %s\n", q.Default)
	answer, err := c.ask(ctx, "units to lose (comma separated, empty for default): ")
	if err != nil || answer == "" {
		return casualty.Details{List: q.Default, AutoCalculated: true}, err
	}
	var list casualty.List
	for _, field := range strings.Split(answer, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(field))
		if err != nil || n < 1 || n > len(q.Targets) {
			fmt.Fprintf(c.out, "ignoring %q\n", field)
			continue
		}
		u := q.Targets[n-1]
		if q.AllowMultipleHitsPerUnit && u.HitPointsLeft() > 1 && !unit.Contains(list.Damaged, u) {
			list.AddDamaged(u)
			continue
		}
		list.AddKilled(u)
	}
	return casualty.Details{List: list}, nil
}

func (c *console) ReportError(_ context.Context, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, "rejected: %s\n", message)
}

func (c *console) RetreatQuery(ctx context.Context, q player.RetreatQuery) (*unit.Territory, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(c.out, "%s\n", q.Message)
	for i, t := range q.Possible {
		fmt.Fprintf(c.out, "  %d) %s\n", i+1, t)
	}
	prompt := "retreat to (empty to stay): "
	if q.Submerge {
		prompt = "retreat to (s to submerge, empty to stay): "
	}
	answer, err := c.ask(ctx, prompt)
	if err != nil || answer == "" {
		return nil, err
	}
	if q.Submerge && strings.EqualFold(answer, "s") {
		return q.Territory, nil
	}
	n, err := strconv.Atoi(answer)
	if err != nil || n < 1 || n > len(q.Possible) {
		fmt.Fprintf(c.out, "staying, %q is not an option\n", answer)
		return nil, nil
	}
	return q.Possible[n-1], nil
}

func (c *console) ConfirmOwnCasualties(ctx context.Context, _ string, message string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := c.ask(ctx, fmt.Sprintf("your losses: %s [enter] ", message))
	return err
}

func (c *console) ConfirmEnemyCasualties(ctx context.Context, _ string, message string, hitPlayer *unit.Player) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := c.ask(ctx, fmt.Sprintf("%s losses: %s [enter] ", hitPlayer, message))
	return err
}

func (c *console) WhatShouldBomberBomb(ctx context.Context, territory *unit.Territory, targets []*unit.Unit, _ []*unit.Unit) (*unit.Unit, error) {
	if len(targets) == 0 {
		return nil, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(c.out, "bombing targets in %s\n", territory)
	for i, u := range targets {
		fmt.Fprintf(c.out, "  %d) %s (%d/%d damage)\n", i+1, u.Type.Name, u.BombingDamage, u.Type.MaxDamage)
	}
	answer, err := c.ask(ctx, "target (empty for 1): ")
	if err != nil {
		return nil, err
	}
	n, convErr := strconv.Atoi(answer)
	if convErr != nil || n < 1 || n > len(targets) {
		return targets[0], nil
	}
	return targets[n-1], nil
}

func (c *console) SelectShoreBombard(ctx context.Context, q player.BombardQuery) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	answer, err := c.ask(ctx, fmt.Sprintf("%s bombard %s? [Y/n] ", q.Unit.Type.Name, q.Territory))
	if err != nil {
		return false, err
	}
	return !strings.HasPrefix(strings.ToLower(answer), "n"), nil
}
