// Package stack runs battle steps in order and resumes after an interruption.
//
// A step that fails (a remote player timed out, the context was cancelled)
// stays on the stack together with the steps it did not reach, so calling
// Execute again picks up exactly where the battle stopped.
package stack

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrExecuting is returned when Execute is re-entered.
var ErrExecuting = errors.New("stack is already executing")

// Step is one unit of battle work.
type Step interface {
	Name() string
	Execute(ctx context.Context, s *Stack) error
}

// Func adapts a function to Step.
type Func struct {
	Label string
	Fn    func(ctx context.Context, s *Stack) error
}

// Name implements Step.
func (f Func) Name() string { return f.Label }

// Execute implements Step.
func (f Func) Execute(ctx context.Context, s *Stack) error { return f.Fn(ctx, s) }

// Stack holds pending steps. The last element runs next.
type Stack struct {
	mu        sync.Mutex
	steps     []Step
	executing bool
	current   string
}

// New returns an empty stack.
func New() *Stack {
	return &Stack{}
}

// Push schedules steps so they run in the given order, before anything
// already pending.
func (s *Stack) Push(steps ...Step) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(steps) - 1; i >= 0; i-- {
		if steps[i] != nil {
			s.steps = append(s.steps, steps[i])
		}
	}
}

func (s *Stack) pop() (Step, int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.steps) == 0 {
		return nil, 0, false
	}
	top := s.steps[len(s.steps)-1]
	s.steps = s.steps[:len(s.steps)-1]
	s.current = top.Name()
	return top, len(s.steps), true
}

// restore puts step back on top, dropping anything it pushed.
func (s *Stack) restore(step Step, depth int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.steps) > depth {
		s.steps = s.steps[:depth]
	}
	s.steps = append(s.steps, step)
}

// Execute runs steps until the stack is empty or a step fails. The failed
// step is kept so the next Execute retries it.
func (s *Stack) Execute(ctx context.Context) error {
	s.mu.Lock()
	if s.executing {
		s.mu.Unlock()
		return ErrExecuting
	}
	s.executing = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.executing = false
		s.current = ""
		s.mu.Unlock()
	}()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		step, depth, ok := s.pop()
		if !ok {
			return nil
		}
		if err := step.Execute(ctx, s); err != nil {
			s.restore(step, depth)
			return fmt.Errorf("%s: %w", step.Name(), err)
		}
	}
}

// IsEmpty reports whether no steps are pending.
func (s *Stack) IsEmpty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.steps) == 0
}

// IsExecuting reports whether Execute is running.
func (s *Stack) IsExecuting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.executing
}

// Current returns the name of the running step.
func (s *Stack) Current() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Names lists pending steps in execution order.
func (s *Stack) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.steps))
	for i := len(s.steps) - 1; i >= 0; i-- {
		out = append(out, s.steps[i].Name())
	}
	return out
}

// Clear drops every pending step.
func (s *Stack) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.steps = nil
}
