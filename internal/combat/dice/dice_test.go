package dice

import (
	"context"
	"errors"
	"reflect"
	"testing"

	apperrors "github.com/triplea-game/triplea-sub001/internal/platform/errors"
)

func TestSeededValuesInRange(t *testing.T) {
	src := NewSeeded(7)
	values, err := src.GetRandom(context.Background(), 6, 500, "range check")
	if err != nil {
		t.Fatalf("get random: %v", err)
	}
	if len(values) != 500 {
		t.Fatalf("len = %d, want 500", len(values))
	}
	seen := map[int]bool{}
	for _, v := range values {
		if v < 0 || v >= 6 {
			t.Fatalf("value %d outside [0,6)", v)
		}
		seen[v] = true
	}
	if !seen[0] || !seen[5] {
		t.Fatalf("expected both ends of the range, saw %v", seen)
	}
}

func TestSeededIsDeterministic(t *testing.T) {
	a, _ := NewSeeded(99).GetRandom(context.Background(), 6, 20, "a")
	b, _ := NewSeeded(99).GetRandom(context.Background(), 6, 20, "b")
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("same seed produced %v and %v", a, b)
	}
}

func TestZeroCountConsumesNothing(t *testing.T) {
	src := NewScripted(3)
	audited := NewAudited(src)
	values, err := audited.GetRandom(context.Background(), 6, 0, "nothing")
	if err != nil {
		t.Fatalf("get random: %v", err)
	}
	if len(values) != 0 {
		t.Fatalf("values = %v, want none", values)
	}
	if src.Remaining() != 1 {
		t.Fatalf("remaining = %d, want 1", src.Remaining())
	}
	if len(audited.Entries()) != 0 {
		t.Fatalf("entries = %v, want none", audited.Entries())
	}
}

func TestScripted(t *testing.T) {
	src := NewScripted(0, 3, 5)
	got, err := src.GetRandom(context.Background(), 6, 2, "first")
	if err != nil {
		t.Fatalf("get random: %v", err)
	}
	if !reflect.DeepEqual(got, []int{0, 3}) {
		t.Fatalf("values = %v, want [0 3]", got)
	}
	if _, err := src.GetRandom(context.Background(), 6, 2, "second"); !errors.Is(err, ErrExhausted) {
		t.Fatalf("error = %v, want ErrExhausted", err)
	}
	if _, err := NewScripted(6).GetRandom(context.Background(), 6, 1, "big"); !errors.Is(err, ErrInvalidDiceSpec) {
		t.Fatalf("error = %v, want ErrInvalidDiceSpec", err)
	}
}

func TestInvalidSides(t *testing.T) {
	_, err := NewSeeded(1).GetRandom(context.Background(), 0, 1, "no sides")
	if !apperrors.HasCode(err, apperrors.CodeDiceInvalidSpec) {
		t.Fatalf("error = %v, want %s", err, apperrors.CodeDiceInvalidSpec)
	}
}

func TestAuditedRecordsAndReplays(t *testing.T) {
	var sunk []Entry
	audited := NewAudited(NewSeeded(5))
	audited.Sink = func(_ context.Context, e Entry) error {
		sunk = append(sunk, e)
		return nil
	}
	first, _ := audited.GetRandom(context.Background(), 6, 3, "Germans roll dice for 3 infantry in Egypt, round 1")
	second, _ := audited.GetRandom(context.Background(), 12, 1, "Roll AA in Egypt")

	entries := audited.Entries()
	if len(entries) != 2 || len(sunk) != 2 {
		t.Fatalf("entries = %d sunk = %d, want 2", len(entries), len(sunk))
	}
	if entries[1].Annotation != "Roll AA in Egypt" || entries[1].Sides != 12 {
		t.Fatalf("entry = %+v", entries[1])
	}

	replay := ReplaySource(entries)
	again, _ := replay.GetRandom(context.Background(), 6, 3, "replay")
	if !reflect.DeepEqual(again, first) {
		t.Fatalf("replay = %v, want %v", again, first)
	}
	last, _ := replay.GetRandom(context.Background(), 12, 1, "replay")
	if !reflect.DeepEqual(last, second) {
		t.Fatalf("replay = %v, want %v", last, second)
	}
}

func TestAuditedSinkError(t *testing.T) {
	audited := NewAudited(NewSeeded(1))
	audited.Sink = func(context.Context, Entry) error { return errors.New("journal closed") }
	if _, err := audited.GetRandom(context.Background(), 6, 1, "x"); err == nil {
		t.Fatal("expected sink error")
	}
	if n := len(audited.Entries()); n != 0 {
		t.Fatalf("entries = %d, want 0 after a rejected entry", n)
	}
}

func TestAuditedRetryAfterSinkErrorKeepsOnlyAcceptedRoll(t *testing.T) {
	audited := NewAudited(NewScripted(2, 4))
	failed := false
	audited.Sink = func(context.Context, Entry) error {
		if !failed {
			failed = true
			return errors.New("journal busy")
		}
		return nil
	}
	if _, err := audited.GetRandom(context.Background(), 6, 1, "attack"); err == nil {
		t.Fatal("expected sink error")
	}
	got, err := audited.GetRandom(context.Background(), 6, 1, "attack")
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	want := []Entry{{Sides: 6, Count: 1, Annotation: "attack", Values: []int{4}}}
	if !reflect.DeepEqual(got, []int{4}) || !reflect.DeepEqual(audited.Entries(), want) {
		t.Fatalf("values = %v entries = %+v, want %+v", got, audited.Entries(), want)
	}
	replay, err := ReplaySource(audited.Entries()).GetRandom(context.Background(), 6, 1, "replay")
	if err != nil || !reflect.DeepEqual(replay, []int{4}) {
		t.Fatalf("replay = %v, %v, want [4]", replay, err)
	}
}
