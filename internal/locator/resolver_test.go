package locator

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

// fakeElement records which click tiers were attempted.
type fakeElement struct {
	directErr  error
	scriptErr  error
	pointerErr error
	clicks     []string
}

func (e *fakeElement) Click(ctx context.Context) error {
	e.clicks = append(e.clicks, "direct")
	return e.directErr
}

func (e *fakeElement) ScriptClick(ctx context.Context) error {
	e.clicks = append(e.clicks, "script")
	return e.scriptErr
}

func (e *fakeElement) PointerClick(ctx context.Context) error {
	e.clicks = append(e.clicks, "pointer")
	return e.pointerErr
}

func (e *fakeElement) Text(ctx context.Context) (string, error)  { return "", nil }
func (e *fakeElement) Enabled(ctx context.Context) (bool, error) { return true, nil }
func (e *fakeElement) ScrollIntoView(ctx context.Context) error  { return nil }

// fakeFinder matches only the strategies listed in present.
type fakeFinder struct {
	present map[string]*fakeElement
	probes  []string
}

func (f *fakeFinder) Probe(ctx context.Context, strategy Strategy, timeout time.Duration) (Element, error) {
	f.probes = append(f.probes, strategy.String())
	if el, ok := f.present[strategy.String()]; ok {
		return el, nil
	}
	return nil, errors.New("not found")
}

func TestResolveFirstMatchWins(t *testing.T) {
	want := &fakeElement{}
	finder := &fakeFinder{present: map[string]*fakeElement{
		CSS("#a").String(): want,
		CSS("#b").String(): {},
	}}

	r := NewResolver(testLogger)
	result := r.Resolve(context.Background(), finder, []Strategy{CSS("#a"), CSS("#b")}, time.Second)

	if !result.Found {
		t.Fatal("expected a match")
	}
	if result.Strategy.Value != "#a" {
		t.Fatalf("expected #a to win, got %s", result.Strategy.Value)
	}
	if result.Attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", result.Attempts)
	}
}

// The same cascade against the same page must keep matching the same
// candidate, even when earlier candidates are dead.
func TestResolveNthCandidateIdempotent(t *testing.T) {
	candidates := []Strategy{
		CSS("button.gone"),
		CSS("button.also-gone"),
		XPath("//button[contains(@aria-label, 'calendar')]"),
	}
	finder := &fakeFinder{present: map[string]*fakeElement{
		candidates[2].String(): {},
	}}

	r := NewResolver(testLogger)
	first := r.Resolve(context.Background(), finder, candidates, time.Second)
	second := r.Resolve(context.Background(), finder, candidates, time.Second)

	if !first.Found || !second.Found {
		t.Fatal("expected both resolutions to match")
	}
	if first.Strategy != second.Strategy {
		t.Fatalf("resolution not idempotent: %s vs %s", first.Strategy, second.Strategy)
	}
	if first.Attempts != 3 || second.Attempts != 3 {
		t.Fatalf("expected 3 attempts each, got %d and %d", first.Attempts, second.Attempts)
	}
}

func TestResolveExhaustionIsNotFound(t *testing.T) {
	finder := &fakeFinder{present: map[string]*fakeElement{}}

	r := NewResolver(testLogger)
	result := r.Resolve(context.Background(), finder, []Strategy{CSS("#a"), CSS("#b")}, time.Second)

	if result.Found {
		t.Fatal("expected no match")
	}
	if result.Attempts != 2 {
		t.Fatalf("expected every candidate probed, got %d", result.Attempts)
	}
	if len(finder.probes) != 2 {
		t.Fatalf("expected 2 probes, got %d", len(finder.probes))
	}
}

func TestClickCascadeStopsAtFirstSuccess(t *testing.T) {
	el := &fakeElement{}

	r := NewResolver(testLogger)
	if err := r.Click(context.Background(), el); err != nil {
		t.Fatalf("click error: %v", err)
	}
	if len(el.clicks) != 1 || el.clicks[0] != "direct" {
		t.Fatalf("expected only a direct click, got %v", el.clicks)
	}
}

func TestClickCascadeFallsThrough(t *testing.T) {
	el := &fakeElement{
		directErr: errors.New("intercepted"),
		scriptErr: errors.New("blocked"),
	}

	r := NewResolver(testLogger)
	if err := r.Click(context.Background(), el); err != nil {
		t.Fatalf("click error: %v", err)
	}
	want := []string{"direct", "script", "pointer"}
	if len(el.clicks) != len(want) {
		t.Fatalf("expected tiers %v, got %v", want, el.clicks)
	}
	for i, tier := range want {
		if el.clicks[i] != tier {
			t.Fatalf("expected tiers %v, got %v", want, el.clicks)
		}
	}
}

func TestClickCascadeSurfacesFinalError(t *testing.T) {
	el := &fakeElement{
		directErr:  errors.New("intercepted"),
		scriptErr:  errors.New("blocked"),
		pointerErr: errors.New("offscreen"),
	}

	r := NewResolver(testLogger)
	if err := r.Click(context.Background(), el); err == nil {
		t.Fatal("expected the last tier's error")
	}
}
