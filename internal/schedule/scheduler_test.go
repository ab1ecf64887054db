package schedule

import (
	"testing"
	"time"
)

func TestNextRunSameDay(t *testing.T) {
	now := time.Date(2026, 1, 10, 0, 30, 0, 0, time.UTC)

	next, err := NextRun(now, "01:00")
	if err != nil {
		t.Fatalf("next run error: %v", err)
	}
	want := time.Date(2026, 1, 10, 1, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("expected %s, got %s", want, next)
	}
}

func TestNextRunRollsToTomorrow(t *testing.T) {
	now := time.Date(2026, 1, 10, 1, 0, 0, 0, time.UTC)

	next, err := NextRun(now, "01:00")
	if err != nil {
		t.Fatalf("next run error: %v", err)
	}
	want := time.Date(2026, 1, 11, 1, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("expected the next day, got %s", next)
	}
}

func TestNextRunRejectsBadTime(t *testing.T) {
	if _, err := NextRun(time.Now(), "25:99"); err == nil {
		t.Fatal("expected error for invalid time of day")
	}
}
