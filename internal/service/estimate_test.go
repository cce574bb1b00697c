package service

import (
	"testing"
	"time"
)

func TestEstimateTimeRemainingCompleted(t *testing.T) {
	now := time.Now().UTC()
	if got := EstimateTimeRemaining(true, 20, 100, now.Add(-time.Hour), now.Add(time.Hour), now); got != "0" {
		t.Fatalf("completed session must report 0, got %q", got)
	}
}

func TestEstimateTimeRemainingLinearExtrapolation(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	startedAt := now.Add(-10 * time.Minute)

	// 20 -> 60 in 10 minutes, so the remaining 40 points take another 10.
	got := EstimateTimeRemaining(false, 20, 60, startedAt, now.Add(2*time.Hour), now)
	if got != "10m" {
		t.Fatalf("expected 10m, got %q", got)
	}
}

func TestEstimateTimeRemainingFallsBackToScheduledEnd(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	// No progress since start: derive from booking end, never divide by zero.
	got := EstimateTimeRemaining(false, 42, 42, now.Add(-5*time.Minute), now.Add(30*time.Minute), now)
	if got != "30m" {
		t.Fatalf("expected 30m from scheduled end, got %q", got)
	}
}

func TestEstimateTimeRemainingElapsedScheduleFloorsAtZero(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	got := EstimateTimeRemaining(false, 42, 42, now.Add(-5*time.Minute), now.Add(-time.Minute), now)
	if got != "0" {
		t.Fatalf("expected 0 for elapsed schedule, got %q", got)
	}
}

func TestEstimateTimeRemainingHoursFormat(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	startedAt := now.Add(-time.Hour)

	// 20 -> 30 in one hour leaves 70 points at 10/hour: 7 hours.
	got := EstimateTimeRemaining(false, 20, 30, startedAt, time.Time{}, now)
	if got != "7h 0m" {
		t.Fatalf("expected 7h 0m, got %q", got)
	}
}

func TestFormatRemaining(t *testing.T) {
	cases := []struct {
		d        time.Duration
		expected string
	}{
		{0, "0"},
		{-time.Minute, "0"},
		{30 * time.Second, "1m"},
		{59 * time.Minute, "59m"},
		{90 * time.Minute, "1h 30m"},
	}
	for _, tc := range cases {
		if got := formatRemaining(tc.d); got != tc.expected {
			t.Fatalf("formatRemaining(%v) = %q, want %q", tc.d, got, tc.expected)
		}
	}
}
