package service

import (
	"testing"
	"time"

	"voltbook/internal/models"
)

func TestShouldComplete(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name     string
		battery  int
		status   string
		end      time.Time
		expected bool
	}{
		{"charging below full before end", 55, models.BookingStatusCharging, now.Add(time.Hour), false},
		{"battery full", 100, models.BookingStatusCharging, now.Add(time.Hour), true},
		{"battery over full", 101, models.BookingStatusCharging, now.Add(time.Hour), true},
		{"scheduled end elapsed", 40, models.BookingStatusCharging, now.Add(-time.Minute), true},
		{"scheduled end exactly now", 40, models.BookingStatusCharging, now, true},
		{"no scheduled end", 40, models.BookingStatusCharging, time.Time{}, false},
		{"booking already completed", 40, models.BookingStatusCompleted, now.Add(time.Hour), true},
		{"confirmed below full", 10, models.BookingStatusConfirmed, now.Add(time.Hour), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ShouldComplete(tc.battery, tc.status, tc.end, now)
			if got != tc.expected {
				t.Fatalf("ShouldComplete(%d, %s) = %v, want %v", tc.battery, tc.status, got, tc.expected)
			}
		})
	}
}
