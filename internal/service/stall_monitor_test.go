package service

import (
	"testing"
	"time"
)

func TestStallMonitorTimeoutBoundary(t *testing.T) {
	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	monitor := NewStallMonitor(5 * time.Second)
	monitor.now = func() time.Time { return current }

	monitor.RecordUpdate(1)

	current = current.Add(4 * time.Second)
	if monitor.IsStalled(1) {
		t.Fatal("must not be stalled one second before timeout")
	}

	current = current.Add(2 * time.Second)
	if !monitor.IsStalled(1) {
		t.Fatal("must be stalled one second past timeout")
	}
}

func TestStallMonitorUnknownBookingNotStalled(t *testing.T) {
	monitor := NewStallMonitor(5 * time.Second)
	if monitor.IsStalled(99) {
		t.Fatal("untracked booking must not be stalled")
	}
}

func TestStallMonitorRecordResetsClock(t *testing.T) {
	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	monitor := NewStallMonitor(5 * time.Second)
	monitor.now = func() time.Time { return current }

	monitor.RecordUpdate(1)
	current = current.Add(4 * time.Second)
	monitor.RecordUpdate(1)
	current = current.Add(4 * time.Second)

	if monitor.IsStalled(1) {
		t.Fatal("stall clock must reset on every update")
	}
}

func TestStallMonitorListStalled(t *testing.T) {
	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	monitor := NewStallMonitor(5 * time.Second)
	monitor.now = func() time.Time { return current }

	monitor.RecordUpdate(1)
	monitor.RecordUpdate(2)
	current = current.Add(3 * time.Second)
	monitor.RecordUpdate(2)
	current = current.Add(3 * time.Second)

	stalled := monitor.ListStalled()
	if len(stalled) != 1 {
		t.Fatalf("expected 1 stalled booking, got %d", len(stalled))
	}
	if stalled[0].BookingID != 1 {
		t.Fatalf("expected booking 1 stalled, got %d", stalled[0].BookingID)
	}
	if stalled[0].Elapsed != 6*time.Second {
		t.Fatalf("expected 6s elapsed, got %v", stalled[0].Elapsed)
	}
}

func TestStallMonitorRemove(t *testing.T) {
	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	monitor := NewStallMonitor(5 * time.Second)
	monitor.now = func() time.Time { return current }

	monitor.RecordUpdate(1)
	monitor.Remove(1)
	current = current.Add(time.Minute)

	if monitor.IsStalled(1) {
		t.Fatal("removed booking must not report stalled")
	}
	if monitor.Tracked() != 0 {
		t.Fatalf("expected 0 tracked, got %d", monitor.Tracked())
	}
}
