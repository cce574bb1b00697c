package service

import (
	"sync"
	"time"
)

// StalledSession describes one tracked booking that exceeded the stall
// timeout.
type StalledSession struct {
	BookingID int64
	LastSeen  time.Time
	Elapsed   time.Duration
}

// StallMonitor tracks the last telemetry arrival per active session so that a
// silent simulator does not leave a booking stuck in charging forever.
// Process-local; the redis live store keeps the durable mirror used to
// re-seed tracking after a restart.
type StallMonitor struct {
	mu       sync.RWMutex
	lastSeen map[int64]time.Time
	timeout  time.Duration
	now      func() time.Time
}

// NewStallMonitor returns monitor with given silence timeout.
func NewStallMonitor(timeout time.Duration) *StallMonitor {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &StallMonitor{
		lastSeen: make(map[int64]time.Time),
		timeout:  timeout,
		now:      time.Now,
	}
}

// RecordUpdate stamps last-seen for a booking to now.
func (m *StallMonitor) RecordUpdate(bookingID int64) {
	m.RecordUpdateAt(bookingID, m.now())
}

// RecordUpdateAt stamps last-seen with an explicit time, used when rebuilding
// tracking from persisted state.
func (m *StallMonitor) RecordUpdateAt(bookingID int64, seenAt time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastSeen[bookingID] = seenAt
}

// Remove stops tracking a booking after its session completed.
func (m *StallMonitor) Remove(bookingID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.lastSeen, bookingID)
}

// IsStalled reports whether a tracked booking exceeded the timeout. Unknown
// bookings are not stalled.
func (m *StallMonitor) IsStalled(bookingID int64) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen, ok := m.lastSeen[bookingID]
	if !ok {
		return false
	}
	return m.now().Sub(seen) > m.timeout
}

// ListStalled enumerates all tracked bookings exceeding the timeout.
func (m *StallMonitor) ListStalled() []StalledSession {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := m.now()
	var stalled []StalledSession
	for bookingID, seen := range m.lastSeen {
		elapsed := now.Sub(seen)
		if elapsed > m.timeout {
			stalled = append(stalled, StalledSession{
				BookingID: bookingID,
				LastSeen:  seen,
				Elapsed:   elapsed,
			})
		}
	}
	return stalled
}

// Tracked returns the number of bookings currently monitored.
func (m *StallMonitor) Tracked() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.lastSeen)
}
