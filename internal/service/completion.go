package service

import (
	"time"

	"voltbook/internal/models"
)

// ShouldComplete decides whether a session is finished given the incoming
// battery reading and booking context. Pure decision logic; all state
// mutation happens in the caller.
func ShouldComplete(currentBatteryPercent int, bookingStatus string, scheduledEnd, now time.Time) bool {
	if currentBatteryPercent >= 100 {
		return true
	}
	if !scheduledEnd.IsZero() && !now.Before(scheduledEnd) {
		return true
	}
	return bookingStatus == models.BookingStatusCompleted
}
