package service

import (
	"context"
	"fmt"

	"github.com/looplab/fsm"

	"voltbook/internal/models"
)

// Booking lifecycle events.
const (
	EventConfirm       = "confirm"
	EventStartCharging = "start_charging"
	EventComplete      = "complete"
	EventCancel        = "cancel"
)

// newLifecycle builds the booking lifecycle machine positioned at the given
// status. The machine is the single source of truth for legal transitions.
func newLifecycle(status string) *fsm.FSM {
	return fsm.NewFSM(
		status,
		fsm.Events{
			{Name: EventConfirm, Src: []string{models.BookingStatusPending}, Dst: models.BookingStatusConfirmed},
			{Name: EventStartCharging, Src: []string{models.BookingStatusConfirmed}, Dst: models.BookingStatusCharging},
			{Name: EventComplete, Src: []string{models.BookingStatusConfirmed, models.BookingStatusCharging}, Dst: models.BookingStatusCompleted},
			{Name: EventCancel, Src: []string{models.BookingStatusPending, models.BookingStatusConfirmed}, Dst: models.BookingStatusCancelled},
		},
		fsm.Callbacks{},
	)
}

// advanceStatus applies a lifecycle event to a status and returns the
// resulting one.
func advanceStatus(current, event string) (string, error) {
	machine := newLifecycle(current)
	if err := machine.Event(context.Background(), event); err != nil {
		return "", fmt.Errorf("lifecycle: %s from %s: %w", event, current, err)
	}
	return machine.Current(), nil
}

// CanStartCharging reports whether telemetry may flip the booking to charging.
func CanStartCharging(status string) bool {
	return newLifecycle(status).Can(EventStartCharging)
}

// AcceptsTelemetry reports whether a booking in this status may receive
// telemetry at all. Pending and cancelled bookings getting readings indicate
// a hardware/backend desync.
func AcceptsTelemetry(status string) bool {
	switch status {
	case models.BookingStatusConfirmed, models.BookingStatusCharging, models.BookingStatusCompleted:
		return true
	default:
		return false
	}
}
