package models

import "time"

// ChargingSession records one actual charging event for a booking, from first
// telemetry to completion. Kept forever as the billing record.
type ChargingSession struct {
	ID                  int64      `db:"id" json:"id"`
	BookingID           int64      `db:"booking_id" json:"booking_id"`
	StartBatteryPercent int        `db:"start_battery_percent" json:"start_battery_percent"`
	EndBatteryPercent   *int       `db:"end_battery_percent" json:"end_battery_percent,omitempty"`
	EnergyConsumed      float64    `db:"energy_consumed" json:"energy_consumed"`
	StartedAt           time.Time  `db:"started_at" json:"started_at"`
	EndedAt             *time.Time `db:"ended_at" json:"ended_at,omitempty"`
	ActualCost          *float64   `db:"actual_cost" json:"actual_cost,omitempty"`
	CreatedAt           time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at" json:"updated_at"`
}

// Ended reports whether the session is closed. ended_at presence is the
// authoritative signal.
func (s *ChargingSession) Ended() bool {
	return s != nil && s.EndedAt != nil
}
