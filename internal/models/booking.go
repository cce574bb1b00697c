package models

import "time"

// Booking lifecycle statuses.
const (
	BookingStatusPending   = "pending"
	BookingStatusConfirmed = "confirmed"
	BookingStatusCharging  = "charging"
	BookingStatusCompleted = "completed"
	BookingStatusCancelled = "cancelled"
)

// Booking is a reservation of a charging slot. The charging service reads it
// and updates only status, actual_start, actual_end and total_cost; everything
// else belongs to the booking service.
type Booking struct {
	ID          int64      `db:"id" json:"id"`
	UserID      int64      `db:"user_id" json:"user_id"`
	StationID   int64      `db:"station_id" json:"station_id"`
	VehicleType string     `db:"vehicle_type" json:"vehicle_type"`
	StartTime   time.Time  `db:"start_time" json:"start_time"`
	EndTime     time.Time  `db:"end_time" json:"end_time"`
	Status      string     `db:"status" json:"status"`
	ActualStart *time.Time `db:"actual_start" json:"actual_start,omitempty"`
	ActualEnd   *time.Time `db:"actual_end" json:"actual_end,omitempty"`
	TotalCost   *float64   `db:"total_cost" json:"total_cost,omitempty"`
}
