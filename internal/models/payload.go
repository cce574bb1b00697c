package models

import "fmt"

// Event names published on a booking's channel.
const (
	EventChargingUpdate    = "charging_update"
	EventChargingCompleted = "charging_completed"
	EventChargingStopped   = "charging_stopped"

	// Fallback variants delivered to every client when channel subscription
	// state is uncertain; clients filter by booking_id.
	EventChargingUpdateAll    = "charging_update_all"
	EventChargingCompletedAll = "charging_completed_all"
)

// Stop reasons carried on final payloads.
const (
	StopReasonBatteryFull = "battery_full"
	StopReasonStalled     = "stalled"
	StopReasonUser        = "user_request"
)

// ChargingUpdate is the derived view emitted after every accepted telemetry
// application and echoed to the telemetry source.
type ChargingUpdate struct {
	BookingID             int64    `json:"booking_id"`
	StationID             int64    `json:"station_id"`
	Status                string   `json:"status"`
	CurrentBatteryPercent int      `json:"current_battery_percent"`
	StartBatteryPercent   int      `json:"start_battery_percent"`
	EndBatteryPercent     *int     `json:"end_battery_percent,omitempty"`
	EnergyConsumed        float64  `json:"energy_consumed"`
	EstimatedCost         float64  `json:"estimated_cost"`
	ActualCost            *float64 `json:"actual_cost,omitempty"`
	TimeRemaining         string   `json:"time_remaining"`
	Completed             bool     `json:"completed"`
	StopReason            string   `json:"stop_reason,omitempty"`
}

// ChargingSnapshot is the synchronous read view returned by the status query,
// including the channel the viewer should subscribe to for live updates.
type ChargingSnapshot struct {
	BookingID             int64    `json:"booking_id"`
	StationID             int64    `json:"station_id"`
	Status                string   `json:"status"`
	CurrentBatteryPercent int      `json:"current_battery_percent"`
	StartBatteryPercent   int      `json:"start_battery_percent"`
	EndBatteryPercent     *int     `json:"end_battery_percent,omitempty"`
	EnergyConsumed        float64  `json:"energy_consumed"`
	EstimatedCost         float64  `json:"estimated_cost"`
	ActualCost            *float64 `json:"actual_cost,omitempty"`
	TimeRemaining         string   `json:"time_remaining"`
	Completed             bool     `json:"completed"`
	Channel               string   `json:"channel"`
}

// ChannelName returns the broadcast channel identifier for a booking.
func ChannelName(bookingID int64) string {
	return fmt.Sprintf("charging:%d", bookingID)
}
