package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"voltbook/internal/repository"
	"voltbook/internal/service"
)

// ChargingHandler holds the endpoints invoked by the charging hardware side.
type ChargingHandler struct {
	svc    *service.ChargingService
	logger *zap.Logger
}

// NewChargingHandler builds handler set.
func NewChargingHandler(svc *service.ChargingService, logger *zap.Logger) *ChargingHandler {
	return &ChargingHandler{
		svc:    svc,
		logger: logger,
	}
}

type chargingUpdateRequest struct {
	EnergyConsumed        *float64 `json:"energy_consumed"`
	CurrentBatteryPercent *int     `json:"current_battery_percent"`
}

type chargingStopRequest struct {
	Reason              string   `json:"reason"`
	FinalBatteryPercent *int     `json:"final_battery_percent"`
	FinalEnergyConsumed *float64 `json:"final_energy_consumed"`
}

// HandleUpdate handles POST /internal/charging-update/{booking_id}.
func (h *ChargingHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	bookingID, ok := bookingIDFromPath(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid booking id")
		return
	}

	var req chargingUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.EnergyConsumed == nil || req.CurrentBatteryPercent == nil {
		writeError(w, http.StatusBadRequest, "energy_consumed and current_battery_percent are required")
		return
	}

	update, err := h.svc.ApplyTelemetry(r.Context(), service.TelemetryInput{
		BookingID:             bookingID,
		EnergyConsumed:        *req.EnergyConsumed,
		CurrentBatteryPercent: *req.CurrentBatteryPercent,
	})
	if err != nil {
		h.writeChargingError(w, bookingID, err)
		return
	}
	writeJSON(w, http.StatusOK, update)
}

// HandleStop handles POST /internal/charging-stop/{booking_id}. A stop for a
// booking that is not charging is an informational no-op. All body fields are
// optional; an empty body finalizes with last-known readings.
func (h *ChargingHandler) HandleStop(w http.ResponseWriter, r *http.Request) {
	bookingID, ok := bookingIDFromPath(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid booking id")
		return
	}

	var req chargingStopRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	update, err := h.svc.StopCharging(r.Context(), service.StopInput{
		BookingID:           bookingID,
		Reason:              req.Reason,
		FinalBatteryPercent: req.FinalBatteryPercent,
		FinalEnergyConsumed: req.FinalEnergyConsumed,
	})
	if errors.Is(err, service.ErrNotCharging) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored", "reason": "booking is not charging"})
		return
	}
	if err != nil {
		h.writeChargingError(w, bookingID, err)
		return
	}
	writeJSON(w, http.StatusOK, update)
}

// HandleActive handles GET /internal/charging/active.
func (h *ChargingHandler) HandleActive(w http.ResponseWriter, r *http.Request) {
	updates, err := h.svc.ListActive(r.Context(), 100)
	if err != nil {
		h.logger.Error("list active sessions failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list active sessions")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"sessions": updates})
}

func (h *ChargingHandler) writeChargingError(w http.ResponseWriter, bookingID int64, err error) {
	switch {
	case errors.Is(err, repository.ErrBookingNotFound):
		writeError(w, http.StatusNotFound, "booking not found")
	case errors.Is(err, repository.ErrStationNotFound):
		writeError(w, http.StatusNotFound, "station not found")
	case errors.Is(err, service.ErrInvalidReading):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrInvalidStatus):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrAlreadyCompleted):
		writeError(w, http.StatusConflict, "already completed")
	default:
		h.logger.Error("charging update failed", zap.Int64("booking_id", bookingID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to process charging update")
	}
}
