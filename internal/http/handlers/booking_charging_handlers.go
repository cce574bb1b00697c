package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"voltbook/internal/http/middleware"
	"voltbook/internal/repository"
	"voltbook/internal/service"
)

// BookingChargingHandler holds the authenticated viewer endpoints.
type BookingChargingHandler struct {
	svc    *service.ChargingService
	logger *zap.Logger
}

// NewBookingChargingHandler builds handler set.
func NewBookingChargingHandler(svc *service.ChargingService, logger *zap.Logger) *BookingChargingHandler {
	return &BookingChargingHandler{
		svc:    svc,
		logger: logger,
	}
}

// HandleStatus handles GET /bookings/{booking_id}/charging/status.
func (h *BookingChargingHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	bookingID, ok := bookingIDFromPath(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid booking id")
		return
	}
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	snapshot, err := h.svc.Status(r.Context(), bookingID, userID)
	if err != nil {
		h.writeViewerError(w, bookingID, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

// HandleComplete handles POST /bookings/{booking_id}/charging/complete.
func (h *BookingChargingHandler) HandleComplete(w http.ResponseWriter, r *http.Request) {
	bookingID, ok := bookingIDFromPath(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid booking id")
		return
	}
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	update, err := h.svc.CompleteByUser(r.Context(), bookingID, userID)
	if err != nil {
		h.writeViewerError(w, bookingID, err)
		return
	}
	writeJSON(w, http.StatusOK, update)
}

func (h *BookingChargingHandler) writeViewerError(w http.ResponseWriter, bookingID int64, err error) {
	switch {
	case errors.Is(err, repository.ErrBookingNotFound):
		writeError(w, http.StatusNotFound, "booking not found")
	case errors.Is(err, service.ErrNotOwner):
		writeError(w, http.StatusForbidden, "not your booking")
	case errors.Is(err, service.ErrNoActiveSession):
		writeError(w, http.StatusConflict, "no active charging session")
	case errors.Is(err, service.ErrAlreadyCompleted):
		writeError(w, http.StatusConflict, "already completed")
	default:
		h.logger.Error("viewer charging request failed", zap.Int64("booking_id", bookingID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "request failed")
	}
}
