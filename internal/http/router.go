package httpserver

import "net/http"

// Routes groups handlers.
type Routes struct {
	ChargingUpdate http.HandlerFunc
	ChargingStop   http.HandlerFunc
	ActiveSessions http.HandlerFunc
	ChargingStatus http.HandlerFunc
	CompleteByUser http.HandlerFunc
	WebSocket      http.HandlerFunc
	Health         http.HandlerFunc
}

// NewRouter registers endpoints. Viewer routes are wrapped with the auth
// middleware; internal routes are reachable only from the hardware bridge
// network. The charging-update/charging-stop paths are the wire contract the
// hardware simulator is coded against; the nested variants are kept as
// aliases.
func NewRouter(routes Routes, authMiddleware func(http.Handler) http.Handler) http.Handler {
	mux := http.NewServeMux()
	if routes.ChargingUpdate != nil {
		mux.Handle("POST /internal/charging-update/{booking_id}", routes.ChargingUpdate)
		mux.Handle("POST /internal/charging/{booking_id}/update", routes.ChargingUpdate)
	}
	if routes.ChargingStop != nil {
		mux.Handle("POST /internal/charging-stop/{booking_id}", routes.ChargingStop)
		mux.Handle("POST /internal/charging/{booking_id}/stop", routes.ChargingStop)
	}
	if routes.ActiveSessions != nil {
		mux.Handle("GET /internal/charging/active", routes.ActiveSessions)
	}
	if routes.ChargingStatus != nil {
		mux.Handle("GET /bookings/{booking_id}/charging/status", authMiddleware(routes.ChargingStatus))
	}
	if routes.CompleteByUser != nil {
		mux.Handle("POST /bookings/{booking_id}/charging/complete", authMiddleware(routes.CompleteByUser))
	}
	if routes.WebSocket != nil {
		mux.Handle("GET /ws/charging", routes.WebSocket)
	}
	if routes.Health != nil {
		mux.Handle("GET /health", routes.Health)
	}
	return mux
}
