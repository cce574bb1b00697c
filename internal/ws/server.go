package ws

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"voltbook/internal/auth"
	"voltbook/internal/models"
)

// TokenVerifier validates viewer JWTs on the upgrade request.
type TokenVerifier interface {
	ValidateToken(token string) (*auth.Claims, error)
}

// BookingLookup resolves bookings for the ownership check on subscribe.
type BookingLookup interface {
	GetByID(ctx context.Context, id int64) (*models.Booking, error)
}

// Server upgrades viewer HTTP connections to WebSockets.
type Server struct {
	hub          *Hub
	tokens       TokenVerifier
	bookings     BookingLookup
	logger       *zap.Logger
	writeTimeout time.Duration
	baseCtx      context.Context
	upgrader     websocket.Upgrader
}

// NewServer builds ws server.
func NewServer(hub *Hub, tokens TokenVerifier, bookings BookingLookup, writeTimeout time.Duration, logger *zap.Logger) *Server {
	return &Server{
		hub:          hub,
		tokens:       tokens,
		bookings:     bookings,
		logger:       logger,
		writeTimeout: writeTimeout,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// SetBaseContext sets the context viewer pumps run under so connections close
// on graceful shutdown. Call before the HTTP server starts accepting.
func (s *Server) SetBaseContext(ctx context.Context) {
	s.baseCtx = ctx
}

// HandleWS is the HTTP handler for /ws/charging. Browsers cannot set headers
// on websocket upgrades, so the token rides in the query string. Viewers may
// only subscribe to their own booking's channel.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	bookingID, err := strconv.ParseInt(r.URL.Query().Get("booking_id"), 10, 64)
	if err != nil || bookingID <= 0 {
		http.Error(w, "booking_id is required", http.StatusBadRequest)
		return
	}

	token := r.URL.Query().Get("token")
	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	booking, err := s.bookings.GetByID(r.Context(), bookingID)
	if err != nil {
		http.Error(w, "booking not found", http.StatusNotFound)
		return
	}
	if booking.UserID != claims.UserID {
		http.Error(w, "not your booking", http.StatusForbidden)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", zap.Error(err))
		return
	}

	client := NewClient(s.hub, bookingID, conn, s.writeTimeout, s.logger)
	s.hub.Subscribe(client)

	s.logger.Info("viewer connected",
		zap.Int64("booking_id", bookingID),
		zap.Int64("user_id", claims.UserID),
	)

	ctx := s.baseCtx
	if ctx == nil {
		ctx = context.Background()
	}
	go client.Start(ctx)
}
