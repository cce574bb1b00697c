package ws

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"voltbook/internal/models"
)

// Envelope is the wire format for every broadcast message.
type Envelope struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Hub tracks viewer connections and their per-booking subscriptions. Any
// number of viewers may watch one booking's channel at a time.
type Hub struct {
	logger        *zap.Logger
	mu            sync.RWMutex
	clients       map[*Client]bool
	subscriptions map[int64]map[*Client]bool
}

// NewHub builds hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		logger:        logger,
		clients:       make(map[*Client]bool),
		subscriptions: make(map[int64]map[*Client]bool),
	}
}

// Subscribe registers a client on a booking's channel.
func (h *Hub) Subscribe(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client] = true
	subs, ok := h.subscriptions[client.bookingID]
	if !ok {
		subs = make(map[*Client]bool)
		h.subscriptions[client.bookingID] = subs
	}
	subs[client] = true
	h.logger.Info("viewer subscribed",
		zap.Int64("booking_id", client.bookingID),
		zap.Int("channel_viewers", len(subs)),
	)
}

// Unsubscribe drops a client.
func (h *Hub) Unsubscribe(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	if subs, ok := h.subscriptions[client.bookingID]; ok {
		delete(subs, client)
		if len(subs) == 0 {
			delete(h.subscriptions, client.bookingID)
		}
	}
	close(client.send)
	h.logger.Info("viewer unsubscribed", zap.Int64("booking_id", client.bookingID))
}

// Publish delivers an event to every subscriber of the booking's channel.
// When no subscriber is known for that channel the fallback variant goes to
// every connected client, which self-filters by booking_id; state changes
// during a subscription race window are delivered rather than lost.
func (h *Hub) Publish(bookingID int64, event string, payload interface{}) {
	data, err := json.Marshal(Envelope{Event: event, Data: payload})
	if err != nil {
		h.logger.Error("failed to marshal broadcast", zap.String("event", event), zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	subs := h.subscriptions[bookingID]
	if len(subs) > 0 {
		for client := range subs {
			client.enqueue(data)
		}
		return
	}

	fallback := fallbackEvent(event)
	if fallback == "" || len(h.clients) == 0 {
		return
	}
	fallbackData, err := json.Marshal(Envelope{Event: fallback, Data: payload})
	if err != nil {
		return
	}
	for client := range h.clients {
		client.enqueue(fallbackData)
	}
}

// SubscriberCount returns viewers on one booking's channel.
func (h *Hub) SubscriberCount(bookingID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscriptions[bookingID])
}

func fallbackEvent(event string) string {
	switch event {
	case models.EventChargingUpdate:
		return models.EventChargingUpdateAll
	case models.EventChargingCompleted, models.EventChargingStopped:
		return models.EventChargingCompletedAll
	default:
		return ""
	}
}
