package ws

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	sendBufferSize = 16
	readLimit      = 64 * 1024
	pongWait       = 60 * time.Second
	pingInterval   = 30 * time.Second
)

// Client is one viewer connection subscribed to a single booking's channel.
type Client struct {
	hub          *Hub
	bookingID    int64
	conn         *websocket.Conn
	send         chan []byte
	logger       *zap.Logger
	writeTimeout time.Duration
}

// NewClient wraps an upgraded connection.
func NewClient(hub *Hub, bookingID int64, conn *websocket.Conn, writeTimeout time.Duration, logger *zap.Logger) *Client {
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}
	return &Client{
		hub:          hub,
		bookingID:    bookingID,
		conn:         conn,
		send:         make(chan []byte, sendBufferSize),
		logger:       logger,
		writeTimeout: writeTimeout,
	}
}

// Start launches read/write pumps. Blocks until the connection closes.
func (c *Client) Start(ctx context.Context) {
	go c.writePump(ctx)
	c.readPump(ctx)
}

// readPump drains inbound frames to keep the connection alive; viewers do not
// send application messages.
func (c *Client) readPump(ctx context.Context) {
	defer func() {
		c.hub.Unsubscribe(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(readLimit)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// Shutdown: closing the conn also unblocks the read pump.
			_ = c.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
			_ = c.conn.Close()
			return
		case msg, ok := <-c.send:
			if !ok {
				_ = c.write(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.write(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, []byte("ping")); err != nil {
				return
			}
		}
	}
}

// enqueue hands a message to the write pump, dropping it when the viewer
// cannot keep up.
func (c *Client) enqueue(msg []byte) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Warn("attempted to send on closed channel", zap.Int64("booking_id", c.bookingID))
		}
	}()
	select {
	case c.send <- msg:
	default:
		c.logger.Warn("dropping broadcast, viewer buffer full", zap.Int64("booking_id", c.bookingID))
	}
}

func (c *Client) write(messageType int, data []byte) error {
	c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	return c.conn.WriteMessage(messageType, data)
}
