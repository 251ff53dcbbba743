package web

import (
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// The stream is server-push only; inbound frames exist for pong control.
	maxInboundBytes = 512
)

// wsClient is one connected websocket peer. writePump is the only goroutine
// writing to conn.
type wsClient struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan Event
	logger *zap.Logger
}

func newWSClient(hub *Hub, conn *websocket.Conn, logger *zap.Logger) *wsClient {
	return &wsClient{
		hub:    hub,
		conn:   conn,
		send:   make(chan Event, 64),
		logger: logger,
	}
}

// writePump serializes queued events to the peer and keeps the ping
// heartbeat. It exits when the hub closes the send channel or a write fails.
func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case evt, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(evt); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards inbound frames; it exists to process pongs and to notice
// the peer going away.
func (c *wsClient) readPump() {
	defer func() {
		c.hub.remove(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxInboundBytes)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Debug("websocket read failed", zap.Error(err))
			}
			return
		}
	}
}
