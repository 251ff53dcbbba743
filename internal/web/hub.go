package web

import (
	"go.uber.org/zap"
)

// Hub fans loop events out to every connected websocket client. Event
// methods are called from the goroutines running the loop and never block:
// when the broadcast channel is full the event is dropped, and a client that
// cannot drain its own queue is disconnected.
type Hub struct {
	logger *zap.Logger

	register   chan *wsClient
	unregister chan *wsClient
	broadcast  chan Event
	quit       chan struct{}
	done       chan struct{}
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		logger:     logger,
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		broadcast:  make(chan Event, 256),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Run owns the client set until Stop is called. It runs in its own
// goroutine; all map access happens here.
func (h *Hub) Run() {
	clients := make(map[*wsClient]bool)
	defer func() {
		for c := range clients {
			close(c.send)
		}
		close(h.done)
	}()

	for {
		select {
		case c := <-h.register:
			clients[c] = true
			// Confirms the subscription; run frames follow. The send buffer
			// of a fresh client is empty, so this never blocks.
			c.send <- Event{Type: EventConnected}
			h.logger.Debug("websocket client connected", zap.Int("clients", len(clients)))

		case c := <-h.unregister:
			if clients[c] {
				delete(clients, c)
				close(c.send)
			}
			h.logger.Debug("websocket client disconnected", zap.Int("clients", len(clients)))

		case evt := <-h.broadcast:
			for c := range clients {
				select {
				case c.send <- evt:
				default:
					// Slow consumer. Dropping it keeps the loop unblocked.
					delete(clients, c)
					close(c.send)
				}
			}

		case <-h.quit:
			return
		}
	}
}

// Stop shuts the hub down and closes every client connection.
func (h *Hub) Stop() {
	close(h.quit)
}

// add hands a client to the run goroutine. It reports false once the hub has
// stopped.
func (h *Hub) add(c *wsClient) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// remove hands a disconnect to the run goroutine.
func (h *Hub) remove(c *wsClient) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) publish(evt Event) {
	select {
	case h.broadcast <- evt:
	default:
		h.logger.Warn("event channel full, dropping event",
			zap.String("type", evt.Type),
			zap.String("run_id", evt.RunID))
	}
}
