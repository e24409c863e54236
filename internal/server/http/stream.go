package http

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/LLM-Dev-Ops/governance-dashboard-sub004/internal/decision"
	"github.com/LLM-Dev-Ops/governance-dashboard-sub004/internal/observability"
)

const (
	streamClientBuffer = 32
	streamWriteTimeout = 10 * time.Second
)

// DecisionBroadcaster fans freshly emitted decision events out to connected
// websocket clients. Each client gets a bounded buffer; a client that
// cannot keep up has events dropped rather than stalling the publishers.
type DecisionBroadcaster struct {
	mu      sync.RWMutex
	clients map[chan *decision.DecisionEvent]struct{}
	obs     *observability.Observability
	dropped atomic.Int64
}

func NewDecisionBroadcaster(obs *observability.Observability) *DecisionBroadcaster {
	return &DecisionBroadcaster{
		clients: make(map[chan *decision.DecisionEvent]struct{}),
		obs:     obs,
	}
}

// Publish delivers event to every connected client without blocking.
func (b *DecisionBroadcaster) Publish(event *decision.DecisionEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for client := range b.clients {
		select {
		case client <- event:
		default:
			b.dropped.Add(1)
			b.obs.Logger.Warn("decision stream client buffer full, dropping event",
				"event_id", event.ID,
			)
		}
	}
}

func (b *DecisionBroadcaster) subscribe() chan *decision.DecisionEvent {
	client := make(chan *decision.DecisionEvent, streamClientBuffer)
	b.mu.Lock()
	b.clients[client] = struct{}{}
	b.mu.Unlock()
	return client
}

func (b *DecisionBroadcaster) unsubscribe(client chan *decision.DecisionEvent) {
	b.mu.Lock()
	delete(b.clients, client)
	b.mu.Unlock()
}

// ClientCount returns the number of connected stream clients.
func (b *DecisionBroadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

var streamUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// HandleStream implements GET /api/v1/decisions/stream as a websocket that
// pushes each newly emitted decision event as a JSON message.
func (b *DecisionBroadcaster) HandleStream(c *gin.Context) {
	conn, err := streamUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		b.obs.Logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	client := b.subscribe()
	defer b.unsubscribe(client)

	ctx := c.Request.Context()
	b.obs.Metrics.StreamClientConnected(ctx, 1)
	defer b.obs.Metrics.StreamClientConnected(ctx, -1)

	// Reader goroutine: we never expect client messages, but reading is
	// what surfaces close frames and connection loss.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case event := <-client:
			if err := conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout)); err != nil {
				return
			}
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		}
	}
}
