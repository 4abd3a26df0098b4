package realtime

import (
	"context"
	"encoding/json"
	"expvar"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

var (
	wsConnectionsGauge   = expvar.NewInt("websocket_connections")
	wsEventsSentTotal    = expvar.NewInt("websocket_events_sent_total")
	wsEventsDroppedTotal = expvar.NewInt("websocket_events_dropped_total")
)

// Frame is the envelope pushed to clients.
type Frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// userEvent is the wire shape of messages on the points topic. Only user_id is
// needed for routing; the rest of the payload is forwarded untouched.
type userEvent struct {
	UserID uuid.UUID `json:"user_id"`
}

// Connection represents one client WebSocket.
type Connection struct {
	UserID uuid.UUID
	Conn   *websocket.Conn
	Send   chan []byte
}

// Hub fans committed balance-change events out to connected clients. The
// outbox worker publishes to a Redis channel; every API instance's hub
// subscribes and delivers to its locally connected sockets, so delivery works
// across multiple instances.
type Hub struct {
	connections map[uuid.UUID]map[*Connection]bool
	mu          sync.RWMutex

	pubsub *redis.PubSub

	register   chan *Connection
	unregister chan *Connection

	ctx    context.Context
	cancel context.CancelFunc
}

// NewHub creates a hub subscribed to the given Redis channel. redisClient may
// be nil in tests; the hub then only manages local connections.
func NewHub(redisClient *redis.Client, channel string) *Hub {
	ctx, cancel := context.WithCancel(context.Background())

	h := &Hub{
		connections: make(map[uuid.UUID]map[*Connection]bool),
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		ctx:         ctx,
		cancel:      cancel,
	}

	if redisClient != nil {
		h.pubsub = redisClient.Subscribe(ctx, channel)
	}

	return h
}

// Run starts the hub (call in goroutine).
func (h *Hub) Run() {
	if h.pubsub != nil {
		go h.runSubscriber()
	}

	for {
		select {
		case <-h.ctx.Done():
			return

		case conn := <-h.register:
			h.mu.Lock()
			if h.connections[conn.UserID] == nil {
				h.connections[conn.UserID] = make(map[*Connection]bool)
			}
			h.connections[conn.UserID][conn] = true
			h.mu.Unlock()
			wsConnectionsGauge.Add(1)
			log.Debug().Str("user_id", conn.UserID.String()).Msg("Client connected")

		case conn := <-h.unregister:
			h.mu.Lock()
			if conns, ok := h.connections[conn.UserID]; ok {
				if _, exists := conns[conn]; exists {
					delete(conns, conn)
					close(conn.Send)
					wsConnectionsGauge.Add(-1)
				}
				if len(conns) == 0 {
					delete(h.connections, conn.UserID)
				}
			}
			h.mu.Unlock()
			log.Debug().Str("user_id", conn.UserID.String()).Msg("Client disconnected")
		}
	}
}

func (h *Hub) runSubscriber() {
	ch := h.pubsub.Channel()

	for {
		select {
		case <-h.ctx.Done():
			return

		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.dispatch([]byte(msg.Payload))
		}
	}
}

// dispatch routes one published event to the target user's local sockets.
func (h *Hub) dispatch(payload []byte) {
	var event userEvent
	if err := json.Unmarshal(payload, &event); err != nil || event.UserID == uuid.Nil {
		return
	}

	frame, err := json.Marshal(Frame{Type: "balance:updated", Data: payload})
	if err != nil {
		return
	}

	h.SendToUser(event.UserID, frame)
}

// SendToUser delivers raw bytes to every local connection of the user. The
// read lock is held across the sends so Run cannot close a Send channel
// mid-iteration; the sends are non-blocking, so the lock is never held long.
func (h *Hub) SendToUser(userID uuid.UUID, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for conn := range h.connections[userID] {
		select {
		case conn.Send <- data:
			wsEventsSentTotal.Add(1)
		default:
			// Buffer full, drop rather than block the hub.
			wsEventsDroppedTotal.Add(1)
			log.Warn().Str("user_id", userID.String()).Msg("WebSocket send buffer full")
		}
	}
}

// Register adds a connection.
func (h *Hub) Register(conn *Connection) {
	h.register <- conn
}

// Unregister removes a connection.
func (h *Hub) Unregister(conn *Connection) {
	h.unregister <- conn
}

// ConnectionCount returns the number of local connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	total := 0
	for _, conns := range h.connections {
		total += len(conns)
	}
	return total
}

// Shutdown gracefully stops the hub.
func (h *Hub) Shutdown() {
	h.cancel()
	if h.pubsub != nil {
		h.pubsub.Close()
	}
}
