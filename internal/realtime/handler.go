package realtime

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/moim/moim-api/internal/middleware"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBufferSize = 32
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origin is enforced by the CORS layer; the WS endpoint is token-gated.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handler upgrades authenticated clients onto the hub.
type Handler struct {
	hub *Hub
}

// NewHandler creates the realtime handler.
func NewHandler(hub *Hub) *Handler {
	return &Handler{hub: hub}
}

// ServeWS handles GET /ws
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		log.Debug().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	conn := &Connection{
		UserID: userID,
		Conn:   wsConn,
		Send:   make(chan []byte, sendBufferSize),
	}

	h.hub.Register(conn)

	go h.writePump(conn)
	go h.readPump(conn)
}

// readPump drains client frames; clients only listen, so everything except
// control frames is discarded.
func (h *Handler) readPump(conn *Connection) {
	defer func() {
		h.hub.Unregister(conn)
		conn.Conn.Close()
	}()

	conn.Conn.SetReadLimit(maxMessageSize)
	conn.Conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.Conn.SetPongHandler(func(string) error {
		conn.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := conn.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Str("user_id", conn.UserID.String()).Msg("WebSocket closed unexpectedly")
			}
			return
		}
	}
}

func (h *Handler) writePump(conn *Connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Conn.Close()
	}()

	for {
		select {
		case data, ok := <-conn.Send:
			conn.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			conn.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
