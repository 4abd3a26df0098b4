package realtime

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	h := NewHub(nil, "points:events")
	go h.Run()
	t.Cleanup(h.Shutdown)
	return h
}

func registerConn(t *testing.T, h *Hub, userID uuid.UUID) *Connection {
	t.Helper()
	before := h.ConnectionCount()
	conn := &Connection{UserID: userID, Send: make(chan []byte, 8)}
	h.Register(conn)
	require.Eventually(t, func() bool {
		return h.ConnectionCount() == before+1
	}, time.Second, 5*time.Millisecond)
	return conn
}

func TestHubDispatch(t *testing.T) {
	h := newTestHub(t)

	userID := uuid.New()
	conn := registerConn(t, h, userID)
	other := registerConn(t, h, uuid.New())

	payload := []byte(`{"user_id":"` + userID.String() + `","points":940}`)
	h.dispatch(payload)

	select {
	case data := <-conn.Send:
		var frame Frame
		require.NoError(t, json.Unmarshal(data, &frame))
		assert.Equal(t, "balance:updated", frame.Type)
		assert.JSONEq(t, string(payload), string(frame.Data))
	case <-time.After(time.Second):
		t.Fatal("expected a frame for the target user")
	}

	select {
	case <-other.Send:
		t.Fatal("frame delivered to the wrong user")
	default:
	}
}

func TestHubDispatchIgnoresGarbage(t *testing.T) {
	h := newTestHub(t)

	conn := registerConn(t, h, uuid.New())

	h.dispatch([]byte(`not json`))
	h.dispatch([]byte(`{"points":1}`))

	select {
	case <-conn.Send:
		t.Fatal("garbage payload must not reach clients")
	default:
	}
}

func TestHubFanOutToAllUserConnections(t *testing.T) {
	h := newTestHub(t)

	userID := uuid.New()
	first := registerConn(t, h, userID)
	second := registerConn(t, h, userID)

	h.SendToUser(userID, []byte("ping"))

	for _, conn := range []*Connection{first, second} {
		select {
		case data := <-conn.Send:
			assert.Equal(t, "ping", string(data))
		case <-time.After(time.Second):
			t.Fatal("expected delivery to every connection of the user")
		}
	}
}

func TestHubSendDuringDisconnect(t *testing.T) {
	h := newTestHub(t)

	userID := uuid.New()

	// Churn connections for one user while events for that user keep arriving.
	// A send racing the unregister close used to panic the hub goroutine.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			conn := &Connection{UserID: userID, Send: make(chan []byte, 1)}
			h.Register(conn)
			h.Unregister(conn)
		}
	}()

	for sending := true; sending; {
		select {
		case <-done:
			sending = false
		default:
			h.SendToUser(userID, []byte("tick"))
		}
	}

	require.Eventually(t, func() bool {
		return h.ConnectionCount() == 0
	}, time.Second, 5*time.Millisecond)
}

func TestHubUnregister(t *testing.T) {
	h := newTestHub(t)

	conn := registerConn(t, h, uuid.New())
	h.Unregister(conn)

	require.Eventually(t, func() bool {
		return h.ConnectionCount() == 0
	}, time.Second, 5*time.Millisecond)

	_, open := <-conn.Send
	assert.False(t, open, "send channel closed on unregister")
}
