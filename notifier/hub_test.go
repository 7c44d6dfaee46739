package notifier

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHub(t *testing.T, heartbeat, progressMin time.Duration) (*Hub, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	hub := NewHub(heartbeat, progressMin)
	router := gin.New()
	router.GET("/ws", func(c *gin.Context) {
		hub.Serve(c, c.Query("user"))
	})
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return hub, "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
}

func dial(t *testing.T, url, userID string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url+"?user="+userID, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	// Every connection is acknowledged first
	msg := readMessage(t, conn)
	require.Equal(t, TypeConnected, msg.Type)
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func expectSilence(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(150*time.Millisecond)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
}

func waitForCount(t *testing.T, hub *Hub, userID string, want int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return hub.ConnectionCount(userID) == want
	}, 2*time.Second, 10*time.Millisecond)
}

func TestBroadcastFansOutToAllUserConnections(t *testing.T) {
	hub, url := newTestHub(t, time.Hour, 0)

	first := dial(t, url, "u1")
	second := dial(t, url, "u1")
	other := dial(t, url, "u2")
	waitForCount(t, hub, "u1", 2)

	hub.BroadcastComplete("u1", "up1", "file-9")

	for _, conn := range []*websocket.Conn{first, second} {
		msg := readMessage(t, conn)
		assert.Equal(t, TypeUploadComplete, msg.Type)
		assert.Equal(t, "up1", msg.UploadID)
		assert.NotZero(t, msg.Timestamp)
	}
	expectSilence(t, other)
}

func TestBroadcastToUserWithNoConnections(t *testing.T) {
	hub, _ := newTestHub(t, time.Hour, 0)
	// Must be a safe no-op
	hub.Broadcast("ghost", NewError("up1", "boom"))
	hub.BroadcastProgress("ghost", "up1", 50, 5, 10)
	assert.Equal(t, 0, hub.ConnectionCount("ghost"))
}

func TestDisconnectRemovesUserEntry(t *testing.T) {
	hub, url := newTestHub(t, time.Hour, 0)

	conn := dial(t, url, "u1")
	waitForCount(t, hub, "u1", 1)

	conn.Close()
	waitForCount(t, hub, "u1", 0)
	// The user entry itself is gone, not an empty set
	assert.False(t, hub.users.Has("u1"))
}

func TestPingMessageAnsweredWithPong(t *testing.T) {
	_, url := newTestHub(t, time.Hour, 0)
	conn := dial(t, url, "u1")

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "ping"}))
	msg := readMessage(t, conn)
	assert.Equal(t, TypePong, msg.Type)
}

func TestUnknownMessageTypeIgnored(t *testing.T) {
	hub, url := newTestHub(t, time.Hour, 0)
	conn := dial(t, url, "u1")

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "launch_missiles"}))
	require.NoError(t, conn.WriteJSON(map[string]string{"type": "ping"}))

	// Still connected and responsive
	msg := readMessage(t, conn)
	assert.Equal(t, TypePong, msg.Type)
	assert.Equal(t, 1, hub.ConnectionCount("u1"))
}

func TestSubscriptionFiltersProgressOnly(t *testing.T) {
	hub, url := newTestHub(t, time.Hour, 0)
	conn := dial(t, url, "u1")
	waitForCount(t, hub, "u1", 1)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "subscribe_upload", "uploadId": "mine"}))

	// Give the read loop a moment to register the subscription
	require.Eventually(t, func() bool {
		connections, _ := hub.users.Get("u1")
		return len(connections) == 1 && !connections[0].wantsUpload("other")
	}, time.Second, 10*time.Millisecond)

	hub.BroadcastProgress("u1", "other", 10, 1, 10)
	hub.BroadcastProgress("u1", "mine", 20, 2, 10)

	msg := readMessage(t, conn)
	assert.Equal(t, TypeUploadProgress, msg.Type)
	assert.Equal(t, "mine", msg.UploadID)

	// Completion and error events are never filtered
	hub.BroadcastError("u1", "other", "boom")
	msg = readMessage(t, conn)
	assert.Equal(t, TypeUploadError, msg.Type)
}

func TestProgressThrottling(t *testing.T) {
	hub, url := newTestHub(t, time.Hour, time.Hour)
	conn := dial(t, url, "u1")
	waitForCount(t, hub, "u1", 1)

	hub.BroadcastProgress("u1", "up1", 10, 1, 10)
	hub.BroadcastProgress("u1", "up1", 20, 2, 10) // coalesced away

	msg := readMessage(t, conn)
	assert.Equal(t, TypeUploadProgress, msg.Type)

	// Completion bypasses the throttle
	hub.BroadcastComplete("u1", "up1", "file-1")
	msg = readMessage(t, conn)
	assert.Equal(t, TypeUploadComplete, msg.Type)
}

func TestUnresponsiveConnectionTerminatedAfterTwoProbes(t *testing.T) {
	hub, url := newTestHub(t, 50*time.Millisecond, 0)

	// A client that reads keeps answering probes (gorilla replies to pings
	// automatically while the read pump runs)
	live := dial(t, url, "live")
	go func() {
		for {
			if _, _, err := live.ReadMessage(); err != nil {
				return
			}
		}
	}()

	// A client that never reads never answers any probe
	dead, _, err := websocket.DefaultDialer.Dial(url+"?user=dead", nil)
	require.NoError(t, err)
	defer dead.Close()
	waitForCount(t, hub, "dead", 1)

	hub.StartHeartbeat()
	defer hub.Stop()

	waitForCount(t, hub, "dead", 0)

	// Three intervals later the reading client is still registered
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, 1, hub.ConnectionCount("live"))
}
