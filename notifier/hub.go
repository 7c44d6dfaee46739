package notifier

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	cmap "github.com/orcaman/concurrent-map/v2"
)

// clientList holds a user's live connections; a user may be connected more
// than once (tabs, devices).
type clientList []*Client

// Hub is the connection registry and event fan-out for authenticated users.
// It is owned by whoever serves the websocket endpoint, not a package global,
// so servers and tests can each run their own.
type Hub struct {
	users        cmap.ConcurrentMap[string, clientList]
	upgrader     websocket.Upgrader
	heartbeat    time.Duration
	progressMin  time.Duration
	lastProgress cmap.ConcurrentMap[string, int64]
	stopChan     chan struct{}
}

// NewHub creates a registry with the given probe interval. progressMin > 0
// coalesces upload_progress events per upload; completion and error events
// are never throttled.
func NewHub(heartbeat, progressMin time.Duration) *Hub {
	return &Hub{
		users: cmap.New[clientList](),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		heartbeat:    heartbeat,
		progressMin:  progressMin,
		lastProgress: cmap.New[int64](),
		stopChan:     make(chan struct{}),
	}
}

func (h *Hub) addClient(userID string, c *Client) {
	h.users.Upsert(userID, clientList{c}, func(exist bool, valueInMap, newValue clientList) clientList {
		if exist {
			return append(valueInMap, c)
		}
		return newValue
	})
}

func (h *Hub) removeClient(userID string, c *Client) {
	h.users.Upsert(userID, clientList{}, func(exist bool, valueInMap, newValue clientList) clientList {
		if !exist {
			return newValue
		}
		for _, oc := range valueInMap {
			if oc == c {
				continue
			}
			newValue = append(newValue, oc)
		}
		return newValue
	})
	// No dangling empty sets
	h.users.RemoveCb(userID, func(_ string, v clientList, exists bool) bool {
		return exists && len(v) == 0
	})
}

// Serve upgrades an already-authenticated request and pumps the connection
// until it dies. The caller must have verified the credential first; no
// anonymous connection ever reaches the registry.
func (h *Hub) Serve(c *gin.Context, userID string) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Print("upgrade:", err)
		return
	}
	client := newClient(userID, conn)
	h.addClient(userID, client)
	defer func() {
		h.removeClient(userID, client)
		client.close()
	}()

	client.sendMessage(NewConnected(userID))
	client.readLoop()
}

// Broadcast delivers an event to every live connection of the user,
// at-most-once each. A dead connection is dropped and logged, never
// surfaced: one bad socket must not abort the fan-out. Zero connections is
// a no-op.
func (h *Hub) Broadcast(userID string, msg Message) {
	connections, exist := h.users.Get(userID)
	if !exist {
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		log.Println("marshal err:", err)
		return
	}
	for _, client := range connections {
		if msg.Type == TypeUploadProgress && !client.wantsUpload(msg.UploadID) {
			continue
		}
		if !client.send(data) {
			h.removeClient(userID, client)
			client.close()
		}
	}
}

// BroadcastProgress fans out an upload_progress event, coalescing per upload
// when a minimum interval is configured.
func (h *Hub) BroadcastProgress(userID, uploadID string, progress float64, bytesUploaded, totalBytes int64) {
	if h.progressMin > 0 {
		now := time.Now().UnixNano()
		last, ok := h.lastProgress.Get(uploadID)
		if ok && now-last < h.progressMin.Nanoseconds() {
			return
		}
		h.lastProgress.Set(uploadID, now)
	}
	h.Broadcast(userID, NewProgress(uploadID, progress, bytesUploaded, totalBytes))
}

func (h *Hub) BroadcastComplete(userID, uploadID, fileID string) {
	h.lastProgress.Remove(uploadID)
	h.Broadcast(userID, NewComplete(uploadID, fileID))
}

func (h *Hub) BroadcastError(userID, uploadID, errText string) {
	h.lastProgress.Remove(uploadID)
	h.Broadcast(userID, NewError(uploadID, errText))
}

// ConnectionCount reports a user's live connections.
func (h *Hub) ConnectionCount(userID string) int {
	connections, exist := h.users.Get(userID)
	if !exist {
		return 0
	}
	return len(connections)
}

// StartHeartbeat runs the keepalive on its own schedule, independent of any
// upload I/O. Each interval a connection that failed to answer the previous
// probe is terminated; everyone else is marked unanswered and probed again.
// A connection therefore survives by answering at least one probe per two
// intervals.
func (h *Hub) StartHeartbeat() {
	go func() {
		ticker := time.NewTicker(h.heartbeat)
		defer ticker.Stop()
		for {
			select {
			case <-h.stopChan:
				return
			case <-ticker.C:
				h.probeAll()
			}
		}
	}()
}

func (h *Hub) Stop() {
	close(h.stopChan)
}

func (h *Hub) probeAll() {
	for item := range h.users.IterBuffered() {
		userID := item.Key
		for _, client := range item.Val {
			if !client.consumeAlive() {
				log.Printf("terminating unresponsive connection of %s", userID)
				h.removeClient(userID, client)
				client.close()
				continue
			}
			if !client.probe() {
				h.removeClient(userID, client)
				client.close()
			}
		}
	}
}
