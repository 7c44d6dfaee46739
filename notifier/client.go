package notifier

import (
	"encoding/json"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

// Client is one live websocket connection of a user.
type Client struct {
	userID string
	conn   *websocket.Conn

	writeMu sync.Mutex
	alive   atomic.Bool

	// Explicit upload subscriptions. Empty means "everything for my user".
	subsMu sync.Mutex
	subs   map[string]struct{}
}

func newClient(userID string, conn *websocket.Conn) *Client {
	c := &Client{
		userID: userID,
		conn:   conn,
		subs:   make(map[string]struct{}),
	}
	c.alive.Store(true)
	return c
}

func (c *Client) send(data []byte) bool {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		log.Println("write err:", err)
		return false
	}
	return true
}

func (c *Client) sendMessage(msg Message) bool {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Println("marshal err:", err)
		return false
	}
	return c.send(data)
}

func (c *Client) markAlive() {
	c.alive.Store(true)
}

// consumeAlive reports whether the connection answered since the previous
// probe and resets the flag for the next interval.
func (c *Client) consumeAlive() bool {
	return c.alive.Swap(false)
}

// probe sends a liveness ping. WriteControl is safe alongside WriteMessage.
func (c *Client) probe() bool {
	err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
	if err != nil {
		log.Println("ping err:", err)
		return false
	}
	return true
}

func (c *Client) close() {
	_ = c.conn.Close()
}

func (c *Client) subscribe(uploadID string) {
	if uploadID == "" {
		return
	}
	c.subsMu.Lock()
	c.subs[uploadID] = struct{}{}
	c.subsMu.Unlock()
}

func (c *Client) unsubscribe(uploadID string) {
	c.subsMu.Lock()
	delete(c.subs, uploadID)
	c.subsMu.Unlock()
}

// wantsUpload filters progress events: a client with explicit subscriptions
// only gets progress for those uploads; with none it gets all of its user's.
func (c *Client) wantsUpload(uploadID string) bool {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	if len(c.subs) == 0 {
		return true
	}
	_, ok := c.subs[uploadID]
	return ok
}

// readLoop pumps inbound messages until the transport dies. Any inbound
// frame, including a probe reply, counts as a liveness answer.
func (c *Client) readLoop() {
	c.conn.SetPongHandler(func(string) error {
		c.markAlive()
		return nil
	})
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		c.markAlive()
		c.dispatch(data)
	}
}

func (c *Client) dispatch(data []byte) {
	var msg struct {
		Type     string `json:"type"`
		UploadID string `json:"uploadId"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Printf("bad message from %s: %v", c.userID, err)
		return
	}
	switch msg.Type {
	case TypePing:
		c.sendMessage(NewPong())
	case TypeSubscribeUpload:
		c.subscribe(msg.UploadID)
	case TypeUnsubscribeUpload:
		c.unsubscribe(msg.UploadID)
	default:
		log.Printf("unknown message type %q from %s", msg.Type, c.userID)
	}
}
