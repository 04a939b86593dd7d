package realtime

import (
	"encoding/json"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxControlSize = 64 << 10
	sendBuffer     = 64
)

// control is a frame sent by the browser.
type control struct {
	Action  string   `json:"action"`
	Streams []string `json:"streams"`
}

type client struct {
	hub        *Hub
	socket     *websocket.Conn
	subscriber string
	allowed    []string

	// joined is guarded by hub.mu.
	joined map[string]struct{}

	mu     sync.Mutex
	send   chan Message
	closed bool
	once   sync.Once
}

func newClient(hub *Hub, socket *websocket.Conn, subscriber string, allowed []string) *client {
	return &client{
		hub:        hub,
		socket:     socket,
		subscriber: subscriber,
		allowed:    UniqueStreams(allowed),
		joined:     make(map[string]struct{}),
		send:       make(chan Message, sendBuffer),
	}
}

func (c *client) permits(stream string) bool {
	return len(c.allowed) == 0 || slices.Contains(c.allowed, stream)
}

// offer queues msg without blocking. It reports false only when the buffer is
// full; messages to a closed client are silently dropped.
func (c *client) offer(msg Message) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return true
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *client) readPump() {
	defer c.shutdown()

	c.socket.SetReadLimit(maxControlSize)
	_ = c.socket.SetReadDeadline(time.Now().Add(pongWait))
	c.socket.SetPongHandler(func(string) error {
		return c.socket.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, payload, err := c.socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.hub.log.Debug("unexpected close", zap.String("subscriber", c.subscriber), zap.Error(err))
			}
			return
		}
		if len(payload) > 0 {
			c.handle(payload)
		}
	}
}

func (c *client) handle(payload []byte) {
	var ctrl control
	if err := json.Unmarshal(payload, &ctrl); err != nil {
		c.hub.log.Debug("invalid control frame", zap.String("subscriber", c.subscriber), zap.Error(err))
		return
	}

	switch strings.ToLower(strings.TrimSpace(ctrl.Action)) {
	case "subscribe":
		c.hub.subscribe(c, ctrl.Streams)
	case "unsubscribe":
		c.hub.unsubscribe(c, ctrl.Streams)
	case "ping":
		c.offer(Message{Event: "pong"})
	default:
		c.hub.log.Debug("unknown control action", zap.String("action", ctrl.Action), zap.String("subscriber", c.subscriber))
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.shutdown()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.socket.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.socket.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.socket.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// shutdown is idempotent and safe to call from either pump or the hub.
func (c *client) shutdown() {
	c.once.Do(func() {
		c.hub.unregister(c)
		c.mu.Lock()
		c.closed = true
		close(c.send)
		c.mu.Unlock()
		_ = c.socket.Close()
	})
}
