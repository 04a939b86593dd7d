// Package realtime fans pitch deck events out to admin WebSocket clients.
package realtime

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/baselineanalytics/portal/pkg/logger"
)

// Message is the JSON frame written to subscribers.
type Message struct {
	Stream string         `json:"stream"`
	Event  string         `json:"event"`
	Data   any            `json:"data,omitempty"`
	Meta   map[string]any `json:"meta,omitempty"`
}

// Hub tracks which clients listen on which streams.
type Hub struct {
	upgrader websocket.Upgrader
	log      *zap.Logger

	mu      sync.RWMutex
	streams map[string]map[*client]struct{}
	clients map[*client]struct{}
	closed  bool
}

// NewHub builds a hub that accepts same-origin and loopback browsers plus any
// extra origin hosts given.
func NewHub(trustedOrigins ...string) *Hub {
	check := originChecker(trustedOrigins)
	return &Hub{
		log:     logger.WithModule("realtime"),
		streams: make(map[string]map[*client]struct{}),
		clients: make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     check,
		},
	}
}

// Serve upgrades the request and blocks until the client disconnects.
// A non-empty allowed list limits which streams the client may join.
func (h *Hub) Serve(subscriber string, streams, allowed []string, w http.ResponseWriter, r *http.Request) {
	socket, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("upgrade failed", zap.String("subscriber", subscriber), zap.Error(err))
		return
	}

	c := newClient(h, socket, subscriber, allowed)
	if !h.register(c) {
		_ = socket.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
		_ = socket.Close()
		return
	}
	h.subscribe(c, streams)

	go c.writePump()
	c.readPump()
}

// Publish sends event to every subscriber of stream.
func (h *Hub) Publish(stream, event string, data any) {
	h.Broadcast(Message{Stream: stream, Event: event, Data: data})
}

// Broadcast delivers msg to the subscribers of msg.Stream. Clients whose
// buffers are full are disconnected.
func (h *Hub) Broadcast(msg Message) {
	msg.Stream = normalizeStream(msg.Stream)
	if msg.Stream == "" {
		return
	}

	h.mu.RLock()
	var slow []*client
	for c := range h.streams[msg.Stream] {
		if !c.offer(msg) {
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.log.Warn("disconnecting slow subscriber", zap.String("subscriber", c.subscriber), zap.String("stream", msg.Stream))
		c.shutdown()
	}
}

// Subscribers counts the clients on stream.
func (h *Hub) Subscribers(stream string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.streams[normalizeStream(stream)])
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.shutdown()
	}
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	return true
}

func (h *Hub) subscribe(c *client, streams []string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, stream := range UniqueStreams(streams) {
		if !c.permits(stream) {
			h.log.Warn("stream not permitted", zap.String("stream", stream), zap.String("subscriber", c.subscriber))
			continue
		}
		members := h.streams[stream]
		if members == nil {
			members = make(map[*client]struct{})
			h.streams[stream] = members
		}
		members[c] = struct{}{}
		c.joined[stream] = struct{}{}
	}
}

func (h *Hub) unsubscribe(c *client, streams []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, stream := range UniqueStreams(streams) {
		h.leaveLocked(c, stream)
	}
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for stream := range c.joined {
		h.leaveLocked(c, stream)
	}
	delete(h.clients, c)
}

func (h *Hub) leaveLocked(c *client, stream string) {
	delete(c.joined, stream)
	members, ok := h.streams[stream]
	if !ok {
		return
	}
	delete(members, c)
	if len(members) == 0 {
		delete(h.streams, stream)
	}
}
