// Package realtime fans enriched readings out to live dashboard clients over
// WebSocket. Delivery is at-most-once with no replay: a reconnecting client
// simply misses whatever was published while it was away.
package realtime

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Topic names published by this service.
const (
	TopicReadings = "readings"
	TopicAlerts   = "alerts"
)

type Event struct {
	Topic string    `json:"topic"`
	Type  string    `json:"type"`
	Data  any       `json:"data,omitempty"`
	At    time.Time `json:"at"`
}

// subscribeMsg is the only client-to-server message the hub understands.
// A client that never sends one receives every topic.
type subscribeMsg struct {
	Action string   `json:"action"`
	Topics []string `json:"topics"`
}

type Hub struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
}

type client struct {
	conn *websocket.Conn
	send chan []byte

	mu     sync.Mutex
	topics map[string]struct{} // nil means all topics
}

func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(_ *http.Request) bool {
				// Auth happens on the HTTP routes; the socket carries no writes.
				return true
			},
		},
		clients: map[*client]struct{}{},
	}
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	c := &client{conn: conn, send: make(chan []byte, 16)}
	h.addClient(c)

	go h.writePump(c)
	h.readPump(c)
}

// Publish sends an event to every subscriber of topic. It never blocks on a
// subscriber: a client whose buffer is full is dropped.
func (h *Hub) Publish(topic, eventType string, data any) error {
	b, err := json.Marshal(Event{Topic: topic, Type: eventType, Data: data, At: time.Now().UTC()})
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if !c.wants(topic) {
			continue
		}
		select {
		case c.send <- b:
		default:
			// Slow client; drop it.
			delete(h.clients, c)
			close(c.send)
			_ = c.conn.Close()
		}
	}
	return nil
}

// ClientCount reports the number of connected subscribers.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (c *client) wants(topic string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.topics == nil {
		return true
	}
	_, ok := c.topics[topic]
	return ok
}

func (c *client) setTopics(topics []string) {
	set := make(map[string]struct{}, len(topics))
	for _, t := range topics {
		set[t] = struct{}{}
	}
	c.mu.Lock()
	c.topics = set
	c.mu.Unlock()
}

func (h *Hub) addClient(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

func (h *Hub) removeClient(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
		_ = c.conn.Close()
	}
}

func (h *Hub) readPump(c *client) {
	defer h.removeClient(c)
	c.conn.SetReadLimit(1024)
	_ = c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var sub subscribeMsg
		if err := json.Unmarshal(msg, &sub); err != nil {
			continue
		}
		if sub.Action == "subscribe" {
			c.setTopics(sub.Topics)
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(25 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
