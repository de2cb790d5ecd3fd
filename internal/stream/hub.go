// Package stream pushes sub-agent state to dashboard websockets. Each
// client gets a full snapshot on connect; after that the hub polls the
// session index and broadcasts only when something changed.
package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/openclaw/clawmetry/internal/subagent"
)

type MessageType string

const (
	MsgSnapshot MessageType = "snapshot"
	MsgUpdate   MessageType = "update"
	MsgError    MessageType = "error"
)

type Message struct {
	Type    MessageType `json:"type"`
	Payload any         `json:"payload"`
}

// SnapshotPayload carries the complete sub-agent state.
type SnapshotPayload struct {
	Subagents []subagent.View  `json:"subagents"`
	Summary   subagent.Summary `json:"summary"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

func newClient(conn *websocket.Conn) *client {
	c := &client{
		conn: conn,
		send: make(chan []byte, 64),
	}
	go c.writePump()
	return c
}

func (c *client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

func (c *client) close() {
	close(c.send)
}

// Hub owns the client set and the refresh loop.
type Hub struct {
	reader   *subagent.Reader
	interval time.Duration

	mu      sync.RWMutex
	clients map[*client]bool

	last []byte
}

func NewHub(reader *subagent.Reader, interval time.Duration) *Hub {
	return &Hub{
		reader:   reader,
		interval: interval,
		clients:  make(map[*client]bool),
	}
}

// AddClient registers a connection and sends it the current snapshot. The
// snapshot is queued before the client becomes visible to the hub, so no
// other goroutine can close the send channel underneath it.
func (h *Hub) AddClient(conn *websocket.Conn) *client {
	c := newClient(conn)

	data, err := json.Marshal(Message{Type: MsgSnapshot, Payload: h.snapshot(time.Now())})
	if err == nil {
		c.send <- data
	}

	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()
	return c
}

// RemoveClient unregisters a connection. The send channel is closed exactly
// once, under the same lock that guards every send to a registered client.
func (h *Hub) RemoveClient(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		c.close()
	}
	h.mu.Unlock()
}

// ReadLoop consumes a client's reads until it disconnects. Inbound frames
// carry nothing; the read loop exists to detect the close.
func (h *Hub) ReadLoop(c *client) {
	defer h.RemoveClient(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Run polls the index on the refresh interval and broadcasts the state as
// an update whenever it differs from the last broadcast.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if h.ClientCount() == 0 {
				continue
			}
			payload := h.snapshot(now)
			data, err := json.Marshal(Message{Type: MsgUpdate, Payload: payload})
			if err != nil {
				log.Printf("stream: marshal failed: %v", err)
				continue
			}
			if bytes.Equal(data, h.last) {
				continue
			}
			h.last = data
			h.broadcast(data)
		}
	}
}

func (h *Hub) snapshot(now time.Time) SnapshotPayload {
	views, summary := h.reader.Views(now)
	return SnapshotPayload{Subagents: views, Summary: summary}
}

// broadcast queues data for every client. Sends happen under the write lock
// so a concurrent RemoveClient cannot close a channel mid-send; the sends
// never block because a client with a full buffer is dropped instead.
func (h *Hub) broadcast(data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			log.Printf("stream: client too slow, disconnecting")
			delete(h.clients, c)
			c.close()
		}
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
