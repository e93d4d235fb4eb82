package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/talgya/hexcity/internal/agents"
)

const writeWait = 5 * time.Second

// RosterFrame is the message pushed to websocket clients after every tick.
type RosterFrame struct {
	Tick   uint64          `json:"tick"`
	People []agents.Person `json:"people"`
}

// wsConn is the part of *websocket.Conn the hub writes through.
type wsConn interface {
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetWriteDeadline(t time.Time) error
	RemoteAddr() net.Addr
	Close() error
}

type client struct {
	conn wsConn
	mu   sync.Mutex // serializes writes; held across the first frame
}

func (c *client) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writeLocked(data)
}

func (c *client) writeLocked(data []byte) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Hub fans each tick's roster out to connected websocket clients. It
// implements engine.Publisher.
type Hub struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
	last    []byte
}

// NewHub creates a hub accepting connections from any origin.
func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Publish writes the roster to every client concurrently, so one stalled
// client delays the tick by at most writeWait. Clients whose write fails are
// dropped.
func (h *Hub) Publish(ctx context.Context, tick uint64, people []agents.Person) error {
	data, err := json.Marshal(RosterFrame{Tick: tick, People: people})
	if err != nil {
		return err
	}

	h.mu.Lock()
	h.last = data
	targets := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	var g errgroup.Group
	for _, c := range targets {
		g.Go(func() error {
			if err := c.write(data); err != nil {
				slog.Debug("dropping websocket client", "remote", c.conn.RemoteAddr(), "error", err)
				h.remove(c)
			}
			return nil
		})
	}
	return g.Wait()
}

// ServeWS upgrades the request and registers the connection. The most recent
// frame, if any, is sent immediately.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}
	c, err := h.attach(conn)
	if err != nil {
		return
	}
	slog.Info("websocket client connected", "remote", conn.RemoteAddr())

	// Clients only listen; reading detects the close.
	go func() {
		defer h.remove(c)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// attach registers conn and sends it the latest frame. The client's write
// lock is taken before it becomes visible to Publish, so a concurrent tick
// can only follow the initial frame, never overtake it.
func (h *Hub) attach(conn wsConn) (*client, error) {
	c := &client{conn: conn}
	c.mu.Lock()
	defer c.mu.Unlock()

	h.mu.Lock()
	h.clients[c] = struct{}{}
	last := h.last
	h.mu.Unlock()

	if last != nil {
		if err := c.writeLocked(last); err != nil {
			go h.remove(c)
			return nil, err
		}
	}
	return c, nil
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()
	if ok {
		c.conn.Close()
		slog.Info("websocket client disconnected", "remote", c.conn.RemoteAddr())
	}
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*client]struct{})
	h.mu.Unlock()
	for c := range clients {
		c.mu.Lock()
		c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(time.Second))
		c.mu.Unlock()
		c.conn.Close()
	}
}
