// Package ws pushes position updates and unlock events to browsers over
// WebSocket.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alanyoungcy/fixedyield/internal/domain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufferSize = 64
)

// relayed are the bus channels forwarded to clients.
var relayed = []string{domain.ChannelPositions, domain.ChannelUnlocks}

// SnapshotSource provides the list sent to a client on connect.
type SnapshotSource interface {
	Snapshot() domain.PositionSnapshot
}

// Envelope is the frame sent to clients.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type subscribeMsg struct {
	Action   string   `json:"action"`
	Channels []string `json:"channels"`
}

type message struct {
	channel string
	owner   string
	data    []byte
}

type client struct {
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	account string

	mu   sync.RWMutex
	subs map[string]bool
}

// Hub relays bus messages to connected clients. Unlock events only reach
// clients connected for the unlocked account, or for no account.
type Hub struct {
	bus      domain.SignalBus
	source   SnapshotSource
	upgrader websocket.Upgrader
	logger   *slog.Logger

	broadcast  chan message
	register   chan *client
	unregister chan *client
	// done is closed when Run returns.
	done chan struct{}

	mu      sync.RWMutex
	clients map[*client]bool
}

// NewHub creates a Hub. allowedOrigins restricts the upgrade; empty allows
// all.
func NewHub(bus domain.SignalBus, source SnapshotSource, allowedOrigins []string, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Hub{
		bus:        bus,
		source:     source,
		logger:     logger.With(slog.String("component", "ws_hub")),
		broadcast:  make(chan message, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
		clients:    make(map[*client]bool),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if len(allowed) == 0 || origin == "" {
			return true
		}
		for _, o := range allowed {
			if o == "*" || strings.EqualFold(o, origin) {
				return true
			}
		}
		return false
	}
}

// Run subscribes to the relayed channels and serves clients until ctx ends.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)

	for _, ch := range relayed {
		msgs, err := h.bus.Subscribe(ctx, ch)
		if err != nil {
			return err
		}
		go h.pump(ctx, ch, msgs)
	}

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.mu.Unlock()
			return ctx.Err()

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("client connected", slog.Int("clients", n), slog.String("account", c.account))

		case c := <-h.unregister:
			h.mu.Lock()
			if h.clients[c] {
				delete(h.clients, c)
				close(c.send)
			}
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("client disconnected", slog.Int("clients", n))

		case m := <-h.broadcast:
			frame, err := json.Marshal(Envelope{Type: m.channel, Payload: m.data})
			if err != nil {
				h.logger.Warn("dropping non-JSON payload", slog.String("channel", m.channel))
				continue
			}
			h.mu.RLock()
			for c := range h.clients {
				if !c.wants(m) {
					continue
				}
				select {
				case c.send <- frame:
				default:
					h.logger.Warn("dropping message for slow client")
				}
			}
			h.mu.RUnlock()
		}
	}
}

// pump forwards one subscription into the broadcast loop.
func (h *Hub) pump(ctx context.Context, channel string, msgs <-chan []byte) {
	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-msgs:
			if !ok {
				h.logger.Warn("subscription closed", slog.String("channel", channel))
				return
			}
			m := message{channel: channel, data: data}
			if channel == domain.ChannelUnlocks {
				var ev struct {
					Owner string `json:"owner"`
				}
				if json.Unmarshal(data, &ev) == nil {
					m.owner = strings.ToLower(ev.Owner)
				}
			}
			select {
			case h.broadcast <- m:
			case <-ctx.Done():
				return
			}
		}
	}
}

// HandleWS upgrades the request. ?account= scopes unlock events to one
// owner.
// GET /ws
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("upgrade failed", slog.String("error", err.Error()))
		return
	}

	c := &client{
		hub:     h,
		conn:    conn,
		send:    make(chan []byte, sendBufferSize),
		account: strings.ToLower(r.URL.Query().Get("account")),
		subs:    make(map[string]bool, len(relayed)),
	}
	for _, ch := range relayed {
		c.subs[ch] = true
	}

	c.sendSnapshot()
	select {
	case h.register <- c:
	case <-h.done:
		_ = conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

// Clients returns the number of registered clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (c *client) sendSnapshot() {
	if c.hub.source == nil {
		return
	}
	payload, err := json.Marshal(c.hub.source.Snapshot())
	if err != nil {
		return
	}
	frame, err := json.Marshal(Envelope{Type: domain.ChannelPositions, Payload: payload})
	if err != nil {
		return
	}
	c.send <- frame
}

func (c *client) wants(m message) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.subs[m.channel] {
		return false
	}
	return m.owner == "" || c.account == "" || m.owner == c.account
}

func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("unexpected close", slog.String("error", err.Error()))
			}
			return
		}
		var sub subscribeMsg
		if json.Unmarshal(raw, &sub) == nil {
			c.apply(sub)
		}
	}
}

// apply handles {"action":"subscribe|unsubscribe","channels":[...]}.
func (c *client) apply(msg subscribeMsg) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ch := range msg.Channels {
		switch msg.Action {
		case "subscribe":
			c.subs[ch] = true
		case "unsubscribe":
			delete(c.subs, ch)
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
