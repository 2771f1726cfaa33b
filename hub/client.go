package hub

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	maxInboundBytes = 64 * 1024
)

// The relay sits behind the backend's own auth; browser clients connect
// from arbitrary origins, so the upgrade mirrors the permissive CORS of
// the HTTP bridge.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// actionFrame is the only inbound shape the relay understands: a named
// action with an opaque payload, dispatched to whichever module registered
// the action.
type actionFrame struct {
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data"`
}

// Client is one WebSocket connection. Send is its outbox: the hub's
// fan-out and module handlers push frames into it, and the write pump
// drains it onto the wire. A full outbox drops frames, never blocks.
type Client struct {
	ID   string
	Send chan Frame

	hub  *Hub
	conn *websocket.Conn
	log  *slog.Logger

	// joined is owned by the hub and guarded by its mutex.
	joined map[string]struct{}

	// mu orders sends against closeSend: the hub snapshots fan-out targets
	// under its read lock but delivers after releasing it, so a client
	// detaching mid-fan-out must not have its outbox closed under a sender.
	mu     sync.Mutex
	closed bool
}

func NewClient(h *Hub, conn *websocket.Conn) *Client {
	return &Client{
		ID:     uuid.NewString(),
		Send:   make(chan Frame, h.connBufferSize),
		hub:    h,
		conn:   conn,
		log:    h.log,
		joined: make(map[string]struct{}),
	}
}

// Push queues a frame for this client only, dropping it if the outbox is
// full or the client already disconnected.
func (c *Client) Push(event string, payload any) {
	if !c.trySend(Frame{Event: event, Data: payload}) {
		c.hub.monitor.IncrDroppedFrames()
		c.log.Warn("Dropping frame", "client_id", c.ID, "event", event)
	}
}

// trySend queues a frame unless the outbox is full or already closed.
func (c *Client) trySend(frame Frame) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.Send <- frame:
		return true
	default:
		return false
	}
}

// closeSend closes the outbox exactly once, which stops the write pump.
func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.Send)
}

// ServeWS upgrades the request and starts the connection's pumps.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("WebSocket upgrade failed", "error", err)
		return
	}

	c := NewClient(h, conn)
	h.attach(c)

	go c.writePump()
	go c.readPump()
}

// readPump drains inbound frames and dispatches actions until the
// connection dies. It is the only goroutine that detaches the client, so
// detach runs exactly once per connection.
func (c *Client) readPump() {
	defer func() {
		c.hub.detach(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxInboundBytes)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn("Unexpected close", "client_id", c.ID, "error", err)
			}
			return
		}

		var frame actionFrame
		if err := json.Unmarshal(raw, &frame); err != nil || frame.Action == "" {
			c.log.Debug("Ignoring malformed inbound frame", "client_id", c.ID)
			continue
		}

		handler, ok := c.hub.action(frame.Action)
		if !ok {
			c.log.Debug("Unknown action", "client_id", c.ID, "action", frame.Action)
			continue
		}
		handler(c, frame.Data)
	}
}

// writePump serializes the outbox onto the wire and keeps the connection
// alive with pings. It exits when the hub closes Send on detach or when a
// write fails.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.Send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(frame); err != nil {
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
