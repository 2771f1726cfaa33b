// Package hub implements the WebSocket pub/sub transport: the room
// registry, the fan-out worker the translator publishes through, and the
// action registry the extension modules hang their join protocols on.
package hub

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"office-relay/observability"
)

// Frame is the wire shape of every event delivered to a client.
type Frame struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// ActionHandler handles one inbound client frame. Extension modules
// register handlers against the shared hub instance at construction time
// and own their room-join semantics.
type ActionHandler func(c *Client, data json.RawMessage)

type emitRequest struct {
	room    string // empty means broadcast to everyone
	event   string
	payload any
}

// Hub owns room membership and fans relayed events out to connected
// clients.
//
// It provides best-effort fan-out with no guarantees regarding delivery,
// ordering, durability, or retries. The Hub is not a message broker:
// EmitToRoom and EmitToAll enqueue and return immediately, Run drains the
// queue, and a slow client drops frames rather than stall the relay.
//
// Hub is safe for concurrent use by multiple goroutines.
type Hub struct {
	log     *slog.Logger
	monitor *observability.Monitor

	mu      sync.RWMutex
	rooms   map[string]map[*Client]struct{}
	clients map[*Client]struct{}
	actions map[string]ActionHandler

	emits          chan emitRequest
	connBufferSize int
}

func NewHub(log *slog.Logger, monitor *observability.Monitor, bufferSize, connBufferSize int) *Hub {
	return &Hub{
		log:            log,
		monitor:        monitor,
		rooms:          make(map[string]map[*Client]struct{}),
		clients:        make(map[*Client]struct{}),
		actions:        make(map[string]ActionHandler),
		emits:          make(chan emitRequest, bufferSize),
		connBufferSize: connBufferSize,
	}
}

// RegisterAction binds an inbound action name to a handler. Later
// registrations for the same name win; modules are mounted once at boot.
func (h *Hub) RegisterAction(name string, handler ActionHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.actions[name] = handler
}

func (h *Hub) action(name string) (ActionHandler, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	handler, ok := h.actions[name]
	return handler, ok
}

// Join subscribes a client to a room, creating the room on the fly.
// The relay never creates rooms from the ingress side: membership comes
// only from client joins like this one.
func (h *Hub) Join(c *Client, room string) {
	if room == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.rooms[room]; !ok {
		h.rooms[room] = make(map[*Client]struct{})
	}
	h.rooms[room][c] = struct{}{}
	c.joined[room] = struct{}{}

	h.log.Debug("Client joined room", "client_id", c.ID, "room", room)
}

// Leave removes a client from a room. Empty rooms are removed entirely so
// the registry doesn't grow with dead topics.
func (h *Hub) Leave(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(c, room)
}

func (h *Hub) leaveLocked(c *Client, room string) {
	members, ok := h.rooms[room]
	if !ok {
		return
	}
	delete(members, c)
	delete(c.joined, room)
	if len(members) == 0 {
		delete(h.rooms, room)
	}
}

// attach registers a freshly upgraded connection.
func (h *Hub) attach(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
	h.log.Info("Client connected", "client_id", c.ID, "total", len(h.clients))
}

// detach drops a client from every room it joined and closes its outbox,
// which in turn stops its write pump.
func (h *Hub) detach(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	for room := range c.joined {
		h.leaveLocked(c, room)
	}
	c.closeSend()

	h.log.Info("Client disconnected", "client_id", c.ID, "total", len(h.clients))
}

// EmitToRoom queues an event for every client in a room. Fire-and-forget:
// a full queue drops the event with a warning rather than block the
// caller, and an unknown or empty room is a silent no-op at fan-out time.
func (h *Hub) EmitToRoom(room, event string, payload any) {
	select {
	case h.emits <- emitRequest{room: room, event: event, payload: payload}:
		h.monitor.IncrRoomEmits()
	default:
		h.monitor.IncrDroppedFrames()
		h.log.Warn("Emit queue full, dropping event", "event", event, "room", room)
	}
}

// EmitToAll queues an event for every connected client.
func (h *Hub) EmitToAll(event string, payload any) {
	select {
	case h.emits <- emitRequest{event: event, payload: payload}:
		h.monitor.IncrBroadcasts()
	default:
		h.monitor.IncrDroppedFrames()
		h.log.Warn("Emit queue full, dropping event", "event", event)
	}
}

// Run drains the emit queue until the context is canceled.
func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.log.Debug("Context done, stopping hub fan-out")
			return nil
		case req := <-h.emits:
			h.fanout(req)
		}
	}
}

// fanout delivers one queued event to its target clients. Targets are
// snapshotted under the read lock; the sends themselves happen outside it.
func (h *Hub) fanout(req emitRequest) {
	h.mu.RLock()
	var targets []*Client
	if req.room == "" {
		targets = make([]*Client, 0, len(h.clients))
		for c := range h.clients {
			targets = append(targets, c)
		}
	} else {
		members := h.rooms[req.room]
		targets = make([]*Client, 0, len(members))
		for c := range members {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	frame := Frame{Event: req.event, Data: req.payload}
	for _, c := range targets {
		// trySend also covers a client that detached after the snapshot
		// above: its frame is dropped instead of hitting a closed channel.
		if !c.trySend(frame) {
			h.monitor.IncrDroppedFrames()
			h.log.Warn("Dropping frame", "client_id", c.ID, "event", req.event)
		}
	}
}

// Gauges reports connected clients and open rooms for the monitor.
func (h *Hub) Gauges() (clients, rooms int) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients), len(h.rooms)
}
