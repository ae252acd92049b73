package realtime

import (
	"sync"

	"go.uber.org/zap"

	"github.com/studysync/studysync/models"
)

// Hub tracks live connections and which room each is attached to. It is
// the production Transport implementation.
type Hub struct {
	mu     sync.RWMutex
	conns  map[string]*Conn
	rooms  map[string]map[string]*Conn // room name -> connection ID -> conn
	logger *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		conns:  make(map[string]*Conn),
		rooms:  make(map[string]map[string]*Conn),
		logger: logger,
	}
}

// Register adds a new connection to the hub.
func (h *Hub) Register(c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[c.ID] = c
}

// Unregister removes a connection and detaches it from every room it was
// in, returning the room names so the caller can run the disconnect
// reconciliation for each. The send channel is closed here; sends only
// ever happen under the read lock, so close cannot race them.
func (h *Hub) Unregister(c *Conn) []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.conns[c.ID]; !ok {
		return nil
	}
	delete(h.conns, c.ID)

	var joined []string
	for name, members := range h.rooms {
		if _, ok := members[c.ID]; ok {
			delete(members, c.ID)
			if len(members) == 0 {
				delete(h.rooms, name)
			}
			joined = append(joined, name)
		}
	}

	close(c.send)
	return joined
}

// Join attaches a connection to a room.
func (h *Hub) Join(c *Conn, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.rooms[room]
	if !ok {
		members = make(map[string]*Conn)
		h.rooms[room] = members
	}
	members[c.ID] = c
}

// Leave detaches a connection from a room.
func (h *Hub) Leave(c *Conn, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if members, ok := h.rooms[room]; ok {
		delete(members, c.ID)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

// Broadcast sends an event to every connection attached to a room.
func (h *Hub) Broadcast(room string, event models.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, c := range h.rooms[room] {
		h.trySend(c, event)
	}
}

// Unicast sends an event to one connection.
func (h *Hub) Unicast(connectionID string, event models.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if c, ok := h.conns[connectionID]; ok {
		h.trySend(c, event)
	}
}

// BroadcastAll sends an event to every live connection, attached to a
// room or not.
func (h *Hub) BroadcastAll(event models.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, c := range h.conns {
		h.trySend(c, event)
	}
}

// CountConnections reports the number of live connections attached to a
// room.
func (h *Hub) CountConnections(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// DetachAll removes every connection from a room. Connections stay open.
func (h *Hub) DetachAll(room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.rooms, room)
}

func (h *Hub) trySend(c *Conn, event models.Event) {
	select {
	case c.send <- event:
	default:
		h.logger.Warn("dropping event for slow connection",
			zap.String("connection", c.ID), zap.String("event", event.Type))
	}
}
