// Package realtime implements the room coordination engine: the live
// room registry, presence reconciliation, host election, the shared
// countdown timer, and the chat relay, all pushed over websockets.
package realtime

import "github.com/studysync/studysync/models"

// Transport is the connection layer the engine broadcasts through. The
// registry and rooms never talk to websockets directly; the Hub is the
// production implementation.
type Transport interface {
	// Broadcast delivers an event to every connection attached to a room.
	Broadcast(room string, event models.Event)
	// Unicast delivers an event to a single connection.
	Unicast(connectionID string, event models.Event)
	// BroadcastAll delivers an event to every live connection.
	BroadcastAll(event models.Event)
	// CountConnections reports how many live connections are attached to
	// a room. Presence reconciliation cross-checks this against the
	// member list, since the two can transiently disagree.
	CountConnections(room string) int
	// DetachAll removes every connection from a room without closing the
	// connections themselves.
	DetachAll(room string)
}

// RoomStore is the durable room record collaborator.
type RoomStore interface {
	Find(name string) (*models.RoomRecord, error)
	SaveSnapshot(name, host string, members []models.Presence) error
	Delete(name string) error
}

// MessageStore is the durable chat message collaborator.
type MessageStore interface {
	Append(msg models.ChatMessage) error
	Recent(room string, limit int) ([]models.ChatMessage, error)
	DeleteAll(room string) error
}
