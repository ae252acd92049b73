package realtime

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/studysync/studysync/models"
)

// Room is the live state of one room while at least one member is
// connected. All mutations run under one mutex so that concurrent
// joins, leaves, ticks and chat sends for the same room cannot
// interleave their reconcile-then-broadcast sequences.
type Room struct {
	name string

	mu      sync.Mutex
	members []models.Presence
	hostID  string
	timer   models.TimerState
	closed  bool

	transport    Transport
	rooms        RoomStore
	messages     MessageStore
	historyLimit int
	logger       *zap.Logger
}

func newRoom(name, seedHost string, transport Transport, rooms RoomStore, messages MessageStore, historyLimit int, logger *zap.Logger) *Room {
	return &Room{
		name:         name,
		hostID:       seedHost,
		timer:        models.NewTimerState(),
		transport:    transport,
		rooms:        rooms,
		messages:     messages,
		historyLimit: historyLimit,
		logger:       logger,
	}
}

// Name returns the room name.
func (r *Room) Name() string { return r.name }

// Members returns a snapshot of the current member list.
func (r *Room) Members() []models.Presence {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.membersSnapshot()
}

// HostID returns the current host identity key, or empty when the room
// is hostless.
func (r *Room) HostID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hostID
}

// Timer returns the current timer state.
func (r *Room) Timer() models.TimerState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.timer
}

// Join upserts the caller into the member list, elects a host if needed,
// and replies with host status, the member list, the timer snapshot and
// recent chat history. Joining twice with the same identity replaces the
// old row rather than adding a second one.
func (r *Room) Join(identity models.Identity, requestedName string, asHost bool) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}

	displayName := resolveDisplayName(identity, requestedName)
	row := models.Presence{
		ConnectionID:    identity.ConnectionID,
		UserID:          identity.UserID,
		Name:            displayName,
		IsAuthenticated: identity.IsAuthenticated,
		JoinedAt:        time.Now(),
	}

	// Upsert: a reconnect or duplicate tab replaces the stale row.
	replaced := false
	for i, p := range r.members {
		if p.ConnectionID == identity.ConnectionID ||
			(identity.IsAuthenticated && p.UserID != "" && p.UserID == identity.UserID) {
			r.members[i] = row
			replaced = true
			break
		}
	}
	if !replaced {
		r.members = append(r.members, row)
	}

	// Host election: an explicit request wins, then the existing live
	// host, then whatever the durable record seeded, then the joiner.
	key := identity.Key()
	if asHost || r.hostID == "" {
		r.hostID = key
	}

	r.transport.Unicast(identity.ConnectionID, models.Event{
		Type:    models.EventHostStatus,
		Payload: models.HostStatusPayload{IsHost: r.hostID == key},
	})
	r.broadcastPresenceLocked()
	r.transport.Unicast(identity.ConnectionID, models.Event{
		Type:    models.EventTimerChanged,
		Payload: r.timer,
	})

	host := r.hostID
	snapshot := r.membersSnapshot()
	r.mu.Unlock()

	go r.persistSnapshot(host, snapshot)
	go r.SendHistory(identity.ConnectionID)
	r.transport.BroadcastAll(models.Event{
		Type:    models.EventRoomListChanged,
		Payload: models.RoomListChangedPayload{Room: r.name},
	})
}

// Leave removes every presence row belonging to the departing
// connection, including ghost rows a stale connection left behind for
// the same authenticated user. It reports true when the room should be
// torn down: either no members remain, or the transport has no live
// connections left for this room (the two can disagree when a
// disconnect is processed out of order relative to a join).
func (r *Room) Leave(identity models.Identity) bool {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return false
	}

	kept := r.members[:0]
	for _, p := range r.members {
		if p.ConnectionID == identity.ConnectionID {
			continue
		}
		if identity.IsAuthenticated && p.UserID != "" && p.UserID == identity.UserID {
			continue
		}
		kept = append(kept, p)
	}
	r.members = kept

	live := r.transport.CountConnections(r.name)
	if len(r.members) == 0 || live == 0 {
		r.mu.Unlock()
		return true
	}

	r.broadcastPresenceLocked()
	host := r.hostID
	snapshot := r.membersSnapshot()
	r.mu.Unlock()

	go r.persistSnapshot(host, snapshot)
	r.transport.BroadcastAll(models.Event{
		Type:    models.EventRoomListChanged,
		Payload: models.RoomListChangedPayload{Room: r.name},
	})
	return false
}

// TimerStart begins the countdown. Host only; silently ignored
// otherwise.
func (r *Room) TimerStart(identity models.Identity) {
	r.applyTimer(identity, func(t *models.TimerState) bool { return t.Start() })
}

// TimerPause pauses the countdown. Host only.
func (r *Room) TimerPause(identity models.Identity) {
	r.applyTimer(identity, func(t *models.TimerState) bool { return t.Pause() })
}

// TimerTick updates the remaining seconds while running. Host only.
func (r *Room) TimerTick(identity models.Identity, seconds int) {
	r.applyTimer(identity, func(t *models.TimerState) bool { return t.Tick(seconds) })
}

// TimerReset returns the timer to idle with a new duration and label.
// Host only.
func (r *Room) TimerReset(identity models.Identity, seconds int, label string) {
	r.applyTimer(identity, func(t *models.TimerState) bool { return t.Reset(seconds, label) })
}

func (r *Room) applyTimer(identity models.Identity, transition func(*models.TimerState) bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed || identity.Key() != r.hostID {
		return
	}
	if !transition(&r.timer) {
		return
	}
	r.transport.Broadcast(r.name, models.Event{
		Type:    models.EventTimerChanged,
		Payload: r.timer,
	})
}

// SendChat relays a message to every current member, then persists it in
// the background. A persistence failure never blocks or rolls back the
// broadcast.
func (r *Room) SendChat(identity models.Identity, text string) {
	if text == "" {
		return
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}

	author := identity.DisplayName
	key := identity.Key()
	for _, p := range r.members {
		if p.ConnectionID == identity.ConnectionID || (p.UserID != "" && p.UserID == key) {
			author = p.Name
			break
		}
	}
	if author == "" {
		author = models.AnonymousName
	}

	msg := models.ChatMessage{
		Room:            r.name,
		Author:          author,
		AuthorID:        key,
		Text:            text,
		IsAuthenticated: identity.IsAuthenticated,
		CreatedAt:       time.Now(),
	}
	r.transport.Broadcast(r.name, models.Event{
		Type:    models.EventChatReceived,
		Payload: msg,
	})
	r.mu.Unlock()

	go func() {
		if err := r.messages.Append(msg); err != nil {
			r.logger.Error("failed to persist chat message",
				zap.String("room", r.name), zap.Error(err))
		}
	}()
}

// SendPresence re-sends the current member list to one connection.
func (r *Room) SendPresence(connectionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transport.Unicast(connectionID, models.Event{
		Type:    models.EventPresenceChanged,
		Payload: r.membersSnapshot(),
	})
}

// SendTimer re-sends the current timer snapshot to one connection. This
// supports reconnect without a full room rejoin.
func (r *Room) SendTimer(connectionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transport.Unicast(connectionID, models.Event{
		Type:    models.EventTimerChanged,
		Payload: r.timer,
	})
}

// SendHistory sends the bounded recent chat history to one connection.
// Store failures degrade to an empty history.
func (r *Room) SendHistory(connectionID string) {
	messages, err := r.messages.Recent(r.name, r.historyLimit)
	if err != nil {
		r.logger.Error("failed to load chat history",
			zap.String("room", r.name), zap.Error(err))
		messages = nil
	}
	if messages == nil {
		messages = []models.ChatMessage{}
	}
	r.transport.Unicast(connectionID, models.Event{
		Type:    models.EventChatHistory,
		Payload: messages,
	})
}

// terminate validates the initiator, notifies members and marks the room
// closed. Durable deletion and forced detach are the registry's job.
func (r *Room) terminate(identity models.Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return models.ErrRoomNotFound
	}
	if identity.Key() != r.hostID {
		return models.ErrNotAuthorized
	}

	hostName := identity.DisplayName
	if hostName == "" {
		hostName = "The host"
	}
	r.transport.Broadcast(r.name, models.Event{
		Type: models.EventRoomClosed,
		Payload: models.RoomClosedPayload{
			Reason: fmt.Sprintf("%s has ended this study session", hostName),
			HostID: r.hostID,
			Room:   r.name,
		},
	})

	r.closed = true
	r.members = nil
	return nil
}

// markClosed stops any further event processing for a room that has been
// removed from the registry.
func (r *Room) markClosed() {
	r.mu.Lock()
	r.closed = true
	r.members = nil
	r.mu.Unlock()
}

func (r *Room) broadcastPresenceLocked() {
	r.transport.Broadcast(r.name, models.Event{
		Type:    models.EventPresenceChanged,
		Payload: r.membersSnapshot(),
	})
}

func (r *Room) membersSnapshot() []models.Presence {
	snapshot := make([]models.Presence, len(r.members))
	copy(snapshot, r.members)
	return snapshot
}

func (r *Room) persistSnapshot(host string, members []models.Presence) {
	if err := r.rooms.SaveSnapshot(r.name, host, members); err != nil {
		r.logger.Error("failed to persist room snapshot",
			zap.String("room", r.name), zap.Error(err))
	}
}

// resolveDisplayName prefers the authenticated name from the credential
// over whatever the client sent in the join payload.
func resolveDisplayName(identity models.Identity, requested string) string {
	if identity.IsAuthenticated && identity.DisplayName != "" && identity.DisplayName != models.AnonymousName {
		return identity.DisplayName
	}
	if requested != "" {
		return requested
	}
	return models.AnonymousName
}
