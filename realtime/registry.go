package realtime

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/studysync/studysync/models"
)

// Registry is the process-wide map from room name to live room state.
// A room exists here iff it has connected members; the durable store is
// authoritative for room existence.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*Room

	transport    Transport
	roomStore    RoomStore
	messageStore MessageStore
	historyLimit int
	graceDelay   time.Duration
	logger       *zap.Logger
}

func NewRegistry(transport Transport, roomStore RoomStore, messageStore MessageStore, historyLimit int, graceDelay time.Duration, logger *zap.Logger) *Registry {
	return &Registry{
		rooms:        make(map[string]*Room),
		transport:    transport,
		roomStore:    roomStore,
		messageStore: messageStore,
		historyLimit: historyLimit,
		graceDelay:   graceDelay,
		logger:       logger,
	}
}

// EnsureRoom returns the live state for a room, creating it on first
// join. The room must already exist durably; a join for an unknown name
// is refused with ErrRoomNotFound.
func (g *Registry) EnsureRoom(name string) (*Room, error) {
	g.mu.RLock()
	room, ok := g.rooms[name]
	g.mu.RUnlock()
	if ok {
		return room, nil
	}

	// The existence read can block; look it up before taking the write
	// lock and re-check after, since another join may have won the race.
	record, err := g.roomStore.Find(name)
	if err != nil {
		g.logger.Error("failed to look up room record",
			zap.String("room", name), zap.Error(err))
		return nil, err
	}
	if record == nil {
		return nil, models.ErrRoomNotFound
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if room, ok := g.rooms[name]; ok {
		return room, nil
	}

	room = newRoom(name, record.Host, g.transport, g.roomStore, g.messageStore, g.historyLimit, g.logger)
	g.rooms[name] = room
	g.logger.Info("room state created", zap.String("room", name), zap.String("host", record.Host))
	return room, nil
}

// Get returns the live state for a room, if any.
func (g *Registry) Get(name string) (*Room, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	room, ok := g.rooms[name]
	return room, ok
}

// RemoveIfEmpty tears down a room's live state once either its member
// list or the transport's live connection count has reached zero. The
// double check against the transport exists because the two can
// transiently disagree. The durable record is kept, with an emptied
// member snapshot.
func (g *Registry) RemoveIfEmpty(name string) bool {
	g.mu.Lock()
	room, ok := g.rooms[name]
	if !ok {
		g.mu.Unlock()
		return false
	}

	members := room.Members()
	live := g.transport.CountConnections(name)
	if len(members) > 0 && live > 0 {
		g.mu.Unlock()
		return false
	}

	if len(members) > 0 {
		g.logger.Info("clearing zombie presence rows for empty room",
			zap.String("room", name), zap.Int("rows", len(members)))
	}

	delete(g.rooms, name)
	host := room.HostID()
	g.mu.Unlock()

	room.markClosed()

	go func() {
		if err := g.roomStore.SaveSnapshot(name, host, nil); err != nil {
			g.logger.Error("failed to persist emptied room",
				zap.String("room", name), zap.Error(err))
		}
	}()

	g.logger.Info("room state removed", zap.String("room", name))
	return true
}

// Terminate is the host-initiated forced close: members are notified,
// live state is dropped, the durable record and chat history are
// deleted, and after a grace delay any straggling connections are
// detached from the room.
func (g *Registry) Terminate(name string, initiator models.Identity) error {
	g.mu.Lock()
	room, ok := g.rooms[name]
	if !ok {
		g.mu.Unlock()
		return models.ErrRoomNotFound
	}

	if err := room.terminate(initiator); err != nil {
		g.mu.Unlock()
		return err
	}
	delete(g.rooms, name)
	g.mu.Unlock()

	go func() {
		if err := g.roomStore.Delete(name); err != nil {
			g.logger.Error("failed to delete room record",
				zap.String("room", name), zap.Error(err))
		}
		if err := g.messageStore.DeleteAll(name); err != nil {
			g.logger.Error("failed to delete room messages",
				zap.String("room", name), zap.Error(err))
		}
	}()

	time.AfterFunc(g.graceDelay, func() {
		// The room may have been re-created during the grace delay;
		// check existence at fire time, not just at schedule time.
		if _, ok := g.Get(name); ok {
			return
		}
		g.transport.DetachAll(name)
		g.transport.BroadcastAll(models.Event{
			Type:    models.EventRoomListChanged,
			Payload: models.RoomListChangedPayload{Room: name},
		})
	})

	g.logger.Info("room terminated", zap.String("room", name),
		zap.String("initiator", initiator.Key()))
	return nil
}

// LiveMembers reports the verified member list for a room, correcting
// zombie entries whose connections are gone.
func (g *Registry) LiveMembers(name string) []models.Presence {
	room, ok := g.Get(name)
	if !ok {
		return nil
	}
	members := room.Members()
	if len(members) > 0 && g.transport.CountConnections(name) == 0 {
		g.logger.Info("room had zombie members, cleaning up live state",
			zap.String("room", name))
		g.RemoveIfEmpty(name)
		return nil
	}
	return members
}

// Sweep removes every room whose members or connections have drained
// without a teardown being observed.
func (g *Registry) Sweep() int {
	g.mu.RLock()
	names := make([]string, 0, len(g.rooms))
	for name := range g.rooms {
		names = append(names, name)
	}
	g.mu.RUnlock()

	removed := 0
	for _, name := range names {
		if g.RemoveIfEmpty(name) {
			removed++
		}
	}
	return removed
}
