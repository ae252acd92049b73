package realtime

import (
	"errors"
	"sync"

	"github.com/studysync/studysync/models"
)

// fakeTransport records everything the engine pushes through it and
// lets tests control the live connection count per room.
type fakeTransport struct {
	mu         sync.Mutex
	broadcasts map[string][]models.Event
	unicasts   map[string][]models.Event
	global     []models.Event
	counts     map[string]int
	detached   []string
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		broadcasts: make(map[string][]models.Event),
		unicasts:   make(map[string][]models.Event),
		counts:     make(map[string]int),
	}
}

func (f *fakeTransport) Broadcast(room string, event models.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.broadcasts[room] = append(f.broadcasts[room], event)
}

func (f *fakeTransport) Unicast(connectionID string, event models.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unicasts[connectionID] = append(f.unicasts[connectionID], event)
}

func (f *fakeTransport) BroadcastAll(event models.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.global = append(f.global, event)
}

func (f *fakeTransport) CountConnections(room string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts[room]
}

func (f *fakeTransport) DetachAll(room string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.detached = append(f.detached, room)
	f.counts[room] = 0
}

func (f *fakeTransport) setCount(room string, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts[room] = n
}

func (f *fakeTransport) roomEvents(room, eventType string) []models.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Event
	for _, e := range f.broadcasts[room] {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

func (f *fakeTransport) connEvents(connectionID, eventType string) []models.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Event
	for _, e := range f.unicasts[connectionID] {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

func (f *fakeTransport) detachedRooms() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.detached))
	copy(out, f.detached)
	return out
}

// fakeRoomStore is an in-memory durable room record store.
type fakeRoomStore struct {
	mu        sync.Mutex
	records   map[string]*models.RoomRecord
	snapshots []snapshotCall
	deleted   []string
	findErr   error
}

type snapshotCall struct {
	name    string
	host    string
	members []models.Presence
}

func newFakeRoomStore() *fakeRoomStore {
	return &fakeRoomStore{records: make(map[string]*models.RoomRecord)}
}

func (f *fakeRoomStore) put(record *models.RoomRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[record.Name] = record
}

func (f *fakeRoomStore) Find(name string) (*models.RoomRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	record, ok := f.records[name]
	if !ok {
		return nil, nil
	}
	copied := *record
	return &copied, nil
}

func (f *fakeRoomStore) SaveSnapshot(name, host string, members []models.Presence) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshots = append(f.snapshots, snapshotCall{name: name, host: host, members: members})
	return nil
}

func (f *fakeRoomStore) Delete(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.records, name)
	f.deleted = append(f.deleted, name)
	return nil
}

func (f *fakeRoomStore) deletedRooms() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.deleted))
	copy(out, f.deleted)
	return out
}

func (f *fakeRoomStore) lastSnapshot() (snapshotCall, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.snapshots) == 0 {
		return snapshotCall{}, false
	}
	return f.snapshots[len(f.snapshots)-1], true
}

// fakeMessageStore is an in-memory chat message store with injectable
// failures.
type fakeMessageStore struct {
	mu        sync.Mutex
	appended  []models.ChatMessage
	cleared   []string
	appendErr error
	recentErr error
}

func newFakeMessageStore() *fakeMessageStore {
	return &fakeMessageStore{}
}

func (f *fakeMessageStore) Append(msg models.ChatMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return f.appendErr
	}
	f.appended = append(f.appended, msg)
	return nil
}

func (f *fakeMessageStore) Recent(room string, limit int) ([]models.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.recentErr != nil {
		return nil, f.recentErr
	}
	var out []models.ChatMessage
	for _, m := range f.appended {
		if m.Room == room {
			out = append(out, m)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (f *fakeMessageStore) DeleteAll(room string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared = append(f.cleared, room)
	kept := f.appended[:0]
	for _, m := range f.appended {
		if m.Room != room {
			kept = append(kept, m)
		}
	}
	f.appended = kept
	return nil
}

func (f *fakeMessageStore) appendedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.appended)
}

func (f *fakeMessageStore) clearedRooms() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.cleared))
	copy(out, f.cleared)
	return out
}

var errStoreDown = errors.New("store down")
