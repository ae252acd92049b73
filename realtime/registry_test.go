package realtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/studysync/studysync/models"
)

type registryFixture struct {
	registry  *Registry
	transport *fakeTransport
	rooms     *fakeRoomStore
	messages  *fakeMessageStore
}

func newRegistryFixture(t *testing.T, graceDelay time.Duration) *registryFixture {
	t.Helper()
	transport := newFakeTransport()
	rooms := newFakeRoomStore()
	messages := newFakeMessageStore()
	registry := NewRegistry(transport, rooms, messages, 50, graceDelay, zap.NewNop())
	return &registryFixture{registry: registry, transport: transport, rooms: rooms, messages: messages}
}

func TestEnsureRoomRequiresDurableRecord(t *testing.T) {
	f := newRegistryFixture(t, time.Second)

	_, err := f.registry.EnsureRoom("nowhere")
	assert.ErrorIs(t, err, models.ErrRoomNotFound)

	_, ok := f.registry.Get("nowhere")
	assert.False(t, ok)
}

func TestEnsureRoomCreatesDefaultState(t *testing.T) {
	f := newRegistryFixture(t, time.Second)
	f.rooms.put(&models.RoomRecord{Name: "math-101", Host: "user-a"})

	room, err := f.registry.EnsureRoom("math-101")
	require.NoError(t, err)

	assert.Equal(t, "user-a", room.HostID())
	timer := room.Timer()
	assert.False(t, timer.Running)
	assert.Equal(t, models.DefaultTimerSeconds, timer.Seconds)
	assert.Equal(t, models.DefaultTimerLabel, timer.Label)
	assert.Empty(t, room.Members())
}

func TestEnsureRoomReturnsSameInstance(t *testing.T) {
	f := newRegistryFixture(t, time.Second)
	f.rooms.put(&models.RoomRecord{Name: "math-101"})

	first, err := f.registry.EnsureRoom("math-101")
	require.NoError(t, err)
	second, err := f.registry.EnsureRoom("math-101")
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestRemoveIfEmptyKeepsOccupiedRoom(t *testing.T) {
	f := newRegistryFixture(t, time.Second)
	f.rooms.put(&models.RoomRecord{Name: "math-101"})

	room, err := f.registry.EnsureRoom("math-101")
	require.NoError(t, err)
	f.transport.setCount("math-101", 1)
	room.Join(authIdentity("conn-a", "user-a", "Alice"), "", false)

	assert.False(t, f.registry.RemoveIfEmpty("math-101"))
	_, ok := f.registry.Get("math-101")
	assert.True(t, ok)
}

func TestRemoveIfEmptyCollectsDrainedRoom(t *testing.T) {
	f := newRegistryFixture(t, time.Second)
	f.rooms.put(&models.RoomRecord{Name: "math-101"})

	room, err := f.registry.EnsureRoom("math-101")
	require.NoError(t, err)
	f.transport.setCount("math-101", 1)
	room.Join(authIdentity("conn-a", "user-a", "Alice"), "", false)

	// Let the join's async snapshot land before the removal's, so the
	// last snapshot observed below is the emptied one.
	require.Eventually(t, func() bool {
		snap, ok := f.rooms.lastSnapshot()
		return ok && len(snap.members) == 1
	}, time.Second, 5*time.Millisecond)

	// Connections are gone but a zombie row survived; the cross-check
	// collects the room anyway.
	f.transport.setCount("math-101", 0)
	assert.True(t, f.registry.RemoveIfEmpty("math-101"))

	_, ok := f.registry.Get("math-101")
	assert.False(t, ok)

	// The durable record survives with an emptied member snapshot.
	require.Eventually(t, func() bool {
		snap, ok := f.rooms.lastSnapshot()
		return ok && snap.name == "math-101" && len(snap.members) == 0
	}, time.Second, 5*time.Millisecond)
}

func TestRemovedRoomDoesNotReappearWithoutJoin(t *testing.T) {
	f := newRegistryFixture(t, time.Second)
	f.rooms.put(&models.RoomRecord{Name: "math-101"})

	_, err := f.registry.EnsureRoom("math-101")
	require.NoError(t, err)
	require.True(t, f.registry.RemoveIfEmpty("math-101"))

	_, ok := f.registry.Get("math-101")
	assert.False(t, ok)
}

func TestTerminateRequiresLiveRoom(t *testing.T) {
	f := newRegistryFixture(t, time.Second)

	err := f.registry.Terminate("math-101", authIdentity("conn-a", "user-a", "Alice"))
	assert.ErrorIs(t, err, models.ErrRoomNotFound)
}

func TestRegistryTerminateRequiresHost(t *testing.T) {
	f := newRegistryFixture(t, time.Second)
	f.rooms.put(&models.RoomRecord{Name: "math-101"})

	room, err := f.registry.EnsureRoom("math-101")
	require.NoError(t, err)
	f.transport.setCount("math-101", 2)
	room.Join(authIdentity("conn-a", "user-a", "Alice"), "", true)
	room.Join(authIdentity("conn-b", "user-b", "Bob"), "", false)

	err = f.registry.Terminate("math-101", authIdentity("conn-b", "user-b", "Bob"))
	assert.ErrorIs(t, err, models.ErrNotAuthorized)

	_, ok := f.registry.Get("math-101")
	assert.True(t, ok)
}

func TestTerminateClosesRoomAndDeletesDurably(t *testing.T) {
	f := newRegistryFixture(t, 10*time.Millisecond)
	f.rooms.put(&models.RoomRecord{Name: "math-101"})

	room, err := f.registry.EnsureRoom("math-101")
	require.NoError(t, err)
	f.transport.setCount("math-101", 2)
	host := authIdentity("conn-a", "user-a", "Alice")
	room.Join(host, "", true)
	room.Join(authIdentity("conn-b", "user-b", "Bob"), "", false)

	require.NoError(t, f.registry.Terminate("math-101", host))

	_, ok := f.registry.Get("math-101")
	assert.False(t, ok)
	assert.Len(t, f.transport.roomEvents("math-101", models.EventRoomClosed), 1)

	require.Eventually(t, func() bool {
		return len(f.rooms.deletedRooms()) == 1 && len(f.messages.clearedRooms()) == 1
	}, time.Second, 5*time.Millisecond)

	// After the grace delay, straggling connections are detached.
	require.Eventually(t, func() bool {
		return len(f.transport.detachedRooms()) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestTerminateGraceDetachSkippedWhenRoomRecreated(t *testing.T) {
	f := newRegistryFixture(t, 200*time.Millisecond)
	f.rooms.put(&models.RoomRecord{Name: "math-101"})

	room, err := f.registry.EnsureRoom("math-101")
	require.NoError(t, err)
	f.transport.setCount("math-101", 1)
	host := authIdentity("conn-a", "user-a", "Alice")
	room.Join(host, "", true)

	require.NoError(t, f.registry.Terminate("math-101", host))

	// Wait out the async durable deletion, then re-create the room
	// before the grace delay elapses; the scheduled detach must notice
	// and stand down.
	require.Eventually(t, func() bool {
		return len(f.rooms.deletedRooms()) == 1
	}, 100*time.Millisecond, time.Millisecond)
	f.rooms.put(&models.RoomRecord{Name: "math-101"})
	_, err = f.registry.EnsureRoom("math-101")
	require.NoError(t, err)

	time.Sleep(400 * time.Millisecond)
	assert.Empty(t, f.transport.detachedRooms())
}

func TestLiveMembersCorrectsZombies(t *testing.T) {
	f := newRegistryFixture(t, time.Second)
	f.rooms.put(&models.RoomRecord{Name: "math-101"})

	room, err := f.registry.EnsureRoom("math-101")
	require.NoError(t, err)
	f.transport.setCount("math-101", 1)
	room.Join(authIdentity("conn-a", "user-a", "Alice"), "", false)

	assert.Len(t, f.registry.LiveMembers("math-101"), 1)

	f.transport.setCount("math-101", 0)
	assert.Empty(t, f.registry.LiveMembers("math-101"))

	_, ok := f.registry.Get("math-101")
	assert.False(t, ok)
}

func TestSweepCollectsEmptyRooms(t *testing.T) {
	f := newRegistryFixture(t, time.Second)
	f.rooms.put(&models.RoomRecord{Name: "empty-1"})
	f.rooms.put(&models.RoomRecord{Name: "empty-2"})
	f.rooms.put(&models.RoomRecord{Name: "busy"})

	_, err := f.registry.EnsureRoom("empty-1")
	require.NoError(t, err)
	_, err = f.registry.EnsureRoom("empty-2")
	require.NoError(t, err)
	busy, err := f.registry.EnsureRoom("busy")
	require.NoError(t, err)
	f.transport.setCount("busy", 1)
	busy.Join(authIdentity("conn-a", "user-a", "Alice"), "", false)

	assert.Equal(t, 2, f.registry.Sweep())
	_, ok := f.registry.Get("busy")
	assert.True(t, ok)
}
