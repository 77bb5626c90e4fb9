// internal/engine/registry_test.go
package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocateReusesFreedRoomsBeforeGrowing(t *testing.T) {
	reg := NewRegistry(ModeCustom, 16)
	reg.Seed(1)

	a := reg.Allocate(2)
	b := reg.Allocate(2)
	require.NotNil(t, a)
	require.NotNil(t, b)
	assert.Equal(t, 0, a.ID)
	assert.Equal(t, 1, b.ID)

	reg.Release(a)
	// Interior free room keeps its id until the tail reaches it.
	require.Len(t, reg.Rooms(), 2)

	c := reg.Allocate(2)
	assert.Equal(t, 0, c.ID, "freed slot must be reused before growing")
	assert.Len(t, reg.Rooms(), 2)
}

func TestReleaseCompactsTrailingFreeRooms(t *testing.T) {
	reg := NewRegistry(ModeCustom, 16)
	reg.Seed(2)

	rooms := make([]*Room, 4)
	for i := range rooms {
		rooms[i] = reg.Allocate(2)
	}
	reg.Release(rooms[2])
	reg.Release(rooms[3])
	assert.Len(t, reg.Rooms(), 2, "trailing free rooms are trimmed")

	reg.Release(rooms[1])
	reg.Release(rooms[0])
	assert.Empty(t, reg.Rooms())

	// Invariant: after any release there is never a free room at the tail.
	for _, room := range reg.Rooms() {
		assert.NotEqual(t, StateFree, room.State)
	}
}

func TestCodesAreUniqueAmongLiveRooms(t *testing.T) {
	reg := NewRegistry(ModeCustom, 64)
	reg.Seed(3)

	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		room := reg.Allocate(2)
		require.NotNil(t, room)
		require.Len(t, room.Code, 4)
		require.NotEqual(t, SentinelCode, room.Code, "the sentinel is never a real code")
		assert.False(t, seen[room.Code], "code %s issued twice", room.Code)
		seen[room.Code] = true
	}
}

func TestFreedCodeMayBeReissued(t *testing.T) {
	reg := NewRegistry(ModeCustom, 16)
	reg.Seed(4)

	room := reg.Allocate(2)
	code := room.Code
	reg.Release(room)

	assert.Nil(t, reg.FindByCode(code), "codes of free rooms are dead")
	assert.False(t, reg.codeInUse(code))
}

func TestAllocateRespectsCapacity(t *testing.T) {
	reg := NewRegistry(ModeRandom, 2)
	reg.Seed(5)

	require.NotNil(t, reg.Allocate(2))
	require.NotNil(t, reg.Allocate(2))
	assert.Nil(t, reg.Allocate(2), "registry at capacity must refuse")
}
