// internal/engine/policy_test.go
package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func occupy(room *Room, seat int) {
	room.Players[seat].Occupied = true
	room.Players[seat].Validated = true
}

func TestRandomAssignPrefersHalfFullPair(t *testing.T) {
	reg := NewRegistry(ModeRandom, 16)
	reg.Seed(10)
	var p RandomPolicy

	roomA, seat, err := p.Assign(reg, JoinRequest{})
	require.NoError(t, err)
	assert.Equal(t, 0, seat)
	occupy(roomA, 0)

	// A second forming room with its organizer seated.
	roomB := reg.Allocate(2)
	occupy(roomB, 0)

	// The scan pairs the earliest waiting player first.
	got, seat, err := p.Assign(reg, JoinRequest{})
	require.NoError(t, err)
	assert.Same(t, roomA, got)
	assert.Equal(t, 1, seat)
}

func TestRandomAssignSkipsPlayingRooms(t *testing.T) {
	reg := NewRegistry(ModeRandom, 16)
	reg.Seed(11)
	var p RandomPolicy

	roomA, _, err := p.Assign(reg, JoinRequest{})
	require.NoError(t, err)
	occupy(roomA, 0)
	occupy(roomA, 1)
	roomA.State = StatePlaying

	got, seat, err := p.Assign(reg, JoinRequest{})
	require.NoError(t, err)
	assert.NotSame(t, roomA, got)
	assert.Equal(t, 0, seat)
}

func TestCustomAssignSentinelCreates(t *testing.T) {
	reg := NewRegistry(ModeCustom, 16)
	reg.Seed(12)
	var p CustomPolicy

	room, seat, err := p.Assign(reg, JoinRequest{Code: SentinelCode})
	require.NoError(t, err)
	assert.Equal(t, 0, seat)
	assert.Equal(t, StateMatchmaking, room.State)
	assert.Len(t, room.Players, 2)
}

func TestCustomAssignByCode(t *testing.T) {
	reg := NewRegistry(ModeCustom, 16)
	reg.Seed(13)
	var p CustomPolicy

	room, _, err := p.Assign(reg, JoinRequest{Code: SentinelCode})
	require.NoError(t, err)
	occupy(room, 0)

	got, seat, err := p.Assign(reg, JoinRequest{Code: room.Code})
	require.NoError(t, err)
	assert.Same(t, room, got)
	assert.Equal(t, 1, seat)

	occupy(room, 1)
	_, _, err = p.Assign(reg, JoinRequest{Code: room.Code})
	assert.ErrorIs(t, err, ErrRoomFull)

	_, _, err = p.Assign(reg, JoinRequest{Code: "9999"})
	assert.ErrorIs(t, err, ErrInvalidCode)
}

func TestRoyaleAssignGrowsSeatsUpToCap(t *testing.T) {
	reg := NewRegistry(ModeRoyale, 16)
	reg.Seed(14)
	var p RoyalePolicy

	room, seat, err := p.Assign(reg, JoinRequest{Code: SentinelCode, MaxPlayers: 3})
	require.NoError(t, err)
	require.Equal(t, 0, seat)
	occupy(room, 0)
	assert.Equal(t, 3, room.MaxPlayers)

	for want := 1; want < 3; want++ {
		got, seat, err := p.Assign(reg, JoinRequest{Code: room.Code})
		require.NoError(t, err)
		require.Same(t, room, got)
		require.Equal(t, want, seat)
		occupy(room, seat)
	}

	_, _, err = p.Assign(reg, JoinRequest{Code: room.Code})
	assert.ErrorIs(t, err, ErrRoomFull)
}

func TestRoyaleAssignDefaultsAndClampsMaxPlayers(t *testing.T) {
	reg := NewRegistry(ModeRoyale, 16)
	reg.Seed(15)
	var p RoyalePolicy

	room, _, err := p.Assign(reg, JoinRequest{Code: SentinelCode})
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxPlayers, room.MaxPlayers)

	room2, _, err := p.Assign(reg, JoinRequest{Code: SentinelCode, MaxPlayers: 100})
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxPlayers, room2.MaxPlayers)

	room3, _, err := p.Assign(reg, JoinRequest{Code: SentinelCode, MaxPlayers: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, room3.MaxPlayers)
}

func TestRoyaleAssignWallVariant(t *testing.T) {
	reg := NewRegistry(ModeRoyale, 16)
	reg.Seed(16)
	var p RoyalePolicy

	room, seat, err := p.Assign(reg, JoinRequest{Code: SentinelCode, Wall: true})
	require.NoError(t, err)
	assert.Equal(t, 0, seat)
	assert.True(t, room.WallMode)
}
