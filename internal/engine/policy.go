// internal/engine/policy.go
package engine

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrInvalidCode means the invitation code matched no joinable room.
	ErrInvalidCode = errors.New("engine: invalid or stale invitation code")
	// ErrRoomFull means the targeted room has no capacity left.
	ErrRoomFull = errors.New("engine: room is full")
	// ErrRegistryFull means no new room could be allocated.
	ErrRegistryFull = errors.New("engine: registry at capacity")
	// ErrVersionMismatch means the client's declared version is not accepted.
	ErrVersionMismatch = errors.New("engine: client version mismatch")
)

// JoinRequest is the policy-facing view of a join event.
type JoinRequest struct {
	UserID     uuid.UUID
	Nickname   string
	Code       string
	MaxPlayers int
	Wall       bool
	StartAt    time.Time
}

// Policy decides which room and seat an incoming join occupies. It is the
// only part that differs structurally between the three matchmaking modes;
// everything else runs through the one shared state machine.
//
// Assign must either return a room with an unoccupied seat index, growing or
// allocating rooms as the mode allows, or an error with no state mutated
// beyond allocation (a room allocated for the failing request is released by
// the engine).
type Policy interface {
	Mode() Mode
	Assign(reg *Registry, req JoinRequest) (*Room, int, error)

	// HeartbeatTTL is the liveness window for slots under this policy.
	HeartbeatTTL() time.Duration
}

// RandomPolicy pairs anonymous players two at a time, preferring to complete
// a half-full pair before spreading new ones. No invitation codes.
type RandomPolicy struct{}

func (RandomPolicy) Mode() Mode                  { return ModeRandom }
func (RandomPolicy) HeartbeatTTL() time.Duration { return 10 * time.Second }

func (RandomPolicy) Assign(reg *Registry, req JoinRequest) (*Room, int, error) {
	// First pass: a waiting player wants an opponent.
	for _, room := range reg.Rooms() {
		if room.State == StateMatchmaking && len(room.Players) == 2 &&
			room.Players[0].Occupied && !room.Players[1].Occupied {
			return room, 1, nil
		}
	}
	// Second pass: any seat in a forming room.
	for _, room := range reg.Rooms() {
		if room.State != StateMatchmaking {
			continue
		}
		if seat := room.FreeSlot(); seat >= 0 {
			return room, seat, nil
		}
	}
	room := reg.Allocate(2)
	if room == nil {
		return nil, -1, ErrRegistryFull
	}
	return room, 0, nil
}

// CustomPolicy pairs by invitation code: the sentinel code claims a fresh
// room as organizer, any other code joins the matching room's second seat.
type CustomPolicy struct{}

func (CustomPolicy) Mode() Mode                  { return ModeCustom }
func (CustomPolicy) HeartbeatTTL() time.Duration { return 10 * time.Second }

func (CustomPolicy) Assign(reg *Registry, req JoinRequest) (*Room, int, error) {
	if req.Code == SentinelCode {
		room := reg.Allocate(2)
		if room == nil {
			return nil, -1, ErrRegistryFull
		}
		return room, 0, nil
	}
	room := reg.FindByCode(req.Code)
	if room == nil {
		return nil, -1, ErrInvalidCode
	}
	if room.Players[1].Occupied {
		return nil, -1, ErrRoomFull
	}
	return room, 1, nil
}

// RoyalePolicy runs open rooms of up to MaxPlayers, growing the seat list on
// demand. The sentinel code creates; the organizer may request a scheduled
// forced start, and the wall variant seats a passive display host at slot 0.
type RoyalePolicy struct{}

func (RoyalePolicy) Mode() Mode                  { return ModeRoyale }
func (RoyalePolicy) HeartbeatTTL() time.Duration { return 15 * time.Second }

func (RoyalePolicy) Assign(reg *Registry, req JoinRequest) (*Room, int, error) {
	if req.Code == SentinelCode {
		room := reg.Allocate(1)
		if room == nil {
			return nil, -1, ErrRegistryFull
		}
		max := req.MaxPlayers
		if max <= 0 || max > DefaultMaxPlayers {
			max = DefaultMaxPlayers
		}
		if max < 2 {
			max = 2
		}
		room.MaxPlayers = max
		room.WallMode = req.Wall
		return room, 0, nil
	}
	room := reg.FindByCode(req.Code)
	if room == nil {
		return nil, -1, ErrInvalidCode
	}
	if seat := room.FreeSlot(); seat >= 0 {
		return room, seat, nil
	}
	if len(room.Players) >= room.MaxPlayers {
		return nil, -1, ErrRoomFull
	}
	room.Players = append(room.Players, &PlayerSlot{})
	return room, len(room.Players) - 1, nil
}
