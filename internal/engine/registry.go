// internal/engine/registry.go
package engine

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
)

// Registry owns the ordered room collection for one matchmaking policy.
// It is not safe for concurrent use on its own; the engine serializes all
// access behind its event lock.
type Registry struct {
	mode     Mode
	rooms    []*Room
	maxRooms int
	rng      *rand.Rand
}

// NewRegistry creates an empty registry for the given mode. maxRooms bounds
// growth; <=0 falls back to 512.
func NewRegistry(mode Mode, maxRooms int) *Registry {
	if maxRooms <= 0 {
		maxRooms = 512
	}
	return &Registry{
		mode:     mode,
		maxRooms: maxRooms,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Seed replaces the registry's random source, used by tests for stable codes.
func (reg *Registry) Seed(seed int64) {
	reg.rng = rand.New(rand.NewSource(seed))
}

// Mode returns the matchmaking policy this registry serves.
func (reg *Registry) Mode() Mode { return reg.mode }

// Rooms exposes the backing slice for scans. Callers must not reorder it.
func (reg *Registry) Rooms() []*Room { return reg.rooms }

// Get returns the room with the given id, or nil on a stale reference.
func (reg *Registry) Get(id int) *Room {
	if id < 0 || id >= len(reg.rooms) {
		return nil
	}
	return reg.rooms[id]
}

// Allocate hands out a room in matchmaking state with a fresh unique code and
// slots seats. It reuses the first free room before growing the slice, so
// memory is bounded by the historical peak, not cumulative churn. Returns nil
// when the registry is at capacity.
func (reg *Registry) Allocate(slots int) *Room {
	for _, room := range reg.rooms {
		if room.State == StateFree {
			reg.prepare(room, slots)
			return room
		}
	}
	if len(reg.rooms) >= reg.maxRooms {
		return nil
	}
	room := &Room{ID: len(reg.rooms), Mode: reg.mode, State: StateFree}
	reg.rooms = append(reg.rooms, room)
	reg.prepare(room, slots)
	return room
}

func (reg *Registry) prepare(room *Room, slots int) {
	room.State = StateMatchmaking
	room.Code = reg.generateUniqueCode()
	room.Players = make([]*PlayerSlot, slots)
	for i := range room.Players {
		room.Players[i] = &PlayerSlot{}
	}
	room.MatchCount = 0
	room.TileLayout = ""
	room.TimerSetting = DefaultTimerSetting
	room.MaxPlayers = slots
	room.WallMode = false
	room.ScheduledStartAt = time.Time{}
	room.scheduleTimer = nil
	room.SessionID = uuid.Nil
	room.animationStarted = false
}

// Release resets a room to free and trims trailing free rooms from the tail.
// All slot timers and any scheduled-start timer must already be cancelled by
// the caller; Release double-checks and stops stragglers.
func (reg *Registry) Release(room *Room) {
	for _, s := range room.Players {
		if s.hbTimer != nil {
			s.hbTimer.Stop()
		}
		s.clear()
	}
	if room.scheduleTimer != nil {
		room.scheduleTimer.Stop()
		room.scheduleTimer = nil
	}
	room.State = StateFree
	room.Code = ""
	room.Players = nil
	room.ScheduledStartAt = time.Time{}
	reg.compact()
}

// compact trims trailing free rooms so churn never grows the registry
// unboundedly. Interior free rooms stay put and keep their ids until the tail
// reaches them.
func (reg *Registry) compact() {
	n := len(reg.rooms)
	for n > 0 && reg.rooms[n-1].State == StateFree {
		n--
	}
	reg.rooms = reg.rooms[:n]
}

// generateUniqueCode draws four independent decimal digits, redrawing on
// collision with any non-free room's code. Retries are unbounded; the
// maxRooms cap keeps the collision probability small at this scale.
func (reg *Registry) generateUniqueCode() string {
	for {
		code := fmt.Sprintf("%d%d%d%d",
			reg.rng.Intn(10), reg.rng.Intn(10), reg.rng.Intn(10), reg.rng.Intn(10))
		if code == SentinelCode {
			continue
		}
		if !reg.codeInUse(code) {
			return code
		}
	}
}

func (reg *Registry) codeInUse(code string) bool {
	for _, room := range reg.rooms {
		if room.State != StateFree && room.Code == code {
			return true
		}
	}
	return false
}

// FindByCode returns the matchmaking-state room carrying the given invitation
// code, or nil. Codes of free rooms are dead and never match.
func (reg *Registry) FindByCode(code string) *Room {
	for _, room := range reg.rooms {
		if room.State == StateMatchmaking && room.Code == code {
			return room
		}
	}
	return nil
}
