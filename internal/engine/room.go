// internal/engine/room.go
package engine

import (
	"time"

	"github.com/google/uuid"
)

// Mode identifies which matchmaking policy a room belongs to.
type Mode string

const (
	ModeRandom Mode = "random"
	ModeCustom Mode = "custom"
	ModeRoyale Mode = "royale"
)

// RoomState is the lifecycle phase of a room. Rooms cycle
// free -> matchmaking -> playing -> aftermatch -> (matchmaking | free),
// with playing -> free reachable directly when disconnects collapse the room.
type RoomState string

const (
	StateFree        RoomState = "free"
	StateMatchmaking RoomState = "matchmaking"
	StatePlaying     RoomState = "playing"
	StateAftermatch  RoomState = "aftermatch"
)

const (
	// SentinelCode is returned to a joiner when no room could be assigned.
	// A join request carrying it asks to create a room instead of joining one.
	SentinelCode = "0000"

	// TileCount is the number of tiles in a match layout (5x5 grid).
	TileCount = 25

	// DefaultTimerSetting is the per-match duration budget in milliseconds.
	DefaultTimerSetting = 30000

	// DefaultMaxPlayers caps royale room occupancy unless the organizer asks for less.
	DefaultMaxPlayers = 20
)

// StartPosition is where a player entered the tile grid.
type StartPosition struct {
	Side     int `json:"side"`
	Distance int `json:"distance"`
}

// MatchResult holds one slot's per-match state. Zeroed at every match start.
type MatchResult struct {
	Positioned     bool          `json:"positioned"`
	Time           int           `json:"time"` // elapsed ms reported with positioned
	Start          StartPosition `json:"start"`
	Points         int           `json:"points"`
	PathLength     int           `json:"pathLength"`
	Winner         bool          `json:"winner"`
	AnimationEnded bool          `json:"animationEnded"`
}

// PlayerSlot is one seat in a room. Slots are identified by index; the index
// doubles as the player id handed back to the client on join.
type PlayerSlot struct {
	Occupied  bool      `json:"occupied"`
	UserID    uuid.UUID `json:"userId,omitempty"`
	Nickname  string    `json:"nickname,omitempty"`
	Validated bool      `json:"validated"`
	Ready     bool      `json:"ready"`
	Organizer bool      `json:"organizer"`
	Wall      bool      `json:"wall"`

	// Session-cumulative stats, survive across matches in the same room.
	Points     int `json:"points"`
	WonMatches int `json:"wonMatches"`

	Match MatchResult `json:"match"`

	// hbTimer is owned by the heartbeat supervisor. It must be cancelled
	// before the slot is cleared or reassigned.
	hbTimer Timer
}

// clear resets the seat to empty. The caller must have cancelled hbTimer first.
func (s *PlayerSlot) clear() {
	*s = PlayerSlot{}
}

// Room is one matchmaking session container. It hosts a session of
// consecutive matches between the same set of players.
type Room struct {
	ID         int          `json:"id"`
	Mode       Mode         `json:"mode"`
	State      RoomState    `json:"state"`
	Code       string       `json:"code"`
	Players    []*PlayerSlot `json:"players"`
	MatchCount int          `json:"matchCount"`
	TileLayout string       `json:"tileLayout"`

	// TimerSetting is the per-match duration budget (ms) used by scoring
	// bonuses and the client UI.
	TimerSetting int `json:"timerSetting"`

	// MaxPlayers bounds occupancy. Fixed at 2 for random/custom; royale
	// organizers may pick up to DefaultMaxPlayers.
	MaxPlayers int `json:"maxPlayers"`

	// WallMode marks a royale room whose slot 0 is a passive display host.
	WallMode bool `json:"wallMode"`

	// ScheduledStartAt, when non-zero, forces a royale start bypassing the
	// ready barrier. scheduleTimer fires the forced-start event.
	ScheduledStartAt time.Time `json:"scheduledStartAt,omitempty"`
	scheduleTimer    Timer

	// SessionID is the external persistence handle, set once by the
	// session-creation hook on the room's first match.
	SessionID uuid.UUID `json:"sessionId,omitempty"`

	// animationStarted is set when the positioned barrier fires and cleared
	// at every match start.
	animationStarted bool
}

// OccupiedCount returns the number of occupied seats.
func (r *Room) OccupiedCount() int {
	n := 0
	for _, s := range r.Players {
		if s.Occupied {
			n++
		}
	}
	return n
}

// ValidatedCount returns the number of occupied seats that completed
// validation. Only these count toward barrier quorums.
func (r *Room) ValidatedCount() int {
	n := 0
	for _, s := range r.Players {
		if s.Occupied && s.Validated {
			n++
		}
	}
	return n
}

// CompetitorCount is ValidatedCount minus the wall host, i.e. the players
// that actually race.
func (r *Room) CompetitorCount() int {
	n := 0
	for _, s := range r.Players {
		if s.Occupied && s.Validated && !s.Wall {
			n++
		}
	}
	return n
}

// Organizer returns the seat index of the current organizer, or -1.
func (r *Room) Organizer() int {
	for i, s := range r.Players {
		if s.Occupied && s.Organizer {
			return i
		}
	}
	return -1
}

// FreeSlot returns the index of the first unoccupied seat, or -1.
func (r *Room) FreeSlot() int {
	for i, s := range r.Players {
		if !s.Occupied {
			return i
		}
	}
	return -1
}

// Slot returns the seat at index id, or nil when the reference is stale.
func (r *Room) Slot(id int) *PlayerSlot {
	if id < 0 || id >= len(r.Players) {
		return nil
	}
	return r.Players[id]
}

// UserIDs lists the identities of all occupied seats, used as broadcast
// recipients for room notifications.
func (r *Room) UserIDs() []uuid.UUID {
	var ids []uuid.UUID
	for _, s := range r.Players {
		if s.Occupied && s.UserID != uuid.Nil {
			ids = append(ids, s.UserID)
		}
	}
	return ids
}

// resetMatchState zeroes every seat's per-match fields ahead of a new match.
// Ready flags are cleared too, except the wall host which is always ready.
func (r *Room) resetMatchState() {
	for _, s := range r.Players {
		if !s.Occupied {
			continue
		}
		s.Match = MatchResult{}
		s.Ready = s.Wall
	}
	r.animationStarted = false
}

// PlayerSnapshot is the wire-facing view of one seat.
type PlayerSnapshot struct {
	ID         int         `json:"id"`
	UserID     uuid.UUID   `json:"userId,omitempty"`
	Nickname   string      `json:"nickname,omitempty"`
	Validated  bool        `json:"validated"`
	Ready      bool        `json:"ready"`
	Organizer  bool        `json:"organizer"`
	Wall       bool        `json:"wall,omitempty"`
	Points     int         `json:"points"`
	WonMatches int         `json:"wonMatches"`
	Match      MatchResult `json:"match"`
}

// RoomSnapshot is the wire-facing view of a room, embedded in direct replies
// and broadcasts. It carries no timers or internal flags.
type RoomSnapshot struct {
	ID           int              `json:"id"`
	Mode         Mode             `json:"mode"`
	State        RoomState        `json:"state"`
	Code         string           `json:"code"`
	MatchCount   int              `json:"matchCount"`
	TileLayout   string           `json:"tileLayout"`
	TimerSetting int              `json:"timerSetting"`
	MaxPlayers   int              `json:"maxPlayers"`
	Players      []PlayerSnapshot `json:"players"`
}

// Snapshot copies the room's current state into a RoomSnapshot. Only occupied
// seats are included.
func (r *Room) Snapshot() RoomSnapshot {
	snap := RoomSnapshot{
		ID:           r.ID,
		Mode:         r.Mode,
		State:        r.State,
		Code:         r.Code,
		MatchCount:   r.MatchCount,
		TileLayout:   r.TileLayout,
		TimerSetting: r.TimerSetting,
		MaxPlayers:   r.MaxPlayers,
	}
	for i, s := range r.Players {
		if !s.Occupied {
			continue
		}
		snap.Players = append(snap.Players, PlayerSnapshot{
			ID:         i,
			UserID:     s.UserID,
			Nickname:   s.Nickname,
			Validated:  s.Validated,
			Ready:      s.Ready,
			Organizer:  s.Organizer,
			Wall:       s.Wall,
			Points:     s.Points,
			WonMatches: s.WonMatches,
			Match:      s.Match,
		})
	}
	return snap
}
