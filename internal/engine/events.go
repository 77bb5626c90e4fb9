// internal/engine/events.go
package engine

import (
	"time"

	"github.com/google/uuid"
)

// EventType tags an inbound event. Timer expiries are delivered through the
// same types as client messages so there is a single handling path.
type EventType string

const (
	EventJoin           EventType = "join"
	EventValidate       EventType = "validate"
	EventHeartbeat      EventType = "heartbeat"
	EventReady          EventType = "ready"
	EventPositioned     EventType = "positioned"
	EventEndAnimation   EventType = "end_animation"
	EventQuit           EventType = "quit"
	EventScheduledStart EventType = "scheduled_start" // synthetic, royale forced start
)

// Event is one inbound message or timer expiry. Only the fields relevant to
// the Type are read; the rest stay zero.
type Event struct {
	Type EventType

	// Mode selects the policy, required for join; for addressed events it is
	// carried alongside RoomID because room ids are per-policy.
	Mode Mode

	RoomID   int
	PlayerID int

	// Join fields.
	UserID        uuid.UUID
	Nickname      string
	Code          string
	ClientVersion string
	MaxPlayers    int       // royale organizer extra
	Wall          bool      // royale wall-host variant
	StartAt       time.Time // royale scheduled forced start

	// Positioned fields.
	Side     int
	Distance int
	Elapsed  int // ms

	// EndAnimation fields as declared by the client; the engine keeps its own
	// authoritative copies and only uses these for logging discrepancies.
	Points     int
	PathLength int
	Winner     bool

	// CorrelationID links a direct reply to the request that wants one.
	CorrelationID uuid.UUID
}

// NoticeType tags an outbound notification.
type NoticeType string

const (
	NoticeGameResponse   NoticeType = "gameResponse"
	NoticePlayerAdded    NoticeType = "playerAdded"
	NoticePlayerRemoved  NoticeType = "playerRemoved"
	NoticeStartMatch     NoticeType = "startMatch"
	NoticeStartAnimation NoticeType = "startAnimation"
	NoticeEndMatch       NoticeType = "endMatch"
	NoticeGameQuit       NoticeType = "gameQuit"
)

// RankEntry is one row of the match ranking broadcast with startAnimation and
// endMatch.
type RankEntry struct {
	PlayerID   int    `json:"playerId"`
	Nickname   string `json:"nickname"`
	Points     int    `json:"points"`
	PathLength int    `json:"pathLength"`
	Time       int    `json:"time"`
	Winner     bool   `json:"winner"`
}

// Notice is one outbound effect of a state transition. The engine never talks
// to the transport itself; it returns notices for the caller to dispatch
// after the authoritative mutation has completed.
type Notice struct {
	Type NoticeType `json:"type"`

	// Recipients are the user identities the notice is addressed to. A direct
	// reply (gameResponse) instead carries the CorrelationID of the request.
	Recipients    []uuid.UUID `json:"-"`
	CorrelationID uuid.UUID   `json:"correlationId,omitempty"`

	Success  bool   `json:"success"`
	Code     string `json:"code,omitempty"`
	RoomID   int    `json:"roomId"`
	PlayerID int    `json:"playerId"`

	Room    *RoomSnapshot `json:"room,omitempty"`
	Ranking []RankEntry   `json:"ranking,omitempty"`
}

func directReply(corr uuid.UUID, success bool, code string, roomID, playerID int, snap *RoomSnapshot) Notice {
	return Notice{
		Type:          NoticeGameResponse,
		CorrelationID: corr,
		Success:       success,
		Code:          code,
		RoomID:        roomID,
		PlayerID:      playerID,
		Room:          snap,
	}
}

// joinFailure is the uniform InvalidJoin reply: sentinel code, no room.
func joinFailure(corr uuid.UUID) Notice {
	return directReply(corr, false, SentinelCode, -1, -1, nil)
}

func broadcast(t NoticeType, room *Room, playerID int) Notice {
	snap := room.Snapshot()
	return Notice{
		Type:       t,
		Recipients: room.UserIDs(),
		Success:    true,
		Code:       room.Code,
		RoomID:     room.ID,
		PlayerID:   playerID,
		Room:       &snap,
	}
}
