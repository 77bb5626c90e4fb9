// internal/transport/envelope.go
package transport

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mkarman/tilerush/internal/engine"
)

// Envelope is the wire form of one inbound client message. The Id field is a
// random per-message tag used by the duplicate filter; CorrelationId links a
// direct reply back to the request.
type Envelope struct {
	Id            string `json:"id,omitempty"`
	Type          string `json:"type"`
	CorrelationId string `json:"correlationId,omitempty"`

	// join
	Code          string `json:"code,omitempty"`
	Nickname      string `json:"nickname,omitempty"`
	ClientVersion string `json:"clientVersion,omitempty"`
	MaxPlayers    int    `json:"maxPlayers,omitempty"`
	Wall          bool   `json:"wall,omitempty"`
	StartAt       int64  `json:"startAt,omitempty"` // unix ms, royale scheduled start

	// addressed events
	RoomID   int `json:"roomId"`
	PlayerID int `json:"playerId"`

	// positioned
	Side     int `json:"side,omitempty"`
	Distance int `json:"distance,omitempty"`
	Elapsed  int `json:"elapsed,omitempty"`

	// endAnimation echoes the client's view of the result; the engine keeps
	// its own authoritative copy.
	Points     int  `json:"points,omitempty"`
	PathLength int  `json:"pathLength,omitempty"`
	Winner     bool `json:"winner,omitempty"`
}

var inboundTypes = map[string]engine.EventType{
	"join":         engine.EventJoin,
	"validate":     engine.EventValidate,
	"heartbeat":    engine.EventHeartbeat,
	"ready":        engine.EventReady,
	"positioned":   engine.EventPositioned,
	"endAnimation": engine.EventEndAnimation,
	"quit":         engine.EventQuit,
}

// toEvent translates the envelope into an engine event for the given
// connection identity and mode.
func (env *Envelope) toEvent(mode engine.Mode, userID uuid.UUID) (engine.Event, error) {
	typ, ok := inboundTypes[env.Type]
	if !ok {
		return engine.Event{}, fmt.Errorf("unknown message type %q", env.Type)
	}
	ev := engine.Event{
		Type:          typ,
		Mode:          mode,
		RoomID:        env.RoomID,
		PlayerID:      env.PlayerID,
		UserID:        userID,
		Nickname:      env.Nickname,
		Code:          env.Code,
		ClientVersion: env.ClientVersion,
		MaxPlayers:    env.MaxPlayers,
		Wall:          env.Wall,
		Side:          env.Side,
		Distance:      env.Distance,
		Elapsed:       env.Elapsed,
		Points:        env.Points,
		PathLength:    env.PathLength,
		Winner:        env.Winner,
	}
	if env.StartAt > 0 {
		ev.StartAt = time.UnixMilli(env.StartAt)
	}
	if env.CorrelationId != "" {
		if corr, err := uuid.Parse(env.CorrelationId); err == nil {
			ev.CorrelationID = corr
		}
	}
	return ev, nil
}

// dupFilter drops an event whose message id matches the immediately
// preceding one on the same connection. A per-source window of one, not a
// full idempotency log.
type dupFilter struct {
	lastID string
}

// isDuplicate reports whether id repeats the previous message's id and
// records it. Messages without an id are never filtered.
func (f *dupFilter) isDuplicate(id string) bool {
	if id == "" {
		return false
	}
	if id == f.lastID {
		return true
	}
	f.lastID = id
	return false
}
