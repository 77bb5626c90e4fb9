// internal/transport/envelope_test.go
package transport

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkarman/tilerush/internal/engine"
)

func TestEnvelopeToEvent(t *testing.T) {
	userID := uuid.New()
	corr := uuid.New()
	env := Envelope{
		Id:            "m1",
		Type:          "join",
		CorrelationId: corr.String(),
		Code:          "0000",
		Nickname:      "ann",
		ClientVersion: "1.0.0",
		MaxPlayers:    8,
		Wall:          true,
		StartAt:       1700000000000,
	}

	ev, err := env.toEvent(engine.ModeRoyale, userID)
	require.NoError(t, err)
	assert.Equal(t, engine.EventJoin, ev.Type)
	assert.Equal(t, engine.ModeRoyale, ev.Mode)
	assert.Equal(t, userID, ev.UserID)
	assert.Equal(t, corr, ev.CorrelationID)
	assert.Equal(t, "ann", ev.Nickname)
	assert.Equal(t, 8, ev.MaxPlayers)
	assert.True(t, ev.Wall)
	assert.Equal(t, time.UnixMilli(1700000000000), ev.StartAt)
}

func TestEnvelopeRejectsUnknownType(t *testing.T) {
	env := Envelope{Type: "teleport"}
	_, err := env.toEvent(engine.ModeRandom, uuid.New())
	assert.Error(t, err)
}

func TestEnvelopePositionedFields(t *testing.T) {
	env := Envelope{Type: "positioned", RoomID: 3, PlayerID: 1, Side: 2, Distance: 4, Elapsed: 12000}
	ev, err := env.toEvent(engine.ModeCustom, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, engine.EventPositioned, ev.Type)
	assert.Equal(t, 3, ev.RoomID)
	assert.Equal(t, 1, ev.PlayerID)
	assert.Equal(t, 2, ev.Side)
	assert.Equal(t, 4, ev.Distance)
	assert.Equal(t, 12000, ev.Elapsed)
}

func TestDupFilterDropsImmediateRepeat(t *testing.T) {
	var f dupFilter
	assert.False(t, f.isDuplicate("a"))
	assert.True(t, f.isDuplicate("a"))
	assert.False(t, f.isDuplicate("b"))
	assert.False(t, f.isDuplicate("a"), "only the immediately preceding id is remembered")
}

func TestDupFilterIgnoresUntaggedMessages(t *testing.T) {
	var f dupFilter
	assert.False(t, f.isDuplicate(""))
	assert.False(t, f.isDuplicate(""))
}
