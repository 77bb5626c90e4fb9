// internal/transport/router_test.go
package transport

import (
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkarman/tilerush/internal/engine"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func drainOne(t *testing.T, c *client) engine.Notice {
	t.Helper()
	select {
	case n := <-c.out:
		return n
	default:
		t.Fatal("expected a queued notice")
		return engine.Notice{}
	}
}

func TestDeliverBroadcastsToRecipients(t *testing.T) {
	rt := NewRouter(testLogger())
	a := newClient(uuid.New(), engine.ModeCustom, func() {})
	b := newClient(uuid.New(), engine.ModeCustom, func() {})
	c := newClient(uuid.New(), engine.ModeCustom, func() {})
	rt.Register(a)
	rt.Register(b)
	rt.Register(c)

	rt.Deliver(nil, []engine.Notice{{
		Type:       engine.NoticePlayerAdded,
		Recipients: []uuid.UUID{a.userID, b.userID},
	}})

	assert.Equal(t, engine.NoticePlayerAdded, drainOne(t, a).Type)
	assert.Equal(t, engine.NoticePlayerAdded, drainOne(t, b).Type)
	assert.Empty(t, c.out)
}

func TestDeliverDirectReplyGoesToOrigin(t *testing.T) {
	rt := NewRouter(testLogger())
	origin := newClient(uuid.New(), engine.ModeRandom, func() {})
	other := newClient(uuid.New(), engine.ModeRandom, func() {})
	rt.Register(origin)
	rt.Register(other)

	rt.Deliver(origin, []engine.Notice{{
		Type:          engine.NoticeGameResponse,
		CorrelationID: uuid.New(),
	}})

	assert.Equal(t, engine.NoticeGameResponse, drainOne(t, origin).Type)
	assert.Empty(t, other.out)
}

func TestDeliverGameQuitClearsSeatBinding(t *testing.T) {
	rt := NewRouter(testLogger())
	a := newClient(uuid.New(), engine.ModeCustom, func() {})
	a.bindSeat(2, 1)
	rt.Register(a)

	rt.Deliver(nil, []engine.Notice{{
		Type:       engine.NoticeGameQuit,
		Recipients: []uuid.UUID{a.userID},
	}})

	roomID, playerID := a.seat()
	assert.Equal(t, -1, roomID)
	assert.Equal(t, -1, playerID)
	assert.Equal(t, engine.NoticeGameQuit, drainOne(t, a).Type)
}

func TestRegisterReplacesOldConnection(t *testing.T) {
	rt := NewRouter(testLogger())
	userID := uuid.New()
	first := newClient(userID, engine.ModeCustom, func() {})
	second := newClient(userID, engine.ModeCustom, func() {})

	require.Nil(t, rt.Register(first))
	displaced := rt.Register(second)
	assert.Same(t, first, displaced)

	// Unregistering the stale connection must not evict the new one.
	rt.Unregister(first)
	rt.Deliver(nil, []engine.Notice{{
		Type:       engine.NoticePlayerAdded,
		Recipients: []uuid.UUID{userID},
	}})
	assert.Equal(t, engine.NoticePlayerAdded, drainOne(t, second).Type)
}
