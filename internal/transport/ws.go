// internal/transport/ws.go
package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/mkarman/tilerush/internal/auth"
	"github.com/mkarman/tilerush/internal/engine"
)

// Custom WebSocket close codes, more specific than the standard set.
const (
	BadSubprotocolError = 3000 // client connected with an unsupported subprotocol
	InvalidModeError    = 3001 // URL names an unknown matchmaking mode
	AuthFailedError     = 3002 // guest identity could not be established
)

const outBufferSize = 16

// client is one live websocket connection with its identity and, after a
// successful join, its seat binding.
type client struct {
	userID uuid.UUID
	mode   engine.Mode
	out    chan engine.Notice
	cancel context.CancelFunc

	mu       sync.Mutex
	roomID   int
	playerID int

	dedup dupFilter
}

func newClient(userID uuid.UUID, mode engine.Mode, cancel context.CancelFunc) *client {
	return &client{
		userID:   userID,
		mode:     mode,
		out:      make(chan engine.Notice, outBufferSize),
		cancel:   cancel,
		roomID:   -1,
		playerID: -1,
	}
}

// send queues a notice for the write pump, dropping it if the client's buffer
// is full; a client that slow is about to miss its heartbeat window anyway.
func (c *client) send(n engine.Notice) {
	select {
	case c.out <- n:
	default:
	}
}

func (c *client) bindSeat(roomID, playerID int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roomID = roomID
	c.playerID = playerID
}

func (c *client) clearSeat() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roomID = -1
	c.playerID = -1
}

func (c *client) seat() (roomID, playerID int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roomID, c.playerID
}

// PlayHandler upgrades the HTTP connection for one matchmaking mode. The URL
// shape is /play/ws/{mode} with mode one of random, custom, royale.
func PlayHandler(logger *logrus.Logger, s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		modeStr := strings.Trim(strings.TrimPrefix(r.URL.Path, "/play/ws/"), "/")
		mode := engine.Mode(modeStr)
		switch mode {
		case engine.ModeRandom, engine.ModeCustom, engine.ModeRoyale:
		default:
			http.Error(w, "unknown mode (/play/ws/{random|custom|royale})", http.StatusBadRequest)
			return
		}

		// Establish the guest identity before upgrading so the cookie can
		// still be set on the handshake response.
		userID, err := ensureGuestUser(w, r)
		if err != nil {
			logger.Warnf("guest auth failed: %v", err)
			http.Error(w, "authentication failed", http.StatusUnauthorized)
			return
		}

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"tilerush"},
			OriginPatterns: []string{"*"}, // Adjust for production security.
		})
		if err != nil {
			logger.Warnf("websocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")

		if c.Subprotocol() != "tilerush" {
			c.Close(BadSubprotocolError, "client must speak the tilerush subprotocol")
			return
		}

		logger.Infof("user %v (%s) connected for %s play", userID, r.RemoteAddr, mode)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()
		cl := newClient(userID, mode, cancel)
		if old := s.Router.Register(cl); old != nil {
			old.cancel()
		}

		go writePump(ctx, c, cl, logger)
		readPump(ctx, c, cl, s, logger)

		// Cleanup: a vanished connection is a quit for whatever seat the
		// client held.
		s.Router.Unregister(cl)
		if roomID, playerID := cl.seat(); roomID >= 0 {
			notices := s.Engine.Dispatch(engine.Event{
				Type:     engine.EventQuit,
				Mode:     cl.mode,
				RoomID:   roomID,
				PlayerID: playerID,
				UserID:   cl.userID,
			})
			s.Router.Deliver(nil, notices)
		}
		logger.Infof("user %v disconnected", userID)
	}
}

// readPump decodes envelopes, filters duplicates, and funnels events into the
// engine until the connection dies.
func readPump(ctx context.Context, c *websocket.Conn, cl *client, s *Server, logger *logrus.Logger) {
	for {
		_, data, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway &&
				ctx.Err() == nil {
				logger.Debugf("read error for user %v: %v", cl.userID, err)
			}
			return
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			logger.Debugf("malformed message from user %v: %v", cl.userID, err)
			continue
		}
		if cl.dedup.isDuplicate(env.Id) {
			continue
		}
		ev, err := env.toEvent(cl.mode, cl.userID)
		if err != nil {
			logger.Debugf("dropping message from user %v: %v", cl.userID, err)
			continue
		}

		notices := s.Engine.Dispatch(ev)

		// A successful direct join reply binds this connection to its seat.
		for _, n := range notices {
			if n.Type == engine.NoticeGameResponse && n.Success {
				cl.bindSeat(n.RoomID, n.PlayerID)
			}
		}
		s.Router.Deliver(cl, notices)
	}
}

// writePump serializes queued notices onto the socket.
func writePump(ctx context.Context, c *websocket.Conn, cl *client, logger *logrus.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case n := <-cl.out:
			data, err := json.Marshal(n)
			if err != nil {
				logger.Warnf("failed to marshal notice for user %v: %v", cl.userID, err)
				continue
			}
			wctx, cancel := context.WithTimeout(ctx, 10*time.Second)
			err = c.Write(wctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				logger.Debugf("write error for user %v: %v", cl.userID, err)
				cl.cancel()
				return
			}
		}
	}
}

// ensureGuestUser resolves the caller's identity from the auth_token cookie,
// minting a fresh guest identity (and setting the cookie) when absent or
// invalid.
func ensureGuestUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, error) {
	if cookie, err := r.Cookie("auth_token"); err == nil {
		if userID, err := auth.AuthenticateJWT(cookie.Value); err == nil {
			return userID, nil
		}
	}
	userID, token, err := auth.NewGuestToken()
	if err != nil {
		return uuid.Nil, err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     "auth_token",
		Value:    token,
		HttpOnly: true,
		Path:     "/",
	})
	return userID, nil
}
