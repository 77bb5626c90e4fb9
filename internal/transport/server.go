// internal/transport/server.go

// Package transport is the websocket boundary: it upgrades connections,
// decodes inbound envelopes into engine events, and routes the engine's
// notices back out: direct replies to the requesting connection, broadcasts
// to every seated participant. The engine itself never touches a socket.
package transport

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/mkarman/tilerush/internal/engine"
)

// Server ties the engine to the connection router.
type Server struct {
	Engine *engine.Engine
	Router *Router
	Logger *logrus.Logger
}

// NewServer wires a server and installs the router as the engine's sink for
// timer-origin notices.
func NewServer(eng *engine.Engine, logger *logrus.Logger) *Server {
	s := &Server{
		Engine: eng,
		Router: NewRouter(logger),
		Logger: logger,
	}
	eng.SetNotify(func(notices []engine.Notice) {
		s.Router.Deliver(nil, notices)
	})
	return s
}

// RoomsHandler lists sanitized snapshots of every live room, handy for
// debugging and ops.
func (s *Server) RoomsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	snaps := s.Engine.Snapshots()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(snaps); err != nil {
		s.Logger.Warnf("failed to encode room list: %v", err)
	}
}
