// internal/transport/router.go
package transport

import (
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/mkarman/tilerush/internal/engine"
)

// Router tracks the live connection per user identity and fans notices out to
// their recipients. One connection per user: a second connection under the
// same identity replaces the first.
type Router struct {
	mu     sync.Mutex
	conns  map[uuid.UUID]*client
	logger *logrus.Logger
}

func NewRouter(logger *logrus.Logger) *Router {
	return &Router{
		conns:  make(map[uuid.UUID]*client),
		logger: logger,
	}
}

// Register installs c as the connection for its user, returning the displaced
// connection if one existed.
func (rt *Router) Register(c *client) *client {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	old := rt.conns[c.userID]
	rt.conns[c.userID] = c
	return old
}

// Unregister drops c unless the user has already been re-registered under a
// newer connection.
func (rt *Router) Unregister(c *client) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.conns[c.userID] == c {
		delete(rt.conns, c.userID)
	}
}

// Deliver dispatches a batch of notices. Direct replies (a correlation id,
// no recipients) go to origin; everything else fans out to the recipients'
// connections. A gameQuit additionally clears each recipient's seat binding
// so their next join starts clean.
func (rt *Router) Deliver(origin *client, notices []engine.Notice) {
	for _, n := range notices {
		if len(n.Recipients) == 0 {
			if origin != nil {
				origin.send(n)
			}
			continue
		}
		for _, userID := range n.Recipients {
			rt.mu.Lock()
			c := rt.conns[userID]
			rt.mu.Unlock()
			if c == nil {
				rt.logger.Debugf("no live connection for recipient %v, dropping %s", userID, n.Type)
				continue
			}
			if n.Type == engine.NoticeGameQuit {
				c.clearSeat()
			}
			c.send(n)
		}
	}
}
