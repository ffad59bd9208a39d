package app

import (
	"github.com/dkeye/Noesis/internal/domain"
	"github.com/dkeye/Noesis/internal/protocol"
	"github.com/rs/zerolog/log"
)

// Hello binds an unbound connection to a session and role. A hello on a
// connection that is already bound or closed is ignored.
func (r *Router) Hello(c *Conn, msg protocol.Hello) {
	sid := domain.NormalizeSessionID(msg.SessionID)
	role := domain.ParseRole(msg.Role)
	logger := log.With().Str("module", "app.router").Str("conn", c.ID()).Str("sid", string(sid)).Str("role", string(role)).Logger()

	if !c.bind(sid, role) {
		logger.Debug().Str("state", c.State().String()).Msg("hello ignored")
		return
	}
	r.Metrics.ConnectionBound(string(role))

	s := r.Registry.acquire(sid)
	defer s.mu.Unlock()

	// A close that won the race against this hello already ran; it found
	// nothing to clear, so do not occupy the slot.
	if c.State() == StateClosed {
		if s.empty() {
			r.Registry.removeLocked(s)
		}
		logger.Debug().Msg("hello after close, not bound")
		return
	}

	slot := s.slot(role)
	if prev := slot.Load(); prev != nil && prev != c {
		logger.Warn().Str("displaced", prev.ID()).Msg("role slot taken over")
	}
	slot.Store(c)
	logger.Info().Msg("bound")

	r.send(c, protocol.NewWelcome(sid, role))
	if peer := s.Peer(role.Other()); peer != nil {
		r.send(c, protocol.NewPeerJoined(role.Other()))
		r.send(peer, protocol.NewPeerJoined(role))
	}
}

// Bye is a peer-initiated graceful close. Before hello it is dropped like
// any other out-of-sequence control message.
func (r *Router) Bye(c *Conn) {
	if c.State() == StateUnbound {
		log.Debug().Str("module", "app.router").Str("conn", c.ID()).Msg("bye before hello dropped")
		return
	}
	log.Debug().Str("module", "app.router").Str("conn", c.ID()).Msg("bye")
	r.Evict(c)
}

// Closed releases c from its session. It runs at most once per connection;
// later calls are no-ops.
//
// The slot is cleared only if it still holds c: a close that arrives after
// a newer connection took over the role leaves the session untouched.
func (r *Router) Closed(c *Conn) {
	sid, role, bound, first := c.markClosed()
	if !first {
		return
	}
	logger := log.With().Str("module", "app.router").Str("conn", c.ID()).Logger()
	if !bound {
		logger.Debug().Msg("unbound connection closed")
		return
	}
	r.Metrics.ConnectionReleased(string(role))
	logger = logger.With().Str("sid", string(sid)).Str("role", string(role)).Logger()

	s, ok := r.Registry.Get(sid)
	if !ok {
		logger.Debug().Msg("closed: no session")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleted {
		return
	}
	slot := s.slot(role)
	if slot.Load() != c {
		logger.Info().Msg("closed: stale handle, slot already replaced")
		return
	}
	slot.Store(nil)
	logger.Info().Msg("released")

	if other := s.Peer(role.Other()); other != nil {
		r.send(other, protocol.NewPeerLeft(role))
	}
	if role == domain.RoleClient {
		s.endPipelineLocked()
	}
	if s.empty() {
		r.Registry.removeLocked(s)
	}
}
