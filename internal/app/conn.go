package app

import (
	"sync"

	"github.com/dkeye/Noesis/internal/core"
	"github.com/dkeye/Noesis/internal/domain"
)

type ConnState int

const (
	StateUnbound ConnState = iota
	StateBound
	StateClosed
)

func (s ConnState) String() string {
	switch s {
	case StateUnbound:
		return "unbound"
	case StateBound:
		return "bound"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Conn is a connection handle: the peer transport plus the session and role
// learned from its first hello. Both are assigned once.
type Conn struct {
	peer core.Peer

	mu    sync.Mutex
	state ConnState
	sid   domain.SessionID
	role  domain.Role
}

func NewConn(peer core.Peer) *Conn {
	return &Conn{peer: peer}
}

func (c *Conn) ID() string      { return c.peer.ID() }
func (c *Conn) Peer() core.Peer { return c.peer }

func (c *Conn) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Binding returns the session and role once the connection is bound.
func (c *Conn) Binding() (domain.SessionID, domain.Role, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateBound {
		return "", "", false
	}
	return c.sid, c.role, true
}

// IsOpen reports whether frames sent to c can still be delivered.
func (c *Conn) IsOpen() bool {
	return c.State() != StateClosed && c.peer.IsOpen()
}

func (c *Conn) bind(sid domain.SessionID, role domain.Role) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateUnbound {
		return false
	}
	c.state = StateBound
	c.sid = sid
	c.role = role
	return true
}

// markClosed moves c to Closed. first is false if it was already closed.
func (c *Conn) markClosed() (sid domain.SessionID, role domain.Role, bound, first bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateClosed {
		return "", "", false, false
	}
	bound = c.state == StateBound
	c.state = StateClosed
	return c.sid, c.role, bound, true
}
