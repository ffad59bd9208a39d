package app

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/dkeye/Noesis/internal/domain"
	"github.com/dkeye/Noesis/internal/metrics"
	"github.com/dkeye/Noesis/internal/stt"
	"github.com/rs/zerolog/log"
)

// Session pairs at most one client and one agent connection.
//
// mu serializes every read-modify-write on the session: slot assignment,
// slot clearing, presence notification and pipeline lifecycle. Slots are
// written only while holding mu but may be read without it, so transcript
// callbacks can reach the agent from any goroutine.
type Session struct {
	ID domain.SessionID

	mu       sync.Mutex
	client   atomic.Pointer[Conn]
	agent    atomic.Pointer[Conn]
	pipeline stt.Pipeline
	deleted  bool
}

func (s *Session) slot(role domain.Role) *atomic.Pointer[Conn] {
	if role == domain.RoleAgent {
		return &s.agent
	}
	return &s.client
}

// Peer returns the connection occupying role, or nil.
func (s *Session) Peer(role domain.Role) *Conn {
	return s.slot(role).Load()
}

func (s *Session) empty() bool {
	return s.client.Load() == nil && s.agent.Load() == nil
}

// endPipelineLocked terminates and discards the STT pipeline. Caller holds mu.
func (s *Session) endPipelineLocked() {
	if s.pipeline == nil {
		return
	}
	p := s.pipeline
	s.pipeline = nil
	func() {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error().Str("module", "app.registry").Str("sid", string(s.ID)).Interface("panic", rec).Msg("stt end panicked")
			}
		}()
		p.End()
	}()
	log.Info().Str("module", "app.registry").Str("sid", string(s.ID)).Msg("stt pipeline ended")
}

// SessionInfo is a read-only view for APIs (no transport fields).
type SessionInfo struct {
	SessionID domain.SessionID `json:"sessionId"`
	Client    string           `json:"client,omitempty"`
	Agent     string           `json:"agent,omitempty"`
	STT       bool             `json:"stt"`
}

// Registry maps session ids to sessions. The map lock is held only for map
// operations; per-session work happens under the session's own lock, so
// unrelated sessions never wait on each other.
type Registry struct {
	mu       sync.RWMutex
	sessions map[domain.SessionID]*Session
	metrics  *metrics.Metrics
}

func NewRegistry(m *metrics.Metrics) *Registry {
	return &Registry{
		sessions: make(map[domain.SessionID]*Session),
		metrics:  m,
	}
}

// GetOrCreate returns the session for id, creating an empty one if absent.
func (r *Registry) GetOrCreate(id domain.SessionID) *Session {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if ok {
		return s
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok = r.sessions[id]; ok {
		return s
	}
	s = &Session{ID: id}
	r.sessions[id] = s
	r.metrics.SessionOpened()
	log.Info().Str("module", "app.registry").Str("sid", string(id)).Msg("created session")
	return s
}

func (r *Registry) Get(id domain.SessionID) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Delete drops the session and ends its pipeline. Connections still bound to
// it are left alone; their close finds no session and does nothing.
func (r *Registry) Delete(id domain.SessionID) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	r.mu.Unlock()
	if !ok {
		return
	}

	s.mu.Lock()
	if !s.deleted {
		s.deleted = true
		r.metrics.SessionClosed()
	}
	s.endPipelineLocked()
	s.mu.Unlock()
	log.Info().Str("module", "app.registry").Str("sid", string(id)).Msg("deleted session")
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Snapshot lists live sessions ordered by id.
func (r *Registry) Snapshot() []SessionInfo {
	r.mu.RLock()
	list := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		list = append(list, s)
	}
	r.mu.RUnlock()

	out := make([]SessionInfo, 0, len(list))
	for _, s := range list {
		s.mu.Lock()
		if !s.deleted {
			info := SessionInfo{SessionID: s.ID, STT: s.pipeline != nil}
			if c := s.client.Load(); c != nil {
				info.Client = c.ID()
			}
			if a := s.agent.Load(); a != nil {
				info.Agent = a.ID()
			}
			out = append(out, info)
		}
		s.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SessionID < out[j].SessionID })
	return out
}

// acquire returns the live session for id with its lock held, creating it if
// needed. A session deleted between lookup and locking is retried.
func (r *Registry) acquire(id domain.SessionID) *Session {
	for {
		s := r.GetOrCreate(id)
		s.mu.Lock()
		if !s.deleted {
			return s
		}
		s.mu.Unlock()
	}
}

// removeLocked deletes s if the map still points at it. Caller holds s.mu.
func (r *Registry) removeLocked(s *Session) {
	s.deleted = true
	s.endPipelineLocked()

	r.mu.Lock()
	if cur, ok := r.sessions[s.ID]; ok && cur == s {
		delete(r.sessions, s.ID)
	}
	r.mu.Unlock()
	r.metrics.SessionClosed()
	log.Info().Str("module", "app.registry").Str("sid", string(s.ID)).Msg("deleted empty session")
}
