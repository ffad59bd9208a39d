package app

import (
	"errors"

	"github.com/dkeye/Noesis/internal/core"
	"github.com/dkeye/Noesis/internal/domain"
	"github.com/dkeye/Noesis/internal/metrics"
	"github.com/dkeye/Noesis/internal/protocol"
	"github.com/dkeye/Noesis/internal/stt"
	"github.com/rs/zerolog/log"
)

// Audio relays one binary frame from c to the opposite peer, preceded by an
// audio-chunk header naming c's role. Client audio is also fed to the
// session's STT pipeline. An empty mime means the frame had no header.
// Delivery is fire and forget: nothing is reported back to the sender.
func (r *Router) Audio(c *Conn, mime string, payload core.Frame) {
	sid, role, ok := c.Binding()
	if !ok {
		r.Metrics.FrameDropped(metrics.ReasonUnbound)
		return
	}
	s, ok := r.Registry.Get(sid)
	if !ok {
		r.Metrics.FrameDropped(metrics.ReasonNoSession)
		return
	}
	if mime == "" {
		mime = r.audioMime()
	}

	var kick *Conn
	s.mu.Lock()
	if s.deleted {
		s.mu.Unlock()
		r.Metrics.FrameDropped(metrics.ReasonNoSession)
		return
	}
	if target := s.Peer(role.Other()); target != nil && target.IsOpen() {
		kick = r.relay(target, role, mime, payload)
	} else {
		r.Metrics.FrameDropped(metrics.ReasonNoTarget)
	}
	// Only the current occupant of the client slot feeds STT; a displaced
	// handle would otherwise revive a pipeline nobody will end.
	if role == domain.RoleClient && s.Peer(role) == c {
		if s.pipeline == nil {
			s.pipeline = r.newPipeline(s)
		}
		r.push(s, payload)
	}
	s.mu.Unlock()

	if kick != nil {
		log.Warn().Str("module", "app.router").Str("sid", string(sid)).Str("conn", kick.ID()).Msg("kicking slow peer")
		r.Evict(kick)
	}
}

// relay queues header and payload on target and returns target if the
// policy wants it gone.
func (r *Router) relay(target *Conn, role domain.Role, mime string, payload core.Frame) *Conn {
	header, err := protocol.Encode(protocol.NewAudioChunk(role, mime))
	if err != nil {
		log.Error().Err(err).Str("module", "app.router").Msg("encode audio header")
		return nil
	}
	err = target.Peer().SendFramed(header, payload)
	switch {
	case err == nil:
		r.Metrics.FrameRelayed(string(role), len(payload))
		log.Debug().Str("module", "app.router").Str("to", target.ID()).Int("bytes", len(payload)).Msg("relayed")
	case errors.Is(err, core.ErrBackpressure):
		r.Metrics.FrameDropped(metrics.ReasonBackpressure)
		if r.policy().OnBackPressure(target) == KickPeer {
			return target
		}
	default:
		r.Metrics.FrameDropped(metrics.ReasonNoTarget)
	}
	return nil
}

func (r *Router) newPipeline(s *Session) stt.Pipeline {
	factory := r.STT
	if factory == nil {
		factory = stt.NoopFactory
	}
	log.Info().Str("module", "app.router").Str("sid", string(s.ID)).Msg("stt pipeline started")
	return factory(s.ID, stt.Callbacks{
		OnPartial: func(text string) { r.transcript(s, protocol.STTPartial, text) },
		OnFinal:   func(text string) { r.transcript(s, protocol.STTFinal, text) },
	})
}

func (r *Router) push(s *Session, payload core.Frame) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Str("module", "app.router").Str("sid", string(s.ID)).Interface("panic", rec).Msg("stt push panicked")
		}
	}()
	s.pipeline.PushChunk(payload)
}

// transcript delivers an STT event to the session's agent only. It may run
// on the pipeline's goroutine and must not take the session lock.
func (r *Router) transcript(s *Session, kind, text string) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Str("module", "app.router").Str("sid", string(s.ID)).Interface("panic", rec).Msg("stt callback panicked")
		}
	}()
	agent := s.Peer(domain.RoleAgent)
	if agent == nil || !agent.IsOpen() {
		return
	}
	if r.send(agent, protocol.NewSTT(kind, text, r.now())) {
		r.Metrics.STTEvent(kind)
	}
	if kind == protocol.STTFinal {
		r.coach(s, text)
	}
}
