package app

import (
	"context"
	"strings"

	"github.com/dkeye/Noesis/internal/domain"
	"github.com/dkeye/Noesis/internal/protocol"
	"github.com/rs/zerolog/log"
)

// Chat relays a text message from c to the opposite peer. Client messages
// are also sent for coaching.
func (r *Router) Chat(c *Conn, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	sid, role, ok := c.Binding()
	if !ok {
		return
	}
	s, ok := r.Registry.Get(sid)
	if !ok {
		return
	}
	if target := s.Peer(role.Other()); target != nil && target.IsOpen() {
		r.send(target, protocol.NewChat(role, text, r.now()))
	}
	if role == domain.RoleClient {
		r.coach(s, text)
	}
}

// coach asks the assistant about text in the background and sends the
// result to whoever holds the agent slot when it is ready.
func (r *Router) coach(s *Session, text string) {
	if r.Assist == nil || strings.TrimSpace(text) == "" {
		return
	}
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error().Str("module", "app.router").Str("sid", string(s.ID)).Interface("panic", rec).Msg("assist panicked")
			}
		}()
		ctx := context.Background()
		if r.AssistTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, r.AssistTimeout)
			defer cancel()
		}
		res := r.Assist.Assist(ctx, text)

		agent := s.Peer(domain.RoleAgent)
		if agent == nil || !agent.IsOpen() {
			return
		}
		r.send(agent, protocol.Suggestion{
			Type:       protocol.TypeSuggestion,
			Transcript: res.Transcript,
			Suggestion: res.Suggestion,
			Emotion:    res.Emotion,
			Confidence: res.Confidence,
		})
	}()
}
