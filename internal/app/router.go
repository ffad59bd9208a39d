package app

import (
	"context"
	"time"

	"github.com/dkeye/Noesis/internal/assist"
	"github.com/dkeye/Noesis/internal/core"
	"github.com/dkeye/Noesis/internal/metrics"
	"github.com/dkeye/Noesis/internal/protocol"
	"github.com/dkeye/Noesis/internal/stt"
	"github.com/rs/zerolog/log"
)

const DefaultAudioMime = "audio/webm;codecs=opus"

// Assistant produces coaching for the agent from a client utterance.
type Assistant interface {
	Assist(ctx context.Context, text string) assist.Result
}

// Router runs the per-connection protocol state machine and the per-session
// relay. It holds no session state of its own; everything shared lives in the
// Registry.
type Router struct {
	Registry *Registry
	STT      stt.Factory
	Policy   Policy
	Metrics  *metrics.Metrics

	// Assist, when set, is fed client chat and final transcripts.
	Assist        Assistant
	AssistTimeout time.Duration

	// AudioMime labels binary frames that arrive without a header.
	AudioMime string

	Now func() time.Time
}

// Accept wraps a freshly accepted transport in an unbound handle.
func (r *Router) Accept(peer core.Peer) *Conn {
	log.Debug().Str("module", "app.router").Str("conn", peer.ID()).Msg("accepted")
	return NewConn(peer)
}

func (r *Router) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func (r *Router) audioMime() string {
	if r.AudioMime != "" {
		return r.AudioMime
	}
	return DefaultAudioMime
}

func (r *Router) policy() Policy {
	if r.Policy != nil {
		return r.Policy
	}
	return DropPolicy{}
}

// send encodes v and queues it on c. Delivery is best effort.
func (r *Router) send(c *Conn, v any) bool {
	if c == nil {
		return false
	}
	b, err := protocol.Encode(v)
	if err != nil {
		log.Error().Err(err).Str("module", "app.router").Msg("encode")
		return false
	}
	if err := c.Peer().SendText(b); err != nil {
		log.Debug().Err(err).Str("module", "app.router").Str("conn", c.ID()).Msg("send dropped")
		return false
	}
	return true
}

// Evict closes c and runs the close path. Supervisors use it to enforce
// timeouts with the same cleanup as a transport close.
func (r *Router) Evict(c *Conn) {
	c.Peer().Close()
	r.Closed(c)
}
