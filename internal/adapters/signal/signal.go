// Package signal is the websocket endpoint: it owns the transport, classifies
// inbound frames and hands decoded events to the session router.
package signal

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/dkeye/Noesis/internal/app"
	"github.com/dkeye/Noesis/internal/core"
	"github.com/dkeye/Noesis/internal/metrics"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

type Options struct {
	ReadLimit    int64
	PingPeriod   time.Duration
	IdleTimeout  time.Duration
	WriteTimeout time.Duration
	SendBuffer   int
}

func (o Options) withDefaults() Options {
	if o.ReadLimit <= 0 {
		o.ReadLimit = 1 << 20
	}
	if o.IdleTimeout <= 0 {
		o.IdleTimeout = 60 * time.Second
	}
	if o.PingPeriod <= 0 || o.PingPeriod >= o.IdleTimeout {
		o.PingPeriod = o.IdleTimeout * 9 / 10
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 5 * time.Second
	}
	if o.SendBuffer <= 0 {
		o.SendBuffer = 256
	}
	return o
}

type SignalWSController struct {
	Router  *app.Router
	Metrics *metrics.Metrics
	Limiter *RateLimiter
	opts    Options
}

func NewSignalWSController(router *app.Router, m *metrics.Metrics, limiter *RateLimiter, opts Options) *SignalWSController {
	return &SignalWSController{
		Router:  router,
		Metrics: m,
		Limiter: limiter,
		opts:    opts.withDefaults(),
	}
}

// outbound is one queued write: a text frame, or a header and its binary
// payload written back to back.
type outbound struct {
	text    []byte
	payload core.Frame
}

// WsSignalConn implements core.Peer over a gorilla websocket.
type WsSignalConn struct {
	id   string
	conn *websocket.Conn
	send chan outbound

	mu     sync.RWMutex
	closed bool
}

func (c *WsSignalConn) ID() string { return c.id }

func (c *WsSignalConn) SendText(data []byte) error {
	return c.trySend(outbound{text: data})
}

func (c *WsSignalConn) SendFramed(header []byte, payload core.Frame) error {
	return c.trySend(outbound{text: header, payload: payload})
}

func (c *WsSignalConn) trySend(o outbound) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return core.ErrClosed
	}
	select {
	case c.send <- o:
	default:
		return core.ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) IsOpen() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.closed
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	token := c.GetString("client_token")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}

	conn := &WsSignalConn{
		id:   uuid.NewString(),
		conn: ws,
		send: make(chan outbound, ctl.opts.SendBuffer),
	}
	log.Info().Str("module", "signal").Str("conn", conn.id).Str("ct", token).Msg("new WS connection")

	handle := ctl.Router.Accept(conn)
	ctx, cancel := context.WithCancel(ctx)

	go ctl.writePump(ctx, conn)
	go func() {
		defer cancel()
		ctl.readPump(conn, handle)
	}()
}
