package signal

import (
	"context"
	"errors"
	"time"

	"github.com/dkeye/Noesis/internal/app"
	"github.com/dkeye/Noesis/internal/protocol"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// writePump is the only writer on the socket. It also pings, and closes the
// socket when ctx ends so the read side unblocks.
func (ctl *SignalWSController) writePump(ctx context.Context, c *WsSignalConn) {
	ticker := time.NewTicker(ctl.opts.PingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
				time.Now().Add(ctl.opts.WriteTimeout))
			log.Debug().Str("module", "signal").Str("conn", c.id).Msg("writePump ctx done")
			return
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(ctl.opts.WriteTimeout)); err != nil {
				log.Debug().Err(err).Str("module", "signal").Str("conn", c.id).Msg("writePump ping")
				return
			}
		case o, ok := <-c.send:
			if !ok {
				return
			}
			if err := ctl.write(c, o); err != nil {
				log.Debug().Err(err).Str("module", "signal").Str("conn", c.id).Msg("writePump write error")
				return
			}
		}
	}
}

func (ctl *SignalWSController) write(c *WsSignalConn, o outbound) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(ctl.opts.WriteTimeout)); err != nil {
		return err
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, o.text); err != nil {
		return err
	}
	if o.payload == nil {
		return nil
	}
	return c.conn.WriteMessage(websocket.BinaryMessage, o.payload)
}

// readPump processes inbound frames in arrival order until the transport
// fails or the idle deadline lapses, then runs the router's close path.
func (ctl *SignalWSController) readPump(c *WsSignalConn, handle *app.Conn) {
	defer func() {
		ctl.Router.Closed(handle)
		c.Close()
		ctl.Limiter.Forget(c.id)
		log.Info().Str("module", "signal").Str("conn", c.id).Msg("readPump closing")
	}()

	c.conn.SetReadLimit(ctl.opts.ReadLimit)
	extend := func() error {
		return c.conn.SetReadDeadline(time.Now().Add(ctl.opts.IdleTimeout))
	}
	_ = extend()
	c.conn.SetPongHandler(func(string) error { return extend() })

	var asm protocol.Assembler
	for {
		mt, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug().Str("module", "signal").Str("conn", c.id).Msg("peer closed")
			} else {
				log.Info().Err(err).Str("module", "signal").Str("conn", c.id).Msg("readPump read error")
			}
			return
		}
		_ = extend()
		ctl.handleFrame(c, handle, &asm, mt, data)
	}
}

// handleFrame dispatches one inbound frame. A panic while handling it is
// logged and the connection keeps reading.
func (ctl *SignalWSController) handleFrame(c *WsSignalConn, handle *app.Conn, asm *protocol.Assembler, mt int, data []byte) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Str("module", "signal").Str("conn", c.id).Interface("panic", rec).Msg("frame handler panicked")
		}
	}()

	switch mt {
	case websocket.BinaryMessage:
		var mime string
		if h, ok := asm.Payload(); ok {
			mime = h.Mime
		}
		ctl.Router.Audio(handle, mime, data)
	case websocket.TextMessage:
		ctl.handleControl(c, handle, asm, data)
	}
}

func (ctl *SignalWSController) handleControl(c *WsSignalConn, handle *app.Conn, asm *protocol.Assembler, data []byte) {
	msg, err := protocol.Decode(data)
	if err != nil {
		ctl.Metrics.MalformedFrame()
		lvl := log.Warn()
		if errors.Is(err, protocol.ErrUnknownType) {
			lvl = log.Debug()
		}
		lvl.Err(err).Str("module", "signal").Str("conn", c.id).Msg("control frame dropped")
		return
	}

	// Only chat counts against the rate limit; hello and bye always go through.
	switch m := msg.(type) {
	case *protocol.AudioChunk:
		if asm.Awaiting() {
			log.Debug().Str("module", "signal").Str("conn", c.id).Msg("audio header replaced before payload")
		}
		asm.Header(*m)
	case *protocol.Hello:
		ctl.Metrics.ControlMessage(protocol.TypeHello)
		ctl.Router.Hello(handle, *m)
	case *protocol.Bye:
		ctl.Metrics.ControlMessage(protocol.TypeBye)
		ctl.Router.Bye(handle)
	case *protocol.Chat:
		if !ctl.Limiter.Allow(c.id) {
			log.Warn().Str("module", "signal").Str("conn", c.id).Msg("control rate exceeded, frame dropped")
			return
		}
		ctl.Metrics.ControlMessage(protocol.TypeChat)
		ctl.Router.Chat(handle, m.Text)
	}
}
