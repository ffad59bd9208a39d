package stt

import (
	"context"
	"sync"

	"github.com/dkeye/Noesis/internal/domain"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Result is one transcript emitted by an Engine.
type Result struct {
	Text  string
	Final bool
}

// Engine is a blocking recognizer, e.g. a vendor streaming client.
type Engine interface {
	Transcribe(ctx context.Context, chunk []byte) ([]Result, error)
	Close() error
}

// Queued adapts an Engine to Pipeline. Chunks go through a bounded queue to a
// single worker, so results come out in chunk arrival order. A full queue
// drops the chunk.
type Queued struct {
	engine Engine
	cb     Callbacks
	logger zerolog.Logger

	mu     sync.RWMutex
	queue  chan []byte
	closed bool

	cancel context.CancelFunc
	done   chan struct{}
}

func NewQueued(sid domain.SessionID, engine Engine, cb Callbacks, depth int) *Queued {
	if depth <= 0 {
		depth = 64
	}
	ctx, cancel := context.WithCancel(context.Background())
	q := &Queued{
		engine: engine,
		cb:     cb,
		logger: log.With().Str("module", "stt").Str("sid", string(sid)).Logger(),
		queue:  make(chan []byte, depth),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go q.run(ctx)
	return q
}

func (q *Queued) PushChunk(chunk []byte) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return
	}
	select {
	case q.queue <- chunk:
	default:
		q.logger.Warn().Int("bytes", len(chunk)).Msg("stt queue full, chunk dropped")
	}
}

// End stops intake. Queued chunks are still transcribed before the engine is
// closed; Done is closed once that has happened.
func (q *Queued) End() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.queue)
}

func (q *Queued) Done() <-chan struct{} { return q.done }

func (q *Queued) run(ctx context.Context) {
	defer close(q.done)
	defer q.cancel()
	defer func() {
		if err := q.engine.Close(); err != nil {
			q.logger.Error().Err(err).Msg("engine close")
		}
	}()

	for chunk := range q.queue {
		results, err := q.engine.Transcribe(ctx, chunk)
		if err != nil {
			q.logger.Error().Err(err).Msg("transcribe")
			continue
		}
		for _, r := range results {
			if r.Final {
				q.emit(q.cb.OnFinal, r.Text)
			} else {
				q.emit(q.cb.OnPartial, r.Text)
			}
		}
	}
	q.logger.Debug().Msg("stt worker drained")
}

func (q *Queued) emit(fn func(string), text string) {
	if fn == nil {
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			q.logger.Error().Interface("panic", rec).Msg("stt callback panicked")
		}
	}()
	fn(text)
}
