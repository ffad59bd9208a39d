package app

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/dkeye/Noesis/internal/core"
	"github.com/dkeye/Noesis/internal/domain"
	"github.com/dkeye/Noesis/internal/stt"
	"github.com/stretchr/testify/require"
)

type sentFrame struct {
	text   []byte
	binary []byte
}

type fakePeer struct {
	id string

	mu     sync.Mutex
	frames []sentFrame
	closed bool
	full   bool
}

func newFakePeer(id string) *fakePeer { return &fakePeer{id: id} }

func (p *fakePeer) ID() string { return p.id }

func (p *fakePeer) SendText(data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return core.ErrClosed
	}
	if p.full {
		return core.ErrBackpressure
	}
	p.frames = append(p.frames, sentFrame{text: data})
	return nil
}

func (p *fakePeer) SendFramed(header []byte, payload core.Frame) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return core.ErrClosed
	}
	if p.full {
		return core.ErrBackpressure
	}
	p.frames = append(p.frames, sentFrame{text: header}, sentFrame{binary: payload})
	return nil
}

func (p *fakePeer) IsOpen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.closed
}

func (p *fakePeer) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
}

func (p *fakePeer) setFull(full bool) {
	p.mu.Lock()
	p.full = full
	p.mu.Unlock()
}

func (p *fakePeer) sent() []sentFrame {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]sentFrame(nil), p.frames...)
}

// messages decodes every text frame sent so far.
func (p *fakePeer) messages(t *testing.T) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, f := range p.sent() {
		if f.text == nil {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal(f.text, &m))
		out = append(out, m)
	}
	return out
}

func (p *fakePeer) types(t *testing.T) []string {
	t.Helper()
	var out []string
	for _, m := range p.messages(t) {
		out = append(out, m["type"].(string))
	}
	return out
}

type fakePipeline struct {
	cb stt.Callbacks

	mu       sync.Mutex
	chunks   [][]byte
	ends     int
	pushLate int
	panicky  bool
}

func (f *fakePipeline) PushChunk(chunk []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panicky {
		panic("vendor exploded")
	}
	if f.ends > 0 {
		f.pushLate++
	}
	f.chunks = append(f.chunks, chunk)
}

func (f *fakePipeline) End() {
	f.mu.Lock()
	f.ends++
	f.mu.Unlock()
}

func (f *fakePipeline) stats() (chunks, ends, late int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.chunks), f.ends, f.pushLate
}

type pipelineRecorder struct {
	mu        sync.Mutex
	pipelines []*fakePipeline
	panicky   bool
}

func (r *pipelineRecorder) factory(_ domain.SessionID, cb stt.Callbacks) stt.Pipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := &fakePipeline{cb: cb, panicky: r.panicky}
	r.pipelines = append(r.pipelines, p)
	return p
}

func (r *pipelineRecorder) all() []*fakePipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*fakePipeline(nil), r.pipelines...)
}
