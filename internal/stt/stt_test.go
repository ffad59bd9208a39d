package stt

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedEngine struct {
	mu     sync.Mutex
	seen   [][]byte
	closed int
	block  chan struct{}
}

func (e *scriptedEngine) Transcribe(_ context.Context, chunk []byte) ([]Result, error) {
	if e.block != nil {
		<-e.block
	}
	e.mu.Lock()
	e.seen = append(e.seen, chunk)
	e.mu.Unlock()
	if string(chunk) == "bad" {
		return nil, errors.New("vendor hiccup")
	}
	return []Result{{Text: "p:" + string(chunk)}, {Text: "f:" + string(chunk), Final: true}}, nil
}

func (e *scriptedEngine) Close() error {
	e.mu.Lock()
	e.closed++
	e.mu.Unlock()
	return nil
}

type transcript struct {
	mu      sync.Mutex
	partial []string
	final   []string
}

func (tr *transcript) callbacks() Callbacks {
	return Callbacks{
		OnPartial: func(s string) { tr.mu.Lock(); tr.partial = append(tr.partial, s); tr.mu.Unlock() },
		OnFinal:   func(s string) { tr.mu.Lock(); tr.final = append(tr.final, s); tr.mu.Unlock() },
	}
}

func waitDone(t *testing.T, q *Queued) {
	t.Helper()
	select {
	case <-q.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("queued pipeline did not drain")
	}
}

func TestQueuedOrderAndFlush(t *testing.T) {
	eng := &scriptedEngine{}
	var tr transcript
	q := NewQueued("S1", eng, tr.callbacks(), 8)

	q.PushChunk([]byte("a"))
	q.PushChunk([]byte("bad"))
	q.PushChunk([]byte("b"))
	q.End()
	q.End()
	waitDone(t, q)

	assert.Equal(t, []string{"p:a", "p:b"}, tr.partial)
	assert.Equal(t, []string{"f:a", "f:b"}, tr.final)
	assert.Equal(t, 1, eng.closed)
}

func TestQueuedIgnoresPushAfterEnd(t *testing.T) {
	eng := &scriptedEngine{}
	q := NewQueued("S1", eng, Callbacks{}, 8)
	q.End()
	q.PushChunk([]byte("late"))
	waitDone(t, q)
	assert.Empty(t, eng.seen)
}

func TestQueuedPushDoesNotBlock(t *testing.T) {
	eng := &scriptedEngine{block: make(chan struct{})}
	q := NewQueued("S1", eng, Callbacks{}, 1)

	finished := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			q.PushChunk([]byte{byte(i)})
		}
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("PushChunk blocked on a stalled engine")
	}
	close(eng.block)
	q.End()
	waitDone(t, q)
}

func TestQueuedRecoversCallbackPanic(t *testing.T) {
	eng := &scriptedEngine{}
	var finals []string
	q := NewQueued("S1", eng, Callbacks{
		OnPartial: func(string) { panic("boom") },
		OnFinal:   func(s string) { finals = append(finals, s) },
	}, 4)
	q.PushChunk([]byte("a"))
	q.PushChunk([]byte("b"))
	q.End()
	waitDone(t, q)
	assert.Equal(t, []string{"f:a", "f:b"}, finals)
}

func TestNewFactory(t *testing.T) {
	f, err := NewFactory("", 0)
	require.NoError(t, err)
	p := f("S1", Callbacks{OnPartial: func(string) { t.Fatal("noop must not transcribe") }})
	p.PushChunk([]byte{1, 2, 3})
	p.End()
	p.End()

	f, err = NewFactory(ProviderDebug, 4)
	require.NoError(t, err)
	var tr transcript
	p = f("S1", tr.callbacks())
	for i := 0; i < 4; i++ {
		p.PushChunk([]byte{1, 2})
	}
	p.End()
	waitDone(t, p.(*Queued))
	assert.Len(t, tr.partial, 4)
	assert.Equal(t, []string{"utterance of 8 bytes"}, tr.final)

	_, err = NewFactory("deepgram", 0)
	assert.Error(t, err)
}
