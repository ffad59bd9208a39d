// Package stt is the speech-to-text capability the relay taps client audio
// into. Vendors plug in behind Pipeline or Engine; nothing here talks to one.
package stt

import (
	"fmt"

	"github.com/dkeye/Noesis/internal/domain"
)

// Callbacks receive transcript text. They may be invoked from any goroutine.
type Callbacks struct {
	OnPartial func(text string)
	OnFinal   func(text string)
}

// Pipeline is one live transcription stream for one session.
type Pipeline interface {
	// PushChunk feeds one audio chunk. It must not block the caller on
	// recognition work.
	PushChunk(chunk []byte)
	// End flushes and releases the pipeline. Calling it again is a no-op.
	End()
}

// Factory builds a pipeline for a session.
type Factory func(sid domain.SessionID, cb Callbacks) Pipeline

type noop struct{}

func (noop) PushChunk([]byte) {}
func (noop) End()             {}

// NoopFactory returns pipelines that accept audio and never transcribe.
func NoopFactory(domain.SessionID, Callbacks) Pipeline { return noop{} }

const (
	ProviderNoop  = "noop"
	ProviderDebug = "debug"
)

// NewFactory resolves a configured provider name.
func NewFactory(provider string, queueDepth int) (Factory, error) {
	switch provider {
	case "", ProviderNoop:
		return NoopFactory, nil
	case ProviderDebug:
		return func(sid domain.SessionID, cb Callbacks) Pipeline {
			return NewQueued(sid, NewDebugEngine(4), cb, queueDepth)
		}, nil
	default:
		return nil, fmt.Errorf("unknown stt provider %q", provider)
	}
}
