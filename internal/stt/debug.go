package stt

import (
	"context"
	"fmt"
)

// DebugEngine stands in for a vendor during local runs. It reports the
// running byte count as a partial for every chunk and closes an utterance as
// final every finalEvery chunks.
type DebugEngine struct {
	finalEvery int
	chunks     int
	bytes      int
}

func NewDebugEngine(finalEvery int) *DebugEngine {
	if finalEvery <= 0 {
		finalEvery = 1
	}
	return &DebugEngine{finalEvery: finalEvery}
}

func (e *DebugEngine) Transcribe(_ context.Context, chunk []byte) ([]Result, error) {
	e.chunks++
	e.bytes += len(chunk)
	out := []Result{{Text: fmt.Sprintf("heard %d bytes", e.bytes)}}
	if e.chunks%e.finalEvery == 0 {
		out = append(out, Result{Text: fmt.Sprintf("utterance of %d bytes", e.bytes), Final: true})
		e.bytes = 0
	}
	return out, nil
}

func (e *DebugEngine) Close() error { return nil }
