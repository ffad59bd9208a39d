package protocol

// Assembler pairs a binary frame with the audio-chunk header that was
// received just before it on the same stream.
//
// It has two states: idle, and awaiting the payload for a pending header.
// A header moves it to awaiting; the next binary frame consumes the header
// and moves it back to idle. A second header while awaiting replaces the
// first. A binary frame while idle has no header.
//
// Not safe for concurrent use; one Assembler belongs to one ordered stream.
type Assembler struct {
	pending *AudioChunk
}

// Header records h as the header for the next binary frame.
func (a *Assembler) Header(h AudioChunk) {
	a.pending = &h
}

// Payload consumes the pending header for a binary frame. ok is false when
// no header was pending.
func (a *Assembler) Payload() (h AudioChunk, ok bool) {
	if a.pending == nil {
		return AudioChunk{}, false
	}
	h = *a.pending
	a.pending = nil
	return h, true
}

// Awaiting reports whether a header is waiting for its payload.
func (a *Assembler) Awaiting() bool { return a.pending != nil }
