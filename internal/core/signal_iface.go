package core

import "errors"

var (
	ErrBackpressure = errors.New("backpressure")
	ErrClosed       = errors.New("connection closed")
)

// Frame is a raw binary payload (an audio chunk).
type Frame []byte

// Peer is the outbound side of a live connection.
// Owned by the adapter; the adapter must Close() it.
type Peer interface {
	// ID is a stable identifier used in logs.
	ID() string
	// SendText queues one text frame.
	SendText(data []byte) error
	// SendFramed queues a text header and the binary frame that belongs to
	// it as one unit; they are written back to back or not at all.
	SendFramed(header []byte, payload Frame) error
	IsOpen() bool
	Close()
}
