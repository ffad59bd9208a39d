// Package protocol defines the JSON control frames exchanged over a relay
// connection and the header/payload pairing rule for binary audio.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dkeye/Noesis/internal/domain"
)

const (
	TypeHello      = "hello"
	TypeBye        = "bye"
	TypeWelcome    = "welcome"
	TypePeerJoined = "peer-joined"
	TypePeerLeft   = "peer-left"
	TypeAudioChunk = "audio-chunk"
	TypeSTT        = "stt"
	TypeChat       = "chat"
	TypeSuggestion = "suggestion"
)

const (
	STTPartial = "partial"
	STTFinal   = "final"
)

var (
	ErrMalformed   = errors.New("malformed control frame")
	ErrUnknownType = errors.New("unknown control type")
)

type Hello struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId,omitempty"`
	Role      string `json:"role,omitempty"`
}

// UnmarshalJSON accepts sessionId and role of any JSON type. A number
// sessionId keeps its literal text; every other non-string becomes blank and
// falls back to the defaults applied at bind time.
func (h *Hello) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type      string          `json:"type"`
		SessionID json.RawMessage `json:"sessionId"`
		Role      json.RawMessage `json:"role"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	h.Type = raw.Type
	h.SessionID = looseString(raw.SessionID, true)
	h.Role = looseString(raw.Role, false)
	return nil
}

func looseString(raw json.RawMessage, numbers bool) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	if numbers {
		var n json.Number
		if json.Unmarshal(raw, &n) == nil {
			return n.String()
		}
	}
	return ""
}

type Bye struct {
	Type string `json:"type"`
}

type Welcome struct {
	Type      string           `json:"type"`
	SessionID domain.SessionID `json:"sessionId"`
	Role      domain.Role      `json:"role"`
}

// Presence is used for both peer-joined and peer-left.
type Presence struct {
	Type string      `json:"type"`
	Role domain.Role `json:"role"`
}

type AudioChunk struct {
	Type string      `json:"type"`
	Role domain.Role `json:"role,omitempty"`
	Mime string      `json:"mime,omitempty"`
}

type STT struct {
	Type string `json:"type"`
	Kind string `json:"kind"`
	Text string `json:"text"`
	At   int64  `json:"at"`
}

type Chat struct {
	Type string      `json:"type"`
	Role domain.Role `json:"role,omitempty"`
	Text string      `json:"text"`
	At   int64       `json:"at,omitempty"`
}

type Suggestion struct {
	Type       string  `json:"type"`
	Transcript string  `json:"transcript"`
	Suggestion string  `json:"suggestion"`
	Emotion    string  `json:"emotion"`
	Confidence float64 `json:"confidence"`
}

func NewWelcome(sid domain.SessionID, role domain.Role) Welcome {
	return Welcome{Type: TypeWelcome, SessionID: sid, Role: role}
}

func NewPeerJoined(role domain.Role) Presence {
	return Presence{Type: TypePeerJoined, Role: role}
}

func NewPeerLeft(role domain.Role) Presence {
	return Presence{Type: TypePeerLeft, Role: role}
}

func NewAudioChunk(role domain.Role, mime string) AudioChunk {
	return AudioChunk{Type: TypeAudioChunk, Role: role, Mime: mime}
}

func NewSTT(kind, text string, at time.Time) STT {
	return STT{Type: TypeSTT, Kind: kind, Text: text, At: at.UnixMilli()}
}

func NewChat(role domain.Role, text string, at time.Time) Chat {
	return Chat{Type: TypeChat, Role: role, Text: text, At: at.UnixMilli()}
}

// Encode marshals an outbound message.
func Encode(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode control frame: %w", err)
	}
	return b, nil
}

// Decode parses an inbound text frame into one of *Hello, *Bye, *AudioChunk
// or *Chat.
func Decode(data []byte) (any, error) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	var msg any
	switch env.Type {
	case TypeHello:
		msg = &Hello{}
	case TypeBye:
		return &Bye{Type: TypeBye}, nil
	case TypeAudioChunk:
		msg = &AudioChunk{}
	case TypeChat:
		msg = &Chat{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}
	if err := json.Unmarshal(data, msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return msg, nil
}
