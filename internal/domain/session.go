// Package domain contains entity without logic, just meta-data
package domain

import (
	"strings"

	"github.com/google/uuid"
)

type SessionID string

type Role string

const (
	RoleClient Role = "client"
	RoleAgent  Role = "agent"
)

// ParseRole maps a declared role to a Role. Anything but the literal
// "agent" is a client.
func ParseRole(s string) Role {
	if s == string(RoleAgent) {
		return RoleAgent
	}
	return RoleClient
}

// Other returns the opposite side of the pair.
func (r Role) Other() Role {
	if r == RoleAgent {
		return RoleClient
	}
	return RoleAgent
}

// NormalizeSessionID trims the requested id and generates a fresh one when
// nothing is left.
func NormalizeSessionID(raw string) SessionID {
	id := strings.TrimSpace(raw)
	if id == "" {
		return SessionID(uuid.NewString())
	}
	return SessionID(id)
}
