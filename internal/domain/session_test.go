package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	assert.Equal(t, RoleAgent, ParseRole("agent"))
	assert.Equal(t, RoleClient, ParseRole("client"))
	assert.Equal(t, RoleClient, ParseRole(""))
	assert.Equal(t, RoleClient, ParseRole("Agent"))
	assert.Equal(t, RoleClient, ParseRole("supervisor"))
}

func TestRoleOther(t *testing.T) {
	assert.Equal(t, RoleAgent, RoleClient.Other())
	assert.Equal(t, RoleClient, RoleAgent.Other())
}

func TestNormalizeSessionID(t *testing.T) {
	assert.Equal(t, SessionID("S1"), NormalizeSessionID("  S1 \t"))

	for _, raw := range []string{"", "   "} {
		id := NormalizeSessionID(raw)
		_, err := uuid.Parse(string(id))
		require.NoError(t, err, "generated id %q", id)
	}
	assert.NotEqual(t, NormalizeSessionID(""), NormalizeSessionID(""))
}
