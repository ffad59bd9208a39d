package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFileDefaults(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 3001, cfg.Port)
	assert.Equal(t, 60*time.Second, cfg.IdleTimeout)
	assert.Equal(t, 25*time.Second, cfg.PingPeriod)
	assert.Equal(t, "audio/webm;codecs=opus", cfg.AudioMime)
	assert.Equal(t, "drop", cfg.Backpressure)
	assert.Equal(t, "noop", cfg.STT.Provider)
	assert.Equal(t, 20, cfg.ControlRate.Limit)
	assert.False(t, cfg.Assist.Enabled)
	assert.NotEmpty(t, cfg.Secret, "a secret is generated when none is configured")
}

func TestLoadFileOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.test.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: 9000
idle_timeout: 2m
backpressure: kick
stt:
  provider: debug
  queue: 8
assist:
  enabled: true
  ollama_model: llama3
`), 0o600))
	t.Setenv("NOESIS_SECRET", "from-env")
	t.Setenv("NOESIS_ASSIST_TIMEOUT", "5s")

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, 2*time.Minute, cfg.IdleTimeout)
	assert.Equal(t, "kick", cfg.Backpressure)
	assert.Equal(t, "debug", cfg.STT.Provider)
	assert.Equal(t, 8, cfg.STT.Queue)
	assert.True(t, cfg.Assist.Enabled)
	assert.Equal(t, "llama3", cfg.Assist.OllamaModel)
	assert.Equal(t, "from-env", cfg.Secret)
	assert.Equal(t, 5*time.Second, cfg.Assist.Timeout)
}
