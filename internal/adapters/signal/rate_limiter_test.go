package signal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterWindow(t *testing.T) {
	rl := NewRateLimiter(2, time.Second)
	now := time.Unix(100, 0)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"), "limits are per connection")

	now = now.Add(1500 * time.Millisecond)
	assert.True(t, rl.Allow("a"))

	rl.Forget("a")
	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("a"))
}

func TestRateLimiterDisabled(t *testing.T) {
	var rl *RateLimiter
	assert.Nil(t, NewRateLimiter(0, time.Second))
	for i := 0; i < 100; i++ {
		assert.True(t, rl.Allow("a"))
	}
	rl.Forget("a")
}
