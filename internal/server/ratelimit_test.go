package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterEnforcesLimit(t *testing.T) {
	rl := newRateLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow("client-a"), "request %d", i)
	}
	assert.False(t, rl.Allow("client-a"))

	// Other keys are unaffected.
	assert.True(t, rl.Allow("client-b"))
}

func TestRateLimiterWindowResets(t *testing.T) {
	rl := newRateLimiter(1, 10*time.Millisecond)

	assert.True(t, rl.Allow("client-a"))
	assert.False(t, rl.Allow("client-a"))

	time.Sleep(15 * time.Millisecond)
	assert.True(t, rl.Allow("client-a"))
}

func TestRateLimiterRefusesEmptyKey(t *testing.T) {
	rl := newRateLimiter(100, time.Minute)
	assert.False(t, rl.Allow(""))
}
