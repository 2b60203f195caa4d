package middleware

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter(t *testing.T) {
	t.Run("BurstThenDeny", func(t *testing.T) {
		rl := NewRateLimiter(1, 2)
		assert.True(t, rl.Allow("ada:LOGIN_WELCOME"))
		assert.True(t, rl.Allow("ada:LOGIN_WELCOME"))
		assert.False(t, rl.Allow("ada:LOGIN_WELCOME"))
		assert.True(t, rl.Allow("bob:LOGIN_WELCOME"))
		assert.Equal(t, 2, rl.Keys())
	})

	t.Run("Unlimited", func(t *testing.T) {
		rl := NewRateLimiter(0, 1)
		for i := 0; i < 100; i++ {
			assert.True(t, rl.Allow("k"))
		}
	})
}
