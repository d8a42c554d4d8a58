package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadRateLimitConfigOverrides(t *testing.T) {
	t.Setenv("RATE_LIMIT_BURST", "12")
	t.Setenv("RATE_LIMIT_REFILL_EVERY", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")

	c := LoadRateLimitConfig()
	assert.Equal(t, 12, c.Capacity)
	assert.Equal(t, 1, c.RefillTokens)
	assert.Equal(t, 2*time.Second, c.RefillInterval)
	assert.Equal(t, 10*time.Second, c.TTL, "ttl is raised to five refill intervals")
}

func TestLoadIdempotencyConfigKeepsTTLAboveLock(t *testing.T) {
	t.Setenv("IDEMPOTENCY_TTL", "5s")
	t.Setenv("IDEMPOTENCY_LOCK_TTL", "1m")

	c := LoadIdempotencyConfig()
	assert.True(t, c.Enabled)
	assert.Equal(t, time.Minute, c.TTL)
	assert.Equal(t, "idem", c.Prefix)
}

func TestLoadCacheConfig(t *testing.T) {
	t.Setenv("CACHE_METHODS", "get, head")
	c := LoadCacheConfig()
	assert.Equal(t, map[string]bool{"GET": true, "HEAD": true}, c.Methods)
	assert.Equal(t, 5*time.Second, c.TTL)
}

func TestEnvBool(t *testing.T) {
	t.Setenv("FLAG_ON", "yes")
	t.Setenv("FLAG_JUNK", "maybe")
	assert.True(t, envBool("FLAG_ON", false))
	assert.True(t, envBool("FLAG_JUNK", true))
	assert.False(t, envBool("FLAG_UNSET", false))
}
