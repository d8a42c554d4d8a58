package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// CacheConfig defines settings for the availability response cache.  When
// Enabled is false or no Redis client is configured, caching is disabled.
// Availability moves with every reservation, so the default TTL is short
// and the cached body is only a hint: reservations always re-check under
// locks.
type CacheConfig struct {
	Enabled      bool
	Methods      map[string]bool
	TTL          time.Duration
	KeyStrategy  string // "route_query" or "path_query"
	Prefix       string
	MaxBodyBytes int
}

// LoadCacheConfig reads CACHE_* variables.  All methods are upper-cased.
func LoadCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled:      getenv("CACHE_ENABLED", "true") == "true",
		Methods:      parseMethods(getenv("CACHE_METHODS", "GET")),
		TTL:          parseDur(getenv("CACHE_TTL", "5s")),
		KeyStrategy:  getenv("CACHE_KEY_STRATEGY", "route_query"),
		Prefix:       getenv("CACHE_PREFIX", "avail"),
		MaxBodyBytes: atoi(getenv("CACHE_MAX_BODY_BYTES", "262144")),
	}
}

// IdempotencyConfig controls replay of reservation responses keyed by the
// Idempotency-Key header.
type IdempotencyConfig struct {
	Enabled bool
	TTL     time.Duration
	// LockTTL bounds how long a key stays claimed by an in-flight request.
	LockTTL time.Duration
	Prefix  string
}

func LoadIdempotencyConfig() IdempotencyConfig {
	c := IdempotencyConfig{
		Enabled: envBool("IDEMPOTENCY_ENABLED", true),
		TTL:     envDur("IDEMPOTENCY_TTL", 24*time.Hour),
		LockTTL: envDur("IDEMPOTENCY_LOCK_TTL", 30*time.Second),
		Prefix:  envStr("IDEMPOTENCY_PREFIX", "idem"),
	}
	if c.LockTTL <= 0 {
		c.LockTTL = 30 * time.Second
	}
	if c.TTL < c.LockTTL {
		c.TTL = c.LockTTL
	}
	return c
}

func parseMethods(s string) map[string]bool {
	m := map[string]bool{}
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(strings.ToUpper(p))
		if p != "" {
			m[p] = true
		}
	}
	return m
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoi(s string) int {
	i, _ := strconv.Atoi(s)
	return i
}

func parseDur(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return time.Second
	}
	return d
}
