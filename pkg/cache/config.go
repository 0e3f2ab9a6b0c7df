package cache

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// CacheConfig holds configuration for the artifact cache.
type CacheConfig struct {
	// Enabled controls whether derived artifacts are memoized. When false,
	// every request regenerates the stylesheet.
	Enabled bool

	// TTL bounds how long an artifact is kept. Artifacts are keyed by
	// checksum, so the TTL only reclaims memory.
	TTL time.Duration

	// MaxSize is the maximum number of entries.
	MaxSize int

	// MaxAge is sent as Cache-Control max-age on artifact responses.
	MaxAge time.Duration
}

// DefaultCacheConfig returns a CacheConfig with sensible defaults.
func DefaultCacheConfig() *CacheConfig {
	return &CacheConfig{
		Enabled: true,
		TTL:     24 * time.Hour,
		MaxSize: 256,
		MaxAge:  5 * time.Minute,
	}
}

// CacheConfigFromEnv reads cache configuration from environment variables,
// falling back to defaults for any unset variable.
//
// Environment variables:
//   - MENUFORGE_CACHE_ENABLED: "true" or "false" (default: "true")
//   - MENUFORGE_CACHE_TTL: seconds (default: 86400)
//   - MENUFORGE_CACHE_MAX_SIZE: max entries (default: 256)
//   - MENUFORGE_CACHE_MAX_AGE: Cache-Control max-age in seconds (default: 300)
func CacheConfigFromEnv() *CacheConfig {
	cfg := DefaultCacheConfig()

	if v := os.Getenv("MENUFORGE_CACHE_ENABLED"); v != "" {
		cfg.Enabled = strings.EqualFold(v, "true") || v == "1"
	}
	if v := os.Getenv("MENUFORGE_CACHE_TTL"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			cfg.TTL = time.Duration(secs) * time.Second
		}
	}
	if v := os.Getenv("MENUFORGE_CACHE_MAX_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxSize = n
		}
	}
	if v := os.Getenv("MENUFORGE_CACHE_MAX_AGE"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
			cfg.MaxAge = time.Duration(secs) * time.Second
		}
	}

	return cfg
}
