package preview

import (
	"os"
	"strconv"
	"time"
)

// Config controls preview debouncing and session bookkeeping.
type Config struct {
	// Debounce is how long a session must stay quiet before its latest
	// request is derived.
	Debounce time.Duration
	// SessionTTL evicts sessions idle for longer than this.
	SessionTTL time.Duration
	// Timeout bounds one derivation.
	Timeout time.Duration
}

// DefaultConfig returns the default preview configuration.
func DefaultConfig() *Config {
	return &Config{
		Debounce:   500 * time.Millisecond,
		SessionTTL: 10 * time.Minute,
		Timeout:    5 * time.Second,
	}
}

// ConfigFromEnv reads preview configuration from environment variables,
// falling back to defaults for any unset variable.
//
// Environment variables:
//   - MENUFORGE_PREVIEW_DEBOUNCE_MS: debounce in milliseconds (default: 500)
//   - MENUFORGE_PREVIEW_SESSION_TTL: idle session lifetime in seconds (default: 600)
//   - MENUFORGE_PREVIEW_TIMEOUT: derivation timeout in seconds (default: 5)
func ConfigFromEnv() *Config {
	cfg := DefaultConfig()

	if v := os.Getenv("MENUFORGE_PREVIEW_DEBOUNCE_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms >= 0 {
			cfg.Debounce = time.Duration(ms) * time.Millisecond
		}
	}
	if v := os.Getenv("MENUFORGE_PREVIEW_SESSION_TTL"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			cfg.SessionTTL = time.Duration(secs) * time.Second
		}
	}
	if v := os.Getenv("MENUFORGE_PREVIEW_TIMEOUT"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			cfg.Timeout = time.Duration(secs) * time.Second
		}
	}

	return cfg
}
