package ratelimit

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the window and the per-class budgets.
type Config struct {
	Enabled bool
	Window  time.Duration
	Limits  map[Class]int
}

// DefaultConfig returns the default budgets per minute.
func DefaultConfig() *Config {
	return &Config{
		Enabled: true,
		Window:  time.Minute,
		Limits: map[Class]int{
			ClassRead:     300,
			ClassWrite:    30,
			ClassPreview:  120,
			ClassBackup:   10,
			ClassTransfer: 10,
		},
	}
}

// ConfigFromEnv loads rate limits from environment variables, falling back
// to defaults for any unset variable.
//
// Environment variables:
//   - MENUFORGE_RATELIMIT_ENABLED: "true" or "false" (default: "true")
//   - MENUFORGE_RATELIMIT_WINDOW: window in seconds (default: 60)
//   - MENUFORGE_RATELIMIT_<CLASS>: requests per window, e.g. MENUFORGE_RATELIMIT_WRITE
func ConfigFromEnv() *Config {
	cfg := DefaultConfig()

	if v := os.Getenv("MENUFORGE_RATELIMIT_ENABLED"); v != "" {
		cfg.Enabled = strings.EqualFold(v, "true") || v == "1"
	}
	if v := os.Getenv("MENUFORGE_RATELIMIT_WINDOW"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			cfg.Window = time.Duration(secs) * time.Second
		}
	}
	for _, c := range Classes {
		v := os.Getenv("MENUFORGE_RATELIMIT_" + strings.ToUpper(string(c)))
		if v == "" {
			continue
		}
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.Limits[c] = n
		}
	}

	return cfg
}
