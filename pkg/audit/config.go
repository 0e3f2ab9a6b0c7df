package audit

import (
	"os"
	"strconv"
	"time"
)

// AuditConfig controls the security audit log.
type AuditConfig struct {
	Enabled bool
	// LogValidation mirrors 400/409/422 responses into the log. Rejected
	// authorization and rate limits are always recorded.
	LogValidation bool
	// RetentionDays of zero keeps events forever.
	RetentionDays     int
	RetentionInterval time.Duration
}

// DefaultAuditConfig keeps 90 days of events and prunes daily.
func DefaultAuditConfig() *AuditConfig {
	return &AuditConfig{
		Enabled:           true,
		LogValidation:     true,
		RetentionDays:     90,
		RetentionInterval: 24 * time.Hour,
	}
}

// Retention is RetentionDays as a duration.
func (c *AuditConfig) Retention() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

// AuditConfigFromEnv reads MENUFORGE_AUDIT_ENABLED, MENUFORGE_AUDIT_LOG_VALIDATION,
// MENUFORGE_AUDIT_RETENTION_DAYS and MENUFORGE_AUDIT_RETENTION_INTERVAL_HOURS.
func AuditConfigFromEnv() *AuditConfig {
	cfg := DefaultAuditConfig()

	if v := os.Getenv("MENUFORGE_AUDIT_ENABLED"); v != "" {
		cfg.Enabled, _ = strconv.ParseBool(v)
	}
	if v := os.Getenv("MENUFORGE_AUDIT_LOG_VALIDATION"); v != "" {
		cfg.LogValidation, _ = strconv.ParseBool(v)
	}
	if v := os.Getenv("MENUFORGE_AUDIT_RETENTION_DAYS"); v != "" {
		if days, err := strconv.Atoi(v); err == nil && days >= 0 {
			cfg.RetentionDays = days
		}
	}
	if v := os.Getenv("MENUFORGE_AUDIT_RETENTION_INTERVAL_HOURS"); v != "" {
		if h, err := strconv.Atoi(v); err == nil && h > 0 {
			cfg.RetentionInterval = time.Duration(h) * time.Hour
		}
	}
	return cfg
}
