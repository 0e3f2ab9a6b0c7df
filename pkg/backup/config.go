package backup

import (
	"os"
	"strconv"
	"time"
)

// RetentionPolicy bounds the two backup pools. Zero disables a limit.
type RetentionPolicy struct {
	AutomaticMaxCount int
	AutomaticMaxAge   time.Duration
	ManualMaxCount    int
}

// DefaultRetentionPolicy returns the default policy.
func DefaultRetentionPolicy() *RetentionPolicy {
	return &RetentionPolicy{
		AutomaticMaxCount: 30,
		AutomaticMaxAge:   30 * 24 * time.Hour,
		ManualMaxCount:    50,
	}
}

// RetentionPolicyFromEnv loads the policy from environment variables.
// MENUFORGE_BACKUP_AUTOMATIC_MAX_COUNT, MENUFORGE_BACKUP_AUTOMATIC_MAX_AGE_DAYS,
// MENUFORGE_BACKUP_MANUAL_MAX_COUNT
func RetentionPolicyFromEnv() *RetentionPolicy {
	p := DefaultRetentionPolicy()

	if v := os.Getenv("MENUFORGE_BACKUP_AUTOMATIC_MAX_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			p.AutomaticMaxCount = n
		}
	}
	if v := os.Getenv("MENUFORGE_BACKUP_AUTOMATIC_MAX_AGE_DAYS"); v != "" {
		if days, err := strconv.Atoi(v); err == nil && days >= 0 {
			p.AutomaticMaxAge = time.Duration(days) * 24 * time.Hour
		}
	}
	if v := os.Getenv("MENUFORGE_BACKUP_MANUAL_MAX_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			p.ManualMaxCount = n
		}
	}

	return p
}

func (p *RetentionPolicy) maxCount(t Type) int {
	if t == TypeManual {
		return p.ManualMaxCount
	}
	return p.AutomaticMaxCount
}

func (p *RetentionPolicy) maxAge(t Type) time.Duration {
	if t == TypeManual {
		return 0
	}
	return p.AutomaticMaxAge
}
