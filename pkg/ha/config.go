// Package ha lets several menuforge-server replicas share one database:
// schema migrations are serialized by a lock and singleton background
// tasks run on the replica holding a Kubernetes Lease.
package ha

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// HAConfig holds the replica coordination settings.
type HAConfig struct {
	// LeaderElectionEnabled turns on Lease-based election. When false the
	// replica runs every leader task itself.
	LeaderElectionEnabled bool
	LeaseName             string
	LeaseNamespace        string
	LeaseDuration         time.Duration
	RenewDeadline         time.Duration
	RetryPeriod           time.Duration

	MigrationLockEnabled bool
	// MigrationLockWait bounds how long startup waits for another replica's
	// migration.
	MigrationLockWait time.Duration

	// Identity names this replica. Defaults to POD_NAME, then the hostname.
	Identity string
}

// DefaultHAConfig returns the single-replica defaults.
func DefaultHAConfig() *HAConfig {
	ns := os.Getenv("POD_NAMESPACE")
	if ns == "" {
		ns = "menuforge-system"
	}
	return &HAConfig{
		LeaseName:            "menuforge-server-leader",
		LeaseNamespace:       ns,
		LeaseDuration:        15 * time.Second,
		RenewDeadline:        10 * time.Second,
		RetryPeriod:          2 * time.Second,
		MigrationLockEnabled: true,
		MigrationLockWait:    30 * time.Second,
		Identity:             defaultIdentity(),
	}
}

// HAConfigFromEnv reads HA configuration from environment variables,
// falling back to defaults for any unset variable.
//
// Environment variables:
//   - MENUFORGE_LEADER_ELECTION_ENABLED: "true" or "false" (default: "false")
//   - MENUFORGE_LEADER_LEASE_NAME: Lease name (default: "menuforge-server-leader")
//   - MENUFORGE_LEADER_LEASE_NAMESPACE: Lease namespace (default: POD_NAMESPACE or "menuforge-system")
//   - MENUFORGE_LEADER_LEASE_DURATION, MENUFORGE_LEADER_RENEW_DEADLINE,
//     MENUFORGE_LEADER_RETRY_PERIOD: seconds (defaults: 15, 10, 2)
//   - MENUFORGE_MIGRATION_LOCK_ENABLED: "true" or "false" (default: "true")
//   - MENUFORGE_MIGRATION_LOCK_WAIT: seconds (default: 30)
func HAConfigFromEnv() *HAConfig {
	cfg := DefaultHAConfig()

	if v := os.Getenv("MENUFORGE_LEADER_ELECTION_ENABLED"); v != "" {
		cfg.LeaderElectionEnabled = parseBool(v)
	}
	if v := os.Getenv("MENUFORGE_LEADER_LEASE_NAME"); v != "" {
		cfg.LeaseName = v
	}
	if v := os.Getenv("MENUFORGE_LEADER_LEASE_NAMESPACE"); v != "" {
		cfg.LeaseNamespace = v
	}
	envSeconds("MENUFORGE_LEADER_LEASE_DURATION", &cfg.LeaseDuration)
	envSeconds("MENUFORGE_LEADER_RENEW_DEADLINE", &cfg.RenewDeadline)
	envSeconds("MENUFORGE_LEADER_RETRY_PERIOD", &cfg.RetryPeriod)
	if v := os.Getenv("MENUFORGE_MIGRATION_LOCK_ENABLED"); v != "" {
		cfg.MigrationLockEnabled = parseBool(v)
	}
	envSeconds("MENUFORGE_MIGRATION_LOCK_WAIT", &cfg.MigrationLockWait)

	return cfg
}

// Validate checks the lease timings the election client requires:
// LeaseDuration > RenewDeadline > RetryPeriod.
func (c *HAConfig) Validate() error {
	if !c.LeaderElectionEnabled {
		return nil
	}
	if c.LeaseName == "" || c.LeaseNamespace == "" {
		return errors.New("leader election needs a lease name and namespace")
	}
	if c.LeaseDuration <= c.RenewDeadline {
		return fmt.Errorf("lease duration %s must exceed renew deadline %s", c.LeaseDuration, c.RenewDeadline)
	}
	if c.RenewDeadline <= c.RetryPeriod {
		return fmt.Errorf("renew deadline %s must exceed retry period %s", c.RenewDeadline, c.RetryPeriod)
	}
	return nil
}

func parseBool(v string) bool {
	return strings.EqualFold(v, "true") || v == "1"
}

func envSeconds(key string, dst *time.Duration) {
	if v := os.Getenv(key); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			*dst = time.Duration(secs) * time.Second
		}
	}
}

func defaultIdentity() string {
	if v := os.Getenv("POD_NAME"); v != "" {
		return v
	}
	hostname, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return hostname
}
