package authz

import (
	"os"
	"strconv"
	"time"
)

// AuthzMode selects the authorization backend.
type AuthzMode string

const (
	// AuthzModeNone disables authorization checks (development only).
	AuthzModeNone AuthzMode = "none"
	// AuthzModeGroup grants everything to one admin group and reads to
	// everyone else.
	AuthzModeGroup AuthzMode = "group"
	// AuthzModeSAR uses Kubernetes SubjectAccessReview for authorization.
	AuthzModeSAR AuthzMode = "sar"
)

// IdentityMode selects where the caller identity is read from.
type IdentityMode string

const (
	// IdentityModeHeader trusts X-Remote-User and X-Remote-Group set by an
	// authenticating proxy.
	IdentityModeHeader IdentityMode = "header"
	// IdentityModeJWT reads sub and groups claims from a bearer token.
	IdentityModeJWT IdentityMode = "jwt"
)

// AuthzConfig configures identity extraction and authorization.
type AuthzConfig struct {
	Mode         AuthzMode
	IdentityMode IdentityMode
	AdminGroup   string
	CacheTTL     time.Duration
	Namespace    string // SAR namespace; empty for cluster-scoped checks
	JWT          JWTConfig
}

// DefaultAuthzConfig returns the default configuration.
func DefaultAuthzConfig() *AuthzConfig {
	return &AuthzConfig{
		Mode:         AuthzModeGroup,
		IdentityMode: IdentityModeHeader,
		AdminGroup:   "menuforge-admins",
		CacheTTL:     DefaultCacheTTL,
		JWT:          JWTConfig{GroupsClaim: "groups"},
	}
}

// AuthzConfigFromEnv loads config from environment variables.
// MENUFORGE_AUTHZ_MODE, MENUFORGE_AUTH_MODE, MENUFORGE_AUTHZ_ADMIN_GROUP,
// MENUFORGE_AUTHZ_CACHE_TTL (seconds, 0 disables), MENUFORGE_AUTHZ_NAMESPACE,
// MENUFORGE_JWT_PUBLIC_KEY, MENUFORGE_JWT_ISSUER, MENUFORGE_JWT_AUDIENCE,
// MENUFORGE_JWT_GROUPS_CLAIM
func AuthzConfigFromEnv() *AuthzConfig {
	cfg := DefaultAuthzConfig()

	if v := os.Getenv("MENUFORGE_AUTHZ_MODE"); v != "" {
		cfg.Mode = AuthzMode(v)
	}
	if v := os.Getenv("MENUFORGE_AUTH_MODE"); v != "" {
		cfg.IdentityMode = IdentityMode(v)
	}
	if v := os.Getenv("MENUFORGE_AUTHZ_ADMIN_GROUP"); v != "" {
		cfg.AdminGroup = v
	}
	if v := os.Getenv("MENUFORGE_AUTHZ_CACHE_TTL"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
			cfg.CacheTTL = time.Duration(secs) * time.Second
		}
	}
	cfg.Namespace = os.Getenv("MENUFORGE_AUTHZ_NAMESPACE")
	cfg.JWT.PublicKeyPath = os.Getenv("MENUFORGE_JWT_PUBLIC_KEY")
	cfg.JWT.Issuer = os.Getenv("MENUFORGE_JWT_ISSUER")
	cfg.JWT.Audience = os.Getenv("MENUFORGE_JWT_AUDIENCE")
	if v := os.Getenv("MENUFORGE_JWT_GROUPS_CLAIM"); v != "" {
		cfg.JWT.GroupsClaim = v
	}

	return cfg
}
