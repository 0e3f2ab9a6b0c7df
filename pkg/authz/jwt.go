package authz

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// JWTConfig configures bearer token identity extraction.
type JWTConfig struct {
	// PublicKeyPath is a PEM-encoded RSA public key for RS256 verification.
	// If empty, tokens are parsed but NOT verified (trusted proxy mode).
	PublicKeyPath string
	Issuer        string
	Audience      string
	// GroupsClaim names the claim holding the group list. Default: "groups".
	GroupsClaim string
}

// JWTIdentityMiddleware returns middleware that reads the caller from the
// sub and groups claims of an "Authorization: Bearer" token. Missing or
// invalid tokens leave the request anonymous.
func JWTIdentityMiddleware(cfg JWTConfig, logger *slog.Logger) (func(http.Handler) http.Handler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.GroupsClaim == "" {
		cfg.GroupsClaim = "groups"
	}

	var publicKey *rsa.PublicKey
	if cfg.PublicKeyPath != "" {
		key, err := loadRSAPublicKey(cfg.PublicKeyPath)
		if err != nil {
			return nil, err
		}
		publicKey = key
		logger.Info("JWT identity: using RS256 verification", "keyPath", cfg.PublicKeyPath)
	} else {
		logger.Warn("JWT identity: no public key configured, tokens parsed without verification (trusted proxy mode)")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := Identity{User: Anonymous}
			if token := bearerToken(r); token != "" {
				claims, err := parseClaims(token, publicKey, cfg)
				if err != nil {
					logger.Debug("JWT parse failed, treating caller as anonymous", "error", err)
				} else {
					id = identityFromClaims(claims, cfg.GroupsClaim)
				}
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}, nil
}

func loadRSAPublicKey(path string) (*rsa.PublicKey, error) {
	keyData, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read JWT public key from %s: %w", path, err)
	}
	block, _ := pem.Decode(keyData)
	if block == nil {
		return nil, fmt.Errorf("failed to decode PEM block from %s", path)
	}
	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}
	rsaKey, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("public key is not RSA (got %T)", parsed)
	}
	return rsaKey, nil
}

// bearerToken extracts the token from "Authorization: Bearer <token>".
func bearerToken(r *http.Request) string {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func parseClaims(tokenString string, publicKey *rsa.PublicKey, cfg JWTConfig) (jwt.MapClaims, error) {
	var opts []jwt.ParserOption
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}

	claims := jwt.MapClaims{}
	var err error
	if publicKey != nil {
		_, err = jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return publicKey, nil
		}, opts...)
	} else {
		_, _, err = jwt.NewParser(opts...).ParseUnverified(tokenString, claims)
		if err == nil {
			// ParseUnverified skips claim checks; apply issuer, audience
			// and expiry anyway.
			err = jwt.NewValidator(opts...).Validate(claims)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("JWT parse error: %w", err)
	}
	return claims, nil
}

func identityFromClaims(claims jwt.MapClaims, groupsClaim string) Identity {
	id := Identity{User: Anonymous}
	if sub, err := claims.GetSubject(); err == nil && sub != "" {
		id.User = sub
	}
	switch g := claims[groupsClaim].(type) {
	case []any:
		for _, v := range g {
			if s, ok := v.(string); ok && s != "" {
				id.Groups = append(id.Groups, s)
			}
		}
	case string:
		id.Groups = splitGroups(g)
	}
	return id
}
