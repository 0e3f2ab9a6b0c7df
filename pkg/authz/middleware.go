package authz

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Check authorizes the caller in ctx for resource/verb.
func Check(ctx context.Context, authorizer Authorizer, resource, verb string) (bool, error) {
	id, _ := IdentityFromContext(ctx)
	return authorizer.Authorize(ctx, AuthzRequest{
		User:     id.User,
		Groups:   id.Groups,
		Resource: resource,
		Verb:     verb,
	})
}

// RequirePermission returns middleware that enforces a resource/verb
// permission for the identity placed in the context by the identity
// middleware.
func RequirePermission(authorizer Authorizer, resource, verb string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, err := Check(r.Context(), authorizer, resource, verb)
			if err != nil {
				writeDenied(w, http.StatusServiceUnavailable, "authorization_unavailable", "authorization check failed", true)
				return
			}
			if !allowed {
				writeDenied(w, http.StatusForbidden, "forbidden",
					fmt.Sprintf("insufficient permissions for %s/%s", resource, verb), false)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeDenied(w http.ResponseWriter, status int, code, message string, retryable bool) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error":     code,
		"message":   message,
		"changed":   false,
		"retryable": retryable,
	})
}
