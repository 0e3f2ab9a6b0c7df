package authz

import (
	"context"
	"net/http"
	"strings"
)

// Anonymous is the user assigned to requests without an identity.
const Anonymous = "anonymous"

type identityCtxKey struct{}

// Identity represents the caller of a request.
type Identity struct {
	User   string
	Groups []string
}

// WithIdentity returns a new context with the given Identity attached.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityCtxKey{}, id)
}

// IdentityFromContext retrieves the Identity from the context.
// Returns the zero value and false if no identity is set.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityCtxKey{}).(Identity)
	return id, ok
}

// Actor returns the user in ctx, or Anonymous.
func Actor(ctx context.Context) string {
	if id, ok := IdentityFromContext(ctx); ok && id.User != "" {
		return id.User
	}
	return Anonymous
}

// IdentityMiddleware returns HTTP middleware that reads the caller from the
// X-Remote-User and comma-separated X-Remote-Group headers.
func IdentityMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := strings.TrimSpace(r.Header.Get("X-Remote-User"))
			if user == "" {
				user = Anonymous
			}
			id := Identity{User: user, Groups: splitGroups(r.Header.Get("X-Remote-Group"))}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

func splitGroups(header string) []string {
	var groups []string
	for _, g := range strings.Split(header, ",") {
		if g = strings.TrimSpace(g); g != "" {
			groups = append(groups, g)
		}
	}
	return groups
}
