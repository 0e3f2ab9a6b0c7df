package authz

import (
	"context"
	"log/slog"
	"sync"
)

// NoopAuthorizer grants every permission on settings, backups, previews,
// transfers and the audit log. It backs MENUFORGE_AUTHZ_MODE=none and the
// server's zero configuration, and warns once on its first decision.
type NoopAuthorizer struct {
	warned sync.Once
}

func (n *NoopAuthorizer) Authorize(_ context.Context, req AuthzRequest) (bool, error) {
	n.warned.Do(func() {
		slog.Warn("authorization disabled, allowing every request",
			"user", req.User, "verb", req.Verb, "resource", req.Resource)
	})
	return true, nil
}
