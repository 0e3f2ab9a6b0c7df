package audit

import (
	"github.com/go-chi/chi/v5"

	"github.com/menuforge/menuforge/pkg/authz"
)

// Router creates a chi.Router for the audit API.
// When authorizer is non-nil, listing requires the audit/list permission.
func Router(store *Store, authorizer authz.Authorizer) chi.Router {
	r := chi.NewRouter()

	listHandler := ListEventsHandler(store)
	if authorizer != nil {
		r.With(authz.RequirePermission(authorizer, authz.ResourceAudit, authz.VerbList)).Get("/events", listHandler)
	} else {
		r.Get("/events", listHandler)
	}

	return r
}
