// Package authz decides who may read and change the settings document,
// its backups and the audit log. It supports an admin-group policy,
// Kubernetes SubjectAccessReview and a no-op mode for development.
package authz

import "context"

// APIGroup is the API group used in Kubernetes RBAC rules.
const APIGroup = "menuforge.io"

// Resource names for RBAC mapping.
const (
	ResourceSettings = "settings"
	ResourceBackups  = "backups"
	ResourcePreview  = "preview"
	ResourceTransfer = "transfer"
	ResourceAudit    = "audit"
)

// Verb names for RBAC mapping.
const (
	VerbGet     = "get"
	VerbList    = "list"
	VerbCreate  = "create"
	VerbUpdate  = "update"
	VerbDelete  = "delete"
	VerbRestore = "restore"
	VerbExport  = "export"
	VerbImport  = "import"
)

// AuthzRequest represents an authorization check.
type AuthzRequest struct {
	User     string
	Groups   []string
	Resource string
	Verb     string
}

// Authorizer checks whether a user is authorized to perform an action.
type Authorizer interface {
	Authorize(ctx context.Context, req AuthzRequest) (bool, error)
}
