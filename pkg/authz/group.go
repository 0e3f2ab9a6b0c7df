package authz

import (
	"context"
	"slices"
)

// GroupAuthorizer grants every action to members of AdminGroup. Other
// callers may read settings and backups and request previews. The audit
// log and every mutation stay with the admins.
type GroupAuthorizer struct {
	AdminGroup string
}

// NewGroupAuthorizer creates a GroupAuthorizer.
func NewGroupAuthorizer(adminGroup string) *GroupAuthorizer {
	return &GroupAuthorizer{AdminGroup: adminGroup}
}

// Authorize implements Authorizer.
func (g *GroupAuthorizer) Authorize(_ context.Context, req AuthzRequest) (bool, error) {
	if g.AdminGroup != "" && slices.Contains(req.Groups, g.AdminGroup) {
		return true, nil
	}
	switch req.Resource {
	case ResourceSettings, ResourceBackups:
		return req.Verb == VerbGet || req.Verb == VerbList, nil
	case ResourcePreview:
		return req.Verb == VerbCreate, nil
	}
	return false, nil
}
