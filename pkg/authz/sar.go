package authz

import (
	"context"
	"fmt"
	"log/slog"

	authorizationv1 "k8s.io/api/authorization/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
)

// SettingsObjectName is the object name sent for checks on the settings
// document, so RBAC rules may pin resourceNames to it.
const SettingsObjectName = "menu"

// SARAuthorizer delegates decisions to the Kubernetes API server through
// SubjectAccessReview. RBAC rules are written against APIGroup.
type SARAuthorizer struct {
	client    kubernetes.Interface
	namespace string
	logger    *slog.Logger
}

// NewSARAuthorizer creates a SARAuthorizer. An empty namespace makes every
// check cluster scoped.
func NewSARAuthorizer(client kubernetes.Interface, namespace string) *SARAuthorizer {
	return &SARAuthorizer{client: client, namespace: namespace, logger: slog.Default()}
}

func (s *SARAuthorizer) attributes(req AuthzRequest) *authorizationv1.ResourceAttributes {
	attrs := &authorizationv1.ResourceAttributes{
		Group:     APIGroup,
		Resource:  req.Resource,
		Verb:      req.Verb,
		Namespace: s.namespace,
	}
	switch req.Resource {
	case ResourceSettings, ResourceTransfer:
		attrs.Name = SettingsObjectName
	}
	return attrs
}

// Authorize asks the API server whether req is allowed. A review that
// could not be evaluated and did not allow is an error, not a denial.
func (s *SARAuthorizer) Authorize(ctx context.Context, req AuthzRequest) (bool, error) {
	review := &authorizationv1.SubjectAccessReview{
		Spec: authorizationv1.SubjectAccessReviewSpec{
			User:               req.User,
			Groups:             req.Groups,
			ResourceAttributes: s.attributes(req),
		},
	}

	res, err := s.client.AuthorizationV1().SubjectAccessReviews().Create(ctx, review, metav1.CreateOptions{})
	if err != nil {
		return false, fmt.Errorf("subject access review for %s %s: %w", req.Verb, req.Resource, err)
	}
	st := res.Status
	if !st.Allowed && st.EvaluationError != "" {
		return false, fmt.Errorf("subject access review for %s %s: %s", req.Verb, req.Resource, st.EvaluationError)
	}
	if !st.Allowed {
		s.logger.Debug("subject access review denied",
			"user", req.User, "verb", req.Verb, "resource", req.Resource, "reason", st.Reason)
	}
	return st.Allowed, nil
}
