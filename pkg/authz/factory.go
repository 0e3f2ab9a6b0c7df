package authz

import (
	"fmt"
	"log/slog"
	"net/http"

	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
)

// NewAuthorizer builds the Authorizer selected by cfg. The SAR backend
// uses the in-cluster Kubernetes configuration unless client is given.
func NewAuthorizer(cfg *AuthzConfig, client kubernetes.Interface) (Authorizer, error) {
	var a Authorizer
	switch cfg.Mode {
	case AuthzModeNone:
		return &NoopAuthorizer{}, nil
	case AuthzModeGroup, "":
		a = NewGroupAuthorizer(cfg.AdminGroup)
	case AuthzModeSAR:
		if client == nil {
			restCfg, err := rest.InClusterConfig()
			if err != nil {
				return nil, fmt.Errorf("load in-cluster config for SAR authorization: %w", err)
			}
			client, err = kubernetes.NewForConfig(restCfg)
			if err != nil {
				return nil, fmt.Errorf("create kubernetes client: %w", err)
			}
		}
		a = NewSARAuthorizer(client, cfg.Namespace)
	default:
		return nil, fmt.Errorf("unknown authorization mode %q", cfg.Mode)
	}
	if cfg.CacheTTL > 0 {
		a = NewCachedAuthorizer(a, cfg.CacheTTL)
	}
	return a, nil
}

// NewIdentityMiddleware builds the identity middleware selected by cfg.
func NewIdentityMiddleware(cfg *AuthzConfig, logger *slog.Logger) (func(http.Handler) http.Handler, error) {
	switch cfg.IdentityMode {
	case IdentityModeHeader, "":
		return IdentityMiddleware(), nil
	case IdentityModeJWT:
		return JWTIdentityMiddleware(cfg.JWT, logger)
	default:
		return nil, fmt.Errorf("unknown identity mode %q", cfg.IdentityMode)
	}
}
