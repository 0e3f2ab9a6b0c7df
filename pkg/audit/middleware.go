package audit

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/menuforge/menuforge/pkg/authz"
)

// responseCapture wraps http.ResponseWriter to capture the status code.
type responseCapture struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (rc *responseCapture) WriteHeader(code int) {
	if !rc.written {
		rc.statusCode = code
		rc.written = true
	}
	rc.ResponseWriter.WriteHeader(code)
}

func (rc *responseCapture) Write(b []byte) (int, error) {
	if !rc.written {
		rc.statusCode = http.StatusOK
		rc.written = true
	}
	return rc.ResponseWriter.Write(b)
}

// AuditMiddleware records rejected requests as security events: 401/403 as
// authorization failures, 429 as rate limit hits and 400/409/422 as
// validation failures. It must run outside the authorization and rate
// limit middleware so their rejections are seen.
func AuditMiddleware(rec *Recorder, cfg *AuditConfig, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg == nil || !cfg.Enabled || rec == nil || isHealthEndpoint(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			capture := &responseCapture{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(capture, r)

			eventType, severity, ok := classify(capture.statusCode)
			if !ok || (eventType == EventValidationFailure && !cfg.LogValidation) {
				return
			}

			ctx := r.Context()
			route := r.URL.Path
			if rctx := chi.RouteContext(ctx); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			ev := &SecurityEvent{
				EventType:  eventType,
				Severity:   severity,
				Actor:      "anonymous",
				RemoteAddr: r.RemoteAddr,
				Method:     r.Method,
				Route:      route,
				RequestID:  middleware.GetReqID(ctx),
				StatusCode: capture.statusCode,
			}
			if id, ok := authz.IdentityFromContext(ctx); ok {
				ev.Actor = id.User
				if len(id.Groups) > 0 {
					ev.Details = map[string]any{"groups": id.Groups}
				}
			}
			logger.Debug("recording security event", "event_type", eventType, "route", route, "status", capture.statusCode)
			rec.append(ctx, ev)
		})
	}
}
