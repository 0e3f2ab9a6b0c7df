package audit

import "net/http"

// classify maps a response status to the security event it represents.
// ok is false for statuses that are not security relevant.
func classify(status int) (eventType, severity string, ok bool) {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return EventAuthorizationFailure, SeverityWarning, true
	case http.StatusTooManyRequests:
		return EventRateLimitExceeded, SeverityWarning, true
	case http.StatusBadRequest, http.StatusConflict, http.StatusUnprocessableEntity:
		return EventValidationFailure, SeverityInfo, true
	}
	return "", "", false
}

// isHealthEndpoint returns true for health-check and scrape paths.
func isHealthEndpoint(path string) bool {
	switch path {
	case "/livez", "/readyz", "/healthz", "/metrics":
		return true
	}
	return false
}
