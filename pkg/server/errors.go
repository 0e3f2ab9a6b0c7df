package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/menuforge/menuforge/pkg/backup"
	"github.com/menuforge/menuforge/pkg/preview"
	"github.com/menuforge/menuforge/pkg/schema"
	"github.com/menuforge/menuforge/pkg/settings"
	"github.com/menuforge/menuforge/pkg/themes"
)

// errIntegrityDegraded rejects operations that must not run on a fallback
// document, such as exporting or backing it up.
var errIntegrityDegraded = errors.New("stored settings failed verification; serving fallback")

// errorBody is the error response shape. Every error means nothing changed.
type errorBody struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Changed   bool   `json:"changed"`
	Retryable bool   `json:"retryable"`
	Details   any    `json:"details,omitempty"`
}

type apiError struct {
	status int
	body   errorBody
}

func newAPIError(status int, code, message string, details any) apiError {
	return apiError{status: status, body: errorBody{
		Error:     code,
		Message:   message,
		Retryable: status == http.StatusTooManyRequests || status >= 500,
		Details:   details,
	}}
}

// classifyError maps a core error onto a status and error body.
func classifyError(err error) apiError {
	var (
		verr  *schema.ValidationError
		rerr  *backup.RestoreError
		serr  *settings.StorageError
		vserr *settings.VersionError
		ierr  *settings.IntegrityError
		fverr validator.ValidationErrors
		berr  *badRequestError
	)
	switch {
	case errors.As(err, &berr):
		return newAPIError(http.StatusBadRequest, "invalid_request", berr.Error(), nil)
	case errors.As(err, &fverr):
		return newAPIError(http.StatusBadRequest, "invalid_request", "request failed validation", fieldErrors(fverr))
	case errors.As(err, &verr):
		return newAPIError(http.StatusUnprocessableEntity, "validation_failed", verr.Error(), verr.Issues)
	case errors.As(err, &rerr):
		if rerr.Reason == backup.ReasonNotFound {
			return newAPIError(http.StatusNotFound, "not_found", rerr.Error(), nil)
		}
		ae := newAPIError(http.StatusConflict, "restore_rejected", rerr.Error(), map[string]string{"reason": rerr.Reason})
		if rerr.Reason == backup.ReasonInvalidValues {
			var inner *schema.ValidationError
			if errors.As(rerr.Err, &inner) {
				ae.body.Details = map[string]any{"reason": rerr.Reason, "issues": inner.Issues}
			}
		}
		return ae
	case errors.Is(err, backup.ErrNotFound), errors.Is(err, themes.ErrNotFound):
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	case errors.Is(err, settings.ErrChecksumMismatch),
		errors.Is(err, settings.ErrUnsupportedFormat),
		errors.Is(err, settings.ErrInvalidEnvelope),
		errors.As(err, &vserr):
		return newAPIError(http.StatusUnprocessableEntity, "import_rejected", err.Error(), nil)
	case errors.Is(err, preview.ErrSuperseded):
		return newAPIError(http.StatusConflict, "superseded", err.Error(), nil)
	case errors.Is(err, errIntegrityDegraded), errors.As(err, &ierr):
		return newAPIError(http.StatusConflict, "integrity_degraded", errIntegrityDegraded.Error(), nil)
	case errors.As(err, &serr):
		return newAPIError(http.StatusServiceUnavailable, "storage_failure", serr.Error(), nil)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return newAPIError(http.StatusServiceUnavailable, "cancelled", "request cancelled before completion", nil)
	}
	return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", nil)
}

// fail writes err as an error response.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	ae := classifyError(err)
	if ae.status >= 500 {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "status", ae.status, "error", err)
	}
	writeJSON(w, ae.status, ae.body)
}

// badRequestError reports a malformed request body or parameter.
type badRequestError struct {
	msg string
}

func (e *badRequestError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &badRequestError{msg: fmt.Sprintf(format, args...)}
}

func fieldErrors(errs validator.ValidationErrors) []map[string]string {
	out := make([]map[string]string, 0, len(errs))
	for _, fe := range errs {
		out = append(out, map[string]string{
			"field": fe.Field(),
			"rule":  fe.Tag(),
		})
	}
	return out
}
