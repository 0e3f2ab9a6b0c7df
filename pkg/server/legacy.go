package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/menuforge/menuforge/pkg/authz"
	"github.com/menuforge/menuforge/pkg/ratelimit"
)

// legacyClasses assigns each legacy form action the rate class of its REST
// counterpart.
var legacyClasses = map[string]ratelimit.Class{
	"menuforge_save_settings":  ratelimit.ClassWrite,
	"menuforge_reset_settings": ratelimit.ClassWrite,
	"menuforge_create_backup":  ratelimit.ClassBackup,
	"menuforge_restore_backup": ratelimit.ClassBackup,
	"menuforge_delete_backup":  ratelimit.ClassBackup,
	"menuforge_preview":        ratelimit.ClassPreview,
	"menuforge_export":         ratelimit.ClassTransfer,
	"menuforge_import":         ratelimit.ClassTransfer,
}

type legacyResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data,omitempty"`
}

// legacyHandler handles POST /legacy/ajax, the form-post protocol of older
// admin screens. It translates each action into the same operation the
// REST API runs and answers {"success": bool, "data": ...}.
func (s *Server) legacyHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		s.legacyFail(w, r, badRequest("malformed form body"))
		return
	}
	action := r.PostForm.Get("action")
	mapping := authz.MapLegacyAction(action)
	if mapping == authz.UnknownMapping {
		s.legacyFail(w, r, badRequest("unknown action %q", action))
		return
	}

	if s.limiter != nil {
		d := s.limiter.Check(legacyClasses[action], rateIdentity(r))
		if !d.Allowed {
			w.Header().Set("Retry-After", strconv.Itoa(d.RetryAfterSeconds()))
			s.legacyReply(w, newAPIError(http.StatusTooManyRequests, "rate_limited", "too many requests", nil))
			return
		}
	}

	allowed, err := authz.Check(r.Context(), s.authorizer, mapping.Resource, mapping.Verb)
	if err != nil {
		s.legacyReply(w, newAPIError(http.StatusServiceUnavailable, "authorization_unavailable", "authorization check failed", nil))
		return
	}
	if !allowed {
		s.legacyReply(w, newAPIError(http.StatusForbidden, "forbidden", "insufficient permissions for "+mapping.Resource+"/"+mapping.Verb, nil))
		return
	}

	data, err := s.dispatchLegacy(r.Context(), action, r)
	if err != nil {
		s.legacyFail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, legacyResponse{Success: true, Data: data})
}

func (s *Server) dispatchLegacy(ctx context.Context, action string, r *http.Request) (any, error) {
	form := r.PostForm
	switch action {
	case "menuforge_save_settings":
		values, err := formJSONObject(form.Get("settings"))
		if err != nil {
			return nil, err
		}
		return s.opWrite(ctx, writeRequest{Values: values, Replace: formBool(form.Get("replace"))})
	case "menuforge_reset_settings":
		return s.opReset(ctx)
	case "menuforge_create_backup":
		note := form.Get("note")
		if err := validate.Struct(backupRequest{Note: note}); err != nil {
			return nil, err
		}
		return s.opCreateBackup(ctx, note)
	case "menuforge_restore_backup":
		id := form.Get("backup_id")
		if id == "" {
			return nil, badRequest("backup_id is required")
		}
		return s.opRestore(ctx, id)
	case "menuforge_delete_backup":
		id := form.Get("backup_id")
		if id == "" {
			return nil, badRequest("backup_id is required")
		}
		if err := s.backups.Delete(ctx, id); err != nil {
			return nil, err
		}
		return map[string]string{"deleted": id}, nil
	case "menuforge_preview":
		values, err := formJSONObject(form.Get("settings"))
		if err != nil {
			return nil, err
		}
		seq, err := strconv.ParseInt(form.Get("sequence"), 10, 64)
		if err != nil {
			return nil, badRequest("sequence must be an integer")
		}
		req := previewRequest{Session: form.Get("session"), Sequence: seq, Values: values}
		if err := validate.Struct(req); err != nil {
			return nil, err
		}
		return s.opPreview(ctx, req)
	case "menuforge_export":
		return s.opExport(ctx)
	case "menuforge_import":
		raw := form.Get("data")
		if raw == "" {
			return nil, badRequest("data is required")
		}
		return s.opImport(ctx, []byte(raw))
	}
	return nil, badRequest("unknown action %q", action)
}

func (s *Server) legacyFail(w http.ResponseWriter, r *http.Request, err error) {
	ae := classifyError(err)
	if ae.status >= 500 {
		s.logger.Error("legacy request failed", "action", r.PostForm.Get("action"), "status", ae.status, "error", err)
	}
	s.legacyReply(w, ae)
}

// legacyReply keeps the HTTP status of the REST mapping so the audit
// middleware classifies legacy rejections like any other.
func (s *Server) legacyReply(w http.ResponseWriter, ae apiError) {
	writeJSON(w, ae.status, legacyResponse{Success: false, Data: ae.body})
}

func formJSONObject(v string) (map[string]any, error) {
	if strings.TrimSpace(v) == "" {
		return nil, badRequest("settings is required")
	}
	dec := json.NewDecoder(strings.NewReader(v))
	dec.UseNumber()
	var out map[string]any
	if err := dec.Decode(&out); err != nil || out == nil {
		return nil, badRequest("settings must be a JSON object")
	}
	return out, nil
}

func formBool(v string) bool {
	b, _ := strconv.ParseBool(v)
	return b
}
