package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/menuforge/menuforge/pkg/backup"
	"github.com/menuforge/menuforge/pkg/cache"
	"github.com/menuforge/menuforge/pkg/css"
)

// IntegrityHeader is set to "degraded" when a fallback document is served.
const IntegrityHeader = "X-Settings-Integrity"

// getSettings handles GET /settings. The ETag is the document checksum.
func (s *Server) getSettings(w http.ResponseWriter, r *http.Request) {
	v, degraded, err := s.opRead(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if degraded {
		w.Header().Set(IntegrityHeader, "degraded")
	}
	cache.SetValidators(w, v.Checksum, v.UpdatedAt, 0)
	if cache.NotModified(r, v.Checksum, v.UpdatedAt) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// putSettings handles PUT /settings.
func (s *Server) putSettings(w http.ResponseWriter, r *http.Request) {
	var req writeRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	v, err := s.opWrite(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// resetSettings handles POST /settings/reset.
func (s *Server) resetSettings(w http.ResponseWriter, r *http.Request) {
	v, err := s.opReset(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// stylesheet serves a derived artifact with conditional GET support. When
// generation fails the fallback stylesheet is served uncached.
func (s *Server) stylesheet(artifact css.Artifact) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, degraded, err := s.read(r.Context())
		if err != nil {
			s.fail(w, r, err)
			return
		}
		if degraded {
			w.Header().Set(IntegrityHeader, "degraded")
		}
		e, hit, err := s.styles.GenerateCached(r.Context(), doc, artifact)
		if err != nil {
			s.logger.Error("stylesheet generation failed, serving fallback", "artifact", artifact, "checksum", doc.Checksum, "error", err)
			w.Header().Set("Content-Type", "text/css; charset=utf-8")
			w.Header().Set("Cache-Control", "no-store")
			w.WriteHeader(http.StatusOK)
			_, _ = io.WriteString(w, css.Fallback(doc.Values))
			return
		}
		cache.ServeEntry(w, r, e, "text/css; charset=utf-8", hit, s.cacheMaxAge)
	}
}

// listBackups handles GET /backups?type=&offset=&limit=
func (s *Server) listBackups(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := backup.ListFilter{Type: backup.Type(q.Get("type"))}
	if filter.Type != "" && !filter.Type.Valid() {
		s.fail(w, r, badRequest("type must be %q or %q", backup.TypeAutomatic, backup.TypeManual))
		return
	}
	offset, err := intParam(q.Get("offset"), 0)
	if err != nil {
		s.fail(w, r, badRequest("offset must be a non-negative integer"))
		return
	}
	limit, err := intParam(q.Get("limit"), 50)
	if err != nil || limit == 0 {
		s.fail(w, r, badRequest("limit must be a positive integer"))
		return
	}

	items, total, err := s.backups.List(r.Context(), filter, offset, limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if items == nil {
		items = []backup.Backup{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items":  items,
		"size":   len(items),
		"total":  total,
		"offset": offset,
	})
}

func intParam(v string, def int) (int, error) {
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid integer %q", v)
	}
	return n, nil
}

// createBackup handles POST /backups.
func (s *Server) createBackup(w http.ResponseWriter, r *http.Request) {
	var req backupRequest
	if r.ContentLength != 0 {
		if err := decodeBody(w, r, &req); err != nil {
			s.fail(w, r, err)
			return
		}
	}
	b, err := s.opCreateBackup(r.Context(), req.Note)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

// getBackup handles GET /backups/{id}.
func (s *Server) getBackup(w http.ResponseWriter, r *http.Request) {
	b, err := s.backups.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// restoreBackup handles POST /backups/{id}/restore.
func (s *Server) restoreBackup(w http.ResponseWriter, r *http.Request) {
	v, err := s.opRestore(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// deleteBackup handles DELETE /backups/{id}.
func (s *Server) deleteBackup(w http.ResponseWriter, r *http.Request) {
	if err := s.backups.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// previewHandler handles POST /preview.
func (s *Server) previewHandler(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.opPreview(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// exportHandler handles GET /export.
func (s *Server) exportHandler(w http.ResponseWriter, r *http.Request) {
	env, err := s.opExport(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="menuforge-settings.json"`)
	writeJSON(w, http.StatusOK, env)
}

// importHandler handles POST /import. The envelope itself is validated by
// the store so that every rejection is reported the same way.
func (s *Server) importHandler(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			s.fail(w, r, badRequest("envelope larger than %d bytes", maxBodyBytes))
			return
		}
		s.fail(w, r, badRequest("read body: %v", err))
		return
	}
	v, err := s.opImport(r.Context(), raw)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// listThemes handles GET /themes.
func (s *Server) listThemes(w http.ResponseWriter, _ *http.Request) {
	list := s.themes.List()
	writeJSON(w, http.StatusOK, map[string]any{"themes": list, "size": len(list)})
}

// applyTheme handles POST /themes/{name}/apply.
func (s *Server) applyTheme(w http.ResponseWriter, r *http.Request) {
	v, err := s.opApplyTheme(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}
