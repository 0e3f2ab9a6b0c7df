package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/menuforge/menuforge/pkg/audit"
	"github.com/menuforge/menuforge/pkg/authz"
	"github.com/menuforge/menuforge/pkg/backup"
	"github.com/menuforge/menuforge/pkg/preview"
	"github.com/menuforge/menuforge/pkg/schema"
	"github.com/menuforge/menuforge/pkg/settings"
)

const maxBodyBytes = 1 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type writeRequest struct {
	Values  map[string]any `json:"values" validate:"required"`
	Replace bool           `json:"replace"`
}

type backupRequest struct {
	Note string `json:"note" validate:"max=500"`
}

type previewRequest struct {
	Session  string         `json:"session" validate:"required,max=128"`
	Sequence int64          `json:"sequence" validate:"required,gte=1"`
	Values   map[string]any `json:"values"`
}

// documentView is the JSON form of a settings document.
type documentView struct {
	Version   int64          `json:"version"`
	Checksum  string         `json:"checksum"`
	UpdatedAt time.Time      `json:"updated_at"`
	Values    map[string]any `json:"values"`
	Overrides map[string]any `json:"overrides"`
	Issues    schema.Issues  `json:"issues,omitempty"`
	Warning   string         `json:"warning,omitempty"`
}

func viewOf(doc settings.Document, issues schema.Issues) documentView {
	return documentView{
		Version:   doc.Version,
		Checksum:  doc.Checksum,
		UpdatedAt: doc.UpdatedAt,
		Values:    doc.Values.Raw(),
		Overrides: doc.Overrides.Raw(),
		Issues:    issues,
	}
}

// decodeBody reads a JSON body into dst and validates it.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return badRequest("request body is empty")
		}
		return badRequest("malformed JSON body: %v", err)
	}
	return validate.Struct(dst)
}

// read returns the live document. A document that failed verification is
// returned as degraded with its fallback; the failure is audited once per
// corrupt checksum.
func (s *Server) read(ctx context.Context) (settings.Document, bool, error) {
	doc, err := s.settings.Read(ctx)
	var ierr *settings.IntegrityError
	if !errors.As(err, &ierr) {
		return doc, false, err
	}

	s.integrityMu.Lock()
	fresh := s.lastIntegrity != ierr.Expected+"|"+ierr.Actual
	s.lastIntegrity = ierr.Expected + "|" + ierr.Actual
	s.integrityMu.Unlock()
	if fresh {
		s.recorder.Record(ctx, audit.EventIntegrityFailure, audit.SeverityCritical, map[string]any{
			"expected": ierr.Expected,
			"actual":   ierr.Actual,
			"fallback": ierr.Fallback,
		})
	}
	return doc, true, nil
}

// recordUnsafe audits values from which unsafe content was stripped.
func (s *Server) recordUnsafe(ctx context.Context, source string, issues schema.Issues) {
	unsafe := issues.Only(schema.SeveritySecurity)
	if len(unsafe) == 0 {
		return
	}
	fields := make([]string, 0, len(unsafe))
	for _, i := range unsafe {
		fields = append(fields, i.Field)
	}
	s.recorder.Record(ctx, audit.EventUnsafeContent, audit.SeverityWarning, map[string]any{
		"source": source,
		"fields": fields,
	})
}

func (s *Server) opRead(ctx context.Context) (documentView, bool, error) {
	doc, degraded, err := s.read(ctx)
	if err != nil {
		return documentView{}, false, err
	}
	v := viewOf(doc, nil)
	if degraded {
		v.Warning = "stored settings failed verification; serving the last verified copy"
	}
	return v, degraded, nil
}

func (s *Server) opWrite(ctx context.Context, req writeRequest) (documentView, error) {
	opts := []settings.WriteOption{settings.Actor(authz.Actor(ctx))}
	if req.Replace {
		opts = append(opts, settings.Replace())
	}
	doc, issues, err := s.settings.Write(ctx, req.Values, opts...)
	s.recordUnsafe(ctx, "settings", issues)
	if err != nil {
		return documentView{}, err
	}
	return viewOf(doc, issues), nil
}

func (s *Server) opReset(ctx context.Context) (documentView, error) {
	doc, err := s.settings.Reset(ctx, settings.Actor(authz.Actor(ctx)))
	if err != nil {
		return documentView{}, err
	}
	return viewOf(doc, nil), nil
}

func (s *Server) opCreateBackup(ctx context.Context, note string) (*backup.Backup, error) {
	doc, degraded, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	if degraded {
		return nil, errIntegrityDegraded
	}
	return s.backups.Create(ctx, doc, backup.TypeManual, note, authz.Actor(ctx))
}

func (s *Server) opRestore(ctx context.Context, id string) (documentView, error) {
	doc, err := s.backups.Restore(ctx, id, authz.Actor(ctx))
	var rerr *backup.RestoreError
	if errors.As(err, &rerr) && rerr.Reason != backup.ReasonNotFound {
		severity := audit.SeverityWarning
		if rerr.Reason == backup.ReasonChecksumMismatch {
			severity = audit.SeverityCritical
		}
		s.recorder.Record(ctx, audit.EventRestoreRejected, severity, map[string]any{
			"backup_id": id,
			"reason":    rerr.Reason,
		})
	}
	if err != nil {
		return documentView{}, err
	}
	return viewOf(doc, nil), nil
}

func (s *Server) opPreview(ctx context.Context, req previewRequest) (preview.Result, error) {
	res, err := s.previews.Submit(ctx, preview.Request{
		Session:    authz.Actor(ctx) + "/" + req.Session,
		Sequence:   req.Sequence,
		Candidate:  req.Values,
		ReceivedAt: time.Now(),
	})
	if err != nil {
		return preview.Result{}, err
	}
	res.Session = req.Session
	s.recordUnsafe(ctx, "preview", res.Issues)
	return res, nil
}

func (s *Server) opExport(ctx context.Context) (*settings.Envelope, error) {
	if _, degraded, err := s.read(ctx); err != nil {
		return nil, err
	} else if degraded {
		return nil, errIntegrityDegraded
	}
	return s.settings.Export(ctx)
}

// opImport parses and imports a raw export envelope.
func (s *Server) opImport(ctx context.Context, raw []byte) (documentView, error) {
	var (
		doc    settings.Document
		issues schema.Issues
	)
	env, err := parseEnvelope(raw)
	if err == nil {
		doc, issues, err = s.settings.Import(ctx, env, settings.Actor(authz.Actor(ctx)))
		s.recordUnsafe(ctx, "import", issues)
	}
	if err != nil {
		var (
			verr  *schema.ValidationError
			vserr *settings.VersionError
		)
		if errors.Is(err, settings.ErrChecksumMismatch) || errors.Is(err, settings.ErrUnsupportedFormat) ||
			errors.Is(err, settings.ErrInvalidEnvelope) || errors.As(err, &vserr) || errors.As(err, &verr) {
			s.recorder.Record(ctx, audit.EventImportRejected, audit.SeverityWarning, map[string]any{
				"error": err.Error(),
			})
		}
		return documentView{}, err
	}
	return viewOf(doc, issues), nil
}

func (s *Server) opApplyTheme(ctx context.Context, name string) (documentView, error) {
	doc, err := s.themes.Apply(ctx, s.settings, name, authz.Actor(ctx))
	if err != nil {
		return documentView{}, err
	}
	return viewOf(doc, nil), nil
}

// parseEnvelope decodes an export envelope from raw JSON.
func parseEnvelope(raw []byte) (*settings.Envelope, error) {
	var env settings.Envelope
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&env); err != nil {
		return nil, fmt.Errorf("%w: %v", settings.ErrInvalidEnvelope, err)
	}
	return &env, nil
}
