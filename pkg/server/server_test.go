package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/menuforge/menuforge/pkg/audit"
	"github.com/menuforge/menuforge/pkg/authz"
	"github.com/menuforge/menuforge/pkg/backup"
	"github.com/menuforge/menuforge/pkg/cache"
	"github.com/menuforge/menuforge/pkg/css"
	"github.com/menuforge/menuforge/pkg/kv"
	"github.com/menuforge/menuforge/pkg/preview"
	"github.com/menuforge/menuforge/pkg/ratelimit"
	"github.com/menuforge/menuforge/pkg/settings"
)

const adminGroup = "menuforge-admins"

type fixture struct {
	db       *gorm.DB
	kv       kv.Store
	settings *settings.Store
	backups  *backup.Manager
	audit    *audit.Store
	handler  http.Handler
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&kv.Entry{}, &backup.Backup{}, &audit.SecurityEvent{}))
	return db
}

func setupServer(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	db := setupTestDB(t)
	backing := kv.NewGormStore(db)
	store := settings.NewStore(backing, nil)
	backups := backup.NewManager(db, store, nil)
	store.SetSnapshotter(backups)

	styles := css.NewCachedGenerator(cache.NewStore(16, time.Hour), time.Hour, nil)
	store.Bus().Subscribe(styles)
	auditStore := audit.NewStore(db)

	previewCfg := &preview.Config{Debounce: time.Millisecond, SessionTTL: time.Minute, Timeout: time.Second}
	base := []Option{
		WithStyles(styles),
		WithPreview(preview.NewCoordinator(store, store.Schema(), previewCfg, nil)),
		WithAuthorizer(authz.NewGroupAuthorizer(adminGroup)),
		WithAudit(auditStore, audit.DefaultAuditConfig()),
		WithDB(db),
	}
	srv, err := New(store, backups, nil, append(base, opts...)...)
	require.NoError(t, err)
	return &fixture{db: db, kv: backing, settings: store, backups: backups, audit: auditStore, handler: srv.MountRoutes()}
}

type call struct {
	method  string
	path    string
	body    any
	user    string
	admin   bool
	headers map[string]string
}

func (f *fixture) do(t *testing.T, c call) *httptest.ResponseRecorder {
	t.Helper()
	var body *bytes.Reader
	switch b := c.body.(type) {
	case nil:
		body = bytes.NewReader(nil)
	case []byte:
		body = bytes.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(c.method, c.path, body)
	req.Header.Set("Content-Type", "application/json")
	user := c.user
	if user == "" {
		user = "alice"
	}
	req.Header.Set("X-Remote-User", user)
	if c.admin {
		req.Header.Set("X-Remote-Group", adminGroup)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

func (f *fixture) events(t *testing.T, eventType string) []audit.SecurityEvent {
	t.Helper()
	events, err := f.audit.Query(context.Background(), audit.QueryFilter{EventType: eventType}, 50)
	require.NoError(t, err)
	return events
}

func TestGetSettingsDefaultsAndConditional(t *testing.T) {
	f := setupServer(t)

	rr := f.do(t, call{method: http.MethodGet, path: "/api/v1/settings"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	v := decode[documentView](t, rr)
	assert.Equal(t, int64(0), v.Version)
	assert.Equal(t, "#23282d", v.Values["menu_background"])
	assert.Empty(t, v.Overrides)
	etag := rr.Header().Get("ETag")
	assert.Equal(t, cache.QuoteETag(v.Checksum), etag)

	rr = f.do(t, call{method: http.MethodGet, path: "/api/v1/settings", headers: map[string]string{"If-None-Match": etag}})
	assert.Equal(t, http.StatusNotModified, rr.Code)
}

func TestPutSettings(t *testing.T) {
	f := setupServer(t)

	rr := f.do(t, call{method: http.MethodPut, path: "/api/v1/settings", admin: true, body: map[string]any{
		"values": map[string]any{"menu_width": 220, "menu_background": "#112233"},
	}})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	v := decode[documentView](t, rr)
	assert.Equal(t, int64(1), v.Version)
	assert.EqualValues(t, 220, v.Overrides["menu_width"])

	rr = f.do(t, call{method: http.MethodPut, path: "/api/v1/settings", admin: true, body: map[string]any{
		"values": map[string]any{"menu_text_color": "#ffffff"},
	}})
	require.Equal(t, http.StatusOK, rr.Code)
	v = decode[documentView](t, rr)
	assert.Equal(t, int64(2), v.Version)
	assert.Equal(t, "#112233", v.Overrides["menu_background"], "writes merge by default")
}

func TestPutSettingsRejectsInvalidValues(t *testing.T) {
	f := setupServer(t)

	rr := f.do(t, call{method: http.MethodPut, path: "/api/v1/settings", admin: true, body: map[string]any{
		"values": map[string]any{"menu_background": "not-a-color"},
	}})
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	body := decode[errorBody](t, rr)
	assert.Equal(t, "validation_failed", body.Error)
	assert.False(t, body.Changed)
	assert.NotNil(t, body.Details)

	doc, err := f.settings.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), doc.Version)
}

func TestPutSettingsBadBody(t *testing.T) {
	f := setupServer(t)

	rr := f.do(t, call{method: http.MethodPut, path: "/api/v1/settings", admin: true, body: []byte("{")})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = f.do(t, call{method: http.MethodPut, path: "/api/v1/settings", admin: true, body: map[string]any{}})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	body := decode[errorBody](t, rr)
	assert.Equal(t, "invalid_request", body.Error)
}

func TestPutSettingsAuditsUnsafeContent(t *testing.T) {
	f := setupServer(t)

	rr := f.do(t, call{method: http.MethodPut, path: "/api/v1/settings", admin: true, body: map[string]any{
		"values": map[string]any{"custom_css": "a { background: url(javascript:alert(1)); }"},
	}})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	v := decode[documentView](t, rr)
	assert.NotContains(t, v.Overrides["custom_css"], "javascript:")

	events := f.events(t, audit.EventUnsafeContent)
	require.Len(t, events, 1)
	assert.Equal(t, "alice", events[0].Actor)
}

func TestWriteRequiresPermission(t *testing.T) {
	f := setupServer(t)

	rr := f.do(t, call{method: http.MethodPut, path: "/api/v1/settings", body: map[string]any{
		"values": map[string]any{"menu_width": 200},
	}})
	require.Equal(t, http.StatusForbidden, rr.Code)
	body := decode[errorBody](t, rr)
	assert.False(t, body.Changed)

	events := f.events(t, audit.EventAuthorizationFailure)
	require.Len(t, events, 1)
	assert.Equal(t, "/api/v1/settings", events[0].Route)
}

func TestResetSettings(t *testing.T) {
	f := setupServer(t)
	_, _, err := f.settings.Write(context.Background(), map[string]any{"menu_width": 300})
	require.NoError(t, err)

	rr := f.do(t, call{method: http.MethodPost, path: "/api/v1/settings/reset", admin: true})
	require.Equal(t, http.StatusOK, rr.Code)
	v := decode[documentView](t, rr)
	assert.Empty(t, v.Overrides)
	assert.EqualValues(t, 160, v.Values["menu_width"])
}

func TestStylesheetCachingAndInvalidation(t *testing.T) {
	f := setupServer(t)

	rr := f.do(t, call{method: http.MethodGet, path: "/api/v1/styles.css"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "MISS", rr.Header().Get("X-Cache"))
	assert.Equal(t, "text/css; charset=utf-8", rr.Header().Get("Content-Type"))
	etag := rr.Header().Get("ETag")

	rr = f.do(t, call{method: http.MethodGet, path: "/api/v1/styles.css"})
	assert.Equal(t, "HIT", rr.Header().Get("X-Cache"))

	rr = f.do(t, call{method: http.MethodGet, path: "/api/v1/styles.css", headers: map[string]string{"If-None-Match": etag}})
	assert.Equal(t, http.StatusNotModified, rr.Code)

	_, _, err := f.settings.Write(context.Background(), map[string]any{"menu_background": "#abcdef"})
	require.NoError(t, err)

	rr = f.do(t, call{method: http.MethodGet, path: "/api/v1/styles.css", headers: map[string]string{"If-None-Match": etag}})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "MISS", rr.Header().Get("X-Cache"))
	assert.Contains(t, rr.Body.String(), "#abcdef")
	assert.NotEqual(t, etag, rr.Header().Get("ETag"))

	rr = f.do(t, call{method: http.MethodGet, path: "/api/v1/styles.min.css"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Less(t, rr.Body.Len(), len(f.do(t, call{method: http.MethodGet, path: "/api/v1/styles.css"}).Body.String()))
}

func TestBackupLifecycle(t *testing.T) {
	f := setupServer(t)
	ctx := context.Background()
	_, _, err := f.settings.Write(ctx, map[string]any{"menu_width": 250})
	require.NoError(t, err)

	rr := f.do(t, call{method: http.MethodPost, path: "/api/v1/backups", admin: true, body: map[string]any{"note": "before redesign"}})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	created := decode[backup.Backup](t, rr)
	assert.Equal(t, backup.TypeManual, created.Type)
	assert.Equal(t, "before redesign", created.Note)
	assert.NotContains(t, rr.Body.String(), "snapshot_values")

	_, _, err = f.settings.Write(ctx, map[string]any{"menu_width": 120})
	require.NoError(t, err)

	rr = f.do(t, call{method: http.MethodGet, path: "/api/v1/backups?type=manual"})
	require.Equal(t, http.StatusOK, rr.Code)
	list := decode[struct {
		Items []backup.Backup `json:"items"`
		Total int64           `json:"total"`
	}](t, rr)
	require.Len(t, list.Items, 1)
	assert.Equal(t, int64(1), list.Total)

	rr = f.do(t, call{method: http.MethodGet, path: "/api/v1/backups/" + created.ID})
	require.Equal(t, http.StatusOK, rr.Code)

	rr = f.do(t, call{method: http.MethodPost, path: "/api/v1/backups/" + created.ID + "/restore", admin: true})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	v := decode[documentView](t, rr)
	assert.EqualValues(t, 250, v.Values["menu_width"])

	rr = f.do(t, call{method: http.MethodDelete, path: "/api/v1/backups/" + created.ID, admin: true})
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = f.do(t, call{method: http.MethodGet, path: "/api/v1/backups/" + created.ID})
	assert.Equal(t, http.StatusNotFound, rr.Code)
	rr = f.do(t, call{method: http.MethodPost, path: "/api/v1/backups/" + created.ID + "/restore", admin: true})
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestListBackupsBadParams(t *testing.T) {
	f := setupServer(t)
	for _, q := range []string{"type=weekly", "offset=-1", "limit=0", "limit=x"} {
		rr := f.do(t, call{method: http.MethodGet, path: "/api/v1/backups?" + q})
		assert.Equal(t, http.StatusBadRequest, rr.Code, q)
	}
}

func TestRestoreTamperedBackupIsRejected(t *testing.T) {
	f := setupServer(t)
	ctx := context.Background()
	_, _, err := f.settings.Write(ctx, map[string]any{"menu_width": 250})
	require.NoError(t, err)
	doc, err := f.settings.Read(ctx)
	require.NoError(t, err)
	b, err := f.backups.Create(ctx, doc, backup.TypeManual, "", "alice")
	require.NoError(t, err)
	require.NoError(t, f.db.Model(&backup.Backup{}).Where("id = ?", b.ID).
		Update("checksum", strings.Repeat("0", 64)).Error)

	rr := f.do(t, call{method: http.MethodPost, path: "/api/v1/backups/" + b.ID + "/restore", admin: true})
	require.Equal(t, http.StatusConflict, rr.Code)
	body := decode[errorBody](t, rr)
	assert.Equal(t, "restore_rejected", body.Error)
	assert.False(t, body.Changed)

	events := f.events(t, audit.EventRestoreRejected)
	require.Len(t, events, 1)
	assert.Equal(t, audit.SeverityCritical, events[0].Severity)
}

func TestPreview(t *testing.T) {
	f := setupServer(t)

	rr := f.do(t, call{method: http.MethodPost, path: "/api/v1/preview", body: map[string]any{
		"session": "tab-1", "sequence": 1, "values": map[string]any{"menu_background": "#010203"},
	}})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	res := decode[preview.Result](t, rr)
	assert.Equal(t, "tab-1", res.Session)
	assert.Contains(t, res.CSS, "#010203")

	doc, err := f.settings.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), doc.Version, "preview must not persist")

	rr = f.do(t, call{method: http.MethodPost, path: "/api/v1/preview", body: map[string]any{
		"session": "tab-1", "sequence": 1, "values": map[string]any{},
	}})
	require.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "superseded", decode[errorBody](t, rr).Error)

	rr = f.do(t, call{method: http.MethodPost, path: "/api/v1/preview", body: map[string]any{"session": "tab-1"}})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestExportImportRoundTrip(t *testing.T) {
	f := setupServer(t)
	ctx := context.Background()
	_, _, err := f.settings.Write(ctx, map[string]any{"menu_width": 240, "layout_mode": "compact"})
	require.NoError(t, err)

	rr := f.do(t, call{method: http.MethodGet, path: "/api/v1/export", admin: true})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "attachment")
	exported := rr.Body.Bytes()

	_, err = f.settings.Reset(ctx)
	require.NoError(t, err)

	rr = f.do(t, call{method: http.MethodPost, path: "/api/v1/import", admin: true, body: exported})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	v := decode[documentView](t, rr)
	assert.EqualValues(t, 240, v.Values["menu_width"])
	assert.Equal(t, "compact", v.Values["layout_mode"])
}

func TestImportRejectsTamperedEnvelope(t *testing.T) {
	f := setupServer(t)
	env, err := f.settings.Export(context.Background())
	require.NoError(t, err)
	env.Document.Values = map[string]any{"menu_width": 399}

	rr := f.do(t, call{method: http.MethodPost, path: "/api/v1/import", admin: true, body: env})
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Equal(t, "import_rejected", decode[errorBody](t, rr).Error)
	assert.Len(t, f.events(t, audit.EventImportRejected), 1)

	rr = f.do(t, call{method: http.MethodPost, path: "/api/v1/import", admin: true, body: []byte("not json")})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestTransferRequiresAdmin(t *testing.T) {
	f := setupServer(t)
	rr := f.do(t, call{method: http.MethodGet, path: "/api/v1/export"})
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestThemes(t *testing.T) {
	f := setupServer(t)

	rr := f.do(t, call{method: http.MethodGet, path: "/api/v1/themes"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"midnight"`)

	rr = f.do(t, call{method: http.MethodPost, path: "/api/v1/themes/midnight/apply", admin: true})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	v := decode[documentView](t, rr)
	assert.Equal(t, "#0f1115", v.Values["menu_background"])

	rr = f.do(t, call{method: http.MethodPost, path: "/api/v1/themes/neon/apply", admin: true})
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRateLimitedWrites(t *testing.T) {
	cfg := ratelimit.DefaultConfig()
	cfg.Limits[ratelimit.ClassWrite] = 1
	f := setupServer(t, WithRateLimiter(ratelimit.NewLimiter(cfg)))

	put := call{method: http.MethodPut, path: "/api/v1/settings", admin: true, body: map[string]any{
		"values": map[string]any{"menu_width": 200},
	}}
	require.Equal(t, http.StatusOK, f.do(t, put).Code)
	rr := f.do(t, put)
	require.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))
	assert.Len(t, f.events(t, audit.EventRateLimitExceeded), 1)

	// Another user has an independent budget.
	put.user = "bob"
	assert.Equal(t, http.StatusOK, f.do(t, put).Code)
}

func TestCorruptDocumentServedDegraded(t *testing.T) {
	f := setupServer(t)
	ctx := context.Background()
	_, _, err := f.settings.Write(ctx, map[string]any{"menu_width": 180})
	require.NoError(t, err)
	_, _, err = f.settings.Write(ctx, map[string]any{"menu_width": 190})
	require.NoError(t, err)

	raw, err := f.kv.Get(ctx, settings.DocumentKey)
	require.NoError(t, err)
	var rec map[string]any
	require.NoError(t, json.Unmarshal(raw, &rec))
	rec["values"].(map[string]any)["menu_width"] = 191
	tampered, err := json.Marshal(rec)
	require.NoError(t, err)
	require.NoError(t, f.kv.Put(ctx, settings.DocumentKey, tampered))

	for range 2 {
		rr := f.do(t, call{method: http.MethodGet, path: "/api/v1/settings"})
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "degraded", rr.Header().Get(IntegrityHeader))
		v := decode[documentView](t, rr)
		assert.NotEmpty(t, v.Warning)
		assert.EqualValues(t, 180, v.Values["menu_width"], "served from the last verified backup")
	}
	assert.Len(t, f.events(t, audit.EventIntegrityFailure), 1)

	rr := f.do(t, call{method: http.MethodGet, path: "/api/v1/styles.css"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "degraded", rr.Header().Get(IntegrityHeader))

	rr = f.do(t, call{method: http.MethodGet, path: "/api/v1/export", admin: true})
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestAuditEndpoint(t *testing.T) {
	f := setupServer(t)
	f.do(t, call{method: http.MethodPut, path: "/api/v1/settings", body: map[string]any{"values": map[string]any{}}})

	rr := f.do(t, call{method: http.MethodGet, path: "/api/v1/audit/events"})
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = f.do(t, call{method: http.MethodGet, path: "/api/v1/audit/events?event_type=authorization_failure", admin: true})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "authorization_failure")
}

func TestHealthEndpoints(t *testing.T) {
	f := setupServer(t)

	rr := f.do(t, call{method: http.MethodGet, path: "/healthz"})
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "alive")

	rr = f.do(t, call{method: http.MethodGet, path: "/readyz"})
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"ready"`)

	rr = f.do(t, call{method: http.MethodGet, path: "/metrics"})
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestReadyzReportsDatabaseDown(t *testing.T) {
	f := setupServer(t)
	sqlDB, err := f.db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	rr := f.do(t, call{method: http.MethodGet, path: "/readyz"})
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func legacyPost(t *testing.T, f *fixture, admin bool, form url.Values) (*httptest.ResponseRecorder, legacyResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/legacy/ajax", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Remote-User", "alice")
	if admin {
		req.Header.Set("X-Remote-Group", adminGroup)
	}
	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, req)
	var resp legacyResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp), rr.Body.String())
	return rr, resp
}

func TestLegacySaveAndBackup(t *testing.T) {
	f := setupServer(t)

	rr, resp := legacyPost(t, f, true, url.Values{
		"action":   {"menuforge_save_settings"},
		"settings": {`{"menu_width": 210}`},
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.True(t, resp.Success)

	doc, err := f.settings.Read(context.Background())
	require.NoError(t, err)
	width, _ := doc.Values.Int("menu_width")
	assert.Equal(t, int64(210), width)

	rr, resp = legacyPost(t, f, true, url.Values{"action": {"menuforge_create_backup"}, "note": {"legacy"}})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.True(t, resp.Success)
	data := resp.Data.(map[string]any)
	id := data["id"].(string)

	rr, resp = legacyPost(t, f, true, url.Values{"action": {"menuforge_delete_backup"}, "backup_id": {id}})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, resp.Success)
}

func TestLegacyFailures(t *testing.T) {
	f := setupServer(t)

	rr, resp := legacyPost(t, f, true, url.Values{"action": {"menuforge_do_magic"}})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.False(t, resp.Success)

	rr, resp = legacyPost(t, f, false, url.Values{"action": {"menuforge_reset_settings"}})
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.False(t, resp.Success)

	rr, resp = legacyPost(t, f, true, url.Values{
		"action":   {"menuforge_save_settings"},
		"settings": {`{"menu_width": "wide"}`},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.False(t, resp.Success)
	data := resp.Data.(map[string]any)
	assert.Equal(t, "validation_failed", data["error"])
	assert.Equal(t, false, data["changed"])

	rr, _ = legacyPost(t, f, true, url.Values{"action": {"menuforge_restore_backup"}})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestLegacyPreviewAndExport(t *testing.T) {
	f := setupServer(t)

	rr, resp := legacyPost(t, f, false, url.Values{
		"action":   {"menuforge_preview"},
		"session":  {"s"},
		"sequence": {"1"},
		"settings": {`{"menu_background": "#445566"}`},
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Contains(t, resp.Data.(map[string]any)["css"], "#445566")

	rr, resp = legacyPost(t, f, true, url.Values{"action": {"menuforge_export"}})
	require.Equal(t, http.StatusOK, rr.Code)
	raw, err := json.Marshal(resp.Data)
	require.NoError(t, err)

	rr, resp = legacyPost(t, f, true, url.Values{"action": {"menuforge_import"}, "data": {string(raw)}})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.True(t, resp.Success)
}
