package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
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
	"github.com/menuforge/menuforge/pkg/server"
	"github.com/menuforge/menuforge/pkg/settings"
)

const adminGroup = "menuforge-admins"

// startServer runs the real HTTP API over an in-memory database.
func startServer(t *testing.T) *httptest.Server {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&kv.Entry{}, &backup.Backup{}, &audit.SecurityEvent{}))

	store := settings.NewStore(kv.NewGormStore(db), nil)
	backups := backup.NewManager(db, store, nil)
	store.SetSnapshotter(backups)
	styles := css.NewCachedGenerator(cache.NewStore(16, time.Hour), time.Hour, nil)
	store.Bus().Subscribe(styles)
	previewCfg := &preview.Config{Debounce: time.Millisecond, SessionTTL: time.Minute, Timeout: time.Second}

	srv, err := server.New(store, backups, nil,
		server.WithStyles(styles),
		server.WithPreview(preview.NewCoordinator(store, store.Schema(), previewCfg, nil)),
		server.WithAuthorizer(authz.NewGroupAuthorizer(adminGroup)),
		server.WithDB(db),
	)
	require.NoError(t, err)
	ts := httptest.NewServer(srv.MountRoutes())
	t.Cleanup(func() {
		ts.Close()
		_ = sqlDB.Close()
	})
	return ts
}

// runCLI executes menuforgectl as an admin unless args set --user/--group.
func runCLI(t *testing.T, url string, args ...string) (string, error) {
	t.Helper()
	root := newRootCommand()
	full := append([]string{"--server", url}, args...)
	if !containsFlag(args, "--group") {
		full = append(full, "--user", "alice", "--group", adminGroup)
	}
	root.SetArgs(full)
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	err := root.Execute()
	return out.String(), err
}

func containsFlag(args []string, flag string) bool {
	for _, a := range args {
		if a == flag {
			return true
		}
	}
	return false
}

func TestSettingsGetSetReset(t *testing.T) {
	ts := startServer(t)

	out, err := runCLI(t, ts.URL, "settings", "get")
	require.NoError(t, err)
	assert.Contains(t, out, "Version 0")
	assert.Contains(t, out, "MENU_BACKGROUND")
	assert.Contains(t, out, "#23282d")

	out, err = runCLI(t, ts.URL, "settings", "set", "menu_width=200", "menu_title_text=Main")
	require.NoError(t, err)
	assert.Contains(t, out, "Settings saved: version 1")

	out, err = runCLI(t, ts.URL, "settings", "get", "--key", "menu_width")
	require.NoError(t, err)
	assert.Equal(t, "200\n", out)

	out, err = runCLI(t, ts.URL, "-o", "json", "settings", "get")
	require.NoError(t, err)
	var doc document
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, int64(1), doc.Version)
	assert.Equal(t, "Main", doc.Overrides["menu_title_text"])

	out, err = runCLI(t, ts.URL, "settings", "reset")
	require.NoError(t, err)
	assert.Contains(t, out, "Settings reset: version 2")
}

func TestSettingsSetFromFile(t *testing.T) {
	ts := startServer(t)
	path := filepath.Join(t.TempDir(), "values.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"menu_width": 180, "enable_shadow": true}`), 0o600))

	_, err := runCLI(t, ts.URL, "settings", "set", "-f", path, "menu_width=190")
	require.NoError(t, err)

	out, err := runCLI(t, ts.URL, "-o", "yaml", "settings", "get", "--key", "menu_width")
	require.NoError(t, err)
	assert.Equal(t, "menu_width: 190\n", out)
}

func TestSettingsSetErrors(t *testing.T) {
	ts := startServer(t)

	_, err := runCLI(t, ts.URL, "settings", "set", "menu_width=wide")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "422 validation_failed")

	out, err := runCLI(t, ts.URL, "settings", "set", "menu_width=9999")
	require.NoError(t, err)
	assert.Contains(t, out, "clamped")

	_, err = runCLI(t, ts.URL, "settings", "set", "--user", "bob", "--group", "staff", "menu_width=200")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403 forbidden")

	_, err = runCLI(t, ts.URL, "settings", "set", "novalue")
	assert.ErrorContains(t, err, "expected key=value")

	_, err = runCLI(t, ts.URL, "settings", "set")
	assert.ErrorContains(t, err, "nothing to set")
}

func TestBackupsLifecycle(t *testing.T) {
	ts := startServer(t)

	_, err := runCLI(t, ts.URL, "settings", "set", "menu_width=220")
	require.NoError(t, err)

	out, err := runCLI(t, ts.URL, "-o", "json", "backups", "create", "--note", "before launch")
	require.NoError(t, err)
	var created backupInfo
	require.NoError(t, json.Unmarshal([]byte(out), &created))
	assert.Equal(t, "manual", created.Type)
	assert.Equal(t, int64(1), created.Version)

	_, err = runCLI(t, ts.URL, "settings", "set", "menu_width=300")
	require.NoError(t, err)

	out, err = runCLI(t, ts.URL, "backups", "list", "--type", "manual")
	require.NoError(t, err)
	assert.Contains(t, out, created.ID)
	assert.Contains(t, out, "before launch")
	assert.Contains(t, out, "1 of 1 backups")

	out, err = runCLI(t, ts.URL, "backups", "restore", created.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "Restored "+created.ID)

	out, err = runCLI(t, ts.URL, "settings", "get", "--key", "menu_width")
	require.NoError(t, err)
	assert.Equal(t, "220\n", out)

	out, err = runCLI(t, ts.URL, "backups", "delete", created.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "deleted")

	_, err = runCLI(t, ts.URL, "backups", "restore", created.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestExportImport(t *testing.T) {
	ts := startServer(t)
	_, err := runCLI(t, ts.URL, "settings", "set", "menu_background=#101010")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "export.json")
	_, err = runCLI(t, ts.URL, "export", "-f", path)
	require.NoError(t, err)

	_, err = runCLI(t, ts.URL, "settings", "reset")
	require.NoError(t, err)

	out, err := runCLI(t, ts.URL, "import", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported")

	out, err = runCLI(t, ts.URL, "settings", "get", "--key", "menu_background")
	require.NoError(t, err)
	assert.Equal(t, "#101010\n", out)

	// Flip a value without fixing the checksum.
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	tampered := filepath.Join(t.TempDir(), "tampered.json")
	require.NoError(t, os.WriteFile(tampered, []byte(strings.Replace(string(raw), "#101010", "#202020", 1)), 0o600))
	_, err = runCLI(t, ts.URL, "import", tampered)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "422 import_rejected")
}

func TestPreview(t *testing.T) {
	ts := startServer(t)

	out, err := runCLI(t, ts.URL, "preview", "--session", "s1", "--sequence", "1", "menu_item_height=60")
	require.NoError(t, err)
	assert.Contains(t, out, "60px")

	cssPath := filepath.Join(t.TempDir(), "preview.css")
	_, err = runCLI(t, ts.URL, "preview", "--session", "s1", "--sequence", "2", "--css-out", cssPath, "menu_item_height=70")
	require.NoError(t, err)
	data, err := os.ReadFile(cssPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "70px")

	_, err = runCLI(t, ts.URL, "preview", "--session", "s1", "--sequence", "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "409 superseded")

	// Nothing was saved.
	out, err = runCLI(t, ts.URL, "settings", "get", "--key", "menu_item_height")
	require.NoError(t, err)
	assert.Equal(t, "34\n", out)
}

func TestThemes(t *testing.T) {
	ts := startServer(t)

	out, err := runCLI(t, ts.URL, "themes", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "midnight")
	assert.Contains(t, out, "compact")

	out, err = runCLI(t, ts.URL, "themes", "apply", "midnight")
	require.NoError(t, err)
	assert.Contains(t, out, "Applied theme midnight")

	out, err = runCLI(t, ts.URL, "settings", "get", "--key", "menu_background")
	require.NoError(t, err)
	assert.Equal(t, "#0f1115\n", out)

	_, err = runCLI(t, ts.URL, "themes", "apply", "nope")
	assert.ErrorContains(t, err, "404")
}

func TestHealth(t *testing.T) {
	ts := startServer(t)

	out, err := runCLI(t, ts.URL, "health")
	require.NoError(t, err)
	assert.Contains(t, out, "alive")
	assert.Contains(t, out, "ready")
}

func TestHealthReadinessFailureIsNotFatal(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/healthz" {
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "alive", "uptime": "5m"})
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "not_ready"})
	}))
	defer ts.Close()

	out, err := runCLI(t, ts.URL, "health")
	require.NoError(t, err)
	assert.Contains(t, out, "unknown")
}

func TestClientSendsIdentity(t *testing.T) {
	var got http.Header
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"alive"}`))
	}))
	defer ts.Close()

	c := newClient(&globals{serverURL: ts.URL + "/", user: "carol", groups: []string{"a", "b"}, token: "tok"})
	var v map[string]any
	require.NoError(t, c.getJSON("/healthz", &v))
	assert.Equal(t, "carol", got.Get("X-Remote-User"))
	assert.Equal(t, "a,b", got.Get("X-Remote-Group"))
	assert.Equal(t, "Bearer tok", got.Get("Authorization"))
}

func TestClientErrorWithoutBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gateway down", http.StatusBadGateway)
	}))
	defer ts.Close()

	err := newClient(&globals{serverURL: ts.URL}).getJSON("/healthz", nil)
	var apiErr *apiError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Equal(t, "gateway down", apiErr.Message)
}

func TestParseAssignments(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want map[string]any
	}{
		{"number", []string{"menu_width=200"}, map[string]any{"menu_width": float64(200)}},
		{"bool", []string{"enable_shadow=true"}, map[string]any{"enable_shadow": true}},
		{"color stays string", []string{"menu_background=#fff"}, map[string]any{"menu_background": "#fff"}},
		{"quoted", []string{`menu_title_text="42"`}, map[string]any{"menu_title_text": "42"}},
		{"value with equals", []string{"custom_css=a=b"}, map[string]any{"custom_css": "a=b"}},
		{"empty value", []string{"menu_title_text="}, map[string]any{"menu_title_text": ""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseAssignments(tt.args)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := parseAssignments([]string{"=x"})
	assert.Error(t, err)
}

func TestFormatValueAndTruncate(t *testing.T) {
	assert.Equal(t, "12.5", formatValue(12.5))
	assert.Equal(t, "false", formatValue(false))
	assert.Equal(t, `{"unit":"px"}`, formatValue(map[string]any{"unit": "px"}))
	assert.Equal(t, "", formatValue(nil))
	assert.Equal(t, "abc...", truncate("abcdefghij", 6))
	assert.Equal(t, "ab", truncate("abcdef", 2))
	assert.Equal(t, "short", truncate("short", 10))
}

func TestUnsupportedOutputFormat(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, printOutput(&buf, "xml", map[string]any{}))
}
