// Package server exposes the settings engine over HTTP.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/menuforge/menuforge/pkg/audit"
	"github.com/menuforge/menuforge/pkg/authz"
	"github.com/menuforge/menuforge/pkg/backup"
	"github.com/menuforge/menuforge/pkg/css"
	"github.com/menuforge/menuforge/pkg/preview"
	"github.com/menuforge/menuforge/pkg/ratelimit"
	"github.com/menuforge/menuforge/pkg/settings"
	"github.com/menuforge/menuforge/pkg/themes"
)

// APIPrefix is the base path of the versioned API.
const APIPrefix = "/api/v1"

// Server holds the wired components and builds the HTTP router.
type Server struct {
	settings   *settings.Store
	backups    *backup.Manager
	styles     *css.CachedGenerator
	previews   *preview.Coordinator
	themes     *themes.Catalog
	limiter    *ratelimit.Limiter
	authorizer authz.Authorizer
	identity   func(http.Handler) http.Handler

	auditStore  *audit.Store
	auditConfig *audit.AuditConfig
	recorder    *audit.Recorder

	db          *gorm.DB
	corsOrigins []string
	cacheMaxAge time.Duration
	logger      *slog.Logger
	startedAt   time.Time

	// lastIntegrity is the stored checksum of the last integrity failure
	// recorded, so a corrupt document is audited once, not on every read.
	integrityMu   sync.Mutex
	lastIntegrity string
}

// Option configures a Server.
type Option func(*Server)

// WithStyles sets the stylesheet generator.
func WithStyles(g *css.CachedGenerator) Option {
	return func(s *Server) { s.styles = g }
}

// WithPreview sets the preview coordinator.
func WithPreview(c *preview.Coordinator) Option {
	return func(s *Server) { s.previews = c }
}

// WithThemes sets the theme catalog.
func WithThemes(c *themes.Catalog) Option {
	return func(s *Server) { s.themes = c }
}

// WithRateLimiter enables per-class rate limiting.
func WithRateLimiter(l *ratelimit.Limiter) Option {
	return func(s *Server) { s.limiter = l }
}

// WithAuthorizer sets the capability checker. The default allows everything.
func WithAuthorizer(a authz.Authorizer) Option {
	return func(s *Server) { s.authorizer = a }
}

// WithIdentityMiddleware replaces the header-based identity middleware.
func WithIdentityMiddleware(mw func(http.Handler) http.Handler) Option {
	return func(s *Server) { s.identity = mw }
}

// WithAudit enables the security audit log.
func WithAudit(store *audit.Store, cfg *audit.AuditConfig) Option {
	return func(s *Server) {
		s.auditStore = store
		s.auditConfig = cfg
	}
}

// WithDB lets the readiness probe ping the database.
func WithDB(gdb *gorm.DB) Option {
	return func(s *Server) { s.db = gdb }
}

// WithCORSOrigins sets the allowed CORS origins.
func WithCORSOrigins(origins []string) Option {
	return func(s *Server) { s.corsOrigins = origins }
}

// WithCacheMaxAge sets the Cache-Control max-age of stylesheet responses.
func WithCacheMaxAge(d time.Duration) Option {
	return func(s *Server) { s.cacheMaxAge = d }
}

// New creates a Server. Components not supplied through options get
// working defaults: uncached generation, the built-in themes, a
// permissive authorizer and no rate limiting.
func New(store *settings.Store, backups *backup.Manager, logger *slog.Logger, opts ...Option) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		settings:    store,
		backups:     backups,
		authorizer:  &authz.NoopAuthorizer{},
		identity:    authz.IdentityMiddleware(),
		corsOrigins: []string{"https://*", "http://*"},
		cacheMaxAge: 5 * time.Minute,
		logger:      logger,
		startedAt:   time.Now(),
	}
	for _, o := range opts {
		o(s)
	}
	if s.styles == nil {
		s.styles = css.NewCachedGenerator(nil, 0, logger)
	}
	if s.previews == nil {
		s.previews = preview.NewCoordinator(store, store.Schema(), nil, logger)
	}
	if s.themes == nil {
		c, err := themes.Builtin(store.Schema())
		if err != nil {
			return nil, err
		}
		s.themes = c
	}
	if s.auditConfig == nil {
		s.auditConfig = audit.DefaultAuditConfig()
	}
	if s.auditStore != nil && s.auditConfig.Enabled {
		s.recorder = audit.NewRecorder(s.auditStore, logger)
	}
	return s, nil
}

// MountRoutes builds the router.
func (s *Server) MountRoutes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "If-None-Match", "If-Modified-Since", "X-Remote-User", "X-Remote-Group"},
		ExposedHeaders:   []string{"ETag", "Last-Modified", "Retry-After", "X-Cache", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-Settings-Integrity"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(instrument)

	r.Get("/healthz", s.healthHandler)
	r.Get("/livez", s.healthHandler)
	r.Get("/readyz", s.readyHandler)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(s.identity)
		// Audit wraps the limiter and the authorizer so it sees their
		// rejections.
		if s.recorder != nil {
			r.Use(audit.AuditMiddleware(s.recorder, s.auditConfig, s.logger))
		}

		r.Route(APIPrefix, func(r chi.Router) {
			r.With(s.limit(ratelimit.ClassRead), s.require(authz.ResourceSettings, authz.VerbGet)).Get("/settings", s.getSettings)
			r.With(s.limit(ratelimit.ClassWrite), s.require(authz.ResourceSettings, authz.VerbUpdate)).Put("/settings", s.putSettings)
			r.With(s.limit(ratelimit.ClassWrite), s.require(authz.ResourceSettings, authz.VerbUpdate)).Post("/settings/reset", s.resetSettings)

			r.With(s.limit(ratelimit.ClassRead), s.require(authz.ResourceSettings, authz.VerbGet)).Get("/styles.css", s.stylesheet(css.ArtifactCSS))
			r.With(s.limit(ratelimit.ClassRead), s.require(authz.ResourceSettings, authz.VerbGet)).Get("/styles.min.css", s.stylesheet(css.ArtifactCSSMin))

			r.Route("/backups", func(r chi.Router) {
				r.With(s.limit(ratelimit.ClassRead), s.require(authz.ResourceBackups, authz.VerbList)).Get("/", s.listBackups)
				r.With(s.limit(ratelimit.ClassBackup), s.require(authz.ResourceBackups, authz.VerbCreate)).Post("/", s.createBackup)
				r.With(s.limit(ratelimit.ClassRead), s.require(authz.ResourceBackups, authz.VerbGet)).Get("/{id}", s.getBackup)
				r.With(s.limit(ratelimit.ClassBackup), s.require(authz.ResourceBackups, authz.VerbRestore)).Post("/{id}/restore", s.restoreBackup)
				r.With(s.limit(ratelimit.ClassBackup), s.require(authz.ResourceBackups, authz.VerbDelete)).Delete("/{id}", s.deleteBackup)
			})

			r.With(s.limit(ratelimit.ClassPreview), s.require(authz.ResourcePreview, authz.VerbCreate)).Post("/preview", s.previewHandler)

			r.With(s.limit(ratelimit.ClassTransfer), s.require(authz.ResourceTransfer, authz.VerbExport)).Get("/export", s.exportHandler)
			r.With(s.limit(ratelimit.ClassTransfer), s.require(authz.ResourceTransfer, authz.VerbImport)).Post("/import", s.importHandler)

			r.With(s.limit(ratelimit.ClassRead), s.require(authz.ResourceSettings, authz.VerbGet)).Get("/themes", s.listThemes)
			r.With(s.limit(ratelimit.ClassWrite), s.require(authz.ResourceSettings, authz.VerbUpdate)).Post("/themes/{name}/apply", s.applyTheme)

			if s.auditStore != nil {
				r.With(s.limit(ratelimit.ClassRead)).Mount("/audit", audit.Router(s.auditStore, s.authorizer))
			}
		})

		r.Post("/legacy/ajax", s.legacyHandler)
	})

	return r
}

func (s *Server) limit(class ratelimit.Class) func(http.Handler) http.Handler {
	if s.limiter == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return ratelimit.Middleware(s.limiter, class, rateIdentity)
}

func (s *Server) require(resource, verb string) func(http.Handler) http.Handler {
	return authz.RequirePermission(s.authorizer, resource, verb)
}

// rateIdentity charges authenticated callers by user and everyone else by
// client address.
func rateIdentity(r *http.Request) string {
	if actor := authz.Actor(r.Context()); actor != authz.Anonymous {
		return "user:" + actor
	}
	return "addr:" + ratelimit.RemoteAddr(r)
}

// healthHandler handles liveness probes.
func (s *Server) healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "alive",
		"uptime": time.Since(s.startedAt).Round(time.Second).String(),
	})
}

// readyHandler reports ready once the database answers and the settings
// document can be read. A document that fails verification is still
// ready: it is served from the fallback.
func (s *Server) readyHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	ready := true
	checks := map[string]string{}

	if s.db != nil {
		checks["database"] = "up"
		sqlDB, err := s.db.DB()
		if err == nil {
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			checks["database"] = "down: " + err.Error()
			ready = false
		}
	}

	checks["settings"] = "up"
	if _, _, err := s.read(ctx); err != nil {
		checks["settings"] = "down: " + err.Error()
		ready = false
	}

	status, code := "ready", http.StatusOK
	if !ready {
		status, code = "not_ready", http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{"status": status, "checks": checks})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
