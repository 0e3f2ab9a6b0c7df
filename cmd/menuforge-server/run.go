package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"gorm.io/gorm"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"

	"github.com/menuforge/menuforge/pkg/audit"
	"github.com/menuforge/menuforge/pkg/authz"
	"github.com/menuforge/menuforge/pkg/backup"
	"github.com/menuforge/menuforge/pkg/cache"
	"github.com/menuforge/menuforge/pkg/css"
	"github.com/menuforge/menuforge/pkg/db"
	"github.com/menuforge/menuforge/pkg/ha"
	"github.com/menuforge/menuforge/pkg/kv"
	"github.com/menuforge/menuforge/pkg/preview"
	"github.com/menuforge/menuforge/pkg/ratelimit"
	"github.com/menuforge/menuforge/pkg/server"
	"github.com/menuforge/menuforge/pkg/settings"
)

const shutdownTimeout = 30 * time.Second

// app is the fully wired server.
type app struct {
	db       *gorm.DB
	handler  http.Handler
	previews *preview.Coordinator
	elector  *ha.LeaderElector
}

func run(ctx context.Context, opts options, logger *slog.Logger) error {
	a, err := build(ctx, opts, logger)
	if err != nil {
		return err
	}
	if sqlDB, err := a.db.DB(); err == nil {
		defer sqlDB.Close()
	}

	// Preview sessions live in process memory, so every replica evicts its
	// own. Retention work is shared and runs on the leader only.
	go a.previews.Run(ctx)
	go a.elector.Run(ctx)

	httpServer := &http.Server{
		Addr:              opts.Listen,
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	logger.Info("menuforge server ready", "listen", opts.Listen)

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	logger.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}
	logger.Info("menuforge server stopped")
	return nil
}

// build opens the database and wires every component once.
func build(ctx context.Context, opts options, logger *slog.Logger) (*app, error) {
	haCfg := ha.HAConfigFromEnv()
	if err := haCfg.Validate(); err != nil {
		return nil, err
	}

	gdb, err := db.Open(opts.DBType, opts.DBDSN)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx, gdb, haCfg, &kv.Entry{}, &backup.Backup{}, &audit.SecurityEvent{}); err != nil {
		return nil, err
	}

	store := settings.NewStore(kv.NewGormStore(gdb), nil, settings.WithLogger(logger))
	backups := backup.NewManager(gdb, store, backup.RetentionPolicyFromEnv(), backup.WithLogger(logger))
	store.SetSnapshotter(backups)

	cacheCfg := cache.CacheConfigFromEnv()
	var artifacts *cache.Store
	if cacheCfg.Enabled {
		artifacts = cache.NewStore(cacheCfg.MaxSize, cacheCfg.TTL)
	}
	styles := css.NewCachedGenerator(artifacts, cacheCfg.TTL, logger)
	store.Bus().Subscribe(styles)

	previews := preview.NewCoordinator(store, store.Schema(), preview.ConfigFromEnv(), logger)

	authzCfg := authz.AuthzConfigFromEnv()
	if opts.AuthMode != "" {
		authzCfg.IdentityMode = authz.IdentityMode(opts.AuthMode)
	}
	authorizer, err := authz.NewAuthorizer(authzCfg, nil)
	if err != nil {
		return nil, err
	}
	identity, err := authz.NewIdentityMiddleware(authzCfg, logger)
	if err != nil {
		return nil, err
	}

	auditCfg := audit.AuditConfigFromEnv()
	auditStore := audit.NewStore(gdb)

	srvOpts := []server.Option{
		server.WithStyles(styles),
		server.WithPreview(previews),
		server.WithAuthorizer(authorizer),
		server.WithIdentityMiddleware(identity),
		server.WithAudit(auditStore, auditCfg),
		server.WithDB(gdb),
		server.WithCacheMaxAge(cacheCfg.MaxAge),
	}
	if rlCfg := ratelimit.ConfigFromEnv(); rlCfg.Enabled {
		srvOpts = append(srvOpts, server.WithRateLimiter(ratelimit.NewLimiter(rlCfg)))
	}
	if len(opts.CORSOrigins) > 0 {
		srvOpts = append(srvOpts, server.WithCORSOrigins(opts.CORSOrigins))
	}
	srv, err := server.New(store, backups, logger, srvOpts...)
	if err != nil {
		return nil, err
	}

	var client kubernetes.Interface
	if haCfg.LeaderElectionEnabled {
		restCfg, err := rest.InClusterConfig()
		if err != nil {
			return nil, fmt.Errorf("leader election needs in-cluster config: %w", err)
		}
		if client, err = kubernetes.NewForConfig(restCfg); err != nil {
			return nil, fmt.Errorf("create kubernetes client: %w", err)
		}
	}
	elector := ha.NewLeaderElector(haCfg, client, haCfg.Identity, logger)
	if auditCfg.Enabled {
		elector.Register("audit-retention", audit.NewRetentionWorker(auditStore, auditCfg, logger).Run)
	}

	logger.Info("menuforge server wired",
		"dialect", gdb.Dialector.Name(),
		"cache", cacheCfg.Enabled,
		"authz", authzCfg.Mode,
		"identity", authzCfg.IdentityMode,
		"leaderElection", haCfg.LeaderElectionEnabled,
	)
	return &app{db: gdb, handler: srv.MountRoutes(), previews: previews, elector: elector}, nil
}
