// Package db opens the relational database backing the settings document,
// backups and the security audit log.
package db

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/menuforge/menuforge/pkg/ha"
)

// Supported database types.
const (
	TypeSQLite   = "sqlite"
	TypePostgres = "postgres"
	TypeMySQL    = "mysql"
)

// Open connects to the database. An empty dbType falls back to DATABASE_TYPE
// and then to sqlite; an empty dsn falls back to DATABASE_DSN.
func Open(dbType, dsn string) (*gorm.DB, error) {
	if dbType == "" {
		dbType = envOrDefault("DATABASE_TYPE", TypeSQLite)
	}
	if dsn == "" {
		dsn = os.Getenv("DATABASE_DSN")
	}
	if dsn == "" {
		if dbType != TypeSQLite {
			return nil, fmt.Errorf("database DSN is required for %s (use --db-dsn or DATABASE_DSN)", dbType)
		}
		dsn = "menuforge.db"
	}

	var dialector gorm.Dialector
	switch dbType {
	case TypeSQLite:
		dialector = sqlite.Open(dsn)
	case TypePostgres:
		dialector = postgres.Open(dsn)
	case TypeMySQL:
		dialector = mysql.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database type %q", dbType)
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", dbType, err)
	}
	if dbType == TypeSQLite {
		// A single connection keeps SQLite writes serialized.
		sqlDB, err := gdb.DB()
		if err != nil {
			return nil, fmt.Errorf("get sql.DB: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return gdb, nil
}

// Migrate runs AutoMigrate for models while holding the migration lock so
// replicas starting together do not race on schema changes. A nil cfg or a
// disabled lock runs the migration directly.
func Migrate(ctx context.Context, gdb *gorm.DB, cfg *ha.HAConfig, models ...any) error {
	locker := ha.NewMigrationLocker(nil)
	if cfg != nil && cfg.MigrationLockEnabled {
		locker = ha.NewMigrationLocker(gdb,
			ha.WithHolder(cfg.Identity),
			ha.WithWait(cfg.MigrationLockWait),
		)
	}
	err := locker.WithLock(ctx, func() error {
		return gdb.WithContext(ctx).AutoMigrate(models...)
	})
	if err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	slog.Debug("database migrated", "dialect", gdb.Dialector.Name(), "models", len(models))
	return nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
