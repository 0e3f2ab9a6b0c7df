package ha

import (
	"context"
	"errors"
	"fmt"
	"hash/crc32"
	"log/slog"
	"time"

	"gorm.io/gorm"
)

// migrationLockName names the lock on every dialect.
const migrationLockName = "menuforge_migration"

// MigrationLocker serializes schema migrations across replicas.
type MigrationLocker interface {
	// WithLock runs fn while holding the migration lock.
	WithLock(ctx context.Context, fn func() error) error
}

// LockOption configures a MigrationLocker.
type LockOption func(*lockSettings)

type lockSettings struct {
	holder     string
	wait       time.Duration
	retry      time.Duration
	staleAfter time.Duration
	logger     *slog.Logger
	nowFunc    func() time.Time
}

// WithHolder names this replica in the lock row.
func WithHolder(h string) LockOption { return func(s *lockSettings) { s.holder = h } }

// WithWait bounds how long WithLock waits for the lock.
func WithWait(d time.Duration) LockOption { return func(s *lockSettings) { s.wait = d } }

// WithRetryInterval sets the polling interval of the table lock.
func WithRetryInterval(d time.Duration) LockOption { return func(s *lockSettings) { s.retry = d } }

// WithStaleAfter sets the age after which a table lock is considered
// abandoned by a crashed holder.
func WithStaleAfter(d time.Duration) LockOption { return func(s *lockSettings) { s.staleAfter = d } }

// WithLockLogger sets the logger.
func WithLockLogger(l *slog.Logger) LockOption { return func(s *lockSettings) { s.logger = l } }

// NewMigrationLocker picks a lock strategy for the database dialect.
// PostgreSQL and MySQL use session-level advisory locks held on a pinned
// connection; SQLite uses a lock row. A nil db yields a lock that only runs
// fn.
func NewMigrationLocker(db *gorm.DB, opts ...LockOption) MigrationLocker {
	s := lockSettings{
		holder:     defaultIdentity(),
		wait:       30 * time.Second,
		retry:      time.Second,
		staleAfter: 5 * time.Minute,
		logger:     slog.Default(),
		nowFunc:    func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(&s)
	}
	if db == nil {
		return noopLock{}
	}
	switch db.Dialector.Name() {
	case "postgres":
		return &advisoryLock{db: db, settings: s,
			acquire: "SELECT pg_advisory_lock(?)",
			release: "SELECT pg_advisory_unlock(?)",
			arg:     int64(crc32.ChecksumIEEE([]byte(migrationLockName))),
		}
	case "mysql":
		return &advisoryLock{db: db, settings: s,
			acquire: fmt.Sprintf("SELECT GET_LOCK(?, %d)", int(s.wait.Seconds())),
			release: "SELECT RELEASE_LOCK(?)",
			arg:     migrationLockName,
			checked: true,
		}
	}
	return &tableLock{db: db, settings: s}
}

type noopLock struct{}

func (noopLock) WithLock(_ context.Context, fn func() error) error { return fn() }

// advisoryLock holds a session-scoped lock. Acquire, fn and release share
// one pooled connection, otherwise the release could run on a session that
// never held the lock.
type advisoryLock struct {
	db       *gorm.DB
	settings lockSettings
	acquire  string
	release  string
	arg      any
	// checked means acquire returns 1 on success and 0 on timeout.
	checked bool
}

func (l *advisoryLock) WithLock(ctx context.Context, fn func() error) error {
	return l.db.WithContext(ctx).Connection(func(conn *gorm.DB) error {
		if l.checked {
			var got int
			if err := conn.Raw(l.acquire, l.arg).Scan(&got).Error; err != nil {
				return fmt.Errorf("acquire migration lock: %w", err)
			}
			if got != 1 {
				return fmt.Errorf("acquire migration lock: timed out after %s", l.settings.wait)
			}
		} else if err := conn.Exec(l.acquire, l.arg).Error; err != nil {
			return fmt.Errorf("acquire migration lock: %w", err)
		}
		l.settings.logger.Debug("migration lock acquired", "dialect", l.db.Dialector.Name(), "holder", l.settings.holder)
		defer func() {
			// Release even when ctx is already cancelled.
			if err := conn.WithContext(context.WithoutCancel(ctx)).Exec(l.release, l.arg).Error; err != nil {
				l.settings.logger.Error("release migration lock failed", "error", err)
			}
		}()
		return fn()
	})
}

// migrationLockRecord is the lock row of the table strategy.
type migrationLockRecord struct {
	Name     string    `gorm:"primaryKey;column:lock_name;type:varchar(64)"`
	Holder   string    `gorm:"column:holder"`
	LockedAt time.Time `gorm:"column:locked_at"`
}

func (migrationLockRecord) TableName() string { return "migration_locks" }

// tableLock takes the lock by inserting a row keyed by the lock name; the
// primary key makes a second insert fail while the row exists. Rows older
// than staleAfter are removed so a crashed holder cannot wedge startup.
type tableLock struct {
	db       *gorm.DB
	settings lockSettings
}

func (l *tableLock) WithLock(ctx context.Context, fn func() error) error {
	db := l.db.WithContext(ctx)
	if err := db.AutoMigrate(&migrationLockRecord{}); err != nil {
		return fmt.Errorf("create migration lock table: %w", err)
	}

	deadline := l.settings.nowFunc().Add(l.settings.wait)
	for {
		now := l.settings.nowFunc()
		db.Where("lock_name = ? AND locked_at < ?", migrationLockName, now.Add(-l.settings.staleAfter)).
			Delete(&migrationLockRecord{})

		err := db.Create(&migrationLockRecord{Name: migrationLockName, Holder: l.settings.holder, LockedAt: now}).Error
		if err == nil {
			break
		}
		if !now.Before(deadline) {
			var holder migrationLockRecord
			if db.Where("lock_name = ?", migrationLockName).First(&holder).Error == nil {
				return fmt.Errorf("migration lock held by %s since %s", holder.Holder, holder.LockedAt.Format(time.RFC3339))
			}
			return fmt.Errorf("acquire migration lock: %w", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.settings.retry):
		}
	}

	defer func() {
		err := l.db.WithContext(context.WithoutCancel(ctx)).
			Where("lock_name = ? AND holder = ?", migrationLockName, l.settings.holder).
			Delete(&migrationLockRecord{}).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			l.settings.logger.Error("release migration lock failed", "error", err)
		}
	}()
	return fn()
}
