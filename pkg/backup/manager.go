// Package backup keeps point-in-time snapshots of the settings document and
// restores them.
package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/menuforge/menuforge/pkg/db"
	"github.com/menuforge/menuforge/pkg/schema"
	"github.com/menuforge/menuforge/pkg/settings"
)

const maxListLimit = 200

// Manager owns the settings_backups table.
type Manager struct {
	// mu serializes create+retention so pools never exceed their bounds.
	mu sync.Mutex
	// restoreMu serializes restores. Lock order is restoreMu, then the
	// store's writer lock; mu is never held across a store call.
	restoreMu sync.Mutex

	db       *gorm.DB
	store    *settings.Store
	policy   RetentionPolicy
	platform string
	logger   *slog.Logger
	nowFunc  func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the manager logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithClock overrides the time source used for created_at and age pruning.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.nowFunc = now }
}

// WithPlatformVersion records the host platform version in each backup.
func WithPlatformVersion(v string) Option {
	return func(m *Manager) { m.platform = v }
}

// NewManager creates a Manager. A nil policy selects the defaults.
func NewManager(gdb *gorm.DB, store *settings.Store, policy *RetentionPolicy, opts ...Option) *Manager {
	if policy == nil {
		policy = DefaultRetentionPolicy()
	}
	m := &Manager{
		db:       gdb,
		store:    store,
		policy:   *policy,
		platform: runtime.Version(),
		logger:   slog.Default(),
		nowFunc:  func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// AutoMigrate creates or updates the settings_backups table.
func (m *Manager) AutoMigrate() error {
	return m.db.AutoMigrate(&Backup{})
}

// Create stores doc as a backup of type t and applies retention to that
// pool.
func (m *Manager) Create(ctx context.Context, doc settings.Document, t Type, note, actor string) (*Backup, error) {
	reason := "manual"
	if t == TypeAutomatic {
		reason = "automatic"
	}
	return m.create(ctx, doc, t, note, actor, reason)
}

func (m *Manager) create(ctx context.Context, doc settings.Document, t Type, note, actor, reason string) (*Backup, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid backup type %q", t)
	}
	raw := doc.Overrides.Raw()
	encoded, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("encode backup values: %w", err)
	}
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate backup id: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.nowFunc()
	b := &Backup{
		ID:              id.String(),
		Type:            t,
		Values:          db.JSONAny(raw),
		Version:         doc.Version,
		Checksum:        doc.Checksum,
		CreatedBy:       actor,
		Note:            note,
		Reason:          reason,
		SizeBytes:       len(encoded),
		EngineVersion:   settings.EngineVersion,
		PlatformVersion: m.platform,
		CreatedAt:       now,
	}
	err = m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(b).Error; err != nil {
			return fmt.Errorf("insert backup: %w", err)
		}
		return m.prune(tx, t, now)
	})
	if err != nil {
		return nil, err
	}
	created.WithLabelValues(string(t)).Inc()
	m.logger.Info("backup created", "id", b.ID, "type", t, "version", b.Version, "reason", reason)
	return b, nil
}

// prune enforces retention for one pool: entries older than the maximum
// age go first, then the oldest entries beyond the maximum count.
func (m *Manager) prune(tx *gorm.DB, t Type, now time.Time) error {
	if age := m.policy.maxAge(t); age > 0 {
		res := tx.Where("backup_type = ? AND created_at < ?", t, now.Add(-age)).Delete(&Backup{})
		if res.Error != nil {
			return fmt.Errorf("prune backups by age: %w", res.Error)
		}
		if res.RowsAffected > 0 {
			pruned.WithLabelValues(string(t), "age").Add(float64(res.RowsAffected))
		}
	}

	limit := m.policy.maxCount(t)
	if limit <= 0 {
		return nil
	}
	var ids []string
	if err := tx.Model(&Backup{}).Where("backup_type = ?", t).
		Order("created_at DESC, id DESC").Pluck("id", &ids).Error; err != nil {
		return fmt.Errorf("list backups for pruning: %w", err)
	}
	if len(ids) <= limit {
		return nil
	}
	stale := ids[limit:]
	if err := tx.Where("id IN ?", stale).Delete(&Backup{}).Error; err != nil {
		return fmt.Errorf("prune backups by count: %w", err)
	}
	pruned.WithLabelValues(string(t), "count").Add(float64(len(stale)))
	return nil
}

// List returns a page of backups, newest first, and the total matching
// the filter.
func (m *Manager) List(ctx context.Context, filter ListFilter, offset, limit int) ([]Backup, int64, error) {
	if limit <= 0 || limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	q := m.db.WithContext(ctx).Model(&Backup{})
	if filter.Type != "" {
		q = q.Where("backup_type = ?", filter.Type)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count backups: %w", err)
	}
	var out []Backup
	if err := q.Order("created_at DESC, id DESC").Offset(offset).Limit(limit).Find(&out).Error; err != nil {
		return nil, 0, fmt.Errorf("list backups: %w", err)
	}
	return out, total, nil
}

// Get returns the backup with the given id.
func (m *Manager) Get(ctx context.Context, id string) (*Backup, error) {
	var b Backup
	err := m.db.WithContext(ctx).Where("id = ?", id).First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get backup %s: %w", id, err)
	}
	return &b, nil
}

// Delete removes a backup.
func (m *Manager) Delete(ctx context.Context, id string) error {
	res := m.db.WithContext(ctx).Where("id = ?", id).Delete(&Backup{})
	if res.Error != nil {
		return fmt.Errorf("delete backup %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	m.logger.Info("backup deleted", "id", id)
	return nil
}

// Restore makes the backup the live document. The backup is verified first
// and the live document is saved as an automatic backup before it is
// replaced. On any error the live document is unchanged.
func (m *Manager) Restore(ctx context.Context, id, actor string) (settings.Document, error) {
	m.restoreMu.Lock()
	defer m.restoreMu.Unlock()

	doc, err := m.restore(ctx, id, actor)
	outcome := "ok"
	var rerr *RestoreError
	if errors.As(err, &rerr) {
		outcome = rerr.Reason
	} else if err != nil {
		outcome = "error"
	}
	restores.WithLabelValues(outcome).Inc()
	return doc, err
}

func (m *Manager) restore(ctx context.Context, id, actor string) (settings.Document, error) {
	b, err := m.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return settings.Document{}, &RestoreError{ID: id, Reason: ReasonNotFound, Err: err}
	}
	if err != nil {
		return settings.Document{}, err
	}
	if err := b.Verify(); err != nil {
		m.logger.Warn("refusing to restore corrupt backup", "id", id, "error", err)
		return settings.Document{}, &RestoreError{ID: id, Reason: ReasonChecksumMismatch, Err: err}
	}

	// The store snapshots the live document under its writer lock, so a
	// concurrent write is either captured by the pre-restore backup or lands
	// after the restore. A corrupt live document is not snapshotted.
	doc, _, err := m.store.Write(ctx, b.Values,
		settings.Replace(),
		settings.Reason("restore"),
		settings.Actor(actor),
		settings.Snapshot("pre_restore", "before restoring "+id))
	var verr *schema.ValidationError
	var serr *settings.StorageError
	switch {
	case errors.As(err, &verr):
		return settings.Document{}, &RestoreError{ID: id, Reason: ReasonInvalidValues, Err: err}
	case errors.As(err, &serr) && serr.Op == "snapshot":
		return settings.Document{}, &RestoreError{ID: id, Reason: ReasonSnapshotFailed, Err: err}
	case err != nil:
		return settings.Document{}, &RestoreError{ID: id, Reason: ReasonWriteFailed, Err: err}
	}
	m.logger.Info("backup restored", "id", id, "version", doc.Version, "actor", actor)
	return doc, nil
}

// SnapshotBeforeWrite stores the document about to be replaced as an
// automatic backup.
func (m *Manager) SnapshotBeforeWrite(ctx context.Context, current settings.Document, info settings.SnapshotInfo) error {
	_, err := m.create(ctx, current, TypeAutomatic, info.Note, info.Actor, info.Reason)
	return err
}

// LastVerified returns the newest backup whose checksum still verifies, or
// nil when there is none.
func (m *Manager) LastVerified(ctx context.Context) (*settings.Document, error) {
	const page = 20
	for offset := 0; ; offset += page {
		var batch []Backup
		err := m.db.WithContext(ctx).Order("created_at DESC, id DESC").
			Offset(offset).Limit(page).Find(&batch).Error
		if err != nil {
			return nil, fmt.Errorf("load backups: %w", err)
		}
		for i := range batch {
			b := &batch[i]
			if err := b.Verify(); err != nil {
				m.logger.Warn("skipping corrupt backup", "id", b.ID, "error", err)
				continue
			}
			sch := m.store.Schema()
			overrides, _ := sch.Sanitize(b.Values)
			doc := settings.NewDocument(sch, overrides, b.Version, b.CreatedAt)
			return &doc, nil
		}
		if len(batch) < page {
			return nil, nil
		}
	}
}
