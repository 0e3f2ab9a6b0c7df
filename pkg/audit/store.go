package audit

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// MaxQueryLimit caps the number of events one Query returns.
const MaxQueryLimit = 500

// Store provides database operations for security events.
type Store struct {
	db *gorm.DB
}

// NewStore creates a new Store.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// AutoMigrate creates or updates the security_events table.
func (s *Store) AutoMigrate() error {
	return s.db.AutoMigrate(&SecurityEvent{})
}

// Append inserts an event.
func (s *Store) Append(ctx context.Context, event *SecurityEvent) error {
	if err := s.db.WithContext(ctx).Create(event).Error; err != nil {
		return fmt.Errorf("append security event: %w", err)
	}
	return nil
}

// Query returns events matching filter, newest first. limit is clamped to
// [1, MaxQueryLimit].
func (s *Store) Query(ctx context.Context, filter QueryFilter, limit int) ([]SecurityEvent, error) {
	if limit <= 0 || limit > MaxQueryLimit {
		limit = MaxQueryLimit
	}
	q := s.db.WithContext(ctx).Model(&SecurityEvent{})
	if filter.EventType != "" {
		q = q.Where("event_type = ?", filter.EventType)
	}
	if filter.Severity != "" {
		q = q.Where("severity = ?", filter.Severity)
	}
	if filter.Actor != "" {
		q = q.Where("actor = ?", filter.Actor)
	}
	if !filter.Since.IsZero() {
		q = q.Where("created_at >= ?", filter.Since)
	}

	var events []SecurityEvent
	if err := q.Order("created_at DESC, id DESC").Limit(limit).Find(&events).Error; err != nil {
		return nil, fmt.Errorf("query security events: %w", err)
	}
	return events, nil
}

// DeleteOlderThan removes events created before cutoff and returns how
// many were removed.
func (s *Store) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := s.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&SecurityEvent{})
	if result.Error != nil {
		return 0, fmt.Errorf("delete old security events: %w", result.Error)
	}
	return result.RowsAffected, nil
}
