// Package kv is the host key-value storage the settings document is
// persisted in.
package kv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotFound is returned by Get when the key has no value.
var ErrNotFound = errors.New("kv: key not found")

// Store is a flat key-value store. Put replaces the whole value atomically.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Entry is one stored key.
type Entry struct {
	Key       string    `gorm:"primaryKey;column:entry_key;type:varchar(191)"`
	Value     string    `gorm:"column:value;type:text;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName returns the table name for Entry.
func (Entry) TableName() string { return "kv_entries" }

// GormStore keeps entries in a relational table.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GormStore.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// AutoMigrate creates or updates the kv_entries table.
func (s *GormStore) AutoMigrate() error {
	return s.db.AutoMigrate(&Entry{})
}

// Get returns the value stored under key.
func (s *GormStore) Get(ctx context.Context, key string) ([]byte, error) {
	var e Entry
	err := s.db.WithContext(ctx).Where("entry_key = ?", key).First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %q: %w", key, err)
	}
	return []byte(e.Value), nil
}

// Put upserts the value stored under key.
func (s *GormStore) Put(ctx context.Context, key string, value []byte) error {
	e := Entry{Key: key, Value: string(value), UpdatedAt: time.Now().UTC()}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "entry_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&e).Error
	if err != nil {
		return fmt.Errorf("put %q: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *GormStore) Delete(ctx context.Context, key string) error {
	if err := s.db.WithContext(ctx).Where("entry_key = ?", key).Delete(&Entry{}).Error; err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	return nil
}
