package kv

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestStore(t *testing.T) *GormStore {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	s := NewGormStore(db)
	require.NoError(t, s.AutoMigrate())
	return s
}

func TestGetMissingKey(t *testing.T) {
	s := setupTestStore(t)

	_, err := s.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPutGetOverwrite(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "settings/document", []byte(`{"v":1}`)))
	require.NoError(t, s.Put(ctx, "settings/document", []byte(`{"v":2}`)))

	got, err := s.Get(ctx, "settings/document")
	require.NoError(t, err)
	assert.Equal(t, `{"v":2}`, string(got))

	var count int64
	s.db.Model(&Entry{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestDelete(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "a", []byte("x")))
	require.NoError(t, s.Delete(ctx, "a"))
	require.NoError(t, s.Delete(ctx, "a"))

	_, err := s.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrNotFound)
}
