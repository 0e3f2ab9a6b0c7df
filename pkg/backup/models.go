package backup

import (
	"fmt"
	"time"

	"github.com/menuforge/menuforge/pkg/db"
	"github.com/menuforge/menuforge/pkg/settings"
)

// Type separates the two retention pools.
type Type string

const (
	TypeAutomatic Type = "automatic"
	TypeManual    Type = "manual"
)

// Valid reports whether t is a known backup type.
func (t Type) Valid() bool {
	return t == TypeAutomatic || t == TypeManual
}

// Backup is the GORM model for a settings snapshot. Rows are never updated
// after creation.
type Backup struct {
	ID              string     `gorm:"primaryKey;column:id;type:varchar(36)" json:"id"`
	Type            Type       `gorm:"column:backup_type;index:idx_backup_type_created,priority:1;not null" json:"type"`
	Values          db.JSONAny `gorm:"column:snapshot_values;type:text" json:"-"`
	Version         int64      `gorm:"column:document_version;not null" json:"version"`
	Checksum        string     `gorm:"column:checksum;type:varchar(64);not null" json:"checksum"`
	CreatedBy       string     `gorm:"column:created_by" json:"created_by,omitempty"`
	Note            string     `gorm:"column:note" json:"note,omitempty"`
	Reason          string     `gorm:"column:reason" json:"reason,omitempty"`
	SizeBytes       int        `gorm:"column:size_bytes" json:"size_bytes"`
	EngineVersion   string     `gorm:"column:engine_version" json:"engine_version,omitempty"`
	PlatformVersion string     `gorm:"column:platform_version" json:"platform_version,omitempty"`
	CreatedAt       time.Time  `gorm:"column:created_at;index:idx_backup_type_created,priority:2;not null" json:"created_at"`
}

// TableName returns the GORM table name.
func (Backup) TableName() string { return "settings_backups" }

// Verify recomputes the checksum of the captured values.
func (b *Backup) Verify() error {
	actual, err := settings.ChecksumRaw(b.Values)
	if err != nil {
		return fmt.Errorf("hash backup %s: %w", b.ID, err)
	}
	if actual != b.Checksum {
		return fmt.Errorf("backup %s: %w (stored %s, computed %s)", b.ID, settings.ErrChecksumMismatch, b.Checksum, actual)
	}
	return nil
}

// ListFilter narrows List results.
type ListFilter struct {
	Type Type
}
