package models

import (
	"time"

	"github.com/google/uuid"
)

// ExportCursor is the high-water mark of an incremental export job.
type ExportCursor struct {
	Name          string    `gorm:"column:name;primaryKey"`
	LastCreatedAt time.Time `gorm:"column:last_created_at;not null"`
	LastID        uuid.UUID `gorm:"column:last_id;type:uuid;not null"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
