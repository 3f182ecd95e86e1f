package cron

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tripcreators/creator-wallet/pkg/db/models"
	"github.com/tripcreators/creator-wallet/pkg/pagination"
)

// ExportCursorRepository persists export high-water marks.
type ExportCursorRepository struct {
	db *gorm.DB
}

// NewExportCursorRepository builds a cursor repository on the given handle.
func NewExportCursorRepository(db *gorm.DB) *ExportCursorRepository {
	return &ExportCursorRepository{db: db}
}

// Load returns the stored cursor, or nil when the export has never run.
func (r *ExportCursorRepository) Load(ctx context.Context, name string) (*pagination.Cursor, error) {
	var row models.ExportCursor
	err := r.db.WithContext(ctx).Where("name = ?", name).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &pagination.Cursor{CreatedAt: row.LastCreatedAt, ID: row.LastID}, nil
}

// Save upserts the cursor for name.
func (r *ExportCursorRepository) Save(ctx context.Context, name string, cursor pagination.Cursor) error {
	row := models.ExportCursor{
		Name:          name,
		LastCreatedAt: cursor.CreatedAt,
		LastID:        cursor.ID,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_created_at", "last_id", "updated_at"}),
	}).Create(&row).Error
}
