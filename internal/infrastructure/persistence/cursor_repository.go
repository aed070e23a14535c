package persistence

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/mediator/backend/internal/domain/sync"
	"github.com/mediator/backend/internal/infrastructure/persistence/models"
)

// cursorRowID is the primary key of the single cursor row.
const cursorRowID = 1

// GormCursorRepository implements sync.CursorStore using GORM
type GormCursorRepository struct {
	db *gorm.DB
}

// NewGormCursorRepository creates a new GormCursorRepository
func NewGormCursorRepository(db *gorm.DB) *GormCursorRepository {
	return &GormCursorRepository{db: db}
}

// Get returns the current cursor. A missing row means no sync has completed
// yet and yields the zero cursor.
func (r *GormCursorRepository) Get(ctx context.Context) (sync.Cursor, error) {
	var model models.SourceCursorModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", cursorRowID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return sync.Cursor{}, nil
		}
		return sync.Cursor{}, wrapPersistence("load cursor", err)
	}
	return model.ToDomain(), nil
}

// Advance moves the cursor forward. A cursor behind the stored one is
// rejected silently: the watermark never goes backward.
func (r *GormCursorRepository) Advance(ctx context.Context, cursor sync.Cursor) error {
	current, err := r.Get(ctx)
	if err != nil {
		return err
	}
	if cursor.LastModifiedAt.Before(current.LastModifiedAt) {
		return nil
	}

	var model models.SourceCursorModel
	model.FromDomain(cursor)
	model.ID = cursorRowID
	if err := r.db.WithContext(ctx).Save(&model).Error; err != nil {
		return wrapPersistence("advance cursor", err)
	}
	return nil
}

// Ensure GormCursorRepository implements sync.CursorStore
var _ sync.CursorStore = (*GormCursorRepository)(nil)
