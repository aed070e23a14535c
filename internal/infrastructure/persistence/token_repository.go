package persistence

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/mediator/backend/internal/domain/sync"
	"github.com/mediator/backend/internal/infrastructure/persistence/models"
)

// GormTokenRepository implements sync.TokenStore using GORM. Credentials
// are keyed by mode so live and test tokens never overwrite each other.
type GormTokenRepository struct {
	db *gorm.DB
}

// NewGormTokenRepository creates a new GormTokenRepository
func NewGormTokenRepository(db *gorm.DB) *GormTokenRepository {
	return &GormTokenRepository{db: db}
}

// Get returns the stored credentials for the given mode
func (r *GormTokenRepository) Get(ctx context.Context, mode sync.Mode) (*sync.Token, error) {
	var model models.OAuthTokenModel
	if err := r.db.WithContext(ctx).First(&model, "mode = ?", string(mode)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, sync.ErrTokenNotFound
		}
		return nil, wrapPersistence("load token", err)
	}
	return model.ToDomain(), nil
}

// Save persists refreshed credentials, replacing the mode's previous row
func (r *GormTokenRepository) Save(ctx context.Context, token *sync.Token) error {
	var model models.OAuthTokenModel
	model.FromDomain(token)
	if err := r.db.WithContext(ctx).Save(&model).Error; err != nil {
		return wrapPersistence("save token", err)
	}
	return nil
}

// Ensure GormTokenRepository implements sync.TokenStore
var _ sync.TokenStore = (*GormTokenRepository)(nil)
