package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/mediator/backend/internal/domain/sync"
	"github.com/mediator/backend/internal/infrastructure/persistence/models"
)

// GormProductRepository implements sync.ProductRepository using GORM
type GormProductRepository struct {
	db *gorm.DB
}

// NewGormProductRepository creates a new GormProductRepository
func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// FindBySKU finds a mirrored product by its SKU
func (r *GormProductRepository) FindBySKU(ctx context.Context, sku string) (*sync.Product, error) {
	var model models.ProductModel
	if err := r.db.WithContext(ctx).First(&model, "sku = ?", sku).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, sync.ErrProductNotFound
		}
		return nil, wrapPersistence("find product by sku", err)
	}
	product, err := model.ToDomain()
	if err != nil {
		return nil, wrapPersistence("find product by sku", err)
	}
	return product, nil
}

// FindBySourceID finds a mirrored product by its catalog record ID
func (r *GormProductRepository) FindBySourceID(ctx context.Context, sourceID int64) (*sync.Product, error) {
	var model models.ProductModel
	if err := r.db.WithContext(ctx).First(&model, "source_id = ?", sourceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, sync.ErrProductNotFound
		}
		return nil, wrapPersistence("find product by source id", err)
	}
	product, err := model.ToDomain()
	if err != nil {
		return nil, wrapPersistence("find product by source id", err)
	}
	return product, nil
}

// Save creates or updates a mirrored product
func (r *GormProductRepository) Save(ctx context.Context, product *sync.Product) error {
	var model models.ProductModel
	if err := model.FromDomain(product); err != nil {
		return wrapPersistence("save product", err)
	}
	if err := r.db.WithContext(ctx).Save(&model).Error; err != nil {
		return wrapPersistence("save product", err)
	}
	// Write back the generated ID on first insert.
	product.ID = model.ID
	return nil
}

// UpdatePushState records a successful push in a single write. The pushed
// canonical state is stored alongside the fingerprint as the baseline for
// the next push's diff.
func (r *GormProductRepository) UpdatePushState(ctx context.Context, sku, destinationID, fingerprint string, state sync.NormalizedProduct, pushedAt time.Time) error {
	pushed, err := json.Marshal(state)
	if err != nil {
		return wrapPersistence("update push state", err)
	}
	result := r.db.WithContext(ctx).
		Model(&models.ProductModel{}).
		Where("sku = ?", sku).
		Updates(map[string]any{
			"destination_id":    destinationID,
			"fingerprint":       fingerprint,
			"last_pushed_state": pushed,
			"last_pushed_at":    pushedAt,
		})
	if result.Error != nil {
		return wrapPersistence("update push state", result.Error)
	}
	if result.RowsAffected == 0 {
		return sync.ErrProductNotFound
	}
	return nil
}

// CountTotal counts all mirrored products
func (r *GormProductRepository) CountTotal(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.ProductModel{}).Count(&count).Error; err != nil {
		return 0, wrapPersistence("count products", err)
	}
	return count, nil
}

// CountPushed counts products that have been pushed at least once
func (r *GormProductRepository) CountPushed(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.ProductModel{}).
		Where("last_pushed_at IS NOT NULL").
		Count(&count).Error; err != nil {
		return 0, wrapPersistence("count pushed products", err)
	}
	return count, nil
}

// CountSyncedSince counts products touched by the sync since the given time
func (r *GormProductRepository) CountSyncedSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.ProductModel{}).
		Where("last_synced_at >= ?", since).
		Count(&count).Error; err != nil {
		return 0, wrapPersistence("count synced products", err)
	}
	return count, nil
}

// wrapPersistence tags a database error so callers can classify it
func wrapPersistence(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", sync.ErrPersistence, op, err)
}

// Ensure GormProductRepository implements sync.ProductRepository
var _ sync.ProductRepository = (*GormProductRepository)(nil)
