package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mediator/backend/internal/domain/sync"
	"github.com/mediator/backend/internal/infrastructure/persistence/models"
)

// GormAuditRepository implements sync.AuditRecorder using GORM.
// Runs, log entries and item errors are append-only; only the run row is
// ever updated, and only to close it.
type GormAuditRepository struct {
	db *gorm.DB
}

// NewGormAuditRepository creates a new GormAuditRepository
func NewGormAuditRepository(db *gorm.DB) *GormAuditRepository {
	return &GormAuditRepository{db: db}
}

// CreateRun opens a run record
func (r *GormAuditRepository) CreateRun(ctx context.Context, run *sync.Run) error {
	var model models.SyncRunModel
	model.FromDomain(run)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return wrapPersistence("create run", err)
	}
	return nil
}

// CloseRun writes the final counters and status of a run
func (r *GormAuditRepository) CloseRun(ctx context.Context, run *sync.Run) error {
	var model models.SyncRunModel
	model.FromDomain(run)
	if err := r.db.WithContext(ctx).Save(&model).Error; err != nil {
		return wrapPersistence("close run", err)
	}
	return nil
}

// RecordEntry appends one successful push to the audit log
func (r *GormAuditRepository) RecordEntry(ctx context.Context, entry *sync.LogEntry) error {
	var model models.SyncLogModel
	if err := model.FromDomain(entry); err != nil {
		return wrapPersistence("encode log entry", err)
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return wrapPersistence("record log entry", err)
	}
	return nil
}

// RecordError appends one item-level failure
func (r *GormAuditRepository) RecordError(ctx context.Context, itemErr *sync.ItemError) error {
	var model models.SyncErrorModel
	model.FromDomain(itemErr)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return wrapPersistence("record item error", err)
	}
	return nil
}

// LastRun returns the most recently started run
func (r *GormAuditRepository) LastRun(ctx context.Context) (*sync.Run, error) {
	var model models.SyncRunModel
	if err := r.db.WithContext(ctx).Order("started_at DESC").First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, sync.ErrRunNotFound
		}
		return nil, wrapPersistence("find last run", err)
	}
	return model.ToDomain(), nil
}

// GetEntry returns one audit log entry by ID
func (r *GormAuditRepository) GetEntry(ctx context.Context, id uuid.UUID) (*sync.LogEntry, error) {
	var model models.SyncLogModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, sync.ErrEntryNotFound
		}
		return nil, wrapPersistence("find log entry", err)
	}
	entry, err := model.ToDomain()
	if err != nil {
		return nil, wrapPersistence("decode log entry", err)
	}
	return entry, nil
}

// ListEntries returns a page of audit log entries, newest first, optionally
// filtered by SKU or product name
func (r *GormAuditRepository) ListEntries(ctx context.Context, filter sync.LogFilter) ([]sync.LogEntry, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.SyncLogModel{})
	if filter.Query != "" {
		pattern := "%" + filter.Query + "%"
		query = query.Where("sku ILIKE ? OR product_name ILIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, wrapPersistence("count log entries", err)
	}

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	var rows []models.SyncLogModel
	if err := query.Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, 0, wrapPersistence("list log entries", err)
	}

	entries := make([]sync.LogEntry, 0, len(rows))
	for i := range rows {
		entry, err := rows[i].ToDomain()
		if err != nil {
			return nil, 0, wrapPersistence("decode log entry", err)
		}
		entries = append(entries, *entry)
	}
	return entries, total, nil
}

// ListErrors returns all item errors recorded for a run, oldest first
func (r *GormAuditRepository) ListErrors(ctx context.Context, runID uuid.UUID) ([]sync.ItemError, error) {
	var rows []models.SyncErrorModel
	if err := r.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, wrapPersistence("list item errors", err)
	}

	itemErrors := make([]sync.ItemError, 0, len(rows))
	for i := range rows {
		itemErrors = append(itemErrors, *rows[i].ToDomain())
	}
	return itemErrors, nil
}

// Ensure GormAuditRepository implements sync.AuditRecorder
var _ sync.AuditRecorder = (*GormAuditRepository)(nil)
