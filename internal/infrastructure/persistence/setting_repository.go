package persistence

import (
	"context"
	"strconv"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mediator/backend/internal/domain/sync"
	"github.com/mediator/backend/internal/infrastructure/persistence/models"
)

// Setting keys. Values are stored as strings and parsed on read.
const (
	settingPollInterval   = "poll_interval"
	settingPageSize       = "page_size"
	settingMaxRetries     = "max_retries"
	settingBaseRetryDelay = "base_retry_delay"
	settingMode           = "mode"
)

// GormSettingRepository implements sync.SettingsStore using GORM.
// Settings live as key/value rows; keys missing from the table fall back to
// the defaults the repository was constructed with.
type GormSettingRepository struct {
	db       *gorm.DB
	defaults sync.Settings
}

// NewGormSettingRepository creates a new GormSettingRepository
func NewGormSettingRepository(db *gorm.DB, defaults sync.Settings) *GormSettingRepository {
	return &GormSettingRepository{db: db, defaults: defaults}
}

// Get returns the effective settings
func (r *GormSettingRepository) Get(ctx context.Context) (sync.Settings, error) {
	var rows []models.SyncSettingModel
	if err := r.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return sync.Settings{}, wrapPersistence("load settings", err)
	}

	settings := r.defaults
	for _, row := range rows {
		switch row.Key {
		case settingPollInterval:
			if d, err := time.ParseDuration(row.Value); err == nil && d > 0 {
				settings.PollInterval = d
			}
		case settingPageSize:
			if n, err := strconv.Atoi(row.Value); err == nil && n > 0 {
				settings.PageSize = n
			}
		case settingMaxRetries:
			if n, err := strconv.Atoi(row.Value); err == nil && n >= 0 {
				settings.MaxRetries = n
			}
		case settingBaseRetryDelay:
			if d, err := time.ParseDuration(row.Value); err == nil && d > 0 {
				settings.BaseRetryDelay = d
			}
		case settingMode:
			if m := sync.Mode(row.Value); m == sync.ModeLive || m == sync.ModeTest {
				settings.Mode = m
			}
		}
	}
	return settings, nil
}

// Update persists all settings in one transaction
func (r *GormSettingRepository) Update(ctx context.Context, settings sync.Settings) error {
	rows := []models.SyncSettingModel{
		{Key: settingPollInterval, Value: settings.PollInterval.String()},
		{Key: settingPageSize, Value: strconv.Itoa(settings.PageSize)},
		{Key: settingMaxRetries, Value: strconv.Itoa(settings.MaxRetries)},
		{Key: settingBaseRetryDelay, Value: settings.BaseRetryDelay.String()},
		{Key: settingMode, Value: string(settings.Mode)},
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range rows {
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "key"}},
				DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
			}).Create(&rows[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return wrapPersistence("update settings", err)
	}
	return nil
}

// Ensure GormSettingRepository implements sync.SettingsStore
var _ sync.SettingsStore = (*GormSettingRepository)(nil)
