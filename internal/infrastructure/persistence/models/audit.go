package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mediator/backend/internal/domain/sync"
)

// SyncRunModel is the persistence model for one sync cycle.
type SyncRunModel struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	StartedAt  time.Time `gorm:"not null;index"`
	FinishedAt *time.Time
	Status     string `gorm:"type:varchar(20);not null;index"`
	Polled     int    `gorm:"not null"`
	Pushed     int    `gorm:"not null"`
	Skipped    int    `gorm:"not null"`
	Failed     int    `gorm:"not null"`
	Error      string `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (SyncRunModel) TableName() string {
	return "sync_runs"
}

// ToDomain converts the persistence model to a domain Run
func (m *SyncRunModel) ToDomain() *sync.Run {
	return &sync.Run{
		ID:         m.ID,
		StartedAt:  m.StartedAt,
		FinishedAt: m.FinishedAt,
		Status:     sync.RunStatus(m.Status),
		Polled:     m.Polled,
		Pushed:     m.Pushed,
		Skipped:    m.Skipped,
		Failed:     m.Failed,
		Error:      m.Error,
	}
}

// FromDomain populates the persistence model from a domain Run
func (m *SyncRunModel) FromDomain(r *sync.Run) {
	m.ID = r.ID
	m.StartedAt = r.StartedAt
	m.FinishedAt = r.FinishedAt
	m.Status = string(r.Status)
	m.Polled = r.Polled
	m.Pushed = r.Pushed
	m.Skipped = r.Skipped
	m.Failed = r.Failed
	m.Error = r.Error
}

// SyncLogModel is the persistence model for one successful push.
// ChangedFields is the JSON-encoded field diff.
type SyncLogModel struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	RunID         uuid.UUID `gorm:"type:uuid;not null;index"`
	SKU           string    `gorm:"type:varchar(255);not null;index"`
	ProductName   string    `gorm:"type:varchar(500);not null"`
	Action        string    `gorm:"type:varchar(20);not null"`
	ChangedFields []byte    `gorm:"type:jsonb"`
	CreatedAt     time.Time `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (SyncLogModel) TableName() string {
	return "sync_logs"
}

// ToDomain converts the persistence model to a domain LogEntry
func (m *SyncLogModel) ToDomain() (*sync.LogEntry, error) {
	var changes map[string]sync.FieldChange
	if len(m.ChangedFields) > 0 {
		if err := json.Unmarshal(m.ChangedFields, &changes); err != nil {
			return nil, fmt.Errorf("decode changed fields for log %s: %w", m.ID, err)
		}
	}
	return &sync.LogEntry{
		ID:            m.ID,
		RunID:         m.RunID,
		SKU:           m.SKU,
		ProductName:   m.ProductName,
		Action:        sync.PushAction(m.Action),
		ChangedFields: changes,
		CreatedAt:     m.CreatedAt,
	}, nil
}

// FromDomain populates the persistence model from a domain LogEntry
func (m *SyncLogModel) FromDomain(e *sync.LogEntry) error {
	payload, err := json.Marshal(e.ChangedFields)
	if err != nil {
		return fmt.Errorf("encode changed fields for log %s: %w", e.ID, err)
	}
	m.ID = e.ID
	m.RunID = e.RunID
	m.SKU = e.SKU
	m.ProductName = e.ProductName
	m.Action = string(e.Action)
	m.ChangedFields = payload
	m.CreatedAt = e.CreatedAt
	return nil
}

// SyncErrorModel is the persistence model for one item-level failure.
type SyncErrorModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	RunID     uuid.UUID `gorm:"type:uuid;not null;index"`
	SKU       string    `gorm:"type:varchar(255);index"`
	SourceID  int64
	Class     string    `gorm:"type:varchar(32);not null"`
	Message   string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (SyncErrorModel) TableName() string {
	return "sync_errors"
}

// ToDomain converts the persistence model to a domain ItemError
func (m *SyncErrorModel) ToDomain() *sync.ItemError {
	return &sync.ItemError{
		ID:        m.ID,
		RunID:     m.RunID,
		SKU:       m.SKU,
		SourceID:  m.SourceID,
		Class:     sync.ErrorClass(m.Class),
		Message:   m.Message,
		CreatedAt: m.CreatedAt,
	}
}

// FromDomain populates the persistence model from a domain ItemError
func (m *SyncErrorModel) FromDomain(e *sync.ItemError) {
	m.ID = e.ID
	m.RunID = e.RunID
	m.SKU = e.SKU
	m.SourceID = e.SourceID
	m.Class = string(e.Class)
	m.Message = e.Message
	m.CreatedAt = e.CreatedAt
}
