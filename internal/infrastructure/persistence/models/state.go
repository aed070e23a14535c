package models

import (
	"time"

	"github.com/mediator/backend/internal/domain/sync"
)

// OAuthTokenModel is the persistence model for the fulfillment API
// credentials, one row per mode. Rows survive process restarts so a
// refreshed token is never lost.
type OAuthTokenModel struct {
	Mode         string    `gorm:"type:varchar(8);primaryKey"`
	AccessToken  string    `gorm:"type:text;not null"`
	RefreshToken string    `gorm:"type:text;not null"`
	ExpiresAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (OAuthTokenModel) TableName() string {
	return "oauth_tokens"
}

// ToDomain converts the persistence model to a domain Token
func (m *OAuthTokenModel) ToDomain() *sync.Token {
	return &sync.Token{
		Mode:         sync.Mode(m.Mode),
		AccessToken:  m.AccessToken,
		RefreshToken: m.RefreshToken,
		ExpiresAt:    m.ExpiresAt,
	}
}

// FromDomain populates the persistence model from a domain Token
func (m *OAuthTokenModel) FromDomain(t *sync.Token) {
	m.Mode = string(t.Mode)
	m.AccessToken = t.AccessToken
	m.RefreshToken = t.RefreshToken
	m.ExpiresAt = t.ExpiresAt
}

// SourceCursorModel is the persistence model for the poll watermark.
// A single row, advanced once per successful cycle.
type SourceCursorModel struct {
	ID             int64     `gorm:"primaryKey"`
	LastModifiedAt time.Time `gorm:"not null"`
	LastSourceID   int64     `gorm:"not null"`
	UpdatedAt      time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (SourceCursorModel) TableName() string {
	return "source_cursors"
}

// ToDomain converts the persistence model to a domain Cursor
func (m *SourceCursorModel) ToDomain() sync.Cursor {
	return sync.Cursor{
		LastModifiedAt: m.LastModifiedAt,
		LastSourceID:   m.LastSourceID,
	}
}

// FromDomain populates the persistence model from a domain Cursor
func (m *SourceCursorModel) FromDomain(c sync.Cursor) {
	m.LastModifiedAt = c.LastModifiedAt
	m.LastSourceID = c.LastSourceID
}

// SyncSettingModel is one engine setting as a key/value row. Operators may
// change these between cycles without a restart.
type SyncSettingModel struct {
	Key       string    `gorm:"type:varchar(64);primaryKey"`
	Value     string    `gorm:"type:varchar(255);not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (SyncSettingModel) TableName() string {
	return "sync_settings"
}
