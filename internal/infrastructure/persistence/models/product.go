package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mediator/backend/internal/domain/sync"
)

// ProductModel is the persistence model for the local product mirror.
// LastPushedState is the JSON-encoded canonical view the destination last
// acknowledged.
type ProductModel struct {
	ID                 int64            `gorm:"primaryKey;autoIncrement"`
	SourceID           int64            `gorm:"not null;uniqueIndex"`
	SKU                string           `gorm:"type:varchar(255);not null;uniqueIndex"`
	Name               string           `gorm:"type:varchar(500);not null"`
	UPC                string           `gorm:"type:varchar(64)"`
	ASIN               string           `gorm:"type:varchar(64)"`
	BuyerSKU           string           `gorm:"type:varchar(255)"`
	HSCode             string           `gorm:"type:varchar(32)"`
	CountryOfOrigin    string           `gorm:"type:varchar(8)"`
	CustomsDescription string           `gorm:"type:text"`
	WeightG            *decimal.Decimal `gorm:"type:numeric(12,3)"`
	LengthCM           *decimal.Decimal `gorm:"type:numeric(12,3)"`
	WidthCM            *decimal.Decimal `gorm:"type:numeric(12,3)"`
	HeightCM           *decimal.Decimal `gorm:"type:numeric(12,3)"`
	ImageURL           string           `gorm:"type:text"`
	SourceModifiedAt   time.Time        `gorm:"not null;index"`
	DestinationID      string           `gorm:"type:varchar(64);index"`
	Fingerprint        string           `gorm:"type:char(64)"`
	LastPushedState    []byte           `gorm:"type:jsonb"`
	LastPushedAt       *time.Time
	LastSyncedAt       *time.Time `gorm:"index"`
	CreatedAt          time.Time  `gorm:"not null"`
	UpdatedAt          time.Time  `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// ToDomain converts the persistence model to a domain Product
func (m *ProductModel) ToDomain() (*sync.Product, error) {
	var pushed *sync.NormalizedProduct
	if len(m.LastPushedState) > 0 {
		pushed = &sync.NormalizedProduct{}
		if err := json.Unmarshal(m.LastPushedState, pushed); err != nil {
			return nil, fmt.Errorf("decode pushed state for product %s: %w", m.SKU, err)
		}
	}
	return &sync.Product{
		ID:                 m.ID,
		SourceID:           m.SourceID,
		SKU:                m.SKU,
		Name:               m.Name,
		UPC:                m.UPC,
		ASIN:               m.ASIN,
		BuyerSKU:           m.BuyerSKU,
		HSCode:             m.HSCode,
		CountryOfOrigin:    m.CountryOfOrigin,
		CustomsDescription: m.CustomsDescription,
		WeightG:            m.WeightG,
		LengthCM:           m.LengthCM,
		WidthCM:            m.WidthCM,
		HeightCM:           m.HeightCM,
		ImageURL:           m.ImageURL,
		SourceModifiedAt:   m.SourceModifiedAt,
		DestinationID:      m.DestinationID,
		Fingerprint:        m.Fingerprint,
		LastPushedState:    pushed,
		LastPushedAt:       m.LastPushedAt,
		LastSyncedAt:       m.LastSyncedAt,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}, nil
}

// FromDomain populates the persistence model from a domain Product
func (m *ProductModel) FromDomain(p *sync.Product) error {
	var pushed []byte
	if p.LastPushedState != nil {
		var err error
		pushed, err = json.Marshal(p.LastPushedState)
		if err != nil {
			return fmt.Errorf("encode pushed state for product %s: %w", p.SKU, err)
		}
	}
	m.ID = p.ID
	m.SourceID = p.SourceID
	m.SKU = p.SKU
	m.Name = p.Name
	m.UPC = p.UPC
	m.ASIN = p.ASIN
	m.BuyerSKU = p.BuyerSKU
	m.HSCode = p.HSCode
	m.CountryOfOrigin = p.CountryOfOrigin
	m.CustomsDescription = p.CustomsDescription
	m.WeightG = p.WeightG
	m.LengthCM = p.LengthCM
	m.WidthCM = p.WidthCM
	m.HeightCM = p.HeightCM
	m.ImageURL = p.ImageURL
	m.SourceModifiedAt = p.SourceModifiedAt
	m.DestinationID = p.DestinationID
	m.Fingerprint = p.Fingerprint
	m.LastPushedState = pushed
	m.LastPushedAt = p.LastPushedAt
	m.LastSyncedAt = p.LastSyncedAt
	m.CreatedAt = p.CreatedAt
	m.UpdatedAt = p.UpdatedAt
	return nil
}
