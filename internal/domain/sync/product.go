package sync

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// SourceRecord
// ---------------------------------------------------------------------------

// SourceRecord is one product as read from the catalog API. Measurements are
// SI (grams, centimeters); optional fields are nil when the catalog does not
// carry them. Immutable once fetched.
type SourceRecord struct {
	SourceID           int64
	SKU                string
	Name               string
	UPC                string
	ASIN               string
	BuyerSKU           string
	HSCode             string
	CountryOfOrigin    string
	CustomsDescription string
	WeightG            *decimal.Decimal
	LengthCM           *decimal.Decimal
	WidthCM            *decimal.Decimal
	HeightCM           *decimal.Decimal
	ImageURL           string
	ModifiedAt         time.Time
}

// ---------------------------------------------------------------------------
// NormalizedProduct
// ---------------------------------------------------------------------------

// NormalizedProduct is the canonical view of a product: SI measurements,
// identifying codes, customs fields. It is derived deterministically from a
// SourceRecord and feeds the fingerprint, the outbound payload and the
// stored last-pushed snapshot.
type NormalizedProduct struct {
	SourceID           int64            `json:"source_id"`
	SKU                string           `json:"sku"`
	Name               string           `json:"name"`
	UPC                string           `json:"upc"`
	ASIN               string           `json:"asin"`
	BuyerSKU           string           `json:"buyer_sku"`
	HSCode             string           `json:"hs_code"`
	CountryOfOrigin    string           `json:"country_of_origin"`
	CustomsDescription string           `json:"customs_description"`
	WeightG            *decimal.Decimal `json:"weight_g"`
	LengthCM           *decimal.Decimal `json:"length_cm"`
	WidthCM            *decimal.Decimal `json:"width_cm"`
	HeightCM           *decimal.Decimal `json:"height_cm"`
	ImageURL           string           `json:"image_url"`
	ModifiedAt         time.Time        `json:"modified_at"`
}

// Normalize converts a SourceRecord into its canonical form.
// A record without a SKU cannot be pushed and fails validation.
func Normalize(rec SourceRecord) (NormalizedProduct, error) {
	if rec.SKU == "" {
		return NormalizedProduct{}, fmt.Errorf("%w: source record %d has no SKU", ErrValidation, rec.SourceID)
	}
	name := rec.Name
	if name == "" {
		name = rec.SKU
	}
	return NormalizedProduct{
		SourceID:           rec.SourceID,
		SKU:                rec.SKU,
		Name:               name,
		UPC:                rec.UPC,
		ASIN:               rec.ASIN,
		BuyerSKU:           rec.BuyerSKU,
		HSCode:             rec.HSCode,
		CountryOfOrigin:    rec.CountryOfOrigin,
		CustomsDescription: rec.CustomsDescription,
		WeightG:            rec.WeightG,
		LengthCM:           rec.LengthCM,
		WidthCM:            rec.WidthCM,
		HeightCM:           rec.HeightCM,
		ImageURL:           rec.ImageURL,
		ModifiedAt:         rec.ModifiedAt.UTC(),
	}, nil
}

// Payload builds the outbound destination payload, converting canonical SI
// measurements to imperial at the client boundary. Absent measurements stay
// absent; they are never substituted with zero.
func (n NormalizedProduct) Payload() DestinationPayload {
	return DestinationPayload{
		SKU:                  n.SKU,
		Name:                 n.Name,
		Barcode:              optionalString(n.UPC),
		TariffCode:           optionalString(n.HSCode),
		CountryOfManufacture: optionalString(n.CountryOfOrigin),
		CustomsDescription:   optionalString(n.CustomsDescription),
		WeightOz:             convertOptional(n.WeightG, GramsToOunces),
		LengthIn:             convertOptional(n.LengthCM, CentimetersToInches),
		WidthIn:              convertOptional(n.WidthCM, CentimetersToInches),
		HeightIn:             convertOptional(n.HeightCM, CentimetersToInches),
	}
}

// DestinationPayload is the create/update input for the fulfillment API,
// in the destination's imperial units rounded to two decimal places.
type DestinationPayload struct {
	SKU                  string           `json:"sku"`
	Name                 string           `json:"name"`
	Barcode              *string          `json:"barcode"`
	TariffCode           *string          `json:"tariff_code"`
	CountryOfManufacture *string          `json:"country_of_manufacture"`
	CustomsDescription   *string          `json:"customs_description"`
	WeightOz             *decimal.Decimal `json:"weight"`
	LengthIn             *decimal.Decimal `json:"length"`
	WidthIn              *decimal.Decimal `json:"width"`
	HeightIn             *decimal.Decimal `json:"height"`
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// ---------------------------------------------------------------------------
// Product (local mirror)
// ---------------------------------------------------------------------------

// Product is the locally mirrored product row. It carries the last pushed
// fingerprint and the destination's product ID alongside the canonical data.
type Product struct {
	ID                 int64
	SourceID           int64
	SKU                string
	Name               string
	UPC                string
	ASIN               string
	BuyerSKU           string
	HSCode             string
	CountryOfOrigin    string
	CustomsDescription string
	WeightG            *decimal.Decimal
	LengthCM           *decimal.Decimal
	WidthCM            *decimal.Decimal
	HeightCM           *decimal.Decimal
	ImageURL           string
	SourceModifiedAt   time.Time
	DestinationID      string
	Fingerprint        string
	// LastPushedState is the canonical view the destination last
	// acknowledged, nil before the first push. Diffs are taken against it
	// so a retried push still reports what actually changed downstream.
	LastPushedState *NormalizedProduct
	LastPushedAt    *time.Time
	LastSyncedAt       *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Apply overwrites the mirrored catalog fields with the normalized view.
// Push-tracking fields (DestinationID, Fingerprint, LastPushedAt) are owned
// by the push path and left untouched.
func (p *Product) Apply(n NormalizedProduct, now time.Time) {
	p.SourceID = n.SourceID
	p.SKU = n.SKU
	p.Name = n.Name
	p.UPC = n.UPC
	p.ASIN = n.ASIN
	p.BuyerSKU = n.BuyerSKU
	p.HSCode = n.HSCode
	p.CountryOfOrigin = n.CountryOfOrigin
	p.CustomsDescription = n.CustomsDescription
	p.WeightG = n.WeightG
	p.LengthCM = n.LengthCM
	p.WidthCM = n.WidthCM
	p.HeightCM = n.HeightCM
	p.ImageURL = n.ImageURL
	p.SourceModifiedAt = n.ModifiedAt
	p.LastSyncedAt = &now
}

// Normalized rebuilds the canonical view from the mirrored row.
func (p *Product) Normalized() NormalizedProduct {
	return NormalizedProduct{
		SourceID:           p.SourceID,
		SKU:                p.SKU,
		Name:               p.Name,
		UPC:                p.UPC,
		ASIN:               p.ASIN,
		BuyerSKU:           p.BuyerSKU,
		HSCode:             p.HSCode,
		CountryOfOrigin:    p.CountryOfOrigin,
		CustomsDescription: p.CustomsDescription,
		WeightG:            p.WeightG,
		LengthCM:           p.LengthCM,
		WidthCM:            p.WidthCM,
		HeightCM:           p.HeightCM,
		ImageURL:           p.ImageURL,
		ModifiedAt:         p.SourceModifiedAt,
	}
}

// ---------------------------------------------------------------------------
// Field diff
// ---------------------------------------------------------------------------

// FieldChange records one changed field for the audit trail.
type FieldChange struct {
	Old any `json:"old"`
	New any `json:"new"`
}

// Diff compares the previous canonical view against the new one and returns
// the changed fields. A nil old view (first sync) yields the full snapshot
// with nil old values.
func Diff(old *NormalizedProduct, updated NormalizedProduct) map[string]FieldChange {
	changes := make(map[string]FieldChange)

	compareString := func(field, o, n string, created bool) {
		if created {
			changes[field] = FieldChange{Old: nil, New: stringOrNil(n)}
			return
		}
		if o != n {
			changes[field] = FieldChange{Old: stringOrNil(o), New: stringOrNil(n)}
		}
	}
	compareDecimal := func(field string, o, n *decimal.Decimal, created bool) {
		if created {
			changes[field] = FieldChange{Old: nil, New: decimalOrNil(n)}
			return
		}
		if !decimalEqual(o, n) {
			changes[field] = FieldChange{Old: decimalOrNil(o), New: decimalOrNil(n)}
		}
	}

	created := old == nil
	prev := NormalizedProduct{}
	if !created {
		prev = *old
	}

	compareString("sku", prev.SKU, updated.SKU, created)
	compareString("name", prev.Name, updated.Name, created)
	compareString("upc", prev.UPC, updated.UPC, created)
	compareString("asin", prev.ASIN, updated.ASIN, created)
	compareString("buyer_sku", prev.BuyerSKU, updated.BuyerSKU, created)
	compareString("hs_code", prev.HSCode, updated.HSCode, created)
	compareString("country_of_origin", prev.CountryOfOrigin, updated.CountryOfOrigin, created)
	compareString("customs_description", prev.CustomsDescription, updated.CustomsDescription, created)
	compareString("image_url", prev.ImageURL, updated.ImageURL, created)
	compareDecimal("weight_g", prev.WeightG, updated.WeightG, created)
	compareDecimal("length_cm", prev.LengthCM, updated.LengthCM, created)
	compareDecimal("width_cm", prev.WidthCM, updated.WidthCM, created)
	compareDecimal("height_cm", prev.HeightCM, updated.HeightCM, created)

	return changes
}

func stringOrNil(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func decimalOrNil(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	f, _ := d.Float64()
	return f
}

func decimalEqual(a, b *decimal.Decimal) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
