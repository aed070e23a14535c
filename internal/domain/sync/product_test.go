package sync

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(v string) *decimal.Decimal {
	d := decimal.RequireFromString(v)
	return &d
}

func sampleRecord() SourceRecord {
	return SourceRecord{
		SourceID:        42,
		SKU:             "SKU1",
		Name:            "Widget",
		UPC:             "012345678905",
		HSCode:          "8517.12",
		CountryOfOrigin: "DE",
		WeightG:         dec("500"),
		LengthCM:        dec("10"),
		ModifiedAt:      time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestNormalize(t *testing.T) {
	t.Run("Valid record", func(t *testing.T) {
		n, err := Normalize(sampleRecord())
		require.NoError(t, err)
		assert.Equal(t, int64(42), n.SourceID)
		assert.Equal(t, "SKU1", n.SKU)
		assert.Equal(t, "Widget", n.Name)
		assert.True(t, n.WeightG.Equal(decimal.RequireFromString("500")))
		assert.Nil(t, n.WidthCM)
	})

	t.Run("Missing SKU fails validation", func(t *testing.T) {
		rec := sampleRecord()
		rec.SKU = ""
		_, err := Normalize(rec)
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("Name falls back to SKU", func(t *testing.T) {
		rec := sampleRecord()
		rec.Name = ""
		n, err := Normalize(rec)
		require.NoError(t, err)
		assert.Equal(t, "SKU1", n.Name)
	})

	t.Run("Deterministic", func(t *testing.T) {
		a, err := Normalize(sampleRecord())
		require.NoError(t, err)
		b, err := Normalize(sampleRecord())
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})
}

func TestPayloadConversion(t *testing.T) {
	n, err := Normalize(sampleRecord())
	require.NoError(t, err)

	payload := n.Payload()

	// 500 g -> 17.64 oz, 10 cm -> 3.94 in
	require.NotNil(t, payload.WeightOz)
	assert.Equal(t, "17.64", payload.WeightOz.String())
	require.NotNil(t, payload.LengthIn)
	assert.Equal(t, "3.94", payload.LengthIn.String())

	// Absent measurements stay absent, never zero
	assert.Nil(t, payload.WidthIn)
	assert.Nil(t, payload.HeightIn)

	assert.Equal(t, "SKU1", payload.SKU)
	require.NotNil(t, payload.Barcode)
	assert.Equal(t, "012345678905", *payload.Barcode)
	assert.Nil(t, payload.CustomsDescription)
}

func TestDiff(t *testing.T) {
	t.Run("First sync yields full snapshot with nil old values", func(t *testing.T) {
		n, err := Normalize(sampleRecord())
		require.NoError(t, err)

		changes := Diff(nil, n)
		require.Contains(t, changes, "sku")
		assert.Nil(t, changes["sku"].Old)
		assert.Equal(t, "SKU1", changes["sku"].New)
		assert.Contains(t, changes, "weight_g")
		assert.Equal(t, 500.0, changes["weight_g"].New)
		// Absent fields are present in the snapshot with nil new values
		assert.Nil(t, changes["width_cm"].New)
	})

	t.Run("Unchanged view yields no changes", func(t *testing.T) {
		n, err := Normalize(sampleRecord())
		require.NoError(t, err)
		changes := Diff(&n, n)
		assert.Empty(t, changes)
	})

	t.Run("Changed fields carry old and new", func(t *testing.T) {
		old, err := Normalize(sampleRecord())
		require.NoError(t, err)

		rec := sampleRecord()
		rec.Name = "Widget v2"
		rec.WeightG = dec("510")
		updated, err := Normalize(rec)
		require.NoError(t, err)

		changes := Diff(&old, updated)
		require.Len(t, changes, 2)
		assert.Equal(t, "Widget", changes["name"].Old)
		assert.Equal(t, "Widget v2", changes["name"].New)
		assert.Equal(t, 500.0, changes["weight_g"].Old)
		assert.Equal(t, 510.0, changes["weight_g"].New)
	})

	t.Run("Absent to present registers as change", func(t *testing.T) {
		old, err := Normalize(sampleRecord())
		require.NoError(t, err)

		rec := sampleRecord()
		rec.WidthCM = dec("5")
		updated, err := Normalize(rec)
		require.NoError(t, err)

		changes := Diff(&old, updated)
		require.Contains(t, changes, "width_cm")
		assert.Nil(t, changes["width_cm"].Old)
		assert.Equal(t, 5.0, changes["width_cm"].New)
	})
}

func TestProductApply(t *testing.T) {
	n, err := Normalize(sampleRecord())
	require.NoError(t, err)

	p := &Product{
		SKU:           "SKU1",
		DestinationID: "dest-123",
		Fingerprint:   "abc",
	}
	now := time.Now().UTC()
	p.Apply(n, now)

	assert.Equal(t, "Widget", p.Name)
	assert.Equal(t, n.ModifiedAt, p.SourceModifiedAt)
	require.NotNil(t, p.LastSyncedAt)
	assert.Equal(t, now, *p.LastSyncedAt)

	// Push-tracking fields belong to the push path
	assert.Equal(t, "dest-123", p.DestinationID)
	assert.Equal(t, "abc", p.Fingerprint)

	assert.Equal(t, n, p.Normalized())
}
