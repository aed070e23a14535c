package fulfil

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// productsResponse is the page envelope of the products endpoint. The API
// has shipped several envelope shapes over time; every known list key is
// tried in order.
type productsResponse struct {
	Data       []productPayload `json:"data"`
	Products   []productPayload `json:"products"`
	Results    []productPayload `json:"results"`
	Items      []productPayload `json:"items"`
	Next       string           `json:"next"`
	HasMore    *bool            `json:"has_more"`
	Page       int              `json:"page"`
	TotalPages int              `json:"total_pages"`
}

// list returns whichever list key the envelope carried.
func (r *productsResponse) list() []productPayload {
	switch {
	case r.Data != nil:
		return r.Data
	case r.Products != nil:
		return r.Products
	case r.Results != nil:
		return r.Results
	case r.Items != nil:
		return r.Items
	}
	return nil
}

// hasMore is best-effort detection of additional pages across the envelope
// shapes. A full page with no pagination hints is assumed to have more.
func (r *productsResponse) hasMore(count, perPage int) bool {
	if r.Next != "" {
		return true
	}
	if r.HasMore != nil {
		return *r.HasMore
	}
	if r.Page > 0 && r.TotalPages > 0 {
		return r.Page < r.TotalPages
	}
	return count >= perPage
}

// productPayload is one product as the catalog API represents it.
type productPayload struct {
	ID        int64          `json:"id"`
	Code      string         `json:"code"`
	Name      string         `json:"name"`
	Codes     []productCode  `json:"codes"`
	Weight    *weightData    `json:"weight"`
	Dims      *dimensionData `json:"dimensions"`
	Customs   *customsData   `json:"customs_information"`
	ImageURL  string         `json:"image_url"`
	UpdatedAt string         `json:"updated_at"`
	WriteDate string         `json:"write_date"`
}

// productCode is one identifying code (upc, asin, buyer_sku).
type productCode struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// weightData carries the product weight in grams.
type weightData struct {
	WeightGM *decimal.Decimal `json:"weight_gm"`
}

// dimensionData carries the product dimensions in centimeters.
type dimensionData struct {
	LengthCM *decimal.Decimal `json:"length_cm"`
	WidthCM  *decimal.Decimal `json:"width_cm"`
	HeightCM *decimal.Decimal `json:"height_cm"`
}

// customsData carries the customs declaration fields.
type customsData struct {
	HSCode             string `json:"hs_code"`
	CountryOfOrigin    string `json:"country_of_origin"`
	CustomsDescription string `json:"customs_description"`
}

// decodeProductsResponse handles both the envelope object and the raw-list
// response shape.
func decodeProductsResponse(body []byte) (*productsResponse, error) {
	var raw []productPayload
	if err := json.Unmarshal(body, &raw); err == nil {
		return &productsResponse{Data: raw}, nil
	}

	var resp productsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
