package shiphero

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mediator/backend/internal/domain/sync"
)

// GraphQL documents for the product mutations. The update mutation
// identifies the product by the sku inside the input object.
const (
	productCreateMutation = `mutation ($data: CreateProductInput!) {
  product_create(data: $data) {
    request_id
    product { id sku }
  }
}`

	productUpdateMutation = `mutation ($data: UpdateProductInput!) {
  product_update(data: $data) {
    request_id
    product { id sku }
  }
}`

	productsQuery = `query ($sku: String!) {
  products(sku: $sku) {
    request_id
    data {
      edges {
        node {
          id
          sku
          name
          barcode
          dimensions { weight height width length }
        }
      }
    }
  }
}`
)

// graphqlRequest is the request body of every GraphQL call.
type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

// graphqlError is one error in a GraphQL response.
type graphqlError struct {
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	Code    int    `json:"code,omitempty"`
}

// graphqlResponse is the envelope of every GraphQL response.
type graphqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphqlError  `json:"errors"`
}

// messages joins all error messages for wrapping.
func (r *graphqlResponse) messages() string {
	msgs := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		msgs = append(msgs, e.Message)
	}
	return strings.Join(msgs, "; ")
}

// hasAlreadyExists reports whether any error is the SKU conflict signal
// the create mutation emits for a known SKU.
func (r *graphqlResponse) hasAlreadyExists() bool {
	for _, e := range r.Errors {
		msg := strings.ToLower(e.Message)
		if strings.Contains(msg, "already exists") || strings.Contains(msg, "duplicate") {
			return true
		}
	}
	return false
}

// hasExpiredToken reports whether any error is an access token rejection.
func (r *graphqlResponse) hasExpiredToken() bool {
	for _, e := range r.Errors {
		msg := strings.ToLower(e.Message)
		if strings.Contains(msg, "token") && (strings.Contains(msg, "expired") || strings.Contains(msg, "invalid")) {
			return true
		}
		if strings.Contains(msg, "not authenticated") || strings.Contains(msg, "unauthorized") {
			return true
		}
	}
	return false
}

// dimensionsInput carries the imperial measurements. The API takes them as
// strings.
type dimensionsInput struct {
	Weight string `json:"weight,omitempty"`
	Length string `json:"length,omitempty"`
	Width  string `json:"width,omitempty"`
	Height string `json:"height,omitempty"`
}

// productInput is the mutation input built from the outbound payload.
type productInput struct {
	SKU                  string           `json:"sku"`
	Name                 string           `json:"name"`
	Barcode              *string          `json:"barcode,omitempty"`
	TariffCode           *string          `json:"tariff_code,omitempty"`
	CountryOfManufacture *string          `json:"country_of_manufacture,omitempty"`
	CustomsDescription   *string          `json:"customs_description,omitempty"`
	Dimensions           *dimensionsInput `json:"dimensions,omitempty"`
}

// newProductInput maps the canonical outbound payload onto the mutation
// input shape.
func newProductInput(payload sync.DestinationPayload) productInput {
	input := productInput{
		SKU:                  payload.SKU,
		Name:                 payload.Name,
		Barcode:              payload.Barcode,
		TariffCode:           payload.TariffCode,
		CountryOfManufacture: payload.CountryOfManufacture,
		CustomsDescription:   payload.CustomsDescription,
	}

	dims := dimensionsInput{
		Weight: decimalString(payload.WeightOz),
		Length: decimalString(payload.LengthIn),
		Width:  decimalString(payload.WidthIn),
		Height: decimalString(payload.HeightIn),
	}
	if dims != (dimensionsInput{}) {
		input.Dimensions = &dims
	}
	return input
}

func decimalString(d *decimal.Decimal) string {
	if d == nil {
		return ""
	}
	return d.String()
}

// productNode is the API's view of a product.
type productNode struct {
	ID         string          `json:"id"`
	SKU        string          `json:"sku"`
	Name       string          `json:"name"`
	Barcode    string          `json:"barcode"`
	Dimensions *dimensionsNode `json:"dimensions"`
}

type dimensionsNode struct {
	Weight string `json:"weight"`
	Length string `json:"length"`
	Width  string `json:"width"`
	Height string `json:"height"`
}

// mutationResult is the payload of product_create and product_update.
type mutationResult struct {
	RequestID string       `json:"request_id"`
	Product   *productNode `json:"product"`
}

type productCreateData struct {
	ProductCreate mutationResult `json:"product_create"`
}

type productUpdateData struct {
	ProductUpdate mutationResult `json:"product_update"`
}

// productsQueryData is the connection-shaped products query result.
type productsQueryData struct {
	Products struct {
		RequestID string `json:"request_id"`
		Data      struct {
			Edges []struct {
				Node productNode `json:"node"`
			} `json:"edges"`
		} `json:"data"`
	} `json:"products"`
}

// refreshRequest is the body of the token refresh call.
type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// refreshResponse is the token refresh result.
type refreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}
