package ingest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// Payload is the subset of a platform order webhook the ingestor reads.
// Everything is optional; fallbacks are applied by Normalize.
type Payload struct {
	ID                  *FlexString    `json:"id"`
	Name                *string        `json:"name"`
	Email               *string        `json:"email"`
	Phone               *string        `json:"phone"`
	Customer            *Customer      `json:"customer"`
	BillingAddress      map[string]any `json:"billing_address"`
	ShippingAddress     map[string]any `json:"shipping_address"`
	PaymentGatewayNames []string       `json:"payment_gateway_names"`
	LineItems           []LineItem     `json:"line_items"`
	CurrentTotalPrice   *FlexString    `json:"current_total_price"`
	Currency            *string        `json:"currency"`
	FinancialStatus     *string        `json:"financial_status"`
	FulfillmentStatus   *string        `json:"fulfillment_status"`
	CreatedAt           *string        `json:"created_at"`
}

type Customer struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Email     *string `json:"email"`
}

// LineItem keeps numeric-looking fields untyped: platforms send ids as numbers,
// quoted numbers or GID strings, and quantities are not always numbers either.
type LineItem struct {
	ID           any         `json:"id"`
	Title        *string     `json:"title"`
	VariantTitle *string     `json:"variant_title"`
	Quantity     any         `json:"quantity"`
	Price        *FlexString `json:"price"`
	Vendor       *string     `json:"vendor"`
	ProductID    any         `json:"product_id"`
	VariantID    any         `json:"variant_id"`
}

// FlexString accepts a JSON string or number. Platforms disagree on whether
// ids and money amounts are quoted.
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return errors.New("flexstring: empty value")
	}
	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return err
		}
		*f = FlexString(n.String())
		return nil
	}
	return fmt.Errorf("flexstring: want string or number, got %s", strconv.Quote(string(b)))
}

// Decode parses a webhook body. It returns the typed view and the untouched
// object kept for audit.
func Decode(body []byte) (Payload, map[string]any, error) {
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return Payload{}, nil, fmt.Errorf("decode payload: %w", err)
	}
	if raw == nil {
		return Payload{}, nil, errors.New("decode payload: body must be a JSON object")
	}
	var p Payload
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&p); err != nil {
		return Payload{}, nil, fmt.Errorf("decode payload: %w", err)
	}
	return p, raw, nil
}
