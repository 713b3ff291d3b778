package ingest

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"demo/ordercrm/internal/model"
)

const (
	defaultCurrency   = "INR"
	defaultTotalPrice = "0"
)

// Layouts tried for created_at, most specific first. Zoneless values are UTC.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
}

// ParseTimestamp reads a platform timestamp in any of the accepted layouts.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

// Normalize builds a fresh order from a validated payload. Local fields are set
// to their first-ingestion values; the caller carries over stored ones.
// Recoverable oddities in the payload come back as warnings.
func Normalize(p Payload, raw map[string]any, now time.Time) (model.Order, []string) {
	var warnings []string

	createdAt := now.UTC()
	if c := deref(p.CreatedAt); c != "" {
		t, err := ParseTimestamp(c)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("created_at: %v, using ingestion time", err))
		} else {
			createdAt = t
		}
	}

	var cust Customer
	if p.Customer != nil {
		cust = *p.Customer
	}
	var orderID string
	if p.ID != nil {
		orderID = string(*p.ID)
	}
	billing := enhanceAddress(p.BillingAddress)

	o := model.Order{
		InternalID:        uuid.NewString(),
		OrderID:           orderID,
		OrderNumber:       deref(p.Name),
		CustomerName:      strings.TrimSpace(deref(cust.FirstName) + " " + deref(cust.LastName)),
		Phone:             firstNonEmpty(billing.String("phone"), deref(p.Phone)),
		Email:             firstNonEmpty(deref(p.Email), deref(cust.Email)),
		Products:          products(p.LineItems),
		TotalPrice:        defaultTotalPrice,
		Currency:          defaultCurrency,
		FinancialStatus:   deref(p.FinancialStatus),
		FulfillmentStatus: p.FulfillmentStatus,
		PaymentMethod:     Classify(p.PaymentGatewayNames),
		BillingAddress:    billing,
		ShippingAddress:   enhanceAddress(p.ShippingAddress),
		CreatedAt:         createdAt,
		LocalStatus:       model.StatusNew,
		Notes:             "",
		RawPayload:        raw,
	}
	if p.CurrentTotalPrice != nil {
		o.TotalPrice = string(*p.CurrentTotalPrice)
	}
	if p.Currency != nil {
		o.Currency = *p.Currency
	}
	return o, warnings
}

// Classify maps payment gateway names to COD or Prepaid.
func Classify(gateways []string) string {
	for _, g := range gateways {
		u := strings.ToUpper(g)
		if strings.Contains(u, "COD") || strings.Contains(u, "CASH ON DELIVERY") {
			return model.PaymentCOD
		}
	}
	return model.PaymentPrepaid
}

func products(items []LineItem) []model.Product {
	out := make([]model.Product, 0, len(items))
	for _, it := range items {
		p := model.Product{
			ID:           plain(it.ID),
			Title:        it.Title,
			VariantTitle: it.VariantTitle,
			Quantity:     plain(it.Quantity),
			Vendor:       it.Vendor,
			ProductID:    plain(it.ProductID),
			VariantID:    plain(it.VariantID),
		}
		if it.Price != nil {
			s := string(*it.Price)
			p.Price = &s
		}
		out = append(out, p)
	}
	return out
}

// plain turns json.Number into int64 or float64, recursing into objects and
// arrays. Every other value is returned as is.
func plain(v any) any {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case map[string]any:
		for k, e := range x {
			x[k] = plain(e)
		}
		return x
	case []any:
		for i, e := range x {
			x[i] = plain(e)
		}
		return x
	}
	return v
}

func enhanceAddress(in map[string]any) model.Address {
	a := make(model.Address, len(in)+1)
	for k, v := range in {
		a[k] = plain(v)
	}
	a["full_address"] = a.FullAddress()
	return a
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
