package model

import (
	"strings"
	"time"
)

// DemoPrefix marks synthetic orders that are hidden from listings and stats.
const DemoPrefix = "#DEMO"

// IsDemo reports whether an order number follows the demo convention.
func IsDemo(orderNumber string) bool { return strings.HasPrefix(orderNumber, DemoPrefix) }

const (
	PaymentCOD     = "COD"
	PaymentPrepaid = "Prepaid"
)

// Order is the canonical record kept per external order id.
type Order struct {
	InternalID        string         `json:"id" bson:"id"`
	StoreID           string         `json:"_id,omitempty" bson:"-"`
	OrderID           string         `json:"order_id" bson:"order_id"`
	OrderNumber       string         `json:"order_number" bson:"order_number"`
	CustomerName      string         `json:"customer_name" bson:"customer_name"`
	Phone             string         `json:"phone" bson:"phone"`
	Email             string         `json:"email" bson:"email"`
	Products          []Product      `json:"products" bson:"products"`
	TotalPrice        string         `json:"total_price" bson:"total_price"`
	Currency          string         `json:"currency" bson:"currency"`
	FinancialStatus   string         `json:"financial_status" bson:"financial_status"`
	FulfillmentStatus *string        `json:"fulfillment_status" bson:"fulfillment_status"`
	PaymentMethod     string         `json:"payment_method" bson:"payment_method"`
	BillingAddress    Address        `json:"billing_address" bson:"billing_address"`
	ShippingAddress   Address        `json:"shipping_address" bson:"shipping_address"`
	CreatedAt         time.Time      `json:"created_at" bson:"created_at"`
	LocalStatus       Status         `json:"local_status" bson:"local_status"`
	StatusUpdatedAt   *time.Time     `json:"status_updated_at" bson:"status_updated_at"`
	Notes             string         `json:"notes" bson:"notes"`
	RawPayload        map[string]any `json:"webhook_data,omitempty" bson:"webhook_data,omitempty"`
}

// Product is one line item. Fields absent from the webhook stay nil; ids and
// quantity keep whatever JSON type the platform sent.
type Product struct {
	ID           any     `json:"id" bson:"id"`
	Title        *string `json:"title" bson:"title"`
	VariantTitle *string `json:"variant_title" bson:"variant_title"`
	Quantity     any     `json:"quantity" bson:"quantity"`
	Price        *string `json:"price" bson:"price"`
	Vendor       *string `json:"vendor" bson:"vendor"`
	ProductID    any     `json:"product_id" bson:"product_id"`
	VariantID    any     `json:"variant_id" bson:"variant_id"`
}

// Address keeps every platform field as received plus the derived full_address.
type Address map[string]any

func (a Address) String(key string) string {
	if v, ok := a[key].(string); ok {
		return v
	}
	return ""
}

// FullAddress joins address1 and address2.
func (a Address) FullAddress() string {
	return strings.TrimSpace(a.String("address1") + " " + a.String("address2"))
}
