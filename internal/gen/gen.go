package gen

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/segmentio/kafka-go"

	"demo/ordercrm/internal/model"
)

func SeedOnce() { gofakeit.Seed(time.Now().UnixNano()) }

var gateways = []string{"razorpay", "shopify_payments", "Cash on Delivery (COD)", "gokwik", "cod"}

// FakePayload returns a Shopify-shaped order webhook body.
func FakePayload() map[string]any {
	return fakePayload("#" + gofakeit.DigitN(5))
}

// FakeDemoPayload is like FakePayload but numbered as a demo order.
func FakeDemoPayload() map[string]any {
	return fakePayload(model.DemoPrefix + gofakeit.DigitN(4))
}

func fakePayload(name string) map[string]any {
	first, last := gofakeit.FirstName(), gofakeit.LastName()
	phone := "+91" + gofakeit.DigitN(10)

	n := gofakeit.Number(1, 3)
	items := make([]map[string]any, 0, n)
	total := 0.0
	for i := 0; i < n; i++ {
		qty := gofakeit.Number(1, 4)
		price := float64(gofakeit.Number(199, 4999))
		total += price * float64(qty)
		items = append(items, map[string]any{
			"id":            gofakeit.Number(1e8, 9e8),
			"title":         gofakeit.ProductName(),
			"variant_title": gofakeit.RandomString([]string{"S", "M", "L", "XL"}),
			"quantity":      qty,
			"price":         strconv.FormatFloat(price, 'f', 2, 64),
			"vendor":        gofakeit.Company(),
			"product_id":    gofakeit.Number(1e8, 9e8),
			"variant_id":    gofakeit.Number(1e8, 9e8),
		})
	}

	addr := func() map[string]any {
		return map[string]any{
			"first_name": first,
			"last_name":  last,
			"address1":   gofakeit.Street(),
			"address2":   "",
			"city":       gofakeit.City(),
			"province":   gofakeit.State(),
			"zip":        gofakeit.Zip(),
			"country":    "India",
			"phone":      phone,
		}
	}

	created := time.Now().Add(-time.Duration(gofakeit.Number(0, 72*60)) * time.Minute)
	return map[string]any{
		"id":    gofakeit.Number(1e9, 2e9),
		"name":  name,
		"email": gofakeit.Email(),
		"phone": phone,
		"customer": map[string]any{
			"first_name": first,
			"last_name":  last,
			"email":      gofakeit.Email(),
		},
		"billing_address":       addr(),
		"shipping_address":      addr(),
		"payment_gateway_names": []string{gofakeit.RandomString(gateways)},
		"line_items":            items,
		"current_total_price":   strconv.FormatFloat(total, 'f', 2, 64),
		"currency":              "INR",
		"financial_status":      gofakeit.RandomString([]string{"pending", "paid", "authorized"}),
		"fulfillment_status":    nil,
		"created_at":            created.Format(time.RFC3339),
	}
}

// Writer is the part of *kafka.Writer SendPayload needs.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// SendPayload writes one webhook body to the webhook topic, keyed by order id.
// It returns the key used.
func SendPayload(ctx context.Context, w Writer, payload map[string]any, source string) (string, error) {
	key := fmt.Sprint(payload["id"])
	val, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	err = w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: val,
		Time:  time.Now(),
		Headers: []kafka.Header{
			{Key: "content-type", Value: []byte("application/json")},
			{Key: "source", Value: []byte(source)},
		},
	})
	if err != nil {
		return "", err
	}
	return key, nil
}
