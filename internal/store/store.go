package store

//go:generate mockgen -destination=storemock/mock_repository.go -package=storemock demo/ordercrm/internal/store Repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"demo/ordercrm/internal/model"
)

var (
	ErrNotFound  = errors.New("order not found")
	ErrDuplicate = errors.New("order already exists")
)

func errDuplicate(orderID string) error { return fmt.Errorf("%w: order_id=%s", ErrDuplicate, orderID) }

// ListQuery selects non-demo orders. An empty Status matches every status.
type ListQuery struct {
	Status model.Status
	Limit  int
}

// Repository is the order collection keyed by external order id.
// Demo orders are excluded from List and CountByStatus.
type Repository interface {
	FindByOrderID(ctx context.Context, orderID string) (model.Order, bool, error)
	Insert(ctx context.Context, o model.Order) error
	// Replace overwrites the stored order wholesale. ErrNotFound if it vanished.
	Replace(ctx context.Context, o model.Order) error
	List(ctx context.Context, q ListQuery) ([]model.Order, error)
	SetStatus(ctx context.Context, orderID string, st model.Status, at time.Time) (bool, error)
	SetNotes(ctx context.Context, orderID, notes string) (bool, error)
	CountByStatus(ctx context.Context) (map[model.Status]int64, error)
	DeleteDemo(ctx context.Context) (int64, error)
	Ping(ctx context.Context) error
}
