package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"demo/ordercrm/internal/events"
	"demo/ordercrm/internal/ingest"
	"demo/ordercrm/internal/metrics"
	"demo/ordercrm/internal/model"
	"demo/ordercrm/internal/store"
	"demo/ordercrm/internal/validate"
)

// ListLimit caps GET /orders.
const ListLimit = 100

var (
	ErrProcessing     = errors.New("error processing webhook")
	ErrInvalidPayload = errors.New("invalid payload")
	ErrInvalidStatus  = errors.New("invalid status")
	ErrNotFound       = errors.New("order not found")
)

type Service struct {
	repo    store.Repository
	events  events.Publisher
	metrics *metrics.Registry
	logger  *zap.Logger
	now     func() time.Time
}

type Option func(*Service)

func WithPublisher(p events.Publisher) Option { return func(s *Service) { s.events = p } }
func WithMetrics(m *metrics.Registry) Option  { return func(s *Service) { s.metrics = m } }
func WithLogger(l *zap.Logger) Option         { return func(s *Service) { s.logger = l } }
func WithClock(now func() time.Time) Option   { return func(s *Service) { s.now = now } }

func New(repo store.Repository, opts ...Option) *Service {
	s := &Service{
		repo:    repo,
		events:  events.Nop{},
		metrics: metrics.NewRegistry(),
		logger:  zap.NewNop(),
		now:     time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Ingest normalizes one webhook body and upserts it by external order id.
// Local fields of an existing record survive; everything platform-sourced is
// replaced. The read and the write are not atomic.
func (s *Service) Ingest(ctx context.Context, source string, body []byte) (model.Order, error) {
	o, created, err := s.ingest(ctx, body)
	if err != nil {
		s.metrics.WebhooksProcessed.WithLabelValues(source, "error").Inc()
		return model.Order{}, fmt.Errorf("%w: %w", ErrProcessing, err)
	}
	s.metrics.WebhooksProcessed.WithLabelValues(source, "ok").Inc()

	s.logger.Info("processed order",
		zap.String("order_number", o.OrderNumber),
		zap.String("customer", o.CustomerName),
		zap.String("order_id", o.OrderID),
		zap.Bool("created", created),
		zap.String("source", source))

	s.publish(ctx, events.Event{
		Type:        events.TypeOrderIngested,
		OrderID:     o.OrderID,
		OrderNumber: o.OrderNumber,
		Status:      o.LocalStatus,
		Created:     created,
		Timestamp:   s.now().UTC(),
	})
	return o, nil
}

func (s *Service) ingest(ctx context.Context, body []byte) (model.Order, bool, error) {
	p, raw, err := ingest.Decode(body)
	if err != nil {
		return model.Order{}, false, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	if err := validate.Payload(p); err != nil {
		return model.Order{}, false, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	o, warnings := ingest.Normalize(p, raw, s.now())
	for _, w := range warnings {
		s.logger.Warn("payload normalized with fallback", zap.String("order_id", o.OrderID), zap.String("reason", w))
	}

	existing, found, err := s.repo.FindByOrderID(ctx, o.OrderID)
	if err != nil {
		return model.Order{}, false, fmt.Errorf("lookup order %s: %w", o.OrderID, err)
	}
	if !found {
		if err := s.repo.Insert(ctx, o); err != nil {
			return model.Order{}, false, fmt.Errorf("insert order %s: %w", o.OrderID, err)
		}
		return o, true, nil
	}

	carryLocal(&o, existing)
	if err := s.repo.Replace(ctx, o); err != nil {
		return model.Order{}, false, fmt.Errorf("replace order %s: %w", o.OrderID, err)
	}
	return o, false, nil
}

func carryLocal(dst *model.Order, existing model.Order) {
	dst.LocalStatus = existing.LocalStatus
	if dst.LocalStatus == "" {
		dst.LocalStatus = model.StatusNew
	}
	dst.StatusUpdatedAt = existing.StatusUpdatedAt
	dst.Notes = existing.Notes
	if existing.InternalID != "" {
		dst.InternalID = existing.InternalID
	}
	dst.StoreID = existing.StoreID
}

// ListOrders returns up to ListLimit non-demo orders, newest first.
func (s *Service) ListOrders(ctx context.Context, status string) ([]model.Order, error) {
	return s.repo.List(ctx, store.ListQuery{Status: model.Status(status), Limit: ListLimit})
}

func (s *Service) GetOrder(ctx context.Context, orderID string) (model.Order, error) {
	o, ok, err := s.repo.FindByOrderID(ctx, orderID)
	if err != nil {
		return model.Order{}, err
	}
	if !ok {
		return model.Order{}, ErrNotFound
	}
	return o, nil
}

// UpdateStatus sets the local status. Any status may follow any other.
func (s *Service) UpdateStatus(ctx context.Context, orderID, status string) (time.Time, error) {
	st, err := validate.Status(status)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %w", ErrInvalidStatus, err)
	}
	at := s.now().UTC()
	ok, err := s.repo.SetStatus(ctx, orderID, st, at)
	if err != nil {
		return time.Time{}, fmt.Errorf("update status of %s: %w", orderID, err)
	}
	if !ok {
		return time.Time{}, ErrNotFound
	}
	s.metrics.StatusUpdates.WithLabelValues(string(st)).Inc()
	s.logger.Info("order status updated", zap.String("order_id", orderID), zap.String("status", string(st)))

	s.publish(ctx, events.Event{
		Type:      events.TypeOrderStatusChanged,
		OrderID:   orderID,
		Status:    st,
		Timestamp: at,
	})
	return at, nil
}

func (s *Service) UpdateNotes(ctx context.Context, orderID, notes string) error {
	ok, err := s.repo.SetNotes(ctx, orderID, notes)
	if err != nil {
		return fmt.Errorf("update notes of %s: %w", orderID, err)
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// Stats counts non-demo orders per local status. Empty statuses are absent.
func (s *Service) Stats(ctx context.Context) (map[string]int64, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(counts))
	for st, n := range counts {
		if n > 0 {
			out[string(st)] = n
		}
	}
	return out, nil
}

func (s *Service) ClearDemo(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteDemo(ctx)
	if err != nil {
		return 0, err
	}
	s.metrics.DemoCleared.Add(float64(n))
	s.logger.Info("demo orders cleared", zap.Int64("count", n))
	return n, nil
}

func (s *Service) Ping(ctx context.Context) error { return s.repo.Ping(ctx) }

func (s *Service) publish(ctx context.Context, ev events.Event) {
	if err := s.events.Publish(ctx, ev); err != nil {
		s.metrics.EventErrors.Inc()
		s.logger.Error("publish event failed",
			zap.String("type", ev.Type),
			zap.String("order_id", ev.OrderID),
			zap.Error(err))
	}
}
