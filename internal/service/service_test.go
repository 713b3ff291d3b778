// internal/service/service_test.go
package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"demo/ordercrm/internal/events"
	"demo/ordercrm/internal/model"
	"demo/ordercrm/internal/store"
	"demo/ordercrm/internal/store/storemock"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

type recordingPublisher struct {
	got []events.Event
	err error
}

func (p *recordingPublisher) Publish(_ context.Context, ev events.Event) error {
	p.got = append(p.got, ev)
	return p.err
}

func newService(t *testing.T) (*Service, *storemock.MockRepository, *recordingPublisher) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	repo := storemock.NewMockRepository(ctrl)
	pub := &recordingPublisher{}
	svc := New(repo, WithPublisher(pub), WithClock(func() time.Time { return testNow }))
	return svc, repo, pub
}

const webhook555 = `{
	"id": 555,
	"name": "#9001",
	"customer": {"first_name": "Ravi", "last_name": "K"},
	"payment_gateway_names": ["Cash on Delivery"],
	"created_at": "2025-04-30T09:00:00Z"
}`

func TestService_Ingest_NewOrderInserted(t *testing.T) {
	svc, repo, pub := newService(t)

	repo.EXPECT().FindByOrderID(gomock.Any(), "555").Return(model.Order{}, false, nil)
	var saved model.Order
	repo.EXPECT().Insert(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, o model.Order) error {
		saved = o
		return nil
	})

	o, err := svc.Ingest(context.Background(), "webhook", []byte(webhook555))
	require.NoError(t, err)
	require.Equal(t, "555", o.OrderID)
	require.Equal(t, saved, o)
	require.Equal(t, model.StatusNew, saved.LocalStatus)
	require.Nil(t, saved.StatusUpdatedAt)
	require.Equal(t, "", saved.Notes)
	require.Equal(t, model.PaymentCOD, saved.PaymentMethod)
	require.NotEmpty(t, saved.InternalID)

	require.Len(t, pub.got, 1)
	require.Equal(t, events.TypeOrderIngested, pub.got[0].Type)
	require.True(t, pub.got[0].Created)
}

func TestService_Ingest_ReingestPreservesLocalFields(t *testing.T) {
	svc, repo, _ := newService(t)

	changed := testNow.Add(-time.Hour)
	existing := model.Order{
		InternalID:      "internal-1",
		StoreID:         "7",
		OrderID:         "555",
		OrderNumber:     "#9001",
		CustomerName:    "Old Name",
		LocalStatus:     model.StatusConfirmed,
		StatusUpdatedAt: &changed,
		Notes:           "call before delivery",
	}
	repo.EXPECT().FindByOrderID(gomock.Any(), "555").Return(existing, true, nil)
	var saved model.Order
	repo.EXPECT().Replace(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, o model.Order) error {
		saved = o
		return nil
	})

	_, err := svc.Ingest(context.Background(), "webhook", []byte(webhook555))
	require.NoError(t, err)
	require.Equal(t, model.StatusConfirmed, saved.LocalStatus)
	require.Equal(t, &changed, saved.StatusUpdatedAt)
	require.Equal(t, "call before delivery", saved.Notes)
	require.Equal(t, "internal-1", saved.InternalID)
	require.Equal(t, "Ravi K", saved.CustomerName)
}

func TestService_Ingest_MissingStatusDefaultsToNew(t *testing.T) {
	svc, repo, _ := newService(t)

	repo.EXPECT().FindByOrderID(gomock.Any(), "555").Return(model.Order{OrderID: "555"}, true, nil)
	repo.EXPECT().Replace(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, o model.Order) error {
		require.Equal(t, model.StatusNew, o.LocalStatus)
		require.NotEmpty(t, o.InternalID)
		return nil
	})

	_, err := svc.Ingest(context.Background(), "webhook", []byte(webhook555))
	require.NoError(t, err)
}

func TestService_Ingest_InvalidPayloadNoWrites(t *testing.T) {
	svc, _, pub := newService(t)

	for _, body := range []string{`not json`, `[1,2]`, `{"name": "#1"}`, `{"id": "  "}`, `{"id": true}`} {
		_, err := svc.Ingest(context.Background(), "webhook", []byte(body))
		require.Error(t, err, body)
		require.ErrorIs(t, err, ErrProcessing)
		require.ErrorIs(t, err, ErrInvalidPayload)
	}
	require.Empty(t, pub.got)
}

func TestService_Ingest_LenientCreatedAt(t *testing.T) {
	svc, repo, _ := newService(t)

	cases := map[string]time.Time{
		`{"id": 1, "created_at": "2025-04-30 09:00:00"}`: time.Date(2025, 4, 30, 9, 0, 0, 0, time.UTC),
		`{"id": 1, "created_at": "2025-04-30T09:00:00"}`: time.Date(2025, 4, 30, 9, 0, 0, 0, time.UTC),
		`{"id": 1, "created_at": "last tuesday"}`:        testNow,
	}
	for body, want := range cases {
		repo.EXPECT().FindByOrderID(gomock.Any(), "1").Return(model.Order{}, false, nil)
		repo.EXPECT().Insert(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, o model.Order) error {
			require.True(t, want.Equal(o.CreatedAt), "%s stored %s", body, o.CreatedAt)
			return nil
		})

		_, err := svc.Ingest(context.Background(), "webhook", []byte(body))
		require.NoError(t, err, body)
	}
}

func TestService_Ingest_MixedTypeLineItems(t *testing.T) {
	svc, repo, _ := newService(t)

	repo.EXPECT().FindByOrderID(gomock.Any(), "1").Return(model.Order{}, false, nil)
	repo.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(nil)

	o, err := svc.Ingest(context.Background(), "webhook",
		[]byte(`{"id": 1, "line_items": [{"quantity": "2", "product_id": "gid://shopify/Product/1"}]}`))
	require.NoError(t, err)
	require.Equal(t, "2", o.Products[0].Quantity)
	require.Equal(t, "gid://shopify/Product/1", o.Products[0].ProductID)
}

func TestService_Ingest_StoreFailure(t *testing.T) {
	svc, repo, _ := newService(t)

	boom := errors.New("connection refused")
	repo.EXPECT().FindByOrderID(gomock.Any(), "555").Return(model.Order{}, false, nil)
	repo.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(boom)

	_, err := svc.Ingest(context.Background(), "webhook", []byte(webhook555))
	require.ErrorIs(t, err, ErrProcessing)
	require.ErrorIs(t, err, boom)
	require.NotErrorIs(t, err, ErrInvalidPayload)
}

func TestService_Ingest_PublishFailureIgnored(t *testing.T) {
	svc, repo, pub := newService(t)
	pub.err = errors.New("broker down")

	repo.EXPECT().FindByOrderID(gomock.Any(), "555").Return(model.Order{}, false, nil)
	repo.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(nil)

	_, err := svc.Ingest(context.Background(), "webhook", []byte(webhook555))
	require.NoError(t, err)
}

func TestService_UpdateStatus(t *testing.T) {
	svc, repo, pub := newService(t)

	repo.EXPECT().SetStatus(gomock.Any(), "555", model.StatusDispatched, testNow).Return(true, nil)

	at, err := svc.UpdateStatus(context.Background(), "555", "dispatched")
	require.NoError(t, err)
	require.Equal(t, testNow, at)
	require.Len(t, pub.got, 1)
	require.Equal(t, events.TypeOrderStatusChanged, pub.got[0].Type)
	require.Equal(t, model.StatusDispatched, pub.got[0].Status)
}

func TestService_UpdateStatus_InvalidNeverTouchesStore(t *testing.T) {
	svc, _, _ := newService(t)

	_, err := svc.UpdateStatus(context.Background(), "555", "shipped")
	require.ErrorIs(t, err, ErrInvalidStatus)
	require.Contains(t, err.Error(), "Must be one of")
}

func TestService_UpdateStatus_NotFound(t *testing.T) {
	svc, repo, pub := newService(t)

	repo.EXPECT().SetStatus(gomock.Any(), "nope", model.StatusConfirmed, testNow).Return(false, nil)

	_, err := svc.UpdateStatus(context.Background(), "nope", "confirmed")
	require.ErrorIs(t, err, ErrNotFound)
	require.Empty(t, pub.got)
}

func TestService_UpdateStatus_AnyTransitionAllowed(t *testing.T) {
	svc, repo, _ := newService(t)

	repo.EXPECT().SetStatus(gomock.Any(), "1", gomock.Any(), gomock.Any()).Return(true, nil).Times(3)

	for _, st := range []string{"delivered", "new", "rto"} {
		_, err := svc.UpdateStatus(context.Background(), "1", st)
		require.NoError(t, err)
	}
}

func TestService_ListOrders(t *testing.T) {
	svc, repo, _ := newService(t)

	exp := []model.Order{{OrderID: "1"}}
	repo.EXPECT().List(gomock.Any(), store.ListQuery{Status: model.StatusNew, Limit: ListLimit}).Return(exp, nil)
	got, err := svc.ListOrders(context.Background(), "new")
	require.NoError(t, err)
	require.Equal(t, exp, got)

	repo.EXPECT().List(gomock.Any(), store.ListQuery{Limit: ListLimit}).Return(nil, nil)
	_, err = svc.ListOrders(context.Background(), "")
	require.NoError(t, err)
}

func TestService_GetOrder_NotFound(t *testing.T) {
	svc, repo, _ := newService(t)

	repo.EXPECT().FindByOrderID(gomock.Any(), "nope").Return(model.Order{}, false, nil)
	_, err := svc.GetOrder(context.Background(), "nope")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestService_Stats(t *testing.T) {
	svc, repo, _ := newService(t)

	repo.EXPECT().CountByStatus(gomock.Any()).Return(map[model.Status]int64{
		model.StatusNew:        3,
		model.StatusDispatched: 1,
		model.StatusRTO:        0,
	}, nil)

	got, err := svc.Stats(context.Background())
	require.NoError(t, err)
	require.Equal(t, map[string]int64{"new": 3, "dispatched": 1}, got)
}

func TestService_ClearDemo(t *testing.T) {
	svc, repo, _ := newService(t)

	repo.EXPECT().DeleteDemo(gomock.Any()).Return(int64(4), nil)
	n, err := svc.ClearDemo(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(4), n)
}

func TestService_UpdateNotes(t *testing.T) {
	svc, repo, _ := newService(t)

	repo.EXPECT().SetNotes(gomock.Any(), "555", "left at gate").Return(true, nil)
	require.NoError(t, svc.UpdateNotes(context.Background(), "555", "left at gate"))

	repo.EXPECT().SetNotes(gomock.Any(), "404", "x").Return(false, nil)
	require.ErrorIs(t, svc.UpdateNotes(context.Background(), "404", "x"), ErrNotFound)
}
