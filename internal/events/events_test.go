package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"demo/ordercrm/internal/model"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func header(m kafka.Message, key string) string {
	for _, h := range m.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestNop(t *testing.T) {
	require.NoError(t, Nop{}.Publish(context.Background(), Event{Type: TypeOrderIngested}))
}

func TestKafkaPublisher_Message(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaPublisher{writer: w, logger: zap.NewNop()}
	ts := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

	err := p.Publish(context.Background(), Event{
		Type:      TypeOrderStatusChanged,
		OrderID:   "555",
		Status:    model.StatusDispatched,
		Timestamp: ts,
	})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)

	m := w.msgs[0]
	require.Equal(t, "555", string(m.Key))
	require.Equal(t, ts, m.Time)
	require.Equal(t, TypeOrderStatusChanged, header(m, "event-type"))
	require.Equal(t, "application/json", header(m, "content-type"))

	var got Event
	require.NoError(t, json.Unmarshal(m.Value, &got))
	require.Equal(t, "555", got.OrderID)
	require.Equal(t, model.StatusDispatched, got.Status)
	require.True(t, ts.Equal(got.Timestamp))
}

func TestKafkaPublisher_WriteError(t *testing.T) {
	boom := errors.New("leader not available")
	p := &KafkaPublisher{writer: &fakeWriter{err: boom}, logger: zap.NewNop()}

	err := p.Publish(context.Background(), Event{Type: TypeOrderIngested, OrderID: "1"})
	require.ErrorIs(t, err, boom)
	require.Contains(t, err.Error(), TypeOrderIngested)
}
