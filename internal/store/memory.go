package store

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"demo/ordercrm/internal/model"
)

// Memory is a thread-safe in-process Repository.
type Memory struct {
	mu   sync.RWMutex
	seq  int64
	data map[string]memRow
}

type memRow struct {
	seq   int64
	order model.Order
}

func NewMemory() *Memory { return &Memory{data: make(map[string]memRow)} }

func (m *Memory) FindByOrderID(_ context.Context, orderID string) (model.Order, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.data[orderID]
	if !ok {
		return model.Order{}, false, nil
	}
	return r.order, true, nil
}

func (m *Memory) Insert(_ context.Context, o model.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[o.OrderID]; ok {
		return errDuplicate(o.OrderID)
	}
	m.seq++
	o.StoreID = strconv.FormatInt(m.seq, 10)
	m.data[o.OrderID] = memRow{seq: m.seq, order: o}
	return nil
}

func (m *Memory) Replace(_ context.Context, o model.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.data[o.OrderID]
	if !ok {
		return ErrNotFound
	}
	o.StoreID = r.order.StoreID
	m.data[o.OrderID] = memRow{seq: r.seq, order: o}
	return nil
}

func (m *Memory) List(_ context.Context, q ListQuery) ([]model.Order, error) {
	m.mu.RLock()
	rows := make([]memRow, 0, len(m.data))
	for _, r := range m.data {
		if model.IsDemo(r.order.OrderNumber) {
			continue
		}
		if q.Status != "" && r.order.LocalStatus != q.Status {
			continue
		}
		rows = append(rows, r)
	}
	m.mu.RUnlock()

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].order.CreatedAt.Equal(rows[j].order.CreatedAt) {
			return rows[i].seq > rows[j].seq
		}
		return rows[i].order.CreatedAt.After(rows[j].order.CreatedAt)
	})
	if q.Limit > 0 && len(rows) > q.Limit {
		rows = rows[:q.Limit]
	}
	out := make([]model.Order, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.order)
	}
	return out, nil
}

func (m *Memory) SetStatus(_ context.Context, orderID string, st model.Status, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.data[orderID]
	if !ok {
		return false, nil
	}
	r.order.LocalStatus = st
	r.order.StatusUpdatedAt = &at
	m.data[orderID] = r
	return true, nil
}

func (m *Memory) SetNotes(_ context.Context, orderID, notes string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.data[orderID]
	if !ok {
		return false, nil
	}
	r.order.Notes = notes
	m.data[orderID] = r
	return true, nil
}

func (m *Memory) CountByStatus(_ context.Context) (map[model.Status]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[model.Status]int64)
	for _, r := range m.data {
		if model.IsDemo(r.order.OrderNumber) {
			continue
		}
		out[r.order.LocalStatus]++
	}
	return out, nil
}

func (m *Memory) DeleteDemo(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, r := range m.data {
		if model.IsDemo(r.order.OrderNumber) {
			delete(m.data, id)
			n++
		}
	}
	return n, nil
}

func (m *Memory) Ping(context.Context) error { return nil }
