// Package mock provides an in-memory order backend for tests and local runs.
package mock

import (
	"context"
	"fmt"
	"sync"

	"ordersync/internal/core"
	apperrors "ordersync/pkg/errors"
)

// MockTransport implements core.Transport against an in-memory order map.
// Failure switches let tests exercise the rollback and denial paths.
type MockTransport struct {
	mu     sync.RWMutex
	orders map[string]*core.Order
	seq    []string

	failList   bool
	failCreate bool
	failUpdate bool
	failDelete bool

	listCalls   int
	createCalls int
	updateCalls int
	deleteCalls int
}

func NewMockTransport() *MockTransport {
	return &MockTransport{orders: make(map[string]*core.Order)}
}

// Seed installs an order server-side without going through CreateOrder.
func (m *MockTransport) Seed(o *core.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.orders[o.ID]; !exists {
		m.seq = append(m.seq, o.ID)
	}
	m.orders[o.ID] = o.Clone()
}

// SetStatus mutates an order server-side, simulating another client.
func (m *MockTransport) SetStatus(id, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o, ok := m.orders[id]; ok {
		o.Status = status
	}
}

func (m *MockTransport) FailList(fail bool)   { m.mu.Lock(); m.failList = fail; m.mu.Unlock() }
func (m *MockTransport) FailCreate(fail bool) { m.mu.Lock(); m.failCreate = fail; m.mu.Unlock() }
func (m *MockTransport) FailUpdate(fail bool) { m.mu.Lock(); m.failUpdate = fail; m.mu.Unlock() }
func (m *MockTransport) FailDelete(fail bool) { m.mu.Lock(); m.failDelete = fail; m.mu.Unlock() }

func (m *MockTransport) ListCalls() int   { m.mu.RLock(); defer m.mu.RUnlock(); return m.listCalls }
func (m *MockTransport) CreateCalls() int { m.mu.RLock(); defer m.mu.RUnlock(); return m.createCalls }
func (m *MockTransport) UpdateCalls() int { m.mu.RLock(); defer m.mu.RUnlock(); return m.updateCalls }
func (m *MockTransport) DeleteCalls() int { m.mu.RLock(); defer m.mu.RUnlock(); return m.deleteCalls }

func (m *MockTransport) ListOrders(ctx context.Context) ([]*core.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	if m.failList {
		return nil, fmt.Errorf("%w: mock list failure", apperrors.ErrNetwork)
	}

	out := make([]*core.Order, 0, len(m.seq))
	for _, id := range m.seq {
		if o, ok := m.orders[id]; ok {
			out = append(out, o.Clone())
		}
	}
	return out, nil
}

func (m *MockTransport) CreateOrder(ctx context.Context, order *core.Order) (*core.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls++
	if m.failCreate {
		return nil, fmt.Errorf("%w: mock create failure", apperrors.ErrNetwork)
	}

	// Idempotency: re-submitting an already-known id returns the stored order.
	if existing, ok := m.orders[order.ID]; ok {
		return existing.Clone(), nil
	}
	m.orders[order.ID] = order.Clone()
	m.seq = append(m.seq, order.ID)
	return order.Clone(), nil
}

func (m *MockTransport) UpdateOrder(ctx context.Context, id string, patch core.OrderPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateCalls++
	if m.failUpdate {
		return fmt.Errorf("%w: mock update failure", apperrors.ErrNetwork)
	}

	cur, ok := m.orders[id]
	if !ok {
		return apperrors.ErrOrderNotFound
	}
	m.orders[id] = patch.Apply(cur)
	return nil
}

func (m *MockTransport) DeleteOrder(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteCalls++
	if m.failDelete {
		return fmt.Errorf("%w: mock delete failure", apperrors.ErrNetwork)
	}

	if _, ok := m.orders[id]; !ok {
		return apperrors.ErrOrderNotFound
	}
	delete(m.orders, id)
	for i, sid := range m.seq {
		if sid == id {
			m.seq = append(m.seq[:i], m.seq[i+1:]...)
			break
		}
	}
	return nil
}
