package store

import "sync"

// MemoryNotifyState keeps the chime memory in process memory. The default
// for tests and for deployments that accept a re-chime after restart.
type MemoryNotifyState struct {
	mu   sync.RWMutex
	last map[string]string
}

func NewMemoryNotifyState() *MemoryNotifyState {
	return &MemoryNotifyState{last: make(map[string]string)}
}

func (m *MemoryNotifyState) LastNotified(orderID string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	status, ok := m.last[orderID]
	return status, ok
}

func (m *MemoryNotifyState) Record(orderID, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.last[orderID] = status
	return nil
}

func (m *MemoryNotifyState) Forget(orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.last, orderID)
	return nil
}

func (m *MemoryNotifyState) Known() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.last))
	for id := range m.last {
		ids = append(ids, id)
	}
	return ids
}

func (m *MemoryNotifyState) Close() error {
	return nil
}
