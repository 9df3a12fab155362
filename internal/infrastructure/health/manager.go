// Package health aggregates component health checks for the daemon's
// liveness and readiness endpoints.
package health

import (
	"sync"

	"ordersync/internal/core"
)

// Check reports nil when the component is healthy.
type Check func() error

// Manager aggregates health status from registered components.
type Manager struct {
	logger core.Logger
	mu     sync.RWMutex
	checks map[string]Check
}

func NewManager(logger core.Logger) *Manager {
	m := &Manager{checks: make(map[string]Check)}
	if logger != nil {
		m.logger = logger.WithField("component", "health_manager")
	}
	return m
}

// Register adds a health check for a component.
func (m *Manager) Register(component string, check Check) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checks[component] = check
}

// Status returns the current status of all registered components.
func (m *Manager) Status() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	status := make(map[string]string, len(m.checks))
	for component, check := range m.checks {
		if err := check(); err != nil {
			status[component] = "unhealthy: " + err.Error()
		} else {
			status[component] = "healthy"
		}
	}
	return status
}

// Healthy reports whether every registered component passes its check.
func (m *Manager) Healthy() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for component, check := range m.checks {
		if err := check(); err != nil {
			if m.logger != nil {
				m.logger.Warn("Health check failed", "component", component, "error", err.Error())
			}
			return false
		}
	}
	return true
}
