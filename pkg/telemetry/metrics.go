package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric names for observable state. Counters and histograms are owned by
// the components that increment them.
const (
	MetricOrdersTracked      = "ordersync_orders_tracked"
	MetricViewerSlotOccupied = "ordersync_viewer_slot_occupied"
	MetricSyncAuthenticated  = "ordersync_authenticated"
)

// MetricsHolder holds state observed by the registered gauges
type MetricsHolder struct {
	OrdersTracked metric.Int64ObservableGauge
	ViewerSlot    metric.Int64ObservableGauge
	Authenticated metric.Int64ObservableGauge

	mu              sync.RWMutex
	ordersTracked   int64
	authenticated   int64
	viewerSlotState map[string]int64 // slot name -> 0/1
}

var (
	globalMetrics *MetricsHolder
	initOnce      sync.Once
)

// GetGlobalMetrics returns the singleton metrics holder
func GetGlobalMetrics() *MetricsHolder {
	initOnce.Do(func() {
		globalMetrics = &MetricsHolder{
			viewerSlotState: make(map[string]int64),
		}
	})
	return globalMetrics
}

// InitMetrics registers the observable gauges on the meter
func (m *MetricsHolder) InitMetrics(meter metric.Meter) error {
	var err error

	m.OrdersTracked, err = meter.Int64ObservableGauge(MetricOrdersTracked, metric.WithDescription("Orders currently held in the local collection"),
		metric.WithInt64Callback(func(ctx context.Context, obs metric.Int64Observer) error {
			m.mu.RLock()
			defer m.mu.RUnlock()
			obs.Observe(m.ordersTracked)
			return nil
		}))
	if err != nil {
		return err
	}

	m.ViewerSlot, err = meter.Int64ObservableGauge(MetricViewerSlotOccupied, metric.WithDescription("Viewer selection slot occupancy (1=occupied)"),
		metric.WithInt64Callback(func(ctx context.Context, obs metric.Int64Observer) error {
			m.mu.RLock()
			defer m.mu.RUnlock()
			for slot, val := range m.viewerSlotState {
				obs.Observe(val, metric.WithAttributes(attribute.String("slot", slot)))
			}
			return nil
		}))
	if err != nil {
		return err
	}

	m.Authenticated, err = meter.Int64ObservableGauge(MetricSyncAuthenticated, metric.WithDescription("Whether the polling loop currently has an authenticated actor"),
		metric.WithInt64Callback(func(ctx context.Context, obs metric.Int64Observer) error {
			m.mu.RLock()
			defer m.mu.RUnlock()
			obs.Observe(m.authenticated)
			return nil
		}))
	if err != nil {
		return err
	}

	return nil
}

// Helpers to update observable state

func (m *MetricsHolder) SetOrdersTracked(count int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ordersTracked = count
}

func (m *MetricsHolder) SetAuthenticated(authed bool) {
	val := int64(0)
	if authed {
		val = 1
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.authenticated = val
}

func (m *MetricsHolder) SetViewerSlotOccupied(slot string, occupied bool) {
	val := int64(0)
	if occupied {
		val = 1
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.viewerSlotState[slot] = val
}
