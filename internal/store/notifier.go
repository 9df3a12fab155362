package store

import (
	"context"

	"ordersync/internal/core"
	"ordersync/pkg/telemetry"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Chimer fires the audible alert surface. notice.Center satisfies it.
type Chimer interface {
	Chime(ctx context.Context, orderID, status string)
}

// Notifier decides, per observed order state, whether the audible alert
// fires. The memory holds the last status a chime fired for, recorded only
// when firing, so re-observing the same status on later polls stays silent
// while a genuine re-entry into a notifiable status rings again.
type Notifier struct {
	pipeline core.Pipeline
	state    core.NotifyState
	chimer   Chimer
	logger   core.Logger

	chimeCounter metric.Int64Counter
}

func NewNotifier(pipeline core.Pipeline, state core.NotifyState, chimer Chimer, logger core.Logger) *Notifier {
	meter := telemetry.GetMeter("order-notifier")
	chimeCounter, _ := meter.Int64Counter("ordersync_chimes_total",
		metric.WithDescription("Audible order notifications fired"))

	return &Notifier{
		pipeline:     pipeline,
		state:        state,
		chimer:       chimer,
		logger:       logger.WithField("component", "notifier"),
		chimeCounter: chimeCounter,
	}
}

// Scan runs the notification trigger over a freshly observed collection.
// Orders that vanished from the collection are dropped from the memory so
// their ids cannot pin stale state.
func (n *Notifier) Scan(ctx context.Context, orders []*core.Order) {
	seen := make(map[string]struct{}, len(orders))
	for _, o := range orders {
		seen[o.ID] = struct{}{}
		n.Observe(ctx, o.ID, o.Status)
	}
	n.pruneVanished(seen)
}

// Observe applies the trigger to a single order state.
func (n *Notifier) Observe(ctx context.Context, orderID, status string) {
	if !n.pipeline.ShouldNotify(status) {
		return
	}
	if last, ok := n.state.LastNotified(orderID); ok && last == status {
		return
	}

	if err := n.state.Record(orderID, status); err != nil {
		n.logger.Error("Failed to record notification state",
			"order_id", orderID, "status", status, "error", err.Error())
	}
	n.chimeCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
	n.logger.Info("Audible notification fired", "order_id", orderID, "status", status)

	if n.chimer != nil {
		n.chimer.Chime(ctx, orderID, status)
	}
}

// Forget drops an order's notification memory, used after deletion.
func (n *Notifier) Forget(orderID string) {
	if err := n.state.Forget(orderID); err != nil {
		n.logger.Warn("Failed to forget notification state",
			"order_id", orderID, "error", err.Error())
	}
}

func (n *Notifier) pruneVanished(seen map[string]struct{}) {
	pruner, ok := n.state.(interface{ Known() []string })
	if !ok {
		return
	}
	for _, id := range pruner.Known() {
		if _, present := seen[id]; !present {
			n.Forget(id)
		}
	}
}
