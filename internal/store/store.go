// Package store owns the in-memory order collection and every mutation path
// against it: optimistic updates with rollback, permission-gated deletion,
// the refresh poll, and the viewer-selection slots that pin open detail
// views to the current representation of an order.
package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ordersync/internal/core"
	"ordersync/internal/notice"
	"ordersync/pkg/concurrency"
	apperrors "ordersync/pkg/errors"
	"ordersync/pkg/ids"
	"ordersync/pkg/telemetry"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ActorSource supplies the currently authenticated actor.
type ActorSource interface {
	Actor() *core.Actor
}

// Toaster surfaces recoverable failures to the UI boundary.
type Toaster interface {
	Toast(ctx context.Context, level notice.Level, title, message string, fields map[string]string)
}

// Store is the single ownership boundary for the order collection. All
// consumers read snapshots; all writes funnel through its methods, so the
// optimistic-apply/rollback logic lives in exactly one place.
type Store struct {
	transport core.Transport
	session   ActorSource
	gate      core.CapabilityGate
	confirmer core.Confirmer
	pipeline  core.Pipeline
	notifier  *Notifier
	toaster   Toaster
	pool      *concurrency.WorkerPool
	logger    core.Logger

	mu       sync.RWMutex
	orders   []*core.Order
	loading  bool
	lastSync time.Time
	viewing  *core.Order
	refusing *core.Order

	refreshMu  sync.RWMutex
	refreshFns []core.RefreshFunc

	placementCounter metric.Int64Counter
	updateCounter    metric.Int64Counter
	rollbackCounter  metric.Int64Counter
	deletionCounter  metric.Int64Counter
}

// New creates an order store. toaster and pool may be nil; callbacks then
// run inline, which tests rely on.
func New(
	transport core.Transport,
	session ActorSource,
	gate core.CapabilityGate,
	confirmer core.Confirmer,
	pipeline core.Pipeline,
	notifier *Notifier,
	toaster Toaster,
	pool *concurrency.WorkerPool,
	logger core.Logger,
) *Store {
	meter := telemetry.GetMeter("order-store")

	placementCounter, _ := meter.Int64Counter("ordersync_placements_total",
		metric.WithDescription("Total order placements attempted"))
	updateCounter, _ := meter.Int64Counter("ordersync_updates_total",
		metric.WithDescription("Total optimistic order updates attempted"))
	rollbackCounter, _ := meter.Int64Counter("ordersync_rollbacks_total",
		metric.WithDescription("Optimistic updates rolled back after transport failure"))
	deletionCounter, _ := meter.Int64Counter("ordersync_deletions_total",
		metric.WithDescription("Total order deletions attempted"))

	return &Store{
		transport:        transport,
		session:          session,
		gate:             gate,
		confirmer:        confirmer,
		pipeline:         pipeline,
		notifier:         notifier,
		toaster:          toaster,
		pool:             pool,
		logger:           logger.WithField("component", "order_store"),
		loading:          true,
		placementCounter: placementCounter,
		updateCounter:    updateCounter,
		rollbackCounter:  rollbackCounter,
		deletionCounter:  deletionCounter,
	}
}

// Orders returns an immutable snapshot of the collection.
func (s *Store) Orders() []*core.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := make([]*core.Order, len(s.orders))
	for i, o := range s.orders {
		snapshot[i] = o.Clone()
	}
	return snapshot
}

// Get returns a snapshot of a single order by id, or nil.
func (s *Store) Get(id string) *core.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, o := s.findLocked(id)
	return o.Clone()
}

// Loading reports whether the first fetch since login has not completed yet.
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// LastSyncAt returns when the collection last matched the remote service.
func (s *Store) LastSyncAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSync
}

// ViewingOrder returns the order currently opened in a detail view, or nil.
func (s *Store) ViewingOrder() *core.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.viewing.Clone()
}

// RefusingOrder returns the order currently undergoing the refusal workflow.
func (s *Store) RefusingOrder() *core.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refusing.Clone()
}

// SetViewingOrder pins the detail-view slot to the order with the given id.
// An unknown id clears the slot.
func (s *Store) SetViewingOrder(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, s.viewing = s.findLocked(id)
	s.publishSlotMetricsLocked()
}

// ClearViewingOrder empties the detail-view slot.
func (s *Store) ClearViewingOrder() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.viewing = nil
	s.publishSlotMetricsLocked()
}

// SetRefusingOrder pins the refusal-workflow slot to the order with the
// given id. An unknown id clears the slot.
func (s *Store) SetRefusingOrder(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, s.refusing = s.findLocked(id)
	s.publishSlotMetricsLocked()
}

// ClearRefusingOrder empties the refusal-workflow slot.
func (s *Store) ClearRefusingOrder() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refusing = nil
	s.publishSlotMetricsLocked()
}

// OnRefresh registers a collaborator callback (inventory, ledger) invoked
// after order creation and after updates that cross the completed status.
func (s *Store) OnRefresh(fn core.RefreshFunc) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()
	s.refreshFns = append(s.refreshFns, fn)
}

// Refresh performs one poll pass: fetch the full remote collection, replace
// the local one wholesale, repoint viewer slots, and run the notification
// trigger. Failures are logged and retried on the next tick by the caller.
func (s *Store) Refresh(ctx context.Context) error {
	orders, err := s.transport.ListOrders(ctx)
	if err != nil {
		s.logger.Warn("Order refresh failed", "error", err.Error())
		return err
	}

	s.mu.Lock()
	s.orders = orders
	s.loading = false
	s.lastSync = time.Now()
	// Repoint the viewer slots at the refreshed representation of the same
	// logical order, or clear them when the order vanished remotely.
	if s.viewing != nil {
		_, s.viewing = s.findLocked(s.viewing.ID)
	}
	if s.refusing != nil {
		_, s.refusing = s.findLocked(s.refusing.ID)
	}
	s.publishSlotMetricsLocked()
	telemetry.GetGlobalMetrics().SetOrdersTracked(int64(len(s.orders)))
	snapshot := make([]*core.Order, len(s.orders))
	copy(snapshot, s.orders)
	s.mu.Unlock()

	if s.notifier != nil {
		s.notifier.Scan(ctx, snapshot)
	}
	return nil
}

// Clear drops the local collection on logout. Empty list, not an error
// state; the loading flag rearms for the next login.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders = nil
	s.viewing = nil
	s.refusing = nil
	s.loading = true
	s.publishSlotMetricsLocked()
	telemetry.GetGlobalMetrics().SetOrdersTracked(0)
}

// PlaceOrder submits a draft order. Creation is synchronous-only: nothing is
// applied locally until the server confirms, so a failure rolls back nothing.
// When an actor is authenticated, the draft's customer identity and creator
// are overwritten with the actor's canonical values; client-supplied identity
// is untrusted once an actor is known.
func (s *Store) PlaceOrder(ctx context.Context, draft core.OrderDraft) (*core.Order, error) {
	s.placementCounter.Add(ctx, 1)

	customer := draft.Customer
	createdBy := ""
	if actor := s.session.Actor(); actor != nil {
		customer.UserID = actor.ID
		customer.Name = actor.Name
		customer.Mobile = actor.Mobile
		createdBy = actor.ID
	}

	createdAt := time.Now()
	order := &core.Order{
		ID:          ids.NewOrderID(createdAt),
		Items:       draft.Items,
		Total:       core.ComputeTotal(draft.Items),
		Status:      s.pipeline.InitialStatus(),
		CreatedAt:   createdAt,
		Type:        draft.Type,
		Customer:    customer,
		TableNumber: draft.TableNumber,
		CreatedBy:   createdBy,
		Notes:       draft.Notes,
	}

	confirmed, err := s.transport.CreateOrder(ctx, order)
	if err != nil {
		s.logger.Error("Order placement failed", "order_id", order.ID, "error", err.Error())
		return nil, fmt.Errorf("%w: %v", apperrors.ErrPlacementFailed, err)
	}

	s.mu.Lock()
	s.orders = append(s.orders, confirmed)
	telemetry.GetGlobalMetrics().SetOrdersTracked(int64(len(s.orders)))
	s.mu.Unlock()

	s.logger.Info("Order placed", "order_id", confirmed.ID, "status", confirmed.Status)
	s.fireRefreshCallbacks(ctx)
	return confirmed.Clone(), nil
}

// UpdateOrder applies a partial payload optimistically, then confirms it
// remotely. On transport failure the pre-mutation snapshot is restored
// exactly; a refetch could race the poll and either double-apply or show a
// stale intermediate state.
func (s *Store) UpdateOrder(ctx context.Context, id string, patch core.OrderPatch) error {
	s.updateCounter.Add(ctx, 1)

	s.mu.Lock()
	idx, cur := s.findLocked(id)
	if cur == nil {
		s.mu.Unlock()
		return nil
	}

	// Refusal requires a reason. A bare transition into the refused status
	// is redirected into the refusal workflow instead of mutating; the
	// follow-up call carries status and reason together.
	if patch.Status != nil && *patch.Status == s.pipeline.RefusedID &&
		cur.Status != s.pipeline.RefusedID && patch.RefusalReason == nil {
		s.refusing = cur
		s.publishSlotMetricsLocked()
		s.mu.Unlock()
		s.logger.Info("Refusal redirected to workflow", "order_id", id)
		return nil
	}

	snapshot := cur.Clone()
	next := patch.Apply(cur)
	s.orders[idx] = next
	s.repointSlotsLocked(id, next)
	s.mu.Unlock()

	err := s.transport.UpdateOrder(ctx, id, patch)
	if err == nil {
		if s.crossesCompletion(snapshot.Status, next.Status) {
			s.logger.Info("Completion-affecting update confirmed",
				"order_id", id,
				"from", snapshot.Status,
				"to", next.Status)
			s.fireRefreshCallbacks(ctx)
		}
		return nil
	}

	// Roll back to the exact snapshot captured above. The entry may have
	// been dropped by a poll in between; then there is nothing to restore.
	s.mu.Lock()
	if ridx, rcur := s.findLocked(id); rcur != nil {
		s.orders[ridx] = snapshot
		s.repointSlotsLocked(id, snapshot)
	}
	s.mu.Unlock()

	s.rollbackCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("op", "update")))
	s.logger.Warn("Order update rolled back", "order_id", id, "error", err.Error())
	if s.toaster != nil {
		s.toaster.Toast(ctx, notice.Error, "Update failed",
			fmt.Sprintf("changes to order %s were not saved", id),
			map[string]string{"order_id": id})
	}
	return fmt.Errorf("%w: %v", apperrors.ErrUpdateFailed, err)
}

// DeleteOrder permanently removes an order. The capability gate runs first
// and a denial never reaches the confirmation prompt; the confirmation step
// runs before the transport call. Nothing is removed optimistically. The
// boolean tells the calling surface whether to dismiss its modal.
func (s *Store) DeleteOrder(ctx context.Context, id string) (bool, error) {
	actor := s.session.Actor()
	if s.gate == nil || !s.gate.HasPermission(actor, core.PermDeleteOrders) {
		s.logger.Warn("Order deletion denied", "order_id", id)
		return false, apperrors.ErrDeletionDenied
	}

	if s.confirmer != nil && !s.confirmer.Confirm(ctx, fmt.Sprintf("Permanently delete order %s?", id)) {
		return false, nil
	}

	s.deletionCounter.Add(ctx, 1)

	if err := s.transport.DeleteOrder(ctx, id); err != nil {
		s.logger.Error("Order deletion failed", "order_id", id, "error", err.Error())
		if s.toaster != nil {
			s.toaster.Toast(ctx, notice.Error, "Deletion failed",
				fmt.Sprintf("order %s was not deleted", id),
				map[string]string{"order_id": id})
		}
		return false, fmt.Errorf("%w: %v", apperrors.ErrDeletionFailed, err)
	}

	s.mu.Lock()
	if idx, cur := s.findLocked(id); cur != nil {
		s.orders = append(s.orders[:idx], s.orders[idx+1:]...)
	}
	if s.viewing != nil && s.viewing.ID == id {
		s.viewing = nil
	}
	if s.refusing != nil && s.refusing.ID == id {
		s.refusing = nil
	}
	s.publishSlotMetricsLocked()
	telemetry.GetGlobalMetrics().SetOrdersTracked(int64(len(s.orders)))
	s.mu.Unlock()

	if s.notifier != nil {
		s.notifier.Forget(id)
	}

	s.logger.Info("Order deleted", "order_id", id)
	return true, nil
}

// findLocked returns the position and entry for id, or (-1, nil).
func (s *Store) findLocked(id string) (int, *core.Order) {
	for i, o := range s.orders {
		if o.ID == id {
			return i, o
		}
	}
	return -1, nil
}

// repointSlotsLocked keeps the viewer slots on the current representation of
// the order in the same logical step as the collection mutation, so an open
// modal never renders a stale clone.
func (s *Store) repointSlotsLocked(id string, o *core.Order) {
	if s.viewing != nil && s.viewing.ID == id {
		s.viewing = o
	}
	if s.refusing != nil && s.refusing.ID == id {
		s.refusing = o
	}
	s.publishSlotMetricsLocked()
}

func (s *Store) publishSlotMetricsLocked() {
	m := telemetry.GetGlobalMetrics()
	m.SetViewerSlotOccupied("viewing", s.viewing != nil)
	m.SetViewerSlotOccupied("refusing", s.refusing != nil)
}

func (s *Store) crossesCompletion(from, to string) bool {
	if s.pipeline.CompletedID == "" || from == to {
		return false
	}
	return from == s.pipeline.CompletedID || to == s.pipeline.CompletedID
}

func (s *Store) fireRefreshCallbacks(ctx context.Context) {
	s.refreshMu.RLock()
	fns := append([]core.RefreshFunc(nil), s.refreshFns...)
	s.refreshMu.RUnlock()

	for _, fn := range fns {
		fn := fn
		if s.pool != nil {
			_ = s.pool.Submit(func() { fn(context.WithoutCancel(ctx)) })
		} else {
			fn(ctx)
		}
	}
}
