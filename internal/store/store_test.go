package store

import (
	"context"
	"testing"
	"time"

	"ordersync/internal/core"
	"ordersync/internal/mock"
	apperrors "ordersync/pkg/errors"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type storeFixture struct {
	backend *mock.MockTransport
	session *stubSession
	chimer  *recordingChimer
	toaster *recordingToaster
	store   *Store
}

func newFixture(gate core.CapabilityGateFunc, confirmer core.ConfirmerFunc) *storeFixture {
	backend := mock.NewMockTransport()
	session := &stubSession{}
	chimer := &recordingChimer{}
	toaster := &recordingToaster{}
	pipeline := testPipeline()
	notifier := NewNotifier(pipeline, NewMemoryNotifyState(), chimer, &mockLogger{})

	st := New(backend, session, gate, confirmer, pipeline, notifier, toaster, nil, &mockLogger{})
	return &storeFixture{
		backend: backend,
		session: session,
		chimer:  chimer,
		toaster: toaster,
		store:   st,
	}
}

func seedOrder(id, status string) *core.Order {
	return &core.Order{
		ID:     id,
		Status: status,
		Type:   core.OrderTypeDineIn,
		Items: []core.OrderItem{
			{ProductID: "p-1", ProductName: "Pizza", UnitPrice: decimal.NewFromInt(10), Quantity: 1},
		},
		Total:     decimal.NewFromInt(10),
		Customer:  core.Customer{Name: "Ada", Mobile: "555"},
		CreatedAt: time.Now(),
	}
}

func (f *storeFixture) refresh(t *testing.T) {
	t.Helper()
	require.NoError(t, f.store.Refresh(context.Background()))
}

func TestPlaceOrderAppliesActorIdentity(t *testing.T) {
	f := newFixture(allowAll, confirmYes)
	f.session.set(&core.Actor{ID: "u-9", Name: "Grace", Mobile: "777", Role: "staff"})

	draft := core.OrderDraft{
		Items: []core.OrderItem{
			{ProductID: "p-1", ProductName: "Pizza", UnitPrice: decimal.NewFromInt(10), Quantity: 2},
		},
		Type:     core.OrderTypeTakeaway,
		Customer: core.Customer{Name: "Spoofed", Mobile: "000", Address: "12 High St"},
	}

	placed, err := f.store.PlaceOrder(context.Background(), draft)
	require.NoError(t, err)

	// The actor's canonical identity wins over client-supplied values.
	assert.Equal(t, "u-9", placed.Customer.UserID)
	assert.Equal(t, "Grace", placed.Customer.Name)
	assert.Equal(t, "777", placed.Customer.Mobile)
	assert.Equal(t, "12 High St", placed.Customer.Address)
	assert.Equal(t, "u-9", placed.CreatedBy)

	assert.Equal(t, "received", placed.Status)
	assert.True(t, placed.Total.Equal(decimal.NewFromInt(20)))
	assert.NotEmpty(t, placed.ID)

	assert.Len(t, f.store.Orders(), 1)
	assert.Equal(t, 1, f.backend.CreateCalls())
}

func TestPlaceOrderAlwaysStartsAtInitialStatus(t *testing.T) {
	f := newFixture(allowAll, confirmYes)

	placed, err := f.store.PlaceOrder(context.Background(), core.OrderDraft{
		Items: []core.OrderItem{{ProductID: "p-1", UnitPrice: decimal.NewFromInt(5), Quantity: 1}},
		Type:  core.OrderTypeDineIn,
		Notes: "rush",
	})
	require.NoError(t, err)
	assert.Equal(t, testPipeline().InitialStatus(), placed.Status)
}

func TestPlaceOrderFailureAddsNothing(t *testing.T) {
	f := newFixture(allowAll, confirmYes)
	f.backend.FailCreate(true)

	_, err := f.store.PlaceOrder(context.Background(), core.OrderDraft{
		Items: []core.OrderItem{{ProductID: "p-1", UnitPrice: decimal.NewFromInt(5), Quantity: 1}},
	})
	require.ErrorIs(t, err, apperrors.ErrPlacementFailed)
	assert.Empty(t, f.store.Orders())
}

func TestUpdateOrderMergesPayload(t *testing.T) {
	f := newFixture(allowAll, confirmYes)
	f.backend.Seed(seedOrder("o-1", "received"))
	f.refresh(t)

	status := "preparing"
	notes := "extra cheese"
	err := f.store.UpdateOrder(context.Background(), "o-1", core.OrderPatch{
		Status: &status,
		Notes:  &notes,
	})
	require.NoError(t, err)

	got := f.store.Get("o-1")
	require.NotNil(t, got)
	assert.Equal(t, "preparing", got.Status)
	assert.Equal(t, "extra cheese", got.Notes)
	// Untouched fields survive the merge.
	assert.Equal(t, "Ada", got.Customer.Name)
	assert.True(t, got.Total.Equal(decimal.NewFromInt(10)))
}

func TestUpdateOrderRecomputesTotalWithItems(t *testing.T) {
	f := newFixture(allowAll, confirmYes)
	f.backend.Seed(seedOrder("o-1", "received"))
	f.refresh(t)

	items := []core.OrderItem{
		{ProductID: "p-1", UnitPrice: decimal.NewFromInt(10), Quantity: 3},
		{ProductID: "p-2", UnitPrice: decimal.NewFromInt(4), Quantity: 1, DiscountPercent: decimal.NewFromInt(50)},
	}
	err := f.store.UpdateOrder(context.Background(), "o-1", core.OrderPatch{Items: &items})
	require.NoError(t, err)

	got := f.store.Get("o-1")
	assert.True(t, got.Total.Equal(decimal.NewFromInt(32)), "got total %s", got.Total)
}

func TestUpdateOrderRollsBackOnTransportFailure(t *testing.T) {
	f := newFixture(allowAll, confirmYes)
	f.backend.Seed(seedOrder("o-1", "received"))
	f.refresh(t)
	f.store.SetViewingOrder("o-1")
	f.backend.FailUpdate(true)

	status := "preparing"
	notes := "rush"
	err := f.store.UpdateOrder(context.Background(), "o-1", core.OrderPatch{Status: &status, Notes: &notes})
	require.ErrorIs(t, err, apperrors.ErrUpdateFailed)

	got := f.store.Get("o-1")
	assert.Equal(t, "received", got.Status)
	assert.Empty(t, got.Notes)

	// The pinned detail view shows the restored state, not the failed one.
	viewing := f.store.ViewingOrder()
	require.NotNil(t, viewing)
	assert.Equal(t, "received", viewing.Status)

	assert.Equal(t, 1, f.toaster.count())
}

func TestUpdateOrderRollbackIsIdempotentAcrossRetries(t *testing.T) {
	f := newFixture(allowAll, confirmYes)
	f.backend.Seed(seedOrder("o-1", "received"))
	f.refresh(t)
	f.backend.FailUpdate(true)

	status := "preparing"
	for i := 0; i < 3; i++ {
		err := f.store.UpdateOrder(context.Background(), "o-1", core.OrderPatch{Status: &status})
		require.ErrorIs(t, err, apperrors.ErrUpdateFailed)
	}

	got := f.store.Get("o-1")
	assert.Equal(t, "received", got.Status)
	assert.Len(t, f.store.Orders(), 1)
}

func TestUpdateOrderUnknownIDIsNoop(t *testing.T) {
	f := newFixture(allowAll, confirmYes)
	f.backend.Seed(seedOrder("o-1", "received"))
	f.refresh(t)

	status := "preparing"
	err := f.store.UpdateOrder(context.Background(), "missing", core.OrderPatch{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, 0, f.backend.UpdateCalls())
}

func TestRefusalWithoutReasonRedirectsToWorkflow(t *testing.T) {
	f := newFixture(allowAll, confirmYes)
	f.backend.Seed(seedOrder("o-1", "received"))
	f.refresh(t)

	refused := "refused"
	err := f.store.UpdateOrder(context.Background(), "o-1", core.OrderPatch{Status: &refused})
	require.NoError(t, err)

	// No mutation reached the backend; the order is queued for the reason prompt.
	assert.Equal(t, 0, f.backend.UpdateCalls())
	assert.Equal(t, "received", f.store.Get("o-1").Status)
	refusing := f.store.RefusingOrder()
	require.NotNil(t, refusing)
	assert.Equal(t, "o-1", refusing.ID)
}

func TestRefusalWithReasonApplies(t *testing.T) {
	f := newFixture(allowAll, confirmYes)
	f.backend.Seed(seedOrder("o-1", "received"))
	f.refresh(t)

	refused := "refused"
	reason := "out of stock"
	err := f.store.UpdateOrder(context.Background(), "o-1", core.OrderPatch{
		Status:        &refused,
		RefusalReason: &reason,
	})
	require.NoError(t, err)

	got := f.store.Get("o-1")
	assert.Equal(t, "refused", got.Status)
	assert.Equal(t, "out of stock", got.RefusalReason)
	assert.Equal(t, 1, f.backend.UpdateCalls())
}

func TestDeleteOrderDeniedWithoutCapability(t *testing.T) {
	confirmerCalled := false
	f := newFixture(denyAll, func(context.Context, string) bool {
		confirmerCalled = true
		return true
	})
	f.session.set(&core.Actor{ID: "u-1", Role: "staff"})
	f.backend.Seed(seedOrder("o-1", "received"))
	f.refresh(t)

	ok, err := f.store.DeleteOrder(context.Background(), "o-1")
	require.ErrorIs(t, err, apperrors.ErrDeletionDenied)
	assert.False(t, ok)
	// Denial short-circuits before the confirmation prompt.
	assert.False(t, confirmerCalled)
	assert.Equal(t, 0, f.backend.DeleteCalls())
}

func TestDeleteOrderDeclinedConfirmation(t *testing.T) {
	f := newFixture(allowAll, confirmNo)
	f.backend.Seed(seedOrder("o-1", "received"))
	f.refresh(t)

	ok, err := f.store.DeleteOrder(context.Background(), "o-1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, f.backend.DeleteCalls())
	assert.Len(t, f.store.Orders(), 1)
}

func TestDeleteOrderRemovesAndClearsSlots(t *testing.T) {
	f := newFixture(allowAll, confirmYes)
	f.backend.Seed(seedOrder("o-1", "received"))
	f.refresh(t)
	f.store.SetViewingOrder("o-1")
	f.store.SetRefusingOrder("o-1")

	ok, err := f.store.DeleteOrder(context.Background(), "o-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, f.store.Orders())
	assert.Nil(t, f.store.ViewingOrder())
	assert.Nil(t, f.store.RefusingOrder())
}

func TestDeleteOrderTransportFailureKeepsOrder(t *testing.T) {
	f := newFixture(allowAll, confirmYes)
	f.backend.Seed(seedOrder("o-1", "received"))
	f.refresh(t)
	f.backend.FailDelete(true)

	ok, err := f.store.DeleteOrder(context.Background(), "o-1")
	require.ErrorIs(t, err, apperrors.ErrDeletionFailed)
	assert.False(t, ok)
	assert.Len(t, f.store.Orders(), 1)
	assert.Equal(t, 1, f.toaster.count())
}

func TestRefreshReplacesCollectionAndRepointsSlots(t *testing.T) {
	f := newFixture(allowAll, confirmYes)
	f.backend.Seed(seedOrder("o-1", "received"))
	f.backend.Seed(seedOrder("o-2", "preparing"))
	f.refresh(t)
	f.store.SetViewingOrder("o-1")

	f.backend.SetStatus("o-1", "ready")
	f.refresh(t)

	viewing := f.store.ViewingOrder()
	require.NotNil(t, viewing)
	assert.Equal(t, "ready", viewing.Status)
}

func TestRefreshClearsSlotForVanishedOrder(t *testing.T) {
	f := newFixture(allowAll, confirmYes)
	f.backend.Seed(seedOrder("o-1", "received"))
	f.refresh(t)
	f.store.SetViewingOrder("o-1")

	require.NoError(t, f.backend.DeleteOrder(context.Background(), "o-1"))
	f.refresh(t)

	assert.Nil(t, f.store.ViewingOrder())
	assert.Empty(t, f.store.Orders())
}

func TestRefreshFailureKeepsPreviousCollection(t *testing.T) {
	f := newFixture(allowAll, confirmYes)
	f.backend.Seed(seedOrder("o-1", "received"))
	f.refresh(t)

	f.backend.FailList(true)
	err := f.store.Refresh(context.Background())
	require.Error(t, err)
	assert.Len(t, f.store.Orders(), 1)
}

func TestClearEmptiesCollectionAndRearmsLoading(t *testing.T) {
	f := newFixture(allowAll, confirmYes)
	f.backend.Seed(seedOrder("o-1", "received"))
	f.refresh(t)
	f.store.SetViewingOrder("o-1")
	assert.False(t, f.store.Loading())

	f.store.Clear()

	assert.Empty(t, f.store.Orders())
	assert.Nil(t, f.store.ViewingOrder())
	assert.True(t, f.store.Loading())
}

func TestRefreshCallbacksFireOnCompletionCrossing(t *testing.T) {
	f := newFixture(allowAll, confirmYes)
	f.backend.Seed(seedOrder("o-1", "ready"))
	f.refresh(t)

	fired := 0
	f.store.OnRefresh(func(context.Context) { fired++ })

	// An unrelated transition does not fire collaborators.
	status := "preparing"
	require.NoError(t, f.store.UpdateOrder(context.Background(), "o-1", core.OrderPatch{Status: &status}))
	assert.Equal(t, 0, fired)

	completed := "completed"
	require.NoError(t, f.store.UpdateOrder(context.Background(), "o-1", core.OrderPatch{Status: &completed}))
	assert.Equal(t, 1, fired)

	// Reopening a completed order also moves inventory and revenue.
	reopened := "preparing"
	require.NoError(t, f.store.UpdateOrder(context.Background(), "o-1", core.OrderPatch{Status: &reopened}))
	assert.Equal(t, 2, fired)
}

func TestPlaceOrderFiresRefreshCallbacks(t *testing.T) {
	f := newFixture(allowAll, confirmYes)

	fired := 0
	f.store.OnRefresh(func(context.Context) { fired++ })

	_, err := f.store.PlaceOrder(context.Background(), core.OrderDraft{
		Items: []core.OrderItem{{ProductID: "p-1", UnitPrice: decimal.NewFromInt(5), Quantity: 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, fired)
}
