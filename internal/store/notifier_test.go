package store

import (
	"context"
	"testing"

	"ordersync/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestNotifier() (*Notifier, *recordingChimer) {
	chimer := &recordingChimer{}
	n := NewNotifier(testPipeline(), NewMemoryNotifyState(), chimer, &mockLogger{})
	return n, chimer
}

func orderAt(id, status string) *core.Order {
	return &core.Order{ID: id, Status: status}
}

func TestNotifierChimesOnNotifiableArrival(t *testing.T) {
	n, chimer := newTestNotifier()

	n.Scan(context.Background(), []*core.Order{orderAt("o-1", "received")})

	chimes := chimer.all()
	require.Len(t, chimes, 1)
	assert.Equal(t, "o-1", chimes[0].orderID)
	assert.Equal(t, "received", chimes[0].status)
}

func TestNotifierSilentOnNonNotifiableStatus(t *testing.T) {
	n, chimer := newTestNotifier()

	n.Scan(context.Background(), []*core.Order{orderAt("o-1", "preparing")})
	assert.Empty(t, chimer.all())
}

func TestNotifierFiresOncePerArrival(t *testing.T) {
	n, chimer := newTestNotifier()

	// The same status observed across consecutive polls rings exactly once.
	for i := 0; i < 5; i++ {
		n.Scan(context.Background(), []*core.Order{orderAt("o-1", "received")})
	}
	assert.Len(t, chimer.all(), 1)
}

func TestNotifierReentryRingsAgain(t *testing.T) {
	n, chimer := newTestNotifier()
	ctx := context.Background()

	n.Scan(ctx, []*core.Order{orderAt("o-1", "received")})
	n.Scan(ctx, []*core.Order{orderAt("o-1", "ready")})
	n.Scan(ctx, []*core.Order{orderAt("o-1", "received")})

	chimes := chimer.all()
	require.Len(t, chimes, 3)
	assert.Equal(t, "ready", chimes[1].status)
	assert.Equal(t, "received", chimes[2].status)
}

func TestNotifierSilentThroughNonNotifiableDetour(t *testing.T) {
	n, chimer := newTestNotifier()
	ctx := context.Background()

	// A detour through a silent status does not re-arm the trigger: the
	// memory still holds "received" because silent statuses are never
	// recorded.
	n.Scan(ctx, []*core.Order{orderAt("o-1", "received")})
	n.Scan(ctx, []*core.Order{orderAt("o-1", "preparing")})
	n.Scan(ctx, []*core.Order{orderAt("o-1", "received")})

	assert.Len(t, chimer.all(), 1)
}

func TestNotifierTracksOrdersIndependently(t *testing.T) {
	n, chimer := newTestNotifier()

	n.Scan(context.Background(), []*core.Order{
		orderAt("o-1", "received"),
		orderAt("o-2", "received"),
		orderAt("o-3", "preparing"),
	})

	chimes := chimer.all()
	assert.Len(t, chimes, 2)
}

func TestNotifierPrunesVanishedOrders(t *testing.T) {
	n, chimer := newTestNotifier()
	ctx := context.Background()

	n.Scan(ctx, []*core.Order{orderAt("o-1", "received")})
	require.Len(t, chimer.all(), 1)

	// The order vanishes, then reappears at the same status. With the
	// memory pruned it rings again.
	n.Scan(ctx, []*core.Order{})
	n.Scan(ctx, []*core.Order{orderAt("o-1", "received")})

	assert.Len(t, chimer.all(), 2)
}

func TestNotifierForgetDropsMemory(t *testing.T) {
	n, chimer := newTestNotifier()
	ctx := context.Background()

	n.Observe(ctx, "o-1", "received")
	n.Forget("o-1")
	n.Observe(ctx, "o-1", "received")

	assert.Len(t, chimer.all(), 2)
}

func TestSQLiteNotifyStateRoundTrip(t *testing.T) {
	path := t.TempDir() + "/notify.db"

	state, err := NewSQLiteNotifyState(path)
	require.NoError(t, err)

	require.NoError(t, state.Record("o-1", "received"))
	require.NoError(t, state.Record("o-2", "ready"))
	require.NoError(t, state.Record("o-1", "ready"))

	got, ok := state.LastNotified("o-1")
	require.True(t, ok)
	assert.Equal(t, "ready", got)

	require.NoError(t, state.Forget("o-2"))
	_, ok = state.LastNotified("o-2")
	assert.False(t, ok)

	assert.ElementsMatch(t, []string{"o-1"}, state.Known())
	require.NoError(t, state.Close())

	// Reopen: the memory survives a restart.
	state, err = NewSQLiteNotifyState(path)
	require.NoError(t, err)
	defer state.Close()

	got, ok = state.LastNotified("o-1")
	require.True(t, ok)
	assert.Equal(t, "ready", got)
}
