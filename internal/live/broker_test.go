package live

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repairradar/internal/dashboard/models"
	"repairradar/internal/platform/metrics"
	id "repairradar/pkg/domain"
)

// fakeAggregator counts recomputations and can block them until released, so
// tests can pile publishes onto one in-flight pass.
type fakeAggregator struct {
	mu         sync.Mutex
	recomputes int
	latests    int
	gate       chan struct{}
}

func (f *fakeAggregator) snapshot(tenantID id.TenantID) *models.Snapshot {
	return &models.Snapshot{
		TenantID:    tenantID,
		GeneratedAt: time.Now().UTC(),
		Aggregate:   models.ModuleMetrics{"records": 1},
	}
}

func (f *fakeAggregator) Recompute(ctx context.Context, tenantID id.TenantID) (*models.Snapshot, error) {
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	f.recomputes++
	f.mu.Unlock()
	return f.snapshot(tenantID), nil
}

func (f *fakeAggregator) Latest(ctx context.Context, tenantID id.TenantID) (*models.Snapshot, error) {
	f.mu.Lock()
	f.latests++
	f.mu.Unlock()
	return f.snapshot(tenantID), nil
}

func (f *fakeAggregator) recomputeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.recomputes
}

func newTenantID(t *testing.T) id.TenantID {
	t.Helper()
	return id.TenantID(uuid.New())
}

func receiveSnapshot(t *testing.T, ch <-chan *models.Snapshot) *models.Snapshot {
	t.Helper()
	select {
	case snap, ok := <-ch:
		require.True(t, ok, "channel closed before snapshot arrived")
		return snap
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
		return nil
	}
}

func TestSubscribeDeliversImmediateSnapshot(t *testing.T) {
	agg := &fakeAggregator{}
	broker := NewBroker(agg)
	defer broker.Close()

	tenantID := newTenantID(t)
	ch, cancel, err := broker.Subscribe(context.Background(), tenantID)
	require.NoError(t, err)
	defer cancel()

	snap := receiveSnapshot(t, ch)
	assert.Equal(t, tenantID, snap.TenantID)
	assert.Equal(t, 0, agg.recomputeCount(), "subscribe must not trigger a recomputation")
}

func TestPublishDeliversRecomputedSnapshot(t *testing.T) {
	agg := &fakeAggregator{}
	broker := NewBroker(agg)
	defer broker.Close()

	tenantID := newTenantID(t)
	ch, cancel, err := broker.Subscribe(context.Background(), tenantID)
	require.NoError(t, err)
	defer cancel()

	receiveSnapshot(t, ch) // drain initial

	broker.Publish(tenantID)

	snap := receiveSnapshot(t, ch)
	assert.Equal(t, tenantID, snap.TenantID)
	assert.Equal(t, 1, agg.recomputeCount())
}

func TestPublishWithoutSubscribersIsNoop(t *testing.T) {
	agg := &fakeAggregator{}
	broker := NewBroker(agg)
	defer broker.Close()

	broker.Publish(newTenantID(t))

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, agg.recomputeCount())
}

func TestPublishBurstCoalesces(t *testing.T) {
	agg := &fakeAggregator{gate: make(chan struct{})}
	broker := NewBroker(agg)
	defer broker.Close()

	tenantID := newTenantID(t)
	ch, cancel, err := broker.Subscribe(context.Background(), tenantID)
	require.NoError(t, err)
	defer cancel()

	receiveSnapshot(t, ch)

	// First publish starts a pass that blocks on the gate; the rest arrive
	// while it is in flight and must collapse into a single follow-up pass.
	for i := 0; i < 10; i++ {
		broker.Publish(tenantID)
	}
	close(agg.gate)

	receiveSnapshot(t, ch)
	receiveSnapshot(t, ch)

	// 10 publishes, at most 2 passes: the in-flight one plus one for the
	// coalesced backlog.
	assert.Eventually(t, func() bool {
		n := agg.recomputeCount()
		return n >= 1 && n <= 2
	}, 2*time.Second, 10*time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	assert.LessOrEqual(t, agg.recomputeCount(), 2)
}

func TestSlowSubscriberGetsLatestSnapshot(t *testing.T) {
	agg := &fakeAggregator{}
	broker := NewBroker(agg)
	defer broker.Close()

	tenantID := newTenantID(t)
	ch, cancel, err := broker.Subscribe(context.Background(), tenantID)
	require.NoError(t, err)
	defer cancel()

	// Never drain the initial snapshot; each delivery should replace the
	// buffered one rather than block the broker.
	for i := 0; i < 3; i++ {
		broker.Publish(tenantID)
		assert.Eventually(t, func() bool {
			return agg.recomputeCount() == i+1
		}, 2*time.Second, 5*time.Millisecond)
	}

	snap := receiveSnapshot(t, ch)
	assert.Equal(t, tenantID, snap.TenantID)
	assert.Len(t, ch, 0, "buffer must hold at most one snapshot")
}

func TestCancelClosesChannelAndIsIdempotent(t *testing.T) {
	agg := &fakeAggregator{}
	broker := NewBroker(agg)
	defer broker.Close()

	tenantID := newTenantID(t)
	ch, cancel, err := broker.Subscribe(context.Background(), tenantID)
	require.NoError(t, err)

	receiveSnapshot(t, ch)
	cancel()
	cancel() // second cancel must not panic

	_, ok := <-ch
	assert.False(t, ok, "channel should be closed after cancel")

	// Publishing after the last subscriber left is a no-op again.
	broker.Publish(tenantID)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, agg.recomputeCount())
}

func TestCancelOneSubscriberKeepsOthers(t *testing.T) {
	agg := &fakeAggregator{}
	broker := NewBroker(agg)
	defer broker.Close()

	tenantID := newTenantID(t)
	ch1, cancel1, err := broker.Subscribe(context.Background(), tenantID)
	require.NoError(t, err)
	ch2, cancel2, err := broker.Subscribe(context.Background(), tenantID)
	require.NoError(t, err)
	defer cancel2()

	receiveSnapshot(t, ch1)
	receiveSnapshot(t, ch2)

	cancel1()

	broker.Publish(tenantID)
	snap := receiveSnapshot(t, ch2)
	assert.Equal(t, tenantID, snap.TenantID)
}

func TestTenantsAreIndependent(t *testing.T) {
	agg := &fakeAggregator{}
	broker := NewBroker(agg)
	defer broker.Close()

	tenantA := newTenantID(t)
	tenantB := newTenantID(t)

	chA, cancelA, err := broker.Subscribe(context.Background(), tenantA)
	require.NoError(t, err)
	defer cancelA()
	chB, cancelB, err := broker.Subscribe(context.Background(), tenantB)
	require.NoError(t, err)
	defer cancelB()

	receiveSnapshot(t, chA)
	receiveSnapshot(t, chB)

	broker.Publish(tenantA)
	snap := receiveSnapshot(t, chA)
	assert.Equal(t, tenantA, snap.TenantID)

	select {
	case <-chB:
		t.Fatal("tenant B must not receive tenant A's snapshot")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestCloseShutsDownSubscribers(t *testing.T) {
	agg := &fakeAggregator{}
	broker := NewBroker(agg)

	tenantID := newTenantID(t)
	ch, _, err := broker.Subscribe(context.Background(), tenantID)
	require.NoError(t, err)

	receiveSnapshot(t, ch)
	broker.Close()

	_, ok := <-ch
	assert.False(t, ok, "channel should be closed after broker shutdown")
}

func TestCloseSettlesSubscriberGauge(t *testing.T) {
	m := metrics.NewWith(prometheus.NewRegistry())
	agg := &fakeAggregator{}
	broker := NewBroker(agg, WithMetrics(m))

	_, cancel, err := broker.Subscribe(context.Background(), newTenantID(t))
	require.NoError(t, err)
	_, _, err = broker.Subscribe(context.Background(), newTenantID(t))
	require.NoError(t, err)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ActiveSubscribers))

	broker.Close()
	assert.Equal(t, 0.0, testutil.ToFloat64(m.ActiveSubscribers),
		"shutdown must settle the gauge for every open subscription")

	// Cancelling after shutdown must not drive the gauge negative.
	cancel()
	assert.Equal(t, 0.0, testutil.ToFloat64(m.ActiveSubscribers))
}

func TestConcurrentPublishSafety(t *testing.T) {
	agg := &fakeAggregator{}
	broker := NewBroker(agg)
	defer broker.Close()

	tenantID := newTenantID(t)
	_, cancel, err := broker.Subscribe(context.Background(), tenantID)
	require.NoError(t, err)
	defer cancel()

	var wg sync.WaitGroup
	var published atomic.Int64
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				broker.Publish(tenantID)
				published.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Eventually(t, func() bool {
		return agg.recomputeCount() >= 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Less(t, agg.recomputeCount(), int(published.Load()),
		"coalescing should run far fewer passes than publishes")
}
