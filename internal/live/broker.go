// Package live is the per-tenant publish/subscribe channel that keeps
// dashboards current. Domain mutations call Publish; subscribers receive the
// recomputed snapshot. Publishes arriving while a recomputation is in flight
// are coalesced into a single pending pass, so an event burst triggers one
// re-aggregation, not one per event.
package live

import (
	"context"
	"log/slog"
	"sync"

	"repairradar/internal/dashboard/models"
	"repairradar/internal/platform/metrics"
	id "repairradar/pkg/domain"
)

// Aggregator produces snapshots for the broker. Implemented by the dashboard
// service.
type Aggregator interface {
	// Recompute runs a fresh aggregation pass (event-triggered).
	Recompute(ctx context.Context, tenantID id.TenantID) (*models.Snapshot, error)
	// Latest serves the newest known snapshot, cached or fresh. Used for the
	// immediate frame on subscribe.
	Latest(ctx context.Context, tenantID id.TenantID) (*models.Snapshot, error)
}

type subscriber struct {
	ch     chan *models.Snapshot
	closed bool
}

// tenantState tracks one tenant's subscribers and recomputation flags. It
// exists only while the tenant has subscribers or a recomputation is in
// flight; Publish for an idle tenant is a no-op.
type tenantState struct {
	subscribers map[*subscriber]struct{}
	running     bool
	dirty       bool
}

// Broker coordinates per-tenant fan-out. The single mutex only guards map
// and flag flips; recomputation runs outside it, so tenants never contend on
// each other's aggregation passes.
type Broker struct {
	agg     Aggregator
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu      sync.Mutex
	tenants map[string]*tenantState

	// baseCtx scopes recomputation goroutines to the broker lifetime rather
	// than any single request.
	baseCtx context.Context
	cancel  context.CancelFunc
}

type Option func(b *Broker)

func WithLogger(logger *slog.Logger) Option {
	return func(b *Broker) { b.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Broker) { b.metrics = m }
}

func NewBroker(agg Aggregator, opts ...Option) *Broker {
	ctx, cancel := context.WithCancel(context.Background())
	b := &Broker{
		agg:     agg,
		tenants: make(map[string]*tenantState),
		baseCtx: ctx,
		cancel:  cancel,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Close stops all in-flight recomputations and closes every subscriber
// channel. The subscriber gauge is settled per closed channel, so a restarted
// broker starts counting from zero again.
func (b *Broker) Close() {
	b.cancel()
	b.mu.Lock()
	var dropped int
	for key, st := range b.tenants {
		for sub := range st.subscribers {
			if !sub.closed {
				sub.closed = true
				close(sub.ch)
				dropped++
			}
		}
		delete(b.tenants, key)
	}
	b.mu.Unlock()

	if b.metrics != nil {
		for i := 0; i < dropped; i++ {
			b.metrics.DecrementActiveSubscribers()
		}
	}
}

// Subscribe registers a dashboard listener for the tenant. The returned
// channel carries one immediate snapshot, then a snapshot per recomputation.
// The channel buffers a single snapshot: a slow consumer is degraded to
// latest-only, never buffered without bound. The cancel function is
// idempotent and detaches silently without affecting other subscribers.
func (b *Broker) Subscribe(ctx context.Context, tenantID id.TenantID) (<-chan *models.Snapshot, func(), error) {
	initial, err := b.agg.Latest(ctx, tenantID)
	if err != nil {
		return nil, nil, err
	}

	sub := &subscriber{ch: make(chan *models.Snapshot, 1)}
	sub.ch <- initial

	key := tenantID.String()
	b.mu.Lock()
	st := b.tenants[key]
	if st == nil {
		st = &tenantState{subscribers: make(map[*subscriber]struct{})}
		b.tenants[key] = st
	}
	st.subscribers[sub] = struct{}{}
	b.mu.Unlock()

	if b.metrics != nil {
		b.metrics.IncrementActiveSubscribers()
	}

	var once sync.Once
	cancel := func() {
		once.Do(func() { b.unsubscribe(key, sub) })
	}
	return sub.ch, cancel, nil
}

func (b *Broker) unsubscribe(key string, sub *subscriber) {
	b.mu.Lock()
	st := b.tenants[key]
	if st != nil {
		delete(st.subscribers, sub)
		if len(st.subscribers) == 0 && !st.running {
			delete(b.tenants, key)
		}
	}
	// The closed flag pairs the gauge decrement with exactly one of
	// unsubscribe or Close per subscriber.
	detached := !sub.closed
	if detached {
		sub.closed = true
		close(sub.ch)
	}
	b.mu.Unlock()

	if detached && b.metrics != nil {
		b.metrics.DecrementActiveSubscribers()
	}
}

// Publish signals that the tenant's dashboard is stale. It never blocks: it
// either starts a recomputation, or marks the in-flight one dirty so exactly
// one more pass follows. Tenants without subscribers are skipped; their
// state lifecycle is tied to active subscriptions.
func (b *Broker) Publish(tenantID id.TenantID) {
	key := tenantID.String()

	b.mu.Lock()
	st := b.tenants[key]
	if st == nil || len(st.subscribers) == 0 {
		b.mu.Unlock()
		return
	}
	if st.running {
		st.dirty = true
		b.mu.Unlock()
		if b.metrics != nil {
			b.metrics.IncrementPublishesCoalesced()
		}
		return
	}
	st.running = true
	b.mu.Unlock()

	go b.recompute(tenantID, key, st)
}

// recompute loops while publishes keep arriving, one pass at a time. Each
// pass produces a single snapshot fanned out to every subscriber.
func (b *Broker) recompute(tenantID id.TenantID, key string, st *tenantState) {
	for {
		snap, err := b.agg.Recompute(b.baseCtx, tenantID)
		if err != nil {
			if b.logger != nil {
				b.logger.Error("dashboard recomputation failed",
					"tenant_id", tenantID,
					"error", err,
				)
			}
		} else {
			b.deliver(st, snap)
		}

		b.mu.Lock()
		if st.dirty && len(st.subscribers) > 0 && b.baseCtx.Err() == nil {
			st.dirty = false
			b.mu.Unlock()
			continue
		}
		st.running = false
		st.dirty = false
		if len(st.subscribers) == 0 {
			delete(b.tenants, key)
		}
		b.mu.Unlock()
		return
	}
}

// deliver pushes the snapshot to every subscriber without blocking. A full
// buffer means the subscriber still holds an older snapshot; it is replaced
// so laggards always see the latest state next.
func (b *Broker) deliver(st *tenantState, snap *models.Snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for sub := range st.subscribers {
		if sub.closed {
			continue
		}
		select {
		case sub.ch <- snap:
			if b.metrics != nil {
				b.metrics.IncrementSnapshotsDelivered()
			}
		default:
			// Drop the stale snapshot, keep the new one.
			select {
			case <-sub.ch:
				if b.metrics != nil {
					b.metrics.IncrementSnapshotsDropped()
				}
			default:
			}
			select {
			case sub.ch <- snap:
				if b.metrics != nil {
					b.metrics.IncrementSnapshotsDelivered()
				}
			default:
			}
		}
	}
}
