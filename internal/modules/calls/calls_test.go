package calls

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repairradar/internal/events"
	id "repairradar/pkg/domain"
	dErrors "repairradar/pkg/domain-errors"
)

type recordingEmitter struct {
	mu    sync.Mutex
	kinds []string
}

func (r *recordingEmitter) Emit(_ context.Context, event events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds = append(r.kinds, event.Kind)
}

func TestLogAndCloseCall(t *testing.T) {
	emitter := &recordingEmitter{}
	svc := NewService(NewStore(), WithEmitter(emitter))
	tenantID := id.TenantID(uuid.New())
	ctx := context.Background()

	call, err := svc.LogCall(ctx, tenantID, "Elevator stuck on 3rd floor", "Front desk")
	require.NoError(t, err)
	assert.False(t, call.Resolved)
	assert.Nil(t, call.ClosedAt)

	closed, err := svc.CloseCall(ctx, tenantID, call.ID)
	require.NoError(t, err)
	assert.True(t, closed.Resolved)
	require.NotNil(t, closed.ClosedAt)
	assert.Equal(t, []string{"call.logged", "call.closed"}, emitter.kinds)
}

func TestCloseCallIdempotent(t *testing.T) {
	emitter := &recordingEmitter{}
	svc := NewService(NewStore(), WithEmitter(emitter))
	tenantID := id.TenantID(uuid.New())
	ctx := context.Background()

	call, err := svc.LogCall(ctx, tenantID, "Leaking pipe", "")
	require.NoError(t, err)

	_, err = svc.CloseCall(ctx, tenantID, call.ID)
	require.NoError(t, err)
	_, err = svc.CloseCall(ctx, tenantID, call.ID)
	require.NoError(t, err)

	// Second close emits nothing.
	assert.Equal(t, []string{"call.logged", "call.closed"}, emitter.kinds)
}

func TestConcurrentClosesResolveOnce(t *testing.T) {
	emitter := &recordingEmitter{}
	svc := NewService(NewStore(), WithEmitter(emitter))
	tenantID := id.TenantID(uuid.New())
	ctx := context.Background()

	call, err := svc.LogCall(ctx, tenantID, "Alarm panel fault", "")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.CloseCall(ctx, tenantID, call.ID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, []string{"call.logged", "call.closed"}, emitter.kinds,
		"racing closes resolve the call once and emit one event")
}

func TestCloseCallNotFound(t *testing.T) {
	svc := NewService(NewStore())

	_, err := svc.CloseCall(context.Background(), id.TenantID(uuid.New()), id.CallID(uuid.New()))
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestLogCallValidation(t *testing.T) {
	svc := NewService(NewStore())

	_, err := svc.LogCall(context.Background(), id.TenantID(uuid.New()), "", "")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestSummary(t *testing.T) {
	svc := NewService(NewStore())
	tenantID := id.TenantID(uuid.New())
	ctx := context.Background()

	first, err := svc.LogCall(ctx, tenantID, "Boiler alarm", "")
	require.NoError(t, err)
	_, err = svc.LogCall(ctx, tenantID, "Broken window", "")
	require.NoError(t, err)
	_, err = svc.CloseCall(ctx, tenantID, first.ID)
	require.NoError(t, err)

	metrics, err := svc.Summary(ctx, tenantID)
	require.NoError(t, err)
	assert.Equal(t, 2.0, metrics["total"])
	assert.Equal(t, 1.0, metrics["unresolved"])
	assert.Equal(t, 2.0, metrics["records"])
}
