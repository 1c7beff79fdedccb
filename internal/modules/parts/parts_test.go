package parts

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
	kinds []string
}

func (r *recordingEmitter) Emit(_ context.Context, event events.Event) {
	r.kinds = append(r.kinds, event.Kind)
}

func TestAddPart(t *testing.T) {
	emitter := &recordingEmitter{}
	svc := NewService(NewStore(), WithEmitter(emitter))
	tenantID := id.TenantID(uuid.New())

	part, err := svc.AddPart(context.Background(), tenantID, "Air filter", "FLT-200", 25)
	require.NoError(t, err)
	assert.Equal(t, 25, part.Quantity)
	assert.Equal(t, []string{"part.added"}, emitter.kinds)
}

func TestAddPartValidation(t *testing.T) {
	svc := NewService(NewStore())
	tenantID := id.TenantID(uuid.New())

	_, err := svc.AddPart(context.Background(), tenantID, "", "", 1)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = svc.AddPart(context.Background(), tenantID, "Gasket", "", -1)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestAdjustQuantity(t *testing.T) {
	emitter := &recordingEmitter{}
	svc := NewService(NewStore(), WithEmitter(emitter))
	tenantID := id.TenantID(uuid.New())
	ctx := context.Background()

	part, err := svc.AddPart(ctx, tenantID, "Belt", "", 5)
	require.NoError(t, err)

	adjusted, err := svc.AdjustQuantity(ctx, tenantID, part.ID, -3)
	require.NoError(t, err)
	assert.Equal(t, 2, adjusted.Quantity)

	_, err = svc.AdjustQuantity(ctx, tenantID, part.ID, -5)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation), "stock cannot go negative")

	assert.Equal(t, []string{"part.added", "part.quantity_adjusted"}, emitter.kinds)
}

func TestAdjustQuantityConcurrent(t *testing.T) {
	svc := NewService(NewStore())
	tenantID := id.TenantID(uuid.New())
	ctx := context.Background()

	part, err := svc.AddPart(ctx, tenantID, "Bolt", "", 0)
	require.NoError(t, err)

	const increments = 500
	var wg sync.WaitGroup
	for i := 0; i < increments; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.AdjustQuantity(ctx, tenantID, part.ID, 1)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	final, err := svc.AdjustQuantity(ctx, tenantID, part.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, increments, final.Quantity, "no increment may be lost")
}

func TestAdjustQuantityNotFound(t *testing.T) {
	svc := NewService(NewStore())

	_, err := svc.AdjustQuantity(context.Background(), id.TenantID(uuid.New()), id.PartID(uuid.New()), 1)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestSummaryLowStock(t *testing.T) {
	svc := NewService(NewStore(), WithLowStockThreshold(10))
	tenantID := id.TenantID(uuid.New())
	ctx := context.Background()

	_, err := svc.AddPart(ctx, tenantID, "Air filter", "", 25)
	require.NoError(t, err)
	_, err = svc.AddPart(ctx, tenantID, "Fuse", "", 3)
	require.NoError(t, err)
	_, err = svc.AddPart(ctx, tenantID, "O-ring", "", 9)
	require.NoError(t, err)

	metrics, err := svc.Summary(ctx, tenantID)
	require.NoError(t, err)
	assert.Equal(t, 3.0, metrics["total"])
	assert.Equal(t, 2.0, metrics["low_stock"])
	assert.Equal(t, 3.0, metrics["records"])
}
