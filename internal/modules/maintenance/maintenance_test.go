package maintenance

import (
	"context"
	"testing"
	"time"

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

var testClock = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newService() (*Service, *recordingEmitter) {
	emitter := &recordingEmitter{}
	svc := NewService(NewStore(),
		WithEmitter(emitter),
		WithClock(func() time.Time { return testClock }),
	)
	return svc, emitter
}

func TestCreateSchedule(t *testing.T) {
	svc, emitter := newService()
	tenantID := id.TenantID(uuid.New())

	schedule, err := svc.CreateSchedule(context.Background(), tenantID, "HVAC filter swap", id.AssetID{}, 30, nil)
	require.NoError(t, err)
	assert.Equal(t, testClock.AddDate(0, 0, 30), schedule.NextRun, "first run is one interval out")
	assert.Equal(t, []string{"maintenance.scheduled"}, emitter.kinds)
}

func TestCreateScheduleExplicitNextRun(t *testing.T) {
	svc, _ := newService()
	tenantID := id.TenantID(uuid.New())

	nextRun := testClock.AddDate(0, 0, 7)
	schedule, err := svc.CreateSchedule(context.Background(), tenantID, "Fire inspection", id.AssetID{}, 90, &nextRun)
	require.NoError(t, err)
	assert.Equal(t, nextRun, schedule.NextRun)
}

func TestCreateScheduleValidation(t *testing.T) {
	svc, _ := newService()
	tenantID := id.TenantID(uuid.New())

	_, err := svc.CreateSchedule(context.Background(), tenantID, "", id.AssetID{}, 30, nil)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = svc.CreateSchedule(context.Background(), tenantID, "Inspection", id.AssetID{}, 0, nil)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestCompleteRunAdvancesNextRun(t *testing.T) {
	svc, emitter := newService()
	tenantID := id.TenantID(uuid.New())
	ctx := context.Background()

	schedule, err := svc.CreateSchedule(ctx, tenantID, "Generator test", id.AssetID{}, 14, nil)
	require.NoError(t, err)

	advanced, err := svc.CompleteRun(ctx, tenantID, schedule.ID)
	require.NoError(t, err)
	assert.Equal(t, testClock.AddDate(0, 0, 14), advanced.NextRun)
	assert.Equal(t, []string{"maintenance.scheduled", "maintenance.completed"}, emitter.kinds)
}

func TestCompleteRunNotFound(t *testing.T) {
	svc, _ := newService()

	_, err := svc.CompleteRun(context.Background(), id.TenantID(uuid.New()), id.ScheduleID(uuid.New()))
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestSummaryCountsUpcoming(t *testing.T) {
	svc, _ := newService()
	tenantID := id.TenantID(uuid.New())
	ctx := context.Background()

	overdueRun := testClock.AddDate(0, 0, -3)
	_, err := svc.CreateSchedule(ctx, tenantID, "Overdue check", id.AssetID{}, 30, &overdueRun)
	require.NoError(t, err)
	_, err = svc.CreateSchedule(ctx, tenantID, "Upcoming check", id.AssetID{}, 30, nil)
	require.NoError(t, err)

	metrics, err := svc.Summary(ctx, tenantID)
	require.NoError(t, err)
	assert.Equal(t, 2.0, metrics["total"])
	assert.Equal(t, 1.0, metrics["upcoming"])
	assert.Equal(t, 2.0, metrics["records"])
}
