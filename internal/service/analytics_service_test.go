package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/planify/analytics-service/internal/logger"
	"github.com/planify/analytics-service/internal/model"
	"github.com/planify/analytics-service/internal/repo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (*AnalyticsService, context.Context) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&model.EventMetrics{}, &model.UserActivity{}, &model.SystemMetrics{}))

	log, err := logger.NewLogger()
	require.NoError(t, err)
	repository := repo.NewRepository(db, nil, log)
	return NewAnalyticsService(repository, log), context.Background()
}

func createEvent(t *testing.T, svc *AnalyticsService, ctx context.Context, eventID, orgID uuid.UUID) {
	t.Helper()
	require.NoError(t, svc.HandleEventCreated(ctx, eventID, orgID, "Launch",
		time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC), model.StatusDraft))
}

func latestMetric(t *testing.T, svc *AnalyticsService, ctx context.Context, name model.MetricName) decimal.Decimal {
	t.Helper()
	m, err := svc.Repo().LatestSystemMetric(ctx, name)
	require.NoError(t, err)
	return m.MetricValue
}

func TestHandleEventCreated_InitializesZeroCounters(t *testing.T) {
	svc, ctx := newTestService(t)

	eventID := uuid.New()
	createEvent(t, svc, ctx, eventID, uuid.New())

	m, err := svc.GetEventMetrics(ctx, eventID)
	require.NoError(t, err)
	assert.Equal(t, eventID, m.EventID)
	assert.Equal(t, model.StatusDraft, m.EventStatus)
	assert.Zero(t, m.TotalInvites)
	assert.Zero(t, m.RsvpAccepted)
	assert.Zero(t, m.RsvpDeclined)
	assert.Zero(t, m.RsvpMaybe)
	assert.Zero(t, m.CheckedIn)

	assert.True(t, latestMetric(t, svc, ctx, model.MetricTotalEvents).Equal(decimal.NewFromInt(1)))
}

func TestHandleEventCreated_RedeliveryDoesNotDuplicate(t *testing.T) {
	svc, ctx := newTestService(t)

	eventID := uuid.New()
	orgID := uuid.New()
	createEvent(t, svc, ctx, eventID, orgID)
	createEvent(t, svc, ctx, eventID, orgID)

	rows, err := svc.GetEventMetricsByOrganization(ctx, orgID)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.True(t, latestMetric(t, svc, ctx, model.MetricTotalEvents).Equal(decimal.NewFromInt(1)))
}

func TestCounterEvents_MissingRow_NoOpButActivityRecorded(t *testing.T) {
	svc, ctx := newTestService(t)

	eventID := uuid.New()
	userID := uuid.New()

	// No EventCreated was seen for this event: the increment is dropped,
	// the activity entry is still written, and no error surfaces.
	require.NoError(t, svc.HandleRsvpAccepted(ctx, eventID, userID))

	_, err := svc.GetEventMetrics(ctx, eventID)
	assert.ErrorIs(t, err, repo.ErrNotFound)

	activities, err := svc.GetUserActivities(ctx, userID)
	require.NoError(t, err)
	require.Len(t, activities, 1)
	assert.Equal(t, model.ActivityRsvpAccepted, activities[0].ActivityType)
	assert.Equal(t, eventID, activities[0].EventID)
}

func TestAllGuestEvents_MissingRow_NoError(t *testing.T) {
	svc, ctx := newTestService(t)

	eventID := uuid.New()
	userID := uuid.New()

	assert.NoError(t, svc.HandleGuestInvited(ctx, eventID, userID))
	assert.NoError(t, svc.HandleRsvpDeclined(ctx, eventID, userID))
	assert.NoError(t, svc.HandleGuestCheckedIn(ctx, eventID, userID))
	assert.NoError(t, svc.HandleEventUpdated(ctx, eventID))
	assert.NoError(t, svc.HandleEventPublished(ctx, eventID))

	_, err := svc.GetEventMetrics(ctx, eventID)
	assert.ErrorIs(t, err, repo.ErrNotFound)
}

func TestHandleRsvpAccepted_ConcurrentIncrements(t *testing.T) {
	svc, ctx := newTestService(t)

	eventID := uuid.New()
	createEvent(t, svc, ctx, eventID, uuid.New())

	const n = 10
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, svc.HandleRsvpAccepted(ctx, eventID, uuid.New()))
		}()
	}
	wg.Wait()

	m, err := svc.GetEventMetrics(ctx, eventID)
	require.NoError(t, err)
	assert.Equal(t, n, m.RsvpAccepted)

	activities, err := svc.GetEventActivities(ctx, eventID)
	require.NoError(t, err)
	assert.Len(t, activities, n)

	assert.True(t, latestMetric(t, svc, ctx, model.MetricTotalRsvps).Equal(decimal.NewFromInt(n)))
}

func TestHandleEventDeleted_Idempotent(t *testing.T) {
	svc, ctx := newTestService(t)

	eventID := uuid.New()
	createEvent(t, svc, ctx, eventID, uuid.New())

	require.NoError(t, svc.HandleEventDeleted(ctx, eventID))
	require.NoError(t, svc.HandleEventDeleted(ctx, eventID))

	_, err := svc.GetEventMetrics(ctx, eventID)
	assert.ErrorIs(t, err, repo.ErrNotFound)

	// the second delete must not move the counter below zero
	assert.True(t, latestMetric(t, svc, ctx, model.MetricTotalEvents).Equal(decimal.Zero))
}

func TestTotalEventsCounter_CreatesMinusDeletes(t *testing.T) {
	svc, ctx := newTestService(t)

	const created, deleted = 5, 2
	ids := make([]uuid.UUID, created)
	for i := range ids {
		ids[i] = uuid.New()
		createEvent(t, svc, ctx, ids[i], uuid.New())
	}
	for i := 0; i < deleted; i++ {
		require.NoError(t, svc.HandleEventDeleted(ctx, ids[i]))
	}

	assert.True(t, latestMetric(t, svc, ctx, model.MetricTotalEvents).
		Equal(decimal.NewFromInt(created-deleted)))
}

func TestLaunchScenario(t *testing.T) {
	svc, ctx := newTestService(t)

	eventID := uuid.New()
	userID := uuid.New()
	orgID := uuid.New()

	require.NoError(t, svc.HandleEventCreated(ctx, eventID, orgID, "Launch",
		time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC), model.StatusDraft))
	require.NoError(t, svc.HandleGuestInvited(ctx, eventID, userID))
	require.NoError(t, svc.HandleRsvpAccepted(ctx, eventID, userID))

	m, err := svc.GetEventMetrics(ctx, eventID)
	require.NoError(t, err)
	assert.Equal(t, 1, m.TotalInvites)
	assert.Equal(t, 1, m.RsvpAccepted)
	assert.Equal(t, 0, m.RsvpDeclined)
	assert.Equal(t, 0, m.CheckedIn)

	activities, err := svc.GetUserActivities(ctx, userID)
	require.NoError(t, err)
	require.Len(t, activities, 2)
	kinds := map[model.ActivityType]bool{}
	for _, a := range activities {
		assert.Equal(t, eventID, a.EventID)
		kinds[a.ActivityType] = true
	}
	assert.True(t, kinds[model.ActivityInvitationSent])
	assert.True(t, kinds[model.ActivityRsvpAccepted])
}

func TestHandleEventPublished_SetsStatusAndActiveCount(t *testing.T) {
	svc, ctx := newTestService(t)

	eventID := uuid.New()
	createEvent(t, svc, ctx, eventID, uuid.New())

	require.NoError(t, svc.HandleEventPublished(ctx, eventID))

	m, err := svc.GetEventMetrics(ctx, eventID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPublished, m.EventStatus)

	n, err := svc.GetActiveEventsCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	assert.True(t, latestMetric(t, svc, ctx, model.MetricActiveEvents).Equal(decimal.NewFromInt(1)))
}

func TestHandleEventUpdated_TouchesTimestamp(t *testing.T) {
	svc, ctx := newTestService(t)

	eventID := uuid.New()
	createEvent(t, svc, ctx, eventID, uuid.New())

	before, err := svc.GetEventMetrics(ctx, eventID)
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, svc.HandleEventUpdated(ctx, eventID))

	after, err := svc.GetEventMetrics(ctx, eventID)
	require.NoError(t, err)
	assert.True(t, after.UpdatedAt.After(before.UpdatedAt))
}

func TestGetSystemMetricsByName_RejectsUnknownName(t *testing.T) {
	svc, ctx := newTestService(t)

	_, err := svc.GetSystemMetricsByName(ctx, model.MetricName("BOGUS"))
	assert.ErrorIs(t, err, ErrInvalidMetricName)

	rows, err := svc.GetSystemMetricsByName(ctx, model.MetricTotalEvents)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestGetRecentUserActivities_FiltersBySince(t *testing.T) {
	svc, ctx := newTestService(t)

	eventID := uuid.New()
	userID := uuid.New()
	createEvent(t, svc, ctx, eventID, uuid.New())
	require.NoError(t, svc.HandleGuestCheckedIn(ctx, eventID, userID))

	recent, err := svc.GetRecentUserActivities(ctx, userID, time.Now().Add(-time.Minute))
	require.NoError(t, err)
	assert.Len(t, recent, 1)

	none, err := svc.GetRecentUserActivities(ctx, userID, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Empty(t, none)
}
