package repo

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redismock/v8"
	"github.com/google/uuid"
	"github.com/planify/analytics-service/internal/logger"
	"github.com/planify/analytics-service/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventMetricsCache_RoundTrip(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	log, err := logger.NewLogger()
	require.NoError(t, err)
	r := NewRepository(nil, rdb, log)
	ctx := context.Background()

	m := &model.EventMetrics{
		ID:             1,
		EventID:        uuid.New(),
		OrganizationID: uuid.New(),
		EventTitle:     "Launch",
		EventDate:      time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC),
		EventStatus:    model.StatusPublished,
		RsvpAccepted:   3,
	}
	key := cacheKey(m.EventID)
	data, err := json.Marshal(m)
	require.NoError(t, err)

	mock.ExpectSet(key, data, cacheTTL).SetVal("OK")
	require.NoError(t, r.CacheEventMetrics(ctx, m))

	mock.ExpectGet(key).SetVal(string(data))
	got, err := r.GetCachedEventMetrics(ctx, m.EventID)
	require.NoError(t, err)
	assert.Equal(t, m.EventID, got.EventID)
	assert.Equal(t, 3, got.RsvpAccepted)

	mock.ExpectDel(key).SetVal(1)
	require.NoError(t, r.InvalidateEventMetrics(ctx, m.EventID))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetCachedEventMetrics_Miss(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	log, err := logger.NewLogger()
	require.NoError(t, err)
	r := NewRepository(nil, rdb, log)

	id := uuid.New()
	mock.ExpectGet(cacheKey(id)).RedisNil()

	_, err = r.GetCachedEventMetrics(context.Background(), id)
	assert.ErrorIs(t, err, redis.Nil)
}
