package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/planify/analytics-service/internal/model"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrNotFound is returned when a single-entity lookup matches no row.
var ErrNotFound = errors.New("aggregate not found")

// ErrUnknownCounter is returned for an increment against a column that is
// not one of the declared counter columns.
var ErrUnknownCounter = errors.New("unknown counter column")

const cacheTTL = 5 * time.Minute

// RepositoryInterface restricts Repo methods (unit test mock seam).
type RepositoryInterface interface {
	DB(ctx context.Context) *gorm.DB

	CreateEventMetrics(ctx context.Context, m *model.EventMetrics) error
	GetEventMetrics(ctx context.Context, eventID uuid.UUID) (*model.EventMetrics, error)
	ListEventMetricsByOrganization(ctx context.Context, orgID uuid.UUID) ([]model.EventMetrics, error)
	ListEventMetricsByStatus(ctx context.Context, status string) ([]model.EventMetrics, error)
	ListEventMetricsByDateRange(ctx context.Context, from, to time.Time) ([]model.EventMetrics, error)
	TouchEventMetrics(ctx context.Context, eventID uuid.UUID) (bool, error)
	IncrementEventCounter(ctx context.Context, eventID uuid.UUID, column string) (bool, error)
	SetEventStatus(ctx context.Context, eventID uuid.UUID, status string) (bool, error)
	DeleteEventMetrics(ctx context.Context, eventID uuid.UUID) (bool, error)
	CountEventsByStatus(ctx context.Context, status string) (int64, error)

	AppendUserActivity(ctx context.Context, a *model.UserActivity) error
	ListUserActivitiesByUser(ctx context.Context, userID uuid.UUID) ([]model.UserActivity, error)
	ListUserActivitiesByEvent(ctx context.Context, eventID uuid.UUID) ([]model.UserActivity, error)
	ListRecentUserActivities(ctx context.Context, userID uuid.UUID, since time.Time) ([]model.UserActivity, error)

	AppendSystemMetric(ctx context.Context, name model.MetricName, value decimal.Decimal) error
	LatestSystemMetric(ctx context.Context, name model.MetricName) (*model.SystemMetrics, error)
	ListSystemMetricsByName(ctx context.Context, name model.MetricName) ([]model.SystemMetrics, error)

	CacheEventMetrics(ctx context.Context, m *model.EventMetrics) error
	GetCachedEventMetrics(ctx context.Context, eventID uuid.UUID) (*model.EventMetrics, error)
	InvalidateEventMetrics(ctx context.Context, eventID uuid.UUID) error
}

// Repository implements RepositoryInterface on postgres + redis.
type Repository struct {
	db  *gorm.DB
	rdb *redis.Client
	log *zap.SugaredLogger
}

// NewRepository constructs repo.
func NewRepository(db *gorm.DB, rdb *redis.Client, logger *zap.SugaredLogger) *Repository {
	return &Repository{db: db, rdb: rdb, log: logger}
}

// DB returns underlying *gorm.DB
func (r *Repository) DB(ctx context.Context) *gorm.DB { return r.db.WithContext(ctx) }

// CreateEventMetrics inserts a fresh aggregate row with zeroed counters.
func (r *Repository) CreateEventMetrics(ctx context.Context, m *model.EventMetrics) error {
	return r.db.WithContext(ctx).Create(m).Error
}

// GetEventMetrics looks up one row by event UUID.
func (r *Repository) GetEventMetrics(ctx context.Context, eventID uuid.UUID) (*model.EventMetrics, error) {
	var m model.EventMetrics
	err := r.db.WithContext(ctx).Where("event_id = ?", eventID).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *Repository) ListEventMetricsByOrganization(ctx context.Context, orgID uuid.UUID) ([]model.EventMetrics, error) {
	var rows []model.EventMetrics
	err := r.db.WithContext(ctx).
		Where("organization_id = ?", orgID).
		Order("event_date desc").
		Find(&rows).Error
	return rows, err
}

func (r *Repository) ListEventMetricsByStatus(ctx context.Context, status string) ([]model.EventMetrics, error) {
	var rows []model.EventMetrics
	err := r.db.WithContext(ctx).Where("event_status = ?", status).Find(&rows).Error
	return rows, err
}

func (r *Repository) ListEventMetricsByDateRange(ctx context.Context, from, to time.Time) ([]model.EventMetrics, error) {
	var rows []model.EventMetrics
	err := r.db.WithContext(ctx).
		Where("event_date >= ? AND event_date <= ?", from, to).
		Order("event_date asc").
		Find(&rows).Error
	return rows, err
}

// TouchEventMetrics refreshes updated_at. Returns false when no row exists.
func (r *Repository) TouchEventMetrics(ctx context.Context, eventID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.EventMetrics{}).
		Where("event_id = ?", eventID).
		Update("updated_at", time.Now())
	return res.RowsAffected > 0, res.Error
}

// IncrementEventCounter bumps one counter column in a single atomic UPDATE,
// so concurrent increments on the same event never lose updates. A missing
// row is reported as (false, nil), not an error.
func (r *Repository) IncrementEventCounter(ctx context.Context, eventID uuid.UUID, column string) (bool, error) {
	switch column {
	case model.CounterTotalInvites, model.CounterRsvpAccepted,
		model.CounterRsvpDeclined, model.CounterRsvpMaybe, model.CounterCheckedIn:
	default:
		return false, fmt.Errorf("%w: %s", ErrUnknownCounter, column)
	}
	res := r.db.WithContext(ctx).
		Model(&model.EventMetrics{}).
		Where("event_id = ?", eventID).
		Updates(map[string]interface{}{
			column:       gorm.Expr(column + " + 1"),
			"updated_at": time.Now(),
		})
	return res.RowsAffected > 0, res.Error
}

// SetEventStatus updates the lifecycle status. Returns false when no row exists.
func (r *Repository) SetEventStatus(ctx context.Context, eventID uuid.UUID, status string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.EventMetrics{}).
		Where("event_id = ?", eventID).
		Updates(map[string]interface{}{
			"event_status": status,
			"updated_at":   time.Now(),
		})
	return res.RowsAffected > 0, res.Error
}

// DeleteEventMetrics removes the row if present; deleting an absent row is
// not an error so redelivered deletions stay idempotent.
func (r *Repository) DeleteEventMetrics(ctx context.Context, eventID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Delete(&model.EventMetrics{})
	return res.RowsAffected > 0, res.Error
}

func (r *Repository) CountEventsByStatus(ctx context.Context, status string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.EventMetrics{}).
		Where("event_status = ?", status).
		Count(&n).Error
	return n, err
}

// AppendUserActivity writes one immutable activity log entry.
func (r *Repository) AppendUserActivity(ctx context.Context, a *model.UserActivity) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *Repository) ListUserActivitiesByUser(ctx context.Context, userID uuid.UUID) ([]model.UserActivity, error) {
	var rows []model.UserActivity
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("activity_timestamp desc").
		Find(&rows).Error
	return rows, err
}

func (r *Repository) ListUserActivitiesByEvent(ctx context.Context, eventID uuid.UUID) ([]model.UserActivity, error) {
	var rows []model.UserActivity
	err := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("activity_timestamp desc").
		Find(&rows).Error
	return rows, err
}

func (r *Repository) ListRecentUserActivities(ctx context.Context, userID uuid.UUID, since time.Time) ([]model.UserActivity, error) {
	var rows []model.UserActivity
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND activity_timestamp >= ?", userID, since).
		Order("activity_timestamp desc").
		Find(&rows).Error
	return rows, err
}

// AppendSystemMetric records one observation of a named counter.
func (r *Repository) AppendSystemMetric(ctx context.Context, name model.MetricName, value decimal.Decimal) error {
	return r.db.WithContext(ctx).Create(&model.SystemMetrics{
		MetricName:      name,
		MetricValue:     value,
		MetricTimestamp: time.Now(),
	}).Error
}

// LatestSystemMetric returns the newest observation for name, or ErrNotFound
// when the series is empty.
func (r *Repository) LatestSystemMetric(ctx context.Context, name model.MetricName) (*model.SystemMetrics, error) {
	var m model.SystemMetrics
	err := r.db.WithContext(ctx).
		Where("metric_name = ?", name).
		Order("metric_timestamp desc, id desc").
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *Repository) ListSystemMetricsByName(ctx context.Context, name model.MetricName) ([]model.SystemMetrics, error) {
	var rows []model.SystemMetrics
	err := r.db.WithContext(ctx).
		Where("metric_name = ?", name).
		Order("metric_timestamp desc, id desc").
		Find(&rows).Error
	return rows, err
}

func cacheKey(eventID uuid.UUID) string { return "event_metrics:" + eventID.String() }

// CacheEventMetrics writes Redis.
func (r *Repository) CacheEventMetrics(ctx context.Context, m *model.EventMetrics) error {
	if r.rdb == nil {
		return nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return r.rdb.Set(ctx, cacheKey(m.EventID), data, cacheTTL).Err()
}

// GetCachedEventMetrics reads Redis.
func (r *Repository) GetCachedEventMetrics(ctx context.Context, eventID uuid.UUID) (*model.EventMetrics, error) {
	if r.rdb == nil {
		return nil, redis.Nil
	}
	data, err := r.rdb.Get(ctx, cacheKey(eventID)).Bytes()
	if err != nil {
		return nil, err
	}
	var m model.EventMetrics
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// InvalidateEventMetrics drops the cached row after any mutation.
func (r *Repository) InvalidateEventMetrics(ctx context.Context, eventID uuid.UUID) error {
	if r.rdb == nil {
		return nil
	}
	return r.rdb.Del(ctx, cacheKey(eventID)).Err()
}
