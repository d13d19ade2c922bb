package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/planify/analytics-service/internal/model"
	"github.com/planify/analytics-service/internal/repo"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrInvalidMetricName means a query asked for a metric outside the closed set.
var ErrInvalidMetricName = errors.New("invalid metric name")

// AnalyticsService applies decoded bus events to the three aggregates and
// serves read-only queries over them. It is the only writer of aggregate
// state; mutations against a missing EventMetrics row are deliberate no-ops
// so out-of-order deliveries never block or error.
type AnalyticsService struct {
	repo repo.RepositoryInterface
	log  *zap.SugaredLogger

	mu       sync.Mutex
	counters map[model.MetricName]*sync.Mutex
}

// NewAnalyticsService returns AnalyticsService.
func NewAnalyticsService(r repo.RepositoryInterface, logger *zap.SugaredLogger) *AnalyticsService {
	return &AnalyticsService{
		repo:     r,
		log:      logger,
		counters: make(map[model.MetricName]*sync.Mutex),
	}
}

// counterLock returns the mutex serializing read-modify-append sequences for
// one metric name. Different names never contend.
func (s *AnalyticsService) counterLock(name model.MetricName) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.counters[name]
	if !ok {
		l = &sync.Mutex{}
		s.counters[name] = l
	}
	return l
}

// observeDelta appends a new observation equal to the latest stored value
// plus delta. An empty series starts from zero.
func (s *AnalyticsService) observeDelta(ctx context.Context, name model.MetricName, delta int64) error {
	l := s.counterLock(name)
	l.Lock()
	defer l.Unlock()

	current := decimal.Zero
	latest, err := s.repo.LatestSystemMetric(ctx, name)
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		return err
	}
	if latest != nil {
		current = latest.MetricValue
	}
	return s.repo.AppendSystemMetric(ctx, name, current.Add(decimal.NewFromInt(delta)))
}

// observeValue appends an absolute observation.
func (s *AnalyticsService) observeValue(ctx context.Context, name model.MetricName, value decimal.Decimal) error {
	l := s.counterLock(name)
	l.Lock()
	defer l.Unlock()
	return s.repo.AppendSystemMetric(ctx, name, value)
}

func (s *AnalyticsService) recordActivity(ctx context.Context, userID, eventID uuid.UUID, kind model.ActivityType) error {
	a := &model.UserActivity{
		UserID:            userID,
		EventID:           eventID,
		ActivityType:      kind,
		ActivityTimestamp: time.Now(),
	}
	if err := s.repo.AppendUserActivity(ctx, a); err != nil {
		return err
	}
	s.log.Infow("recorded user activity",
		"activity", kind, "user_id", userID, "event_id", eventID)
	return nil
}

// HandleEventCreated creates the aggregate row with zeroed counters. A row
// that already exists (redelivered message) is left untouched and the
// TOTAL_EVENTS counter is not bumped again.
func (s *AnalyticsService) HandleEventCreated(ctx context.Context, eventID, orgID uuid.UUID, title string, eventDate time.Time, status string) error {
	if _, err := s.repo.GetEventMetrics(ctx, eventID); err == nil {
		s.log.Infow("event metrics already exist, skipping create", "event_id", eventID)
		return nil
	} else if !errors.Is(err, repo.ErrNotFound) {
		return err
	}

	m := &model.EventMetrics{
		EventID:        eventID,
		OrganizationID: orgID,
		EventTitle:     title,
		EventDate:      eventDate,
		EventStatus:    status,
	}
	if err := s.repo.CreateEventMetrics(ctx, m); err != nil {
		return err
	}
	s.log.Infow("created event metrics", "event_id", eventID)

	return s.observeDelta(ctx, model.MetricTotalEvents, 1)
}

// HandleEventUpdated refreshes updated_at; a missing row is a no-op.
func (s *AnalyticsService) HandleEventUpdated(ctx context.Context, eventID uuid.UUID) error {
	touched, err := s.repo.TouchEventMetrics(ctx, eventID)
	if err != nil {
		return err
	}
	if touched {
		s.invalidate(ctx, eventID)
		s.log.Infow("updated event metrics", "event_id", eventID)
	}
	return nil
}

// HandleEventDeleted removes the row. TOTAL_EVENTS only moves when a row was
// actually deleted, which keeps redelivered deletions idempotent.
func (s *AnalyticsService) HandleEventDeleted(ctx context.Context, eventID uuid.UUID) error {
	deleted, err := s.repo.DeleteEventMetrics(ctx, eventID)
	if err != nil {
		return err
	}
	if !deleted {
		return nil
	}
	s.invalidate(ctx, eventID)
	s.log.Infow("deleted event metrics", "event_id", eventID)
	return s.observeDelta(ctx, model.MetricTotalEvents, -1)
}

// HandleGuestInvited bumps total_invites and records INVITATION_SENT. The
// two writes are independent: a missing metrics row still gets its activity
// entry, and an activity failure does not undo the counter.
func (s *AnalyticsService) HandleGuestInvited(ctx context.Context, eventID, userID uuid.UUID) error {
	incErr := s.incrementCounter(ctx, eventID, model.CounterTotalInvites)
	actErr := s.recordActivity(ctx, userID, eventID, model.ActivityInvitationSent)
	return errors.Join(incErr, actErr)
}

// HandleRsvpAccepted bumps rsvp_accepted, records RSVP_ACCEPTED and advances
// the TOTAL_RSVPS counter.
func (s *AnalyticsService) HandleRsvpAccepted(ctx context.Context, eventID, userID uuid.UUID) error {
	incErr := s.incrementCounter(ctx, eventID, model.CounterRsvpAccepted)
	actErr := s.recordActivity(ctx, userID, eventID, model.ActivityRsvpAccepted)
	var metricErr error
	if actErr == nil {
		metricErr = s.observeDelta(ctx, model.MetricTotalRsvps, 1)
	}
	return errors.Join(incErr, actErr, metricErr)
}

// HandleRsvpDeclined bumps rsvp_declined and records RSVP_DECLINED.
func (s *AnalyticsService) HandleRsvpDeclined(ctx context.Context, eventID, userID uuid.UUID) error {
	incErr := s.incrementCounter(ctx, eventID, model.CounterRsvpDeclined)
	actErr := s.recordActivity(ctx, userID, eventID, model.ActivityRsvpDeclined)
	return errors.Join(incErr, actErr)
}

// HandleGuestCheckedIn bumps checked_in and records CHECKED_IN.
func (s *AnalyticsService) HandleGuestCheckedIn(ctx context.Context, eventID, userID uuid.UUID) error {
	incErr := s.incrementCounter(ctx, eventID, model.CounterCheckedIn)
	actErr := s.recordActivity(ctx, userID, eventID, model.ActivityCheckedIn)
	return errors.Join(incErr, actErr)
}

// HandleEventPublished flips the row to PUBLISHED and observes the current
// ACTIVE_EVENTS count.
func (s *AnalyticsService) HandleEventPublished(ctx context.Context, eventID uuid.UUID) error {
	updated, err := s.repo.SetEventStatus(ctx, eventID, model.StatusPublished)
	if err != nil {
		return err
	}
	if !updated {
		return nil
	}
	s.invalidate(ctx, eventID)
	s.log.Infow("published event", "event_id", eventID)

	active, err := s.repo.CountEventsByStatus(ctx, model.StatusPublished)
	if err != nil {
		return err
	}
	return s.observeValue(ctx, model.MetricActiveEvents, decimal.NewFromInt(active))
}

func (s *AnalyticsService) incrementCounter(ctx context.Context, eventID uuid.UUID, column string) error {
	bumped, err := s.repo.IncrementEventCounter(ctx, eventID, column)
	if err != nil {
		return err
	}
	if !bumped {
		// Row may not exist yet because of bus reordering; drop the
		// increment rather than queue it.
		s.log.Debugw("no event metrics row, increment dropped",
			"event_id", eventID, "counter", column)
		return nil
	}
	s.invalidate(ctx, eventID)
	return nil
}

// invalidate drops the cached row; cache failures never fail the mutation.
func (s *AnalyticsService) invalidate(ctx context.Context, eventID uuid.UUID) {
	if err := s.repo.InvalidateEventMetrics(ctx, eventID); err != nil {
		s.log.Warnw("cache invalidation failed", "event_id", eventID, "error", err)
	}
}

// GetEventMetrics returns one aggregate row, read through the cache.
// A miss surfaces repo.ErrNotFound.
func (s *AnalyticsService) GetEventMetrics(ctx context.Context, eventID uuid.UUID) (*model.EventMetrics, error) {
	if m, err := s.repo.GetCachedEventMetrics(ctx, eventID); err == nil {
		return m, nil
	}
	m, err := s.repo.GetEventMetrics(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.CacheEventMetrics(ctx, m); err != nil {
		s.log.Warnw("cache write failed", "event_id", eventID, "error", err)
	}
	return m, nil
}

func (s *AnalyticsService) GetEventMetricsByOrganization(ctx context.Context, orgID uuid.UUID) ([]model.EventMetrics, error) {
	return s.repo.ListEventMetricsByOrganization(ctx, orgID)
}

func (s *AnalyticsService) GetEventMetricsByDateRange(ctx context.Context, from, to time.Time) ([]model.EventMetrics, error) {
	return s.repo.ListEventMetricsByDateRange(ctx, from, to)
}

func (s *AnalyticsService) GetUserActivities(ctx context.Context, userID uuid.UUID) ([]model.UserActivity, error) {
	return s.repo.ListUserActivitiesByUser(ctx, userID)
}

func (s *AnalyticsService) GetEventActivities(ctx context.Context, eventID uuid.UUID) ([]model.UserActivity, error) {
	return s.repo.ListUserActivitiesByEvent(ctx, eventID)
}

func (s *AnalyticsService) GetRecentUserActivities(ctx context.Context, userID uuid.UUID, since time.Time) ([]model.UserActivity, error) {
	return s.repo.ListRecentUserActivities(ctx, userID, since)
}

// GetActiveEventsCount counts events currently in PUBLISHED status.
func (s *AnalyticsService) GetActiveEventsCount(ctx context.Context) (int64, error) {
	return s.repo.CountEventsByStatus(ctx, model.StatusPublished)
}

// GetSystemMetricsByName lists observations newest first.
func (s *AnalyticsService) GetSystemMetricsByName(ctx context.Context, name model.MetricName) ([]model.SystemMetrics, error) {
	if !name.Valid() {
		return nil, ErrInvalidMetricName
	}
	return s.repo.ListSystemMetricsByName(ctx, name)
}

// Repo exposes underlying repository (unit tests helper).
func (s *AnalyticsService) Repo() repo.RepositoryInterface {
	return s.repo
}
