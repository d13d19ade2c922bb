package consumer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/planify/analytics-service/internal/config"
	"github.com/planify/analytics-service/internal/metrics"
	"github.com/planify/analytics-service/internal/service"
	"go.uber.org/zap"
)

// Dispatcher binds topic name -> decoder -> engine handler. One bounded
// retry/backoff policy covers every topic uniformly; decode failures are
// never retried. The caller decides what to do with the returned error
// (the consumer loop logs-and-drops, once, centrally).
type Dispatcher struct {
	svc         *service.AnalyticsService
	log         *zap.SugaredLogger
	maxAttempts int
	backoff     time.Duration
}

// NewDispatcher constructs dispatcher.
func NewDispatcher(svc *service.AnalyticsService, cfg config.DispatcherConfig, logger *zap.SugaredLogger) *Dispatcher {
	return &Dispatcher{
		svc:         svc,
		log:         logger,
		maxAttempts: cfg.MaxAttempts,
		backoff:     cfg.RetryBackoff(),
	}
}

// Dispatch decodes payload and applies it to the aggregates. A *DecodeError
// comes back immediately; any handler error is retried up to maxAttempts
// with a fixed backoff before being returned.
func (d *Dispatcher) Dispatch(ctx context.Context, topic string, payload []byte) error {
	ev, err := Decode(topic, payload)
	if err != nil {
		metrics.DecodeFailures.WithLabelValues(topic).Inc()
		return err
	}

	for attempt := 1; ; attempt++ {
		err = d.apply(ctx, ev)
		if err == nil {
			return nil
		}
		if attempt >= d.maxAttempts {
			return fmt.Errorf("topic %s: %d attempts: %w", topic, attempt, err)
		}
		metrics.HandlerRetries.Inc()
		d.log.Warnw("handler failed, retrying",
			"topic", topic, "attempt", attempt, "error", err)
		select {
		case <-ctx.Done():
			return errors.Join(err, ctx.Err())
		case <-time.After(d.backoff):
		}
	}
}

func (d *Dispatcher) apply(ctx context.Context, ev interface{}) error {
	switch e := ev.(type) {
	case *EventCreated:
		return d.svc.HandleEventCreated(ctx, e.EventID, e.OrganizationID, e.Title, e.EventDate, e.Status)
	case *EventRef:
		return d.applyRef(ctx, e)
	case *GuestEvent:
		return d.applyGuest(ctx, e)
	}
	return fmt.Errorf("unhandled event type %T", ev)
}

func (d *Dispatcher) applyRef(ctx context.Context, e *EventRef) error {
	switch e.topic {
	case TopicEventUpdated:
		return d.svc.HandleEventUpdated(ctx, e.EventID)
	case TopicEventDeleted:
		return d.svc.HandleEventDeleted(ctx, e.EventID)
	case TopicEventPublished:
		return d.svc.HandleEventPublished(ctx, e.EventID)
	}
	return fmt.Errorf("unhandled ref topic %s", e.topic)
}

func (d *Dispatcher) applyGuest(ctx context.Context, e *GuestEvent) error {
	switch e.topic {
	case TopicGuestInvited:
		return d.svc.HandleGuestInvited(ctx, e.EventID, e.UserID)
	case TopicRsvpAccepted:
		return d.svc.HandleRsvpAccepted(ctx, e.EventID, e.UserID)
	case TopicRsvpDeclined:
		return d.svc.HandleRsvpDeclined(ctx, e.EventID, e.UserID)
	case TopicGuestCheckedIn:
		return d.svc.HandleGuestCheckedIn(ctx, e.EventID, e.UserID)
	}
	return fmt.Errorf("unhandled guest topic %s", e.topic)
}
