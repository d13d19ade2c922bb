package consumer

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/planify/analytics-service/internal/model"
)

// Topic names the consumer subscribes to.
const (
	TopicEventCreated   = "event-created"
	TopicEventUpdated   = "event-updated"
	TopicEventDeleted   = "event-deleted"
	TopicGuestInvited   = "guest-invited"
	TopicRsvpAccepted   = "rsvp-accepted"
	TopicRsvpDeclined   = "rsvp-declined"
	TopicGuestCheckedIn = "guest-checked-in"
	TopicEventPublished = "event-published"
)

// DecodeError marks a malformed or incomplete payload. Messages failing to
// decode are dropped without any aggregate mutation and never retried.
type DecodeError struct {
	Topic string
	Field string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: field %q: %v", e.Topic, e.Field, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Typed events produced by Decode.

// EventCreated announces a new domain event.
type EventCreated struct {
	EventID        uuid.UUID
	OrganizationID uuid.UUID
	Title          string
	EventDate      time.Time
	Status         string
}

// EventRef carries only the event identifier. The originating topic decides
// which handler runs (updated/deleted/published).
type EventRef struct {
	EventID uuid.UUID
	topic   string
}

// GuestEvent carries an event/user pair. The originating topic decides which
// handler runs (invitations, RSVPs, check-ins).
type GuestEvent struct {
	EventID uuid.UUID
	UserID  uuid.UUID
	topic   string
}

// eventDate arrives either as RFC3339 or as a zone-less local timestamp.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

type rawPayload struct {
	EventID        string `json:"eventId"`
	OrganizationID string `json:"organizationId"`
	UserID         string `json:"userId"`
	Title          string `json:"title"`
	EventDate      string `json:"eventDate"`
	Status         string `json:"status"`
}

// Decode validates and parses one payload into the typed event for topic.
// Unknown extra fields are ignored; decoding is side-effect free.
func Decode(topic string, payload []byte) (interface{}, error) {
	var raw rawPayload
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, &DecodeError{Topic: topic, Field: "payload", Err: err}
	}

	eventID, err := parseUUID(topic, "eventId", raw.EventID)
	if err != nil {
		return nil, err
	}

	switch topic {
	case TopicEventCreated:
		orgID, err := parseUUID(topic, "organizationId", raw.OrganizationID)
		if err != nil {
			return nil, err
		}
		if raw.Title == "" {
			return nil, &DecodeError{Topic: topic, Field: "title", Err: errMissing}
		}
		date, err := parseDate(topic, raw.EventDate)
		if err != nil {
			return nil, err
		}
		status := raw.Status
		if status == "" {
			status = model.StatusDraft
		}
		return &EventCreated{
			EventID:        eventID,
			OrganizationID: orgID,
			Title:          raw.Title,
			EventDate:      date,
			Status:         status,
		}, nil

	case TopicEventUpdated, TopicEventDeleted, TopicEventPublished:
		return &EventRef{EventID: eventID, topic: topic}, nil

	case TopicGuestInvited, TopicRsvpAccepted, TopicRsvpDeclined, TopicGuestCheckedIn:
		userID, err := parseUUID(topic, "userId", raw.UserID)
		if err != nil {
			return nil, err
		}
		return &GuestEvent{EventID: eventID, UserID: userID, topic: topic}, nil
	}

	return nil, &DecodeError{Topic: topic, Field: "topic", Err: errUnknownTopic}
}

var (
	errMissing      = fmt.Errorf("required field is missing")
	errUnknownTopic = fmt.Errorf("no decoder registered for topic")
)

func parseUUID(topic, field, value string) (uuid.UUID, error) {
	if value == "" {
		return uuid.Nil, &DecodeError{Topic: topic, Field: field, Err: errMissing}
	}
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, &DecodeError{Topic: topic, Field: field, Err: err}
	}
	return id, nil
}

func parseDate(topic, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, &DecodeError{Topic: topic, Field: "eventDate", Err: errMissing}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, &DecodeError{
		Topic: topic,
		Field: "eventDate",
		Err:   fmt.Errorf("unparseable timestamp %q", value),
	}
}
