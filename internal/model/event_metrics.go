package model

import (
	"time"

	"github.com/google/uuid"
)

// Counter column names on event_metrics. Increments go through
// repo.IncrementEventCounter and must name one of these.
const (
	CounterTotalInvites = "total_invites"
	CounterRsvpAccepted = "rsvp_accepted"
	CounterRsvpDeclined = "rsvp_declined"
	CounterRsvpMaybe    = "rsvp_maybe"
	CounterCheckedIn    = "checked_in"
)

// Event lifecycle statuses carried on the bus.
const (
	StatusDraft     = "DRAFT"
	StatusPublished = "PUBLISHED"
)

// EventMetrics is one aggregate row per domain event. The aggregate key is
// the event UUID from the bus payload; the numeric ID is only a surrogate PK.
type EventMetrics struct {
	ID             uint64    `gorm:"primaryKey" json:"id"`
	EventID        uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"eventId"`
	OrganizationID uuid.UUID `gorm:"type:uuid;index;not null" json:"organizationId"`
	EventTitle     string    `gorm:"size:255;not null" json:"eventTitle"`
	EventDate      time.Time `gorm:"not null" json:"eventDate"`
	EventStatus    string    `gorm:"size:32;index" json:"eventStatus"`
	TotalInvites   int       `gorm:"not null;default:0" json:"totalInvites"`
	RsvpAccepted   int       `gorm:"not null;default:0" json:"rsvpAccepted"`
	RsvpDeclined   int       `gorm:"not null;default:0" json:"rsvpDeclined"`
	RsvpMaybe      int       `gorm:"not null;default:0" json:"rsvpMaybe"`
	CheckedIn      int       `gorm:"not null;default:0" json:"checkedIn"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (EventMetrics) TableName() string { return "event_metrics" }
