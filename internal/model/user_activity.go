package model

import (
	"time"

	"github.com/google/uuid"
)

// ActivityType is the closed set of tags allowed on a user_activity row.
type ActivityType string

const (
	ActivityRsvpAccepted   ActivityType = "RSVP_ACCEPTED"
	ActivityRsvpDeclined   ActivityType = "RSVP_DECLINED"
	ActivityRsvpMaybe      ActivityType = "RSVP_MAYBE"
	ActivityCheckedIn      ActivityType = "CHECKED_IN"
	ActivityEventViewed    ActivityType = "EVENT_VIEWED"
	ActivityInvitationSent ActivityType = "INVITATION_SENT"
)

// Valid reports whether t is one of the declared activity tags.
func (t ActivityType) Valid() bool {
	switch t {
	case ActivityRsvpAccepted, ActivityRsvpDeclined, ActivityRsvpMaybe,
		ActivityCheckedIn, ActivityEventViewed, ActivityInvitationSent:
		return true
	}
	return false
}

// UserActivity is an append-only activity log entry. Rows are never updated
// or deleted once written.
type UserActivity struct {
	ID                uint64       `gorm:"primaryKey" json:"id"`
	UserID            uuid.UUID    `gorm:"type:uuid;index;not null" json:"userId"`
	EventID           uuid.UUID    `gorm:"type:uuid;index;not null" json:"eventId"`
	ActivityType      ActivityType `gorm:"size:50;not null" json:"activityType"`
	ActivityTimestamp time.Time    `gorm:"not null;index" json:"activityTimestamp"`
	CreatedAt         time.Time    `gorm:"autoCreateTime" json:"createdAt"`
}

func (UserActivity) TableName() string { return "user_activity" }
