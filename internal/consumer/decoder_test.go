package consumer

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/planify/analytics-service/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_EventCreated(t *testing.T) {
	eventID := uuid.New()
	orgID := uuid.New()
	payload := fmt.Sprintf(
		`{"eventId":%q,"organizationId":%q,"title":"Launch","eventDate":"2026-01-15T10:00","status":"PUBLISHED"}`,
		eventID, orgID)

	ev, err := Decode(TopicEventCreated, []byte(payload))
	require.NoError(t, err)

	created, ok := ev.(*EventCreated)
	require.True(t, ok)
	assert.Equal(t, eventID, created.EventID)
	assert.Equal(t, orgID, created.OrganizationID)
	assert.Equal(t, "Launch", created.Title)
	assert.Equal(t, time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC), created.EventDate)
	assert.Equal(t, "PUBLISHED", created.Status)
}

func TestDecode_EventCreated_StatusDefaultsToDraft(t *testing.T) {
	payload := fmt.Sprintf(
		`{"eventId":%q,"organizationId":%q,"title":"Launch","eventDate":"2026-01-15T10:00:00Z"}`,
		uuid.New(), uuid.New())

	ev, err := Decode(TopicEventCreated, []byte(payload))
	require.NoError(t, err)
	assert.Equal(t, model.StatusDraft, ev.(*EventCreated).Status)
}

func TestDecode_ExtraFieldsIgnored(t *testing.T) {
	payload := fmt.Sprintf(`{"eventId":%q,"somethingElse":42}`, uuid.New())

	ev, err := Decode(TopicEventDeleted, []byte(payload))
	require.NoError(t, err)
	assert.IsType(t, &EventRef{}, ev)
}

func TestDecode_GuestTopics(t *testing.T) {
	eventID := uuid.New()
	userID := uuid.New()
	payload := fmt.Sprintf(`{"eventId":%q,"userId":%q}`, eventID, userID)

	for _, topic := range []string{TopicGuestInvited, TopicRsvpAccepted, TopicRsvpDeclined, TopicGuestCheckedIn} {
		ev, err := Decode(topic, []byte(payload))
		require.NoError(t, err, topic)
		guest, ok := ev.(*GuestEvent)
		require.True(t, ok, topic)
		assert.Equal(t, eventID, guest.EventID)
		assert.Equal(t, userID, guest.UserID)
	}
}

func TestDecode_MissingEventID(t *testing.T) {
	for _, topic := range []string{
		TopicEventCreated, TopicEventUpdated, TopicEventDeleted, TopicGuestInvited,
		TopicRsvpAccepted, TopicRsvpDeclined, TopicGuestCheckedIn, TopicEventPublished,
	} {
		_, err := Decode(topic, []byte(`{"title":"no id"}`))
		var de *DecodeError
		require.ErrorAs(t, err, &de, topic)
		assert.Equal(t, "eventId", de.Field, topic)
	}
}

func TestDecode_MalformedInputs(t *testing.T) {
	cases := []struct {
		name    string
		topic   string
		payload string
		field   string
	}{
		{"not json", TopicEventCreated, `{{{`, "payload"},
		{"bad event uuid", TopicEventUpdated, `{"eventId":"not-a-uuid"}`, "eventId"},
		{"bad user uuid", TopicRsvpAccepted,
			fmt.Sprintf(`{"eventId":%q,"userId":"nope"}`, uuid.New()), "userId"},
		{"missing user", TopicGuestInvited,
			fmt.Sprintf(`{"eventId":%q}`, uuid.New()), "userId"},
		{"missing title", TopicEventCreated,
			fmt.Sprintf(`{"eventId":%q,"organizationId":%q,"eventDate":"2026-01-15T10:00"}`,
				uuid.New(), uuid.New()), "title"},
		{"bad date", TopicEventCreated,
			fmt.Sprintf(`{"eventId":%q,"organizationId":%q,"title":"x","eventDate":"January 15"}`,
				uuid.New(), uuid.New()), "eventDate"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode(tc.topic, []byte(tc.payload))
			var de *DecodeError
			require.ErrorAs(t, err, &de)
			assert.Equal(t, tc.field, de.Field)
		})
	}
}

func TestDecode_UnknownTopic(t *testing.T) {
	_, err := Decode("event-archived", []byte(fmt.Sprintf(`{"eventId":%q}`, uuid.New())))
	var de *DecodeError
	require.ErrorAs(t, err, &de)
}
