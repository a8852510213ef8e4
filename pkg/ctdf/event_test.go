package ctdf

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvent_GetNotificationData(t *testing.T) {
	tests := []struct {
		name   string
		event  Event
		expect EventNotificationData
	}{
		{
			name: "situation",
			event: Event{
				Type: EventTypeSituationCreated,
				Body: &SituationCreatedEvent{StopID: "1_75403", ServiceAlert: &ServiceAlert{Title: "Reroute", Text: "Buses rerouted"}},
			},
			expect: EventNotificationData{Title: "Reroute", Message: "Buses rerouted"},
		},
		{
			name: "situation without alert",
			event: Event{
				Type: EventTypeSituationCreated,
				Body: &SituationCreatedEvent{StopID: "1_75403"},
			},
			expect: EventNotificationData{},
		},
		{
			name: "reauth",
			event: Event{
				Type: EventTypeStopReauthRequired,
				Body: &StopFailureEvent{StopID: "1_75403"},
			},
			expect: EventNotificationData{Title: "Reauthentication required", Message: "The OneBusAway token for stop 1_75403 was rejected"},
		},
		{
			name: "update failed",
			event: Event{
				Type: EventTypeStopUpdateFailed,
				Body: &StopFailureEvent{StopID: "1_75403", Error: "timeout"},
			},
			expect: EventNotificationData{Title: "Update failed", Message: "Failed to update stop 1_75403: timeout"},
		},
		{
			name: "arrivals",
			event: Event{
				Type: EventTypeArrivalsUpdated,
				Body: &ArrivalsUpdatedEvent{StopID: "1_75403", Arrivals: []*Arrival{{}, {}}},
			},
			expect: EventNotificationData{Title: "Arrivals updated", Message: "2 upcoming arrivals at stop 1_75403"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expect, tc.event.GetNotificationData())
		})
	}
}

func TestDecodeEvent(t *testing.T) {
	timestamp := time.Date(2023, 11, 14, 22, 13, 20, 0, time.UTC)

	eventBytes, err := json.Marshal(Event{
		Type:      EventTypeSituationCreated,
		Timestamp: timestamp,
		Body: &SituationCreatedEvent{
			StopID:       "1_75403",
			ServiceAlert: &ServiceAlert{PrimaryIdentifier: "ONEBUSAWAY:SITUATION:1", Title: "Reroute"},
		},
	})
	require.NoError(t, err)

	event, err := DecodeEvent(eventBytes)
	require.NoError(t, err)

	assert.Equal(t, EventTypeSituationCreated, event.Type)
	assert.True(t, timestamp.Equal(event.Timestamp))
	assert.Equal(t, "1_75403", event.StopID())

	body, ok := event.Body.(*SituationCreatedEvent)
	require.True(t, ok)
	assert.Equal(t, "Reroute", body.ServiceAlert.Title)

	_, err = DecodeEvent([]byte(`{"Type": "SituationCreated", "Body": {"StopID": "1_75403"}}`))
	assert.Error(t, err)

	_, err = DecodeEvent([]byte(`{"Type": "Nonsense"}`))
	assert.Error(t, err)

	_, err = DecodeEvent([]byte(`not json`))
	assert.Error(t, err)
}

func TestNewNotificationFromEvent(t *testing.T) {
	notification := NewNotificationFromEvent(&Event{
		Type: EventTypeStopReauthRequired,
		Body: &StopFailureEvent{StopID: "1_75403"},
	})
	require.NotNil(t, notification)
	assert.Equal(t, &Notification{
		Type:    NotificationTypeReauth,
		StopID:  "1_75403",
		Title:   "Reauthentication required",
		Message: "The OneBusAway token for stop 1_75403 was rejected",
	}, notification)

	assert.Nil(t, NewNotificationFromEvent(&Event{
		Type: EventTypeArrivalsUpdated,
		Body: &ArrivalsUpdatedEvent{StopID: "1_75403"},
	}))
}
