package events

import (
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/travigo/onebusaway/pkg/ctdf"
)

func TestIndexName(t *testing.T) {
	assert.Equal(t, "onebusaway-events-2023-11", IndexName(time.Date(2023, 11, 14, 22, 13, 20, 0, time.UTC)))
	assert.Equal(t, "onebusaway-events-2024-02", IndexName(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)))
}

func TestEventsBatchConsumer_ConsumePayloads(t *testing.T) {
	timestamp := time.Date(2023, 11, 14, 22, 13, 20, 0, time.UTC)

	failedEvent, err := json.Marshal(ctdf.Event{
		Type:      ctdf.EventTypeStopUpdateFailed,
		Timestamp: timestamp,
		Body:      &ctdf.StopFailureEvent{StopID: "1_75403", Error: "Timeout error fetching information"},
	})
	require.NoError(t, err)

	arrivalsEvent, err := json.Marshal(ctdf.Event{
		Type:      ctdf.EventTypeArrivalsUpdated,
		Timestamp: timestamp,
		Body:      &ctdf.ArrivalsUpdatedEvent{StopID: "1_75403", Arrivals: []*ctdf.Arrival{{}, {}, {}}},
	})
	require.NoError(t, err)

	type indexed struct {
		indexName string
		document  ElasticEvent
	}
	var documents []indexed

	batchConsumer := &EventsBatchConsumer{
		Index: func(indexName string, document io.ReadSeeker) {
			var elasticEvent ElasticEvent
			require.NoError(t, json.NewDecoder(document).Decode(&elasticEvent))

			documents = append(documents, indexed{indexName: indexName, document: elasticEvent})
		},
	}

	situationWithoutAlert := `{"Type": "SituationCreated", "Timestamp": "2023-11-14T22:13:20Z", "Body": {"StopID": "1_75403"}}`

	assert.NotPanics(t, func() {
		batchConsumer.consumePayloads([]string{string(failedEvent), "not an event", situationWithoutAlert, string(arrivalsEvent)})
	})

	require.Len(t, documents, 2)

	assert.Equal(t, "onebusaway-events-2023-11", documents[0].indexName)
	assert.Equal(t, ctdf.EventTypeStopUpdateFailed, documents[0].document.Type)
	assert.Equal(t, "1_75403", documents[0].document.StopID)
	assert.Equal(t, "Update failed", documents[0].document.Title)
	assert.Equal(t, "Timeout error fetching information", documents[0].document.Error)

	assert.Equal(t, ctdf.EventTypeArrivalsUpdated, documents[1].document.Type)
	assert.Equal(t, 3, documents[1].document.Arrivals)
	assert.Equal(t, "3 upcoming arrivals at stop 1_75403", documents[1].document.Message)
}

type fakeNotifyQueue struct {
	notifications []ctdf.Notification
}

func (f *fakeNotifyQueue) PublishBytes(payload ...[]byte) error {
	for _, notificationBytes := range payload {
		var notification ctdf.Notification
		if err := json.Unmarshal(notificationBytes, &notification); err != nil {
			return err
		}
		f.notifications = append(f.notifications, notification)
	}

	return nil
}

func TestEventsBatchConsumer_ForwardsNotifications(t *testing.T) {
	timestamp := time.Date(2023, 11, 14, 22, 13, 20, 0, time.UTC)

	var payloads []string
	for _, event := range []ctdf.Event{
		{Type: ctdf.EventTypeArrivalsUpdated, Timestamp: timestamp, Body: &ctdf.ArrivalsUpdatedEvent{StopID: "1_75403"}},
		{Type: ctdf.EventTypeSituationCreated, Timestamp: timestamp, Body: &ctdf.SituationCreatedEvent{
			StopID:       "1_75403",
			ServiceAlert: &ctdf.ServiceAlert{Title: "Route 43 reroute", Text: "Buses are rerouted"},
		}},
	} {
		eventBytes, err := json.Marshal(event)
		require.NoError(t, err)
		payloads = append(payloads, string(eventBytes))
	}

	notifyQueue := &fakeNotifyQueue{}
	batchConsumer := &EventsBatchConsumer{
		Index:       func(indexName string, document io.ReadSeeker) {},
		NotifyQueue: notifyQueue,
	}

	batchConsumer.consumePayloads(payloads)

	assert.Equal(t, []ctdf.Notification{
		{Type: ctdf.NotificationTypeSituation, StopID: "1_75403", Title: "Route 43 reroute", Message: "Buses are rerouted"},
	}, notifyQueue.notifications)
}
