package events

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/adjust/rmq/v5"
	"github.com/kr/pretty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/travigo/onebusaway/pkg/ctdf"
	"github.com/travigo/onebusaway/pkg/elastic_client"
)

const IndexNameFormat = "onebusaway-events-%d-%02d"

// ElasticEvent is the flattened event document stored in Elasticsearch
type ElasticEvent struct {
	Timestamp time.Time
	Type      ctdf.EventType
	StopID    string

	Title   string
	Message string

	Arrivals    int    `json:",omitempty"`
	SituationID string `json:",omitempty"`
	Error       string `json:",omitempty"`
}

func IndexName(timestamp time.Time) string {
	return fmt.Sprintf(IndexNameFormat, timestamp.Year(), timestamp.Month())
}

func NewElasticEvent(event *ctdf.Event) *ElasticEvent {
	notificationData := event.GetNotificationData()

	elasticEvent := &ElasticEvent{
		Timestamp: event.Timestamp,
		Type:      event.Type,
		StopID:    event.StopID(),
		Title:     notificationData.Title,
		Message:   notificationData.Message,
	}

	switch body := event.Body.(type) {
	case *ctdf.ArrivalsUpdatedEvent:
		elasticEvent.Arrivals = len(body.Arrivals)
	case *ctdf.SituationCreatedEvent:
		if body.ServiceAlert != nil {
			elasticEvent.SituationID = body.ServiceAlert.PrimaryIdentifier
		}
	case *ctdf.StopFailureEvent:
		elasticEvent.Error = body.Error
	}

	return elasticEvent
}

type NotifyQueue interface {
	PublishBytes(payload ...[]byte) error
}

type EventsBatchConsumer struct {
	Index       func(indexName string, document io.ReadSeeker)
	NotifyQueue NotifyQueue
}

func NewEventsBatchConsumer() *EventsBatchConsumer {
	return &EventsBatchConsumer{
		Index: elastic_client.IndexRequest,
	}
}

func (c *EventsBatchConsumer) Consume(batch rmq.Deliveries) {
	c.consumePayloads(batch.Payloads())

	if ackErrors := batch.Ack(); len(ackErrors) > 0 {
		for _, err := range ackErrors {
			log.Fatal().Err(err).Msg("Failed to consume event")
		}
	}
}

func (c *EventsBatchConsumer) consumePayloads(payloads []string) {
	for _, payload := range payloads {
		event, err := ctdf.DecodeEvent([]byte(payload))
		if err != nil {
			log.Error().Err(err).Msg("Failed to decode event")
			continue
		}

		if log.Logger.GetLevel() <= zerolog.DebugLevel {
			pretty.Println(event)
		}

		log.Info().Str("type", string(event.Type)).Str("stop", event.StopID()).Msg("Received event")

		elasticEvent, err := json.Marshal(NewElasticEvent(event))
		if err != nil {
			log.Error().Err(err).Msg("Failed to encode elastic event")
			continue
		}

		c.Index(IndexName(event.Timestamp), bytes.NewReader(elasticEvent))

		c.forwardNotification(event)
	}
}

func (c *EventsBatchConsumer) forwardNotification(event *ctdf.Event) {
	if c.NotifyQueue == nil {
		return
	}

	notification := ctdf.NewNotificationFromEvent(event)
	if notification == nil {
		return
	}

	notificationBytes, err := json.Marshal(notification)
	if err != nil {
		log.Error().Err(err).Msg("Failed to encode notification")
		return
	}

	if err := c.NotifyQueue.PublishBytes(notificationBytes); err != nil {
		log.Error().Err(err).Msg("Failed to queue notification")
	}
}
