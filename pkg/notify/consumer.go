package notify

import (
	"context"
	"encoding/json"

	"github.com/adjust/rmq/v5"
	"github.com/rs/zerolog/log"
	"github.com/travigo/onebusaway/pkg/ctdf"
)

const QueueName = "notify-queue"

type Notifier interface {
	Notify(ctx context.Context, service string, title string, message string) error
}

type NotifyBatchConsumer struct {
	Notifier Notifier
	Service  string
}

func NewNotifyBatchConsumer(notifier Notifier, service string) *NotifyBatchConsumer {
	return &NotifyBatchConsumer{
		Notifier: notifier,
		Service:  service,
	}
}

func (c *NotifyBatchConsumer) Consume(batch rmq.Deliveries) {
	c.consumePayloads(context.Background(), batch.Payloads())

	if ackErrors := batch.Ack(); len(ackErrors) > 0 {
		for _, err := range ackErrors {
			log.Fatal().Err(err).Msg("Failed to consume from queue")
		}
	}
}

func (c *NotifyBatchConsumer) consumePayloads(ctx context.Context, payloads []string) {
	for _, payload := range payloads {
		var notification ctdf.Notification
		if err := json.Unmarshal([]byte(payload), &notification); err != nil {
			log.Error().Err(err).Msg("Failed to decode notification")
			continue
		}

		if err := c.Notifier.Notify(ctx, c.Service, notification.Title, notification.Message); err != nil {
			log.Error().Err(err).Str("stop", notification.StopID).Str("type", string(notification.Type)).Msg("Failed to send notification")
		}
	}
}
