package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/travigo/onebusaway/pkg/ctdf"
)

type sentNotification struct {
	service string
	title   string
	message string
}

type fakeNotifier struct {
	sent []sentNotification
	err  error
}

func (f *fakeNotifier) Notify(ctx context.Context, service string, title string, message string) error {
	f.sent = append(f.sent, sentNotification{service: service, title: title, message: message})
	return f.err
}

func TestNotifyBatchConsumer_ConsumePayloads(t *testing.T) {
	notification, err := json.Marshal(ctdf.Notification{
		Type:    ctdf.NotificationTypeSituation,
		StopID:  "1_75403",
		Title:   "Route 43 reroute",
		Message: "Buses are rerouted",
	})
	require.NoError(t, err)

	notifier := &fakeNotifier{}
	batchConsumer := NewNotifyBatchConsumer(notifier, "mobile_app_phone")

	batchConsumer.consumePayloads(context.Background(), []string{"garbage", string(notification)})

	assert.Equal(t, []sentNotification{
		{service: "mobile_app_phone", title: "Route 43 reroute", message: "Buses are rerouted"},
	}, notifier.sent)

	// Failures are logged and the rest of the batch carries on
	notifier.err = errors.New("unavailable")
	batchConsumer.consumePayloads(context.Background(), []string{string(notification), string(notification)})
	assert.Len(t, notifier.sent, 3)
}
