package homeassistant

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"
)

const DefaultNotifyService = "notify"

type notifyPayload struct {
	Title   string `json:"title,omitempty"`
	Message string `json:"message"`
}

// Notify calls the notify.<service> service, eg. notify.mobile_app_phone
func (p *Publisher) Notify(ctx context.Context, service string, title string, message string) error {
	if service == "" {
		service = DefaultNotifyService
	}

	body, err := json.Marshal(notifyPayload{
		Title:   title,
		Message: message,
	})
	if err != nil {
		return err
	}

	if err := p.do(ctx, http.MethodPost, "/api/services/notify/"+service, body); err != nil {
		return fmt.Errorf("notify %s: %w", service, err)
	}

	log.Info().Str("service", service).Str("title", title).Msg("Sent Home Assistant notification")

	return nil
}
