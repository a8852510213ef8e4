package homeassistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
	"github.com/travigo/onebusaway/pkg/sensor"
	"github.com/travigo/onebusaway/pkg/util"
)

const maxRetries = 3

// Publisher writes sensor states through the Home Assistant REST API
type Publisher struct {
	URL   string
	Token string

	HTTPClient *http.Client

	newBackOff func() backoff.BackOff
}

func NewPublisher(url string, token string) *Publisher {
	return &Publisher{
		URL:   strings.TrimSuffix(url, "/"),
		Token: token,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		newBackOff: func() backoff.BackOff {
			return backoff.NewExponentialBackOff()
		},
	}
}

// NewPublisherFromEnvironment returns nil when Home Assistant isn't configured
func NewPublisherFromEnvironment() *Publisher {
	url := util.GetEnvironmentVariable("HOMEASSISTANT_URL", "")
	if url == "" {
		return nil
	}

	return NewPublisher(url, util.GetEnvironmentVariable("HOMEASSISTANT_TOKEN", ""))
}

type statePayload struct {
	State      string                 `json:"state"`
	Attributes map[string]interface{} `json:"attributes"`
}

func (p *Publisher) Publish(ctx context.Context, stopIdentifier string, entities []*sensor.Entity) error {
	for _, entity := range entities {
		body, err := json.Marshal(statePayload{
			State:      entity.State,
			Attributes: entity.Attributes,
		})
		if err != nil {
			return err
		}

		if err := p.do(ctx, http.MethodPost, "/api/states/"+entity.EntityID, body); err != nil {
			return fmt.Errorf("publish %s: %w", entity.EntityID, err)
		}
	}

	log.Debug().Str("stop", stopIdentifier).Int("entities", len(entities)).Msg("Published sensors to Home Assistant")

	return nil
}

func (p *Publisher) Remove(ctx context.Context, stopIdentifier string, entityIDs []string) error {
	for _, entityID := range entityIDs {
		if err := p.do(ctx, http.MethodDelete, "/api/states/"+entityID, nil); err != nil {
			return fmt.Errorf("remove %s: %w", entityID, err)
		}
	}

	log.Debug().Str("stop", stopIdentifier).Strs("entities", entityIDs).Msg("Removed sensors from Home Assistant")

	return nil
}

// Ping checks the API is reachable and the token is accepted
func (p *Publisher) Ping(ctx context.Context) error {
	return p.do(ctx, http.MethodGet, "/api/", nil)
}

func (p *Publisher) do(ctx context.Context, method string, path string, body []byte) error {
	operation := func() error {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, p.URL+path, reader)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", p.Token))

		resp, err := p.HTTPClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		io.Copy(io.Discard, resp.Body)

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode <= 299:
			return nil
		case method == http.MethodDelete && resp.StatusCode == http.StatusNotFound:
			return nil
		case resp.StatusCode >= 500:
			return fmt.Errorf("got unexpected HTTP status: %d", resp.StatusCode)
		default:
			return backoff.Permanent(fmt.Errorf("got unexpected HTTP status: %d", resp.StatusCode))
		}
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(p.newBackOff(), maxRetries), ctx)

	return backoff.Retry(operation, policy)
}
